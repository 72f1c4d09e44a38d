// Package domain defines the core entities shared by the polyboard tools:
// CLOB trades, net positions, order books, and the tracked-market row
// persisted to the bot table.
package domain

import (
	"fmt"
	"strconv"
)

// ──────────────────────────────────────────────────────────────────────────────
// Types & constants
// ──────────────────────────────────────────────────────────────────────────────

// Side is the direction of a trade or order.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// IsValid returns true if the side is a recognised direction.
func (s Side) IsValid() bool {
	return s == SideBuy || s == SideSell
}

// ──────────────────────────────────────────────────────────────────────────────
// Trade
// ──────────────────────────────────────────────────────────────────────────────

// Trade is a single fill returned by the CLOB trade-history endpoint. The
// numeric fields arrive as strings on the wire and are parsed on demand so a
// malformed payload surfaces as an explicit error at the point of use.
type Trade struct {
	ID        string `json:"id"`
	TokenID   string `json:"asset_id"`
	Market    string `json:"market"` // condition id
	Side      Side   `json:"side"`
	Size      string `json:"size"`
	Price     string `json:"price"`
	Status    string `json:"status"`
	MatchTime string `json:"match_time"`
}

// SizeValue parses the trade size as a float.
func (t Trade) SizeValue() (float64, error) {
	v, err := strconv.ParseFloat(t.Size, 64)
	if err != nil {
		return 0, fmt.Errorf("trade %s: invalid size %q: %w", t.ID, t.Size, err)
	}
	return v, nil
}

// SignedSize returns the size with SELL trades negated.
func (t Trade) SignedSize() (float64, error) {
	v, err := t.SizeValue()
	if err != nil {
		return 0, err
	}
	if t.Side == SideSell {
		return -v, nil
	}
	return v, nil
}
