package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ──────────────────────────────────────────────────────────────────────────────
// BotMarket — tracked-market row in the bot table
// ──────────────────────────────────────────────────────────────────────────────

// BotMarket mirrors one row of the externally-owned bot table: a market the
// trading bot watches, keyed by condition id, with its two outcome tokens and
// the bot's trading thresholds. polyboard only upserts these rows; the
// threshold columns are managed elsewhere and initialised to zero on insert.
type BotMarket struct {
	MarketID string          `json:"market_id" db:"market_id"` // condition id
	YesID    string          `json:"yes_id"    db:"yes_id"`
	NoID     string          `json:"no_id"     db:"no_id"`
	Name     string          `json:"market_name" db:"market_name"`
	BuyYes   decimal.Decimal `json:"buy_yes"   db:"buy_yes"`
	BuyNo    decimal.Decimal `json:"buy_no"    db:"buy_no"`
	MaxYes   decimal.Decimal `json:"max_yes"   db:"max_yes"`
	MaxNo    decimal.Decimal `json:"max_no"    db:"max_no"`
	Updated  *time.Time      `json:"updated"   db:"updated"`
}
