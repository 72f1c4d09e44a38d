// Package positions replays CLOB trade history into net positions per outcome
// token and renders the active-positions report.
package positions

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/evetabi/polyboard/internal/clob"
	"github.com/evetabi/polyboard/internal/domain"
)

// MarketLookup resolves a market's display metadata. Satisfied by *clob.Client.
type MarketLookup interface {
	Market(ctx context.Context, id string) (clob.Market, error)
}

// Aggregate folds a trade sequence into a mapping from token id to net
// position. Trades are processed in input order; the first trade seen for a
// token id triggers one market-name lookup (not cached across runs). BUY sizes
// add, SELL sizes subtract, and every trade is kept on its position's list in
// input order. A malformed trade size aborts the whole pass.
//
// Positions that net out to zero stay in the returned map; use Active to
// filter them for reporting.
func Aggregate(ctx context.Context, trades []domain.Trade, lookup MarketLookup) (map[string]*domain.Position, error) {
	result := make(map[string]*domain.Position)

	for _, trade := range trades {
		pos, ok := result[trade.TokenID]
		if !ok {
			market, err := lookup.Market(ctx, trade.TokenID)
			if err != nil {
				return nil, fmt.Errorf("positions.Aggregate: lookup market for token %s: %w", trade.TokenID, err)
			}
			pos = &domain.Position{
				TokenID: trade.TokenID,
				Name:    market.DisplayName(),
			}
			result[trade.TokenID] = pos
		}
		if err := pos.Apply(trade); err != nil {
			return nil, fmt.Errorf("positions.Aggregate: %w", err)
		}
	}

	return result, nil
}

// Active returns the positions whose net size is not exactly zero, ordered by
// token id so reports are deterministic.
func Active(all map[string]*domain.Position) []*domain.Position {
	out := make([]*domain.Position, 0, len(all))
	for _, pos := range all {
		if !pos.IsFlat() {
			out = append(out, pos)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TokenID < out[j].TokenID })
	return out
}

// WriteReport prints the active positions in the stdout report format.
func WriteReport(w io.Writer, all map[string]*domain.Position) {
	rule := "--------------------------------------------------"

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Your Current Positions:")
	fmt.Fprintln(w, rule)
	for _, pos := range Active(all) {
		fmt.Fprintf(w, "Market: %s\n", pos.Name)
		fmt.Fprintf(w, "Position Size: %s\n", strconv.FormatFloat(pos.Size, 'g', -1, 64))
		fmt.Fprintf(w, "Number of Trades: %d\n", len(pos.Trades))
		fmt.Fprintln(w, rule)
	}
}
