package domain

import (
	"sort"

	"github.com/shopspring/decimal"
)

// ──────────────────────────────────────────────────────────────────────────────
// Order book
// ──────────────────────────────────────────────────────────────────────────────

// SummaryDepth is how many levels per side a book summary keeps.
const SummaryDepth = 5

// PriceLevel is one resting-liquidity entry in an order book. Prices and sizes
// are the raw wire strings; price is in [0,1] probability units.
type PriceLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// OrderBook is a raw book snapshot for one outcome token.
type OrderBook struct {
	Market  string       `json:"market"`
	AssetID string       `json:"asset_id"`
	Bids    []PriceLevel `json:"bids"`
	Asks    []PriceLevel `json:"asks"`
}

// SummaryLevel is a display-ready level: price rescaled to cents with one
// decimal place, size left untouched.
type SummaryLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// BookSummary holds the best levels of each side for rendering.
type BookSummary struct {
	Bids []SummaryLevel `json:"bids"`
	Asks []SummaryLevel `json:"asks"`
}

// EmptyBookSummary returns a summary with non-nil empty sides, the sentinel
// used whenever a book is missing or one-sided.
func EmptyBookSummary() BookSummary {
	return BookSummary{Bids: []SummaryLevel{}, Asks: []SummaryLevel{}}
}

// Summary extracts up to depth best bid levels (highest price first) and ask
// levels (lowest price first), rescaling prices from [0,1] into cents
// ("0.256" → "25.6"). Illiquid markets are common, so a nil book, an empty
// side, or an unparsable level degrades to an empty summary instead of
// failing.
func (b *OrderBook) Summary(depth int) BookSummary {
	if b == nil || len(b.Bids) == 0 || len(b.Asks) == 0 {
		return EmptyBookSummary()
	}

	bids, ok := sortedLevels(b.Bids, true)
	if !ok {
		return EmptyBookSummary()
	}
	asks, ok := sortedLevels(b.Asks, false)
	if !ok {
		return EmptyBookSummary()
	}

	return BookSummary{
		Bids: topLevels(bids, depth),
		Asks: topLevels(asks, depth),
	}
}

// parsedLevel pairs a level with its decimal price for sorting.
type parsedLevel struct {
	price decimal.Decimal
	size  string
}

// sortedLevels parses and orders one side of the book. desc=true puts the
// highest price first (bids); desc=false the lowest (asks).
func sortedLevels(levels []PriceLevel, desc bool) ([]parsedLevel, bool) {
	parsed := make([]parsedLevel, 0, len(levels))
	for _, lvl := range levels {
		price, err := decimal.NewFromString(lvl.Price)
		if err != nil {
			return nil, false
		}
		parsed = append(parsed, parsedLevel{price: price, size: lvl.Size})
	}
	sort.SliceStable(parsed, func(i, j int) bool {
		if desc {
			return parsed[i].price.GreaterThan(parsed[j].price)
		}
		return parsed[i].price.LessThan(parsed[j].price)
	})
	return parsed, true
}

var centsFactor = decimal.NewFromInt(100)

// topLevels takes the first depth levels and formats prices as cents.
// Fewer than depth levels are returned as-is, never padded.
func topLevels(levels []parsedLevel, depth int) []SummaryLevel {
	if len(levels) > depth {
		levels = levels[:depth]
	}
	out := make([]SummaryLevel, 0, len(levels))
	for _, lvl := range levels {
		out = append(out, SummaryLevel{
			Price: lvl.price.Mul(centsFactor).StringFixed(1),
			Size:  lvl.size,
		})
	}
	return out
}
