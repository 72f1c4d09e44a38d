package domain_test

import (
	"reflect"
	"testing"

	"github.com/evetabi/polyboard/internal/domain"
)

// ── Book summary extraction ───────────────────────────────────────────────────

func TestOrderBook_Summary_BestLevelsAndCents(t *testing.T) {
	book := &domain.OrderBook{
		Bids: []domain.PriceLevel{
			{Price: "0.10", Size: "50"},
			{Price: "0.256", Size: "100"},
			{Price: "0.20", Size: "75"},
		},
		Asks: []domain.PriceLevel{
			{Price: "0.40", Size: "30"},
			{Price: "0.30", Size: "10"},
			{Price: "0.35", Size: "20"},
		},
	}

	got := book.Summary(domain.SummaryDepth)

	wantBids := []domain.SummaryLevel{
		{Price: "25.6", Size: "100"},
		{Price: "20.0", Size: "75"},
		{Price: "10.0", Size: "50"},
	}
	wantAsks := []domain.SummaryLevel{
		{Price: "30.0", Size: "10"},
		{Price: "35.0", Size: "20"},
		{Price: "40.0", Size: "30"},
	}
	if !reflect.DeepEqual(got.Bids, wantBids) {
		t.Errorf("Summary().Bids = %v, want %v", got.Bids, wantBids)
	}
	if !reflect.DeepEqual(got.Asks, wantAsks) {
		t.Errorf("Summary().Asks = %v, want %v", got.Asks, wantAsks)
	}
}

func TestOrderBook_Summary_TruncatesToDepth(t *testing.T) {
	book := &domain.OrderBook{
		Bids: []domain.PriceLevel{
			{Price: "0.10", Size: "1"}, {Price: "0.11", Size: "2"},
			{Price: "0.12", Size: "3"}, {Price: "0.13", Size: "4"},
			{Price: "0.14", Size: "5"}, {Price: "0.15", Size: "6"},
			{Price: "0.16", Size: "7"},
		},
		Asks: []domain.PriceLevel{
			{Price: "0.50", Size: "1"},
		},
	}

	got := book.Summary(domain.SummaryDepth)
	if len(got.Bids) != domain.SummaryDepth {
		t.Errorf("len(Bids) = %d, want %d", len(got.Bids), domain.SummaryDepth)
	}
	// Best bid is the highest price.
	if got.Bids[0].Price != "16.0" {
		t.Errorf("best bid = %s, want 16.0", got.Bids[0].Price)
	}
	// Thin side is returned as-is, never padded.
	if len(got.Asks) != 1 {
		t.Errorf("len(Asks) = %d, want 1 (no padding)", len(got.Asks))
	}
}

func TestOrderBook_Summary_EmptySideDegrades(t *testing.T) {
	cases := []struct {
		name string
		book *domain.OrderBook
	}{
		{"nil book", nil},
		{"no bids", &domain.OrderBook{Asks: []domain.PriceLevel{{Price: "0.5", Size: "1"}}}},
		{"no asks", &domain.OrderBook{Bids: []domain.PriceLevel{{Price: "0.5", Size: "1"}}}},
		{"bad price", &domain.OrderBook{
			Bids: []domain.PriceLevel{{Price: "garbage", Size: "1"}},
			Asks: []domain.PriceLevel{{Price: "0.5", Size: "1"}},
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.book.Summary(domain.SummaryDepth)
			if got.Bids == nil || got.Asks == nil {
				t.Fatalf("empty summary sides must be non-nil, got %+v", got)
			}
			if len(got.Bids) != 0 || len(got.Asks) != 0 {
				t.Errorf("Summary() = %+v, want empty sides", got)
			}
		})
	}
}

// ── Trade sign math ───────────────────────────────────────────────────────────

func TestTrade_SignedSize(t *testing.T) {
	cases := []struct {
		side    domain.Side
		size    string
		want    float64
		wantErr bool
	}{
		{domain.SideBuy, "10.5", 10.5, false},
		{domain.SideSell, "4", -4, false},
		{domain.SideBuy, "abc", 0, true},
	}
	for _, tc := range cases {
		got, err := domain.Trade{Side: tc.side, Size: tc.size}.SignedSize()
		if tc.wantErr {
			if err == nil {
				t.Errorf("SignedSize(%s %q) expected error", tc.side, tc.size)
			}
			continue
		}
		if err != nil {
			t.Errorf("SignedSize(%s %q) unexpected error: %v", tc.side, tc.size, err)
			continue
		}
		if got != tc.want {
			t.Errorf("SignedSize(%s %q) = %v, want %v", tc.side, tc.size, got, tc.want)
		}
	}
}

func TestSide_IsValid(t *testing.T) {
	if !domain.SideBuy.IsValid() || !domain.SideSell.IsValid() {
		t.Error("BUY and SELL should be valid sides")
	}
	if domain.Side("HOLD").IsValid() {
		t.Error("HOLD should not be a valid side")
	}
}

// ── Position folding ──────────────────────────────────────────────────────────

func TestPosition_ApplyAndIsFlat(t *testing.T) {
	p := &domain.Position{TokenID: "tok"}

	for _, tr := range []domain.Trade{
		{TokenID: "tok", Side: domain.SideBuy, Size: "10"},
		{TokenID: "tok", Side: domain.SideSell, Size: "4"},
		{TokenID: "tok", Side: domain.SideSell, Size: "6"},
	} {
		if err := p.Apply(tr); err != nil {
			t.Fatalf("Apply(%+v) error: %v", tr, err)
		}
	}

	if !p.IsFlat() {
		t.Errorf("10 - 4 - 6 should be flat, got size %v", p.Size)
	}
	// Flat positions keep their trade history.
	if len(p.Trades) != 3 {
		t.Errorf("len(Trades) = %d, want 3", len(p.Trades))
	}
}

func TestPosition_ApplyBadSizeAborts(t *testing.T) {
	p := &domain.Position{TokenID: "tok"}
	if err := p.Apply(domain.Trade{Size: "not-a-number"}); err == nil {
		t.Error("Apply with malformed size should error")
	}
	if p.Size != 0 || len(p.Trades) != 0 {
		t.Errorf("failed Apply must not mutate the position: %+v", p)
	}
}
