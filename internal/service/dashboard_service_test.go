package service_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/evetabi/polyboard/internal/clob"
	"github.com/evetabi/polyboard/internal/config"
	"github.com/evetabi/polyboard/internal/domain"
	"github.com/evetabi/polyboard/internal/gamma"
	"github.com/evetabi/polyboard/internal/service"
)

// ── Fakes ─────────────────────────────────────────────────────────────────────

// fakeClob is a canned clob.API. Error fields override the happy-path data.
type fakeClob struct {
	trades     []domain.Trade
	tradesErr  error
	books      map[string]*domain.OrderBook
	bookErr    error
	prices     map[string]string
	priceErr   error
	balance    clob.BalanceAllowance
	balanceErr error
	orderResp  map[string]any
	orderErr   error

	placedOrders []clob.OrderArgs
}

func (f *fakeClob) Trades(_ context.Context, _ clob.TradeFilter) ([]domain.Trade, error) {
	return f.trades, f.tradesErr
}

func (f *fakeClob) Market(_ context.Context, _ string) (clob.Market, error) {
	return clob.Market{}, nil
}

func (f *fakeClob) OrderBook(_ context.Context, tokenID string) (*domain.OrderBook, error) {
	if f.bookErr != nil {
		return nil, f.bookErr
	}
	return f.books[tokenID], nil
}

func (f *fakeClob) Price(_ context.Context, tokenID string, _ domain.Side) (string, error) {
	if f.priceErr != nil {
		return "", f.priceErr
	}
	return f.prices[tokenID], nil
}

func (f *fakeClob) BalanceAllowance(_ context.Context, _ string) (clob.BalanceAllowance, error) {
	return f.balance, f.balanceErr
}

func (f *fakeClob) PlaceOrder(_ context.Context, args clob.OrderArgs) (map[string]any, error) {
	f.placedOrders = append(f.placedOrders, args)
	return f.orderResp, f.orderErr
}

type fakeEvents struct {
	event *gamma.Event
	err   error
}

func (f *fakeEvents) EventBySlug(_ context.Context, _ string) (*gamma.Event, error) {
	return f.event, f.err
}

func testEvent() *gamma.Event {
	return &gamma.Event{
		Title:       "Test Event",
		Description: "A test event",
		Markets: []gamma.Market{{
			Question:        "Will X happen?",
			ConditionID:     "0xabc",
			ClobTokenIDs:    `["yes-tok","no-tok"]`,
			AcceptingOrders: true,
		}},
	}
}

func newTestService(clobAPI clob.API, events service.EventSource) *service.DashboardService {
	cfg := &config.Config{Gamma: config.GammaConfig{EventSlug: "test-event"}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return service.NewDashboardService(clobAPI, events, nil, cfg, logger)
}

// ── BuildPage ─────────────────────────────────────────────────────────────────

func TestBuildPage_HappyPath(t *testing.T) {
	fc := &fakeClob{
		balance: clob.BalanceAllowance{Balance: "150.25"},
		trades: []domain.Trade{
			{TokenID: "yes-tok", Side: domain.SideBuy, Size: "10"},
			{TokenID: "yes-tok", Side: domain.SideSell, Size: "4"},
			{TokenID: "no-tok", Side: domain.SideBuy, Size: "7"},
			{TokenID: "other-tok", Side: domain.SideBuy, Size: "99"},
		},
		prices: map[string]string{"yes-tok": "0.62", "no-tok": "0.38"},
		books: map[string]*domain.OrderBook{
			"yes-tok": {
				Bids: []domain.PriceLevel{{Price: "0.61", Size: "100"}},
				Asks: []domain.PriceLevel{{Price: "0.63", Size: "50"}},
			},
			"no-tok": {
				Bids: []domain.PriceLevel{{Price: "0.37", Size: "20"}},
				Asks: []domain.PriceLevel{{Price: "0.39", Size: "30"}},
			},
		},
	}
	svc := newTestService(fc, &fakeEvents{event: testEvent()})

	page := svc.BuildPage(context.Background())

	if page.Error != "" {
		t.Fatalf("unexpected page error: %s", page.Error)
	}
	if page.EventTitle != "Test Event" {
		t.Errorf("EventTitle = %q, want Test Event", page.EventTitle)
	}
	if page.Collateral != "150.25" {
		t.Errorf("Collateral = %q, want 150.25", page.Collateral)
	}
	if len(page.Markets) != 1 {
		t.Fatalf("Markets = %d, want 1", len(page.Markets))
	}

	m := page.Markets[0]
	if m.YesPosition != 6 || m.NoPosition != 7 {
		t.Errorf("positions = (%v, %v), want (6, 7)", m.YesPosition, m.NoPosition)
	}
	if m.YesPrice != "0.62" || m.NoPrice != "0.38" {
		t.Errorf("prices = (%s, %s), want (0.62, 0.38)", m.YesPrice, m.NoPrice)
	}
	if len(m.YesOrderBook.Bids) != 1 || m.YesOrderBook.Bids[0].Price != "61.0" {
		t.Errorf("yes book bids = %+v, want one level at 61.0", m.YesOrderBook.Bids)
	}
}

func TestBuildPage_GammaFailureBecomesPageError(t *testing.T) {
	fc := &fakeClob{balance: clob.BalanceAllowance{Balance: "10"}}
	svc := newTestService(fc, &fakeEvents{err: errors.New("gateway timeout")})

	page := svc.BuildPage(context.Background())
	if page.Error == "" {
		t.Fatal("expected page error when the event fetch fails")
	}
	// Balance fetched before the event still renders.
	if page.Collateral != "10" {
		t.Errorf("Collateral = %q, want 10", page.Collateral)
	}
}

func TestBuildPage_NoMarkets(t *testing.T) {
	fc := &fakeClob{}
	svc := newTestService(fc, &fakeEvents{event: &gamma.Event{Title: "Empty"}})

	page := svc.BuildPage(context.Background())
	if page.Error != domain.ErrNoMarketsForEvent.Error() {
		t.Errorf("page.Error = %q, want no-markets message", page.Error)
	}
}

func TestBuildPage_CollateralFailureDegradesToZero(t *testing.T) {
	fc := &fakeClob{balanceErr: errors.New("auth failed")}
	svc := newTestService(fc, &fakeEvents{event: testEvent()})

	page := svc.BuildPage(context.Background())
	if page.Collateral != "0" {
		t.Errorf("Collateral = %q, want 0 on balance failure", page.Collateral)
	}
}

func TestBuildPage_PriceFailureShowsSentinel(t *testing.T) {
	fc := &fakeClob{priceErr: errors.New("no book")}
	svc := newTestService(fc, &fakeEvents{event: testEvent()})

	page := svc.BuildPage(context.Background())
	if len(page.Markets) != 1 {
		t.Fatalf("Markets = %d, want 1", len(page.Markets))
	}
	if page.Markets[0].YesPrice != service.NoOrderBook {
		t.Errorf("YesPrice = %q, want %q", page.Markets[0].YesPrice, service.NoOrderBook)
	}
}

func TestBuildPage_BookFailureDegradesToEmptySummary(t *testing.T) {
	fc := &fakeClob{bookErr: errors.New("timeout")}
	svc := newTestService(fc, &fakeEvents{event: testEvent()})

	page := svc.BuildPage(context.Background())
	book := page.Markets[0].YesOrderBook
	if book.Bids == nil || book.Asks == nil || len(book.Bids) != 0 {
		t.Errorf("book on failure = %+v, want empty non-nil sides", book)
	}
}

func TestBuildPage_TradeFailureDegradesPositionsToFlat(t *testing.T) {
	fc := &fakeClob{tradesErr: errors.New("rate limited")}
	svc := newTestService(fc, &fakeEvents{event: testEvent()})

	page := svc.BuildPage(context.Background())
	m := page.Markets[0]
	if m.YesPosition != 0 || m.NoPosition != 0 {
		t.Errorf("positions = (%v, %v), want flat on history failure", m.YesPosition, m.NoPosition)
	}
}

func TestBuildPage_MalformedTokenIDsSkipsMarket(t *testing.T) {
	event := testEvent()
	event.Markets = append(event.Markets, gamma.Market{
		Question:     "Broken market",
		ConditionID:  "0xbad",
		ClobTokenIDs: "not-json",
	})
	fc := &fakeClob{}
	svc := newTestService(fc, &fakeEvents{event: event})

	page := svc.BuildPage(context.Background())
	if len(page.Markets) != 1 {
		t.Fatalf("Markets = %d, want 1 (broken market skipped)", len(page.Markets))
	}
	if page.Markets[0].ConditionID != "0xabc" {
		t.Errorf("surviving market = %s, want 0xabc", page.Markets[0].ConditionID)
	}
}

// ── PlaceOrder ────────────────────────────────────────────────────────────────

func TestPlaceOrder_PassesThrough(t *testing.T) {
	fc := &fakeClob{orderResp: map[string]any{"orderID": "ord-1", "success": true}}
	svc := newTestService(fc, &fakeEvents{event: testEvent()})

	resp, err := svc.PlaceOrder(context.Background(), 0.62, 10, domain.SideBuy, "yes-tok")
	if err != nil {
		t.Fatalf("PlaceOrder() error: %v", err)
	}
	if resp["orderID"] != "ord-1" {
		t.Errorf("response = %v, want pass-through of CLOB response", resp)
	}
	if len(fc.placedOrders) != 1 || fc.placedOrders[0].TokenID != "yes-tok" {
		t.Errorf("placed orders = %+v, want one for yes-tok", fc.placedOrders)
	}
}

func TestPlaceOrder_InvalidSide(t *testing.T) {
	fc := &fakeClob{}
	svc := newTestService(fc, &fakeEvents{event: testEvent()})

	if _, err := svc.PlaceOrder(context.Background(), 0.5, 1, "HOLD", "tok"); err == nil {
		t.Fatal("PlaceOrder() should reject an invalid side")
	}
	if len(fc.placedOrders) != 0 {
		t.Errorf("no order should reach the CLOB on an invalid side")
	}
}

func TestPlaceOrder_ClobFailure(t *testing.T) {
	fc := &fakeClob{orderErr: errors.New("not enough balance / allowance")}
	svc := newTestService(fc, &fakeEvents{event: testEvent()})

	if _, err := svc.PlaceOrder(context.Background(), 0.5, 1, domain.SideSell, "tok"); err == nil {
		t.Fatal("PlaceOrder() should surface CLOB rejection")
	}
}
