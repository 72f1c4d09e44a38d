// Package service holds the orchestration layer between the web handlers and
// the upstream CLOB, Gamma, and database collaborators.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/evetabi/polyboard/internal/clob"
	"github.com/evetabi/polyboard/internal/config"
	"github.com/evetabi/polyboard/internal/domain"
	"github.com/evetabi/polyboard/internal/gamma"
	"github.com/evetabi/polyboard/internal/repository"
)

// NoOrderBook is the price sentinel shown when a token has no live quote.
const NoOrderBook = "No orderbook"

// EventSource is the slice of the Gamma client the dashboard needs.
type EventSource interface {
	EventBySlug(ctx context.Context, slug string) (*gamma.Event, error)
}

// ──────────────────────────────────────────────────────────────────────────────
// View models
// ──────────────────────────────────────────────────────────────────────────────

// MarketView is one market row rendered on the dashboard.
type MarketView struct {
	Question        string             `json:"question"`
	ConditionID     string             `json:"condition_id"`
	YesToken        string             `json:"yes_token"`
	NoToken         string             `json:"no_token"`
	YesPrice        string             `json:"yes_price"`
	NoPrice         string             `json:"no_price"`
	Volume          string             `json:"volume"`
	AcceptingOrders bool               `json:"accepting_orders"`
	YesOrderBook    domain.BookSummary `json:"yes_order_book"`
	NoOrderBook     domain.BookSummary `json:"no_order_book"`
	YesPosition     float64            `json:"yes_position"`
	NoPosition      float64            `json:"no_position"`
}

// Page is everything the index template renders. A failed build carries the
// failure in Error; the page itself always renders.
type Page struct {
	EventTitle       string       `json:"event_title"`
	EventDescription string       `json:"event_description"`
	Collateral       string       `json:"collateral"`
	Markets          []MarketView `json:"markets"`
	Error            string       `json:"error,omitempty"`
}

// ──────────────────────────────────────────────────────────────────────────────
// DashboardService
// ──────────────────────────────────────────────────────────────────────────────

// DashboardService assembles the dashboard page for the single configured
// event and places manual orders.
type DashboardService struct {
	clob   clob.API
	events EventSource
	bots   *repository.BotRepository // nil when no database is configured
	cfg    *config.Config
	logger *slog.Logger
}

// NewDashboardService wires the dashboard orchestration. bots may be nil.
func NewDashboardService(clobAPI clob.API, events EventSource, bots *repository.BotRepository, cfg *config.Config, logger *slog.Logger) *DashboardService {
	return &DashboardService{
		clob:   clobAPI,
		events: events,
		bots:   bots,
		cfg:    cfg,
		logger: logger,
	}
}

// BuildPage fetches everything the dashboard shows. It never fails outright:
// a Gamma or event-level problem comes back as Page.Error, and any per-market
// fetch failure degrades that market's fields to sentinels so one illiquid or
// broken market cannot blank the rest.
func (s *DashboardService) BuildPage(ctx context.Context) Page {
	page := Page{Collateral: "0"}

	if collateral, err := s.clob.BalanceAllowance(ctx, clob.AssetTypeCollateral); err != nil {
		s.logger.Error("collateral fetch failed", "err", err)
	} else {
		page.Collateral = collateral.Balance
	}

	event, err := s.events.EventBySlug(ctx, s.cfg.Gamma.EventSlug)
	if err != nil {
		s.logger.Error("event fetch failed", "slug", s.cfg.Gamma.EventSlug, "err", err)
		page.Error = fmt.Sprintf("API Error: %v", err)
		return page
	}
	page.EventTitle = event.Title
	page.EventDescription = event.Description

	if len(event.Markets) == 0 {
		page.Error = domain.ErrNoMarketsForEvent.Error()
		return page
	}

	for _, market := range event.Markets {
		view, err := s.buildMarketView(ctx, market)
		if err != nil {
			// Only unparsable metadata lands here; skip the market but keep
			// rendering the rest.
			s.logger.Error("skipping market", "condition_id", market.ConditionID, "err", err)
			continue
		}
		page.Markets = append(page.Markets, view)
	}

	s.syncBotTable(ctx, page.Markets)

	return page
}

// buildMarketView assembles one market row. Price and book failures degrade to
// sentinels; only a malformed clobTokenIds field is a real error.
func (s *DashboardService) buildMarketView(ctx context.Context, market gamma.Market) (MarketView, error) {
	yesToken, noToken, err := market.TokenIDs()
	if err != nil {
		return MarketView{}, err
	}

	view := MarketView{
		Question:        market.Question,
		ConditionID:     market.ConditionID,
		YesToken:        yesToken,
		NoToken:         noToken,
		Volume:          market.Volume.String(),
		AcceptingOrders: market.AcceptingOrders,
	}

	view.YesPosition, view.NoPosition = s.netPositions(ctx, yesToken, noToken)
	view.YesPrice = s.sellPrice(ctx, yesToken)
	view.NoPrice = s.sellPrice(ctx, noToken)
	view.YesOrderBook = s.bookSummary(ctx, yesToken)
	view.NoOrderBook = s.bookSummary(ctx, noToken)

	return view, nil
}

// netPositions replays the full trade history restricted to the market's two
// tokens. Any failure degrades to flat positions.
func (s *DashboardService) netPositions(ctx context.Context, yesToken, noToken string) (yes, no float64) {
	trades, err := s.clob.Trades(ctx, clob.TradeFilter{})
	if err != nil {
		s.logger.Error("trade history fetch failed", "err", err)
		return 0, 0
	}

	yesPos := domain.Position{TokenID: yesToken}
	noPos := domain.Position{TokenID: noToken}
	for _, trade := range trades {
		var target *domain.Position
		switch trade.TokenID {
		case yesToken:
			target = &yesPos
		case noToken:
			target = &noPos
		default:
			continue
		}
		if err := target.Apply(trade); err != nil {
			s.logger.Error("bad trade in history", "err", err)
			return 0, 0
		}
	}
	return yesPos.Size, noPos.Size
}

// sellPrice fetches the SELL quote for a token, substituting the sentinel on
// any failure.
func (s *DashboardService) sellPrice(ctx context.Context, tokenID string) string {
	price, err := s.clob.Price(ctx, tokenID, domain.SideSell)
	if err != nil {
		s.logger.Warn("price fetch failed", "token_id", tokenID, "err", err)
		return NoOrderBook
	}
	if price == "" {
		return "N/A"
	}
	return price
}

// bookSummary fetches and summarizes a token's order book, degrading to an
// empty summary on any failure.
func (s *DashboardService) bookSummary(ctx context.Context, tokenID string) domain.BookSummary {
	book, err := s.clob.OrderBook(ctx, tokenID)
	if err != nil {
		s.logger.Warn("order book fetch failed", "token_id", tokenID, "err", err)
		return domain.EmptyBookSummary()
	}
	return book.Summary(domain.SummaryDepth)
}

// SyncMarkets re-fetches the tracked event and upserts its markets into the
// bot table without rendering anything. Used by the background refresher; a
// no-op when no database is configured.
func (s *DashboardService) SyncMarkets(ctx context.Context) error {
	if s.bots == nil {
		return nil
	}
	event, err := s.events.EventBySlug(ctx, s.cfg.Gamma.EventSlug)
	if err != nil {
		return fmt.Errorf("service.SyncMarkets: %w", err)
	}

	rows := make([]domain.BotMarket, 0, len(event.Markets))
	for _, market := range event.Markets {
		yesToken, noToken, err := market.TokenIDs()
		if err != nil {
			s.logger.Error("skipping market in sync", "condition_id", market.ConditionID, "err", err)
			continue
		}
		rows = append(rows, domain.BotMarket{
			MarketID: market.ConditionID,
			YesID:    yesToken,
			NoID:     noToken,
			Name:     market.Question,
		})
	}
	if len(rows) == 0 {
		return domain.ErrNoMarketsForEvent
	}
	if err := s.bots.Upsert(ctx, rows); err != nil {
		return fmt.Errorf("service.SyncMarkets: %w", err)
	}
	s.logger.Info("bot table refreshed", "markets", len(rows))
	return nil
}

// syncBotTable upserts the rendered markets into the bot table. Errors are
// logged and never fail the render.
func (s *DashboardService) syncBotTable(ctx context.Context, markets []MarketView) {
	if s.bots == nil || len(markets) == 0 {
		return
	}
	rows := make([]domain.BotMarket, 0, len(markets))
	for _, m := range markets {
		rows = append(rows, domain.BotMarket{
			MarketID: m.ConditionID,
			YesID:    m.YesToken,
			NoID:     m.NoToken,
			Name:     m.Question,
		})
	}
	if err := s.bots.Upsert(ctx, rows); err != nil {
		s.logger.Error("bot table upsert failed", "err", err)
		return
	}
	s.logger.Info("bot table updated", "markets", len(rows))
}

// ──────────────────────────────────────────────────────────────────────────────
// Order placement
// ──────────────────────────────────────────────────────────────────────────────

// PlaceOrder submits one signed limit order through the CLOB client. No retry
// and no idempotency beyond what the exchange provides.
func (s *DashboardService) PlaceOrder(ctx context.Context, price, size float64, side domain.Side, tokenID string) (map[string]any, error) {
	if !side.IsValid() {
		return nil, fmt.Errorf("service.PlaceOrder: invalid side %q", side)
	}
	resp, err := s.clob.PlaceOrder(ctx, clob.OrderArgs{
		TokenID: tokenID,
		Price:   price,
		Size:    size,
		Side:    side,
	})
	if err != nil {
		return nil, fmt.Errorf("service.PlaceOrder: %w", err)
	}
	s.logger.Info("order placed", "token_id", tokenID, "side", side, "price", price, "size", size)
	return resp, nil
}
