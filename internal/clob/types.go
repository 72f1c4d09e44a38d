package clob

import (
	"time"

	"github.com/evetabi/polyboard/internal/domain"
)

// ──────────────────────────────────────────────────────────────────────────────
// Wire types
// ──────────────────────────────────────────────────────────────────────────────

// Creds is the L2 API credential triple issued by the CLOB.
type Creds struct {
	APIKey        string `json:"apiKey"`
	APISecret     string `json:"secret"`
	APIPassphrase string `json:"passphrase"`
}

// Market is the CLOB view of a market, keyed by condition id.
type Market struct {
	ConditionID string        `json:"condition_id"`
	Question    string        `json:"question"`
	Description string        `json:"description"`
	EndDateISO  string        `json:"end_date_iso"`
	Active      bool          `json:"active"`
	Closed      bool          `json:"closed"`
	Tokens      []MarketToken `json:"tokens"`
}

// MarketToken is one outcome token inside a CLOB market.
type MarketToken struct {
	TokenID string  `json:"token_id"`
	Outcome string  `json:"outcome"`
	Price   float64 `json:"price"`
}

// DisplayName returns a human-readable label for position reports.
// Falls back to "Unknown Market" when the payload carries no question.
func (m Market) DisplayName() string {
	if m.Question != "" {
		return m.Question
	}
	return "Unknown Market"
}

// TradeFilter narrows a trade-history query. Zero values mean "no filter".
type TradeFilter struct {
	// After keeps only trades matched at or after this time.
	After time.Time
	// Market filters by condition id.
	Market string
	// AssetID filters by outcome token id.
	AssetID string
}

// BalanceAllowance is the collateral balance/allowance response.
type BalanceAllowance struct {
	Balance   string            `json:"balance"`
	Allowance map[string]string `json:"allowances"`
}

// Asset types accepted by the balance-allowance endpoint.
const (
	AssetTypeCollateral  = "COLLATERAL"
	AssetTypeConditional = "CONDITIONAL"
)

// OrderArgs are the caller-supplied parameters for a limit order.
type OrderArgs struct {
	TokenID    string
	Price      float64
	Size       float64
	Side       domain.Side
	FeeRateBps int
	Nonce      int64
	Expiration int64
}

// priceResponse is the /price payload.
type priceResponse struct {
	Price string `json:"price"`
}

// tradesPage is one page of the /data/trades cursor pagination.
type tradesPage struct {
	Data       []domain.Trade `json:"data"`
	NextCursor string         `json:"next_cursor"`
	Limit      int            `json:"limit"`
	Count      int            `json:"count"`
}
