// Package clob implements the Polymarket CLOB trading-API client: credential
// bootstrap, trade history, market lookup, order books, price quotes, balance
// queries, and EIP-712 signed order placement.
package clob

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/evetabi/polyboard/internal/config"
	"github.com/evetabi/polyboard/internal/domain"
)

// ──────────────────────────────────────────────────────────────────────────────
// Capability interface
// ──────────────────────────────────────────────────────────────────────────────

// API is the capability set the rest of the repository consumes. Services take
// this interface so tests can substitute a fake instead of the live CLOB.
type API interface {
	Trades(ctx context.Context, filter TradeFilter) ([]domain.Trade, error)
	Market(ctx context.Context, conditionID string) (Market, error)
	OrderBook(ctx context.Context, tokenID string) (*domain.OrderBook, error)
	Price(ctx context.Context, tokenID string, side domain.Side) (string, error)
	BalanceAllowance(ctx context.Context, assetType string) (BalanceAllowance, error)
	PlaceOrder(ctx context.Context, args OrderArgs) (map[string]any, error)
}

// Pagination cursors used by the CLOB data endpoints.
const (
	cursorStart = "MA=="
	cursorEnd   = "LTE="
)

// ──────────────────────────────────────────────────────────────────────────────
// Client
// ──────────────────────────────────────────────────────────────────────────────

// Client talks to the CLOB REST API. Construct once at process start and share;
// it is read-only after EnsureCreds.
type Client struct {
	host       string
	httpClient *http.Client
	chainID    int64
	privateKey *ecdsa.PrivateKey
	address    common.Address
	creds      *Creds
}

var _ API = (*Client)(nil)

// New builds a Client from configuration. The private key is required; the L2
// credential triple is optional and can be bootstrapped with EnsureCreds.
func New(cfg *config.ClobConfig) (*Client, error) {
	if cfg.PrivateKey == "" {
		return nil, domain.ErrMissingPrivateKey
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("clob.New: parse private key: %w", err)
	}

	c := &Client{
		host:       strings.TrimRight(cfg.Host, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		chainID:    cfg.ChainID,
		privateKey: key,
		address:    crypto.PubkeyToAddress(key.PublicKey),
	}
	if cfg.HasCreds() {
		c.creds = &Creds{
			APIKey:        cfg.APIKey,
			APISecret:     cfg.APISecret,
			APIPassphrase: cfg.APIPassphrase,
		}
	}
	return c, nil
}

// Address returns the signer address as hex.
func (c *Client) Address() string {
	return c.address.Hex()
}

// HasCreds reports whether the client holds an L2 credential triple.
func (c *Client) HasCreds() bool {
	return c.creds != nil
}

// SetCreds installs an L2 credential triple.
func (c *Client) SetCreds(creds Creds) {
	c.creds = &creds
}

// ──────────────────────────────────────────────────────────────────────────────
// Credential bootstrap
// ──────────────────────────────────────────────────────────────────────────────

// EnsureCreds makes sure the client holds API credentials, creating or deriving
// them through L1 auth when needed. Returns the creds and true when they were
// newly obtained (so callers can print them for the .env file).
func (c *Client) EnsureCreds(ctx context.Context) (Creds, bool, error) {
	if c.creds != nil {
		return *c.creds, false, nil
	}
	creds, err := c.createAPIKey(ctx)
	if err != nil {
		creds, err = c.deriveAPIKey(ctx)
	}
	if err != nil {
		return Creds{}, false, fmt.Errorf("clob.EnsureCreds: %w", err)
	}
	c.creds = &creds
	return creds, true, nil
}

// createAPIKey requests a new API key using L1 auth.
func (c *Client) createAPIKey(ctx context.Context) (Creds, error) {
	headers, err := c.level1Headers(0)
	if err != nil {
		return Creds{}, err
	}
	resp, err := c.doRequest(ctx, http.MethodPost, "/auth/api-key", nil, headers)
	if err != nil {
		return Creds{}, err
	}
	var creds Creds
	if err := json.Unmarshal(resp, &creds); err != nil {
		return Creds{}, fmt.Errorf("decode api-key response: %w", err)
	}
	return creds, nil
}

// deriveAPIKey re-derives existing API credentials using L1 auth.
func (c *Client) deriveAPIKey(ctx context.Context) (Creds, error) {
	headers, err := c.level1Headers(0)
	if err != nil {
		return Creds{}, err
	}
	resp, err := c.doRequest(ctx, http.MethodGet, "/auth/derive-api-key", nil, headers)
	if err != nil {
		return Creds{}, err
	}
	var creds Creds
	if err := json.Unmarshal(resp, &creds); err != nil {
		return Creds{}, fmt.Errorf("decode derive-api-key response: %w", err)
	}
	return creds, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Data endpoints
// ──────────────────────────────────────────────────────────────────────────────

// Trades fetches the authenticated account's trade history, following the
// cursor pagination until the end marker.
func (c *Client) Trades(ctx context.Context, filter TradeFilter) ([]domain.Trade, error) {
	if c.creds == nil {
		return nil, domain.ErrMissingCredentials
	}
	headers, err := c.level2Headers(http.MethodGet, "/data/trades", nil)
	if err != nil {
		return nil, fmt.Errorf("clob.Trades: %w", err)
	}

	query := url.Values{}
	if !filter.After.IsZero() {
		query.Set("after", strconv.FormatInt(filter.After.Unix(), 10))
	}
	if filter.Market != "" {
		query.Set("market", filter.Market)
	}
	if filter.AssetID != "" {
		query.Set("asset_id", filter.AssetID)
	}

	var all []domain.Trade
	cursor := cursorStart
	for cursor != "" && cursor != cursorEnd {
		query.Set("next_cursor", cursor)
		resp, err := c.doRequest(ctx, http.MethodGet, "/data/trades?"+query.Encode(), nil, headers)
		if err != nil {
			return nil, fmt.Errorf("clob.Trades: %w", err)
		}
		var page tradesPage
		if err := json.Unmarshal(resp, &page); err != nil {
			return nil, fmt.Errorf("clob.Trades: decode page: %w", err)
		}
		all = append(all, page.Data...)
		if page.NextCursor == cursor {
			break
		}
		cursor = page.NextCursor
	}
	return all, nil
}

// Market fetches one market by condition id.
func (c *Client) Market(ctx context.Context, conditionID string) (Market, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/markets/"+url.PathEscape(conditionID), nil, nil)
	if err != nil {
		return Market{}, fmt.Errorf("clob.Market: %w", err)
	}
	var m Market
	if err := json.Unmarshal(resp, &m); err != nil {
		return Market{}, fmt.Errorf("clob.Market: decode: %w", err)
	}
	return m, nil
}

// OrderBook fetches the raw book snapshot for a token.
func (c *Client) OrderBook(ctx context.Context, tokenID string) (*domain.OrderBook, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/book?token_id="+url.QueryEscape(tokenID), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("clob.OrderBook: %w", err)
	}
	var book domain.OrderBook
	if err := json.Unmarshal(resp, &book); err != nil {
		return nil, fmt.Errorf("clob.OrderBook: decode: %w", err)
	}
	return &book, nil
}

// Price fetches the current quote for one side of a token.
func (c *Client) Price(ctx context.Context, tokenID string, side domain.Side) (string, error) {
	path := fmt.Sprintf("/price?token_id=%s&side=%s", url.QueryEscape(tokenID), url.QueryEscape(string(side)))
	resp, err := c.doRequest(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return "", fmt.Errorf("clob.Price: %w", err)
	}
	var quote priceResponse
	if err := json.Unmarshal(resp, &quote); err != nil {
		return "", fmt.Errorf("clob.Price: decode: %w", err)
	}
	return quote.Price, nil
}

// BalanceAllowance fetches the balance and allowance for an asset type.
func (c *Client) BalanceAllowance(ctx context.Context, assetType string) (BalanceAllowance, error) {
	if c.creds == nil {
		return BalanceAllowance{}, domain.ErrMissingCredentials
	}
	headers, err := c.level2Headers(http.MethodGet, "/balance-allowance", nil)
	if err != nil {
		return BalanceAllowance{}, fmt.Errorf("clob.BalanceAllowance: %w", err)
	}
	path := fmt.Sprintf("/balance-allowance?asset_type=%s&signature_type=%d", url.QueryEscape(assetType), signatureTypeEOA)
	resp, err := c.doRequest(ctx, http.MethodGet, path, nil, headers)
	if err != nil {
		return BalanceAllowance{}, fmt.Errorf("clob.BalanceAllowance: %w", err)
	}
	var ba BalanceAllowance
	if err := json.Unmarshal(resp, &ba); err != nil {
		return BalanceAllowance{}, fmt.Errorf("clob.BalanceAllowance: decode: %w", err)
	}
	return ba, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Order placement
// ──────────────────────────────────────────────────────────────────────────────

// PlaceOrder builds, signs, and submits a GTC limit order. Tick size, neg-risk
// flag, and fee rate are resolved from the API before signing.
func (c *Client) PlaceOrder(ctx context.Context, args OrderArgs) (map[string]any, error) {
	if c.creds == nil {
		return nil, domain.ErrMissingCredentials
	}
	if !args.Side.IsValid() {
		return nil, fmt.Errorf("clob.PlaceOrder: invalid side %q", args.Side)
	}

	tickSize, err := c.tickSize(ctx, args.TokenID)
	if err != nil {
		return nil, fmt.Errorf("clob.PlaceOrder: %w", err)
	}
	negRisk, err := c.negRisk(ctx, args.TokenID)
	if err != nil {
		return nil, fmt.Errorf("clob.PlaceOrder: %w", err)
	}
	if args.FeeRateBps == 0 {
		if bps, err := c.feeRateBps(ctx, args.TokenID); err == nil {
			args.FeeRateBps = bps
		}
	}

	order, err := c.buildSignedOrder(args, tickSize, negRisk)
	if err != nil {
		return nil, fmt.Errorf("clob.PlaceOrder: %w", err)
	}

	body := orderRequest{
		Order:     order,
		Owner:     c.creds.APIKey,
		OrderType: "GTC",
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("clob.PlaceOrder: encode: %w", err)
	}
	headers, err := c.level2Headers(http.MethodPost, "/order", payload)
	if err != nil {
		return nil, fmt.Errorf("clob.PlaceOrder: %w", err)
	}
	resp, err := c.doRequest(ctx, http.MethodPost, "/order", payload, headers)
	if err != nil {
		return nil, fmt.Errorf("clob.PlaceOrder: %w", err)
	}
	var parsed map[string]any
	if err := json.Unmarshal(resp, &parsed); err != nil {
		return nil, fmt.Errorf("clob.PlaceOrder: decode: %w", err)
	}
	return parsed, nil
}

// tickSize fetches the minimum tick size for a token.
func (c *Client) tickSize(ctx context.Context, tokenID string) (float64, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/tick-size?token_id="+url.QueryEscape(tokenID), nil, nil)
	if err != nil {
		return 0, err
	}
	var parsed struct {
		MinimumTickSize any `json:"minimum_tick_size"`
	}
	if err := json.Unmarshal(resp, &parsed); err != nil {
		return 0, err
	}
	switch v := parsed.MinimumTickSize.(type) {
	case string:
		tick, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid tick size %q", v)
		}
		return tick, nil
	case float64:
		return v, nil
	default:
		return 0.01, nil
	}
}

// negRisk checks whether the token belongs to a neg-risk market.
func (c *Client) negRisk(ctx context.Context, tokenID string) (bool, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/neg-risk?token_id="+url.QueryEscape(tokenID), nil, nil)
	if err != nil {
		return false, err
	}
	var parsed struct {
		NegRisk bool `json:"neg_risk"`
	}
	if err := json.Unmarshal(resp, &parsed); err != nil {
		return false, err
	}
	return parsed.NegRisk, nil
}

// feeRateBps fetches the maker fee rate for a token.
func (c *Client) feeRateBps(ctx context.Context, tokenID string) (int, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/fee-rate?token_id="+url.QueryEscape(tokenID), nil, nil)
	if err != nil {
		return 0, err
	}
	var parsed struct {
		FeeRateBps float64 `json:"fee_rate_bps"`
	}
	if err := json.Unmarshal(resp, &parsed); err != nil {
		return 0, err
	}
	return int(parsed.FeeRateBps), nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Transport
// ──────────────────────────────────────────────────────────────────────────────

// doRequest executes one HTTP request against the CLOB API and returns the raw
// body. Non-200 statuses become errors carrying the response text.
func (c *Client) doRequest(ctx context.Context, method, path string, body []byte, headers map[string]string) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.host+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "polyboard")
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(string(payload))
		if len(msg) > 200 {
			msg = msg[:200]
		}
		return nil, fmt.Errorf("clob request %s %s failed: %s: %s", method, path, resp.Status, msg)
	}
	return payload, nil
}
