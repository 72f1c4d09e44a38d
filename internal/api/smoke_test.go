// Package api_test runs HTTP-level smoke tests using net/http/httptest.
// These tests do NOT require live upstreams — they verify:
//   - Gin router routing and middleware wiring
//   - Request validation error responses (400)
//   - Response format consistency (success/error envelope)
//   - Dashboard rendering with degraded upstream data
package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/evetabi/polyboard/internal/api"
	"github.com/evetabi/polyboard/internal/api/middleware"
	"github.com/evetabi/polyboard/internal/clob"
	"github.com/evetabi/polyboard/internal/config"
	"github.com/evetabi/polyboard/internal/domain"
	"github.com/evetabi/polyboard/internal/gamma"
	"github.com/evetabi/polyboard/internal/service"
)

// ── Fakes ─────────────────────────────────────────────────────────────────────

type stubClob struct {
	orderResp map[string]any
	orderErr  error
}

func (s *stubClob) Trades(context.Context, clob.TradeFilter) ([]domain.Trade, error) {
	return nil, nil
}
func (s *stubClob) Market(context.Context, string) (clob.Market, error) { return clob.Market{}, nil }
func (s *stubClob) OrderBook(context.Context, string) (*domain.OrderBook, error) {
	return &domain.OrderBook{}, nil
}
func (s *stubClob) Price(context.Context, string, domain.Side) (string, error) { return "0.5", nil }
func (s *stubClob) BalanceAllowance(context.Context, string) (clob.BalanceAllowance, error) {
	return clob.BalanceAllowance{Balance: "100"}, nil
}
func (s *stubClob) PlaceOrder(context.Context, clob.OrderArgs) (map[string]any, error) {
	return s.orderResp, s.orderErr
}

type stubEvents struct {
	event *gamma.Event
	err   error
}

func (s *stubEvents) EventBySlug(context.Context, string) (*gamma.Event, error) {
	return s.event, s.err
}

// ── Test helpers ──────────────────────────────────────────────────────────────

func testCfg() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Env:      "development",
			Port:     "8080",
			OrderRPS: 100,
		},
		Gamma: config.GammaConfig{EventSlug: "test-event"},
	}
}

func buildTestRouter(t *testing.T, clobAPI clob.API, events service.EventSource) http.Handler {
	t.Helper()
	cfg := testCfg()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dashSvc := service.NewDashboardService(clobAPI, events, nil, cfg, logger)

	return api.SetupRouter(api.RouterDeps{
		DashboardSvc: dashSvc,
		Cfg:          cfg,
		TemplateGlob: "testdata/templates/*.html",
	})
}

func defaultRouter(t *testing.T) http.Handler {
	t.Helper()
	return buildTestRouter(t,
		&stubClob{orderResp: map[string]any{"orderID": "ord-1"}},
		&stubEvents{event: &gamma.Event{
			Title: "Test Event",
			Markets: []gamma.Market{{
				Question:     "Will X happen?",
				ConditionID:  "0xabc",
				ClobTokenIDs: `["111","222"]`,
			}},
		}},
	)
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var buf *bytes.Buffer
	if body != "" {
		buf = bytes.NewBufferString(body)
	} else {
		buf = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&m); err != nil {
		t.Fatalf("response is not valid JSON: %v — body: %s", err, rr.Body.String())
	}
	return m
}

// ── /health ───────────────────────────────────────────────────────────────────

func TestHealthEndpoint(t *testing.T) {
	h := defaultRouter(t)
	rr := do(t, h, http.MethodGet, "/health", "")
	if rr.Code != http.StatusOK {
		t.Errorf("GET /health = %d, want 200", rr.Code)
	}
}

// ── Dashboard page ────────────────────────────────────────────────────────────

func TestIndex_RendersMarkets(t *testing.T) {
	h := defaultRouter(t)
	rr := do(t, h, http.MethodGet, "/", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("GET / = %d, want 200", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "Test Event") {
		t.Errorf("page missing event title:\n%s", body)
	}
	if !strings.Contains(body, "Will X happen?") {
		t.Errorf("page missing market question:\n%s", body)
	}
}

func TestIndex_UpstreamFailureStillRenders(t *testing.T) {
	h := buildTestRouter(t, &stubClob{}, &stubEvents{err: errors.New("gamma down")})
	rr := do(t, h, http.MethodGet, "/", "")
	// Build failures become an in-page banner, never a 5xx.
	if rr.Code != http.StatusOK {
		t.Fatalf("GET / with broken upstream = %d, want 200", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "API Error") {
		t.Errorf("page missing error banner:\n%s", rr.Body.String())
	}
}

// ── /execute_trade — validation layer ─────────────────────────────────────────

func TestExecuteTrade_MalformedJSON(t *testing.T) {
	h := defaultRouter(t)
	rr := do(t, h, http.MethodPost, "/execute_trade", `{not json`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("malformed body = %d, want 400", rr.Code)
	}
}

func TestExecuteTrade_InvalidSide(t *testing.T) {
	h := defaultRouter(t)
	rr := do(t, h, http.MethodPost, "/execute_trade",
		`{"price":0.5,"size":10,"side":"HOLD","token_id":"111"}`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("invalid side = %d, want 400", rr.Code)
	}
	body := decodeBody(t, rr)
	if body["success"] != false {
		t.Errorf("error envelope.success = %v, want false", body["success"])
	}
	if body["error"] == nil {
		t.Errorf("error envelope missing 'error', got: %v", body)
	}
}

func TestExecuteTrade_NonPositiveAmounts(t *testing.T) {
	cases := []string{
		`{"price":0,"size":10,"side":"BUY","token_id":"111"}`,
		`{"price":0.5,"size":0,"side":"BUY","token_id":"111"}`,
		`{"price":-1,"size":10,"side":"SELL","token_id":"111"}`,
	}
	h := defaultRouter(t)
	for _, payload := range cases {
		rr := do(t, h, http.MethodPost, "/execute_trade", payload)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("payload %s = %d, want 400", payload, rr.Code)
		}
	}
}

func TestExecuteTrade_MissingTokenID(t *testing.T) {
	h := defaultRouter(t)
	rr := do(t, h, http.MethodPost, "/execute_trade",
		`{"price":0.5,"size":10,"side":"BUY"}`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("missing token_id = %d, want 400", rr.Code)
	}
}

// ── /execute_trade — envelope format ──────────────────────────────────────────

func TestExecuteTrade_SuccessEnvelope(t *testing.T) {
	h := defaultRouter(t)
	rr := do(t, h, http.MethodPost, "/execute_trade",
		`{"price":0.5,"size":10,"side":"BUY","token_id":"111"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("valid order = %d, want 200 — body: %s", rr.Code, rr.Body.String())
	}
	body := decodeBody(t, rr)
	if body["success"] != true {
		t.Errorf("envelope.success = %v, want true", body["success"])
	}
	resp, ok := body["response"].(map[string]interface{})
	if !ok || resp["orderID"] != "ord-1" {
		t.Errorf("envelope.response = %v, want CLOB pass-through", body["response"])
	}
}

func TestExecuteTrade_ClobRejection(t *testing.T) {
	h := buildTestRouter(t,
		&stubClob{orderErr: errors.New("not enough balance / allowance")},
		&stubEvents{event: &gamma.Event{Title: "Test Event"}},
	)
	rr := do(t, h, http.MethodPost, "/execute_trade",
		`{"price":0.5,"size":10,"side":"BUY","token_id":"111"}`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("CLOB rejection = %d, want 400", rr.Code)
	}
	body := decodeBody(t, rr)
	if body["success"] != false {
		t.Errorf("envelope.success = %v, want false", body["success"])
	}
	if msg, _ := body["error"].(string); !strings.Contains(msg, "allowance") {
		t.Errorf("envelope.error = %q, want CLOB message passed through", msg)
	}
}

// ── Request id middleware ─────────────────────────────────────────────────────

func TestRequestIDHeader(t *testing.T) {
	h := defaultRouter(t)
	rr := do(t, h, http.MethodGet, "/health", "")
	if rr.Header().Get(middleware.HeaderRequestID) == "" {
		t.Error("response missing X-Request-ID header")
	}
}

func TestRequestIDEchoed(t *testing.T) {
	h := defaultRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(middleware.HeaderRequestID, "fixed-id-123")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if got := rr.Header().Get(middleware.HeaderRequestID); got != "fixed-id-123" {
		t.Errorf("X-Request-ID = %q, want echo of incoming id", got)
	}
}
