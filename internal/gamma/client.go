// Package gamma implements a read-only client for the Gamma content API,
// which serves event and market metadata keyed by slug.
package gamma

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/evetabi/polyboard/internal/config"
	"github.com/evetabi/polyboard/internal/domain"
)

// ──────────────────────────────────────────────────────────────────────────────
// Types
// ──────────────────────────────────────────────────────────────────────────────

// Event is one Gamma event with its embedded markets.
type Event struct {
	ID          string   `json:"id"`
	Slug        string   `json:"slug"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Markets     []Market `json:"markets"`
}

// Market is the Gamma view of one market inside an event.
type Market struct {
	Question        string     `json:"question"`
	ConditionID     string     `json:"conditionId"`
	ClobTokenIDs    string     `json:"clobTokenIds"` // JSON-encoded pair of token ids
	Volume          flexString `json:"volume"`
	AcceptingOrders bool       `json:"acceptingOrders"`
}

// TokenIDs decodes the embedded clobTokenIds field into the YES and NO token
// ids. The field is a JSON array serialized into a string.
func (m Market) TokenIDs() (yes, no string, err error) {
	var ids []string
	if err := json.Unmarshal([]byte(m.ClobTokenIDs), &ids); err != nil {
		return "", "", fmt.Errorf("gamma: market %s: decode clobTokenIds %q: %w", m.ConditionID, m.ClobTokenIDs, err)
	}
	if len(ids) != 2 {
		return "", "", fmt.Errorf("gamma: market %s: expected 2 token ids, got %d", m.ConditionID, len(ids))
	}
	return ids[0], ids[1], nil
}

// flexString tolerates Gamma returning a field as either a JSON string or a
// JSON number.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	*f = flexString(strings.TrimSpace(string(data)))
	return nil
}

// String returns the value, defaulting to "0" when empty.
func (f flexString) String() string {
	if f == "" || f == "null" {
		return "0"
	}
	return string(f)
}

// ──────────────────────────────────────────────────────────────────────────────
// Client
// ──────────────────────────────────────────────────────────────────────────────

// Client queries the Gamma events endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New builds a Client from configuration.
func New(cfg *config.GammaConfig) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		httpClient: &http.Client{Timeout: cfg.FetchTimeout},
	}
}

// EventBySlug fetches the first active, non-archived event matching slug.
// Returns domain.ErrNoEventsFound when the query matches nothing.
func (c *Client) EventBySlug(ctx context.Context, slug string) (*Event, error) {
	params := url.Values{}
	params.Set("slug", slug)
	params.Set("active", "true")
	params.Set("archived", "false")
	params.Set("limit", "100")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/events?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("gamma.EventBySlug: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gamma.EventBySlug: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("gamma.EventBySlug: read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gamma.EventBySlug: HTTP %d", resp.StatusCode)
	}

	var events []Event
	if err := json.Unmarshal(body, &events); err != nil {
		return nil, fmt.Errorf("gamma.EventBySlug: decode: %w", err)
	}
	if len(events) == 0 {
		return nil, domain.ErrNoEventsFound
	}
	return &events[0], nil
}
