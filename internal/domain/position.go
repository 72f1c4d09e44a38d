package domain

// ──────────────────────────────────────────────────────────────────────────────
// Position
// ──────────────────────────────────────────────────────────────────────────────

// Position is the net holding in one outcome token, built by replaying trade
// history. Size is the signed sum of fills: BUY adds, SELL subtracts. Trades
// holds every contributing fill in the order it was processed.
type Position struct {
	TokenID string  `json:"token_id"`
	Name    string  `json:"name"`
	Size    float64 `json:"size"`
	Trades  []Trade `json:"trades"`
}

// Apply folds one trade into the position. The trade is appended to the
// contributing-trades list even when it nets the position back to zero.
func (p *Position) Apply(t Trade) error {
	delta, err := t.SignedSize()
	if err != nil {
		return err
	}
	p.Size += delta
	p.Trades = append(p.Trades, t)
	return nil
}

// IsFlat returns true when the trades net out to exactly zero.
func (p *Position) IsFlat() bool {
	return p.Size == 0
}
