// Package repository holds the database access layer.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/evetabi/polyboard/internal/domain"
)

// BotRepository handles all database operations for the bot table — the
// externally-owned list of tracked markets the trading bot works from.
type BotRepository struct {
	db *sqlx.DB
}

// NewBotRepository creates a new BotRepository.
func NewBotRepository(db *sqlx.DB) *BotRepository {
	return &BotRepository{db: db}
}

// Upsert inserts or updates one row per market, keyed by market id, inside a
// single transaction. Existing rows get fresh token ids, name, and updated
// timestamp; new rows are inserted with zeroed trading thresholds (those
// columns belong to the bot, not to this sync). Any failure rolls the whole
// pass back.
func (r *BotRepository) Upsert(ctx context.Context, markets []domain.BotMarket) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("bot_repo.Upsert: begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	for _, m := range markets {
		var existing string
		err := tx.GetContext(ctx, &existing,
			`SELECT market_id FROM bot WHERE market_id = $1`, m.MarketID)
		switch {
		case err == nil:
			_, err = tx.ExecContext(ctx, `
				UPDATE bot
				SET yes_id      = $1,
				    no_id       = $2,
				    market_name = $3,
				    updated     = CURRENT_TIMESTAMP
				WHERE market_id = $4`,
				m.YesID, m.NoID, m.Name, m.MarketID)
			if err != nil {
				return fmt.Errorf("bot_repo.Upsert: update %s: %w", m.MarketID, err)
			}
		case errors.Is(err, sql.ErrNoRows):
			_, err = tx.ExecContext(ctx, `
				INSERT INTO bot (market_id, yes_id, no_id, market_name, buy_yes, buy_no, max_yes, max_no)
				VALUES ($1, $2, $3, $4, 0, 0, 0, 0)`,
				m.MarketID, m.YesID, m.NoID, m.Name)
			if err != nil {
				return fmt.Errorf("bot_repo.Upsert: insert %s: %w", m.MarketID, err)
			}
		default:
			return fmt.Errorf("bot_repo.Upsert: select %s: %w", m.MarketID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("bot_repo.Upsert: commit: %w", err)
	}
	return nil
}

// List returns all tracked markets, most recently updated first. Used by the
// dashboard to show what the bot is currently watching.
func (r *BotRepository) List(ctx context.Context) ([]domain.BotMarket, error) {
	var rows []domain.BotMarket
	err := r.db.SelectContext(ctx, &rows,
		`SELECT market_id, yes_id, no_id, market_name, buy_yes, buy_no, max_yes, max_no, updated
		 FROM bot ORDER BY updated DESC NULLS LAST`)
	if err != nil {
		return nil, fmt.Errorf("bot_repo.List: %w", err)
	}
	return rows, nil
}
