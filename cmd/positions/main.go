// Package main prints the wallet's current Polymarket positions by replaying
// the last 30 days of CLOB trade history.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/evetabi/polyboard/internal/clob"
	"github.com/evetabi/polyboard/internal/config"
	"github.com/evetabi/polyboard/internal/positions"
)

func main() {
	// ── Logger ────────────────────────────────────────────────────────────────
	cfg := config.MustLoad()

	var logHandler slog.Handler
	if cfg.IsProd() {
		logHandler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})
	} else {
		logHandler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	logger := slog.New(logHandler)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── CLOB client ───────────────────────────────────────────────────────────
	client, err := clob.New(&cfg.Clob)
	if err != nil {
		logger.Error("clob client init failed", "err", err)
		os.Exit(1)
	}

	creds, created, err := client.EnsureCreds(ctx)
	if err != nil {
		logger.Error("failed to obtain API credentials", "err", err)
		logger.Error("please ensure your CLOB_API_URL and PK are correct")
		os.Exit(1)
	}
	if created {
		// Print the freshly created triple so the user can persist it.
		fmt.Println("Save these credentials in your .env file:")
		fmt.Printf("CLOB_API_KEY=%s\n", creds.APIKey)
		fmt.Printf("CLOB_SECRET=%s\n", creds.APISecret)
		fmt.Printf("CLOB_PASS_PHRASE=%s\n", creds.APIPassphrase)
	}

	// ── Trade history → positions ─────────────────────────────────────────────
	trades, err := client.Trades(ctx, clob.TradeFilter{
		After: time.Now().AddDate(0, 0, -30),
	})
	if err != nil {
		logger.Error("trade history fetch failed", "err", err)
		os.Exit(1)
	}
	logger.Debug("trade history fetched", "trades", len(trades))

	byToken, err := positions.Aggregate(ctx, trades, client)
	if err != nil {
		logger.Error("position aggregation failed", "err", err)
		os.Exit(1)
	}

	positions.WriteReport(os.Stdout, byToken)
}
