// Package main runs the allowance batch: grants the Polymarket exchange
// contracts an unlimited USDC allowance and a blanket conditional-token
// operator approval on behalf of the configured wallet.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/evetabi/polyboard/internal/chain"
	"github.com/evetabi/polyboard/internal/config"
)

func main() {
	// ── Logger ────────────────────────────────────────────────────────────────
	cfg := config.MustLoad()

	var logHandler slog.Handler
	if cfg.IsProd() {
		logHandler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	} else {
		logHandler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	logger := slog.New(logHandler)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Node client ───────────────────────────────────────────────────────────
	node, err := ethclient.DialContext(ctx, cfg.Chain.RPCURL)
	if err != nil {
		logger.Error("rpc connection failed", "url", cfg.Chain.RPCURL, "err", err)
		os.Exit(1)
	}
	defer node.Close()

	// ── Allowance batch ───────────────────────────────────────────────────────
	setter, err := chain.NewSetter(&cfg.Chain, cfg.Clob.PrivateKey, node, logger)
	if err != nil {
		logger.Error("setter init failed", "err", err)
		os.Exit(1)
	}

	if err := setter.Run(ctx); err != nil {
		logger.Error("allowance batch failed", "err", err)
		os.Exit(1)
	}
	logger.Info("allowance batch complete")
}
