// Package main is the entry point for the polyboard market dashboard: a web
// process that renders live prices, order books, and positions for one
// configured event and accepts manual order placement.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver

	"github.com/evetabi/polyboard/internal/api"
	"github.com/evetabi/polyboard/internal/clob"
	"github.com/evetabi/polyboard/internal/config"
	"github.com/evetabi/polyboard/internal/gamma"
	"github.com/evetabi/polyboard/internal/repository"
	"github.com/evetabi/polyboard/internal/scheduler"
	"github.com/evetabi/polyboard/internal/service"
)

func main() {
	// ── 1. Logger ─────────────────────────────────────────────────────────────
	cfg := config.MustLoad()

	var logHandler slog.Handler
	if cfg.IsProd() {
		logHandler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	} else {
		logHandler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	logger := slog.New(logHandler)
	slog.SetDefault(logger)

	logger.Info("starting polyboard dashboard",
		"env", cfg.Server.Env, "port", cfg.Server.Port, "event", cfg.Gamma.EventSlug)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── 2. CLOB client + credential bootstrap ─────────────────────────────────
	clobClient, err := clob.New(&cfg.Clob)
	if err != nil {
		logger.Error("clob client init failed", "err", err)
		os.Exit(1)
	}
	if _, created, err := clobClient.EnsureCreds(ctx); err != nil {
		logger.Error("credential bootstrap failed", "err", err)
		os.Exit(1)
	} else if created {
		logger.Info("derived fresh CLOB API credentials", "address", clobClient.Address())
	}

	// ── 3. Database (optional) ────────────────────────────────────────────────
	var botRepo *repository.BotRepository
	if cfg.DB.DSN != "" {
		db, err := sqlx.Connect("postgres", cfg.DB.DSN)
		if err != nil {
			logger.Error("database connection failed", "err", err)
			os.Exit(1)
		}
		defer db.Close()
		db.SetMaxOpenConns(cfg.DB.MaxOpenConns)
		db.SetMaxIdleConns(cfg.DB.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.DB.ConnMaxLifetime)

		if err = runMigrations(db, "migrations"); err != nil {
			logger.Error("migrations failed", "err", err)
			os.Exit(1)
		}
		logger.Info("database connected, migrations applied")

		botRepo = repository.NewBotRepository(db)
	} else {
		logger.Warn("DATABASE_URL not set, bot table sync disabled")
	}

	// ── 4. Services ───────────────────────────────────────────────────────────
	gammaClient := gamma.New(&cfg.Gamma)
	dashSvc := service.NewDashboardService(clobClient, gammaClient, botRepo, cfg, logger)

	if botRepo != nil {
		refresher := scheduler.NewRefresher(dashSvc, cfg.Gamma.RefreshInterval, logger)
		refresher.Start(ctx)
	}

	// ── 5. HTTP Router ────────────────────────────────────────────────────────
	router := api.SetupRouter(api.RouterDeps{
		DashboardSvc: dashSvc,
		Cfg:          cfg,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// ── 6. Start server ───────────────────────────────────────────────────────
	go func() {
		logger.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
			stop() // trigger graceful shutdown
		}
	}()

	// ── 7. Graceful shutdown ──────────────────────────────────────────────────
	<-ctx.Done()
	logger.Info("shutdown signal received, draining connections…")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err = srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown error", "err", err)
	}
	logger.Info("server stopped cleanly")
}

// runMigrations reads all *.sql files from dir, sorted by name, and executes
// them sequentially.  Idempotent: SQL files should use IF NOT EXISTS / ON CONFLICT.
func runMigrations(db *sqlx.DB, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("runMigrations: read dir %q: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)

	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return fmt.Errorf("runMigrations: read %q: %w", f, err)
		}
		if _, err = db.Exec(string(data)); err != nil {
			return fmt.Errorf("runMigrations: exec %q: %w", f, err)
		}
		slog.Info("migration applied", "file", filepath.Base(f))
	}
	return nil
}
