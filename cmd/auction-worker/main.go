package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/zpressley/fbp-auction/internal/auction"
	"github.com/zpressley/fbp-auction/internal/config"
	"github.com/zpressley/fbp-auction/internal/db"
	"github.com/zpressley/fbp-auction/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadWorkerFromEnv()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	svc := auction.NewService(
		store.NewWeeks(pool),
		store.NewRoster(pool),
		store.NewLedger(pool),
		store.NewStandings(pool),
		cfg.Schedule,
		logger,
	)

	if cfg.RunOnce {
		resolveOnce(ctx, logger, svc)
		return
	}

	logger.Info("auction worker started", "check_every", cfg.CheckEvery.String())
	ticker := time.NewTicker(cfg.CheckEvery)
	defer ticker.Stop()

	resolveOnce(ctx, logger, svc)
	for {
		select {
		case <-ctx.Done():
			logger.Info("auction worker stopping")
			return
		case <-ticker.C:
			resolveOnce(ctx, logger, svc)
		}
	}
}

// resolveOnce runs a settlement pass when the week is in its processing
// window. Settlement is idempotent, so firing during an already settled
// week just reports the stored summary.
func resolveOnce(ctx context.Context, logger *slog.Logger, svc *auction.Service) {
	now := time.Now()
	phase, err := svc.CurrentPhase(ctx, now)
	if err != nil {
		logger.Error("phase check failed", "err", err)
		return
	}
	if phase != auction.PhaseProcessing {
		return
	}

	summary, err := svc.ResolveWeek(ctx, now)
	if err != nil {
		if errors.Is(err, auction.ErrWeekBusy) {
			logger.Warn("week locked, will retry", "err", err)
			return
		}
		logger.Error("resolve failed", "err", err)
		return
	}

	logger.Info("week resolved", "status", summary.Status, "winners", len(summary.Winners))
	for pid, win := range summary.Winners {
		logger.Info("prospect awarded",
			"prospect", pid, "team", win.Team, "amount", win.Amount, "source", win.Source)
	}
}
