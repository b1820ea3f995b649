package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/zpressley/fbp-auction/internal/auction"
	"github.com/zpressley/fbp-auction/internal/bot"
	"github.com/zpressley/fbp-auction/internal/config"
	"github.com/zpressley/fbp-auction/internal/db"
	"github.com/zpressley/fbp-auction/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadBotFromEnv()
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

	roster := store.NewRoster(pool)
	svc := auction.NewService(
		store.NewWeeks(pool),
		roster,
		store.NewLedger(pool),
		store.NewStandings(pool),
		cfg.Schedule,
		logger,
	)

	b, err := bot.New(cfg, logger, svc, roster)
	if err != nil {
		logger.Error("bot init failed", "err", err)
		os.Exit(1)
	}
	if err := b.Start(ctx); err != nil {
		logger.Error("bot start failed", "err", err)
		os.Exit(1)
	}
	logger.Info("auction bot connected", "guild", cfg.GuildID)

	<-ctx.Done()
	logger.Info("auction bot stopping")
	if err := b.Close(); err != nil {
		logger.Error("bot close failed", "err", err)
	}
}
