package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stardom/internal/config"
	"stardom/internal/game"
	"stardom/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadWorkerFromEnv()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	st, err := store.Open(ctx, cfg.Store, logger)
	if err != nil {
		logger.Error("store open failed", "backend", cfg.Store.Backend, "err", err)
		os.Exit(1)
	}
	defer st.Close()

	svc := game.NewService(st, game.NewEngine(cfg.Tuning, logger), logger)
	// The api may write the same save between ticks.
	svc.SetShared(true)
	if err := svc.Open(ctx, cfg.ArtistName); err != nil {
		logger.Error("career init failed", "err", err)
		os.Exit(1)
	}

	if cfg.RunOnce {
		if _, err := svc.AdvanceWeek(ctx); err != nil {
			logger.Error("tick failed", "err", err)
			os.Exit(1)
		}
		logger.Info("worker run-once completed")
		return
	}

	ticker := time.NewTicker(cfg.WeekEvery)
	defer ticker.Stop()

	logger.Info("worker started", "week_every", cfg.WeekEvery.String(), "store", cfg.Store.Backend, "seed", cfg.Tuning.Seed)
	for {
		select {
		case <-ctx.Done():
			logger.Info("worker shutdown")
			return
		case <-ticker.C:
			res, err := svc.AdvanceWeek(ctx)
			if err != nil {
				logger.Error("week tick failed", "err", err)
				continue
			}
			logger.Info("week tick complete", "week", res.Stats.Week, "notifications", len(res.Notifications))
		}
	}
}
