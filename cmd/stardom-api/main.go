package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stardom/internal/api"
	"stardom/internal/config"
	"stardom/internal/game"
	"stardom/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadAPIFromEnv()
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

	gameSvc := game.NewService(st, game.NewEngine(cfg.Tuning, logger), logger)
	gameSvc.SetShared(store.Shared(cfg.Store.Backend))
	if err := gameSvc.Open(ctx, cfg.ArtistName); err != nil {
		logger.Error("career init failed", "err", err)
		os.Exit(1)
	}

	server := api.New(cfg, logger, gameSvc)
	if store.Shared(cfg.Store.Backend) {
		go server.Watch(ctx, cfg.EventsPollEvery)
	}
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info("stardom api listening", "addr", cfg.Addr, "store", cfg.Store.Backend, "slot", cfg.Store.Slot)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server failed", "err", err)
		os.Exit(1)
	}
}
