package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nahiyan/connect-broker/internal/config"
	"github.com/nahiyan/connect-broker/internal/health"
	"github.com/nahiyan/connect-broker/internal/schedule"
	"github.com/nahiyan/connect-broker/internal/store"
	"github.com/nahiyan/connect-broker/internal/token"
	"github.com/nahiyan/connect-broker/internal/web"
)

func main() {
	ctx := context.Background()

	if err := Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

func Run(ctx context.Context) error {
	// Add graceful shutdown support by listening for interruptions
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return errors.Join(errors.New("config load failed"), err)
	}

	logger := newLogger(cfg)

	kv, err := store.NewService(&store.Config{
		Addr:         cfg.Redis.Addr,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
		Prefix:       cfg.Redis.KeyPrefix,
	}, logger)
	if err != nil {
		return errors.Join(errors.New("store init failed"), err)
	}
	defer kv.Close()

	tokenStore := token.NewStore(kv, logger)
	refresher := token.NewRefresher(cfg.Provider.TokenURL, cfg.Provider.ClientID, cfg.Provider.Timeout, logger)
	manager := token.NewManager(tokenStore, refresher, logger)

	cache := schedule.NewCache(kv, logger)
	fetcher := schedule.NewFetcher(manager, tokenStore, cache, cfg.Downstream.BaseURL, cfg.Downstream.Timeout, logger)

	checker := health.NewChecker(kv, logger)

	router := web.NewRouter(cfg, logger, manager, fetcher, &checker)
	server := web.NewServer(cfg, router)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server listening", "addr", server.Addr, "environment", cfg.Server.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return errors.Join(errors.New("server failed"), err)
	case <-ctx.Done():
	}

	logger.Info("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return errors.Join(errors.New("server shutdown failed"), err)
	}

	logger.Info("Server stopped")
	return nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	if !cfg.Server.IsProduction() {
		level = slog.LevelDebug
	}

	var h slog.Handler
	if cfg.Server.IsProduction() {
		h = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	} else {
		h = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}

	return slog.New(h)
}
