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

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"example.com/devguard/internal/app"
	"example.com/devguard/internal/config"
	"example.com/devguard/internal/outbox"
	"example.com/devguard/internal/persistence/postgres"
)

func main() {
	if err := run(); err != nil {
		slog.Error("dlq manager exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := app.NewLogger(cfg.Log).With(slog.String("component", "dlq"))

	if cfg.Store.Driver != config.DriverPostgres {
		return fmt.Errorf("dlq manager requires the %s store (got %s)", config.DriverPostgres, cfg.Store.Driver)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()

	replayer := outbox.NewReplayer(pool, cfg.DLQ.MaxRetries, cfg.DLQ.BaseDelay, logger)

	metricsSrv := &http.Server{Addr: cfg.DLQ.MetricsAddress, Handler: promhttp.Handler()}
	go func() {
		logger.Info("dlq manager metrics listening", slog.String("address", cfg.DLQ.MetricsAddress))
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server error", slog.Any("error", err))
		}
	}()

	logger.Info("dlq manager started",
		slog.Duration("interval", cfg.DLQ.PollInterval),
		slog.Int("max_retries", cfg.DLQ.MaxRetries))

	ticker := time.NewTicker(cfg.DLQ.PollInterval)
	defer ticker.Stop()

	for running := true; running; {
		select {
		case <-ctx.Done():
			running = false
		case <-ticker.C:
			if _, err := replayer.RunOnce(ctx, cfg.DLQ.BatchSize); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("dlq replay failed", slog.Any("error", err))
			}
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown error", slog.Any("error", err))
	}
	return nil
}
