package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"example.com/devguard/internal/api"
	"example.com/devguard/internal/app"
	"example.com/devguard/internal/config"
	"example.com/devguard/internal/domain"
	"example.com/devguard/internal/outbox"
	"example.com/devguard/internal/sweep"
	httptransport "example.com/devguard/internal/transport/http"
)

func main() {
	if err := run(); err != nil {
		slog.Error("devguard api exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := app.NewLogger(cfg.Log)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := app.OpenStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	service := domain.NewService(store.Repo, domain.WithStoreTimeout(cfg.Store.Timeout))

	var workers sync.WaitGroup

	if cfg.Outbox.Enabled && store.Pool != nil {
		producer := outbox.NewKafkaProducer(cfg.Kafka.BrokerList(), logger)
		defer producer.Close()

		dispatcher := outbox.NewDispatcher(store.Pool, producer, cfg.Outbox.PollInterval, cfg.Outbox.BatchSize,
			outbox.WithLogger(logger.With(slog.String("component", "outbox"))))
		workers.Add(1)
		go func() {
			defer workers.Done()
			dispatcher.Start(ctx)
		}()
		logger.Info("outbox dispatcher started",
			slog.Duration("poll_interval", cfg.Outbox.PollInterval),
			slog.Int("batch_size", cfg.Outbox.BatchSize))
	}

	sweeper, err := sweep.New(service, cfg.Sweep.Schedule, logger.With(slog.String("component", "sweep")))
	if err != nil {
		return err
	}
	workers.Add(1)
	go func() {
		defer workers.Done()
		sweeper.Start(ctx)
	}()

	handler := api.NewHandler(service, logger)
	server := httptransport.NewServer(cfg.HTTP, httptransport.NewRouter(handler, cfg.HTTP, logger))

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("devguard api listening",
			slog.String("address", cfg.HTTP.Address),
			slog.String("store", cfg.Store.Driver))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-serveErr:
		if err != nil {
			cancel()
			workers.Wait()
			return err
		}
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
	}

	workers.Wait()
	return nil
}
