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
	"github.com/segmentio/kafka-go"

	"example.com/devguard/internal/app"
	"example.com/devguard/internal/config"
	"example.com/devguard/internal/consumer"
	"example.com/devguard/internal/domain"
)

func main() {
	if err := run(); err != nil {
		slog.Error("devguard consumer exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := app.NewLogger(cfg.Log)

	if cfg.Store.Driver != config.DriverPostgres {
		return fmt.Errorf("consumer requires the %s store (got %s)", config.DriverPostgres, cfg.Store.Driver)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := app.OpenStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	service := domain.NewService(store.Repo, domain.WithStoreTimeout(cfg.Store.Timeout))
	handler := consumer.Handlers{
		consumer.NewEventLogHandler(store.Pool),
		consumer.NewRiskHandler(service, logger),
	}

	metricsSrv := &http.Server{Addr: cfg.Consumer.MetricsAddress, Handler: promhttp.Handler()}
	go func() {
		logger.Info("consumer metrics listening", slog.String("address", cfg.Consumer.MetricsAddress))
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server error", slog.Any("error", err))
		}
	}()

	topics := consumer.Topics()
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:         cfg.Kafka.BrokerList(),
		GroupID:         cfg.Kafka.ConsumerGroup,
		GroupTopics:     topics,
		MinBytes:        1e3,
		MaxBytes:        10e6,
		CommitInterval:  time.Second,
		RetentionTime:   24 * time.Hour,
		ReadLagInterval: -1,
	})
	defer reader.Close()

	proc := consumer.NewProcessor(reader, handler, consumer.WithLogger(logger))
	logger.Info("consumer started",
		slog.Any("topics", topics),
		slog.String("group", cfg.Kafka.ConsumerGroup))

	runErr := proc.Run(ctx)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		logger.Error("consumer stopped with error", slog.Any("error", runErr))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown error", slog.Any("error", err))
	}

	if errors.Is(runErr, context.Canceled) {
		return nil
	}
	return runErr
}
