package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/devguard/internal/config"
	"example.com/devguard/internal/domain"
	"example.com/devguard/internal/persistence/memory"
	"example.com/devguard/internal/persistence/migrations"
	"example.com/devguard/internal/persistence/postgres"
)

// Store is the data source selected by configuration. Pool is nil for the
// memory driver, which also means there is no outbox to dispatch.
type Store struct {
	Repo domain.Repository
	Pool *pgxpool.Pool
}

// Close releases the pool, if any.
func (s *Store) Close() {
	if s.Pool != nil {
		s.Pool.Close()
	}
}

// OpenStore builds the repository named by cfg.Store.Driver. The postgres
// driver applies pending migrations first when auto_migrate is set; the memory
// driver is seeded with cfg.Store.SeedDays of history ending today.
func OpenStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Store, error) {
	switch cfg.Store.Driver {
	case config.DriverMemory:
		repo := memory.NewRepository()
		if err := repo.Seed(ctx, time.Now(), cfg.Store.SeedDays); err != nil {
			return nil, fmt.Errorf("seed memory store: %w", err)
		}
		logger.Warn("using in-memory store; data is not persisted and no events are published",
			slog.Int("seed_days", cfg.Store.SeedDays))
		return &Store{Repo: repo}, nil

	case config.DriverPostgres:
		if cfg.Database.AutoMigrate {
			applied, err := migrations.UpDSN(ctx, cfg.Database.DSN)
			if err != nil {
				return nil, fmt.Errorf("apply migrations: %w", err)
			}
			logger.Info("migrations applied", slog.Any("versions", applied))
		}
		pool, err := postgres.NewPool(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		return &Store{Repo: postgres.NewRepository(pool), Pool: pool}, nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
