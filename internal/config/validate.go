package config

import (
	"fmt"
	"strings"
)

// Validate rejects settings no binary can run with.
func (c *Config) Validate() error {
	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))
	switch c.Store.Driver {
	case DriverPostgres:
		if strings.TrimSpace(c.Database.DSN) == "" {
			return fmt.Errorf("database.dsn is required for the postgres driver")
		}
	case DriverMemory:
		if c.Store.SeedDays < 0 {
			return fmt.Errorf("store.seed_days must be >= 0 (got %d)", c.Store.SeedDays)
		}
	default:
		return fmt.Errorf("store.driver must be %q or %q (got %q)", DriverPostgres, DriverMemory, c.Store.Driver)
	}

	if c.Store.Timeout <= 0 {
		return fmt.Errorf("store.timeout must be > 0 (got %s)", c.Store.Timeout)
	}
	if c.Database.MaxConns <= 0 {
		return fmt.Errorf("database.max_conns must be > 0 (got %d)", c.Database.MaxConns)
	}
	if c.Database.MinConns < 0 || c.Database.MinConns > c.Database.MaxConns {
		return fmt.Errorf("database.min_conns must be between 0 and max_conns (got %d)", c.Database.MinConns)
	}
	if c.Outbox.Enabled {
		if c.Outbox.PollInterval <= 0 {
			return fmt.Errorf("outbox.poll_interval must be > 0 (got %s)", c.Outbox.PollInterval)
		}
		if c.Outbox.BatchSize <= 0 {
			return fmt.Errorf("outbox.batch_size must be > 0 (got %d)", c.Outbox.BatchSize)
		}
		if len(c.Kafka.BrokerList()) == 0 {
			return fmt.Errorf("kafka.brokers is required when the outbox is enabled")
		}
	}

	if c.DLQ.PollInterval <= 0 {
		return fmt.Errorf("dlq.poll_interval must be > 0 (got %s)", c.DLQ.PollInterval)
	}
	if c.DLQ.BatchSize <= 0 {
		return fmt.Errorf("dlq.batch_size must be > 0 (got %d)", c.DLQ.BatchSize)
	}

	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("log.format must be json or text (got %q)", c.Log.Format)
	}
	return nil
}
