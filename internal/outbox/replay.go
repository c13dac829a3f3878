package outbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"example.com/devguard/internal/events"
)

// Replayer moves dead-lettered events back into the outbox, backing off between
// attempts and quarantining entries that exhaust their retries.
type Replayer struct {
	db         database
	maxRetries int
	baseDelay  time.Duration
	now        func() time.Time
	logger     *slog.Logger
}

// NewReplayer constructs a Replayer. Non-positive settings fall back to five
// retries and a one minute base delay.
func NewReplayer(db database, maxRetries int, baseDelay time.Duration, logger *slog.Logger) *Replayer {
	if maxRetries <= 0 {
		maxRetries = 5
	}
	if baseDelay <= 0 {
		baseDelay = time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Replayer{db: db, maxRetries: maxRetries, baseDelay: baseDelay, now: time.Now, logger: logger}
}

// ReplayStats summarises one RunOnce pass.
type ReplayStats struct {
	Requeued    int
	Retrying    int
	Quarantined int
}

const readyQuery = `SELECT id, event_id, aggregate_type, aggregate_id, event_type, topic, partition_key, payload, retry_count
        FROM outbox_dlq
        WHERE quarantined_at IS NULL AND next_retry_at <= $1
        ORDER BY created_at, id
        LIMIT $2`

// RunOnce handles up to batchSize entries that are due for a retry.
func (r *Replayer) RunOnce(ctx context.Context, batchSize int) (ReplayStats, error) {
	var stats ReplayStats

	entries, err := r.ready(ctx, batchSize)
	if err != nil {
		return stats, err
	}

	for _, entry := range entries {
		outcome, procErr := r.handleEntry(ctx, entry)
		if procErr != nil {
			err = errors.Join(err, fmt.Errorf("dlq entry %d: %w", entry.ID, procErr))
			continue
		}
		replayOutcomes.WithLabelValues(entry.Topic, outcome).Inc()
		switch outcome {
		case outcomeRequeued:
			stats.Requeued++
		case outcomeRetry:
			stats.Retrying++
		case outcomeQuarantined:
			stats.Quarantined++
		}
	}

	r.updateBacklog(ctx)
	if len(entries) > 0 {
		r.logger.Info("dlq replay pass",
			slog.Int("requeued", stats.Requeued),
			slog.Int("retrying", stats.Retrying),
			slog.Int("quarantined", stats.Quarantined))
	}
	return stats, err
}

func (r *Replayer) ready(ctx context.Context, batchSize int) ([]dlqEntry, error) {
	rows, err := r.db.Query(ctx, readyQuery, r.now().UTC(), batchSize)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []dlqEntry
	for rows.Next() {
		var e dlqEntry
		if err := rows.Scan(&e.ID, &e.EventID, &e.AggregateType, &e.AggregateID, &e.EventType, &e.Topic, &e.PartitionKey, &e.Payload, &e.RetryCount); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *Replayer) handleEntry(ctx context.Context, entry dlqEntry) (string, error) {
	if entry.RetryCount >= r.maxRetries {
		return outcomeQuarantined, r.quarantine(ctx, entry, "retry limit reached")
	}
	if _, ok := events.Lookup(entry.EventType); !ok {
		return outcomeQuarantined, r.quarantine(ctx, entry, "no route for event_type="+entry.EventType)
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return "", err
	}

	if insertErr := requeueOutbox(ctx, tx, entry); insertErr != nil {
		_ = tx.Rollback(ctx)
		if err := r.scheduleRetry(ctx, entry, insertErr); err != nil {
			return "", err
		}
		return outcomeRetry, nil
	}

	if _, err := tx.Exec(ctx, `DELETE FROM outbox_dlq WHERE id = $1`, entry.ID); err != nil {
		_ = tx.Rollback(ctx)
		return "", err
	}
	if err := tx.Commit(ctx); err != nil {
		return "", err
	}
	return outcomeRequeued, nil
}

func (r *Replayer) quarantine(ctx context.Context, entry dlqEntry, reason string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE outbox_dlq SET quarantined_at = $1, quarantine_reason = $2 WHERE id = $3`,
		r.now().UTC(), reason, entry.ID)
	return err
}

func (r *Replayer) scheduleRetry(ctx context.Context, entry dlqEntry, cause error) error {
	now := r.now().UTC()
	_, err := r.db.Exec(ctx,
		`UPDATE outbox_dlq
            SET retry_count = retry_count + 1,
                last_attempt_at = $1,
                next_retry_at = $2,
                reason = $3
          WHERE id = $4`,
		now, now.Add(r.backoffDelay(entry.RetryCount+1)), cause.Error(), entry.ID)
	return err
}

// backoffDelay doubles per attempt and is capped at one hour.
func (r *Replayer) backoffDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 16 {
		return time.Hour
	}
	delay := time.Duration(1<<uint(attempt-1)) * r.baseDelay
	if delay > time.Hour {
		delay = time.Hour
	}
	return delay
}

func (r *Replayer) updateBacklog(ctx context.Context) {
	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM outbox_dlq WHERE quarantined_at IS NULL`).Scan(&count); err != nil {
		return
	}
	dlqBacklogGauge.Set(float64(count))
}

// requeueOutbox reinserts the payload into the outbox under a fresh dedupe key.
func requeueOutbox(ctx context.Context, tx execer, entry dlqEntry) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO outbox (aggregate_type, aggregate_id, event_type, topic, partition_key, payload, dedupe_key)
         VALUES ($1,$2,$3,$4,$5,$6,$7)
         ON CONFLICT (dedupe_key) DO NOTHING`,
		entry.AggregateType, entry.AggregateID, entry.EventType, entry.Topic, entry.PartitionKey, entry.Payload,
		fmt.Sprintf("dlq:%d:%d", entry.ID, entry.RetryCount),
	)
	return err
}

// dlqEntry represents an outbox_dlq row selected for processing.
type dlqEntry struct {
	ID            int64
	EventID       int64
	AggregateType string
	AggregateID   string
	EventType     string
	Topic         string
	PartitionKey  string
	Payload       []byte
	RetryCount    int
}
