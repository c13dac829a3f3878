package consumer

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// EventLogHandler appends consumed events to the event_log audit table.
// Redeliveries are ignored on the event_id unique key.
type EventLogHandler struct {
	db execer
}

// NewEventLogHandler constructs a handler backed by the provided pool.
func NewEventLogHandler(db execer) *EventLogHandler {
	return &EventLogHandler{db: db}
}

// Handle stores the event payload.
func (h *EventLogHandler) Handle(ctx context.Context, msg Message) error {
	var developerID any
	if msg.DeveloperID > 0 {
		developerID = msg.DeveloperID
	}

	tag, err := h.db.Exec(ctx,
		`INSERT INTO event_log (event_id, event_type, topic, partition, "offset", developer_id, payload, received_at)
         VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
         ON CONFLICT (event_id) DO NOTHING`,
		msg.EventID,
		msg.EventType,
		msg.Topic,
		msg.Partition,
		msg.Offset,
		developerID,
		[]byte(msg.Payload),
		receivedAt(msg),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		duplicateCounter.WithLabelValues(msg.Topic).Inc()
	}
	return nil
}

func receivedAt(msg Message) time.Time {
	if msg.Timestamp.IsZero() {
		return time.Now().UTC()
	}
	return msg.Timestamp.UTC()
}
