package outbox

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"example.com/devguard/internal/events"
)

// KafkaProducer holds one writer per devguard topic. Messages are hashed on
// their key, the developer id, so one developer's events stay ordered on a
// single partition.
type KafkaProducer struct {
	writers map[string]*kafka.Writer
}

// NewKafkaProducer builds writers for every routed topic. Writers connect
// lazily on first write.
func NewKafkaProducer(brokers []string, logger *slog.Logger) *KafkaProducer {
	if logger == nil {
		logger = slog.Default()
	}
	errorLog := kafka.LoggerFunc(func(msg string, args ...any) {
		logger.Error("kafka writer", slog.String("detail", fmt.Sprintf(msg, args...)))
	})

	p := &KafkaProducer{writers: make(map[string]*kafka.Writer)}
	for _, topic := range events.Topics() {
		p.writers[topic] = &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			Compression:            kafka.Snappy,
			BatchTimeout:           50 * time.Millisecond,
			AllowAutoTopicCreation: true,
			ErrorLogger:            errorLog,
		}
	}
	return p
}

// WriteMessages writes msgs to topic. Topics outside the event catalog are refused.
func (p *KafkaProducer) WriteMessages(ctx context.Context, topic string, msgs ...kafka.Message) error {
	writer, ok := p.writers[topic]
	if !ok {
		return fmt.Errorf("unknown topic %q", topic)
	}
	return writer.WriteMessages(ctx, msgs...)
}

// Close flushes and releases all writers.
func (p *KafkaProducer) Close() error {
	var firstErr error
	for _, writer := range p.writers {
		if err := writer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
