package consumer

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	processedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "devguard",
		Subsystem: "consumer",
		Name:      "events_processed_total",
		Help:      "Change events handled and committed, by topic and event type.",
	}, []string{"topic", "event_type"})

	handlerErrorCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "devguard",
		Subsystem: "consumer",
		Name:      "handler_errors_total",
		Help:      "Events left uncommitted because a handler failed.",
	}, []string{"topic", "event_type"})

	decodeErrorCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "devguard",
		Subsystem: "consumer",
		Name:      "decode_errors_total",
		Help:      "Malformed messages committed without handling.",
	}, []string{"topic"})

	duplicateCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "devguard",
		Subsystem: "consumer",
		Name:      "duplicate_events_total",
		Help:      "Redelivered events already present in the event log.",
	}, []string{"topic"})

	lastEventGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "devguard",
		Subsystem: "consumer",
		Name:      "last_event_timestamp_seconds",
		Help:      "Broker timestamp of the newest committed event per topic.",
	}, []string{"topic"})

	// Time from the broker accepting an event to the risk gauge being refreshed.
	eventLag = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "devguard",
		Subsystem: "consumer",
		Name:      "event_lag_seconds",
		Help:      "Delay between publish and successful handling.",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"topic"})
)

func init() {
	prometheus.MustRegister(processedCounter, handlerErrorCounter, decodeErrorCounter, duplicateCounter, lastEventGauge, eventLag)
}

func recordProcessed(msg Message, now time.Time) {
	processedCounter.WithLabelValues(msg.Topic, msg.EventType).Inc()
	if msg.Timestamp.IsZero() {
		return
	}
	lastEventGauge.WithLabelValues(msg.Topic).Set(float64(msg.Timestamp.Unix()))
	if lag := now.Sub(msg.Timestamp); lag >= 0 {
		eventLag.WithLabelValues(msg.Topic).Observe(lag.Seconds())
	}
}

func recordHandlerError(msg Message) {
	handlerErrorCounter.WithLabelValues(msg.Topic, msg.EventType).Inc()
}

func recordDecodeError(topic string) {
	decodeErrorCounter.WithLabelValues(topic).Inc()
}
