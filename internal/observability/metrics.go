// Package observability owns the Prometheus collectors shared across devguard binaries.
package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"example.com/devguard/internal/domain"
)

var (
	activityPersistGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "devguard",
		Subsystem: "persistence",
		Name:      "last_activity_persisted_timestamp_seconds",
		Help:      "Unix timestamp of the most recent activity persisted to Postgres.",
	})
	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "devguard",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests served, labeled by method, route and status code.",
	}, []string{"method", "route", "status"})
	httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "devguard",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route"})
	assessments = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "devguard",
		Subsystem: "burnout",
		Name:      "assessments_total",
		Help:      "Burnout assessments computed, labeled by risk level.",
	}, []string{"risk_level"})
	burnoutScore = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "devguard",
		Name:      "developer_burnout_score",
		Help:      "Most recent burnout score per developer.",
	}, []string{"developer_id"})
	sweepRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "devguard",
		Subsystem: "sweep",
		Name:      "runs_total",
		Help:      "Risk sweep runs, labeled by outcome.",
	}, []string{"outcome"})
	sweepFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "devguard",
		Subsystem: "sweep",
		Name:      "developer_failures_total",
		Help:      "Developers the risk sweep could not rescore.",
	})
)

func init() {
	prometheus.MustRegister(activityPersistGauge, httpRequests, httpDuration, assessments, burnoutScore, sweepRuns, sweepFailures)
	for _, level := range domain.RiskLevels {
		assessments.WithLabelValues(string(level))
	}
}

// RecordActivityPersisted updates the persistence watermark gauge.
func RecordActivityPersisted(ts time.Time) {
	if ts.IsZero() {
		return
	}
	activityPersistGauge.Set(float64(ts.Unix()))
}

// ObserveHTTPRequest records one served request.
func ObserveHTTPRequest(method, route string, status int, elapsed time.Duration) {
	httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// RecordAssessment counts one computed assessment.
func RecordAssessment(level domain.RiskLevel) {
	assessments.WithLabelValues(string(level)).Inc()
}

// SetBurnoutScore publishes the latest score for a developer.
func SetBurnoutScore(developerID int64, score float64) {
	burnoutScore.WithLabelValues(strconv.FormatInt(developerID, 10)).Set(score)
}

// ForgetDeveloper drops the gauge series of a deleted developer.
func ForgetDeveloper(developerID int64) {
	burnoutScore.DeleteLabelValues(strconv.FormatInt(developerID, 10))
}

// RecordSweep counts one sweep run and the developers it failed to rescore.
func RecordSweep(failed int) {
	outcome := "ok"
	if failed > 0 {
		outcome = "partial"
		sweepFailures.Add(float64(failed))
	}
	sweepRuns.WithLabelValues(outcome).Inc()
}

// RecordSweepAborted counts a sweep run that could not list developers.
func RecordSweepAborted() {
	sweepRuns.WithLabelValues("error").Inc()
}
