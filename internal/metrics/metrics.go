// Package metrics exposes Prometheus instruments for the scoring and prediction pipeline.
// Every recorder is a no-op until MustRegister has run, so packages and tests can call
// them freely.
package metrics

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "pulse"

var (
	registerOnce sync.Once

	mlRequests          *prometheus.CounterVec
	mlRequestDuration   *prometheus.HistogramVec
	predictionsSaved    *prometheus.CounterVec
	predictionsSkipped  *prometheus.CounterVec
	healthScoresUpserts *prometheus.CounterVec
	alertsCreated       *prometheus.CounterVec
)

// MustRegister registers the pipeline instruments and the Go runtime collectors. Call it
// once during startup; repeated calls are ignored.
func MustRegister() {
	registerOnce.Do(func() {
		mlRequests = registerCounterVec(prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "ml",
				Name:      "requests_total",
				Help:      "Calls to the ML service by endpoint and response status.",
			},
			[]string{"endpoint", "status"},
		))
		mlRequestDuration = registerHistogramVec(prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "ml",
				Name:      "request_duration_seconds",
				Help:      "Latency of ML service calls by endpoint.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		))
		predictionsSaved = registerCounterVec(prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "predictions",
				Name:      "saved_total",
				Help:      "Prediction rows persisted, by burnout label.",
			},
			[]string{"burnout_risk"},
		))
		predictionsSkipped = registerCounterVec(prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "predictions",
				Name:      "skipped_total",
				Help:      "Employees skipped by the orchestrator, by reason.",
			},
			[]string{"reason"},
		))
		healthScoresUpserts = registerCounterVec(prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "health_scores",
				Name:      "upserts_total",
				Help:      "Health score upserts by source.",
			},
			[]string{"source"},
		))
		alertsCreated = registerCounterVec(prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "alerts",
				Name:      "created_total",
				Help:      "Alerts created by type.",
			},
			[]string{"type"},
		))

		registerRuntimeCollectors()
	})
}

func ObserveMLRequest(endpoint, status string, d time.Duration) {
	if mlRequests == nil || mlRequestDuration == nil {
		return
	}
	endpoint = normalizeLabel(endpoint, "unknown")
	mlRequests.WithLabelValues(endpoint, normalizeLabel(status, "unknown")).Inc()
	mlRequestDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}

func RecordPredictionSaved(burnoutRisk string) {
	if predictionsSaved == nil {
		return
	}
	predictionsSaved.WithLabelValues(normalizeLabel(burnoutRisk, "unknown")).Inc()
}

func RecordPredictionSkipped(reason string, n int) {
	if predictionsSkipped == nil || n <= 0 {
		return
	}
	predictionsSkipped.WithLabelValues(normalizeLabel(reason, "unknown")).Add(float64(n))
}

func RecordHealthScoreUpserts(source string, n int) {
	if healthScoresUpserts == nil || n <= 0 {
		return
	}
	healthScoresUpserts.WithLabelValues(normalizeLabel(source, "unknown")).Add(float64(n))
}

func RecordAlertCreated(alertType string) {
	if alertsCreated == nil {
		return
	}
	alertsCreated.WithLabelValues(normalizeLabel(alertType, "manual")).Inc()
}

func normalizeLabel(value, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return fallback
}

func registerCounterVec(vec *prometheus.CounterVec) *prometheus.CounterVec {
	if err := prometheus.Register(vec); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing
			}
		}
		panic(err)
	}
	return vec
}

func registerHistogramVec(vec *prometheus.HistogramVec) *prometheus.HistogramVec {
	if err := prometheus.Register(vec); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing
			}
		}
		panic(err)
	}
	return vec
}

func registerRuntimeCollectors() {
	for _, c := range []prometheus.Collector{
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		if err := prometheus.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				panic(err)
			}
		}
	}
}
