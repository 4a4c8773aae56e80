// Package metrics provides Prometheus metrics for Vigia.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "vigia"
)

// Classification metrics
var (
	// ClassificationsTotal counts classification calls by stage and result.
	ClassificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "classifier",
			Name:      "classifications_total",
			Help:      "Total classification calls",
		},
		[]string{"stage", "result"}, // result: ok, error, skipped
	)

	// ClassificationDuration tracks per-record classification latency.
	ClassificationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "classifier",
			Name:      "duration_seconds",
			Help:      "Classification latency in seconds",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"stage"},
	)

	// ClassifierFallbackTotal counts runs where few-shot training failed and
	// the untrained classifier was used instead.
	ClassifierFallbackTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "classifier",
			Name:      "fallback_total",
			Help:      "Runs that fell back to the untrained classifier",
		},
	)

	// TokensTotal counts LLM tokens by stage and direction.
	TokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "tokens_total",
			Help:      "Total LLM tokens consumed",
		},
		[]string{"stage", "direction"}, // direction: prompt, completion
	)

	// CostTotal accumulates estimated LLM spend.
	CostTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "cost_total",
			Help:      "Estimated LLM cost in billing currency",
		},
		[]string{"stage"},
	)
)

// Association metrics
var (
	// AssociationsTotal counts incident/context pairings by match kind.
	AssociationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "geo",
			Name:      "associations_total",
			Help:      "Total incident-context associations",
		},
		[]string{"kind"}, // distance, whole_city
	)

	// IncidentsWithoutCoordinates counts incidents skipped by the distance matcher.
	IncidentsWithoutCoordinates = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "geo",
			Name:      "incidents_without_coordinates_total",
			Help:      "Incidents that could not be distance-matched",
		},
	)

	// GeocodeRequestsTotal counts geocoding lookups by result.
	GeocodeRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "geo",
			Name:      "geocode_requests_total",
			Help:      "Total geocoding lookups",
		},
		[]string{"result"}, // ok, miss, error
	)
)

// Alert metrics
var (
	// AlertsSentTotal counts alerts delivered per requester.
	AlertsSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "sent_total",
			Help:      "Total alerts delivered",
		},
		[]string{"requester"},
	)

	// AlertsSuppressedTotal counts alerts skipped because the same
	// fingerprint was already in the history.
	AlertsSuppressedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "suppressed_total",
			Help:      "Total alerts suppressed as duplicates",
		},
		[]string{"requester"},
	)

	// NotifyErrors counts webhook delivery errors.
	NotifyErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "notify_errors_total",
			Help:      "Total webhook delivery errors",
		},
		[]string{"requester"},
	)
)

// Warehouse metrics
var (
	// StorageQueryDuration tracks query latency.
	StorageQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "query_duration_seconds",
			Help:      "Storage query latency in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"operation", "backend"},
	)

	// StorageErrors counts storage operation errors.
	StorageErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "errors_total",
			Help:      "Total storage operation errors",
		},
		[]string{"operation", "backend"},
	)
)

// Pipeline metrics
var (
	// PipelineRunsTotal counts pipeline runs by outcome.
	PipelineRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total pipeline runs",
		},
		[]string{"outcome"}, // completed, short_circuit, error
	)

	// PipelineStageDuration tracks per-stage latency.
	PipelineStageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Pipeline stage latency in seconds",
			Buckets:   []float64{.1, .5, 1, 5, 15, 30, 60, 120, 300},
		},
		[]string{"stage"},
	)
)

// Info metric
var (
	// BuildInfo exposes build information.
	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "build_info",
			Help:      "Build information",
		},
		[]string{"version", "commit", "build_time"},
	)
)

// SetBuildInfo sets the build info metric.
func SetBuildInfo(version, commit, buildTime string) {
	BuildInfo.WithLabelValues(version, commit, buildTime).Set(1)
}
