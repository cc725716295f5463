// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values for CapabilityInvocations.
const (
	OutcomeSuccess         = "success"
	OutcomeInputError      = "input_error"
	OutcomeTransportError  = "transport_error"
	OutcomeValidationError = "validation_error"
)

var (
	CapabilityInvocations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nomiko_capability_invocations_total",
			Help: "Total number of capability invocations by outcome",
		},
		[]string{"capability", "outcome"},
	)

	CapabilityDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nomiko_capability_duration_seconds",
			Help:    "Duration of model round trips in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 80},
		},
		[]string{"capability"},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nomiko_analysis_cache_lookups_total",
			Help: "Per-clause analysis cache lookups by result (hit, miss, shared)",
		},
		[]string{"capability", "result"},
	)

	StaleResultsDiscarded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nomiko_stale_results_discarded_total",
			Help: "Async results dropped because the session or selection changed",
		},
		[]string{"source"},
	)

	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "nomiko_sessions_active",
			Help: "Number of open dashboard sessions",
		},
	)

	ReportsExported = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nomiko_reports_exported_total",
			Help: "Total number of exported analysis reports",
		},
	)
)
