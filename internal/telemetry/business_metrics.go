package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BusinessMetrics holds Prometheus metrics for intake-funnel
// observability: how drafts move through the five stages and how the
// collaborator calls behave.
type BusinessMetrics struct {
	// Session lifecycle
	SessionsStarted   prometheus.Counter
	SessionsDiscarded prometheus.Counter

	// Interpretation
	Interpretations       prometheus.Counter
	InterpretationsFailed prometheus.Counter

	// Catalog search
	SearchesIssued   prometheus.Counter
	SearchesFailed   prometheus.Counter
	StaleDropped     prometheus.Counter
	CandidatesChosen prometheus.Counter

	// Geocoding
	GeocodeAttempts prometheus.Counter
	GeocodeMisses   prometheus.Counter

	// Stage navigation
	StageAdvances *prometheus.CounterVec
	StageBlocked  *prometheus.CounterVec

	// Submission
	SubmitAttempts         prometheus.Counter
	SubmitSucceeded        prometheus.Counter
	SubmitFailed           prometheus.Counter
	ReconciliationFailures prometheus.Counter
	OrderValue             prometheus.Histogram
	OrderItemCount         prometheus.Histogram
}

// Business is the global metrics instance, set once by Init.
// Callers nil-check it so tests run without registering collectors.
var Business *BusinessMetrics

// Init creates and registers the business metrics under the given
// namespace and installs them as the global instance.
func Init(namespace string) *BusinessMetrics {
	if namespace == "" {
		namespace = "registroventas"
	}

	m := &BusinessMetrics{
		SessionsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "intake_sessions_started_total",
			Help: "Workflow sessions started",
		}),
		SessionsDiscarded: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "intake_sessions_discarded_total",
			Help: "Workflow sessions discarded without submission",
		}),
		Interpretations: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "intake_interpretations_total",
			Help: "Free-text interpretation calls",
		}),
		InterpretationsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "intake_interpretations_failed_total",
			Help: "Failed free-text interpretation calls",
		}),
		SearchesIssued: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "intake_catalog_searches_total",
			Help: "Catalog searches issued after debounce",
		}),
		SearchesFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "intake_catalog_searches_failed_total",
			Help: "Catalog searches that returned an error",
		}),
		StaleDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "intake_stale_responses_dropped_total",
			Help: "Catalog responses discarded by the staleness guard",
		}),
		CandidatesChosen: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "intake_candidates_accepted_total",
			Help: "Catalog candidates accepted onto a line item",
		}),
		GeocodeAttempts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "intake_geocode_attempts_total",
			Help: "Address geocoding attempts",
		}),
		GeocodeMisses: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "intake_geocode_misses_total",
			Help: "Geocoding attempts with no match",
		}),
		StageAdvances: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "intake_stage_advances_total",
			Help: "Successful stage advances",
		}, []string{"from"}),
		StageBlocked: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "intake_stage_blocked_total",
			Help: "Stage advances blocked by a gate",
		}, []string{"from"}),
		SubmitAttempts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "intake_submit_attempts_total",
			Help: "Order submissions attempted",
		}),
		SubmitSucceeded: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "intake_submit_succeeded_total",
			Help: "Order submissions acknowledged by the backend",
		}),
		SubmitFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "intake_submit_failed_total",
			Help: "Order submissions rejected or failed",
		}),
		ReconciliationFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "intake_reconciliation_failures_total",
			Help: "Submissions blocked by payment/total mismatch",
		}),
		OrderValue: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "intake_order_value",
			Help:    "Value of submitted orders",
			Buckets: []float64{25, 50, 100, 250, 500, 1000, 2500, 5000},
		}),
		OrderItemCount: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "intake_order_item_count",
			Help:    "Line items per submitted order",
			Buckets: []float64{1, 2, 3, 5, 8, 13, 21},
		}),
	}

	Business = m
	return m
}
