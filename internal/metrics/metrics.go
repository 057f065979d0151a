package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// GateRunLatency tracks per-gate execution latency
	GateRunLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "gatekeeper",
			Subsystem: "runner",
			Name:      "gate_run_latency_seconds",
			Help:      "Time spent executing a gate command",
		},
		[]string{"gate"},
	)

	// GateFailures tracks gate failures by reason
	GateFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gatekeeper",
			Subsystem: "runner",
			Name:      "gate_failures_total",
			Help:      "Number of gate failures",
		},
		[]string{"gate", "reason"},
	)

	// BypassesTotal counts emergency bypass invocations
	BypassesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "gatekeeper",
			Subsystem: "runner",
			Name:      "bypasses_total",
			Help:      "Number of emergency bypasses recorded",
		},
	)

	// ContextCollectLatency tracks the latency of changeset fact collection
	ContextCollectLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "gatekeeper",
			Subsystem: "context_provider",
			Name:      "collect_latency_seconds",
			Help:      "Time spent in ContextProvider.Collect()",
		},
		[]string{"provider"},
	)

	// ContextCollectErrors tracks fact collection errors
	ContextCollectErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gatekeeper",
			Subsystem: "context_provider",
			Name:      "collect_errors_total",
			Help:      "Number of fact collection errors",
		},
		[]string{"provider", "error_type"},
	)

	// StaleContext tracks facts that were marked as stale
	StaleContext = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gatekeeper",
			Subsystem: "context_provider",
			Name:      "stale_facts_total",
			Help:      "Number of facts that were marked as stale",
		},
		[]string{"provider"},
	)
)

// MustRegister registers all metrics with the default Prometheus registry
func MustRegister() {
	prometheus.MustRegister(
		GateRunLatency,
		GateFailures,
		BypassesTotal,
		ContextCollectLatency,
		ContextCollectErrors,
		StaleContext,
	)
}
