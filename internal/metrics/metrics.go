// Package metrics registers the Prometheus collectors and OpenTelemetry
// tracer shared by the research engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "research"

var (
	// ─── Scheduler ───────────────────────────────────────────────────────────────

	TasksCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "scheduler",
		Name:      "tasks_created_total",
		Help:      "Total research tasks registered.",
	})

	TasksFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "scheduler",
		Name:      "tasks_finished_total",
		Help:      "Tasks that reached a terminal status, labelled by status.",
	}, []string{"status"})

	WorkflowsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "scheduler",
		Name:      "workflows_inflight",
		Help:      "Research workflows currently holding a concurrency slot.",
	})

	GateWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "scheduler",
		Name:      "gate_wait_seconds",
		Help:      "Time a task waited for a concurrency slot.",
		Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 15, 60},
	})

	SessionsLaunched = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "scheduler",
		Name:      "sessions_launched_total",
		Help:      "Total discovery+research sessions launched.",
	})

	// ─── Workflow ────────────────────────────────────────────────────────────────

	WorkflowDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "workflow",
		Name:      "duration_seconds",
		Help:      "End-to-end research workflow time in seconds.",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
	}, []string{"status"})

	SourceUsed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "workflow",
		Name:      "source_used_total",
		Help:      "Which fallback chain link produced the result, by chain and source.",
	}, []string{"chain", "source"})

	SourceErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "workflow",
		Name:      "source_errors_total",
		Help:      "Errors returned by fallback chain links, by chain and source.",
	}, []string{"chain", "source"})

	IndexErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "workflow",
		Name:      "index_errors_total",
		Help:      "Non-fatal indexing failures.",
	})

	// ─── Discovery ───────────────────────────────────────────────────────────────

	DiscoveryCandidates = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "discovery",
		Name:      "candidates_total",
		Help:      "Candidates surviving each discovery phase.",
	}, []string{"phase"})

	DiscoveryRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "discovery",
		Name:      "rejected_total",
		Help:      "Candidates rejected by the validator, by reason.",
	}, []string{"reason"})

	LLMCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "llm",
		Name:      "calls_total",
		Help:      "Generative text calls by phase and outcome.",
	}, []string{"phase", "outcome"})

	// ─── Monitoring ──────────────────────────────────────────────────────────────

	StuckTasks = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "monitoring",
		Name:      "stuck_tasks",
		Help:      "Running tasks with no progress past the stuck threshold at the last check.",
	})

	AlertsFiring = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "monitoring",
		Name:      "alerts_firing",
		Help:      "Alerts currently active, by type.",
	}, []string{"type"})

	// ─── Providers ───────────────────────────────────────────────────────────────

	CircuitTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "provider",
		Name:      "circuit_transitions_total",
		Help:      "Circuit breaker state changes by service and target state.",
	}, []string{"service", "to"})
)

// Outcome returns the label value for an error result.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
