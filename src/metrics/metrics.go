// Package metrics exposes Prometheus instruments for reconciliation.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ============ Runs ============

// ReconcileRuns counts reconciler invocations by kind and outcome
// (success, failure, skipped).
var ReconcileRuns = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "tradejournal",
		Subsystem: "reconcile",
		Name:      "runs_total",
		Help:      "Total number of reconciler invocations",
	},
	[]string{"kind", "outcome"},
)

// ReconcileDuration is the wall time of one reconciler invocation.
var ReconcileDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "tradejournal",
		Subsystem: "reconcile",
		Name:      "duration_seconds",
		Help:      "Duration of one reconciler invocation in seconds",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	},
	[]string{"kind"},
)

// ============ Ledger changes ============

// LedgerChanges counts rows touched per invocation, by kind and change
// (created, updated, closed, deleted, resolved, unresolved, skipped).
var LedgerChanges = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "tradejournal",
		Subsystem: "reconcile",
		Name:      "ledger_changes_total",
		Help:      "Total number of ledger rows changed by reconciliation",
	},
	[]string{"kind", "change"},
)

// LastSuccess is the unix time of the last successful invocation per kind.
var LastSuccess = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: "tradejournal",
		Subsystem: "reconcile",
		Name:      "last_success_timestamp_seconds",
		Help:      "Unix time of the last successful reconciliation",
	},
	[]string{"kind"},
)

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeSkipped = "skipped"
)

// ObserveRun records the outcome and duration of one invocation.
func ObserveRun(kind, outcome string, started time.Time) {
	ReconcileRuns.WithLabelValues(kind, outcome).Inc()
	if outcome == OutcomeSkipped {
		return
	}
	ReconcileDuration.WithLabelValues(kind).Observe(time.Since(started).Seconds())
	if outcome == OutcomeSuccess {
		LastSuccess.WithLabelValues(kind).Set(float64(time.Now().Unix()))
	}
}

// AddChanges records the per-change counters of one invocation.
func AddChanges(kind string, changes map[string]int) {
	for change, n := range changes {
		if n > 0 {
			LedgerChanges.WithLabelValues(kind, change).Add(float64(n))
		}
	}
}
