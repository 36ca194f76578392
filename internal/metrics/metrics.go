// Package metrics holds the Prometheus collectors for imports, assignments and calls.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the application registry served on /metrics.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// =============================================================================
// Ingestion
// =============================================================================

// ImportRowsTotal rows by result: inserted, duplicate, rejected, failed.
var ImportRowsTotal = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "outreach",
	Subsystem: "import",
	Name:      "rows_total",
	Help:      "Voter roll rows processed by result",
}, []string{"result"})

// ImportBatchesTotal batches by status: ok, failed.
var ImportBatchesTotal = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "outreach",
	Subsystem: "import",
	Name:      "batches_total",
	Help:      "Bulk insert batches by status",
}, []string{"status"})

// ImportDurationSeconds wall time of a full commit (normalize + load).
var ImportDurationSeconds = factory.NewHistogram(prometheus.HistogramOpts{
	Namespace: "outreach",
	Subsystem: "import",
	Name:      "duration_seconds",
	Help:      "Time taken to normalize and load one roll",
	Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
})

// =============================================================================
// Assignments and calls
// =============================================================================

// AssignmentsTotal assign/revoke operations by result.
var AssignmentsTotal = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "outreach",
	Subsystem: "assignment",
	Name:      "operations_total",
	Help:      "Assignment operations by kind and result",
}, []string{"op", "result"})

// CallsRecordedTotal recorded calls by outcome.
var CallsRecordedTotal = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "outreach",
	Subsystem: "calls",
	Name:      "recorded_total",
	Help:      "Call outcomes recorded by outcome",
}, []string{"outcome"})

// CallRejectionsTotal calls refused before any write, by reason.
var CallRejectionsTotal = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "outreach",
	Subsystem: "calls",
	Name:      "rejected_total",
	Help:      "Call recordings refused by reason",
}, []string{"reason"})

// Handler serves Registry.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
