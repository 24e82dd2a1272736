package handler

import (
	"fmt"
	"net/http"

	"github.com/finledger/finledger/internal/metrics"
)

// MetricsHandler exposes in-memory metrics.
type MetricsHandler struct {
	snapshotter metrics.Snapshotter
}

// NewMetricsHandler creates a new MetricsHandler.
func NewMetricsHandler(snapshotter metrics.Snapshotter) *MetricsHandler {
	return &MetricsHandler{snapshotter: snapshotter}
}

// Metrics returns metrics in Prometheus exposition format.
// GET /metrics
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.snapshotter == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	snap := h.snapshotter.Snapshot()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	writeMetric(w, "finledger_transactions_total{op=\"created\"} %d\n", snap.TransactionsCreated)
	writeMetric(w, "finledger_transactions_total{op=\"updated\"} %d\n", snap.TransactionsUpdated)
	writeMetric(w, "finledger_transactions_total{op=\"deleted\"} %d\n", snap.TransactionsDeleted)

	writeMetric(w, "finledger_aggregations_total{kind=\"summary\"} %d\n", snap.SummariesComputed)
	writeMetric(w, "finledger_aggregations_total{kind=\"report\"} %d\n", snap.ReportsComputed)
	writeMetric(w, "finledger_aggregation_duration_seconds_count %d\n", snap.AggregationDurationCount)
	writeMetric(w, "finledger_aggregation_duration_seconds_sum %.6f\n", float64(snap.AggregationDurationTotalNs)/1e9)

	writeMetric(w, "finledger_auth_total{result=\"success\"} %d\n", snap.AuthSuccesses)
	writeMetric(w, "finledger_auth_total{result=\"failure\"} %d\n", snap.AuthFailures)
	writeMetric(w, "finledger_rate_limited_total %d\n", snap.RateLimited)

	writeMetric(w, "finledger_events_published_total{status=\"success\"} %d\n", snap.EventsPublished)
	writeMetric(w, "finledger_events_published_total{status=\"failed\"} %d\n", snap.EventsFailed)
}

func writeMetric(w http.ResponseWriter, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
