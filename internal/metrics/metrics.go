// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Recorder captures metric events for the application.
type Recorder interface {
	// Ledger mutations
	IncTransactionCreated()
	IncTransactionUpdated()
	IncTransactionDeleted()

	// Aggregations
	IncSummaryComputed()
	IncReportComputed()
	ObserveAggregationDuration(duration time.Duration)

	// Access gate
	IncAuthSuccess()
	IncAuthFailure()
	IncRateLimited()

	// Event publishing
	IncEventPublished(status string) // status: "success" or "failed"
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
