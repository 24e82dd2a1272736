package metrics

import (
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	TransactionsCreated        uint64
	TransactionsUpdated        uint64
	TransactionsDeleted        uint64
	SummariesComputed          uint64
	ReportsComputed            uint64
	AggregationDurationCount   uint64
	AggregationDurationTotalNs int64
	AuthSuccesses              uint64
	AuthFailures               uint64
	RateLimited                uint64
	EventsPublished            uint64
	EventsFailed               uint64
}

// InMemoryRecorder keeps counters in process memory.
// It backs the /metrics endpoint and is used by tests.
type InMemoryRecorder struct {
	transactionsCreated        atomic.Uint64
	transactionsUpdated        atomic.Uint64
	transactionsDeleted        atomic.Uint64
	summariesComputed          atomic.Uint64
	reportsComputed            atomic.Uint64
	aggregationDurationCount   atomic.Uint64
	aggregationDurationTotalNs atomic.Int64
	authSuccesses              atomic.Uint64
	authFailures               atomic.Uint64
	rateLimited                atomic.Uint64
	eventsPublished            atomic.Uint64
	eventsFailed               atomic.Uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	return Snapshot{
		TransactionsCreated:        m.transactionsCreated.Load(),
		TransactionsUpdated:        m.transactionsUpdated.Load(),
		TransactionsDeleted:        m.transactionsDeleted.Load(),
		SummariesComputed:          m.summariesComputed.Load(),
		ReportsComputed:            m.reportsComputed.Load(),
		AggregationDurationCount:   m.aggregationDurationCount.Load(),
		AggregationDurationTotalNs: m.aggregationDurationTotalNs.Load(),
		AuthSuccesses:              m.authSuccesses.Load(),
		AuthFailures:               m.authFailures.Load(),
		RateLimited:                m.rateLimited.Load(),
		EventsPublished:            m.eventsPublished.Load(),
		EventsFailed:               m.eventsFailed.Load(),
	}
}

func (m *InMemoryRecorder) IncTransactionCreated() { m.transactionsCreated.Add(1) }
func (m *InMemoryRecorder) IncTransactionUpdated() { m.transactionsUpdated.Add(1) }
func (m *InMemoryRecorder) IncTransactionDeleted() { m.transactionsDeleted.Add(1) }
func (m *InMemoryRecorder) IncSummaryComputed()    { m.summariesComputed.Add(1) }
func (m *InMemoryRecorder) IncReportComputed()     { m.reportsComputed.Add(1) }
func (m *InMemoryRecorder) IncAuthSuccess()        { m.authSuccesses.Add(1) }
func (m *InMemoryRecorder) IncAuthFailure()        { m.authFailures.Add(1) }
func (m *InMemoryRecorder) IncRateLimited()        { m.rateLimited.Add(1) }

// ObserveAggregationDuration records how long a summary or report took.
func (m *InMemoryRecorder) ObserveAggregationDuration(duration time.Duration) {
	m.aggregationDurationCount.Add(1)
	m.aggregationDurationTotalNs.Add(duration.Nanoseconds())
}

// IncEventPublished counts publish outcomes.
func (m *InMemoryRecorder) IncEventPublished(status string) {
	if status == "success" {
		m.eventsPublished.Add(1)
		return
	}
	m.eventsFailed.Add(1)
}
