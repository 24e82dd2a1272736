package metrics

import (
	"sync"
	"testing"
	"time"
)

func TestInMemoryRecorder_Snapshot(t *testing.T) {
	t.Parallel()

	m := NewInMemory()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.IncTransactionCreated()
		}()
	}
	wg.Wait()

	m.IncTransactionUpdated()
	m.IncTransactionDeleted()
	m.IncSummaryComputed()
	m.IncReportComputed()
	m.ObserveAggregationDuration(2 * time.Millisecond)
	m.ObserveAggregationDuration(3 * time.Millisecond)
	m.IncAuthSuccess()
	m.IncAuthFailure()
	m.IncAuthFailure()
	m.IncRateLimited()
	m.IncEventPublished("success")
	m.IncEventPublished("failed")

	snap := m.Snapshot()
	want := Snapshot{
		TransactionsCreated:        50,
		TransactionsUpdated:        1,
		TransactionsDeleted:        1,
		SummariesComputed:          1,
		ReportsComputed:            1,
		AggregationDurationCount:   2,
		AggregationDurationTotalNs: (5 * time.Millisecond).Nanoseconds(),
		AuthSuccesses:              1,
		AuthFailures:               2,
		RateLimited:                1,
		EventsPublished:            1,
		EventsFailed:               1,
	}
	if snap != want {
		t.Errorf("snapshot = %+v, want %+v", snap, want)
	}
}

func TestNoopRecorder(t *testing.T) {
	t.Parallel()

	var r Recorder = NewNoop()
	r.IncTransactionCreated()
	r.IncEventPublished("success")
	r.ObserveAggregationDuration(time.Second)
}
