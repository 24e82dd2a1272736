package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

func (n *NoopRecorder) IncTransactionCreated()                            {}
func (n *NoopRecorder) IncTransactionUpdated()                            {}
func (n *NoopRecorder) IncTransactionDeleted()                            {}
func (n *NoopRecorder) IncSummaryComputed()                               {}
func (n *NoopRecorder) IncReportComputed()                                {}
func (n *NoopRecorder) ObserveAggregationDuration(duration time.Duration) {}
func (n *NoopRecorder) IncAuthSuccess()                                   {}
func (n *NoopRecorder) IncAuthFailure()                                   {}
func (n *NoopRecorder) IncRateLimited()                                   {}
func (n *NoopRecorder) IncEventPublished(status string)                   {}
