package service

import (
	"context"
	"time"

	"github.com/finledger/finledger/internal/metrics"
	"github.com/finledger/finledger/internal/model"
	"github.com/finledger/finledger/internal/repository"
)

// AggregationService computes summaries and reports over a user's ledger.
type AggregationService struct {
	store   repository.Store
	metrics metrics.Recorder
}

// NewAggregationService creates a new AggregationService.
func NewAggregationService(store repository.Store, recorder metrics.Recorder) *AggregationService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &AggregationService{store: store, metrics: recorder}
}

// Summarize totals the owner's income and expenses. A nil range covers the
// whole ledger; otherwise both bounds are inclusive. A reversed range
// matches nothing.
func (s *AggregationService) Summarize(ctx context.Context, owner *model.User, dr *model.DateRange) (*model.Summary, error) {
	start := time.Now()
	defer func() { s.metrics.ObserveAggregationDuration(time.Since(start)) }()

	totals, err := s.store.SumByKind(ctx, owner.ID, dr)
	if err != nil {
		return nil, storeError("sum transactions", err)
	}

	s.metrics.IncSummaryComputed()
	return model.NewSummary(totals), nil
}

// MonthlyCategoryReport totals the owner's transactions per category for
// one calendar month, ordered by category name.
func (s *AggregationService) MonthlyCategoryReport(ctx context.Context, owner *model.User, month, year int) ([]model.CategoryTotal, error) {
	if month < 1 || month > 12 {
		return nil, invalid("month", "must be between 1 and 12")
	}
	if year < 1 || year > 9999 {
		return nil, invalid("year", "must be between 1 and 9999")
	}

	start := time.Now()
	defer func() { s.metrics.ObserveAggregationDuration(time.Since(start)) }()

	totals, err := s.store.SumByCategory(ctx, owner.ID, model.MonthRange(year, time.Month(month)))
	if err != nil {
		return nil, storeError("sum by category", err)
	}
	if totals == nil {
		totals = []model.CategoryTotal{}
	}

	s.metrics.IncReportComputed()
	return totals, nil
}
