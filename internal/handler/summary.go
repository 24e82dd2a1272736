package handler

import (
	"log/slog"
	"net/http"

	"github.com/finledger/finledger/internal/handler/dto"
	"github.com/finledger/finledger/internal/model"
	"github.com/finledger/finledger/internal/service"
)

// SummaryHandler serves the aggregation endpoints.
type SummaryHandler struct {
	svc    *service.AggregationService
	logger *slog.Logger
}

// NewSummaryHandler creates a new SummaryHandler.
func NewSummaryHandler(svc *service.AggregationService, logger *slog.Logger) *SummaryHandler {
	return &SummaryHandler{svc: svc, logger: logger}
}

// Summary handles GET /api/v1/summary?startDate=&endDate=.
// The range applies only when both bounds are given.
func (h *SummaryHandler) Summary(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	startRaw, endRaw := query.Get("startDate"), query.Get("endDate")

	var dr *model.DateRange
	if startRaw != "" && endRaw != "" {
		start, err := model.ParseDate(startRaw)
		if err != nil {
			writeServiceError(w, r, h.logger, &service.ValidationError{Field: "startDate", Reason: "must be a date in YYYY-MM-DD format"})
			return
		}
		end, err := model.ParseDate(endRaw)
		if err != nil {
			writeServiceError(w, r, h.logger, &service.ValidationError{Field: "endDate", Reason: "must be a date in YYYY-MM-DD format"})
			return
		}
		dr = &model.DateRange{Start: start, End: end}
	}

	summary, err := h.svc.Summarize(r.Context(), user, dr)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToSummaryResponse(summary))
}

// Report handles GET /api/v1/report?month=&year=.
func (h *SummaryHandler) Report(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()

	if query.Get("month") == "" {
		writeServiceError(w, r, h.logger, &service.ValidationError{Field: "month", Reason: "is required"})
		return
	}
	if query.Get("year") == "" {
		writeServiceError(w, r, h.logger, &service.ValidationError{Field: "year", Reason: "is required"})
		return
	}

	month, err := intParam(query.Get("month"), "month")
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	year, err := intParam(query.Get("year"), "year")
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	totals, err := h.svc.MonthlyCategoryReport(r.Context(), user, month, year)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToReportResponse(totals))
}
