package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/finledger/finledger/internal/handler/dto"
	"github.com/finledger/finledger/internal/model"
	"github.com/finledger/finledger/internal/service"
)

// TransactionHandler handles HTTP requests for ledger operations.
type TransactionHandler struct {
	svc    *service.LedgerService
	logger *slog.Logger
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(svc *service.LedgerService, logger *slog.Logger) *TransactionHandler {
	return &TransactionHandler{
		svc:    svc,
		logger: logger,
	}
}

// Create handles POST /api/v1/transactions.
func (h *TransactionHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req dto.TransactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	input, err := toInput(req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	id, err := h.svc.Create(r.Context(), user, input)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.CreatedTransactionResponse{
		Message:       "Transaction created successfully",
		TransactionID: id,
	})
}

// List handles GET /api/v1/transactions?page=&limit=.
// pageSize is accepted as an alias of limit.
func (h *TransactionHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()

	page, err := intParam(query.Get("page"), "page")
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	sizeRaw := query.Get("limit")
	if sizeRaw == "" {
		sizeRaw = query.Get("pageSize")
	}
	pageSize, err := intParam(sizeRaw, "limit")
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	page, pageSize, err = service.NormalizePage(page, pageSize)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	txs, err := h.svc.List(r.Context(), user, page, pageSize)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToTransactionListResponse(txs, page, pageSize))
}

// Get handles GET /api/v1/transactions/{id}.
func (h *TransactionHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	tx, err := h.svc.Get(r.Context(), user, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToTransactionResponse(tx))
}

// Update handles PUT /api/v1/transactions/{id}.
func (h *TransactionHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req dto.TransactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	input, err := toInput(req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	if err := h.svc.Update(r.Context(), user, chi.URLParam(r, "id"), input); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.MessageResponse{Message: "Transaction updated successfully"})
}

// Delete handles DELETE /api/v1/transactions/{id}.
func (h *TransactionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	if err := h.svc.Delete(r.Context(), user, chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.MessageResponse{Message: "Transaction deleted successfully"})
}

// toInput parses the wire representation. Empty fields stay zero so the
// service reports them as missing.
func toInput(req dto.TransactionRequest) (service.TransactionInput, error) {
	input := service.TransactionInput{
		Kind:        model.Kind(req.Type),
		Category:    req.Category,
		Description: req.Description,
	}

	if req.Amount != "" {
		amount, err := decimal.NewFromString(req.Amount.String())
		if err != nil {
			return input, &service.ValidationError{Field: "amount", Reason: "must be a number"}
		}
		input.Amount = amount
	}

	if req.Date != "" {
		date, err := model.ParseDate(req.Date)
		if err != nil {
			return input, &service.ValidationError{Field: "date", Reason: "must be a date in YYYY-MM-DD format"}
		}
		input.Date = date
	}

	return input, nil
}

// intParam parses an optional integer query parameter. Absent means 0.
func intParam(raw, field string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &service.ValidationError{Field: field, Reason: "must be an integer"}
	}
	return n, nil
}
