package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/finledger/finledger/internal/handler/dto"
	"github.com/finledger/finledger/internal/model"
)

// CategoryLister reads the category lookup table.
type CategoryLister interface {
	ListCategories(ctx context.Context) ([]*model.Category, error)
}

// CategoryHandler serves the category table.
type CategoryHandler struct {
	store  CategoryLister
	logger *slog.Logger
}

// NewCategoryHandler creates a new CategoryHandler.
func NewCategoryHandler(store CategoryLister, logger *slog.Logger) *CategoryHandler {
	return &CategoryHandler{store: store, logger: logger}
}

// List handles GET /api/v1/categories.
func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	if _, ok := currentUser(w, r); !ok {
		return
	}

	categories, err := h.store.ListCategories(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, fmt.Errorf("failed to list categories: %w", err))
		return
	}

	writeJSON(w, http.StatusOK, dto.ToCategoryResponses(categories))
}
