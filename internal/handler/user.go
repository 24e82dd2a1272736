package handler

import (
	"log/slog"
	"net/http"

	"github.com/finledger/finledger/internal/handler/dto"
	"github.com/finledger/finledger/internal/service"
)

// UserHandler handles registration.
type UserHandler struct {
	svc    *service.UserService
	logger *slog.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(svc *service.UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{svc: svc, logger: logger}
}

// Register handles POST /api/v1/users (and the /api/v1/register alias).
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	id, err := h.svc.Register(r.Context(), req.Name, req.Password)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.RegisterResponse{
		Message: "User registered successfully",
		UserID:  id,
	})
}
