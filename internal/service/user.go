package service

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/finledger/finledger/internal/auth"
	"github.com/finledger/finledger/internal/model"
	"github.com/finledger/finledger/internal/repository"
)

const (
	maxNameLength       = 100
	minCredentialLength = 8
	maxCredentialLength = 128
)

// UserService registers users.
type UserService struct {
	store  repository.Store
	logger *slog.Logger
}

// NewUserService creates a new UserService.
func NewUserService(store repository.Store, logger *slog.Logger) *UserService {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserService{store: store, logger: logger}
}

// Register creates a user and returns its ID. The ID is the token the
// user presents on every ledger request.
func (s *UserService) Register(ctx context.Context, name, credential string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", invalid("name", "is required")
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return "", invalid("name", "must be at most 100 characters")
	}
	if credential == "" {
		return "", invalid("password", "is required")
	}
	if len(credential) < minCredentialLength {
		return "", invalid("password", "must be at least 8 characters")
	}
	if len(credential) > maxCredentialLength {
		return "", invalid("password", "must be at most 128 characters")
	}

	hash, err := auth.HashCredential(credential)
	if err != nil {
		return "", err
	}

	user := &model.User{
		ID:             uuid.NewString(),
		Name:           name,
		CredentialHash: hash,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return "", storeError("create user", err)
	}

	s.logger.InfoContext(ctx, "user_registered", "user_id", user.ID)
	return user.ID, nil
}
