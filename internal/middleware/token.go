package middleware

import (
	"errors"
	"net/http"
	"strings"
)

// UserIDHeader carries the user token when no Authorization header is sent.
const UserIDHeader = "X-User-ID"

// MaxTokenLength bounds the token accepted before any store lookup.
const MaxTokenLength = 128

// Token validation errors.
var (
	ErrTokenMissing = errors.New("token is missing")
	ErrTokenTooLong = errors.New("token exceeds maximum length")
	ErrTokenInvalid = errors.New("token contains invalid characters")
)

// ExtractToken returns the user token from the request.
// "Authorization: Bearer <token>" wins over the X-User-ID header.
func ExtractToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if scheme, token, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}
	return strings.TrimSpace(r.Header.Get(UserIDHeader))
}

// ValidateToken rejects tokens that cannot be a user ID without touching the store.
func ValidateToken(token string) error {
	if token == "" {
		return ErrTokenMissing
	}
	if len(token) > MaxTokenLength {
		return ErrTokenTooLong
	}
	if !isPrintableASCII(token) {
		return ErrTokenInvalid
	}
	return nil
}
