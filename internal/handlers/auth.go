package handlers

import (
	"context"
	"net/http"
	"strings"

	"event-signup-backend/internal/services"
)

// AuthSvc is the auth service used by AuthHandler
type AuthSvc interface {
	RequestLogin(ctx context.Context, email string) error
	VerifyLogin(ctx context.Context, token string) (*services.LoginResult, error)
	Logout(ctx context.Context) error
	CurrentSession(ctx context.Context) (*services.SessionInfo, error)
}

// LoginThrottle limits magic link requests per email address
type LoginThrottle interface {
	Allow(key string) bool
}

// AuthHandler handles login and session requests
type AuthHandler struct {
	auth   AuthSvc
	emails LoginThrottle
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(auth AuthSvc, emails LoginThrottle) *AuthHandler {
	return &AuthHandler{auth: auth, emails: emails}
}

// LoginRequest represents the request body for requesting a magic link
type LoginRequest struct {
	Email string `json:"email"`
}

// VerifyRequest represents the request body for redeeming a magic link
type VerifyRequest struct {
	Token string `json:"token"`
}

// RequestLogin handles POST /api/v1/auth/login
func (h *AuthHandler) RequestLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if email := strings.ToLower(strings.TrimSpace(req.Email)); email != "" && !h.emails.Allow(email) {
		w.Header().Set("Retry-After", "60")
		respondError(w, "Too many login requests for this email", http.StatusTooManyRequests)
		return
	}

	if err := h.auth.RequestLogin(r.Context(), req.Email); err != nil {
		handleError(w, r, err, "Failed to send login link")
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]string{"status": "sent"})
}

// Verify handles POST /api/v1/auth/verify
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.auth.VerifyLogin(r.Context(), req.Token)
	if err != nil {
		handleError(w, r, err, "Failed to verify login")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Logout handles POST /api/v1/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Logout(r.Context()); err != nil {
		handleError(w, r, err, "Failed to log out")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Session handles GET /api/v1/auth/session
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	info, err := h.auth.CurrentSession(r.Context())
	if err != nil {
		handleError(w, r, err, "Failed to read session")
		return
	}
	respondJSON(w, http.StatusOK, info)
}
