package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"event-signup-backend/internal/auth"
	"event-signup-backend/internal/models"

	"github.com/rs/zerolog/log"
)

// TokenValidator resolves a bearer token into user and session ids
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (string, string, error)
}

// Authenticate attaches the identity of a valid bearer token to the request.
// Requests without a token pass through anonymously; guarded operations
// reject them further down. A malformed or rejected token is a 401; a failure
// to check the session is a 500.
func Authenticate(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				next.ServeHTTP(w, r)
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				respondError(w, "Invalid authorization header format", http.StatusUnauthorized)
				return
			}

			userID, sessionID, err := validator.ValidateToken(r.Context(), parts[1])
			if err != nil {
				if IsTokenRejected(err) {
					log.Debug().Err(err).Msg("Rejected bearer token")
					respondError(w, "Invalid token", http.StatusUnauthorized)
					return
				}
				log.Error().Err(err).Str("path", r.URL.Path).Msg("Failed to validate bearer token")
				respondError(w, "Failed to validate token", http.StatusInternalServerError)
				return
			}

			ctx := auth.WithIdentity(r.Context(), userID, sessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IsTokenRejected reports whether err means the token itself is not acceptable,
// as opposed to the session store being unavailable
func IsTokenRejected(err error) bool {
	return errors.Is(err, models.ErrInvalidToken) || errors.Is(err, models.ErrSessionNotFound)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
