package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"event-signup-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserRepository handles users, sessions and login tokens
type UserRepository struct {
	db *pgxpool.Pool
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

// Upsert returns the user with the given email, creating it when missing.
// A new row fires the signup trigger that provisions the profile.
func (r *UserRepository) Upsert(ctx context.Context, email string) (*models.User, error) {
	query := `
		INSERT INTO users (email)
		VALUES ($1)
		ON CONFLICT (email) DO UPDATE SET email = EXCLUDED.email
		RETURNING id::text, email, created_at
	`
	var user models.User
	if err := r.db.QueryRow(ctx, query, email).Scan(&user.ID, &user.Email, &user.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}
	return &user, nil
}

// CreateLoginToken stores the hash of a magic link token
func (r *UserRepository) CreateLoginToken(ctx context.Context, tokenHash, email string, expiresAt time.Time) error {
	query := `
		INSERT INTO login_tokens (token_hash, email, expires_at)
		VALUES ($1, $2, $3)
	`
	if _, err := r.db.Exec(ctx, query, tokenHash, email, expiresAt); err != nil {
		return fmt.Errorf("failed to create login token: %w", err)
	}
	return nil
}

// ConsumeLoginToken marks an unused, unexpired token as used and returns its email
func (r *UserRepository) ConsumeLoginToken(ctx context.Context, tokenHash string) (string, error) {
	query := `
		UPDATE login_tokens
		SET used_at = now()
		WHERE token_hash = $1 AND used_at IS NULL AND expires_at > now()
		RETURNING email
	`
	var email string
	if err := r.db.QueryRow(ctx, query, tokenHash).Scan(&email); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", models.ErrInvalidLoginToken
		}
		return "", fmt.Errorf("failed to consume login token: %w", err)
	}
	return email, nil
}

// CreateSession creates a new session
func (r *UserRepository) CreateSession(ctx context.Context, session *models.Session) error {
	query := `
		INSERT INTO sessions (id, user_id, created_at, expires_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := r.db.Exec(ctx, query, session.ID, session.UserID, session.CreatedAt, session.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// SessionActive checks that a session exists for the user and has not expired
func (r *UserRepository) SessionActive(ctx context.Context, sessionID, userID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM sessions WHERE id = $1 AND user_id = $2 AND expires_at > now())`
	var exists bool
	if err := r.db.QueryRow(ctx, query, sessionID, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check session: %w", err)
	}
	return exists, nil
}

// DeleteSession deletes a session by ID
func (r *UserRepository) DeleteSession(ctx context.Context, sessionID string) error {
	result, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrSessionNotFound
	}
	return nil
}

// DeleteExpired removes expired sessions and spent login tokens
func (r *UserRepository) DeleteExpired(ctx context.Context) (int64, error) {
	sessions, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= now()`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	tokens, err := r.db.Exec(ctx, `DELETE FROM login_tokens WHERE expires_at <= now() OR used_at IS NOT NULL`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete spent login tokens: %w", err)
	}
	return sessions.RowsAffected() + tokens.RowsAffected(), nil
}
