package repository

import (
	"context"
	"errors"
	"fmt"

	"event-signup-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ProfileRepository handles database operations for profiles
type ProfileRepository struct {
	db *pgxpool.Pool
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// GetByUserID retrieves the profile of a user
func (r *ProfileRepository) GetByUserID(ctx context.Context, userID string) (*models.Profile, error) {
	query := `
		SELECT user_id::text, email, full_name, description, push_token
		FROM profiles
		WHERE user_id = $1
	`
	var p models.Profile
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&p.UserID, &p.Email, &p.FullName, &p.Description, &p.PushToken,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return &p, nil
}

// Update writes the editable fields and returns the stored row
func (r *ProfileRepository) Update(ctx context.Context, userID string, input models.UpdateProfileInput) (*models.Profile, error) {
	query := `
		UPDATE profiles
		SET full_name = $2, description = $3
		WHERE user_id = $1
		RETURNING user_id::text, email, full_name, description, push_token
	`
	var p models.Profile
	err := r.db.QueryRow(ctx, query, userID, input.FullName, input.Description).Scan(
		&p.UserID, &p.Email, &p.FullName, &p.Description, &p.PushToken,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return &p, nil
}

// UpdatePushToken updates the push token for a user
func (r *ProfileRepository) UpdatePushToken(ctx context.Context, userID string, pushToken *string) error {
	query := `UPDATE profiles SET push_token = $1 WHERE user_id = $2`
	result, err := r.db.Exec(ctx, query, pushToken, userID)
	if err != nil {
		return fmt.Errorf("failed to update push token: %w", err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrProfileNotFound
	}
	return nil
}
