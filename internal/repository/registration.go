package repository

import (
	"context"
	"errors"
	"fmt"

	"event-signup-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RegistrationRepository handles database operations for event registrations
type RegistrationRepository struct {
	db *pgxpool.Pool
}

// NewRegistrationRepository creates a new registration repository
func NewRegistrationRepository(db *pgxpool.Pool) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

// Create registers userID for the event. The row is inserted without user_id;
// the set_user_id trigger stamps it from the transaction's session user.
func (r *RegistrationRepository) Create(ctx context.Context, userID, eventID string, groupID *string) (*models.EventRegistration, error) {
	reg := &models.EventRegistration{EventID: eventID, GroupID: groupID}

	err := withUserTx(ctx, r.db, userID, func(tx pgx.Tx) error {
		var maxParticipants int
		err := tx.QueryRow(ctx,
			`SELECT max_participants FROM events WHERE id = $1 FOR UPDATE`, eventID,
		).Scan(&maxParticipants)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return models.ErrEventNotFound
			}
			return fmt.Errorf("failed to lock event: %w", err)
		}

		if maxParticipants > 0 {
			var registered int
			err := tx.QueryRow(ctx,
				`SELECT COUNT(*) FROM event_registrations WHERE event_id = $1`, eventID,
			).Scan(&registered)
			if err != nil {
				return fmt.Errorf("failed to count registrations: %w", err)
			}
			if registered >= maxParticipants {
				return models.ErrEventFull
			}
		}

		query := `
			INSERT INTO event_registrations (event_id, group_id)
			VALUES ($1, $2)
			RETURNING id::text, user_id::text, present, created_at
		`
		err = tx.QueryRow(ctx, query, eventID, groupID).Scan(
			&reg.ID, &reg.UserID, &reg.Present, &reg.CreatedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return models.ErrAlreadyRegistered
			}
			return fmt.Errorf("failed to create registration: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reg, nil
}

// Count returns how many registrations userID holds for the event
func (r *RegistrationRepository) Count(ctx context.Context, eventID, userID string) (int, error) {
	query := `SELECT COUNT(*) FROM event_registrations WHERE event_id = $1 AND user_id = $2`
	var count int
	if err := r.db.QueryRow(ctx, query, eventID, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count registrations: %w", err)
	}
	return count, nil
}
