package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"event-signup-backend/internal/models"
	"event-signup-backend/internal/timeutil"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// EventRepository handles database operations for events and their groups
type EventRepository struct {
	db *pgxpool.Pool
}

// NewEventRepository creates a new event repository
func NewEventRepository(db *pgxpool.Pool) *EventRepository {
	return &EventRepository{db: db}
}

const eventColumns = `
	e.id::text, e.organizer::text, e.title, e.description, e.header_image, e.datetime,
	e.location, e.max_participants, e.is_ended, e.is_cancelled, e.created_at,
	p.id::text, ga.id::text, ga.title, ga.description, gb.id::text, gb.title, gb.description`

const eventJoins = `
	LEFT JOIN event_group_pairs p ON p.id = e.event_group_pair
	LEFT JOIN groups ga ON ga.id = p.group_a
	LEFT JOIN groups gb ON gb.id = p.group_b`

// ListUpcoming returns open events starting after the listing cutoff, oldest first
func (r *EventRepository) ListUpcoming(ctx context.Context, now time.Time) ([]*models.Event, error) {
	query := `SELECT` + eventColumns + `
		FROM events e` + eventJoins + `
		WHERE NOT e.is_cancelled
		  AND NOT e.is_ended
		  AND e.datetime > $1
		ORDER BY e.datetime ASC`

	rows, err := r.db.Query(ctx, query, timeutil.ListingCutoff(now))
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return collectEvents(rows)
}

// ListUpcomingForUser returns the upcoming events the user is registered for
func (r *EventRepository) ListUpcomingForUser(ctx context.Context, userID string, now time.Time) ([]*models.Event, error) {
	query := `SELECT` + eventColumns + `
		FROM events e
		INNER JOIN event_registrations er ON er.event_id = e.id AND er.user_id = $2` + eventJoins + `
		WHERE NOT e.is_cancelled
		  AND NOT e.is_ended
		  AND e.datetime > $1
		ORDER BY e.datetime ASC`

	rows, err := r.db.Query(ctx, query, timeutil.ListingCutoff(now), userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user events: %w", err)
	}
	return collectEvents(rows)
}

// GetByID retrieves an event by ID
func (r *EventRepository) GetByID(ctx context.Context, id string) (*models.Event, error) {
	query := `SELECT` + eventColumns + `
		FROM events e` + eventJoins + `
		WHERE e.id = $1`

	event, err := scanEvent(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return event, nil
}

// Create inserts a plain event. The group pair column is always cleared:
// pairs are only created by CreateWithGroups.
func (r *EventRepository) Create(ctx context.Context, event *models.Event) error {
	query := `
		INSERT INTO events (id, organizer, title, description, header_image, datetime,
		                    location, max_participants, event_group_pair)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULL)
		RETURNING created_at
	`
	err := r.db.QueryRow(ctx, query,
		event.ID, event.Organizer, event.Title, event.Description, event.HeaderImage,
		event.Datetime, event.Location, event.MaxParticipants,
	).Scan(&event.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}
	event.GroupPair = nil
	return nil
}

// CreateWithGroups creates the event, both groups and their pairing in one
// call to create_event_with_groups and returns the new event id
func (r *EventRepository) CreateWithGroups(ctx context.Context, organizer string, input models.CreateEventInput, headerImage *string) (string, error) {
	query := `
		SELECT create_event_with_groups(
			title               => $1,
			description         => $2,
			header_image        => $3,
			datetime            => $4::timestamptz,
			location            => $5,
			max_participants    => $6,
			"groupATitle"       => $7,
			"groupADescription" => $8,
			"groupBTitle"       => $9,
			"groupBDescription" => $10
		)::text
	`
	var eventID string
	err := withUserTx(ctx, r.db, organizer, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, query,
			input.Title, input.Description, headerImage,
			timeutil.FormatISO(input.Datetime), input.Location, input.MaxParticipants,
			input.GroupA.Title, input.GroupA.Description,
			input.GroupB.Title, input.GroupB.Description,
		).Scan(&eventID)
	})
	if err != nil {
		return "", fmt.Errorf("failed to create event with groups: %w", err)
	}
	return eventID, nil
}

func collectEvents(rows pgx.Rows) ([]*models.Event, error) {
	defer rows.Close()

	events := make([]*models.Event, 0)
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}
	return events, nil
}

func scanEvent(row pgx.Row) (*models.Event, error) {
	var (
		e                  models.Event
		pairID             *string
		aID, aTitle, aDesc *string
		bID, bTitle, bDesc *string
	)
	err := row.Scan(
		&e.ID, &e.Organizer, &e.Title, &e.Description, &e.HeaderImage, &e.Datetime,
		&e.Location, &e.MaxParticipants, &e.IsEnded, &e.IsCancelled, &e.CreatedAt,
		&pairID, &aID, &aTitle, &aDesc, &bID, &bTitle, &bDesc,
	)
	if err != nil {
		return nil, err
	}

	if pairID != nil && aID != nil && bID != nil {
		e.GroupPair = &models.GroupPair{
			ID:     *pairID,
			GroupA: models.Group{ID: *aID, Title: deref(aTitle), Description: deref(aDesc)},
			GroupB: models.Group{ID: *bID, Title: deref(bTitle), Description: deref(bDesc)},
		}
	}
	return &e, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
