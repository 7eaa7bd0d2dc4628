package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"event-signup-backend/internal/auth"
	"event-signup-backend/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// EventService handles event listing, creation and registration
type EventService struct {
	eventRepo EventRepo
	regRepo   RegistrationRepo
	images    ImageUploader
	notifier  RegistrationNotifier
	alerts    Alerter
	now       func() time.Time
}

// NewEventService creates a new event service
func NewEventService(
	eventRepo EventRepo,
	regRepo RegistrationRepo,
	images ImageUploader,
	notifier RegistrationNotifier,
	alerts Alerter,
) *EventService {
	return &EventService{
		eventRepo: eventRepo,
		regRepo:   regRepo,
		images:    images,
		notifier:  notifier,
		alerts:    alerts,
		now:       time.Now,
	}
}

// FetchEvents returns all open events that started at most an hour ago
func (s *EventService) FetchEvents(ctx context.Context) ([]*models.Event, error) {
	events, err := s.eventRepo.ListUpcoming(ctx, s.now())
	if err == nil && events == nil {
		err = models.ErrNoResultSet
	}
	if err != nil {
		s.alert(ctx, "Could not load events")
		return nil, fmt.Errorf("failed to fetch events: %w", err)
	}
	return events, nil
}

// FetchUserEvents returns the upcoming events the current user registered for
func (s *EventService) FetchUserEvents(ctx context.Context) ([]*models.Event, error) {
	userID := auth.UserID(ctx)
	if userID == "" {
		return nil, models.ErrNotAuthenticated
	}

	events, err := s.eventRepo.ListUpcomingForUser(ctx, userID, s.now())
	if err == nil && events == nil {
		err = models.ErrNoResultSet
	}
	if err != nil {
		s.alert(ctx, "Could not load your events")
		return nil, fmt.Errorf("failed to fetch user events: %w", err)
	}
	return events, nil
}

// FetchEventByID returns a single event
func (s *EventService) FetchEventByID(ctx context.Context, id string) (*models.Event, error) {
	event, err := s.eventRepo.GetByID(ctx, id)
	if err != nil {
		if !errors.Is(err, models.ErrEventNotFound) {
			s.alert(ctx, "Could not load event")
		}
		return nil, fmt.Errorf("failed to fetch event %s: %w", id, err)
	}
	return event, nil
}

// CreateEvent creates a plain or grouped event organised by the current user
func (s *EventService) CreateEvent(ctx context.Context, input models.CreateEventInput) (*models.Event, error) {
	userID := auth.UserID(ctx)
	if userID == "" {
		return nil, models.ErrNotAuthenticated
	}

	input.Title = strings.TrimSpace(input.Title)
	input.Location = strings.TrimSpace(input.Location)
	if err := validateEventInput(input); err != nil {
		return nil, err
	}

	var headerImage *string
	if input.HeaderImage != nil {
		key, err := s.images.Upload(ctx, input.HeaderImage)
		if err != nil {
			return nil, err
		}
		headerImage = &key
	}

	if input.UseGroups {
		eventID, err := s.eventRepo.CreateWithGroups(ctx, userID, input, headerImage)
		if err != nil {
			return nil, err
		}
		log.Info().
			Str("event_id", eventID).
			Str("organizer", userID).
			Msg("Grouped event created")
		return s.eventRepo.GetByID(ctx, eventID)
	}

	event := &models.Event{
		ID:              uuid.New().String(),
		Organizer:       userID,
		Title:           input.Title,
		Description:     input.Description,
		HeaderImage:     headerImage,
		Datetime:        input.Datetime,
		Location:        input.Location,
		MaxParticipants: input.MaxParticipants,
	}
	if err := s.eventRepo.Create(ctx, event); err != nil {
		return nil, err
	}

	log.Info().
		Str("event_id", event.ID).
		Str("organizer", userID).
		Msg("Event created")

	return event, nil
}

func validateEventInput(input models.CreateEventInput) error {
	if input.Title == "" {
		return fmt.Errorf("%w: title is required", models.ErrValidation)
	}
	if input.Location == "" {
		return fmt.Errorf("%w: location is required", models.ErrValidation)
	}
	if input.Datetime.IsZero() {
		return fmt.Errorf("%w: datetime is required", models.ErrValidation)
	}
	if input.MaxParticipants < 0 {
		return fmt.Errorf("%w: max_participants must not be negative", models.ErrValidation)
	}
	if input.UseGroups {
		if strings.TrimSpace(input.GroupA.Title) == "" || strings.TrimSpace(input.GroupB.Title) == "" {
			return fmt.Errorf("%w: both group titles are required", models.ErrValidation)
		}
	}
	return nil
}

// RegisterForEvent registers the current user, in groupID when the event uses groups
func (s *EventService) RegisterForEvent(ctx context.Context, eventID, groupID string) (*models.EventRegistration, error) {
	userID := auth.UserID(ctx)
	if userID == "" {
		return nil, models.ErrNotAuthenticated
	}

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !event.IsOpen() {
		return nil, models.ErrEventClosed
	}

	var group *string
	if event.UsesGroups() {
		if !event.GroupPair.Has(groupID) {
			return nil, models.ErrInvalidGroup
		}
		group = &groupID
	} else if groupID != "" {
		return nil, models.ErrInvalidGroup
	}

	reg, err := s.regRepo.Create(ctx, userID, eventID, group)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("registration_id", reg.ID).
		Str("event_id", eventID).
		Str("user_id", userID).
		Msg("Registered for event")

	s.notifier.RegistrationCreated(ctx, event, reg)

	return reg, nil
}

// IsRegisteredForEvent reports whether the current user holds a registration.
// Anonymous callers are never registered.
func (s *EventService) IsRegisteredForEvent(ctx context.Context, eventID string) (bool, error) {
	userID := auth.UserID(ctx)
	if userID == "" {
		return false, nil
	}

	count, err := s.regRepo.Count(ctx, eventID, userID)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *EventService) alert(ctx context.Context, message string) {
	if userID := auth.UserID(ctx); userID != "" {
		s.alerts.NotifyError(userID, message)
	}
}
