package services

import (
	"context"
	"time"

	"event-signup-backend/internal/models"
)

// EventRepo is the event storage used by EventService
type EventRepo interface {
	ListUpcoming(ctx context.Context, now time.Time) ([]*models.Event, error)
	ListUpcomingForUser(ctx context.Context, userID string, now time.Time) ([]*models.Event, error)
	GetByID(ctx context.Context, id string) (*models.Event, error)
	Create(ctx context.Context, event *models.Event) error
	CreateWithGroups(ctx context.Context, organizer string, input models.CreateEventInput, headerImage *string) (string, error)
}

// RegistrationRepo is the registration storage used by EventService
type RegistrationRepo interface {
	Create(ctx context.Context, userID, eventID string, groupID *string) (*models.EventRegistration, error)
	Count(ctx context.Context, eventID, userID string) (int, error)
}

// ProfileRepo is the profile storage used by ProfileService
type ProfileRepo interface {
	GetByUserID(ctx context.Context, userID string) (*models.Profile, error)
	Update(ctx context.Context, userID string, input models.UpdateProfileInput) (*models.Profile, error)
	UpdatePushToken(ctx context.Context, userID string, pushToken *string) error
}

// UserRepo is the account storage used by AuthService
type UserRepo interface {
	Upsert(ctx context.Context, email string) (*models.User, error)
	CreateLoginToken(ctx context.Context, tokenHash, email string, expiresAt time.Time) error
	ConsumeLoginToken(ctx context.Context, tokenHash string) (string, error)
	CreateSession(ctx context.Context, session *models.Session) error
	SessionActive(ctx context.Context, sessionID, userID string) (bool, error)
	DeleteSession(ctx context.Context, sessionID string) error
}

// ImageUploader stores header images and returns their storage key
type ImageUploader interface {
	Upload(ctx context.Context, img *models.ImageUpload) (string, error)
}

// Mailer delivers magic login links
type Mailer interface {
	SendLoginLink(ctx context.Context, email, link string) error
}

// RegistrationNotifier is told about every new registration
type RegistrationNotifier interface {
	RegistrationCreated(ctx context.Context, event *models.Event, reg *models.EventRegistration)
}

// Alerter shows a transient notification to a connected user
type Alerter interface {
	NotifyError(userID, message string)
}

// ProfileBroadcaster pushes a changed profile to the user's live clients
type ProfileBroadcaster interface {
	NotifyProfileUpdated(userID string, profile *models.Profile)
}
