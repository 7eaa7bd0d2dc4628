// Package notification delivers login emails and tells organizers about new
// registrations over the websocket hub and APNs.
package notification

import (
	"context"
	"fmt"

	"event-signup-backend/internal/models"

	"github.com/rs/zerolog/log"
)

type organizerHub interface {
	NotifyRegistrationCreated(organizerID string, event *models.Event, reg *models.EventRegistration)
}

type pushTokens interface {
	PushToken(ctx context.Context, userID string) (string, error)
}

type pusher interface {
	Push(ctx context.Context, deviceToken, title, body string) error
}

// Dispatcher fans a new registration out to the organizer's channels
type Dispatcher struct {
	hub    organizerHub
	tokens pushTokens
	push   pusher
}

// NewDispatcher creates a registration dispatcher
func NewDispatcher(hub organizerHub, tokens pushTokens, push pusher) *Dispatcher {
	return &Dispatcher{hub: hub, tokens: tokens, push: push}
}

// RegistrationCreated notifies the organizer. The push runs in the background
// and never fails the registration.
func (d *Dispatcher) RegistrationCreated(ctx context.Context, event *models.Event, reg *models.EventRegistration) {
	if event.Organizer == reg.UserID {
		return
	}

	d.hub.NotifyRegistrationCreated(event.Organizer, event, reg)

	go d.pushOrganizer(context.WithoutCancel(ctx), event)
}

func (d *Dispatcher) pushOrganizer(ctx context.Context, event *models.Event) {
	token, err := d.tokens.PushToken(ctx, event.Organizer)
	if err != nil {
		log.Error().Err(err).Str("user_id", event.Organizer).Msg("Failed to get organizer push token")
		return
	}
	if token == "" {
		return
	}

	body := fmt.Sprintf("Someone registered for %s", event.Title)
	if err := d.push.Push(ctx, token, "New registration", body); err != nil {
		log.Error().
			Err(err).
			Str("user_id", event.Organizer).
			Str("event_id", event.ID).
			Msg("Failed to push registration notification")
	}
}
