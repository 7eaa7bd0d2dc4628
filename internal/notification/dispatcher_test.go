package notification

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"event-signup-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingHub struct {
	mu         sync.Mutex
	organizers []string
}

func (h *recordingHub) NotifyRegistrationCreated(organizerID string, event *models.Event, reg *models.EventRegistration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.organizers = append(h.organizers, organizerID)
}

type staticTokens struct {
	tokens map[string]string
	err    error
}

func (s staticTokens) PushToken(ctx context.Context, userID string) (string, error) {
	return s.tokens[userID], s.err
}

type recordingPusher struct {
	mu     sync.Mutex
	tokens []string
	bodies []string
}

func (p *recordingPusher) Push(ctx context.Context, deviceToken, title, body string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tokens = append(p.tokens, deviceToken)
	p.bodies = append(p.bodies, body)
	return nil
}

func (p *recordingPusher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.tokens)
}

func TestDispatcher_RegistrationCreated(t *testing.T) {
	hub := &recordingHub{}
	push := &recordingPusher{}
	d := NewDispatcher(hub, staticTokens{tokens: map[string]string{"organizer": "device"}}, push)

	event := &models.Event{ID: "e1", Organizer: "organizer", Title: "Picnic"}
	d.RegistrationCreated(context.Background(), event, &models.EventRegistration{ID: "r1", UserID: "u1"})

	assert.Equal(t, []string{"organizer"}, hub.organizers)
	require.Eventually(t, func() bool { return push.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "device", push.tokens[0])
	assert.Contains(t, push.bodies[0], "Picnic")
}

func TestDispatcher_SkipsOrganizerSelfRegistration(t *testing.T) {
	hub := &recordingHub{}
	push := &recordingPusher{}
	d := NewDispatcher(hub, staticTokens{tokens: map[string]string{"organizer": "device"}}, push)

	event := &models.Event{ID: "e1", Organizer: "organizer"}
	d.RegistrationCreated(context.Background(), event, &models.EventRegistration{ID: "r1", UserID: "organizer"})

	assert.Empty(t, hub.organizers)
	assert.Never(t, func() bool { return push.count() > 0 }, 50*time.Millisecond, 5*time.Millisecond)
}

func TestDispatcher_NoPushWithoutToken(t *testing.T) {
	for name, tokens := range map[string]staticTokens{
		"no token":     {tokens: map[string]string{}},
		"lookup error": {err: errors.New("db down")},
	} {
		t.Run(name, func(t *testing.T) {
			hub := &recordingHub{}
			push := &recordingPusher{}
			d := NewDispatcher(hub, tokens, push)

			d.RegistrationCreated(context.Background(), &models.Event{ID: "e1", Organizer: "organizer"}, &models.EventRegistration{UserID: "u1"})

			assert.Len(t, hub.organizers, 1)
			assert.Never(t, func() bool { return push.count() > 0 }, 50*time.Millisecond, 5*time.Millisecond)
		})
	}
}

func TestAPNSPusher_DisabledWithoutCertificate(t *testing.T) {
	p, err := NewAPNSPusher("", "", "com.example.events", false)
	require.NoError(t, err)

	assert.NoError(t, p.Push(context.Background(), "device", "title", "body"))
}
