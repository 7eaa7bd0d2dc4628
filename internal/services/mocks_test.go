package services

import (
	"context"
	"sync"
	"time"

	"event-signup-backend/internal/models"

	"github.com/stretchr/testify/mock"
)

type mockEventRepo struct{ mock.Mock }

func (m *mockEventRepo) ListUpcoming(ctx context.Context, now time.Time) ([]*models.Event, error) {
	args := m.Called(ctx, now)
	events, _ := args.Get(0).([]*models.Event)
	return events, args.Error(1)
}

func (m *mockEventRepo) ListUpcomingForUser(ctx context.Context, userID string, now time.Time) ([]*models.Event, error) {
	args := m.Called(ctx, userID, now)
	events, _ := args.Get(0).([]*models.Event)
	return events, args.Error(1)
}

func (m *mockEventRepo) GetByID(ctx context.Context, id string) (*models.Event, error) {
	args := m.Called(ctx, id)
	event, _ := args.Get(0).(*models.Event)
	return event, args.Error(1)
}

func (m *mockEventRepo) Create(ctx context.Context, event *models.Event) error {
	return m.Called(ctx, event).Error(0)
}

func (m *mockEventRepo) CreateWithGroups(ctx context.Context, organizer string, input models.CreateEventInput, headerImage *string) (string, error) {
	args := m.Called(ctx, organizer, input, headerImage)
	return args.String(0), args.Error(1)
}

type mockRegistrationRepo struct{ mock.Mock }

func (m *mockRegistrationRepo) Create(ctx context.Context, userID, eventID string, groupID *string) (*models.EventRegistration, error) {
	args := m.Called(ctx, userID, eventID, groupID)
	reg, _ := args.Get(0).(*models.EventRegistration)
	return reg, args.Error(1)
}

func (m *mockRegistrationRepo) Count(ctx context.Context, eventID, userID string) (int, error) {
	args := m.Called(ctx, eventID, userID)
	return args.Int(0), args.Error(1)
}

type mockProfileRepo struct{ mock.Mock }

func (m *mockProfileRepo) GetByUserID(ctx context.Context, userID string) (*models.Profile, error) {
	args := m.Called(ctx, userID)
	profile, _ := args.Get(0).(*models.Profile)
	return profile, args.Error(1)
}

func (m *mockProfileRepo) Update(ctx context.Context, userID string, input models.UpdateProfileInput) (*models.Profile, error) {
	args := m.Called(ctx, userID, input)
	profile, _ := args.Get(0).(*models.Profile)
	return profile, args.Error(1)
}

func (m *mockProfileRepo) UpdatePushToken(ctx context.Context, userID string, pushToken *string) error {
	return m.Called(ctx, userID, pushToken).Error(0)
}

type mockUserRepo struct{ mock.Mock }

func (m *mockUserRepo) Upsert(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

func (m *mockUserRepo) CreateLoginToken(ctx context.Context, tokenHash, email string, expiresAt time.Time) error {
	return m.Called(ctx, tokenHash, email, expiresAt).Error(0)
}

func (m *mockUserRepo) ConsumeLoginToken(ctx context.Context, tokenHash string) (string, error) {
	args := m.Called(ctx, tokenHash)
	return args.String(0), args.Error(1)
}

func (m *mockUserRepo) CreateSession(ctx context.Context, session *models.Session) error {
	return m.Called(ctx, session).Error(0)
}

func (m *mockUserRepo) SessionActive(ctx context.Context, sessionID, userID string) (bool, error) {
	args := m.Called(ctx, sessionID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *mockUserRepo) DeleteSession(ctx context.Context, sessionID string) error {
	return m.Called(ctx, sessionID).Error(0)
}

type mockImageUploader struct{ mock.Mock }

func (m *mockImageUploader) Upload(ctx context.Context, img *models.ImageUpload) (string, error) {
	args := m.Called(ctx, img)
	return args.String(0), args.Error(1)
}

// recordingMailer keeps the last link it was asked to send
type recordingMailer struct {
	email string
	link  string
	err   error
}

func (r *recordingMailer) SendLoginLink(ctx context.Context, email, link string) error {
	r.email, r.link = email, link
	return r.err
}

type recordingNotifier struct {
	mu   sync.Mutex
	regs []*models.EventRegistration
}

func (r *recordingNotifier) RegistrationCreated(ctx context.Context, event *models.Event, reg *models.EventRegistration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.regs = append(r.regs, reg)
}

type recordingAlerter struct {
	messages map[string][]string
}

func newRecordingAlerter() *recordingAlerter {
	return &recordingAlerter{messages: make(map[string][]string)}
}

func (r *recordingAlerter) NotifyError(userID, message string) {
	r.messages[userID] = append(r.messages[userID], message)
}

type recordingBroadcaster struct {
	profiles map[string]*models.Profile
}

func (r *recordingBroadcaster) NotifyProfileUpdated(userID string, profile *models.Profile) {
	if r.profiles == nil {
		r.profiles = make(map[string]*models.Profile)
	}
	r.profiles[userID] = profile
}
