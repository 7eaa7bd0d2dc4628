package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"event-signup-backend/internal/auth"
	"event-signup-backend/internal/middleware"
	"event-signup-backend/internal/models"
	"event-signup-backend/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eventID = "7d0f5c2e-8c1a-4c36-9a55-2b1f4f1f9c01"

type stubEvents struct {
	events     []*models.Event
	err        error
	created    *models.CreateEventInput
	registered []string
	isReg      bool
}

func (s *stubEvents) FetchEvents(ctx context.Context) ([]*models.Event, error) {
	return s.events, s.err
}

func (s *stubEvents) FetchUserEvents(ctx context.Context) ([]*models.Event, error) {
	if auth.UserID(ctx) == "" {
		return nil, models.ErrNotAuthenticated
	}
	return s.events, s.err
}

func (s *stubEvents) FetchEventByID(ctx context.Context, id string) (*models.Event, error) {
	for _, e := range s.events {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, models.ErrEventNotFound
}

func (s *stubEvents) CreateEvent(ctx context.Context, input models.CreateEventInput) (*models.Event, error) {
	if auth.UserID(ctx) == "" {
		return nil, models.ErrNotAuthenticated
	}
	s.created = &input
	return &models.Event{ID: eventID, Organizer: auth.UserID(ctx), Title: input.Title, Datetime: input.Datetime}, nil
}

func (s *stubEvents) RegisterForEvent(ctx context.Context, eventID, groupID string) (*models.EventRegistration, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.registered = append(s.registered, groupID)
	return &models.EventRegistration{ID: "r1", EventID: eventID, UserID: auth.UserID(ctx)}, nil
}

func (s *stubEvents) IsRegisteredForEvent(ctx context.Context, eventID string) (bool, error) {
	return s.isReg, s.err
}

type stubImages struct{}

func (stubImages) URL(ctx context.Context, key string) (string, error) {
	return "https://cdn.example.com/" + key, nil
}

type stubProfiles struct {
	profile *models.Profile
	token   string
}

func (s *stubProfiles) ReadProfile(ctx context.Context) (*models.Profile, error) {
	if auth.UserID(ctx) == "" {
		return nil, models.ErrNotAuthenticated
	}
	return s.profile, nil
}

func (s *stubProfiles) UpdateProfile(ctx context.Context, input models.UpdateProfileInput) (*models.Profile, error) {
	if input.FullName == "" {
		return nil, models.ErrValidation
	}
	s.profile = &models.Profile{UserID: auth.UserID(ctx), FullName: input.FullName, Description: input.Description}
	return s.profile, nil
}

func (s *stubProfiles) UpdatePushToken(ctx context.Context, token string) error {
	s.token = token
	return nil
}

type stubAuth struct {
	emails []string
}

func (s *stubAuth) RequestLogin(ctx context.Context, email string) error {
	if email == "" {
		return models.ErrValidation
	}
	s.emails = append(s.emails, email)
	return nil
}

func (s *stubAuth) VerifyLogin(ctx context.Context, token string) (*services.LoginResult, error) {
	if token != "magic" {
		return nil, models.ErrInvalidLoginToken
	}
	return &services.LoginResult{Token: "jwt", UserID: "u1"}, nil
}

func (s *stubAuth) Logout(ctx context.Context) error {
	if auth.UserID(ctx) == "" {
		return models.ErrNotAuthenticated
	}
	return nil
}

func (s *stubAuth) CurrentSession(ctx context.Context) (*services.SessionInfo, error) {
	if auth.UserID(ctx) == "" {
		return nil, models.ErrNotAuthenticated
	}
	return &services.SessionInfo{UserID: auth.UserID(ctx), SessionID: auth.SessionID(ctx)}, nil
}

func (s *stubAuth) ValidateToken(ctx context.Context, token string) (string, string, error) {
	switch token {
	case "jwt":
		return "u1", "s1", nil
	case "store-down":
		return "", "", errors.New("failed to check session: connection refused")
	default:
		return "", "", models.ErrSessionNotFound
	}
}

type testServer struct {
	handler  http.Handler
	events   *stubEvents
	profiles *stubProfiles
	auth     *stubAuth
}

func newTestServer() *testServer {
	return newTestServerWith(func(*Router) {})
}

func newTestServerWith(configure func(*Router)) *testServer {
	ts := &testServer{
		events:   &stubEvents{},
		profiles: &stubProfiles{profile: &models.Profile{UserID: "u1", FullName: "Ada"}},
		auth:     &stubAuth{},
	}
	rt := Router{
		Events:    NewEventHandler(ts.events, stubImages{}),
		Profiles:  NewProfileHandler(ts.profiles),
		Auth:      NewAuthHandler(ts.auth, middleware.NewRateLimiter(60, 100)),
		WebSocket: NewWebSocketHandler(services.NewWSHub(), ts.auth),
		Validator: ts.auth,
		Login:     middleware.NewRateLimiter(60, 10),
	}
	configure(&rt)
	ts.handler = NewRouter(rt)
	return ts
}

func (ts *testServer) login(t *testing.T, email, remoteAddr, forwardedFor string) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", jsonBody(t, map[string]string{"email": email}))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = remoteAddr
	if forwardedFor != "" {
		req.Header.Set("X-Forwarded-For", forwardedFor)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec.Code
}

func (ts *testServer) do(method, path string, body io.Reader, signedIn bool, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if signedIn {
		req.Header.Set("Authorization", "Bearer jwt")
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func jsonBody(t *testing.T, v interface{}) io.Reader {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(data)
}

func TestHealth(t *testing.T) {
	ts := newTestServer()

	rec := ts.do(http.MethodGet, "/health", nil, false, "")

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestListEvents(t *testing.T) {
	ts := newTestServer()
	image := "headers/a.png"
	ts.events.events = []*models.Event{{
		ID:          eventID,
		Title:       "Picnic",
		HeaderImage: &image,
		Datetime:    time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC),
	}}

	rec := ts.do(http.MethodGet, "/api/v1/events", nil, false, "")

	require.Equal(t, http.StatusOK, rec.Code)
	var resp []EventResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, 1)
	assert.Equal(t, "Picnic", resp[0].Title)
	assert.Equal(t, "https://cdn.example.com/headers/a.png", resp[0].HeaderImageURL)
	assert.Equal(t, "2026-06-01T12:00:00Z", resp[0].Datetime)
}

func TestListEvents_ErrorIsHidden(t *testing.T) {
	ts := newTestServer()
	ts.events.err = errors.New("connection refused")

	rec := ts.do(http.MethodGet, "/api/v1/events", nil, false, "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection refused")
}

func TestListMyEvents_RequiresSession(t *testing.T) {
	ts := newTestServer()

	assert.Equal(t, http.StatusUnauthorized, ts.do(http.MethodGet, "/api/v1/events/mine", nil, false, "").Code)
	assert.Equal(t, http.StatusOK, ts.do(http.MethodGet, "/api/v1/events/mine", nil, true, "").Code)
}

func TestGetEvent(t *testing.T) {
	ts := newTestServer()
	ts.events.events = []*models.Event{{ID: eventID, Title: "Picnic"}}

	assert.Equal(t, http.StatusOK, ts.do(http.MethodGet, "/api/v1/events/"+eventID, nil, false, "").Code)
	assert.Equal(t, http.StatusBadRequest, ts.do(http.MethodGet, "/api/v1/events/not-a-uuid", nil, false, "").Code)
	assert.Equal(t, http.StatusNotFound,
		ts.do(http.MethodGet, "/api/v1/events/00000000-0000-0000-0000-000000000000", nil, false, "").Code)
}

func TestCreateEvent_JSON(t *testing.T) {
	ts := newTestServer()
	body := map[string]interface{}{
		"title":            "Picnic",
		"datetime":         "2026-06-01T14:00:00+02:00",
		"location":         "Park",
		"max_participants": 20,
		"use_groups":       true,
		"group_a":          map[string]string{"title": "Red"},
		"group_b":          map[string]string{"title": "Blue"},
	}

	rec := ts.do(http.MethodPost, "/api/v1/events", jsonBody(t, body), true, "application/json")

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.NotNil(t, ts.events.created)
	assert.True(t, ts.events.created.UseGroups)
	assert.Equal(t, "Red", ts.events.created.GroupA.Title)
	assert.True(t, ts.events.created.Datetime.Equal(time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)))
}

func TestCreateEvent_Rejections(t *testing.T) {
	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{"datetime without zone", map[string]interface{}{"title": "x", "location": "y", "datetime": "2026-06-01T14:00:00"}},
		{"groups missing", map[string]interface{}{"title": "x", "location": "y", "datetime": "2026-06-01T14:00:00Z", "use_groups": true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer()

			rec := ts.do(http.MethodPost, "/api/v1/events", jsonBody(t, tt.body), true, "application/json")

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Nil(t, ts.events.created)
		})
	}
}

func TestCreateEvent_Anonymous(t *testing.T) {
	ts := newTestServer()
	body := map[string]interface{}{"title": "x", "location": "y", "datetime": "2026-06-01T14:00:00Z"}

	rec := ts.do(http.MethodPost, "/api/v1/events", jsonBody(t, body), false, "application/json")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateEvent_Multipart(t *testing.T) {
	ts := newTestServer()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("data", `{"title":"Picnic","location":"Park","datetime":"2026-06-01T12:00:00Z"}`))
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="header_image"; filename="cover.png"`)
	header.Set("Content-Type", "image/png")
	part, err := mw.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write([]byte("\x89PNG"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	rec := ts.do(http.MethodPost, "/api/v1/events", &buf, true, mw.FormDataContentType())

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.NotNil(t, ts.events.created.HeaderImage)
	assert.Equal(t, "cover.png", ts.events.created.HeaderImage.Filename)
	assert.Equal(t, "image/png", ts.events.created.HeaderImage.ContentType)
}

func TestRegister(t *testing.T) {
	ts := newTestServer()

	rec := ts.do(http.MethodPost, "/api/v1/events/"+eventID+"/registrations", nil, true, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = ts.do(http.MethodPost, "/api/v1/events/"+eventID+"/registrations",
		jsonBody(t, map[string]string{"group_id": "g1"}), true, "application/json")
	require.Equal(t, http.StatusCreated, rec.Code)

	assert.Equal(t, []string{"", "g1"}, ts.events.registered)
}

func TestRegister_ErrorStatuses(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{models.ErrNotAuthenticated, http.StatusUnauthorized},
		{models.ErrEventNotFound, http.StatusNotFound},
		{models.ErrAlreadyRegistered, http.StatusConflict},
		{models.ErrEventFull, http.StatusConflict},
		{models.ErrEventClosed, http.StatusConflict},
		{models.ErrInvalidGroup, http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			ts := newTestServer()
			ts.events.err = tt.err

			rec := ts.do(http.MethodPost, "/api/v1/events/"+eventID+"/registrations", nil, true, "")

			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestRegistrationStatus(t *testing.T) {
	ts := newTestServer()
	ts.events.isReg = true

	rec := ts.do(http.MethodGet, "/api/v1/events/"+eventID+"/registration", nil, true, "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"registered":true}`, rec.Body.String())
}

func TestProfileRoutes(t *testing.T) {
	ts := newTestServer()

	assert.Equal(t, http.StatusUnauthorized, ts.do(http.MethodGet, "/api/v1/profile", nil, false, "").Code)

	rec := ts.do(http.MethodGet, "/api/v1/profile", nil, true, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Ada")

	rec = ts.do(http.MethodPut, "/api/v1/profile",
		jsonBody(t, map[string]string{"full_name": "Grace", "description": "navy"}), true, "application/json")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Grace", ts.profiles.profile.FullName)

	rec = ts.do(http.MethodPut, "/api/v1/profile", jsonBody(t, map[string]string{}), true, "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(http.MethodPut, "/api/v1/profile/push-token",
		jsonBody(t, map[string]string{"push_token": "device"}), true, "application/json")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "device", ts.profiles.token)
}

func TestAuthRoutes(t *testing.T) {
	ts := newTestServer()

	rec := ts.do(http.MethodPost, "/api/v1/auth/login",
		jsonBody(t, map[string]string{"email": "ada@example.com"}), false, "application/json")
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, []string{"ada@example.com"}, ts.auth.emails)

	rec = ts.do(http.MethodPost, "/api/v1/auth/verify",
		jsonBody(t, map[string]string{"token": "wrong"}), false, "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(http.MethodPost, "/api/v1/auth/verify",
		jsonBody(t, map[string]string{"token": "magic"}), false, "application/json")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"token":"jwt"`)

	rec = ts.do(http.MethodGet, "/api/v1/auth/session", nil, true, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"session_id":"s1"`)

	assert.Equal(t, http.StatusNoContent, ts.do(http.MethodPost, "/api/v1/auth/logout", nil, true, "").Code)
	assert.Equal(t, http.StatusUnauthorized, ts.do(http.MethodPost, "/api/v1/auth/logout", nil, false, "").Code)
}

func TestInvalidBearerToken(t *testing.T) {
	ts := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/events", nil)
	req.Header.Set("Authorization", "Bearer expired")
	rec := httptest.NewRecorder()

	ts.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWebSocket_RequiresToken(t *testing.T) {
	ts := newTestServer()

	assert.Equal(t, http.StatusUnauthorized, ts.do(http.MethodGet, "/ws", nil, false, "").Code)
	assert.Equal(t, http.StatusUnauthorized, ts.do(http.MethodGet, "/ws?token=bad", nil, false, "").Code)
}

func TestLoginLimit_IgnoresForwardedHeadersByDefault(t *testing.T) {
	ts := newTestServerWith(func(rt *Router) { rt.Login = middleware.NewRateLimiter(1, 10) })

	accepted := 0
	for i := 0; i < 50; i++ {
		code := ts.login(t, fmt.Sprintf("user%d@example.com", i), "203.0.113.7:40000", fmt.Sprintf("198.51.100.%d", i))
		if code == http.StatusAccepted {
			accepted++
		} else {
			assert.Equal(t, http.StatusTooManyRequests, code)
		}
	}

	assert.Equal(t, 10, accepted)
}

func TestLoginLimit_TrustedProxyKeysOnForwardedClient(t *testing.T) {
	ts := newTestServerWith(func(rt *Router) { rt.TrustProxy = true })

	for i := 0; i < 20; i++ {
		code := ts.login(t, fmt.Sprintf("user%d@example.com", i), "10.0.0.1:40000", fmt.Sprintf("198.51.100.%d", i))
		assert.Equal(t, http.StatusAccepted, code)
	}
}

func TestLoginLimit_PerEmail(t *testing.T) {
	ts := newTestServerWith(func(rt *Router) {
		rt.Auth = NewAuthHandler(rt.Auth.auth, middleware.NewRateLimiter(1, 2))
	})

	assert.Equal(t, http.StatusAccepted, ts.login(t, "ada@example.com", "203.0.113.1:1", ""))
	assert.Equal(t, http.StatusAccepted, ts.login(t, " ADA@example.com", "203.0.113.2:1", ""))
	assert.Equal(t, http.StatusTooManyRequests, ts.login(t, "ada@example.com", "203.0.113.3:1", ""))

	assert.Equal(t, http.StatusAccepted, ts.login(t, "grace@example.com", "203.0.113.4:1", ""))
	assert.Len(t, ts.auth.emails, 3)
}

func TestCreateEvent_AnonymousMalformedBody(t *testing.T) {
	ts := newTestServer()

	rec := ts.do(http.MethodPost, "/api/v1/events", bytes.NewReader([]byte("{not json")), false, "application/json")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, ts.events.created)
}

type closeRecorder struct {
	io.Reader
	closed bool
}

func (c *closeRecorder) Close() error {
	c.closed = true
	return nil
}

func TestCloseUpload(t *testing.T) {
	body := &closeRecorder{Reader: bytes.NewReader(nil)}

	closeUpload(&models.ImageUpload{Filename: "a.png", Body: body})
	closeUpload(&models.ImageUpload{Filename: "b.png", Body: bytes.NewReader(nil)})
	closeUpload(nil)

	assert.True(t, body.closed)
}

func TestCreateEvent_MultipartWithBadDatetime(t *testing.T) {
	ts := newTestServer()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("data", `{"title":"Picnic","location":"Park","datetime":"2026-06-01T12:00:00"}`))
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="header_image"; filename="cover.png"`)
	header.Set("Content-Type", "image/png")
	part, err := mw.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write([]byte("\x89PNG"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	rec := ts.do(http.MethodPost, "/api/v1/events", &buf, true, mw.FormDataContentType())

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid datetime")
}

func TestSessionStoreFailureIsNotUnauthorized(t *testing.T) {
	ts := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/events", nil)
	req.Header.Set("Authorization", "Bearer store-down")
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = ts.do(http.MethodGet, "/ws?token=store-down", nil, false, "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
