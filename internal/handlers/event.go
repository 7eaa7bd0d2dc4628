package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"event-signup-backend/internal/auth"
	"event-signup-backend/internal/models"
	"event-signup-backend/internal/timeutil"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	maxUploadBytes  = 10 << 20
	headerImageForm = "header_image"
	dataForm        = "data"
)

// EventSvc is the event service used by EventHandler
type EventSvc interface {
	FetchEvents(ctx context.Context) ([]*models.Event, error)
	FetchUserEvents(ctx context.Context) ([]*models.Event, error)
	FetchEventByID(ctx context.Context, id string) (*models.Event, error)
	CreateEvent(ctx context.Context, input models.CreateEventInput) (*models.Event, error)
	RegisterForEvent(ctx context.Context, eventID, groupID string) (*models.EventRegistration, error)
	IsRegisteredForEvent(ctx context.Context, eventID string) (bool, error)
}

// ImageURLer turns a stored header image key into a readable URL
type ImageURLer interface {
	URL(ctx context.Context, key string) (string, error)
}

// EventHandler handles event-related HTTP requests
type EventHandler struct {
	events EventSvc
	images ImageURLer
}

// NewEventHandler creates a new event handler
func NewEventHandler(events EventSvc, images ImageURLer) *EventHandler {
	return &EventHandler{
		events: events,
		images: images,
	}
}

// GroupRequest describes one group of a grouped event
type GroupRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// CreateEventRequest is the body of POST /api/v1/events. In multipart
// requests it is sent as the "data" field next to the header_image file.
type CreateEventRequest struct {
	Title           string        `json:"title"`
	Description     string        `json:"description"`
	Datetime        string        `json:"datetime"`
	Location        string        `json:"location"`
	MaxParticipants int           `json:"max_participants"`
	UseGroups       bool          `json:"use_groups"`
	GroupA          *GroupRequest `json:"group_a,omitempty"`
	GroupB          *GroupRequest `json:"group_b,omitempty"`
}

// RegisterRequest is the optional body of a registration
type RegisterRequest struct {
	GroupID string `json:"group_id"`
}

// EventResponse is an event as returned to clients
type EventResponse struct {
	ID              string            `json:"id"`
	Organizer       string            `json:"organizer"`
	Title           string            `json:"title"`
	Description     string            `json:"description"`
	HeaderImage     *string           `json:"header_image,omitempty"`
	HeaderImageURL  string            `json:"header_image_url,omitempty"`
	Datetime        string            `json:"datetime"`
	Location        string            `json:"location"`
	MaxParticipants int               `json:"max_participants"`
	GroupPair       *models.GroupPair `json:"event_group_pair,omitempty"`
	IsEnded         bool              `json:"is_ended"`
	IsCancelled     bool              `json:"is_cancelled"`
}

func (h *EventHandler) toResponse(ctx context.Context, e *models.Event) EventResponse {
	resp := EventResponse{
		ID:              e.ID,
		Organizer:       e.Organizer,
		Title:           e.Title,
		Description:     e.Description,
		HeaderImage:     e.HeaderImage,
		Datetime:        e.Datetime.Format(time.RFC3339),
		Location:        e.Location,
		MaxParticipants: e.MaxParticipants,
		GroupPair:       e.GroupPair,
		IsEnded:         e.IsEnded,
		IsCancelled:     e.IsCancelled,
	}

	if e.HeaderImage != nil && h.images != nil {
		url, err := h.images.URL(ctx, *e.HeaderImage)
		if err != nil {
			log.Warn().Err(err).Str("event_id", e.ID).Msg("Failed to sign header image url")
		} else {
			resp.HeaderImageURL = url
		}
	}
	return resp
}

func (h *EventHandler) toResponses(ctx context.Context, events []*models.Event) []EventResponse {
	resp := make([]EventResponse, 0, len(events))
	for _, e := range events {
		resp = append(resp, h.toResponse(ctx, e))
	}
	return resp
}

// ListEvents handles GET /api/v1/events
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.events.FetchEvents(r.Context())
	if err != nil {
		handleError(w, r, err, "Failed to fetch events")
		return
	}
	respondJSON(w, http.StatusOK, h.toResponses(r.Context(), events))
}

// ListMyEvents handles GET /api/v1/events/mine
func (h *EventHandler) ListMyEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.events.FetchUserEvents(r.Context())
	if err != nil {
		handleError(w, r, err, "Failed to fetch user events")
		return
	}
	respondJSON(w, http.StatusOK, h.toResponses(r.Context(), events))
}

// GetEvent handles GET /api/v1/events/{event_id}
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	eventID, ok := eventIDParam(w, r)
	if !ok {
		return
	}

	event, err := h.events.FetchEventByID(r.Context(), eventID)
	if err != nil {
		handleError(w, r, err, "Failed to fetch event")
		return
	}
	respondJSON(w, http.StatusOK, h.toResponse(r.Context(), event))
}

// CreateEvent handles POST /api/v1/events
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	if auth.UserID(r.Context()) == "" {
		handleError(w, r, models.ErrNotAuthenticated, "Failed to create event")
		return
	}

	input, err := parseCreateEvent(w, r)
	defer removeMultipartFiles(r)
	if err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}
	defer closeUpload(input.HeaderImage)

	event, err := h.events.CreateEvent(r.Context(), input)
	if err != nil {
		handleError(w, r, err, "Failed to create event")
		return
	}

	log.Info().
		Str("user_id", auth.UserID(r.Context())).
		Str("event_id", event.ID).
		Bool("grouped", event.UsesGroups()).
		Msg("Event created")

	respondJSON(w, http.StatusCreated, h.toResponse(r.Context(), event))
}

func parseCreateEvent(w http.ResponseWriter, r *http.Request) (_ models.CreateEventInput, err error) {
	var (
		req   CreateEventRequest
		image *models.ImageUpload
	)
	defer func() {
		if err != nil {
			closeUpload(image)
		}
	}()

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			return models.CreateEventInput{}, errors.New("invalid multipart body")
		}
		if err := json.Unmarshal([]byte(r.FormValue(dataForm)), &req); err != nil {
			return models.CreateEventInput{}, errors.New("invalid data field")
		}

		file, header, ferr := r.FormFile(headerImageForm)
		switch {
		case ferr == nil:
			contentType := header.Header.Get("Content-Type")
			if !strings.HasPrefix(contentType, "image/") {
				file.Close()
				return models.CreateEventInput{}, fmt.Errorf("header_image must be an image, got %q", contentType)
			}
			image = &models.ImageUpload{
				Filename:    header.Filename,
				ContentType: contentType,
				Size:        header.Size,
				Body:        file,
			}
		case errors.Is(ferr, http.ErrMissingFile):
		default:
			return models.CreateEventInput{}, errors.New("invalid header_image")
		}
	} else if err := decodeJSON(r, &req); err != nil {
		return models.CreateEventInput{}, errors.New("Invalid request body")
	}

	datetime, err := timeutil.ParseZoned(req.Datetime)
	if err != nil {
		return models.CreateEventInput{}, fmt.Errorf("invalid datetime: %w", err)
	}

	input := models.CreateEventInput{
		Title:           req.Title,
		Description:     req.Description,
		HeaderImage:     image,
		Datetime:        datetime,
		Location:        req.Location,
		MaxParticipants: req.MaxParticipants,
		UseGroups:       req.UseGroups,
	}
	if req.UseGroups {
		if req.GroupA == nil || req.GroupB == nil {
			return models.CreateEventInput{}, errors.New("group_a and group_b are required when use_groups is set")
		}
		input.GroupA = models.GroupInput{Title: req.GroupA.Title, Description: req.GroupA.Description}
		input.GroupB = models.GroupInput{Title: req.GroupB.Title, Description: req.GroupB.Description}
	}
	return input, nil
}

// Register handles POST /api/v1/events/{event_id}/registrations
func (h *EventHandler) Register(w http.ResponseWriter, r *http.Request) {
	eventID, ok := eventIDParam(w, r)
	if !ok {
		return
	}

	var req RegisterRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	reg, err := h.events.RegisterForEvent(r.Context(), eventID, req.GroupID)
	if err != nil {
		handleError(w, r, err, "Failed to register for event")
		return
	}
	respondJSON(w, http.StatusCreated, reg)
}

// RegistrationStatus handles GET /api/v1/events/{event_id}/registration
func (h *EventHandler) RegistrationStatus(w http.ResponseWriter, r *http.Request) {
	eventID, ok := eventIDParam(w, r)
	if !ok {
		return
	}

	registered, err := h.events.IsRegisteredForEvent(r.Context(), eventID)
	if err != nil {
		handleError(w, r, err, "Failed to check registration")
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"registered": registered})
}

// closeUpload releases the multipart file behind img, if any
func closeUpload(img *models.ImageUpload) {
	if img == nil {
		return
	}
	if c, ok := img.Body.(io.Closer); ok {
		if err := c.Close(); err != nil {
			log.Warn().Err(err).Str("filename", img.Filename).Msg("Failed to close header image")
		}
	}
}

// removeMultipartFiles deletes temporary files spilled by ParseMultipartForm
func removeMultipartFiles(r *http.Request) {
	if r.MultipartForm == nil {
		return
	}
	if err := r.MultipartForm.RemoveAll(); err != nil {
		log.Warn().Err(err).Msg("Failed to remove multipart temp files")
	}
}

func eventIDParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	eventID := chi.URLParam(r, "event_id")
	if _, err := uuid.Parse(eventID); err != nil {
		respondError(w, "invalid event id", http.StatusBadRequest)
		return "", false
	}
	return eventID, true
}
