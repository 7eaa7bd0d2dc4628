package handlers

import (
	"context"
	"net/http"

	"event-signup-backend/internal/models"
)

// ProfileSvc is the profile service used by ProfileHandler
type ProfileSvc interface {
	ReadProfile(ctx context.Context) (*models.Profile, error)
	UpdateProfile(ctx context.Context, input models.UpdateProfileInput) (*models.Profile, error)
	UpdatePushToken(ctx context.Context, token string) error
}

// ProfileHandler handles profile-related HTTP requests
type ProfileHandler struct {
	profiles ProfileSvc
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(profiles ProfileSvc) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

// UpdateProfileRequest represents the request body for updating a profile
type UpdateProfileRequest struct {
	FullName    string `json:"full_name"`
	Description string `json:"description"`
}

// UpdatePushTokenRequest represents the request body for registering a device
type UpdatePushTokenRequest struct {
	PushToken string `json:"push_token"`
}

// GetProfile handles GET /api/v1/profile
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.profiles.ReadProfile(r.Context())
	if err != nil {
		handleError(w, r, err, "Failed to read profile")
		return
	}
	respondJSON(w, http.StatusOK, profile)
}

// UpdateProfile handles PUT /api/v1/profile
func (h *ProfileHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req UpdateProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	profile, err := h.profiles.UpdateProfile(r.Context(), models.UpdateProfileInput{
		FullName:    req.FullName,
		Description: req.Description,
	})
	if err != nil {
		handleError(w, r, err, "Failed to update profile")
		return
	}
	respondJSON(w, http.StatusOK, profile)
}

// UpdatePushToken handles PUT /api/v1/profile/push-token
func (h *ProfileHandler) UpdatePushToken(w http.ResponseWriter, r *http.Request) {
	var req UpdatePushTokenRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.profiles.UpdatePushToken(r.Context(), req.PushToken); err != nil {
		handleError(w, r, err, "Failed to update push token")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
