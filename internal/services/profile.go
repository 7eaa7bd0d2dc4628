package services

import (
	"context"
	"fmt"
	"strings"

	"event-signup-backend/internal/auth"
	"event-signup-backend/internal/models"

	"github.com/rs/zerolog/log"
)

// ProfileService handles the profile of the current user
type ProfileService struct {
	repo        ProfileRepo
	cache       *ProfileCache
	broadcaster ProfileBroadcaster
}

// NewProfileService creates a new profile service
func NewProfileService(repo ProfileRepo, cache *ProfileCache, broadcaster ProfileBroadcaster) *ProfileService {
	return &ProfileService{
		repo:        repo,
		cache:       cache,
		broadcaster: broadcaster,
	}
}

// ReadProfile fetches the profile row of the current user
func (s *ProfileService) ReadProfile(ctx context.Context) (*models.Profile, error) {
	userID := auth.UserID(ctx)
	if userID == "" {
		return nil, models.ErrNotAuthenticated
	}

	profile, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, models.ErrProfileNotFound
	}

	s.cache.Set(profile)
	return profile, nil
}

// UpdateProfile stores a new full name and description and publishes the
// result to the cache and the user's live connections
func (s *ProfileService) UpdateProfile(ctx context.Context, input models.UpdateProfileInput) (*models.Profile, error) {
	userID := auth.UserID(ctx)
	if userID == "" {
		return nil, models.ErrNotAuthenticated
	}

	input.FullName = strings.TrimSpace(input.FullName)
	if input.FullName == "" {
		return nil, fmt.Errorf("%w: full name is required", models.ErrValidation)
	}

	profile, err := s.repo.Update(ctx, userID, input)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, models.ErrProfileNotFound
	}

	s.cache.Set(profile)
	s.broadcaster.NotifyProfileUpdated(userID, profile)

	log.Info().Str("user_id", userID).Msg("Profile updated")

	return profile, nil
}

// UpdatePushToken stores the APNs device token of the current user; an empty
// token clears it
func (s *ProfileService) UpdatePushToken(ctx context.Context, token string) error {
	userID := auth.UserID(ctx)
	if userID == "" {
		return models.ErrNotAuthenticated
	}

	var pushToken *string
	if token = strings.TrimSpace(token); token != "" {
		pushToken = &token
	}

	if err := s.repo.UpdatePushToken(ctx, userID, pushToken); err != nil {
		return err
	}

	if cached, ok := s.cache.Get(userID); ok {
		cached.PushToken = pushToken
		s.cache.Set(cached)
	}
	return nil
}

// Current returns the cached profile of the current user, reading it on a miss
func (s *ProfileService) Current(ctx context.Context) (*models.Profile, error) {
	userID := auth.UserID(ctx)
	if userID == "" {
		return nil, models.ErrNotAuthenticated
	}
	if profile, ok := s.cache.Get(userID); ok {
		return profile, nil
	}
	return s.ReadProfile(ctx)
}

// Forget drops the cached profile of a user
func (s *ProfileService) Forget(userID string) {
	s.cache.Delete(userID)
}

// PushToken returns the device token of any user, for organizer notifications
func (s *ProfileService) PushToken(ctx context.Context, userID string) (string, error) {
	if profile, ok := s.cache.Get(userID); ok && profile.PushToken != nil {
		return *profile.PushToken, nil
	}
	profile, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return "", err
	}
	if profile.PushToken == nil {
		return "", nil
	}
	return *profile.PushToken, nil
}
