package services

import (
	"sync"

	"event-signup-backend/internal/models"
)

// ProfileCache holds the last known profile of each signed-in user
type ProfileCache struct {
	mu       sync.RWMutex
	profiles map[string]models.Profile
}

// NewProfileCache creates an empty cache
func NewProfileCache() *ProfileCache {
	return &ProfileCache{profiles: make(map[string]models.Profile)}
}

// Get returns a copy of the cached profile
func (c *ProfileCache) Get(userID string) (*models.Profile, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.profiles[userID]
	if !ok {
		return nil, false
	}
	return &p, true
}

// Set stores a copy of profile
func (c *ProfileCache) Set(profile *models.Profile) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.profiles[profile.UserID] = *profile
}

// Delete forgets the user's profile
func (c *ProfileCache) Delete(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.profiles, userID)
}
