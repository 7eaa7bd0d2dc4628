package models

import (
	"io"
	"time"
)

// User represents an authenticated account
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Session represents a login session referenced by issued tokens
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Profile is the public profile of a user, created on signup
type Profile struct {
	UserID      string  `json:"user_id"`
	Email       string  `json:"email"`
	FullName    string  `json:"full_name"`
	Description string  `json:"description"`
	PushToken   *string `json:"push_token,omitempty"`
}

// Group is one side of a grouped event
type Group struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// GroupPair links the two groups of a grouped event
type GroupPair struct {
	ID     string `json:"id"`
	GroupA Group  `json:"group_a"`
	GroupB Group  `json:"group_b"`
}

// Has reports whether groupID is one of the pair's groups
func (p *GroupPair) Has(groupID string) bool {
	return groupID != "" && (p.GroupA.ID == groupID || p.GroupB.ID == groupID)
}

// Event represents an event users can register for
type Event struct {
	ID              string     `json:"id"`
	Organizer       string     `json:"organizer"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	HeaderImage     *string    `json:"header_image,omitempty"`
	Datetime        time.Time  `json:"datetime"`
	Location        string     `json:"location"`
	MaxParticipants int        `json:"max_participants"`
	GroupPair       *GroupPair `json:"event_group_pair,omitempty"`
	IsEnded         bool       `json:"is_ended"`
	IsCancelled     bool       `json:"is_cancelled"`
	CreatedAt       time.Time  `json:"created_at"`
}

// UsesGroups reports whether registrations must pick one of two groups
func (e *Event) UsesGroups() bool {
	return e.GroupPair != nil
}

// IsOpen reports whether the event still accepts registrations
func (e *Event) IsOpen() bool {
	return !e.IsCancelled && !e.IsEnded
}

// EventRegistration is a participant's registration for an event
type EventRegistration struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	EventID   string    `json:"event_id"`
	GroupID   *string   `json:"group_id,omitempty"`
	Present   bool      `json:"present"`
	CreatedAt time.Time `json:"created_at"`
}

// GroupInput describes a group to create together with its event
type GroupInput struct {
	Title       string
	Description string
}

// ImageUpload is a header image attached to an event creation request
type ImageUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// CreateEventInput carries the fields of a new event
type CreateEventInput struct {
	Title           string
	Description     string
	HeaderImage     *ImageUpload
	Datetime        time.Time
	Location        string
	MaxParticipants int
	UseGroups       bool
	GroupA          GroupInput
	GroupB          GroupInput
}

// UpdateProfileInput carries the editable profile fields
type UpdateProfileInput struct {
	FullName    string
	Description string
}
