package models

import "errors"

var (
	ErrNotAuthenticated  = errors.New("user not logged in")
	ErrSessionNotFound   = errors.New("session not found")
	ErrInvalidToken      = errors.New("invalid token")
	ErrInvalidLoginToken = errors.New("login token is invalid or expired")
)

var (
	ErrEventNotFound   = errors.New("event not found")
	ErrProfileNotFound = errors.New("profile not found")
)

var (
	ErrAlreadyRegistered = errors.New("user already registered for this event")
	ErrEventFull         = errors.New("event has no free places")
	ErrEventClosed       = errors.New("event is cancelled or ended")
	ErrInvalidGroup      = errors.New("group does not belong to this event")
)

var (
	ErrValidation = errors.New("validation error")
)

var (
	ErrNoResultSet = errors.New("query returned no result set")
)
