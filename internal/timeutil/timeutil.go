// Package timeutil parses and formats the zoned datetimes exchanged with clients
// and stored as timestamptz.
package timeutil

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ListingGrace is how long after its start an event is still listed.
const ListingGrace = time.Hour

var layouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999Z07",
	"2006-01-02 15:04:05Z07",
}

// ErrNoZone is returned for datetimes without an explicit offset.
var ErrNoZone = errors.New("datetime has no zone offset")

// ParseZoned parses an ISO-8601 datetime or the Postgres text form of a
// timestamptz. The offset is mandatory.
func ParseZoned(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("empty datetime")
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	if _, err := time.Parse("2006-01-02T15:04:05", s); err == nil {
		return time.Time{}, fmt.Errorf("%q: %w", s, ErrNoZone)
	}
	return time.Time{}, fmt.Errorf("invalid datetime %q", s)
}

// FormatISO renders t as an ISO instant in UTC, the form expected by the
// create_event_with_groups procedure.
func FormatISO(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// ListingCutoff returns the earliest start time still shown in listings.
func ListingCutoff(now time.Time) time.Time {
	return now.Add(-ListingGrace)
}
