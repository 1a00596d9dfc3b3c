// Package events stores authentication events and runs the ingest
// pipeline: persist the event, score it against the user's behavioral
// baseline, create an alert when warranted, and fold the event into
// the baseline.
package events

import (
	"context"
	"errors"
	"time"

	"loginsight/internal/pagination"
	"loginsight/internal/profile"
)

var (
	// ErrNotFound is returned when no event exists for an ID.
	ErrNotFound = errors.New("event not found")
	// ErrDuplicateID is returned on an event ID collision.
	ErrDuplicateID = errors.New("duplicate event id")
	// ErrUnavailable is returned when the backing store cannot be reached.
	ErrUnavailable = errors.New("event store unavailable")
)

// Event types.
const (
	TypeLogin       = "login"
	TypeLogout      = "logout"
	TypeFailedLogin = "failed_login"
)

// ValidType reports whether t is a known event type.
func ValidType(t string) bool {
	switch t {
	case TypeLogin, TypeLogout, TypeFailedLogin:
		return true
	}
	return false
}

// Device describes the device an event came from.
type Device struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	OS      string `json:"os"`
	Browser string `json:"browser"`
}

// Location describes where an event came from.
type Location struct {
	IP        string  `json:"ip"`
	City      string  `json:"city"`
	Country   string  `json:"country"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	IsThreat  bool    `json:"is_threat,omitempty"`
}

// Session describes the authentication session.
type Session struct {
	SessionID           string `json:"session_id"`
	LoginMethod         string `json:"login_method"`
	FailedLoginAttempts int    `json:"failed_login_attempts_24h,omitempty"`
}

// Metadata carries the event's device, location, and session context.
type Metadata struct {
	Device   Device   `json:"device"`
	Location Location `json:"location"`
	Session  Session  `json:"session"`
}

// Event is an immutable authentication event.
type Event struct {
	EventID   string    `json:"event_id"`
	Timestamp time.Time `json:"timestamp"`
	UserID    string    `json:"user_id"`
	EventType string    `json:"event_type"`
	Metadata  Metadata  `json:"metadata"`
}

// Observation projects the event onto the fields the baseline and the
// risk engine care about.
func (e *Event) Observation() profile.Observation {
	return profile.Observation{
		UserID:     e.UserID,
		Timestamp:  e.Timestamp,
		EventType:  e.EventType,
		DeviceID:   e.Metadata.Device.ID,
		DeviceType: e.Metadata.Device.Type,
		DeviceOS:   e.Metadata.Device.OS,
		City:       e.Metadata.Location.City,
		Country:    e.Metadata.Location.Country,
	}
}

// FlatEvent is the trimmed row shape for dashboard listings.
type FlatEvent struct {
	UserID     string    `json:"user_id"`
	EventType  string    `json:"event_type"`
	DeviceType string    `json:"device_type"`
	City       string    `json:"city"`
	Country    string    `json:"country"`
	Timestamp  time.Time `json:"timestamp"`
}

// Flatten trims the event for list responses.
func (e *Event) Flatten() FlatEvent {
	return FlatEvent{
		UserID:     e.UserID,
		EventType:  e.EventType,
		DeviceType: e.Metadata.Device.Type,
		City:       e.Metadata.Location.City,
		Country:    e.Metadata.Location.Country,
		Timestamp:  e.Timestamp,
	}
}

// ListQuery filters the paginated event listing.
type ListQuery struct {
	UserID    string // empty = all users
	EventType string // empty = all types
	Page      pagination.Params
}

// Store persists events.
type Store interface {
	// Insert stores a new event. Returns ErrDuplicateID on an ID collision.
	Insert(ctx context.Context, e *Event) error

	// List returns a page of events (newest first) and the total count
	// matching the query.
	List(ctx context.Context, q ListQuery) ([]*Event, int, error)

	// ListByUser returns a user's events, newest first, bounded by limit.
	ListByUser(ctx context.Context, userID string, limit int) ([]*Event, error)

	// Count returns the total number of events.
	Count(ctx context.Context) (int, error)

	// CountPerDay counts events per UTC day (keyed "2006-01-02") since
	// the given time.
	CountPerDay(ctx context.Context, since time.Time) (map[string]int, error)
}
