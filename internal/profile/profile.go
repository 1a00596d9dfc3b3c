// Package profile maintains per-user behavioral login baselines.
//
// Each user gets a BehavioralProfile seeded from their first event and
// updated online as logins arrive: running mean/stddev of login hours,
// the set of known devices and locations, and account statistics.
// Profiles carry an optimistic concurrency token; writers that lose a
// race get ErrConflict and are expected to re-read and retry.
package profile

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when no profile exists for a user.
	ErrNotFound = errors.New("profile not found")
	// ErrConflict is returned when an Update loses a version race.
	ErrConflict = errors.New("profile version conflict")
	// ErrUnavailable is returned when the backing store cannot be reached.
	ErrUnavailable = errors.New("profile store unavailable")
)

// Device is a device the user has logged in from.
type Device struct {
	DeviceID   string    `json:"device_id"`
	Type       string    `json:"type"`
	OS         string    `json:"os"`
	FirstSeen  time.Time `json:"first_seen"`
	LastSeen   time.Time `json:"last_seen"`
	LoginCount int       `json:"login_count"`
}

// Location is a city+country the user has logged in from.
type Location struct {
	City       string    `json:"city"`
	Country    string    `json:"country"`
	FirstSeen  time.Time `json:"first_seen"`
	LastSeen   time.Time `json:"last_seen"`
	LoginCount int       `json:"login_count"`
}

// LoginHours holds running statistics over the user's login hours.
// TypicalRange is [mean-2*stddev, mean+2*stddev] clamped to [0,23].
type LoginHours struct {
	Mean         float64    `json:"mean"`
	StdDev       float64    `json:"std_dev"`
	TypicalRange [2]float64 `json:"typical_range"`
	Timezone     string     `json:"timezone"`
}

// Statistics holds account-level counters.
type Statistics struct {
	TotalLogins    int       `json:"total_logins"`
	FirstLogin     time.Time `json:"first_login"`
	AccountAgeDays int       `json:"account_age_days"`
}

// BehavioralProfile is the per-user baseline.
type BehavioralProfile struct {
	UserID      string     `json:"user_id"`
	LoginHours  LoginHours `json:"login_hours"`
	Devices     []Device   `json:"devices"`
	Locations   []Location `json:"locations"`
	Statistics  Statistics `json:"statistics"`
	LastUpdated time.Time  `json:"last_updated"`

	// Version is the optimistic concurrency token. Update performs a
	// compare-and-swap on it; a stale token yields ErrConflict.
	Version int64 `json:"version"`
}

// Observation is the slice of an event the baseline cares about.
type Observation struct {
	UserID     string
	Timestamp  time.Time
	EventType  string
	DeviceID   string
	DeviceType string
	DeviceOS   string
	City       string
	Country    string
}

// Store persists behavioral profiles.
type Store interface {
	// GetOrCreate returns the user's profile, creating a baseline from obs
	// if none exists. Creation is exactly-once per user: concurrent callers
	// race on a uniqueness constraint and losers fetch the winner's row.
	// The bool reports whether this call created the profile.
	GetOrCreate(ctx context.Context, userID string, obs Observation) (*BehavioralProfile, bool, error)

	// Get returns the user's profile or ErrNotFound.
	Get(ctx context.Context, userID string) (*BehavioralProfile, error)

	// Update writes the profile if its Version still matches the stored
	// row, then increments the version. Returns ErrConflict on a stale
	// token and ErrNotFound if the row is gone.
	Update(ctx context.Context, p *BehavioralProfile) error

	// Upsert unconditionally writes a profile (bulk seeding).
	Upsert(ctx context.Context, p *BehavioralProfile) error

	// Count returns the number of profiles.
	Count(ctx context.Context) (int, error)
}

// HasDevice reports whether the device ID is already known.
func (p *BehavioralProfile) HasDevice(deviceID string) bool {
	for _, d := range p.Devices {
		if d.DeviceID == deviceID {
			return true
		}
	}
	return false
}

// HasLocation reports whether the city+country pair is already known.
func (p *BehavioralProfile) HasLocation(city, country string) bool {
	for _, l := range p.Locations {
		if l.City == city && l.Country == country {
			return true
		}
	}
	return false
}

// IsNewUser reports whether the profile has seen exactly one login.
func (p *BehavioralProfile) IsNewUser() bool {
	return p.Statistics.TotalLogins == 1
}

// IsAnomalousHour reports whether hour falls strictly outside the typical range.
func (p *BehavioralProfile) IsAnomalousHour(hour int) bool {
	h := float64(hour)
	return h < p.LoginHours.TypicalRange[0] || h > p.LoginHours.TypicalRange[1]
}

// Hour extracts the login hour an observation contributes to the baseline.
func (o Observation) Hour() int {
	return o.Timestamp.UTC().Hour()
}
