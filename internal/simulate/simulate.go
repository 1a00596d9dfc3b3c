// Package simulate generates synthetic login traffic for demos and
// load testing. Generated events run through the full ingest pipeline
// (baseline folding, risk scoring, alert policy) so the resulting
// dataset is indistinguishable from organic traffic.
package simulate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"loginsight/internal/events"
	"loginsight/internal/metrics"
	"loginsight/internal/risk"
)

// DefaultCount is the number of scenario iterations when the caller
// does not specify one.
const DefaultCount = 100

const syntheticUsers = 100

var (
	locations = []events.Location{
		{City: "New York", Country: "USA"},
		{City: "London", Country: "UK"},
		{City: "Berlin", Country: "Germany"},
		{City: "Tokyo", Country: "Japan"},
		{City: "Sydney", Country: "Australia"},
		{City: "Paris", Country: "France"},
		{City: "Toronto", Country: "Canada"},
		{City: "Mumbai", Country: "India"},
		{City: "Singapore", Country: "Singapore"},
		{City: "Dubai", Country: "UAE"},
	}
	deviceTypes = []string{"mobile", "desktop", "tablet"}
	osList      = []string{"iOS", "Android", "Windows", "macOS", "Linux"}
	browsers    = []string{"Chrome", "Firefox", "Safari", "Edge", "Opera"}
)

// Result tallies one simulation run.
type Result struct {
	EventsCreated    int `json:"events_created"`
	AlertsCreated    int `json:"alerts_created"`
	SuppressedEvents int `json:"suppressed_events"`
}

// persona is the stable identity of one synthetic user: the device and
// location its baseline is built from, and its habitual login hours.
type persona struct {
	userID   string
	deviceID string
	location events.Location
	hourLo   int
	hourHi   int
}

// Service drives synthetic events through the ingest pipeline.
type Service struct {
	ingest   *events.Service
	maxCount int
	logger   *slog.Logger
}

// NewService creates a simulation service. maxCount bounds a single
// run; values <= 0 fall back to 1000.
func NewService(ingest *events.Service, maxCount int, logger *slog.Logger) *Service {
	if maxCount <= 0 {
		maxCount = 1000
	}
	return &Service{ingest: ingest, maxCount: maxCount, logger: logger}
}

// MaxCount returns the per-run iteration cap.
func (s *Service) MaxCount() int {
	return s.maxCount
}

// Run executes count scenario iterations. Each iteration picks one of
// a hundred synthetic users and a risk tier: 40% stay on their
// baseline, 40% show a single anomaly, 20% show every anomaly at
// once. A small fraction of iterations bursts 3-8 rapid logins.
func (s *Service) Run(ctx context.Context, count int) (*Result, error) {
	if count <= 0 {
		count = DefaultCount
	}
	if count > s.maxCount {
		count = s.maxCount
	}

	personas := make([]persona, syntheticUsers)
	for i := range personas {
		personas[i] = persona{
			userID:   fmt.Sprintf("USR%04d", i+1),
			deviceID: fmt.Sprintf("DEV%04d", gofakeit.Number(1, 100)),
			location: locations[gofakeit.Number(0, len(locations)-1)],
			hourLo:   8,
			hourHi:   18,
		}
	}

	res := &Result{}
	for i := 0; i < count; i++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if err := s.runScenario(ctx, personas[gofakeit.Number(0, syntheticUsers-1)], res); err != nil {
			return res, err
		}
	}

	s.logger.Info("simulation complete",
		"iterations", count,
		"events_created", res.EventsCreated,
		"alerts_created", res.AlertsCreated,
		"suppressed_events", res.SuppressedEvents,
	)
	return res, nil
}

func (s *Service) runScenario(ctx context.Context, p persona, res *Result) error {
	deviceID := p.deviceID
	loc := p.location
	hour := gofakeit.Number(p.hourLo, p.hourHi)
	failedAttempts := 0

	switch tier := gofakeit.Float64Range(0, 1); {
	case tier < 0.4:
		// Baseline behavior.
	case tier < 0.8:
		// One anomaly out of four.
		switch gofakeit.Number(1, 4) {
		case 1:
			deviceID = unknownDeviceID()
		case 2:
			loc = foreignLocation(p.location)
		case 3:
			hour = gofakeit.Number(0, 7)
		default:
			failedAttempts = gofakeit.Number(2, 5)
		}
	default:
		// Everything at once.
		deviceID = unknownDeviceID()
		loc = foreignLocation(p.location)
		hour = gofakeit.Number(0, 6)
		failedAttempts = gofakeit.Number(5, 15)
	}

	ts := time.Now().UTC().AddDate(0, 0, -gofakeit.Number(0, 29))
	ts = time.Date(ts.Year(), ts.Month(), ts.Day(),
		hour, gofakeit.Number(0, 59), gofakeit.Number(0, 59), 0, time.UTC)

	loc.IP = gofakeit.IPv4Address()
	loc.Latitude = gofakeit.Latitude()
	loc.Longitude = gofakeit.Longitude()
	loc.IsThreat = gofakeit.Float64Range(0, 1) < 0.05

	template := events.Event{
		UserID:    p.userID,
		EventType: events.TypeLogin,
		Metadata: events.Metadata{
			Device: events.Device{
				ID:      deviceID,
				Type:    deviceTypes[gofakeit.Number(0, len(deviceTypes)-1)],
				OS:      osList[gofakeit.Number(0, len(osList)-1)],
				Browser: browsers[gofakeit.Number(0, len(browsers)-1)],
			},
			Location: loc,
			Session: events.Session{
				SessionID:           gofakeit.UUID(),
				LoginMethod:         "password",
				FailedLoginAttempts: failedAttempts,
			},
		},
	}

	// Occasionally a burst of rapid logins a minute apart.
	burst := 1
	if gofakeit.Float64Range(0, 1) < 0.08 {
		burst = gofakeit.Number(3, 8)
	}

	for b := 0; b < burst; b++ {
		e := template
		e.Timestamp = ts.Add(time.Duration(b) * time.Minute)

		out, err := s.ingest.Ingest(ctx, &e)
		if err != nil {
			return fmt.Errorf("simulate ingest: %w", err)
		}
		res.EventsCreated++
		metrics.SimulatedEventsTotal.Inc()

		if out.Alert != nil {
			res.AlertsCreated++
			if out.Alert.Decision == risk.DecisionSuppress {
				res.SuppressedEvents++
			}
		}
	}
	return nil
}

func unknownDeviceID() string {
	return fmt.Sprintf("DEV%04d", gofakeit.Number(101, 999))
}

func foreignLocation(home events.Location) events.Location {
	for {
		loc := locations[gofakeit.Number(0, len(locations)-1)]
		if loc.City != home.City {
			return loc
		}
	}
}
