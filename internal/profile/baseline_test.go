package profile

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func obsAt(ts time.Time) Observation {
	return Observation{
		UserID:     "user_042",
		Timestamp:  ts,
		EventType:  "login",
		DeviceID:   "dev-1",
		DeviceType: "desktop",
		DeviceOS:   "macOS",
		City:       "Berlin",
		Country:    "Germany",
	}
}

func TestNewBaseline(t *testing.T) {
	ts := time.Date(2026, 3, 10, 9, 15, 0, 0, time.UTC)
	p := NewBaseline(obsAt(ts))

	assert.Equal(t, "user_042", p.UserID)
	assert.Equal(t, 9.0, p.LoginHours.Mean)
	assert.Equal(t, 0.0, p.LoginHours.StdDev)
	assert.Equal(t, [2]float64{9, 9}, p.LoginHours.TypicalRange)
	assert.Equal(t, "UTC", p.LoginHours.Timezone)

	require.Len(t, p.Devices, 1)
	assert.Equal(t, "dev-1", p.Devices[0].DeviceID)
	assert.Equal(t, 1, p.Devices[0].LoginCount)

	require.Len(t, p.Locations, 1)
	assert.Equal(t, "Berlin", p.Locations[0].City)

	assert.Equal(t, 1, p.Statistics.TotalLogins)
	assert.Equal(t, 0, p.Statistics.AccountAgeDays)
	assert.Equal(t, int64(1), p.Version)
}

func TestApply_SecondLoginUpdatesHourStats(t *testing.T) {
	first := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	p := NewBaseline(obsAt(first))

	// Second login at hour 13: mean 9 -> 11, stddev 0 -> sqrt(8).
	second := obsAt(time.Date(2026, 3, 11, 13, 0, 0, 0, time.UTC))
	Apply(p, second)

	assert.InDelta(t, 11.0, p.LoginHours.Mean, 1e-9)
	assert.InDelta(t, 2.8284271247, p.LoginHours.StdDev, 1e-9)
	assert.InDelta(t, 11.0-2*2.8284271247, p.LoginHours.TypicalRange[0], 1e-9)
	assert.InDelta(t, 11.0+2*2.8284271247, p.LoginHours.TypicalRange[1], 1e-9)

	assert.Equal(t, 2, p.Statistics.TotalLogins)
	assert.Equal(t, 1, p.Statistics.AccountAgeDays)
	assert.Equal(t, second.Timestamp, p.LastUpdated)
}

func TestApply_ThirdLoginAtMean(t *testing.T) {
	p := NewBaseline(obsAt(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)))
	Apply(p, obsAt(time.Date(2026, 3, 11, 13, 0, 0, 0, time.UTC)))

	// Third login at hour 11 (the current mean): mean stays 11, stddev shrinks to 2.
	Apply(p, obsAt(time.Date(2026, 3, 12, 11, 0, 0, 0, time.UTC)))

	assert.InDelta(t, 11.0, p.LoginHours.Mean, 1e-9)
	assert.InDelta(t, 2.0, p.LoginHours.StdDev, 1e-9)
	assert.InDelta(t, 7.0, p.LoginHours.TypicalRange[0], 1e-9)
	assert.InDelta(t, 15.0, p.LoginHours.TypicalRange[1], 1e-9)
	assert.Equal(t, 3, p.Statistics.TotalLogins)
}

func TestApply_EstablishedBaselineLateLogin(t *testing.T) {
	// Five logins around hour 9 (mean 9, stddev 1), then a login at 15.
	// The divisor is asymmetric: the mean moves by (15-9)/6 but the
	// variance update divides by n, not n+1.
	first := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	p := &BehavioralProfile{
		UserID: "user_042",
		LoginHours: LoginHours{
			Mean:         9,
			StdDev:       1,
			TypicalRange: [2]float64{7, 11},
			Timezone:     "UTC",
		},
		Statistics: Statistics{TotalLogins: 5, FirstLogin: first},
	}

	Apply(p, obsAt(time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)))

	assert.InDelta(t, 10.0, p.LoginHours.Mean, 1e-9)
	// sqrt((4*1 + 6*5) / 5)
	assert.InDelta(t, math.Sqrt(6.8), p.LoginHours.StdDev, 1e-9)
	assert.InDelta(t, 10.0-2*math.Sqrt(6.8), p.LoginHours.TypicalRange[0], 1e-9)
	assert.InDelta(t, 10.0+2*math.Sqrt(6.8), p.LoginHours.TypicalRange[1], 1e-9)
	assert.Equal(t, 6, p.Statistics.TotalLogins)
}

func TestApply_TypicalRangeClamped(t *testing.T) {
	p := NewBaseline(obsAt(time.Date(2026, 3, 10, 1, 0, 0, 0, time.UTC)))
	Apply(p, obsAt(time.Date(2026, 3, 11, 23, 0, 0, 0, time.UTC)))

	assert.GreaterOrEqual(t, p.LoginHours.TypicalRange[0], 0.0)
	assert.LessOrEqual(t, p.LoginHours.TypicalRange[1], 23.0)
}

func TestApply_KnownDeviceIncrementsCount(t *testing.T) {
	p := NewBaseline(obsAt(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)))
	Apply(p, obsAt(time.Date(2026, 3, 11, 10, 0, 0, 0, time.UTC)))

	require.Len(t, p.Devices, 1)
	assert.Equal(t, 2, p.Devices[0].LoginCount)
	require.Len(t, p.Locations, 1)
	assert.Equal(t, 2, p.Locations[0].LoginCount)
}

func TestApply_NewDeviceAndLocationAppended(t *testing.T) {
	p := NewBaseline(obsAt(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)))

	obs := obsAt(time.Date(2026, 3, 11, 10, 0, 0, 0, time.UTC))
	obs.DeviceID = "dev-2"
	obs.DeviceType = "mobile"
	obs.City = "Paris"
	obs.Country = "France"
	Apply(p, obs)

	require.Len(t, p.Devices, 2)
	assert.Equal(t, "dev-2", p.Devices[1].DeviceID)
	assert.Equal(t, 1, p.Devices[1].LoginCount)

	require.Len(t, p.Locations, 2)
	assert.Equal(t, "Paris", p.Locations[1].City)

	assert.True(t, p.HasDevice("dev-2"))
	assert.True(t, p.HasLocation("Paris", "France"))
	assert.False(t, p.HasDevice("dev-3"))
}

func TestApply_NonLoginOnlyTouchesLastUpdated(t *testing.T) {
	p := NewBaseline(obsAt(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)))

	obs := obsAt(time.Date(2026, 3, 11, 22, 0, 0, 0, time.UTC))
	obs.EventType = "logout"
	obs.DeviceID = "dev-9"
	Apply(p, obs)

	assert.Equal(t, 1, p.Statistics.TotalLogins)
	assert.Equal(t, 9.0, p.LoginHours.Mean)
	assert.Len(t, p.Devices, 1)
	assert.Equal(t, obs.Timestamp, p.LastUpdated)
}

func TestIsAnomalousHour(t *testing.T) {
	p := &BehavioralProfile{}
	p.LoginHours.TypicalRange = [2]float64{7, 15}

	assert.False(t, p.IsAnomalousHour(7))
	assert.False(t, p.IsAnomalousHour(15))
	assert.True(t, p.IsAnomalousHour(6))
	assert.True(t, p.IsAnomalousHour(16))
	assert.True(t, p.IsAnomalousHour(2))
}
