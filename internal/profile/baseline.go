package profile

import (
	"math"
	"time"
)

const loginEventType = "login"

// NewBaseline builds the initial profile for a user's first observed event.
// The seeding event is terminal: it is already folded into the baseline
// (total_logins = 1, mean = its hour) and must not be applied again.
func NewBaseline(obs Observation) *BehavioralProfile {
	hour := float64(obs.Hour())
	return &BehavioralProfile{
		UserID: obs.UserID,
		LoginHours: LoginHours{
			Mean:         hour,
			StdDev:       0,
			TypicalRange: [2]float64{hour, hour},
			Timezone:     "UTC",
		},
		Devices: []Device{{
			DeviceID:   obs.DeviceID,
			Type:       obs.DeviceType,
			OS:         obs.DeviceOS,
			FirstSeen:  obs.Timestamp,
			LastSeen:   obs.Timestamp,
			LoginCount: 1,
		}},
		Locations: []Location{{
			City:       obs.City,
			Country:    obs.Country,
			FirstSeen:  obs.Timestamp,
			LastSeen:   obs.Timestamp,
			LoginCount: 1,
		}},
		Statistics: Statistics{
			TotalLogins:    1,
			FirstLogin:     obs.Timestamp,
			AccountAgeDays: 0,
		},
		LastUpdated: obs.Timestamp,
		Version:     1,
	}
}

// Apply folds an observation into the profile in place.
// Login events update hour statistics, device/location sets, and counters.
// Other event types only touch last_updated.
func Apply(p *BehavioralProfile, obs Observation) {
	if obs.EventType == loginEventType {
		applyLoginHour(p, obs.Hour())
		applyDevice(p, obs)
		applyLocation(p, obs)

		p.Statistics.TotalLogins++
		p.Statistics.AccountAgeDays = int(obs.Timestamp.Sub(p.Statistics.FirstLogin) / (24 * time.Hour))
	}

	p.LastUpdated = obs.Timestamp
}

// applyLoginHour updates the running mean and standard deviation with a
// single-pass (Welford-style) update, then recomputes the typical range.
func applyLoginHour(p *BehavioralProfile, hour int) {
	h := float64(hour)
	n := float64(p.Statistics.TotalLogins)

	oldMean := p.LoginHours.Mean
	newMean := oldMean + (h-oldMean)/(n+1)

	var newStdDev float64
	if n > 0 {
		oldStdDev := p.LoginHours.StdDev
		newStdDev = math.Sqrt(((n-1)*oldStdDev*oldStdDev + (h-oldMean)*(h-newMean)) / n)
	}

	p.LoginHours.Mean = newMean
	p.LoginHours.StdDev = newStdDev
	p.LoginHours.TypicalRange = [2]float64{
		math.Max(0, newMean-2*newStdDev),
		math.Min(23, newMean+2*newStdDev),
	}
}

func applyDevice(p *BehavioralProfile, obs Observation) {
	for i := range p.Devices {
		if p.Devices[i].DeviceID == obs.DeviceID {
			p.Devices[i].LastSeen = obs.Timestamp
			p.Devices[i].LoginCount++
			return
		}
	}
	p.Devices = append(p.Devices, Device{
		DeviceID:   obs.DeviceID,
		Type:       obs.DeviceType,
		OS:         obs.DeviceOS,
		FirstSeen:  obs.Timestamp,
		LastSeen:   obs.Timestamp,
		LoginCount: 1,
	})
}

func applyLocation(p *BehavioralProfile, obs Observation) {
	for i := range p.Locations {
		if p.Locations[i].City == obs.City && p.Locations[i].Country == obs.Country {
			p.Locations[i].LastSeen = obs.Timestamp
			p.Locations[i].LoginCount++
			return
		}
	}
	p.Locations = append(p.Locations, Location{
		City:       obs.City,
		Country:    obs.Country,
		FirstSeen:  obs.Timestamp,
		LastSeen:   obs.Timestamp,
		LoginCount: 1,
	})
}
