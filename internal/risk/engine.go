package risk

import (
	"fmt"
	"strings"

	"loginsight/internal/profile"
)

// Assess scores an observation against the user's baseline.
// The profile must be the pre-update baseline: the event being scored
// must not already be folded into it (except for the seeding event,
// which is scored against the profile it created).
func Assess(p *profile.BehavioralProfile, obs profile.Observation) *Assessment {
	var factors []Factor
	score := 0

	if p.IsNewUser() {
		score += PointsNewUser
		factors = append(factors, Factor{
			Factor:      FactorNewUser,
			Points:      PointsNewUser,
			Description: "First login for this user account",
		})
	}

	if !p.HasDevice(obs.DeviceID) {
		score += PointsNewDevice
		factors = append(factors, Factor{
			Factor:      FactorNewDevice,
			Points:      PointsNewDevice,
			Description: fmt.Sprintf("Unrecognized device: %s - %s", obs.DeviceType, obs.DeviceOS),
		})
	}

	if !p.HasLocation(obs.City, obs.Country) {
		score += PointsNewLocation
		factors = append(factors, Factor{
			Factor:      FactorNewLocation,
			Points:      PointsNewLocation,
			Description: fmt.Sprintf("Unrecognized location: %s, %s", obs.City, obs.Country),
		})
	}

	if hour := obs.Hour(); p.IsAnomalousHour(hour) {
		score += PointsAnomalousTime
		factors = append(factors, Factor{
			Factor: FactorAnomalousTime,
			Points: PointsAnomalousTime,
			Description: fmt.Sprintf("Login at unusual hour %d:00 (typical range: %.1f-%.1f)",
				hour, p.LoginHours.TypicalRange[0], p.LoginHours.TypicalRange[1]),
		})
	}

	if score > MaxScore {
		score = MaxScore
	}

	decision := determineDecision(score)

	return &Assessment{
		RiskScore:     score,
		Decision:      decision,
		RiskFactors:   factors,
		Explanation:   explain(score, factors, decision),
		RuleTriggered: ruleTriggered(factors),
	}
}

func determineDecision(score int) Decision {
	switch {
	case score >= EscalateThreshold:
		return DecisionEscalate
	case score >= ReviewThreshold:
		return DecisionReview
	default:
		return DecisionSuppress
	}
}

func explain(score int, factors []Factor, decision Decision) string {
	if len(factors) == 0 {
		return "Login appears normal. No anomalies detected."
	}

	names := make([]string, len(factors))
	for i, f := range factors {
		names[i] = f.Factor
	}

	var action string
	switch decision {
	case DecisionEscalate:
		action = "Immediate review required."
	case DecisionReview:
		action = "Manual review recommended."
	default:
		action = "Monitoring only."
	}

	return fmt.Sprintf("Risk score %d/100. Detected: %s. %s", score, strings.Join(names, ", "), action)
}

// ruleTriggered maps the triggered factors to the most specific rule name.
func ruleTriggered(factors []Factor) string {
	if len(factors) == 0 {
		return RuleBaselineCheck
	}

	has := make(map[string]bool, len(factors))
	for _, f := range factors {
		has[f.Factor] = true
	}

	switch {
	case has[FactorNewDevice] && has[FactorNewLocation]:
		return RuleMultiFactorAnomaly
	case has[FactorNewDevice]:
		return RuleDeviceAnomaly
	case has[FactorNewLocation]:
		return RuleLocationAnomaly
	case has[FactorAnomalousTime]:
		return RuleTemporalAnomaly
	case has[FactorNewUser]:
		return RuleNewAccount
	default:
		return RuleBehavioralAnomaly
	}
}
