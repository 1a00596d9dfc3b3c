// Package risk scores login events against a user's behavioral baseline.
//
// Every event is evaluated against 4 additive factors: new user, new
// device, new location, and anomalous login hour. Scores range from 0
// (matches the baseline) to 100 (capped). The score maps to one of three
// decisions: suppress (noise), review (analyst queue), or escalate
// (immediate attention).
package risk

// Decision is the engine's verdict on an event.
type Decision string

const (
	DecisionSuppress Decision = "suppress"
	DecisionReview   Decision = "review"
	DecisionEscalate Decision = "escalate"
)

// Score thresholds for decisions. Scores at or above EscalateThreshold
// escalate; at or above ReviewThreshold go to review; everything below
// is suppressed.
const (
	EscalateThreshold = 70
	ReviewThreshold   = 31
)

// Points awarded per factor.
const (
	PointsNewUser       = 10
	PointsNewDevice     = 35
	PointsNewLocation   = 30
	PointsAnomalousTime = 22
)

// MaxScore caps the total risk score.
const MaxScore = 100

// Factor names.
const (
	FactorNewUser       = "new_user"
	FactorNewDevice     = "new_device"
	FactorNewLocation   = "new_location"
	FactorAnomalousTime = "anomalous_time"
)

// Rule names, most to least specific.
const (
	RuleMultiFactorAnomaly = "multi_factor_anomaly"
	RuleDeviceAnomaly      = "device_anomaly"
	RuleLocationAnomaly    = "location_anomaly"
	RuleTemporalAnomaly    = "temporal_anomaly"
	RuleNewAccount         = "new_account"
	RuleBehavioralAnomaly  = "behavioral_anomaly"
	RuleBaselineCheck      = "baseline_check"
)

// Factor is a single contribution to the risk score.
type Factor struct {
	Factor      string `json:"factor"`
	Points      int    `json:"points"`
	Description string `json:"description"`
}

// Assessment is the result of evaluating a single event.
type Assessment struct {
	RiskScore     int      `json:"risk_score"`
	Decision      Decision `json:"decision"`
	RiskFactors   []Factor `json:"risk_factors"`
	Explanation   string   `json:"explanation"`
	RuleTriggered string   `json:"rule_triggered"`
}

// FactorNames returns the names of the triggered factors in order.
func (a *Assessment) FactorNames() []string {
	names := make([]string, len(a.RiskFactors))
	for i, f := range a.RiskFactors {
		names[i] = f.Factor
	}
	return names
}
