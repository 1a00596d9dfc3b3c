// Package analytics derives aggregate statistics from the persisted
// events and alerts: the headline summary, decision and severity
// distributions, the raw-vs-smart daily trend, and the high-risk feed.
// All queries are read-only and reflect a recent, not necessarily
// latest, state of the stores.
package analytics

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"time"

	"loginsight/internal/alerts"
	"loginsight/internal/events"
	"loginsight/internal/risk"
)

const (
	// DefaultTrendDays is the trailing window for the alert trend.
	DefaultTrendDays = 30
	// MaxTrendDays bounds caller-supplied trend windows.
	MaxTrendDays = 365
	// HighRiskLimit is the fixed page size of the high-risk feed.
	HighRiskLimit = 20
)

// Summary is the headline view of how the engine is performing:
// how many raw events came in, how many alerts were recorded, how many
// of those were worth surfacing, and how much noise was cut.
type Summary struct {
	TotalEvents      int     `json:"total_events"`
	TotalAlerts      int     `json:"total_alerts"`
	SmartAlerts      int     `json:"smart_alerts"`
	AlertReduction   float64 `json:"alert_reduction"`
	EscalationRate   float64 `json:"escalation_rate"`
	SuppressionRate  float64 `json:"suppression_rate"`
	AverageRiskScore float64 `json:"average_risk_score"`
}

// DecisionCounts groups alerts by the policy decision taken.
type DecisionCounts struct {
	Suppress int `json:"suppress"`
	Review   int `json:"review"`
	Escalate int `json:"escalate"`
}

// TrendPoint is one calendar day of the raw-vs-smart comparison.
type TrendPoint struct {
	Date  string `json:"date"`
	Raw   int    `json:"raw"`
	Smart int    `json:"smart"`
}

// HighRiskAlert is the trimmed row shape of the high-risk feed.
type HighRiskAlert struct {
	AlertID   string        `json:"alert_id"`
	Timestamp time.Time     `json:"timestamp"`
	UserID    string        `json:"user_id"`
	EventID   string        `json:"event_id"`
	RiskScore int           `json:"risk_score"`
	Decision  risk.Decision `json:"decision"`
}

// Service computes aggregates over the event and alert stores.
type Service struct {
	events events.Store
	alerts alerts.Store
	logger *slog.Logger
}

// NewService creates an analytics service.
func NewService(eventStore events.Store, alertStore alerts.Store, logger *slog.Logger) *Service {
	return &Service{events: eventStore, alerts: alertStore, logger: logger}
}

// Summary computes the headline statistics. Counters are clamped
// against each other so concurrent writers between the individual
// queries can never produce a negative reduction or a rate above 100.
func (s *Service) Summary(ctx context.Context) (*Summary, error) {
	eventCount, err := s.events.Count(ctx)
	if err != nil {
		return nil, err
	}

	alertCount, err := s.alerts.Count(ctx)
	if err != nil {
		return nil, err
	}

	byDecision, err := s.alerts.CountByDecision(ctx)
	if err != nil {
		return nil, err
	}
	smartCount := byDecision[risk.DecisionReview] + byDecision[risk.DecisionEscalate]
	escalateCount := byDecision[risk.DecisionEscalate]
	suppressCount := byDecision[risk.DecisionSuppress]

	avgScore, err := s.alerts.AverageScoreNonSuppressed(ctx)
	if err != nil {
		return nil, err
	}

	totalEvents := max(eventCount, smartCount)
	smartAlerts := min(smartCount, totalEvents)

	out := &Summary{
		TotalEvents:      totalEvents,
		TotalAlerts:      alertCount,
		SmartAlerts:      smartAlerts,
		AverageRiskScore: round2(avgScore),
	}
	if totalEvents > 0 {
		out.AlertReduction = round2(float64(totalEvents-smartAlerts) / float64(totalEvents) * 100)
		out.SuppressionRate = round2(float64(min(suppressCount, totalEvents)) / float64(totalEvents) * 100)
	}
	if smartAlerts > 0 {
		out.EscalationRate = round2(float64(min(escalateCount, smartAlerts)) / float64(smartAlerts) * 100)
	}
	return out, nil
}

// DecisionDistribution returns alert counts per decision.
func (s *Service) DecisionDistribution(ctx context.Context) (*DecisionCounts, error) {
	byDecision, err := s.alerts.CountByDecision(ctx)
	if err != nil {
		return nil, err
	}
	return &DecisionCounts{
		Suppress: byDecision[risk.DecisionSuppress],
		Review:   byDecision[risk.DecisionReview],
		Escalate: byDecision[risk.DecisionEscalate],
	}, nil
}

// SeverityDistribution buckets all alerts by score.
func (s *Service) SeverityDistribution(ctx context.Context) (alerts.SeverityCounts, error) {
	return s.alerts.Severity(ctx)
}

// AlertTrend returns per-day raw event counts against smart
// (non-suppressed) alert counts over the trailing window, merged by
// date and sorted ascending. Days with activity on only one side
// still appear, with the other side zero.
func (s *Service) AlertTrend(ctx context.Context, days int) ([]TrendPoint, error) {
	if days <= 0 {
		days = DefaultTrendDays
	}
	if days > MaxTrendDays {
		days = MaxTrendDays
	}
	since := time.Now().UTC().AddDate(0, 0, -days)

	raw, err := s.events.CountPerDay(ctx, since)
	if err != nil {
		return nil, err
	}
	smart, err := s.alerts.CountSmartPerDay(ctx, since)
	if err != nil {
		return nil, err
	}

	dates := make(map[string]struct{}, len(raw)+len(smart))
	for d := range raw {
		dates[d] = struct{}{}
	}
	for d := range smart {
		dates[d] = struct{}{}
	}

	out := make([]TrendPoint, 0, len(dates))
	for d := range dates {
		out = append(out, TrendPoint{Date: d, Raw: raw[d], Smart: smart[d]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

// HighRiskAlerts returns the top escalation-threshold alerts by score.
func (s *Service) HighRiskAlerts(ctx context.Context) ([]HighRiskAlert, error) {
	items, err := s.alerts.ListHighRisk(ctx, risk.EscalateThreshold, HighRiskLimit)
	if err != nil {
		return nil, err
	}

	out := make([]HighRiskAlert, 0, len(items))
	for _, a := range items {
		out = append(out, HighRiskAlert{
			AlertID:   a.AlertID,
			Timestamp: a.Timestamp,
			UserID:    a.UserID,
			EventID:   a.EventID,
			RiskScore: a.RiskScore,
			Decision:  a.Decision,
		})
	}
	return out, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
