// Package alerts persists and serves risk alerts produced by the ingest
// pipeline. An alert is created for every event with a non-zero risk
// score; suppressed alerts are kept for the audit trail and analytics
// but never surface in the "smart" alert feed.
package alerts

import (
	"context"
	"errors"
	"time"

	"loginsight/internal/pagination"
	"loginsight/internal/risk"
)

var (
	// ErrNotFound is returned when no alert exists for an ID.
	ErrNotFound = errors.New("alert not found")
	// ErrDuplicateID is returned on an alert ID collision.
	ErrDuplicateID = errors.New("duplicate alert id")
	// ErrUnavailable is returned when the backing store cannot be reached.
	ErrUnavailable = errors.New("alert store unavailable")
)

// Status is the operator workflow state of an alert.
type Status string

const (
	StatusPending       Status = "pending"
	StatusInvestigating Status = "investigating"
	StatusResolved      Status = "resolved"
	StatusFalsePositive Status = "false_positive"
)

// ValidStatus reports whether s is a known workflow status.
func ValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusInvestigating, StatusResolved, StatusFalsePositive:
		return true
	}
	return false
}

// Alert records the risk assessment of a single event.
type Alert struct {
	AlertID       string        `json:"alert_id"`
	Timestamp     time.Time     `json:"timestamp"`
	UserID        string        `json:"user_id"`
	EventID       string        `json:"event_id"`
	RuleTriggered string        `json:"rule_triggered"`
	RiskScore     int           `json:"risk_score"`
	RiskFactors   []risk.Factor `json:"risk_factors"`
	Decision      risk.Decision `json:"decision"`
	Explanation   string        `json:"explanation"`
	Status        Status        `json:"status"`
}

// ListQuery filters the paginated alert listing.
type ListQuery struct {
	Decision risk.Decision // empty = all decisions
	Search   string        // case-insensitive match on user_id or explanation
	Page     pagination.Params
}

// SeverityCounts buckets alerts by risk score:
// low [0,31), medium [31,70), high [70,90), critical [90,100].
type SeverityCounts struct {
	Low      int `json:"low"`
	Medium   int `json:"medium"`
	High     int `json:"high"`
	Critical int `json:"critical"`
}

// SeverityBucket returns the bucket name for a risk score.
func SeverityBucket(score int) string {
	switch {
	case score >= 90:
		return "critical"
	case score >= 70:
		return "high"
	case score >= 31:
		return "medium"
	default:
		return "low"
	}
}

// Store persists alerts and serves the aggregate queries the
// analytics layer is built on.
type Store interface {
	// Insert stores a new alert. Returns ErrDuplicateID on an ID collision.
	Insert(ctx context.Context, a *Alert) error

	// Get returns an alert by ID or ErrNotFound.
	Get(ctx context.Context, alertID string) (*Alert, error)

	// UpdateStatus transitions an alert's workflow status and returns the
	// updated alert, or ErrNotFound.
	UpdateStatus(ctx context.Context, alertID string, status Status) (*Alert, error)

	// List returns a page of alerts (newest first) and the total count
	// matching the query.
	List(ctx context.Context, q ListQuery) ([]*Alert, int, error)

	// ListByUser returns a user's alerts, newest first, bounded by limit.
	ListByUser(ctx context.Context, userID string, limit int) ([]*Alert, error)

	// ListHighRisk returns alerts with risk_score >= minScore, highest first.
	ListHighRisk(ctx context.Context, minScore, limit int) ([]*Alert, error)

	// Count returns the total number of alerts.
	Count(ctx context.Context) (int, error)

	// CountByDecision groups alert counts by decision.
	CountByDecision(ctx context.Context) (map[risk.Decision]int, error)

	// AverageScoreNonSuppressed returns the mean risk score over alerts
	// whose decision is not suppress; 0 when there are none.
	AverageScoreNonSuppressed(ctx context.Context) (float64, error)

	// Severity buckets all alerts by score.
	Severity(ctx context.Context) (SeverityCounts, error)

	// CountSmartPerDay counts non-suppressed alerts per UTC day
	// (keyed "2006-01-02") since the given time.
	CountSmartPerDay(ctx context.Context, since time.Time) (map[string]int, error)
}
