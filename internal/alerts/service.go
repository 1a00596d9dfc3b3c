package alerts

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"loginsight/internal/idgen"
	"loginsight/internal/logging"
	"loginsight/internal/metrics"
	"loginsight/internal/risk"
)

// Notifier receives created alerts (realtime fan-out to dashboards).
type Notifier interface {
	AlertCreated(a *Alert)
}

// Service applies the alert creation policy on top of a Store.
type Service struct {
	store    Store
	notifier Notifier // nil = no realtime feed
	logger   *slog.Logger
}

// NewService creates an alert service.
func NewService(store Store, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// SetNotifier attaches a realtime notifier for created alerts.
func (s *Service) SetNotifier(n Notifier) {
	s.notifier = n
}

// Store exposes the underlying store for read-side consumers.
func (s *Service) Store() Store {
	return s.store
}

// CreateIfNeeded persists an alert for the assessment unless the risk
// score is zero. Returns the created alert, or nil when none was needed.
func (s *Service) CreateIfNeeded(ctx context.Context, userID, eventID string, a *risk.Assessment) (*Alert, error) {
	if a.RiskScore == 0 {
		return nil, nil
	}

	alert := &Alert{
		AlertID:       idgen.WithPrefix("alr_"),
		Timestamp:     time.Now().UTC(),
		UserID:        userID,
		EventID:       eventID,
		RuleTriggered: a.RuleTriggered,
		RiskScore:     a.RiskScore,
		RiskFactors:   a.RiskFactors,
		Decision:      a.Decision,
		Explanation:   a.Explanation,
		Status:        StatusPending,
	}

	if err := s.store.Insert(ctx, alert); err != nil {
		return nil, fmt.Errorf("create alert: %w", err)
	}

	metrics.AlertsTotal.WithLabelValues(string(alert.Decision)).Inc()

	logging.L(ctx).Info("alert created",
		"alert_id", alert.AlertID,
		"user_id", userID,
		"event_id", eventID,
		"risk_score", alert.RiskScore,
		"decision", alert.Decision,
		"rule", alert.RuleTriggered,
	)

	if s.notifier != nil {
		s.notifier.AlertCreated(alert)
	}

	return alert, nil
}

// UpdateStatus validates and applies a workflow status transition.
func (s *Service) UpdateStatus(ctx context.Context, alertID string, status Status) (*Alert, error) {
	if !ValidStatus(status) {
		return nil, fmt.Errorf("invalid status %q", status)
	}
	return s.store.UpdateStatus(ctx, alertID, status)
}
