package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"loginsight/internal/alerts"
	"loginsight/internal/idgen"
	"loginsight/internal/logging"
	"loginsight/internal/metrics"
	"loginsight/internal/profile"
	"loginsight/internal/retry"
	"loginsight/internal/risk"
	"loginsight/internal/syncutil"
	"loginsight/internal/traces"
)

// DefaultConflictRetries bounds the read-assess-update retry loop.
const DefaultConflictRetries = 3

// conflictBackoff is the base delay between conflict retries.
const conflictBackoff = 10 * time.Millisecond

// Service runs the ingest pipeline.
type Service struct {
	store           Store
	profiles        profile.Store
	alerts          *alerts.Service
	conflictRetries int
	userLocks       *syncutil.ContextShardedMutex
	logger          *slog.Logger
}

// NewService creates an event service.
func NewService(store Store, profiles profile.Store, alertSvc *alerts.Service, logger *slog.Logger) *Service {
	return &Service{
		store:           store,
		profiles:        profiles,
		alerts:          alertSvc,
		conflictRetries: DefaultConflictRetries,
		userLocks:       syncutil.NewContextShardedMutex(),
		logger:          logger,
	}
}

// SetConflictRetries overrides the retry budget for profile version conflicts.
func (s *Service) SetConflictRetries(n int) {
	if n >= 1 {
		s.conflictRetries = n
	}
}

// Store exposes the underlying store for read-side consumers.
func (s *Service) Store() Store {
	return s.store
}

// Result is the outcome of ingesting one event.
type Result struct {
	Event      *Event
	Assessment *risk.Assessment
	Alert      *alerts.Alert // nil when risk score is 0
}

// Ingest persists the event, scores it against the pre-update baseline,
// folds it into the baseline, and creates an alert when warranted.
//
// Same-user races are resolved optimistically: a profile version conflict
// re-runs the read-assess-update cycle so the assessment always reflects
// the baseline the update applied to. The alert is created once, after
// the cycle settles.
func (s *Service) Ingest(ctx context.Context, e *Event) (*Result, error) {
	ctx, span := traces.StartSpan(ctx, "events.ingest",
		traces.UserID(e.UserID), traces.EventType(e.EventType))
	defer span.End()

	if e.EventID == "" {
		e.EventID = idgen.WithPrefix("evt_")
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	if err := s.store.Insert(ctx, e); err != nil {
		return nil, fmt.Errorf("persist event: %w", err)
	}
	metrics.EventsIngestedTotal.WithLabelValues(e.EventType).Inc()

	obs := e.Observation()

	// Serialize same-user cycles within this process. The version check
	// on Update still guards against writers on other instances.
	unlock, err := s.userLocks.LockContext(ctx, e.UserID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var assessment *risk.Assessment
	err = retry.Do(ctx, s.conflictRetries, conflictBackoff, func() error {
		p, created, err := s.profiles.GetOrCreate(ctx, e.UserID, obs)
		if err != nil {
			return retry.Permanent(err)
		}

		// Risk is always computed against the baseline as it was before
		// this event was folded in.
		assessment = risk.Assess(p, obs)

		if created {
			// The seeding event is terminal: the baseline already
			// reflects it, so there is nothing to fold in.
			metrics.ProfilesCreatedTotal.Inc()
			return nil
		}

		profile.Apply(p, obs)
		if err := s.profiles.Update(ctx, p); err != nil {
			if errors.Is(err, profile.ErrConflict) {
				metrics.ProfileConflictsTotal.Inc()
				return err // retryable: re-read and re-assess
			}
			return retry.Permanent(err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update profile for %s: %w", e.UserID, err)
	}

	span.SetAttributes(
		traces.EventID(e.EventID),
		traces.RiskScoreAttr(assessment.RiskScore),
		traces.Decision(string(assessment.Decision)),
		traces.RuleTriggered(assessment.RuleTriggered),
	)
	metrics.RiskScore.Observe(float64(assessment.RiskScore))

	alert, err := s.alerts.CreateIfNeeded(ctx, e.UserID, e.EventID, assessment)
	if err != nil {
		return nil, err
	}

	logging.L(ctx).Info("event ingested",
		"event_id", e.EventID,
		"user_id", e.UserID,
		"event_type", e.EventType,
		"risk_score", assessment.RiskScore,
		"decision", assessment.Decision,
	)

	return &Result{Event: e, Assessment: assessment, Alert: alert}, nil
}
