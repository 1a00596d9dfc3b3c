package alerts

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"loginsight/internal/risk"
)

// MemoryStore is an in-memory Store for tests and demo mode.
type MemoryStore struct {
	mu     sync.RWMutex
	alerts []*Alert
	byID   map[string]*Alert
}

// Compile-time check.
var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[string]*Alert)}
}

func (s *MemoryStore) Insert(_ context.Context, a *Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[a.AlertID]; ok {
		return ErrDuplicateID
	}
	cp := *a
	s.alerts = append(s.alerts, &cp)
	s.byID[a.AlertID] = &cp
	return nil
}

func (s *MemoryStore) Get(_ context.Context, alertID string) (*Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.byID[alertID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *MemoryStore) UpdateStatus(_ context.Context, alertID string, status Status) (*Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.byID[alertID]
	if !ok {
		return nil, ErrNotFound
	}
	a.Status = status
	cp := *a
	return &cp, nil
}

func (s *MemoryStore) List(_ context.Context, q ListQuery) ([]*Alert, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*Alert, 0, len(s.alerts))
	search := strings.ToLower(q.Search)
	for _, a := range s.alerts {
		if q.Decision != "" && a.Decision != q.Decision {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(a.UserID), search) &&
			!strings.Contains(strings.ToLower(a.Explanation), search) {
			continue
		}
		matched = append(matched, a)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Timestamp.After(matched[j].Timestamp)
	})

	total := len(matched)
	start, end := q.Page.Slice(total)
	out := make([]*Alert, 0, end-start)
	for _, a := range matched[start:end] {
		cp := *a
		out = append(out, &cp)
	}
	return out, total, nil
}

func (s *MemoryStore) ListByUser(_ context.Context, userID string, limit int) ([]*Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*Alert
	for _, a := range s.alerts {
		if a.UserID == userID {
			matched = append(matched, a)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Timestamp.After(matched[j].Timestamp)
	})
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}

	out := make([]*Alert, 0, len(matched))
	for _, a := range matched {
		cp := *a
		out = append(out, &cp)
	}
	return out, nil
}

func (s *MemoryStore) ListHighRisk(_ context.Context, minScore, limit int) ([]*Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*Alert
	for _, a := range s.alerts {
		if a.RiskScore >= minScore {
			matched = append(matched, a)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].RiskScore != matched[j].RiskScore {
			return matched[i].RiskScore > matched[j].RiskScore
		}
		return matched[i].Timestamp.After(matched[j].Timestamp)
	})
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}

	out := make([]*Alert, 0, len(matched))
	for _, a := range matched {
		cp := *a
		out = append(out, &cp)
	}
	return out, nil
}

func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.alerts), nil
}

func (s *MemoryStore) CountByDecision(_ context.Context) (map[risk.Decision]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[risk.Decision]int)
	for _, a := range s.alerts {
		out[a.Decision]++
	}
	return out, nil
}

func (s *MemoryStore) AverageScoreNonSuppressed(_ context.Context) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sum, n := 0, 0
	for _, a := range s.alerts {
		if a.Decision != risk.DecisionSuppress {
			sum += a.RiskScore
			n++
		}
	}
	if n == 0 {
		return 0, nil
	}
	return float64(sum) / float64(n), nil
}

func (s *MemoryStore) Severity(_ context.Context) (SeverityCounts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out SeverityCounts
	for _, a := range s.alerts {
		switch SeverityBucket(a.RiskScore) {
		case "critical":
			out.Critical++
		case "high":
			out.High++
		case "medium":
			out.Medium++
		default:
			out.Low++
		}
	}
	return out, nil
}

func (s *MemoryStore) CountSmartPerDay(_ context.Context, since time.Time) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]int)
	for _, a := range s.alerts {
		if a.Decision == risk.DecisionSuppress || a.Timestamp.Before(since) {
			continue
		}
		out[a.Timestamp.UTC().Format("2006-01-02")]++
	}
	return out, nil
}
