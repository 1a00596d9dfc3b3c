package events

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store for tests and demo mode.
type MemoryStore struct {
	mu     sync.RWMutex
	events []*Event
	byID   map[string]*Event
}

// Compile-time check.
var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[string]*Event)}
}

func (s *MemoryStore) Insert(_ context.Context, e *Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[e.EventID]; ok {
		return ErrDuplicateID
	}
	cp := *e
	s.events = append(s.events, &cp)
	s.byID[e.EventID] = &cp
	return nil
}

func (s *MemoryStore) List(_ context.Context, q ListQuery) ([]*Event, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*Event, 0, len(s.events))
	for _, e := range s.events {
		if q.UserID != "" && e.UserID != q.UserID {
			continue
		}
		if q.EventType != "" && e.EventType != q.EventType {
			continue
		}
		matched = append(matched, e)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Timestamp.After(matched[j].Timestamp)
	})

	total := len(matched)
	start, end := q.Page.Slice(total)
	out := make([]*Event, 0, end-start)
	for _, e := range matched[start:end] {
		cp := *e
		out = append(out, &cp)
	}
	return out, total, nil
}

func (s *MemoryStore) ListByUser(_ context.Context, userID string, limit int) ([]*Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*Event
	for _, e := range s.events {
		if e.UserID == userID {
			matched = append(matched, e)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Timestamp.After(matched[j].Timestamp)
	})
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}

	out := make([]*Event, 0, len(matched))
	for _, e := range matched {
		cp := *e
		out = append(out, &cp)
	}
	return out, nil
}

func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events), nil
}

func (s *MemoryStore) CountPerDay(_ context.Context, since time.Time) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]int)
	for _, e := range s.events {
		if e.Timestamp.Before(since) {
			continue
		}
		out[e.Timestamp.UTC().Format("2006-01-02")]++
	}
	return out, nil
}
