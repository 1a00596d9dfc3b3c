package profile

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory Store for tests and demo mode.
type MemoryStore struct {
	mu       sync.RWMutex
	profiles map[string]*BehavioralProfile
}

// Compile-time check.
var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		profiles: make(map[string]*BehavioralProfile),
	}
}

func (s *MemoryStore) GetOrCreate(_ context.Context, userID string, obs Observation) (*BehavioralProfile, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.profiles[userID]; ok {
		return clone(p), false, nil
	}

	p := NewBaseline(obs)
	s.profiles[userID] = clone(p)
	return p, true, nil
}

func (s *MemoryStore) Get(_ context.Context, userID string) (*BehavioralProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(p), nil
}

func (s *MemoryStore) Update(_ context.Context, p *BehavioralProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.profiles[p.UserID]
	if !ok {
		return ErrNotFound
	}
	if stored.Version != p.Version {
		return ErrConflict
	}

	p.Version++
	s.profiles[p.UserID] = clone(p)
	return nil
}

func (s *MemoryStore) Upsert(_ context.Context, p *BehavioralProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.Version == 0 {
		p.Version = 1
	}
	s.profiles[p.UserID] = clone(p)
	return nil
}

func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.profiles), nil
}

// clone deep-copies a profile so callers never share slices with the store.
func clone(p *BehavioralProfile) *BehavioralProfile {
	cp := *p
	cp.Devices = make([]Device, len(p.Devices))
	copy(cp.Devices, p.Devices)
	cp.Locations = make([]Location, len(p.Locations))
	copy(cp.Locations, p.Locations)
	return &cp
}
