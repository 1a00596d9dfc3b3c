package profile

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_GetOrCreate(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	obs := obsAt(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))

	p, created, err := s.GetOrCreate(ctx, "user_042", obs)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 1, p.Statistics.TotalLogins)

	// Second call returns the existing profile.
	p2, created, err := s.GetOrCreate(ctx, "user_042", obs)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, p.Version, p2.Version)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestMemoryStore_GetNotFound(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.Get(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_UpdateBumpsVersion(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	obs := obsAt(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))

	p, _, err := s.GetOrCreate(ctx, "user_042", obs)
	require.NoError(t, err)

	Apply(p, obsAt(time.Date(2026, 3, 11, 13, 0, 0, 0, time.UTC)))
	require.NoError(t, s.Update(ctx, p))
	assert.Equal(t, int64(2), p.Version)

	stored, err := s.Get(ctx, "user_042")
	require.NoError(t, err)
	assert.Equal(t, int64(2), stored.Version)
	assert.Equal(t, 2, stored.Statistics.TotalLogins)
}

func TestMemoryStore_UpdateConflict(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	obs := obsAt(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))

	_, _, err := s.GetOrCreate(ctx, "user_042", obs)
	require.NoError(t, err)

	// Two readers pick up the same version.
	a, err := s.Get(ctx, "user_042")
	require.NoError(t, err)
	b, err := s.Get(ctx, "user_042")
	require.NoError(t, err)

	Apply(a, obsAt(time.Date(2026, 3, 11, 13, 0, 0, 0, time.UTC)))
	require.NoError(t, s.Update(ctx, a))

	// The second writer holds a stale token.
	Apply(b, obsAt(time.Date(2026, 3, 11, 14, 0, 0, 0, time.UTC)))
	assert.ErrorIs(t, s.Update(ctx, b), ErrConflict)

	// The winner's write was not clobbered.
	stored, err := s.Get(ctx, "user_042")
	require.NoError(t, err)
	assert.Equal(t, 2, stored.Statistics.TotalLogins)
}

func TestMemoryStore_UpdateMissing(t *testing.T) {
	s := NewMemoryStore()
	p := NewBaseline(obsAt(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)))
	assert.ErrorIs(t, s.Update(context.Background(), p), ErrNotFound)
}

func TestMemoryStore_CallerMutationDoesNotLeak(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	obs := obsAt(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))

	p, _, err := s.GetOrCreate(ctx, "user_042", obs)
	require.NoError(t, err)
	p.Devices[0].DeviceID = "mutated"

	stored, err := s.Get(ctx, "user_042")
	require.NoError(t, err)
	assert.Equal(t, "dev-1", stored.Devices[0].DeviceID)
}

func TestMemoryStore_Upsert(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	p := NewBaseline(obsAt(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)))
	require.NoError(t, s.Upsert(ctx, p))

	// Upsert over an existing profile replaces it.
	p.Statistics.TotalLogins = 10
	require.NoError(t, s.Upsert(ctx, p))

	stored, err := s.Get(ctx, "user_042")
	require.NoError(t, err)
	assert.Equal(t, 10, stored.Statistics.TotalLogins)
}
