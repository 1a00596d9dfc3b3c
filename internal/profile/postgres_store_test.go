//go:build integration

package profile

import (
	"context"
	"database/sql"
	"os"
	"sync"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) (*PostgresStore, func()) {
	t.Helper()

	dbURL := os.Getenv("POSTGRES_URL")
	if dbURL == "" {
		t.Skip("POSTGRES_URL not set, skipping integration test")
	}

	db, err := sql.Open("postgres", dbURL)
	require.NoError(t, err)
	require.NoError(t, db.Ping())

	store := NewPostgresStore(db)
	ctx := context.Background()
	require.NoError(t, store.Migrate(ctx))

	cleanup := func() {
		db.ExecContext(ctx, "DELETE FROM user_profiles")
		db.Close()
	}

	return store, cleanup
}

func pgObs(ts time.Time) Observation {
	return Observation{
		UserID:     "user_pg",
		Timestamp:  ts,
		EventType:  "login",
		DeviceID:   "dev-1",
		DeviceType: "desktop",
		DeviceOS:   "Linux",
		City:       "Berlin",
		Country:    "Germany",
	}
}

func TestPostgres_GetOrCreateRoundTrip(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	obs := pgObs(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))

	p, created, err := store.GetOrCreate(ctx, "user_pg", obs)
	require.NoError(t, err)
	assert.True(t, created)

	got, err := store.Get(ctx, "user_pg")
	require.NoError(t, err)
	assert.Equal(t, p.UserID, got.UserID)
	assert.Equal(t, 9.0, got.LoginHours.Mean)
	require.Len(t, got.Devices, 1)
	assert.Equal(t, "dev-1", got.Devices[0].DeviceID)

	_, created, err = store.GetOrCreate(ctx, "user_pg", obs)
	require.NoError(t, err)
	assert.False(t, created)
}

func TestPostgres_UpdateCAS(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	obs := pgObs(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))

	_, _, err := store.GetOrCreate(ctx, "user_pg", obs)
	require.NoError(t, err)

	a, err := store.Get(ctx, "user_pg")
	require.NoError(t, err)
	b, err := store.Get(ctx, "user_pg")
	require.NoError(t, err)

	Apply(a, pgObs(time.Date(2026, 3, 11, 13, 0, 0, 0, time.UTC)))
	require.NoError(t, store.Update(ctx, a))
	assert.Equal(t, int64(2), a.Version)

	Apply(b, pgObs(time.Date(2026, 3, 11, 14, 0, 0, 0, time.UTC)))
	assert.ErrorIs(t, store.Update(ctx, b), ErrConflict)
}

func TestPostgres_UpdateMissing(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()

	p := NewBaseline(pgObs(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)))
	p.UserID = "ghost"
	assert.ErrorIs(t, store.Update(context.Background(), p), ErrNotFound)
}

func TestPostgres_ConcurrentCreation(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	obs := pgObs(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))

	var wg sync.WaitGroup
	createdCount := make(chan bool, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, created, err := store.GetOrCreate(ctx, "user_pg", obs)
			assert.NoError(t, err)
			createdCount <- created
		}()
	}
	wg.Wait()
	close(createdCount)

	var wins int
	for c := range createdCount {
		if c {
			wins++
		}
	}
	assert.Equal(t, 1, wins, "exactly one goroutine should create the profile")
}
