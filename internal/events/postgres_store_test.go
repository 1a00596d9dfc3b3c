//go:build integration

package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loginsight/internal/pagination"
	"loginsight/internal/testutil"
)

func setupPGStore(t *testing.T) *PostgresStore {
	t.Helper()
	db, cleanup := testutil.PGTest(t)
	t.Cleanup(cleanup)
	return NewPostgresStore(db)
}

func pgEvent(id, userID string, ts time.Time) *Event {
	return &Event{
		EventID:   id,
		Timestamp: ts,
		UserID:    userID,
		EventType: TypeLogin,
		Metadata: Metadata{
			Device:   Device{ID: "dev-1", Type: "desktop", OS: "Linux", Browser: "Firefox"},
			Location: Location{IP: "203.0.113.7", City: "Berlin", Country: "Germany"},
			Session:  Session{SessionID: "sess-1", LoginMethod: "password"},
		},
	}
}

func TestPostgres_EventRoundTrip(t *testing.T) {
	store := setupPGStore(t)
	ctx := context.Background()

	ts := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	in := pgEvent("evt_pg_1", "user_pg", ts)
	require.NoError(t, store.Insert(ctx, in))

	items, total, err := store.List(ctx, ListQuery{Page: pagination.Params{Page: 1, Limit: 10}})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, items, 1)
	assert.Equal(t, "user_pg", items[0].UserID)
	assert.Equal(t, "Berlin", items[0].Metadata.Location.City)
	assert.True(t, items[0].Timestamp.Equal(ts))

	assert.ErrorIs(t, store.Insert(ctx, in), ErrDuplicateID)
}

func TestPostgres_EventListFilters(t *testing.T) {
	store := setupPGStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, store.Insert(ctx, pgEvent("evt_1", "user_a", now.Add(-2*time.Hour))))
	require.NoError(t, store.Insert(ctx, pgEvent("evt_2", "user_b", now.Add(-time.Hour))))
	logout := pgEvent("evt_3", "user_a", now)
	logout.EventType = TypeLogout
	require.NoError(t, store.Insert(ctx, logout))

	items, total, err := store.List(ctx, ListQuery{
		UserID: "user_a",
		Page:   pagination.Params{Page: 1, Limit: 10},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	// Newest first.
	assert.Equal(t, "evt_3", items[0].EventID)

	items, total, err = store.List(ctx, ListQuery{
		UserID:    "user_a",
		EventType: TypeLogin,
		Page:      pagination.Params{Page: 1, Limit: 10},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "evt_1", items[0].EventID)

	byUser, err := store.ListByUser(ctx, "user_a", 1)
	require.NoError(t, err)
	require.Len(t, byUser, 1)
	assert.Equal(t, "evt_3", byUser[0].EventID)
}

func TestPostgres_EventCountPerDay(t *testing.T) {
	store := setupPGStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, store.Insert(ctx, pgEvent("evt_1", "user_a", now)))
	require.NoError(t, store.Insert(ctx, pgEvent("evt_2", "user_a", now)))
	require.NoError(t, store.Insert(ctx, pgEvent("evt_3", "user_a", now.AddDate(0, 0, -10))))

	perDay, err := store.CountPerDay(ctx, now.AddDate(0, 0, -7))
	require.NoError(t, err)
	assert.Equal(t, 2, perDay[now.Format("2006-01-02")])
	assert.Len(t, perDay, 1)
}
