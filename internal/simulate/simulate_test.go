package simulate

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loginsight/internal/alerts"
	"loginsight/internal/events"
	"loginsight/internal/profile"
)

func testService(maxCount int) (*Service, *events.MemoryStore, *alerts.MemoryStore) {
	eventStore := events.NewMemoryStore()
	alertStore := alerts.NewMemoryStore()
	alertSvc := alerts.NewService(alertStore, slog.Default())
	ingest := events.NewService(eventStore, profile.NewMemoryStore(), alertSvc, slog.Default())
	return NewService(ingest, maxCount, slog.Default()), eventStore, alertStore
}

func TestRun_PersistsThroughPipeline(t *testing.T) {
	svc, eventStore, alertStore := testService(1000)

	res, err := svc.Run(context.Background(), 50)
	require.NoError(t, err)

	// Bursts mean at least one event per iteration, possibly more.
	assert.GreaterOrEqual(t, res.EventsCreated, 50)

	n, err := eventStore.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, res.EventsCreated, n, "every generated event is persisted")

	n, err = alertStore.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, res.AlertsCreated, n)
	assert.LessOrEqual(t, res.SuppressedEvents, res.AlertsCreated)
	// Every synthetic user's first login scores new_user, so some
	// alerts always exist.
	assert.Greater(t, res.AlertsCreated, 0)
}

func TestRun_ClampsCount(t *testing.T) {
	svc, eventStore, _ := testService(5)

	res, err := svc.Run(context.Background(), 500)
	require.NoError(t, err)

	n, err := eventStore.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, res.EventsCreated, n)
	// 5 iterations, bursts bounded by 8 events each.
	assert.GreaterOrEqual(t, res.EventsCreated, 5)
	assert.LessOrEqual(t, res.EventsCreated, 40)
}

func TestRun_CanceledContext(t *testing.T) {
	svc, _, _ := testService(1000)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Run(ctx, 100)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSimulateEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc, _, _ := testService(1000)
	h := NewHandler(svc, slog.Default())

	r := gin.New()
	h.RegisterRoutes(r.Group("/v1"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/simulate?count=10", nil))
	require.Equal(t, http.StatusCreated, w.Code)

	var res Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.GreaterOrEqual(t, res.EventsCreated, 10)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/simulate?count=-1", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
