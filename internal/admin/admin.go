// Package admin exposes operational endpoints that bypass the ingest
// pipeline, currently bulk seeding of events, alerts, and profiles for
// demo environments and test fixtures.
package admin

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"loginsight/internal/alerts"
	"loginsight/internal/events"
	"loginsight/internal/profile"
)

// Handler provides the admin endpoints.
type Handler struct {
	events   events.Store
	alerts   alerts.Store
	profiles profile.Store
	logger   *slog.Logger
}

// NewHandler creates a new admin handler.
func NewHandler(eventStore events.Store, alertStore alerts.Store, profileStore profile.Store, logger *slog.Logger) *Handler {
	return &Handler{events: eventStore, alerts: alertStore, profiles: profileStore, logger: logger}
}

// RegisterRoutes sets up the admin routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/admin/seed", h.Seed)
}

// SeedRequest is the POST /admin/seed body. At least one collection
// must be present.
type SeedRequest struct {
	Events   []*events.Event              `json:"events"`
	Alerts   []*alerts.Alert              `json:"alerts"`
	Profiles []*profile.BehavioralProfile `json:"profiles"`
}

// SeedCounts reports how many records of each kind were inserted.
type SeedCounts struct {
	Events   int `json:"events"`
	Alerts   int `json:"alerts"`
	Profiles int `json:"profiles"`
}

// Seed handles POST /admin/seed: direct bulk insertion without risk
// processing. Duplicate event or alert IDs fail the request; profiles
// are upserted by user ID.
func (h *Handler) Seed(c *gin.Context) {
	var req SeedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request body: " + err.Error(),
		})
		return
	}
	if len(req.Events) == 0 && len(req.Alerts) == 0 && len(req.Profiles) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Must include at least one of: events, alerts, profiles arrays.",
		})
		return
	}

	ctx := c.Request.Context()
	var counts SeedCounts

	for _, e := range req.Events {
		if err := h.events.Insert(ctx, e); err != nil {
			if errors.Is(err, events.ErrDuplicateID) {
				c.JSON(http.StatusBadRequest, gin.H{
					"error":   "duplicate_key",
					"message": "Failed to insert events: duplicate event_id detected",
				})
				return
			}
			h.fail(c, "events", err)
			return
		}
		counts.Events++
	}

	for _, a := range req.Alerts {
		if err := h.alerts.Insert(ctx, a); err != nil {
			if errors.Is(err, alerts.ErrDuplicateID) {
				c.JSON(http.StatusBadRequest, gin.H{
					"error":   "duplicate_key",
					"message": "Failed to insert alerts: duplicate alert_id detected",
				})
				return
			}
			h.fail(c, "alerts", err)
			return
		}
		counts.Alerts++
	}

	for _, p := range req.Profiles {
		if err := h.profiles.Upsert(ctx, p); err != nil {
			h.fail(c, "profiles", err)
			return
		}
		counts.Profiles++
	}

	h.logger.Info("database seeded",
		"events", counts.Events, "alerts", counts.Alerts, "profiles", counts.Profiles)
	c.JSON(http.StatusCreated, gin.H{"inserted": counts})
}

func (h *Handler) fail(c *gin.Context, what string, err error) {
	h.logger.Error("seed operation failed", "collection", what, "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{
		"error":   "seed_error",
		"message": "Seed operation failed",
	})
}
