package events

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"loginsight/internal/pagination"
	"loginsight/internal/validation"
)

// Handler provides HTTP endpoints for event operations.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

// NewHandler creates a new event handler.
func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes sets up event routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/events", h.CreateEvent)
	r.GET("/events", h.ListEvents)
	r.GET("/events/user/:userID", validation.UserIDParamMiddleware(), h.ListByUser)
}

// CreateEventRequest is the POST /events body.
type CreateEventRequest struct {
	UserID    string     `json:"user_id" binding:"required"`
	EventType string     `json:"event_type" binding:"required"`
	Timestamp *time.Time `json:"timestamp"`
	Metadata  Metadata   `json:"metadata"`
}

// CreateEvent handles POST /events, ingesting with full risk processing.
func (h *Handler) CreateEvent(c *gin.Context) {
	var req CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request body: " + err.Error(),
		})
		return
	}

	if errs := validation.Validate(
		validation.ValidIdentifier("user_id", req.UserID),
		validation.OneOf("event_type", req.EventType, TypeLogin, TypeLogout, TypeFailedLogin),
		validation.ValidIdentifier("device.id", req.Metadata.Device.ID),
		validation.MaxLength("location.city", req.Metadata.Location.City, 200),
		validation.MaxLength("location.country", req.Metadata.Location.Country, 200),
	); len(errs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_failed",
			"message": errs.Error(),
			"details": errs,
		})
		return
	}

	e := &Event{
		UserID:    req.UserID,
		EventType: req.EventType,
		Metadata:  req.Metadata,
	}
	if req.Timestamp != nil {
		e.Timestamp = req.Timestamp.UTC()
	}

	result, err := h.service.Ingest(c.Request.Context(), e)
	if err != nil {
		h.logger.Error("event ingest failed", "user_id", req.UserID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "ingest_error",
			"message": "Event creation failed",
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"event": gin.H{
			"event_id":   result.Event.EventID,
			"timestamp":  result.Event.Timestamp,
			"user_id":    result.Event.UserID,
			"event_type": result.Event.EventType,
		},
		"risk_score":  result.Assessment.RiskScore,
		"decision":    result.Assessment.Decision,
		"explanation": result.Assessment.Explanation,
	})
}

// ListEvents handles GET /events?page=&limit=&user_id=&event_type=
func (h *Handler) ListEvents(c *gin.Context) {
	q := ListQuery{
		UserID:    validation.SanitizeString(c.Query("user_id"), validation.MaxIdentifierLength),
		EventType: c.Query("event_type"),
		Page:      pagination.ParseWith(c, 20, 100),
	}

	items, total, err := h.service.Store().List(c.Request.Context(), q)
	if err != nil {
		h.logger.Error("list events failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "events_error",
			"message": "Failed to retrieve events",
		})
		return
	}

	data := make([]FlatEvent, 0, len(items))
	for _, e := range items {
		data = append(data, e.Flatten())
	}

	c.JSON(http.StatusOK, gin.H{
		"data":       data,
		"pagination": pagination.NewMeta(q.Page, total),
	})
}

// ListByUser handles GET /events/user/:userID?limit=
func (h *Handler) ListByUser(c *gin.Context) {
	userID := c.Param("userID")

	limit := 50
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	items, err := h.service.Store().ListByUser(c.Request.Context(), userID, limit)
	if err != nil {
		h.logger.Error("list user events failed", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "events_error",
			"message": "Failed to retrieve events",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count":  len(items),
		"events": items,
	})
}
