package alerts

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"loginsight/internal/pagination"
	"loginsight/internal/risk"
	"loginsight/internal/validation"
)

// Handler provides HTTP endpoints for alert operations.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

// NewHandler creates a new alert handler.
func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes sets up alert routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/alerts", h.ListAlerts)
	r.GET("/alerts/user/:userID", validation.UserIDParamMiddleware(), h.ListByUser)
	r.PATCH("/alerts/:alertID/status", h.UpdateStatus)
}

// alertSummary is the trimmed row shape for the paginated listing.
type alertSummary struct {
	AlertID     string        `json:"alert_id"`
	UserID      string        `json:"user_id"`
	RiskScore   int           `json:"risk_score"`
	Decision    risk.Decision `json:"decision"`
	Explanation string        `json:"explanation"`
	Timestamp   string        `json:"timestamp"`
	Status      Status        `json:"status"`
}

// ListAlerts handles GET /alerts?page=&limit=&decision=&search=
func (h *Handler) ListAlerts(c *gin.Context) {
	q := ListQuery{
		Search: validation.SanitizeString(c.Query("search"), 200),
		Page:   pagination.ParseWith(c, 50, 100),
	}

	if d := c.Query("decision"); d != "" {
		decision := risk.Decision(d)
		switch decision {
		case risk.DecisionSuppress, risk.DecisionReview, risk.DecisionEscalate:
			q.Decision = decision
		default:
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_decision",
				"message": "decision must be one of: suppress, review, escalate",
			})
			return
		}
	}

	items, total, err := h.service.Store().List(c.Request.Context(), q)
	if err != nil {
		h.logger.Error("list alerts failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "alerts_error",
			"message": "Failed to retrieve alerts",
		})
		return
	}

	data := make([]alertSummary, 0, len(items))
	for _, a := range items {
		data = append(data, alertSummary{
			AlertID:     a.AlertID,
			UserID:      a.UserID,
			RiskScore:   a.RiskScore,
			Decision:    a.Decision,
			Explanation: a.Explanation,
			Timestamp:   a.Timestamp.UTC().Format("2006-01-02T15:04:05.000Z"),
			Status:      a.Status,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"data":       data,
		"pagination": pagination.NewMeta(q.Page, total),
	})
}

// ListByUser handles GET /alerts/user/:userID?limit=
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
		h.logger.Error("list user alerts failed", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "alerts_error",
			"message": "Failed to retrieve alerts",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id": userID,
		"alerts":  items,
		"count":   len(items),
	})
}

// UpdateStatusRequest is the PATCH /alerts/:alertID/status body.
type UpdateStatusRequest struct {
	Status Status `json:"status" binding:"required"`
}

// UpdateStatus handles PATCH /alerts/:alertID/status
func (h *Handler) UpdateStatus(c *gin.Context) {
	alertID := c.Param("alertID")

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request body",
		})
		return
	}

	if !ValidStatus(req.Status) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_status",
			"message": "status must be one of: pending, investigating, resolved, false_positive",
		})
		return
	}

	alert, err := h.service.UpdateStatus(c.Request.Context(), alertID, req.Status)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "alert_not_found",
				"message": "No alert with that ID",
			})
			return
		}
		h.logger.Error("update alert status failed", "alert_id", alertID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "alerts_error",
			"message": "Failed to update alert status",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"alert": alert})
}
