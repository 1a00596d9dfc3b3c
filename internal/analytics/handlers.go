package analytics

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// Handler provides HTTP endpoints for the analytics queries.
type Handler struct {
	service     *Service
	defaultDays int
	logger      *slog.Logger
}

// NewHandler creates a new analytics handler.
func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, defaultDays: DefaultTrendDays, logger: logger}
}

// SetDefaultTrendDays overrides the window used when the days query
// parameter is absent.
func (h *Handler) SetDefaultTrendDays(n int) {
	if n >= 1 {
		h.defaultDays = n
	}
}

// RegisterRoutes sets up the analytics routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/metrics/summary", h.Summary)
	r.GET("/metrics/decision-distribution", h.DecisionDistribution)
	r.GET("/metrics/severity-distribution", h.SeverityDistribution)
	r.GET("/metrics/alert-trend", h.AlertTrend)
	r.GET("/metrics/high-risk", h.HighRisk)
}

// Summary handles GET /metrics/summary.
func (h *Handler) Summary(c *gin.Context) {
	out, err := h.service.Summary(c.Request.Context())
	if err != nil {
		h.fail(c, "summary", err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// DecisionDistribution handles GET /metrics/decision-distribution.
func (h *Handler) DecisionDistribution(c *gin.Context) {
	out, err := h.service.DecisionDistribution(c.Request.Context())
	if err != nil {
		h.fail(c, "decision distribution", err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// SeverityDistribution handles GET /metrics/severity-distribution.
func (h *Handler) SeverityDistribution(c *gin.Context) {
	out, err := h.service.SeverityDistribution(c.Request.Context())
	if err != nil {
		h.fail(c, "severity distribution", err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// AlertTrend handles GET /metrics/alert-trend?days=N.
func (h *Handler) AlertTrend(c *gin.Context) {
	days := h.defaultDays
	if v := c.Query("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_request",
				"message": "days must be a positive integer",
			})
			return
		}
		days = n
	}

	out, err := h.service.AlertTrend(c.Request.Context(), days)
	if err != nil {
		h.fail(c, "alert trend", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"days": min(days, MaxTrendDays), "trend": out})
}

// HighRisk handles GET /metrics/high-risk.
func (h *Handler) HighRisk(c *gin.Context) {
	out, err := h.service.HighRiskAlerts(c.Request.Context())
	if err != nil {
		h.fail(c, "high risk", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(out), "alerts": out})
}

func (h *Handler) fail(c *gin.Context, what string, err error) {
	h.logger.Error("analytics query failed", "query", what, "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{
		"error":   "metrics_error",
		"message": "Failed to compute metrics",
	})
}
