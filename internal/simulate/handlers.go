package simulate

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// Handler provides the HTTP endpoint for simulation runs.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

// NewHandler creates a new simulation handler.
func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes sets up the simulation route.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/simulate", h.Simulate)
}

// Simulate handles POST /simulate?count=N.
func (h *Handler) Simulate(c *gin.Context) {
	count := DefaultCount
	if v := c.Query("count"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_request",
				"message": "count must be a positive integer",
			})
			return
		}
		count = n
	}

	res, err := h.service.Run(c.Request.Context(), count)
	if err != nil {
		h.logger.Error("simulation failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "simulation_error",
			"message": "Simulation failed",
		})
		return
	}

	c.JSON(http.StatusCreated, res)
}
