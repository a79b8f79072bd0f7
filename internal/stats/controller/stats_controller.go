package controller

import (
	"strconv"

	"codecampus/internal/stats/service"
	"codecampus/internal/trust"
	"codecampus/pkg/utils/response"

	"github.com/gin-gonic/gin"
)

// StatsController exposes the per-user counters.
type StatsController struct {
	stats *service.StatsConsumer
}

// NewStatsController creates a new StatsController.
func NewStatsController(stats *service.StatsConsumer) *StatsController {
	return &StatsController{stats: stats}
}

// RegisterRoutes mounts stats routes behind the trust middleware.
func (h *StatsController) RegisterRoutes(r gin.IRouter, verifier *trust.Verifier) {
	group := r.Group("/stats", trust.RequireAssertion(verifier))
	group.GET("/users/:id", h.GetUserStats)
}

// GetUserStats returns submission counters for one user.
func (h *StatsController) GetUserStats(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || userID <= 0 {
		response.BadRequest(c, "Invalid user id")
		return
	}
	stats, err := h.stats.GetUserStats(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, stats)
}
