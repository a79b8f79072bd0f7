package controller

import (
	"codecampus/internal/media/service"
	"codecampus/internal/trust"
	"codecampus/pkg/utils/response"

	"github.com/gin-gonic/gin"
)

// VideoController handles video HTTP endpoints.
type VideoController struct {
	videoService *service.VideoService
}

// NewVideoController creates a new VideoController.
func NewVideoController(videoService *service.VideoService) *VideoController {
	return &VideoController{videoService: videoService}
}

// RegisterRoutes mounts video routes behind the trust middleware.
func (h *VideoController) RegisterRoutes(r gin.IRouter, verifier *trust.Verifier) {
	group := r.Group("/videos", trust.RequireAssertion(verifier))
	group.GET("/:uuid", h.Get)
}

// Get returns a video with its interactives.
func (h *VideoController) Get(c *gin.Context) {
	uuid := c.Param("uuid")
	if uuid == "" {
		response.BadRequest(c, "Invalid video uuid")
		return
	}
	var viewerID int64
	if caller, ok := trust.CallerFromContext(c); ok {
		viewerID = caller.UserID
	}
	view, err := h.videoService.GetVideo(c.Request.Context(), uuid, viewerID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, view)
}
