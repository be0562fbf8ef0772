package controller

import (
	"strconv"

	"codejudge/internal/activity/service"
	"codejudge/internal/common/http/middleware"
	"codejudge/pkg/utils/response"

	"github.com/gin-gonic/gin"
)

// ActivityController serves the signed-in account's activity views.
type ActivityController struct {
	activityService *service.ActivityService
}

func NewActivityController(activityService *service.ActivityService) *ActivityController {
	return &ActivityController{activityService: activityService}
}

// Profile returns the streaks and heatmap.
func (h *ActivityController) Profile(c *gin.Context) {
	accountID, ok := middleware.AccountID(c)
	if !ok {
		response.Unauthorized(c, "Login required")
		return
	}
	profile, err := h.activityService.Profile(c.Request.Context(), accountID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, profile)
}

// Stats returns solved and total counts per difficulty.
func (h *ActivityController) Stats(c *gin.Context) {
	accountID, ok := middleware.AccountID(c)
	if !ok {
		response.Unauthorized(c, "Login required")
		return
	}
	stats, err := h.activityService.Stats(c.Request.Context(), accountID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, stats)
}

// RecentSubmissions returns the newest submissions. size defaults to 10.
func (h *ActivityController) RecentSubmissions(c *gin.Context) {
	accountID, ok := middleware.AccountID(c)
	if !ok {
		response.Unauthorized(c, "Login required")
		return
	}
	size := 0
	if raw := c.Query("size"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			response.BadRequest(c, "Invalid page size")
			return
		}
		size = v
	}
	list, err := h.activityService.RecentSubmissions(c.Request.Context(), accountID, size)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, list)
}
