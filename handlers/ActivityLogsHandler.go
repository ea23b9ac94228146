package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"screedflow/repository"
	"screedflow/utils"
)

// GetActivityLogsHandler godoc
// @Summary      Get activity logs
// @Tags         activity-logs
// @Produce      json
// @Param        project_id  query     string  false  "Project ID"
// @Param        limit       query     int     false  "Limit"
// @Success      200         {array}   models.ActivityLog
// @Router       /api/activity_logs [get]
func GetActivityLogsHandler(repo *repository.SiteRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
		if err != nil || limit < 1 {
			limit = 50
		}

		ctx, cancel := utils.GetFastQueryContext(c.Request.Context())
		defer cancel()

		logs, err := repo.ActivityLogs(ctx, c.Query("project_id"), limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch activity logs", "details": err.Error()})
			return
		}
		c.JSON(http.StatusOK, logs)
	}
}
