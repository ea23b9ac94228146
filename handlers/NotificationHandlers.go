package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"screedflow/repository"
	"screedflow/utils"
)

// GetNotifications godoc
// @Summary      List notifications
// @Description  Newest first.
// @Tags         notifications
// @Produce      json
// @Param        project_id  query     string  false  "Project ID"
// @Param        unread      query     bool    false  "Only unread"
// @Success      200         {array}   models.Notification
// @Router       /api/notifications [get]
func GetNotifications(repo *repository.SiteRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, repo.Notifications(c.Query("project_id"), c.Query("unread") == "true"))
	}
}

// MarkNotificationRead godoc
// @Summary      Mark notification read
// @Tags         notifications
// @Produce      json
// @Param        notification_id  path      string  true  "Notification ID"
// @Success      200              {object}  models.Notification
// @Failure      404              {object}  models.ErrorResponse
// @Router       /api/notifications/{notification_id}/read [put]
func MarkNotificationRead(repo *repository.SiteRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := utils.GetDefaultQueryContext(c.Request.Context())
		defer cancel()

		n, err := repo.MarkNotificationRead(ctx, c.Param("notification_id"))
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, n)
	}
}
