package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"screedflow/models"
	"screedflow/repository"
	"screedflow/utils"
)

const (
	ctxMemberID    = "member_id"
	ctxMemberName  = "member_name"
	ctxAccessLevel = "access_level"

	sessionTTL = 12 * time.Hour
)

// SessionMiddleware reads the identity token when one is sent. Requests without a valid
// token still proceed; identity only labels activity and shapes offered actions.
func SessionMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			if claims, err := utils.ParseSessionToken(secret, token); err == nil {
				c.Set(ctxMemberID, claims.MemberID)
				c.Set(ctxMemberName, claims.Name)
				c.Set(ctxAccessLevel, claims.AccessLevel)
			}
		}
		c.Next()
	}
}

// actorName is the display name recorded in the activity log.
func actorName(c *gin.Context) string {
	if name := c.GetString(ctxMemberName); name != "" {
		return name
	}
	return "anonymous"
}

// CreateSession godoc
// @Summary      Select identity
// @Description  Issues an identity token for a team member. No credentials are checked.
// @Tags         session
// @Accept       json
// @Produce      json
// @Param        body  body      models.SessionRequest  true  "Member to act as"
// @Success      200   {object}  models.SessionResponse
// @Failure      400   {object}  models.ErrorResponse
// @Failure      404   {object}  models.ErrorResponse
// @Router       /api/session [post]
func CreateSession(repo *repository.SiteRepository, secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.SessionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": err.Error()})
			return
		}

		member := repo.Member(req.MemberID)
		if member == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Team member not found"})
			return
		}

		token, err := utils.GenerateSessionToken(secret, *member, sessionTTL)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue token", "details": err.Error()})
			return
		}

		c.JSON(http.StatusOK, models.SessionResponse{
			Token:   token,
			Member:  *member,
			Actions: utils.OfferedActions(member.AccessLevel),
		})
	}
}

// GetSessionActions godoc
// @Summary      Offered actions
// @Description  Lists the dashboard actions offered to the current identity. Viewer actions without a token.
// @Tags         session
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  models.ActionsResponse
// @Router       /api/session/actions [get]
func GetSessionActions() gin.HandlerFunc {
	return func(c *gin.Context) {
		level := models.AccessViewer
		if v, ok := c.Get(ctxAccessLevel); ok {
			level = v.(models.AccessLevel)
		}
		c.JSON(http.StatusOK, models.ActionsResponse{
			MemberID:    c.GetString(ctxMemberID),
			AccessLevel: level,
			Actions:     utils.OfferedActions(level),
		})
	}
}
