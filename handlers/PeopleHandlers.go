package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"screedflow/models"
	"screedflow/repository"
	"screedflow/utils"
)

// GetTeam godoc
// @Summary      List team
// @Tags         team
// @Produce      json
// @Param        reserve  query     bool  false  "Only members without a project"
// @Success      200      {array}   models.TeamMember
// @Router       /api/team [get]
func GetTeam(repo *repository.SiteRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		team := repo.Team()
		if c.Query("reserve") != "true" {
			c.JSON(http.StatusOK, team)
			return
		}
		reserve := []models.TeamMember{}
		for _, m := range team {
			if m.InReserve() {
				reserve = append(reserve, m)
			}
		}
		c.JSON(http.StatusOK, reserve)
	}
}

// RecruitMember godoc
// @Summary      Recruit member
// @Tags         team
// @Accept       json
// @Produce      json
// @Param        body  body      models.TeamMember  true  "New member"
// @Success      201   {object}  models.TeamMember
// @Failure      400   {object}  models.ValidationErrorResponse
// @Router       /api/team [post]
func RecruitMember(repo *repository.SiteRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		var m models.TeamMember
		if err := c.ShouldBindJSON(&m); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": err.Error()})
			return
		}

		ctx, cancel := utils.GetDefaultQueryContext(c.Request.Context())
		defer cancel()

		created, err := repo.RecruitMember(ctx, actorName(c), m)
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, created)
	}
}

// UpdateMember godoc
// @Summary      Update member
// @Description  Changes role, presence, access level or project assignment.
// @Tags         team
// @Accept       json
// @Produce      json
// @Param        member_id  path      string                      true  "Member ID"
// @Param        body       body      models.MemberUpdateRequest  true  "Changes"
// @Success      200        {object}  models.TeamMember
// @Failure      400        {object}  models.ValidationErrorResponse
// @Failure      404        {object}  models.ErrorResponse
// @Router       /api/team/{member_id} [put]
func UpdateMember(repo *repository.SiteRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.MemberUpdateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": err.Error()})
			return
		}

		ctx, cancel := utils.GetDefaultQueryContext(c.Request.Context())
		defer cancel()

		m, err := repo.UpdateMember(ctx, actorName(c), c.Param("member_id"), req)
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, m)
	}
}
