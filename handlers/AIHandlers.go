package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"screedflow/metrics"
	"screedflow/models"
	"screedflow/repository"
	"screedflow/services"
	"screedflow/utils"
)

// siteSnapshot is the state sent to the text generator for one project.
func siteSnapshot(snap models.Snapshot, p models.Project, now Clock) services.SiteSnapshot {
	scoped := snap.ForProject(p.ID)
	summary := metrics.Summarize(snap, p, now())
	return services.SiteSnapshot{
		Baselines: p.Baselines,
		Tasks:     scoped.Tasks,
		Materials: scoped.Materials,
		Team:      scoped.Team,
		Summary:   &summary,
	}
}

// RequestSiteReport godoc
// @Summary      AI site report
// @Description  Natural-language analysis of one project. Returns a fixed fallback text when the generator fails.
// @Tags         ai
// @Accept       json
// @Produce      json
// @Param        body  body      models.ReportRequest  true  "Project"
// @Success      200   {object}  models.AIResponse
// @Failure      404   {object}  models.ErrorResponse
// @Router       /api/ai/report [post]
func RequestSiteReport(repo *repository.SiteRepository, reports *services.ReportRequester, now Clock) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.ReportRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": err.Error()})
			return
		}

		snap := repo.Snapshot()
		p := snap.FindProject(req.ProjectID)
		if p == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
			return
		}

		ctx, cancel := utils.GetSlowQueryContext(c.Request.Context())
		defer cancel()

		c.JSON(http.StatusOK, models.AIResponse{Text: reports.RequestReport(ctx, siteSnapshot(snap, *p, now))})
	}
}

// ChatWithAssistant godoc
// @Summary      Site assistant chat
// @Description  One conversational turn. The full site context is resent on every call.
// @Tags         ai
// @Accept       json
// @Produce      json
// @Param        body  body      models.ChatRequest  true  "Message"
// @Success      200   {object}  models.AIResponse
// @Failure      400   {object}  models.ErrorResponse
// @Router       /api/ai/chat [post]
func ChatWithAssistant(repo *repository.SiteRepository, reports *services.ReportRequester, now Clock) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.ChatRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": err.Error()})
			return
		}

		snap := repo.Snapshot()
		var siteContext any = snap
		if req.ProjectID != "" {
			p := snap.FindProject(req.ProjectID)
			if p == nil {
				c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
				return
			}
			siteContext = siteSnapshot(snap, *p, now)
		}

		ctx, cancel := utils.GetSlowQueryContext(c.Request.Context())
		defer cancel()

		c.JSON(http.StatusOK, models.AIResponse{Text: reports.Chat(ctx, req.Message, siteContext)})
	}
}

// AnalyzePortfolio godoc
// @Summary      AI portfolio risk analysis
// @Tags         ai
// @Produce      json
// @Success      200  {object}  models.AIResponse
// @Router       /api/ai/portfolio [post]
func AnalyzePortfolio(repo *repository.SiteRepository, reports *services.ReportRequester) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := utils.GetSlowQueryContext(c.Request.Context())
		defer cancel()

		c.JSON(http.StatusOK, models.AIResponse{Text: reports.PortfolioAnalysis(ctx, repo.Snapshot())})
	}
}
