package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"screedflow/metrics"
	"screedflow/models"
	"screedflow/repository"
	"screedflow/utils"
)

// Clock supplies the evaluation time for schedule figures.
type Clock func() time.Time

// TaskView is a task with its derived figures and resolved crew names.
type TaskView struct {
	models.Task
	Assignees       []string              `json:"assignees"`
	DerivedProgress float64               `json:"derived_progress" example:"65"`
	SubTaskRollup   metrics.SubTaskRollup `json:"sub_task_rollup"`
	SubTaskSummary  string                `json:"sub_task_summary" example:"2 of 3 done"`
	SubTaskAverage  float64               `json:"sub_task_average" example:"80"`
	ProgressGap     float64               `json:"progress_gap" example:"15"`
	Drifting        bool                  `json:"drifting" example:"true"`
}

type DashboardResponse struct {
	Project models.Project           `json:"project"`
	Summary metrics.ProjectSummary   `json:"summary"`
	Tasks   []TaskView               `json:"tasks"`
	Stock   []metrics.MaterialStatus `json:"stock"`
}

type GanttResponse struct {
	ProjectID string          `json:"project_id" example:"p1"`
	StartDate models.DateOnly `json:"start_date" example:"2024-01-01"`
	EndDate   models.DateOnly `json:"end_date" example:"2024-08-30"`
	Spans     []metrics.Span  `json:"spans"`
}

const unknownMember = "Unknown member"

func buildTaskViews(snap models.Snapshot, tasks []models.Task) []TaskView {
	views := make([]TaskView, 0, len(tasks))
	for _, t := range tasks {
		names := make([]string, 0, len(t.AssignedTo))
		for _, id := range t.AssignedTo {
			if m := snap.FindMember(id); m != nil {
				names = append(names, m.Name)
			} else {
				names = append(names, unknownMember)
			}
		}
		rollup := metrics.RollupSubTasks(t)
		gap, drifting := metrics.ProgressDrift(t)
		views = append(views, TaskView{
			Task:            t,
			Assignees:       names,
			DerivedProgress: metrics.TaskProgress(t),
			SubTaskRollup:   rollup,
			SubTaskSummary:  rollup.String(),
			SubTaskAverage:  metrics.SubTaskAverage(t),
			ProgressGap:     gap,
			Drifting:        drifting,
		})
	}
	return views
}

// GetProjects godoc
// @Summary      List projects
// @Tags         projects
// @Produce      json
// @Success      200  {array}  models.Project
// @Router       /api/projects [get]
func GetProjects(repo *repository.SiteRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		projects := repo.Projects()
		if projects == nil {
			projects = []models.Project{}
		}
		c.JSON(http.StatusOK, projects)
	}
}

// GetProject godoc
// @Summary      Get project
// @Tags         projects
// @Produce      json
// @Param        project_id  path      string  true  "Project ID"
// @Success      200         {object}  models.Project
// @Failure      404         {object}  models.ErrorResponse
// @Router       /api/projects/{project_id} [get]
func GetProject(repo *repository.SiteRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := repo.Project(c.Param("project_id"))
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, p)
	}
}

// CreateProject godoc
// @Summary      Create project
// @Description  Initializes a project with its baselines. End date must fall after start date.
// @Tags         projects
// @Accept       json
// @Produce      json
// @Param        body  body      models.Project  true  "Project with baselines"
// @Success      201   {object}  models.Project
// @Failure      400   {object}  models.ValidationErrorResponse
// @Failure      500   {object}  models.PersistenceErrorResponse
// @Router       /api/projects [post]
func CreateProject(repo *repository.SiteRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		var p models.Project
		if err := c.ShouldBindJSON(&p); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": err.Error()})
			return
		}

		ctx, cancel := utils.GetDefaultQueryContext(c.Request.Context())
		defer cancel()

		created, err := repo.CreateProject(ctx, actorName(c), p)
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, created)
	}
}

// SaveBaselines godoc
// @Summary      Save baselines
// @Tags         projects
// @Accept       json
// @Produce      json
// @Param        project_id  path      string            true  "Project ID"
// @Param        body        body      models.Baselines  true  "Baselines"
// @Success      200         {object}  models.Project
// @Failure      400         {object}  models.ValidationErrorResponse
// @Failure      404         {object}  models.ErrorResponse
// @Router       /api/projects/{project_id}/baselines [put]
func SaveBaselines(repo *repository.SiteRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		var b models.Baselines
		if err := c.ShouldBindJSON(&b); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": err.Error()})
			return
		}

		ctx, cancel := utils.GetDefaultQueryContext(c.Request.Context())
		defer cancel()

		p, err := repo.SaveBaselines(ctx, actorName(c), c.Param("project_id"), b)
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, p)
	}
}

// GetProjectDashboard godoc
// @Summary      Project dashboard
// @Description  Physical progress, budget and schedule gauges, stock status and per-task figures.
// @Tags         projects
// @Produce      json
// @Param        project_id  path      string  true  "Project ID"
// @Success      200         {object}  DashboardResponse
// @Failure      404         {object}  models.ErrorResponse
// @Router       /api/projects/{project_id}/dashboard [get]
func GetProjectDashboard(repo *repository.SiteRepository, now Clock) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap := repo.Snapshot()
		p := snap.FindProject(c.Param("project_id"))
		if p == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
			return
		}

		scoped := snap.ForProject(p.ID)
		summary := metrics.Summarize(snap, *p, now())
		c.JSON(http.StatusOK, DashboardResponse{
			Project: *p,
			Summary: summary,
			Tasks:   buildTaskViews(snap, scoped.Tasks),
			Stock:   metrics.StockReport(scoped.Materials, summary.RemainingArea, p.Baselines.TargetDailySqm),
		})
	}
}

// GetProjectGantt godoc
// @Summary      Gantt layout
// @Description  Left offset and width of every task as a percentage of the project window. Minimum width 2.
// @Tags         projects
// @Produce      json
// @Param        project_id  path      string  true  "Project ID"
// @Success      200         {object}  GanttResponse
// @Failure      404         {object}  models.ErrorResponse
// @Failure      422         {object}  models.ErrorResponse
// @Router       /api/projects/{project_id}/gantt [get]
func GetProjectGantt(repo *repository.SiteRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := repo.Project(c.Param("project_id"))
		if err != nil {
			utils.RespondError(c, err)
			return
		}

		spans, err := metrics.GanttChart(p, repo.Tasks(p.ID))
		if errors.Is(err, metrics.ErrInvalidSchedule) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Invalid project schedule", "details": err.Error()})
			return
		}
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, GanttResponse{
			ProjectID: p.ID,
			StartDate: p.Baselines.StartDate,
			EndDate:   p.Baselines.EndDate,
			Spans:     spans,
		})
	}
}

// GetPortfolio godoc
// @Summary      Portfolio summary
// @Tags         projects
// @Produce      json
// @Success      200  {object}  metrics.PortfolioSummary
// @Router       /api/portfolio [get]
func GetPortfolio(repo *repository.SiteRepository, now Clock) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, metrics.SummarizePortfolio(repo.Snapshot(), now()))
	}
}
