package handlers

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"screedflow/repository"
	"screedflow/services"
)

// Deps is everything the HTTP surface is built from.
type Deps struct {
	Repo          *repository.SiteRepository
	Reports       *services.ReportRequester
	Metrics       *Metrics
	Logger        *zap.Logger
	Now           Clock
	SessionSecret string
	UploadDir     string
}

// RegisterRoutes mounts every endpoint on r.
func RegisterRoutes(r *gin.Engine, d Deps) {
	if d.Logger != nil {
		r.Use(RequestLogger(d.Logger))
	}
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware())
		r.GET("/metrics", d.Metrics.Handler())
	}
	r.GET("/swagger/*any", SwaggerHandler(r))

	api := r.Group("/api")
	api.Use(SessionMiddleware(d.SessionSecret))

	api.POST("/session", CreateSession(d.Repo, d.SessionSecret))
	api.GET("/session/actions", GetSessionActions())

	api.GET("/projects", GetProjects(d.Repo))
	api.POST("/projects", CreateProject(d.Repo))
	api.GET("/projects/:project_id", GetProject(d.Repo))
	api.PUT("/projects/:project_id/baselines", SaveBaselines(d.Repo))
	api.POST("/projects/:project_id/floor_plans", UploadFloorPlan(d.Repo, d.UploadDir))
	api.GET("/projects/:project_id/dashboard", GetProjectDashboard(d.Repo, d.Now))
	api.GET("/projects/:project_id/gantt", GetProjectGantt(d.Repo))
	api.GET("/projects/:project_id/export", ExportProjectWorkbook(d.Repo, d.Now))
	api.GET("/projects/:project_id/report_pdf", GenerateSiteReportPDF(d.Repo, d.Reports, d.Now))
	api.GET("/portfolio", GetPortfolio(d.Repo, d.Now))
	api.GET("/get-file", ServeUpload(d.UploadDir))

	api.GET("/tasks", GetTasks(d.Repo))
	api.POST("/tasks", CreateTask(d.Repo))
	api.PUT("/tasks/:task_id", UpdateTask(d.Repo))
	api.POST("/tasks/:task_id/work", RecordWork(d.Repo))
	api.PUT("/tasks/:task_id/subtasks/:subtask_id", UpdateSubTask(d.Repo))
	api.GET("/tasks/:task_id/qrcode", GenerateTaskQRCode(d.Repo))

	api.GET("/materials", GetMaterials(d.Repo))
	api.POST("/materials", CreateMaterial(d.Repo))
	api.GET("/materials/critical", GetCriticalMaterials(d.Repo))
	api.PUT("/materials/:material_id/stock", AdjustStock(d.Repo))

	api.GET("/team", GetTeam(d.Repo))
	api.POST("/team", RecruitMember(d.Repo))
	api.PUT("/team/:member_id", UpdateMember(d.Repo))

	api.GET("/notifications", GetNotifications(d.Repo))
	api.PUT("/notifications/:notification_id/read", MarkNotificationRead(d.Repo))

	api.POST("/ai/report", RequestSiteReport(d.Repo, d.Reports, d.Now))
	api.POST("/ai/chat", ChatWithAssistant(d.Repo, d.Reports, d.Now))
	api.POST("/ai/portfolio", AnalyzePortfolio(d.Repo, d.Reports))

	api.GET("/activity_logs", GetActivityLogsHandler(d.Repo))
}
