package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"screedflow/models"
	"screedflow/repository"
	"screedflow/utils"
)

// GetTasks godoc
// @Summary      List tasks
// @Tags         tasks
// @Produce      json
// @Param        project_id  query     string  false  "Only tasks of this project"
// @Success      200         {array}   TaskView
// @Router       /api/tasks [get]
func GetTasks(repo *repository.SiteRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap := repo.Snapshot()
		c.JSON(http.StatusOK, buildTaskViews(snap, repo.Tasks(c.Query("project_id"))))
	}
}

// CreateTask godoc
// @Summary      Schedule task
// @Description  Creates a zone of work. The project must exist and end date must not precede start date.
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Param        body  body      models.Task  true  "Task"
// @Success      201   {object}  models.Task
// @Failure      400   {object}  models.ValidationErrorResponse
// @Failure      500   {object}  models.PersistenceErrorResponse
// @Router       /api/tasks [post]
func CreateTask(repo *repository.SiteRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		var t models.Task
		if err := c.ShouldBindJSON(&t); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": err.Error()})
			return
		}

		ctx, cancel := utils.GetDefaultQueryContext(c.Request.Context())
		defer cancel()

		created, err := repo.CreateTask(ctx, actorName(c), t)
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, created)
	}
}

// UpdateTask godoc
// @Summary      Update task
// @Description  Replaces a task. Status may be set to any value.
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Param        task_id  path      string       true  "Task ID"
// @Param        body     body      models.Task  true  "Task"
// @Success      200      {object}  models.Task
// @Failure      400      {object}  models.ValidationErrorResponse
// @Failure      404      {object}  models.ErrorResponse
// @Router       /api/tasks/{task_id} [put]
func UpdateTask(repo *repository.SiteRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		var t models.Task
		if err := c.ShouldBindJSON(&t); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": err.Error()})
			return
		}
		t.ID = c.Param("task_id")

		ctx, cancel := utils.GetDefaultQueryContext(c.Request.Context())
		defer cancel()

		updated, err := repo.UpdateTask(ctx, actorName(c), t)
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, updated)
	}
}

// RecordWork godoc
// @Summary      Record work done
// @Description  Adds completed area and recomputes progress and status.
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Param        task_id  path      string                    true  "Task ID"
// @Param        body     body      models.RecordWorkRequest  true  "Area laid"
// @Success      200      {object}  models.Task
// @Failure      400      {object}  models.ValidationErrorResponse
// @Failure      404      {object}  models.ErrorResponse
// @Router       /api/tasks/{task_id}/work [post]
func RecordWork(repo *repository.SiteRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.RecordWorkRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": err.Error()})
			return
		}

		ctx, cancel := utils.GetDefaultQueryContext(c.Request.Context())
		defer cancel()

		t, err := repo.RecordWork(ctx, actorName(c), c.Param("task_id"), req.AreaM2)
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, t)
	}
}

// UpdateSubTask godoc
// @Summary      Update sub-task
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Param        task_id     path      string                       true  "Task ID"
// @Param        subtask_id  path      string                       true  "Sub-task ID"
// @Param        body        body      models.SubTaskUpdateRequest  true  "Fields to change"
// @Success      200         {object}  models.Task
// @Failure      400         {object}  models.ValidationErrorResponse
// @Failure      404         {object}  models.ErrorResponse
// @Router       /api/tasks/{task_id}/subtasks/{subtask_id} [put]
func UpdateSubTask(repo *repository.SiteRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.SubTaskUpdateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": err.Error()})
			return
		}

		ctx, cancel := utils.GetDefaultQueryContext(c.Request.Context())
		defer cancel()

		t, err := repo.UpdateSubTask(ctx, actorName(c), c.Param("task_id"), c.Param("subtask_id"), req)
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, t)
	}
}
