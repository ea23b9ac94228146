package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"screedflow/metrics"
	"screedflow/models"
	"screedflow/repository"
	"screedflow/utils"
)

// GetMaterials godoc
// @Summary      List materials
// @Description  With project_id, returns the project's own stock plus central stock.
// @Tags         materials
// @Produce      json
// @Param        project_id  query     string  false  "Project ID"
// @Success      200         {array}   models.Material
// @Router       /api/materials [get]
func GetMaterials(repo *repository.SiteRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, repo.Materials(c.Query("project_id")))
	}
}

// GetCriticalMaterials godoc
// @Summary      Critical stock
// @Description  Materials whose stock is strictly below the minimum required.
// @Tags         materials
// @Produce      json
// @Param        project_id  query     string  false  "Project ID"
// @Success      200         {array}   models.Material
// @Router       /api/materials/critical [get]
func GetCriticalMaterials(repo *repository.SiteRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, metrics.CriticalMaterials(repo.Materials(c.Query("project_id"))))
	}
}

// CreateMaterial godoc
// @Summary      Add material
// @Tags         materials
// @Accept       json
// @Produce      json
// @Param        body  body      models.Material  true  "Material"
// @Success      201   {object}  models.Material
// @Failure      400   {object}  models.ValidationErrorResponse
// @Router       /api/materials [post]
func CreateMaterial(repo *repository.SiteRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		var m models.Material
		if err := c.ShouldBindJSON(&m); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": err.Error()})
			return
		}

		ctx, cancel := utils.GetDefaultQueryContext(c.Request.Context())
		defer cancel()

		created, err := repo.CreateMaterial(ctx, actorName(c), m)
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, created)
	}
}

// AdjustStock godoc
// @Summary      Update stock
// @Description  Sets stock or applies a delta. Stock may not go negative.
// @Tags         materials
// @Accept       json
// @Produce      json
// @Param        material_id  path      string                         true  "Material ID"
// @Param        body         body      models.StockAdjustmentRequest  true  "Adjustment"
// @Success      200          {object}  models.Material
// @Failure      400          {object}  models.ValidationErrorResponse
// @Failure      404          {object}  models.ErrorResponse
// @Router       /api/materials/{material_id}/stock [put]
func AdjustStock(repo *repository.SiteRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.StockAdjustmentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": err.Error()})
			return
		}

		ctx, cancel := utils.GetDefaultQueryContext(c.Request.Context())
		defer cancel()

		m, err := repo.AdjustStock(ctx, actorName(c), c.Param("material_id"), req)
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, m)
	}
}
