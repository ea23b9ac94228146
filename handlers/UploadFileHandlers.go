package handlers

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"screedflow/models"
	"screedflow/repository"
	"screedflow/utils"
)

const maxFloorPlanSize = 10 << 20

var floorPlanExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".webp": true,
	".pdf":  true,
}

// UploadFloorPlan godoc
// @Summary      Upload floor plan
// @Description  Stores the drawing under the upload directory and appends it to the project's floor plans.
// @Tags         projects
// @Accept       multipart/form-data
// @Produce      json
// @Param        project_id  path      string  true   "Project ID"
// @Param        file        formData  file    true   "Drawing (png, jpg, webp or pdf)"
// @Param        name        formData  string  false  "Display name, defaults to the file name"
// @Success      201         {object}  models.Project
// @Failure      400         {object}  models.ErrorResponse
// @Failure      404         {object}  models.ErrorResponse
// @Router       /api/projects/{project_id}/floor_plans [post]
func UploadFloorPlan(repo *repository.SiteRepository, uploadDir string) gin.HandlerFunc {
	return func(c *gin.Context) {
		projectID := c.Param("project_id")
		if _, err := repo.Project(projectID); err != nil {
			utils.RespondError(c, err)
			return
		}

		file, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Error retrieving the file", "details": err.Error()})
			return
		}
		ext := strings.ToLower(filepath.Ext(file.Filename))
		if !floorPlanExtensions[ext] {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported file type", "details": ext})
			return
		}

		dstPath, err := UploadFileToDirectory(file, uploadDir, maxFloorPlanSize)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unable to save the file", "details": err.Error()})
			return
		}

		name := strings.TrimSpace(c.PostForm("name"))
		if name == "" {
			name = strings.TrimSuffix(filepath.Base(file.Filename), ext)
		}

		ctx, cancel := utils.GetDefaultQueryContext(c.Request.Context())
		defer cancel()

		p, err := repo.AddFloorPlan(ctx, actorName(c), projectID, models.FloorPlan{
			Name:     name,
			ImageURL: filepath.Base(dstPath),
		})
		if err != nil {
			os.Remove(dstPath)
			utils.RespondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, p)
	}
}

// ServeUpload godoc
// @Summary      Serve uploaded file
// @Description  Serve a floor plan by the name stored in its image_url.
// @Tags         projects
// @Produce      application/octet-stream
// @Param        file  query     string  true  "File name"
// @Success      200   {file}    file    "File content"
// @Failure      400   {object}  models.ErrorResponse
// @Failure      404   {object}  models.ErrorResponse
// @Router       /api/get-file [get]
func ServeUpload(uploadDir string) gin.HandlerFunc {
	return func(c *gin.Context) {
		fileName := c.Query("file")
		if fileName == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file parameter is required"})
			return
		}

		// Only bare names produced by UploadFileToDirectory are served.
		if filepath.Base(fileName) != fileName || strings.Contains(fileName, "..") {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid file path"})
			return
		}

		filePath := filepath.Join(uploadDir, fileName)
		info, err := os.Stat(filePath)
		if err != nil || info.IsDir() {
			c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
			return
		}
		c.File(filePath)
	}
}

// UploadFileToDirectory saves the uploaded file under uploadDir with a unique name
// and returns the destination path.
func UploadFileToDirectory(file *multipart.FileHeader, uploadDir string, maxSize int64) (string, error) {
	filename := filepath.Base(file.Filename)
	if filename == "" || filename == "." || filename == string(filepath.Separator) {
		return "", fmt.Errorf("invalid file name")
	}

	if maxSize > 0 && file.Size > maxSize {
		return "", fmt.Errorf("file size exceeds the allowed limit")
	}

	if err := os.MkdirAll(uploadDir, 0755); err != nil {
		return "", fmt.Errorf("unable to create directory %s: %w", uploadDir, err)
	}

	uniqueName := fmt.Sprintf("%d-%s", time.Now().UnixNano(), filename)
	dstPath := filepath.Join(uploadDir, uniqueName)

	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(dstPath)
	if err != nil {
		return "", fmt.Errorf("unable to create the file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", fmt.Errorf("unable to save the file: %w", err)
	}

	return dstPath, nil
}
