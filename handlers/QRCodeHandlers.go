package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/skip2/go-qrcode"
	"golang.org/x/image/font"
	"golang.org/x/image/font/inconsolata"
	"golang.org/x/image/math/fixed"

	"screedflow/models"
	"screedflow/repository"
	"screedflow/utils"
)

// zoneQRData is what a crew scans at the zone to jump to its task.
type zoneQRData struct {
	TaskID    string `json:"task_id"`
	ProjectID string `json:"project_id"`
	Zone      string `json:"zone"`
}

func addLabel(img *image.RGBA, x, y int, label string) {
	drawText(img, x, y, label, inconsolata.Regular8x16, color.RGBA{0, 0, 0, 255})
}

func addLabelBold(img *image.RGBA, x, y int, label string) {
	drawText(img, x, y, label, inconsolata.Bold8x16, color.RGBA{30, 30, 30, 255})
}

func drawText(img *image.RGBA, x, y int, label string, face font.Face, col color.RGBA) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(col),
		Face: face,
		Dot: fixed.Point26_6{
			X: fixed.Int26_6(x * 64),
			Y: fixed.Int26_6(y * 64),
		},
	}
	d.DrawString(label)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// renderZoneLabel draws the task's QR code with a text block underneath and encodes it as PNG.
func renderZoneLabel(t models.Task, projectName string) ([]byte, error) {
	payload, err := json.Marshal(zoneQRData{TaskID: t.ID, ProjectID: t.ProjectID, Zone: t.Zone})
	if err != nil {
		return nil, err
	}
	qr, err := qrcode.New(string(payload), qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("qr code generation failed: %w", err)
	}
	qrImg := qr.Image(512)

	qrSize := qrImg.Bounds().Dy()
	padding := 30
	lineHeight := 28
	lines := [][2]string{
		{"Zone:", truncate(t.Zone, 30)},
		{"Task:", truncate(t.Title, 30)},
		{"Project:", truncate(projectName, 30)},
		{"Window:", fmt.Sprintf("%s to %s", t.StartDate, t.EndDate)},
		{"Area:", fmt.Sprintf("%.0f m2", t.PlannedM2)},
	}
	totalHeight := qrSize + 2*padding + len(lines)*lineHeight

	label := image.NewRGBA(image.Rect(0, 0, qrSize, totalHeight))
	draw.Draw(label, label.Bounds(), &image.Uniform{color.White}, image.Point{}, draw.Src)
	draw.Draw(label, image.Rect(0, 0, qrSize, qrSize), qrImg, image.Point{}, draw.Src)

	separatorY := qrSize + padding/2
	for x := 0; x < qrSize; x++ {
		label.Set(x, separatorY, color.RGBA{200, 200, 200, 255})
	}

	startY := qrSize + padding + lineHeight
	for i, l := range lines {
		addLabelBold(label, 20, startY+i*lineHeight, l[0])
		addLabel(label, 120, startY+i*lineHeight, l[1])
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, label); err != nil {
		return nil, fmt.Errorf("png encoding failed: %w", err)
	}
	return buf.Bytes(), nil
}

// GenerateTaskQRCode godoc
// @Summary      Zone QR label
// @Description  PNG label with a QR code identifying the task, for posting at the zone.
// @Tags         tasks
// @Produce      png
// @Param        task_id  path      string  true  "Task ID"
// @Success      200      {file}    file    "PNG image"
// @Failure      404      {object}  models.ErrorResponse
// @Router       /api/tasks/{task_id}/qrcode [get]
func GenerateTaskQRCode(repo *repository.SiteRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		t, err := repo.Task(c.Param("task_id"))
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		projectName := "Unknown project"
		if p, err := repo.Project(t.ProjectID); err == nil {
			projectName = p.Name
		}

		img, err := renderZoneLabel(t, projectName)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to render label", "details": err.Error()})
			return
		}
		c.Data(http.StatusOK, "image/png", img)
	}
}
