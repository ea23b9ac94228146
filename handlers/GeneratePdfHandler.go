package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jung-kurt/gofpdf"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"screedflow/metrics"
	"screedflow/models"
	"screedflow/repository"
	"screedflow/services"
	"screedflow/utils"
)

func pdfSection(pdf *gofpdf.Fpdf, title string) {
	pdf.Ln(4)
	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(190, 8, title)
	pdf.Ln(8)
	pdf.SetFont("Arial", "", 10)
}

func gaugeLine(g metrics.Gauge) string {
	health := "healthy"
	if !g.Healthy {
		health = "unhealthy"
	}
	return fmt.Sprintf("%.1f%% (%.1f %s, %s)", g.Percentage, g.Delta, g.Direction, health)
}

// buildSiteReportPDF lays out the one-page site report. aiText is printed when not empty.
func buildSiteReportPDF(p models.Project, sum metrics.ProjectSummary, tasks []models.Task, aiText string, generated time.Time) ([]byte, error) {
	titleCaser := cases.Title(language.Und)

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 18)
	pdf.Cell(190, 10, "SITE REPORT")
	pdf.Ln(12)

	pdf.SetFont("Arial", "B", 11)
	pdf.Cell(95, 6, p.Name)
	pdf.Cell(95, 6, fmt.Sprintf("Location: %s", p.Location))
	pdf.Ln(6)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(95, 6, fmt.Sprintf("Type: %s | Status: %s", titleCaser.String(string(p.Type)), titleCaser.String(string(p.Status))))
	pdf.Cell(95, 6, fmt.Sprintf("Window: %s to %s", p.Baselines.StartDate, p.Baselines.EndDate))
	pdf.Ln(6)

	pdfSection(pdf, "Progress & Baselines")
	rows := [][2]string{
		{"Physical progress", fmt.Sprintf("%.1f%%", sum.PhysicalProgress)},
		{"Area completed / planned", fmt.Sprintf("%.0f / %.0f m2", sum.CompletedArea, sum.TotalArea)},
		{"Material cost forecast", fmt.Sprintf("%.2f", sum.MaterialCost)},
		{"Budget utilization", gaugeLine(sum.Budget)},
	}
	if sum.Schedule != nil {
		rows = append(rows, [2]string{"Time elapsed", gaugeLine(*sum.Schedule)})
	} else {
		rows = append(rows, [2]string{"Time elapsed", sum.ScheduleError})
	}
	rows = append(rows, [2]string{"Active crew", fmt.Sprintf("%d", sum.ActiveCrew)})
	for _, r := range rows {
		pdf.CellFormat(70, 7, r[0], "1", 0, "L", false, 0, "")
		pdf.CellFormat(120, 7, r[1], "1", 1, "L", false, 0, "")
	}

	pdfSection(pdf, "Zones")
	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(240, 240, 240)
	pdf.CellFormat(70, 8, "Task", "1", 0, "L", true, 0, "")
	pdf.CellFormat(40, 8, "Zone", "1", 0, "L", true, 0, "")
	pdf.CellFormat(30, 8, "Status", "1", 0, "C", true, 0, "")
	pdf.CellFormat(25, 8, "Progress", "1", 0, "C", true, 0, "")
	pdf.CellFormat(25, 8, "Sub-tasks", "1", 1, "C", true, 0, "")
	pdf.SetFont("Arial", "", 10)
	for _, t := range tasks {
		pdf.CellFormat(70, 7, t.Title, "1", 0, "L", false, 0, "")
		pdf.CellFormat(40, 7, t.Zone, "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 7, statusLabel(t.Status), "1", 0, "C", false, 0, "")
		pdf.CellFormat(25, 7, fmt.Sprintf("%.0f%%", metrics.TaskProgress(t)), "1", 0, "C", false, 0, "")
		pdf.CellFormat(25, 7, metrics.RollupSubTasks(t).String(), "1", 1, "C", false, 0, "")
	}

	pdfSection(pdf, "Critical Stock")
	if len(sum.CriticalMaterials) == 0 {
		pdf.Cell(190, 6, "No materials below minimum.")
		pdf.Ln(6)
	}
	for _, m := range sum.CriticalMaterials {
		pdf.Cell(190, 6, fmt.Sprintf("%s: %.2f %s (minimum %.2f)", m.Name, m.Stock, m.Unit, m.Minimum))
		pdf.Ln(6)
	}

	if aiText != "" {
		pdfSection(pdf, "AI Insight")
		pdf.MultiCell(190, 6, aiText, "", "L", false)
	}

	pdf.SetY(-20)
	pdf.SetFont("Arial", "I", 8)
	pdf.Cell(190, 6, "Generated on: "+generated.Format("2006-01-02 15:04:05"))

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// GenerateSiteReportPDF godoc
// @Summary      Site report PDF
// @Description  Gauges, zones and critical stock for a project. With ai=true the AI insight is appended.
// @Tags         projects
// @Produce      application/pdf
// @Param        project_id  path   string  true   "Project ID"
// @Param        ai          query  bool    false  "Include AI insight"
// @Success      200         "PDF file"
// @Failure      404         {object}  models.ErrorResponse
// @Router       /api/projects/{project_id}/report_pdf [get]
func GenerateSiteReportPDF(repo *repository.SiteRepository, reports *services.ReportRequester, now Clock) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap := repo.Snapshot()
		p := snap.FindProject(c.Param("project_id"))
		if p == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
			return
		}

		site := siteSnapshot(snap, *p, now)
		aiText := ""
		if c.Query("ai") == "true" {
			ctx, cancel := utils.GetSlowQueryContext(c.Request.Context())
			defer cancel()
			aiText = reports.RequestReport(ctx, site)
		}

		doc, err := buildSiteReportPDF(*p, *site.Summary, site.Tasks, aiText, now())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate PDF", "details": err.Error()})
			return
		}

		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=site_report_%s.pdf", p.ID))
		c.Data(http.StatusOK, "application/pdf", doc)
	}
}
