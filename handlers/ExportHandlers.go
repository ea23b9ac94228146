package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"screedflow/metrics"
	"screedflow/models"
	"screedflow/repository"
)

const (
	exportSummarySheet   = "Summary"
	exportTasksSheet     = "Tasks"
	exportMaterialsSheet = "Materials"
)

// statusLabel turns IN_PROGRESS into "In Progress".
func statusLabel(s models.TaskStatus) string {
	return cases.Title(language.Und).String(strings.ReplaceAll(strings.ToLower(string(s)), "_", " "))
}

func headerStyle(f *excelize.File, color string) (int, error) {
	return f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold:   true,
			Size:   12,
			Family: "Arial",
			Color:  "#FFFFFF",
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{color},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "left",
			Vertical:   "center",
		},
	})
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

// buildProjectWorkbook lays out the project summary, its zones and the stock it draws on.
func buildProjectWorkbook(p models.Project, sum metrics.ProjectSummary, tasks []models.Task, stock []metrics.MaterialStatus) (*excelize.File, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(exportSummarySheet)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}
	for _, name := range []string{exportTasksSheet, exportMaterialsSheet} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, err
		}
	}

	schedule := sum.ScheduleError
	if sum.Schedule != nil {
		schedule = fmt.Sprintf("%.1f%%", sum.Schedule.Percentage)
	}
	summary := [][]any{
		{"Project Export", p.Name},
		{"Project ID", p.ID},
		{"Location", p.Location},
		{"Status", cases.Title(language.Und).String(string(p.Status))},
		{"Start Date", p.Baselines.StartDate.String()},
		{"End Date", p.Baselines.EndDate.String()},
		{"Total Budget", p.Baselines.TotalBudget},
		{"Material Budget", p.Baselines.MaterialBudget},
		{"Material Cost Forecast", sum.MaterialCost},
		{"Budget Utilization %", sum.Budget.Percentage},
		{"Time Elapsed", schedule},
		{"Planned Area (m2)", sum.TotalArea},
		{"Completed Area (m2)", sum.CompletedArea},
		{"Physical Progress %", sum.PhysicalProgress},
		{"Critical Materials", len(sum.CriticalMaterials)},
	}
	if err := writeRows(f, exportSummarySheet, summary); err != nil {
		return nil, err
	}

	taskRows := [][]any{{"ID", "Title", "Zone", "Status", "Start", "End", "Planned m2", "Actual m2", "Progress %", "Sub-tasks"}}
	for _, t := range tasks {
		taskRows = append(taskRows, []any{
			t.ID, t.Title, t.Zone, statusLabel(t.Status), t.StartDate.String(), t.EndDate.String(),
			t.PlannedM2, t.ActualM2, metrics.TaskProgress(t), metrics.RollupSubTasks(t).String(),
		})
	}
	if err := writeRows(f, exportTasksSheet, taskRows); err != nil {
		return nil, err
	}

	materialRows := [][]any{{"ID", "Name", "Unit", "Stock", "Minimum", "Critical", "Shortfall", "Days of Cover"}}
	for _, m := range stock {
		critical := "No"
		if m.Critical {
			critical = "Yes"
		}
		materialRows = append(materialRows, []any{m.MaterialID, m.Name, m.Unit, m.Stock, m.Minimum, critical, m.Shortfall, m.DaysOfCover})
	}
	if err := writeRows(f, exportMaterialsSheet, materialRows); err != nil {
		return nil, err
	}

	titleStyle, err := headerStyle(f, "#4472C4")
	if err != nil {
		return nil, err
	}
	tableStyle, err := headerStyle(f, "#70AD47")
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(exportSummarySheet, "A1", "B1", titleStyle); err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(exportTasksSheet, "A1", "J1", tableStyle); err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(exportMaterialsSheet, "A1", "H1", tableStyle); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(exportSummarySheet, "A", "B", 28); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(exportTasksSheet, "B", "C", 24); err != nil {
		return nil, err
	}
	return f, nil
}

// ExportProjectWorkbook godoc
// @Summary      Export project workbook
// @Description  Excel workbook with Summary, Tasks and Materials sheets.
// @Tags         projects
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param        project_id  path  string  true  "Project ID"
// @Success      200         "XLSX file"
// @Failure      404         {object}  models.ErrorResponse
// @Router       /api/projects/{project_id}/export [get]
func ExportProjectWorkbook(repo *repository.SiteRepository, now Clock) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap := repo.Snapshot()
		p := snap.FindProject(c.Param("project_id"))
		if p == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
			return
		}

		scoped := snap.ForProject(p.ID)
		sum := metrics.Summarize(snap, *p, now())
		stock := metrics.StockReport(scoped.Materials, sum.RemainingArea, p.Baselines.TargetDailySqm)

		f, err := buildProjectWorkbook(*p, sum, scoped.Tasks, stock)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build workbook", "details": err.Error()})
			return
		}
		defer f.Close()

		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Header("Content-Disposition", fmt.Sprintf("attachment;filename=%s_export.xlsx", p.ID))
		if err := f.Write(c.Writer); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to write workbook"})
			return
		}
	}
}
