package metrics

import (
	"time"

	"screedflow/models"
)

// ProjectSummary is everything the dashboard shows for one project.
type ProjectSummary struct {
	ProjectID         string                    `json:"project_id" example:"p1"`
	Name              string                    `json:"name" example:"Riverside Apartments"`
	TotalArea         float64                   `json:"total_area" example:"6250"`
	CompletedArea     float64                   `json:"completed_area" example:"450"`
	ActualArea        float64                   `json:"actual_area" example:"1395"`
	RemainingArea     float64                   `json:"remaining_area" example:"4855"`
	PhysicalProgress  float64                   `json:"physical_progress" example:"7.2"`
	MaterialCost      float64                   `json:"material_cost" example:"19531.25"`
	Budget            Gauge                     `json:"budget"`
	Schedule          *Gauge                    `json:"schedule"`
	ScheduleError     string                    `json:"schedule_error,omitempty"`
	TaskCounts        map[models.TaskStatus]int `json:"task_counts"`
	ActiveCrew        int                       `json:"active_crew" example:"5"`
	CriticalMaterials []MaterialStatus          `json:"critical_materials"`
}

// Summarize computes the project summary from a snapshot at time now.
func Summarize(s models.Snapshot, p models.Project, now time.Time) ProjectSummary {
	scoped := s.ForProject(p.ID)
	b := p.Baselines

	sum := ProjectSummary{
		ProjectID:        p.ID,
		Name:             p.Name,
		TotalArea:        TotalArea(scoped.Tasks),
		CompletedArea:    CompletedArea(scoped.Tasks),
		ActualArea:       ActualArea(scoped.Tasks),
		RemainingArea:    RemainingArea(scoped.Tasks),
		PhysicalProgress: PhysicalProgress(scoped.Tasks),
		MaterialCost:     MaterialCost(scoped.Materials, PlannedArea(b, scoped.Tasks)),
		TaskCounts:       CountByStatus(scoped.Tasks),
	}
	sum.Budget = Classify(BudgetUtilization(sum.MaterialCost, BudgetBase(b)))

	if g, err := ScheduleGauge(b, now); err != nil {
		sum.ScheduleError = err.Error()
	} else {
		sum.Schedule = &g
	}

	for _, m := range scoped.Team {
		if m.Status == models.MemberActive {
			sum.ActiveCrew++
		}
	}

	sum.CriticalMaterials = []MaterialStatus{}
	for _, st := range StockReport(scoped.Materials, sum.RemainingArea, b.TargetDailySqm) {
		if st.Critical {
			sum.CriticalMaterials = append(sum.CriticalMaterials, st)
		}
	}
	return sum
}

// PortfolioSummary rolls every project up into company-wide totals.
type PortfolioSummary struct {
	Projects          []ProjectSummary `json:"projects"`
	TotalArea         float64          `json:"total_area" example:"14500"`
	CompletedArea     float64          `json:"completed_area" example:"3200"`
	PhysicalProgress  float64          `json:"physical_progress" example:"22.1"`
	OverBudget        []string         `json:"over_budget"`
	BehindSchedule    []string         `json:"behind_schedule"`
	CriticalMaterials int              `json:"critical_materials" example:"1"`
	ReservePool       int              `json:"reserve_pool" example:"2"`
}

// BehindSchedule reports a project whose elapsed time share runs ahead of its physical progress.
func BehindSchedule(sum ProjectSummary) bool {
	return sum.Schedule != nil && sum.Schedule.Percentage > sum.PhysicalProgress
}

func SummarizePortfolio(s models.Snapshot, now time.Time) PortfolioSummary {
	out := PortfolioSummary{
		Projects:       make([]ProjectSummary, 0, len(s.Projects)),
		OverBudget:     []string{},
		BehindSchedule: []string{},
	}
	for _, p := range s.Projects {
		sum := Summarize(s, p, now)
		out.Projects = append(out.Projects, sum)
		if !sum.Budget.Healthy {
			out.OverBudget = append(out.OverBudget, p.ID)
		}
		if p.Status == models.ProjectActive && BehindSchedule(sum) {
			out.BehindSchedule = append(out.BehindSchedule, p.ID)
		}
	}
	out.TotalArea = TotalArea(s.Tasks)
	out.CompletedArea = CompletedArea(s.Tasks)
	out.PhysicalProgress = PhysicalProgress(s.Tasks)
	out.CriticalMaterials = len(CriticalMaterials(s.Materials))
	for _, m := range s.Team {
		if m.InReserve() {
			out.ReservePool++
		}
	}
	return out
}
