// Package metrics derives the progress, budget, schedule and stock figures shown on the
// dashboard. Every function is pure: inputs are read, never mutated, and no I/O happens.
// A zero denominator yields 0 rather than NaN or an error.
package metrics

import (
	"strconv"

	"screedflow/models"
)

// ratio returns num/den*100, or 0 when den is not positive.
func ratio(num, den float64) float64 {
	if den <= 0 {
		return 0
	}
	return num / den * 100
}

// TotalArea sums the planned area of every task.
func TotalArea(tasks []models.Task) float64 {
	total := 0.0
	for _, t := range tasks {
		total += t.PlannedM2
	}
	return total
}

// CompletedArea sums the planned area of completed tasks.
func CompletedArea(tasks []models.Task) float64 {
	total := 0.0
	for _, t := range tasks {
		if t.Status == models.TaskCompleted {
			total += t.PlannedM2
		}
	}
	return total
}

// ActualArea sums the area recorded as done across all tasks.
func ActualArea(tasks []models.Task) float64 {
	total := 0.0
	for _, t := range tasks {
		total += t.ActualM2
	}
	return total
}

// RemainingArea is the planned area not yet recorded as done, never negative per task.
func RemainingArea(tasks []models.Task) float64 {
	total := 0.0
	for _, t := range tasks {
		if rest := t.PlannedM2 - t.ActualM2; rest > 0 && t.Status != models.TaskCompleted {
			total += rest
		}
	}
	return total
}

// PhysicalProgress is the completed share of total planned area, as a percentage.
func PhysicalProgress(tasks []models.Task) float64 {
	return ratio(CompletedArea(tasks), TotalArea(tasks))
}

// TaskProgress derives a task's percentage from actual over planned area, capped at 100.
// Tasks without a planned area fall back to their stored progress.
func TaskProgress(t models.Task) float64 {
	if t.PlannedM2 <= 0 {
		return t.Progress
	}
	p := ratio(t.ActualM2, t.PlannedM2)
	if p > 100 {
		return 100
	}
	return p
}

// SubTaskRollup counts sub-tasks whose status is completed, ignoring their progress values.
type SubTaskRollup struct {
	Done       int     `json:"done" example:"2"`
	Total      int     `json:"total" example:"3"`
	Percentage float64 `json:"percentage" example:"66.67"`
}

func (r SubTaskRollup) String() string {
	return strconv.Itoa(r.Done) + " of " + strconv.Itoa(r.Total) + " done"
}

func RollupSubTasks(t models.Task) SubTaskRollup {
	r := SubTaskRollup{Total: len(t.SubTasks)}
	for _, st := range t.SubTasks {
		if st.Status == models.TaskCompleted {
			r.Done++
		}
	}
	r.Percentage = ratio(float64(r.Done), float64(r.Total))
	return r
}

// SubTaskAverage is the mean of sub-task progress values, 0 when there are none.
func SubTaskAverage(t models.Task) float64 {
	if len(t.SubTasks) == 0 {
		return 0
	}
	sum := 0.0
	for _, st := range t.SubTasks {
		sum += st.Progress
	}
	return sum / float64(len(t.SubTasks))
}

// DriftThreshold is the gap, in percentage points, above which a task's own progress
// is reported as disagreeing with its sub-tasks.
const DriftThreshold = 10.0

// ProgressDrift reports the gap between the task's progress and its sub-task average.
// Tasks without sub-tasks never drift.
func ProgressDrift(t models.Task) (gap float64, drifting bool) {
	if len(t.SubTasks) == 0 {
		return 0, false
	}
	gap = TaskProgress(t) - SubTaskAverage(t)
	if gap < 0 {
		gap = -gap
	}
	return gap, gap > DriftThreshold
}

// CountByStatus tallies tasks per status, including zero counts.
func CountByStatus(tasks []models.Task) map[models.TaskStatus]int {
	counts := make(map[models.TaskStatus]int, len(models.TaskStatuses))
	for _, s := range models.TaskStatuses {
		counts[s] = 0
	}
	for _, t := range tasks {
		counts[t.Status]++
	}
	return counts
}
