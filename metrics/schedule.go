package metrics

import (
	"errors"
	"time"

	"screedflow/models"
)

// ErrInvalidSchedule is returned when an end date does not fall after its start date.
var ErrInvalidSchedule = errors.New("end date must be after start date")

// GanttMinWidth keeps zero or negative length bars visible.
const GanttMinWidth = 2.0

// ScheduleUtilization is the share of the contracted duration elapsed at now, regardless
// of work done. Values before the start clamp to 0; values past the end exceed 100.
func ScheduleUtilization(b models.Baselines, now time.Time) (float64, error) {
	duration := b.EndDate.Sub(b.StartDate.Time)
	if duration <= 0 {
		return 0, ErrInvalidSchedule
	}
	elapsed := now.Sub(b.StartDate.Time)
	if elapsed < 0 {
		elapsed = 0
	}
	return float64(elapsed) / float64(duration) * 100, nil
}

func ScheduleGauge(b models.Baselines, now time.Time) (Gauge, error) {
	pct, err := ScheduleUtilization(b, now)
	if err != nil {
		return Gauge{}, err
	}
	return Classify(pct), nil
}

// Span positions one bar on a timeline as percentages of the project duration.
type Span struct {
	TaskID string            `json:"task_id" example:"t1"`
	Title  string            `json:"title" example:"East Wing - Level 1"`
	Status models.TaskStatus `json:"status" example:"IN_PROGRESS"`
	Left   float64           `json:"left" example:"3.3"`
	Width  float64           `json:"width" example:"17.8"`
}

// GanttSpan computes left and width for a task between start and end inside the project
// window. Width never drops below GanttMinWidth.
func GanttSpan(projectStart, projectEnd, start, end time.Time) (left, width float64, err error) {
	duration := projectEnd.Sub(projectStart)
	if duration <= 0 {
		return 0, 0, ErrInvalidSchedule
	}
	left = float64(start.Sub(projectStart)) / float64(duration) * 100
	right := float64(end.Sub(projectStart)) / float64(duration) * 100
	width = right - left
	if width < GanttMinWidth {
		width = GanttMinWidth
	}
	return left, width, nil
}

// GanttChart lays out every task of the project in the order given.
func GanttChart(p models.Project, tasks []models.Task) ([]Span, error) {
	spans := make([]Span, 0, len(tasks))
	for _, t := range tasks {
		left, width, err := GanttSpan(p.Baselines.StartDate.Time, p.Baselines.EndDate.Time, t.StartDate.Time, t.EndDate.Time)
		if err != nil {
			return nil, err
		}
		spans = append(spans, Span{TaskID: t.ID, Title: t.Title, Status: t.Status, Left: left, Width: width})
	}
	return spans, nil
}
