package models

import (
	"errors"
	"fmt"
	"strings"
)

var ErrNotFound = errors.New("not found")

// FieldError is a validation failure bound to one input field.
type FieldError struct {
	Field   string `json:"field" example:"baselines.end_date"`
	Message string `json:"message" example:"must be after start_date"`
}

// ValidationErrors collects every field failure found on an entity.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	parts := make([]string, 0, len(v))
	for _, fe := range v {
		parts = append(parts, fe.Field+": "+fe.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (v *ValidationErrors) add(field, format string, args ...any) {
	*v = append(*v, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

func (v ValidationErrors) err() error {
	if len(v) == 0 {
		return nil
	}
	return v
}

func nonNegative(v *ValidationErrors, field string, value float64) {
	if value < 0 {
		v.add(field, "must not be negative")
	}
}

func percentage(v *ValidationErrors, field string, value float64) {
	if value < 0 || value > 100 {
		v.add(field, "must be between 0 and 100")
	}
}

// ValidateBaselines rejects negative figures and a schedule whose end is not after its start.
func ValidateBaselines(b Baselines) error {
	var v ValidationErrors
	validateBaselines(&v, "", b)
	return v.err()
}

func validateBaselines(v *ValidationErrors, prefix string, b Baselines) {
	nonNegative(v, prefix+"total_budget", b.TotalBudget)
	nonNegative(v, prefix+"material_budget", b.MaterialBudget)
	nonNegative(v, prefix+"labour_budget", b.LabourBudget)
	nonNegative(v, prefix+"contingency", b.Contingency)
	nonNegative(v, prefix+"planned_area", b.PlannedArea)
	nonNegative(v, prefix+"target_daily_sqm", b.TargetDailySqm)

	switch {
	case b.StartDate.IsZero():
		v.add(prefix+"start_date", "is required")
	case b.EndDate.IsZero():
		v.add(prefix+"end_date", "is required")
	case !b.EndDate.After(b.StartDate.Time):
		v.add(prefix+"end_date", "must be after start_date")
	}
}

func ValidateProject(p Project) error {
	var v ValidationErrors
	if strings.TrimSpace(p.Name) == "" {
		v.add("name", "is required")
	}
	if !p.Type.Valid() {
		v.add("type", "must be one of residential, commercial, industrial")
	}
	if !p.Status.Valid() {
		v.add("status", "must be one of active, bidding, completed")
	}
	validateBaselines(&v, "baselines.", p.Baselines)
	for i, fp := range p.FloorPlans {
		if strings.TrimSpace(fp.Name) == "" {
			v.add(fmt.Sprintf("floor_plans[%d].name", i), "is required")
		}
	}
	return v.err()
}

func ValidateTask(t Task) error {
	var v ValidationErrors
	if strings.TrimSpace(t.Title) == "" {
		v.add("title", "is required")
	}
	if t.ProjectID == "" {
		v.add("project_id", "is required")
	}
	if !t.Status.Valid() {
		v.add("status", "must be one of PENDING, IN_PROGRESS, COMPLETED, DELAYED")
	}
	switch {
	case t.StartDate.IsZero():
		v.add("start_date", "is required")
	case t.EndDate.IsZero():
		v.add("end_date", "is required")
	case t.EndDate.Before(t.StartDate.Time):
		v.add("end_date", "must not precede start_date")
	}
	nonNegative(&v, "planned_m2", t.PlannedM2)
	nonNegative(&v, "actual_m2", t.ActualM2)
	percentage(&v, "progress", t.Progress)
	for i, st := range t.SubTasks {
		validateSubTask(&v, fmt.Sprintf("sub_tasks[%d].", i), st)
	}
	return v.err()
}

func ValidateSubTask(s SubTask) error {
	var v ValidationErrors
	validateSubTask(&v, "", s)
	return v.err()
}

func validateSubTask(v *ValidationErrors, prefix string, s SubTask) {
	if strings.TrimSpace(s.Title) == "" {
		v.add(prefix+"title", "is required")
	}
	if !s.Status.Valid() {
		v.add(prefix+"status", "must be one of PENDING, IN_PROGRESS, COMPLETED, DELAYED")
	}
	percentage(v, prefix+"progress", s.Progress)
}

func ValidateMaterial(m Material) error {
	var v ValidationErrors
	if strings.TrimSpace(m.Name) == "" {
		v.add("name", "is required")
	}
	if strings.TrimSpace(m.Unit) == "" {
		v.add("unit", "is required")
	}
	if !m.Location.Valid() {
		v.add("location", "must be central or site")
	}
	if !m.Category.Valid() {
		v.add("category", "must be one of consumable, plant-machinery, equipment")
	}
	nonNegative(&v, "stock", m.Stock)
	nonNegative(&v, "minimum_required", m.MinimumRequired)
	nonNegative(&v, "usage_per_sqm", m.UsagePerSqm)
	nonNegative(&v, "unit_cost", m.UnitCost)
	return v.err()
}

func ValidateMember(m TeamMember) error {
	var v ValidationErrors
	if strings.TrimSpace(m.Name) == "" {
		v.add("name", "is required")
	}
	if !m.Role.Valid() {
		v.add("role", "is not a known role")
	}
	if !m.Status.Valid() {
		v.add("status", "must be one of active, on-leave, off-site")
	}
	if !m.AccessLevel.Valid() {
		v.add("access_level", "must be one of Admin, Editor, Viewer, Client")
	}
	return v.err()
}
