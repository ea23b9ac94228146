package models

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func sampleProject() Project {
	return Project{
		ID:        "p1",
		Name:      "Riverside Apartments",
		Location:  "Manchester",
		Type:      ProjectResidential,
		Status:    ProjectActive,
		ForemanID: "2",
		Baselines: Baselines{
			TotalBudget:    450000,
			MaterialBudget: 280000,
			LabourBudget:   140000,
			Contingency:    30000,
			PlannedArea:    6250,
			TargetDailySqm: 250,
			StartDate:      NewDate(2024, 1, 1),
			EndDate:        NewDate(2024, 8, 30),
		},
		FloorPlans: []FloorPlan{
			{ID: "fp1", Name: "Level 1", ImageURL: "level1.png", UploadDate: NewDate(2024, 1, 5)},
			{ID: "fp2", Name: "Level 2", ImageURL: "level2.png", UploadDate: NewDate(2024, 2, 9)},
		},
	}
}

func TestProjectRoundTrip(t *testing.T) {
	in := sampleProject()

	data, err := json.Marshal(in)
	require.NoError(t, err)

	var out Project
	require.NoError(t, json.Unmarshal(data, &out))

	if diff := cmp.Diff(in, out); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestDatesSerializeAsCalendarDates(t *testing.T) {
	data, err := json.Marshal(sampleProject().Baselines)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "2024-01-01", raw["start_date"])
	assert.Equal(t, "2024-08-30", raw["end_date"])
}

func TestDateOnlyAcceptsNullAndEmpty(t *testing.T) {
	var d DateOnly
	require.NoError(t, json.Unmarshal([]byte(`null`), &d))
	assert.True(t, d.IsZero())
	require.NoError(t, json.Unmarshal([]byte(`""`), &d))
	assert.True(t, d.IsZero())
	assert.Error(t, json.Unmarshal([]byte(`"01/02/2024"`), &d))
}

func TestValidateBaselines(t *testing.T) {
	b := sampleProject().Baselines
	assert.NoError(t, ValidateBaselines(b))

	b.EndDate = b.StartDate
	err := ValidateBaselines(b)
	require.Error(t, err)
	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "end_date", verrs[0].Field)

	b = sampleProject().Baselines
	b.MaterialBudget = -1
	require.ErrorAs(t, ValidateBaselines(b), &verrs)
	assert.Equal(t, "material_budget", verrs[0].Field)
}

func TestValidateProjectPrefixesBaselineFields(t *testing.T) {
	p := sampleProject()
	p.Baselines.EndDate = NewDate(2023, 12, 1)

	var verrs ValidationErrors
	require.ErrorAs(t, ValidateProject(p), &verrs)
	assert.Equal(t, "baselines.end_date", verrs[0].Field)
}

func TestValidateTask(t *testing.T) {
	task := Task{
		ID:        "t1",
		ProjectID: "p1",
		Title:     "East Wing",
		Status:    TaskInProgress,
		StartDate: NewDate(2024, 2, 1),
		EndDate:   NewDate(2024, 2, 1),
		PlannedM2: 100,
		SubTasks:  []SubTask{{ID: "s1", Title: "Prime", Status: TaskPending, Progress: 0}},
	}
	assert.NoError(t, ValidateTask(task), "same-day tasks are allowed")

	task.EndDate = NewDate(2024, 1, 31)
	var verrs ValidationErrors
	require.ErrorAs(t, ValidateTask(task), &verrs)
	assert.Equal(t, "end_date", verrs[0].Field)

	task.EndDate = NewDate(2024, 2, 3)
	task.SubTasks[0].Progress = 101
	require.ErrorAs(t, ValidateTask(task), &verrs)
	assert.Equal(t, "sub_tasks[0].progress", verrs[0].Field)
}

func TestValidateSubTaskProgressRange(t *testing.T) {
	assert.NoError(t, ValidateSubTask(SubTask{Title: "x", Status: TaskCompleted, Progress: 100}))
	assert.Error(t, ValidateSubTask(SubTask{Title: "x", Status: TaskCompleted, Progress: -0.5}))
	assert.Error(t, ValidateSubTask(SubTask{Title: "x", Status: "DONE", Progress: 50}))
}

func TestValidateMaterialRejectsNegativeStock(t *testing.T) {
	m := Material{
		ID: "m1", Name: "Sharp Sand", Unit: "Tonnes",
		Location: LocationCentral, Category: CategoryConsumable,
		Stock: -3, MinimumRequired: 10, UsagePerSqm: 0.08, UnitCost: 30,
	}
	var verrs ValidationErrors
	require.ErrorAs(t, ValidateMaterial(m), &verrs)
	assert.Len(t, verrs, 1)
	assert.Equal(t, "stock", verrs[0].Field)
}

func TestSnapshotForProject(t *testing.T) {
	s := Snapshot{
		Projects: []Project{{ID: "p1"}, {ID: "p2"}},
		Tasks:    []Task{{ID: "t1", ProjectID: "p1"}, {ID: "t2", ProjectID: "p2"}},
		Materials: []Material{
			{ID: "central"},
			{ID: "p1-only", ProjectID: strPtr("p1")},
			{ID: "p2-only", ProjectID: strPtr("p2")},
		},
		Team: []TeamMember{
			{ID: "1", AssignedProjectID: strPtr("p1")},
			{ID: "2"},
		},
	}

	scoped := s.ForProject("p1")
	require.Len(t, scoped.Projects, 1)
	require.Len(t, scoped.Tasks, 1)
	assert.Equal(t, "t1", scoped.Tasks[0].ID)
	require.Len(t, scoped.Materials, 2)
	assert.Equal(t, "central", scoped.Materials[0].ID)
	assert.Equal(t, "p1-only", scoped.Materials[1].ID)
	require.Len(t, scoped.Team, 1)

	assert.Nil(t, s.FindMember("99"))
	assert.NotNil(t, s.FindMember("2"))
}
