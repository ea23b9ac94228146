package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

type DateOnly struct {
	time.Time
}

const dateFormat = "2006-01-02"

// NewDate builds a DateOnly at UTC midnight.
func NewDate(year int, month time.Month, day int) DateOnly {
	return DateOnly{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (DateOnly, error) {
	t, err := time.Parse(dateFormat, s)
	if err != nil {
		return DateOnly{}, err
	}
	return DateOnly{Time: t}, nil
}

func (d *DateOnly) UnmarshalJSON(data []byte) error {
	if string(data) == "null" || string(data) == `""` {
		d.Time = time.Time{}
		return nil
	}
	parsedTime, err := time.Parse(`"`+dateFormat+`"`, string(data))
	if err != nil {
		return err
	}
	d.Time = parsedTime
	return nil
}

func (d DateOnly) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Time.Format(dateFormat))
}

func (d DateOnly) ToTime() time.Time {
	return d.Time
}

func (d DateOnly) String() string {
	return d.Time.Format(dateFormat)
}

// Scan implements the Scanner interface for DateOnly type
func (d *DateOnly) Scan(value interface{}) error {
	if value == nil {
		d.Time = time.Time{}
		return nil
	}
	switch v := value.(type) {
	case time.Time:
		d.Time = time.Date(v.Year(), v.Month(), v.Day(), 0, 0, 0, 0, time.UTC)
		return nil
	case string:
		parsed, err := ParseDate(v)
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	default:
		return fmt.Errorf("cannot scan type %T into DateOnly", v)
	}
}

// Value implements driver.Valuer for database/sql
func (d DateOnly) Value() (driver.Value, error) {
	return d.Time, nil
}

type TeamMember struct {
	ID                string       `json:"id" example:"4"`
	Name              string       `json:"name" example:"Dave Wilson"`
	Role              Role         `json:"role" example:"Screeder"`
	Avatar            string       `json:"avatar,omitempty" example:"https://picsum.photos/seed/dave/100"`
	Status            MemberStatus `json:"status" example:"active"`
	JoinedDate        DateOnly     `json:"joined_date" example:"2023-04-12"`
	Email             string       `json:"email,omitempty" example:"dave@screedflow.example"`
	Phone             string       `json:"phone,omitempty" example:"+44 7700 900004"`
	AccessLevel       AccessLevel  `json:"access_level" example:"Editor"`
	AssignedProjectID *string      `json:"assigned_project_id" example:"p1"`
}

func (m TeamMember) Key() string { return m.ID }

// InReserve reports whether the member is not assigned to any project.
func (m TeamMember) InReserve() bool {
	return m.AssignedProjectID == nil || *m.AssignedProjectID == ""
}

type Baselines struct {
	TotalBudget    float64  `json:"total_budget" example:"450000"`
	MaterialBudget float64  `json:"material_budget" example:"280000"`
	LabourBudget   float64  `json:"labour_budget" example:"140000"`
	Contingency    float64  `json:"contingency" example:"30000"`
	PlannedArea    float64  `json:"planned_area" example:"6250"`
	TargetDailySqm float64  `json:"target_daily_sqm" example:"250"`
	StartDate      DateOnly `json:"start_date" example:"2024-01-01"`
	EndDate        DateOnly `json:"end_date" example:"2024-08-30"`
}

type FloorPlan struct {
	ID         string   `json:"id" example:"fp1"`
	Name       string   `json:"name" example:"Level 1 - East Wing"`
	ImageURL   string   `json:"image_url" example:"1704067200-level1.png"`
	UploadDate DateOnly `json:"upload_date" example:"2024-01-05"`
}

type Project struct {
	ID         string        `json:"id" example:"p1"`
	Name       string        `json:"name" example:"Riverside Apartments"`
	Location   string        `json:"location" example:"Manchester"`
	Type       ProjectType   `json:"type" example:"residential"`
	Status     ProjectStatus `json:"status" example:"active"`
	ForemanID  string        `json:"foreman_id" example:"2"`
	Baselines  Baselines     `json:"baselines"`
	FloorPlans []FloorPlan   `json:"floor_plans"`
}

func (p Project) Key() string { return p.ID }

type SubTask struct {
	ID       string     `json:"id" example:"t1-s1"`
	Title    string     `json:"title" example:"Lay insulation"`
	Progress float64    `json:"progress" example:"100"`
	Status   TaskStatus `json:"status" example:"COMPLETED"`
}

type Task struct {
	ID         string     `json:"id" example:"t1"`
	ProjectID  string     `json:"project_id" example:"p1"`
	Title      string     `json:"title" example:"East Wing - Level 1"`
	Zone       string     `json:"zone" example:"Block A"`
	Status     TaskStatus `json:"status" example:"IN_PROGRESS"`
	AssignedTo []string   `json:"assigned_to"`
	StartDate  DateOnly   `json:"start_date" example:"2024-01-08"`
	EndDate    DateOnly   `json:"end_date" example:"2024-02-20"`
	PlannedM2  float64    `json:"planned_m2" example:"1200"`
	ActualM2   float64    `json:"actual_m2" example:"780"`
	Progress   float64    `json:"progress" example:"65"`
	SubTasks   []SubTask  `json:"sub_tasks"`
}

func (t Task) Key() string { return t.ID }

// SubTask returns the sub-task with the given id, or nil.
func (t *Task) SubTask(id string) *SubTask {
	for i := range t.SubTasks {
		if t.SubTasks[i].ID == id {
			return &t.SubTasks[i]
		}
	}
	return nil
}

type Material struct {
	ID              string           `json:"id" example:"m1"`
	ProjectID       *string          `json:"project_id" example:"p1"`
	Location        LocationType     `json:"location" example:"central"`
	Category        MaterialCategory `json:"category" example:"consumable"`
	Name            string           `json:"name" example:"Portland Cement (CEM I)"`
	Unit            string           `json:"unit" example:"Bags"`
	Stock           float64          `json:"stock" example:"1200"`
	MinimumRequired float64          `json:"minimum_required" example:"200"`
	UsagePerSqm     float64          `json:"usage_per_sqm" example:"0.25"`
	UnitCost        float64          `json:"unit_cost" example:"12.5"`
}

func (m Material) Key() string { return m.ID }

// Shared reports whether the material belongs to central stock rather than one project.
func (m Material) Shared() bool {
	return m.ProjectID == nil || *m.ProjectID == ""
}

// AppliesTo reports whether the material is drawn on by the given project.
func (m Material) AppliesTo(projectID string) bool {
	return m.Shared() || *m.ProjectID == projectID
}

type Notification struct {
	ID        string           `json:"id" example:"n1"`
	Type      NotificationType `json:"type" example:"material"`
	Title     string           `json:"title" example:"Low stock"`
	Message   string           `json:"message" example:"Sharp Sand is below its minimum of 10 Tonnes"`
	Timestamp time.Time        `json:"timestamp" example:"2024-05-01T06:30:00Z"`
	Read      bool             `json:"read" example:"false"`
	ProjectID string           `json:"project_id,omitempty" example:"p1"`
}

func (n Notification) Key() string { return n.ID }

type ActivityLog struct {
	ID           int       `json:"id" example:"1"`
	CreatedAt    time.Time `json:"created_at" example:"2024-01-15T10:30:00Z"`
	UserName     string    `json:"user_name" example:"Marcus Chen"`
	EventContext string    `json:"event_context" example:"Task"`
	EventName    string    `json:"event_name" example:"Work Recorded"`
	Description  string    `json:"description" example:"Recorded 120 m2 on East Wing - Level 1"`
	ProjectID    string    `json:"project_id" example:"p1"`
}

// Snapshot is the full in-memory collection of entities at a point in time.
type Snapshot struct {
	Projects      []Project      `json:"projects"`
	Tasks         []Task         `json:"tasks"`
	Materials     []Material     `json:"materials"`
	Team          []TeamMember   `json:"team"`
	Notifications []Notification `json:"notifications"`
}

// ForProject narrows the snapshot to one project: its tasks, the materials it draws on,
// and the members assigned to it.
func (s Snapshot) ForProject(projectID string) Snapshot {
	out := Snapshot{}
	for _, p := range s.Projects {
		if p.ID == projectID {
			out.Projects = append(out.Projects, p)
		}
	}
	for _, t := range s.Tasks {
		if t.ProjectID == projectID {
			out.Tasks = append(out.Tasks, t)
		}
	}
	for _, m := range s.Materials {
		if m.AppliesTo(projectID) {
			out.Materials = append(out.Materials, m)
		}
	}
	for _, m := range s.Team {
		if !m.InReserve() && *m.AssignedProjectID == projectID {
			out.Team = append(out.Team, m)
		}
	}
	for _, n := range s.Notifications {
		if n.ProjectID == projectID {
			out.Notifications = append(out.Notifications, n)
		}
	}
	return out
}

// FindMember resolves a team-member reference. Missing members resolve to nil.
func (s Snapshot) FindMember(id string) *TeamMember {
	for i := range s.Team {
		if s.Team[i].ID == id {
			return &s.Team[i]
		}
	}
	return nil
}

func (s Snapshot) FindProject(id string) *Project {
	for i := range s.Projects {
		if s.Projects[i].ID == id {
			return &s.Projects[i]
		}
	}
	return nil
}

func (s Snapshot) FindTask(id string) *Task {
	for i := range s.Tasks {
		if s.Tasks[i].ID == id {
			return &s.Tasks[i]
		}
	}
	return nil
}

func (s Snapshot) FindMaterial(id string) *Material {
	for i := range s.Materials {
		if s.Materials[i].ID == id {
			return &s.Materials[i]
		}
	}
	return nil
}
