package repository

import (
	"context"
	"fmt"
	"strings"

	"screedflow/metrics"
	"screedflow/models"
)

func invalid(field, message string) error {
	return models.ValidationErrors{{Field: field, Message: message}}
}

func (r *SiteRepository) CreateProject(ctx context.Context, actor string, p models.Project) (models.Project, error) {
	if p.Status == "" {
		p.Status = models.ProjectActive
	}
	if p.FloorPlans == nil {
		p.FloorPlans = []models.FloorPlan{}
	}
	if err := models.ValidateProject(p); err != nil {
		return models.Project{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if p.ID == "" {
		p.ID = r.newID()
	} else if indexOf(r.snap.Projects, p.ID) >= 0 {
		return models.Project{}, invalid("id", "is already in use")
	}
	r.snap.Projects = append(r.snap.Projects, p)
	err := r.persistProjects(ctx)
	r.record(ctx, actor, "Project", "Project Created", fmt.Sprintf("Created project %s", p.Name), p.ID)
	return r.projectOrInput(p), err
}

// SaveBaselines replaces a project's baselines after rejecting an invalid schedule or
// negative figures.
func (r *SiteRepository) SaveBaselines(ctx context.Context, actor, projectID string, b models.Baselines) (models.Project, error) {
	if err := models.ValidateBaselines(b); err != nil {
		return models.Project{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	i := indexOf(r.snap.Projects, projectID)
	if i < 0 {
		return models.Project{}, fmt.Errorf("project %q: %w", projectID, models.ErrNotFound)
	}
	r.snap.Projects[i].Baselines = b
	p := r.snap.Projects[i]
	err := r.persistProjects(ctx)
	r.record(ctx, actor, "Project", "Baselines Saved",
		fmt.Sprintf("Baselines for %s set to %s - %s", p.Name, b.StartDate, b.EndDate), p.ID)
	return r.projectOrInput(p), err
}

func (r *SiteRepository) AddFloorPlan(ctx context.Context, actor, projectID string, fp models.FloorPlan) (models.Project, error) {
	if strings.TrimSpace(fp.Name) == "" {
		return models.Project{}, invalid("name", "is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	i := indexOf(r.snap.Projects, projectID)
	if i < 0 {
		return models.Project{}, fmt.Errorf("project %q: %w", projectID, models.ErrNotFound)
	}
	if fp.ID == "" {
		fp.ID = r.newID()
	}
	if fp.UploadDate.IsZero() {
		now := r.now()
		fp.UploadDate = models.NewDate(now.Year(), now.Month(), now.Day())
	}
	r.snap.Projects[i].FloorPlans = append(r.snap.Projects[i].FloorPlans, fp)
	p := r.snap.Projects[i]
	err := r.persistProjects(ctx)
	r.record(ctx, actor, "Project", "Floor Plan Uploaded", fmt.Sprintf("Added floor plan %s to %s", fp.Name, p.Name), p.ID)
	return r.projectOrInput(p), err
}

func (r *SiteRepository) projectOrInput(p models.Project) models.Project {
	if found := r.snap.FindProject(p.ID); found != nil {
		return *found
	}
	return p
}

// CreateTask schedules a new zone of work. The owning project must exist.
func (r *SiteRepository) CreateTask(ctx context.Context, actor string, t models.Task) (models.Task, error) {
	if t.Status == "" {
		t.Status = models.TaskPending
	}
	if t.AssignedTo == nil {
		t.AssignedTo = []string{}
	}
	if t.SubTasks == nil {
		t.SubTasks = []models.SubTask{}
	}
	if t.PlannedM2 > 0 {
		t.Progress = metrics.TaskProgress(t)
	}
	if err := models.ValidateTask(t); err != nil {
		return models.Task{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	project := r.snap.FindProject(t.ProjectID)
	if project == nil {
		return models.Task{}, invalid("project_id", "refers to an unknown project")
	}
	if t.ID == "" {
		t.ID = r.newID()
	} else if indexOf(r.snap.Tasks, t.ID) >= 0 {
		return models.Task{}, invalid("id", "is already in use")
	}
	for i := range t.SubTasks {
		if t.SubTasks[i].ID == "" {
			t.SubTasks[i].ID = r.newID()
		}
	}

	r.snap.Tasks = append(r.snap.Tasks, t)
	err := r.persistTasks(ctx)
	r.record(ctx, actor, "Task", "Task Created", fmt.Sprintf("Scheduled %s (%.0f m2) on %s", t.Title, t.PlannedM2, project.Name), t.ProjectID)
	if err == nil {
		err = r.notifyAssigned(ctx, t, t.AssignedTo)
	}
	return r.taskOrInput(t), err
}

// UpdateTask replaces a task. Status may move between any two values.
func (r *SiteRepository) UpdateTask(ctx context.Context, actor string, t models.Task) (models.Task, error) {
	if t.AssignedTo == nil {
		t.AssignedTo = []string{}
	}
	if t.SubTasks == nil {
		t.SubTasks = []models.SubTask{}
	}
	if t.PlannedM2 > 0 {
		t.Progress = metrics.TaskProgress(t)
	}
	if err := models.ValidateTask(t); err != nil {
		return models.Task{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	i := indexOf(r.snap.Tasks, t.ID)
	if i < 0 {
		return models.Task{}, fmt.Errorf("task %q: %w", t.ID, models.ErrNotFound)
	}
	if r.snap.FindProject(t.ProjectID) == nil {
		return models.Task{}, invalid("project_id", "refers to an unknown project")
	}
	for j := range t.SubTasks {
		if t.SubTasks[j].ID == "" {
			t.SubTasks[j].ID = r.newID()
		}
	}

	previous := r.snap.Tasks[i]
	r.snap.Tasks[i] = t
	err := r.persistTasks(ctx)

	description := fmt.Sprintf("Updated %s", t.Title)
	if previous.Status != t.Status {
		description = fmt.Sprintf("%s moved from %s to %s", t.Title, previous.Status, t.Status)
	}
	r.record(ctx, actor, "Task", "Task Updated", description, t.ProjectID)
	if err == nil {
		err = r.notifyAssigned(ctx, t, newlyAssigned(previous.AssignedTo, t.AssignedTo))
	}
	return r.taskOrInput(t), err
}

// RecordWork adds completed area to a task and recomputes its progress and status.
// A delayed task stays delayed until it is complete.
func (r *SiteRepository) RecordWork(ctx context.Context, actor, taskID string, areaM2 float64) (models.Task, error) {
	if areaM2 <= 0 {
		return models.Task{}, invalid("area_m2", "must be greater than 0")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	i := indexOf(r.snap.Tasks, taskID)
	if i < 0 {
		return models.Task{}, fmt.Errorf("task %q: %w", taskID, models.ErrNotFound)
	}
	t := r.snap.Tasks[i]
	wasComplete := t.Status == models.TaskCompleted
	t.ActualM2 += areaM2
	t.Progress = metrics.TaskProgress(t)

	complete := t.PlannedM2 > 0 && t.ActualM2 >= t.PlannedM2
	switch {
	case complete:
		t.Status = models.TaskCompleted
	case t.Status == models.TaskDelayed:
	default:
		t.Status = models.TaskInProgress
	}
	r.snap.Tasks[i] = t

	err := r.persistTasks(ctx)
	r.record(ctx, actor, "Task", "Work Recorded", fmt.Sprintf("Recorded %.1f m2 on %s", areaM2, t.Title), t.ProjectID)
	if err == nil && complete && !wasComplete {
		err = r.notify(ctx, models.Notification{
			Type:      models.NotificationUpdate,
			Title:     "Zone completed",
			Message:   fmt.Sprintf("%s reached %.0f of %.0f m2", t.Title, t.ActualM2, t.PlannedM2),
			ProjectID: t.ProjectID,
		})
	}
	return r.taskOrInput(t), err
}

func (r *SiteRepository) UpdateSubTask(ctx context.Context, actor, taskID, subTaskID string, req models.SubTaskUpdateRequest) (models.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := indexOf(r.snap.Tasks, taskID)
	if i < 0 {
		return models.Task{}, fmt.Errorf("task %q: %w", taskID, models.ErrNotFound)
	}
	t := r.snap.Tasks[i]
	t.SubTasks = append([]models.SubTask(nil), t.SubTasks...)
	st := t.SubTask(subTaskID)
	if st == nil {
		return models.Task{}, fmt.Errorf("sub-task %q: %w", subTaskID, models.ErrNotFound)
	}
	if req.Status != nil {
		st.Status = *req.Status
	}
	if req.Progress != nil {
		st.Progress = *req.Progress
	}
	if err := models.ValidateSubTask(*st); err != nil {
		return models.Task{}, err
	}
	r.snap.Tasks[i] = t

	err := r.persistTasks(ctx)
	r.record(ctx, actor, "Task", "Sub-task Updated",
		fmt.Sprintf("%s / %s: %s at %.0f%% (%s)", t.Title, st.Title, st.Status, st.Progress, metrics.RollupSubTasks(t)), t.ProjectID)
	return r.taskOrInput(t), err
}

func (r *SiteRepository) taskOrInput(t models.Task) models.Task {
	if found := r.snap.FindTask(t.ID); found != nil {
		return *found
	}
	return t
}

func (r *SiteRepository) notifyAssigned(ctx context.Context, t models.Task, memberIDs []string) error {
	for _, id := range memberIDs {
		name := "Unassigned member"
		if m := r.snap.FindMember(id); m != nil {
			name = m.Name
		}
		err := r.notify(ctx, models.Notification{
			Type:      models.NotificationAssignment,
			Title:     "Crew assigned",
			Message:   fmt.Sprintf("%s assigned to %s (%s)", name, t.Title, t.Zone),
			ProjectID: t.ProjectID,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func newlyAssigned(before, after []string) []string {
	var out []string
	for _, id := range after {
		found := false
		for _, prev := range before {
			if prev == id {
				found = true
				break
			}
		}
		if !found {
			out = append(out, id)
		}
	}
	return out
}

func (r *SiteRepository) CreateMaterial(ctx context.Context, actor string, m models.Material) (models.Material, error) {
	if err := models.ValidateMaterial(m); err != nil {
		return models.Material{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !m.Shared() && r.snap.FindProject(*m.ProjectID) == nil {
		return models.Material{}, invalid("project_id", "refers to an unknown project")
	}
	if m.ID == "" {
		m.ID = r.newID()
	} else if indexOf(r.snap.Materials, m.ID) >= 0 {
		return models.Material{}, invalid("id", "is already in use")
	}
	r.snap.Materials = append(r.snap.Materials, m)
	err := r.persistMaterials(ctx)
	r.record(ctx, actor, "Inventory", "Material Added", fmt.Sprintf("Added %s (%.2f %s)", m.Name, m.Stock, m.Unit), projectOf(m))
	return r.materialOrInput(m), err
}

// AdjustStock sets or shifts a material's stock. Dropping below the minimum raises a
// material notification.
func (r *SiteRepository) AdjustStock(ctx context.Context, actor, materialID string, req models.StockAdjustmentRequest) (models.Material, error) {
	if (req.Stock == nil) == (req.Delta == nil) {
		return models.Material{}, invalid("stock", "provide exactly one of stock or delta")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	i := indexOf(r.snap.Materials, materialID)
	if i < 0 {
		return models.Material{}, fmt.Errorf("material %q: %w", materialID, models.ErrNotFound)
	}
	m := r.snap.Materials[i]
	wasCritical := metrics.IsCritical(m)
	before := m.Stock
	if req.Stock != nil {
		m.Stock = *req.Stock
	} else {
		m.Stock += *req.Delta
	}
	if m.Stock < 0 {
		return models.Material{}, invalid("stock", "must not be negative")
	}
	r.snap.Materials[i] = m

	err := r.persistMaterials(ctx)
	description := fmt.Sprintf("%s stock %.2f -> %.2f %s", m.Name, before, m.Stock, m.Unit)
	if req.Reason != "" {
		description += " (" + req.Reason + ")"
	}
	r.record(ctx, actor, "Inventory", "Stock Adjusted", description, projectOf(m))
	if err == nil && !wasCritical && metrics.IsCritical(m) {
		err = r.notify(ctx, models.Notification{
			Type:      models.NotificationMaterial,
			Title:     "Low stock",
			Message:   fmt.Sprintf("%s is below its minimum of %.2f %s", m.Name, m.MinimumRequired, m.Unit),
			ProjectID: projectOf(m),
		})
	}
	return r.materialOrInput(m), err
}

func (r *SiteRepository) materialOrInput(m models.Material) models.Material {
	if found := r.snap.FindMaterial(m.ID); found != nil {
		return *found
	}
	return m
}

func projectOf(m models.Material) string {
	if m.Shared() {
		return ""
	}
	return *m.ProjectID
}

func (r *SiteRepository) RecruitMember(ctx context.Context, actor string, m models.TeamMember) (models.TeamMember, error) {
	if m.Status == "" {
		m.Status = models.MemberActive
	}
	if m.AccessLevel == "" {
		m.AccessLevel = models.AccessViewer
	}
	if m.JoinedDate.IsZero() {
		now := r.now()
		m.JoinedDate = models.NewDate(now.Year(), now.Month(), now.Day())
	}
	if err := models.ValidateMember(m); err != nil {
		return models.TeamMember{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !m.InReserve() && r.snap.FindProject(*m.AssignedProjectID) == nil {
		return models.TeamMember{}, invalid("assigned_project_id", "refers to an unknown project")
	}
	if m.ID == "" {
		m.ID = r.newID()
	} else if indexOf(r.snap.Team, m.ID) >= 0 {
		return models.TeamMember{}, invalid("id", "is already in use")
	}
	r.snap.Team = append(r.snap.Team, m)
	err := r.persistTeam(ctx)
	r.record(ctx, actor, "Team", "Member Recruited", fmt.Sprintf("Recruited %s as %s", m.Name, m.Role), assignedTo(m))
	return r.memberOrInput(m), err
}

// UpdateMember changes role, presence, access level or project assignment. Moving a member
// onto a project raises an assignment notification.
func (r *SiteRepository) UpdateMember(ctx context.Context, actor, memberID string, req models.MemberUpdateRequest) (models.TeamMember, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := indexOf(r.snap.Team, memberID)
	if i < 0 {
		return models.TeamMember{}, fmt.Errorf("member %q: %w", memberID, models.ErrNotFound)
	}
	m := r.snap.Team[i]
	previousProject := assignedTo(m)
	if req.Role != nil {
		m.Role = *req.Role
	}
	if req.Status != nil {
		m.Status = *req.Status
	}
	if req.AccessLevel != nil {
		m.AccessLevel = *req.AccessLevel
	}
	switch {
	case req.Unassign:
		m.AssignedProjectID = nil
	case req.AssignedProjectID != nil && *req.AssignedProjectID != "":
		if r.snap.FindProject(*req.AssignedProjectID) == nil {
			return models.TeamMember{}, invalid("assigned_project_id", "refers to an unknown project")
		}
		pid := *req.AssignedProjectID
		m.AssignedProjectID = &pid
	}
	if err := models.ValidateMember(m); err != nil {
		return models.TeamMember{}, err
	}
	r.snap.Team[i] = m

	err := r.persistTeam(ctx)
	newProject := assignedTo(m)
	r.record(ctx, actor, "Team", "Member Updated", fmt.Sprintf("Updated %s (%s, %s)", m.Name, m.Role, m.Status), newProject)
	if err == nil && newProject != "" && newProject != previousProject {
		projectName := newProject
		if p := r.snap.FindProject(newProject); p != nil {
			projectName = p.Name
		}
		err = r.notify(ctx, models.Notification{
			Type:      models.NotificationAssignment,
			Title:     "Crew movement",
			Message:   fmt.Sprintf("%s moved to %s", m.Name, projectName),
			ProjectID: newProject,
		})
	}
	return r.memberOrInput(m), err
}

func (r *SiteRepository) memberOrInput(m models.TeamMember) models.TeamMember {
	if found := r.snap.FindMember(m.ID); found != nil {
		return *found
	}
	return m
}

func assignedTo(m models.TeamMember) string {
	if m.InReserve() {
		return ""
	}
	return *m.AssignedProjectID
}

// AddNotification stores and publishes a notification raised outside a command.
func (r *SiteRepository) AddNotification(ctx context.Context, n models.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.notify(ctx, n)
}

func (r *SiteRepository) MarkNotificationRead(ctx context.Context, notificationID string) (models.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := indexOf(r.snap.Notifications, notificationID)
	if i < 0 {
		return models.Notification{}, fmt.Errorf("notification %q: %w", notificationID, models.ErrNotFound)
	}
	r.snap.Notifications[i].Read = true
	n := r.snap.Notifications[i]
	err := r.persistNotifications(ctx)
	if j := indexOf(r.snap.Notifications, notificationID); j >= 0 {
		n = r.snap.Notifications[j]
	}
	return n, err
}
