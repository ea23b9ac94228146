// Package repository is the session layer over the snapshot store. It holds the session's
// in-memory snapshot, applies mutation commands to it, and persists each change with
// fire-and-refetch: the whole collection is saved and then reloaded.
package repository

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"screedflow/models"
	"screedflow/storage"
)

// ErrNotPersisted marks a change that was applied in memory but could not be saved.
var ErrNotPersisted = errors.New("change not persisted")

// Notifier fans a notification out to subscribers after it has been stored.
type Notifier interface {
	Publish(ctx context.Context, n models.Notification) error
}

type SiteRepository struct {
	mu       sync.Mutex
	store    *storage.SnapshotStore
	activity storage.ActivityLog
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time
	newID    func() string

	snap models.Snapshot
}

type Option func(*SiteRepository)

func WithActivityLog(l storage.ActivityLog) Option {
	return func(r *SiteRepository) { r.activity = l }
}

func WithNotifier(n Notifier) Option {
	return func(r *SiteRepository) { r.notifier = n }
}

func WithLogger(l *zap.Logger) Option {
	return func(r *SiteRepository) { r.logger = l }
}

// WithClock overrides the time source used for notification and log timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *SiteRepository) { r.now = now }
}

// WithIDs overrides identifier generation for created entities.
func WithIDs(newID func() string) Option {
	return func(r *SiteRepository) { r.newID = newID }
}

func NewSiteRepository(store *storage.SnapshotStore, opts ...Option) *SiteRepository {
	r := &SiteRepository{
		store:    store,
		activity: storage.NewMemoryActivityLog(),
		logger:   zap.NewNop(),
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	return r
}

// Open loads the session snapshot from the store.
func (r *SiteRepository) Open(ctx context.Context) error {
	return r.Refresh(ctx)
}

// Refresh replaces the in-memory snapshot with the stored collections.
func (r *SiteRepository) Refresh(ctx context.Context) error {
	snap, err := r.store.LoadSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	r.mu.Lock()
	r.snap = snap
	r.mu.Unlock()
	return nil
}

// Reseed discards stored data, writes the default collections and reloads them.
func (r *SiteRepository) Reseed(ctx context.Context) error {
	r.logger.Warn("reseeding snapshot store", zap.String("version", r.store.Version()))
	if err := r.store.Reseed(ctx); err != nil {
		return err
	}
	return r.Refresh(ctx)
}

// Snapshot returns a copy of the session snapshot.
func (r *SiteRepository) Snapshot() models.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneSnapshot(r.snap)
}

func (r *SiteRepository) Projects() []models.Project {
	return r.Snapshot().Projects
}

func (r *SiteRepository) Project(id string) (models.Project, error) {
	snap := r.Snapshot()
	p := snap.FindProject(id)
	if p == nil {
		return models.Project{}, fmt.Errorf("project %q: %w", id, models.ErrNotFound)
	}
	return *p, nil
}

// Tasks lists tasks, narrowed to one project when projectID is set.
func (r *SiteRepository) Tasks(projectID string) []models.Task {
	out := []models.Task{}
	for _, t := range r.Snapshot().Tasks {
		if projectID == "" || t.ProjectID == projectID {
			out = append(out, t)
		}
	}
	return out
}

func (r *SiteRepository) Task(id string) (models.Task, error) {
	snap := r.Snapshot()
	t := snap.FindTask(id)
	if t == nil {
		return models.Task{}, fmt.Errorf("task %q: %w", id, models.ErrNotFound)
	}
	return *t, nil
}

// Materials lists materials, narrowed to those a project draws on when projectID is set.
func (r *SiteRepository) Materials(projectID string) []models.Material {
	out := []models.Material{}
	for _, m := range r.Snapshot().Materials {
		if projectID == "" || m.AppliesTo(projectID) {
			out = append(out, m)
		}
	}
	return out
}

func (r *SiteRepository) Team() []models.TeamMember {
	return r.Snapshot().Team
}

// Member resolves a team-member reference. A missing member yields nil, not an error.
func (r *SiteRepository) Member(id string) *models.TeamMember {
	snap := r.Snapshot()
	return snap.FindMember(id)
}

// Notifications lists notifications newest first.
func (r *SiteRepository) Notifications(projectID string, unreadOnly bool) []models.Notification {
	out := []models.Notification{}
	for _, n := range r.Snapshot().Notifications {
		if projectID != "" && n.ProjectID != projectID {
			continue
		}
		if unreadOnly && n.Read {
			continue
		}
		out = append(out, n)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out
}

func (r *SiteRepository) ActivityLogs(ctx context.Context, projectID string, limit int) ([]models.ActivityLog, error) {
	return r.activity.List(ctx, projectID, limit)
}

// persist saves one collection and reloads it. When either step fails the in-memory edit is
// kept and the returned error wraps ErrNotPersisted.
func persist[T any](ctx context.Context, r *SiteRepository, c storage.Collection, items []T, assign func([]T)) error {
	if err := storage.Save(ctx, r.store, c, items); err != nil {
		r.logger.Error("save failed, keeping in-memory state", zap.String("collection", string(c)), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrNotPersisted, err)
	}
	reloaded, err := storage.LoadStrict[T](ctx, r.store, c)
	if err != nil {
		r.logger.Error("reload failed, keeping in-memory state", zap.String("collection", string(c)), zap.Error(err))
		return fmt.Errorf("%w: reload %s: %v", ErrNotPersisted, c, err)
	}
	assign(reloaded)
	return nil
}

func (r *SiteRepository) persistProjects(ctx context.Context) error {
	return persist(ctx, r, storage.CollectionProjects, r.snap.Projects, func(v []models.Project) { r.snap.Projects = v })
}

func (r *SiteRepository) persistTasks(ctx context.Context) error {
	return persist(ctx, r, storage.CollectionTasks, r.snap.Tasks, func(v []models.Task) { r.snap.Tasks = v })
}

func (r *SiteRepository) persistMaterials(ctx context.Context) error {
	return persist(ctx, r, storage.CollectionMaterials, r.snap.Materials, func(v []models.Material) { r.snap.Materials = v })
}

func (r *SiteRepository) persistTeam(ctx context.Context) error {
	return persist(ctx, r, storage.CollectionTeam, r.snap.Team, func(v []models.TeamMember) { r.snap.Team = v })
}

func (r *SiteRepository) persistNotifications(ctx context.Context) error {
	return persist(ctx, r, storage.CollectionNotifications, r.snap.Notifications, func(v []models.Notification) { r.snap.Notifications = v })
}

// record writes an activity log entry. Failures are logged and otherwise ignored.
func (r *SiteRepository) record(ctx context.Context, actor, eventContext, eventName, description, projectID string) {
	entry := models.ActivityLog{
		CreatedAt:    r.now(),
		UserName:     actor,
		EventContext: eventContext,
		EventName:    eventName,
		Description:  description,
		ProjectID:    projectID,
	}
	if err := r.activity.Save(ctx, entry); err != nil {
		r.logger.Warn("failed to save activity log", zap.String("event", eventName), zap.Error(err))
	}
}

// notify stores a notification and publishes it. Caller holds r.mu.
func (r *SiteRepository) notify(ctx context.Context, n models.Notification) error {
	if n.ID == "" {
		n.ID = r.newID()
	}
	if n.Timestamp.IsZero() {
		n.Timestamp = r.now()
	}
	r.snap.Notifications = append(r.snap.Notifications, n)
	if err := r.persistNotifications(ctx); err != nil {
		return err
	}
	if r.notifier != nil {
		if err := r.notifier.Publish(ctx, n); err != nil {
			r.logger.Warn("failed to publish notification", zap.String("notification_id", n.ID), zap.Error(err))
		}
	}
	return nil
}

func cloneSnapshot(s models.Snapshot) models.Snapshot {
	out := models.Snapshot{
		Projects:      slices.Clone(s.Projects),
		Tasks:         slices.Clone(s.Tasks),
		Materials:     slices.Clone(s.Materials),
		Team:          slices.Clone(s.Team),
		Notifications: slices.Clone(s.Notifications),
	}
	for i := range out.Projects {
		out.Projects[i].FloorPlans = slices.Clone(out.Projects[i].FloorPlans)
	}
	for i := range out.Tasks {
		out.Tasks[i].AssignedTo = slices.Clone(out.Tasks[i].AssignedTo)
		out.Tasks[i].SubTasks = slices.Clone(out.Tasks[i].SubTasks)
	}
	return out
}

func indexOf[T storage.Keyed](items []T, id string) int {
	return slices.IndexFunc(items, func(item T) bool { return item.Key() == id })
}
