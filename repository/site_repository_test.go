package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"screedflow/models"
	"screedflow/storage"
)

var fixedNow = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

// flakyBlobs wraps the memory store. It fails writes while broken is set. While staleReads
// is set, a key written becomes unreadable until staleReads is cleared.
type flakyBlobs struct {
	*storage.MemoryBlobStore
	mu         sync.Mutex
	broken     bool
	staleReads bool
	unreadable map[string]bool
}

func (f *flakyBlobs) Get(ctx context.Context, key string) ([]byte, bool, error) {
	f.mu.Lock()
	lagging := f.unreadable[key]
	f.mu.Unlock()
	if lagging {
		return nil, false, errors.New("replica not caught up")
	}
	return f.MemoryBlobStore.Get(ctx, key)
}

func (f *flakyBlobs) Put(ctx context.Context, key string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.broken {
		return errors.New("disk full")
	}
	if err := f.MemoryBlobStore.Put(ctx, key, data); err != nil {
		return err
	}
	if f.staleReads {
		f.unreadable[key] = true
	}
	return nil
}

func (f *flakyBlobs) setBroken(b bool) {
	f.mu.Lock()
	f.broken = b
	f.mu.Unlock()
}

func (f *flakyBlobs) setStaleReads(b bool) {
	f.mu.Lock()
	f.staleReads = b
	f.unreadable = map[string]bool{}
	f.mu.Unlock()
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []models.Notification
}

func (n *recordingNotifier) Publish(_ context.Context, msg models.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
	return nil
}

type fixture struct {
	repo     *SiteRepository
	blobs    *flakyBlobs
	store    *storage.SnapshotStore
	notifier *recordingNotifier
	activity *storage.MemoryActivityLog
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	seed, err := storage.DefaultSeed()
	require.NoError(t, err)
	blobs := &flakyBlobs{MemoryBlobStore: storage.NewMemoryBlobStore()}
	store, err := storage.NewSnapshotStore(blobs, "4.0", seed, zap.NewNop())
	require.NoError(t, err)

	seq := 0
	notifier := &recordingNotifier{}
	activity := storage.NewMemoryActivityLog()
	repo := NewSiteRepository(store,
		WithActivityLog(activity),
		WithNotifier(notifier),
		WithClock(func() time.Time { return fixedNow }),
		WithIDs(func() string { seq++; return fmt.Sprintf("id-%d", seq) }),
	)
	require.NoError(t, repo.Open(context.Background()))
	return fixture{repo: repo, blobs: blobs, store: store, notifier: notifier, activity: activity}
}

func ptr[T any](v T) *T { return &v }

func TestOpenLoadsSeed(t *testing.T) {
	f := newFixture(t)
	assert.Len(t, f.repo.Projects(), 2)
	assert.Len(t, f.repo.Tasks("p1"), 4)
	assert.Empty(t, f.repo.Tasks("p2"))
	assert.Len(t, f.repo.Materials("p2"), 3, "p2 only draws on central stock")
	assert.Nil(t, f.repo.Member("missing"))
}

func TestSnapshotIsACopy(t *testing.T) {
	f := newFixture(t)
	snap := f.repo.Snapshot()
	snap.Tasks[0].SubTasks[0].Title = "changed"
	snap.Projects[0].Name = "changed"

	task, err := f.repo.Task("t1")
	require.NoError(t, err)
	assert.Equal(t, "Lay insulation", task.SubTasks[0].Title)
	assert.NotEqual(t, "changed", f.repo.Projects()[0].Name)
}

func TestCreateTask(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	task, err := f.repo.CreateTask(ctx, "Marcus Chen", models.Task{
		ProjectID:  "p2",
		Title:      "Warehouse Slab A",
		Zone:       "Hall 1",
		AssignedTo: []string{"4"},
		StartDate:  models.NewDate(2024, 9, 9),
		EndDate:    models.NewDate(2024, 10, 4),
		PlannedM2:  2000,
		SubTasks:   []models.SubTask{{Title: "Membrane", Status: models.TaskPending}},
	})
	require.NoError(t, err)
	assert.Equal(t, "id-1", task.ID)
	assert.Equal(t, models.TaskPending, task.Status)
	assert.Equal(t, "id-2", task.SubTasks[0].ID)

	stored, err := storage.Load[models.Task](ctx, f.store, storage.CollectionTasks)
	require.NoError(t, err)
	assert.Len(t, stored, 5)

	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, models.NotificationAssignment, f.notifier.sent[0].Type)
	assert.Contains(t, f.notifier.sent[0].Message, "Dave Wilson")

	logs, err := f.activity.List(ctx, "p2", 0)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "Task Created", logs[0].EventName)
	assert.Equal(t, "Marcus Chen", logs[0].UserName)
}

func TestCreateTaskRejections(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.repo.CreateTask(ctx, "", models.Task{
		ProjectID: "nope",
		Title:     "Orphan",
		StartDate: models.NewDate(2024, 1, 1),
		EndDate:   models.NewDate(2024, 1, 2),
	})
	var verrs models.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "project_id", verrs[0].Field)

	_, err = f.repo.CreateTask(ctx, "", models.Task{
		ProjectID: "p1",
		Title:     "Backwards",
		StartDate: models.NewDate(2024, 2, 1),
		EndDate:   models.NewDate(2024, 1, 1),
	})
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "end_date", verrs[0].Field)

	assert.Len(t, f.repo.Tasks(""), 4)
}

func TestUpdateTaskStatusIsUnconstrained(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	task, err := f.repo.Task("t2")
	require.NoError(t, err)
	task.Status = models.TaskPending
	updated, err := f.repo.UpdateTask(ctx, "Alex Thompson", task)
	require.NoError(t, err)
	assert.Equal(t, models.TaskPending, updated.Status)

	_, err = f.repo.UpdateTask(ctx, "", models.Task{ID: "ghost", ProjectID: "p1", Title: "x", Status: models.TaskPending,
		StartDate: models.NewDate(2024, 1, 1), EndDate: models.NewDate(2024, 1, 1)})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestRecordWork(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	task, err := f.repo.RecordWork(ctx, "Dave Wilson", "t3", 700)
	require.NoError(t, err)
	assert.Equal(t, models.TaskInProgress, task.Status)
	assert.InDelta(t, 20.0, task.Progress, 1e-9)

	task, err = f.repo.RecordWork(ctx, "Dave Wilson", "t4", 100)
	require.NoError(t, err)
	assert.Equal(t, models.TaskDelayed, task.Status, "delayed tasks stay delayed until complete")
	assert.InDelta(t, 265.0/1100*100, task.Progress, 1e-9)

	task, err = f.repo.RecordWork(ctx, "Dave Wilson", "t1", 500)
	require.NoError(t, err)
	assert.Equal(t, models.TaskCompleted, task.Status)
	assert.Equal(t, 100.0, task.Progress)
	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, models.NotificationUpdate, f.notifier.sent[0].Type)

	_, err = f.repo.RecordWork(ctx, "", "t1", 0)
	var verrs models.ValidationErrors
	assert.ErrorAs(t, err, &verrs)

	_, err = f.repo.RecordWork(ctx, "", "missing", 10)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestUpdateSubTask(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	task, err := f.repo.UpdateSubTask(ctx, "", "t1", "t1-s3", models.SubTaskUpdateRequest{
		Status:   ptr(models.TaskCompleted),
		Progress: ptr(100.0),
	})
	require.NoError(t, err)
	assert.Equal(t, models.TaskCompleted, task.SubTask("t1-s3").Status)

	_, err = f.repo.UpdateSubTask(ctx, "", "t1", "t1-s1", models.SubTaskUpdateRequest{Progress: ptr(140.0)})
	var verrs models.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "progress", verrs[0].Field)

	unchanged, err := f.repo.Task("t1")
	require.NoError(t, err)
	assert.Equal(t, 100.0, unchanged.SubTask("t1-s1").Progress)

	_, err = f.repo.UpdateSubTask(ctx, "", "t1", "nope", models.SubTaskUpdateRequest{})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestSaveBaselines(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	p, err := f.repo.Project("p1")
	require.NoError(t, err)
	b := p.Baselines
	b.MaterialBudget = 300000

	updated, err := f.repo.SaveBaselines(ctx, "Alex Thompson", "p1", b)
	require.NoError(t, err)
	assert.Equal(t, 300000.0, updated.Baselines.MaterialBudget)

	b.EndDate = b.StartDate
	_, err = f.repo.SaveBaselines(ctx, "Alex Thompson", "p1", b)
	var verrs models.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "end_date", verrs[0].Field)

	b.TotalBudget = -1
	_, err = f.repo.SaveBaselines(ctx, "Alex Thompson", "p1", b)
	assert.Error(t, err)

	_, err = f.repo.SaveBaselines(ctx, "", "p9", p.Baselines)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestCreateProjectAndFloorPlan(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	p, err := f.repo.CreateProject(ctx, "Alex Thompson", models.Project{
		Name:     "Harbour Offices",
		Location: "Liverpool",
		Type:     models.ProjectCommercial,
		Baselines: models.Baselines{
			TotalBudget: 200000, MaterialBudget: 120000, PlannedArea: 3000, TargetDailySqm: 150,
			StartDate: models.NewDate(2025, 1, 6), EndDate: models.NewDate(2025, 4, 25),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, models.ProjectActive, p.Status)
	assert.Len(t, f.repo.Projects(), 3)

	p, err = f.repo.AddFloorPlan(ctx, "Alex Thompson", p.ID, models.FloorPlan{Name: "Ground Floor", ImageURL: "ground.png"})
	require.NoError(t, err)
	require.Len(t, p.FloorPlans, 1)
	assert.Equal(t, "2024-05-01", p.FloorPlans[0].UploadDate.String())
}

func TestAdjustStockRaisesLowStockOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	m, err := f.repo.AdjustStock(ctx, "Sarah Miller", "m2", models.StockAdjustmentRequest{Delta: ptr(-35.0)})
	require.NoError(t, err)
	assert.Equal(t, 10.0, m.Stock)
	assert.Empty(t, f.notifier.sent, "equal to minimum is not critical")

	m, err = f.repo.AdjustStock(ctx, "Sarah Miller", "m2", models.StockAdjustmentRequest{Delta: ptr(-1.0)})
	require.NoError(t, err)
	assert.Equal(t, 9.0, m.Stock)
	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, models.NotificationMaterial, f.notifier.sent[0].Type)

	_, err = f.repo.AdjustStock(ctx, "Sarah Miller", "m2", models.StockAdjustmentRequest{Stock: ptr(8.0)})
	require.NoError(t, err)
	assert.Len(t, f.notifier.sent, 1)

	_, err = f.repo.AdjustStock(ctx, "", "m2", models.StockAdjustmentRequest{Delta: ptr(-100.0)})
	var verrs models.ValidationErrors
	assert.ErrorAs(t, err, &verrs)

	_, err = f.repo.AdjustStock(ctx, "", "m2", models.StockAdjustmentRequest{})
	assert.ErrorAs(t, err, &verrs)
}

func TestCreateMaterial(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	m, err := f.repo.CreateMaterial(ctx, "Sarah Miller", models.Material{
		ProjectID: ptr("p2"), Location: models.LocationSite, Category: models.CategoryPlantMachinery,
		Name: "Forced Action Mixer", Unit: "Units", Stock: 2, MinimumRequired: 1,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, m.ID)
	assert.Len(t, f.repo.Materials("p2"), 4)

	_, err = f.repo.CreateMaterial(ctx, "", models.Material{Name: "Bad", Unit: "Kg", Location: models.LocationCentral,
		Category: models.CategoryConsumable, Stock: -1})
	var verrs models.ValidationErrors
	assert.ErrorAs(t, err, &verrs)
}

func TestRecruitAndAssignMember(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	m, err := f.repo.RecruitMember(ctx, "Alex Thompson", models.TeamMember{Name: "Priya Patel", Role: models.RoleMixer})
	require.NoError(t, err)
	assert.True(t, m.InReserve())
	assert.Equal(t, models.AccessViewer, m.AccessLevel)
	assert.Equal(t, "2024-05-01", m.JoinedDate.String())

	m, err = f.repo.UpdateMember(ctx, "Alex Thompson", m.ID, models.MemberUpdateRequest{AssignedProjectID: ptr("p2")})
	require.NoError(t, err)
	assert.Equal(t, "p2", *m.AssignedProjectID)
	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, "Priya Patel moved to Northgate Logistics Hub", f.notifier.sent[0].Message)

	m, err = f.repo.UpdateMember(ctx, "Alex Thompson", m.ID, models.MemberUpdateRequest{Unassign: true})
	require.NoError(t, err)
	assert.True(t, m.InReserve())

	_, err = f.repo.UpdateMember(ctx, "", m.ID, models.MemberUpdateRequest{AssignedProjectID: ptr("p7")})
	var verrs models.ValidationErrors
	assert.ErrorAs(t, err, &verrs)

	_, err = f.repo.UpdateMember(ctx, "", "99", models.MemberUpdateRequest{})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestNotifications(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	require.NoError(t, f.repo.AddNotification(ctx, models.Notification{
		Type: models.NotificationAlert, Title: "Overdue", Message: "x", ProjectID: "p1",
	}))
	list := f.repo.Notifications("p1", true)
	require.Len(t, list, 2)
	assert.Equal(t, "Overdue", list[0].Title, "newest first")

	n, err := f.repo.MarkNotificationRead(ctx, "n1")
	require.NoError(t, err)
	assert.True(t, n.Read)
	assert.Len(t, f.repo.Notifications("p1", true), 1)

	_, err = f.repo.MarkNotificationRead(ctx, "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestFailedWriteKeepsInMemoryEdit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.blobs.setBroken(true)

	task, err := f.repo.RecordWork(ctx, "Dave Wilson", "t3", 350)
	require.ErrorIs(t, err, ErrNotPersisted)
	assert.Equal(t, 350.0, task.ActualM2)

	inMemory, err := f.repo.Task("t3")
	require.NoError(t, err)
	assert.Equal(t, 350.0, inMemory.ActualM2)

	stored, err := storage.Load[models.Task](ctx, f.store, storage.CollectionTasks)
	require.NoError(t, err)
	for _, st := range stored {
		if st.ID == "t3" {
			assert.Equal(t, 0.0, st.ActualM2)
		}
	}

	f.blobs.setBroken(false)
	_, err = f.repo.RecordWork(ctx, "Dave Wilson", "t3", 50)
	require.NoError(t, err)
	stored, err = storage.Load[models.Task](ctx, f.store, storage.CollectionTasks)
	require.NoError(t, err)
	for _, st := range stored {
		if st.ID == "t3" {
			assert.Equal(t, 400.0, st.ActualM2)
		}
	}
}

func TestFailedReloadKeepsInMemoryEdits(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	material := func(name string) models.Material {
		return models.Material{Location: models.LocationCentral, Category: models.CategoryConsumable,
			Name: name, Unit: "Kg", Stock: 10, MinimumRequired: 1}
	}

	_, err := f.repo.CreateMaterial(ctx, "Sarah Miller", material("Fibres"))
	require.NoError(t, err)
	require.Len(t, f.repo.Snapshot().Materials, 6)

	f.blobs.setStaleReads(true)
	_, err = f.repo.CreateMaterial(ctx, "Sarah Miller", material("Primer"))
	require.ErrorIs(t, err, ErrNotPersisted)
	require.Len(t, f.repo.Snapshot().Materials, 7, "session must not fall back to the seed")

	f.blobs.setStaleReads(false)
	_, err = f.repo.CreateMaterial(ctx, "Sarah Miller", material("Mesh"))
	require.NoError(t, err)

	stored, err := storage.LoadStrict[models.Material](ctx, f.store, storage.CollectionMaterials)
	require.NoError(t, err)
	var names []string
	for _, m := range stored {
		names = append(names, m.Name)
	}
	require.Len(t, names, 8)
	assert.Subset(t, names, []string{"Fibres", "Primer", "Mesh"})
	assert.Len(t, f.repo.Snapshot().Materials, 8)
}

func TestReseed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.repo.RecordWork(ctx, "", "t3", 100)
	require.NoError(t, err)

	require.NoError(t, f.repo.Reseed(ctx))
	task, err := f.repo.Task("t3")
	require.NoError(t, err)
	assert.Equal(t, 0.0, task.ActualM2)
}
