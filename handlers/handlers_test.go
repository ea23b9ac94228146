package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	_ "screedflow/docs"
	"screedflow/metrics"
	"screedflow/models"
	"screedflow/repository"
	"screedflow/services"
	"screedflow/storage"
)

var testNow = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

const testSecret = "test-secret"

type testServer struct {
	engine    *gin.Engine
	repo      *repository.SiteRepository
	uploadDir string

	mu        sync.Mutex
	fallbacks []string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	seed, err := storage.DefaultSeed()
	require.NoError(t, err)
	store, err := storage.NewSnapshotStore(storage.NewMemoryBlobStore(), "4.0", seed, zap.NewNop())
	require.NoError(t, err)

	seq := 0
	repo := repository.NewSiteRepository(store,
		repository.WithClock(func() time.Time { return testNow }),
		repository.WithIDs(func() string { seq++; return fmt.Sprintf("id-%d", seq) }),
	)
	require.NoError(t, repo.Open(t.Context()))

	ts := &testServer{repo: repo, uploadDir: t.TempDir()}
	m := NewMetrics()
	reports := services.NewReportRequester(nil, services.WithFallbackHook(func(kind string) {
		ts.mu.Lock()
		ts.fallbacks = append(ts.fallbacks, kind)
		ts.mu.Unlock()
		m.AIFallback(kind)
	}))

	ts.engine = gin.New()
	RegisterRoutes(ts.engine, Deps{
		Repo:          repo,
		Reports:       reports,
		Metrics:       m,
		Logger:        zap.NewNop(),
		Now:           func() time.Time { return testNow },
		SessionSecret: testSecret,
		UploadDir:     ts.uploadDir,
	})
	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	ts.engine.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestProjectsEndpoints(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/api/projects", nil)
	require.Equal(t, http.StatusOK, w.Code)
	projects := decode[[]models.Project](t, w)
	assert.Len(t, projects, 2)

	w = ts.do(t, http.MethodGet, "/api/projects/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(t, http.MethodGet, "/api/projects/p1/dashboard", nil)
	require.Equal(t, http.StatusOK, w.Code)
	dash := decode[DashboardResponse](t, w)
	assert.Equal(t, "p1", dash.Summary.ProjectID)
	assert.Len(t, dash.Tasks, 4)
	require.NotNil(t, dash.Summary.Schedule)
	assert.True(t, dash.Summary.Schedule.Healthy)

	w = ts.do(t, http.MethodGet, "/api/projects/p1/gantt", nil)
	require.Equal(t, http.StatusOK, w.Code)
	gantt := decode[GanttResponse](t, w)
	assert.Len(t, gantt.Spans, 4)
	for _, s := range gantt.Spans {
		assert.GreaterOrEqual(t, s.Width, 2.0)
	}

	w = ts.do(t, http.MethodGet, "/api/portfolio", nil)
	require.Equal(t, http.StatusOK, w.Code)
	portfolio := decode[metrics.PortfolioSummary](t, w)
	assert.Len(t, portfolio.Projects, 2)
	assert.Equal(t, 2, portfolio.ReservePool)
}

func TestSaveBaselinesRejectsInvertedSchedule(t *testing.T) {
	ts := newTestServer(t)

	body := map[string]any{
		"total_budget": 1000, "material_budget": 500,
		"start_date": "2024-06-01", "end_date": "2024-05-01",
	}
	w := ts.do(t, http.MethodPut, "/api/projects/p1/baselines", body)
	require.Equal(t, http.StatusBadRequest, w.Code)
	resp := decode[models.ValidationErrorResponse](t, w)
	assert.Equal(t, "validation failed", resp.Error)
	assert.NotEmpty(t, resp.Fields)
}

func TestCreateTaskValidation(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/tasks", map[string]any{
		"project_id": "p1", "title": "Plant room", "zone": "Basement",
		"start_date": "2024-05-10", "end_date": "2024-05-01",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	resp := decode[models.ValidationErrorResponse](t, w)
	require.Len(t, resp.Fields, 1)
	assert.Equal(t, "end_date", resp.Fields[0].Field)

	w = ts.do(t, http.MethodPost, "/api/tasks", map[string]any{
		"project_id": "p1", "title": "Plant room", "zone": "Basement",
		"start_date": "2024-05-01", "end_date": "2024-05-10", "planned_m2": 200,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	created := decode[models.Task](t, w)
	assert.Equal(t, "id-1", created.ID)
	assert.Equal(t, models.TaskPending, created.Status)

	w = ts.do(t, http.MethodGet, "/api/tasks?project_id=p1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]TaskView](t, w), 5)
}

func TestRecordWorkCompletesTask(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/tasks/t1/work", models.RecordWorkRequest{AreaM2: 420})
	require.Equal(t, http.StatusOK, w.Code)
	task := decode[models.Task](t, w)
	assert.Equal(t, models.TaskCompleted, task.Status)
	assert.InDelta(t, 1200, task.ActualM2, 1e-9)
	assert.InDelta(t, 100, task.Progress, 1e-9)

	w = ts.do(t, http.MethodPost, "/api/tasks/t1/work", models.RecordWorkRequest{AreaM2: -5})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodPost, "/api/tasks/missing/work", models.RecordWorkRequest{AreaM2: 5})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateSubTask(t *testing.T) {
	ts := newTestServer(t)

	done := models.TaskCompleted
	w := ts.do(t, http.MethodPut, "/api/tasks/t1/subtasks/t1-s3", models.SubTaskUpdateRequest{Status: &done})
	require.Equal(t, http.StatusOK, w.Code)
	task := decode[models.Task](t, w)
	assert.Equal(t, "3 of 3 done", metrics.RollupSubTasks(task).String())

	bad := 140.0
	w = ts.do(t, http.MethodPut, "/api/tasks/t1/subtasks/t1-s3", models.SubTaskUpdateRequest{Progress: &bad})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStockAdjustmentRaisesCriticalAlert(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/api/materials/critical?project_id=p1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[[]models.Material](t, w))

	delta := -36.0
	w = ts.do(t, http.MethodPut, "/api/materials/m2/stock", models.StockAdjustmentRequest{Delta: &delta})
	require.Equal(t, http.StatusOK, w.Code)
	assert.InDelta(t, 9, decode[models.Material](t, w).Stock, 1e-9)

	w = ts.do(t, http.MethodGet, "/api/materials/critical?project_id=p1", nil)
	critical := decode[[]models.Material](t, w)
	require.Len(t, critical, 1)
	assert.Equal(t, "m2", critical[0].ID)

	w = ts.do(t, http.MethodGet, "/api/notifications?unread=true", nil)
	notes := decode[[]models.Notification](t, w)
	require.NotEmpty(t, notes)
	assert.Equal(t, models.NotificationMaterial, notes[0].Type)

	w = ts.do(t, http.MethodPut, "/api/notifications/"+notes[0].ID+"/read", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[models.Notification](t, w).Read)

	tooMuch := -100.0
	w = ts.do(t, http.MethodPut, "/api/materials/m2/stock", models.StockAdjustmentRequest{Delta: &tooMuch})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTeamEndpoints(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/api/team?reserve=true", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.TeamMember](t, w), 2)

	project := "p1"
	w = ts.do(t, http.MethodPut, "/api/team/3", models.MemberUpdateRequest{AssignedProjectID: &project})
	require.Equal(t, http.StatusOK, w.Code)
	member := decode[models.TeamMember](t, w)
	require.NotNil(t, member.AssignedProjectID)
	assert.Equal(t, "p1", *member.AssignedProjectID)

	w = ts.do(t, http.MethodPost, "/api/team", map[string]any{"name": "Priya Shah", "role": "Labourer"})
	require.Equal(t, http.StatusCreated, w.Code)
	recruit := decode[models.TeamMember](t, w)
	assert.Equal(t, models.AccessViewer, recruit.AccessLevel)
	assert.True(t, recruit.InReserve())
}

func TestSessionLabelsActivity(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/api/session/actions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.AccessViewer, decode[models.ActionsResponse](t, w).AccessLevel)

	w = ts.do(t, http.MethodPost, "/api/session", models.SessionRequest{MemberID: "2"})
	require.Equal(t, http.StatusOK, w.Code)
	session := decode[models.SessionResponse](t, w)
	require.NotEmpty(t, session.Token)

	auth := []string{"Authorization", "Bearer " + session.Token}
	w = ts.do(t, http.MethodGet, "/api/session/actions", nil, auth...)
	actions := decode[models.ActionsResponse](t, w)
	assert.Equal(t, models.AccessEditor, actions.AccessLevel)
	assert.Equal(t, "2", actions.MemberID)

	w = ts.do(t, http.MethodPost, "/api/tasks/t4/work", models.RecordWorkRequest{AreaM2: 10}, auth...)
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodGet, "/api/activity_logs?project_id=p1&limit=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	logs := decode[[]models.ActivityLog](t, w)
	require.Len(t, logs, 1)
	assert.Equal(t, session.Member.Name, logs[0].UserName)

	w = ts.do(t, http.MethodPost, "/api/session", models.SessionRequest{MemberID: "99"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAIEndpointsFallBack(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/ai/report", models.ReportRequest{ProjectID: "p1"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, services.FallbackReport, decode[models.AIResponse](t, w).Text)

	w = ts.do(t, http.MethodPost, "/api/ai/chat", models.ChatRequest{Message: "How is the west wing?", ProjectID: "p1"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, services.FallbackChat, decode[models.AIResponse](t, w).Text)

	w = ts.do(t, http.MethodPost, "/api/ai/portfolio", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, services.FallbackPortfolio, decode[models.AIResponse](t, w).Text)

	w = ts.do(t, http.MethodPost, "/api/ai/report", models.ReportRequest{ProjectID: "nope"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	assert.Equal(t, []string{"report", "chat", "portfolio"}, ts.fallbacks)

	w = ts.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `screedflow_ai_fallbacks_total{kind="chat"} 1`)
	assert.Contains(t, w.Body.String(), "screedflow_http_requests_total")
}

func TestExports(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/api/projects/p1/export", nil)
	require.Equal(t, http.StatusOK, w.Code)
	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"Summary", "Tasks", "Materials"}, f.GetSheetList())
	id, err := f.GetCellValue("Summary", "B2")
	require.NoError(t, err)
	assert.Equal(t, "p1", id)
	status, err := f.GetCellValue("Tasks", "D2")
	require.NoError(t, err)
	assert.Equal(t, "In Progress", status)

	w = ts.do(t, http.MethodGet, "/api/projects/p1/report_pdf?ai=true", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")))

	w = ts.do(t, http.MethodGet, "/api/tasks/t1/qrcode", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG")))

	w = ts.do(t, http.MethodGet, "/api/tasks/missing/qrcode", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func multipartUpload(t *testing.T, filename, name string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte("\x89PNG\r\n\x1a\nplan"))
	require.NoError(t, err)
	if name != "" {
		require.NoError(t, mw.WriteField("name", name))
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestUploadFloorPlan(t *testing.T) {
	ts := newTestServer(t)

	body, contentType := multipartUpload(t, "level1.png", "Level 1 - East Wing")
	req := httptest.NewRequest(http.MethodPost, "/api/projects/p1/floor_plans", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	ts.engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	p := decode[models.Project](t, w)
	require.Len(t, p.FloorPlans, 1)
	assert.Equal(t, "Level 1 - East Wing", p.FloorPlans[0].Name)
	assert.True(t, strings.HasSuffix(p.FloorPlans[0].ImageURL, "-level1.png"))
	assert.Equal(t, "2024-05-01", p.FloorPlans[0].UploadDate.String())

	w = ts.do(t, http.MethodGet, "/api/get-file?file="+p.FloorPlans[0].ImageURL, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodGet, "/api/get-file?file=../secrets.env", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	body, contentType = multipartUpload(t, "payload.exe", "")
	req = httptest.NewRequest(http.MethodPost, "/api/projects/p1/floor_plans", body)
	req.Header.Set("Content-Type", contentType)
	w = httptest.NewRecorder()
	ts.engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSwaggerDocListsRoutes(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/swagger/doc.json", nil)
	require.Equal(t, http.StatusOK, w.Code)
	doc := decode[map[string]any](t, w)
	paths := doc["paths"].(map[string]any)
	assert.Contains(t, paths, "/api/tasks/{task_id}/subtasks/{subtask_id}")
	assert.Contains(t, paths, "/api/materials")
	assert.NotContains(t, paths, "/swagger/{any}")

	work := paths["/api/tasks/{task_id}/work"].(map[string]any)["post"].(map[string]any)
	assert.Equal(t, "Record work done", work["summary"])
}

func TestGinPathToSwaggerPath(t *testing.T) {
	assert.Equal(t, "/api/tasks/{task_id}/subtasks/{subtask_id}", ginPathToSwaggerPath("/api/tasks/:task_id/subtasks/:subtask_id"))
	assert.Equal(t, "/api/projects", ginPathToSwaggerPath("/api/projects"))
}

func TestStatusLabel(t *testing.T) {
	assert.Equal(t, "In Progress", statusLabel(models.TaskInProgress))
	assert.Equal(t, "Delayed", statusLabel(models.TaskDelayed))
}
