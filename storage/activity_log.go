package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"screedflow/models"
)

// ActivityLog records who changed what.
type ActivityLog interface {
	Save(ctx context.Context, entry models.ActivityLog) error
	List(ctx context.Context, projectID string, limit int) ([]models.ActivityLog, error)
}

// SQLActivityLog writes to the activity_logs table.
type SQLActivityLog struct {
	db *sql.DB
}

func NewSQLActivityLog(db *sql.DB) *SQLActivityLog {
	return &SQLActivityLog{db: db}
}

func (l *SQLActivityLog) Save(ctx context.Context, entry models.ActivityLog) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	query := `
    INSERT INTO activity_logs (created_at, user_name, event_context, event_name, description, project_id)
    VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := l.db.ExecContext(ctx, query,
		entry.CreatedAt, entry.UserName, entry.EventContext, entry.EventName, entry.Description, entry.ProjectID,
	)
	if err != nil {
		return fmt.Errorf("insert activity log: %w", err)
	}
	return nil
}

// List returns the newest entries first. An empty projectID lists every project.
func (l *SQLActivityLog) List(ctx context.Context, projectID string, limit int) ([]models.ActivityLog, error) {
	query := `
    SELECT id, created_at, user_name, event_context, event_name, description, project_id
    FROM activity_logs
    WHERE ($1::text = '' OR project_id = $1)
    ORDER BY created_at DESC
    LIMIT $2`
	rows, err := l.db.QueryContext(ctx, query, projectID, limit)
	if err != nil {
		return nil, fmt.Errorf("query activity logs: %w", err)
	}
	defer rows.Close()

	logs := []models.ActivityLog{}
	for rows.Next() {
		var entry models.ActivityLog
		if err := rows.Scan(&entry.ID, &entry.CreatedAt, &entry.UserName, &entry.EventContext,
			&entry.EventName, &entry.Description, &entry.ProjectID); err != nil {
			return nil, fmt.Errorf("scan activity log: %w", err)
		}
		logs = append(logs, entry)
	}
	return logs, rows.Err()
}

// MemoryActivityLog keeps entries in process memory.
type MemoryActivityLog struct {
	mu      sync.Mutex
	entries []models.ActivityLog
}

func NewMemoryActivityLog() *MemoryActivityLog {
	return &MemoryActivityLog{}
}

func (l *MemoryActivityLog) Save(_ context.Context, entry models.ActivityLog) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	entry.ID = len(l.entries) + 1
	l.entries = append(l.entries, entry)
	return nil
}

func (l *MemoryActivityLog) List(_ context.Context, projectID string, limit int) ([]models.ActivityLog, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := []models.ActivityLog{}
	for _, e := range l.entries {
		if projectID == "" || e.ProjectID == projectID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
