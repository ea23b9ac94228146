package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"screedflow/metrics"
	"screedflow/models"
	"screedflow/repository"
)

// AlertSweep scans the portfolio for critical stock, overdue zones and projects forecast
// over budget, and raises a notification for each finding not already raised and unread.
type AlertSweep struct {
	repo   *repository.SiteRepository
	logger *zap.Logger
	now    func() time.Time
}

func NewAlertSweep(repo *repository.SiteRepository, logger *zap.Logger) *AlertSweep {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AlertSweep{repo: repo, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// Run returns the number of notifications raised.
func (s *AlertSweep) Run(ctx context.Context) (int, error) {
	if err := s.repo.Refresh(ctx); err != nil {
		return 0, err
	}
	snap := s.repo.Snapshot()
	findings := Findings(snap, s.now())

	raised := 0
	for _, n := range findings {
		if alreadyRaised(snap.Notifications, n) {
			continue
		}
		if err := s.repo.AddNotification(ctx, n); err != nil {
			return raised, fmt.Errorf("raise %q: %w", n.Title, err)
		}
		raised++
	}
	s.logger.Info("alert sweep finished", zap.Int("findings", len(findings)), zap.Int("raised", raised))
	return raised, nil
}

// Findings lists the alerts warranted by the snapshot at time now.
func Findings(snap models.Snapshot, now time.Time) []models.Notification {
	var out []models.Notification

	for _, m := range metrics.CriticalMaterials(snap.Materials) {
		projectID := ""
		if !m.Shared() {
			projectID = *m.ProjectID
		}
		out = append(out, models.Notification{
			Type:      models.NotificationMaterial,
			Title:     "Low stock",
			Message:   fmt.Sprintf("%s is below its minimum of %.2f %s", m.Name, m.MinimumRequired, m.Unit),
			ProjectID: projectID,
		})
	}

	today := models.NewDate(now.Year(), now.Month(), now.Day())
	for _, t := range snap.Tasks {
		if t.Status == models.TaskCompleted || t.EndDate.IsZero() || !t.EndDate.Before(today.Time) {
			continue
		}
		out = append(out, models.Notification{
			Type:      models.NotificationAlert,
			Title:     "Zone overdue",
			Message:   fmt.Sprintf("%s was due %s", t.Title, t.EndDate),
			ProjectID: t.ProjectID,
		})
	}

	for _, p := range snap.Projects {
		if p.Status != models.ProjectActive {
			continue
		}
		scoped := snap.ForProject(p.ID)
		g := metrics.BudgetGauge(p.Baselines, scoped.Materials, scoped.Tasks)
		if g.Healthy {
			continue
		}
		out = append(out, models.Notification{
			Type:      models.NotificationFinancial,
			Title:     "Material budget overrun",
			Message:   fmt.Sprintf("%s material forecast exceeds its budget of %.2f", p.Name, p.Baselines.MaterialBudget),
			ProjectID: p.ID,
		})
	}
	return out
}

// alreadyRaised matches on the finding's identity. Messages carry no live figures, so
// progress on an overdue zone does not re-raise it.
func alreadyRaised(existing []models.Notification, n models.Notification) bool {
	for _, e := range existing {
		if !e.Read && e.Type == n.Type && e.ProjectID == n.ProjectID && e.Title == n.Title && e.Message == n.Message {
			return true
		}
	}
	return false
}
