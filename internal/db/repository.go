package db

import (
	"context"
	"errors"
	"time"

	"github.com/pulseai/backend/internal/models"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate record")
)

// Repository is the persistence surface shared by the Postgres Store and MemoryStore.
type Repository interface {
	Ping(ctx context.Context) error

	CreateEmployee(ctx context.Context, e models.Employee) (models.Employee, error)
	GetEmployee(ctx context.Context, id int64) (models.Employee, error)
	ListEmployees(ctx context.Context) ([]models.Employee, error)
	FindEmployeeByName(ctx context.Context, name string) (models.Employee, error)
	FindEmployeeByEmail(ctx context.Context, email string) (models.Employee, error)

	// InsertWeeklyMetric fails with ErrDuplicate when the (employee, week) pair exists.
	InsertWeeklyMetric(ctx context.Context, m models.WeeklyMetric) (models.WeeklyMetric, error)
	// ImportWeeklyMetrics creates the batch's new employees and inserts its metrics in one
	// transaction. Existing (employee, week) rows are skipped; nothing is written on error.
	ImportWeeklyMetrics(ctx context.Context, batch ImportBatch) (ImportOutcome, error)
	ListWeeklyMetrics(ctx context.Context, employeeID int64) ([]models.WeeklyMetric, error)
	ListAllWeeklyMetrics(ctx context.Context) ([]models.WeeklyMetric, error)
	RecentWeeklyMetrics(ctx context.Context, employeeID int64, limit int) ([]models.WeeklyMetric, error)

	UpsertHealthScore(ctx context.Context, hs models.HealthScore) error
	ListHealthScores(ctx context.Context, employeeID int64) ([]models.HealthScore, error)
	ListHealthScoresSince(ctx context.Context, since time.Time) ([]models.HealthScore, error)

	InsertPredictions(ctx context.Context, predictions []models.MlPrediction) ([]models.MlPrediction, error)
	LatestPrediction(ctx context.Context, employeeID int64) (models.MlPrediction, error)
	LatestPredictions(ctx context.Context) ([]models.MlPrediction, error)

	CreateAlert(ctx context.Context, a models.Alert) (models.Alert, error)
	GetAlert(ctx context.Context, id int64) (models.Alert, error)
	ListAlerts(ctx context.Context, status string, employeeID int64) ([]models.Alert, error)
	// ResolveAlert moves an active alert to resolved. It reports false when the alert
	// exists but is not active.
	ResolveAlert(ctx context.Context, id int64, at time.Time) (models.Alert, bool, error)

	InsertInsights(ctx context.Context, insights []models.Insight) ([]models.Insight, error)
	ListInsights(ctx context.Context, level string) ([]models.Insight, error)
}

// ImportBatch is one bulk metric import. Owners[i], when present and not negative, points
// Metrics[i] at NewEmployees[Owners[i]] instead of its own EmployeeID.
type ImportBatch struct {
	NewEmployees []models.Employee
	Metrics      []models.WeeklyMetric
	Owners       []int
}

func (b ImportBatch) owner(i int) int {
	if i < len(b.Owners) {
		return b.Owners[i]
	}
	return -1
}

// ImportOutcome lists what was actually written.
type ImportOutcome struct {
	Employees []models.Employee
	Metrics   []models.WeeklyMetric
}
