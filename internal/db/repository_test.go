package db

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/pulseai/backend/internal/models"
)

// The checks below run against every Repository implementation.

var uniqueSeq int

func uniqueEmail(prefix string) string {
	uniqueSeq++
	return fmt.Sprintf("%s.%d.%d@corp.io", prefix, time.Now().UnixNano(), uniqueSeq)
}

func testMetric(employeeID int64, week time.Time, assigned int) models.WeeklyMetric {
	return models.WeeklyMetric{
		EmployeeID:         employeeID,
		WeekStart:          week,
		TasksAssigned:      assigned,
		TasksCompleted:     assigned - 1,
		MeetingHours:       3,
		CollaborationScore: 0.6,
		EngagementScore:    0.7,
		LearningHours:      1,
	}
}

func checkHealthScoreUpsert(t *testing.T, repo Repository) {
	ctx := context.Background()
	e, err := repo.CreateEmployee(ctx, models.Employee{Name: "Upsert Person", Email: uniqueEmail("upsert")})
	if err != nil {
		t.Fatalf("create employee: %v", err)
	}
	day := time.Date(2024, 2, 5, 0, 0, 0, 0, time.UTC)

	first := models.HealthScore{EmployeeID: e.ID, Date: day, BurnoutRisk: 40, EngagementScore: 60, PerformanceScore: 70, WorkloadScore: 50, UpdatedAt: day}
	if err := repo.UpsertHealthScore(ctx, first); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	second := first
	second.BurnoutRisk = 55
	second.UpdatedAt = day.Add(time.Hour)
	if err := repo.UpsertHealthScore(ctx, second); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	scores, err := repo.ListHealthScores(ctx, e.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(scores) != 1 {
		t.Fatalf("expected one row per (employee, date), got %d", len(scores))
	}
	if scores[0].BurnoutRisk != 55 || !scores[0].Date.Equal(day) {
		t.Fatalf("expected the second write to win, got %+v", scores[0])
	}
}

func checkPredictionBatch(t *testing.T, repo Repository) {
	ctx := context.Background()
	a, err := repo.CreateEmployee(ctx, models.Employee{Name: "Batch A", Email: uniqueEmail("batch.a")})
	if err != nil {
		t.Fatalf("create employee: %v", err)
	}
	b, err := repo.CreateEmployee(ctx, models.Employee{Name: "Batch B", Email: uniqueEmail("batch.b")})
	if err != nil {
		t.Fatalf("create employee: %v", err)
	}
	older := time.Now().UTC().Add(-time.Hour).Truncate(time.Microsecond)
	newer := older.Add(30 * time.Minute)

	pred := func(id int64, risk string, at time.Time) models.MlPrediction {
		return models.MlPrediction{
			EmployeeID: id, WindowStart: at.AddDate(0, 0, -28), WindowEnd: at,
			BurnoutRisk: risk, BurnoutConfidence: 0.8,
			PerformanceTrend: "Stable", PerformanceConfidence: 0.7,
			GrowthPotential: "Medium-Potential", GrowthConfidence: 0.6,
			TopFeatures:     models.TopFeatures{Burnout: []string{"avg_workload"}},
			Recommendations: []string{"check in"},
			CreatedAt:       at,
		}
	}

	saved, err := repo.InsertPredictions(ctx, []models.MlPrediction{pred(a.ID, "Low", older), pred(b.ID, "Low", older)})
	if err != nil {
		t.Fatalf("insert batch: %v", err)
	}
	if len(saved) != 2 || saved[0].ID == 0 || saved[1].ID == 0 || saved[0].ID == saved[1].ID {
		t.Fatalf("expected two rows with distinct ids, got %+v", saved)
	}
	if _, err := repo.InsertPredictions(ctx, []models.MlPrediction{pred(a.ID, "High", newer)}); err != nil {
		t.Fatalf("insert newer: %v", err)
	}

	latest, err := repo.LatestPrediction(ctx, a.ID)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest.BurnoutRisk != "High" || len(latest.TopFeatures.Burnout) != 1 || len(latest.Recommendations) != 1 {
		t.Fatalf("expected newest prediction with its lists, got %+v", latest)
	}

	all, err := repo.LatestPredictions(ctx)
	if err != nil {
		t.Fatalf("latest all: %v", err)
	}
	got := map[int64]string{}
	for _, p := range all {
		if _, dup := got[p.EmployeeID]; dup {
			t.Fatalf("employee %d listed twice", p.EmployeeID)
		}
		got[p.EmployeeID] = p.BurnoutRisk
	}
	if got[a.ID] != "High" || got[b.ID] != "Low" {
		t.Fatalf("expected newest per employee, got a=%s b=%s", got[a.ID], got[b.ID])
	}

	if _, err := repo.LatestPrediction(ctx, -1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func checkImportSkipsExistingWeeks(t *testing.T, repo Repository) {
	ctx := context.Background()
	e, err := repo.CreateEmployee(ctx, models.Employee{Name: "Import Person", Email: uniqueEmail("import")})
	if err != nil {
		t.Fatalf("create employee: %v", err)
	}
	week := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	if _, err := repo.InsertWeeklyMetric(ctx, testMetric(e.ID, week, 10)); err != nil {
		t.Fatalf("seed metric: %v", err)
	}
	if _, err := repo.InsertWeeklyMetric(ctx, testMetric(e.ID, week, 12)); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected duplicate on single insert, got %v", err)
	}

	fresh := models.Employee{Name: "Fresh Person", Email: uniqueEmail("fresh")}
	out, err := repo.ImportWeeklyMetrics(ctx, ImportBatch{
		NewEmployees: []models.Employee{fresh},
		Metrics: []models.WeeklyMetric{
			testMetric(e.ID, week, 99),
			testMetric(e.ID, week.AddDate(0, 0, 7), 11),
			testMetric(0, week, 8),
		},
		Owners: []int{-1, -1, 0},
	})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if len(out.Employees) != 1 || out.Employees[0].ID == 0 {
		t.Fatalf("expected the new employee back with an id, got %+v", out.Employees)
	}
	if len(out.Metrics) != 2 {
		t.Fatalf("expected the existing week skipped, got %d inserted", len(out.Metrics))
	}
	if out.Metrics[1].EmployeeID != out.Employees[0].ID {
		t.Fatalf("expected owned metric on the new employee, got %d", out.Metrics[1].EmployeeID)
	}

	ms, _ := repo.ListWeeklyMetrics(ctx, e.ID)
	for _, m := range ms {
		if m.WeekStart.Equal(week) && m.TasksAssigned != 10 {
			t.Fatalf("expected the stored week untouched, got %d assigned", m.TasksAssigned)
		}
	}
}

func checkImportIsAtomic(t *testing.T, repo Repository) {
	ctx := context.Background()
	taken, err := repo.CreateEmployee(ctx, models.Employee{Name: "Taken", Email: uniqueEmail("taken")})
	if err != nil {
		t.Fatalf("create employee: %v", err)
	}
	freshEmail := uniqueEmail("rolled.back")
	week := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)

	_, err = repo.ImportWeeklyMetrics(ctx, ImportBatch{
		NewEmployees: []models.Employee{
			{Name: "Rolled Back", Email: freshEmail},
			{Name: "Clash", Email: taken.Email},
		},
		Metrics: []models.WeeklyMetric{testMetric(taken.ID, week, 10), testMetric(0, week, 10)},
		Owners:  []int{-1, 0},
	})
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
	if _, err := repo.FindEmployeeByEmail(ctx, freshEmail); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected no employee left behind, got %v", err)
	}
	if ms, _ := repo.ListWeeklyMetrics(ctx, taken.ID); len(ms) != 0 {
		t.Fatalf("expected no metrics left behind, got %d", len(ms))
	}
}

func runRepositoryChecks(t *testing.T, repo Repository) {
	t.Run("health score upsert", func(t *testing.T) { checkHealthScoreUpsert(t, repo) })
	t.Run("prediction batch", func(t *testing.T) { checkPredictionBatch(t, repo) })
	t.Run("import skips existing weeks", func(t *testing.T) { checkImportSkipsExistingWeeks(t, repo) })
	t.Run("import is atomic", func(t *testing.T) { checkImportIsAtomic(t, repo) })
}
