package db

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pulseai/backend/internal/models"
)

type healthKey struct {
	employeeID int64
	date       int64
}

// MemoryStore is a process-local Repository used when DATABASE_URL is empty and in tests.
type MemoryStore struct {
	mu sync.Mutex

	seq         int64
	employees   []models.Employee
	metrics     []models.WeeklyMetric
	health      map[healthKey]models.HealthScore
	predictions []models.MlPrediction
	alerts      []models.Alert
	insights    []models.Insight
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{health: map[healthKey]models.HealthScore{}}
}

func (m *MemoryStore) nextID() int64 {
	m.seq++
	return m.seq
}

func (m *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (m *MemoryStore) CreateEmployee(ctx context.Context, e models.Employee) (models.Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.emailTaken(e.Email) {
		return models.Employee{}, ErrDuplicate
	}
	e.ID = m.nextID()
	e.CreatedAt = time.Now().UTC()
	m.employees = append(m.employees, e)
	return e, nil
}

func (m *MemoryStore) GetEmployee(ctx context.Context, id int64) (models.Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.employees {
		if e.ID == id {
			return e, nil
		}
	}
	return models.Employee{}, ErrNotFound
}

func (m *MemoryStore) ListEmployees(ctx context.Context) ([]models.Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Employee(nil), m.employees...), nil
}

func (m *MemoryStore) FindEmployeeByName(ctx context.Context, name string) (models.Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	name = strings.TrimSpace(name)
	for _, e := range m.employees {
		if strings.EqualFold(e.Name, name) {
			return e, nil
		}
	}
	return models.Employee{}, ErrNotFound
}

func (m *MemoryStore) FindEmployeeByEmail(ctx context.Context, email string) (models.Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	email = strings.TrimSpace(email)
	for _, e := range m.employees {
		if strings.EqualFold(e.Email, email) {
			return e, nil
		}
	}
	return models.Employee{}, ErrNotFound
}

func (m *MemoryStore) metricExists(employeeID int64, week time.Time) bool {
	for _, existing := range m.metrics {
		if existing.EmployeeID == employeeID && existing.WeekStart.Equal(week) {
			return true
		}
	}
	return false
}

func (m *MemoryStore) insertMetricLocked(metric models.WeeklyMetric) models.WeeklyMetric {
	metric.ID = m.nextID()
	metric.CreatedAt = time.Now().UTC()
	m.metrics = append(m.metrics, metric)
	return metric
}

func (m *MemoryStore) InsertWeeklyMetric(ctx context.Context, metric models.WeeklyMetric) (models.WeeklyMetric, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.metricExists(metric.EmployeeID, metric.WeekStart) {
		return models.WeeklyMetric{}, ErrDuplicate
	}
	return m.insertMetricLocked(metric), nil
}

func (m *MemoryStore) emailTaken(email string) bool {
	for _, existing := range m.employees {
		if strings.EqualFold(existing.Email, email) {
			return true
		}
	}
	return false
}

func (m *MemoryStore) ImportWeeklyMetrics(ctx context.Context, batch ImportBatch) (ImportOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// check everything up front so a failure leaves the store untouched
	seen := map[string]bool{}
	for _, e := range batch.NewEmployees {
		key := strings.ToLower(strings.TrimSpace(e.Email))
		if seen[key] || m.emailTaken(e.Email) {
			return ImportOutcome{}, fmt.Errorf("create employee %q: %w", e.Email, ErrDuplicate)
		}
		seen[key] = true
	}
	for i := range batch.Metrics {
		if o := batch.owner(i); o >= len(batch.NewEmployees) {
			return ImportOutcome{}, fmt.Errorf("metric %d: owner %d out of range", i, o)
		}
	}

	var out ImportOutcome
	for _, e := range batch.NewEmployees {
		e.ID = m.nextID()
		e.CreatedAt = time.Now().UTC()
		m.employees = append(m.employees, e)
		out.Employees = append(out.Employees, e)
	}
	for i, metric := range batch.Metrics {
		if o := batch.owner(i); o >= 0 {
			metric.EmployeeID = out.Employees[o].ID
		}
		if m.metricExists(metric.EmployeeID, metric.WeekStart) {
			continue
		}
		out.Metrics = append(out.Metrics, m.insertMetricLocked(metric))
	}
	return out, nil
}

func (m *MemoryStore) ListWeeklyMetrics(ctx context.Context, employeeID int64) ([]models.WeeklyMetric, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.WeeklyMetric
	for _, metric := range m.metrics {
		if employeeID > 0 && metric.EmployeeID != employeeID {
			continue
		}
		out = append(out, metric)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].WeekStart.Equal(out[j].WeekStart) {
			return out[i].EmployeeID < out[j].EmployeeID
		}
		return out[i].WeekStart.After(out[j].WeekStart)
	})
	return out, nil
}

func (m *MemoryStore) ListAllWeeklyMetrics(ctx context.Context) ([]models.WeeklyMetric, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]models.WeeklyMetric(nil), m.metrics...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].EmployeeID == out[j].EmployeeID {
			return out[i].WeekStart.Before(out[j].WeekStart)
		}
		return out[i].EmployeeID < out[j].EmployeeID
	})
	return out, nil
}

func (m *MemoryStore) RecentWeeklyMetrics(ctx context.Context, employeeID int64, limit int) ([]models.WeeklyMetric, error) {
	all, err := m.ListWeeklyMetrics(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (m *MemoryStore) UpsertHealthScore(ctx context.Context, hs models.HealthScore) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.health[healthKey{employeeID: hs.EmployeeID, date: hs.Date.UnixNano()}] = hs
	return nil
}

func (m *MemoryStore) sortedHealth(filter func(models.HealthScore) bool) []models.HealthScore {
	var out []models.HealthScore
	for _, hs := range m.health {
		if filter(hs) {
			out = append(out, hs)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date.Equal(out[j].Date) {
			return out[i].EmployeeID < out[j].EmployeeID
		}
		return out[i].Date.Before(out[j].Date)
	})
	return out
}

func (m *MemoryStore) ListHealthScores(ctx context.Context, employeeID int64) ([]models.HealthScore, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.sortedHealth(func(hs models.HealthScore) bool { return hs.EmployeeID == employeeID })
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (m *MemoryStore) ListHealthScoresSince(ctx context.Context, since time.Time) ([]models.HealthScore, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sortedHealth(func(hs models.HealthScore) bool { return !hs.Date.Before(since) }), nil
}

func (m *MemoryStore) InsertPredictions(ctx context.Context, predictions []models.MlPrediction) ([]models.MlPrediction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.MlPrediction, 0, len(predictions))
	for _, p := range predictions {
		p.ID = m.nextID()
		m.predictions = append(m.predictions, p)
		out = append(out, p)
	}
	return out, nil
}

func newerPrediction(a, b models.MlPrediction) bool {
	if a.CreatedAt.Equal(b.CreatedAt) {
		return a.ID > b.ID
	}
	return a.CreatedAt.After(b.CreatedAt)
}

func (m *MemoryStore) LatestPrediction(ctx context.Context, employeeID int64) (models.MlPrediction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var (
		latest models.MlPrediction
		found  bool
	)
	for _, p := range m.predictions {
		if p.EmployeeID != employeeID {
			continue
		}
		if !found || newerPrediction(p, latest) {
			latest = p
			found = true
		}
	}
	if !found {
		return models.MlPrediction{}, ErrNotFound
	}
	return latest, nil
}

func (m *MemoryStore) LatestPredictions(ctx context.Context) ([]models.MlPrediction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	latest := map[int64]models.MlPrediction{}
	for _, p := range m.predictions {
		if cur, ok := latest[p.EmployeeID]; !ok || newerPrediction(p, cur) {
			latest[p.EmployeeID] = p
		}
	}
	out := make([]models.MlPrediction, 0, len(latest))
	for _, p := range latest {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EmployeeID < out[j].EmployeeID })
	return out, nil
}

func (m *MemoryStore) CreateAlert(ctx context.Context, a models.Alert) (models.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.Status == "" {
		a.Status = models.AlertActive
	}
	a.ID = m.nextID()
	a.CreatedAt = time.Now().UTC()
	m.alerts = append(m.alerts, a)
	return a, nil
}

func (m *MemoryStore) GetAlert(ctx context.Context, id int64) (models.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.alerts {
		if a.ID == id {
			return a, nil
		}
	}
	return models.Alert{}, ErrNotFound
}

func (m *MemoryStore) ListAlerts(ctx context.Context, status string, employeeID int64) ([]models.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Alert
	for i := len(m.alerts) - 1; i >= 0; i-- {
		a := m.alerts[i]
		if status != "" && string(a.Status) != status {
			continue
		}
		if employeeID > 0 && a.EmployeeID != employeeID {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (m *MemoryStore) ResolveAlert(ctx context.Context, id int64, at time.Time) (models.Alert, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.alerts {
		if m.alerts[i].ID != id {
			continue
		}
		if m.alerts[i].Status != models.AlertActive {
			return m.alerts[i], false, nil
		}
		m.alerts[i].Status = models.AlertResolved
		m.alerts[i].ActionTaken = true
		resolvedAt := at
		m.alerts[i].ResolvedAt = &resolvedAt
		return m.alerts[i], true, nil
	}
	return models.Alert{}, false, ErrNotFound
}

func (m *MemoryStore) InsertInsights(ctx context.Context, insights []models.Insight) ([]models.Insight, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Insight, 0, len(insights))
	for _, in := range insights {
		in.ID = m.nextID()
		in.CreatedAt = time.Now().UTC()
		m.insights = append(m.insights, in)
		out = append(out, in)
	}
	return out, nil
}

func (m *MemoryStore) ListInsights(ctx context.Context, level string) ([]models.Insight, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Insight
	for i := len(m.insights) - 1; i >= 0; i-- {
		if level != "" && m.insights[i].Level != level {
			continue
		}
		out = append(out, m.insights[i])
	}
	return out, nil
}

var _ Repository = (*MemoryStore)(nil)
