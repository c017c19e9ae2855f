package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pulseai/backend/internal/models"
)

const pgUniqueViolation = "23505"

type Store struct {
	Pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Store{Pool: pool}, nil
}

func (s *Store) Close() {
	s.Pool.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.Pool.Ping(ctx)
}

func (s *Store) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.ConstraintName)
	}
	return err
}

// Employees

const employeeColumns = `id, name, email, role, team, created_at`

func scanEmployee(row pgx.Row) (models.Employee, error) {
	var e models.Employee
	err := row.Scan(&e.ID, &e.Name, &e.Email, &e.Role, &e.Team, &e.CreatedAt)
	return e, mapErr(err)
}

const insertEmployeeSQL = `
	INSERT INTO employees (name, email, role, team)
	VALUES ($1, $2, $3, $4)
	RETURNING ` + employeeColumns

func (s *Store) CreateEmployee(ctx context.Context, e models.Employee) (models.Employee, error) {
	return scanEmployee(s.Pool.QueryRow(ctx, insertEmployeeSQL, e.Name, e.Email, e.Role, e.Team))
}

func (s *Store) GetEmployee(ctx context.Context, id int64) (models.Employee, error) {
	return scanEmployee(s.Pool.QueryRow(ctx, `SELECT `+employeeColumns+` FROM employees WHERE id = $1`, id))
}

func (s *Store) FindEmployeeByName(ctx context.Context, name string) (models.Employee, error) {
	return scanEmployee(s.Pool.QueryRow(ctx, `SELECT `+employeeColumns+` FROM employees WHERE LOWER(name) = LOWER($1) ORDER BY id LIMIT 1`, strings.TrimSpace(name)))
}

func (s *Store) FindEmployeeByEmail(ctx context.Context, email string) (models.Employee, error) {
	return scanEmployee(s.Pool.QueryRow(ctx, `SELECT `+employeeColumns+` FROM employees WHERE LOWER(email) = LOWER($1)`, strings.TrimSpace(email)))
}

func (s *Store) ListEmployees(ctx context.Context) ([]models.Employee, error) {
	rows, err := s.Pool.Query(ctx, `SELECT `+employeeColumns+` FROM employees ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Weekly metrics

const metricColumns = `id, employee_id, week_start, tasks_assigned, tasks_completed, missed_deadlines,
	meeting_hours, collaboration_score, engagement_score, learning_hours, stretch_assignments, created_at`

func scanMetric(row pgx.Row) (models.WeeklyMetric, error) {
	var m models.WeeklyMetric
	err := row.Scan(&m.ID, &m.EmployeeID, &m.WeekStart, &m.TasksAssigned, &m.TasksCompleted, &m.MissedDeadlines,
		&m.MeetingHours, &m.CollaborationScore, &m.EngagementScore, &m.LearningHours, &m.StretchAssignments, &m.CreatedAt)
	return m, mapErr(err)
}

const insertMetricSQL = `
	INSERT INTO weekly_metrics (employee_id, week_start, tasks_assigned, tasks_completed, missed_deadlines,
		meeting_hours, collaboration_score, engagement_score, learning_hours, stretch_assignments)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`

func metricArgs(m models.WeeklyMetric) []any {
	return []any{m.EmployeeID, m.WeekStart, m.TasksAssigned, m.TasksCompleted, m.MissedDeadlines,
		m.MeetingHours, m.CollaborationScore, m.EngagementScore, m.LearningHours, m.StretchAssignments}
}

func (s *Store) InsertWeeklyMetric(ctx context.Context, m models.WeeklyMetric) (models.WeeklyMetric, error) {
	return scanMetric(s.Pool.QueryRow(ctx, insertMetricSQL+` RETURNING `+metricColumns, metricArgs(m)...))
}

func (s *Store) ImportWeeklyMetrics(ctx context.Context, batch ImportBatch) (ImportOutcome, error) {
	var out ImportOutcome
	err := s.WithTx(ctx, func(tx pgx.Tx) error {
		for _, e := range batch.NewEmployees {
			created, err := scanEmployee(tx.QueryRow(ctx, insertEmployeeSQL, e.Name, e.Email, e.Role, e.Team))
			if err != nil {
				return fmt.Errorf("create employee %q: %w", e.Email, err)
			}
			out.Employees = append(out.Employees, created)
		}
		for i, m := range batch.Metrics {
			if o := batch.owner(i); o >= 0 {
				if o >= len(out.Employees) {
					return fmt.Errorf("metric %d: owner %d out of range", i, o)
				}
				m.EmployeeID = out.Employees[o].ID
			}
			row := tx.QueryRow(ctx, insertMetricSQL+` ON CONFLICT (employee_id, week_start) DO NOTHING RETURNING `+metricColumns, metricArgs(m)...)
			saved, err := scanMetric(row)
			if errors.Is(err, ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			out.Metrics = append(out.Metrics, saved)
		}
		return nil
	})
	if err != nil {
		return ImportOutcome{}, err
	}
	return out, nil
}

func (s *Store) queryMetrics(ctx context.Context, query string, args ...any) ([]models.WeeklyMetric, error) {
	rows, err := s.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.WeeklyMetric
	for rows.Next() {
		m, err := scanMetric(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) ListWeeklyMetrics(ctx context.Context, employeeID int64) ([]models.WeeklyMetric, error) {
	if employeeID > 0 {
		return s.queryMetrics(ctx, `SELECT `+metricColumns+` FROM weekly_metrics WHERE employee_id = $1 ORDER BY week_start DESC`, employeeID)
	}
	return s.queryMetrics(ctx, `SELECT `+metricColumns+` FROM weekly_metrics ORDER BY week_start DESC, employee_id ASC`)
}

func (s *Store) ListAllWeeklyMetrics(ctx context.Context) ([]models.WeeklyMetric, error) {
	return s.queryMetrics(ctx, `SELECT `+metricColumns+` FROM weekly_metrics ORDER BY employee_id ASC, week_start ASC`)
}

func (s *Store) RecentWeeklyMetrics(ctx context.Context, employeeID int64, limit int) ([]models.WeeklyMetric, error) {
	return s.queryMetrics(ctx, `SELECT `+metricColumns+` FROM weekly_metrics WHERE employee_id = $1 ORDER BY week_start DESC LIMIT $2`, employeeID, limit)
}

// Health scores

func (s *Store) UpsertHealthScore(ctx context.Context, hs models.HealthScore) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO health_scores (employee_id, date, burnout_risk, engagement_score, performance_score, workload_score, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (employee_id, date) DO UPDATE SET
			burnout_risk = EXCLUDED.burnout_risk,
			engagement_score = EXCLUDED.engagement_score,
			performance_score = EXCLUDED.performance_score,
			workload_score = EXCLUDED.workload_score,
			updated_at = EXCLUDED.updated_at
	`, hs.EmployeeID, hs.Date, hs.BurnoutRisk, hs.EngagementScore, hs.PerformanceScore, hs.WorkloadScore, hs.UpdatedAt)
	return err
}

func (s *Store) queryHealthScores(ctx context.Context, query string, args ...any) ([]models.HealthScore, error) {
	rows, err := s.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.HealthScore
	for rows.Next() {
		var hs models.HealthScore
		if err := rows.Scan(&hs.EmployeeID, &hs.Date, &hs.BurnoutRisk, &hs.EngagementScore, &hs.PerformanceScore, &hs.WorkloadScore, &hs.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, hs)
	}
	return out, rows.Err()
}

func (s *Store) ListHealthScores(ctx context.Context, employeeID int64) ([]models.HealthScore, error) {
	return s.queryHealthScores(ctx, `
		SELECT employee_id, date, burnout_risk, engagement_score, performance_score, workload_score, updated_at
		FROM health_scores WHERE employee_id = $1 ORDER BY date DESC`, employeeID)
}

func (s *Store) ListHealthScoresSince(ctx context.Context, since time.Time) ([]models.HealthScore, error) {
	return s.queryHealthScores(ctx, `
		SELECT employee_id, date, burnout_risk, engagement_score, performance_score, workload_score, updated_at
		FROM health_scores WHERE date >= $1 ORDER BY date ASC`, since)
}

// Predictions

const predictionColumns = `id, employee_id, window_start, window_end, burnout_risk, burnout_confidence,
	performance_trend, performance_confidence, growth_potential, growth_confidence,
	top_features, recommendations, explanation, created_at`

func scanPrediction(row pgx.Row) (models.MlPrediction, error) {
	var (
		p           models.MlPrediction
		topFeatures []byte
	)
	err := row.Scan(&p.ID, &p.EmployeeID, &p.WindowStart, &p.WindowEnd, &p.BurnoutRisk, &p.BurnoutConfidence,
		&p.PerformanceTrend, &p.PerformanceConfidence, &p.GrowthPotential, &p.GrowthConfidence,
		&topFeatures, &p.Recommendations, &p.Explanation, &p.CreatedAt)
	if err != nil {
		return models.MlPrediction{}, mapErr(err)
	}
	if len(topFeatures) > 0 {
		if err := json.Unmarshal(topFeatures, &p.TopFeatures); err != nil {
			return models.MlPrediction{}, fmt.Errorf("decode top_features: %w", err)
		}
	}
	return p, nil
}

// InsertPredictions bulk-loads the batch with COPY and reads the rows back so callers
// get generated ids.
func (s *Store) InsertPredictions(ctx context.Context, predictions []models.MlPrediction) ([]models.MlPrediction, error) {
	if len(predictions) == 0 {
		return nil, nil
	}
	// timestamptz keeps microseconds; the read-back below matches on created_at.
	createdAt := predictions[0].CreatedAt.Truncate(time.Microsecond)
	rows := make([][]any, 0, len(predictions))
	for _, p := range predictions {
		tf, err := json.Marshal(p.TopFeatures)
		if err != nil {
			return nil, err
		}
		recs := p.Recommendations
		if recs == nil {
			recs = []string{}
		}
		rows = append(rows, []any{p.EmployeeID, p.WindowStart, p.WindowEnd, p.BurnoutRisk, p.BurnoutConfidence,
			p.PerformanceTrend, p.PerformanceConfidence, p.GrowthPotential, p.GrowthConfidence,
			string(tf), recs, p.Explanation, createdAt})
	}

	var saved []models.MlPrediction
	err := s.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.CopyFrom(ctx, pgx.Identifier{"ml_predictions"}, []string{
			"employee_id", "window_start", "window_end", "burnout_risk", "burnout_confidence",
			"performance_trend", "performance_confidence", "growth_potential", "growth_confidence",
			"top_features", "recommendations", "explanation", "created_at",
		}, pgx.CopyFromRows(rows)); err != nil {
			return err
		}

		ids := make([]int64, 0, len(predictions))
		for _, p := range predictions {
			ids = append(ids, p.EmployeeID)
		}
		r, err := tx.Query(ctx, `SELECT `+predictionColumns+` FROM ml_predictions
			WHERE employee_id = ANY($1) AND created_at = $2 ORDER BY id ASC`, ids, createdAt)
		if err != nil {
			return err
		}
		defer r.Close()
		for r.Next() {
			p, err := scanPrediction(r)
			if err != nil {
				return err
			}
			saved = append(saved, p)
		}
		return r.Err()
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

func (s *Store) LatestPrediction(ctx context.Context, employeeID int64) (models.MlPrediction, error) {
	return scanPrediction(s.Pool.QueryRow(ctx, `SELECT `+predictionColumns+` FROM ml_predictions
		WHERE employee_id = $1 ORDER BY created_at DESC, id DESC LIMIT 1`, employeeID))
}

func (s *Store) LatestPredictions(ctx context.Context) ([]models.MlPrediction, error) {
	rows, err := s.Pool.Query(ctx, `SELECT DISTINCT ON (employee_id) `+predictionColumns+` FROM ml_predictions
		ORDER BY employee_id ASC, created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.MlPrediction
	for rows.Next() {
		p, err := scanPrediction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Alerts

const alertColumns = `id, employee_id, type, reason, confidence, status, action_taken, created_at, resolved_at`

func scanAlert(row pgx.Row) (models.Alert, error) {
	var (
		a      models.Alert
		status string
	)
	err := row.Scan(&a.ID, &a.EmployeeID, &a.Type, &a.Reason, &a.Confidence, &status, &a.ActionTaken, &a.CreatedAt, &a.ResolvedAt)
	a.Status = models.AlertStatus(status)
	return a, mapErr(err)
}

func (s *Store) CreateAlert(ctx context.Context, a models.Alert) (models.Alert, error) {
	if a.Status == "" {
		a.Status = models.AlertActive
	}
	return scanAlert(s.Pool.QueryRow(ctx, `
		INSERT INTO alerts (employee_id, type, reason, confidence, status, action_taken)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING `+alertColumns, a.EmployeeID, a.Type, a.Reason, a.Confidence, string(a.Status), a.ActionTaken))
}

func (s *Store) GetAlert(ctx context.Context, id int64) (models.Alert, error) {
	return scanAlert(s.Pool.QueryRow(ctx, `SELECT `+alertColumns+` FROM alerts WHERE id = $1`, id))
}

func (s *Store) ListAlerts(ctx context.Context, status string, employeeID int64) ([]models.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts`
	var args []any
	var wheres []string
	if status != "" {
		args = append(args, status)
		wheres = append(wheres, fmt.Sprintf("status = $%d", len(args)))
	}
	if employeeID > 0 {
		args = append(args, employeeID)
		wheres = append(wheres, fmt.Sprintf("employee_id = $%d", len(args)))
	}
	if len(wheres) > 0 {
		query += " WHERE " + strings.Join(wheres, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := s.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) ResolveAlert(ctx context.Context, id int64, at time.Time) (models.Alert, bool, error) {
	a, err := scanAlert(s.Pool.QueryRow(ctx, `
		UPDATE alerts SET status = $1, action_taken = TRUE, resolved_at = $2
		WHERE id = $3 AND status = $4
		RETURNING `+alertColumns, string(models.AlertResolved), at, id, string(models.AlertActive)))
	if err == nil {
		return a, true, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return models.Alert{}, false, err
	}
	existing, err := s.GetAlert(ctx, id)
	if err != nil {
		return models.Alert{}, false, err
	}
	return existing, false, nil
}

// Insights

func (s *Store) InsertInsights(ctx context.Context, insights []models.Insight) ([]models.Insight, error) {
	var out []models.Insight
	err := s.WithTx(ctx, func(tx pgx.Tx) error {
		for _, in := range insights {
			var saved models.Insight
			err := tx.QueryRow(ctx, `
				INSERT INTO insights (title, description, type, level, employee_id)
				VALUES ($1,$2,$3,$4,$5)
				RETURNING id, title, description, type, level, employee_id, created_at
			`, in.Title, in.Description, in.Type, in.Level, in.EmployeeID).Scan(
				&saved.ID, &saved.Title, &saved.Description, &saved.Type, &saved.Level, &saved.EmployeeID, &saved.CreatedAt)
			if err != nil {
				return err
			}
			out = append(out, saved)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) ListInsights(ctx context.Context, level string) ([]models.Insight, error) {
	query := `SELECT id, title, description, type, level, employee_id, created_at FROM insights`
	var args []any
	if level != "" {
		query += ` WHERE level = $1`
		args = append(args, level)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := s.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Insight
	for rows.Next() {
		var in models.Insight
		if err := rows.Scan(&in.ID, &in.Title, &in.Description, &in.Type, &in.Level, &in.EmployeeID, &in.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

var _ Repository = (*Store)(nil)
