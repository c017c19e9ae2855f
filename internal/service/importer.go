package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/pulseai/backend/internal/db"
	"github.com/pulseai/backend/internal/metrics"
	"github.com/pulseai/backend/internal/models"
)

const generatedEmailDomain = "pulse.local"

var requiredColumns = []string{
	"employee_id", "week", "tasks_assigned", "tasks_completed", "missed_deadlines",
	"meeting_hours", "collaboration_score", "engagement_score", "learning_hours",
}

type ImportRequest struct {
	CSV                    string `json:"csv" validate:"required"`
	WeekStart              string `json:"weekStart"`
	CreateMissingEmployees *bool  `json:"createMissingEmployees"`
}

type ImportResult struct {
	InsertedMetrics      int `json:"insertedMetrics"`
	EmployeesCreated     int `json:"employeesCreated"`
	HealthScoresUpserted int `json:"healthScoresUpserted"`
}

// csvRow is one parsed line before the employee is resolved.
type csvRow struct {
	key    string
	name   string
	email  string
	metric models.WeeklyMetric
}

// ImportCSV parses the whole file and resolves every employee before any write.
func (s *MetricService) ImportCSV(ctx context.Context, req ImportRequest) (ImportResult, error) {
	if strings.TrimSpace(req.CSV) == "" {
		return ImportResult{}, invalid("csv", "is required")
	}
	var anchor *time.Time
	if strings.TrimSpace(req.WeekStart) != "" {
		t, err := ParseWeekStart(req.WeekStart)
		if err != nil {
			return ImportResult{}, invalid("weekStart", "%v", err)
		}
		anchor = &t
	}
	createMissing := req.CreateMissingEmployees == nil || *req.CreateMissingEmployees

	rows, err := parseMetricsCSV(strings.NewReader(req.CSV), anchor)
	if err != nil {
		return ImportResult{}, err
	}

	resolved, pending, err := s.resolveEmployees(ctx, rows)
	if err != nil {
		return ImportResult{}, err
	}
	if len(pending) > 0 && !createMissing {
		return ImportResult{}, invalid("employee_id", "unresolved employee %q", pending[0].key)
	}

	owners := make(map[string]int, len(pending))
	batch := db.ImportBatch{NewEmployees: make([]models.Employee, 0, len(pending))}
	for _, p := range pending {
		if i, ok := owners[p.alias]; ok && p.alias != "" {
			owners[p.key] = i
			continue
		}
		owners[p.key] = len(batch.NewEmployees)
		batch.NewEmployees = append(batch.NewEmployees, models.Employee{Name: p.name, Email: p.email})
	}
	for _, r := range rows {
		m := r.metric
		owner := -1
		if i, ok := owners[r.key]; ok {
			owner = i
		} else {
			m.EmployeeID = resolved[r.key]
		}
		batch.Metrics = append(batch.Metrics, m)
		batch.Owners = append(batch.Owners, owner)
	}

	// employees and metrics commit together; health scores are upserted afterwards and
	// can be rebuilt with RecomputeAll if that step fails
	outcome, err := s.Store.ImportWeeklyMetrics(ctx, batch)
	if err != nil {
		return ImportResult{}, fmt.Errorf("import weekly metrics: %w", err)
	}
	inserted := outcome.Metrics
	result := ImportResult{EmployeesCreated: len(outcome.Employees), InsertedMetrics: len(inserted)}

	for _, m := range inserted {
		if err := s.ProcessMetric(ctx, m); err != nil {
			return result, err
		}
		result.HealthScoresUpserted++
	}
	metrics.RecordHealthScoreUpserts("csv", result.HealthScoresUpserted)

	s.Logger.Info().
		Int("rows", len(rows)).
		Int("inserted", result.InsertedMetrics).
		Int("employees_created", result.EmployeesCreated).
		Msg("csv import finished")
	return result, nil
}

type pendingEmployee struct {
	key   string
	name  string
	email string
	// alias is the key of an earlier pending employee with the same email.
	alias string
}

// resolveEmployees matches each distinct key by numeric id, then name, then the given or
// constructed email. Keys that match nothing come back as pending employees, named and
// addressed the same way on every import so a later import finds them again.
func (s *MetricService) resolveEmployees(ctx context.Context, rows []csvRow) (map[string]int64, []pendingEmployee, error) {
	resolved := map[string]int64{}
	var pending []pendingEmployee
	seen := map[string]bool{}
	pendingByEmail := map[string]string{}

	for _, r := range rows {
		if seen[r.key] {
			continue
		}
		seen[r.key] = true

		name, email := employeeIdentity(r)
		lookupName := r.name
		if lookupName == "" && !isNumeric(r.key) && !strings.Contains(r.key, "@") {
			lookupName = r.key
		}

		if id, err := strconv.ParseInt(r.key, 10, 64); err == nil {
			e, err := s.Store.GetEmployee(ctx, id)
			if err == nil {
				resolved[r.key] = e.ID
				continue
			}
			if !errors.Is(err, db.ErrNotFound) {
				return nil, nil, err
			}
		}
		if lookupName != "" {
			e, err := s.Store.FindEmployeeByName(ctx, lookupName)
			if err == nil {
				resolved[r.key] = e.ID
				continue
			}
			if !errors.Is(err, db.ErrNotFound) {
				return nil, nil, err
			}
		}
		e, err := s.Store.FindEmployeeByEmail(ctx, email)
		if err == nil {
			resolved[r.key] = e.ID
			continue
		}
		if !errors.Is(err, db.ErrNotFound) {
			return nil, nil, err
		}

		p := pendingEmployee{key: r.key, name: name, email: email}
		emailKey := strings.ToLower(email)
		if first, ok := pendingByEmail[emailKey]; ok {
			p.alias = first
		} else {
			pendingByEmail[emailKey] = r.key
		}
		pending = append(pending, p)
	}
	return resolved, pending, nil
}

// employeeIdentity is the name and email an unmatched key is created with.
func employeeIdentity(r csvRow) (string, string) {
	name := r.name
	email := strings.ToLower(strings.TrimSpace(r.email))
	isEmail := strings.Contains(r.key, "@")

	if name == "" {
		switch {
		case isEmail:
			name = strings.SplitN(r.key, "@", 2)[0]
		case isNumeric(r.key):
			if email != "" {
				name = strings.SplitN(email, "@", 2)[0]
			} else {
				name = "Employee " + r.key
			}
		default:
			name = r.key
		}
	}
	if email == "" {
		if isEmail {
			email = strings.ToLower(r.key)
		} else {
			email = slug(name) + "@" + generatedEmailDomain
		}
	}
	return name, email
}

func parseMetricsCSV(r io.Reader, anchor *time.Time) ([]csvRow, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err != nil {
		return nil, invalid("csv", "failed to read header")
	}
	index := headerIndex(headers)
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return nil, invalid(col, "missing required column")
		}
	}
	_, hasStretch := index["stretch_assignments"]

	var out []csvRow
	line := 1
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, invalid(fmt.Sprintf("line %d", line), "%v", err)
		}
		if isBlank(rec) {
			continue
		}

		p := fieldParser{rec: rec, index: index, line: line}
		row := csvRow{
			key:   p.text("employee_id"),
			name:  p.text("employee_name"),
			email: strings.ToLower(p.text("email")),
		}
		if row.key == "" {
			return nil, invalid(fmt.Sprintf("line %d: employee_id", line), "is required")
		}
		week, err := parseWeek(p.text("week"), anchor)
		if err != nil {
			return nil, invalid(fmt.Sprintf("line %d: week", line), "%v", err)
		}

		m := models.WeeklyMetric{
			WeekStart:          week,
			TasksAssigned:      p.integer("tasks_assigned"),
			TasksCompleted:     p.integer("tasks_completed"),
			MissedDeadlines:    p.integer("missed_deadlines"),
			MeetingHours:       p.float("meeting_hours"),
			CollaborationScore: p.float("collaboration_score"),
			EngagementScore:    p.float("engagement_score"),
			LearningHours:      p.float("learning_hours"),
		}
		if hasStretch && p.text("stretch_assignments") != "" {
			m.StretchAssignments = min(p.integer("stretch_assignments"), 3)
		} else {
			m.StretchAssignments = DeriveStretchAssignments(m.LearningHours)
		}
		if p.err != nil {
			return nil, p.err
		}
		row.metric = m
		out = append(out, row)
	}
	if len(out) == 0 {
		return nil, invalid("csv", "no data rows")
	}
	return out, nil
}

// parseWeek reads either a 1-based week index relative to the anchor or a date.
func parseWeek(v string, anchor *time.Time) (time.Time, error) {
	if v == "" {
		return time.Time{}, errors.New("is required")
	}
	if n, err := strconv.Atoi(v); err == nil {
		if anchor == nil {
			return time.Time{}, errors.New("week index requires weekStart")
		}
		if n < 1 {
			return time.Time{}, fmt.Errorf("week index %d must be at least 1", n)
		}
		return anchor.AddDate(0, 0, (n-1)*7), nil
	}
	return ParseWeekStart(v)
}

type fieldParser struct {
	rec   []string
	index map[string]int
	line  int
	err   error
}

func (p *fieldParser) text(name string) string {
	pos, ok := p.index[name]
	if !ok || pos >= len(p.rec) {
		return ""
	}
	return strings.TrimSpace(p.rec[pos])
}

func (p *fieldParser) float(name string) float64 {
	raw := p.text(name)
	if p.err != nil {
		return 0
	}
	if raw == "" {
		p.err = invalid(fmt.Sprintf("line %d: %s", p.line, name), "is required")
		return 0
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		p.err = invalid(fmt.Sprintf("line %d: %s", p.line, name), "invalid number %q", raw)
		return 0
	}
	if v < 0 {
		p.err = invalid(fmt.Sprintf("line %d: %s", p.line, name), "must not be negative")
		return 0
	}
	return v
}

func (p *fieldParser) integer(name string) int {
	return int(math.Round(p.float(name)))
}

func headerIndex(headers []string) map[string]int {
	idx := map[string]int{}
	for i, h := range headers {
		idx[normalizeHeader(h)] = i
	}
	return idx
}

func normalizeHeader(h string) string {
	h = strings.ReplaceAll(h, "\ufeff", "")
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.ReplaceAll(h, " ", "_")
}

func isBlank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func isNumeric(s string) bool {
	_, err := strconv.ParseInt(s, 10, 64)
	return err == nil
}

func slug(name string) string {
	var b strings.Builder
	dot := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dot = false
		default:
			if b.Len() > 0 && !dot {
				b.WriteByte('.')
				dot = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), ".")
}
