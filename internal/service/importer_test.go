package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/pulseai/backend/internal/db"
	"github.com/pulseai/backend/internal/models"
)

const csvHeader = "employee_id,week,tasks_assigned,tasks_completed,missed_deadlines,meeting_hours,collaboration_score,engagement_score,learning_hours"

func boolPtr(b bool) *bool { return &b }

func newMetricService(store db.Repository) *MetricService {
	return &MetricService{Store: store, Logger: zerolog.Nop()}
}

func TestImportCSVCreatesEmployeesAndScores(t *testing.T) {
	ctx := context.Background()
	store := db.NewMemoryStore()
	svc := newMetricService(store)

	body := strings.Join([]string{
		csvHeader,
		"Jane Doe,1,20,18,1,5,0.8,0.75,2",
		"Jane Doe,2,22,20,0,4,0.82,0.78,3",
		"ravi@corp.io,1,10,9,0,2,80,70,1",
	}, "\n")

	res, err := svc.ImportCSV(ctx, ImportRequest{CSV: body, WeekStart: "2024-01-01"})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	want := ImportResult{InsertedMetrics: 3, EmployeesCreated: 2, HealthScoresUpserted: 3}
	if res != want {
		t.Fatalf("expected %+v, got %+v", want, res)
	}

	jane, err := store.FindEmployeeByEmail(ctx, "jane.doe@pulse.local")
	if err != nil {
		t.Fatalf("expected generated email for Jane: %v", err)
	}
	metrics, _ := store.ListWeeklyMetrics(ctx, jane.ID)
	if len(metrics) != 2 {
		t.Fatalf("expected 2 metrics for Jane, got %d", len(metrics))
	}
	if !metrics[0].WeekStart.Equal(time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected week 2 at 2024-01-08, got %s", metrics[0].WeekStart)
	}
	// stretch assignments derive from learning hours when the column is absent
	if metrics[0].StretchAssignments != 2 {
		t.Fatalf("expected derived stretch 2, got %d", metrics[0].StretchAssignments)
	}

	scores, _ := store.ListHealthScores(ctx, jane.ID)
	if len(scores) != 2 {
		t.Fatalf("expected 2 health scores, got %d", len(scores))
	}
	if scores[1].WorkloadScore != 47 || scores[1].PerformanceScore != 84 {
		t.Fatalf("unexpected week 1 score %+v", scores[1])
	}

	if _, err := store.FindEmployeeByEmail(ctx, "ravi@corp.io"); err != nil {
		t.Fatalf("expected employee created from email key: %v", err)
	}
}

func TestImportCSVResolvesExistingEmployees(t *testing.T) {
	ctx := context.Background()
	store := db.NewMemoryStore()
	byID, _ := store.CreateEmployee(ctx, models.Employee{Name: "Id Person", Email: "id@corp.io"})
	byName, _ := store.CreateEmployee(ctx, models.Employee{Name: "Name Person", Email: "np@corp.io"})
	byEmail, _ := store.CreateEmployee(ctx, models.Employee{Name: "Someone Else", Email: "mail@corp.io"})
	svc := newMetricService(store)

	body := strings.Join([]string{
		csvHeader,
		strings.Join([]string{strconv.FormatInt(byID.ID, 10), "2024-03-04", "10", "10", "0", "1", "0.5", "0.5", "0"}, ","),
		"name person,2024-03-04,10,10,0,1,0.5,0.5,0",
		"MAIL@corp.io,2024-03-04,10,10,0,1,0.5,0.5,0",
	}, "\n")

	res, err := svc.ImportCSV(ctx, ImportRequest{CSV: body, CreateMissingEmployees: boolPtr(false)})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if res.EmployeesCreated != 0 || res.InsertedMetrics != 3 {
		t.Fatalf("unexpected result %+v", res)
	}
	for _, e := range []models.Employee{byID, byName, byEmail} {
		if ms, _ := store.ListWeeklyMetrics(ctx, e.ID); len(ms) != 1 {
			t.Fatalf("expected one metric for %s, got %d", e.Name, len(ms))
		}
	}
}

func TestImportCSVUnresolvedWithoutAutoCreate(t *testing.T) {
	ctx := context.Background()
	store := db.NewMemoryStore()
	svc := newMetricService(store)

	body := csvHeader + "\nGhost Writer,2024-03-04,10,10,0,1,0.5,0.5,0\n"
	_, err := svc.ImportCSV(ctx, ImportRequest{CSV: body, CreateMissingEmployees: boolPtr(false)})
	var verr *ValidationError
	if !errors.As(err, &verr) || !strings.Contains(verr.Message, "Ghost Writer") {
		t.Fatalf("expected validation error naming the key, got %v", err)
	}
	if all, _ := store.ListAllWeeklyMetrics(ctx); len(all) != 0 {
		t.Fatalf("expected no writes, got %d metrics", len(all))
	}
	if emps, _ := store.ListEmployees(ctx); len(emps) != 0 {
		t.Fatalf("expected no employees created, got %d", len(emps))
	}
}

func TestImportCSVSkipsExistingWeeks(t *testing.T) {
	ctx := context.Background()
	store := db.NewMemoryStore()
	svc := newMetricService(store)
	body := csvHeader + "\nJane Doe,2024-03-04,10,10,0,1,0.5,0.5,0\n"

	if _, err := svc.ImportCSV(ctx, ImportRequest{CSV: body}); err != nil {
		t.Fatalf("first import: %v", err)
	}
	res, err := svc.ImportCSV(ctx, ImportRequest{CSV: body})
	if err != nil {
		t.Fatalf("second import: %v", err)
	}
	if res.InsertedMetrics != 0 || res.EmployeesCreated != 0 || res.HealthScoresUpserted != 0 {
		t.Fatalf("expected nothing new, got %+v", res)
	}
}

func TestImportCSVNumericKeyReimport(t *testing.T) {
	ctx := context.Background()
	store := db.NewMemoryStore()
	svc := newMetricService(store)

	first := csvHeader + "\n101,1,10,10,0,1,0.5,0.5,0\n"
	res, err := svc.ImportCSV(ctx, ImportRequest{CSV: first, WeekStart: "2024-01-01"})
	if err != nil {
		t.Fatalf("first import: %v", err)
	}
	if res.EmployeesCreated != 1 || res.InsertedMetrics != 1 {
		t.Fatalf("unexpected first result %+v", res)
	}
	created, err := store.FindEmployeeByEmail(ctx, "employee.101@pulse.local")
	if err != nil || created.Name != "Employee 101" {
		t.Fatalf("expected generated employee, got %+v (%v)", created, err)
	}

	second := csvHeader + "\n101,2,12,11,0,1,0.5,0.5,0\n"
	res, err = svc.ImportCSV(ctx, ImportRequest{CSV: second, WeekStart: "2024-01-01"})
	if err != nil {
		t.Fatalf("second import: %v", err)
	}
	if res.EmployeesCreated != 0 || res.InsertedMetrics != 1 {
		t.Fatalf("unexpected second result %+v", res)
	}
	if ms, _ := store.ListWeeklyMetrics(ctx, created.ID); len(ms) != 2 {
		t.Fatalf("expected both weeks on one employee, got %d", len(ms))
	}
	if emps, _ := store.ListEmployees(ctx); len(emps) != 1 {
		t.Fatalf("expected a single employee, got %d", len(emps))
	}
}

func TestImportCSVKeysSharingEmailCreateOneEmployee(t *testing.T) {
	ctx := context.Background()
	store := db.NewMemoryStore()
	svc := newMetricService(store)
	body := csvHeader + ",email\n" +
		"A-1,2024-03-04,10,10,0,1,0.5,0.5,0,pat@corp.io\n" +
		"A-2,2024-03-11,10,10,0,1,0.5,0.5,0,PAT@corp.io\n"

	res, err := svc.ImportCSV(ctx, ImportRequest{CSV: body})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if res.EmployeesCreated != 1 || res.InsertedMetrics != 2 {
		t.Fatalf("unexpected result %+v", res)
	}
	pat, _ := store.FindEmployeeByEmail(ctx, "pat@corp.io")
	if ms, _ := store.ListWeeklyMetrics(ctx, pat.ID); len(ms) != 2 {
		t.Fatalf("expected both rows on one employee, got %d", len(ms))
	}
}

// duplicateOnImport lets resolution miss an email that the import write then collides with.
type duplicateOnImport struct {
	*db.MemoryStore
}

func (d duplicateOnImport) FindEmployeeByEmail(ctx context.Context, email string) (models.Employee, error) {
	return models.Employee{}, db.ErrNotFound
}

func TestImportCSVWritesNothingWhenEmployeeInsertFails(t *testing.T) {
	ctx := context.Background()
	mem := db.NewMemoryStore()
	taken, _ := mem.CreateEmployee(ctx, models.Employee{Name: "Already Here", Email: "taken@corp.io"})
	svc := newMetricService(duplicateOnImport{mem})

	body := csvHeader + ",email\n" +
		"New Person,2024-03-04,10,10,0,1,0.5,0.5,0,new@corp.io\n" +
		"Other Person,2024-03-04,10,10,0,1,0.5,0.5,0,taken@corp.io\n"

	if _, err := svc.ImportCSV(ctx, ImportRequest{CSV: body}); !errors.Is(err, db.ErrDuplicate) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
	if emps, _ := mem.ListEmployees(ctx); len(emps) != 1 || emps[0].ID != taken.ID {
		t.Fatalf("expected only the existing employee, got %+v", emps)
	}
	if all, _ := mem.ListAllWeeklyMetrics(ctx); len(all) != 0 {
		t.Fatalf("expected no metrics, got %d", len(all))
	}
}

func TestCreateWeeklyMetricsConcurrentWithDefaultValidator(t *testing.T) {
	ctx := context.Background()
	store := db.NewMemoryStore()
	e, _ := store.CreateEmployee(ctx, models.Employee{Name: "Busy Person", Email: "busy@corp.io"})
	svc := newMetricService(store)

	intp := func(v int) *int { return &v }
	fp := func(v float64) *float64 { return &v }
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.CreateWeeklyMetrics(ctx, []WeeklyMetricInput{{
				EmployeeID:         e.ID,
				WeekStart:          base.AddDate(0, 0, 7*i).Format("2006-01-02"),
				TasksAssigned:      intp(10),
				TasksCompleted:     intp(9),
				MissedDeadlines:    intp(0),
				MeetingHours:       fp(2),
				CollaborationScore: fp(0.5),
				EngagementScore:    fp(0.5),
				LearningHours:      fp(1),
			}})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	if svc.Validator != nil {
		t.Fatalf("expected the service validator to stay unset")
	}
	if ms, _ := store.ListWeeklyMetrics(ctx, e.ID); len(ms) != 8 {
		t.Fatalf("expected 8 metrics, got %d", len(ms))
	}
}

func TestImportCSVValidation(t *testing.T) {
	cases := []struct {
		name  string
		req   ImportRequest
		field string
	}{
		{
			name:  "missing column",
			req:   ImportRequest{CSV: "employee_id,week,tasks_assigned\n1,1,3\n", WeekStart: "2024-01-01"},
			field: "tasks_completed",
		},
		{
			name:  "week index without anchor",
			req:   ImportRequest{CSV: csvHeader + "\n1,2,10,10,0,1,0.5,0.5,0\n"},
			field: "line 2: week",
		},
		{
			name:  "bad anchor",
			req:   ImportRequest{CSV: csvHeader + "\n1,2,10,10,0,1,0.5,0.5,0\n", WeekStart: "last monday"},
			field: "weekStart",
		},
		{
			name:  "bad number",
			req:   ImportRequest{CSV: csvHeader + "\n1,2024-01-01,ten,10,0,1,0.5,0.5,0\n"},
			field: "line 2: tasks_assigned",
		},
		{
			name:  "empty body",
			req:   ImportRequest{CSV: "  "},
			field: "csv",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := newMetricService(db.NewMemoryStore())
			_, err := svc.ImportCSV(context.Background(), tc.req)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if verr.Field != tc.field {
				t.Fatalf("expected field %q, got %q (%s)", tc.field, verr.Field, verr.Message)
			}
		})
	}
}

func TestImportCSVOptionalColumns(t *testing.T) {
	ctx := context.Background()
	store := db.NewMemoryStore()
	svc := newMetricService(store)
	body := csvHeader + ",stretch_assignments,employee_name,email\n" +
		"E-17,2024-03-04,10,10,0,1,0.5,0.5,8,1,Kim Lee,kim@corp.io\n"

	if _, err := svc.ImportCSV(ctx, ImportRequest{CSV: body}); err != nil {
		t.Fatalf("import: %v", err)
	}
	e, err := store.FindEmployeeByEmail(ctx, "kim@corp.io")
	if err != nil {
		t.Fatalf("expected employee from email column: %v", err)
	}
	if e.Name != "Kim Lee" {
		t.Fatalf("expected name from employee_name column, got %q", e.Name)
	}
	ms, _ := store.ListWeeklyMetrics(ctx, e.ID)
	if len(ms) != 1 || ms[0].StretchAssignments != 1 {
		t.Fatalf("expected supplied stretch of 1, got %+v", ms)
	}
}

func TestSlug(t *testing.T) {
	cases := map[string]string{
		"Jane Doe":          "jane.doe",
		"  Ana-María  Ruiz": "ana.mar.a.ruiz",
		"O'Neil":            "o.neil",
	}
	for in, want := range cases {
		if got := slug(in); got != want {
			t.Fatalf("slug(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCreateWeeklyMetrics(t *testing.T) {
	ctx := context.Background()
	store := db.NewMemoryStore()
	e, _ := store.CreateEmployee(ctx, models.Employee{Name: "Api Person", Email: "api@corp.io"})
	svc := newMetricService(store)

	intp := func(v int) *int { return &v }
	fp := func(v float64) *float64 { return &v }
	in := WeeklyMetricInput{
		EmployeeID:         e.ID,
		WeekStart:          "2024-01-08",
		TasksAssigned:      intp(20),
		TasksCompleted:     intp(18),
		MissedDeadlines:    intp(1),
		MeetingHours:       fp(5),
		CollaborationScore: fp(0.8),
		EngagementScore:    fp(0.75),
		LearningHours:      fp(2),
		StretchAssignments: intp(1),
	}

	saved, err := svc.CreateWeeklyMetrics(ctx, []WeeklyMetricInput{in})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(saved) != 1 || saved[0].ID == 0 {
		t.Fatalf("unexpected saved rows %+v", saved)
	}
	scores, _ := store.ListHealthScores(ctx, e.ID)
	if len(scores) != 1 || scores[0].BurnoutRisk != 29 {
		t.Fatalf("expected one score with burnout 29, got %+v", scores)
	}

	if _, err := svc.CreateWeeklyMetrics(ctx, []WeeklyMetricInput{in}); !errors.Is(err, db.ErrDuplicate) {
		t.Fatalf("expected duplicate error, got %v", err)
	}

	missing := in
	missing.TasksAssigned = nil
	_, err = svc.CreateWeeklyMetrics(ctx, []WeeklyMetricInput{missing})
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Field != "tasksAssigned" {
		t.Fatalf("expected tasksAssigned validation error, got %v", err)
	}

	unknown := in
	unknown.EmployeeID = 999
	unknown.WeekStart = "2024-01-15"
	if _, err := svc.CreateWeeklyMetrics(ctx, []WeeklyMetricInput{unknown}); !errors.Is(err, db.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRecomputeAll(t *testing.T) {
	ctx := context.Background()
	store := db.NewMemoryStore()
	seedEmployee(t, store, "Recompute One", 3)
	seedEmployee(t, store, "Recompute Two", 2)
	svc := newMetricService(store)

	n, err := svc.RecomputeAll(ctx)
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if n != 5 {
		t.Fatalf("expected 5 updated, got %d", n)
	}
	rows, _ := store.ListHealthScoresSince(ctx, time.Time{})
	if len(rows) != 5 {
		t.Fatalf("expected 5 health scores, got %d", len(rows))
	}
}
