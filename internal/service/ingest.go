package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/pulseai/backend/internal/db"
	"github.com/pulseai/backend/internal/metrics"
	"github.com/pulseai/backend/internal/models"
)

// WeeklyMetricInput is the JSON shape accepted for one week. Pointer fields distinguish
// an omitted value from zero.
type WeeklyMetricInput struct {
	EmployeeID         int64    `json:"employeeId" validate:"required,gt=0"`
	WeekStart          string   `json:"weekStart" validate:"required"`
	TasksAssigned      *int     `json:"tasksAssigned" validate:"required,gte=0"`
	TasksCompleted     *int     `json:"tasksCompleted" validate:"required,gte=0"`
	MissedDeadlines    *int     `json:"missedDeadlines" validate:"required,gte=0"`
	MeetingHours       *float64 `json:"meetingHours" validate:"required,gte=0"`
	CollaborationScore *float64 `json:"collaborationScore" validate:"required,gte=0,lte=100"`
	EngagementScore    *float64 `json:"engagementScore" validate:"required,gte=0,lte=100"`
	LearningHours      *float64 `json:"learningHours" validate:"required,gte=0"`
	StretchAssignments *int     `json:"stretchAssignments" validate:"omitempty,gte=0,lte=3"`
}

// NewValidator reports field errors by their JSON names.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validator.Validate caches struct metadata and is safe for concurrent use.
var sharedValidator = NewValidator()

func validatorOr(v *validator.Validate) *validator.Validate {
	if v == nil {
		return sharedValidator
	}
	return v
}

// validationFailure converts the first validator error into a ValidationError.
func validationFailure(err error, prefix string) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return invalid(prefix+fe.Field(), "failed %q validation", fe.Tag())
	}
	return &ValidationError{Field: strings.TrimSuffix(prefix, "."), Message: err.Error()}
}

// ParseWeekStart accepts a calendar date or an RFC 3339 timestamp and returns it in UTC.
func ParseWeekStart(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	return t.UTC(), nil
}

type MetricService struct {
	Store      db.Repository
	Validator  *validator.Validate
	Normalizer Normalizer
	Logger     zerolog.Logger
}

func (in WeeklyMetricInput) toMetric(week time.Time) models.WeeklyMetric {
	m := models.WeeklyMetric{
		EmployeeID:         in.EmployeeID,
		WeekStart:          week,
		TasksAssigned:      *in.TasksAssigned,
		TasksCompleted:     *in.TasksCompleted,
		MissedDeadlines:    *in.MissedDeadlines,
		MeetingHours:       *in.MeetingHours,
		CollaborationScore: *in.CollaborationScore,
		EngagementScore:    *in.EngagementScore,
		LearningHours:      *in.LearningHours,
	}
	if in.StretchAssignments != nil {
		m.StretchAssignments = *in.StretchAssignments
	} else {
		m.StretchAssignments = DeriveStretchAssignments(m.LearningHours)
	}
	return m
}

// CreateWeeklyMetrics validates every input before writing any of them, then inserts
// each metric and upserts its health score.
func (s *MetricService) CreateWeeklyMetrics(ctx context.Context, inputs []WeeklyMetricInput) ([]models.WeeklyMetric, error) {
	if len(inputs) == 0 {
		return nil, invalid("body", "at least one metric is required")
	}

	prepared := make([]models.WeeklyMetric, 0, len(inputs))
	for i, in := range inputs {
		prefix := ""
		if len(inputs) > 1 {
			prefix = fmt.Sprintf("[%d].", i)
		}
		if err := validatorOr(s.Validator).Struct(in); err != nil {
			return nil, validationFailure(err, prefix)
		}
		week, err := ParseWeekStart(in.WeekStart)
		if err != nil {
			return nil, invalid(prefix+"weekStart", "%v", err)
		}
		prepared = append(prepared, in.toMetric(week))
	}

	out := make([]models.WeeklyMetric, 0, len(prepared))
	for _, m := range prepared {
		if _, err := s.Store.GetEmployee(ctx, m.EmployeeID); err != nil {
			return out, fmt.Errorf("employee %d: %w", m.EmployeeID, err)
		}
		saved, err := s.Store.InsertWeeklyMetric(ctx, m)
		if err != nil {
			return out, fmt.Errorf("weekly metric for employee %d week %s: %w", m.EmployeeID, m.WeekStart.Format("2006-01-02"), err)
		}
		if err := s.ProcessMetric(ctx, saved); err != nil {
			return out, err
		}
		metrics.RecordHealthScoreUpserts("api", 1)
		out = append(out, saved)
	}
	return out, nil
}

// ProcessMetric recomputes and upserts the health score for one stored metric.
func (s *MetricService) ProcessMetric(ctx context.Context, m models.WeeklyMetric) error {
	hs := s.Normalizer.HealthScore(m)
	if err := s.Store.UpsertHealthScore(ctx, hs); err != nil {
		return fmt.Errorf("upsert health score for employee %d: %w", m.EmployeeID, err)
	}
	return nil
}

func (s *MetricService) List(ctx context.Context, employeeID int64) ([]models.WeeklyMetric, error) {
	return s.Store.ListWeeklyMetrics(ctx, employeeID)
}

func (s *MetricService) HealthScores(ctx context.Context, employeeID int64) ([]models.HealthScore, error) {
	if _, err := s.Store.GetEmployee(ctx, employeeID); err != nil {
		return nil, fmt.Errorf("employee %d: %w", employeeID, err)
	}
	return s.Store.ListHealthScores(ctx, employeeID)
}

// RecomputeAll backfills health scores for every stored metric.
func (s *MetricService) RecomputeAll(ctx context.Context) (int, error) {
	all, err := s.Store.ListAllWeeklyMetrics(ctx)
	if err != nil {
		return 0, err
	}
	updated := 0
	for _, m := range all {
		if err := s.ProcessMetric(ctx, m); err != nil {
			return updated, err
		}
		updated++
	}
	metrics.RecordHealthScoreUpserts("recompute", updated)
	s.Logger.Info().Int("updated", updated).Msg("health scores recomputed")
	return updated, nil
}
