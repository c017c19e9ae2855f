package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/pulseai/backend/internal/cache"
	"github.com/pulseai/backend/internal/db"
	"github.com/pulseai/backend/internal/metrics"
	"github.com/pulseai/backend/internal/ml"
	"github.com/pulseai/backend/internal/models"
)

// WindowWeeks is the fixed number of weekly metrics the model consumes.
const WindowWeeks = 4

const (
	SkipInsufficientData = "insufficient_data"
	SkipCached           = "cached"
)

type RunSummary struct {
	Processed        int `json:"processed"`
	Skipped          int `json:"skipped"`
	PredictionsSaved int `json:"predictionsSaved"`
}

// PredictionService runs the batch prediction pipeline: window assembly, cache gating,
// one ML batch call, bulk persistence and post-save side effects.
type PredictionService struct {
	Store  db.Repository
	ML     ml.Adapter
	Cache  *cache.PredictionCache
	Gate   CacheGate
	Alerts *AlertService
	Logger zerolog.Logger

	// DedupeInflight collapses identical concurrent runs into one.
	DedupeInflight bool
	group          singleflight.Group
}

func (s *PredictionService) Run(ctx context.Context, employeeID *int64) (RunSummary, error) {
	if !s.DedupeInflight {
		return s.run(ctx, employeeID)
	}
	key := "all"
	if employeeID != nil {
		key = "employee:" + strconv.FormatInt(*employeeID, 10)
	}
	v, err, shared := s.group.Do(key, func() (any, error) {
		return s.run(ctx, employeeID)
	})
	if shared {
		s.Logger.Debug().Str("key", key).Msg("joined in-flight prediction run")
	}
	if err != nil {
		return RunSummary{}, err
	}
	return v.(RunSummary), nil
}

type queuedWindow struct {
	employeeID int64
	weeks      []models.WeeklyMetric
}

func (s *PredictionService) run(ctx context.Context, employeeID *int64) (RunSummary, error) {
	candidates, err := s.candidates(ctx, employeeID)
	if err != nil {
		return RunSummary{}, err
	}

	var (
		summary      RunSummary
		insufficient int
		cached       int
		queue        []queuedWindow
	)
	for _, e := range candidates {
		recent, err := s.Store.RecentWeeklyMetrics(ctx, e.ID, WindowWeeks)
		if err != nil {
			return RunSummary{}, fmt.Errorf("load window for employee %d: %w", e.ID, err)
		}
		if len(recent) < WindowWeeks {
			insufficient++
			continue
		}

		latest, err := s.latest(ctx, e.ID)
		if err != nil {
			return RunSummary{}, err
		}
		if s.Gate.Decide(latest) == DecisionReuse {
			cached++
			continue
		}

		queue = append(queue, queuedWindow{employeeID: e.ID, weeks: oldestFirst(recent)})
	}

	summary.Skipped = insufficient + cached
	metrics.RecordPredictionSkipped(SkipInsufficientData, insufficient)
	metrics.RecordPredictionSkipped(SkipCached, cached)

	if len(queue) == 0 {
		return summary, nil
	}
	summary.Processed = len(queue)

	req := ml.BatchPredictRequest{Employees: make([]ml.EmployeeWindow, 0, len(queue))}
	windows := make(map[int64][]models.WeeklyMetric, len(queue))
	for _, q := range queue {
		req.Employees = append(req.Employees, ml.EmployeeWindow{EmployeeID: q.employeeID, Weeks: toPayload(q.weeks)})
		windows[q.employeeID] = q.weeks
	}

	resp, err := s.ML.PredictBatch(ctx, req)
	if err != nil {
		s.Logger.Error().Err(err).Int("employees", len(queue)).Msg("batch prediction failed")
		return RunSummary{}, err
	}

	createdAt := s.Gate.now().UTC()
	rows := make([]models.MlPrediction, 0, len(resp.Results))
	seen := map[int64]bool{}
	for _, r := range resp.Results {
		window, ok := windows[r.EmployeeID]
		if !ok || seen[r.EmployeeID] {
			s.Logger.Warn().Int64("employee_id", r.EmployeeID).Msg("ignoring prediction outside the batch")
			continue
		}
		seen[r.EmployeeID] = true
		rows = append(rows, toPrediction(r, window, createdAt))
	}
	if len(rows) == 0 {
		return summary, nil
	}

	saved, err := s.Store.InsertPredictions(ctx, rows)
	if err != nil {
		return RunSummary{}, fmt.Errorf("save predictions: %w", err)
	}
	summary.PredictionsSaved = len(saved)

	for _, p := range saved {
		s.afterSave(ctx, p)
	}
	s.Logger.Info().
		Int("processed", summary.Processed).
		Int("skipped", summary.Skipped).
		Int("saved", summary.PredictionsSaved).
		Msg("prediction run finished")
	return summary, nil
}

func (s *PredictionService) candidates(ctx context.Context, employeeID *int64) ([]models.Employee, error) {
	if employeeID == nil {
		return s.Store.ListEmployees(ctx)
	}
	e, err := s.Store.GetEmployee(ctx, *employeeID)
	if err != nil {
		return nil, fmt.Errorf("employee %d: %w", *employeeID, err)
	}
	return []models.Employee{e}, nil
}

// latest reads the Redis pointer first and falls back to the store.
func (s *PredictionService) latest(ctx context.Context, employeeID int64) (*models.MlPrediction, error) {
	if s.Cache.Available() {
		p, ok, err := s.Cache.Latest(ctx, employeeID)
		if err != nil {
			s.Logger.Warn().Err(err).Int64("employee_id", employeeID).Msg("prediction cache read failed")
		} else if ok {
			return &p, nil
		}
	}
	p, err := s.Store.LatestPrediction(ctx, employeeID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest prediction for employee %d: %w", employeeID, err)
	}
	return &p, nil
}

func (s *PredictionService) afterSave(ctx context.Context, p models.MlPrediction) {
	metrics.RecordPredictionSaved(p.BurnoutRisk)

	if err := s.Cache.Store(ctx, p); err != nil {
		s.Logger.Warn().Err(err).Int64("employee_id", p.EmployeeID).Msg("prediction cache write failed")
	}
	if err := s.Cache.Publish(ctx, p); err != nil {
		s.Logger.Warn().Err(err).Int64("employee_id", p.EmployeeID).Msg("prediction publish failed")
	}
	if s.Alerts != nil {
		if _, err := s.Alerts.EvaluatePrediction(ctx, p); err != nil {
			s.Logger.Warn().Err(err).Int64("employee_id", p.EmployeeID).Msg("alert evaluation failed")
		}
	}
}

// Latest returns the newest prediction for one employee. With autoPredict it runs the
// pipeline for that employee when nothing is stored yet.
func (s *PredictionService) Latest(ctx context.Context, employeeID int64, autoPredict bool) (models.MlPrediction, error) {
	p, err := s.Store.LatestPrediction(ctx, employeeID)
	if err == nil || !errors.Is(err, db.ErrNotFound) || !autoPredict {
		return p, err
	}
	if _, err := s.Run(ctx, &employeeID); err != nil {
		return models.MlPrediction{}, err
	}
	return s.Store.LatestPrediction(ctx, employeeID)
}

func (s *PredictionService) LatestAll(ctx context.Context) ([]models.MlPrediction, error) {
	return s.Store.LatestPredictions(ctx)
}

// oldestFirst reverses a newest-first window without touching the input.
func oldestFirst(recent []models.WeeklyMetric) []models.WeeklyMetric {
	out := make([]models.WeeklyMetric, len(recent))
	for i, m := range recent {
		out[len(recent)-1-i] = m
	}
	return out
}

func toPayload(weeks []models.WeeklyMetric) []ml.WeekPayload {
	out := make([]ml.WeekPayload, 0, len(weeks))
	for _, w := range weeks {
		out = append(out, ml.WeekPayload{
			WeekStart:          w.WeekStart.UTC(),
			TasksAssigned:      w.TasksAssigned,
			TasksCompleted:     w.TasksCompleted,
			MissedDeadlines:    w.MissedDeadlines,
			MeetingHours:       w.MeetingHours,
			CollaborationScore: w.CollaborationScore,
			EngagementScore:    w.EngagementScore,
			LearningHours:      w.LearningHours,
			StretchAssignments: w.StretchAssignments,
		})
	}
	return out
}

func toPrediction(r ml.PredictionResult, window []models.WeeklyMetric, createdAt time.Time) models.MlPrediction {
	start, end := r.WindowStart, r.WindowEnd
	if start.IsZero() {
		start = window[0].WeekStart
	}
	if end.IsZero() {
		end = window[len(window)-1].WeekStart
	}
	return models.MlPrediction{
		EmployeeID:            r.EmployeeID,
		WindowStart:           start.UTC(),
		WindowEnd:             end.UTC(),
		BurnoutRisk:           r.BurnoutRisk,
		BurnoutConfidence:     r.BurnoutConfidence,
		PerformanceTrend:      r.PerformanceTrend,
		PerformanceConfidence: r.PerformanceConfidence,
		GrowthPotential:       r.GrowthPotential,
		GrowthConfidence:      r.GrowthConfidence,
		TopFeatures: models.TopFeatures{
			Burnout:     nonNil(r.BurnoutTopFeatures),
			Performance: nonNil(r.PerformanceTopFeatures),
			Growth:      nonNil(r.GrowthTopFeatures),
		},
		Recommendations: nonNil(r.Recommendations),
		Explanation:     r.Explanation,
		CreatedAt:       createdAt,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
