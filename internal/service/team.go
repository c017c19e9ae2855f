package service

import (
	"context"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/pulseai/backend/internal/db"
	"github.com/pulseai/backend/internal/models"
)

const (
	snapshotWindow   = 7 * 24 * time.Hour
	DefaultTrendDays = 14
	trendDateLayout  = "2006-01-02"
)

type TeamSnapshot struct {
	BurnoutRisk      int    `json:"burnoutRisk"`
	EngagementScore  int    `json:"engagementScore"`
	PerformanceScore int    `json:"performanceScore"`
	WorkloadScore    int    `json:"workloadScore"`
	HealthScore      int    `json:"healthScore"`
	BurnoutLabel     string `json:"burnoutLabel"`
	GrowthLabel      string `json:"growthPotential"`
	EngagementHealth string `json:"engagementHealth"`
	SampleSize       int    `json:"sampleSize"`
}

type TrendPoint struct {
	Date             string `json:"date"`
	BurnoutRisk      int    `json:"burnoutRisk"`
	PerformanceScore int    `json:"performanceScore"`
	Samples          int    `json:"samples"`
}

type TeamHealth struct {
	Snapshot TeamSnapshot `json:"snapshot"`
	Trend    []TrendPoint `json:"trend"`
}

type TeamService struct {
	Store     db.Repository
	TrendDays int
	Now       func() time.Time
}

func (s *TeamService) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

// LatestTeamHealth pools every score dated within the last seven days across all
// employees.
func (s *TeamService) LatestTeamHealth(ctx context.Context) (TeamSnapshot, error) {
	rows, err := s.Store.ListHealthScoresSince(ctx, s.now().Add(-snapshotWindow))
	if err != nil {
		return TeamSnapshot{}, err
	}
	return Snapshot(rows), nil
}

// Snapshot averages the rows and attaches status labels. No rows yields zeros with the
// default labels.
func Snapshot(rows []models.HealthScore) TeamSnapshot {
	if len(rows) == 0 {
		return TeamSnapshot{BurnoutLabel: "Low", GrowthLabel: "Steady", EngagementHealth: "Balanced"}
	}
	var snap TeamSnapshot
	burnout := make([]float64, len(rows))
	engagement := make([]float64, len(rows))
	performance := make([]float64, len(rows))
	workload := make([]float64, len(rows))
	for i, r := range rows {
		burnout[i] = float64(r.BurnoutRisk)
		engagement[i] = float64(r.EngagementScore)
		performance[i] = float64(r.PerformanceScore)
		workload[i] = float64(r.WorkloadScore)
	}
	snap.BurnoutRisk = roundMean(burnout)
	snap.EngagementScore = roundMean(engagement)
	snap.PerformanceScore = roundMean(performance)
	snap.WorkloadScore = roundMean(workload)
	snap.SampleSize = len(rows)
	snap.HealthScore = int(math.Round(float64(snap.EngagementScore+snap.PerformanceScore) / 2))
	snap.BurnoutLabel = BurnoutLabel(snap.BurnoutRisk)
	snap.GrowthLabel = GrowthLabel(snap.PerformanceScore, snap.EngagementScore)
	snap.EngagementHealth = EngagementHealthLabel(snap.WorkloadScore, snap.EngagementScore)
	return snap
}

func roundMean(xs []float64) int {
	return int(math.Round(stat.Mean(xs, nil)))
}

func BurnoutLabel(burnout int) string {
	switch {
	case burnout > 70:
		return "High"
	case burnout > 40:
		return "Medium"
	default:
		return "Low"
	}
}

func GrowthLabel(performance, engagement int) string {
	switch {
	case performance > 80 && engagement > 80:
		return "Emerging"
	case performance < 50:
		return "Stalled"
	default:
		return "Steady"
	}
}

func EngagementHealthLabel(workload, engagement int) string {
	switch {
	case workload > 80:
		return "Overloaded"
	case engagement < 40:
		return "Disconnected"
	default:
		return "Balanced"
	}
}

// TeamHealthTrend buckets scores from the trailing window by UTC calendar date.
func (s *TeamService) TeamHealthTrend(ctx context.Context, days int) ([]TrendPoint, error) {
	if days <= 0 {
		days = DefaultTrendDays
	}
	rows, err := s.Store.ListHealthScoresSince(ctx, s.now().AddDate(0, 0, -days))
	if err != nil {
		return nil, err
	}
	return Trend(rows), nil
}

func Trend(rows []models.HealthScore) []TrendPoint {
	type bucket struct{ burnout, performance []float64 }
	buckets := map[string]*bucket{}
	for _, r := range rows {
		key := r.Date.UTC().Format(trendDateLayout)
		b, ok := buckets[key]
		if !ok {
			b = &bucket{}
			buckets[key] = b
		}
		b.burnout = append(b.burnout, float64(r.BurnoutRisk))
		b.performance = append(b.performance, float64(r.PerformanceScore))
	}

	out := make([]TrendPoint, 0, len(buckets))
	for date, b := range buckets {
		out = append(out, TrendPoint{
			Date:             date,
			BurnoutRisk:      roundMean(b.burnout),
			PerformanceScore: roundMean(b.performance),
			Samples:          len(b.burnout),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

func (s *TeamService) TeamHealth(ctx context.Context) (TeamHealth, error) {
	snap, err := s.LatestTeamHealth(ctx)
	if err != nil {
		return TeamHealth{}, err
	}
	trend, err := s.TeamHealthTrend(ctx, s.TrendDays)
	if err != nil {
		return TeamHealth{}, err
	}
	return TeamHealth{Snapshot: snap, Trend: trend}, nil
}
