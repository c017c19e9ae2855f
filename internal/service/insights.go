package service

import (
	"context"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pulseai/backend/internal/db"
	"github.com/pulseai/backend/internal/ml"
	"github.com/pulseai/backend/internal/models"
)

const topFeatureCount = 3

type InsightService struct {
	Store  db.Repository
	ML     ml.Adapter
	Logger zerolog.Logger
}

// BuildTeamInsightsRequest summarises the latest prediction per employee.
func BuildTeamInsightsRequest(latest []models.MlPrediction) ml.TeamInsightsRequest {
	req := ml.TeamInsightsRequest{TotalEmployees: len(latest)}
	burnout := map[string]int{}
	performance := map[string]int{}
	growth := map[string]int{}
	for _, p := range latest {
		if p.BurnoutRisk == "High" {
			req.HighBurnoutCount++
		}
		if p.PerformanceTrend == "Declining" {
			req.DecliningPerformanceCount++
		}
		if p.GrowthPotential == "High-Potential" {
			req.HighPotentialCount++
		}
		countFeatures(burnout, p.TopFeatures.Burnout)
		countFeatures(performance, p.TopFeatures.Performance)
		countFeatures(growth, p.TopFeatures.Growth)
	}
	req.TopBurnoutFeatures = mostFrequent(burnout, topFeatureCount)
	req.TopPerformanceFeatures = mostFrequent(performance, topFeatureCount)
	req.TopGrowthFeatures = mostFrequent(growth, topFeatureCount)
	return req
}

func countFeatures(counts map[string]int, features []string) {
	for _, f := range features {
		if f = strings.TrimSpace(f); f != "" {
			counts[f]++
		}
	}
}

// mostFrequent orders by count, then name, and keeps the first n.
func mostFrequent(counts map[string]int, n int) []string {
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if counts[names[i]] != counts[names[j]] {
			return counts[names[i]] > counts[names[j]]
		}
		return names[i] < names[j]
	})
	if len(names) > n {
		names = names[:n]
	}
	return names
}

func (s *InsightService) GenerateTeamInsights(ctx context.Context) ([]models.Insight, error) {
	latest, err := s.Store.LatestPredictions(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := s.ML.TeamInsights(ctx, BuildTeamInsightsRequest(latest))
	if err != nil {
		s.Logger.Error().Err(err).Msg("team insight generation failed")
		return nil, err
	}
	if len(resp.Insights) == 0 {
		return []models.Insight{}, nil
	}

	rows := make([]models.Insight, 0, len(resp.Insights))
	for _, in := range resp.Insights {
		level := strings.TrimSpace(in.Level)
		if level == "" {
			level = "team"
		}
		rows = append(rows, models.Insight{
			Title:       in.Title,
			Description: in.Description,
			Type:        in.Type,
			Level:       level,
		})
	}
	return s.Store.InsertInsights(ctx, rows)
}

func (s *InsightService) List(ctx context.Context, level string) ([]models.Insight, error) {
	switch level {
	case "", "team", "individual":
	default:
		return nil, invalid("level", "must be team or individual")
	}
	return s.Store.ListInsights(ctx, level)
}
