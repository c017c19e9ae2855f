// Package ml talks to the external prediction and insight service.
package ml

import (
	"context"
	"fmt"
	"time"
)

type Adapter interface {
	PredictBatch(ctx context.Context, req BatchPredictRequest) (BatchPredictResponse, error)
	TeamInsights(ctx context.Context, req TeamInsightsRequest) (TeamInsightsResponse, error)
}

type WeekPayload struct {
	WeekStart          time.Time `json:"week_start"`
	TasksAssigned      int       `json:"tasks_assigned"`
	TasksCompleted     int       `json:"tasks_completed"`
	MissedDeadlines    int       `json:"missed_deadlines"`
	MeetingHours       float64   `json:"meeting_hours"`
	CollaborationScore float64   `json:"collaboration_score"`
	EngagementScore    float64   `json:"engagement_score"`
	LearningHours      float64   `json:"learning_hours"`
	StretchAssignments int       `json:"stretch_assignments"`
}

// EmployeeWindow carries weeks ordered oldest to newest.
type EmployeeWindow struct {
	EmployeeID int64         `json:"employee_id"`
	Weeks      []WeekPayload `json:"weeks"`
}

type BatchPredictRequest struct {
	Employees []EmployeeWindow `json:"employees"`
}

type PredictionResult struct {
	EmployeeID             int64     `json:"employee_id"`
	WindowStart            time.Time `json:"window_start"`
	WindowEnd              time.Time `json:"window_end"`
	BurnoutRisk            string    `json:"burnout_risk"`
	BurnoutConfidence      float64   `json:"burnout_confidence"`
	BurnoutTopFeatures     []string  `json:"burnout_top_features"`
	PerformanceTrend       string    `json:"performance_trend"`
	PerformanceConfidence  float64   `json:"performance_confidence"`
	PerformanceTopFeatures []string  `json:"performance_top_features"`
	GrowthPotential        string    `json:"growth_potential"`
	GrowthConfidence       float64   `json:"growth_confidence"`
	GrowthTopFeatures      []string  `json:"growth_top_features"`
	Recommendations        []string  `json:"recommendations"`
	Explanation            string    `json:"explanation"`
}

type BatchPredictResponse struct {
	Results []PredictionResult `json:"results"`
}

type TeamInsightsRequest struct {
	TotalEmployees            int      `json:"total_employees"`
	HighBurnoutCount          int      `json:"high_burnout_count"`
	DecliningPerformanceCount int      `json:"declining_performance_count"`
	HighPotentialCount        int      `json:"high_potential_count"`
	TopBurnoutFeatures        []string `json:"top_burnout_features"`
	TopPerformanceFeatures    []string `json:"top_performance_features"`
	TopGrowthFeatures         []string `json:"top_growth_features"`
}

type TeamInsight struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Type        string `json:"type"`
	Level       string `json:"level"`
}

type TeamInsightsResponse struct {
	Insights []TeamInsight `json:"insights"`
}

// UpstreamError reports a failed call to the ML service. StatusCode is zero when the
// service could not be reached at all.
type UpstreamError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("ml service %s unreachable: %s", e.Endpoint, e.Body)
	}
	return fmt.Sprintf("ml service %s returned %d", e.Endpoint, e.StatusCode)
}
