package ml

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/pulseai/backend/internal/utils"
)

const windowWeeks = 4

var (
	burnoutFeatureNames     = []string{"avg_workload", "workload_trend", "deadline_miss_rate"}
	performanceFeatureNames = []string{"task_completion_ratio", "workload_trend", "deadline_miss_rate"}
	growthFeatureNames      = []string{"task_completion_ratio", "workload_trend", "deadline_miss_rate"}
)

// MockAdapter answers locally with rule-based labels. It is used when no ML service
// URL is configured.
type MockAdapter struct{}

type windowFeatures struct {
	avgWorkload        float64
	workloadTrend      float64
	deadlineMissRate   float64
	meetingLoad        float64
	taskCompletion     float64
	engagementDrop     float64
	engagementTrend    float64
	collaborationDrop  float64
	learningTrend      float64
	recoveryGap        float64
	stretchAssignments int
	earlyCompletion    float64
	lateCompletion     float64
}

func computeFeatures(weeks []WeekPayload) windowFeatures {
	window := append([]WeekPayload(nil), weeks...)
	sort.SliceStable(window, func(i, j int) bool { return window[i].WeekStart.Before(window[j].WeekStart) })
	if len(window) > windowWeeks {
		window = window[len(window)-windowWeeks:]
	}
	first, last := window[0], window[len(window)-1]

	var f windowFeatures
	var assigned, completed, missed int
	var meetings float64
	for _, w := range window {
		assigned += w.TasksAssigned
		completed += w.TasksCompleted
		missed += w.MissedDeadlines
		meetings += w.MeetingHours
		f.stretchAssignments += w.StretchAssignments
	}
	n := float64(len(window))
	f.avgWorkload = float64(assigned) / n
	f.meetingLoad = meetings / n
	if assigned > 0 {
		f.taskCompletion = float64(completed) / float64(assigned)
		f.deadlineMissRate = float64(missed) / float64(assigned)
	}
	f.workloadTrend = float64(last.TasksAssigned - first.TasksAssigned)
	f.engagementTrend = last.EngagementScore - first.EngagementScore
	f.engagementDrop = relativeDrop(first.EngagementScore, last.EngagementScore)
	f.collaborationDrop = relativeDrop(first.CollaborationScore, last.CollaborationScore)
	f.learningTrend = last.LearningHours - first.LearningHours
	if gap := f.meetingLoad - last.LearningHours; gap > 0 {
		f.recoveryGap = gap
	}

	half := len(window) / 2
	f.earlyCompletion = completionOf(window[:half])
	f.lateCompletion = completionOf(window[half:])
	return f
}

func relativeDrop(from, to float64) float64 {
	if from <= 0 || to >= from {
		return 0
	}
	return (from - to) / from
}

func completionOf(weeks []WeekPayload) float64 {
	var assigned, completed int
	for _, w := range weeks {
		assigned += w.TasksAssigned
		completed += w.TasksCompleted
	}
	if assigned == 0 {
		return 0
	}
	return float64(completed) / float64(assigned)
}

func classifyBurnout(f windowFeatures) string {
	switch {
	case f.deadlineMissRate > 0.2 || f.avgWorkload > 35 || f.engagementDrop > 0.25 || f.recoveryGap > 10:
		return "High"
	case f.deadlineMissRate > 0.1 || f.avgWorkload > 25 || f.meetingLoad > 8 || f.engagementDrop > 0.1 || f.collaborationDrop > 0.25:
		return "Medium"
	default:
		return "Low"
	}
}

func classifyPerformance(f windowFeatures) string {
	delta := f.lateCompletion - f.earlyCompletion
	switch {
	case delta > 0.05:
		return "Improving"
	case delta < -0.05:
		return "Declining"
	default:
		return "Stable"
	}
}

func classifyGrowth(f windowFeatures) string {
	points := 0
	if f.learningTrend > 0 {
		points++
	}
	if f.stretchAssignments >= 2 {
		points++
	}
	if f.taskCompletion >= 0.85 {
		points++
	}
	if f.engagementTrend >= 0 {
		points++
	}
	switch {
	case points >= 3:
		return "High-Potential"
	case points == 2:
		return "Medium-Potential"
	default:
		return "Low-Potential"
	}
}

// confidence is stable per employee and target so repeated runs agree.
func confidence(employeeID int64, target string) float64 {
	return 0.6 + float64(utils.Bucket(35, strconv.FormatInt(employeeID, 10), target))/100
}

func (m MockAdapter) PredictBatch(ctx context.Context, req BatchPredictRequest) (BatchPredictResponse, error) {
	out := BatchPredictResponse{Results: []PredictionResult{}}
	for _, emp := range req.Employees {
		if err := ctx.Err(); err != nil {
			return BatchPredictResponse{}, err
		}
		if len(emp.Weeks) < windowWeeks {
			continue
		}
		f := computeFeatures(emp.Weeks)
		window := append([]WeekPayload(nil), emp.Weeks...)
		sort.SliceStable(window, func(i, j int) bool { return window[i].WeekStart.Before(window[j].WeekStart) })
		window = window[len(window)-windowWeeks:]

		res := PredictionResult{
			EmployeeID:             emp.EmployeeID,
			WindowStart:            window[0].WeekStart,
			WindowEnd:              window[len(window)-1].WeekStart,
			BurnoutRisk:            classifyBurnout(f),
			BurnoutConfidence:      confidence(emp.EmployeeID, "burnout"),
			BurnoutTopFeatures:     append([]string(nil), burnoutFeatureNames...),
			PerformanceTrend:       classifyPerformance(f),
			PerformanceConfidence:  confidence(emp.EmployeeID, "performance"),
			PerformanceTopFeatures: append([]string(nil), performanceFeatureNames...),
			GrowthPotential:        classifyGrowth(f),
			GrowthConfidence:       confidence(emp.EmployeeID, "growth"),
			GrowthTopFeatures:      append([]string(nil), growthFeatureNames...),
		}
		res.Recommendations, res.Explanation = fallbackRecommendations(res.BurnoutRisk, res.PerformanceTrend, res.GrowthPotential)
		out.Results = append(out.Results, res)
	}
	return out, nil
}

func fallbackRecommendations(burnout, performance, growth string) ([]string, string) {
	var recs, why []string

	if burnout == "High" || burnout == "Medium" {
		recs = append(recs, "Review workload and meeting load to protect focus time for the next sprint.")
		why = append(why, fmt.Sprintf("Burnout risk is %s.", burnout))
	}
	switch performance {
	case "Declining":
		recs = append(recs, "Identify blockers and clarify top priorities to stabilize performance.")
		why = append(why, "Performance trend is declining.")
	case "Improving":
		recs = append(recs, "Reinforce what is working and share best practices with the team.")
	}
	if growth == "High-Potential" || growth == "Medium-Potential" {
		recs = append(recs, "Offer a stretch assignment or mentorship to sustain growth momentum.")
		why = append(why, fmt.Sprintf("Growth potential is %s.", growth))
	} else {
		recs = append(recs, "Allocate dedicated learning time to build longer-term growth signals.")
	}

	if len(recs) > 4 {
		recs = recs[:4]
	}
	if len(recs) < 2 {
		recs = append(recs, "Schedule a check-in focused on workload balance and priorities.")
	}

	explanation := strings.Join(why, " ")
	if explanation == "" {
		explanation = "Recommendations based on aggregated 4-week signals."
	}
	return recs, explanation
}

func (m MockAdapter) TeamInsights(ctx context.Context, req TeamInsightsRequest) (TeamInsightsResponse, error) {
	if err := ctx.Err(); err != nil {
		return TeamInsightsResponse{}, err
	}
	total := req.TotalEmployees
	var insights []TeamInsight

	if total > 0 && req.HighBurnoutCount > 0 {
		insights = append(insights, TeamInsight{
			Title:       "Workload Pressure Signals",
			Description: fmt.Sprintf("%d of %d employees show elevated burnout risk driven by %s.", req.HighBurnoutCount, total, focusOf(req.TopBurnoutFeatures, "workload signals")),
			Type:        "team_shift",
			Level:       "team",
		})
	}
	if total > 0 && req.DecliningPerformanceCount > 0 {
		insights = append(insights, TeamInsight{
			Title:       "Performance Drag Emerging",
			Description: fmt.Sprintf("%d employees show declining performance linked to %s.", req.DecliningPerformanceCount, focusOf(req.TopPerformanceFeatures, "completion trends")),
			Type:        "pattern",
			Level:       "team",
		})
	}
	if total > 0 && req.HighPotentialCount > 0 {
		insights = append(insights, TeamInsight{
			Title:       "Growth Momentum",
			Description: fmt.Sprintf("%d employees show high growth potential tied to %s.", req.HighPotentialCount, focusOf(req.TopGrowthFeatures, "learning signals")),
			Type:        "alert_summary",
			Level:       "team",
		})
	}
	if len(insights) == 0 {
		insights = append(insights, TeamInsight{
			Title:       "Stable Team Signals",
			Description: "No major shifts detected in the latest 4-week window.",
			Type:        "team_shift",
			Level:       "team",
		})
	}
	return TeamInsightsResponse{Insights: insights}, nil
}

func focusOf(features []string, fallback string) string {
	if len(features) == 0 {
		return fallback
	}
	if len(features) > 2 {
		features = features[:2]
	}
	return strings.Join(features, ", ")
}
