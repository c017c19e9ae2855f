package service

import (
	"math"
	"time"

	"github.com/pulseai/backend/internal/models"
)

const DefaultFractionThreshold = 1.5

// Normalizer rescales raw engagement and collaboration scores onto 0-100. Values at or
// below FractionThreshold are read as fractions.
type Normalizer struct {
	FractionThreshold float64
}

func (n Normalizer) threshold() float64 {
	if n.FractionThreshold <= 0 {
		return DefaultFractionThreshold
	}
	return n.FractionThreshold
}

func (n Normalizer) Normalize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	if v <= n.threshold() {
		v *= 100
	}
	return clamp100(v)
}

// NormalizeScore applies the default 1.5 threshold.
func NormalizeScore(v float64) float64 {
	return Normalizer{}.Normalize(v)
}

func clamp100(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(100, v))
}

func floorInt(v int) int {
	if v < 0 {
		return 0
	}
	return v
}

func floorFloat(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	return v
}

// DeriveStretchAssignments estimates stretch work from learning time when the source
// does not report it.
func DeriveStretchAssignments(learningHours float64) int {
	v := math.Round(floorFloat(learningHours) / 2)
	return int(math.Max(0, math.Min(3, v)))
}

// CalculateHealthScore derives the bounded score snapshot for one week using the
// default normalizer.
func CalculateHealthScore(m models.WeeklyMetric) models.HealthScore {
	return Normalizer{}.HealthScore(m)
}

func (n Normalizer) HealthScore(m models.WeeklyMetric) models.HealthScore {
	assigned := float64(floorInt(m.TasksAssigned))
	completed := float64(floorInt(m.TasksCompleted))
	missed := float64(floorInt(m.MissedDeadlines))
	stretch := float64(floorInt(m.StretchAssignments))
	meetings := floorFloat(m.MeetingHours)

	var completionRatio, missRate float64
	if assigned > 0 {
		completionRatio = completed / assigned
		missRate = missed / assigned
	}

	engagement := n.Normalize(m.EngagementScore)
	collaboration := n.Normalize(m.CollaborationScore)

	workload := clamp100((assigned/40)*70 + (meetings/10)*20 + (stretch/5)*10)
	performance := clamp100(completionRatio*100*0.6 + engagement*0.2 + collaboration*0.2 - missRate*100*0.2)
	burnout := clamp100(workload*0.45 + missRate*100*0.25 + (100-engagement)*0.2 + (100-collaboration)*0.1)

	return models.HealthScore{
		EmployeeID:       m.EmployeeID,
		Date:             m.WeekStart,
		BurnoutRisk:      int(math.Round(burnout)),
		EngagementScore:  int(math.Round(engagement)),
		PerformanceScore: int(math.Round(performance)),
		WorkloadScore:    int(math.Round(workload)),
		UpdatedAt:        time.Now().UTC(),
	}
}
