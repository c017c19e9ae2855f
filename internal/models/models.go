package models

import "time"

type Employee struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Team      string    `json:"team"`
	CreatedAt time.Time `json:"createdAt"`
}

type WeeklyMetric struct {
	ID                 int64     `json:"id"`
	EmployeeID         int64     `json:"employeeId"`
	WeekStart          time.Time `json:"weekStart"`
	TasksAssigned      int       `json:"tasksAssigned"`
	TasksCompleted     int       `json:"tasksCompleted"`
	MissedDeadlines    int       `json:"missedDeadlines"`
	MeetingHours       float64   `json:"meetingHours"`
	CollaborationScore float64   `json:"collaborationScore"`
	EngagementScore    float64   `json:"engagementScore"`
	LearningHours      float64   `json:"learningHours"`
	StretchAssignments int       `json:"stretchAssignments"`
	CreatedAt          time.Time `json:"createdAt"`
}

type HealthScore struct {
	EmployeeID       int64     `json:"employeeId"`
	Date             time.Time `json:"date"`
	BurnoutRisk      int       `json:"burnoutRisk"`
	EngagementScore  int       `json:"engagementScore"`
	PerformanceScore int       `json:"performanceScore"`
	WorkloadScore    int       `json:"workloadScore"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// TopFeatures holds the ordered feature names the model ranked highest per target.
type TopFeatures struct {
	Burnout     []string `json:"burnout"`
	Performance []string `json:"performance"`
	Growth      []string `json:"growth"`
}

type MlPrediction struct {
	ID                    int64       `json:"id"`
	EmployeeID            int64       `json:"employeeId"`
	WindowStart           time.Time   `json:"windowStart"`
	WindowEnd             time.Time   `json:"windowEnd"`
	BurnoutRisk           string      `json:"burnoutRisk"`
	BurnoutConfidence     float64     `json:"burnoutConfidence"`
	PerformanceTrend      string      `json:"performanceTrend"`
	PerformanceConfidence float64     `json:"performanceConfidence"`
	GrowthPotential       string      `json:"growthPotential"`
	GrowthConfidence      float64     `json:"growthConfidence"`
	TopFeatures           TopFeatures `json:"topFeatures"`
	Recommendations       []string    `json:"recommendations"`
	Explanation           string      `json:"explanation"`
	CreatedAt             time.Time   `json:"createdAt"`
}

type AlertStatus string

const (
	AlertActive    AlertStatus = "active"
	AlertDismissed AlertStatus = "dismissed"
	AlertResolved  AlertStatus = "resolved"
)

type Alert struct {
	ID          int64       `json:"id"`
	EmployeeID  int64       `json:"employeeId"`
	Type        string      `json:"type"`
	Reason      string      `json:"reason"`
	Confidence  string      `json:"confidence"`
	Status      AlertStatus `json:"status"`
	ActionTaken bool        `json:"actionTaken"`
	CreatedAt   time.Time   `json:"createdAt"`
	ResolvedAt  *time.Time  `json:"resolvedAt,omitempty"`
}

type Insight struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Type        string    `json:"type"`
	Level       string    `json:"level"`
	EmployeeID  *int64    `json:"employeeId,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}
