package service

import (
	"context"
	"testing"
	"time"

	"github.com/pulseai/backend/internal/db"
	"github.com/pulseai/backend/internal/models"
)

func TestLatestTeamHealthEmpty(t *testing.T) {
	store := db.NewMemoryStore()
	// a score older than the snapshot window must not count
	_ = store.UpsertHealthScore(context.Background(), models.HealthScore{
		EmployeeID: 1, Date: testNow.AddDate(0, 0, -10), BurnoutRisk: 90, PerformanceScore: 20,
	})
	svc := &TeamService{Store: store, Now: func() time.Time { return testNow }}

	snap, err := svc.LatestTeamHealth(context.Background())
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	want := TeamSnapshot{BurnoutLabel: "Low", GrowthLabel: "Steady", EngagementHealth: "Balanced"}
	if snap != want {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}

func TestSnapshotNoRowsDefaults(t *testing.T) {
	snap := Snapshot(nil)
	if snap.BurnoutRisk != 0 || snap.EngagementScore != 0 || snap.PerformanceScore != 0 || snap.WorkloadScore != 0 || snap.HealthScore != 0 {
		t.Fatalf("expected zero aggregate, got %+v", snap)
	}
	if snap.BurnoutLabel != "Low" || snap.GrowthLabel != "Steady" || snap.EngagementHealth != "Balanced" {
		t.Fatalf("expected default labels, got %+v", snap)
	}
}

func TestLatestTeamHealthPoolsRows(t *testing.T) {
	ctx := context.Background()
	store := db.NewMemoryStore()
	rows := []models.HealthScore{
		{EmployeeID: 1, Date: testNow.AddDate(0, 0, -1), BurnoutRisk: 80, EngagementScore: 90, PerformanceScore: 85, WorkloadScore: 70},
		{EmployeeID: 1, Date: testNow.AddDate(0, 0, -3), BurnoutRisk: 70, EngagementScore: 85, PerformanceScore: 90, WorkloadScore: 60},
		{EmployeeID: 2, Date: testNow.AddDate(0, 0, -2), BurnoutRisk: 65, EngagementScore: 88, PerformanceScore: 83, WorkloadScore: 65},
	}
	for _, r := range rows {
		if err := store.UpsertHealthScore(ctx, r); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}
	svc := &TeamService{Store: store, Now: func() time.Time { return testNow }}

	snap, err := svc.LatestTeamHealth(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.BurnoutRisk != 72 || snap.EngagementScore != 88 || snap.PerformanceScore != 86 || snap.WorkloadScore != 65 {
		t.Fatalf("unexpected means %+v", snap)
	}
	if snap.HealthScore != 87 {
		t.Fatalf("expected health score 87, got %d", snap.HealthScore)
	}
	if snap.BurnoutLabel != "High" || snap.GrowthLabel != "Emerging" || snap.EngagementHealth != "Balanced" {
		t.Fatalf("unexpected labels %+v", snap)
	}
	if snap.SampleSize != 3 {
		t.Fatalf("expected 3 samples, got %d", snap.SampleSize)
	}
}

func TestLabels(t *testing.T) {
	if BurnoutLabel(71) != "High" || BurnoutLabel(70) != "Medium" || BurnoutLabel(41) != "Medium" || BurnoutLabel(40) != "Low" {
		t.Fatalf("burnout thresholds wrong")
	}
	if GrowthLabel(81, 81) != "Emerging" || GrowthLabel(81, 80) != "Steady" || GrowthLabel(49, 90) != "Stalled" || GrowthLabel(50, 10) != "Steady" {
		t.Fatalf("growth thresholds wrong")
	}
	if EngagementHealthLabel(81, 10) != "Overloaded" || EngagementHealthLabel(80, 39) != "Disconnected" || EngagementHealthLabel(80, 40) != "Balanced" {
		t.Fatalf("engagement health thresholds wrong")
	}
}

func TestTeamHealthTrend(t *testing.T) {
	ctx := context.Background()
	store := db.NewMemoryStore()
	day := time.Date(2024, 5, 13, 0, 0, 0, 0, time.UTC)
	rows := []models.HealthScore{
		{EmployeeID: 1, Date: day, BurnoutRisk: 40, PerformanceScore: 70},
		{EmployeeID: 2, Date: day.Add(6 * time.Hour), BurnoutRisk: 60, PerformanceScore: 81},
		{EmployeeID: 1, Date: day.AddDate(0, 0, -7).Add(18 * time.Hour), BurnoutRisk: 30, PerformanceScore: 90},
		{EmployeeID: 1, Date: day.AddDate(0, 0, -30), BurnoutRisk: 99, PerformanceScore: 1},
	}
	for _, r := range rows {
		if err := store.UpsertHealthScore(ctx, r); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}
	svc := &TeamService{Store: store, Now: func() time.Time { return testNow }}

	trend, err := svc.TeamHealthTrend(ctx, 14)
	if err != nil {
		t.Fatalf("trend: %v", err)
	}
	if len(trend) != 2 {
		t.Fatalf("expected 2 buckets, got %+v", trend)
	}
	if trend[0].Date != "2024-05-06" || trend[1].Date != "2024-05-13" {
		t.Fatalf("buckets not sorted ascending: %+v", trend)
	}
	if trend[1].BurnoutRisk != 50 || trend[1].PerformanceScore != 76 || trend[1].Samples != 2 {
		t.Fatalf("unexpected bucket %+v", trend[1])
	}
}
