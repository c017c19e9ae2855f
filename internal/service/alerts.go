package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/pulseai/backend/internal/db"
	"github.com/pulseai/backend/internal/metrics"
	"github.com/pulseai/backend/internal/models"
)

const (
	AlertTypeBurnout     = "burnout_risk"
	AlertTypePerformance = "performance_decline"
)

type AlertInput struct {
	EmployeeID int64  `json:"employeeId" validate:"required,gt=0"`
	Type       string `json:"type" validate:"required"`
	Reason     string `json:"reason" validate:"required"`
	Confidence string `json:"confidence" validate:"omitempty,oneof=High Medium Low"`
}

type AlertService struct {
	Store     db.Repository
	Validator *validator.Validate
	Logger    zerolog.Logger
	Now       func() time.Time
}

func (s *AlertService) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

func ConfidenceLabel(c float64) string {
	switch {
	case c >= 0.75:
		return "High"
	case c >= 0.5:
		return "Medium"
	default:
		return "Low"
	}
}

func (s *AlertService) Create(ctx context.Context, in AlertInput) (models.Alert, error) {
	in.Type = strings.TrimSpace(in.Type)
	in.Reason = strings.TrimSpace(in.Reason)
	if err := validatorOr(s.Validator).Struct(in); err != nil {
		return models.Alert{}, validationFailure(err, "")
	}
	if _, err := s.Store.GetEmployee(ctx, in.EmployeeID); err != nil {
		return models.Alert{}, fmt.Errorf("employee %d: %w", in.EmployeeID, err)
	}
	confidence := in.Confidence
	if confidence == "" {
		confidence = "Medium"
	}
	a, err := s.Store.CreateAlert(ctx, models.Alert{
		EmployeeID: in.EmployeeID,
		Type:       in.Type,
		Reason:     in.Reason,
		Confidence: confidence,
		Status:     models.AlertActive,
	})
	if err != nil {
		return models.Alert{}, err
	}
	metrics.RecordAlertCreated(a.Type)
	return a, nil
}

func (s *AlertService) List(ctx context.Context, status string, employeeID int64) ([]models.Alert, error) {
	switch models.AlertStatus(status) {
	case "", models.AlertActive, models.AlertDismissed, models.AlertResolved:
	default:
		return nil, invalid("status", "must be one of active, dismissed, resolved")
	}
	return s.Store.ListAlerts(ctx, status, employeeID)
}

// Resolve moves an active alert to resolved. Alerts never return to active.
func (s *AlertService) Resolve(ctx context.Context, id int64) (models.Alert, error) {
	a, ok, err := s.Store.ResolveAlert(ctx, id, s.now())
	if err != nil {
		return models.Alert{}, err
	}
	if !ok {
		return a, fmt.Errorf("alert %d is %s: %w", id, a.Status, ErrInvalidTransition)
	}
	return a, nil
}

// EvaluatePrediction raises alerts for a freshly saved prediction.
func (s *AlertService) EvaluatePrediction(ctx context.Context, p models.MlPrediction) ([]models.Alert, error) {
	var candidates []models.Alert
	if p.BurnoutRisk == "High" {
		candidates = append(candidates, models.Alert{
			EmployeeID: p.EmployeeID,
			Type:       AlertTypeBurnout,
			Reason:     withDrivers("Burnout risk is High", p.TopFeatures.Burnout),
			Confidence: ConfidenceLabel(p.BurnoutConfidence),
			Status:     models.AlertActive,
		})
	}
	if p.PerformanceTrend == "Declining" {
		candidates = append(candidates, models.Alert{
			EmployeeID: p.EmployeeID,
			Type:       AlertTypePerformance,
			Reason:     withDrivers("Performance trend is Declining", p.TopFeatures.Performance),
			Confidence: ConfidenceLabel(p.PerformanceConfidence),
			Status:     models.AlertActive,
		})
	}

	var (
		created []models.Alert
		errs    []error
	)
	for _, a := range candidates {
		saved, err := s.Store.CreateAlert(ctx, a)
		if err != nil {
			errs = append(errs, fmt.Errorf("create %s alert: %w", a.Type, err))
			continue
		}
		metrics.RecordAlertCreated(saved.Type)
		created = append(created, saved)
	}
	return created, errors.Join(errs...)
}

func withDrivers(reason string, features []string) string {
	if len(features) == 0 {
		return reason
	}
	return reason + " (drivers: " + strings.Join(features, ", ") + ")"
}
