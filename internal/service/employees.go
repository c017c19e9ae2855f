package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/pulseai/backend/internal/db"
	"github.com/pulseai/backend/internal/models"
)

type EmployeeInput struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role"`
	Team  string `json:"team"`
}

type EmployeeService struct {
	Store     db.Repository
	Validator *validator.Validate
}

func (s *EmployeeService) Create(ctx context.Context, in EmployeeInput) (models.Employee, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := validatorOr(s.Validator).Struct(in); err != nil {
		return models.Employee{}, validationFailure(err, "")
	}
	return s.Store.CreateEmployee(ctx, models.Employee{
		Name:  in.Name,
		Email: in.Email,
		Role:  strings.TrimSpace(in.Role),
		Team:  strings.TrimSpace(in.Team),
	})
}

func (s *EmployeeService) Get(ctx context.Context, id int64) (models.Employee, error) {
	return s.Store.GetEmployee(ctx, id)
}

func (s *EmployeeService) List(ctx context.Context) ([]models.Employee, error) {
	return s.Store.ListEmployees(ctx)
}
