package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/clinicore/clinicore-api/internal/models"
	"github.com/clinicore/clinicore-api/internal/validation"
	appErrors "github.com/clinicore/clinicore-api/pkg/errors"
)

type employeeRepository interface {
	List(ctx context.Context, filter models.EmployeeFilter) ([]models.Employee, int, error)
	FindByID(ctx context.Context, id string) (*models.Employee, error)
	Create(ctx context.Context, employee *models.Employee) error
	Update(ctx context.Context, employee *models.Employee) error
	Deactivate(ctx context.Context, id string) error
}

// CreateEmployeeRequest describes payload for creating an employee.
type CreateEmployeeRequest struct {
	FullName     string              `json:"full_name" validate:"required,min=1,max=160"`
	RoleKey      string              `json:"role_key" validate:"required,min=1,max=60"`
	WeeklyTarget int                 `json:"weekly_target" validate:"gte=0"`
	WorkingHours models.WorkingHours `json:"working_hours"`
}

// UpdateEmployeeRequest updates an existing employee.
type UpdateEmployeeRequest struct {
	FullName     string              `json:"full_name" validate:"required,min=1,max=160"`
	RoleKey      string              `json:"role_key" validate:"required,min=1,max=60"`
	WeeklyTarget int                 `json:"weekly_target" validate:"gte=0"`
	WorkingHours models.WorkingHours `json:"working_hours"`
	Active       *bool               `json:"active"`
}

// EmployeeService manages the employee catalog.
type EmployeeService struct {
	repo      employeeRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEmployeeService instantiates EmployeeService.
func NewEmployeeService(repo employeeRepository, validate *validator.Validate, logger *zap.Logger) *EmployeeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmployeeService{repo: repo, validator: validate, logger: logger}
}

// List returns employees with pagination metadata.
func (s *EmployeeService) List(ctx context.Context, filter models.EmployeeFilter) ([]models.Employee, *models.Pagination, error) {
	employees, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list employees")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return employees, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get loads one employee.
func (s *EmployeeService) Get(ctx context.Context, id string) (*models.Employee, error) {
	employee, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "employee not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load employee")
	}
	return employee, nil
}

// Create stores a new employee.
func (s *EmployeeService) Create(ctx context.Context, req CreateEmployeeRequest) (*models.Employee, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid employee payload")
	}
	if err := validateWorkingHours(req.WorkingHours); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	employee := &models.Employee{
		FullName:     req.FullName,
		RoleKey:      req.RoleKey,
		WeeklyTarget: req.WeeklyTarget,
		WorkingHours: req.WorkingHours,
		Active:       true,
	}
	if err := s.repo.Create(ctx, employee); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create employee")
	}
	return employee, nil
}

// Update modifies an existing employee.
func (s *EmployeeService) Update(ctx context.Context, id string, req UpdateEmployeeRequest) (*models.Employee, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid employee payload")
	}
	if err := validateWorkingHours(req.WorkingHours); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	employee, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	employee.FullName = req.FullName
	employee.RoleKey = req.RoleKey
	employee.WeeklyTarget = req.WeeklyTarget
	employee.WorkingHours = req.WorkingHours
	if req.Active != nil {
		employee.Active = *req.Active
	}
	if err := s.repo.Update(ctx, employee); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update employee")
	}
	return employee, nil
}

// Deactivate retires an employee without touching historic sessions.
func (s *EmployeeService) Deactivate(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate employee")
	}
	return nil
}

func validateWorkingHours(hours models.WorkingHours) error {
	for day, window := range hours {
		if !day.Valid() {
			return fmt.Errorf("invalid weekday %q in working hours", day)
		}
		start, err := validation.ToMinutes(window.StartTime)
		if err != nil {
			return fmt.Errorf("working hours for %s: %w", day, err)
		}
		end, err := validation.ToMinutes(window.EndTime)
		if err != nil {
			return fmt.Errorf("working hours for %s: %w", day, err)
		}
		if end <= start {
			return fmt.Errorf("working hours for %s must end after they start", day)
		}
	}
	return nil
}
