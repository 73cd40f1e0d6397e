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

type activityRepository interface {
	List(ctx context.Context, filter models.ActivityFilter) ([]models.Activity, int, error)
	FindByID(ctx context.Context, id string) (*models.Activity, error)
	Create(ctx context.Context, activity *models.Activity) error
	Update(ctx context.Context, activity *models.Activity) error
	Delete(ctx context.Context, id string) error
}

// ActivityRequest describes payload for creating or updating an activity.
// Overrides use the wire convention of the grid: an explicit null clears the
// default window for that day, a window object replaces it.
type ActivityRequest struct {
	Name       string                   `json:"name" validate:"required,min=1,max=160"`
	IsBlocking bool                     `json:"is_blocking"`
	StartTime  *string                  `json:"start_time"`
	EndTime    *string                  `json:"end_time"`
	Overrides  models.ActivityOverrides `json:"overrides"`
	Active     *bool                    `json:"active"`
}

// ActivityService manages recurring activities and their per-day overrides.
type ActivityService struct {
	repo      activityRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewActivityService instantiates ActivityService.
func NewActivityService(repo activityRepository, validate *validator.Validate, logger *zap.Logger) *ActivityService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActivityService{repo: repo, validator: validate, logger: logger}
}

// List returns activities with pagination metadata.
func (s *ActivityService) List(ctx context.Context, filter models.ActivityFilter) ([]models.Activity, *models.Pagination, error) {
	activities, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list activities")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return activities, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get loads one activity.
func (s *ActivityService) Get(ctx context.Context, id string) (*models.Activity, error) {
	activity, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "activity not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load activity")
	}
	return activity, nil
}

// Create stores a new activity.
func (s *ActivityService) Create(ctx context.Context, req ActivityRequest) (*models.Activity, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	activity := &models.Activity{
		Name:       req.Name,
		IsBlocking: req.IsBlocking,
		StartTime:  req.StartTime,
		EndTime:    req.EndTime,
		Overrides:  req.Overrides,
		Active:     true,
	}
	if err := s.repo.Create(ctx, activity); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create activity")
	}
	return activity, nil
}

// Update modifies an existing activity.
func (s *ActivityService) Update(ctx context.Context, id string, req ActivityRequest) (*models.Activity, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	activity, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	activity.Name = req.Name
	activity.IsBlocking = req.IsBlocking
	activity.StartTime = req.StartTime
	activity.EndTime = req.EndTime
	activity.Overrides = req.Overrides
	if req.Active != nil {
		activity.Active = *req.Active
	}
	if err := s.repo.Update(ctx, activity); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update activity")
	}
	return activity, nil
}

// Delete removes an activity.
func (s *ActivityService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete activity")
	}
	return nil
}

func (s *ActivityService) validate(req ActivityRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid activity payload")
	}
	if (req.StartTime == nil) != (req.EndTime == nil) {
		return appErrors.Clone(appErrors.ErrValidation, "default window requires both start and end time")
	}
	if req.StartTime != nil {
		if err := validateWindow(*req.StartTime, *req.EndTime); err != nil {
			return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
		}
	}
	for day, override := range req.Overrides {
		if !day.Valid() {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid weekday %q in overrides", day))
		}
		if override.Cleared || override.Window == nil {
			continue
		}
		if err := validateWindow(override.Window.StartTime, override.Window.EndTime); err != nil {
			return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status,
				fmt.Sprintf("override for %s: %v", day, err))
		}
	}
	return nil
}

func validateWindow(startTime, endTime string) error {
	start, err := validation.ToMinutes(startTime)
	if err != nil {
		return err
	}
	end, err := validation.ToMinutes(endTime)
	if err != nil {
		return err
	}
	if end <= start {
		return fmt.Errorf("window must end after it starts")
	}
	return nil
}
