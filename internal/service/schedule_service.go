package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/clinicore/clinicore-api/internal/models"
	appErrors "github.com/clinicore/clinicore-api/pkg/errors"
)

type scheduleRepository interface {
	List(ctx context.Context, filter models.ScheduleFilter) ([]models.Schedule, int, error)
	FindByID(ctx context.Context, id string) (*models.Schedule, error)
	FindActive(ctx context.Context) (*models.Schedule, error)
	Create(ctx context.Context, schedule *models.Schedule) error
	Activate(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

// CreateScheduleRequest describes payload for creating a planning week.
type CreateScheduleRequest struct {
	Name string `json:"name" validate:"required,min=1,max=120"`
}

// ScheduleService manages planning weeks and the single-active invariant.
type ScheduleService struct {
	repo      scheduleRepository
	validator *validator.Validate
	logger    *zap.Logger
	cache     *CacheService
	audit     *AuditService
}

// NewScheduleService instantiates ScheduleService.
func NewScheduleService(repo scheduleRepository, validate *validator.Validate, logger *zap.Logger, cache *CacheService, audit *AuditService) *ScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{repo: repo, validator: validate, logger: logger, cache: cache, audit: audit}
}

// List returns schedules with pagination metadata.
func (s *ScheduleService) List(ctx context.Context, filter models.ScheduleFilter) ([]models.Schedule, *models.Pagination, error) {
	schedules, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schedules")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return schedules, pagination, nil
}

// Get loads one schedule.
func (s *ScheduleService) Get(ctx context.Context, id string) (*models.Schedule, error) {
	schedule, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}
	return schedule, nil
}

// GetActive returns the currently active schedule.
func (s *ScheduleService) GetActive(ctx context.Context) (*models.Schedule, error) {
	schedule, err := s.repo.FindActive(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no active schedule")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load active schedule")
	}
	return schedule, nil
}

// Create stores a new empty schedule and makes it the active one.
func (s *ScheduleService) Create(ctx context.Context, req CreateScheduleRequest, actorID string) (*models.Schedule, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}
	schedule := &models.Schedule{Name: req.Name}
	if err := s.repo.Create(ctx, schedule); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create schedule")
	}
	s.audit.Record(ctx, actorID, models.AuditActionScheduleSwitch, "schedule", schedule.ID, nil, schedule)
	s.logger.Info("schedule created", zap.String("schedule_id", schedule.ID), zap.String("name", schedule.Name))
	return schedule, nil
}

// Activate switches the active schedule.
func (s *ScheduleService) Activate(ctx context.Context, id string, actorID string) (*models.Schedule, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	if err := s.repo.Activate(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to activate schedule")
	}
	schedule, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, actorID, models.AuditActionScheduleSwitch, "schedule", id, nil, schedule)
	s.logger.Info("schedule activated", zap.String("schedule_id", id))
	return schedule, nil
}

// Delete removes a schedule together with its sessions.
func (s *ScheduleService) Delete(ctx context.Context, id string, actorID string) error {
	schedule, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete schedule")
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, sessionsCacheKey(id)); err != nil {
			s.logger.Warn("session snapshot invalidation failed", zap.String("schedule_id", id), zap.Error(err))
		}
	}
	s.audit.Record(ctx, actorID, models.AuditActionScheduleSwitch, "schedule", id, schedule, nil)
	return nil
}
