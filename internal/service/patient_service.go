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

type patientRepository interface {
	List(ctx context.Context, filter models.PatientFilter) ([]models.Patient, int, error)
	FindByID(ctx context.Context, id string) (*models.Patient, error)
	Create(ctx context.Context, patient *models.Patient) error
	Update(ctx context.Context, patient *models.Patient) error
	Deactivate(ctx context.Context, id string) error
}

// PatientRequest describes payload for creating or updating a patient.
type PatientRequest struct {
	FullName    string             `json:"full_name" validate:"required,min=1,max=160"`
	RoleTargets models.RoleTargets `json:"role_targets"`
	Active      *bool              `json:"active"`
}

// PatientService manages the patient catalog.
type PatientService struct {
	repo      patientRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPatientService instantiates PatientService.
func NewPatientService(repo patientRepository, validate *validator.Validate, logger *zap.Logger) *PatientService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PatientService{repo: repo, validator: validate, logger: logger}
}

// List returns patients with pagination metadata.
func (s *PatientService) List(ctx context.Context, filter models.PatientFilter) ([]models.Patient, *models.Pagination, error) {
	patients, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list patients")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return patients, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get loads one patient.
func (s *PatientService) Get(ctx context.Context, id string) (*models.Patient, error) {
	patient, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "patient not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load patient")
	}
	return patient, nil
}

// Create stores a new patient.
func (s *PatientService) Create(ctx context.Context, req PatientRequest) (*models.Patient, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid patient payload")
	}
	patient := &models.Patient{
		FullName:    req.FullName,
		RoleTargets: req.RoleTargets,
		Active:      true,
	}
	if err := s.repo.Create(ctx, patient); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create patient")
	}
	return patient, nil
}

// Update modifies an existing patient.
func (s *PatientService) Update(ctx context.Context, id string, req PatientRequest) (*models.Patient, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid patient payload")
	}
	patient, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	patient.FullName = req.FullName
	patient.RoleTargets = req.RoleTargets
	if req.Active != nil {
		patient.Active = *req.Active
	}
	if err := s.repo.Update(ctx, patient); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update patient")
	}
	return patient, nil
}

// Deactivate retires a patient without touching historic sessions.
func (s *PatientService) Deactivate(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate patient")
	}
	return nil
}
