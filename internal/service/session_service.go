package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/clinicore/clinicore-api/internal/models"
	"github.com/clinicore/clinicore-api/internal/validation"
	appErrors "github.com/clinicore/clinicore-api/pkg/errors"
)

type sessionRepository interface {
	ListBySchedule(ctx context.Context, scheduleID string, filter models.SessionFilter) ([]models.Session, error)
	FindByID(ctx context.Context, id string) (*models.Session, error)
	Create(ctx context.Context, session *models.Session) error
	Update(ctx context.Context, session *models.Session) error
	UpdatePatients(ctx context.Context, id string, patientIDs []string) error
	Delete(ctx context.Context, id string) error
}

type sessionScheduleReader interface {
	FindByID(ctx context.Context, id string) (*models.Schedule, error)
}

type sessionEmployeeReader interface {
	FindByIDs(ctx context.Context, ids []string) (map[string]models.Employee, error)
}

type sessionRoomReader interface {
	ListActive(ctx context.Context) (map[string]models.Room, error)
}

type sessionActivityReader interface {
	ListActive(ctx context.Context) ([]models.Activity, error)
}

type sessionPatientReader interface {
	FindByID(ctx context.Context, id string) (*models.Patient, error)
}

// CreateSessionRequest describes payload for placing a session on a schedule.
type CreateSessionRequest struct {
	Day         string   `json:"day_of_week" validate:"required"`
	StartTime   string   `json:"start_time" validate:"required"`
	EndTime     string   `json:"end_time" validate:"required"`
	RoomID      string   `json:"room_id" validate:"required"`
	EmployeeIDs []string `json:"employee_ids"`
	PatientIDs  []string `json:"patient_ids"`
	Force       bool     `json:"-"`
}

// UpdateSessionRequest moves or re-staffs an existing session.
type UpdateSessionRequest struct {
	Day         string   `json:"day_of_week" validate:"required"`
	StartTime   string   `json:"start_time" validate:"required"`
	EndTime     string   `json:"end_time" validate:"required"`
	RoomID      string   `json:"room_id" validate:"required"`
	EmployeeIDs []string `json:"employee_ids"`
	Force       bool     `json:"-"`
}

// AssignPatientsRequest replaces the patient list of a session.
type AssignPatientsRequest struct {
	PatientIDs []string `json:"patient_ids" validate:"required"`
	Force      bool     `json:"-"`
}

// SessionService coordinates session placement, staffing and patient
// assignment against the constraint engine.
type SessionService struct {
	repo       sessionRepository
	schedules  sessionScheduleReader
	employees  sessionEmployeeReader
	rooms      sessionRoomReader
	activities sessionActivityReader
	patients   sessionPatientReader
	engine     *validation.Engine
	validator  *validator.Validate
	logger     *zap.Logger
	cache      *CacheService
	metrics    *MetricsService
	audit      *AuditService
}

// NewSessionService instantiates SessionService.
func NewSessionService(
	repo sessionRepository,
	schedules sessionScheduleReader,
	employees sessionEmployeeReader,
	rooms sessionRoomReader,
	activities sessionActivityReader,
	patients sessionPatientReader,
	engine *validation.Engine,
	validate *validator.Validate,
	logger *zap.Logger,
	cache *CacheService,
	metrics *MetricsService,
	audit *AuditService,
) *SessionService {
	if engine == nil {
		engine = validation.NewEngine(validation.Config{})
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{
		repo:       repo,
		schedules:  schedules,
		employees:  employees,
		rooms:      rooms,
		activities: activities,
		patients:   patients,
		engine:     engine,
		validator:  validate,
		logger:     logger,
		cache:      cache,
		metrics:    metrics,
		audit:      audit,
	}
}

func sessionsCacheKey(scheduleID string) string {
	return fmt.Sprintf("schedule:%s:sessions", scheduleID)
}

// ListBySchedule returns the sessions of a schedule, optionally filtered by
// employee, patient or day.
func (s *SessionService) ListBySchedule(ctx context.Context, scheduleID string, filter models.SessionFilter) ([]models.Session, error) {
	if _, err := s.schedules.FindByID(ctx, scheduleID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}
	sessions, err := s.repo.ListBySchedule(ctx, scheduleID, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sessions")
	}
	return sessions, nil
}

// Get loads a single session.
func (s *SessionService) Get(ctx context.Context, id string) (*models.Session, error) {
	session, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	return session, nil
}

// Create places a new session on the schedule after running the full
// placement pipeline and, for each requested patient, the assignment pipeline.
func (s *SessionService) Create(ctx context.Context, scheduleID string, req CreateSessionRequest, actorID string) (*models.Session, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid session payload")
	}
	if _, err := s.schedules.FindByID(ctx, scheduleID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}

	candidate := models.Session{
		ScheduleID:  scheduleID,
		Day:         models.Weekday(req.Day),
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		RoomID:      req.RoomID,
		EmployeeIDs: pq.StringArray(req.EmployeeIDs),
		PatientIDs:  pq.StringArray(req.PatientIDs),
	}

	scope, err := s.loadScope(ctx, scheduleID, req.EmployeeIDs)
	if err != nil {
		return nil, err
	}

	policy := validation.Strict
	if req.Force {
		policy = validation.Override
	}

	result := s.engine.ValidateSessionPlacement(candidate, scope, policy)
	s.metrics.RecordValidation("session_create", result.Code)
	if !result.Valid || result.Warning {
		return nil, constraintError(result)
	}

	for _, patientID := range req.PatientIDs {
		if err := s.checkPatient(ctx, patientID, candidate, scope, policy, "session_create"); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Create(ctx, &candidate); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create session")
	}
	s.invalidateSessions(ctx, scheduleID)
	s.audit.Record(ctx, actorID, models.AuditActionSessionCreate, "session", candidate.ID, nil, candidate)

	s.logger.Info("session created",
		zap.String("session_id", candidate.ID),
		zap.String("schedule_id", scheduleID),
		zap.String("day", string(candidate.Day)),
		zap.Bool("forced", req.Force))
	return &candidate, nil
}

// Update moves or re-staffs a session. The candidate keeps its own id so it is
// excluded from conflict detection, and every already-assigned patient is
// re-validated at the new time.
func (s *SessionService) Update(ctx context.Context, id string, req UpdateSessionRequest, actorID string) (*models.Session, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid session payload")
	}
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	candidate := *existing
	candidate.Day = models.Weekday(req.Day)
	candidate.StartTime = req.StartTime
	candidate.EndTime = req.EndTime
	candidate.RoomID = req.RoomID
	candidate.EmployeeIDs = pq.StringArray(req.EmployeeIDs)

	scope, err := s.loadScope(ctx, existing.ScheduleID, req.EmployeeIDs)
	if err != nil {
		return nil, err
	}

	policy := validation.Strict
	if req.Force {
		policy = validation.Override
	}

	result := s.engine.ValidateSessionPlacement(candidate, scope, policy)
	s.metrics.RecordValidation("session_update", result.Code)
	if !result.Valid || result.Warning {
		return nil, constraintError(result)
	}

	for _, patientID := range candidate.PatientIDs {
		if err := s.checkPatient(ctx, patientID, candidate, scope, policy, "session_update"); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Update(ctx, &candidate); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update session")
	}
	s.invalidateSessions(ctx, existing.ScheduleID)
	s.audit.Record(ctx, actorID, models.AuditActionSessionUpdate, "session", id, existing, candidate)
	return &candidate, nil
}

// UpdatePatients replaces the patient list of a session. Only patients not
// already assigned are validated; removals never need a pipeline run.
func (s *SessionService) UpdatePatients(ctx context.Context, id string, req AssignPatientsRequest, actorID string) (*models.Session, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid patient assignment payload")
	}
	session, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	scope, err := s.loadScope(ctx, session.ScheduleID, nil)
	if err != nil {
		return nil, err
	}

	policy := validation.Strict
	if req.Force {
		policy = validation.Override
	}

	for _, patientID := range req.PatientIDs {
		if session.HasPatient(patientID) {
			continue
		}
		if err := s.checkPatient(ctx, patientID, *session, scope, policy, "patients_assign"); err != nil {
			return nil, err
		}
	}

	if err := s.repo.UpdatePatients(ctx, id, req.PatientIDs); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign patients")
	}
	s.invalidateSessions(ctx, session.ScheduleID)

	previous := session.PatientIDs
	session.PatientIDs = pq.StringArray(req.PatientIDs)
	s.audit.Record(ctx, actorID, models.AuditActionPatientsAssign, "session", id,
		map[string]interface{}{"patient_ids": previous},
		map[string]interface{}{"patient_ids": session.PatientIDs})
	return session, nil
}

// AssignPatient adds a single patient to a session. Assigning an already
// present patient is a no-op.
func (s *SessionService) AssignPatient(ctx context.Context, id, patientID string, force bool, actorID string) (*models.Session, error) {
	session, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.HasPatient(patientID) {
		return session, nil
	}

	scope, err := s.loadScope(ctx, session.ScheduleID, nil)
	if err != nil {
		return nil, err
	}

	policy := validation.Strict
	if force {
		policy = validation.Override
	}
	if err := s.checkPatient(ctx, patientID, *session, scope, policy, "patient_assign"); err != nil {
		return nil, err
	}

	updated := append([]string{}, session.PatientIDs...)
	updated = append(updated, patientID)
	if err := s.repo.UpdatePatients(ctx, id, updated); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign patient")
	}
	s.invalidateSessions(ctx, session.ScheduleID)

	previous := session.PatientIDs
	session.PatientIDs = pq.StringArray(updated)
	s.audit.Record(ctx, actorID, models.AuditActionPatientsAssign, "session", id,
		map[string]interface{}{"patient_ids": previous},
		map[string]interface{}{"patient_ids": session.PatientIDs})
	return session, nil
}

// Delete removes a session.
func (s *SessionService) Delete(ctx context.Context, id string, actorID string) error {
	session, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete session")
	}
	s.invalidateSessions(ctx, session.ScheduleID)
	s.audit.Record(ctx, actorID, models.AuditActionSessionDelete, "session", id, session, nil)
	return nil
}

// checkPatient runs the assignment pipeline for one patient and maps the
// outcome to a transport error.
func (s *SessionService) checkPatient(ctx context.Context, patientID string, session models.Session, scope validation.Scope, policy validation.Policy, operation string) error {
	if _, err := s.patients.FindByID(ctx, patientID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("patient %s not found", patientID))
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load patient")
	}
	result := s.engine.ValidatePatientAssignment(patientID, session, scope, policy)
	s.metrics.RecordValidation(operation, result.Code)
	if !result.Valid || result.Warning {
		return constraintError(result)
	}
	return nil
}

// loadScope builds the snapshot a validation run operates on. The session list
// is served from cache when possible; catalog lookups always hit the store so
// deactivations take effect immediately.
func (s *SessionService) loadScope(ctx context.Context, scheduleID string, employeeIDs []string) (validation.Scope, error) {
	scope := validation.Scope{Employees: map[string]models.Employee{}}

	if len(employeeIDs) > 0 {
		employees, err := s.employees.FindByIDs(ctx, employeeIDs)
		if err != nil {
			return scope, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load employees")
		}
		scope.Employees = employees
	}

	rooms, err := s.rooms.ListActive(ctx)
	if err != nil {
		return scope, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rooms")
	}
	scope.Rooms = rooms

	activities, err := s.activities.ListActive(ctx)
	if err != nil {
		return scope, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load activities")
	}
	scope.Activities = activities

	sessions, err := s.loadScheduleSessions(ctx, scheduleID)
	if err != nil {
		return scope, err
	}
	scope.Sessions = sessions
	return scope, nil
}

func (s *SessionService) loadScheduleSessions(ctx context.Context, scheduleID string) ([]models.Session, error) {
	key := sessionsCacheKey(scheduleID)
	var cached []models.Session
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return cached, nil
	}
	sessions, err := s.repo.ListBySchedule(ctx, scheduleID, models.SessionFilter{})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sessions")
	}
	if err := s.cache.Set(ctx, key, sessions, 0); err != nil {
		s.logger.Warn("session snapshot cache write failed", zap.String("schedule_id", scheduleID), zap.Error(err))
	}
	return sessions, nil
}

func (s *SessionService) invalidateSessions(ctx context.Context, scheduleID string) {
	if err := s.cache.Invalidate(ctx, sessionsCacheKey(scheduleID)); err != nil {
		s.logger.Warn("session snapshot invalidation failed", zap.String("schedule_id", scheduleID), zap.Error(err))
	}
}

// constraintError maps an engine result onto the transport error model. The
// wrapped ConstraintViolationError keeps the engine code and chain length
// available to handlers via errors.As.
func constraintError(result validation.Result) error {
	violation := &models.ConstraintViolationError{
		Code:             result.Code,
		Message:          result.Message,
		ConsecutiveCount: result.ConsecutiveCount,
	}
	switch result.Code {
	case validation.CodeBlockingOverlap:
		return appErrors.Wrap(violation, appErrors.ErrBlockingOverlap.Code, appErrors.ErrBlockingOverlap.Status, result.Message)
	case validation.CodePatientTimeConflict:
		return appErrors.Wrap(violation, appErrors.ErrPatientTimeConflict.Code, appErrors.ErrPatientTimeConflict.Status, result.Message)
	case validation.CodeTooManyConsecutive:
		return appErrors.Wrap(violation, appErrors.ErrConsecutiveSessions.Code, appErrors.ErrConsecutiveSessions.Status, result.Message)
	case validation.CodeInvalidInput, validation.CodeNoEmployeeAssigned,
		validation.CodeEmployeeNotFound, validation.CodeRoomNotFound:
		return appErrors.Wrap(violation, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, result.Message)
	default:
		return appErrors.Wrap(violation, appErrors.ErrScheduleConstraint.Code, appErrors.ErrScheduleConstraint.Status, result.Message)
	}
}
