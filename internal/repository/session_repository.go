package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/clinicore/clinicore-api/internal/models"
)

// SessionRepository provides persistence for therapy sessions.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository creates a new session repository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

const sessionColumns = "id, schedule_id, day_of_week, start_time, end_time, room_id, employee_ids, patient_ids, created_at, updated_at"

// ListBySchedule returns all sessions of one schedule, optionally filtered.
func (r *SessionRepository) ListBySchedule(ctx context.Context, scheduleID string, filter models.SessionFilter) ([]models.Session, error) {
	base := "FROM sessions WHERE schedule_id = $1"
	args := []interface{}{scheduleID}
	var conditions []string

	if filter.EmployeeID != "" {
		conditions = append(conditions, fmt.Sprintf("$%d = ANY(employee_ids)", len(args)+1))
		args = append(args, filter.EmployeeID)
	}
	if filter.PatientID != "" {
		conditions = append(conditions, fmt.Sprintf("$%d = ANY(patient_ids)", len(args)+1))
		args = append(args, filter.PatientID)
	}
	if filter.Day != "" {
		conditions = append(conditions, fmt.Sprintf("day_of_week = $%d", len(args)+1))
		args = append(args, filter.Day)
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf("SELECT %s %s ORDER BY day_of_week ASC, start_time ASC", sessionColumns, base)
	var sessions []models.Session
	if err := r.db.SelectContext(ctx, &sessions, query, args...); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// FindByID loads a session by id.
func (r *SessionRepository) FindByID(ctx context.Context, id string) (*models.Session, error) {
	query := fmt.Sprintf("SELECT %s FROM sessions WHERE id = $1", sessionColumns)
	var session models.Session
	if err := r.db.GetContext(ctx, &session, query, id); err != nil {
		return nil, err
	}
	return &session, nil
}

// Create stores a new session record.
func (r *SessionRepository) Create(ctx context.Context, session *models.Session) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = now
	if session.PatientIDs == nil {
		session.PatientIDs = pq.StringArray{}
	}

	const query = `INSERT INTO sessions (id, schedule_id, day_of_week, start_time, end_time, room_id, employee_ids, patient_ids, created_at, updated_at) VALUES (:id, :schedule_id, :day_of_week, :start_time, :end_time, :room_id, :employee_ids, :patient_ids, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, session); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// Update modifies a session record. Sessions never move between schedules.
func (r *SessionRepository) Update(ctx context.Context, session *models.Session) error {
	session.UpdatedAt = time.Now().UTC()
	const query = `UPDATE sessions SET day_of_week = :day_of_week, start_time = :start_time, end_time = :end_time, room_id = :room_id, employee_ids = :employee_ids, patient_ids = :patient_ids, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, session); err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	return nil
}

// UpdatePatients replaces the patient assignment of a session.
func (r *SessionRepository) UpdatePatients(ctx context.Context, id string, patientIDs []string) error {
	const query = `UPDATE sessions SET patient_ids = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, pq.Array(patientIDs), time.Now().UTC()); err != nil {
		return fmt.Errorf("update session patients: %w", err)
	}
	return nil
}

// Delete removes a session record.
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
