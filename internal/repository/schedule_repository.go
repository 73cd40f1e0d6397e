package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/clinicore/clinicore-api/internal/models"
)

// ScheduleRepository provides persistence for week schedules.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository creates a new schedule repository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

const scheduleColumns = "id, name, is_active, created_at, updated_at"

// List returns schedules with optional filtering and pagination.
func (r *ScheduleRepository) List(ctx context.Context, filter models.ScheduleFilter) ([]models.Schedule, int, error) {
	base := "FROM schedules WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("is_active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}

	query := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d", scheduleColumns, base, size, (page-1)*size)
	var schedules []models.Schedule
	if err := r.db.SelectContext(ctx, &schedules, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list schedules: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count schedules: %w", err)
	}
	return schedules, total, nil
}

// FindByID loads a schedule by id.
func (r *ScheduleRepository) FindByID(ctx context.Context, id string) (*models.Schedule, error) {
	query := fmt.Sprintf("SELECT %s FROM schedules WHERE id = $1", scheduleColumns)
	var schedule models.Schedule
	if err := r.db.GetContext(ctx, &schedule, query, id); err != nil {
		return nil, err
	}
	return &schedule, nil
}

// FindActive loads the currently active schedule.
func (r *ScheduleRepository) FindActive(ctx context.Context) (*models.Schedule, error) {
	query := fmt.Sprintf("SELECT %s FROM schedules WHERE is_active = TRUE LIMIT 1", scheduleColumns)
	var schedule models.Schedule
	if err := r.db.GetContext(ctx, &schedule, query); err != nil {
		return nil, err
	}
	return &schedule, nil
}

// Create stores a new schedule and makes it the single active one.
func (r *ScheduleRepository) Create(ctx context.Context, schedule *models.Schedule) error {
	if schedule.ID == "" {
		schedule.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if schedule.CreatedAt.IsZero() {
		schedule.CreatedAt = now
	}
	schedule.UpdatedAt = now
	schedule.IsActive = true

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create schedule: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `UPDATE schedules SET is_active = FALSE, updated_at = $1 WHERE is_active = TRUE`, now); err != nil {
		return fmt.Errorf("deactivate schedules: %w", err)
	}
	if _, err = tx.NamedExecContext(ctx, `INSERT INTO schedules (id, name, is_active, created_at, updated_at) VALUES (:id, :name, :is_active, :created_at, :updated_at)`, schedule); err != nil {
		return fmt.Errorf("create schedule: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create schedule: %w", err)
	}
	return nil
}

// Activate marks the schedule active and deactivates every other one in the
// same transaction, preserving the single-active invariant.
func (r *ScheduleRepository) Activate(ctx context.Context, id string) error {
	now := time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin activate schedule: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `UPDATE schedules SET is_active = FALSE, updated_at = $1 WHERE is_active = TRUE AND id <> $2`, now, id); err != nil {
		return fmt.Errorf("deactivate schedules: %w", err)
	}
	var updated int
	if err = tx.GetContext(ctx, &updated, `UPDATE schedules SET is_active = TRUE, updated_at = $1 WHERE id = $2 RETURNING 1`, now, id); err != nil {
		return fmt.Errorf("activate schedule: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit activate schedule: %w", err)
	}
	return nil
}

// Delete removes a schedule and its sessions.
func (r *ScheduleRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete schedule: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM sessions WHERE schedule_id = $1`, id); err != nil {
		return fmt.Errorf("delete schedule sessions: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM schedules WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete schedule: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit delete schedule: %w", err)
	}
	return nil
}
