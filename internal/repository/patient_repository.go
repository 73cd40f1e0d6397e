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

// PatientRepository provides persistence for patients.
type PatientRepository struct {
	db *sqlx.DB
}

// NewPatientRepository creates a new patient repository.
func NewPatientRepository(db *sqlx.DB) *PatientRepository {
	return &PatientRepository{db: db}
}

const patientColumns = "id, full_name, role_targets, active, created_at, updated_at"

// List returns patients with optional filtering and pagination.
func (r *PatientRepository) List(ctx context.Context, filter models.PatientFilter) ([]models.Patient, int, error) {
	base := "FROM patients WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("full_name ILIKE $%d", len(args)+1))
		args = append(args, "%"+filter.Search+"%")
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY full_name ASC LIMIT %d OFFSET %d", patientColumns, base, size, (page-1)*size)
	var patients []models.Patient
	if err := r.db.SelectContext(ctx, &patients, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list patients: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count patients: %w", err)
	}
	return patients, total, nil
}

// FindByID loads a patient by id.
func (r *PatientRepository) FindByID(ctx context.Context, id string) (*models.Patient, error) {
	query := fmt.Sprintf("SELECT %s FROM patients WHERE id = $1", patientColumns)
	var patient models.Patient
	if err := r.db.GetContext(ctx, &patient, query, id); err != nil {
		return nil, err
	}
	return &patient, nil
}

// Create stores a new patient record.
func (r *PatientRepository) Create(ctx context.Context, patient *models.Patient) error {
	if patient.ID == "" {
		patient.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if patient.CreatedAt.IsZero() {
		patient.CreatedAt = now
	}
	patient.UpdatedAt = now

	const query = `INSERT INTO patients (id, full_name, role_targets, active, created_at, updated_at) VALUES (:id, :full_name, :role_targets, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, patient); err != nil {
		return fmt.Errorf("create patient: %w", err)
	}
	return nil
}

// Update modifies a patient record.
func (r *PatientRepository) Update(ctx context.Context, patient *models.Patient) error {
	patient.UpdatedAt = time.Now().UTC()
	const query = `UPDATE patients SET full_name = :full_name, role_targets = :role_targets, active = :active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, patient); err != nil {
		return fmt.Errorf("update patient: %w", err)
	}
	return nil
}

// Deactivate marks a patient inactive.
func (r *PatientRepository) Deactivate(ctx context.Context, id string) error {
	const query = `UPDATE patients SET active = FALSE, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("deactivate patient: %w", err)
	}
	return nil
}
