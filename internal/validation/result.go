package validation

import "github.com/clinicore/clinicore-api/internal/models"

// Reason codes emitted by the validation pipelines. The last four are part of
// the external API contract and must not be renamed.
const (
	CodeInvalidInput        = "INVALID_INPUT"
	CodeNoEmployeeAssigned  = "NO_EMPLOYEE_ASSIGNED"
	CodeEmployeeNotFound    = "EMPLOYEE_NOT_FOUND"
	CodeRoomNotFound        = "ROOM_NOT_FOUND"
	CodeNotWorkingThisDay   = "NOT_WORKING_THIS_DAY"
	CodeOutsideWorkingHours = "OUTSIDE_WORKING_HOURS"
	CodeEmployeeBusy        = "EMPLOYEE_BUSY"
	CodeRoomBusy            = "ROOM_BUSY"

	CodeBlockingOverlap     = "BLOCKING_ACTIVITY_OVERLAP"
	CodePatientTimeConflict = "PATIENT_TIME_CONFLICT"
	CodeTooManyConsecutive  = "CONSECUTIVE_SESSIONS_VIOLATION"
)

// Result is the outcome of one validation pipeline run. Failures are values,
// never panics: the caller maps codes onto its transport error model.
type Result struct {
	Valid bool
	Code  string
	// Message is a human-readable reason suitable for direct display.
	Message string
	// Warning marks soft failures: the placement is workable but the caller
	// should confirm before persisting.
	Warning bool
	// Forceable marks results the override policy bypasses. Structural errors
	// and resource double-bookings are never forceable.
	Forceable bool
	// ConsecutiveCount carries the computed chain length for
	// CONSECUTIVE_SESSIONS_VIOLATION results.
	ConsecutiveCount int
}

// Policy selects between the strict validation variant and the caller-forced
// override variant that bypasses blocking-period and patient-level checks.
type Policy int

const (
	Strict Policy = iota
	Override
)

// Scope is the immutable snapshot one validation run operates on. Conflicts
// are only detected against Sessions, which must all belong to the candidate's
// schedule.
type Scope struct {
	Employees  map[string]models.Employee
	Rooms      map[string]models.Room
	Activities []models.Activity
	Sessions   []models.Session
}

func ok() Result {
	return Result{Valid: true}
}

func fail(code, message string) Result {
	return Result{Code: code, Message: message}
}
