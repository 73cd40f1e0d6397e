package validation

import (
	"fmt"

	"github.com/clinicore/clinicore-api/internal/models"
)

// Config tunes the engine thresholds.
type Config struct {
	// MaxConsecutive is the largest back-to-back chain a patient may reach
	// before the soft warning fires.
	MaxConsecutive int
	// GapMinutes is the break threshold between sessions; gaps strictly under
	// it keep a chain alive.
	GapMinutes int
}

// Engine runs the constraint validation pipelines. It is stateless: every
// call is a pure function of the candidate and the supplied scope snapshot,
// so one Engine may serve any number of concurrent callers.
type Engine struct {
	maxConsecutive int
	gapMinutes     int
}

// NewEngine builds an Engine, falling back to the default thresholds
// (chains of 2, 15 minute break) for unset values.
func NewEngine(cfg Config) *Engine {
	if cfg.MaxConsecutive <= 0 {
		cfg.MaxConsecutive = 2
	}
	if cfg.GapMinutes <= 0 {
		cfg.GapMinutes = 15
	}
	return &Engine{maxConsecutive: cfg.MaxConsecutive, gapMinutes: cfg.GapMinutes}
}

// ValidateSessionPlacement decides whether the candidate session may be placed
// on the schedule represented by the scope. Checks run in a fixed order and
// the first failure short-circuits the pipeline. The override policy bypasses
// only the blocking-activity check: double-booking an employee or a room is
// never permitted.
func (e *Engine) ValidateSessionPlacement(candidate models.Session, scope Scope, policy Policy) Result {
	if !candidate.Day.Valid() {
		return fail(CodeInvalidInput, fmt.Sprintf("invalid weekday %q", candidate.Day))
	}
	startMin, err := ToMinutes(candidate.StartTime)
	if err != nil {
		return fail(CodeInvalidInput, err.Error())
	}
	endMin, err := ToMinutes(candidate.EndTime)
	if err != nil {
		return fail(CodeInvalidInput, err.Error())
	}
	if endMin <= startMin {
		return fail(CodeInvalidInput, "session end must be after its start")
	}

	if len(candidate.EmployeeIDs) == 0 {
		return fail(CodeNoEmployeeAssigned, "session requires at least one employee")
	}

	if _, found := scope.Rooms[candidate.RoomID]; !found {
		return fail(CodeRoomNotFound, fmt.Sprintf("room %s not found", candidate.RoomID))
	}

	for _, employeeID := range candidate.EmployeeIDs {
		employee, found := scope.Employees[employeeID]
		if !found {
			return fail(CodeEmployeeNotFound, fmt.Sprintf("employee %s not found", employeeID))
		}
		if result := e.checkAvailability(employee, candidate.Day, startMin, endMin); !result.Valid {
			return result
		}
		if conflicts := EmployeeConflicts(candidate, scope.Sessions, employeeID); len(conflicts) > 0 {
			return fail(CodeEmployeeBusy, fmt.Sprintf("employee %s already has a session from %s to %s on %s",
				employee.FullName, conflicts[0].StartTime, conflicts[0].EndTime, candidate.Day))
		}
	}

	if conflicts := RoomConflicts(candidate, scope.Sessions); len(conflicts) > 0 {
		return fail(CodeRoomBusy, fmt.Sprintf("room is already booked from %s to %s on %s",
			conflicts[0].StartTime, conflicts[0].EndTime, candidate.Day))
	}

	if policy != Override {
		if blocked := FindBlockingOverlap(candidate.Day, startMin, endMin, scope.Activities); blocked != nil {
			return Result{
				Code:      CodeBlockingOverlap,
				Message:   fmt.Sprintf("session overlaps blocking activity %q", blocked.Name),
				Forceable: true,
			}
		}
	}

	return ok()
}

// ValidatePatientAssignment decides whether the patient may be assigned to the
// target session. Both checks are bypassed entirely by the override policy:
// the time-conflict check is a hard failure otherwise, while an excessive
// consecutive chain is a soft warning the caller may confirm.
func (e *Engine) ValidatePatientAssignment(patientID string, session models.Session, scope Scope, policy Policy) Result {
	if policy == Override {
		return ok()
	}

	if conflicts := PatientConflicts(session, scope.Sessions, patientID); len(conflicts) > 0 {
		return Result{
			Code: CodePatientTimeConflict,
			Message: fmt.Sprintf("patient already has a session from %s to %s on %s",
				conflicts[0].StartTime, conflicts[0].EndTime, session.Day),
			Forceable: true,
		}
	}

	sameDay := make([]models.Session, 0)
	for _, existing := range scope.Sessions {
		if existing.Day == session.Day && existing.HasPatient(patientID) {
			sameDay = append(sameDay, existing)
		}
	}
	count := ConsecutiveCount(session, sameDay, e.gapMinutes)
	if count > e.maxConsecutive {
		return Result{
			Code:             CodeTooManyConsecutive,
			Message:          fmt.Sprintf("patient would have %d consecutive sessions (limit %d)", count, e.maxConsecutive),
			Warning:          true,
			Forceable:        true,
			ConsecutiveCount: count,
		}
	}

	return ok()
}

func (e *Engine) checkAvailability(employee models.Employee, day models.Weekday, startMin, endMin int) Result {
	window, working := employee.WorkingHours[day]
	if !working {
		return fail(CodeNotWorkingThisDay, fmt.Sprintf("employee %s is not working on %s", employee.FullName, day))
	}
	windowStart, err := ToMinutes(window.StartTime)
	if err != nil {
		return fail(CodeInvalidInput, fmt.Sprintf("employee %s has malformed working hours: %v", employee.FullName, err))
	}
	windowEnd, err := ToMinutes(window.EndTime)
	if err != nil {
		return fail(CodeInvalidInput, fmt.Sprintf("employee %s has malformed working hours: %v", employee.FullName, err))
	}
	if startMin < windowStart || endMin > windowEnd {
		return fail(CodeOutsideWorkingHours, fmt.Sprintf("session is outside %s's working hours (%s-%s) on %s",
			employee.FullName, window.StartTime, window.EndTime, day))
	}
	return ok()
}
