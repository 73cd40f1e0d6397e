package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicore/clinicore-api/internal/models"
)

func window(start, end string) models.TimeRange {
	return models.TimeRange{StartTime: start, EndTime: end}
}

func testScope(sessions ...models.Session) Scope {
	return Scope{
		Employees: map[string]models.Employee{
			"e1": {ID: "e1", FullName: "Dana", WorkingHours: models.WorkingHours{
				models.Monday: window("08:00", "16:00"),
			}},
			"e2": {ID: "e2", FullName: "Omri", WorkingHours: models.WorkingHours{
				models.Monday: window("08:00", "16:00"),
			}},
		},
		Rooms:    map[string]models.Room{"r1": {ID: "r1", Active: true}, "r2": {ID: "r2", Active: true}},
		Sessions: sessions,
	}
}

func candidateSession(emp, room, start, end string) models.Session {
	return models.Session{
		Day:         models.Monday,
		StartTime:   start,
		EndTime:     end,
		RoomID:      room,
		EmployeeIDs: []string{emp},
	}
}

func TestValidateSessionPlacementValid(t *testing.T) {
	engine := NewEngine(Config{})

	result := engine.ValidateSessionPlacement(candidateSession("e1", "r1", "09:00", "09:45"), testScope(), Strict)
	require.True(t, result.Valid)
	assert.Empty(t, result.Code)
}

func TestValidateSessionPlacementNoEmployee(t *testing.T) {
	engine := NewEngine(Config{})
	candidate := candidateSession("e1", "r1", "09:00", "09:45")
	candidate.EmployeeIDs = nil

	result := engine.ValidateSessionPlacement(candidate, testScope(), Strict)
	require.False(t, result.Valid)
	assert.Equal(t, CodeNoEmployeeAssigned, result.Code)
}

func TestValidateSessionPlacementUnknownRoomAndEmployee(t *testing.T) {
	engine := NewEngine(Config{})

	result := engine.ValidateSessionPlacement(candidateSession("e1", "missing", "09:00", "09:45"), testScope(), Strict)
	assert.Equal(t, CodeRoomNotFound, result.Code)

	result = engine.ValidateSessionPlacement(candidateSession("missing", "r1", "09:00", "09:45"), testScope(), Strict)
	assert.Equal(t, CodeEmployeeNotFound, result.Code)
}

func TestValidateSessionPlacementWorkingHours(t *testing.T) {
	engine := NewEngine(Config{})

	result := engine.ValidateSessionPlacement(candidateSession("e1", "r1", "07:00", "07:45"), testScope(), Strict)
	require.False(t, result.Valid)
	assert.Equal(t, CodeOutsideWorkingHours, result.Code)

	nonWorkingDay := candidateSession("e1", "r1", "09:00", "09:45")
	nonWorkingDay.Day = models.Thursday
	result = engine.ValidateSessionPlacement(nonWorkingDay, testScope(), Strict)
	require.False(t, result.Valid)
	assert.Equal(t, CodeNotWorkingThisDay, result.Code)
}

func TestValidateSessionPlacementEmployeeBusy(t *testing.T) {
	engine := NewEngine(Config{})
	scope := testScope(models.Session{
		ID: "existing", Day: models.Monday, StartTime: "09:00", EndTime: "09:45",
		RoomID: "r2", EmployeeIDs: []string{"e1"},
	})

	result := engine.ValidateSessionPlacement(candidateSession("e1", "r1", "09:30", "10:15"), scope, Strict)
	require.False(t, result.Valid)
	assert.Equal(t, CodeEmployeeBusy, result.Code)
}

func TestValidateSessionPlacementRoomBusy(t *testing.T) {
	engine := NewEngine(Config{})
	scope := testScope(models.Session{
		ID: "existing", Day: models.Monday, StartTime: "09:00", EndTime: "09:45",
		RoomID: "r1", EmployeeIDs: []string{"e2"},
	})

	result := engine.ValidateSessionPlacement(candidateSession("e1", "r1", "09:30", "10:15"), scope, Strict)
	require.False(t, result.Valid)
	assert.Equal(t, CodeRoomBusy, result.Code)

	// Adjacent sessions in the same room are fine.
	result = engine.ValidateSessionPlacement(candidateSession("e1", "r1", "09:45", "10:30"), scope, Strict)
	assert.True(t, result.Valid)
}

func TestValidateSessionPlacementRoomBusyNotForceable(t *testing.T) {
	engine := NewEngine(Config{})
	scope := testScope(models.Session{
		ID: "existing", Day: models.Monday, StartTime: "09:00", EndTime: "09:45",
		RoomID: "r1", EmployeeIDs: []string{"e2"},
	})

	result := engine.ValidateSessionPlacement(candidateSession("e1", "r1", "09:30", "10:15"), scope, Override)
	require.False(t, result.Valid)
	assert.Equal(t, CodeRoomBusy, result.Code)
}

func TestValidateSessionPlacementBlockingActivity(t *testing.T) {
	engine := NewEngine(Config{})
	start, end := "12:00", "13:00"
	scope := testScope()
	scope.Activities = []models.Activity{{
		ID: "a1", Name: "lunch", IsBlocking: true, Active: true,
		StartTime: &start, EndTime: &end,
	}}

	candidate := candidateSession("e1", "r1", "12:15", "13:00")
	result := engine.ValidateSessionPlacement(candidate, scope, Strict)
	require.False(t, result.Valid)
	assert.Equal(t, CodeBlockingOverlap, result.Code)
	assert.True(t, result.Forceable)
	assert.False(t, result.Warning)

	// Forcing bypasses only the blocking check.
	result = engine.ValidateSessionPlacement(candidate, scope, Override)
	assert.True(t, result.Valid)
}

func TestValidateSessionPlacementBlockingClearedByOverride(t *testing.T) {
	engine := NewEngine(Config{})
	start, end := "12:00", "13:00"
	scope := testScope()
	scope.Activities = []models.Activity{{
		ID: "a1", Name: "lunch", IsBlocking: true, Active: true,
		StartTime: &start, EndTime: &end,
		Overrides: models.ActivityOverrides{models.Monday: {Cleared: true}},
	}}

	result := engine.ValidateSessionPlacement(candidateSession("e1", "r1", "12:15", "13:00"), scope, Strict)
	assert.True(t, result.Valid)
}

func TestValidateSessionPlacementNonBlockingActivityIgnored(t *testing.T) {
	engine := NewEngine(Config{})
	start, end := "12:00", "13:00"
	scope := testScope()
	scope.Activities = []models.Activity{{
		ID: "a1", Name: "open clinic", IsBlocking: false, Active: true,
		StartTime: &start, EndTime: &end,
	}}

	result := engine.ValidateSessionPlacement(candidateSession("e1", "r1", "12:15", "13:00"), scope, Strict)
	assert.True(t, result.Valid)
}

func TestValidateSessionPlacementMalformedInput(t *testing.T) {
	engine := NewEngine(Config{})

	result := engine.ValidateSessionPlacement(candidateSession("e1", "r1", "9am", "10am"), testScope(), Strict)
	require.False(t, result.Valid)
	assert.Equal(t, CodeInvalidInput, result.Code)

	result = engine.ValidateSessionPlacement(candidateSession("e1", "r1", "10:00", "09:00"), testScope(), Strict)
	assert.Equal(t, CodeInvalidInput, result.Code)

	bad := candidateSession("e1", "r1", "09:00", "09:45")
	bad.Day = "SATURDAY"
	result = engine.ValidateSessionPlacement(bad, testScope(), Strict)
	assert.Equal(t, CodeInvalidInput, result.Code)
}

func TestValidateSessionPlacementIdempotent(t *testing.T) {
	engine := NewEngine(Config{})
	scope := testScope(models.Session{
		ID: "existing", Day: models.Monday, StartTime: "09:00", EndTime: "09:45",
		RoomID: "r1", EmployeeIDs: []string{"e2"},
	})
	candidate := candidateSession("e1", "r1", "09:30", "10:15")

	first := engine.ValidateSessionPlacement(candidate, scope, Strict)
	second := engine.ValidateSessionPlacement(candidate, scope, Strict)
	assert.Equal(t, first, second)
}

func TestValidatePatientAssignmentConflict(t *testing.T) {
	engine := NewEngine(Config{})
	target := models.Session{ID: "t1", Day: models.Monday, StartTime: "09:00", EndTime: "09:45", RoomID: "r1"}
	scope := Scope{Sessions: []models.Session{
		{ID: "other", Day: models.Monday, StartTime: "09:30", EndTime: "10:15", PatientIDs: []string{"p1"}},
	}}

	result := engine.ValidatePatientAssignment("p1", target, scope, Strict)
	require.False(t, result.Valid)
	assert.Equal(t, CodePatientTimeConflict, result.Code)
	assert.True(t, result.Forceable)
	assert.False(t, result.Warning)

	// The override policy bypasses the patient conflict.
	result = engine.ValidatePatientAssignment("p1", target, scope, Override)
	assert.True(t, result.Valid)
}

func TestValidatePatientAssignmentConsecutiveWarning(t *testing.T) {
	engine := NewEngine(Config{})
	target := models.Session{ID: "t1", Day: models.Monday, StartTime: "09:00", EndTime: "09:45"}
	scope := Scope{Sessions: []models.Session{
		{ID: "s1", Day: models.Monday, StartTime: "08:15", EndTime: "09:00", PatientIDs: []string{"p1"}},
		{ID: "s2", Day: models.Monday, StartTime: "07:30", EndTime: "08:15", PatientIDs: []string{"p1"}},
	}}

	result := engine.ValidatePatientAssignment("p1", target, scope, Strict)
	require.False(t, result.Valid)
	assert.Equal(t, CodeTooManyConsecutive, result.Code)
	assert.True(t, result.Warning)
	assert.True(t, result.Forceable)
	assert.Equal(t, 3, result.ConsecutiveCount)

	result = engine.ValidatePatientAssignment("p1", target, scope, Override)
	assert.True(t, result.Valid)
}

func TestValidatePatientAssignmentWithinLimit(t *testing.T) {
	engine := NewEngine(Config{})
	target := models.Session{ID: "t1", Day: models.Monday, StartTime: "09:16", EndTime: "10:00"}
	scope := Scope{Sessions: []models.Session{
		{ID: "s1", Day: models.Monday, StartTime: "08:15", EndTime: "09:00", PatientIDs: []string{"p1"}},
		{ID: "s2", Day: models.Monday, StartTime: "07:30", EndTime: "08:15", PatientIDs: []string{"p1"}},
	}}

	result := engine.ValidatePatientAssignment("p1", target, scope, Strict)
	assert.True(t, result.Valid)
}
