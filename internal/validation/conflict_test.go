package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/clinicore/clinicore-api/internal/models"
)

func TestFindConflictsExcludesSelfAndOtherDays(t *testing.T) {
	candidate := models.Session{ID: "c1", Day: models.Monday, StartTime: "09:00", EndTime: "10:00", RoomID: "r1"}
	existing := []models.Session{
		{ID: "c1", Day: models.Monday, StartTime: "09:00", EndTime: "10:00", RoomID: "r1"},
		{ID: "s2", Day: models.Tuesday, StartTime: "09:00", EndTime: "10:00", RoomID: "r1"},
		{ID: "s3", Day: models.Monday, StartTime: "09:30", EndTime: "10:30", RoomID: "r1"},
	}

	conflicts := RoomConflicts(candidate, existing)
	assert.Len(t, conflicts, 1)
	assert.Equal(t, "s3", conflicts[0].ID)
}

func TestFindConflictsAdjacentSessionsDoNotConflict(t *testing.T) {
	candidate := models.Session{ID: "c1", Day: models.Monday, StartTime: "09:00", EndTime: "10:00", RoomID: "r1"}
	existing := []models.Session{
		{ID: "before", Day: models.Monday, StartTime: "08:00", EndTime: "09:00", RoomID: "r1"},
		{ID: "after", Day: models.Monday, StartTime: "10:00", EndTime: "11:00", RoomID: "r1"},
	}

	assert.Empty(t, RoomConflicts(candidate, existing))
}

func TestEmployeeAndPatientConflictsMatchMembership(t *testing.T) {
	candidate := models.Session{ID: "c1", Day: models.Monday, StartTime: "09:00", EndTime: "10:00"}
	existing := []models.Session{
		{ID: "s1", Day: models.Monday, StartTime: "09:30", EndTime: "10:30",
			EmployeeIDs: []string{"e1", "e2"}, PatientIDs: []string{"p1"}},
	}

	assert.Len(t, EmployeeConflicts(candidate, existing, "e2"), 1)
	assert.Empty(t, EmployeeConflicts(candidate, existing, "e3"))
	assert.Len(t, PatientConflicts(candidate, existing, "p1"), 1)
	assert.Empty(t, PatientConflicts(candidate, existing, "p2"))
}
