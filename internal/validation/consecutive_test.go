package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/clinicore/clinicore-api/internal/models"
)

func daySession(id, start, end string) models.Session {
	return models.Session{ID: id, Day: models.Monday, StartTime: start, EndTime: end}
}

func TestConsecutiveCountChain(t *testing.T) {
	existing := []models.Session{
		daySession("s1", "08:15", "09:00"),
		daySession("s2", "07:30", "08:15"),
	}
	candidate := daySession("", "09:00", "09:45")

	assert.Equal(t, 3, ConsecutiveCount(candidate, existing, 15))
}

func TestConsecutiveCountBrokenBySixteenMinuteGap(t *testing.T) {
	existing := []models.Session{
		daySession("s1", "08:15", "09:00"),
		daySession("s2", "07:30", "08:15"),
	}
	candidate := daySession("", "09:16", "10:00")

	assert.Equal(t, 1, ConsecutiveCount(candidate, existing, 15))
}

func TestConsecutiveCountExactGapBreaksChain(t *testing.T) {
	existing := []models.Session{daySession("s1", "08:00", "09:00")}

	// 15 minutes is a break, 14 is not.
	assert.Equal(t, 1, ConsecutiveCount(daySession("", "09:15", "10:00"), existing, 15))
	assert.Equal(t, 2, ConsecutiveCount(daySession("", "09:14", "10:00"), existing, 15))
}

func TestConsecutiveCountZeroGapIsConsecutive(t *testing.T) {
	existing := []models.Session{daySession("s1", "09:00", "09:45")}

	assert.Equal(t, 2, ConsecutiveCount(daySession("", "08:15", "09:00"), existing, 15))
}

func TestConsecutiveCountWalksBothDirectionsIndependently(t *testing.T) {
	// Break before the candidate, chain after it: the forward walk still counts.
	existing := []models.Session{
		daySession("s1", "07:00", "07:30"),
		daySession("s2", "09:45", "10:30"),
		daySession("s3", "10:30", "11:15"),
	}
	candidate := daySession("", "09:00", "09:45")

	assert.Equal(t, 3, ConsecutiveCount(candidate, existing, 15))
}

func TestConsecutiveCountCandidateAlone(t *testing.T) {
	assert.Equal(t, 1, ConsecutiveCount(daySession("", "09:00", "09:45"), nil, 15))
}

func TestConsecutiveCountIgnoresOtherDaysAndSelf(t *testing.T) {
	existing := []models.Session{
		{ID: "self", Day: models.Monday, StartTime: "09:00", EndTime: "09:45"},
		{ID: "tue", Day: models.Tuesday, StartTime: "09:45", EndTime: "10:30"},
	}
	candidate := models.Session{ID: "self", Day: models.Monday, StartTime: "09:00", EndTime: "09:45"}

	assert.Equal(t, 1, ConsecutiveCount(candidate, existing, 15))
}
