package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicore/clinicore-api/internal/models"
)

func TestScheduleRepositoryCreateDeactivatesOthers(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE schedules SET is_active = FALSE, updated_at = $1 WHERE is_active = TRUE")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO schedules").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	schedule := &models.Schedule{Name: "Week 36"}
	require.NoError(t, repo.Create(context.Background(), schedule))
	assert.True(t, schedule.IsActive)
	assert.NotEmpty(t, schedule.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryActivate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE schedules SET is_active = FALSE, updated_at = $1 WHERE is_active = TRUE AND id <> $2")).
		WithArgs(sqlmock.AnyArg(), "sched-2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE schedules SET is_active = TRUE, updated_at = $1 WHERE id = $2 RETURNING 1")).
		WithArgs(sqlmock.AnyArg(), "sched-2").
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectCommit()

	require.NoError(t, repo.Activate(context.Background(), "sched-2"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryFindActive(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, is_active, created_at, updated_at FROM schedules WHERE is_active = TRUE LIMIT 1")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "is_active", "created_at", "updated_at"}).
			AddRow("sched-1", "Week 36", true, now, now))

	schedule, err := repo.FindActive(context.Background())
	require.NoError(t, err)
	assert.True(t, schedule.IsActive)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryDeleteRemovesSessions(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM sessions WHERE schedule_id = $1")).
		WithArgs("sched-1").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM schedules WHERE id = $1")).
		WithArgs("sched-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), "sched-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
