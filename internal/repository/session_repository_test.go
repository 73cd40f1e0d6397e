package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicore/clinicore-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestSessionRepositoryListBySchedule(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "schedule_id", "day_of_week", "start_time", "end_time", "room_id", "employee_ids", "patient_ids", "created_at", "updated_at"}).
		AddRow("s1", "sched-1", "MONDAY", "09:00", "09:45", "r1", pq.StringArray{"e1"}, pq.StringArray{}, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, schedule_id, day_of_week, start_time, end_time, room_id, employee_ids, patient_ids, created_at, updated_at FROM sessions WHERE schedule_id = $1 ORDER BY day_of_week ASC, start_time ASC")).
		WithArgs("sched-1").
		WillReturnRows(rows)

	sessions, err := repo.ListBySchedule(context.Background(), "sched-1", models.SessionFilter{})
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, models.Monday, sessions[0].Day)
	assert.Equal(t, []string{"e1"}, []string(sessions[0].EmployeeIDs))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryListByScheduleWithFilters(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	rows := sqlmock.NewRows([]string{"id", "schedule_id", "day_of_week", "start_time", "end_time", "room_id", "employee_ids", "patient_ids", "created_at", "updated_at"})
	mock.ExpectQuery(regexp.QuoteMeta("WHERE schedule_id = $1 AND $2 = ANY(employee_ids) AND day_of_week = $3")).
		WithArgs("sched-1", "e1", string(models.Sunday)).
		WillReturnRows(rows)

	_, err := repo.ListBySchedule(context.Background(), "sched-1", models.SessionFilter{EmployeeID: "e1", Day: models.Sunday})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectExec("INSERT INTO sessions").
		WillReturnResult(sqlmock.NewResult(1, 1))

	session := &models.Session{
		ScheduleID:  "sched-1",
		Day:         models.Monday,
		StartTime:   "09:00",
		EndTime:     "09:45",
		RoomID:      "r1",
		EmployeeIDs: pq.StringArray{"e1"},
	}
	require.NoError(t, repo.Create(context.Background(), session))
	assert.NotEmpty(t, session.ID)
	assert.NotNil(t, session.PatientIDs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryUpdatePatients(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE sessions SET patient_ids = $2, updated_at = $3 WHERE id = $1")).
		WithArgs("s1", pq.Array([]string{"p1", "p2"}), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.UpdatePatients(context.Background(), "s1", []string{"p1", "p2"}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM sessions WHERE id = $1")).
		WithArgs("s1").
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.Delete(context.Background(), "s1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
