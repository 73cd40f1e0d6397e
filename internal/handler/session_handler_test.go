package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicore/clinicore-api/internal/middleware"
	"github.com/clinicore/clinicore-api/internal/models"
	"github.com/clinicore/clinicore-api/internal/service"
	"github.com/clinicore/clinicore-api/internal/validation"
)

type sessionRepoStub struct {
	sessions map[string]*models.Session
}

func (s *sessionRepoStub) ListBySchedule(ctx context.Context, scheduleID string, filter models.SessionFilter) ([]models.Session, error) {
	var out []models.Session
	for _, session := range s.sessions {
		if session.ScheduleID == scheduleID {
			out = append(out, *session)
		}
	}
	return out, nil
}

func (s *sessionRepoStub) FindByID(ctx context.Context, id string) (*models.Session, error) {
	session, ok := s.sessions[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *session
	return &copied, nil
}

func (s *sessionRepoStub) Create(ctx context.Context, session *models.Session) error {
	session.ID = "created"
	s.sessions[session.ID] = session
	return nil
}

func (s *sessionRepoStub) Update(ctx context.Context, session *models.Session) error {
	s.sessions[session.ID] = session
	return nil
}

func (s *sessionRepoStub) UpdatePatients(ctx context.Context, id string, patientIDs []string) error {
	s.sessions[id].PatientIDs = pq.StringArray(patientIDs)
	return nil
}

func (s *sessionRepoStub) Delete(ctx context.Context, id string) error {
	delete(s.sessions, id)
	return nil
}

type scheduleReaderStub struct{}

func (scheduleReaderStub) FindByID(ctx context.Context, id string) (*models.Schedule, error) {
	if id != "sched-1" {
		return nil, sql.ErrNoRows
	}
	return &models.Schedule{ID: id, Name: "Week 36", IsActive: true}, nil
}

type employeeReaderStub struct{}

func (employeeReaderStub) FindByIDs(ctx context.Context, ids []string) (map[string]models.Employee, error) {
	hours := models.WorkingHours{}
	for _, day := range models.Weekdays {
		hours[day] = models.TimeRange{StartTime: "08:00", EndTime: "16:00"}
	}
	out := map[string]models.Employee{}
	for _, id := range ids {
		out[id] = models.Employee{ID: id, FullName: "Therapist " + id, WorkingHours: hours, Active: true}
	}
	return out, nil
}

type roomReaderStub struct{}

func (roomReaderStub) ListActive(ctx context.Context) (map[string]models.Room, error) {
	return map[string]models.Room{"r1": {ID: "r1", Name: "Room 1", Active: true}}, nil
}

type activityReaderStub struct {
	activities []models.Activity
}

func (a *activityReaderStub) ListActive(ctx context.Context) ([]models.Activity, error) {
	return a.activities, nil
}

type patientReaderStub struct{}

func (patientReaderStub) FindByID(ctx context.Context, id string) (*models.Patient, error) {
	return &models.Patient{ID: id, FullName: "Patient " + id, Active: true}, nil
}

func newSessionHandlerFixture(activities []models.Activity) (*SessionHandler, *sessionRepoStub) {
	repo := &sessionRepoStub{sessions: map[string]*models.Session{}}
	svc := service.NewSessionService(repo, scheduleReaderStub{}, employeeReaderStub{}, roomReaderStub{},
		&activityReaderStub{activities: activities}, patientReaderStub{},
		validation.NewEngine(validation.Config{}), nil, nil, nil, nil, nil)
	return NewSessionHandler(svc), repo
}

func performCreate(t *testing.T, handler *SessionHandler, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, err := http.NewRequest(http.MethodPost, target, bytes.NewBufferString(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "sched-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin", Role: models.RoleAdmin})
	handler.Create(c)
	return w
}

func TestSessionHandlerCreate(t *testing.T) {
	handler, repo := newSessionHandlerFixture(nil)

	body := `{"day_of_week":"MONDAY","start_time":"09:00","end_time":"09:45","room_id":"r1","employee_ids":["e1"]}`
	w := performCreate(t, handler, "/schedules/sched-1/sessions", body)

	require.Equal(t, http.StatusCreated, w.Code)
	var envelope struct {
		Data models.Session `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "created", envelope.Data.ID)
	assert.Len(t, repo.sessions, 1)
}

func TestSessionHandlerCreateBlockingConflict(t *testing.T) {
	start, end := "09:00", "10:00"
	handler, _ := newSessionHandlerFixture([]models.Activity{
		{ID: "a1", Name: "Staff Meeting", IsBlocking: true, StartTime: &start, EndTime: &end, Active: true},
	})

	body := `{"day_of_week":"MONDAY","start_time":"09:30","end_time":"10:15","room_id":"r1","employee_ids":["e1"]}`
	w := performCreate(t, handler, "/schedules/sched-1/sessions", body)

	require.Equal(t, http.StatusConflict, w.Code)
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
		Meta struct {
			Violation models.ConstraintViolationError `json:"violation"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "BLOCKING_ACTIVITY_OVERLAP", envelope.Error.Code)
	assert.Equal(t, "BLOCKING_ACTIVITY_OVERLAP", envelope.Meta.Violation.Code)
}

func TestSessionHandlerCreateForceBypassesBlocking(t *testing.T) {
	start, end := "09:00", "10:00"
	handler, repo := newSessionHandlerFixture([]models.Activity{
		{ID: "a1", Name: "Staff Meeting", IsBlocking: true, StartTime: &start, EndTime: &end, Active: true},
	})

	body := `{"day_of_week":"MONDAY","start_time":"09:30","end_time":"10:15","room_id":"r1","employee_ids":["e1"]}`
	w := performCreate(t, handler, "/schedules/sched-1/sessions?force=true", body)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Len(t, repo.sessions, 1)
}

func TestSessionHandlerCreateInvalidBody(t *testing.T) {
	handler, _ := newSessionHandlerFixture(nil)

	w := performCreate(t, handler, "/schedules/sched-1/sessions", `{"day_of_week":`)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSessionHandlerUpdatePatientsConsecutive(t *testing.T) {
	handler, repo := newSessionHandlerFixture(nil)
	repo.sessions["s1"] = &models.Session{
		ID: "s1", ScheduleID: "sched-1", Day: models.Monday, StartTime: "08:00", EndTime: "08:45",
		RoomID: "r1", EmployeeIDs: pq.StringArray{"e1"}, PatientIDs: pq.StringArray{"p1"},
	}
	repo.sessions["s2"] = &models.Session{
		ID: "s2", ScheduleID: "sched-1", Day: models.Monday, StartTime: "08:45", EndTime: "09:30",
		RoomID: "r1", EmployeeIDs: pq.StringArray{"e1"}, PatientIDs: pq.StringArray{"p1"},
	}
	repo.sessions["s3"] = &models.Session{
		ID: "s3", ScheduleID: "sched-1", Day: models.Monday, StartTime: "09:30", EndTime: "10:15",
		RoomID: "r1", EmployeeIDs: pq.StringArray{"e1"},
	}

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, err := http.NewRequest(http.MethodPut, "/sessions/s3/patients", bytes.NewBufferString(`{"patient_ids":["p1"]}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "s3"}}
	handler.UpdatePatients(c)

	require.Equal(t, http.StatusConflict, w.Code)
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
		Meta struct {
			Violation models.ConstraintViolationError `json:"violation"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "CONSECUTIVE_SESSIONS_VIOLATION", envelope.Error.Code)
	assert.Equal(t, 3, envelope.Meta.Violation.ConsecutiveCount)
}
