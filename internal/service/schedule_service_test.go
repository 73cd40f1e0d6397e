package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicore/clinicore-api/internal/models"
	appErrors "github.com/clinicore/clinicore-api/pkg/errors"
)

type mockScheduleRepo struct {
	schedules map[string]*models.Schedule
}

func (m *mockScheduleRepo) List(ctx context.Context, filter models.ScheduleFilter) ([]models.Schedule, int, error) {
	var out []models.Schedule
	for _, schedule := range m.schedules {
		out = append(out, *schedule)
	}
	return out, len(out), nil
}

func (m *mockScheduleRepo) FindByID(ctx context.Context, id string) (*models.Schedule, error) {
	schedule, ok := m.schedules[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *schedule
	return &copied, nil
}

func (m *mockScheduleRepo) FindActive(ctx context.Context) (*models.Schedule, error) {
	for _, schedule := range m.schedules {
		if schedule.IsActive {
			copied := *schedule
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockScheduleRepo) Create(ctx context.Context, schedule *models.Schedule) error {
	for _, other := range m.schedules {
		other.IsActive = false
	}
	schedule.ID = "new-schedule"
	schedule.IsActive = true
	m.schedules[schedule.ID] = schedule
	return nil
}

func (m *mockScheduleRepo) Activate(ctx context.Context, id string) error {
	if _, ok := m.schedules[id]; !ok {
		return sql.ErrNoRows
	}
	for otherID, other := range m.schedules {
		other.IsActive = otherID == id
	}
	return nil
}

func (m *mockScheduleRepo) Delete(ctx context.Context, id string) error {
	delete(m.schedules, id)
	return nil
}

func TestScheduleServiceCreateBecomesActive(t *testing.T) {
	repo := &mockScheduleRepo{schedules: map[string]*models.Schedule{
		"old": {ID: "old", Name: "Week 35", IsActive: true},
	}}
	service := NewScheduleService(repo, nil, nil, nil, nil)

	schedule, err := service.Create(context.Background(), CreateScheduleRequest{Name: "Week 36"}, "admin-1")
	require.NoError(t, err)
	assert.True(t, schedule.IsActive)
	assert.False(t, repo.schedules["old"].IsActive)
}

func TestScheduleServiceCreateRequiresName(t *testing.T) {
	repo := &mockScheduleRepo{schedules: map[string]*models.Schedule{}}
	service := NewScheduleService(repo, nil, nil, nil, nil)

	_, err := service.Create(context.Background(), CreateScheduleRequest{}, "admin-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestScheduleServiceActivateSwitches(t *testing.T) {
	repo := &mockScheduleRepo{schedules: map[string]*models.Schedule{
		"a": {ID: "a", Name: "Week 35", IsActive: true},
		"b": {ID: "b", Name: "Week 36"},
	}}
	service := NewScheduleService(repo, nil, nil, nil, nil)

	schedule, err := service.Activate(context.Background(), "b", "admin-1")
	require.NoError(t, err)
	assert.True(t, schedule.IsActive)
	assert.False(t, repo.schedules["a"].IsActive)

	_, err = service.Activate(context.Background(), "missing", "admin-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestScheduleServiceGetActive(t *testing.T) {
	repo := &mockScheduleRepo{schedules: map[string]*models.Schedule{
		"a": {ID: "a", Name: "Week 35", IsActive: true},
	}}
	service := NewScheduleService(repo, nil, nil, nil, nil)

	schedule, err := service.GetActive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "a", schedule.ID)

	repo.schedules["a"].IsActive = false
	_, err = service.GetActive(context.Background())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestScheduleServiceDelete(t *testing.T) {
	repo := &mockScheduleRepo{schedules: map[string]*models.Schedule{
		"a": {ID: "a", Name: "Week 35"},
	}}
	service := NewScheduleService(repo, nil, nil, nil, nil)

	require.NoError(t, service.Delete(context.Background(), "a", "admin-1"))
	_, err := service.Get(context.Background(), "a")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
