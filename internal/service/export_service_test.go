package service

import (
	"bytes"
	"context"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicore/clinicore-api/internal/models"
	appErrors "github.com/clinicore/clinicore-api/pkg/errors"
	"github.com/clinicore/clinicore-api/pkg/storage"
)

type exportScheduleStub struct{}

func (exportScheduleStub) FindByID(ctx context.Context, id string) (*models.Schedule, error) {
	return &models.Schedule{ID: id, Name: "Week 36", IsActive: true}, nil
}

type exportSessionStub struct {
	sessions []models.Session
}

func (s *exportSessionStub) ListBySchedule(ctx context.Context, scheduleID string, filter models.SessionFilter) ([]models.Session, error) {
	return s.sessions, nil
}

type exportEmployeeStub struct{}

func (exportEmployeeStub) List(ctx context.Context, filter models.EmployeeFilter) ([]models.Employee, int, error) {
	return []models.Employee{{ID: "e1", FullName: "Dana"}}, 1, nil
}

type exportRoomStub struct{}

func (exportRoomStub) List(ctx context.Context, filter models.RoomFilter) ([]models.Room, int, error) {
	return []models.Room{{ID: "r1", Name: "Room 1"}}, 1, nil
}

type exportPatientStub struct{}

func (exportPatientStub) List(ctx context.Context, filter models.PatientFilter) ([]models.Patient, int, error) {
	return []models.Patient{{ID: "p1", FullName: "Noa"}}, 1, nil
}

type archiveStub struct {
	files map[string][]byte
}

func (a *archiveStub) Save(filename string, data []byte) (string, error) {
	a.files[filename] = data
	return filename, nil
}

func (a *archiveStub) Open(filename string) (io.ReadCloser, error) {
	data, ok := a.files[filename]
	if !ok {
		return nil, os.ErrNotExist
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func exportFixtureSessions() []models.Session {
	return []models.Session{
		{ID: "s2", Day: models.Monday, StartTime: "10:00", EndTime: "10:45", RoomID: "r1", EmployeeIDs: []string{"e1"}},
		{ID: "s1", Day: models.Sunday, StartTime: "09:00", EndTime: "09:45", RoomID: "r1",
			EmployeeIDs: []string{"e1"}, PatientIDs: []string{"p1"}},
	}
}

func TestExportServiceGenerateCSV(t *testing.T) {
	svc := NewExportService(exportScheduleStub{}, &exportSessionStub{sessions: exportFixtureSessions()},
		exportEmployeeStub{}, exportRoomStub{}, exportPatientStub{}, nil, nil, "Weekly Plan", nil)

	result, err := svc.Generate(context.Background(), "sched-1", ExportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", result.ContentType)
	assert.Empty(t, result.DownloadToken)

	lines := strings.Split(strings.TrimSpace(string(result.Payload)), "\n")
	require.Len(t, lines, 3)
	// week order puts the Sunday session first and names are resolved
	assert.Contains(t, lines[1], "SUNDAY")
	assert.Contains(t, lines[1], "Noa")
	assert.Contains(t, lines[2], "MONDAY")
}

func TestExportServiceSignedDownload(t *testing.T) {
	archive := &archiveStub{files: map[string][]byte{}}
	signer := storage.NewSignedURLSigner("secret", time.Hour)
	svc := NewExportService(exportScheduleStub{}, &exportSessionStub{sessions: exportFixtureSessions()},
		exportEmployeeStub{}, exportRoomStub{}, exportPatientStub{}, archive, signer, "Weekly Plan", nil)

	result, err := svc.Generate(context.Background(), "sched-1", ExportFormatCSV)
	require.NoError(t, err)
	require.NotEmpty(t, result.DownloadToken)
	require.False(t, result.DownloadExpiresAt.IsZero())

	downloaded, err := svc.Download(result.DownloadToken)
	require.NoError(t, err)
	assert.Equal(t, result.Filename, downloaded.Filename)
	assert.Equal(t, "text/csv", downloaded.ContentType)
	assert.Equal(t, result.Payload, downloaded.Payload)

	_, err = svc.Download("not.a.valid.token")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestExportServiceDownloadDisabledWithoutArchive(t *testing.T) {
	svc := NewExportService(exportScheduleStub{}, &exportSessionStub{}, exportEmployeeStub{},
		exportRoomStub{}, exportPatientStub{}, nil, nil, "Weekly Plan", nil)

	_, err := svc.Download("whatever")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
