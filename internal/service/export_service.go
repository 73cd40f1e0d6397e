package service

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/clinicore/clinicore-api/internal/models"
	"github.com/clinicore/clinicore-api/internal/validation"
	appErrors "github.com/clinicore/clinicore-api/pkg/errors"
	"github.com/clinicore/clinicore-api/pkg/export"
)

// ExportFormat enumerates supported weekly plan renderings.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

type exportArchive interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (io.ReadCloser, error)
}

type exportLinkSigner interface {
	Generate(scheduleID, filename string) (string, time.Time, error)
	Parse(token string, allowExpired bool) (scheduleID, filename string, expiresAt time.Time, err error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportResult is one rendered weekly plan. DownloadToken is set only when
// the plan was archived and a link signer is configured.
type ExportResult struct {
	Filename          string
	ContentType       string
	Payload           []byte
	DownloadToken     string
	DownloadExpiresAt time.Time
}

// ExportService renders a schedule's week grid as CSV or PDF.
type ExportService struct {
	schedules exportScheduleReader
	sessions  sessionLister
	employees employeeLister
	rooms     roomLister
	patients  patientLister
	csv       csvRenderer
	pdf       pdfRenderer
	archive   exportArchive
	signer    exportLinkSigner
	logger    *zap.Logger
	title     string
}

type exportScheduleReader interface {
	FindByID(ctx context.Context, id string) (*models.Schedule, error)
}

type sessionLister interface {
	ListBySchedule(ctx context.Context, scheduleID string, filter models.SessionFilter) ([]models.Session, error)
}

type employeeLister interface {
	List(ctx context.Context, filter models.EmployeeFilter) ([]models.Employee, int, error)
}

type roomLister interface {
	List(ctx context.Context, filter models.RoomFilter) ([]models.Room, int, error)
}

type patientLister interface {
	List(ctx context.Context, filter models.PatientFilter) ([]models.Patient, int, error)
}

// NewExportService constructs an ExportService. The archive is optional; when
// set, every rendered plan is also written there. The signer is optional too
// and requires the archive: with both present, Generate mints a signed
// download token for the archived copy.
func NewExportService(
	schedules exportScheduleReader,
	sessions sessionLister,
	employees employeeLister,
	rooms roomLister,
	patients patientLister,
	archive exportArchive,
	signer exportLinkSigner,
	title string,
	logger *zap.Logger,
) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if title == "" {
		title = "Weekly Plan"
	}
	return &ExportService{
		schedules: schedules,
		sessions:  sessions,
		employees: employees,
		rooms:     rooms,
		patients:  patients,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		archive:   archive,
		signer:    signer,
		logger:    logger,
		title:     title,
	}
}

// Generate renders the schedule's sessions in week order.
func (s *ExportService) Generate(ctx context.Context, scheduleID string, format ExportFormat) (*ExportResult, error) {
	schedule, err := s.schedules.FindByID(ctx, scheduleID)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
	}

	dataset, err := s.buildDataset(ctx, scheduleID)
	if err != nil {
		return nil, err
	}

	title := fmt.Sprintf("%s - %s", s.title, schedule.Name)
	var payload []byte
	var contentType string
	switch format {
	case ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
		contentType = "text/csv"
	case ExportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
		contentType = "application/pdf"
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	filename := fmt.Sprintf("schedule-%s-%s.%s", scheduleID, time.Now().UTC().Format("20060102-150405"), format)
	result := &ExportResult{Filename: filename, ContentType: contentType, Payload: payload}
	if s.archive != nil {
		if _, err := s.archive.Save(filename, payload); err != nil {
			s.logger.Warn("export archive write failed", zap.String("filename", filename), zap.Error(err))
		} else if s.signer != nil {
			token, expiresAt, err := s.signer.Generate(scheduleID, filename)
			if err != nil {
				s.logger.Warn("export link signing failed", zap.String("filename", filename), zap.Error(err))
			} else {
				result.DownloadToken = token
				result.DownloadExpiresAt = expiresAt
			}
		}
	}

	return result, nil
}

// Download resolves a signed token to the archived file it was minted for.
func (s *ExportService) Download(token string) (*ExportResult, error) {
	if s.archive == nil || s.signer == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export downloads are not enabled")
	}
	_, filename, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid download token")
	}
	file, err := s.archive.Open(filename)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "archived export not found")
	}
	defer file.Close() //nolint:errcheck
	payload, err := io.ReadAll(file)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read archived export")
	}
	return &ExportResult{Filename: filename, ContentType: contentTypeFor(filename), Payload: payload}, nil
}

func contentTypeFor(filename string) string {
	switch {
	case strings.HasSuffix(filename, ".csv"):
		return "text/csv"
	case strings.HasSuffix(filename, ".pdf"):
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}

func (s *ExportService) buildDataset(ctx context.Context, scheduleID string) (export.Dataset, error) {
	var dataset export.Dataset

	sessions, err := s.sessions.ListBySchedule(ctx, scheduleID, models.SessionFilter{})
	if err != nil {
		return dataset, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sessions")
	}

	employeeNames, err := s.employeeNames(ctx)
	if err != nil {
		return dataset, err
	}
	roomNames, err := s.roomNames(ctx)
	if err != nil {
		return dataset, err
	}
	patientNames, err := s.patientNames(ctx)
	if err != nil {
		return dataset, err
	}

	dayOrder := make(map[models.Weekday]int, len(models.Weekdays))
	for i, day := range models.Weekdays {
		dayOrder[day] = i
	}
	sort.SliceStable(sessions, func(i, j int) bool {
		if sessions[i].Day != sessions[j].Day {
			return dayOrder[sessions[i].Day] < dayOrder[sessions[j].Day]
		}
		si, _ := validation.ToMinutes(sessions[i].StartTime)
		sj, _ := validation.ToMinutes(sessions[j].StartTime)
		return si < sj
	})

	dataset.Headers = []string{"Day", "Start", "End", "Room", "Employees", "Patients"}
	for _, session := range sessions {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Day":       string(session.Day),
			"Start":     session.StartTime,
			"End":       session.EndTime,
			"Room":      resolveName(roomNames, session.RoomID),
			"Employees": joinNames(employeeNames, session.EmployeeIDs),
			"Patients":  joinNames(patientNames, session.PatientIDs),
		})
	}
	return dataset, nil
}

func (s *ExportService) employeeNames(ctx context.Context) (map[string]string, error) {
	employees, _, err := s.employees.List(ctx, models.EmployeeFilter{PageSize: exportCatalogPageSize})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list employees")
	}
	names := make(map[string]string, len(employees))
	for _, employee := range employees {
		names[employee.ID] = employee.FullName
	}
	return names, nil
}

func (s *ExportService) roomNames(ctx context.Context) (map[string]string, error) {
	rooms, _, err := s.rooms.List(ctx, models.RoomFilter{PageSize: exportCatalogPageSize})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list rooms")
	}
	names := make(map[string]string, len(rooms))
	for _, room := range rooms {
		names[room.ID] = room.Name
	}
	return names, nil
}

func (s *ExportService) patientNames(ctx context.Context) (map[string]string, error) {
	patients, _, err := s.patients.List(ctx, models.PatientFilter{PageSize: exportCatalogPageSize})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list patients")
	}
	names := make(map[string]string, len(patients))
	for _, patient := range patients {
		names[patient.ID] = patient.FullName
	}
	return names, nil
}

const exportCatalogPageSize = 1000

func resolveName(names map[string]string, id string) string {
	if name, ok := names[id]; ok {
		return name
	}
	return id
}

func joinNames(names map[string]string, ids []string) string {
	resolved := make([]string, 0, len(ids))
	for _, id := range ids {
		resolved = append(resolved, resolveName(names, id))
	}
	return strings.Join(resolved, ", ")
}
