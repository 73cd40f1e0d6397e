package service

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/clinicore/clinicore-api/internal/models"
	"github.com/clinicore/clinicore-api/pkg/jobs"
)

type auditLogWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// AuditService records who changed what. Writes happen asynchronously on a
// worker pool so a slow audit insert never delays the request path.
type AuditService struct {
	writer  auditLogWriter
	queue   *jobs.Queue
	logger  *zap.Logger
	enabled bool
}

// AuditOptions tunes the background writer pool.
type AuditOptions struct {
	Enabled    bool
	Workers    int
	BufferSize int
}

// NewAuditService builds the audit trail service with its job queue.
func NewAuditService(writer auditLogWriter, opts AuditOptions, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &AuditService{writer: writer, logger: logger, enabled: opts.Enabled && writer != nil}
	s.queue = jobs.NewQueue("audit", s.handle, jobs.QueueConfig{
		Workers:    opts.Workers,
		BufferSize: opts.BufferSize,
		Logger:     logger,
	})
	return s
}

// Start launches the background writers.
func (s *AuditService) Start(ctx context.Context) {
	if s == nil || !s.enabled {
		return
	}
	s.queue.Start(ctx)
}

// Stop drains the queue and stops the writers.
func (s *AuditService) Stop() {
	if s == nil || !s.enabled {
		return
	}
	s.queue.Stop()
}

// Record enqueues an audit entry. Failures are logged, never propagated.
func (s *AuditService) Record(ctx context.Context, actorID, action, resource, resourceID string, oldValues, newValues interface{}) {
	if s == nil || !s.enabled {
		return
	}

	entry := &models.AuditLog{
		ID:       uuid.NewString(),
		Action:   action,
		Resource: resource,
	}
	if actorID != "" {
		entry.UserID = &actorID
	}
	if resourceID != "" {
		entry.ResourceID = &resourceID
	}
	if oldValues != nil {
		if data, err := json.Marshal(oldValues); err == nil {
			entry.OldValues = data
		}
	}
	if newValues != nil {
		if data, err := json.Marshal(newValues); err == nil {
			entry.NewValues = data
		}
	}

	if err := s.queue.Enqueue(jobs.Job{ID: entry.ID, Type: action, Payload: entry}); err != nil {
		s.logger.Warn("audit enqueue failed", zap.String("action", action), zap.Error(err))
	}
}

func (s *AuditService) handle(ctx context.Context, job jobs.Job) error {
	entry, ok := job.Payload.(*models.AuditLog)
	if !ok {
		s.logger.Warn("audit job carried unexpected payload", zap.String("job_id", job.ID))
		return nil
	}
	return s.writer.CreateAuditLog(ctx, entry)
}
