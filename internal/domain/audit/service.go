package audit

import (
	"context"
	"time"

	"github.com/carehub/carehub/internal/platform/middleware"
)

// Service persists and queries the audit trail.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Record persists one audit event.
func (s *Service) Record(ctx context.Context, e *Event) error {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	return s.repo.Create(ctx, e)
}

// List returns audit events, newest first.
func (s *Service) List(ctx context.Context, f Filter, limit, offset int) ([]*Event, int, error) {
	return s.repo.List(ctx, f, limit, offset)
}

// recorderTimeout bounds the write so a slow insert cannot hold up request
// logging; the middleware already treats failures as non-fatal.
const recorderTimeout = 5 * time.Second

// Recorder adapts the service to the audit middleware. RecordAccess carries
// no request context, so writes run under their own deadline.
func (s *Service) Recorder() middleware.AuditRecorder {
	return middleware.AuditRecorderFunc(func(entry middleware.AuditEntry) error {
		ctx, cancel := context.WithTimeout(context.Background(), recorderTimeout)
		defer cancel()

		return s.Record(ctx, &Event{
			UserID:       entry.UserID,
			UserRole:     entry.UserRole,
			Action:       entry.Action,
			ResourceType: entry.ResourceType,
			ResourceID:   entry.ResourceID,
			Method:       entry.Method,
			Path:         entry.Path,
			IPAddress:    entry.IPAddress,
			UserAgent:    entry.UserAgent,
			RequestID:    entry.RequestID,
			StatusCode:   entry.StatusCode,
			OccurredAt:   entry.Timestamp,
		})
	})
}
