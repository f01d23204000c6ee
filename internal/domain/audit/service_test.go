package audit

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/carehub/carehub/internal/platform/middleware"
)

type mockRepo struct {
	items []*Event
}

func (m *mockRepo) Create(_ context.Context, e *Event) error {
	e.ID = uuid.New()
	m.items = append(m.items, e)
	return nil
}

func (m *mockRepo) List(_ context.Context, f Filter, limit, offset int) ([]*Event, int, error) {
	var result []*Event
	for _, e := range m.items {
		if f.UserID != "" && e.UserID != f.UserID {
			continue
		}
		if f.ResourceType != "" && e.ResourceType != f.ResourceType {
			continue
		}
		if f.Action != "" && e.Action != f.Action {
			continue
		}
		result = append(result, e)
	}
	return result, len(result), nil
}

func TestRecord_DefaultsTimestamp(t *testing.T) {
	repo := &mockRepo{}
	svc := NewService(repo)

	if err := svc.Record(context.Background(), &Event{
		UserID: "u-1", Action: "read", ResourceType: "appointments",
	}); err != nil {
		t.Fatalf("Record() error: %v", err)
	}
	if repo.items[0].OccurredAt.IsZero() {
		t.Error("expected occurred_at defaulted")
	}
}

func TestRecorder_MapsMiddlewareEntry(t *testing.T) {
	repo := &mockRepo{}
	svc := NewService(repo)

	rec := svc.Recorder()
	err := rec.RecordAccess(middleware.AuditEntry{
		UserID:       "u-1",
		UserRole:     "DOCTOR",
		Action:       "update",
		ResourceType: "medical-records",
		ResourceID:   uuid.NewString(),
		Method:       "PUT",
		Path:         "/api/v1/medical-records/x",
		StatusCode:   200,
		Timestamp:    time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("RecordAccess() error: %v", err)
	}
	if len(repo.items) != 1 {
		t.Fatalf("expected 1 event, got %d", len(repo.items))
	}
	e := repo.items[0]
	if e.UserID != "u-1" || e.Action != "update" || e.ResourceType != "medical-records" {
		t.Errorf("entry not mapped: %+v", e)
	}
}

func TestList_Filters(t *testing.T) {
	repo := &mockRepo{}
	svc := NewService(repo)

	entries := []*Event{
		{UserID: "u-1", Action: "read", ResourceType: "appointments"},
		{UserID: "u-1", Action: "create", ResourceType: "invoices"},
		{UserID: "u-2", Action: "read", ResourceType: "appointments"},
	}
	for _, e := range entries {
		if err := svc.Record(context.Background(), e); err != nil {
			t.Fatalf("Record() error: %v", err)
		}
	}

	tests := []struct {
		name string
		f    Filter
		want int
	}{
		{"all", Filter{}, 3},
		{"by user", Filter{UserID: "u-1"}, 2},
		{"by resource", Filter{ResourceType: "appointments"}, 2},
		{"by action", Filter{Action: "create"}, 1},
		{"combined", Filter{UserID: "u-1", Action: "read"}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, total, err := svc.List(context.Background(), tt.f, 20, 0)
			if err != nil {
				t.Fatalf("List() error: %v", err)
			}
			if total != tt.want {
				t.Errorf("expected %d events, got %d", tt.want, total)
			}
		})
	}
}
