package notification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/carehub/carehub/internal/platform/ws"
)

type mockRepo struct {
	items map[uuid.UUID]*Notification
}

func newMockRepo() *mockRepo {
	return &mockRepo{items: make(map[uuid.UUID]*Notification)}
}

func (m *mockRepo) Create(_ context.Context, n *Notification) error {
	n.ID = uuid.New()
	n.CreatedAt = time.Now()
	m.items[n.ID] = n
	return nil
}

func (m *mockRepo) ListByUser(_ context.Context, userID uuid.UUID, unreadOnly bool, limit, offset int) ([]*Notification, int, error) {
	var result []*Notification
	for _, n := range m.items {
		if n.UserID != userID {
			continue
		}
		if unreadOnly && n.ReadAt != nil {
			continue
		}
		result = append(result, n)
	}
	return result, len(result), nil
}

func (m *mockRepo) MarkRead(_ context.Context, id, userID uuid.UUID) error {
	n, ok := m.items[id]
	if !ok || n.UserID != userID {
		return ErrNotFound
	}
	if n.ReadAt == nil {
		now := time.Now()
		n.ReadAt = &now
	}
	return nil
}

func (m *mockRepo) MarkAllRead(_ context.Context, userID uuid.UUID) (int, error) {
	now := time.Now()
	marked := 0
	for _, n := range m.items {
		if n.UserID == userID && n.ReadAt == nil {
			n.ReadAt = &now
			marked++
		}
	}
	return marked, nil
}

func (m *mockRepo) UnreadCount(_ context.Context, userID uuid.UUID) (int, error) {
	count := 0
	for _, n := range m.items {
		if n.UserID == userID && n.ReadAt == nil {
			count++
		}
	}
	return count, nil
}

type capturingPublisher struct {
	events []ws.Event
}

func (p *capturingPublisher) Publish(_ context.Context, e ws.Event) error {
	p.events = append(p.events, e)
	return nil
}

func (p *capturingPublisher) ofType(eventType string) []ws.Event {
	var result []ws.Event
	for _, e := range p.events {
		if e.Type == eventType {
			result = append(result, e)
		}
	}
	return result
}

func newTestService() (*Service, *capturingPublisher) {
	publisher := &capturingPublisher{}
	svc := NewService(newMockRepo())
	svc.SetEventPublisher(publisher)
	return svc, publisher
}

func TestCreate_Publishes(t *testing.T) {
	svc, publisher := newTestService()
	userID := uuid.New()

	n, err := svc.Create(context.Background(), &Notification{UserID: userID, Kind: KindNewMessage, Title: "New message", Body: "From Dr. Okafor"})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if n.ID == uuid.Nil {
		t.Error("expected notification ID assigned")
	}

	pushed := publisher.ofType(ws.EventNotification)
	if len(pushed) != 1 {
		t.Fatalf("expected 1 notification event, got %d", len(pushed))
	}
	if pushed[0].Topic != ws.UserTopic(userID) {
		t.Errorf("expected user topic, got %s", pushed[0].Topic)
	}
	if len(publisher.ofType(ws.EventUnreadCountUpdate)) != 1 {
		t.Error("expected unread count pushed on create")
	}
}

func TestCreate_RequiresTitle(t *testing.T) {
	svc, _ := newTestService()

	if _, err := svc.Create(context.Background(), &Notification{UserID: uuid.New(), Kind: KindNewMessage, Body: "body"}); err == nil {
		t.Error("expected error for missing title")
	}
}

func TestMarkRead(t *testing.T) {
	svc, publisher := newTestService()
	userID := uuid.New()

	n, err := svc.Create(context.Background(), &Notification{UserID: userID, Kind: KindInvoiceIssued, Title: "Invoice issued", Body: "USD 50.00"})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	if err := svc.MarkRead(context.Background(), n.ID, userID); err != nil {
		t.Fatalf("MarkRead() error: %v", err)
	}
	count, _ := svc.UnreadCount(context.Background(), userID)
	if count != 0 {
		t.Errorf("expected 0 unread, got %d", count)
	}
	if got := len(publisher.ofType(ws.EventUnreadCountUpdate)); got != 2 {
		t.Errorf("expected unread pushes on create and read, got %d", got)
	}

	// Marking twice is a no-op.
	if err := svc.MarkRead(context.Background(), n.ID, userID); err != nil {
		t.Errorf("second MarkRead() error: %v", err)
	}
}

func TestMarkRead_OtherUsersNotificationHidden(t *testing.T) {
	svc, _ := newTestService()
	userID := uuid.New()

	n, err := svc.Create(context.Background(), &Notification{UserID: userID, Kind: KindNewMessage, Title: "New message"})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	if err := svc.MarkRead(context.Background(), n.ID, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for another user, got %v", err)
	}
}

func TestMarkAllRead(t *testing.T) {
	svc, _ := newTestService()
	userID := uuid.New()

	for i := 0; i < 3; i++ {
		if _, err := svc.Create(context.Background(), &Notification{UserID: userID, Kind: KindNewMessage, Title: "New message"}); err != nil {
			t.Fatalf("Create() error: %v", err)
		}
	}

	marked, err := svc.MarkAllRead(context.Background(), userID)
	if err != nil {
		t.Fatalf("MarkAllRead() error: %v", err)
	}
	if marked != 3 {
		t.Errorf("expected 3 marked, got %d", marked)
	}

	items, total, err := svc.List(context.Background(), userID, true, 20, 0)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if total != 0 || len(items) != 0 {
		t.Errorf("expected empty unread feed, got %d", total)
	}
}

func TestList_UnreadFilter(t *testing.T) {
	svc, _ := newTestService()
	userID := uuid.New()

	first, err := svc.Create(context.Background(), &Notification{UserID: userID, Kind: KindNewMessage, Title: "First"})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if _, err := svc.Create(context.Background(), &Notification{UserID: userID, Kind: KindNewMessage, Title: "Second"}); err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if err := svc.MarkRead(context.Background(), first.ID, userID); err != nil {
		t.Fatalf("MarkRead() error: %v", err)
	}

	_, total, err := svc.List(context.Background(), userID, true, 20, 0)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if total != 1 {
		t.Errorf("expected 1 unread, got %d", total)
	}

	_, total, err = svc.List(context.Background(), userID, false, 20, 0)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if total != 2 {
		t.Errorf("expected 2 in full feed, got %d", total)
	}
}
