package messaging

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/carehub/carehub/internal/domain/user"
	"github.com/carehub/carehub/internal/platform/auth"
	"github.com/carehub/carehub/internal/platform/ws"
)

type mockRepo struct {
	conversations map[uuid.UUID]*Conversation
	messages      []*Message
}

func newMockRepo() *mockRepo {
	return &mockRepo{conversations: make(map[uuid.UUID]*Conversation)}
}

func (m *mockRepo) GetOrCreateConversation(_ context.Context, a, b uuid.UUID) (*Conversation, error) {
	low, high := orderPair(a, b)
	for _, c := range m.conversations {
		if c.UserAID == low && c.UserBID == high {
			return c, nil
		}
	}
	c := &Conversation{ID: uuid.New(), UserAID: low, UserBID: high, CreatedAt: time.Now()}
	m.conversations[c.ID] = c
	return c, nil
}

func (m *mockRepo) GetConversation(_ context.Context, id uuid.UUID) (*Conversation, error) {
	c, ok := m.conversations[id]
	if !ok {
		return nil, ErrNotFound
	}
	return c, nil
}

func (m *mockRepo) ListConversations(_ context.Context, userID uuid.UUID, limit, offset int) ([]*Conversation, int, error) {
	var result []*Conversation
	for _, c := range m.conversations {
		if c.Participant(userID) {
			result = append(result, c)
		}
	}
	return result, len(result), nil
}

func (m *mockRepo) CreateMessage(_ context.Context, msg *Message) error {
	msg.ID = uuid.New()
	msg.CreatedAt = time.Now()
	m.messages = append(m.messages, msg)
	now := msg.CreatedAt
	m.conversations[msg.ConversationID].LastMessageAt = &now
	return nil
}

func (m *mockRepo) ListMessages(_ context.Context, conversationID uuid.UUID, limit, offset int) ([]*Message, int, error) {
	var result []*Message
	for _, msg := range m.messages {
		if msg.ConversationID == conversationID {
			result = append(result, msg)
		}
	}
	return result, len(result), nil
}

func (m *mockRepo) MarkRead(_ context.Context, conversationID, readerID uuid.UUID) (int, error) {
	now := time.Now()
	marked := 0
	for _, msg := range m.messages {
		if msg.ConversationID == conversationID && msg.SenderID != readerID && msg.ReadAt == nil {
			msg.ReadAt = &now
			marked++
		}
	}
	return marked, nil
}

func (m *mockRepo) UnreadCount(_ context.Context, userID uuid.UUID) (int, error) {
	n := 0
	for _, msg := range m.messages {
		conv := m.conversations[msg.ConversationID]
		if conv.Participant(userID) && msg.SenderID != userID && msg.ReadAt == nil {
			n++
		}
	}
	return n, nil
}

func (m *mockRepo) UnreadCountInConversation(_ context.Context, conversationID, userID uuid.UUID) (int, error) {
	n := 0
	for _, msg := range m.messages {
		if msg.ConversationID == conversationID && msg.SenderID != userID && msg.ReadAt == nil {
			n++
		}
	}
	return n, nil
}

type mockUsers struct {
	items map[uuid.UUID]*user.User
}

func (m *mockUsers) Get(_ context.Context, id uuid.UUID) (*user.User, error) {
	u, ok := m.items[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	return u, nil
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

type capturingNotifier struct {
	recipients []uuid.UUID
}

func (n *capturingNotifier) MessageReceived(_ context.Context, recipientID uuid.UUID, _ *Message) {
	n.recipients = append(n.recipients, recipientID)
}

type fixture struct {
	svc       *Service
	repo      *mockRepo
	publisher *capturingPublisher
	notifier  *capturingNotifier
	patientID uuid.UUID
	doctorID  uuid.UUID
}

func newFixture() *fixture {
	patientID, doctorID := uuid.New(), uuid.New()
	users := &mockUsers{items: map[uuid.UUID]*user.User{
		patientID: {ID: patientID, FirstName: "Pat", LastName: "Rivera", Role: auth.RolePatient},
		doctorID:  {ID: doctorID, FirstName: "Dana", LastName: "Okafor", Role: auth.RoleDoctor},
	}}

	repo := newMockRepo()
	publisher := &capturingPublisher{}
	notifier := &capturingNotifier{}

	svc := NewService(repo, users)
	svc.SetEventPublisher(publisher)
	svc.SetNotifier(notifier)

	return &fixture{svc: svc, repo: repo, publisher: publisher, notifier: notifier,
		patientID: patientID, doctorID: doctorID}
}

func (f *fixture) conversation(t *testing.T) *Conversation {
	t.Helper()
	conv, err := f.svc.Start(context.Background(), f.patientID, StartRequest{UserID: f.doctorID})
	if err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	return conv
}

func TestStart_Idempotent(t *testing.T) {
	f := newFixture()

	first := f.conversation(t)
	second, err := f.svc.Start(context.Background(), f.doctorID, StartRequest{UserID: f.patientID})
	if err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("expected the same conversation either way round, got %s and %s", first.ID, second.ID)
	}
}

func TestStart_Validation(t *testing.T) {
	f := newFixture()

	if _, err := f.svc.Start(context.Background(), f.patientID, StartRequest{UserID: f.patientID}); err == nil {
		t.Error("expected error starting a conversation with yourself")
	}
	if _, err := f.svc.Start(context.Background(), f.patientID, StartRequest{UserID: uuid.New()}); err == nil {
		t.Error("expected error for unknown user")
	}
}

func TestSend_PublishesAndNotifies(t *testing.T) {
	f := newFixture()
	conv := f.conversation(t)

	m, err := f.svc.Send(context.Background(), conv.ID, f.patientID, "hello doctor")
	if err != nil {
		t.Fatalf("Send() error: %v", err)
	}
	if m.SenderName != "Pat Rivera" {
		t.Errorf("expected sender name filled, got %q", m.SenderName)
	}

	msgs := f.publisher.ofType(ws.EventNewMessage)
	if len(msgs) != 1 {
		t.Fatalf("expected 1 new_message event, got %d", len(msgs))
	}
	if msgs[0].Topic != ws.ConversationTopic(conv.ID) {
		t.Errorf("expected conversation topic, got %s", msgs[0].Topic)
	}

	unreads := f.publisher.ofType(ws.EventUnreadCountUpdate)
	if len(unreads) != 1 {
		t.Fatalf("expected 1 unread_count_update event, got %d", len(unreads))
	}
	if unreads[0].Topic != ws.UserTopic(f.doctorID) {
		t.Errorf("expected unread update on recipient topic, got %s", unreads[0].Topic)
	}

	if len(f.notifier.recipients) != 1 || f.notifier.recipients[0] != f.doctorID {
		t.Errorf("expected notifier called for the doctor, got %v", f.notifier.recipients)
	}
}

func TestSend_Validation(t *testing.T) {
	f := newFixture()
	conv := f.conversation(t)

	if _, err := f.svc.Send(context.Background(), conv.ID, f.patientID, ""); err == nil {
		t.Error("expected error for empty body")
	}
	if _, err := f.svc.Send(context.Background(), conv.ID, f.patientID, strings.Repeat("a", maxMessageLength+1)); err == nil {
		t.Error("expected error for oversized body")
	}
	if _, err := f.svc.Send(context.Background(), uuid.New(), f.patientID, "hi"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown conversation, got %v", err)
	}
}

func TestSend_NonParticipantDenied(t *testing.T) {
	f := newFixture()
	conv := f.conversation(t)

	_, err := f.svc.Send(context.Background(), conv.ID, uuid.New(), "let me in")
	if !errors.Is(err, ErrAccessDenied) {
		t.Errorf("expected ErrAccessDenied, got %v", err)
	}
}

func TestCanAccessConversation(t *testing.T) {
	f := newFixture()
	conv := f.conversation(t)

	tests := []struct {
		name   string
		userID uuid.UUID
		role   string
		want   bool
	}{
		{"participant", f.patientID, auth.RolePatient, true},
		{"other participant", f.doctorID, auth.RoleDoctor, true},
		{"stranger patient", uuid.New(), auth.RolePatient, false},
		{"stranger doctor", uuid.New(), auth.RoleDoctor, false},
		{"staff", uuid.New(), auth.RoleStaff, true},
		{"admin", uuid.New(), auth.RoleAdmin, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.svc.CanAccessConversation(context.Background(), tt.userID, conv.ID, tt.role)
			if err != nil {
				t.Fatalf("CanAccessConversation() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("CanAccessConversation() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCanAccessConversation_UnknownConversation(t *testing.T) {
	f := newFixture()

	ok, err := f.svc.CanAccessConversation(context.Background(), f.patientID, uuid.New(), auth.RolePatient)
	if err != nil {
		t.Fatalf("CanAccessConversation() error: %v", err)
	}
	if ok {
		t.Error("expected access denied for unknown conversation")
	}
}

func TestRead_MarksAndPublishes(t *testing.T) {
	f := newFixture()
	conv := f.conversation(t)

	for _, body := range []string{"first", "second"} {
		if _, err := f.svc.Send(context.Background(), conv.ID, f.patientID, body); err != nil {
			t.Fatalf("Send() error: %v", err)
		}
	}

	n, err := f.svc.UnreadTotal(context.Background(), f.doctorID)
	if err != nil {
		t.Fatalf("UnreadTotal() error: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 unread, got %d", n)
	}

	before := len(f.publisher.ofType(ws.EventUnreadCountUpdate))
	if err := f.svc.Read(context.Background(), conv.ID, f.doctorID); err != nil {
		t.Fatalf("Read() error: %v", err)
	}

	n, _ = f.svc.UnreadTotal(context.Background(), f.doctorID)
	if n != 0 {
		t.Errorf("expected 0 unread after read, got %d", n)
	}
	if got := len(f.publisher.ofType(ws.EventUnreadCountUpdate)); got != before+1 {
		t.Errorf("expected unread update published on read, got %d events", got-before)
	}

	// Nothing left to mark; no extra event.
	if err := f.svc.Read(context.Background(), conv.ID, f.doctorID); err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	if got := len(f.publisher.ofType(ws.EventUnreadCountUpdate)); got != before+1 {
		t.Errorf("expected no event for a no-op read, got %d events", got-before)
	}
}

func TestRead_NonParticipantDenied(t *testing.T) {
	f := newFixture()
	conv := f.conversation(t)

	if err := f.svc.Read(context.Background(), conv.ID, uuid.New()); !errors.Is(err, ErrAccessDenied) {
		t.Errorf("expected ErrAccessDenied, got %v", err)
	}
}

func TestMessages_StaffMayRead(t *testing.T) {
	f := newFixture()
	conv := f.conversation(t)

	if _, err := f.svc.Send(context.Background(), conv.ID, f.doctorID, "results are in"); err != nil {
		t.Fatalf("Send() error: %v", err)
	}

	items, total, err := f.svc.Messages(context.Background(), conv.ID, uuid.New(), auth.RoleStaff, 20, 0)
	if err != nil {
		t.Fatalf("Messages() error: %v", err)
	}
	if total != 1 || len(items) != 1 {
		t.Errorf("expected 1 message, got %d", total)
	}

	_, _, err = f.svc.Messages(context.Background(), conv.ID, uuid.New(), auth.RolePatient, 20, 0)
	if !errors.Is(err, ErrAccessDenied) {
		t.Errorf("expected ErrAccessDenied for stranger, got %v", err)
	}
}

func TestChatRouterPath(t *testing.T) {
	f := newFixture()
	conv := f.conversation(t)

	if err := f.svc.SendMessage(context.Background(), f.doctorID, conv.ID, "via socket"); err != nil {
		t.Fatalf("SendMessage() error: %v", err)
	}
	if err := f.svc.MarkAsRead(context.Background(), f.patientID, conv.ID); err != nil {
		t.Fatalf("MarkAsRead() error: %v", err)
	}

	n, err := f.svc.UnreadTotal(context.Background(), f.patientID)
	if err != nil {
		t.Fatalf("UnreadTotal() error: %v", err)
	}
	if n != 0 {
		t.Errorf("expected 0 unread after MarkAsRead, got %d", n)
	}
}
