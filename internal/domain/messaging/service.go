package messaging

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/carehub/carehub/internal/domain/user"
	"github.com/carehub/carehub/internal/platform/auth"
	"github.com/carehub/carehub/internal/platform/ws"
)

// ErrAccessDenied is returned when the caller does not participate in the
// conversation.
var ErrAccessDenied = errors.New("access denied")

const maxMessageLength = 4000

// UserGetter is the slice of the user service this package needs.
type UserGetter interface {
	Get(ctx context.Context, id uuid.UUID) (*user.User, error)
}

// Notifier is told about messages delivered while the recipient may be
// offline.
type Notifier interface {
	MessageReceived(ctx context.Context, recipientID uuid.UUID, m *Message)
}

// Service owns conversations and messages. It is also the ChatRouter for the
// WebSocket handler, so socket traffic and HTTP requests share one write
// path.
type Service struct {
	repo     Repository
	users    UserGetter
	events   ws.EventPublisher
	notifier Notifier
}

var _ ws.ChatRouter = (*Service)(nil)

func NewService(repo Repository, users UserGetter) *Service {
	return &Service{repo: repo, users: users}
}

// SetEventPublisher attaches an optional real-time event publisher.
func (s *Service) SetEventPublisher(events ws.EventPublisher) { s.events = events }

// SetNotifier attaches an optional notifier.
func (s *Service) SetNotifier(n Notifier) { s.notifier = n }

// Start returns the conversation between the caller and another user,
// creating it on first contact. Starting twice returns the same conversation.
func (s *Service) Start(ctx context.Context, callerID uuid.UUID, req StartRequest) (*Conversation, error) {
	if req.UserID == callerID {
		return nil, fmt.Errorf("cannot start a conversation with yourself")
	}
	if _, err := s.users.Get(ctx, req.UserID); err != nil {
		return nil, fmt.Errorf("user not found")
	}
	return s.repo.GetOrCreateConversation(ctx, callerID, req.UserID)
}

func (s *Service) ListConversations(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Conversation, int, error) {
	return s.repo.ListConversations(ctx, userID, limit, offset)
}

// Messages returns a page of a conversation's messages, oldest first.
func (s *Service) Messages(ctx context.Context, conversationID, callerID uuid.UUID, role string, limit, offset int) ([]*Message, int, error) {
	ok, err := s.CanAccessConversation(ctx, callerID, conversationID, role)
	if err != nil {
		return nil, 0, err
	}
	if !ok {
		return nil, 0, ErrAccessDenied
	}
	return s.repo.ListMessages(ctx, conversationID, limit, offset)
}

// CanAccessConversation reports whether the user participates in the
// conversation. Staff roles may read any conversation.
func (s *Service) CanAccessConversation(ctx context.Context, userID, conversationID uuid.UUID, role string) (bool, error) {
	conv, err := s.repo.GetConversation(ctx, conversationID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return conv.Participant(userID) || auth.IsStaffRole(role), nil
}

// Send posts a message. Only participants may write, regardless of role.
func (s *Service) Send(ctx context.Context, conversationID, senderID uuid.UUID, body string) (*Message, error) {
	if body == "" {
		return nil, fmt.Errorf("body is required")
	}
	if len(body) > maxMessageLength {
		return nil, fmt.Errorf("body exceeds %d characters", maxMessageLength)
	}

	conv, err := s.repo.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.Participant(senderID) {
		return nil, ErrAccessDenied
	}

	m := &Message{ConversationID: conversationID, SenderID: senderID, Body: body}
	if err := s.repo.CreateMessage(ctx, m); err != nil {
		return nil, err
	}
	if sender, err := s.users.Get(ctx, senderID); err == nil {
		m.SenderName = sender.FullName()
	}

	recipientID := conv.Other(senderID)
	if s.events != nil {
		topic := ws.ConversationTopic(conversationID)
		_ = s.events.Publish(ctx, ws.NewEvent(ws.EventNewMessage, topic, m))
		s.publishUnread(ctx, recipientID)
	}
	if s.notifier != nil {
		s.notifier.MessageReceived(ctx, recipientID, m)
	}
	return m, nil
}

// SendMessage implements the ChatRouter interface for the WebSocket handler.
func (s *Service) SendMessage(ctx context.Context, userID, conversationID uuid.UUID, body string) error {
	_, err := s.Send(ctx, conversationID, userID, body)
	return err
}

// Read marks every message addressed to the reader in the conversation as
// read and pushes the new unread total.
func (s *Service) Read(ctx context.Context, conversationID, readerID uuid.UUID) error {
	conv, err := s.repo.GetConversation(ctx, conversationID)
	if err != nil {
		return err
	}
	if !conv.Participant(readerID) {
		return ErrAccessDenied
	}

	marked, err := s.repo.MarkRead(ctx, conversationID, readerID)
	if err != nil {
		return err
	}
	if marked > 0 && s.events != nil {
		s.publishUnread(ctx, readerID)
	}
	return nil
}

// MarkAsRead implements the ChatRouter interface for the WebSocket handler.
func (s *Service) MarkAsRead(ctx context.Context, userID, conversationID uuid.UUID) error {
	return s.Read(ctx, conversationID, userID)
}

// UnreadTotal returns the user's unread message count across conversations.
func (s *Service) UnreadTotal(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.repo.UnreadCount(ctx, userID)
}

func (s *Service) publishUnread(ctx context.Context, userID uuid.UUID) {
	n, err := s.repo.UnreadCount(ctx, userID)
	if err != nil {
		return
	}
	topic := ws.UserTopic(userID)
	_ = s.events.Publish(ctx, ws.NewEvent(ws.EventUnreadCountUpdate, topic, map[string]int{"unread": n}))
}
