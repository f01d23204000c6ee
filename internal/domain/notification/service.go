package notification

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/carehub/carehub/internal/platform/ws"
)

// Service owns the in-app notification feed. Every create is pushed to the
// user's WebSocket topic so open clients update without polling.
type Service struct {
	repo   Repository
	events ws.EventPublisher
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// SetEventPublisher attaches an optional real-time event publisher.
func (s *Service) SetEventPublisher(events ws.EventPublisher) { s.events = events }

// Create persists a feed item and pushes it to the user's topic.
func (s *Service) Create(ctx context.Context, n *Notification) (*Notification, error) {
	if n.Title == "" {
		return nil, fmt.Errorf("title is required")
	}

	if err := s.repo.Create(ctx, n); err != nil {
		return nil, err
	}
	if s.events != nil {
		topic := ws.UserTopic(n.UserID)
		_ = s.events.Publish(ctx, ws.NewEvent(ws.EventNotification, topic, n))
		s.publishUnread(ctx, n.UserID)
	}
	return n, nil
}

// List returns the caller's feed, newest first.
func (s *Service) List(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit, offset int) ([]*Notification, int, error) {
	return s.repo.ListByUser(ctx, userID, unreadOnly, limit, offset)
}

// MarkRead stamps one of the caller's notifications. Marking twice is a
// no-op; another user's notification reads as not found.
func (s *Service) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	if err := s.repo.MarkRead(ctx, id, userID); err != nil {
		return err
	}
	if s.events != nil {
		s.publishUnread(ctx, userID)
	}
	return nil
}

// MarkAllRead clears the caller's unread feed.
func (s *Service) MarkAllRead(ctx context.Context, userID uuid.UUID) (int, error) {
	marked, err := s.repo.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, err
	}
	if marked > 0 && s.events != nil {
		s.publishUnread(ctx, userID)
	}
	return marked, nil
}

// UnreadCount returns the caller's unread feed size.
func (s *Service) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
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
