package notification

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no notification matches the lookup.
var ErrNotFound = errors.New("notification not found")

type Repository interface {
	Create(ctx context.Context, n *Notification) error
	// ListByUser returns the user's feed, newest first. unreadOnly filters
	// out read items.
	ListByUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit, offset int) ([]*Notification, int, error)
	// MarkRead stamps read_at on one notification owned by userID.
	MarkRead(ctx context.Context, id, userID uuid.UUID) error
	// MarkAllRead stamps read_at on every unread notification for the user
	// and returns the number marked.
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int, error)
	UnreadCount(ctx context.Context, userID uuid.UUID) (int, error)
}
