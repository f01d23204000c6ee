package messaging

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no conversation or message matches the lookup.
var ErrNotFound = errors.New("conversation not found")

type Repository interface {
	// GetOrCreateConversation returns the conversation for the pair,
	// creating it on first contact. The pair is unordered.
	GetOrCreateConversation(ctx context.Context, a, b uuid.UUID) (*Conversation, error)
	GetConversation(ctx context.Context, id uuid.UUID) (*Conversation, error)
	ListConversations(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Conversation, int, error)

	CreateMessage(ctx context.Context, m *Message) error
	ListMessages(ctx context.Context, conversationID uuid.UUID, limit, offset int) ([]*Message, int, error)
	// MarkRead stamps read_at on every unread message in the conversation
	// not sent by readerID. Returns the number of messages marked.
	MarkRead(ctx context.Context, conversationID, readerID uuid.UUID) (int, error)
	// UnreadCount returns the number of unread messages addressed to the
	// user across all conversations.
	UnreadCount(ctx context.Context, userID uuid.UUID) (int, error)
	UnreadCountInConversation(ctx context.Context, conversationID, userID uuid.UUID) (int, error)
}
