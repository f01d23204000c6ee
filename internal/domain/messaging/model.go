package messaging

import (
	"bytes"
	"time"

	"github.com/google/uuid"
)

// Conversation maps to the conversations table: one row per unordered pair
// of users. UserAID always holds the smaller UUID so the pair is unique.
type Conversation struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	UserAID       uuid.UUID  `db:"user_a_id" json:"user_a_id"`
	UserBID       uuid.UUID  `db:"user_b_id" json:"user_b_id"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	LastMessageAt *time.Time `db:"last_message_at" json:"last_message_at,omitempty"`
	UserAName     string     `db:"-" json:"user_a_name,omitempty"`
	UserBName     string     `db:"-" json:"user_b_name,omitempty"`
	UnreadCount   int        `db:"-" json:"unread_count"`
}

// Participant reports whether the user is part of this conversation.
func (c *Conversation) Participant(userID uuid.UUID) bool {
	return c.UserAID == userID || c.UserBID == userID
}

// Other returns the counterpart of userID in the conversation.
func (c *Conversation) Other(userID uuid.UUID) uuid.UUID {
	if c.UserAID == userID {
		return c.UserBID
	}
	return c.UserAID
}

// orderPair returns the two IDs with the smaller one first, matching the
// storage convention for conversation pairs.
func orderPair(a, b uuid.UUID) (uuid.UUID, uuid.UUID) {
	if bytes.Compare(a[:], b[:]) <= 0 {
		return a, b
	}
	return b, a
}

// Message maps to the messages table. ReadAt is set when the recipient
// marks the conversation read.
type Message struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	ConversationID uuid.UUID  `db:"conversation_id" json:"conversation_id"`
	SenderID       uuid.UUID  `db:"sender_id" json:"sender_id"`
	Body           string     `db:"body" json:"body"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	ReadAt         *time.Time `db:"read_at" json:"read_at,omitempty"`
	SenderName     string     `db:"-" json:"sender_name,omitempty"`
}

// StartRequest opens (or returns) the conversation with another user.
type StartRequest struct {
	UserID uuid.UUID `json:"user_id"`
}

// SendRequest posts a message to a conversation.
type SendRequest struct {
	Body string `json:"body"`
}
