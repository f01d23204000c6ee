package audit

import (
	"time"

	"github.com/google/uuid"
)

// Event maps to the audit_events table: one row per authenticated API
// request. UserID is text rather than a foreign key so entries survive
// account deactivation and malformed tokens.
type Event struct {
	ID           uuid.UUID `db:"id" json:"id"`
	UserID       string    `db:"user_id" json:"user_id"`
	UserRole     string    `db:"user_role" json:"user_role"`
	Action       string    `db:"action" json:"action"`
	ResourceType string    `db:"resource_type" json:"resource_type"`
	ResourceID   string    `db:"resource_id" json:"resource_id,omitempty"`
	Method       string    `db:"method" json:"method"`
	Path         string    `db:"path" json:"path"`
	IPAddress    string    `db:"ip_address" json:"ip_address,omitempty"`
	UserAgent    string    `db:"user_agent" json:"user_agent,omitempty"`
	RequestID    string    `db:"request_id" json:"request_id,omitempty"`
	StatusCode   int       `db:"status_code" json:"status_code"`
	OccurredAt   time.Time `db:"occurred_at" json:"occurred_at"`
}

// Filter narrows an audit listing. Zero values mean no filter.
type Filter struct {
	UserID       string
	ResourceType string
	Action       string
}
