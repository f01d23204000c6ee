package notification

import (
	"time"

	"github.com/google/uuid"
)

// Notification kinds shown in the in-app feed.
const (
	KindAppointmentBooked    = "appointment_booked"
	KindAppointmentCancelled = "appointment_cancelled"
	KindNewMessage           = "new_message"
	KindInvoiceIssued        = "invoice_issued"
	KindInvoicePaid          = "invoice_paid"
)

// Resource types a feed item may point back to.
const (
	ResourceAppointment  = "appointment"
	ResourceConversation = "conversation"
	ResourceInvoice      = "invoice"
)

// Notification maps to the notifications table: one row per in-app feed item.
// ResourceType and ResourceID link the item to the record it concerns so
// clients can deep-link from the feed. External delivery (email, SMS) is
// handled separately and not recorded here.
type Notification struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	UserID       uuid.UUID  `db:"user_id" json:"user_id"`
	Kind         string     `db:"kind" json:"kind"`
	Title        string     `db:"title" json:"title"`
	Body         string     `db:"body" json:"body"`
	ResourceType string     `db:"resource_type" json:"resource_type,omitempty"`
	ResourceID   string     `db:"resource_id" json:"resource_id,omitempty"`
	ReadAt       *time.Time `db:"read_at" json:"read_at,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
}
