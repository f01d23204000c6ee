package billing

import (
	"time"

	"github.com/google/uuid"
)

// Invoice statuses. PAID and CANCELLED are terminal.
const (
	StatusDraft     = "DRAFT"
	StatusSent      = "SENT"
	StatusPaid      = "PAID"
	StatusOverdue   = "OVERDUE"
	StatusCancelled = "CANCELLED"
)

// ValidStatus reports whether s is a known invoice status.
func ValidStatus(s string) bool {
	switch s {
	case StatusDraft, StatusSent, StatusPaid, StatusOverdue, StatusCancelled:
		return true
	}
	return false
}

// Invoice maps to the invoices table. Amounts are integer cents; payment
// itself happens at the external provider and only its outcome is mirrored
// here (ProviderChargeID, PaidAt).
type Invoice struct {
	ID               uuid.UUID  `db:"id" json:"id"`
	PatientID        uuid.UUID  `db:"patient_id" json:"patient_id"`
	AppointmentID    *uuid.UUID `db:"appointment_id" json:"appointment_id,omitempty"`
	AmountCents      int64      `db:"amount_cents" json:"amount_cents"`
	Currency         string     `db:"currency" json:"currency"`
	Description      string     `db:"description" json:"description"`
	Status           string     `db:"status" json:"status"`
	DueDate          *time.Time `db:"due_date" json:"due_date,omitempty"`
	ProviderChargeID *string    `db:"provider_charge_id" json:"provider_charge_id,omitempty"`
	PaidAt           *time.Time `db:"paid_at" json:"paid_at,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`

	PatientName string `db:"-" json:"patient_name,omitempty"`
}

// Payable reports whether the invoice can still be charged.
func (i *Invoice) Payable() bool {
	return i.Status == StatusSent || i.Status == StatusOverdue
}

type CreateRequest struct {
	PatientID     uuid.UUID  `json:"patient_id"`
	AppointmentID *uuid.UUID `json:"appointment_id,omitempty"`
	AmountCents   int64      `json:"amount_cents"`
	Currency      string     `json:"currency"`
	Description   string     `json:"description"`
	DueDate       *time.Time `json:"due_date,omitempty"`
	// Send issues the invoice immediately instead of leaving it in DRAFT.
	Send bool `json:"send"`
}

// UpdateRequest amends a non-terminal invoice. Nil fields are left unchanged.
// Status may only move DRAFT -> SENT here; payment and cancellation have
// their own operations.
type UpdateRequest struct {
	AmountCents *int64     `json:"amount_cents,omitempty"`
	Description *string    `json:"description,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	Status      *string    `json:"status,omitempty"`
}
