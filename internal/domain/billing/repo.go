package billing

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no invoice matches the lookup.
var ErrNotFound = errors.New("invoice not found")

type Repository interface {
	Create(ctx context.Context, inv *Invoice) error
	GetByID(ctx context.Context, id uuid.UUID) (*Invoice, error)
	Update(ctx context.Context, inv *Invoice) error
	// List filters by patient and/or status; nil / empty means no filter.
	List(ctx context.Context, patientID *uuid.UUID, status string, limit, offset int) ([]*Invoice, int, error)
	// MarkOverdue flips SENT invoices whose due date has passed to OVERDUE
	// and returns the number of rows changed.
	MarkOverdue(ctx context.Context, now time.Time) (int, error)
}
