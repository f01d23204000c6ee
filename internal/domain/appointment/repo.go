package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no appointment matches the lookup.
var ErrNotFound = errors.New("appointment not found")

// ErrSlotTaken is returned when the requested slot already holds a scheduled
// appointment for the doctor.
var ErrSlotTaken = errors.New("slot already booked")

type Repository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	// Update persists the mutable fields (times, reason, notes). A slot
	// conflict on the new starts_at surfaces as ErrSlotTaken.
	Update(ctx context.Context, a *Appointment) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status string, notes, cancellationReason *string) error
	List(ctx context.Context, f ListFilter, limit, offset int) ([]*Appointment, int, error)
	// ScheduledBetween returns the doctor's SCHEDULED appointments whose
	// interval intersects [from, to).
	ScheduledBetween(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]*Appointment, error)
	// HasScheduledOverlap reports whether any SCHEDULED appointment for the
	// doctor, other than excludeID, overlaps [start, end). Called inside the
	// booking and reschedule transactions; pass uuid.Nil to exclude nothing.
	HasScheduledOverlap(ctx context.Context, doctorID uuid.UUID, start, end time.Time, excludeID uuid.UUID) (bool, error)
}

type ScheduleRepository interface {
	Upsert(ctx context.Context, s *Schedule) error
	GetByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*Schedule, error)
	GetByDoctorWeekday(ctx context.Context, doctorID uuid.UUID, weekday int) (*Schedule, error)
}
