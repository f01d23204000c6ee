package appointment

import (
	"time"

	"github.com/google/uuid"
)

// Appointment statuses. An appointment only occupies its slot while
// SCHEDULED; cancelling frees the slot for rebooking.
const (
	StatusScheduled = "SCHEDULED"
	StatusCompleted = "COMPLETED"
	StatusCancelled = "CANCELLED"
)

// Appointment maps to the appointments table. PatientName and DoctorName are
// filled from the users join on reads.
type Appointment struct {
	ID                 uuid.UUID `db:"id" json:"id"`
	PatientID          uuid.UUID `db:"patient_id" json:"patient_id"`
	DoctorID           uuid.UUID `db:"doctor_id" json:"doctor_id"`
	StartsAt           time.Time `db:"starts_at" json:"starts_at"`
	EndsAt             time.Time `db:"ends_at" json:"ends_at"`
	Status             string    `db:"status" json:"status"`
	Reason             string    `db:"reason" json:"reason"`
	Notes              *string   `db:"notes" json:"notes,omitempty"`
	CancellationReason *string   `db:"cancellation_reason" json:"cancellation_reason,omitempty"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time `db:"updated_at" json:"updated_at"`
	PatientName        string    `db:"-" json:"patient_name,omitempty"`
	DoctorName         string    `db:"-" json:"doctor_name,omitempty"`
}

// Participant reports whether the user is the patient or doctor on this
// appointment.
func (a *Appointment) Participant(userID uuid.UUID) bool {
	return a.PatientID == userID || a.DoctorID == userID
}

// Schedule maps to the doctor_schedules table: one row per doctor and
// weekday. Times are minutes since midnight.
type Schedule struct {
	ID          uuid.UUID `db:"id" json:"id"`
	DoctorID    uuid.UUID `db:"doctor_id" json:"doctor_id"`
	Weekday     int       `db:"weekday" json:"weekday"`
	OpenMinute  int       `db:"open_minute" json:"open_minute"`
	CloseMinute int       `db:"close_minute" json:"close_minute"`
	SlotMinutes int       `db:"slot_minutes" json:"slot_minutes"`
	Available   bool      `db:"available" json:"available"`
}

// BookRequest is the payload for booking an appointment. PatientID is only
// honored for staff callers; patients always book for themselves.
type BookRequest struct {
	PatientID *uuid.UUID `json:"patient_id,omitempty"`
	DoctorID  uuid.UUID  `json:"doctor_id"`
	StartsAt  time.Time  `json:"starts_at"`
	Reason    string     `json:"reason"`
}

// StatusUpdateRequest changes an appointment's status.
type StatusUpdateRequest struct {
	Status             string  `json:"status"`
	Notes              *string `json:"notes,omitempty"`
	CancellationReason *string `json:"cancellation_reason,omitempty"`
}

// RescheduleRequest updates a scheduled appointment. Nil fields are left
// unchanged; a new StartsAt goes through the same slot checks as booking.
type RescheduleRequest struct {
	StartsAt *time.Time `json:"starts_at,omitempty"`
	Reason   *string    `json:"reason,omitempty"`
	Notes    *string    `json:"notes,omitempty"`
}

// CancelRequest optionally records why the appointment was cancelled.
type CancelRequest struct {
	Reason *string `json:"reason,omitempty"`
}

// ListFilter narrows an appointment listing. The service pins PatientID or
// DoctorID for non-staff callers before it reaches the repository.
type ListFilter struct {
	PatientID *uuid.UUID
	DoctorID  *uuid.UUID
	Status    string
	From      *time.Time
	To        *time.Time
}

// ScheduleRequest sets a doctor's hours for one weekday.
type ScheduleRequest struct {
	Weekday     int  `json:"weekday"`
	OpenMinute  int  `json:"open_minute"`
	CloseMinute int  `json:"close_minute"`
	SlotMinutes int  `json:"slot_minutes"`
	Available   bool `json:"available"`
}
