package medicalrecord

import (
	"time"

	"github.com/google/uuid"
)

// Record maps to the medical_records table. DoctorID is the authoring
// clinician; AppointmentID links the record to the visit it documents.
// Vitals holds a free-form JSON document (blood pressure, pulse, and so on)
// that the API stores verbatim.
type Record struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	PatientID     uuid.UUID  `db:"patient_id" json:"patient_id"`
	DoctorID      uuid.UUID  `db:"doctor_id" json:"doctor_id"`
	AppointmentID *uuid.UUID `db:"appointment_id" json:"appointment_id,omitempty"`
	Title         string     `db:"title" json:"title"`
	Diagnosis     string     `db:"diagnosis" json:"diagnosis"`
	Prescription  *string    `db:"prescription" json:"prescription,omitempty"`
	Vitals        *string    `db:"vitals" json:"vitals,omitempty"`
	Notes         *string    `db:"notes" json:"notes,omitempty"`
	AttachmentURL *string    `db:"attachment_url" json:"attachment_url,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// CreateRequest is the payload for writing a new record.
type CreateRequest struct {
	PatientID     uuid.UUID  `json:"patient_id"`
	AppointmentID *uuid.UUID `json:"appointment_id,omitempty"`
	Title         string     `json:"title"`
	Diagnosis     string     `json:"diagnosis"`
	Prescription  *string    `json:"prescription,omitempty"`
	Vitals        *string    `json:"vitals,omitempty"`
	Notes         *string    `json:"notes,omitempty"`
	AttachmentURL *string    `json:"attachment_url,omitempty"`
}

// UpdateRequest amends an existing record. Nil fields are left unchanged.
type UpdateRequest struct {
	Title         *string `json:"title,omitempty"`
	Diagnosis     *string `json:"diagnosis,omitempty"`
	Prescription  *string `json:"prescription,omitempty"`
	Vitals        *string `json:"vitals,omitempty"`
	Notes         *string `json:"notes,omitempty"`
	AttachmentURL *string `json:"attachment_url,omitempty"`
}
