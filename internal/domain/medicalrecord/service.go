package medicalrecord

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/carehub/carehub/internal/domain/user"
	"github.com/carehub/carehub/internal/platform/auth"
)

// ErrAccessDenied is returned when the caller may not see or change the
// record.
var ErrAccessDenied = errors.New("access denied")

// UserGetter is the slice of the user service this package needs.
type UserGetter interface {
	Get(ctx context.Context, id uuid.UUID) (*user.User, error)
}

type Service struct {
	repo  Repository
	users UserGetter
}

func NewService(repo Repository, users UserGetter) *Service {
	return &Service{repo: repo, users: users}
}

// Create writes a record authored by the calling clinician.
func (s *Service) Create(ctx context.Context, doctorID uuid.UUID, req CreateRequest) (*Record, error) {
	if req.Title == "" {
		return nil, fmt.Errorf("title is required")
	}
	if req.Diagnosis == "" {
		return nil, fmt.Errorf("diagnosis is required")
	}
	patient, err := s.users.Get(ctx, req.PatientID)
	if err != nil || patient.Role != auth.RolePatient {
		return nil, fmt.Errorf("patient not found")
	}

	rec := &Record{
		PatientID:     req.PatientID,
		DoctorID:      doctorID,
		AppointmentID: req.AppointmentID,
		Title:         req.Title,
		Diagnosis:     req.Diagnosis,
		Prescription:  req.Prescription,
		Vitals:        req.Vitals,
		Notes:         req.Notes,
		AttachmentURL: req.AttachmentURL,
	}
	if err := s.repo.Create(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Get returns a record readable by its patient, its author, or staff.
func (s *Service) Get(ctx context.Context, id, callerID uuid.UUID, role string) (*Record, error) {
	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.canRead(rec, callerID, role) {
		return nil, ErrAccessDenied
	}
	return rec, nil
}

// Clinicians and staff may consult any chart; patients only their own.
func (s *Service) canRead(rec *Record, callerID uuid.UUID, role string) bool {
	if auth.IsStaffRole(role) || role == auth.RoleDoctor {
		return true
	}
	return rec.PatientID == callerID
}

// ListForPatient returns a patient's records. Patients read their own chart;
// doctors and staff may read any patient's.
func (s *Service) ListForPatient(ctx context.Context, patientID, callerID uuid.UUID, role string, limit, offset int) ([]*Record, int, error) {
	if role == auth.RolePatient && patientID != callerID {
		return nil, 0, ErrAccessDenied
	}
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}

// ListAuthored returns the records written by a doctor.
func (s *Service) ListAuthored(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Record, int, error) {
	return s.repo.ListByDoctor(ctx, doctorID, limit, offset)
}

// Update amends a record. Only the authoring doctor (or an admin) may edit.
func (s *Service) Update(ctx context.Context, id, callerID uuid.UUID, role string, req UpdateRequest) (*Record, error) {
	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if role != auth.RoleAdmin && rec.DoctorID != callerID {
		return nil, ErrAccessDenied
	}

	if req.Title != nil {
		if *req.Title == "" {
			return nil, fmt.Errorf("title cannot be empty")
		}
		rec.Title = *req.Title
	}
	if req.Diagnosis != nil {
		if *req.Diagnosis == "" {
			return nil, fmt.Errorf("diagnosis cannot be empty")
		}
		rec.Diagnosis = *req.Diagnosis
	}
	if req.Prescription != nil {
		rec.Prescription = req.Prescription
	}
	if req.Vitals != nil {
		rec.Vitals = req.Vitals
	}
	if req.Notes != nil {
		rec.Notes = req.Notes
	}
	if req.AttachmentURL != nil {
		rec.AttachmentURL = req.AttachmentURL
	}
	if err := s.repo.Update(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Delete removes a record permanently. Admin only; clinicians amend instead.
func (s *Service) Delete(ctx context.Context, id uuid.UUID, role string) error {
	if role != auth.RoleAdmin {
		return ErrAccessDenied
	}
	return s.repo.Delete(ctx, id)
}
