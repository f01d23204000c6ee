package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/carehub/carehub/internal/domain/user"
	"github.com/carehub/carehub/internal/platform/auth"
	"github.com/carehub/carehub/internal/platform/payment"
)

// ErrAccessDenied is returned when the caller may not see or change the
// invoice.
var ErrAccessDenied = errors.New("access denied")

// ErrImmutable is returned when an invoice in a terminal status is edited.
var ErrImmutable = errors.New("invoice can no longer be changed")

// ErrNotPayable is returned when payment is attempted on an invoice that is
// not in SENT or OVERDUE status.
var ErrNotPayable = errors.New("invoice is not payable")

// UserGetter is the slice of the user service this package needs.
type UserGetter interface {
	Get(ctx context.Context, id uuid.UUID) (*user.User, error)
}

// Notifier is told about invoice lifecycle events.
type Notifier interface {
	InvoiceIssued(ctx context.Context, inv *Invoice)
	InvoicePaid(ctx context.Context, inv *Invoice)
}

// Service owns invoices. All payment computation is delegated to the external
// provider; this service only mirrors the outcome.
type Service struct {
	repo     Repository
	users    UserGetter
	charger  payment.Charger
	notifier Notifier
	now      func() time.Time
}

func NewService(repo Repository, users UserGetter, charger payment.Charger) *Service {
	return &Service{repo: repo, users: users, charger: charger, now: time.Now}
}

// SetNotifier attaches an optional notifier.
func (s *Service) SetNotifier(n Notifier) { s.notifier = n }

// Create opens an invoice for a patient. Staff only; enforced at the route.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Invoice, error) {
	if req.AmountCents <= 0 {
		return nil, fmt.Errorf("amount_cents must be positive")
	}
	if req.Description == "" {
		return nil, fmt.Errorf("description is required")
	}
	patient, err := s.users.Get(ctx, req.PatientID)
	if err != nil || patient.Role != auth.RolePatient {
		return nil, fmt.Errorf("patient not found")
	}

	currency := strings.ToUpper(req.Currency)
	if currency == "" {
		currency = "USD"
	}
	if len(currency) != 3 {
		return nil, fmt.Errorf("currency must be a 3-letter code")
	}

	inv := &Invoice{
		PatientID:     req.PatientID,
		AppointmentID: req.AppointmentID,
		AmountCents:   req.AmountCents,
		Currency:      currency,
		Description:   req.Description,
		Status:        StatusDraft,
		DueDate:       req.DueDate,
	}
	if req.Send {
		inv.Status = StatusSent
	}
	if err := s.repo.Create(ctx, inv); err != nil {
		return nil, err
	}
	inv.PatientName = patient.FullName()

	if inv.Status == StatusSent && s.notifier != nil {
		s.notifier.InvoiceIssued(ctx, inv)
	}
	return inv, nil
}

// Get returns an invoice. Patients see only their own.
func (s *Service) Get(ctx context.Context, id, callerID uuid.UUID, role string) (*Invoice, error) {
	inv, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !auth.IsStaffRole(role) && inv.PatientID != callerID {
		return nil, ErrAccessDenied
	}
	return inv, nil
}

// List returns invoices for the caller's scope. Patients are pinned to their
// own invoices; staff may filter by patient and status. The overdue sweep
// runs first so listings never show a stale SENT past its due date.
func (s *Service) List(ctx context.Context, callerID uuid.UUID, role string, patientID *uuid.UUID, status string, limit, offset int) ([]*Invoice, int, error) {
	if status != "" && !ValidStatus(status) {
		return nil, 0, fmt.Errorf("unknown status %q", status)
	}
	if !auth.IsStaffRole(role) {
		patientID = &callerID
	}
	if _, err := s.repo.MarkOverdue(ctx, s.now()); err != nil {
		return nil, 0, err
	}
	return s.repo.List(ctx, patientID, status, limit, offset)
}

// Update amends a non-terminal invoice. The only status change allowed here
// is issuing a draft (DRAFT -> SENT).
func (s *Service) Update(ctx context.Context, id uuid.UUID, req UpdateRequest) (*Invoice, error) {
	inv, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv.Status == StatusPaid || inv.Status == StatusCancelled {
		return nil, ErrImmutable
	}

	if req.AmountCents != nil {
		if *req.AmountCents <= 0 {
			return nil, fmt.Errorf("amount_cents must be positive")
		}
		inv.AmountCents = *req.AmountCents
	}
	if req.Description != nil {
		if *req.Description == "" {
			return nil, fmt.Errorf("description cannot be empty")
		}
		inv.Description = *req.Description
	}
	if req.DueDate != nil {
		inv.DueDate = req.DueDate
	}

	issued := false
	if req.Status != nil && *req.Status != inv.Status {
		if inv.Status != StatusDraft || *req.Status != StatusSent {
			return nil, fmt.Errorf("cannot change status from %s to %s", inv.Status, *req.Status)
		}
		inv.Status = StatusSent
		issued = true
	}

	if err := s.repo.Update(ctx, inv); err != nil {
		return nil, err
	}
	if issued && s.notifier != nil {
		s.notifier.InvoiceIssued(ctx, inv)
	}
	return inv, nil
}

// Cancel voids an invoice. Paid invoices cannot be cancelled.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) error {
	inv, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if inv.Status == StatusPaid {
		return ErrImmutable
	}
	if inv.Status == StatusCancelled {
		return nil
	}
	inv.Status = StatusCancelled
	return s.repo.Update(ctx, inv)
}

// Pay charges the invoice through the external provider and mirrors the
// outcome. Patients may pay their own invoices; staff may pay on a patient's
// behalf (front-desk card terminal).
func (s *Service) Pay(ctx context.Context, id, callerID uuid.UUID, role string) (*Invoice, error) {
	inv, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !auth.IsStaffRole(role) && inv.PatientID != callerID {
		return nil, ErrAccessDenied
	}
	if !inv.Payable() {
		return nil, ErrNotPayable
	}

	charge, err := s.charger.CreateCharge(ctx, payment.ChargeRequest{
		InvoiceID:   inv.ID.String(),
		AmountCents: inv.AmountCents,
		Currency:    inv.Currency,
		Description: inv.Description,
	})
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	inv.Status = StatusPaid
	inv.PaidAt = &now
	inv.ProviderChargeID = &charge.ID
	if err := s.repo.Update(ctx, inv); err != nil {
		return nil, err
	}
	if s.notifier != nil {
		s.notifier.InvoicePaid(ctx, inv)
	}
	return inv, nil
}
