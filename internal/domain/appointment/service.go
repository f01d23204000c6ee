package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/carehub/carehub/internal/domain/user"
	"github.com/carehub/carehub/internal/platform/auth"
	"github.com/carehub/carehub/internal/platform/ws"
)

// ErrAccessDenied is returned when the caller is neither a participant of the
// appointment nor staff.
var ErrAccessDenied = errors.New("access denied")

// ErrDoctorNotFound is returned when the referenced user does not exist or is
// not a doctor.
var ErrDoctorNotFound = errors.New("doctor not found")

// ClinicHours are the fallback hours used when a doctor has no schedule row
// for a weekday.
type ClinicHours struct {
	OpenMinute  int
	CloseMinute int
	SlotMinutes int
}

// UserGetter is the slice of the user service the appointment service needs.
type UserGetter interface {
	Get(ctx context.Context, id uuid.UUID) (*user.User, error)
}

// Notifier receives appointment lifecycle events for delivery to the
// participants (in-app rows, email, SMS).
type Notifier interface {
	AppointmentBooked(ctx context.Context, a *Appointment)
	AppointmentCancelled(ctx context.Context, a *Appointment)
}

// TxRunner executes fn inside a database transaction. The booking path uses
// it so the overlap check and the insert commit atomically.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

type Service struct {
	repo      Repository
	schedules ScheduleRepository
	users     UserGetter
	hours     ClinicHours
	runTx     TxRunner
	events    ws.EventPublisher
	notifier  Notifier
}

func NewService(repo Repository, schedules ScheduleRepository, users UserGetter, hours ClinicHours, runTx TxRunner) *Service {
	return &Service{repo: repo, schedules: schedules, users: users, hours: hours, runTx: runTx}
}

// SetEventPublisher attaches an optional real-time event publisher.
func (s *Service) SetEventPublisher(events ws.EventPublisher) { s.events = events }

// SetNotifier attaches an optional notifier.
func (s *Service) SetNotifier(n Notifier) { s.notifier = n }

// Book creates a SCHEDULED appointment in the requested slot. The overlap
// check and insert run in one transaction; the partial unique index on
// (doctor_id, starts_at) for SCHEDULED rows backstops concurrent bookings
// that race past the check.
func (s *Service) Book(ctx context.Context, patientID uuid.UUID, req BookRequest) (*Appointment, error) {
	doctor, err := s.users.Get(ctx, req.DoctorID)
	if err != nil || doctor.Role != auth.RoleDoctor {
		return nil, ErrDoctorNotFound
	}
	patient, err := s.users.Get(ctx, patientID)
	if err != nil || patient.Role != auth.RolePatient {
		return nil, fmt.Errorf("patient not found")
	}
	if req.Reason == "" {
		return nil, fmt.Errorf("reason is required")
	}

	start := req.StartsAt.UTC()
	if !start.After(time.Now().UTC()) {
		return nil, fmt.Errorf("starts_at must be in the future")
	}

	openMin, closeMin, slotMin, available, err := s.hoursFor(ctx, req.DoctorID, int(start.Weekday()))
	if err != nil {
		return nil, err
	}
	if !available {
		return nil, fmt.Errorf("doctor is not available on that day")
	}
	if !AlignsWithGrid(start, openMin, closeMin, slotMin) {
		return nil, fmt.Errorf("starts_at does not fall on a bookable slot")
	}

	a := &Appointment{
		PatientID: patientID,
		DoctorID:  req.DoctorID,
		StartsAt:  start,
		EndsAt:    start.Add(time.Duration(slotMin) * time.Minute),
		Status:    StatusScheduled,
		Reason:    req.Reason,
	}

	err = s.runTx(ctx, func(txCtx context.Context) error {
		taken, err := s.repo.HasScheduledOverlap(txCtx, a.DoctorID, a.StartsAt, a.EndsAt, uuid.Nil)
		if err != nil {
			return err
		}
		if taken {
			return ErrSlotTaken
		}
		return s.repo.Create(txCtx, a)
	})
	if err != nil {
		return nil, err
	}

	a.PatientName = patient.FullName()
	a.DoctorName = doctor.FullName()

	s.publish(ws.EventAppointmentCreated, a)
	if s.notifier != nil {
		s.notifier.AppointmentBooked(ctx, a)
	}
	return a, nil
}

// hoursFor resolves the doctor's hours for a weekday, falling back to the
// clinic defaults when no schedule row exists.
func (s *Service) hoursFor(ctx context.Context, doctorID uuid.UUID, weekday int) (openMin, closeMin, slotMin int, available bool, err error) {
	sched, err := s.schedules.GetByDoctorWeekday(ctx, doctorID, weekday)
	if errors.Is(err, ErrNotFound) {
		return s.hours.OpenMinute, s.hours.CloseMinute, s.hours.SlotMinutes, true, nil
	}
	if err != nil {
		return 0, 0, 0, false, err
	}
	return sched.OpenMinute, sched.CloseMinute, sched.SlotMinutes, sched.Available, nil
}

// Slots returns the doctor's slot grid for one day, with slots overlapping a
// SCHEDULED appointment marked unavailable.
func (s *Service) Slots(ctx context.Context, doctorID uuid.UUID, day time.Time) ([]Slot, error) {
	doctor, err := s.users.Get(ctx, doctorID)
	if err != nil || doctor.Role != auth.RoleDoctor {
		return nil, ErrDoctorNotFound
	}

	day = day.UTC()
	openMin, closeMin, slotMin, available, err := s.hoursFor(ctx, doctorID, int(day.Weekday()))
	if err != nil {
		return nil, err
	}
	if !available {
		return []Slot{}, nil
	}

	midnight := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	from := midnight.Add(time.Duration(openMin) * time.Minute)
	to := midnight.Add(time.Duration(closeMin) * time.Minute)

	appts, err := s.repo.ScheduledBetween(ctx, doctorID, from, to)
	if err != nil {
		return nil, err
	}
	booked := make([]Interval, 0, len(appts))
	for _, a := range appts {
		booked = append(booked, Interval{Start: a.StartsAt, End: a.EndsAt})
	}
	return GenerateSlots(midnight, openMin, closeMin, slotMin, booked), nil
}

// Get returns an appointment if the caller participates in it or is staff.
func (s *Service) Get(ctx context.Context, id, callerID uuid.UUID, role string) (*Appointment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !auth.IsStaffRole(role) && !a.Participant(callerID) {
		return nil, ErrAccessDenied
	}
	return a, nil
}

// ListFor returns the caller's appointments: patients and doctors are pinned
// to their own, staff may filter by any participant. Status and date filters
// apply to everyone.
func (s *Service) ListFor(ctx context.Context, callerID uuid.UUID, role string, f ListFilter, limit, offset int) ([]*Appointment, int, error) {
	if f.Status != "" && f.Status != StatusScheduled && f.Status != StatusCompleted && f.Status != StatusCancelled {
		return nil, 0, fmt.Errorf("invalid status: %s", f.Status)
	}
	switch role {
	case auth.RolePatient:
		f.PatientID = &callerID
		f.DoctorID = nil
	case auth.RoleDoctor:
		f.DoctorID = &callerID
		f.PatientID = nil
	}
	return s.repo.List(ctx, f, limit, offset)
}

// Reschedule moves a SCHEDULED appointment to a new slot or updates its
// reason and notes. Only the appointment's doctor and staff may reschedule; a
// time change goes through the same availability checks as booking, with the
// appointment itself excluded from the overlap check.
func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, req RescheduleRequest, callerID uuid.UUID, role string) (*Appointment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !auth.IsStaffRole(role) && !(role == auth.RoleDoctor && a.DoctorID == callerID) {
		return nil, ErrAccessDenied
	}
	if a.Status != StatusScheduled {
		return nil, fmt.Errorf("appointment is %s and cannot be rescheduled", a.Status)
	}

	if req.Reason != nil {
		if *req.Reason == "" {
			return nil, fmt.Errorf("reason cannot be empty")
		}
		a.Reason = *req.Reason
	}
	if req.Notes != nil {
		a.Notes = req.Notes
	}

	if req.StartsAt != nil {
		start := req.StartsAt.UTC()
		if !start.After(time.Now().UTC()) {
			return nil, fmt.Errorf("starts_at must be in the future")
		}
		openMin, closeMin, slotMin, available, err := s.hoursFor(ctx, a.DoctorID, int(start.Weekday()))
		if err != nil {
			return nil, err
		}
		if !available {
			return nil, fmt.Errorf("doctor is not available on that day")
		}
		if !AlignsWithGrid(start, openMin, closeMin, slotMin) {
			return nil, fmt.Errorf("starts_at does not fall on a bookable slot")
		}
		a.StartsAt = start
		a.EndsAt = start.Add(time.Duration(slotMin) * time.Minute)
	}

	err = s.runTx(ctx, func(txCtx context.Context) error {
		if req.StartsAt != nil {
			taken, err := s.repo.HasScheduledOverlap(txCtx, a.DoctorID, a.StartsAt, a.EndsAt, a.ID)
			if err != nil {
				return err
			}
			if taken {
				return ErrSlotTaken
			}
		}
		return s.repo.Update(txCtx, a)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ws.EventAppointmentUpdated, a)
	return a, nil
}

// UpdateStatus applies a status transition. Only SCHEDULED appointments may
// change: doctors and staff may complete, participants and staff may cancel.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, req StatusUpdateRequest, callerID uuid.UUID, role string) (*Appointment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Status != StatusScheduled {
		return nil, fmt.Errorf("appointment is %s and cannot change status", a.Status)
	}

	switch req.Status {
	case StatusCompleted:
		if !auth.IsStaffRole(role) && !(role == auth.RoleDoctor && a.DoctorID == callerID) {
			return nil, ErrAccessDenied
		}
	case StatusCancelled:
		if !auth.IsStaffRole(role) && !a.Participant(callerID) {
			return nil, ErrAccessDenied
		}
	default:
		return nil, fmt.Errorf("invalid status: %s", req.Status)
	}

	if req.Status != StatusCancelled {
		req.CancellationReason = nil
	}
	if err := s.repo.UpdateStatus(ctx, id, req.Status, req.Notes, req.CancellationReason); err != nil {
		return nil, err
	}
	a.Status = req.Status
	if req.Notes != nil {
		a.Notes = req.Notes
	}
	if req.CancellationReason != nil {
		a.CancellationReason = req.CancellationReason
	}

	s.publish(ws.EventAppointmentUpdated, a)
	if req.Status == StatusCancelled && s.notifier != nil {
		s.notifier.AppointmentCancelled(ctx, a)
	}
	return a, nil
}

// Cancel is a convenience wrapper over UpdateStatus that records an optional
// cancellation reason.
func (s *Service) Cancel(ctx context.Context, id, callerID uuid.UUID, role string, reason *string) (*Appointment, error) {
	return s.UpdateStatus(ctx, id, StatusUpdateRequest{Status: StatusCancelled, CancellationReason: reason}, callerID, role)
}

// SetSchedule upserts a doctor's hours for one weekday. Doctors manage their
// own schedule; admins may manage anyone's.
func (s *Service) SetSchedule(ctx context.Context, doctorID uuid.UUID, req ScheduleRequest, callerID uuid.UUID, role string) (*Schedule, error) {
	if role != auth.RoleAdmin && !(role == auth.RoleDoctor && doctorID == callerID) {
		return nil, ErrAccessDenied
	}
	if req.Weekday < 0 || req.Weekday > 6 {
		return nil, fmt.Errorf("weekday must be between 0 and 6")
	}
	if req.OpenMinute < 0 || req.CloseMinute > 24*60 || req.OpenMinute >= req.CloseMinute {
		return nil, fmt.Errorf("open_minute must precede close_minute within the day")
	}
	if req.SlotMinutes <= 0 || (req.CloseMinute-req.OpenMinute)%req.SlotMinutes != 0 {
		return nil, fmt.Errorf("slot_minutes must evenly divide the open hours")
	}

	sched := &Schedule{
		DoctorID:    doctorID,
		Weekday:     req.Weekday,
		OpenMinute:  req.OpenMinute,
		CloseMinute: req.CloseMinute,
		SlotMinutes: req.SlotMinutes,
		Available:   req.Available,
	}
	if err := s.schedules.Upsert(ctx, sched); err != nil {
		return nil, err
	}
	return sched, nil
}

func (s *Service) GetSchedule(ctx context.Context, doctorID uuid.UUID) ([]*Schedule, error) {
	return s.schedules.GetByDoctor(ctx, doctorID)
}

func (s *Service) publish(eventType string, a *Appointment) {
	if s.events == nil {
		return
	}
	for _, topic := range []string{ws.UserTopic(a.PatientID), ws.UserTopic(a.DoctorID)} {
		_ = s.events.Publish(context.Background(), ws.NewEvent(eventType, topic, a))
	}
}
