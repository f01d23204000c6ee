package notification

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/carehub/carehub/internal/domain/appointment"
	"github.com/carehub/carehub/internal/domain/billing"
	"github.com/carehub/carehub/internal/domain/messaging"
	"github.com/carehub/carehub/internal/domain/user"
	platform "github.com/carehub/carehub/internal/platform/notification"
)

// UserGetter is the slice of the user service this package needs.
type UserGetter interface {
	Get(ctx context.Context, id uuid.UUID) (*user.User, error)
}

// Adapters fans domain events out to the in-app feed and, where the user has
// contact details, to the external channels. Delivery is best effort: a
// failed notification never fails the triggering operation.
type Adapters struct {
	svc      *Service
	users    UserGetter
	external *platform.Manager
	logger   zerolog.Logger
}

var (
	_ appointment.Notifier = (*Adapters)(nil)
	_ messaging.Notifier   = (*Adapters)(nil)
	_ billing.Notifier     = (*Adapters)(nil)
)

func NewAdapters(svc *Service, users UserGetter, external *platform.Manager, logger zerolog.Logger) *Adapters {
	return &Adapters{svc: svc, users: users, external: external, logger: logger}
}

func (a *Adapters) AppointmentBooked(ctx context.Context, appt *appointment.Appointment) {
	title := "Appointment confirmed"
	body := fmt.Sprintf("Appointment with %s on %s at %s.",
		appt.DoctorName, appt.StartsAt.Format("Jan 2, 2006"), appt.StartsAt.Format("15:04"))
	a.feed(ctx, appt.PatientID, KindAppointmentBooked, title, body, ResourceAppointment, appt.ID)
	a.feed(ctx, appt.DoctorID, KindAppointmentBooked, "New appointment",
		fmt.Sprintf("%s booked %s at %s.", appt.PatientName,
			appt.StartsAt.Format("Jan 2, 2006"), appt.StartsAt.Format("15:04")),
		ResourceAppointment, appt.ID)

	a.email(ctx, appt.PatientID, "appointment-confirmed", map[string]string{
		"patient_name": appt.PatientName,
		"doctor_name":  appt.DoctorName,
		"date":         appt.StartsAt.Format("Jan 2, 2006"),
		"time":         appt.StartsAt.Format("15:04"),
	})
}

func (a *Adapters) AppointmentCancelled(ctx context.Context, appt *appointment.Appointment) {
	body := fmt.Sprintf("Appointment with %s on %s at %s was cancelled.",
		appt.DoctorName, appt.StartsAt.Format("Jan 2, 2006"), appt.StartsAt.Format("15:04"))
	a.feed(ctx, appt.PatientID, KindAppointmentCancelled, "Appointment cancelled", body,
		ResourceAppointment, appt.ID)
	a.feed(ctx, appt.DoctorID, KindAppointmentCancelled, "Appointment cancelled",
		fmt.Sprintf("Appointment with %s on %s at %s was cancelled.", appt.PatientName,
			appt.StartsAt.Format("Jan 2, 2006"), appt.StartsAt.Format("15:04")),
		ResourceAppointment, appt.ID)

	a.email(ctx, appt.PatientID, "appointment-cancelled", map[string]string{
		"patient_name": appt.PatientName,
		"doctor_name":  appt.DoctorName,
		"date":         appt.StartsAt.Format("Jan 2, 2006"),
		"time":         appt.StartsAt.Format("15:04"),
	})
}

func (a *Adapters) MessageReceived(ctx context.Context, recipientID uuid.UUID, m *messaging.Message) {
	a.feed(ctx, recipientID, KindNewMessage, "New message",
		fmt.Sprintf("New message from %s.", m.SenderName), ResourceConversation, m.ConversationID)
}

func (a *Adapters) InvoiceIssued(ctx context.Context, inv *billing.Invoice) {
	amount := formatAmount(inv.AmountCents, inv.Currency)
	a.feed(ctx, inv.PatientID, KindInvoiceIssued, "Invoice issued",
		fmt.Sprintf("An invoice for %s has been issued.", amount), ResourceInvoice, inv.ID)

	a.email(ctx, inv.PatientID, "invoice-issued", map[string]string{
		"patient_name": inv.PatientName,
		"amount":       amount,
		"date":         inv.CreatedAt.Format("Jan 2, 2006"),
	})
}

func (a *Adapters) InvoicePaid(ctx context.Context, inv *billing.Invoice) {
	a.feed(ctx, inv.PatientID, KindInvoicePaid, "Payment received",
		fmt.Sprintf("Your payment of %s was received. Thank you.",
			formatAmount(inv.AmountCents, inv.Currency)), ResourceInvoice, inv.ID)
}

func (a *Adapters) feed(ctx context.Context, userID uuid.UUID, kind, title, body, resourceType string, resourceID uuid.UUID) {
	n := &Notification{
		UserID:       userID,
		Kind:         kind,
		Title:        title,
		Body:         body,
		ResourceType: resourceType,
		ResourceID:   resourceID.String(),
	}
	if _, err := a.svc.Create(ctx, n); err != nil {
		a.logger.Error().Err(err).
			Str("user_id", userID.String()).
			Str("kind", kind).
			Msg("failed to persist notification")
	}
}

func (a *Adapters) email(ctx context.Context, userID uuid.UUID, templateID string, data map[string]string) {
	if a.external == nil {
		return
	}
	u, err := a.users.Get(ctx, userID)
	if err != nil {
		a.logger.Error().Err(err).Str("user_id", userID.String()).Msg("failed to resolve recipient")
		return
	}
	if _, err := a.external.SendFromTemplate(ctx, templateID, data, u.Email); err != nil {
		a.logger.Error().Err(err).
			Str("user_id", userID.String()).
			Str("template", templateID).
			Msg("failed to send email notification")
	}
}

func formatAmount(cents int64, currency string) string {
	return fmt.Sprintf("%s %d.%02d", currency, cents/100, cents%100)
}
