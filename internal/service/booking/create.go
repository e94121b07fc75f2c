package booking

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/valentina-code311/tu-lugar-seguro-sub001/internal/availability"
	"github.com/valentina-code311/tu-lugar-seguro-sub001/internal/domain"
	"github.com/valentina-code311/tu-lugar-seguro-sub001/internal/store"
)

const maxIdempotencyKeyLength = 256

type CreateInput struct {
	ProviderID      string
	ServiceID       uuid.UUID
	Date            time.Time
	Start           domain.TimeOfDay
	ClientName      string
	ClientEmail     string
	ClientPhone     string
	ClientPronouns  string
	ClientMessage   string
	ConsentAccepted bool
	Modality        domain.Modality
	// Status is pending when empty. Only admins may create confirmed appointments.
	Status         domain.Status
	AdminNotes     string
	Actor          domain.Actor
	IdempotencyKey string
}

// Create books a new appointment. A repeated idempotency key with the same request returns the
// stored appointment; with a different request it fails with store.ErrIdempotencyConflict.
func (m *Manager) Create(ctx context.Context, in CreateInput) (appt domain.Appointment, err error) {
	ctx, end := m.startSpan(ctx, "booking.create",
		attribute.String("provider_id", in.ProviderID),
		attribute.String("date", domain.FormatDate(in.Date)),
	)
	defer end(&err)

	candidate, err := m.prepare(ctx, in)
	if err != nil {
		return domain.Appointment{}, err
	}

	var (
		out    domain.Appointment
		replay bool
	)
	err = m.withRetry(ctx, "create", func(ctx context.Context) error {
		replay = false
		return m.store.InScheduleTransaction(ctx, candidate.ProviderID, []time.Time{candidate.Date}, func(ctx context.Context, tx store.ScheduleTx) error {
			existing, err := tx.GetAppointmentForUpdate(ctx, candidate.ID)
			switch {
			case err == nil:
				if !existing.SameBooking(candidate) {
					return store.ErrIdempotencyConflict
				}
				out, replay = existing, true
				return nil
			case !errors.Is(err, store.ErrNotFound):
				return err
			}

			c := availability.Candidate{
				ProviderID: candidate.ProviderID,
				Date:       candidate.Date,
				Span:       candidate.Span(),
				Buffer:     m.cfg.Buffer,
			}
			if err := m.conflictIn(ctx, tx, c); err != nil {
				return err
			}

			inserted, err := tx.InsertAppointment(ctx, candidate)
			if errors.Is(err, store.ErrConflict) {
				m.metrics.ObserveConflict(string(domain.ConflictAppointment))
				return &domain.ConflictError{Date: candidate.Date, Span: candidate.Span(), Source: domain.ConflictAppointment}
			}
			if err != nil {
				return err
			}
			if err := tx.AppendTransition(ctx, domain.TransitionRecord{
				AppointmentID: inserted.ID,
				Kind:          domain.RecordCreated,
				ToStatus:      inserted.Status,
				Actor:         in.Actor,
				OccurredAt:    m.clock.Now().UTC(),
			}); err != nil {
				return err
			}
			out = inserted
			return nil
		})
	})
	if err != nil {
		return domain.Appointment{}, err
	}

	if !replay {
		m.afterCommit(ctx, out, "", in.Actor, true, out.Date)
	}
	return out, nil
}

// prepare validates the request and builds the appointment to insert.
func (m *Manager) prepare(ctx context.Context, in CreateInput) (domain.Appointment, error) {
	providerID := strings.TrimSpace(in.ProviderID)
	if providerID == "" {
		return domain.Appointment{}, domain.Invalid("provider_id", "is required")
	}
	if _, ok := domain.ParseActor(string(in.Actor)); !ok {
		return domain.Appointment{}, domain.Invalid("actor", "is not recognised")
	}
	if in.Date.IsZero() {
		return domain.Appointment{}, domain.Invalid("date", "is required")
	}
	if err := m.checkStart(in.Start); err != nil {
		return domain.Appointment{}, err
	}
	if _, ok := domain.ParseModality(string(in.Modality)); !ok {
		return domain.Appointment{}, domain.Invalid("modality", "must be online or in_person")
	}

	status := in.Status
	if status == "" {
		status = domain.StatusPending
	}
	if !domain.InitialStatus(status) {
		return domain.Appointment{}, &domain.IllegalTransitionError{To: status, Reason: "appointments start as pending or confirmed"}
	}
	if status == domain.StatusConfirmed && in.Actor != domain.ActorAdmin {
		return domain.Appointment{}, &domain.IllegalTransitionError{To: status, Reason: "only admins create confirmed appointments"}
	}

	if in.ServiceID == uuid.Nil {
		return domain.Appointment{}, domain.Invalid("service_id", "is required")
	}
	svc, err := m.catalog.GetService(ctx, in.ServiceID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Appointment{}, domain.Invalid("service_id", "unknown service")
	}
	if err != nil {
		return domain.Appointment{}, err
	}
	if !svc.Active {
		return domain.Appointment{}, domain.Invalid("service_id", "service is not offered")
	}
	if !svc.Allows(in.Modality) {
		return domain.Appointment{}, domain.Invalid("modality", "not offered for this service")
	}
	if svc.DurationMinutes <= 0 || int(in.Start)+svc.DurationMinutes > domain.MinutesPerDay {
		return domain.Appointment{}, domain.Invalid("start", "appointment would cross midnight")
	}

	c, err := normalizeContact(in, m.cfg.PhoneRegion)
	if err != nil {
		return domain.Appointment{}, err
	}

	appt := domain.Appointment{
		ProviderID:      providerID,
		ServiceID:       svc.ID,
		Date:            domain.DateOf(in.Date),
		Start:           in.Start,
		DurationMinutes: svc.DurationMinutes,
		ClientName:      c.Name,
		ClientEmail:     c.Email,
		ClientPhone:     c.Phone,
		ClientPronouns:  c.Pronouns,
		ClientMessage:   c.Message,
		ConsentAccepted: in.ConsentAccepted,
		Modality:        in.Modality,
		Status:          status,
	}

	if in.Actor == domain.ActorClient {
		if !in.ConsentAccepted {
			return domain.Appointment{}, domain.Invalid("consent_accepted", "must be accepted")
		}
		if err := m.checkClientWindow(ctx, providerID, appt.Date, appt.Span()); err != nil {
			return domain.Appointment{}, err
		}
	} else {
		appt.AdminNotes = strings.TrimSpace(in.AdminNotes)
	}

	key := strings.TrimSpace(in.IdempotencyKey)
	switch {
	case key == "":
		id, err := uuid.NewV7()
		if err != nil {
			return domain.Appointment{}, err
		}
		appt.ID = id
	case len(key) > maxIdempotencyKeyLength:
		return domain.Appointment{}, domain.Invalid("idempotency_key", "too long")
	default:
		appt.ID = uuid.NewSHA1(uuid.NameSpaceOID, []byte("agenda:create_appointment:"+providerID+":"+key))
	}
	return appt, nil
}

func (m *Manager) checkStart(start domain.TimeOfDay) error {
	if start < 0 || start >= domain.MinutesPerDay {
		return domain.Invalid("start", "must be within the day")
	}
	if int(start)%m.cfg.Granularity != 0 {
		return domain.Invalid("start", "must align with the booking grid")
	}
	return nil
}

// checkClientWindow keeps client bookings in the future and, when enforced, inside business hours.
func (m *Manager) checkClientWindow(ctx context.Context, providerID string, date time.Time, span domain.Span) error {
	loc := m.clock.Location()
	if !span.Start.On(date, loc).After(m.clock.Now()) {
		return domain.Invalid("start", "must be in the future")
	}
	if !m.cfg.EnforceBusinessHours {
		return nil
	}
	h, err := m.hours.BusinessHours(ctx, providerID)
	if err != nil {
		return err
	}
	if !h.Contains(date.Weekday(), span) {
		return domain.Invalid("start", "outside business hours")
	}
	return nil
}
