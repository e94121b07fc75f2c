package booking

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/valentina-code311/tu-lugar-seguro-sub001/internal/availability"
	"github.com/valentina-code311/tu-lugar-seguro-sub001/internal/domain"
	"github.com/valentina-code311/tu-lugar-seguro-sub001/internal/store"
)

type TransitionInput struct {
	AppointmentID uuid.UUID
	To            domain.Status
	Actor         domain.Actor
	Reason        string
	AdminNotes    *string
}

// Transition changes the status of an appointment. Confirmation re-checks conflicts under the
// schedule lock; the other targets only lock the record.
func (m *Manager) Transition(ctx context.Context, in TransitionInput) (appt domain.Appointment, err error) {
	ctx, end := m.startSpan(ctx, "booking.transition",
		attribute.String("appointment_id", in.AppointmentID.String()),
		attribute.String("to", string(in.To)),
	)
	defer end(&err)

	if in.AppointmentID == uuid.Nil {
		return domain.Appointment{}, domain.Invalid("appointment_id", "is required")
	}
	if _, ok := domain.ParseStatus(string(in.To)); !ok {
		return domain.Appointment{}, domain.Invalid("status", "is not recognised")
	}
	if _, ok := domain.ParseActor(string(in.Actor)); !ok {
		return domain.Appointment{}, domain.Invalid("actor", "is not recognised")
	}

	var (
		out  domain.Appointment
		from domain.Status
	)
	apply := func(ctx context.Context, tx store.ScheduleTx, current domain.Appointment) error {
		if err := m.checkTransition(ctx, tx, current, in); err != nil {
			return err
		}
		from = current.Status
		next := current
		next.Status = in.To
		if in.To == domain.StatusCancelled {
			at := m.clock.Now().UTC()
			next.CancelledAt = &at
		}
		if in.AdminNotes != nil && in.Actor == domain.ActorAdmin {
			next.AdminNotes = strings.TrimSpace(*in.AdminNotes)
		}
		if err := tx.UpdateAppointment(ctx, next); err != nil {
			return err
		}
		if err := tx.AppendTransition(ctx, domain.TransitionRecord{
			AppointmentID: next.ID,
			Kind:          domain.RecordStatus,
			FromStatus:    current.Status,
			ToStatus:      next.Status,
			Actor:         in.Actor,
			Reason:        strings.TrimSpace(in.Reason),
			OccurredAt:    m.clock.Now().UTC(),
		}); err != nil {
			return err
		}
		out = next
		return nil
	}

	if in.To == domain.StatusConfirmed {
		err = m.withRetry(ctx, "transition", func(ctx context.Context) error {
			seen, err := m.store.GetAppointment(ctx, in.AppointmentID)
			if err != nil {
				return err
			}
			return m.store.InScheduleTransaction(ctx, seen.ProviderID, []time.Time{seen.Date}, func(ctx context.Context, tx store.ScheduleTx) error {
				current, err := tx.GetAppointmentForUpdate(ctx, in.AppointmentID)
				if err != nil {
					return err
				}
				if !domain.SameDate(current.Date, seen.Date) {
					return store.ErrStaleScope
				}
				return apply(ctx, tx, current)
			})
		})
	} else {
		err = m.withRetry(ctx, "transition", func(ctx context.Context) error {
			return m.store.InRecordTransaction(ctx, func(ctx context.Context, tx store.ScheduleTx) error {
				current, err := tx.GetAppointmentForUpdate(ctx, in.AppointmentID)
				if err != nil {
					return err
				}
				return apply(ctx, tx, current)
			})
		})
	}
	if err != nil {
		return domain.Appointment{}, err
	}

	m.afterCommit(ctx, out, from, in.Actor, true, out.Date)
	return out, nil
}

func (m *Manager) checkTransition(ctx context.Context, tx store.ScheduleTx, current domain.Appointment, in TransitionInput) error {
	rule, ok := domain.Transition(current.Status, in.To)
	if !ok {
		reason := "transition not allowed"
		if current.Status.Terminal() {
			reason = "appointment is " + string(current.Status)
		}
		return &domain.IllegalTransitionError{From: current.Status, To: in.To, Reason: reason}
	}
	if in.Actor == domain.ActorClient && in.To != domain.StatusCancelled {
		return &domain.IllegalTransitionError{From: current.Status, To: in.To, Reason: "clients may only cancel"}
	}

	switch rule {
	case domain.RuleNotFuture:
		if current.StartsAt(m.clock.Location()).After(m.clock.Now()) {
			return &domain.IllegalTransitionError{From: current.Status, To: in.To, Reason: "appointment has not started yet"}
		}
	case domain.RuleConflictFree:
		c := availability.Candidate{
			ProviderID: current.ProviderID,
			Date:       current.Date,
			Span:       current.Span(),
			Exclude:    current.ID,
			Buffer:     m.cfg.Buffer,
		}
		if err := m.conflictIn(ctx, tx, c); err != nil {
			return err
		}
	}
	return nil
}
