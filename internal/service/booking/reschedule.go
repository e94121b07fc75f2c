package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/valentina-code311/tu-lugar-seguro-sub001/internal/availability"
	"github.com/valentina-code311/tu-lugar-seguro-sub001/internal/domain"
	"github.com/valentina-code311/tu-lugar-seguro-sub001/internal/store"
)

type RescheduleInput struct {
	AppointmentID uuid.UUID
	Date          time.Time
	Start         domain.TimeOfDay
	Actor         domain.Actor
	Reason        string
}

// Reschedule moves an appointment to a new date and start, keeping its id and status. Both the
// old and the new date are locked for the duration of the check and the write.
func (m *Manager) Reschedule(ctx context.Context, in RescheduleInput) (appt domain.Appointment, err error) {
	ctx, end := m.startSpan(ctx, "booking.reschedule",
		attribute.String("appointment_id", in.AppointmentID.String()),
		attribute.String("date", domain.FormatDate(in.Date)),
	)
	defer end(&err)

	if in.AppointmentID == uuid.Nil {
		return domain.Appointment{}, domain.Invalid("appointment_id", "is required")
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
	newDate := domain.DateOf(in.Date)

	var (
		out   domain.Appointment
		prev  domain.Appointment
		moved bool
	)
	err = m.withRetry(ctx, "reschedule", func(ctx context.Context) error {
		seen, err := m.store.GetAppointment(ctx, in.AppointmentID)
		if err != nil {
			return err
		}
		if err := m.checkMove(ctx, seen, newDate, in); err != nil {
			return err
		}

		return m.store.InScheduleTransaction(ctx, seen.ProviderID, []time.Time{seen.Date, newDate}, func(ctx context.Context, tx store.ScheduleTx) error {
			current, err := tx.GetAppointmentForUpdate(ctx, in.AppointmentID)
			if err != nil {
				return err
			}
			if !domain.SameDate(current.Date, seen.Date) {
				return store.ErrStaleScope
			}
			if current.Status.Terminal() {
				return &domain.IllegalTransitionError{From: current.Status, To: current.Status, Reason: "cannot reschedule a " + string(current.Status) + " appointment"}
			}
			if domain.SameDate(current.Date, newDate) && current.Start == in.Start {
				out, moved = current, false
				return nil
			}

			next := current
			next.Date = newDate
			next.Start = in.Start
			c := availability.Candidate{
				ProviderID: next.ProviderID,
				Date:       next.Date,
				Span:       next.Span(),
				Exclude:    next.ID,
				Buffer:     m.cfg.Buffer,
			}
			if err := m.conflictIn(ctx, tx, c); err != nil {
				return err
			}
			if err := tx.UpdateAppointment(ctx, next); err != nil {
				if errors.Is(err, store.ErrConflict) {
					m.metrics.ObserveConflict(string(domain.ConflictAppointment))
					return &domain.ConflictError{Date: next.Date, Span: next.Span(), Source: domain.ConflictAppointment}
				}
				return err
			}
			reason := fmt.Sprintf("moved from %s %s", domain.FormatDate(current.Date), current.Start)
			if in.Reason != "" {
				reason += ": " + in.Reason
			}
			if err := tx.AppendTransition(ctx, domain.TransitionRecord{
				AppointmentID: next.ID,
				Kind:          domain.RecordRescheduled,
				FromStatus:    current.Status,
				ToStatus:      next.Status,
				Actor:         in.Actor,
				Reason:        reason,
				OccurredAt:    m.clock.Now().UTC(),
			}); err != nil {
				return err
			}
			out, prev, moved = next, current, true
			return nil
		})
	})
	if err != nil {
		return domain.Appointment{}, err
	}

	if moved {
		m.afterCommit(ctx, out, out.Status, in.Actor, false, prev.Date, out.Date)
	}
	return out, nil
}

// checkMove validates the target interval before any lock is taken.
func (m *Manager) checkMove(ctx context.Context, current domain.Appointment, date time.Time, in RescheduleInput) error {
	if current.Status.Terminal() {
		return &domain.IllegalTransitionError{From: current.Status, To: current.Status, Reason: "cannot reschedule a " + string(current.Status) + " appointment"}
	}
	span := domain.Span{Start: in.Start, End: in.Start.Add(current.DurationMinutes)}
	if span.End > domain.MinutesPerDay {
		return domain.Invalid("start", "appointment would cross midnight")
	}
	if in.Actor == domain.ActorClient {
		return m.checkClientWindow(ctx, current.ProviderID, date, span)
	}
	return nil
}
