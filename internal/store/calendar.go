package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/valentina-code311/tu-lugar-seguro-sub001/internal/domain"
)

type ScheduleTx interface {
	// ListAppointments returns every appointment of the provider on date, any status, ordered by start.
	ListAppointments(ctx context.Context, providerID string, date time.Time) ([]domain.Appointment, error)
	ListBlockedIntervals(ctx context.Context, providerID string, date time.Time) ([]domain.BlockedInterval, error)

	// GetAppointmentForUpdate reads the appointment and locks it until the transaction ends.
	GetAppointmentForUpdate(ctx context.Context, id uuid.UUID) (domain.Appointment, error)
	InsertAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error)
	UpdateAppointment(ctx context.Context, appt domain.Appointment) error
	AppendTransition(ctx context.Context, rec domain.TransitionRecord) error

	InsertBlockedInterval(ctx context.Context, block domain.BlockedInterval) (domain.BlockedInterval, error)
	// DeletePartialBlocks removes the partial blocks of a date and returns how many went away.
	DeletePartialBlocks(ctx context.Context, providerID string, date time.Time) (int, error)
	DeleteBlockedInterval(ctx context.Context, id uuid.UUID) error
}

// Scope records which (provider, date) pairs a transaction holds.
type Scope struct {
	ProviderID string
	Dates      []time.Time
}

// Covers reports whether writes on date for providerID are allowed.
func (s Scope) Covers(providerID string, date time.Time) bool {
	if s.ProviderID != providerID {
		return false
	}
	for _, d := range s.Dates {
		if domain.SameDate(d, date) {
			return true
		}
	}
	return false
}
