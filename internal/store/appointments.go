package store

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/valentina-code311/tu-lugar-seguro-sub001/internal/domain"
)

// TxFunc runs inside a store transaction. Returning an error rolls every write back.
type TxFunc func(ctx context.Context, tx ScheduleTx) error

type AppointmentStore interface {
	// InScheduleTransaction serializes fn with every other schedule transaction touching one of
	// dates for providerID. Locks are taken in ascending date order.
	InScheduleTransaction(ctx context.Context, providerID string, dates []time.Time, fn TxFunc) error
	// InRecordTransaction runs fn without schedule locks. Records read through
	// GetAppointmentForUpdate stay locked until the transaction ends.
	InRecordTransaction(ctx context.Context, fn TxFunc) error

	GetAppointment(ctx context.Context, id uuid.UUID) (domain.Appointment, error)
	ListAppointments(ctx context.Context, providerID string, r domain.DateRange) ([]domain.Appointment, error)
	ListBlockedIntervals(ctx context.Context, providerID string, r domain.DateRange) ([]domain.BlockedInterval, error)
	GetBlockedInterval(ctx context.Context, id uuid.UUID) (domain.BlockedInterval, error)
	ListTransitions(ctx context.Context, appointmentID uuid.UUID) ([]domain.TransitionRecord, error)

	Ping(ctx context.Context) error
}

type ServiceCatalog interface {
	GetService(ctx context.Context, id uuid.UUID) (domain.Service, error)
	ListServices(ctx context.Context, activeOnly bool) ([]domain.Service, error)
}

// SortedDates returns the distinct civil dates in ascending order.
func SortedDates(dates []time.Time) []time.Time {
	seen := make(map[string]bool, len(dates))
	out := make([]time.Time, 0, len(dates))
	for _, d := range dates {
		d = domain.DateOf(d)
		key := domain.FormatDate(d)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// ScopeKey names the lock for one provider and date.
func ScopeKey(providerID string, date time.Time) string {
	return providerID + ":" + domain.FormatDate(date)
}
