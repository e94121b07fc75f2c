// Package availability derives free slots and detects interval conflicts. Everything here is pure.
package availability

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/valentina-code311/tu-lugar-seguro-sub001/internal/domain"
)

// Candidate is a proposed occupation of Span on Date.
type Candidate struct {
	ProviderID string
	Date       time.Time
	Span       domain.Span
	// Exclude drops the appointment being confirmed or rescheduled from the check.
	Exclude uuid.UUID
	// Buffer minutes kept free around existing appointments.
	Buffer int
}

// HasConflict reports whether the candidate overlaps an active appointment or a blocked interval.
func HasConflict(c Candidate, appointments []domain.Appointment, blocks []domain.BlockedInterval) bool {
	_, found := FindConflict(c, appointments, blocks)
	return found
}

// FindConflict returns the earliest blocking interval for c. Blocks are checked before appointments.
func FindConflict(c Candidate, appointments []domain.Appointment, blocks []domain.BlockedInterval) (*domain.ConflictError, bool) {
	var hits []domain.ConflictError
	for _, b := range blocks {
		if !sameScope(c, b.ProviderID, b.Date) {
			continue
		}
		if b.FullDay() {
			return &domain.ConflictError{Date: domain.DateOf(c.Date), Span: b.Span(), Source: domain.ConflictBlocked}, true
		}
		if b.Span().Overlaps(c.Span) {
			hits = append(hits, domain.ConflictError{Date: domain.DateOf(c.Date), Span: b.Span(), Source: domain.ConflictBlocked})
		}
	}
	if len(hits) > 0 {
		return earliest(hits), true
	}

	for _, a := range appointments {
		if !a.Status.Active() || (c.Exclude != uuid.Nil && a.ID == c.Exclude) {
			continue
		}
		if !sameScope(c, a.ProviderID, a.Date) {
			continue
		}
		if a.Span().Pad(c.Buffer).Overlaps(c.Span) {
			hits = append(hits, domain.ConflictError{Date: domain.DateOf(c.Date), Span: a.Span(), Source: domain.ConflictAppointment})
		}
	}
	if len(hits) > 0 {
		return earliest(hits), true
	}
	return nil, false
}

func sameScope(c Candidate, providerID string, date time.Time) bool {
	if c.ProviderID != "" && providerID != "" && providerID != c.ProviderID {
		return false
	}
	return domain.SameDate(date, c.Date)
}

func earliest(hits []domain.ConflictError) *domain.ConflictError {
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Span.Start < hits[j].Span.Start })
	out := hits[0]
	return &out
}
