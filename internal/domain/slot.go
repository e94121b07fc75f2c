package domain

import "time"

// Slot is a derived candidate start time. It is never stored.
type Slot struct {
	Date            time.Time
	Start           TimeOfDay
	DurationMinutes int
	Available       bool
}

func (s Slot) Span() Span {
	return Span{Start: s.Start, End: s.Start.Add(s.DurationMinutes)}
}
