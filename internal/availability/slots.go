package availability

import (
	"sort"
	"time"

	"github.com/valentina-code311/tu-lugar-seguro-sub001/internal/domain"
)

const DefaultGranularity = 30

type SlotQuery struct {
	ProviderID   string
	Range        domain.DateRange
	Hours        domain.BusinessHours
	Blocks       []domain.BlockedInterval
	Appointments []domain.Appointment
	// Granularity is the step between candidate starts, in minutes.
	Granularity int
	// Duration is the slot length; zero means Granularity.
	Duration int
	Buffer   int
}

// GenerateSlots enumerates candidate starts for every date in the range, in chronological order.
// Candidates that overlap a partial block or an active appointment are returned with Available false.
// A fully blocked date produces no slots.
func GenerateSlots(q SlotQuery) []domain.Slot {
	step := q.Granularity
	if step <= 0 {
		step = DefaultGranularity
	}
	length := q.Duration
	if length <= 0 {
		length = step
	}

	var slots []domain.Slot
	for _, day := range q.Range.Days() {
		blocks := blocksOn(q.Blocks, day)
		if fullyBlocked(blocks) {
			continue
		}
		// Starts sit on the same midnight-based grid that bookings are validated against,
		// and never repeat when stored intervals overlap.
		var next domain.TimeOfDay
		for _, open := range q.Hours.Open(day.Weekday()) {
			start := open.Start.AlignUp(step)
			if start < next {
				start = next
			}
			for ; start.Add(length) <= open.End; start = start.Add(step) {
				span := domain.Span{Start: start, End: start.Add(length)}
				c := Candidate{ProviderID: q.ProviderID, Date: day, Span: span, Buffer: q.Buffer}
				slots = append(slots, domain.Slot{
					Date:            day,
					Start:           start,
					DurationMinutes: length,
					Available:       !HasConflict(c, q.Appointments, blocks),
				})
			}
			next = start
		}
	}
	sort.SliceStable(slots, func(i, j int) bool {
		if !slots[i].Date.Equal(slots[j].Date) {
			return slots[i].Date.Before(slots[j].Date)
		}
		return slots[i].Start < slots[j].Start
	})
	return slots
}

// Available keeps only the free slots.
func Available(slots []domain.Slot) []domain.Slot {
	out := make([]domain.Slot, 0, len(slots))
	for _, s := range slots {
		if s.Available {
			out = append(out, s)
		}
	}
	return out
}

// FullyBlocked reports whether any block covers the whole of date.
func FullyBlocked(blocks []domain.BlockedInterval, date time.Time) bool {
	return fullyBlocked(blocksOn(blocks, date))
}

func blocksOn(blocks []domain.BlockedInterval, day time.Time) []domain.BlockedInterval {
	var out []domain.BlockedInterval
	for _, b := range blocks {
		if domain.SameDate(b.Date, day) {
			out = append(out, b)
		}
	}
	return out
}

func fullyBlocked(blocks []domain.BlockedInterval) bool {
	for _, b := range blocks {
		if b.FullDay() {
			return true
		}
	}
	return false
}
