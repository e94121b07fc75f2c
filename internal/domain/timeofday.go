package domain

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// MinutesPerDay is the exclusive upper bound of a TimeOfDay; 24:00 is a valid interval end.
const MinutesPerDay = 24 * 60

// TimeOfDay is a wall-clock time expressed in minutes since midnight.
type TimeOfDay int

func NewTimeOfDay(hour, minute int) TimeOfDay {
	return TimeOfDay(hour*60 + minute)
}

// ParseTimeOfDay accepts "HH:MM" and "HH:MM:SS" (seconds must be zero).
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 24 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	if len(parts) == 3 {
		sec, err := strconv.Atoi(parts[2])
		if err != nil || sec != 0 {
			return 0, fmt.Errorf("invalid seconds in %q", s)
		}
	}
	t := NewTimeOfDay(h, m)
	if t > MinutesPerDay {
		return 0, fmt.Errorf("time of day %q past midnight", s)
	}
	return t, nil
}

func (t TimeOfDay) Hour() int   { return int(t) / 60 }
func (t TimeOfDay) Minute() int { return int(t) % 60 }

func (t TimeOfDay) Add(minutes int) TimeOfDay {
	return t + TimeOfDay(minutes)
}

// AlignUp rounds t up to the next multiple of step minutes counted from midnight.
func (t TimeOfDay) AlignUp(step int) TimeOfDay {
	if step <= 0 {
		return t
	}
	if r := int(t) % step; r != 0 {
		return t + TimeOfDay(step-r)
	}
	return t
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// On resolves t on the civil date in loc.
func (t TimeOfDay) On(date time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), t.Minute(), 0, 0, loc)
}

// Span is a half-open interval [Start, End) within one day.
type Span struct {
	Start TimeOfDay
	End   TimeOfDay
}

func (s Span) Minutes() int {
	return int(s.End - s.Start)
}

// Overlaps applies the half-open rule: touching endpoints do not overlap.
func (s Span) Overlaps(o Span) bool {
	return s.Start < o.End && o.Start < s.End
}

// Pad widens the span by buffer minutes on both sides, clamped to the day.
func (s Span) Pad(buffer int) Span {
	if buffer <= 0 {
		return s
	}
	start := s.Start - TimeOfDay(buffer)
	if start < 0 {
		start = 0
	}
	end := s.End + TimeOfDay(buffer)
	if end > MinutesPerDay {
		end = MinutesPerDay
	}
	return Span{Start: start, End: end}
}

// AlignedTo reports whether both bounds fall on the step grid.
func (s Span) AlignedTo(step int) bool {
	return step > 0 && int(s.Start)%step == 0 && int(s.End)%step == 0
}

func (s Span) String() string {
	return s.Start.String() + "-" + s.End.String()
}

// ParseSpan parses "HH:MM-HH:MM".
func ParseSpan(s string) (Span, error) {
	start, end, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok {
		return Span{}, fmt.Errorf("invalid interval %q", s)
	}
	a, err := ParseTimeOfDay(start)
	if err != nil {
		return Span{}, err
	}
	b, err := ParseTimeOfDay(end)
	if err != nil {
		return Span{}, err
	}
	if b <= a {
		return Span{}, fmt.Errorf("interval %q ends before it starts", s)
	}
	return Span{Start: a, End: b}, nil
}

// BusinessHours maps a weekday to its open intervals. A missing or empty entry means closed.
type BusinessHours map[time.Weekday][]Span

// ParseBusinessHoursDay parses a comma separated list such as "09:00-12:00,14:00-18:00".
// An empty string yields no intervals.
func ParseBusinessHoursDay(s string) ([]Span, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "closed") {
		return nil, nil
	}
	var out []Span
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		span, err := ParseSpan(part)
		if err != nil {
			return nil, err
		}
		out = append(out, span)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	if err := checkDisjoint(out); err != nil {
		return nil, err
	}
	return out, nil
}

// checkDisjoint expects spans sorted by start. Touching intervals are fine.
func checkDisjoint(spans []Span) error {
	for i := 1; i < len(spans); i++ {
		if spans[i].Start < spans[i-1].End {
			return fmt.Errorf("intervals %s and %s overlap", spans[i-1], spans[i])
		}
	}
	return nil
}

// Open returns the sorted intervals for a weekday.
func (h BusinessHours) Open(day time.Weekday) []Span {
	spans := append([]Span(nil), h[day]...)
	sort.Slice(spans, func(i, j int) bool {
		if spans[i].Start == spans[j].Start {
			return spans[i].End < spans[j].End
		}
		return spans[i].Start < spans[j].Start
	})
	return spans
}

// Contains reports whether span fits inside one open interval of day.
func (h BusinessHours) Contains(day time.Weekday, span Span) bool {
	for _, open := range h[day] {
		if span.Start >= open.Start && span.End <= open.End {
			return true
		}
	}
	return false
}

var errNoHours = errors.New("business hours define no open interval")

func (h BusinessHours) Validate() error {
	hasOpen := false
	for day := range h {
		spans := h.Open(day)
		for _, s := range spans {
			if s.Start < 0 || s.End > MinutesPerDay || s.End <= s.Start {
				return fmt.Errorf("invalid business hours interval %s", s)
			}
			hasOpen = true
		}
		if err := checkDisjoint(spans); err != nil {
			return fmt.Errorf("%s: %w", strings.ToLower(day.String()), err)
		}
	}
	if !hasOpen {
		return errNoHours
	}
	return nil
}

// AlignedTo rejects hours whose bounds are off the booking grid, since starts are only accepted
// on multiples of step.
func (h BusinessHours) AlignedTo(step int) error {
	for day := range h {
		for _, s := range h.Open(day) {
			if !s.AlignedTo(step) {
				return fmt.Errorf("%s: interval %s is not aligned to %d minutes", strings.ToLower(day.String()), s, step)
			}
		}
	}
	return nil
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

func ParseWeekday(s string) (time.Weekday, bool) {
	wd, ok := weekdayNames[strings.ToLower(strings.TrimSpace(s))]
	return wd, ok
}
