package domain

import (
	"errors"
	"testing"
	"time"
)

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		in      string
		want    TimeOfDay
		wantErr bool
	}{
		{in: "09:00", want: 540},
		{in: "09:30:00", want: 570},
		{in: "24:00", want: MinutesPerDay},
		{in: "00:00", want: 0},
		{in: "24:30", wantErr: true},
		{in: "9", wantErr: true},
		{in: "10:61", wantErr: true},
		{in: "10:00:15", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTimeOfDay(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseTimeOfDay(%q) error = nil, want error", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseTimeOfDay(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Fatalf("ParseTimeOfDay(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestSpanOverlapsHalfOpen(t *testing.T) {
	a := Span{Start: NewTimeOfDay(10, 0), End: NewTimeOfDay(11, 0)}
	tests := []struct {
		name string
		b    Span
		want bool
	}{
		{name: "touching after", b: Span{Start: NewTimeOfDay(11, 0), End: NewTimeOfDay(12, 0)}, want: false},
		{name: "touching before", b: Span{Start: NewTimeOfDay(9, 0), End: NewTimeOfDay(10, 0)}, want: false},
		{name: "inside", b: Span{Start: NewTimeOfDay(10, 15), End: NewTimeOfDay(10, 45)}, want: true},
		{name: "straddling start", b: Span{Start: NewTimeOfDay(9, 30), End: NewTimeOfDay(10, 30)}, want: true},
		{name: "equal", b: a, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := a.Overlaps(tt.b); got != tt.want {
				t.Fatalf("Overlaps = %v, want %v", got, tt.want)
			}
			if got := tt.b.Overlaps(a); got != tt.want {
				t.Fatalf("Overlaps (reversed) = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSpanPadClampsToDay(t *testing.T) {
	s := Span{Start: NewTimeOfDay(0, 10), End: NewTimeOfDay(23, 50)}
	got := s.Pad(15)
	if got.Start != 0 || got.End != MinutesPerDay {
		t.Fatalf("Pad = %v, want 00:00-24:00", got)
	}
	if s.Pad(0) != s {
		t.Fatalf("Pad(0) changed the span")
	}
}

func TestParseBusinessHoursDay(t *testing.T) {
	spans, err := ParseBusinessHoursDay("14:00-18:00, 09:00-12:00")
	if err != nil {
		t.Fatalf("ParseBusinessHoursDay error = %v", err)
	}
	if len(spans) != 2 || spans[0].Start != NewTimeOfDay(9, 0) || spans[1].End != NewTimeOfDay(18, 0) {
		t.Fatalf("spans = %v", spans)
	}

	closed, err := ParseBusinessHoursDay("closed")
	if err != nil || closed != nil {
		t.Fatalf("closed = %v, %v, want nil, nil", closed, err)
	}

	if _, err := ParseBusinessHoursDay("18:00-09:00"); err == nil {
		t.Fatalf("reversed interval accepted")
	}
	if _, err := ParseBusinessHoursDay("09:00-12:00,11:00-13:00"); err == nil {
		t.Fatalf("overlapping intervals accepted")
	}
	if _, err := ParseBusinessHoursDay("09:00-12:00,12:00-13:00"); err != nil {
		t.Fatalf("touching intervals rejected: %v", err)
	}
}

func TestBusinessHoursValidateRejectsOverlap(t *testing.T) {
	h := BusinessHours{
		time.Monday: {{Start: NewTimeOfDay(11, 0), End: NewTimeOfDay(13, 0)}, {Start: NewTimeOfDay(9, 0), End: NewTimeOfDay(12, 0)}},
	}
	if err := h.Validate(); err == nil {
		t.Fatalf("Validate accepted overlapping intervals")
	}
}

func TestBusinessHoursAlignedTo(t *testing.T) {
	onGrid := BusinessHours{time.Monday: {{Start: NewTimeOfDay(9, 0), End: NewTimeOfDay(12, 30)}}}
	if err := onGrid.AlignedTo(30); err != nil {
		t.Fatalf("AlignedTo(30) = %v", err)
	}
	quarter := BusinessHours{time.Monday: {{Start: NewTimeOfDay(9, 15), End: NewTimeOfDay(12, 0)}}}
	if err := quarter.AlignedTo(30); err == nil {
		t.Fatalf("09:15 window accepted on a 30 minute grid")
	}
	if err := quarter.AlignedTo(15); err != nil {
		t.Fatalf("AlignedTo(15) = %v", err)
	}
}

func TestTimeOfDayAlignUp(t *testing.T) {
	tests := []struct {
		in   TimeOfDay
		step int
		want TimeOfDay
	}{
		{in: NewTimeOfDay(9, 0), step: 30, want: NewTimeOfDay(9, 0)},
		{in: NewTimeOfDay(9, 15), step: 30, want: NewTimeOfDay(9, 30)},
		{in: NewTimeOfDay(9, 31), step: 30, want: NewTimeOfDay(10, 0)},
		{in: NewTimeOfDay(9, 15), step: 0, want: NewTimeOfDay(9, 15)},
	}
	for _, tt := range tests {
		if got := tt.in.AlignUp(tt.step); got != tt.want {
			t.Fatalf("%s.AlignUp(%d) = %s, want %s", tt.in, tt.step, got, tt.want)
		}
	}
}

func TestBusinessHoursContains(t *testing.T) {
	h := BusinessHours{
		time.Monday: {{Start: NewTimeOfDay(9, 0), End: NewTimeOfDay(12, 0)}, {Start: NewTimeOfDay(14, 0), End: NewTimeOfDay(18, 0)}},
	}
	if !h.Contains(time.Monday, Span{Start: NewTimeOfDay(11, 0), End: NewTimeOfDay(12, 0)}) {
		t.Fatalf("span ending at close rejected")
	}
	if h.Contains(time.Monday, Span{Start: NewTimeOfDay(11, 30), End: NewTimeOfDay(12, 30)}) {
		t.Fatalf("span crossing lunch accepted")
	}
	if h.Contains(time.Sunday, Span{Start: NewTimeOfDay(10, 0), End: NewTimeOfDay(11, 0)}) {
		t.Fatalf("closed day accepted")
	}
}

func TestWeekStart(t *testing.T) {
	tests := []struct {
		in   time.Time
		want time.Time
	}{
		{in: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), want: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)},
		{in: time.Date(2025, 3, 12, 15, 4, 0, 0, time.UTC), want: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)},
		{in: time.Date(2025, 3, 16, 23, 59, 0, 0, time.UTC), want: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)},
		{in: time.Date(2025, 3, 17, 0, 0, 0, 0, time.UTC), want: time.Date(2025, 3, 17, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		if got := WeekStart(tt.in); !got.Equal(tt.want) {
			t.Fatalf("WeekStart(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestDateRangeDays(t *testing.T) {
	days := Week(time.Date(2025, 3, 13, 0, 0, 0, 0, time.UTC)).Days()
	if len(days) != 7 {
		t.Fatalf("len(days) = %d, want 7", len(days))
	}
	if days[0].Weekday() != time.Monday || days[6].Weekday() != time.Sunday {
		t.Fatalf("days = %v..%v", days[0], days[6])
	}
	reversed := DateRange{From: days[6], To: days[0]}
	if got := reversed.Days(); len(got) != 0 {
		t.Fatalf("reversed range days = %v, want none", got)
	}
}

func TestTransitionTable(t *testing.T) {
	for _, from := range Statuses() {
		for _, to := range Statuses() {
			_, ok := Transition(from, to)
			if from == to && ok {
				t.Fatalf("%s -> %s allowed", from, to)
			}
			if from.Terminal() && ok {
				t.Fatalf("terminal %s -> %s allowed", from, to)
			}
			if to == StatusPending && ok {
				t.Fatalf("%s -> pending allowed", from)
			}
		}
	}

	rule, ok := Transition(StatusPending, StatusConfirmed)
	if !ok || rule != RuleConflictFree {
		t.Fatalf("pending -> confirmed = %v, %v, want RuleConflictFree", rule, ok)
	}
	rule, ok = Transition(StatusConfirmed, StatusNoShow)
	if !ok || rule != RuleNotFuture {
		t.Fatalf("confirmed -> no_show = %v, %v, want RuleNotFuture", rule, ok)
	}
}

func TestBlockedIntervalSpan(t *testing.T) {
	full := BlockedInterval{}
	if !full.FullDay() || full.Span() != (Span{Start: 0, End: MinutesPerDay}) {
		t.Fatalf("full day span = %v", full.Span())
	}
	start, end := NewTimeOfDay(13, 0), NewTimeOfDay(15, 0)
	partial := BlockedInterval{Start: &start, End: &end}
	if partial.FullDay() || partial.Span() != (Span{Start: start, End: end}) {
		t.Fatalf("partial span = %v", partial.Span())
	}
}

func TestStoreUnavailableErrorUnwraps(t *testing.T) {
	cause := errors.New("connection refused")
	err := error(&StoreUnavailableError{Attempts: 3, Err: cause})
	if !errors.Is(err, cause) {
		t.Fatalf("errors.Is(cause) = false")
	}
	var target *StoreUnavailableError
	if !errors.As(err, &target) || target.Attempts != 3 {
		t.Fatalf("errors.As = %v", target)
	}
}
