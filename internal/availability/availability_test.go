package availability

import (
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/valentina-code311/tu-lugar-seguro-sub001/internal/domain"
)

var monday = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

func morningHours() domain.BusinessHours {
	return domain.BusinessHours{
		time.Monday: {{Start: domain.NewTimeOfDay(9, 0), End: domain.NewTimeOfDay(12, 0)}},
	}
}

func at(h, m int) domain.TimeOfDay { return domain.NewTimeOfDay(h, m) }

func starts(slots []domain.Slot) []string {
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		out = append(out, s.Start.String())
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestGenerateSlots_MorningGrid(t *testing.T) {
	slots := GenerateSlots(SlotQuery{
		Range:       domain.DateRange{From: monday, To: monday},
		Hours:       morningHours(),
		Granularity: 30,
	})

	want := []string{"09:00", "09:30", "10:00", "10:30", "11:00", "11:30"}
	if got := starts(Available(slots)); !equalStrings(got, want) {
		t.Fatalf("slots = %v, want %v", got, want)
	}
}

func TestGenerateSlots_ConfirmedAppointmentRemovesItsSlot(t *testing.T) {
	appt := domain.Appointment{
		ID:              uuid.New(),
		Date:            monday,
		Start:           at(10, 0),
		DurationMinutes: 30,
		Status:          domain.StatusConfirmed,
	}
	slots := GenerateSlots(SlotQuery{
		Range:        domain.DateRange{From: monday, To: monday},
		Hours:        morningHours(),
		Appointments: []domain.Appointment{appt},
		Granularity:  30,
	})

	want := []string{"09:00", "09:30", "10:30", "11:00", "11:30"}
	if got := starts(Available(slots)); !equalStrings(got, want) {
		t.Fatalf("slots = %v, want %v", got, want)
	}
	if len(slots) != 6 {
		t.Fatalf("len(all slots) = %d, want 6", len(slots))
	}
}

func TestGenerateSlots_InactiveAppointmentsIgnored(t *testing.T) {
	var appts []domain.Appointment
	for _, st := range []domain.Status{domain.StatusCancelled, domain.StatusCompleted, domain.StatusNoShow} {
		appts = append(appts, domain.Appointment{ID: uuid.New(), Date: monday, Start: at(9, 0), DurationMinutes: 180, Status: st})
	}
	slots := Available(GenerateSlots(SlotQuery{
		Range:        domain.DateRange{From: monday, To: monday},
		Hours:        morningHours(),
		Appointments: appts,
		Granularity:  30,
	}))
	if len(slots) != 6 {
		t.Fatalf("len(slots) = %d, want 6", len(slots))
	}
}

func TestGenerateSlots_FullDayBlock(t *testing.T) {
	slots := GenerateSlots(SlotQuery{
		Range:       domain.DateRange{From: monday, To: monday},
		Hours:       morningHours(),
		Blocks:      []domain.BlockedInterval{{Date: monday}},
		Granularity: 30,
	})
	if len(slots) != 0 {
		t.Fatalf("slots = %v, want none", starts(slots))
	}
}

func TestGenerateSlots_PartialBlockAndShortInterval(t *testing.T) {
	start, end := at(9, 30), at(10, 30)
	hours := domain.BusinessHours{
		time.Monday: {
			{Start: at(9, 0), End: at(12, 0)},
			{Start: at(14, 0), End: at(14, 20)},
		},
	}
	slots := Available(GenerateSlots(SlotQuery{
		Range:       domain.DateRange{From: monday, To: monday},
		Hours:       hours,
		Blocks:      []domain.BlockedInterval{{Date: monday, Start: &start, End: &end}},
		Granularity: 30,
	}))

	want := []string{"09:00", "10:30", "11:00", "11:30"}
	if got := starts(slots); !equalStrings(got, want) {
		t.Fatalf("slots = %v, want %v", got, want)
	}
}

func TestGenerateSlots_DurationLongerThanStep(t *testing.T) {
	slots := GenerateSlots(SlotQuery{
		Range:       domain.DateRange{From: monday, To: monday},
		Hours:       morningHours(),
		Granularity: 30,
		Duration:    60,
	})
	want := []string{"09:00", "09:30", "10:00", "10:30", "11:00"}
	if got := starts(slots); !equalStrings(got, want) {
		t.Fatalf("slots = %v, want %v", got, want)
	}
}

func TestGenerateSlots_OffGridWindowStartsOnBookingGrid(t *testing.T) {
	hours := domain.BusinessHours{
		time.Monday: {{Start: at(9, 15), End: at(11, 0)}},
	}
	slots := GenerateSlots(SlotQuery{
		Range:       domain.DateRange{From: monday, To: monday},
		Hours:       hours,
		Granularity: 30,
	})
	want := []string{"09:30", "10:00", "10:30"}
	if got := starts(slots); !equalStrings(got, want) {
		t.Fatalf("slots = %v, want %v", got, want)
	}
	for _, s := range slots {
		if int(s.Start)%30 != 0 {
			t.Fatalf("slot %s off the 30 minute grid", s.Start)
		}
	}
}

func TestGenerateSlots_OverlappingWindowsDoNotRepeat(t *testing.T) {
	hours := domain.BusinessHours{
		time.Monday: {
			{Start: at(9, 0), End: at(12, 0)},
			{Start: at(11, 0), End: at(13, 0)},
		},
	}
	slots := GenerateSlots(SlotQuery{
		Range:       domain.DateRange{From: monday, To: monday},
		Hours:       hours,
		Granularity: 30,
		Duration:    60,
	})
	want := []string{"09:00", "09:30", "10:00", "10:30", "11:00", "11:30", "12:00"}
	if got := starts(slots); !equalStrings(got, want) {
		t.Fatalf("slots = %v, want %v", got, want)
	}
}

func TestGenerateSlots_BufferAroundAppointments(t *testing.T) {
	appt := domain.Appointment{ID: uuid.New(), Date: monday, Start: at(10, 0), DurationMinutes: 60, Status: domain.StatusPending}
	slots := Available(GenerateSlots(SlotQuery{
		Range:        domain.DateRange{From: monday, To: monday},
		Hours:        morningHours(),
		Appointments: []domain.Appointment{appt},
		Granularity:  30,
		Buffer:       10,
	}))
	want := []string{"09:00", "11:30"}
	if got := starts(slots); !equalStrings(got, want) {
		t.Fatalf("slots = %v, want %v", got, want)
	}
}

func TestGenerateSlots_Deterministic(t *testing.T) {
	q := SlotQuery{
		Range:       domain.Week(monday),
		Hours:       morningHours(),
		Granularity: 15,
	}
	first := GenerateSlots(q)
	second := GenerateSlots(q)
	if len(first) != len(second) {
		t.Fatalf("len = %d then %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("slot %d differs: %v vs %v", i, first[i], second[i])
		}
	}
}

func TestFindConflict(t *testing.T) {
	existing := domain.Appointment{ID: uuid.New(), ProviderID: "p1", Date: monday, Start: at(10, 0), DurationMinutes: 60, Status: domain.StatusConfirmed}
	blockStart, blockEnd := at(15, 0), at(16, 0)
	block := domain.BlockedInterval{ProviderID: "p1", Date: monday, Start: &blockStart, End: &blockEnd}

	tests := []struct {
		name       string
		candidate  Candidate
		wantSource domain.ConflictSource
	}{
		{name: "touching end", candidate: Candidate{ProviderID: "p1", Date: monday, Span: domain.Span{Start: at(11, 0), End: at(12, 0)}}},
		{name: "touching start", candidate: Candidate{ProviderID: "p1", Date: monday, Span: domain.Span{Start: at(9, 0), End: at(10, 0)}}},
		{name: "overlap", candidate: Candidate{ProviderID: "p1", Date: monday, Span: domain.Span{Start: at(10, 30), End: at(11, 30)}}, wantSource: domain.ConflictAppointment},
		{name: "excluded self", candidate: Candidate{ProviderID: "p1", Date: monday, Span: domain.Span{Start: at(10, 30), End: at(11, 30)}, Exclude: existing.ID}},
		{name: "other provider", candidate: Candidate{ProviderID: "p2", Date: monday, Span: domain.Span{Start: at(10, 0), End: at(11, 0)}}},
		{name: "other date", candidate: Candidate{ProviderID: "p1", Date: monday.AddDate(0, 0, 1), Span: domain.Span{Start: at(10, 0), End: at(11, 0)}}},
		{name: "partial block", candidate: Candidate{ProviderID: "p1", Date: monday, Span: domain.Span{Start: at(15, 30), End: at(16, 30)}}, wantSource: domain.ConflictBlocked},
		{name: "buffer", candidate: Candidate{ProviderID: "p1", Date: monday, Span: domain.Span{Start: at(11, 0), End: at(11, 30)}, Buffer: 10}, wantSource: domain.ConflictAppointment},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conflict, found := FindConflict(tt.candidate, []domain.Appointment{existing}, []domain.BlockedInterval{block})
			if tt.wantSource == "" {
				if found {
					t.Fatalf("conflict = %v, want none", conflict)
				}
				return
			}
			if !found {
				t.Fatalf("no conflict, want %s", tt.wantSource)
			}
			if conflict.Source != tt.wantSource {
				t.Fatalf("source = %s, want %s", conflict.Source, tt.wantSource)
			}
		})
	}
}

func TestFindConflict_FullDayBlockBeatsEverything(t *testing.T) {
	c := Candidate{Date: monday, Span: domain.Span{Start: at(23, 0), End: at(23, 30)}}
	conflict, found := FindConflict(c, nil, []domain.BlockedInterval{{Date: monday}})
	if !found || conflict.Source != domain.ConflictBlocked {
		t.Fatalf("conflict = %v, %v", conflict, found)
	}
	if conflict.Span != (domain.Span{Start: 0, End: domain.MinutesPerDay}) {
		t.Fatalf("span = %v", conflict.Span)
	}
}

// Random grids never offer a slot that overlaps an active appointment or a block.
func TestGenerateSlots_NoFalseAvailability(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	statuses := domain.Statuses()

	for iter := 0; iter < 200; iter++ {
		day := monday.AddDate(0, 0, rng.Intn(7))
		open := at(8, 0)
		hours := domain.BusinessHours{day.Weekday(): {{Start: open, End: at(18, 0)}}}

		var appts []domain.Appointment
		for i := 0; i < rng.Intn(6); i++ {
			appts = append(appts, domain.Appointment{
				ID:              uuid.New(),
				Date:            day,
				Start:           open.Add(rng.Intn(20) * 30),
				DurationMinutes: 15 + rng.Intn(8)*15,
				Status:          statuses[rng.Intn(len(statuses))],
			})
		}
		var blocks []domain.BlockedInterval
		for i := 0; i < rng.Intn(3); i++ {
			s := open.Add(rng.Intn(40) * 15)
			e := s.Add(15 + rng.Intn(6)*15)
			blocks = append(blocks, domain.BlockedInterval{Date: day, Start: &s, End: &e})
		}
		granularity := []int{15, 30, 60}[rng.Intn(3)]

		slots := Available(GenerateSlots(SlotQuery{
			Range:        domain.DateRange{From: day, To: day},
			Hours:        hours,
			Appointments: appts,
			Blocks:       blocks,
			Granularity:  granularity,
		}))
		for _, s := range slots {
			for _, a := range appts {
				if a.Status.Active() && a.Span().Overlaps(s.Span()) {
					t.Fatalf("iter %d: slot %s overlaps appointment %s", iter, s.Span(), a.Span())
				}
			}
			for _, b := range blocks {
				if b.Span().Overlaps(s.Span()) {
					t.Fatalf("iter %d: slot %s overlaps block %s", iter, s.Span(), b.Span())
				}
			}
		}
	}
}
