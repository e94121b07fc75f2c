package store

import (
	"testing"
	"time"
)

func TestSortedDatesDedupesAndOrders(t *testing.T) {
	d1 := time.Date(2025, 3, 12, 15, 0, 0, 0, time.UTC)
	d0 := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	got := SortedDates([]time.Time{d1, d0, d1.Add(time.Hour)})
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if !got[0].Equal(d0) || got[1].Day() != 12 || got[1].Hour() != 0 {
		t.Fatalf("dates = %v", got)
	}
}

func TestScopeCovers(t *testing.T) {
	d := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	s := Scope{ProviderID: "p1", Dates: []time.Time{d}}
	if !s.Covers("p1", d) {
		t.Fatalf("scope does not cover its own date")
	}
	if s.Covers("p2", d) || s.Covers("p1", d.AddDate(0, 0, 1)) {
		t.Fatalf("scope covers foreign provider or date")
	}
}
