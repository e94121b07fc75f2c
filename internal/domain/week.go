package domain

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// DateOf truncates t to its civil date, returned as midnight UTC.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func SameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	return d, nil
}

func FormatDate(d time.Time) string {
	return d.Format(dateLayout)
}

// WeekStart returns the Monday of the week containing t.
func WeekStart(t time.Time) time.Time {
	offset := int(t.Weekday()) - 1
	if t.Weekday() == time.Sunday {
		offset = 6
	}
	return DateOf(t).AddDate(0, 0, -offset)
}

// DateRange is an inclusive range of civil dates.
type DateRange struct {
	From time.Time
	To   time.Time
}

// Week returns the Monday-to-Sunday range containing t.
func Week(t time.Time) DateRange {
	monday := WeekStart(t)
	return DateRange{From: monday, To: monday.AddDate(0, 0, 6)}
}

// Days lists every date of the range in order. A reversed range is empty.
func (r DateRange) Days() []time.Time {
	from, to := DateOf(r.From), DateOf(r.To)
	var out []time.Time
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out
}

func (r DateRange) Contains(d time.Time) bool {
	d = DateOf(d)
	return !d.Before(DateOf(r.From)) && !d.After(DateOf(r.To))
}
