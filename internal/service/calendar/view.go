package calendar

import (
	"time"

	"github.com/valentina-code311/tu-lugar-seguro-sub001/internal/domain"
)

// Day is one date of a week view. Appointments include every status; Slots only reflect active ones.
type Day struct {
	Date         time.Time                `json:"date"`
	Closed       bool                     `json:"closed"`
	FullyBlocked bool                     `json:"fully_blocked"`
	Appointments []domain.Appointment     `json:"appointments"`
	Blocks       []domain.BlockedInterval `json:"blocks"`
	Slots        []domain.Slot            `json:"slots"`
}

// WeekView is the Monday-to-Sunday calendar of one provider.
type WeekView struct {
	ProviderID string    `json:"provider_id"`
	WeekStart  time.Time `json:"week_start"`
	Days       []Day     `json:"days"`
}

func (v WeekView) Range() domain.DateRange {
	return domain.DateRange{From: v.WeekStart, To: v.WeekStart.AddDate(0, 0, 6)}
}

func assemble(providerID string, monday time.Time, hours domain.BusinessHours, appts []domain.Appointment, blocks []domain.BlockedInterval, slots []domain.Slot) WeekView {
	view := WeekView{ProviderID: providerID, WeekStart: monday, Days: make([]Day, 7)}
	for i := range view.Days {
		date := monday.AddDate(0, 0, i)
		view.Days[i] = Day{
			Date:         date,
			Closed:       len(hours.Open(date.Weekday())) == 0,
			Appointments: []domain.Appointment{},
			Blocks:       []domain.BlockedInterval{},
			Slots:        []domain.Slot{},
		}
	}
	index := func(d time.Time) (int, bool) {
		i := int(domain.DateOf(d).Sub(monday).Hours() / 24)
		return i, i >= 0 && i < 7
	}
	for _, a := range appts {
		if i, ok := index(a.Date); ok {
			view.Days[i].Appointments = append(view.Days[i].Appointments, a)
		}
	}
	for _, b := range blocks {
		if i, ok := index(b.Date); ok {
			view.Days[i].Blocks = append(view.Days[i].Blocks, b)
			if b.FullDay() {
				view.Days[i].FullyBlocked = true
			}
		}
	}
	for _, s := range slots {
		if i, ok := index(s.Date); ok {
			view.Days[i].Slots = append(view.Days[i].Slots, s)
		}
	}
	return view
}
