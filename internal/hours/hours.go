// Package hours supplies the weekly business hours of a provider.
package hours

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/valentina-code311/tu-lugar-seguro-sub001/internal/domain"
)

type Provider interface {
	BusinessHours(ctx context.Context, providerID string) (domain.BusinessHours, error)
}

// Static serves the same hours to every provider.
type Static struct {
	hours domain.BusinessHours
}

func NewStatic(h domain.BusinessHours) Static {
	return Static{hours: h}
}

// ParseStatic builds hours from weekday names mapped to "HH:MM-HH:MM,..." strings.
// Weekdays that are absent or empty are closed.
func ParseStatic(days map[string]string) (Static, error) {
	h, err := ParseWeek(days)
	if err != nil {
		return Static{}, err
	}
	return Static{hours: h}, nil
}

func (s Static) BusinessHours(ctx context.Context, providerID string) (domain.BusinessHours, error) {
	out := make(domain.BusinessHours, len(s.hours))
	for wd, spans := range s.hours {
		out[wd] = append([]domain.Span(nil), spans...)
	}
	return out, nil
}

func ParseWeek(days map[string]string) (domain.BusinessHours, error) {
	h := make(domain.BusinessHours)
	for name, value := range days {
		wd, ok := domain.ParseWeekday(name)
		if !ok {
			return nil, fmt.Errorf("unknown weekday %q", name)
		}
		spans, err := domain.ParseBusinessHoursDay(value)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if len(spans) > 0 {
			h[wd] = spans
		}
	}
	return h, nil
}

// FormatWeek is the inverse of ParseWeek. Closed days are omitted.
func FormatWeek(h domain.BusinessHours) map[string]string {
	out := make(map[string]string, len(h))
	for wd, spans := range h {
		if len(spans) == 0 {
			continue
		}
		sorted := h.Open(wd)
		parts := make([]string, 0, len(sorted))
		for _, s := range sorted {
			parts = append(parts, s.String())
		}
		out[strings.ToLower(wd.String())] = strings.Join(parts, ",")
	}
	return out
}

// Weekdays lists the open days in calendar order starting on Monday.
func Weekdays(h domain.BusinessHours) []time.Weekday {
	var out []time.Weekday
	for wd, spans := range h {
		if len(spans) > 0 {
			out = append(out, wd)
		}
	}
	sort.Slice(out, func(i, j int) bool { return (out[i]+6)%7 < (out[j]+6)%7 })
	return out
}
