// Package calendar answers the read side: week views, free slots and the service catalog.
// Nothing here writes to the store.
package calendar

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/valentina-code311/tu-lugar-seguro-sub001/internal/availability"
	"github.com/valentina-code311/tu-lugar-seguro-sub001/internal/clock"
	"github.com/valentina-code311/tu-lugar-seguro-sub001/internal/domain"
	"github.com/valentina-code311/tu-lugar-seguro-sub001/internal/hours"
	"github.com/valentina-code311/tu-lugar-seguro-sub001/internal/metrics"
	"github.com/valentina-code311/tu-lugar-seguro-sub001/internal/store"
	"github.com/valentina-code311/tu-lugar-seguro-sub001/internal/tracing"
)

type Config struct {
	Granularity int
	Buffer      int
}

type Service struct {
	store   store.AppointmentStore
	catalog store.ServiceCatalog
	hours   hours.Provider
	clock   clock.Clock
	cache   Cache
	metrics *metrics.Engine
	log     *slog.Logger
	cfg     Config
}

type Option func(*Service)

func WithCache(c Cache) Option {
	return func(s *Service) { s.cache = c }
}

func WithMetrics(e *metrics.Engine) Option {
	return func(s *Service) { s.metrics = e }
}

func WithLogger(log *slog.Logger) Option {
	return func(s *Service) { s.log = log }
}

func NewService(st store.AppointmentStore, catalog store.ServiceCatalog, h hours.Provider, clk clock.Clock, cfg Config, opts ...Option) *Service {
	if cfg.Granularity <= 0 {
		cfg.Granularity = availability.DefaultGranularity
	}
	s := &Service{store: st, catalog: catalog, hours: h, clock: clk, cfg: cfg, log: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(slog.String("component", "calendar"))
	return s
}

// GetWeekView returns the week containing anyDate, starting on Monday. Repeated calls without
// intervening writes return the same view.
func (s *Service) GetWeekView(ctx context.Context, providerID string, anyDate time.Time) (view WeekView, err error) {
	ctx, end := tracing.StartOperation(ctx, s.metrics, "calendar.week_view",
		attribute.String("provider_id", providerID),
		attribute.String("date", domain.FormatDate(anyDate)),
	)
	defer end(&err)

	providerID = strings.TrimSpace(providerID)
	if providerID == "" {
		return WeekView{}, domain.Invalid("provider_id", "is required")
	}
	if anyDate.IsZero() {
		return WeekView{}, domain.Invalid("date", "is required")
	}
	monday := domain.WeekStart(anyDate)

	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx, providerID, monday)
		switch {
		case err != nil:
			s.metrics.ObserveCache("error")
			s.log.WarnContext(ctx, "week cache read failed", slog.String("err", err.Error()))
		case ok:
			s.metrics.ObserveCache("hit")
			return cached, nil
		default:
			s.metrics.ObserveCache("miss")
		}
	}

	view, err = s.buildWeek(ctx, providerID, monday)
	if err != nil {
		return WeekView{}, err
	}

	if s.cache != nil {
		if err := s.cache.Put(ctx, view); err != nil {
			s.log.WarnContext(ctx, "week cache write failed", slog.String("err", err.Error()))
		}
	}
	return view, nil
}

func (s *Service) buildWeek(ctx context.Context, providerID string, monday time.Time) (WeekView, error) {
	r := domain.Week(monday)
	appts, err := s.store.ListAppointments(ctx, providerID, r)
	if err != nil {
		return WeekView{}, err
	}
	blocks, err := s.store.ListBlockedIntervals(ctx, providerID, r)
	if err != nil {
		return WeekView{}, err
	}
	h, err := s.hours.BusinessHours(ctx, providerID)
	if err != nil {
		return WeekView{}, err
	}
	slots := availability.GenerateSlots(availability.SlotQuery{
		ProviderID:   providerID,
		Range:        r,
		Hours:        h,
		Blocks:       blocks,
		Appointments: appts,
		Granularity:  s.cfg.Granularity,
		Buffer:       s.cfg.Buffer,
	})
	return assemble(providerID, monday, h, appts, blocks, slots), nil
}

// ListAvailableSlots returns the free starts on date for a service, sized by its duration. Starts
// that are not in the future are left out.
func (s *Service) ListAvailableSlots(ctx context.Context, providerID string, date time.Time, serviceID uuid.UUID) (slots []domain.Slot, err error) {
	ctx, end := tracing.StartOperation(ctx, s.metrics, "calendar.available_slots",
		attribute.String("provider_id", providerID),
		attribute.String("date", domain.FormatDate(date)),
	)
	defer end(&err)

	providerID = strings.TrimSpace(providerID)
	if providerID == "" {
		return nil, domain.Invalid("provider_id", "is required")
	}
	if date.IsZero() {
		return nil, domain.Invalid("date", "is required")
	}
	if serviceID == uuid.Nil {
		return nil, domain.Invalid("service_id", "is required")
	}
	svc, err := s.catalog.GetService(ctx, serviceID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, domain.Invalid("service_id", "unknown service")
	}
	if err != nil {
		return nil, err
	}
	if !svc.Active {
		return nil, domain.Invalid("service_id", "service is not offered")
	}

	day := domain.DateOf(date)
	r := domain.DateRange{From: day, To: day}
	appts, err := s.store.ListAppointments(ctx, providerID, r)
	if err != nil {
		return nil, err
	}
	blocks, err := s.store.ListBlockedIntervals(ctx, providerID, r)
	if err != nil {
		return nil, err
	}
	h, err := s.hours.BusinessHours(ctx, providerID)
	if err != nil {
		return nil, err
	}

	all := availability.GenerateSlots(availability.SlotQuery{
		ProviderID:   providerID,
		Range:        r,
		Hours:        h,
		Blocks:       blocks,
		Appointments: appts,
		Granularity:  s.cfg.Granularity,
		Duration:     svc.DurationMinutes,
		Buffer:       s.cfg.Buffer,
	})
	now := s.clock.Now()
	loc := s.clock.Location()
	out := make([]domain.Slot, 0, len(all))
	for _, slot := range availability.Available(all) {
		if slot.Start.On(slot.Date, loc).After(now) {
			out = append(out, slot)
		}
	}
	return out, nil
}

// ListServices returns the bookable services.
func (s *Service) ListServices(ctx context.Context) ([]domain.Service, error) {
	return s.catalog.ListServices(ctx, true)
}
