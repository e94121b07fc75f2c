// Package booking moves appointments through their lifecycle without ever letting two active
// appointments of a provider overlap.
package booking

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/valentina-code311/tu-lugar-seguro-sub001/internal/availability"
	"github.com/valentina-code311/tu-lugar-seguro-sub001/internal/clock"
	"github.com/valentina-code311/tu-lugar-seguro-sub001/internal/domain"
	"github.com/valentina-code311/tu-lugar-seguro-sub001/internal/hours"
	"github.com/valentina-code311/tu-lugar-seguro-sub001/internal/metrics"
	"github.com/valentina-code311/tu-lugar-seguro-sub001/internal/notify"
	"github.com/valentina-code311/tu-lugar-seguro-sub001/internal/retry"
	"github.com/valentina-code311/tu-lugar-seguro-sub001/internal/store"
	"github.com/valentina-code311/tu-lugar-seguro-sub001/internal/tracing"
)

// WeekInvalidator drops cached week views that contain any of dates.
type WeekInvalidator interface {
	Invalidate(ctx context.Context, providerID string, dates ...time.Time) error
}

type Config struct {
	Granularity          int
	Buffer               int
	MaxAttempts          int
	RetryInitialInterval time.Duration
	PhoneRegion          string
	EnforceBusinessHours bool
}

type Manager struct {
	store     store.AppointmentStore
	catalog   store.ServiceCatalog
	hours     hours.Provider
	clock     clock.Clock
	publisher notify.Publisher
	weeks     WeekInvalidator
	metrics   *metrics.Engine
	log       *slog.Logger
	cfg       Config
}

type Option func(*Manager)

func WithPublisher(p notify.Publisher) Option {
	return func(m *Manager) { m.publisher = p }
}

func WithWeekInvalidator(w WeekInvalidator) Option {
	return func(m *Manager) { m.weeks = w }
}

func WithMetrics(e *metrics.Engine) Option {
	return func(m *Manager) { m.metrics = e }
}

func WithLogger(log *slog.Logger) Option {
	return func(m *Manager) { m.log = log }
}

func NewManager(st store.AppointmentStore, catalog store.ServiceCatalog, h hours.Provider, clk clock.Clock, cfg Config, opts ...Option) *Manager {
	if cfg.Granularity <= 0 {
		cfg.Granularity = availability.DefaultGranularity
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryInitialInterval <= 0 {
		cfg.RetryInitialInterval = 50 * time.Millisecond
	}
	if cfg.PhoneRegion == "" {
		cfg.PhoneRegion = "AR"
	}
	m := &Manager{
		store:   st,
		catalog: catalog,
		hours:   h,
		clock:   clk,
		log:     slog.Default(),
		cfg:     cfg,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.log = m.log.With(slog.String("component", "booking"))
	return m
}

// withRetry runs unit under the configured retry policy, counting and logging every retry.
func (m *Manager) withRetry(ctx context.Context, op string, unit func(ctx context.Context) error) error {
	policy := retry.Policy{MaxAttempts: m.cfg.MaxAttempts, InitialInterval: m.cfg.RetryInitialInterval}
	return retry.Do(ctx, policy, unit, func(attempt int, err error) {
		m.metrics.ObserveRetry(op)
		m.log.WarnContext(ctx, "retrying after transient store failure",
			slog.String("operation", op),
			slog.Int("attempt", attempt),
			slog.String("err", err.Error()),
		)
	})
}

func (m *Manager) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, func(*error)) {
	return tracing.StartOperation(ctx, m.metrics, name, attrs...)
}

// afterCommit publishes the transition and drops cached weeks. Failures are logged and counted;
// the committed state stands.
func (m *Manager) afterCommit(ctx context.Context, appt domain.Appointment, from domain.Status, actor domain.Actor, publish bool, dates ...time.Time) {
	if m.weeks != nil {
		if err := m.weeks.Invalidate(ctx, appt.ProviderID, dates...); err != nil {
			m.log.WarnContext(ctx, "week cache invalidation failed",
				slog.String("provider_id", appt.ProviderID),
				slog.String("err", err.Error()),
			)
		}
	}
	if !publish || m.publisher == nil {
		return
	}
	ev := notify.StatusChanged(appt, from, actor, m.clock.Now())
	if err := m.publisher.Publish(ctx, ev); err != nil {
		m.metrics.ObservePublishFailure()
		m.log.ErrorContext(ctx, "status change notification failed",
			slog.String("appointment_id", appt.ID.String()),
			slog.String("to", string(appt.Status)),
			slog.String("err", err.Error()),
		)
	}
}

func (m *Manager) conflictIn(ctx context.Context, tx store.ScheduleTx, c availability.Candidate) error {
	appts, err := tx.ListAppointments(ctx, c.ProviderID, c.Date)
	if err != nil {
		return err
	}
	blocks, err := tx.ListBlockedIntervals(ctx, c.ProviderID, c.Date)
	if err != nil {
		return err
	}
	if conflict, found := availability.FindConflict(c, appts, blocks); found {
		m.metrics.ObserveConflict(string(conflict.Source))
		return conflict
	}
	return nil
}

// Get returns one appointment.
func (m *Manager) Get(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	if id == uuid.Nil {
		return domain.Appointment{}, domain.Invalid("appointment_id", "is required")
	}
	return m.store.GetAppointment(ctx, id)
}

// ListTransitions returns the audit history of an appointment, oldest first.
func (m *Manager) ListTransitions(ctx context.Context, id uuid.UUID) ([]domain.TransitionRecord, error) {
	if _, err := m.Get(ctx, id); err != nil {
		return nil, err
	}
	return m.store.ListTransitions(ctx, id)
}
