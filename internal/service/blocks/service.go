// Package blocks manages the intervals a provider declares unavailable.
package blocks

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/valentina-code311/tu-lugar-seguro-sub001/internal/domain"
	"github.com/valentina-code311/tu-lugar-seguro-sub001/internal/metrics"
	"github.com/valentina-code311/tu-lugar-seguro-sub001/internal/retry"
	"github.com/valentina-code311/tu-lugar-seguro-sub001/internal/store"
	"github.com/valentina-code311/tu-lugar-seguro-sub001/internal/tracing"
)

const maxReasonLength = 500

type WeekInvalidator interface {
	Invalidate(ctx context.Context, providerID string, dates ...time.Time) error
}

type Service struct {
	store   store.AppointmentStore
	weeks   WeekInvalidator
	metrics *metrics.Engine
	log     *slog.Logger
	policy  retry.Policy
}

type Option func(*Service)

func WithWeekInvalidator(w WeekInvalidator) Option {
	return func(s *Service) { s.weeks = w }
}

func WithMetrics(e *metrics.Engine) Option {
	return func(s *Service) { s.metrics = e }
}

func WithLogger(log *slog.Logger) Option {
	return func(s *Service) { s.log = log }
}

func NewService(st store.AppointmentStore, policy retry.Policy, opts ...Option) *Service {
	s := &Service{store: st, policy: policy, log: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(slog.String("component", "blocks"))
	return s
}

// CreateInput describes a block. Start and End are both nil for a full day.
type CreateInput struct {
	ProviderID string
	Date       time.Time
	Start      *domain.TimeOfDay
	End        *domain.TimeOfDay
	Reason     string
}

// Create stores a blocked interval. A full-day block replaces the partial blocks of its date, and a
// partial block on an already fully blocked date is rejected. Existing appointments are left alone.
func (s *Service) Create(ctx context.Context, in CreateInput) (block domain.BlockedInterval, err error) {
	ctx, end := tracing.StartOperation(ctx, s.metrics, "blocks.create",
		attribute.String("provider_id", in.ProviderID),
		attribute.String("date", domain.FormatDate(in.Date)),
	)
	defer end(&err)

	candidate, err := validate(in)
	if err != nil {
		return domain.BlockedInterval{}, err
	}

	var out domain.BlockedInterval
	err = retry.Do(ctx, s.policy, func(ctx context.Context) error {
		return s.store.InScheduleTransaction(ctx, candidate.ProviderID, []time.Time{candidate.Date}, func(ctx context.Context, tx store.ScheduleTx) error {
			existing, err := tx.ListBlockedIntervals(ctx, candidate.ProviderID, candidate.Date)
			if err != nil {
				return err
			}
			for _, b := range existing {
				if b.FullDay() {
					if candidate.FullDay() {
						return domain.Invalid("date", "already fully blocked")
					}
					return domain.Invalid("start", "date is already fully blocked")
				}
			}
			if candidate.FullDay() {
				removed, err := tx.DeletePartialBlocks(ctx, candidate.ProviderID, candidate.Date)
				if err != nil {
					return err
				}
				if removed > 0 {
					s.log.InfoContext(ctx, "full-day block replaced partial blocks",
						slog.String("provider_id", candidate.ProviderID),
						slog.String("date", domain.FormatDate(candidate.Date)),
						slog.Int("removed", removed),
					)
				}
			}
			inserted, err := tx.InsertBlockedInterval(ctx, candidate)
			if err != nil {
				return err
			}
			out = inserted
			return nil
		})
	}, s.onRetry(ctx, "blocks.create"))
	if err != nil {
		return domain.BlockedInterval{}, err
	}

	s.invalidate(ctx, out.ProviderID, out.Date)
	return out, nil
}

// Delete removes a blocked interval under the lock of its date.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) (err error) {
	ctx, end := tracing.StartOperation(ctx, s.metrics, "blocks.delete",
		attribute.String("block_id", id.String()),
	)
	defer end(&err)

	if id == uuid.Nil {
		return domain.Invalid("block_id", "is required")
	}
	var deleted domain.BlockedInterval
	err = retry.Do(ctx, s.policy, func(ctx context.Context) error {
		b, err := s.store.GetBlockedInterval(ctx, id)
		if err != nil {
			return err
		}
		return s.store.InScheduleTransaction(ctx, b.ProviderID, []time.Time{b.Date}, func(ctx context.Context, tx store.ScheduleTx) error {
			if err := tx.DeleteBlockedInterval(ctx, id); err != nil {
				return err
			}
			deleted = b
			return nil
		})
	}, s.onRetry(ctx, "blocks.delete"))
	if err != nil {
		return err
	}

	s.invalidate(ctx, deleted.ProviderID, deleted.Date)
	return nil
}

// List returns the blocks of a provider within r, ordered by date and start.
func (s *Service) List(ctx context.Context, providerID string, r domain.DateRange) ([]domain.BlockedInterval, error) {
	if strings.TrimSpace(providerID) == "" {
		return nil, domain.Invalid("provider_id", "is required")
	}
	return s.store.ListBlockedIntervals(ctx, providerID, r)
}

func (s *Service) onRetry(ctx context.Context, op string) func(int, error) {
	return func(attempt int, err error) {
		s.metrics.ObserveRetry(op)
		s.log.WarnContext(ctx, "retrying after transient store failure",
			slog.String("operation", op),
			slog.Int("attempt", attempt),
			slog.String("err", err.Error()),
		)
	}
}

func (s *Service) invalidate(ctx context.Context, providerID string, date time.Time) {
	if s.weeks == nil {
		return
	}
	if err := s.weeks.Invalidate(ctx, providerID, date); err != nil {
		s.log.WarnContext(ctx, "week cache invalidation failed",
			slog.String("provider_id", providerID),
			slog.String("err", err.Error()),
		)
	}
}

func validate(in CreateInput) (domain.BlockedInterval, error) {
	providerID := strings.TrimSpace(in.ProviderID)
	if providerID == "" {
		return domain.BlockedInterval{}, domain.Invalid("provider_id", "is required")
	}
	if in.Date.IsZero() {
		return domain.BlockedInterval{}, domain.Invalid("date", "is required")
	}
	if (in.Start == nil) != (in.End == nil) {
		return domain.BlockedInterval{}, domain.Invalid("end", "start and end must be given together")
	}
	reason := strings.TrimSpace(in.Reason)
	if len(reason) > maxReasonLength {
		return domain.BlockedInterval{}, domain.Invalid("reason", "too long")
	}
	b := domain.BlockedInterval{
		ProviderID: providerID,
		Date:       domain.DateOf(in.Date),
		Reason:     reason,
	}
	if in.Start != nil {
		start, end := *in.Start, *in.End
		if start < 0 || end > domain.MinutesPerDay {
			return domain.BlockedInterval{}, domain.Invalid("start", "must be within the day")
		}
		if end <= start {
			return domain.BlockedInterval{}, domain.Invalid("end", "must be after start")
		}
		b.Start, b.End = &start, &end
	}
	return b, nil
}
