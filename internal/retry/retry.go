// Package retry re-runs a unit of work after transient store failures.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/valentina-code311/tu-lugar-seguro-sub001/internal/domain"
	"github.com/valentina-code311/tu-lugar-seguro-sub001/internal/store"
)

type Policy struct {
	MaxAttempts     int
	InitialInterval time.Duration
}

func (p Policy) withDefaults() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 3
	}
	if p.InitialInterval <= 0 {
		p.InitialInterval = 50 * time.Millisecond
	}
	return p
}

// Do runs unit until it succeeds, fails with a non-retryable error or the attempt budget is spent.
// unit must contain the whole check-then-write sequence so a retry re-reads everything it decides on.
// onRetry, when set, is called before each new attempt.
func Do(ctx context.Context, p Policy, unit func(ctx context.Context) error, onRetry func(attempt int, err error)) error {
	p = p.withDefaults()
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval

	attempts := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempts++
		err := unit(ctx)
		if err == nil {
			return struct{}{}, nil
		}
		if !store.Retryable(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		if attempts < p.MaxAttempts && onRetry != nil {
			onRetry(attempts, err)
		}
		return struct{}{}, err
	}, backoff.WithBackOff(b), backoff.WithMaxTries(uint(p.MaxAttempts)))

	if err != nil && (store.Retryable(err) || errors.Is(err, context.DeadlineExceeded)) {
		return &domain.StoreUnavailableError{Attempts: attempts, Err: err}
	}
	return err
}
