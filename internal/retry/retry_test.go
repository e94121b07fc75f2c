package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/valentina-code311/tu-lugar-seguro-sub001/internal/domain"
	"github.com/valentina-code311/tu-lugar-seguro-sub001/internal/store"
)

var fast = Policy{MaxAttempts: 4, InitialInterval: time.Millisecond}

func TestDo_SucceedsAfterTransientFailures(t *testing.T) {
	calls, retries := 0, 0
	err := Do(context.Background(), fast, func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return store.ErrStaleScope
		}
		return nil
	}, func(attempt int, err error) { retries++ })
	if err != nil {
		t.Fatalf("Do error: %v", err)
	}
	if calls != 3 || retries != 2 {
		t.Fatalf("calls = %d retries = %d, want 3 and 2", calls, retries)
	}
}

func TestDo_StopsOnPermanentError(t *testing.T) {
	calls := 0
	conflict := &domain.ConflictError{Source: domain.ConflictAppointment}
	err := Do(context.Background(), fast, func(ctx context.Context) error {
		calls++
		return conflict
	}, nil)
	if !errors.Is(err, conflict) {
		t.Fatalf("err = %v, want the conflict", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestDo_WrapsExhaustedBudget(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fast, func(ctx context.Context) error {
		calls++
		return store.ErrUnavailable
	}, nil)
	var uErr *domain.StoreUnavailableError
	if !errors.As(err, &uErr) {
		t.Fatalf("err = %v, want *StoreUnavailableError", err)
	}
	if uErr.Attempts != 4 || calls != 4 {
		t.Fatalf("attempts = %d calls = %d, want 4", uErr.Attempts, calls)
	}
}
