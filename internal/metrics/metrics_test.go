package metrics

import (
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/valentina-code311/tu-lugar-seguro-sub001/internal/domain"
	"github.com/valentina-code311/tu-lugar-seguro-sub001/internal/store"
)

func TestEngineObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewEngine(reg)
	m.ObserveOperation("create", "ok", 0.02)
	m.ObserveOperation("create", "conflict", 0.01)
	m.ObserveRetry("create")
	m.ObserveConflict("appointment")
	m.ObservePublishFailure()
	m.ObserveCache("hit")

	if got := testutil.ToFloat64(m.operations.WithLabelValues("create", "ok")); got != 1 {
		t.Fatalf("operations{create,ok} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.publishFailures); got != 1 {
		t.Fatalf("publish failures = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(m.latency); got != 1 {
		t.Fatalf("latency series = %d, want 1", got)
	}
}

func TestEngineNilSafe(t *testing.T) {
	var m *Engine
	m.ObserveOperation("create", "ok", 0.1)
	m.ObserveRetry("create")
	m.ObserveConflict("blocked")
	m.ObservePublishFailure()
	m.ObserveCache("miss")
}

func TestOutcome(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{domain.Invalid("start", "bad"), "invalid"},
		{fmt.Errorf("wrapped: %w", &domain.ConflictError{}), "conflict"},
		{&domain.IllegalTransitionError{}, "illegal"},
		{&domain.StoreUnavailableError{Attempts: 3, Err: store.ErrUnavailable}, "unavailable"},
		{store.ErrNotFound, "not_found"},
		{store.ErrIdempotencyConflict, "idempotency_conflict"},
		{errors.New("boom"), "error"},
	}
	for _, tt := range tests {
		if got := Outcome(tt.err); got != tt.want {
			t.Fatalf("Outcome(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
	if Expected("error") || Expected("unavailable") || !Expected("conflict") {
		t.Fatalf("Expected classification wrong")
	}
}
