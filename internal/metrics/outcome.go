package metrics

import (
	"errors"

	"github.com/valentina-code311/tu-lugar-seguro-sub001/internal/domain"
	"github.com/valentina-code311/tu-lugar-seguro-sub001/internal/store"
)

// Outcome classifies err into the label used by operation metrics and spans.
func Outcome(err error) string {
	var (
		vErr *domain.ValidationError
		cErr *domain.ConflictError
		iErr *domain.IllegalTransitionError
		uErr *domain.StoreUnavailableError
	)
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &vErr):
		return "invalid"
	case errors.As(err, &cErr):
		return "conflict"
	case errors.As(err, &iErr):
		return "illegal"
	case errors.As(err, &uErr):
		return "unavailable"
	case errors.Is(err, store.ErrNotFound):
		return "not_found"
	case errors.Is(err, store.ErrIdempotencyConflict):
		return "idempotency_conflict"
	default:
		return "error"
	}
}

// Expected reports whether outcome is a normal business rejection rather than a failure.
func Expected(outcome string) bool {
	switch outcome {
	case "ok", "invalid", "conflict", "illegal", "not_found", "idempotency_conflict":
		return true
	}
	return false
}
