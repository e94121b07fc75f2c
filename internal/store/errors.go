package store

import "errors"

var (
	ErrConflict            = errors.New("conflict")
	ErrNotFound            = errors.New("not found")
	ErrIdempotencyConflict = errors.New("idempotency key conflict")
	ErrDuplicateID         = errors.New("duplicate id")
	// ErrUnavailable marks transient failures: lost connections, deadlines, lock timeouts,
	// serialization failures and deadlocks. The whole unit of work may be retried.
	ErrUnavailable = errors.New("store unavailable")
	// ErrStaleScope means the record moved between the unlocked read and the locked one.
	ErrStaleScope = errors.New("lock scope no longer matches record")
	// ErrOutsideScope is returned when a transaction writes to a date it did not lock.
	ErrOutsideScope = errors.New("write outside locked scope")
)

// Retryable reports whether err allows retrying the whole check-then-write unit.
func Retryable(err error) bool {
	return errors.Is(err, ErrUnavailable) || errors.Is(err, ErrStaleScope) || errors.Is(err, ErrDuplicateID)
}
