package domain

import (
	"fmt"
	"time"
)

type ValidationError struct {
	Field string
	msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.msg
	}
	return e.Field + ": " + e.msg
}

func Invalid(field, msg string) error {
	return &ValidationError{Field: field, msg: msg}
}

// ConflictSource names what occupies the requested interval.
type ConflictSource string

const (
	ConflictAppointment ConflictSource = "appointment"
	ConflictBlocked     ConflictSource = "blocked"
)

// ConflictError describes the occupied interval. It never carries the other booking's client data.
type ConflictError struct {
	Date   time.Time
	Span   Span
	Source ConflictSource
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("requested time conflicts with %s interval %s on %s", e.Source, e.Span, FormatDate(e.Date))
}

type IllegalTransitionError struct {
	From   Status
	To     Status
	Reason string
}

func (e *IllegalTransitionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("cannot move appointment from %s to %s: %s", e.From, e.To, e.Reason)
	}
	return fmt.Sprintf("cannot move appointment from %s to %s", e.From, e.To)
}

// StoreUnavailableError is returned after the retry budget for a unit of work is spent.
type StoreUnavailableError struct {
	Attempts int
	Err      error
}

func (e *StoreUnavailableError) Error() string {
	return fmt.Sprintf("store unavailable after %d attempts: %v", e.Attempts, e.Err)
}

func (e *StoreUnavailableError) Unwrap() error {
	return e.Err
}
