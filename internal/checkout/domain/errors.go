package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnauthorized means the caller presented no usable identity.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrOrderNotFound is returned for reads and transitions against a
	// reference that does not exist (or is not visible to the caller).
	ErrOrderNotFound = errors.New("order not found")

	// ErrReferenceTaken signals that a generated order reference hit the
	// storage unique index. Checkout retries with fresh references.
	ErrReferenceTaken = errors.New("order reference already taken")

	// ErrInvalidTransition is returned when an order's current status does
	// not permit the requested lifecycle or payment change.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// FieldError describes one rejected request field.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError carries every bad field found in a request. Validation
// never stops at the first problem, so clients can fix a submission in one
// round trip.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Reason)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add records one rejected field.
func (e *ValidationError) Add(field, reason string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Reason: reason})
}

// HasErrors reports whether any field was rejected.
func (e *ValidationError) HasErrors() bool { return len(e.Fields) > 0 }

// TransactionFailure wraps any error raised while persisting a checkout.
// The transaction has been rolled back by the time this surfaces; nothing
// from the request is left in storage.
type TransactionFailure struct {
	Cause error
}

func (e *TransactionFailure) Error() string {
	return fmt.Sprintf("checkout transaction failed: %v", e.Cause)
}

func (e *TransactionFailure) Unwrap() error { return e.Cause }
