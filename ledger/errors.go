/*
errors.go - Boundary validation for events and amounts

PURPOSE:
  All input validation lives here, at the edge of the engine. The replay
  fold itself is total and never inspects its input defensively; a
  malformed event reaching ComputeTimeline is a caller contract violation.

ERROR CATEGORIES:
  1. Validation errors - rejected input (amount, type, description)
  2. Helper predicates - errors.Is based classification for HTTP mapping

USAGE:
  Callers validate before appending:

    if err := ledger.ValidateEvent(e); err != nil {
        return err // typed *ValidationError, maps to HTTP 400
    }

SEE ALSO:
  - session/session.go: Validates on append
  - api/handlers.go: Maps these to HTTP status codes
*/
package ledger

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidInput is the root of every boundary rejection.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNegativeAmount is returned for amounts below zero. Every event
	// type carries a non-negative amount; direction comes from the type.
	ErrNegativeAmount = errors.New("amount must not be negative")

	// ErrAmountTooLarge is returned for amounts above MaxAmount.
	ErrAmountTooLarge = errors.New("amount exceeds maximum")

	// ErrUnknownEventType is returned for types outside the closed set.
	ErrUnknownEventType = errors.New("unknown event type")

	// ErrEmptyDescription is returned where a non-empty label is required.
	ErrEmptyDescription = errors.New("description must not be empty")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError is a typed "rejected input" result. It wraps one of the
// sentinel errors above so callers can classify with errors.Is.
type ValidationError struct {
	Field  string
	Reason error
	Value  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %v (got %q)", e.Field, e.Reason, e.Value)
}

func (e *ValidationError) Unwrap() error { return e.Reason }

// IsValidation reports whether err is a boundary rejection.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve) || errors.Is(err, ErrInvalidInput)
}

// =============================================================================
// VALIDATORS
// =============================================================================

// ValidateAmount checks the shared amount contract: non-negative and at
// most MaxAmount. Zero is allowed (a balance event may set the balance
// to zero).
func ValidateAmount(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return &ValidationError{Field: "amount", Reason: ErrNegativeAmount, Value: amount.String()}
	}
	if amount.GreaterThan(MaxAmount) {
		return &ValidationError{Field: "amount", Reason: ErrAmountTooLarge, Value: amount.String()}
	}
	return nil
}

// ValidateEvent checks an event against the boundary contract before it
// may be appended to a session.
func ValidateEvent(e Event) error {
	if !e.Type.IsValid() {
		return &ValidationError{Field: "type", Reason: ErrUnknownEventType, Value: string(e.Type)}
	}
	if e.Timestamp.IsZero() {
		return &ValidationError{Field: "timestamp", Reason: ErrInvalidInput, Value: "zero"}
	}
	return ValidateAmount(e.Amount)
}
