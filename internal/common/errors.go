// Package common defines shared constants and sentinel errors used across
// the commission engine layers. Callers should use errors.Is to match these
// values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrVersionConflict = errors.New("version conflict")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorValidation   = errors.New("validation error")

	// State machine errors.
	ErrInvalidState    = errors.New("invalid state")
	ErrTooLate         = errors.New("too late")
	ErrDuplicateAction = errors.New("duplicate action")

	// Finance errors.
	ErrPaymentMismatch   = errors.New("payment mismatch")
	ErrInsufficientFunds = errors.New("insufficient funds")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// Idempotency guards. Each one also matches ErrDuplicateAction.
var (
	ErrAlreadySubmitted = fmt.Errorf("already submitted: %w", ErrDuplicateAction)
	ErrAlreadyResolved  = fmt.Errorf("already resolved: %w", ErrDuplicateAction)
	ErrNothingToClaim   = fmt.Errorf("nothing to claim: %w", ErrDuplicateAction)
)
