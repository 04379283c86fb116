package types

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Domain errors shared by every layer. Compare with errors.Is.
var (
	ErrNotFound          = errors.New("not found")
	ErrAlreadyExists     = errors.New("already exists")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrValidation        = errors.New("validation failed")
	ErrEmptyCart         = errors.New("cart is empty")
	ErrAccountBlocked    = errors.New("account is blocked")
	ErrInUse             = errors.New("referenced by existing orders")
)

// InsufficientFundsError reports a failed funds check at order creation.
// It carries both amounts so callers can render the user-facing message.
type InsufficientFundsError struct {
	Balance  decimal.Decimal
	Required decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("not enough funds: balance %s, order total %s",
		e.Balance.StringFixed(2), e.Required.StringFixed(2))
}

// Is makes errors.Is(err, ErrInsufficientFunds) match.
func (e *InsufficientFundsError) Is(target error) bool {
	return target == ErrInsufficientFunds
}

// ValidationError describes malformed input rejected before any mutation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Reason)
}

// Is makes errors.Is(err, ErrValidation) match.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError creates a ValidationError for the given field
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// IsNotFound checks if an error represents a "not found" condition
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
