package model

import (
	"errors"
	"fmt"
)

// ErrNotFound covers absent accounts, items, orders and subscriptions.
// Surfaced to the caller with no mutation performed.
var ErrNotFound = errors.New("not found")

// ErrAlreadyEntitled signals the account already owns the item; callers
// typically respond by re-delivering instead of charging again.
var ErrAlreadyEntitled = errors.New("already entitled")

// ValidationError rejects an operation before any mutation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// ProviderError wraps a failed or timed-out payment provider call.
// Retryable errors are safe to re-invoke via webhook redelivery.
type ProviderError struct {
	Op        string
	Retryable bool
	Err       error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("payment provider %s: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }
