package apperr

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation             = errors.New("validation failed")
	ErrNotFound               = errors.New("not found")
	ErrConflict               = errors.New("conflict")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrInsufficientStock      = errors.New("insufficient stock")
)

// Validation builds an error matching ErrValidation.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// NotFound builds an error matching ErrNotFound.
func NotFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
}

// TransitionError is returned when an aggregate is driven out of sequence.
// It is a defect signal, never retried.
type TransitionError struct {
	Aggregate string
	From      string
	To        string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid %s state transition from %s to %s", e.Aggregate, e.From, e.To)
}

func (e *TransitionError) Is(target error) bool { return target == ErrInvalidStateTransition }

type InsufficientStockError struct {
	ProductID string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested=%d, available=%d",
		e.ProductID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }

// Blank reports whether s is empty after trimming.
func Blank(s string) bool { return strings.TrimSpace(s) == "" }

// Business reports whether err is a domain outcome (bad input, unknown id,
// rejected transition, short stock) rather than an infrastructure failure.
func Business(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrInvalidStateTransition) ||
		errors.Is(err, ErrInsufficientStock)
}
