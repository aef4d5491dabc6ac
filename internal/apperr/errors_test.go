package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransitionErrorMatchesSentinel(t *testing.T) {
	err := fmt.Errorf("saga: %w", &TransitionError{Aggregate: "order", From: "CREATED", To: "COMPLETED"})

	assert.ErrorIs(t, err, ErrInvalidStateTransition)
	assert.NotErrorIs(t, err, ErrValidation)

	var te *TransitionError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "CREATED", te.From)
	assert.Equal(t, "invalid order state transition from CREATED to COMPLETED", te.Error())
}

func TestInsufficientStockErrorMatchesSentinel(t *testing.T) {
	err := &InsufficientStockError{ProductID: "P-1", Requested: 15, Available: 10}

	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.Contains(t, err.Error(), "requested=15, available=10")
}

func TestValidationAndNotFound(t *testing.T) {
	assert.ErrorIs(t, Validation("quantity must be positive, got %d", 0), ErrValidation)
	assert.ErrorIs(t, NotFound("order", "ORD-1"), ErrNotFound)
	assert.True(t, Blank("  \t"))
	assert.False(t, Blank(" k "))
}

func TestBusiness(t *testing.T) {
	assert.True(t, Business(NotFound("product", "P-1")))
	assert.True(t, Business(fmt.Errorf("deduct: %w", &InsufficientStockError{ProductID: "P-1"})))
	assert.False(t, Business(errors.New("connection refused")))
	assert.False(t, Business(nil))
}
