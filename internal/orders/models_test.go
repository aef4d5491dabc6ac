package orders

import (
	"context"
	"testing"
	"time"

	"github.com/ariefcatur/go-saga-orders/internal/apperr"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueObjectValidation(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"blank buyer", func() error { _, err := NewBuyer(" ", "a@b.c"); return err }()},
		{"email without at", func() error { _, err := NewBuyer("Ana", "ana.example.com"); return err }()},
		{"zero quantity", func() error { _, err := NewItem("P-1", "Mouse", 0); return err }()},
		{"negative quantity", func() error { _, err := NewItem("P-1", "Mouse", -3); return err }()},
		{"blank product", func() error { _, err := NewItem("", "Mouse", 1); return err }()},
		{"negative amount", func() error { _, err := NewMoney(decimal.NewFromInt(-1), "USD"); return err }()},
		{"lowercase currency", func() error { _, err := NewMoney(decimal.NewFromInt(1), "usd"); return err }()},
		{"bad expiry", func() error { _, err := NewPaymentInfo("CARD", "4111111111111111", "13/25", "123"); return err }()},
		{"bad cvv", func() error { _, err := NewPaymentInfo("CARD", "4111111111111111", "01/25", "12"); return err }()},
		{"short card", func() error { _, err := NewPaymentInfo("CARD", "411", "01/25", "123"); return err }()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.err, apperr.ErrValidation)
		})
	}
}

func TestMoney(t *testing.T) {
	m, err := NewMoney(decimal.RequireFromString("10.5"), "EUR")
	require.NoError(t, err)
	assert.Equal(t, "10.50 EUR", m.String())
	assert.Equal(t, "EUR", m.Currency)
}

func TestStatusHelpers(t *testing.T) {
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusFailed.Terminal())
	assert.True(t, StatusRollbackCompleted.Terminal())
	assert.False(t, StatusCreated.Terminal())
	assert.False(t, Status("BOGUS").Terminal())
	assert.True(t, CanTransition(StatusInventoryDeducted, StatusRollbackCompleted))
	assert.False(t, CanTransition(StatusCreated, StatusRollbackCompleted))
}

func TestMemoryRepo(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepo()
	o := newTestOrder(t)

	require.NoError(t, repo.Save(ctx, o))
	got, err := repo.FindByIdempotencyKey(ctx, "key-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, o.ID(), got.ID())
	_, hasCard := got.PaymentInfo()
	assert.False(t, hasCard, "card data is never persisted")

	missing, err := repo.FindByID(ctx, "ORD-NOPE0000")
	require.NoError(t, err)
	assert.Nil(t, missing)

	dup := newTestOrder(t)
	assert.ErrorIs(t, repo.Save(ctx, dup), ErrAlreadyExists)
	assert.ErrorIs(t, repo.Save(ctx, dup), apperr.ErrConflict)
}

func TestMemoryRepoFindStale(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepo()
	old := time.Now().Add(-time.Hour)

	for i, st := range []Status{StatusCreated, StatusPaymentAuthorized, StatusCompleted} {
		s := newTestOrder(t).Snapshot()
		s.IdempotencyKey = string(st)
		s.Status = st
		if st.HasPayment() {
			s.PaymentID = "PAY-0000000" + string(rune('0'+i))
		}
		s.UpdatedAt = old.Add(time.Duration(i) * time.Minute)
		repo.Put(s)
	}
	fresh := newTestOrder(t)
	fresh.idempotencyKey = "fresh"
	require.NoError(t, repo.Save(ctx, fresh))

	stale, err := repo.FindStale(ctx, time.Now().Add(-10*time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, stale, 2)
	assert.Equal(t, StatusCreated, stale[0].Status())
	assert.Equal(t, StatusPaymentAuthorized, stale[1].Status())
}
