package payments

import (
	"context"
	"testing"

	"github.com/ariefcatur/go-saga-orders/internal/apperr"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPayment(t *testing.T) *Payment {
	t.Helper()
	money, err := NewMoney(decimal.NewFromInt(500), "USD")
	require.NoError(t, err)
	card, err := CardInfoFromNumber("4111111111111111", "10/28")
	require.NoError(t, err)
	p, err := New("ORD-ABCDEFGH", money, card)
	require.NoError(t, err)
	return p
}

func TestPaymentLifecycle(t *testing.T) {
	p := newPayment(t)
	assert.Equal(t, StatusPending, p.Status())
	assert.Equal(t, "**** **** **** 1111", p.Card().Masked())

	require.NoError(t, p.Authorize("AUTH-1"))
	assert.Equal(t, StatusAuthorized, p.Status())
	assert.Equal(t, "AUTH-1", p.AuthCode())

	require.NoError(t, p.Capture())
	assert.Equal(t, StatusCaptured, p.Status())

	assert.ErrorIs(t, p.Void(), apperr.ErrInvalidStateTransition)
}

func TestFailCaptureKeepsAuthorization(t *testing.T) {
	p := newPayment(t)
	require.NoError(t, p.Authorize("AUTH-2"))

	require.NoError(t, p.FailCapture("acquirer error"))
	assert.Equal(t, StatusAuthorized, p.Status())
	assert.Equal(t, "AUTH-2", p.AuthCode())
	assert.Equal(t, "acquirer error", p.FailureReason())

	require.NoError(t, p.Void())
	assert.Equal(t, StatusVoided, p.Status())
	assert.Empty(t, p.AuthCode(), "void clears the authorization code")
}

func TestPaymentInvalidTransitions(t *testing.T) {
	tests := []struct {
		name string
		prep func(p *Payment)
		op   func(p *Payment) error
	}{
		{"capture pending", func(*Payment) {}, (*Payment).Capture},
		{"void pending", func(*Payment) {}, (*Payment).Void},
		{"fail capture pending", func(*Payment) {}, func(p *Payment) error { return p.FailCapture("x") }},
		{"authorize twice", func(p *Payment) { _ = p.Authorize("A") }, func(p *Payment) error { return p.Authorize("B") }},
		{"fail auth after authorize", func(p *Payment) { _ = p.Authorize("A") }, func(p *Payment) error { return p.FailAuthorization("x") }},
		{"capture failed", func(p *Payment) { _ = p.FailAuthorization("x") }, (*Payment).Capture},
		{"capture voided", func(p *Payment) { _ = p.Authorize("A"); _ = p.Void() }, (*Payment).Capture},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newPayment(t)
			tt.prep(p)
			before := p.Status()
			assert.ErrorIs(t, tt.op(p), apperr.ErrInvalidStateTransition)
			assert.Equal(t, before, p.Status())
		})
	}
}

func TestCardInfoValidation(t *testing.T) {
	_, err := CardInfoFromNumber("12", "01/30")
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = CardInfoFromNumber("4111111111111111", "1/30")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func newService() (*Service, *MemoryRepo) {
	repo := NewMemoryRepo()
	return &Service{Repo: repo, Acquirer: MockAcquirer{}}, repo
}

func authorizeCmd(card string) AuthorizeCommand {
	return AuthorizeCommand{
		OrderID:    "ORD-ABCDEFGH",
		Amount:     decimal.RequireFromString("99.90"),
		Currency:   "USD",
		CardNumber: card,
		ExpiryDate: "12/30",
		CVV:        "123",
	}
}

func TestServiceAuthorizeCaptureVoid(t *testing.T) {
	ctx := context.Background()
	svc, repo := newService()

	res, err := svc.Authorize(ctx, authorizeCmd("4111111111111111"))
	require.NoError(t, err)
	require.True(t, res.Succeeded)
	assert.NotEmpty(t, res.AuthCode)

	stored, err := repo.FindByID(ctx, res.PaymentID)
	require.NoError(t, err)
	assert.Equal(t, StatusAuthorized, stored.Status())

	captured, err := svc.Capture(ctx, res.PaymentID)
	require.NoError(t, err)
	assert.True(t, captured.Succeeded)

	_, err = svc.Void(ctx, res.PaymentID)
	assert.ErrorIs(t, err, apperr.ErrInvalidStateTransition)
}

func TestServiceDecline(t *testing.T) {
	ctx := context.Background()
	svc, repo := newService()

	res, err := svc.Authorize(ctx, authorizeCmd("4000000000000002"))
	require.NoError(t, err)
	assert.False(t, res.Succeeded)
	assert.Equal(t, "Insufficient funds", res.Message)

	stored, err := repo.FindByID(ctx, res.PaymentID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, stored.Status())
}

func TestServiceCaptureFailureThenVoid(t *testing.T) {
	ctx := context.Background()
	svc, repo := newService()

	res, err := svc.Authorize(ctx, authorizeCmd("5000000000000009"))
	require.NoError(t, err)
	require.True(t, res.Succeeded)

	captured, err := svc.Capture(ctx, res.PaymentID)
	require.NoError(t, err)
	assert.False(t, captured.Succeeded)

	stored, _ := repo.FindByID(ctx, res.PaymentID)
	assert.Equal(t, StatusAuthorized, stored.Status())

	v, err := svc.Void(ctx, res.PaymentID)
	require.NoError(t, err)
	assert.True(t, v.Succeeded)
	stored, _ = repo.FindByID(ctx, res.PaymentID)
	assert.Equal(t, StatusVoided, stored.Status())
	assert.Empty(t, stored.AuthCode())
}

func TestServiceUnknownPayment(t *testing.T) {
	svc, _ := newService()
	_, err := svc.Capture(context.Background(), "PAY-MISSING0")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = svc.Void(context.Background(), " ")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}
