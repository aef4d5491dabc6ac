package payments

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	DeclinedCardPrefix    = "4000"
	CaptureFailCardPrefix = "5000"
)

// MockAcquirer simulates a settlement network. Cards starting with 4000 are
// declined; cards starting with 5000 authorize but their capture fails.
type MockAcquirer struct {
	Latency time.Duration
}

func (m MockAcquirer) Authorize(ctx context.Context, _ decimal.Decimal, _, cardNumber, _, _ string) (AcquirerAuth, error) {
	if err := m.wait(ctx); err != nil {
		return AcquirerAuth{}, err
	}
	if strings.HasPrefix(cardNumber, DeclinedCardPrefix) {
		return AcquirerAuth{DeclineReason: "Insufficient funds"}, nil
	}
	code := "AUTH-" + strings.ToUpper(uuid.NewString()[:8])
	if strings.HasPrefix(cardNumber, CaptureFailCardPrefix) {
		code += "-FAIL"
	}
	return AcquirerAuth{Approved: true, AuthCode: code}, nil
}

func (m MockAcquirer) Capture(ctx context.Context, authCode string, _ decimal.Decimal) (AcquirerResult, error) {
	if err := m.wait(ctx); err != nil {
		return AcquirerResult{}, err
	}
	if strings.Contains(authCode, "FAIL") {
		return AcquirerResult{Reason: "Capture failed - acquirer error"}, nil
	}
	return AcquirerResult{Succeeded: true}, nil
}

func (m MockAcquirer) Void(ctx context.Context, _ string) (AcquirerResult, error) {
	if err := m.wait(ctx); err != nil {
		return AcquirerResult{}, err
	}
	return AcquirerResult{Succeeded: true}, nil
}

func (m MockAcquirer) wait(ctx context.Context) error {
	if m.Latency <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(m.Latency)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
