package saga

import (
	"context"
	"time"

	"github.com/ariefcatur/go-saga-orders/internal/orders"
	"github.com/shopspring/decimal"
)

type AuthorizeRequest struct {
	OrderID  string
	Amount   decimal.Decimal
	Currency string
	Card     orders.PaymentInfo
}

type Authorization struct {
	Approved      bool
	PaymentID     string
	AuthCode      string
	DeclineReason string
}

// Outcome is the reply shape of capture and void.
type Outcome struct {
	Succeeded bool
	Reason    string
}

// StockReply is the reply shape of deduct and rollback. Stock is the
// remaining quantity after a deduct, the current quantity after a rollback.
type StockReply struct {
	Success bool
	Stock   int
	Message string
}

// PaymentGateway is the payment service as seen by the orchestrator. A
// returned error (unreachable, timeout) is handled exactly like a decline.
type PaymentGateway interface {
	Authorize(ctx context.Context, req AuthorizeRequest) (Authorization, error)
	Capture(ctx context.Context, paymentID string) (Outcome, error)
	Void(ctx context.Context, paymentID string) (Outcome, error)
}

type StockService interface {
	Deduct(ctx context.Context, orderID, productID string, qty int) (StockReply, error)
	Rollback(ctx context.Context, orderID, productID string, qty int) (StockReply, error)
}

// OrderRepository persists order checkpoints. Finders return (nil, nil)
// when nothing matches.
type OrderRepository interface {
	Save(ctx context.Context, o *orders.Order) error
	FindByID(ctx context.Context, id string) (*orders.Order, error)
	FindByIdempotencyKey(ctx context.Context, key string) (*orders.Order, error)
}

// StaleFinder is implemented by repositories that support the recovery sweep.
type StaleFinder interface {
	FindStale(ctx context.Context, before time.Time, limit int) ([]*orders.Order, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, events ...orders.Event) error
}
