package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ariefcatur/go-saga-orders/internal/apperr"
	"github.com/ariefcatur/go-saga-orders/internal/logx"
	"github.com/ariefcatur/go-saga-orders/internal/orders"
	"github.com/ariefcatur/go-saga-orders/internal/saga"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	MessageCompleted       = "Order placed successfully"
	MessagePaymentFailed   = "Payment failed"
	MessageInventoryFailed = "Inventory deduction failed"
	MessageCaptureFailed   = "Payment capture failed"
	MessageRolledBack      = "Order rolled back"
	MessageProcessing      = "Order is being processed"
)

// ErrInProgress is returned when another process holds the claim for a key
// and has not yet persisted its order.
var ErrInProgress = fmt.Errorf("order with this idempotency key is being processed: %w", apperr.ErrConflict)

type CreateOrderCommand struct {
	IdempotencyKey string
	Buyer          orders.Buyer
	Item           orders.Item
	Money          orders.Money
	Payment        orders.PaymentInfo
}

func NewCreateOrderCommand(key string, buyer orders.Buyer, item orders.Item, money orders.Money, card orders.PaymentInfo) (CreateOrderCommand, error) {
	if apperr.Blank(key) {
		return CreateOrderCommand{}, apperr.Validation("idempotency key is required")
	}
	return CreateOrderCommand{IdempotencyKey: key, Buyer: buyer, Item: item, Money: money, Payment: card}, nil
}

type Response struct {
	OrderID   string
	Status    orders.Status
	Message   string
	CreatedAt time.Time
	Replayed  bool
}

// ClaimStore reserves a key across processes before the order row exists.
type ClaimStore interface {
	Claim(ctx context.Context, key, owner string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key, owner string) error
}

type Executor interface {
	Execute(ctx context.Context, o *orders.Order) (saga.Result, error)
}

// Guard deduplicates order creation by idempotency key. Concurrent calls in
// this process share one execution; across processes the claim store and
// the repository's unique key decide the winner.
type Guard struct {
	Orders   saga.OrderRepository
	Saga     Executor
	Claims   ClaimStore
	ClaimTTL time.Duration
	Log      *zap.Logger

	group singleflight.Group
}

func (g *Guard) Execute(ctx context.Context, cmd CreateOrderCommand) (Response, error) {
	if apperr.Blank(cmd.IdempotencyKey) {
		return Response{}, apperr.Validation("idempotency key is required")
	}
	leader := false
	v, err, _ := g.group.Do(cmd.IdempotencyKey, func() (any, error) {
		leader = true
		return g.execute(ctx, cmd)
	})
	if err != nil {
		return Response{}, err
	}
	resp := v.(Response)
	if !leader {
		resp.Replayed = true
	}
	return resp, nil
}

func (g *Guard) execute(ctx context.Context, cmd CreateOrderCommand) (Response, error) {
	log := logx.OrNop(g.Log).With(zap.String("idempotency_key", cmd.IdempotencyKey))

	if existing, err := g.Orders.FindByIdempotencyKey(ctx, cmd.IdempotencyKey); err != nil {
		return Response{}, err
	} else if existing != nil {
		log.Info("idempotent replay", zap.String("order_id", existing.ID()), zap.String("status", string(existing.Status())))
		return replay(existing), nil
	}

	order, err := orders.New(cmd.IdempotencyKey, cmd.Buyer, cmd.Item, cmd.Money, cmd.Payment)
	if err != nil {
		return Response{}, err
	}

	if g.Claims != nil {
		ttl := g.ClaimTTL
		if ttl <= 0 {
			ttl = 24 * time.Hour
		}
		ok, err := g.Claims.Claim(ctx, cmd.IdempotencyKey, order.ID(), ttl)
		switch {
		case err != nil:
			// store unique key masih jadi penjaga terakhir
			log.Warn("idempotency claim unavailable", zap.Error(err))
		case !ok:
			return g.lost(ctx, cmd.IdempotencyKey)
		}
	}

	if err := g.Orders.Save(ctx, order); err != nil {
		if errors.Is(err, orders.ErrAlreadyExists) {
			return g.lost(ctx, cmd.IdempotencyKey)
		}
		g.release(ctx, cmd.IdempotencyKey, order.ID())
		return Response{}, fmt.Errorf("save new order: %w", err)
	}
	log.Info("order created", zap.String("order_id", order.ID()))

	res, err := g.Saga.Execute(ctx, order)
	if err != nil {
		return Response{}, err
	}
	return Response{
		OrderID:   order.ID(),
		Status:    order.Status(),
		Message:   messageFor(res.Status),
		CreatedAt: order.CreatedAt(),
	}, nil
}

// lost answers a caller that raced another writer for the same key.
func (g *Guard) lost(ctx context.Context, key string) (Response, error) {
	winner, err := g.Orders.FindByIdempotencyKey(ctx, key)
	if err != nil {
		return Response{}, err
	}
	if winner == nil {
		return Response{}, ErrInProgress
	}
	return replay(winner), nil
}

func (g *Guard) release(ctx context.Context, key, owner string) {
	if g.Claims == nil {
		return
	}
	if err := g.Claims.Release(ctx, key, owner); err != nil {
		logx.OrNop(g.Log).Warn("release idempotency claim", zap.String("idempotency_key", key), zap.Error(err))
	}
}

func replay(o *orders.Order) Response {
	return Response{
		OrderID:   o.ID(),
		Status:    o.Status(),
		Message:   StatusMessage(o.Status()),
		CreatedAt: o.CreatedAt(),
		Replayed:  true,
	}
}

func messageFor(s saga.Status) string {
	switch s {
	case saga.StatusCompleted:
		return MessageCompleted
	case saga.StatusPaymentFailed:
		return MessagePaymentFailed
	case saga.StatusInventoryFailed:
		return MessageInventoryFailed
	case saga.StatusCaptureFailed:
		return MessageCaptureFailed
	}
	return MessageProcessing
}

// StatusMessage describes a stored order to a client.
func StatusMessage(s orders.Status) string {
	switch s {
	case orders.StatusCompleted:
		return MessageCompleted
	case orders.StatusFailed:
		return MessagePaymentFailed
	case orders.StatusRollbackCompleted:
		return MessageRolledBack
	}
	return MessageProcessing
}
