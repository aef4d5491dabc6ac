package saga

import (
	"context"
	"fmt"

	"github.com/ariefcatur/go-saga-orders/internal/apperr"
	"github.com/ariefcatur/go-saga-orders/internal/orders"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type Status string

const (
	StatusCompleted       Status = "COMPLETED"
	StatusPaymentFailed   Status = "PAYMENT_FAILED"
	StatusInventoryFailed Status = "INVENTORY_FAILED"
	StatusCaptureFailed   Status = "CAPTURE_FAILED"
)

// Result is the terminal outcome of one saga execution. It is fixed by the
// first failing step and never changed by how compensation went.
type Result struct {
	Status  Status
	Message string
}

func (r Result) Succeeded() bool { return r.Status == StatusCompleted }

// Orchestrator drives an order through authorize -> deduct -> capture,
// compensating in reverse when a later step fails. It holds no per-order
// state and is safe for concurrent use across orders.
type Orchestrator struct {
	repo     OrderRepository
	payments PaymentGateway
	stock    StockService
	events   EventPublisher
	log      *zap.Logger
	tracer   trace.Tracer
}

type Option func(*Orchestrator)

func WithPublisher(p EventPublisher) Option { return func(o *Orchestrator) { o.events = p } }

func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.log = l
		}
	}
}

func WithTracer(t trace.Tracer) Option { return func(o *Orchestrator) { o.tracer = t } }

func New(repo OrderRepository, payments PaymentGateway, stock StockService, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		repo:     repo,
		payments: payments,
		stock:    stock,
		log:      zap.NewNop(),
		tracer:   otel.Tracer("github.com/ariefcatur/go-saga-orders/internal/saga"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Execute runs the saga for a freshly created order. Business failures come
// back as a Result; the error is reserved for failed checkpoints and for
// aggregate transitions invoked out of sequence.
func (o *Orchestrator) Execute(ctx context.Context, order *orders.Order) (Result, error) {
	ctx, span := o.tracer.Start(ctx, "saga.create_order",
		trace.WithAttributes(attribute.String("order.id", order.ID())))
	defer span.End()
	log := o.log.With(zap.String("order_id", order.ID()))

	if order.Status() != orders.StatusCreated {
		return Result{}, &apperr.TransitionError{Aggregate: "saga", From: string(order.Status()), To: string(orders.StatusPaymentAuthorized)}
	}
	card, ok := order.PaymentInfo()
	if !ok {
		return Result{}, apperr.Validation("order %s carries no payment credentials", order.ID())
	}
	log.Info("saga started", zap.String("card_last4", card.LastFour()))

	// 1) authorize
	auth := o.authorize(ctx, order, card)
	if !auth.Approved {
		log.Warn("payment authorization failed", zap.String("reason", auth.DeclineReason))
		if err := order.Fail(auth.DeclineReason); err != nil {
			return Result{}, o.abort(span, err)
		}
		if err := o.checkpoint(ctx, order); err != nil {
			return Result{}, o.abort(span, err)
		}
		return o.finish(span, Result{Status: StatusPaymentFailed, Message: auth.DeclineReason}), nil
	}
	if err := order.MarkPaymentAuthorized(auth.PaymentID); err != nil {
		return Result{}, o.abort(span, err)
	}
	if err := o.checkpoint(ctx, order); err != nil {
		return Result{}, o.abort(span, err)
	}
	log.Info("payment authorized", zap.String("payment_id", auth.PaymentID))

	// 2) deduct
	deducted, reason := o.deduct(ctx, order)
	if !deducted {
		log.Warn("inventory deduction failed, voiding payment", zap.String("reason", reason))
		o.voidPayment(ctx, order)
		if err := order.MarkRolledBack("Inventory deduction failed: " + reason); err != nil {
			return Result{}, o.abort(span, err)
		}
		if err := o.checkpoint(ctx, order); err != nil {
			return Result{}, o.abort(span, err)
		}
		return o.finish(span, Result{Status: StatusInventoryFailed, Message: reason}), nil
	}
	if err := order.MarkInventoryDeducted(); err != nil {
		return Result{}, o.abort(span, err)
	}
	if err := o.checkpoint(ctx, order); err != nil {
		return Result{}, o.abort(span, err)
	}
	log.Info("inventory deducted")

	// 3) capture
	captured, reason := o.capture(ctx, order)
	if !captured {
		log.Warn("payment capture failed, rolling back stock and voiding payment", zap.String("reason", reason))
		o.rollbackStock(ctx, order)
		o.voidPayment(ctx, order)
		if err := order.MarkRolledBack("Payment capture failed: " + reason); err != nil {
			return Result{}, o.abort(span, err)
		}
		if err := o.checkpoint(ctx, order); err != nil {
			return Result{}, o.abort(span, err)
		}
		return o.finish(span, Result{Status: StatusCaptureFailed, Message: reason}), nil
	}

	if err := order.Complete(); err != nil {
		return Result{}, o.abort(span, err)
	}
	if err := o.checkpoint(ctx, order); err != nil {
		return Result{}, o.abort(span, err)
	}
	log.Info("order completed")
	return o.finish(span, Result{Status: StatusCompleted, Message: "Order completed successfully"}), nil
}

func (o *Orchestrator) authorize(ctx context.Context, order *orders.Order, card orders.PaymentInfo) Authorization {
	ctx, span := o.tracer.Start(ctx, "saga.authorize_payment")
	defer span.End()

	m := order.Money()
	auth, err := o.payments.Authorize(ctx, AuthorizeRequest{
		OrderID:  order.ID(),
		Amount:   m.Amount,
		Currency: m.Currency,
		Card:     card,
	})
	switch {
	case err != nil:
		auth = Authorization{DeclineReason: "payment service unavailable: " + err.Error()}
	case auth.Approved && apperr.Blank(auth.PaymentID):
		auth = Authorization{DeclineReason: "authorization returned no payment id"}
	case !auth.Approved && auth.DeclineReason == "":
		auth.DeclineReason = "payment declined"
	}
	if !auth.Approved {
		span.SetStatus(codes.Error, auth.DeclineReason)
	}
	return auth
}

func (o *Orchestrator) deduct(ctx context.Context, order *orders.Order) (bool, string) {
	ctx, span := o.tracer.Start(ctx, "saga.deduct_inventory")
	defer span.End()

	it := order.Item()
	span.SetAttributes(attribute.String("product.id", it.ProductID), attribute.Int("quantity", it.Quantity))
	reply, err := o.stock.Deduct(ctx, order.ID(), it.ProductID, it.Quantity)
	if err != nil {
		reply = StockReply{Message: "inventory service unavailable: " + err.Error()}
	}
	if !reply.Success {
		span.SetStatus(codes.Error, reply.Message)
		return false, reply.Message
	}
	return true, ""
}

func (o *Orchestrator) capture(ctx context.Context, order *orders.Order) (bool, string) {
	ctx, span := o.tracer.Start(ctx, "saga.capture_payment")
	defer span.End()

	out, err := o.payments.Capture(ctx, order.PaymentID())
	if err != nil {
		out = Outcome{Reason: "payment service unavailable: " + err.Error()}
	}
	if !out.Succeeded {
		span.SetStatus(codes.Error, out.Reason)
		return false, out.Reason
	}
	return true, ""
}

// voidPayment is best effort: failures are logged, never returned.
func (o *Orchestrator) voidPayment(ctx context.Context, order *orders.Order) {
	ctx, span := o.tracer.Start(ctx, "saga.compensate.void_payment")
	defer span.End()
	log := o.log.With(zap.String("order_id", order.ID()), zap.String("payment_id", order.PaymentID()))
	defer func() {
		if r := recover(); r != nil {
			span.SetStatus(codes.Error, "panic")
			log.Error("payment void compensation panicked", zap.Any("panic", r))
		}
	}()

	out, err := o.payments.Void(ctx, order.PaymentID())
	switch {
	case err != nil:
		span.RecordError(err)
		log.Error("payment void compensation error", zap.Error(err))
	case !out.Succeeded:
		span.SetStatus(codes.Error, out.Reason)
		log.Error("payment void compensation failed", zap.String("reason", out.Reason))
	default:
		log.Info("payment voided")
	}
}

// rollbackStock is best effort: failures are logged, never returned.
func (o *Orchestrator) rollbackStock(ctx context.Context, order *orders.Order) {
	ctx, span := o.tracer.Start(ctx, "saga.compensate.rollback_stock")
	defer span.End()
	it := order.Item()
	log := o.log.With(zap.String("order_id", order.ID()), zap.String("product_id", it.ProductID), zap.Int("qty", it.Quantity))
	defer func() {
		if r := recover(); r != nil {
			span.SetStatus(codes.Error, "panic")
			log.Error("inventory rollback compensation panicked", zap.Any("panic", r))
		}
	}()

	reply, err := o.stock.Rollback(ctx, order.ID(), it.ProductID, it.Quantity)
	switch {
	case err != nil:
		span.RecordError(err)
		log.Error("inventory rollback compensation error", zap.Error(err))
	case !reply.Success:
		span.SetStatus(codes.Error, reply.Message)
		log.Error("inventory rollback compensation failed", zap.String("reason", reply.Message))
	default:
		log.Info("inventory rolled back", zap.Int("current_stock", reply.Stock))
	}
}

// checkpoint persists the order, then hands its pending events to the
// publisher. Publishing never fails the saga.
func (o *Orchestrator) checkpoint(ctx context.Context, order *orders.Order) error {
	if err := o.repo.Save(ctx, order); err != nil {
		return fmt.Errorf("checkpoint order %s at %s: %w", order.ID(), order.Status(), err)
	}
	events := order.PullEvents()
	if o.events == nil || len(events) == 0 {
		return nil
	}
	if err := o.events.Publish(ctx, events...); err != nil {
		o.log.Warn("publish order events failed", zap.String("order_id", order.ID()), zap.Error(err))
	}
	return nil
}

func (o *Orchestrator) finish(span trace.Span, r Result) Result {
	span.SetAttributes(attribute.String("saga.result", string(r.Status)))
	if !r.Succeeded() {
		span.SetStatus(codes.Error, r.Message)
	}
	return r
}

func (o *Orchestrator) abort(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	o.log.Error("saga aborted", zap.Error(err))
	return err
}
