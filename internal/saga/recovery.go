package saga

import (
	"context"
	"time"

	"github.com/ariefcatur/go-saga-orders/internal/apperr"
	"github.com/ariefcatur/go-saga-orders/internal/orders"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	reasonAbandonedCreated    = "Saga abandoned before payment authorization"
	reasonAbandonedAuthorized = "Saga abandoned after payment authorization"
	reasonAbandonedDeducted   = "Saga abandoned after inventory deduction"
)

// Recover settles an order whose saga stopped mid-flight, running the
// compensations owed for the last persisted checkpoint. Terminal orders are
// returned untouched.
//
// A CREATED order is failed without a void: no payment id was recorded, so
// any authorization the gateway may still hold lapses on its own.
func (o *Orchestrator) Recover(ctx context.Context, order *orders.Order) (orders.Status, error) {
	ctx, span := o.tracer.Start(ctx, "saga.recover")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", order.ID()), attribute.String("order.status", string(order.Status())))

	var err error
	switch order.Status() {
	case orders.StatusCreated:
		err = order.Fail(reasonAbandonedCreated)
	case orders.StatusPaymentAuthorized:
		o.voidPayment(ctx, order)
		err = order.MarkRolledBack(reasonAbandonedAuthorized)
	case orders.StatusInventoryDeducted:
		o.rollbackStock(ctx, order)
		o.voidPayment(ctx, order)
		err = order.MarkRolledBack(reasonAbandonedDeducted)
	default:
		return order.Status(), nil
	}
	if err != nil {
		return order.Status(), o.abort(span, err)
	}
	if err := o.checkpoint(ctx, order); err != nil {
		return order.Status(), o.abort(span, err)
	}
	o.log.Info("abandoned saga settled", zap.String("order_id", order.ID()), zap.String("status", string(order.Status())))
	return order.Status(), nil
}

type SweepReport struct {
	Scanned int
	Settled int
	Failed  int
}

// Sweeper finds orders stuck in a non-terminal state and settles them.
type Sweeper struct {
	Finder    StaleFinder
	Saga      *Orchestrator
	OlderThan time.Duration
	Batch     int
	Log       *zap.Logger
}

// Sweep handles one batch. Per-order failures are counted and logged; only a
// failing lookup aborts the sweep.
func (s *Sweeper) Sweep(ctx context.Context) (SweepReport, error) {
	if s.OlderThan <= 0 {
		return SweepReport{}, apperr.Validation("sweep age must be positive, got %s", s.OlderThan)
	}
	batch := s.Batch
	if batch <= 0 {
		batch = 100
	}
	log := s.Log
	if log == nil {
		log = zap.NewNop()
	}

	stale, err := s.Finder.FindStale(ctx, time.Now().UTC().Add(-s.OlderThan), batch)
	if err != nil {
		return SweepReport{}, err
	}
	rep := SweepReport{Scanned: len(stale)}
	for _, ord := range stale {
		if ctx.Err() != nil {
			return rep, ctx.Err()
		}
		if _, err := s.Saga.Recover(ctx, ord); err != nil {
			rep.Failed++
			log.Error("settle stale order", zap.String("order_id", ord.ID()), zap.Error(err))
			continue
		}
		rep.Settled++
	}
	log.Info("recovery sweep done", zap.Int("scanned", rep.Scanned), zap.Int("settled", rep.Settled), zap.Int("failed", rep.Failed))
	return rep, nil
}

// Run sweeps every interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) error {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		if _, err := s.Sweep(ctx); err != nil && ctx.Err() == nil && s.Log != nil {
			s.Log.Warn("recovery sweep failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
	}
}
