package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/ariefcatur/go-saga-orders/internal/apperr"
	"github.com/ariefcatur/go-saga-orders/internal/logx"
	"go.uber.org/zap"
)

// Store persists products and their mutation log.
type Store interface {
	// Apply runs mutate while holding the product's exclusive lock and commits
	// the product together with entry. When entry's (order, product, op) is
	// already logged with the same quantity, mutate is skipped and replayed
	// is true; a different quantity is an ErrConflict. On a mutate error
	// nothing is written and the unchanged product is returned.
	Apply(ctx context.Context, entry LogEntry, mutate func(*Product) error) (p Product, replayed bool, err error)
	Get(ctx context.Context, productID string) (Product, error)
	Upsert(ctx context.Context, p Product) error
	FindLog(ctx context.Context, orderID, productID string, op Operation) (LogEntry, bool, error)
}

type Result struct {
	ProductID string
	Quantity  int
	Replayed  bool
}

// Ledger is the stock ledger: guarded deduct and unconditional rollback.
type Ledger struct {
	Store Store
	Log   *zap.Logger
}

func (l *Ledger) DeductStock(ctx context.Context, orderID, productID string, qty int) (Result, error) {
	if err := validate(orderID, productID, qty); err != nil {
		return Result{}, err
	}
	p, replayed, err := l.Store.Apply(ctx, entry(orderID, productID, OpDeduct, qty), func(p *Product) error {
		return p.Deduct(qty)
	})
	log := logx.OrNop(l.Log).With(zap.String("order_id", orderID), zap.String("product_id", productID), zap.Int("qty", qty))
	if err != nil {
		if errors.Is(err, apperr.ErrInsufficientStock) {
			log.Info("stock deduction rejected", zap.Int("available", p.Quantity))
			return Result{ProductID: productID, Quantity: p.Quantity}, err
		}
		log.Error("stock deduction failed", zap.Error(err))
		return Result{}, err
	}
	log.Info("stock deducted", zap.Int("remaining", p.Quantity), zap.Bool("replayed", replayed))
	return Result{ProductID: productID, Quantity: p.Quantity, Replayed: replayed}, nil
}

// RollbackStock adds qty back unconditionally. It is not cross-checked
// against a prior deduction; only an exact replay of the same order's
// rollback is ignored.
func (l *Ledger) RollbackStock(ctx context.Context, orderID, productID string, qty int) (Result, error) {
	if err := validate(orderID, productID, qty); err != nil {
		return Result{}, err
	}
	p, replayed, err := l.Store.Apply(ctx, entry(orderID, productID, OpRollback, qty), func(p *Product) error {
		p.Restock(qty)
		return nil
	})
	log := logx.OrNop(l.Log).With(zap.String("order_id", orderID), zap.String("product_id", productID), zap.Int("qty", qty))
	if err != nil {
		log.Error("stock rollback failed", zap.Error(err))
		return Result{}, err
	}
	switch _, deducted, lerr := l.Store.FindLog(ctx, orderID, productID, OpDeduct); {
	case lerr != nil:
		log.Debug("deduction lookup failed", zap.Error(lerr))
	case !deducted:
		log.Warn("stock rolled back without a recorded deduction")
	}
	log.Info("stock rolled back", zap.Int("current", p.Quantity), zap.Bool("replayed", replayed))
	return Result{ProductID: productID, Quantity: p.Quantity, Replayed: replayed}, nil
}

func (l *Ledger) Stock(ctx context.Context, productID string) (Product, error) {
	if apperr.Blank(productID) {
		return Product{}, apperr.Validation("product id is required")
	}
	return l.Store.Get(ctx, productID)
}

func validate(orderID, productID string, qty int) error {
	if apperr.Blank(orderID) {
		return apperr.Validation("order id is required")
	}
	if apperr.Blank(productID) {
		return apperr.Validation("product id is required")
	}
	if qty <= 0 {
		return apperr.Validation("quantity must be positive, got %d", qty)
	}
	return nil
}

func entry(orderID, productID string, op Operation, qty int) LogEntry {
	return LogEntry{
		OrderID:   orderID,
		ProductID: productID,
		Operation: op,
		Quantity:  qty,
		Status:    LogStatusSuccess,
		CreatedAt: time.Now().UTC(),
	}
}
