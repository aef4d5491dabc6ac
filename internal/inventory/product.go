package inventory

import (
	"fmt"
	"time"

	"github.com/ariefcatur/go-saga-orders/internal/apperr"
)

type Operation string

const (
	OpDeduct   Operation = "DEDUCT"
	OpRollback Operation = "ROLLBACK"
)

// Product is one stock ledger entry.
type Product struct {
	ID        string
	Name      string
	Quantity  int
	UpdatedAt time.Time
}

// Deduct removes qty, or fails without mutating when qty exceeds what is on hand.
func (p *Product) Deduct(qty int) error {
	if qty > p.Quantity {
		return &apperr.InsufficientStockError{ProductID: p.ID, Requested: qty, Available: p.Quantity}
	}
	p.Quantity -= qty
	p.UpdatedAt = time.Now().UTC()
	return nil
}

// Restock adds qty back. There is no upper bound.
func (p *Product) Restock(qty int) {
	p.Quantity += qty
	p.UpdatedAt = time.Now().UTC()
}

// LogEntry is the audit record of one applied mutation. (OrderID, ProductID,
// Operation) is unique.
type LogEntry struct {
	OrderID   string
	ProductID string
	Operation Operation
	Quantity  int
	Status    string
	CreatedAt time.Time
}

const LogStatusSuccess = "SUCCESS"

// checkReplay accepts a repeated (order, product, op) only when it asks for
// the quantity that was logged the first time.
func checkReplay(logged, entry LogEntry) error {
	if logged.Quantity == entry.Quantity {
		return nil
	}
	return fmt.Errorf("%w: %s of %s for order %s already applied with quantity %d, got %d",
		apperr.ErrConflict, entry.Operation, entry.ProductID, entry.OrderID, logged.Quantity, entry.Quantity)
}
