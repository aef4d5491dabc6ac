package inventory

import (
	"context"
	"errors"

	"github.com/ariefcatur/go-saga-orders/internal/apperr"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgStore struct{ DB *pgxpool.Pool }

// Apply: lock baris product (FOR UPDATE) -> cek log -> mutate -> update + insert log, satu tx.
// Kalau mutate gagal, tidak ada perubahan yg di-commit (rollback via defer).
func (s *PgStore) Apply(ctx context.Context, entry LogEntry, mutate func(*Product) error) (Product, bool, error) {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Product{}, false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var p Product
	err = tx.QueryRow(ctx, `SELECT id, name, stock, updated_at FROM products WHERE id=$1 FOR UPDATE`, entry.ProductID).
		Scan(&p.ID, &p.Name, &p.Quantity, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, false, apperr.NotFound("product", entry.ProductID)
	}
	if err != nil {
		return Product{}, false, err
	}

	logged := entry
	err = tx.QueryRow(ctx, `
		SELECT quantity FROM inventory_logs WHERE order_id=$1 AND product_id=$2 AND operation_type=$3`,
		entry.OrderID, entry.ProductID, string(entry.Operation)).Scan(&logged.Quantity)
	switch {
	case err == nil:
		if err := checkReplay(logged, entry); err != nil {
			return p, false, err
		}
		return p, true, nil
	case !errors.Is(err, pgx.ErrNoRows):
		return Product{}, false, err
	}

	current := p
	if err := mutate(&p); err != nil {
		return current, false, err
	}

	ct, err := tx.Exec(ctx, `UPDATE products SET stock=$2, updated_at=$3 WHERE id=$1`, p.ID, p.Quantity, p.UpdatedAt)
	if err != nil {
		return Product{}, false, err
	}
	if ct.RowsAffected() != 1 {
		return Product{}, false, apperr.NotFound("product", p.ID)
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO inventory_logs(order_id, product_id, operation_type, quantity, status, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (order_id, product_id, operation_type) DO NOTHING
	`, entry.OrderID, entry.ProductID, string(entry.Operation), entry.Quantity, entry.Status, entry.CreatedAt); err != nil {
		return Product{}, false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Product{}, false, err
	}
	return p, false, nil
}

func (s *PgStore) Get(ctx context.Context, productID string) (Product, error) {
	var p Product
	err := s.DB.QueryRow(ctx, `SELECT id, name, stock, updated_at FROM products WHERE id=$1`, productID).
		Scan(&p.ID, &p.Name, &p.Quantity, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, apperr.NotFound("product", productID)
	}
	return p, err
}

func (s *PgStore) Upsert(ctx context.Context, p Product) error {
	if p.Quantity < 0 {
		return apperr.Validation("stock quantity cannot be negative")
	}
	_, err := s.DB.Exec(ctx, `
		INSERT INTO products(id, name, stock, updated_at) VALUES ($1,$2,$3,now())
		ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name, stock=EXCLUDED.stock, updated_at=now()
	`, p.ID, p.Name, p.Quantity)
	return err
}

func (s *PgStore) FindLog(ctx context.Context, orderID, productID string, op Operation) (LogEntry, bool, error) {
	e := LogEntry{OrderID: orderID, ProductID: productID, Operation: op}
	err := s.DB.QueryRow(ctx, `
		SELECT quantity, status, created_at FROM inventory_logs
		WHERE order_id=$1 AND product_id=$2 AND operation_type=$3`, orderID, productID, string(op)).
		Scan(&e.Quantity, &e.Status, &e.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return LogEntry{}, false, nil
	}
	if err != nil {
		return LogEntry{}, false, err
	}
	return e, true, nil
}
