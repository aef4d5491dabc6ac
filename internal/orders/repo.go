package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ariefcatur/go-saga-orders/internal/apperr"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ErrAlreadyExists: another order already owns the idempotency key.
var ErrAlreadyExists = fmt.Errorf("order already exists: %w", apperr.ErrConflict)

const pgUniqueViolation = "23505"

type Repo struct{ DB *pgxpool.Pool }

const orderColumns = `id, idempotency_key, buyer_name, buyer_email, product_id, product_name, quantity,
	amount::text, currency, status, COALESCE(payment_id, ''), failure_reason, created_at, updated_at`

// Save is the checkpoint write: insert on first save, status/payment update afterwards.
// Unique index on idempotency_key turns a concurrent duplicate into ErrAlreadyExists.
func (r *Repo) Save(ctx context.Context, o *Order) error {
	s := o.Snapshot()
	_, err := r.DB.Exec(ctx, `
		INSERT INTO orders(id, idempotency_key, buyer_name, buyer_email, product_id, product_name, quantity,
		                   amount, currency, status, payment_id, failure_reason, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8::numeric,$9,$10,NULLIF($11,''),$12,$13,$14)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			payment_id = EXCLUDED.payment_id,
			failure_reason = EXCLUDED.failure_reason,
			updated_at = EXCLUDED.updated_at
	`, s.ID, s.IdempotencyKey, s.Buyer.Name, s.Buyer.Email, s.Item.ProductID, s.Item.ProductName, s.Item.Quantity,
		s.Money.Amount.String(), s.Money.Currency, string(s.Status), s.PaymentID, s.FailureReason, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrAlreadyExists
		}
		return fmt.Errorf("save order %s: %w", s.ID, err)
	}
	return nil
}

func (r *Repo) FindByID(ctx context.Context, id string) (*Order, error) {
	return r.findOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1`, id)
}

func (r *Repo) FindByIdempotencyKey(ctx context.Context, key string) (*Order, error) {
	return r.findOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE idempotency_key=$1`, key)
}

// FindStale lists non-terminal orders not touched since before, oldest first.
func (r *Repo) FindStale(ctx context.Context, before time.Time, limit int) ([]*Order, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+orderColumns+` FROM orders
		WHERE status = ANY($1) AND updated_at < $2
		ORDER BY updated_at LIMIT $3`, statusStrings(NonTerminal()), before, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *Repo) findOne(ctx context.Context, q string, arg string) (*Order, error) {
	o, err := scanOrder(r.DB.QueryRow(ctx, q, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return o, err
}

func scanOrder(row pgx.Row) (*Order, error) {
	var (
		s      Snapshot
		amount string
		status string
	)
	err := row.Scan(&s.ID, &s.IdempotencyKey, &s.Buyer.Name, &s.Buyer.Email, &s.Item.ProductID, &s.Item.ProductName,
		&s.Item.Quantity, &amount, &s.Money.Currency, &status, &s.PaymentID, &s.FailureReason, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	s.Money.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("order %s amount: %w", s.ID, err)
	}
	s.Status = Status(status)
	return Reconstitute(s)
}

func statusStrings(ss []Status) []string {
	out := make([]string, 0, len(ss))
	for _, s := range ss {
		out = append(out, string(s))
	}
	return out
}
