package payments

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type PgRepo struct{ DB *pgxpool.Pool }

func (r *PgRepo) Save(ctx context.Context, p *Payment) error {
	s := p.Snapshot()
	_, err := r.DB.Exec(ctx, `
		INSERT INTO payments(id, order_id, amount, currency, card_last_four, card_expiry, status,
		                     authorization_code, failure_reason, created_at, updated_at)
		VALUES ($1,$2,$3::numeric,$4,$5,$6,$7,NULLIF($8,''),$9,$10,$11)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			authorization_code = EXCLUDED.authorization_code,
			failure_reason = EXCLUDED.failure_reason,
			updated_at = EXCLUDED.updated_at
	`, s.ID, s.OrderID, s.Money.Amount.String(), s.Money.Currency, s.Card.LastFour, s.Card.ExpiryDate,
		string(s.Status), s.AuthCode, s.FailureReason, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save payment %s: %w", s.ID, err)
	}
	return nil
}

func (r *PgRepo) FindByID(ctx context.Context, id string) (*Payment, error) {
	var (
		s      Snapshot
		amount string
		status string
	)
	err := r.DB.QueryRow(ctx, `
		SELECT id, order_id, amount::text, currency, card_last_four, card_expiry, status,
		       COALESCE(authorization_code, ''), failure_reason, created_at, updated_at
		FROM payments WHERE id=$1`, id).
		Scan(&s.ID, &s.OrderID, &amount, &s.Money.Currency, &s.Card.LastFour, &s.Card.ExpiryDate, &status,
			&s.AuthCode, &s.FailureReason, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if s.Money.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("payment %s amount: %w", id, err)
	}
	s.Status = Status(status)
	return Reconstitute(s), nil
}

type MemoryRepo struct {
	mu   sync.RWMutex
	byID map[string]Snapshot
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{byID: map[string]Snapshot{}} }

func (r *MemoryRepo) Save(_ context.Context, p *Payment) error {
	r.mu.Lock()
	r.byID[p.ID()] = p.Snapshot()
	r.mu.Unlock()
	return nil
}

func (r *MemoryRepo) FindByID(_ context.Context, id string) (*Payment, error) {
	r.mu.RLock()
	s, ok := r.byID[id]
	r.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return Reconstitute(s), nil
}
