package orders

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-process Repo used by tests and single-binary runs.
// Reads return fresh aggregates rebuilt from snapshots, like a database would.
type MemoryRepo struct {
	mu    sync.RWMutex
	byID  map[string]Snapshot
	byKey map[string]string
	saves int
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byID: map[string]Snapshot{}, byKey: map[string]string{}}
}

func (r *MemoryRepo) Save(_ context.Context, o *Order) error {
	s := o.Snapshot()
	r.mu.Lock()
	defer r.mu.Unlock()
	if owner, ok := r.byKey[s.IdempotencyKey]; ok && owner != s.ID {
		return ErrAlreadyExists
	}
	r.byID[s.ID] = s
	r.byKey[s.IdempotencyKey] = s.ID
	r.saves++
	return nil
}

func (r *MemoryRepo) FindByID(_ context.Context, id string) (*Order, error) {
	r.mu.RLock()
	s, ok := r.byID[id]
	r.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return Reconstitute(s)
}

func (r *MemoryRepo) FindByIdempotencyKey(ctx context.Context, key string) (*Order, error) {
	r.mu.RLock()
	id, ok := r.byKey[key]
	r.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return r.FindByID(ctx, id)
}

func (r *MemoryRepo) FindStale(_ context.Context, before time.Time, limit int) ([]*Order, error) {
	r.mu.RLock()
	var snaps []Snapshot
	for _, s := range r.byID {
		if !s.Status.Terminal() && s.UpdatedAt.Before(before) {
			snaps = append(snaps, s)
		}
	}
	r.mu.RUnlock()

	sort.Slice(snaps, func(i, j int) bool { return snaps[i].UpdatedAt.Before(snaps[j].UpdatedAt) })
	if limit > 0 && len(snaps) > limit {
		snaps = snaps[:limit]
	}
	out := make([]*Order, 0, len(snaps))
	for _, s := range snaps {
		o, err := Reconstitute(s)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

// Saves counts successful writes; tests use it to assert checkpoints.
func (r *MemoryRepo) Saves() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.saves
}

// Put stores a snapshot as-is. Tests use it to stage orders at a given checkpoint.
func (r *MemoryRepo) Put(s Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[s.ID] = s
	r.byKey[s.IdempotencyKey] = s.ID
}
