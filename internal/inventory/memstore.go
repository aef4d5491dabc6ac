package inventory

import (
	"context"
	"sync"

	"github.com/ariefcatur/go-saga-orders/internal/apperr"
)

type logKey struct {
	orderID   string
	productID string
	op        Operation
}

type slot struct {
	mu sync.Mutex // held for the full read-modify-write of p
	p  Product
}

// MemoryStore keeps stock in process with one mutex per product, so unrelated
// products never contend.
type MemoryStore struct {
	mu       sync.RWMutex
	products map[string]*slot

	logMu sync.Mutex
	logs  map[logKey]LogEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{products: map[string]*slot{}, logs: map[logKey]LogEntry{}}
}

func (s *MemoryStore) Apply(_ context.Context, entry LogEntry, mutate func(*Product) error) (Product, bool, error) {
	sl := s.slot(entry.ProductID)
	if sl == nil {
		return Product{}, false, apperr.NotFound("product", entry.ProductID)
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()

	k := logKey{entry.OrderID, entry.ProductID, entry.Operation}
	s.logMu.Lock()
	logged, seen := s.logs[k]
	s.logMu.Unlock()
	if seen {
		if err := checkReplay(logged, entry); err != nil {
			return sl.p, false, err
		}
		return sl.p, true, nil
	}

	next := sl.p
	if err := mutate(&next); err != nil {
		return sl.p, false, err
	}
	sl.p = next

	s.logMu.Lock()
	s.logs[k] = entry
	s.logMu.Unlock()
	return next, false, nil
}

func (s *MemoryStore) Get(_ context.Context, productID string) (Product, error) {
	sl := s.slot(productID)
	if sl == nil {
		return Product{}, apperr.NotFound("product", productID)
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()
	return sl.p, nil
}

func (s *MemoryStore) Upsert(_ context.Context, p Product) error {
	if p.Quantity < 0 {
		return apperr.Validation("stock quantity cannot be negative")
	}
	s.mu.Lock()
	sl, ok := s.products[p.ID]
	if !ok {
		s.products[p.ID] = &slot{p: p}
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	sl.mu.Lock()
	sl.p = p
	sl.mu.Unlock()
	return nil
}

func (s *MemoryStore) FindLog(_ context.Context, orderID, productID string, op Operation) (LogEntry, bool, error) {
	s.logMu.Lock()
	defer s.logMu.Unlock()
	e, ok := s.logs[logKey{orderID, productID, op}]
	return e, ok, nil
}

func (s *MemoryStore) slot(id string) *slot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.products[id]
}
