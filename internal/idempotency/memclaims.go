package idempotency

import (
	"context"
	"sync"
	"time"
)

// MemoryClaims is a ClaimStore for single-process runs and tests.
type MemoryClaims struct {
	mu     sync.Mutex
	claims map[string]claim
}

type claim struct {
	owner   string
	expires time.Time
}

func NewMemoryClaims() *MemoryClaims { return &MemoryClaims{claims: map[string]claim{}} }

func (m *MemoryClaims) Claim(_ context.Context, key, owner string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	if c, ok := m.claims[key]; ok && now.Before(c.expires) {
		return false, nil
	}
	m.claims[key] = claim{owner: owner, expires: now.Add(ttl)}
	return true, nil
}

func (m *MemoryClaims) Release(_ context.Context, key, owner string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.claims[key]; ok && c.owner == owner {
		delete(m.claims, key)
	}
	return nil
}
