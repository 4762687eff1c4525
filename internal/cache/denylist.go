package cache

import (
	"context"
	"sync"
	"time"
)

// TokenDenylist records revoked token signatures until their natural expiry.
// Tokens are otherwise stateless, so logout needs this one piece of
// server-side state.
type TokenDenylist interface {
	Revoke(ctx context.Context, signature string, ttl time.Duration) error
	IsRevoked(ctx context.Context, signature string) (bool, error)
}

// MemoryDenylist is the default backend for a single-process deployment.
type MemoryDenylist struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

func NewMemoryDenylist() *MemoryDenylist {
	return &MemoryDenylist{
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (d *MemoryDenylist) Revoke(_ context.Context, signature string, ttl time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.entries[signature] = d.now().Add(ttl)
	return nil
}

func (d *MemoryDenylist) IsRevoked(_ context.Context, signature string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	expiry, ok := d.entries[signature]
	if !ok {
		return false, nil
	}
	if d.now().After(expiry) {
		delete(d.entries, signature)
		return false, nil
	}
	return true, nil
}
