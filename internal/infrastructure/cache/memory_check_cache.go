package cache

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hrms/backend/internal/application/billing"
)

// MemoryCheckCache implements the credit check guard in process memory.
// Single-instance deployments and tests use this instead of Redis. Expired
// entries are reaped lazily on access.
type MemoryCheckCache struct {
	mu      sync.Mutex
	entries map[uuid.UUID]time.Time
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryCheckCache creates an in-memory check cache
func NewMemoryCheckCache(ttl time.Duration) *MemoryCheckCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &MemoryCheckCache{
		entries: make(map[uuid.UUID]time.Time),
		ttl:     ttl,
		now:     time.Now,
	}
}

// MarkChecked records that the tenant was checked
func (c *MemoryCheckCache) MarkChecked(_ context.Context, tenantID uuid.UUID) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if expiry, ok := c.entries[tenantID]; ok && now.Before(expiry) {
		return false, nil
	}
	c.entries[tenantID] = now.Add(c.ttl)
	return true, nil
}

// IsChecked reports whether the tenant currently has an unexpired mark
func (c *MemoryCheckCache) IsChecked(_ context.Context, tenantID uuid.UUID) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiry, ok := c.entries[tenantID]
	if !ok {
		return false, nil
	}
	if !c.now().Before(expiry) {
		delete(c.entries, tenantID)
		return false, nil
	}
	return true, nil
}

// Clear removes the mark for one tenant
func (c *MemoryCheckCache) Clear(_ context.Context, tenantID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, tenantID)
	return nil
}

// ClearAll removes every mark
func (c *MemoryCheckCache) ClearAll(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[uuid.UUID]time.Time)
	return nil
}

var _ billing.CheckCache = (*MemoryCheckCache)(nil)
