package pipeline

import (
	"context"
	"strings"
	"sync"
)

// MemoryVendorCache is an in-process VendorCache. Used by the one-shot local
// command and by tests; the service uses the BigQuery-backed implementation.
type MemoryVendorCache struct {
	mu      sync.RWMutex
	entries map[string]string // full raw vendor -> normalized token
}

// NewMemoryVendorCache creates an empty in-process cache.
func NewMemoryVendorCache() *MemoryVendorCache {
	return &MemoryVendorCache{entries: make(map[string]string)}
}

// Lookup implements VendorCache with the same prefix-match semantics as the
// durable store: any entry whose raw vendor starts with prefix hits.
func (c *MemoryVendorCache) Lookup(_ context.Context, prefix string) (string, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for raw, normalized := range c.entries {
		if strings.HasPrefix(raw, prefix) {
			return normalized, true, nil
		}
	}
	return "", false, nil
}

// Upsert implements VendorCache.
func (c *MemoryVendorCache) Upsert(_ context.Context, rawVendor, normalized string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[rawVendor] = normalized
	return nil
}

var _ VendorCache = (*MemoryVendorCache)(nil)
