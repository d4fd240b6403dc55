package friendsync

import (
	"context"
	"sync"
	"time"
)

type nameEntry struct {
	name    string
	expires time.Time
}

// CachingResolver wraps another NameResolver with a TTL-based in-memory
// cache. Display names are looked up once per visible row, so redraws of the
// same list would otherwise hammer the backend.
type CachingResolver struct {
	base NameResolver
	ttl  time.Duration

	mu    sync.RWMutex
	items map[string]nameEntry
}

// NewCachingResolver returns a resolver that caches lookups for the provided TTL.
func NewCachingResolver(base NameResolver, ttl time.Duration) *CachingResolver {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &CachingResolver{
		base:  base,
		ttl:   ttl,
		items: make(map[string]nameEntry),
	}
}

// GetName returns the cached display name when available, otherwise it
// delegates to the underlying resolver and stores the result.
func (c *CachingResolver) GetName(ctx context.Context, id string) (string, error) {
	if c == nil || c.base == nil {
		return "", ErrResolverUnavailable
	}

	now := time.Now()

	c.mu.RLock()
	entry, ok := c.items[id]
	c.mu.RUnlock()
	if ok && now.Before(entry.expires) {
		return entry.name, nil
	}

	name, err := c.base.GetName(ctx, id)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.items[id] = nameEntry{name: name, expires: now.Add(c.ttl)}
	c.mu.Unlock()

	return name, nil
}

// Invalidate drops a single cached entry, used after a friend is removed.
func (c *CachingResolver) Invalidate(id string) {
	c.mu.Lock()
	delete(c.items, id)
	c.mu.Unlock()
}
