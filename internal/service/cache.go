package service

import (
	"context"
	"time"
)

// CacheManager decides whether a source needs a fresh upstream fetch.
type CacheManager struct {
	store ExpiryStore
	now   func() time.Time
}

func NewCacheManager(store ExpiryStore) *CacheManager {
	return &CacheManager{store: store, now: time.Now}
}

// IsFetchCached reports whether the last fetch for sourceID is still fresh.
// A source that was never fetched is not cached.
func (c *CacheManager) IsFetchCached(ctx context.Context, sourceID int64) (bool, error) {
	expiry, ok, err := c.store.Expiry(ctx, sourceID)
	if err != nil {
		return false, err
	}
	return ok && expiry > c.now().Unix(), nil
}

func (c *CacheManager) RecordExpiry(ctx context.Context, sourceID int64, expiryUnix int64) error {
	return c.store.SetExpiry(ctx, sourceID, expiryUnix)
}
