// Package redis keeps per-source cache expiry times in Redis, as an
// alternative to the cache_entries table.
package redis

import (
	"context"
	"errors"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

type ExpiryStore struct {
	client *goredis.Client
	prefix string
	now    func() time.Time
}

func NewExpiryStore(client *goredis.Client, keyPrefix string) *ExpiryStore {
	return &ExpiryStore{client: client, prefix: keyPrefix, now: time.Now}
}

func (s *ExpiryStore) key(sourceID int64) string {
	return s.prefix + strconv.FormatInt(sourceID, 10)
}

// Expiry returns the stored expiry for sourceID; ok is false when the key is
// missing.
func (s *ExpiryStore) Expiry(ctx context.Context, sourceID int64) (int64, bool, error) {
	expiry, err := s.client.Get(ctx, s.key(sourceID)).Int64()
	if errors.Is(err, goredis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return expiry, true, nil
}

// SetExpiry stores the expiry with a matching key TTL. An expiry that is
// already in the past removes the key, which reads back as "not cached".
func (s *ExpiryStore) SetExpiry(ctx context.Context, sourceID int64, expiryUnix int64) error {
	ttl := time.Unix(expiryUnix, 0).Sub(s.now())
	if ttl <= 0 {
		return s.client.Del(ctx, s.key(sourceID)).Err()
	}
	return s.client.Set(ctx, s.key(sourceID), expiryUnix, ttl).Err()
}
