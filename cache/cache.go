package cache

import "time"

// Cache is a TTL key-value store fronting the weather provider. Values are
// raw provider JSON; the only invalidation is TTL expiry, so an entry may
// be silently stale until its next write.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration)
}
