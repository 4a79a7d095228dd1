package cache

import (
	"strings"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"go.uber.org/zap"
)

const keyPrefix = "wdash:"

// Memcached implements Cache on a memcached cluster. Errors degrade to
// cache misses; the caller falls through to storage or the provider.
type Memcached struct {
	client *memcache.Client
	log    *zap.Logger
}

// NewMemcached creates a Memcached cache. addrs is a comma-separated list
// (e.g. "localhost:11211" or "host1:11211,host2:11211").
func NewMemcached(addrs string, logger *zap.Logger) *Memcached {
	servers := parseAddrs(addrs)
	if len(servers) == 0 {
		servers = []string{"localhost:11211"}
	}
	return &Memcached{client: memcache.New(servers...), log: logger}
}

func parseAddrs(s string) []string {
	var out []string
	for _, a := range strings.Split(s, ",") {
		a = strings.TrimSpace(a)
		if a != "" {
			out = append(out, a)
		}
	}
	return out
}

func (c *Memcached) Get(key string) ([]byte, bool) {
	item, err := c.client.Get(keyPrefix + key)
	if err != nil {
		if err != memcache.ErrCacheMiss {
			c.log.Warn("memcached get failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	return item.Value, true
}

func (c *Memcached) Set(key string, value []byte, ttl time.Duration) {
	err := c.client.Set(&memcache.Item{
		Key:        keyPrefix + key,
		Value:      value,
		Expiration: int32(ttl.Seconds()),
	})
	if err != nil {
		c.log.Warn("memcached set failed", zap.String("key", key), zap.Error(err))
	}
}
