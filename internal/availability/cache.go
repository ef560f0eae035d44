package availability

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/oakhurst-labs/frontdesk/internal/logging"
)

// redisKeyPrefix namespaces availability entries in a shared Redis.
const redisKeyPrefix = "frontdesk:avail:"

// Cache is a TTL-bounded availability cache keyed by (date, time). The
// in-process map is the first tier; an optional Redis client adds a
// second tier shared across instances. Entries are informational only —
// the booking path never trusts them.
type Cache struct {
	ttl time.Duration
	rdb *redis.Client // nil when the second tier is disabled
	log *logging.Logger

	mu      sync.RWMutex
	entries map[string]cacheEntry

	now func() time.Time
}

type cacheEntry struct {
	available  bool
	observedAt time.Time
}

// NewCache creates a cache with the given TTL. rdb may be nil.
func NewCache(ttl time.Duration, rdb *redis.Client, log *logging.Logger) *Cache {
	return &Cache{
		ttl:     ttl,
		rdb:     rdb,
		log:     log.Sub("availcache"),
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

// Key builds the canonical cache key for a slot.
func Key(date, timeStr string) string {
	return date + "|" + timeStr
}

// Get returns a cached availability observation if one exists and is
// fresh. Redis errors degrade to a miss.
func (c *Cache) Get(ctx context.Context, key string) (available, ok bool) {
	c.mu.RLock()
	e, found := c.entries[key]
	c.mu.RUnlock()

	if found && c.now().Sub(e.observedAt) < c.ttl {
		return e.available, true
	}

	if c.rdb == nil {
		return false, false
	}
	val, err := c.rdb.Get(ctx, redisKeyPrefix+key).Result()
	if err != nil {
		if err != redis.Nil {
			c.log.Debug().Err(err).Msg("redis read failed, treating as miss")
		}
		return false, false
	}
	avail := val == "1"
	// Promote to the memory tier.
	c.mu.Lock()
	c.entries[key] = cacheEntry{available: avail, observedAt: c.now()}
	c.mu.Unlock()
	return avail, true
}

// Put records an availability observation in every tier.
func (c *Cache) Put(ctx context.Context, key string, available bool) {
	c.mu.Lock()
	c.entries[key] = cacheEntry{available: available, observedAt: c.now()}
	c.mu.Unlock()

	if c.rdb == nil {
		return
	}
	val := "0"
	if available {
		val = "1"
	}
	if err := c.rdb.Set(ctx, redisKeyPrefix+key, val, c.ttl).Err(); err != nil {
		c.log.Debug().Err(err).Msg("redis write failed")
	}
}

// Invalidate drops an entry from every tier, e.g. after a write made the
// cached observation stale.
func (c *Cache) Invalidate(ctx context.Context, key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()

	if c.rdb != nil {
		if err := c.rdb.Del(ctx, redisKeyPrefix+key).Err(); err != nil {
			c.log.Debug().Err(err).Msg("redis delete failed")
		}
	}
}
