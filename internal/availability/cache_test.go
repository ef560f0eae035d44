package availability

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/oakhurst-labs/frontdesk/internal/logging"
)

func TestCachePutGet(t *testing.T) {
	c := NewCache(5*time.Minute, nil, logging.New(io.Discard, "silent"))
	ctx := context.Background()

	_, ok := c.Get(ctx, Key("Friday, June 6", "10:00 AM"))
	assert.False(t, ok)

	c.Put(ctx, Key("Friday, June 6", "10:00 AM"), true)
	c.Put(ctx, Key("Friday, June 6", "2:00 PM"), false)

	avail, ok := c.Get(ctx, Key("Friday, June 6", "10:00 AM"))
	assert.True(t, ok)
	assert.True(t, avail)

	avail, ok = c.Get(ctx, Key("Friday, June 6", "2:00 PM"))
	assert.True(t, ok)
	assert.False(t, avail)
}

func TestCacheTTLExpiry(t *testing.T) {
	c := NewCache(5*time.Minute, nil, logging.New(io.Discard, "silent"))
	ctx := context.Background()

	clock := time.Date(2025, time.June, 4, 9, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return clock }

	c.Put(ctx, Key("Friday, June 6", "10:00 AM"), true)

	clock = clock.Add(4 * time.Minute)
	_, ok := c.Get(ctx, Key("Friday, June 6", "10:00 AM"))
	assert.True(t, ok, "entry younger than TTL")

	clock = clock.Add(2 * time.Minute)
	_, ok = c.Get(ctx, Key("Friday, June 6", "10:00 AM"))
	assert.False(t, ok, "entry older than TTL")
}

func TestCacheInvalidate(t *testing.T) {
	c := NewCache(5*time.Minute, nil, logging.New(io.Discard, "silent"))
	ctx := context.Background()

	key := Key("Friday, June 6", "10:00 AM")
	c.Put(ctx, key, true)
	c.Invalidate(ctx, key)

	_, ok := c.Get(ctx, key)
	assert.False(t, ok)
}

func TestKeyDistinguishesSlots(t *testing.T) {
	assert.NotEqual(t, Key("Friday, June 6", "10:00 AM"), Key("Friday, June 6", "10:30 AM"))
	assert.NotEqual(t, Key("Friday, June 6", "10:00 AM"), Key("Saturday, June 7", "10:00 AM"))
}
