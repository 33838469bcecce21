// Package cache memoizes expensive loads by key for a fixed
// time-to-live. Concurrent misses on the same key share one
// load, and InvalidateAll forces the next access of every key
// to reload.
//
// A shared load is not tied to any one caller: it keeps the
// first caller's context values but not its cancellation, and
// is bounded by the load timeout instead. A caller whose own
// context ends stops waiting without affecting the others.
package cache

import (
	"context"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Clock supplies the current time. Tests substitute a fake.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

type entry[V any] struct {
	value    V
	loadedAt time.Time
}

// DefaultLoadTimeout bounds a shared load when no other
// timeout is configured.
const DefaultLoadTimeout = time.Minute

type options struct {
	clock       Clock
	metrics     *Metrics
	loadTimeout time.Duration
}

// Option configures a Cache.
type Option func(*options)

// WithClock sets the clock used for expiry.
func WithClock(c Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithMetrics records hits, misses, invalidations and load
// durations under the cache's name.
func WithMetrics(m *Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithLoadTimeout bounds each shared load. Zero or less means
// loads run until they return.
func WithLoadTimeout(d time.Duration) Option {
	return func(o *options) { o.loadTimeout = d }
}

// Cache is a TTL memoization table. The zero value is not
// usable; construct with New.
type Cache[V any] struct {
	name    string
	ttl     time.Duration
	clock       Clock
	metrics     *Metrics
	loadTimeout time.Duration

	mu      sync.Mutex
	gen     uint64
	entries map[string]entry[V]
	group   singleflight.Group
}

// New returns an empty cache. A ttl of zero or less disables
// retention: every Get loads, though concurrent loads of one
// key are still shared.
func New[V any](
	name string, ttl time.Duration, opts ...Option,
) *Cache[V] {
	o := options{
		clock:       SystemClock{},
		loadTimeout: DefaultLoadTimeout,
	}
	for _, fn := range opts {
		fn(&o)
	}
	return &Cache[V]{
		name:        name,
		ttl:         ttl,
		clock:       o.clock,
		metrics:     o.metrics,
		loadTimeout: o.loadTimeout,
		entries:     make(map[string]entry[V]),
	}
}

// Name returns the name the cache reports metrics under.
func (c *Cache[V]) Name() string { return c.name }

// TTL returns the configured time-to-live.
func (c *Cache[V]) TTL() time.Duration { return c.ttl }

// Get returns the live value for key, calling load on a miss.
// An entry's age is measured from the start of the load that
// produced it. Failed loads are returned to every waiting
// caller and are not stored. Get returns ctx.Err() as soon as
// ctx ends, even while a shared load is still running.
func (c *Cache[V]) Get(
	ctx context.Context, key string,
	load func(context.Context) (V, error),
) (V, error) {
	var zero V
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	c.mu.Lock()
	now := c.clock.Now()
	if e, ok := c.entries[key]; ok {
		if c.ttl > 0 && now.Sub(e.loadedAt) < c.ttl {
			c.mu.Unlock()
			c.metrics.hit(c.name)
			return e.value, nil
		}
		delete(c.entries, key)
	}
	gen := c.gen
	c.mu.Unlock()
	c.metrics.miss(c.name)

	// Loads started before an invalidation must not be joined
	// by callers arriving after it.
	flight := strconv.FormatUint(gen, 10) + "\x00" + key
	ch := c.group.DoChan(flight, func() (any, error) {
		lctx, cancel := c.loadContext(ctx)
		defer cancel()

		start := time.Now()
		v, err := load(lctx)
		c.metrics.observe(c.name, time.Since(start), err)
		if err != nil {
			return v, err
		}
		c.mu.Lock()
		if c.ttl > 0 && c.gen == gen {
			c.entries[key] = entry[V]{value: v, loadedAt: now}
		}
		c.mu.Unlock()
		return v, nil
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return zero, r.Err
		}
		return r.Val.(V), nil
	}
}

// loadContext detaches a shared load from the cancellation of
// the caller that started it.
func (c *Cache[V]) loadContext(
	ctx context.Context,
) (context.Context, context.CancelFunc) {
	detached := context.WithoutCancel(ctx)
	if c.loadTimeout <= 0 {
		return context.WithCancel(detached)
	}
	return context.WithTimeout(detached, c.loadTimeout)
}

// InvalidateAll drops every entry. Loads in flight complete
// for their callers but are not stored.
func (c *Cache[V]) InvalidateAll() {
	c.mu.Lock()
	c.gen++
	clear(c.entries)
	c.mu.Unlock()
	c.metrics.invalidate(c.name)
}

// Len returns the number of stored entries, live or expired.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
