// Package cache is the process-wide query cache. Entries are keyed by entity
// kind, user and query parameters, go stale after a time-to-live and are
// written only through Mutate, which applies changes optimistically and rolls
// them back when the remote call fails.
package cache

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"fjacquet/fintrack/internal/logging"
)

// Default lifetimes.
const (
	DefaultQueryTTL  = 30 * time.Second
	DefaultStaticTTL = 60 * time.Second
	DefaultGCTime    = 5 * time.Minute
)

// ErrSuperseded is returned to a reader whose fetch was cancelled by a
// mutation before any value was cached.
var ErrSuperseded = errors.New("fetch superseded by mutation")

// Clock abstracts time so staleness can be tested deterministically.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time { return time.Now() }

const keySep = "|"

// Key identifies a cached query, e.g. NewKey("transactions", userID, "limit=50").
type Key string

// NewKey joins parts into a Key.
func NewKey(parts ...string) Key {
	return Key(strings.Join(parts, keySep))
}

// HasPrefix reports whether k equals prefix or extends it by whole parts.
func (k Key) HasPrefix(prefix Key) bool {
	return k == prefix || strings.HasPrefix(string(k), string(prefix)+keySep)
}

// State is the lifecycle position of a key.
type State int

const (
	StateEmpty State = iota
	StateFetching
	StateFresh
	StateStale
)

func (s State) String() string {
	switch s {
	case StateFetching:
		return "fetching"
	case StateFresh:
		return "fresh"
	case StateStale:
		return "stale"
	default:
		return "empty"
	}
}

// FetchFunc loads the authoritative value for a key.
type FetchFunc func(ctx context.Context) (any, error)

type entry struct {
	value     any
	hasValue  bool
	fetchedAt time.Time
	ttl       time.Duration
	invalid   bool
	lastRead  time.Time

	// gen changes whenever a mutation or invalidation makes an in-flight
	// fetch result unusable.
	gen      uint64
	fetching bool
	cancel   context.CancelFunc
	pending  int
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

// Options configures a Cache.
type Options struct {
	TTL    time.Duration
	GCTime time.Duration
	Clock  Clock
	Logger logging.Logger
}

// Cache holds query results. It is safe for concurrent use.
type Cache struct {
	mu      sync.Mutex
	entries map[Key]*entry
	locks   map[Key]*keyLock
	group   singleflight.Group

	ttl    time.Duration
	gcTime time.Duration
	clock  Clock
	logger logging.Logger
}

// New creates a Cache. Zero options fall back to the defaults.
func New(opts Options) *Cache {
	if opts.TTL <= 0 {
		opts.TTL = DefaultQueryTTL
	}
	if opts.GCTime <= 0 {
		opts.GCTime = DefaultGCTime
	}
	if opts.Clock == nil {
		opts.Clock = SystemClock{}
	}
	return &Cache{
		entries: make(map[Key]*entry),
		locks:   make(map[Key]*keyLock),
		ttl:     opts.TTL,
		gcTime:  opts.GCTime,
		clock:   opts.Clock,
		logger:  logging.OrDefault(opts.Logger),
	}
}

// TTL returns the default time-to-live.
func (c *Cache) TTL() time.Duration { return c.ttl }

func (c *Cache) entryLocked(key Key) *entry {
	e, ok := c.entries[key]
	if !ok {
		e = &entry{}
		c.entries[key] = e
	}
	return e
}

func (e *entry) fresh(now time.Time) bool {
	return e.hasValue && !e.invalid && now.Sub(e.fetchedAt) <= e.ttl
}

// Get returns the cached value for key, fresh or stale, without fetching.
func (c *Cache) Get(key Key) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || !e.hasValue {
		return nil, false
	}
	e.lastRead = c.clock.Now()
	return e.value, true
}

// Status reports where key is in its lifecycle.
func (c *Cache) Status(key Key) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	switch {
	case !ok:
		return StateEmpty
	case e.fetching:
		return StateFetching
	case e.fresh(c.clock.Now()):
		return StateFresh
	case e.hasValue:
		return StateStale
	default:
		return StateEmpty
	}
}

// Fetch returns the value for key, calling fn when the entry is missing or
// older than ttl (the cache default when ttl <= 0). Concurrent readers of
// the same key share one call to fn. While a mutation on key is in flight
// the optimistic value is returned without fetching.
func (c *Cache) Fetch(ctx context.Context, key Key, ttl time.Duration, fn FetchFunc) (any, error) {
	if ttl <= 0 {
		ttl = c.ttl
	}

	c.mu.Lock()
	e := c.entryLocked(key)
	now := c.clock.Now()
	e.lastRead = now
	if e.fresh(now) || (e.pending > 0 && e.hasValue) {
		v := e.value
		c.mu.Unlock()
		return v, nil
	}
	c.mu.Unlock()

	ch := c.group.DoChan(string(key), func() (any, error) {
		return c.load(ctx, key, ttl, fn)
	})
	select {
	case res := <-ch:
		if errors.Is(res.Err, ErrSuperseded) {
			if v, ok := c.Get(key); ok {
				return v, nil
			}
		}
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Cache) load(ctx context.Context, key Key, ttl time.Duration, fn FetchFunc) (any, error) {
	fetchCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	defer cancel()

	c.mu.Lock()
	e := c.entryLocked(key)
	gen := e.gen
	e.fetching = true
	e.cancel = cancel
	c.mu.Unlock()

	start := c.clock.Now()
	v, err := fn(fetchCtx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if e.gen != gen {
		c.logger.Debug("Discarding superseded fetch",
			logging.F(logging.FieldCacheKey, string(key)))
		if err != nil || fetchCtx.Err() != nil {
			return nil, ErrSuperseded
		}
		return v, nil
	}
	e.fetching = false
	e.cancel = nil
	if err != nil {
		return nil, err
	}
	e.value = v
	e.hasValue = true
	e.invalid = false
	e.ttl = ttl
	e.fetchedAt = c.clock.Now()
	c.logger.Debug("Fetched cache entry",
		logging.F(logging.FieldCacheKey, string(key)),
		logging.F(logging.FieldDuration, c.clock.Now().Sub(start).Milliseconds()))
	return v, nil
}

// Prefetch warms key in the background unless it is already fresh. It never
// blocks the caller and errors are only logged.
func (c *Cache) Prefetch(ctx context.Context, key Key, ttl time.Duration, fn FetchFunc) {
	if c.Status(key) == StateFresh {
		return
	}
	go func() {
		if _, err := c.Fetch(context.WithoutCancel(ctx), key, ttl, fn); err != nil {
			c.logger.WithError(err).Debug("Prefetch failed",
				logging.F(logging.FieldCacheKey, string(key)))
		}
	}()
}

// Invalidate marks every entry under prefix stale so the next read
// refetches. Fetches already in flight are not stored.
func (c *Cache) Invalidate(prefix Key) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k, e := range c.entries {
		if !k.HasPrefix(prefix) {
			continue
		}
		e.invalid = true
		if e.fetching {
			e.gen++
			e.fetching = false
			e.cancel = nil
			c.group.Forget(string(k))
		}
		n++
	}
	return n
}

// Collect evicts entries nobody has read for the GC window and which have
// no fetch or mutation in flight. It returns the number evicted.
func (c *Cache) Collect(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k, e := range c.entries {
		if e.fetching || e.pending > 0 || now.Sub(e.lastRead) < c.gcTime {
			continue
		}
		delete(c.entries, k)
		n++
	}
	if n > 0 {
		c.logger.Debug("Collected cache entries", logging.F(logging.FieldCount, n))
	}
	return n
}

// Len returns the number of entries held.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// keysLocked returns the sorted set of explicit keys plus every existing
// key under prefix.
func (c *Cache) keysLocked(keys []Key, prefix Key) []Key {
	set := make(map[Key]struct{}, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	if prefix != "" {
		for k := range c.entries {
			if k.HasPrefix(prefix) {
				set[k] = struct{}{}
			}
		}
	}
	out := make([]Key, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (c *Cache) acquire(keys []Key) {
	c.mu.Lock()
	held := make([]*keyLock, len(keys))
	for i, k := range keys {
		l, ok := c.locks[k]
		if !ok {
			l = &keyLock{}
			c.locks[k] = l
		}
		l.refs++
		held[i] = l
	}
	c.mu.Unlock()

	// keys are sorted so concurrent mutations lock in the same order
	for _, l := range held {
		l.mu.Lock()
	}
}

func (c *Cache) release(keys []Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		l := c.locks[k]
		l.mu.Unlock()
		if l.refs--; l.refs == 0 {
			delete(c.locks, k)
		}
	}
}
