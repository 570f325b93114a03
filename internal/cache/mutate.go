package cache

import (
	"context"
	"fmt"
	"time"

	"fjacquet/fintrack/internal/logging"
)

// Mutation describes one optimistic write.
type Mutation struct {
	// Name labels the mutation in logs, e.g. "transactions.create".
	Name string
	// Keys are the entries the write affects. Prefix adds every cached key
	// under it.
	Keys   []Key
	Prefix Key
	// Apply returns the optimistic value for a cached key. It must not
	// modify current in place. Keys without a cached value are skipped.
	Apply func(key Key, current any) any
	// Remote performs the authoritative write.
	Remote func(ctx context.Context) error
}

type snapshot struct {
	value     any
	hasValue  bool
	fetchedAt time.Time
	ttl       time.Duration
	invalid   bool
}

// Mutate runs m in three phases. It cancels in-flight fetches and snapshots
// the affected entries, applies the optimistic change and calls Remote. On
// success the entries are invalidated so the next read reconciles with the
// server; on failure every entry is restored to its snapshot and the remote
// error is returned. Mutations on the same key run one at a time.
func (c *Cache) Mutate(ctx context.Context, m Mutation) error {
	if m.Remote == nil {
		return fmt.Errorf("mutation %s has no remote call", m.Name)
	}

	c.mu.Lock()
	keys := c.keysLocked(m.Keys, m.Prefix)
	c.mu.Unlock()

	c.acquire(keys)
	defer c.release(keys)

	snaps := c.begin(keys, m.Apply)

	err := m.Remote(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		e := c.entryLocked(k)
		e.pending--
		if e.fetching {
			// started against the optimistic state
			e.gen++
			e.fetching = false
			e.cancel = nil
			c.group.Forget(string(k))
		}
		if err != nil {
			s := snaps[k]
			e.value, e.hasValue, e.fetchedAt, e.ttl, e.invalid = s.value, s.hasValue, s.fetchedAt, s.ttl, s.invalid
			continue
		}
		e.invalid = true
	}

	if err != nil {
		c.logger.WithError(err).Warn("Mutation failed, cache rolled back",
			logging.F(logging.FieldOperation, m.Name),
			logging.F(logging.FieldCount, len(keys)))
		return err
	}
	c.logger.Debug("Mutation committed",
		logging.F(logging.FieldOperation, m.Name),
		logging.F(logging.FieldCount, len(keys)))
	return nil
}

func (c *Cache) begin(keys []Key, apply func(Key, any) any) map[Key]snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snaps := make(map[Key]snapshot, len(keys))
	for _, k := range keys {
		e := c.entryLocked(k)
		if e.fetching {
			e.cancel()
			e.fetching = false
			e.cancel = nil
			c.group.Forget(string(k))
		}
		e.gen++
		e.pending++

		snaps[k] = snapshot{
			value:     e.value,
			hasValue:  e.hasValue,
			fetchedAt: e.fetchedAt,
			ttl:       e.ttl,
			invalid:   e.invalid,
		}
		if e.hasValue && apply != nil {
			e.value = apply(k, e.value)
		}
	}
	return snaps
}
