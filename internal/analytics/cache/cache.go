// Package cache memoises analytics responses in Redis. Concurrent misses on
// the same key share one computation through singleflight.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/QuickTask-Analytics/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/QuickTask-Analytics/pkg/redis"
)

const (
	keyPrefix        = "analytics:"
	computeTimeout   = 30 * time.Second
	generationShards = 256
)

// Backend is the key-value store behind the cache; *pkgredis.Client
// satisfies it. Get must return pkgredis.ErrMiss for absent keys.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	DeletePrefix(ctx context.Context, prefix string) (int64, error)
}

type ResultCache struct {
	backend Backend
	ttl     time.Duration
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
	epoch   atomic.Uint64
	gens    [generationShards]atomic.Uint64
}

// New creates a ResultCache. m may be nil.
func New(backend Backend, ttl time.Duration, m *metrics.Metrics) *ResultCache {
	return &ResultCache{
		backend: backend,
		ttl:     ttl,
		metrics: m,
		logger:  slog.Default().With("component", "result-cache"),
	}
}

// Fetch decodes the cached value for key into dst. On a miss it runs compute
// once per key across concurrent callers, stores the JSON encoding and
// decodes it into dst. Backend failures degrade to a miss and are logged;
// only compute errors are returned. Keys start with the user id followed by
// ':', which is what InvalidateUser matches on.
//
// compute runs detached from any one caller's cancellation, bounded by
// computeTimeout. Each caller still stops waiting when its own ctx ends.
func (c *ResultCache) Fetch(
	ctx context.Context,
	key string,
	dst any,
	compute func(ctx context.Context) (any, error),
) (bool, error) {
	full := keyPrefix + key
	if data, ok := c.get(ctx, full); ok {
		err := json.Unmarshal(data, dst)
		if err == nil {
			c.recordHit()
			return true, nil
		}
		c.logger.Error("cache unmarshal failed", "key", full, "error", err)
	}
	c.recordMiss()

	user, _, _ := strings.Cut(key, ":")
	ch := c.group.DoChan(full, func() (interface{}, error) {
		shared, cancel := context.WithTimeout(context.WithoutCancel(ctx), computeTimeout)
		defer cancel()
		return c.computeAndStore(shared, full, user, compute)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return false, res.Err
		}
		if err := json.Unmarshal(res.Val.([]byte), dst); err != nil {
			return false, fmt.Errorf("decoding computed result: %w", err)
		}
		return false, nil
	case <-ctx.Done():
		return false, fmt.Errorf("waiting for %s: %w", full, ctx.Err())
	}
}

// computeAndStore runs compute and writes the result unless the user's cache
// was invalidated meanwhile; the result is returned either way. A panic in
// compute becomes an error, since DoChan would rethrow it on a goroutine no
// caller can recover.
func (c *ResultCache) computeAndStore(
	ctx context.Context,
	full, user string,
	compute func(ctx context.Context) (any, error),
) (data []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("computing %s: panic: %v", full, r)
		}
	}()

	gen := c.generation(user)
	result, err := compute(ctx)
	if err != nil {
		return nil, err
	}
	data, err = json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("encoding cached result: %w", err)
	}
	if c.generation(user) != gen {
		c.logger.Debug("invalidated during compute, not caching", "key", full)
		return data, nil
	}
	if err := c.backend.Set(ctx, full, data, c.ttl); err != nil {
		c.logger.Error("cache set failed", "key", full, "error", err)
		return data, nil
	}
	// An invalidation that landed during Set may have deleted before we wrote.
	if c.generation(user) != gen {
		if _, err := c.backend.DeletePrefix(ctx, full); err != nil {
			c.logger.Error("cache delete after invalidation failed", "key", full, "error", err)
		}
	}
	return data, nil
}

// InvalidateUser drops every cached result for one user.
func (c *ResultCache) InvalidateUser(ctx context.Context, user string) error {
	c.userGen(user).Add(1)
	deleted, err := c.backend.DeletePrefix(ctx, keyPrefix+user+":")
	if err != nil {
		return fmt.Errorf("invalidating cache for user %s: %w", user, err)
	}
	c.logger.Debug("user cache invalidated", "user_id", user, "keys_deleted", deleted)
	return nil
}

// Invalidate drops every cached result.
func (c *ResultCache) Invalidate(ctx context.Context) (int64, error) {
	c.epoch.Add(1)
	deleted, err := c.backend.DeletePrefix(ctx, keyPrefix)
	if err != nil {
		return deleted, fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return deleted, nil
}

// generation changes whenever the user's entries, or all entries, are
// invalidated. Users share generationShards counters, so a collision only
// costs an extra skipped write.
func (c *ResultCache) generation(user string) uint64 {
	return c.epoch.Load() + c.userGen(user).Load()
}

func (c *ResultCache) userGen(user string) *atomic.Uint64 {
	h := fnv.New32a()
	h.Write([]byte(user))
	return &c.gens[h.Sum32()%generationShards]
}

func (c *ResultCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *ResultCache) get(ctx context.Context, key string) ([]byte, bool) {
	data, err := c.backend.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, pkgredis.ErrMiss) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		return nil, false
	}
	return data, true
}

func (c *ResultCache) recordHit() {
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
}

func (c *ResultCache) recordMiss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}
