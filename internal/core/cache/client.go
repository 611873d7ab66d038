// Package cache implements a generic cache-aside client over Redis with two
// read strategies: pass-through with cached negative results, and logical
// expiry with lock-gated asynchronous rebuild.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/rl1809/voucher-rush/internal/obs"
	"github.com/rl1809/voucher-rush/internal/port"
)

const (
	// nullTTL bounds how long a cached "no such row" answer suppresses
	// loader calls for the same id.
	nullTTL = 2 * time.Minute

	rebuildLockTTL = 10 * time.Second
	rebuildTimeout = 5 * time.Second
)

// envelope is the stored form on the logical-expiry path. The record carries
// no store-level TTL; ExpireAt is advisory only.
type envelope struct {
	Data     json.RawMessage `json:"data"`
	ExpireAt time.Time       `json:"expireAt"`
}

type Client struct {
	rdb     *redis.Client
	newLock port.LockFactory

	tasks chan func()
	wg    sync.WaitGroup
	once  sync.Once
}

// NewClient starts the given number of rebuild workers. Close releases them.
func NewClient(rdb *redis.Client, newLock port.LockFactory, rebuildWorkers int) *Client {
	c := &Client{
		rdb:     rdb,
		newLock: newLock,
		tasks:   make(chan func(), rebuildWorkers*4),
	}
	for i := 0; i < rebuildWorkers; i++ {
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			for task := range c.tasks {
				task()
			}
		}()
	}
	return c
}

func (c *Client) Close() {
	c.once.Do(func() {
		close(c.tasks)
	})
	c.wg.Wait()
}

// Set writes a JSON value with a jittered TTL so co-written keys do not all
// expire in the same instant.
func (c *Client) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value: %w", err)
	}
	return c.rdb.Set(ctx, key, data, jittered(ttl)).Err()
}

// SetWithLogicalExpire writes the envelope with no store-level TTL; the
// record never vanishes on its own.
func (c *Client) SetWithLogicalExpire(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value: %w", err)
	}
	env, err := json.Marshal(envelope{Data: data, ExpireAt: time.Now().Add(ttl)})
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	return c.rdb.Set(ctx, key, env, 0).Err()
}

func (c *Client) Delete(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, key).Err()
}

// QueryWithPassThrough reads a row through the cache. A loader returning nil
// caches an empty marker, so repeated lookups for absent rows stop at Redis
// until the marker's TTL elapses.
func QueryWithPassThrough[T any](
	ctx context.Context,
	c *Client,
	keyPrefix string,
	id uint64,
	ttl time.Duration,
	loader func(ctx context.Context, id uint64) (*T, error),
) (*T, error) {
	key := keyPrefix + strconv.FormatUint(id, 10)

	val, err := c.rdb.Get(ctx, key).Result()
	if err == nil {
		if val == "" {
			// Cached negative result.
			return nil, nil
		}
		var out T
		if err := json.Unmarshal([]byte(val), &out); err != nil {
			return nil, fmt.Errorf("unmarshal cached %s: %w", key, err)
		}
		return &out, nil
	}
	if !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("read cache %s: %w", key, err)
	}

	v, err := loader(ctx, id)
	if err != nil {
		return nil, err
	}
	if v == nil {
		if err := c.rdb.Set(ctx, key, "", nullTTL).Err(); err != nil {
			return nil, fmt.Errorf("write null marker %s: %w", key, err)
		}
		return nil, nil
	}
	if err := c.Set(ctx, key, v, ttl); err != nil {
		return nil, err
	}
	return v, nil
}

// QueryWithLogicalExpire serves hot keys without ever blocking the caller on
// the database. A missing key means the entry was never warmed and reads as
// absent. An expired envelope is still served stale while at most one caller,
// gated by a per-key lock, rebuilds it on the worker pool.
func QueryWithLogicalExpire[T any](
	ctx context.Context,
	c *Client,
	keyPrefix string,
	id uint64,
	ttl time.Duration,
	loader func(ctx context.Context, id uint64) (*T, error),
) (*T, error) {
	key := keyPrefix + strconv.FormatUint(id, 10)

	val, err := c.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read cache %s: %w", key, err)
	}

	var env envelope
	if err := json.Unmarshal([]byte(val), &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope %s: %w", key, err)
	}
	var out T
	if err := json.Unmarshal(env.Data, &out); err != nil {
		return nil, fmt.Errorf("unmarshal cached %s: %w", key, err)
	}
	if env.ExpireAt.After(time.Now()) {
		return &out, nil
	}

	lock := c.newLock(key)
	ok, err := lock.TryLock(ctx, rebuildLockTTL)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("rebuild lock unavailable, serving stale")
		return &out, nil
	}
	if ok {
		if !c.submit(rebuildTask(c, key, id, ttl, loader, lock)) {
			obs.CacheRebuilds.WithLabelValues("dropped").Inc()
			if err := lock.Unlock(ctx); err != nil {
				log.Warn().Err(err).Str("key", key).Msg("release rebuild lock")
			}
		}
	}
	return &out, nil
}

// submit never blocks the caller; a saturated pool drops the rebuild and the
// stale value keeps being served until some later reader wins the lock.
func (c *Client) submit(task func()) bool {
	select {
	case c.tasks <- task:
		return true
	default:
		return false
	}
}

func rebuildTask[T any](
	c *Client,
	key string,
	id uint64,
	ttl time.Duration,
	loader func(ctx context.Context, id uint64) (*T, error),
	lock port.Lock,
) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), rebuildTimeout)
		defer cancel()
		defer func() {
			if err := lock.Unlock(ctx); err != nil {
				log.Warn().Err(err).Str("key", key).Msg("release rebuild lock")
			}
		}()

		v, err := loader(ctx, id)
		if err != nil {
			obs.CacheRebuilds.WithLabelValues("failed").Inc()
			log.Error().Err(err).Str("key", key).Msg("cache rebuild load")
			return
		}
		if v == nil {
			// Row vanished; drop the envelope so readers see absent.
			if err := c.Delete(ctx, key); err != nil {
				obs.CacheRebuilds.WithLabelValues("failed").Inc()
				log.Error().Err(err).Str("key", key).Msg("cache rebuild delete")
				return
			}
			obs.CacheRebuilds.WithLabelValues("rebuilt").Inc()
			return
		}
		if err := c.SetWithLogicalExpire(ctx, key, v, ttl); err != nil {
			obs.CacheRebuilds.WithLabelValues("failed").Inc()
			log.Error().Err(err).Str("key", key).Msg("cache rebuild write")
			return
		}
		obs.CacheRebuilds.WithLabelValues("rebuilt").Inc()
	}
}

func jittered(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return ttl
	}
	spread := ttl / 5
	return ttl - spread/2 + time.Duration(rand.Int63n(int64(spread)))
}
