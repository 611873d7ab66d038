package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/rl1809/voucher-rush/internal/obs"
)

const lockKeyPrefix = "lock:"

// Check-and-delete must run server-side as one unit. A client-side GET
// followed by DEL lets a holder whose TTL already lapsed delete the lock a
// later holder just acquired.
var unlockScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
	return redis.call('DEL', KEYS[1])
end
return 0
`)

// RedisLock is a single-acquisition mutex handle. The owner token is minted
// per handle and never reused, so a stale handle can never release a slot it
// no longer holds. Not re-entrant; callers poll or fail fast.
type RedisLock struct {
	client *redis.Client
	key    string
	token  string
}

func NewRedisLock(client *redis.Client, name string) *RedisLock {
	return &RedisLock{
		client: client,
		key:    lockKeyPrefix + name,
		token:  uuid.NewString(),
	}
}

func (l *RedisLock) TryLock(ctx context.Context, ttl time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.key, l.token, ttl).Result()
	if err != nil {
		obs.LockAcquireTotal.WithLabelValues("error").Inc()
		return false, fmt.Errorf("acquire lock %s: %w", l.key, err)
	}
	if ok {
		obs.LockAcquireTotal.WithLabelValues("acquired").Inc()
	} else {
		obs.LockAcquireTotal.WithLabelValues("busy").Inc()
	}
	return ok, nil
}

func (l *RedisLock) Unlock(ctx context.Context) error {
	if err := unlockScript.Run(ctx, l.client, []string{l.key}, l.token).Err(); err != nil {
		return fmt.Errorf("release lock %s: %w", l.key, err)
	}
	return nil
}
