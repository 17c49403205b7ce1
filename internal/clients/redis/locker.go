package redis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/neurobridge-mastery/internal/platform/logger"
)

const (
	defaultLockTTL   = 30 * time.Second
	defaultLockRetry = 25 * time.Millisecond
	lockPrefix       = "lock:"
)

// Only the holder's token may delete the key.
var releaseScript = goredis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// KeyLocker serializes work on a key across processes. A lock that is not
// released within ttl expires on its own.
type KeyLocker struct {
	log   *logger.Logger
	rdb   goredis.UniversalClient
	ttl   time.Duration
	retry time.Duration
}

func NewKeyLocker(log *logger.Logger, rdb goredis.UniversalClient, ttl, retry time.Duration) *KeyLocker {
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	if retry <= 0 {
		retry = defaultLockRetry
	}
	return &KeyLocker{
		log:   log.With("client", "RedisKeyLocker"),
		rdb:   rdb,
		ttl:   ttl,
		retry: retry,
	}
}

// Lock blocks until key is held or ctx is done.
func (l *KeyLocker) Lock(ctx context.Context, key string) (func(), error) {
	if l == nil || l.rdb == nil {
		return nil, fmt.Errorf("redis key locker not initialized")
	}
	full := lockPrefix + key
	token := uuid.NewString()

	for {
		ok, err := l.rdb.SetNX(ctx, full, token, l.ttl).Result()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("redis lock %s: %w", key, err)
		}
		if ok {
			break
		}
		timer := time.NewTimer(l.retry)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() { l.release(full, token) })
	}, nil
}

// release runs on its own deadline so a cancelled request still frees the key.
func (l *KeyLocker) release(key, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := releaseScript.Run(ctx, l.rdb, []string{key}, token).Err()
	if err != nil && !errors.Is(err, goredis.Nil) {
		l.log.Warn("redis unlock failed; key will expire", "key", key, "error", err)
	}
}
