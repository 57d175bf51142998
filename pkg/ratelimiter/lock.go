package ratelimiter

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only while it still holds the caller's token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Lock is a held lock. Release it with ClearLock.
type Lock struct {
	key   string
	token string
}

// CheckAndSetLock takes a short-lived lock named key. It returns a nil Lock when someone else
// holds it; a nil client always grants it.
func CheckAndSetLock(ctx context.Context, rdb *redis.Client, key string, ttl time.Duration) (*Lock, error) {
	lock := &Lock{key: lockKey(key), token: uuid.NewString()}
	if rdb == nil {
		return lock, nil
	}

	wasSet, err := rdb.SetNX(ctx, lock.key, lock.token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock in redis: %w", err)
	}
	if !wasSet {
		return nil, nil
	}

	return lock, nil
}

// ClearLock releases lock if it is still ours. A lock that expired and was taken by another
// caller is left alone.
func ClearLock(ctx context.Context, rdb *redis.Client, lock *Lock) error {
	if rdb == nil || lock == nil {
		return nil
	}
	return releaseScript.Run(ctx, rdb, []string{lock.key}, lock.token).Err()
}

func lockKey(key string) string {
	return "lock:" + key
}
