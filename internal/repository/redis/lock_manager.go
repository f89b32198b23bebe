package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"fitmatch/internal/repository"
)

const lockKeyPrefix = "lock:"

// releaseScript deletes the key only while it still holds the caller's
// token. GET and DEL run atomically inside Redis.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// LockManager is the Redis equivalent of memory.LockManager, built on
// SET key token NX PX ttl. Expiry is left to Redis.
type LockManager struct {
	client *goredis.Client
}

var _ repository.LockManager = (*LockManager)(nil)

func NewLockManager(client *goredis.Client) *LockManager {
	return &LockManager{client: client}
}

func (lm *LockManager) AcquireLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()
	ok, err := lm.client.SetNX(ctx, lockKeyPrefix+key, token, ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("acquiring lock %s: %w", key, err)
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

// ReleaseLock is a no-op when the key expired or now belongs to another
// holder.
func (lm *LockManager) ReleaseLock(ctx context.Context, key, token string) error {
	if err := releaseScript.Run(ctx, lm.client, []string{lockKeyPrefix + key}, token).Err(); err != nil {
		return fmt.Errorf("releasing lock %s: %w", key, err)
	}
	return nil
}

func (lm *LockManager) IsLocked(ctx context.Context, key string) (bool, error) {
	n, err := lm.client.Exists(ctx, lockKeyPrefix+key).Result()
	if err != nil {
		return false, fmt.Errorf("checking lock %s: %w", key, err)
	}
	return n > 0, nil
}
