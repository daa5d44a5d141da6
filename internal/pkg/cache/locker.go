package cache

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const LockKeyPrefix = "lock:"

// releaseScript deletes the lock only while it still holds our token, so an
// expired lease taken over by another worker is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker hands out short-lived leases backed by SET NX PX.
type Locker struct {
	client redis.UniversalClient
}

func NewLocker(client redis.UniversalClient) *Locker {
	return &Locker{client: client}
}

// Acquire tries to take the lease for key. acquired is false when another
// holder owns it; err is set only when Redis could not answer.
func (l *Locker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	redisKey := LockKeyPrefix + key
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, redisKey, token, ttl).Result()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}

	release := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, l.client, []string{redisKey}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
			log.Warnf("[Cache] Failed to release lock %s: %v", key, err)
		}
	}
	return release, true, nil
}
