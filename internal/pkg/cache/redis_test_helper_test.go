package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ManuelReschke/CreatorPay/internal/pkg/env"
)

const isolatedCacheTestRedisDB = 13

// newTestRedis connects to a reachable Redis on a dedicated DB or skips the test.
func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	hosts := []string{env.GetEnv("CACHE_HOST", "localhost"), "cache", "127.0.0.1"}
	port := env.GetEnv("CACHE_PORT", "6379")
	password := env.GetEnv("CACHE_PASSWORD", "")

	var lastErr error
	for _, host := range hosts {
		client := redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%s", host, port),
			Password: password,
			DB:       isolatedCacheTestRedisDB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		err := client.Ping(ctx).Err()
		cancel()
		if err != nil {
			lastErr = err
			_ = client.Close()
			continue
		}
		if err := client.FlushDB(context.Background()).Err(); err != nil {
			_ = client.Close()
			t.Fatalf("failed to flush redis db %d: %v", isolatedCacheTestRedisDB, err)
		}
		t.Cleanup(func() {
			_ = client.FlushDB(context.Background()).Err()
			_ = client.Close()
		})
		return client
	}

	t.Skipf("Skipping Redis-dependent test: no reachable Redis endpoint (%v)", lastErr)
	return nil
}
