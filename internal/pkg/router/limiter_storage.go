package router

import (
	"net"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/storage/redis"

	"github.com/ManuelReschke/CreatorPay/internal/pkg/cache"
	"github.com/ManuelReschke/CreatorPay/internal/pkg/env"
)

// limiterDatabase keeps rate-limit counters apart from the cache (DB 0) and
// the job queue keys.
const limiterDatabase = 2

// NewLimiterStorage returns Redis-backed storage for the API rate limiter on
// the same server as the cache client. It returns nil when Redis cannot be
// reached so the limiter falls back to per-process memory.
func NewLimiterStorage() (storage fiber.Storage) {
	host := "localhost"
	port := 6379
	password := env.GetEnv("CACHE_PASSWORD", "")
	if cacheClient := cache.GetClient(); cacheClient != nil {
		addr := cacheClient.Options().Addr
		if h, p, err := net.SplitHostPort(addr); err == nil {
			host = h
			if v, err := strconv.Atoi(p); err == nil {
				port = v
			}
		}
		if p := cacheClient.Options().Password; p != "" {
			password = p
		}
	}

	// redis.New panics when the initial ping fails.
	defer func() {
		if r := recover(); r != nil {
			log.Warnf("[Router] rate limiter storage unavailable, using memory: %v", r)
			storage = nil
		}
	}()

	return redis.New(redis.Config{
		Host:     host,
		Port:     port,
		Password: password,
		Database: limiterDatabase,
		Reset:    false,
	})
}
