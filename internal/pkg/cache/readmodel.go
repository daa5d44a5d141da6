package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"

	"github.com/ManuelReschke/CreatorPay/app/models"
)

const (
	EntitlementKeyPrefix = "entitlement:"
	SummaryKeyPrefix     = "summary:"

	DefaultReadModelTTL = 5 * time.Minute
)

// ReadModels caches entitlement and summary lookups as JSON. The billing
// service drops the keys after every write that changes them.
type ReadModels struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewReadModels(client redis.UniversalClient, ttl time.Duration) *ReadModels {
	if ttl <= 0 {
		ttl = DefaultReadModelTTL
	}
	return &ReadModels{client: client, ttl: ttl}
}

func (c *ReadModels) Entitlement(ctx context.Context, subscriberID string, load func(context.Context, string) (*models.Entitlement, error)) (*models.Entitlement, error) {
	return getOrLoad(ctx, c, EntitlementKeyPrefix+subscriberID, func(ctx context.Context) (*models.Entitlement, error) {
		return load(ctx, subscriberID)
	})
}

func (c *ReadModels) Summary(ctx context.Context, creatorID string, load func(context.Context, string) (*models.CreatorSummary, error)) (*models.CreatorSummary, error) {
	return getOrLoad(ctx, c, SummaryKeyPrefix+creatorID, func(ctx context.Context) (*models.CreatorSummary, error) {
		return load(ctx, creatorID)
	})
}

func (c *ReadModels) InvalidateEntitlement(ctx context.Context, subscriberID string) {
	c.invalidate(ctx, EntitlementKeyPrefix+subscriberID)
}

func (c *ReadModels) InvalidateSummary(ctx context.Context, creatorID string) {
	c.invalidate(ctx, SummaryKeyPrefix+creatorID)
}

func (c *ReadModels) invalidate(ctx context.Context, key string) {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		log.Warnf("[Cache] Failed to invalidate %s: %v", key, err)
	}
}

// getOrLoad serves key from Redis and falls back to load on a miss or when
// Redis is unreachable. Load errors are never cached.
func getOrLoad[T any](ctx context.Context, c *ReadModels, key string, load func(context.Context) (*T, error)) (*T, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var v T
		if uerr := json.Unmarshal(raw, &v); uerr == nil {
			return &v, nil
		}
		log.Warnf("[Cache] Dropping undecodable entry %s", key)
	} else if !errors.Is(err, redis.Nil) {
		log.Warnf("[Cache] Read of %s failed, loading from store: %v", key, err)
	}

	v, err := load(ctx)
	if err != nil {
		return nil, err
	}
	if data, merr := json.Marshal(v); merr == nil {
		if serr := c.client.Set(ctx, key, data, c.ttl).Err(); serr != nil {
			log.Warnf("[Cache] Failed to store %s: %v", key, serr)
		}
	}
	return v, nil
}
