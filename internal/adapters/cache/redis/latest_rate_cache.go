package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/SscSPs/cbr_rates/internal/core/domain"
	portsrepo "github.com/SscSPs/cbr_rates/internal/core/ports/repositories"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "cbr:latest:"

// LatestRateCache keeps the newest record of every currency in Redis.
type LatestRateCache struct {
	client *redis.Client
	ttl    time.Duration
}

var _ portsrepo.LatestRateCache = (*LatestRateCache)(nil)

// Connect parses a redis:// URL and verifies the server answers.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// NewLatestRateCache creates a cache whose entries expire after ttl.
func NewLatestRateCache(client *redis.Client, ttl time.Duration) *LatestRateCache {
	return &LatestRateCache{client: client, ttl: ttl}
}

func cacheKey(currency domain.CurrencyCode) string {
	return keyPrefix + string(currency)
}

// GetLatest returns the cached record, or (nil, nil) on a miss.
func (c *LatestRateCache) GetLatest(ctx context.Context, currency domain.CurrencyCode) (*domain.RateRecord, error) {
	data, err := c.client.Get(ctx, cacheKey(currency)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get %s: %w", currency, err)
	}

	var rec domain.RateRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decoding cached %s rate: %w", currency, err)
	}
	return &rec, nil
}

// SetLatest stores record unless the cache already holds a newer one.
func (c *LatestRateCache) SetLatest(ctx context.Context, record domain.RateRecord) error {
	current, err := c.GetLatest(ctx, record.CurrencyCode)
	if err == nil && current != nil && current.ID > record.ID {
		return nil
	}

	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, cacheKey(record.CurrencyCode), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", record.CurrencyCode, err)
	}
	return nil
}
