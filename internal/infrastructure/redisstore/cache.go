// Package redisstore backs the shared access-token cache and the distributed
// resource lock with redis.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/adetunji-o/relaypay/internal/connector"
)

type TokenCache struct {
	client *redis.Client
	maxTTL time.Duration
	logger *slog.Logger
}

// NewTokenCache caps every cached token at maxTTL. Connectors that report no
// lifetime get maxTTL outright.
func NewTokenCache(client *redis.Client, maxTTL time.Duration, logger *slog.Logger) *TokenCache {
	return &TokenCache{client: client, maxTTL: maxTTL, logger: logger}
}

// GetAccessToken returns the cached token, or nil on a miss. Callers treat
// any error as a miss too, so a flaky cache only costs an extra refresh.
func (c *TokenCache) GetAccessToken(ctx context.Context, key string) (*connector.AccessToken, error) {
	raw, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read access token: %w", err)
	}

	var token connector.AccessToken
	if err := json.Unmarshal([]byte(raw), &token); err != nil {
		return nil, fmt.Errorf("failed to decode cached access token: %w", err)
	}

	return &token, nil
}

func (c *TokenCache) SetAccessToken(ctx context.Context, key string, token connector.AccessToken, ttl time.Duration) error {
	raw, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to encode access token: %w", err)
	}

	if err := c.client.Set(ctx, key, raw, clampTTL(ttl, c.maxTTL)).Err(); err != nil {
		return fmt.Errorf("failed to store access token: %w", err)
	}

	return nil
}

// clampTTL bounds a connector-reported token lifetime to the configured cap.
func clampTTL(ttl, maxTTL time.Duration) time.Duration {
	if ttl <= 0 {
		return maxTTL
	}
	if maxTTL > 0 && ttl > maxTTL {
		return maxTTL
	}
	return ttl
}
