package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kyle-eros/eros-scheduling-sub002/business/selection"

	"github.com/redis/go-redis/v9"
)

const patternTTL = 5 * time.Minute

// PatternCache keeps a creator's recent assignment window in Redis so a
// burst of selection calls does not rebuild it from Postgres each time.
type PatternCache struct {
	client *redis.Client
}

var _ selection.PatternCache = (*PatternCache)(nil)

func NewPatternCache(client *redis.Client) *PatternCache {
	return &PatternCache{
		client: client,
	}
}

// Get returns (nil, nil) on a cache miss.
func (c *PatternCache) Get(ctx context.Context, creatorID string) (*selection.RecentWindow, error) {
	key := fmt.Sprintf("pattern:creator:%s", creatorID)

	val, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get pattern from Redis: %w", err)
	}

	var window selection.RecentWindow
	if err := json.Unmarshal([]byte(val), &window); err != nil {
		return nil, fmt.Errorf("failed to unmarshal pattern data: %w", err)
	}

	return &window, nil
}

func (c *PatternCache) Set(ctx context.Context, creatorID string, window selection.RecentWindow) error {
	key := fmt.Sprintf("pattern:creator:%s", creatorID)

	jsonData, err := json.Marshal(window)
	if err != nil {
		return fmt.Errorf("failed to marshal pattern data: %w", err)
	}

	err = c.client.Set(ctx, key, jsonData, patternTTL).Err()
	if err != nil {
		return fmt.Errorf("failed to store pattern in Redis: %w", err)
	}

	return nil
}

// Invalidate drops the cached window after a lock mutates history.
func (c *PatternCache) Invalidate(ctx context.Context, creatorID string) error {
	key := fmt.Sprintf("pattern:creator:%s", creatorID)

	err := c.client.Del(ctx, key).Err()
	if err != nil {
		return fmt.Errorf("failed to invalidate pattern cache: %w", err)
	}

	return nil
}
