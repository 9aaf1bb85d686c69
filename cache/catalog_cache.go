package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"Melodix/logger"
	"Melodix/model"

	"github.com/redis/go-redis/v9"
)

// KeyPrefix namespaces every key written by the catalog cache.
const KeyPrefix = "catalog:"

// DefaultTTL applies when NewCatalogCache is given a non-positive ttl.
const DefaultTTL = 5 * time.Minute

// SongListKey is the key of the full song list.
func SongListKey() string {
	return KeyPrefix + "songs"
}

// SearchKey is the key of one search result page. The query is normalized
// the same way the repository normalizes it.
func SearchKey(query string, limit int) string {
	return fmt.Sprintf("%ssearch:%d:%s", KeyPrefix, limit, strings.ToLower(strings.TrimSpace(query)))
}

// CatalogCache stores song lists as JSON in Redis. A nil *CatalogCache or
// one without a client behaves as an always-empty cache.
type CatalogCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCatalogCache wraps client.
func NewCatalogCache(client *redis.Client, ttl time.Duration) *CatalogCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &CatalogCache{client: client, ttl: ttl}
}

func (c *CatalogCache) enabled() bool {
	return c != nil && c.client != nil
}

// GetSongs returns the cached songs under key. ok is false on a miss or on
// any Redis or decoding failure.
func (c *CatalogCache) GetSongs(ctx context.Context, key string) (songs []*model.Song, ok bool) {
	if !c.enabled() {
		return nil, false
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Warn("catalog cache read failed", logger.String("key", key), logger.ErrorField(err))
		}
		return nil, false
	}

	if err := json.Unmarshal(data, &songs); err != nil {
		logger.Warn("catalog cache entry is corrupt", logger.String("key", key), logger.ErrorField(err))
		c.client.Del(ctx, key)
		return nil, false
	}
	return songs, true
}

// SetSongs stores songs under key with the cache TTL.
func (c *CatalogCache) SetSongs(ctx context.Context, key string, songs []*model.Song) error {
	if !c.enabled() {
		return nil
	}

	data, err := json.Marshal(songs)
	if err != nil {
		return fmt.Errorf("failed to marshal songs: %w", err)
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache %s: %w", key, err)
	}
	return nil
}

// Keys lists the catalog keys currently held by Redis.
func (c *CatalogCache) Keys(ctx context.Context) ([]string, error) {
	if !c.enabled() {
		return nil, nil
	}

	var keys []string
	iter := c.client.Scan(ctx, 0, KeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan catalog keys: %w", err)
	}
	return keys, nil
}

// Invalidate drops every catalog key and returns how many were removed.
func (c *CatalogCache) Invalidate(ctx context.Context) (int, error) {
	keys, err := c.Keys(ctx)
	if err != nil || len(keys) == 0 {
		return 0, err
	}

	n, err := c.client.Del(ctx, keys...).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to delete catalog keys: %w", err)
	}
	return int(n), nil
}

// TTL returns the expiry applied to new entries.
func (c *CatalogCache) TTL() time.Duration {
	if c == nil {
		return 0
	}
	return c.ttl
}
