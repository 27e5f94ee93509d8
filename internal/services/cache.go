package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/inkwell-journal/inkwell-backend/internal/database"
)

const (
	// CacheKeyPrefix is the Redis key prefix for cached data
	CacheKeyPrefix = "cache:"
	// AnalyticsCacheTTL keeps dashboard snapshots fresh enough that a new
	// entry shows up quickly even without explicit invalidation.
	AnalyticsCacheTTL = 10 * time.Minute
)

// CacheService provides JSON snapshot caching over Redis. Misses and Redis
// failures both read as cache misses; the caller recomputes either way.
type CacheService struct{}

// Get retrieves a value from cache. Returns false on miss.
func (c *CacheService) Get(key string, dest interface{}) (bool, error) {
	ctx := context.Background()

	val, err := database.RedisClient.Get(ctx, CacheKeyPrefix+key).Result()
	if err != nil {
		return false, nil // Cache miss, not an error
	}

	if err := json.Unmarshal([]byte(val), dest); err != nil {
		return false, err
	}
	return true, nil
}

// Set stores a value in cache with the given TTL.
func (c *CacheService) Set(key string, value interface{}, ttl time.Duration) error {
	jsonData, err := json.Marshal(value)
	if err != nil {
		return err
	}
	ctx := context.Background()
	return database.RedisClient.Set(ctx, CacheKeyPrefix+key, jsonData, ttl).Err()
}

// Delete removes a value from cache
func (c *CacheService) Delete(key string) error {
	ctx := context.Background()
	return database.RedisClient.Del(ctx, CacheKeyPrefix+key).Err()
}

// DeleteByPrefix removes every cached key under prefix. Used to drop a
// user's analytics snapshots when their entries change.
func (c *CacheService) DeleteByPrefix(prefix string) error {
	ctx := context.Background()
	iter := database.RedisClient.Scan(ctx, 0, CacheKeyPrefix+prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		database.RedisClient.Del(ctx, iter.Val())
	}
	return iter.Err()
}

// AnalyticsCacheKey builds the cache key for one user's dashboard snapshot.
func AnalyticsCacheKey(userID string, days, weeks int) string {
	return fmt.Sprintf("analytics:%s:%d:%d", userID, days, weeks)
}

// AnalyticsCachePrefix is the per-user prefix for dashboard snapshots.
func AnalyticsCachePrefix(userID string) string {
	return "analytics:" + userID + ":"
}

// Global cache service instance
var Cache = &CacheService{}
