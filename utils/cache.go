package utils

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultCacheTTL = time.Minute

	progressCachePrefix          = "istikrar:progress:"
	leaderboardCachePrefix       = "istikrar:leaderboard:"
	schoolLeaderboardCachePrefix = "istikrar:schools:"
)

// ProgressCacheKey keys a user's progress view for one calendar day, so a cached
// view never outlives the day it was computed for.
func ProgressCacheKey(userID, day string) string {
	return progressCachePrefix + userID + ":" + day
}

// LeaderboardCacheKey keys one page of the global leaderboard.
func LeaderboardCacheKey(limit int) string {
	return fmt.Sprintf("%slimit:%d", leaderboardCachePrefix, limit)
}

// SchoolLeaderboardCacheKey keys one page of the school leaderboard.
func SchoolLeaderboardCacheKey(city string, limit int) string {
	return fmt.Sprintf("%scity:%s:limit:%d", schoolLeaderboardCachePrefix, city, limit)
}

// Cache is a thin JSON cache over Redis. A nil client turns every call into a miss.
type Cache struct {
	rc  *redis.Client
	ttl time.Duration
}

// NewCache wraps rc. ttl <= 0 uses the default.
func NewCache(rc *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &Cache{rc: rc, ttl: ttl}
}

// GetJSON loads key into out and reports a hit.
func (c *Cache) GetJSON(ctx context.Context, key string, out interface{}) bool {
	if c == nil || c.rc == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	b, err := c.rc.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			Sugar.Debugw("cache get failed", "key", key, "error", err)
		}
		return false
	}
	return json.Unmarshal(b, out) == nil
}

// SetJSON stores v under key with the cache ttl.
func (c *Cache) SetJSON(ctx context.Context, key string, v interface{}) {
	if c == nil || c.rc == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := c.rc.Set(ctx, key, b, c.ttl).Err(); err != nil {
		Sugar.Warnw("cache set failed", "key", key, "error", err)
	}
}

// InvalidateByPrefix deletes keys that match the given prefix using SCAN.
func (c *Cache) InvalidateByPrefix(ctx context.Context, prefix string) error {
	if c == nil || c.rc == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var cursor uint64
	for i := 0; i < 10; i++ { // limit rounds to avoid long loops
		keys, cur, err := c.rc.Scan(ctx, cursor, prefix+"*", 1000).Result()
		if err != nil {
			return err
		}
		cursor = cur
		if len(keys) > 0 {
			pipe := c.rc.Pipeline()
			for _, k := range keys {
				pipe.Del(ctx, k)
			}
			if _, err := pipe.Exec(ctx); err != nil {
				return err
			}
		}
		if cursor == 0 {
			break
		}
	}
	return nil
}

// InvalidateProgress drops every cached progress view of userID.
func (c *Cache) InvalidateProgress(ctx context.Context, userID string) error {
	return c.InvalidateByPrefix(ctx, progressCachePrefix+userID+":")
}

// InvalidateLeaderboard drops every cached global leaderboard page.
func (c *Cache) InvalidateLeaderboard(ctx context.Context) error {
	return c.InvalidateByPrefix(ctx, leaderboardCachePrefix)
}

// InvalidateSchoolLeaderboard drops every cached school leaderboard page.
func (c *Cache) InvalidateSchoolLeaderboard(ctx context.Context) error {
	return c.InvalidateByPrefix(ctx, schoolLeaderboardCachePrefix)
}

// InvalidateAll drops every view after a batch change.
func (c *Cache) InvalidateAll(ctx context.Context) error {
	for _, p := range []string{progressCachePrefix, leaderboardCachePrefix, schoolLeaderboardCachePrefix} {
		if err := c.InvalidateByPrefix(ctx, p); err != nil {
			return err
		}
	}
	return nil
}
