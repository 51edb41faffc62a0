package utils

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sukull/istikrar/config"
)

// NewRedis builds a client from cfg. It returns nil without error when no Redis host is
// configured; callers then skip caching and use process-local locks.
func NewRedis(ctx context.Context, cfg config.AppConfig) (*redis.Client, error) {
	if cfg.RedisHost == "" {
		return nil, nil
	}
	rc := redis.NewClient(&redis.Options{
		Addr:         net.JoinHostPort(cfg.RedisHost, strconv.Itoa(cfg.RedisPort)),
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("redis %s: %w", rc.Options().Addr, err)
	}
	return rc, nil
}
