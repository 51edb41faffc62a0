package utils

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

type memLock struct {
	expiresAt time.Time
}

var (
	memLocks   = map[string]memLock{}
	memLocksMu sync.Mutex
)

// TryLock takes a named lock for ttl with SET NX. Without Redis it falls back to a
// process-local lock, which only serializes within this process.
func TryLock(ctx context.Context, rc *redis.Client, name string, ttl time.Duration) (bool, error) {
	key := "istikrar:lock:" + name
	if rc != nil {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		return rc.SetNX(ctx, key, "1", ttl).Result()
	}

	memLocksMu.Lock()
	defer memLocksMu.Unlock()
	now := time.Now()
	if l, ok := memLocks[key]; ok && now.Before(l.expiresAt) {
		return false, nil
	}
	memLocks[key] = memLock{expiresAt: now.Add(ttl)}
	return true, nil
}
