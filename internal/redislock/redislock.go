// Package redislock serializes work on a key across API instances with a
// Redis SET NX lease.
package redislock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/PortNumber53/content-calendar/internal/logger"
)

const keyPrefix = "content-calendar:lock:"

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type Locker struct {
	client redis.UniversalClient
	ttl    time.Duration
	log    *logger.Logger
}

func New(client redis.UniversalClient, ttl time.Duration, log *logger.Logger) *Locker {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Locker{client: client, ttl: ttl, log: log}
}

// Connect parses a redis:// URL and pings the server.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// Acquire takes the lease for key. acquired is false when another holder has it.
func (l *Locker) Acquire(ctx context.Context, key string) (func(), bool, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, keyPrefix+key, token, l.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}
	release := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, l.client, []string{keyPrefix + key}, token).Err(); err != nil {
			l.log.Warn("lock release failed", "key", key, "error", err)
		}
	}
	return release, true, nil
}
