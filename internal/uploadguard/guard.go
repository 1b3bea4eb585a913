package uploadguard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLocked is returned when another submission for the same user and date is in flight
var ErrLocked = errors.New("an upload for this day is already in progress")

// Guard serialises photo submissions per (user, date).
// The returned release function must be called once processing is done.
type Guard interface {
	Acquire(ctx context.Context, userID, date string) (release func(), err error)
}

// NoopGuard lets every submission through; the storage constraint still applies
type NoopGuard struct{}

func (NoopGuard) Acquire(context.Context, string, string) (func(), error) {
	return func() {}, nil
}

// releaseScript deletes the lock only if it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisGuard struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

func NewRedisGuard(client *redis.Client, ttl time.Duration) *RedisGuard {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisGuard{client: client, ttl: ttl, prefix: "agerestore:upload:"}
}

func (g *RedisGuard) key(userID, date string) string {
	return g.prefix + userID + ":" + date
}

func (g *RedisGuard) Acquire(ctx context.Context, userID, date string) (func(), error) {
	// the token identifies this holder so release never drops a successor's lock
	token := uuid.NewString()
	key := g.key(userID, date)
	ok, err := g.client.SetNX(ctx, key, token, g.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire upload lock: %w", err)
	}
	if !ok {
		return nil, ErrLocked
	}

	release := func() {
		// the request context may already be cancelled
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, g.client, []string{key}, token).Err(); err != nil {
			slog.Warn("failed to release upload lock", "key", key, "error", err)
		}
	}
	return release, nil
}
