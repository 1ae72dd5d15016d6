package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/careersim/bff/internal/config"
)

const (
	unreadCountTTL = time.Hour
	// unreadGenerationTTL outlives any cached count it guards
	unreadGenerationTTL = 2 * unreadCountTTL

	idempotencyTTL = 24 * time.Hour
	// pendingTTL bounds a reservation whose holder died or never completed
	// it; it exceeds the HTTP write timeout
	pendingTTL = time.Minute

	// pendingMarker is stored under an idempotency key while the first
	// request holding it is still running.
	pendingMarker = "pending"
)

// ErrInFlight reports that another request holds the idempotency key and
// has not finished yet.
var ErrInFlight = errors.New("request with this idempotency key is in flight")

type RedisCache struct {
	Client *redis.Client
}

// NewRedisCache initializes Redis client from config.
// Only Addr is mandatory, Password/DB are optional.
func NewRedisCache(cfg *config.Config) *RedisCache {
	opts := &redis.Options{
		Addr: cfg.Redis.Addr,
	}
	if cfg.Redis.Password != "" {
		opts.Password = cfg.Redis.Password
	}
	if cfg.Redis.DB != 0 {
		opts.DB = cfg.Redis.DB
	}
	return &RedisCache{Client: redis.NewClient(opts)}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.Client.Close()
}

// KeyForUnreadCount generates the Redis key for a user's unread notification count.
func (c *RedisCache) KeyForUnreadCount(userID string) string {
	return fmt.Sprintf("notifications:unread:%s", userID)
}

// KeyForUnreadGeneration is bumped by every write that changes the count.
func (c *RedisCache) KeyForUnreadGeneration(userID string) string {
	return fmt.Sprintf("notifications:unread:gen:%s", userID)
}

// GetUnreadCount returns the cached count; ok is false on a cache miss.
// Reads do not extend the TTL, so a cached value is recomputed at least
// once per unreadCountTTL.
func (c *RedisCache) GetUnreadCount(ctx context.Context, userID string) (count int64, ok bool, err error) {
	val, err := c.Client.Get(ctx, c.KeyForUnreadCount(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	} else if err != nil {
		return 0, false, err
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		// corrupt entry, treat as miss
		return 0, false, nil
	}
	return n, true, nil
}

// UnreadGeneration returns the current write generation of userID's count.
// Read it before counting in the DB and hand it to FillUnreadCount.
func (c *RedisCache) UnreadGeneration(ctx context.Context, userID string) (int64, error) {
	gen, err := c.Client.Get(ctx, c.KeyForUnreadGeneration(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// fillIfCurrent sets KEYS[1] only while the generation in KEYS[2] still
// equals ARGV[1].
var fillIfCurrent = redis.NewScript(`
local gen = redis.call("GET", KEYS[2]) or "0"
if gen ~= ARGV[1] then
	return 0
end
redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
return 1
`)

// FillUnreadCount caches count unless a write bumped the generation since
// gen was read. It reports whether the value was stored.
func (c *RedisCache) FillUnreadCount(ctx context.Context, userID string, gen, count int64) (bool, error) {
	keys := []string{c.KeyForUnreadCount(userID), c.KeyForUnreadGeneration(userID)}
	stored, err := fillIfCurrent.Run(ctx, c.Client, keys,
		strconv.FormatInt(gen, 10), count, unreadCountTTL.Milliseconds()).Int()
	if err != nil {
		return false, err
	}
	return stored == 1, nil
}

// InvalidateUnreadCount drops the cached count and bumps the generation, so
// a DB count taken before the write can no longer be cached.
func (c *RedisCache) InvalidateUnreadCount(ctx context.Context, userIDs ...string) error {
	if len(userIDs) == 0 {
		return nil
	}
	_, err := c.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range userIDs {
			genKey := c.KeyForUnreadGeneration(id)
			pipe.Incr(ctx, genKey)
			pipe.Expire(ctx, genKey, unreadGenerationTTL)
			pipe.Del(ctx, c.KeyForUnreadCount(id))
		}
		return nil
	})
	return err
}

// KeyForIdempotency scopes a client-supplied idempotency key to a user and operation.
func (c *RedisCache) KeyForIdempotency(op, userID, key string) string {
	return fmt.Sprintf("idem:%s:%s:%s", op, userID, key)
}

// ReserveIdempotencyKey claims key for a new request.
//
// Behavior:
//   - Unclaimed key → reserved, returns ("", true, nil); the caller runs the
//     operation and then calls CompleteIdempotencyKey or ReleaseIdempotencyKey.
//   - Key completed earlier → returns (resultID, false, nil).
//   - Key still reserved by a running request → ErrInFlight. A reservation
//     lapses after pendingTTL, after which the key can be claimed again.
func (c *RedisCache) ReserveIdempotencyKey(ctx context.Context, key string) (resultID string, reserved bool, err error) {
	ok, err := c.Client.SetNX(ctx, key, pendingMarker, pendingTTL).Result()
	if err != nil {
		return "", false, err
	}
	if ok {
		return "", true, nil
	}

	val, err := c.Client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		// expired between SETNX and GET; let the caller retry normally
		return "", false, ErrInFlight
	} else if err != nil {
		return "", false, err
	}
	if val == pendingMarker {
		return "", false, ErrInFlight
	}
	return val, false, nil
}

// CompleteIdempotencyKey records the id produced by the reserved request
// and keeps it for idempotencyTTL.
func (c *RedisCache) CompleteIdempotencyKey(ctx context.Context, key, resultID string) error {
	return c.Client.Set(ctx, key, resultID, idempotencyTTL).Err()
}

// ReleaseIdempotencyKey frees a reservation whose request failed.
func (c *RedisCache) ReleaseIdempotencyKey(ctx context.Context, key string) error {
	return c.Client.Del(ctx, key).Err()
}
