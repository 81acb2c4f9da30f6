package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/yourusername/authfence/core"
)

const redisKeyPrefix = "authfence:"

// RedisStore provides Redis-backed storage for fixed windows so several
// processes can share one quota. Each key is a hash with "count" and
// "reset_at" (epoch milliseconds).
type RedisStore struct {
	client redis.UniversalClient
	grace  time.Duration // Extra TTL past the window so Redis expiry never races ResetAt
}

// Ensure RedisStore implements Store interface
var _ Store = (*RedisStore)(nil)

// RedisConfig for creating a Redis store
type RedisConfig struct {
	Addr     string        // Redis address (e.g., "localhost:6379")
	Password string        // Redis password (empty for no auth)
	DB       int           // Redis database number
	Grace    time.Duration // TTL beyond the window (default: 1 second)
}

// NewRedisStore creates a new Redis-backed store
func NewRedisStore(config RedisConfig) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})
	return NewRedisStoreFromClient(client, config.Grace)
}

// NewRedisStoreFromClient wraps an existing client
func NewRedisStoreFromClient(client redis.UniversalClient, grace time.Duration) *RedisStore {
	if grace <= 0 {
		grace = time.Second
	}
	return &RedisStore{
		client: client,
		grace:  grace,
	}
}

// consumeScript applies the fixed window transition atomically.
//
// KEYS[1] = window key
// ARGV[1] = limit
// ARGV[2] = window length in ms
// ARGV[3] = now in epoch ms
// ARGV[4] = TTL in ms
//
// Returns {allowed (0|1), remaining, reset_at}.
var consumeScript = redis.NewScript(`
local key = KEYS[1]
local limit = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local ttl = tonumber(ARGV[4])

local vals = redis.call("HMGET", key, "count", "reset_at")
local count = tonumber(vals[1])
local reset_at = tonumber(vals[2])

if count == nil or reset_at == nil or now > reset_at then
    reset_at = now + window
    redis.call("HSET", key, "count", 1, "reset_at", reset_at)
    redis.call("PEXPIRE", key, ttl)
    local left = limit - 1
    if left < 0 then
        left = 0
    end
    return {1, left, reset_at}
end

if count >= limit then
    return {0, 0, reset_at}
end

count = redis.call("HINCRBY", key, "count", 1)
return {1, limit - count, reset_at}
`)

// Consume runs the fixed window check for key inside Redis
func (s *RedisStore) Consume(ctx context.Context, key string, policy core.Policy, now time.Time) (core.Decision, error) {
	windowMs := policy.Window.Milliseconds()
	ttlMs := (policy.Window + s.grace).Milliseconds()

	res, err := consumeScript.Run(ctx, s.client, []string{redisKey(key)},
		policy.Limit, windowMs, now.UnixMilli(), ttlMs,
	).Int64Slice()
	if err != nil {
		return core.Decision{}, fmt.Errorf("%w: consume: %v", ErrStoreUnavailable, err)
	}
	if len(res) != 3 {
		return core.Decision{}, fmt.Errorf("%w: unexpected script reply length %d", ErrStoreUnavailable, len(res))
	}

	return core.Decision{
		Allowed:   res[0] == 1,
		Remaining: int(res[1]),
		Limit:     policy.Limit,
		ResetAt:   time.UnixMilli(res[2]).In(now.Location()),
	}, nil
}

// Delete removes the window for a given key
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, redisKey(key)).Err(); err != nil {
		return fmt.Errorf("%w: delete: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Clear removes all AuthFence keys from Redis
func (s *RedisStore) Clear(ctx context.Context) error {
	iter := s.client.Scan(ctx, 0, redisKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("%w: clear: %v", ErrStoreUnavailable, err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("%w: scan: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Ping checks if Redis connection is alive
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func redisKey(key string) string {
	return redisKeyPrefix + key
}
