package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRedisOpTimeout = 200 * time.Millisecond

// RedisStore is a CounterStore shared across processes. Each key is a Redis
// hash with fields "count", "window_start" and "window_expires_at"; the
// compare-and-swap runs server-side as a Lua script so two engine instances
// can never both win the same swap. A TTL on the hash keeps Redis from
// accumulating idle keys.
type RedisStore struct {
	client    *redis.Client
	opTimeout time.Duration
}

var _ CounterStore = (*RedisStore)(nil)

// NewRedisStore wraps client with the default per-operation timeout.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, opTimeout: defaultRedisOpTimeout}
}

// NewRedisStoreWithTimeout wraps client with an explicit per-operation
// timeout. Timeouts must stay short: a stalled round trip holds up the
// request it is admitting.
func NewRedisStoreWithTimeout(client *redis.Client, opTimeout time.Duration) *RedisStore {
	if opTimeout <= 0 {
		opTimeout = defaultRedisOpTimeout
	}
	return &RedisStore{client: client, opTimeout: opTimeout}
}

// casScript swaps the stored record only when the stored (count,
// window_start) pair still matches the caller's snapshot. An absent key
// matches the zero snapshot.
//
// KEYS[1] = counter key
// ARGV[1] = expected count
// ARGV[2] = expected window_start (unix nanos)
// ARGV[3] = next count
// ARGV[4] = next window_start (unix nanos)
// ARGV[5] = next window_expires_at (unix nanos)
// ARGV[6] = ttl in seconds
var casScript = redis.NewScript(`
local count = redis.call("HGET", KEYS[1], "count")
local start = redis.call("HGET", KEYS[1], "window_start")
if not count then count = "0" end
if not start then start = "0" end
if count ~= ARGV[1] or start ~= ARGV[2] then
    return 0
end
redis.call("HSET", KEYS[1], "count", ARGV[3], "window_start", ARGV[4], "window_expires_at", ARGV[5])
local ttl = tonumber(ARGV[6])
if ttl > 0 then
    redis.call("EXPIRE", KEYS[1], ttl)
end
return 1
`)

func (s *RedisStore) Get(ctx context.Context, key string) (CounterRecord, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()
	vals, err := s.client.HGetAll(ctx, redisKey(key)).Result()
	if err != nil {
		return CounterRecord{}, false, fmt.Errorf("redis counter get: %w", err)
	}
	if len(vals) == 0 {
		return CounterRecord{}, false, nil
	}
	rec, err := recordFromHash(vals)
	if err != nil {
		return CounterRecord{}, false, err
	}
	return rec, true, nil
}

func (s *RedisStore) CompareAndSwap(ctx context.Context, key string, prev, next CounterRecord) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()
	ttl := int64(time.Until(next.WindowExpiresAt).Seconds()) + 1
	res, err := casScript.Run(ctx, s.client, []string{redisKey(key)},
		strconv.Itoa(prev.Count),
		strconv.FormatInt(unixNanoOrZero(prev.WindowStart), 10),
		strconv.Itoa(next.Count),
		strconv.FormatInt(next.WindowStart.UnixNano(), 10),
		strconv.FormatInt(next.WindowExpiresAt.UnixNano(), 10),
		strconv.FormatInt(ttl, 10),
	).Int64()
	if err != nil {
		return false, fmt.Errorf("redis counter cas: %w", err)
	}
	return res == 1, nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()
	if err := s.client.Del(ctx, redisKey(key)).Err(); err != nil {
		return fmt.Errorf("redis counter delete: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error { return s.client.Close() }

func recordFromHash(vals map[string]string) (CounterRecord, error) {
	count, err := strconv.Atoi(vals["count"])
	if err != nil {
		return CounterRecord{}, fmt.Errorf("redis counter parse count: %w", err)
	}
	start, err := strconv.ParseInt(vals["window_start"], 10, 64)
	if err != nil {
		return CounterRecord{}, fmt.Errorf("redis counter parse window_start: %w", err)
	}
	expires, err := strconv.ParseInt(vals["window_expires_at"], 10, 64)
	if err != nil {
		return CounterRecord{}, fmt.Errorf("redis counter parse window_expires_at: %w", err)
	}
	return CounterRecord{
		Count:           count,
		WindowStart:     time.Unix(0, start).UTC(),
		WindowExpiresAt: time.Unix(0, expires).UTC(),
	}, nil
}

func unixNanoOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func redisKey(key string) string {
	return "paginas:rl:" + key
}
