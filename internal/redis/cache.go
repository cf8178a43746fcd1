package redis

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/eaglebank/accounts/internal/logger"
)

// versionTTL outlives any in-flight read; a version key that expires resets
// to 0, which only makes older fills fail.
const versionTTL = 24 * time.Hour

// setIfVersion writes KEYS[1] only while the version stored at KEYS[2] still
// equals ARGV[1]. A missing version counts as 0.
var setIfVersion = goredis.NewScript(`
local current = redis.call('GET', KEYS[2])
if (current or '0') ~= ARGV[1] then
	return 0
end
if tonumber(ARGV[3]) > 0 then
	redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
else
	redis.call('SET', KEYS[1], ARGV[2])
end
return 1
`)

// ViewCache is a JSON-backed Redis cache for read model projections of type
// T. Every key has a companion version key that Invalidate bumps, and fills
// are conditional on that version, so a read that raced a write cannot put
// the old projection back. A ttl of 0 stores keys without expiry.
//
// Keys should carry a hash tag ({...}) so the value and its version land in
// the same cluster slot.
type ViewCache[T any] struct {
	client goredis.Cmdable
	ttl    time.Duration
	log    *logger.Logger
}

func NewViewCache[T any](client goredis.Cmdable, ttl time.Duration, log *logger.Logger) *ViewCache[T] {
	return &ViewCache[T]{client: client, ttl: ttl, log: log}
}

func versionKey(key string) string { return key + ":version" }

// Get returns (nil, false) on a miss, a Redis error, or a value that no
// longer decodes into T.
func (c *ViewCache[T]) Get(ctx context.Context, key string) (*T, bool) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			c.log.Warn("view cache read failed", "key", key, "error", err)
		}
		return nil, false
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		c.log.Warn("view cache entry undecodable", "key", key, "error", err)
		return nil, false
	}
	return &v, true
}

// Version returns the invalidation count of key. ok is false when Redis
// cannot answer; the caller must then skip the fill.
func (c *ViewCache[T]) Version(ctx context.Context, key string) (int64, bool) {
	v, err := c.client.Get(ctx, versionKey(key)).Int64()
	if errors.Is(err, goredis.Nil) {
		return 0, true
	}
	if err != nil {
		c.log.Warn("view cache version read failed", "key", key, "error", err)
		return 0, false
	}
	return v, true
}

// SetIfVersion stores value under key unless key was invalidated since
// version was read. Write failures are logged, never returned: the store
// remains the source of truth.
func (c *ViewCache[T]) SetIfVersion(ctx context.Context, key string, version int64, value *T) bool {
	data, err := json.Marshal(value)
	if err != nil {
		c.log.Warn("view cache marshal failed", "key", key, "error", err)
		return false
	}
	stored, err := setIfVersion.Run(ctx, c.client,
		[]string{key, versionKey(key)},
		strconv.FormatInt(version, 10), data, c.ttl.Milliseconds(),
	).Int()
	if err != nil {
		c.log.Warn("view cache write failed", "key", key, "error", err)
		return false
	}
	return stored == 1
}

// Invalidate bumps the version of each key and drops its value in one
// transaction.
func (c *ViewCache[T]) Invalidate(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	_, err := c.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		for _, key := range keys {
			pipe.Incr(ctx, versionKey(key))
			pipe.Expire(ctx, versionKey(key), versionTTL)
			pipe.Del(ctx, key)
		}
		return nil
	})
	if err != nil {
		c.log.Warn("view cache invalidate failed", "keys", keys, "error", err)
	}
}
