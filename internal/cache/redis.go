package cache

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultOpTimeout = 250 * time.Millisecond
	scanBatch        = 100
)

// RedisCache implements Cache on go-redis. Every call is bounded by opTimeout.
type RedisCache struct {
	client    *redis.Client
	opTimeout time.Duration
}

func NewRedisCache(client *redis.Client, opTimeout time.Duration) *RedisCache {
	if opTimeout <= 0 {
		opTimeout = defaultOpTimeout
	}
	return &RedisCache{client: client, opTimeout: opTimeout}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	val, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		recordMiss()
		return nil, false
	}
	if err != nil {
		c.logFailure("get", key, err)
		recordMiss()
		return nil, false
	}

	recordHit()
	return val, true
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	ctx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		c.logFailure("set", key, err)
		return
	}
	recordSet()
}

func (c *RedisCache) Delete(ctx context.Context, key string) {
	ctx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.logFailure("del", key, err)
	}
}

func (c *RedisCache) DeleteByPattern(ctx context.Context, pattern string) {
	deleted, err := c.deletePattern(ctx, pattern)
	if err != nil {
		c.logFailure("delete_pattern", pattern, err)
		return
	}
	recordInvalidation()
	log.Printf("[cache] invalidated pattern=%s keys=%d", pattern, deleted)
}

func (c *RedisCache) Exists(ctx context.Context, key string) bool {
	ctx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	n, err := c.client.Exists(ctx, key).Result()
	if err != nil {
		c.logFailure("exists", key, err)
		return false
	}
	return n > 0
}

func (c *RedisCache) TTL(ctx context.Context, key string) int64 {
	ctx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	d, err := c.client.TTL(ctx, key).Result()
	if err != nil {
		c.logFailure("ttl", key, err)
		return TTLMissing
	}
	return ttlSeconds(d)
}

// deletePattern walks the keyspace with SCAN rather than KEYS so a large
// keyspace does not block the server. The scan runs to completion before
// anything is deleted, since deleting mid-scan can make the cursor skip keys.
func (c *RedisCache) deletePattern(ctx context.Context, pattern string) (int64, error) {
	var (
		cursor uint64
		keys   []string
	)
	for {
		stepCtx, cancel := context.WithTimeout(ctx, c.opTimeout)
		batch, next, err := c.client.Scan(stepCtx, cursor, pattern, scanBatch).Result()
		cancel()
		if err != nil {
			return 0, err
		}
		keys = append(keys, batch...)

		cursor = next
		if cursor == 0 {
			break
		}
	}

	var deleted int64
	for start := 0; start < len(keys); start += scanBatch {
		end := start + scanBatch
		if end > len(keys) {
			end = len(keys)
		}
		stepCtx, cancel := context.WithTimeout(ctx, c.opTimeout)
		n, err := c.client.Del(stepCtx, keys[start:end]...).Result()
		cancel()
		deleted += n
		if err != nil {
			return deleted, err
		}
	}
	return deleted, nil
}

func (c *RedisCache) logFailure(op, key string, err error) {
	recordError()
	if errors.Is(err, context.DeadlineExceeded) {
		log.Printf("[cache] op=%s key=%s timeout=%s", op, key, c.opTimeout)
		return
	}
	log.Printf("[cache] op=%s key=%s error=%v", op, key, err)
}

func ttlSeconds(d time.Duration) int64 {
	// go-redis passes the -1 and -2 sentinels through unscaled
	switch d {
	case -1:
		return TTLNoExpiry
	case -2:
		return TTLMissing
	}
	if d < 0 {
		return TTLMissing
	}
	return int64(d / time.Second)
}

// Introspection. Unlike the Cache methods these surface backend errors.

type BackendStats struct {
	Keys       int64  `json:"keys"`
	UsedMemory string `json:"used_memory"`
	MaxMemory  string `json:"max_memory"`
}

type KeyInfo struct {
	Key  string `json:"key"`
	Type string `json:"type"`
	TTL  string `json:"ttl"`
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Stats(ctx context.Context) (BackendStats, error) {
	stats := BackendStats{UsedMemory: "unknown", MaxMemory: "unknown"}

	n, err := c.client.DBSize(ctx).Result()
	if err != nil {
		return stats, fmt.Errorf("dbsize: %w", err)
	}
	stats.Keys = n

	// not every server exposes the memory section
	if info, err := c.client.Info(ctx, "memory").Result(); err == nil {
		fields := parseInfo(info)
		if v, ok := fields["used_memory_human"]; ok {
			stats.UsedMemory = v
		}
		if v, ok := fields["maxmemory_human"]; ok {
			stats.MaxMemory = v
		}
	}

	return stats, nil
}

// Keys lists up to limit keys with their type and remaining lifetime.
func (c *RedisCache) Keys(ctx context.Context, limit int) ([]KeyInfo, error) {
	var (
		cursor uint64
		keys   []string
	)
	for len(keys) < limit {
		batch, next, err := c.client.Scan(ctx, cursor, "*", scanBatch).Result()
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			break
		}
	}
	if len(keys) > limit {
		keys = keys[:limit]
	}

	out := make([]KeyInfo, 0, len(keys))
	for _, k := range keys {
		typ, err := c.client.Type(ctx, k).Result()
		if err != nil {
			return nil, fmt.Errorf("type %s: %w", k, err)
		}
		d, err := c.client.TTL(ctx, k).Result()
		if err != nil {
			return nil, fmt.Errorf("ttl %s: %w", k, err)
		}
		out = append(out, KeyInfo{Key: k, Type: typ, TTL: TTLText(ttlSeconds(d))})
	}
	return out, nil
}

// FlushProjects removes every project namespace key and reports how many were removed.
func (c *RedisCache) FlushProjects(ctx context.Context) (int64, error) {
	n, err := c.deletePattern(ctx, ProjectsPattern)
	if err != nil {
		return n, err
	}
	recordInvalidation()
	return n, nil
}

// FlushAll empties the selected redis database.
func (c *RedisCache) FlushAll(ctx context.Context) error {
	return c.client.FlushDB(ctx).Err()
}

func TTLText(seconds int64) string {
	switch seconds {
	case TTLNoExpiry:
		return "never expires"
	case TTLMissing:
		return "does not exist"
	}
	return fmt.Sprintf("%ds", seconds)
}

func parseInfo(info string) map[string]string {
	out := make(map[string]string)
	sc := bufio.NewScanner(strings.NewReader(info))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if k, v, ok := strings.Cut(line, ":"); ok {
			out[k] = v
		}
	}
	return out
}
