package cache

import (
	"context"
	"log"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// GetValue reads key and decodes it into T. Undecodable entries are dropped and reported as a miss.
func GetValue[T any](ctx context.Context, c Cache, key string) (T, bool) {
	var out T

	raw, ok := c.Get(ctx, key)
	if !ok {
		return out, false
	}

	if err := msgpack.Unmarshal(raw, &out); err != nil {
		log.Printf("[cache] decode failed key=%s error=%v", key, err)
		recordError()
		c.Delete(ctx, key)
		var zero T
		return zero, false
	}
	return out, true
}

// SetValue encodes v and stores it under key.
func SetValue(ctx context.Context, c Cache, key string, v interface{}, ttl time.Duration) {
	raw, err := msgpack.Marshal(v)
	if err != nil {
		log.Printf("[cache] encode failed key=%s error=%v", key, err)
		recordError()
		return
	}
	c.Set(ctx, key, raw, ttl)
}
