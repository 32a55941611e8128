// Package cache is a loss-tolerant key/value cache in front of the project store.
//
// Cache operations never return errors. A backend failure degrades to the safe
// default for the call (miss, no-op, false, -2) and is only visible in logs and
// metrics, so a cache outage can never turn into a failed read.
package cache

import (
	"context"
	"time"
)

const (
	// TTLNoExpiry is returned by TTL for a key that never expires.
	TTLNoExpiry int64 = -1
	// TTLMissing is returned by TTL for an absent key or on backend failure.
	TTLMissing int64 = -2
)

type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	Delete(ctx context.Context, key string)
	DeleteByPattern(ctx context.Context, pattern string)
	Exists(ctx context.Context, key string) bool
	// TTL returns the remaining lifetime in seconds, TTLNoExpiry or TTLMissing.
	TTL(ctx context.Context, key string) int64
}

// Nop is used when no cache backend is configured; every read misses.
type Nop struct{}

func (Nop) Get(context.Context, string) ([]byte, bool)         { return nil, false }
func (Nop) Set(context.Context, string, []byte, time.Duration) {}
func (Nop) Delete(context.Context, string)                     {}
func (Nop) DeleteByPattern(context.Context, string)            {}
func (Nop) Exists(context.Context, string) bool                { return false }
func (Nop) TTL(context.Context, string) int64                  { return TTLMissing }
