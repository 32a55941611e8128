package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type page struct {
	Names []string
	Total int64
}

func TestGetValue_SetValue(t *testing.T) {
	c, _ := setupTestRedis(t)
	ctx := context.Background()
	key := ListKey(1, 10, "road")

	_, ok := GetValue[page](ctx, c, key)
	assert.False(t, ok)

	SetValue(ctx, c, key, page{Names: []string{"Road A"}, Total: 1}, time.Minute)

	got, ok := GetValue[page](ctx, c, key)
	require.True(t, ok)
	assert.Equal(t, []string{"Road A"}, got.Names)
	assert.Equal(t, int64(1), got.Total)
}

func TestGetValue_DropsUndecodable(t *testing.T) {
	c, mr := setupTestRedis(t)
	ctx := context.Background()
	require.NoError(t, mr.Set(StatsKey(), "\xc1"))

	_, ok := GetValue[page](ctx, c, StatsKey())

	assert.False(t, ok)
	assert.False(t, mr.Exists(StatsKey()))
}

func TestNop(t *testing.T) {
	ctx := context.Background()
	var c Cache = Nop{}

	c.Set(ctx, "k", []byte("v"), time.Minute)
	_, ok := c.Get(ctx, "k")

	assert.False(t, ok)
	assert.False(t, c.Exists(ctx, "k"))
	assert.Equal(t, TTLMissing, c.TTL(ctx, "k"))
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "projects:page:2:size:20:search:road", ListKey(2, 20, " road "))
	assert.Equal(t, "project:12", ProjectKey(12))
	assert.Equal(t, "projects:stats", StatsKey())
}
