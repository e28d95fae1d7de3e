package rag

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheKeyStability(t *testing.T) {
	key := CacheKey("  Есть ли   баня?  ", "general", "контекст", 500)

	assert.Len(t, key, 32)
	// Whitespace and case normalization collapse into the same key.
	assert.Equal(t, key, CacheKey("есть ли баня?", "general", "контекст", 500))

	assert.NotEqual(t, key, CacheKey("есть ли баня?", "lodging", "контекст", 500))
	assert.NotEqual(t, key, CacheKey("есть ли баня?", "general", "другой контекст", 500))
}

func TestMemoryCacheRoundTrip(t *testing.T) {
	cache := NewMemoryAnswerCache(8, time.Minute, 500)
	ctx := context.Background()

	_, _, ok := cache.Get(ctx, "вопрос", "general", "контекст")
	assert.False(t, ok)

	cache.Set(ctx, "вопрос", "general", "контекст", "ответ", map[string]any{"hits_total": 5})

	answer, debug, ok := cache.Get(ctx, "вопрос", "general", "контекст")
	require.True(t, ok)
	assert.Equal(t, "ответ", answer)
	assert.Equal(t, 5, debug["hits_total"])

	stats := cache.Stats()
	assert.Equal(t, "memory", stats["backend"])
	assert.Equal(t, 1, stats["hits"])
	assert.Equal(t, 1, stats["misses"])
}

func TestMemoryCacheTTLExpiry(t *testing.T) {
	cache := NewMemoryAnswerCache(8, 10*time.Millisecond, 500)
	ctx := context.Background()

	cache.Set(ctx, "вопрос", "general", "", "ответ", nil)
	time.Sleep(25 * time.Millisecond)

	_, _, ok := cache.Get(ctx, "вопрос", "general", "")
	assert.False(t, ok)
}

func TestMemoryCacheLRUEviction(t *testing.T) {
	cache := NewMemoryAnswerCache(2, time.Minute, 500)
	ctx := context.Background()

	cache.Set(ctx, "q1", "general", "", "a1", nil)
	cache.Set(ctx, "q2", "general", "", "a2", nil)

	// Touch q1 so q2 becomes the eviction candidate.
	_, _, ok := cache.Get(ctx, "q1", "general", "")
	require.True(t, ok)

	cache.Set(ctx, "q3", "general", "", "a3", nil)

	_, _, ok = cache.Get(ctx, "q1", "general", "")
	assert.True(t, ok)
	_, _, ok = cache.Get(ctx, "q2", "general", "")
	assert.False(t, ok)
	_, _, ok = cache.Get(ctx, "q3", "general", "")
	assert.True(t, ok)
}

func TestMemoryCacheInvalidateAndClear(t *testing.T) {
	cache := NewMemoryAnswerCache(8, time.Minute, 500)
	ctx := context.Background()

	cache.Set(ctx, "q1", "general", "", "a1", nil)
	assert.True(t, cache.Invalidate(ctx, "q1", "general", ""))
	assert.False(t, cache.Invalidate(ctx, "q1", "general", ""))

	for i := 0; i < 3; i++ {
		cache.Set(ctx, fmt.Sprintf("q%d", i), "general", "", "a", nil)
	}
	assert.Equal(t, 3, cache.Clear(ctx))
	assert.Equal(t, 0, cache.Stats()["size"])
}
