package rag

import (
	"container/list"
	"context"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"usadba/config"
	"usadba/utils"
)

// AnswerCache stores generated answers keyed by normalized query, intent and
// a hash of the retrieval context.
type AnswerCache interface {
	Get(ctx context.Context, query, intent, context string) (string, map[string]any, bool)
	Set(ctx context.Context, query, intent, context, answer string, debug map[string]any)
	Invalidate(ctx context.Context, query, intent, context string) bool
	Clear(ctx context.Context) int
	Stats() map[string]any
}

// CacheKey derives the cache key: normalized query, intent, and an md5 prefix
// of the leading context characters, hashed together.
func CacheKey(query, intent, contextText string, contextHashLength int) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(query))), " ")

	snippet := contextText
	if contextHashLength > 0 && len(snippet) > contextHashLength {
		snippet = snippet[:contextHashLength]
	}
	contextHash := md5.Sum([]byte(snippet))
	contextPart := hex.EncodeToString(contextHash[:])[:12]

	keyString := normalized + "|" + intent + "|" + contextPart
	digest := sha256.Sum256([]byte(keyString))
	return hex.EncodeToString(digest[:])[:32]
}

// NewAnswerCache picks the Redis-backed cache when configured for shared
// instances, the in-memory LRU otherwise.
func NewAnswerCache(cfg config.Config, client *redis.Client) AnswerCache {
	if cfg.UseRedisCache && client != nil {
		return NewRedisAnswerCache(client, cfg)
	}
	return NewMemoryAnswerCache(cfg.LLMCacheSize, cfg.CacheTTL(), cfg.ContextHashSize)
}

// --- in-memory LRU -----------------------------------------------------

type memoryCacheEntry struct {
	key      string
	answer   string
	debug    map[string]any
	storedAt time.Time
}

// memoryAnswerCache is a bounded LRU with TTL enforced on read.
type memoryAnswerCache struct {
	mu          sync.Mutex
	entries     map[string]*list.Element
	order       *list.List
	maxSize     int
	ttl         time.Duration
	contextHash int
	hits        int
	misses      int
}

// NewMemoryAnswerCache builds the in-process cache.
func NewMemoryAnswerCache(maxSize int, ttl time.Duration, contextHashLength int) AnswerCache {
	if maxSize <= 0 {
		maxSize = 512
	}
	return &memoryAnswerCache{
		entries:     map[string]*list.Element{},
		order:       list.New(),
		maxSize:     maxSize,
		ttl:         ttl,
		contextHash: contextHashLength,
	}
}

func (c *memoryAnswerCache) Get(_ context.Context, query, intent, contextText string) (string, map[string]any, bool) {
	key := CacheKey(query, intent, contextText, c.contextHash)
	c.mu.Lock()
	defer c.mu.Unlock()

	element, ok := c.entries[key]
	if !ok {
		c.misses++
		return "", nil, false
	}
	entry := element.Value.(*memoryCacheEntry)
	if c.ttl > 0 && time.Since(entry.storedAt) > c.ttl {
		c.order.Remove(element)
		delete(c.entries, key)
		c.misses++
		return "", nil, false
	}
	c.order.MoveToFront(element)
	c.hits++
	return entry.answer, entry.debug, true
}

func (c *memoryAnswerCache) Set(_ context.Context, query, intent, contextText, answer string, debug map[string]any) {
	key := CacheKey(query, intent, contextText, c.contextHash)
	c.mu.Lock()
	defer c.mu.Unlock()

	if element, ok := c.entries[key]; ok {
		entry := element.Value.(*memoryCacheEntry)
		entry.answer = answer
		entry.debug = debug
		entry.storedAt = time.Now()
		c.order.MoveToFront(element)
		return
	}
	element := c.order.PushFront(&memoryCacheEntry{
		key:      key,
		answer:   answer,
		debug:    debug,
		storedAt: time.Now(),
	})
	c.entries[key] = element

	for c.order.Len() > c.maxSize {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*memoryCacheEntry).key)
	}
}

func (c *memoryAnswerCache) Invalidate(_ context.Context, query, intent, contextText string) bool {
	key := CacheKey(query, intent, contextText, c.contextHash)
	c.mu.Lock()
	defer c.mu.Unlock()
	element, ok := c.entries[key]
	if !ok {
		return false
	}
	c.order.Remove(element)
	delete(c.entries, key)
	return true
}

func (c *memoryAnswerCache) Clear(context.Context) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	count := len(c.entries)
	c.entries = map[string]*list.Element{}
	c.order.Init()
	c.hits = 0
	c.misses = 0
	return count
}

func (c *memoryAnswerCache) Stats() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := c.hits + c.misses
	hitRate := 0.0
	if total > 0 {
		hitRate = float64(c.hits) / float64(total) * 100
	}
	return map[string]any{
		"backend":          "memory",
		"size":             len(c.entries),
		"max_size":         c.maxSize,
		"hits":             c.hits,
		"misses":           c.misses,
		"hit_rate_percent": hitRate,
		"ttl_seconds":      int(c.ttl.Seconds()),
	}
}

// --- Redis-backed ------------------------------------------------------

const redisCachePrefix = "u4s:llm_cache:"

type redisCachePayload struct {
	Answer string         `json:"answer"`
	Debug  map[string]any `json:"debug_info"`
}

// redisAnswerCache shares the cache between instances; TTL enforcement is
// delegated to Redis key expiry.
type redisAnswerCache struct {
	client      *redis.Client
	ttl         time.Duration
	contextHash int
	logger      *zap.Logger

	mu     sync.Mutex
	hits   int
	misses int
}

// NewRedisAnswerCache builds the shared cache.
func NewRedisAnswerCache(client *redis.Client, cfg config.Config) AnswerCache {
	return &redisAnswerCache{
		client:      client,
		ttl:         cfg.CacheTTL(),
		contextHash: cfg.ContextHashSize,
		logger:      utils.GetLogger(),
	}
}

func (c *redisAnswerCache) Get(ctx context.Context, query, intent, contextText string) (string, map[string]any, bool) {
	key := redisCachePrefix + CacheKey(query, intent, contextText, c.contextHash)
	raw, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("redis answer cache get failed", zap.Error(err))
		}
		c.count(false)
		return "", nil, false
	}
	var payload redisCachePayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		c.logger.Warn("failed to decode redis answer cache entry", zap.Error(err))
		c.count(false)
		return "", nil, false
	}
	c.count(true)
	return payload.Answer, payload.Debug, true
}

func (c *redisAnswerCache) Set(ctx context.Context, query, intent, contextText, answer string, debug map[string]any) {
	key := redisCachePrefix + CacheKey(query, intent, contextText, c.contextHash)
	raw, err := json.Marshal(redisCachePayload{Answer: answer, Debug: debug})
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("redis answer cache set failed", zap.Error(err))
	}
}

func (c *redisAnswerCache) Invalidate(ctx context.Context, query, intent, contextText string) bool {
	key := redisCachePrefix + CacheKey(query, intent, contextText, c.contextHash)
	deleted, err := c.client.Del(ctx, key).Result()
	if err != nil {
		c.logger.Warn("redis answer cache invalidate failed", zap.Error(err))
		return false
	}
	return deleted > 0
}

func (c *redisAnswerCache) Clear(ctx context.Context) int {
	removed := 0
	iter := c.client.Scan(ctx, 0, redisCachePrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err == nil {
			removed++
		}
	}
	if err := iter.Err(); err != nil {
		c.logger.Warn("redis answer cache clear failed", zap.Error(err))
	}
	c.mu.Lock()
	c.hits = 0
	c.misses = 0
	c.mu.Unlock()
	return removed
}

func (c *redisAnswerCache) Stats() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := c.hits + c.misses
	hitRate := 0.0
	if total > 0 {
		hitRate = float64(c.hits) / float64(total) * 100
	}
	return map[string]any{
		"backend":          "redis",
		"hits":             c.hits,
		"misses":           c.misses,
		"hit_rate_percent": hitRate,
		"ttl_seconds":      int(c.ttl.Seconds()),
	}
}

func (c *redisAnswerCache) count(hit bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if hit {
		c.hits++
	} else {
		c.misses++
	}
}
