package websearch

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ResultCache 搜索结果缓存，按查询键做 TTL 缓存，减少对外部提供方的调用。
type ResultCache interface {
	Get(ctx context.Context, key string) ([]Result, bool)
	Set(ctx context.Context, key string, results []Result, ttl time.Duration)
}

// ====== 内存实现 ======

type memoryEntry struct {
	results   []Result
	expiresAt time.Time
}

// MemoryCache 进程内 TTL 缓存。
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryCache 创建内存缓存。
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// Get 实现 ResultCache。过期条目当作未命中并顺手清除。
func (c *MemoryCache) Get(_ context.Context, key string) ([]Result, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}
	if c.now().After(e.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, false
	}
	return e.results, true
}

// Set 实现 ResultCache。
func (c *MemoryCache) Set(_ context.Context, key string, results []Result, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	c.mu.Lock()
	c.entries[key] = memoryEntry{results: results, expiresAt: c.now().Add(ttl)}
	c.mu.Unlock()
}

// ====== Redis 实现 ======

// RedisCache 基于 go-redis 的共享缓存，多副本部署时共用搜索结果。
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache 创建 Redis 缓存。
func NewRedisCache(client *redis.Client, prefix string) *RedisCache {
	if prefix == "" {
		prefix = "websearch:"
	}
	return &RedisCache{client: client, prefix: prefix}
}

// Get 实现 ResultCache。Redis 故障和反序列化失败都按未命中处理。
func (c *RedisCache) Get(ctx context.Context, key string) ([]Result, bool) {
	raw, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		return nil, false
	}
	var results []Result
	if err := json.Unmarshal(raw, &results); err != nil {
		return nil, false
	}
	return results, true
}

// Set 实现 ResultCache。写失败静默忽略，缓存只是优化。
func (c *RedisCache) Set(ctx context.Context, key string, results []Result, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	raw, err := json.Marshal(results)
	if err != nil {
		return
	}
	c.client.Set(ctx, c.prefix+key, raw, ttl)
}
