package geocode

import (
	"context"
	"strings"
	"sync"

	"newsmap/internal/metrics"
	"newsmap/internal/model"
)

// 文档注释：地理编码缓存接口
// 背景：地名到坐标的映射不随时间变化，缓存只增不减；nil 坐标表示“已知无法解析”的负缓存。
// 约束：Get 第二返回值表示是否命中（含负缓存）；远端实现出错时按未命中处理，不向上抛错。
type Cache interface {
	Name() string
	Get(ctx context.Context, key string) (*model.Coords, bool)
	Set(ctx context.Context, key string, c *model.Coords)
}

// CacheKey：缓存键为小写地名
func CacheKey(placeName string) string { return strings.ToLower(placeName) }

// MemoryCache：进程内缓存，永不淘汰
type MemoryCache struct {
	mu sync.RWMutex
	m  map[string]*model.Coords
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{m: make(map[string]*model.Coords)}
}

func (c *MemoryCache) Name() string { return "memory" }

func (c *MemoryCache) Get(_ context.Context, key string) (*model.Coords, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.m[key]
	if !ok || v == nil {
		return nil, ok
	}
	cp := *v
	return &cp, true
}

func (c *MemoryCache) Set(_ context.Context, key string, v *model.Coords) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v == nil {
		c.m[key] = nil
		return
	}
	cp := *v
	c.m[key] = &cp
}

// Len：当前条目数（含负缓存）
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}

// 文档注释：分层缓存
// 背景：按顺序读取各层（内存 → Redis → PostgreSQL），较慢层命中时回填较快层；写入同时落到所有层。
// 约束：nil 层被跳过，便于按配置可选启用远端层。
type ChainCache struct {
	tiers []Cache
}

func NewChainCache(tiers ...Cache) *ChainCache {
	var list []Cache
	for _, t := range tiers {
		if t != nil {
			list = append(list, t)
		}
	}
	return &ChainCache{tiers: list}
}

func (c *ChainCache) Name() string { return "chain" }

func (c *ChainCache) Get(ctx context.Context, key string) (*model.Coords, bool) {
	for i, t := range c.tiers {
		if v, ok := t.Get(ctx, key); ok {
			metrics.GeocodeCacheHitsTotal.WithLabelValues(t.Name()).Inc()
			for j := 0; j < i; j++ {
				c.tiers[j].Set(ctx, key, v)
			}
			return v, true
		}
	}
	metrics.GeocodeCacheMissesTotal.Inc()
	return nil, false
}

func (c *ChainCache) Set(ctx context.Context, key string, v *model.Coords) {
	for _, t := range c.tiers {
		t.Set(ctx, key, v)
	}
}
