package geocode

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"

	"newsmap/internal/logger"
	"newsmap/internal/model"
)

const redisKeyPrefix = "geocode:"

// 文档注释：Redis 缓存层
// 背景：多实例或重启后共享已解析的地名，避免重复请求外部服务；无过期时间。
// 约束：负缓存以字面量 "null" 存储；客户端为空时该层始终未命中。
type RedisCache struct {
	rc *redis.Client
}

func NewRedisCache(rc *redis.Client) *RedisCache { return &RedisCache{rc: rc} }

func (c *RedisCache) Name() string { return "redis" }

func (c *RedisCache) Get(ctx context.Context, key string) (*model.Coords, bool) {
	if c == nil || c.rc == nil {
		return nil, false
	}
	s, err := c.rc.Get(ctx, redisKeyPrefix+key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.L().Debug("geocode_redis_get_error", "key", key, "err", err)
		}
		return nil, false
	}
	v, ok := decodeEntry(s)
	return v, ok
}

func (c *RedisCache) Set(ctx context.Context, key string, v *model.Coords) {
	if c == nil || c.rc == nil {
		return
	}
	if err := c.rc.Set(ctx, redisKeyPrefix+key, encodeEntry(v), 0).Err(); err != nil {
		logger.L().Debug("geocode_redis_set_error", "key", key, "err", err)
	}
}

// Delete：移除单个地名的缓存
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	if c == nil || c.rc == nil {
		return nil
	}
	return c.rc.Del(ctx, redisKeyPrefix+key).Err()
}

func encodeEntry(v *model.Coords) string {
	if v == nil {
		return "null"
	}
	b, _ := json.Marshal(v)
	return string(b)
}

func decodeEntry(s string) (*model.Coords, bool) {
	if s == "null" {
		return nil, true
	}
	var c model.Coords
	if err := json.Unmarshal([]byte(s), &c); err != nil {
		return nil, false
	}
	return &c, true
}

// GeocodeStore：持久化地理编码结果的存储（由 store 包的 PostgreSQL 实现提供）
type GeocodeStore interface {
	GetGeocode(ctx context.Context, key string) (*model.Coords, bool, error)
	PutGeocode(ctx context.Context, key string, c *model.Coords) error
}

// StoreCache：以 GeocodeStore 为后端的缓存层
type StoreCache struct {
	st GeocodeStore
}

func NewStoreCache(st GeocodeStore) *StoreCache { return &StoreCache{st: st} }

func (c *StoreCache) Name() string { return "postgres" }

func (c *StoreCache) Get(ctx context.Context, key string) (*model.Coords, bool) {
	if c == nil || c.st == nil {
		return nil, false
	}
	v, ok, err := c.st.GetGeocode(ctx, key)
	if err != nil {
		logger.L().Debug("geocode_store_get_error", "key", key, "err", err)
		return nil, false
	}
	return v, ok
}

func (c *StoreCache) Set(ctx context.Context, key string, v *model.Coords) {
	if c == nil || c.st == nil {
		return
	}
	if err := c.st.PutGeocode(ctx, key, v); err != nil {
		logger.L().Debug("geocode_store_put_error", "key", key, "err", err)
	}
}
