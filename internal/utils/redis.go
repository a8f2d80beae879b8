// 包 utils：数据库与 Redis 连接工具
package utils

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"newsmap/internal/logger"
)

// OpenRedis：打开 Redis 客户端并探活；addr 为空时返回 nil
// 约束：探活失败时关闭客户端并返回错误，调用方按“未启用”处理
func OpenRedis(ctx context.Context, addr, pass string, db int) (*redis.Client, error) {
	if addr == "" {
		return nil, nil
	}
	rc := redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db})
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, err
	}
	logger.L().Debug("redis_open_ok", "addr", addr, "db", db)
	return rc, nil
}
