package api

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"newsmap/internal/logger"
	"newsmap/internal/metrics"
	"newsmap/internal/model"
	"newsmap/internal/pipeline"
)

const mirrorKey = "newsmap:clusters"

// Runner：一次完整流水线（由 pipeline.Service 实现）
type Runner interface {
	Run(ctx context.Context) (*pipeline.Result, error)
}

// snapshot：最近一次成功运行的聚类结果
type snapshot struct {
	Clusters    []model.Cluster `json:"clusters"`
	GeneratedAt time.Time       `json:"generated_at"`
}

// 文档注释：聚类结果缓存
// 背景：流水线耗时（外部服务限速），接口按 TTL 复用最近一次结果；并发未命中合并为一次运行。
// 约束：
// - 刷新失败时若存在旧结果则返回旧结果，否则返回错误；
// - 成功结果镜像到 Redis（可选），重启后的实例可据此提供旧数据；
// - 运行使用与请求取消解耦的上下文，单个客户端断开不会中断共享运行。
type ClusterCache struct {
	runner Runner
	ttl    time.Duration
	rc     *redis.Client
	now    func() time.Time

	mu   sync.RWMutex
	snap *snapshot
	sf   singleflight.Group
}

// NewClusterCache：rc 可为空
func NewClusterCache(r Runner, ttl time.Duration, rc *redis.Client) *ClusterCache {
	return &ClusterCache{runner: r, ttl: ttl, rc: rc, now: time.Now}
}

func (c *ClusterCache) current() *snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap
}

func (c *ClusterCache) fresh(s *snapshot) bool {
	return s != nil && c.now().Sub(s.GeneratedAt) < c.ttl
}

// Get：返回新鲜缓存或触发刷新；刷新失败时回退到旧结果
func (c *ClusterCache) Get(ctx context.Context) ([]model.Cluster, error) {
	if s := c.current(); c.fresh(s) {
		metrics.APICacheTotal.WithLabelValues("hit").Inc()
		logger.L().Debug("clusters_cache_hit", "age_s", int(c.now().Sub(s.GeneratedAt).Seconds()))
		return s.Clusters, nil
	}
	metrics.APICacheTotal.WithLabelValues("miss").Inc()
	s, err := c.refresh(ctx)
	if err == nil {
		return s.Clusters, nil
	}
	if old := c.current(); old != nil {
		metrics.APICacheTotal.WithLabelValues("stale").Inc()
		logger.L().Warn("clusters_serving_stale", "generated_at", old.GeneratedAt, "err", err)
		return old.Clusters, nil
	}
	metrics.APICacheTotal.WithLabelValues("error").Inc()
	return nil, err
}

// Refresh：无条件运行一次流水线并更新缓存（供定时任务预热）
func (c *ClusterCache) Refresh(ctx context.Context) error {
	_, err := c.refresh(ctx)
	return err
}

func (c *ClusterCache) refresh(ctx context.Context) (*snapshot, error) {
	ch := c.sf.DoChan("clusters", func() (any, error) {
		res, err := c.runner.Run(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		s := &snapshot{Clusters: res.Clusters, GeneratedAt: c.now()}
		if s.Clusters == nil {
			s.Clusters = []model.Cluster{}
		}
		c.mu.Lock()
		c.snap = s
		c.mu.Unlock()
		c.mirror(s)
		return s, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.(*snapshot), nil
	}
}

func (c *ClusterCache) mirror(s *snapshot) {
	if c.rc == nil {
		return
	}
	b, err := json.Marshal(s)
	if err != nil {
		logger.L().Warn("clusters_mirror_encode_error", "clusters", len(s.Clusters), "err", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.rc.Set(ctx, mirrorKey, b, 0).Err(); err != nil {
		logger.L().Warn("clusters_mirror_error", "err", err)
	}
}

// Restore：从 Redis 镜像恢复旧结果；保留原生成时间，因此通常视为过期但可作回退
func (c *ClusterCache) Restore(ctx context.Context) error {
	if c.rc == nil {
		return nil
	}
	b, err := c.rc.Get(ctx, mirrorKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return err
	}
	var s snapshot
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s.Clusters == nil {
		s.Clusters = []model.Cluster{}
	}
	c.mu.Lock()
	if c.snap == nil {
		c.snap = &s
	}
	c.mu.Unlock()
	logger.L().Info("clusters_restored", "clusters", len(s.Clusters), "generated_at", s.GeneratedAt)
	return nil
}

// GeneratedAt：当前缓存的生成时间，无缓存时为零值
func (c *ClusterCache) GeneratedAt() time.Time {
	if s := c.current(); s != nil {
		return s.GeneratedAt
	}
	return time.Time{}
}
