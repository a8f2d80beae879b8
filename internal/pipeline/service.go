// 包 pipeline：一次完整运行（抓取 → 定位 → 聚类 → 记录）
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"newsmap/internal/cluster"
	"newsmap/internal/feed"
	"newsmap/internal/logger"
	"newsmap/internal/metrics"
	"newsmap/internal/model"
	"newsmap/internal/store"
)

// ErrNoArticles：抓取阶段没有产出任何文章（整批失败）
var ErrNoArticles = errors.New("no articles fetched")

// Scraper：新闻源抓取（由 feed.Scraper 实现）
type Scraper interface {
	Scrape(ctx context.Context, sources []feed.SourceConfig) []model.Article
}

// RunRecorder：运行记录持久化（由 store.Store 实现）
type RunRecorder interface {
	RecordRun(ctx context.Context, r store.Run) error
}

// Result：一次运行的产出
type Result struct {
	RunID       string
	GeneratedAt time.Time
	Duration    time.Duration
	Articles    int
	Located     int
	Clusters    []model.Cluster
}

// 文档注释：流水线服务
// 背景：由 API 缓存刷新与定时任务共用；Store 可为空（未启用数据库）。
// 约束：Run 不并发调用外部服务；记录失败只写日志，不影响返回结果。
type Service struct {
	Scraper Scraper
	Builder *cluster.Builder
	Sources []feed.SourceConfig
	Store   RunRecorder
}

// Run：执行一次完整流水线
func (s *Service) Run(ctx context.Context) (*Result, error) {
	t0 := time.Now()
	res := &Result{RunID: uuid.NewString(), GeneratedAt: t0, Clusters: []model.Cluster{}}
	l := logger.L().With("run_id", res.RunID)
	l.Info("pipeline_start", "sources", len(s.Sources))

	articles := s.Scraper.Scrape(ctx, s.Sources)
	res.Articles = len(articles)
	if len(articles) == 0 {
		res.Duration = time.Since(t0)
		s.record(ctx, res, ErrNoArticles)
		l.Warn("pipeline_no_articles")
		return nil, ErrNoArticles
	}

	located := s.Builder.Locate(ctx, articles)
	res.Located = len(located)
	res.Clusters = s.Builder.Group(located)
	res.Duration = time.Since(t0)
	metrics.ClustersCurrent.Set(float64(len(res.Clusters)))

	var err error
	if ctx.Err() != nil {
		err = ctx.Err()
	}
	s.record(ctx, res, err)
	if err != nil {
		l.Warn("pipeline_cancelled", "err", err)
		return nil, err
	}
	l.Info("pipeline_done", "articles", res.Articles, "located", res.Located, "clusters", len(res.Clusters), "duration_ms", res.Duration.Milliseconds())
	return res, nil
}

func (s *Service) record(ctx context.Context, res *Result, runErr error) {
	status := "ok"
	msg := ""
	if runErr != nil {
		status, msg = "failed", runErr.Error()
		if errors.Is(runErr, ErrNoArticles) {
			status = "empty"
		}
	}
	metrics.PipelineRunsTotal.WithLabelValues(status).Inc()
	metrics.PipelineDurationMs.Observe(float64(res.Duration.Milliseconds()))
	if s.Store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	err := s.Store.RecordRun(ctx, store.Run{
		ID:         res.RunID,
		StartedAt:  res.GeneratedAt,
		DurationMs: res.Duration.Milliseconds(),
		Articles:   res.Articles,
		Located:    res.Located,
		Clusters:   len(res.Clusters),
		Status:     status,
		Error:      msg,
	})
	if err != nil {
		logger.L().Warn("run_record_error", "run_id", res.RunID, "err", err)
	}
}
