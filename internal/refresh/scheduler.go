// 包 refresh：按计划在后台预热聚类缓存，运行在服务进程内
package refresh

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"newsmap/internal/logger"
)

// Refresher：被调度的刷新动作（由 api.ClusterCache 实现）
type Refresher interface {
	Refresh(ctx context.Context) error
}

// 文档注释：缓存预热调度器
// 背景：用户请求命中已预热的缓存，避免首个请求等待整条流水线；错误由日志记录，任务继续调度。
// 约束：表达式使用标准五段 cron 或 @every 描述符；上一次运行未结束时跳过本次触发。
type Scheduler struct {
	cron    *cron.Cron
	r       Refresher
	timeout time.Duration
	entryID cron.EntryID
}

// New：timeout <= 0 时单次刷新不设上限
func New(r Refresher, timeout time.Duration) *Scheduler {
	return &Scheduler{r: r, timeout: timeout}
}

// Schedule：注册计划；重复调用会替换之前的计划
func (s *Scheduler) Schedule(expr string) error {
	if s.cron != nil {
		s.cron.Stop()
	}
	s.cron = cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	id, err := s.cron.AddFunc(expr, s.runOnce)
	if err != nil {
		s.cron = nil
		return fmt.Errorf("refresh schedule %q: %w", expr, err)
	}
	s.entryID = id
	return nil
}

func (s *Scheduler) runOnce() {
	l := logger.L()
	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	t0 := time.Now()
	l.Info("refresh_start")
	if err := s.r.Refresh(ctx); err != nil {
		l.Error("refresh_error", "err", err, "duration_ms", time.Since(t0).Milliseconds())
		return
	}
	l.Info("refresh_done", "duration_ms", time.Since(t0).Milliseconds(), "next", s.Next())
}

// Next：下一次触发时间；未调度时为零值
func (s *Scheduler) Next() time.Time {
	if s.cron == nil {
		return time.Time{}
	}
	return s.cron.Entry(s.entryID).Next
}

func (s *Scheduler) Start() {
	if s.cron != nil {
		s.cron.Start()
	}
}

// Stop：停止调度并等待正在运行的刷新结束
func (s *Scheduler) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
}
