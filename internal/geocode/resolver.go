package geocode

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"newsmap/internal/logger"
	"newsmap/internal/metrics"
	"newsmap/internal/model"
)

// DefaultSuffix：查询时追加的国家后缀
const DefaultSuffix = ", Singapore"

// Options：解析器节流与重试参数
type Options struct {
	// MinInterval 为两次外部请求的最小间隔，为零时不限速
	MinInterval time.Duration
	// MaxAttempts 为超时类错误的最大尝试次数，<=0 时取 3
	MaxAttempts int
	// BackoffStep 为第 n 次失败后等待 n*BackoffStep，为零时不等待
	BackoffStep time.Duration
	// Suffix 为空时取 DefaultSuffix
	Suffix string
}

// DefaultOptions：公共 Nominatim 服务的使用政策（每秒至多一次）
func DefaultOptions() Options {
	return Options{MinInterval: time.Second, MaxAttempts: 3, BackoffStep: 2 * time.Second, Suffix: DefaultSuffix}
}

// 文档注释：带缓存、限速与有界重试的地名解析器
// 背景：外部服务有速率限制且偶发超时；同一地名在一次运行中可能被多篇文章引用。
// 约束：
// - 每个地名的最终结果（成功、无结果、重试耗尽、服务错误）都写入缓存，之后不再请求外部服务；
// - 仅超时类错误重试，最多 MaxAttempts 次；
// - 调用方上下文取消时直接返回，不写缓存。
type Resolver struct {
	provider Provider
	cache    Cache
	opts     Options
	limiter  *rate.Limiter
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewResolver：cache 为空时使用进程内缓存
func NewResolver(p Provider, c Cache, opts Options) *Resolver {
	if c == nil {
		c = NewMemoryCache()
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.Suffix == "" {
		opts.Suffix = DefaultSuffix
	}
	r := &Resolver{provider: p, cache: c, opts: opts, sleep: sleepCtx}
	if opts.MinInterval > 0 {
		r.limiter = rate.NewLimiter(rate.Every(opts.MinInterval), 1)
	}
	return r
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (r *Resolver) wait(ctx context.Context) error {
	if r.limiter == nil {
		return ctx.Err()
	}
	return r.limiter.Wait(ctx)
}

// 文档注释：解析地名为坐标
// 参数：name 为地名原文；缓存键使用其小写形式。
// 返回：坐标与是否解析成功；失败时坐标为 nil。
func (r *Resolver) Resolve(ctx context.Context, name string) (*model.Coords, bool) {
	key := CacheKey(name)
	if c, ok := r.cache.Get(ctx, key); ok {
		return c, c != nil
	}
	query := name + r.opts.Suffix
	for attempt := 1; ; attempt++ {
		if err := r.wait(ctx); err != nil {
			return nil, false
		}
		c, err := r.provider.Lookup(ctx, query)
		switch {
		case err == nil && c != nil:
			metrics.GeocodeSuccessTotal.Inc()
			r.cache.Set(ctx, key, c)
			return c, true
		case err == nil:
			metrics.GeocodeNotFoundTotal.Inc()
			logger.L().Debug("geocode_not_found", "name", name)
			r.cache.Set(ctx, key, nil)
			return nil, false
		case ctx.Err() != nil:
			return nil, false
		case IsTimeout(err):
			if attempt >= r.opts.MaxAttempts {
				metrics.GeocodeFailTotal.WithLabelValues(failClass(err)).Inc()
				logger.L().Warn("geocode_retries_exhausted", "name", name, "attempts", attempt, "err", err)
				r.cache.Set(ctx, key, nil)
				return nil, false
			}
			metrics.GeocodeRetriesTotal.Inc()
			logger.L().Info("geocode_retry", "name", name, "attempt", attempt, "err", err)
			if err := r.sleep(ctx, time.Duration(attempt)*r.opts.BackoffStep); err != nil {
				return nil, false
			}
		default:
			metrics.GeocodeFailTotal.WithLabelValues(failClass(err)).Inc()
			logger.L().Warn("geocode_failed", "name", name, "err", err)
			r.cache.Set(ctx, key, nil)
			return nil, false
		}
	}
}
