package middleware

import (
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"newsmap/internal/logger"
)

// 文档注释：令牌桶限流中间件（每秒）
// 背景：聚类接口未命中缓存时会触发整条流水线，入口限速避免突发请求压垮外部服务配额。
// 约束：不做队列排队，仅丢弃并返回 429；桶容量与每秒补充速率均为 qps，任意一秒窗口内放行不超过 qps。
type TokenBucket struct {
	lim *rate.Limiter
	now func() time.Time
}

// NewTokenBucket：qps <= 0 时按 1 处理
func NewTokenBucket(qps int) *TokenBucket {
	if qps <= 0 {
		qps = 1
	}
	return &TokenBucket{lim: rate.NewLimiter(rate.Limit(qps), qps), now: time.Now}
}

func (tb *TokenBucket) allow() bool {
	return tb.lim.AllowN(tb.now(), 1)
}

// Handler：超出速率的请求直接返回 429
func (tb *TokenBucket) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !tb.allow() {
			logger.L().Debug("rate_limited", "path", r.URL.Path)
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Wrap：按开关决定是否套上限流
func Wrap(next http.Handler, enabled bool, qps int) http.Handler {
	if !enabled {
		return next
	}
	return NewTokenBucket(qps).Handler(next)
}
