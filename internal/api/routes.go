// 包 api：对外 HTTP 接口（聚类结果、健康检查、运行统计）
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"newsmap/internal/logger"
	"newsmap/internal/pipeline"
	"newsmap/internal/store"
)

const (
	msgScrapeFailed = "Failed to scrape news sources and no cache available."
	msgInternal     = "An internal server error occurred."
)

// BoundaryStatus：选区边界是否可用（由 boundary.Index 实现）
type BoundaryStatus interface {
	Loaded() bool
}

// StatsSource：运行统计（由 store.Store 实现）
type StatsSource interface {
	GetTotals(ctx context.Context) (*store.Totals, error)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.Header().Set("cache-control", "no-store")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// 构建并返回 API 路由：独立 ServeMux 便于在主入口挂载到 API 前缀
// bs 与 stats 可为空
func BuildRoutes(cache *ClusterCache, bs BoundaryStatus, stats StatsSource) *http.ServeMux {
	apiMux := http.NewServeMux()

	apiMux.HandleFunc("GET /news/clusters", func(w http.ResponseWriter, r *http.Request) {
		clusters, err := cache.Get(r.Context())
		if err != nil {
			if r.Context().Err() != nil {
				return
			}
			msg := msgInternal
			if errors.Is(err, pipeline.ErrNoArticles) {
				msg = msgScrapeFailed
			}
			logger.L().Error("clusters_unavailable", "err", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": msg})
			return
		}
		writeJSON(w, http.StatusOK, clusters)
	})

	apiMux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		loaded := bs != nil && bs.Loaded()
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "boundaries_loaded": loaded})
	})

	apiMux.HandleFunc("GET /stats", func(w http.ResponseWriter, r *http.Request) {
		t := &store.Totals{}
		if stats != nil {
			got, err := stats.GetTotals(r.Context())
			if err != nil {
				logger.L().Warn("stats_error", "err", err)
			} else {
				t = got
			}
		}
		m := map[string]any{"totals": t}
		if g := cache.GeneratedAt(); !g.IsZero() {
			m["generated_at"] = g
		}
		writeJSON(w, http.StatusOK, m)
	})

	return apiMux
}
