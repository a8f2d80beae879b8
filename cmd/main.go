// 程序入口：仅负责读取配置、装配依赖并启动服务；API 注册在 internal/api 以便扩展
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"newsmap/internal/api"
	"newsmap/internal/app"
	"newsmap/internal/config"
	"newsmap/internal/logger"
	"newsmap/internal/metrics"
	"newsmap/internal/middleware"
	"newsmap/internal/refresh"
	"newsmap/internal/utils"
	"newsmap/internal/version"
)

func main() {
	// 配置先于日志加载：.env 中的 LOG_LEVEL/LOG_FORMAT 需要生效
	cfg, err := config.Load()
	l := logger.Setup()
	l.Debug("log_init_ok", "commit", version.Commit)
	if err != nil {
		l.Error("config_error", "err", err)
		os.Exit(1)
	}
	l.Debug("config_api_base", "base", cfg.APIBase)
	l.Debug("config_ui_dir", "dir", cfg.UIDist)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg)
	if err != nil {
		l.Error("app_build_error", "err", err)
		os.Exit(1)
	}
	defer a.Close()

	cache := api.NewClusterCache(a.Pipeline, cfg.CacheTTL, a.Redis)
	if err := cache.Restore(ctx); err != nil {
		l.Warn("clusters_restore_error", "err", err)
	}

	if cfg.RefreshCron != "" {
		sch := refresh.New(cache, 10*time.Minute)
		if err := sch.Schedule(cfg.RefreshCron); err != nil {
			l.Error("refresh_schedule_error", "err", err)
		} else {
			sch.Start()
			defer sch.Stop()
			l.Info("refresh_scheduled", "cron", cfg.RefreshCron, "next", sch.Next())
		}
	}

	mux := http.NewServeMux()
	// 文档注释：构建路由（聚类缓存、边界状态、运行统计）
	var stats api.StatsSource
	if a.Store != nil {
		stats = a.Store
	}
	apiMux := api.BuildRoutes(cache, a.Index, stats)
	apiBase := cfg.APIBase
	mux.Handle(apiBase+"/", http.StripPrefix(apiBase, apiMux))
	mux.Handle(apiBase+"/metrics", metrics.Handler())

	fs := http.FileServer(http.Dir(cfg.UIDist))
	mux.Handle("/", fs)

	// NOTE: 向前端暴露 API 基础路径，避免硬编码；生产环境由后端统一提供
	mux.HandleFunc("/config.js", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("content-type", "application/javascript; charset=utf-8")
		w.Header().Set("cache-control", "no-store")
		_, _ = w.Write([]byte("window.__API_BASE__='" + apiBase + "'"))
		_, _ = w.Write([]byte("\n"))
		_, _ = w.Write([]byte("window.__DATA_SOURCE__='OpenStreetMap Nominatim'"))
		_, _ = w.Write([]byte("\n"))
		_, _ = w.Write([]byte("window.__DATA_SOURCE_URL__='https://www.openstreetmap.org/copyright'"))
		_, _ = w.Write([]byte("\n"))
		_, _ = w.Write([]byte("window.__COMMIT_SHA__='" + version.Commit + "'"))
	})

	handler := logger.AccessMiddleware(l)(mux)
	handler = middleware.Wrap(handler, cfg.RateLimit.Enabled, cfg.RateLimit.QPS)
	s := &http.Server{Addr: cfg.Addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = s.Shutdown(sctx)
	}()

	if cfg.TLS.Enabled {
		if err := utils.EnsureSelfSignedCert(cfg.TLS.CertPath, cfg.TLS.KeyPath, "newsmap.local"); err != nil {
			l.Error("tls_cert_error", "err", err)
			os.Exit(1)
		}
		l.Info("listening_tls", "addr", cfg.Addr, "cert", cfg.TLS.CertPath)
		err = s.ListenAndServeTLS(cfg.TLS.CertPath, cfg.TLS.KeyPath)
	} else {
		l.Info("listening", "addr", cfg.Addr)
		err = s.ListenAndServe()
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		l.Error("server_error", "err", err)
	}
	l.Info("shutdown")
}
