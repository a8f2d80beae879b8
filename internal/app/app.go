// 包 app：按配置装配各组件（存储、缓存、地理编码、边界索引、流水线），供各个入口共用
package app

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"newsmap/internal/boundary"
	"newsmap/internal/cluster"
	"newsmap/internal/config"
	"newsmap/internal/feed"
	"newsmap/internal/geocode"
	"newsmap/internal/logger"
	"newsmap/internal/migrate"
	"newsmap/internal/pipeline"
	"newsmap/internal/store"
	"newsmap/internal/utils"
)

// App：装配完成的组件集合；Store 与 Redis 未启用时为空
type App struct {
	Config   *config.Config
	DB       *sql.DB
	Store    *store.Store
	Redis    *redis.Client
	Index    *boundary.Index
	Cache    geocode.Cache
	Resolver *geocode.Resolver
	Builder  *cluster.Builder
	Scraper  *feed.Scraper
	Pipeline *pipeline.Service
}

// 文档注释：装配入口
// 背景：远端存储均为可选层，连接失败时降级为进程内缓存并记录日志，服务照常启动。
// 约束：
// - 边界文件加载失败不阻断启动，聚类结果的选区字段为空；
// - 地理编码缓存层顺序为 内存 → Redis → PostgreSQL，慢层命中回填快层；
// - 仅当配置本身非法（如缺少 User-Agent）时返回错误。
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	l := logger.L()
	a := &App{Config: cfg}

	if cfg.Postgres.Enabled {
		db, err := utils.OpenPostgres(ctx, cfg.Postgres.DSN)
		if err != nil {
			l.Error("db_open_error", "err", err)
		} else if err := migrate.EnsureSchema(ctx, db); err != nil {
			l.Error("schema_error", "err", err)
			_ = db.Close()
		} else {
			a.DB = db
			a.Store = store.AttachDB(db)
			l.Info("db_open_ok")
		}
	} else {
		l.Info("db_disabled")
	}

	if cfg.Redis.Enabled {
		rc, err := utils.OpenRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			l.Error("redis_ping_error", "err", err)
		} else {
			a.Redis = rc
			l.Info("redis_ping_ok")
		}
	} else {
		l.Info("redis_disabled")
	}

	tiers := []geocode.Cache{geocode.NewMemoryCache()}
	if a.Redis != nil {
		tiers = append(tiers, geocode.NewRedisCache(a.Redis))
	}
	if a.Store != nil {
		tiers = append(tiers, geocode.NewStoreCache(a.Store))
	}
	a.Cache = geocode.NewChainCache(tiers...)
	l.Debug("geocode_cache_stack", "redis", a.Redis != nil, "postgres", a.Store != nil)

	g := cfg.Geocoder
	provider, err := geocode.NewNominatim(geocode.NominatimConfig{
		Endpoint:     g.URL,
		UserAgent:    g.UserAgent,
		Timeout:      g.Timeout,
		CountryCodes: g.CountryCodes,
	}, &http.Client{Timeout: g.Timeout + 5*time.Second})
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Resolver = geocode.NewResolver(provider, a.Cache, geocode.Options{
		MinInterval: g.MinInterval,
		MaxAttempts: g.MaxAttempts,
		BackoffStep: g.BackoffStep,
	})

	a.Index = boundary.NewIndex(cfg.Boundaries.NameColumn)
	if err := a.Index.Load(cfg.Boundaries.File); err != nil {
		l.Warn("boundary_unavailable", "file", cfg.Boundaries.File, "err", err)
	}

	matcher := cfg.Gazetteer.Matcher()
	a.Builder = cluster.NewBuilder(matcher, a.Resolver, a.Index)
	a.Scraper = feed.NewScraper(matcher, nil)
	a.Pipeline = &pipeline.Service{Scraper: a.Scraper, Builder: a.Builder, Sources: cfg.Sources}
	if a.Store != nil {
		a.Pipeline.Store = a.Store
	}
	l.Info("app_ready", "sources", len(cfg.Sources), "places", matcher.Len(), "boundaries", a.Index.Len())
	return a, nil
}

// Close：释放数据库与 Redis 连接
func (a *App) Close() {
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.DB != nil {
		_ = a.DB.Close()
	}
}
