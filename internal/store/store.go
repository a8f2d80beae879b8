// 包 store: 提供与 PostgreSQL 的数据访问层，包含地理编码缓存与运行记录读写
package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"newsmap/internal/logger"
	"newsmap/internal/model"
)

// Store: 数据库访问入口，持有连接池
type Store struct {
	db *sql.DB
}

func AttachDB(db *sql.DB) *Store { return &Store{db: db} }

// Close: 关闭数据库连接
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

// GetGeocode: 读取缓存的地名坐标；found=false 的记录返回 (nil, true, nil)
func (s *Store) GetGeocode(ctx context.Context, key string) (*model.Coords, bool, error) {
	var (
		found    bool
		lat, lon sql.NullFloat64
	)
	row := s.db.QueryRowContext(ctx, "SELECT found, lat, lon FROM _geocode_cache WHERE place_key=$1", key)
	if err := row.Scan(&found, &lat, &lon); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	if !found || !lat.Valid || !lon.Valid {
		return nil, true, nil
	}
	logger.L().Debug("db_geocode_hit", "key", key)
	return &model.Coords{Lat: lat.Float64, Lon: lon.Float64}, true, nil
}

// PutGeocode: 写入或覆盖地名坐标；c 为 nil 表示已知无法解析
func (s *Store) PutGeocode(ctx context.Context, key string, c *model.Coords) error {
	var lat, lon sql.NullFloat64
	if c != nil {
		lat = sql.NullFloat64{Float64: c.Lat, Valid: true}
		lon = sql.NullFloat64{Float64: c.Lon, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO _geocode_cache(place_key, found, lat, lon, updated_at)
        VALUES($1, $2, $3, $4, now())
        ON CONFLICT (place_key) DO UPDATE SET found=EXCLUDED.found, lat=EXCLUDED.lat, lon=EXCLUDED.lon, updated_at=now()`,
		key, c != nil, lat, lon)
	return err
}

// DeleteGeocode: 删除缓存记录，下次解析时重新请求外部服务
func (s *Store) DeleteGeocode(ctx context.Context, key string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM _geocode_cache WHERE place_key=$1`, key)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// GeocodeEntry: 缓存记录（Coords 为 nil 表示已知无法解析）
type GeocodeEntry struct {
	Key       string
	Coords    *model.Coords
	UpdatedAt time.Time
}

// ListGeocode: 按更新时间倒序列出缓存记录
func (s *Store) ListGeocode(ctx context.Context, limit int) ([]GeocodeEntry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT place_key, found, lat, lon, updated_at FROM _geocode_cache ORDER BY updated_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []GeocodeEntry
	for rows.Next() {
		var (
			e        GeocodeEntry
			found    bool
			lat, lon sql.NullFloat64
		)
		if err := rows.Scan(&e.Key, &found, &lat, &lon, &e.UpdatedAt); err != nil {
			return nil, err
		}
		if found && lat.Valid && lon.Valid {
			e.Coords = &model.Coords{Lat: lat.Float64, Lon: lon.Float64}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Run: 一次流水线运行的记录
type Run struct {
	ID         string
	StartedAt  time.Time
	DurationMs int64
	Articles   int
	Located    int
	Clusters   int
	Status     string
	Error      string
}

// RecordRun: 写入一次运行记录
func (s *Store) RecordRun(ctx context.Context, r Run) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO _cluster_runs(id, started_at, duration_ms, articles, located, clusters, status, error)
        VALUES($1, $2, $3, $4, $5, $6, $7, $8)`,
		r.ID, r.StartedAt, r.DurationMs, r.Articles, r.Located, r.Clusters, r.Status, r.Error)
	if err == nil {
		logger.L().Debug("db_run_recorded", "id", r.ID, "status", r.Status)
	}
	return err
}

// Totals: 统计返回结构
type Totals struct {
	Runs             int64      `json:"runs"`
	FailedRuns       int64      `json:"failed_runs"`
	LastRunAt        *time.Time `json:"last_run_at"`
	LastClusters     int64      `json:"last_clusters"`
	GeocodedPlaces   int64      `json:"geocoded_places"`
	UnresolvedPlaces int64      `json:"unresolved_places"`
}

// GetTotals: 读取运行次数、最近一次运行与地理编码缓存规模
func (s *Store) GetTotals(ctx context.Context) (*Totals, error) {
	var t Totals
	row := s.db.QueryRowContext(ctx, "SELECT COUNT(1), COUNT(1) FILTER (WHERE status <> 'ok') FROM _cluster_runs")
	if err := row.Scan(&t.Runs, &t.FailedRuns); err != nil {
		return nil, err
	}
	var last sql.NullTime
	row2 := s.db.QueryRowContext(ctx, "SELECT started_at, clusters FROM _cluster_runs ORDER BY started_at DESC LIMIT 1")
	if err := row2.Scan(&last, &t.LastClusters); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if last.Valid {
		t.LastRunAt = &last.Time
	}
	row3 := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FILTER (WHERE found), COUNT(1) FILTER (WHERE NOT found) FROM _geocode_cache")
	if err := row3.Scan(&t.GeocodedPlaces, &t.UnresolvedPlaces); err != nil {
		return nil, err
	}
	logger.L().Debug("stats_totals", "runs", t.Runs, "places", t.GeocodedPlaces)
	return &t, nil
}
