package migrate

import (
	"context"
	"database/sql"

	"newsmap/internal/logger"
)

// 背景：首次运行自动创建地理编码缓存与运行记录表
// 约束：使用 IF NOT EXISTS 避免与既有结构冲突；仅创建最小必需结构
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS _geocode_cache (
            place_key TEXT PRIMARY KEY,
            found BOOLEAN NOT NULL,
            lat DOUBLE PRECISION,
            lon DOUBLE PRECISION,
            updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
        )`,
		`CREATE TABLE IF NOT EXISTS _cluster_runs (
            id UUID PRIMARY KEY,
            started_at TIMESTAMPTZ NOT NULL,
            duration_ms BIGINT NOT NULL,
            articles INT NOT NULL,
            located INT NOT NULL,
            clusters INT NOT NULL,
            status TEXT NOT NULL,
            error TEXT NOT NULL DEFAULT ''
        )`,
		`CREATE INDEX IF NOT EXISTS idx_cluster_runs_started ON _cluster_runs(started_at DESC)`,
	}
	for i, s := range stmts {
		logger.L().Debug("schema_exec", "idx", i)
		if _, err := db.ExecContext(ctx, s); err != nil {
			return err
		}
	}
	logger.L().Debug("schema_done")
	return nil
}
