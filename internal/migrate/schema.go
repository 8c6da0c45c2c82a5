package migrate

import (
	"context"
	"database/sql"

	"tower-api/internal/logger"
)

// 背景：导入前自动建表，保障 tower-import 与 postgres 数据源可直接使用
// 约束：使用 IF NOT EXISTS 避免与既有结构冲突；seq 保留原始文件行序，查询按 seq 排序以保证结果确定。
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS _towers (
			region CHAR(3) NOT NULL,
			seq BIGINT NOT NULL,
			lat REAL,
			lon REAL,
			radio TEXT NOT NULL,
			range_m REAL,
			PRIMARY KEY (region, seq)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_towers_region ON _towers(region)`,
		`CREATE TABLE IF NOT EXISTS _tower_imports (
			region CHAR(3) PRIMARY KEY,
			rows BIGINT NOT NULL,
			source TEXT NOT NULL,
			imported_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
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
