package main

import (
	"context"
	"database/sql"
	"flag"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/lib/pq"

	"tower-api/internal/dataset"
	"tower-api/internal/logger"
	"tower-api/internal/migrate"
	"tower-api/internal/towers"
	"tower-api/internal/utils"
)

// 文档注释：将 <CODE>.csv.gz 区域文件导入 PostgreSQL _towers 表
// 背景：供 TOWER_SOURCE=postgres 的多实例部署使用；按区域整表替换，行号写入 seq 以保持文件顺序。
// 约束：单区域在一个事务内完成 DELETE + COPY，失败回滚不影响已有数据；未指定区域时导入目录下全部文件。
func main() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join("data", "env", ".env"))
	l := logger.Setup()
	dir := flag.String("dir", "", "directory of <CODE>.csv.gz files (default $TOWERS_DIR)")
	flag.Parse()
	if *dir == "" {
		*dir = os.Getenv("TOWERS_DIR")
	}
	if *dir == "" {
		*dir = filepath.Join("databases", "towers")
	}
	db, err := utils.OpenPostgresFromEnv()
	if err != nil {
		l.Error("db_open_error", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	ctx := context.Background()
	if err := migrate.EnsureSchema(ctx, db); err != nil {
		l.Error("schema_error", "err", err)
		os.Exit(1)
	}
	src := dataset.NewFileSource(*dir)
	regions := flag.Args()
	if len(regions) == 0 {
		if regions, err = src.Available(ctx); err != nil {
			l.Error("towers_dir_error", "dir", *dir, "err", err)
			os.Exit(1)
		}
	}
	failed := 0
	for _, r := range regions {
		region, err := dataset.NormalizeRegion(r)
		if err != nil {
			l.Error("region_invalid", "region", r, "err", err)
			failed++
			continue
		}
		t0 := time.Now()
		rows, err := src.Load(ctx, region)
		if err != nil {
			l.Error("region_read_error", "region", region, "err", err)
			failed++
			continue
		}
		if err := importRegion(ctx, db, region, rows, *dir); err != nil {
			l.Error("region_import_error", "region", region, "err", err)
			failed++
			continue
		}
		l.Info("region_import_ok", "region", region, "rows", len(rows), "duration_ms", time.Since(t0).Milliseconds())
	}
	if failed > 0 {
		l.Error("import_done_with_errors", "failed", failed, "total", len(regions))
		os.Exit(1)
	}
	l.Info("import_done", "total", len(regions))
}

func importRegion(ctx context.Context, db *sql.DB, region string, rows []towers.TowerRecord, source string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `DELETE FROM _towers WHERE region=$1`, region); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("_towers", "region", "seq", "lat", "lon", "radio", "range_m"))
	if err != nil {
		return err
	}
	for i, t := range rows {
		if _, err := stmt.ExecContext(ctx, region, int64(i), nullable(t.Lat), nullable(t.Lon), string(t.Radio), nullable(t.Range)); err != nil {
			stmt.Close()
			return err
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		stmt.Close()
		return err
	}
	if err := stmt.Close(); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO _tower_imports(region, rows, source) VALUES($1,$2,$3)
		ON CONFLICT (region) DO UPDATE SET rows=EXCLUDED.rows, source=EXCLUDED.source, imported_at=now()`, region, len(rows), source); err != nil {
		return err
	}
	return tx.Commit()
}

// nullable：NaN（空单元格）写为 NULL
func nullable(v float32) any {
	if math.IsNaN(float64(v)) {
		return nil
	}
	return float64(v)
}
