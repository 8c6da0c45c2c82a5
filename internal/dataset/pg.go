package dataset

import (
	"context"
	"database/sql"
	"math"

	_ "github.com/lib/pq"

	"tower-api/internal/logger"
	"tower-api/internal/towers"
)

// PGSource：PostgreSQL 中的 _towers 表（由 cmd/tower-import 写入）
// 背景：多实例部署时集中存放基站数据，避免每个节点分发压缩文件。
// 约束：按 seq 升序读取，seq 即导入时的文件行号，保证与文件源一致的行顺序；NULL 数值读取为 NaN。
type PGSource struct {
	db *sql.DB
}

func AttachPG(db *sql.DB) *PGSource { return &PGSource{db: db} }

func (p *PGSource) Name() string { return "postgres" }

func (p *PGSource) Load(ctx context.Context, region string) ([]towers.TowerRecord, error) {
	logger.L().Debug("pg_towers_query_begin", "region", region)
	rows, err := p.db.QueryContext(ctx, "SELECT lat, lon, radio, range_m FROM _towers WHERE region=$1 ORDER BY seq", region)
	if err != nil {
		return nil, &LoadError{Region: region, Err: err}
	}
	defer rows.Close()
	var out []towers.TowerRecord
	for rows.Next() {
		var lat, lon, rng sql.NullFloat64
		var radio sql.NullString
		if err := rows.Scan(&lat, &lon, &radio, &rng); err != nil {
			return nil, &LoadError{Region: region, Err: err}
		}
		out = append(out, towers.TowerRecord{
			Lat:   nullF32(lat),
			Lon:   nullF32(lon),
			Radio: towers.ParseRadioType(radio.String),
			Range: nullF32(rng),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, &LoadError{Region: region, Err: err}
	}
	if len(out) == 0 {
		avail, err := p.Available(ctx)
		if err != nil {
			return nil, &LoadError{Region: region, Err: err}
		}
		return nil, &NotFoundError{Region: region, Available: avail}
	}
	logger.L().Debug("pg_towers_query_done", "region", region, "rows", len(out))
	return out, nil
}

func (p *PGSource) Available(ctx context.Context) ([]string, error) {
	rows, err := p.db.QueryContext(ctx, "SELECT DISTINCT region FROM _towers ORDER BY region")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var r string
		if err := rows.Scan(&r); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func nullF32(v sql.NullFloat64) float32 {
	if !v.Valid {
		return float32(math.NaN())
	}
	return float32(v.Float64)
}
