// 包 query：查询编排（区域表加载 → 包围盒预筛 → 测距 → 覆盖分类 → 信号质量）
package query

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"tower-api/internal/dataset"
	"tower-api/internal/geocode"
	"tower-api/internal/logger"
	"tower-api/internal/metrics"
	"tower-api/internal/towers"
)

// ErrInvalidInput 区域标识、坐标或模式非法
var ErrInvalidInput = errors.New("invalid input")

// CountryResolver：坐标 → 区域标识（反向地理编码）
type CountryResolver interface {
	ReverseCountry(ctx context.Context, p towers.Point) (string, error)
}

// Service：查询门面
// 约束：store 由进程入口构造并注入；resolver 可为空，此时 QueryAt 不可用。
type Service struct {
	store    *dataset.Store
	resolver CountryResolver
}

func NewService(store *dataset.Store, resolver CountryResolver) *Service {
	return &Service{store: store, resolver: resolver}
}

// Store 返回注入的区域表缓存
func (s *Service) Store() *dataset.Store { return s.store }

// ValidatePoint：坐标需为有限值且位于合法经纬度范围
func ValidatePoint(p towers.Point) error {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lon) || math.IsInf(p.Lat, 0) || math.IsInf(p.Lon, 0) {
		return fmt.Errorf("%w: non-finite coordinates", ErrInvalidInput)
	}
	if p.Lat < -90 || p.Lat > 90 || p.Lon < -180 || p.Lon > 180 {
		return fmt.Errorf("%w: coordinates out of range (%g,%g)", ErrInvalidInput, p.Lat, p.Lon)
	}
	return nil
}

// Query：对指定区域执行邻近查询
// 返回：首个错误原样返回（InvalidInput / NotFound / LoadError），不做部分计算；无命中返回空结果。
func (s *Service) Query(ctx context.Context, regionID string, p towers.Point, mode towers.Mode) (*towers.Result, error) {
	if err := ValidatePoint(p); err != nil {
		metrics.QueriesTotal.WithLabelValues(mode.String(), "invalid").Inc()
		return nil, err
	}
	if mode != towers.ModeClosestByType && mode != towers.ModeAllInRange {
		metrics.QueriesTotal.WithLabelValues("unknown", "invalid").Inc()
		return nil, fmt.Errorf("%w: unknown mode %d", ErrInvalidInput, int(mode))
	}
	t0 := time.Now()
	l := logger.L()
	ds, err := s.store.Load(ctx, regionID)
	if err != nil {
		outcome := "load_error"
		switch {
		case errors.Is(err, dataset.ErrInvalidRegion):
			outcome = "invalid"
			err = fmt.Errorf("%w: %w", ErrInvalidInput, err)
		case errors.Is(err, dataset.ErrNotFound):
			outcome = "not_found"
		}
		metrics.QueriesTotal.WithLabelValues(mode.String(), outcome).Inc()
		return nil, err
	}
	idx := towers.Prefilter(ds.Towers, p, towers.DefaultMaxDistanceKm)
	metrics.CandidatesPerQuery.Observe(float64(len(idx)))
	l.Debug("query_prefilter", "region", ds.Region, "rows", len(ds.Towers), "candidates", len(idx))
	cands := towers.Measure(ds.Towers, idx, p)
	res := towers.Classify(cands, mode)
	if res.Len() == 0 {
		metrics.EmptyResultsTotal.Inc()
	}
	dur := time.Since(t0)
	metrics.QueriesTotal.WithLabelValues(mode.String(), "ok").Inc()
	metrics.QueryDurationMs.WithLabelValues(mode.String()).Observe(float64(dur.Milliseconds()))
	l.Debug("query_done", "region", ds.Region, "mode", mode.String(), "results", res.Len(), "duration_ms", dur.Milliseconds())
	return &res, nil
}

// QueryAt：先反向地理编码得到区域，再执行 Query
// 约束：地理编码失败包装为 geocode.ErrUpstream，不重试。
func (s *Service) QueryAt(ctx context.Context, p towers.Point, mode towers.Mode) (string, *towers.Result, error) {
	if err := ValidatePoint(p); err != nil {
		return "", nil, err
	}
	if s.resolver == nil {
		return "", nil, fmt.Errorf("%w: no country resolver configured", geocode.ErrUpstream)
	}
	region, err := s.resolver.ReverseCountry(ctx, p)
	if err != nil {
		logger.L().Error("reverse_geocode_failed", "lat", p.Lat, "lon", p.Lon, "err", err)
		if !errors.Is(err, geocode.ErrUpstream) {
			err = fmt.Errorf("%w: %w", geocode.ErrUpstream, err)
		}
		return "", nil, err
	}
	res, err := s.Query(ctx, region, p, mode)
	return region, res, err
}
