// 包 dataset：按区域加载并缓存基站表，对外提供只读共享的 Dataset
package dataset

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"tower-api/internal/logger"
	"tower-api/internal/metrics"
	"tower-api/internal/towers"
)

// DefaultCacheSize 覆盖全部国家级区域，正常运行下不会触发淘汰
const DefaultCacheSize = 256

// 单次区域加载的上限；加载不随请求取消
const loadTimeout = 10 * time.Minute

// Source：区域数据源契约
// 约束：Load 在区域不存在时返回 *NotFoundError；解析失败返回 *LoadError；返回的行顺序即数据集顺序。
type Source interface {
	Name() string
	Load(ctx context.Context, region string) ([]towers.TowerRecord, error)
	Available(ctx context.Context) ([]string, error)
}

// Dataset：单个区域的只读基站表
type Dataset struct {
	Region   string
	Towers   []towers.TowerRecord
	Source   string
	LoadedAt time.Time
}

// Store：区域表缓存
// 背景：首次查询时加载并缓存；同一区域的并发首次加载合并为一次（singleflight），不同区域互不阻塞。
// 约束：容量有界（LRU）；淘汰只释放缓存引用，调用方已持有的 Dataset 仍然有效。
type Store struct {
	src   Source
	cache *lru.Cache[string, *Dataset]
	group singleflight.Group
}

// NewStore：size<=0 时使用 DefaultCacheSize
func NewStore(src Source, size int) (*Store, error) {
	if src == nil {
		return nil, fmt.Errorf("dataset: nil source")
	}
	if size <= 0 {
		size = DefaultCacheSize
	}
	c, err := lru.New[string, *Dataset](size)
	if err != nil {
		return nil, err
	}
	return &Store{src: src, cache: c}, nil
}

// NormalizeRegion：去空白并转大写，校验为 3 位 ASCII 字母
func NormalizeRegion(regionID string) (string, error) {
	r := strings.ToUpper(strings.TrimSpace(regionID))
	if len(r) != 3 {
		return "", fmt.Errorf("%w: %q", ErrInvalidRegion, regionID)
	}
	for i := 0; i < len(r); i++ {
		if r[i] < 'A' || r[i] > 'Z' {
			return "", fmt.Errorf("%w: %q", ErrInvalidRegion, regionID)
		}
	}
	return r, nil
}

// Load：返回区域表；命中缓存时无 I/O
func (s *Store) Load(ctx context.Context, regionID string) (*Dataset, error) {
	region, err := NormalizeRegion(regionID)
	if err != nil {
		return nil, err
	}
	if ds, ok := s.cache.Get(region); ok {
		metrics.DatasetCacheHitsTotal.Inc()
		logger.L().Debug("dataset_cache_hit", "region", region)
		return ds, nil
	}
	metrics.DatasetCacheMissesTotal.Inc()
	// 共享加载脱离发起者的取消信号，避免首个请求断开导致同 key 的等待者全部失败
	ch := s.group.DoChan(region, func() (any, error) {
		// 等待期间其他调用可能已完成加载
		if ds, ok := s.cache.Get(region); ok {
			return ds, nil
		}
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()
		return s.load(lctx, region)
	})
	select {
	case <-ctx.Done():
		logger.L().Debug("dataset_load_wait_cancelled", "region", region)
		return nil, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		if r.Shared {
			logger.L().Debug("dataset_load_shared", "region", region)
		}
		return r.Val.(*Dataset), nil
	}
}

func (s *Store) load(ctx context.Context, region string) (*Dataset, error) {
	l := logger.L()
	t0 := time.Now()
	l.Info("dataset_load_begin", "region", region, "source", s.src.Name())
	rows, err := s.src.Load(ctx, region)
	if err != nil {
		metrics.DatasetLoadFailuresTotal.Inc()
		var nf *NotFoundError
		if errors.As(err, &nf) {
			l.Error("dataset_not_found", "region", region, "available", strings.Join(nf.Available, ","))
		} else {
			l.Error("dataset_load_error", "region", region, "err", err)
		}
		return nil, err
	}
	ds := &Dataset{Region: region, Towers: rows, Source: s.src.Name(), LoadedAt: time.Now()}
	s.cache.Add(region, ds)
	metrics.DatasetLoadsTotal.Inc()
	metrics.DatasetLoadDurationMs.Observe(float64(time.Since(t0).Milliseconds()))
	l.Info("dataset_load_ok", "region", region, "rows", len(rows), "duration_ms", time.Since(t0).Milliseconds())
	return ds, nil
}

// Available：列出数据源中可用的区域标识
func (s *Store) Available(ctx context.Context) ([]string, error) {
	return s.src.Available(ctx)
}

// Cached 返回当前缓存的区域数（用于健康检查）
func (s *Store) Cached() int { return s.cache.Len() }
