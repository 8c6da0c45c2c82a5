package dataset

import (
	"context"
	"sort"
	"sync/atomic"

	"tower-api/internal/towers"
)

// StaticSource：内存数据源，用于嵌入式场景与测试
// 约束：Loads 统计 Load 调用次数，便于验证缓存与合并加载。
type StaticSource struct {
	Regions map[string][]towers.TowerRecord
	Fail    map[string]error
	loads   atomic.Int64
}

func (s *StaticSource) Name() string { return "static" }

func (s *StaticSource) Load(ctx context.Context, region string) ([]towers.TowerRecord, error) {
	s.loads.Add(1)
	if err, ok := s.Fail[region]; ok {
		return nil, &LoadError{Region: region, Err: err}
	}
	rows, ok := s.Regions[region]
	if !ok {
		avail, err := s.Available(ctx)
		if err != nil {
			return nil, &LoadError{Region: region, Err: err}
		}
		return nil, &NotFoundError{Region: region, Available: avail}
	}
	return rows, nil
}

func (s *StaticSource) Available(ctx context.Context) ([]string, error) {
	out := make([]string, 0, len(s.Regions))
	for k := range s.Regions {
		out = append(out, k)
	}
	sort.Strings(out)
	return out, nil
}

// Loads 返回 Load 被调用的次数
func (s *StaticSource) Loads() int64 { return s.loads.Load() }
