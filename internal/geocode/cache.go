package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"tower-api/internal/logger"
	"tower-api/internal/metrics"
	"tower-api/internal/towers"
)

// CachedGeocoder：以 Redis 缓存地理编码结果
// 背景：公共 Nominatim 限速 1 QPS，同一地名/相近坐标的重复查询直接命中缓存。
// 约束：rc 为 nil 时透传；反向查询键按 0.001° 量化（约百米级，对国家码足够）；失败结果不缓存；Redis 错误不阻断主流程。
type CachedGeocoder struct {
	next Geocoder
	rc   kvStore
	ttl  time.Duration
}

// kvStore：缓存所需的 Redis 命令子集，*redis.Client 满足该接口
type kvStore interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

func NewCached(next Geocoder, rc *redis.Client, ttl time.Duration) *CachedGeocoder {
	if rc == nil {
		return newCached(next, nil, ttl)
	}
	return newCached(next, rc, ttl)
}

func newCached(next Geocoder, kv kvStore, ttl time.Duration) *CachedGeocoder {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &CachedGeocoder{next: next, rc: kv, ttl: ttl}
}

func forwardKey(q string) string {
	return "geo:fwd:" + strings.ToLower(strings.Join(strings.Fields(q), " "))
}

func reverseKey(p towers.Point) string {
	return fmt.Sprintf("geo:rev:%.3f:%.3f", p.Lat, p.Lon)
}

func (c *CachedGeocoder) Geocode(ctx context.Context, query string) (towers.Point, error) {
	key := forwardKey(query)
	if c.rc != nil {
		if s, _ := c.rc.Get(ctx, key).Result(); s != "" {
			var p towers.Point
			if err := json.Unmarshal([]byte(s), &p); err == nil {
				metrics.GeocodeCacheHitsTotal.Inc()
				return p, nil
			}
		}
	}
	p, err := c.next.Geocode(ctx, query)
	if err != nil {
		return p, err
	}
	if c.rc != nil {
		b, _ := json.Marshal(p)
		if err := c.rc.Set(ctx, key, string(b), c.ttl).Err(); err != nil {
			logger.L().Debug("geocode_cache_set_error", "err", err)
		}
	}
	return p, nil
}

func (c *CachedGeocoder) ReverseCountry(ctx context.Context, p towers.Point) (string, error) {
	key := reverseKey(p)
	if c.rc != nil {
		if s, _ := c.rc.Get(ctx, key).Result(); s != "" {
			metrics.GeocodeCacheHitsTotal.Inc()
			return s, nil
		}
	}
	code, err := c.next.ReverseCountry(ctx, p)
	if err != nil {
		return "", err
	}
	if c.rc != nil {
		if err := c.rc.Set(ctx, key, code, c.ttl).Err(); err != nil {
			logger.L().Debug("geocode_cache_set_error", "err", err)
		}
	}
	return code, nil
}
