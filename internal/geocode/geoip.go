package geocode

import (
	"fmt"
	"net"
	"strings"

	"github.com/oschwald/geoip2-golang"

	"tower-api/internal/logger"
	"tower-api/internal/metrics"
	"tower-api/internal/towers"
)

// IPLocator：基于 GeoLite2-City 的访客 IP 定位
// 背景：请求未携带坐标时，用访客 IP 的近似位置作为查询点；精度为城市级，仅作兜底。
// 约束：数据库文件由运维下发（GEOIP_PATH）；未命中或无坐标时返回 ErrNoResult。
type IPLocator struct {
	db *geoip2.Reader
}

func OpenIPLocator(path string) (*IPLocator, error) {
	db, err := geoip2.Open(path)
	if err != nil {
		return nil, err
	}
	return &IPLocator{db: db}, nil
}

func (l *IPLocator) Close() error { return l.db.Close() }

// Locate：返回坐标与 alpha-3 国家码（国家码可能为空）
func (l *IPLocator) Locate(ip string) (towers.Point, string, error) {
	parsed := net.ParseIP(strings.TrimSpace(ip))
	if parsed == nil {
		metrics.GeoIPLookupsTotal.WithLabelValues("bad_ip").Inc()
		return towers.Point{}, "", fmt.Errorf("%w: bad ip %q", ErrNoResult, ip)
	}
	rec, err := l.db.City(parsed)
	if err != nil {
		metrics.GeoIPLookupsTotal.WithLabelValues("error").Inc()
		return towers.Point{}, "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if rec.Location.Latitude == 0 && rec.Location.Longitude == 0 {
		metrics.GeoIPLookupsTotal.WithLabelValues("miss").Inc()
		return towers.Point{}, "", ErrNoResult
	}
	a3, _ := Alpha3(rec.Country.IsoCode)
	metrics.GeoIPLookupsTotal.WithLabelValues("hit").Inc()
	logger.L().Debug("geoip_hit", "country", a3, "accuracy_km", rec.Location.AccuracyRadius)
	return towers.Point{Lat: rec.Location.Latitude, Lon: rec.Location.Longitude}, a3, nil
}
