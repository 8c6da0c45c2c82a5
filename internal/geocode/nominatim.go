package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"tower-api/internal/logger"
	"tower-api/internal/metrics"
	"tower-api/internal/towers"
)

const (
	defaultNominatimURL = "https://nominatim.openstreetmap.org"
	defaultUserAgent    = "cell_tower_locator"
)

// NominatimConfig：零值字段使用默认值（公共实例、10s 超时、1 QPS）
type NominatimConfig struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
	QPS       float64
	Client    *http.Client
}

// Nominatim：OSM Nominatim 客户端
// 背景：公共实例要求每秒不超过 1 次请求并携带可识别的 User-Agent，因此在客户端侧限速。
// 约束：反向查询固定英文结果，仅取 address.country_code 并转换为 alpha-3。
type Nominatim struct {
	baseURL   string
	userAgent string
	client    *http.Client
	limiter   *rate.Limiter
}

func NewNominatim(cfg NominatimConfig) *Nominatim {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultNominatimURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.QPS <= 0 {
		cfg.QPS = 1
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: cfg.Timeout}
	}
	return &Nominatim{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		userAgent: cfg.UserAgent,
		client:    cfg.Client,
		limiter:   rate.NewLimiter(rate.Limit(cfg.QPS), 1),
	}
}

// NewNominatimFromEnv：读取 NOMINATIM_URL / NOMINATIM_USER_AGENT / NOMINATIM_TIMEOUT_S / NOMINATIM_QPS
func NewNominatimFromEnv() *Nominatim {
	cfg := NominatimConfig{
		BaseURL:   os.Getenv("NOMINATIM_URL"),
		UserAgent: os.Getenv("NOMINATIM_USER_AGENT"),
	}
	if s := os.Getenv("NOMINATIM_TIMEOUT_S"); s != "" {
		if n, e := strconv.Atoi(s); e == nil && n > 0 {
			cfg.Timeout = time.Duration(n) * time.Second
		}
	}
	if s := os.Getenv("NOMINATIM_QPS"); s != "" {
		if f, e := strconv.ParseFloat(s, 64); e == nil && f > 0 {
			cfg.QPS = f
		}
	}
	logger.L().Debug("nominatim_env", "url", cfg.BaseURL, "qps", cfg.QPS)
	return NewNominatim(cfg)
}

type searchHit struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

type reverseResp struct {
	Error   string `json:"error"`
	Address struct {
		Country     string `json:"country"`
		CountryCode string `json:"country_code"`
	} `json:"address"`
}

// Geocode：地名 → 坐标
func (n *Nominatim) Geocode(ctx context.Context, query string) (towers.Point, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("format", "jsonv2")
	q.Set("limit", "1")
	var hits []searchHit
	if err := n.get(ctx, "forward", "/search", q, &hits); err != nil {
		return towers.Point{}, err
	}
	if len(hits) == 0 {
		return towers.Point{}, ErrNoResult
	}
	lat, err1 := strconv.ParseFloat(hits[0].Lat, 64)
	lon, err2 := strconv.ParseFloat(hits[0].Lon, 64)
	if err1 != nil || err2 != nil {
		return towers.Point{}, fmt.Errorf("%w: bad coordinates %q,%q", ErrUpstream, hits[0].Lat, hits[0].Lon)
	}
	return towers.Point{Lat: lat, Lon: lon}, nil
}

// ReverseCountry：坐标 → ISO alpha-3
func (n *Nominatim) ReverseCountry(ctx context.Context, p towers.Point) (string, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(p.Lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(p.Lon, 'f', -1, 64))
	q.Set("format", "jsonv2")
	q.Set("zoom", "3")
	q.Set("addressdetails", "1")
	q.Set("accept-language", "en")
	var r reverseResp
	if err := n.get(ctx, "reverse", "/reverse", q, &r); err != nil {
		return "", err
	}
	if r.Error != "" || r.Address.CountryCode == "" {
		logger.L().Error("nominatim_reverse_no_country", "lat", p.Lat, "lon", p.Lon, "error", r.Error)
		return "", ErrNoResult
	}
	a2 := strings.ToUpper(r.Address.CountryCode)
	a3, ok := Alpha3(a2)
	if !ok {
		logger.L().Error("alpha3_not_found", "alpha2", a2)
		return "", fmt.Errorf("%w: unknown country code %q", ErrNoResult, a2)
	}
	return a3, nil
}

func (n *Nominatim) get(ctx context.Context, kind, path string, q url.Values, out any) error {
	if err := n.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	req.Header.Set("User-Agent", n.userAgent)
	req.Header.Set("Accept", "application/json")
	t0 := time.Now()
	metrics.GeocodeRequestsTotal.WithLabelValues(kind).Inc()
	resp, err := n.client.Do(req)
	if err != nil {
		metrics.GeocodeFailTotal.WithLabelValues(kind).Inc()
		logger.L().Error("nominatim_http_error", "kind", kind, "err", err)
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		metrics.GeocodeFailTotal.WithLabelValues(kind).Inc()
		logger.L().Error("nominatim_status", "kind", kind, "status", resp.StatusCode)
		return fmt.Errorf("%w: http status %d", ErrUpstream, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		metrics.GeocodeFailTotal.WithLabelValues(kind).Inc()
		logger.L().Error("nominatim_decode_error", "kind", kind, "err", err)
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	dur := time.Since(t0).Milliseconds()
	metrics.GeocodeDurationMs.WithLabelValues(kind).Observe(float64(dur))
	logger.L().Debug("nominatim_resp", "kind", kind, "duration_ms", dur)
	return nil
}
