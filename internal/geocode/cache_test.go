package geocode

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"

	"tower-api/internal/metrics"
	"tower-api/internal/towers"
)

type countingGeocoder struct {
	fwd, rev int
}

func (c *countingGeocoder) Geocode(ctx context.Context, q string) (towers.Point, error) {
	c.fwd++
	return towers.Point{Lat: 1, Lon: 2}, nil
}

func (c *countingGeocoder) ReverseCountry(ctx context.Context, p towers.Point) (string, error) {
	c.rev++
	return "USA", nil
}

func TestCachedWithoutRedisPassesThrough(t *testing.T) {
	inner := &countingGeocoder{}
	c := NewCached(inner, nil, 0)
	for i := 0; i < 2; i++ {
		if p, err := c.Geocode(context.Background(), "x"); err != nil || p.Lat != 1 {
			t.Fatalf("Geocode = %+v, %v", p, err)
		}
		if code, err := c.ReverseCountry(context.Background(), towers.Point{}); err != nil || code != "USA" {
			t.Fatalf("ReverseCountry = %q, %v", code, err)
		}
	}
	if inner.fwd != 2 || inner.rev != 2 {
		t.Fatalf("calls = %d/%d, want 2/2", inner.fwd, inner.rev)
	}
}

func TestCacheKeys(t *testing.T) {
	if a, b := forwardKey("New  York"), forwardKey(" new york "); a != b {
		t.Fatalf("forward keys differ: %q vs %q", a, b)
	}
	if k := reverseKey(towers.Point{Lat: 40.00012, Lon: -74.00049}); k != "geo:rev:40.000:-74.000" {
		t.Fatalf("reverse key = %q", k)
	}
}

// memKV：进程内 Redis 替身，记录写入与过期时间
type memKV struct {
	data    map[string]string
	ttl     map[string]time.Duration
	failGet bool
}

func newMemKV() *memKV {
	return &memKV{data: map[string]string{}, ttl: map[string]time.Duration{}}
}

func (m *memKV) Get(ctx context.Context, key string) *redis.StringCmd {
	if m.failGet {
		return redis.NewStringResult("", errors.New("connection refused"))
	}
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *memKV) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	m.data[key] = fmt.Sprint(value)
	m.ttl[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func TestCachedStoresAndHits(t *testing.T) {
	inner := &countingGeocoder{}
	kv := newMemKV()
	c := newCached(inner, kv, time.Hour)
	ctx := context.Background()
	hits := testutil.ToFloat64(metrics.GeocodeCacheHitsTotal)
	for i := 0; i < 3; i++ {
		if p, err := c.Geocode(ctx, "New York"); err != nil || p != (towers.Point{Lat: 1, Lon: 2}) {
			t.Fatalf("Geocode = %+v, %v", p, err)
		}
		if code, err := c.ReverseCountry(ctx, towers.Point{Lat: 40, Lon: -74}); err != nil || code != "USA" {
			t.Fatalf("ReverseCountry = %q, %v", code, err)
		}
	}
	if inner.fwd != 1 || inner.rev != 1 {
		t.Fatalf("upstream calls = %d/%d, want 1/1", inner.fwd, inner.rev)
	}
	if got := testutil.ToFloat64(metrics.GeocodeCacheHitsTotal) - hits; got != 4 {
		t.Fatalf("cache hits delta = %v, want 4", got)
	}
	if kv.data["geo:rev:40.000:-74.000"] != "USA" || kv.ttl[forwardKey("new york")] != time.Hour {
		t.Fatalf("cache contents = %v ttl = %v", kv.data, kv.ttl)
	}
}

type failingGeocoder struct{ calls int }

func (f *failingGeocoder) Geocode(ctx context.Context, q string) (towers.Point, error) {
	f.calls++
	return towers.Point{}, ErrNoResult
}

func (f *failingGeocoder) ReverseCountry(ctx context.Context, p towers.Point) (string, error) {
	f.calls++
	return "", ErrUpstream
}

func TestCachedDoesNotStoreFailures(t *testing.T) {
	inner := &failingGeocoder{}
	kv := newMemKV()
	c := newCached(inner, kv, 0)
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, err := c.Geocode(ctx, "Atlantis"); !errors.Is(err, ErrNoResult) {
			t.Fatalf("Geocode err = %v", err)
		}
		if _, err := c.ReverseCountry(ctx, towers.Point{}); !errors.Is(err, ErrUpstream) {
			t.Fatalf("ReverseCountry err = %v", err)
		}
	}
	if inner.calls != 4 || len(kv.data) != 0 {
		t.Fatalf("calls = %d, cached = %v", inner.calls, kv.data)
	}
}

func TestCachedRedisErrorFallsThrough(t *testing.T) {
	inner := &countingGeocoder{}
	kv := newMemKV()
	kv.failGet = true
	c := newCached(inner, kv, 0)
	if code, err := c.ReverseCountry(context.Background(), towers.Point{Lat: 1, Lon: 1}); err != nil || code != "USA" {
		t.Fatalf("ReverseCountry = %q, %v", code, err)
	}
	if inner.rev != 1 || kv.ttl["geo:rev:1.000:1.000"] != 24*time.Hour {
		t.Fatalf("rev calls = %d ttl = %v", inner.rev, kv.ttl)
	}
}
