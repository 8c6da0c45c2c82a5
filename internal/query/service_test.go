package query

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"tower-api/internal/dataset"
	"tower-api/internal/geocode"
	"tower-api/internal/metrics"
	"tower-api/internal/towers"
)

func scenarioTowers() []towers.TowerRecord {
	return []towers.TowerRecord{
		{Lat: 40.0, Lon: -74.0, Radio: towers.LTE, Range: 1000},
		{Lat: 40.01, Lon: -74.0, Radio: towers.LTE, Range: 1000},
		{Lat: 41.0, Lon: -74.0, Radio: towers.GSM, Range: 500},
	}
}

func newService(t *testing.T, r CountryResolver) (*Service, *dataset.StaticSource) {
	t.Helper()
	src := &dataset.StaticSource{Regions: map[string][]towers.TowerRecord{"USA": scenarioTowers()}}
	st, err := dataset.NewStore(src, 0)
	if err != nil {
		t.Fatal(err)
	}
	return NewService(st, r), src
}

func TestQueryClosestScenario(t *testing.T) {
	s, _ := newService(t, nil)
	res, err := s.Query(context.Background(), "usa", towers.Point{Lat: 40, Lon: -74}, towers.ModeClosestByType)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(res.Closest) != 1 || res.Closest[towers.LTE].DistanceMeters != 0 || res.Closest[towers.LTE].Index != 0 {
		t.Fatalf("Closest = %+v", res.Closest)
	}
}

func TestQueryAllInRangeScenario(t *testing.T) {
	s, _ := newService(t, nil)
	res, err := s.Query(context.Background(), "USA", towers.Point{Lat: 40, Lon: -74}, towers.ModeAllInRange)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(res.InRange) != 1 || res.InRange[0].Index != 0 {
		t.Fatalf("InRange = %+v", res.InRange)
	}
}

func TestQueryDeterministic(t *testing.T) {
	s, src := newService(t, nil)
	p := towers.Point{Lat: 40.004, Lon: -74.001}
	a, err := s.Query(context.Background(), "USA", p, towers.ModeClosestByType)
	if err != nil {
		t.Fatal(err)
	}
	b, err := s.Query(context.Background(), "usa", p, towers.ModeClosestByType)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("results differ:\n%+v\n%+v", a, b)
	}
	if src.Loads() != 1 {
		t.Fatalf("dataset loaded %d times", src.Loads())
	}
}

func TestQueryEmptyIsNotError(t *testing.T) {
	s, _ := newService(t, nil)
	before := testutil.ToFloat64(metrics.EmptyResultsTotal)
	res, err := s.Query(context.Background(), "USA", towers.Point{Lat: 10, Lon: 10}, towers.ModeAllInRange)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if res.Len() != 0 {
		t.Fatalf("expected empty result, got %+v", res)
	}
	if got := testutil.ToFloat64(metrics.EmptyResultsTotal) - before; got != 1 {
		t.Fatalf("empty results counter delta = %v, want 1", got)
	}
}

func TestQueryInvalidInput(t *testing.T) {
	s, _ := newService(t, nil)
	ctx := context.Background()
	cases := []struct {
		name   string
		region string
		p      towers.Point
		mode   towers.Mode
	}{
		{"empty region", "", towers.Point{Lat: 40, Lon: -74}, towers.ModeClosestByType},
		{"nan", "USA", towers.Point{Lat: math.NaN(), Lon: -74}, towers.ModeClosestByType},
		{"lat range", "USA", towers.Point{Lat: 91, Lon: -74}, towers.ModeClosestByType},
		{"mode", "USA", towers.Point{Lat: 40, Lon: -74}, towers.Mode(7)},
	}
	for _, tc := range cases {
		if _, err := s.Query(ctx, tc.region, tc.p, tc.mode); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("%s: err = %v, want ErrInvalidInput", tc.name, err)
		}
	}
}

func TestQueryNotFound(t *testing.T) {
	s, _ := newService(t, nil)
	_, err := s.Query(context.Background(), "ZZZ", towers.Point{Lat: 40, Lon: -74}, towers.ModeClosestByType)
	var nf *dataset.NotFoundError
	if !errors.As(err, &nf) || len(nf.Available) == 0 {
		t.Fatalf("err = %v, want NotFoundError with available regions", err)
	}
}

type fakeResolver struct {
	code string
	err  error
}

func (f fakeResolver) ReverseCountry(ctx context.Context, p towers.Point) (string, error) {
	return f.code, f.err
}

func TestQueryAtResolvesRegion(t *testing.T) {
	s, _ := newService(t, fakeResolver{code: "USA"})
	region, res, err := s.QueryAt(context.Background(), towers.Point{Lat: 40, Lon: -74}, towers.ModeClosestByType)
	if err != nil || region != "USA" || res.Len() != 1 {
		t.Fatalf("QueryAt = %q, %+v, %v", region, res, err)
	}
}

func TestQueryAtUpstreamFailure(t *testing.T) {
	s, src := newService(t, fakeResolver{err: errors.New("timeout")})
	_, _, err := s.QueryAt(context.Background(), towers.Point{Lat: 40, Lon: -74}, towers.ModeClosestByType)
	if !errors.Is(err, geocode.ErrUpstream) {
		t.Fatalf("err = %v, want ErrUpstream", err)
	}
	if src.Loads() != 0 {
		t.Fatalf("dataset must not load when geocoding fails")
	}
	s, _ = newService(t, nil)
	if _, _, err := s.QueryAt(context.Background(), towers.Point{Lat: 40, Lon: -74}, towers.ModeClosestByType); !errors.Is(err, geocode.ErrUpstream) {
		t.Fatalf("nil resolver err = %v", err)
	}
}
