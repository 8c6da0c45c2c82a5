package geocode

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"tower-api/internal/towers"
)

func newTestNominatim(t *testing.T, h http.HandlerFunc) *Nominatim {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewNominatim(NominatimConfig{BaseURL: srv.URL, QPS: 1000})
}

func TestGeocodeForward(t *testing.T) {
	n := newTestNominatim(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if ua := r.Header.Get("User-Agent"); ua != "cell_tower_locator" {
			t.Errorf("User-Agent = %q", ua)
		}
		if q := r.URL.Query().Get("q"); q != "Tashkent" {
			t.Errorf("q = %q", q)
		}
		_, _ = w.Write([]byte(`[{"lat":"41.3123363","lon":"69.2787079","display_name":"Tashkent"}]`))
	})
	p, err := n.Geocode(context.Background(), "Tashkent")
	if err != nil {
		t.Fatalf("Geocode: %v", err)
	}
	if p.Lat != 41.3123363 || p.Lon != 69.2787079 {
		t.Fatalf("point = %+v", p)
	}
}

func TestGeocodeNoResult(t *testing.T) {
	n := newTestNominatim(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})
	_, err := n.Geocode(context.Background(), "nowhere at all")
	if !errors.Is(err, ErrNoResult) || !errors.Is(err, ErrUpstream) {
		t.Fatalf("err = %v, want ErrNoResult (an ErrUpstream)", err)
	}
}

func TestGeocodeHTTPError(t *testing.T) {
	n := newTestNominatim(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	_, err := n.Geocode(context.Background(), "x")
	if !errors.Is(err, ErrUpstream) || errors.Is(err, ErrNoResult) {
		t.Fatalf("err = %v, want ErrUpstream only", err)
	}
}

func TestReverseCountry(t *testing.T) {
	n := newTestNominatim(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if r.URL.Path != "/reverse" || q.Get("accept-language") != "en" || q.Get("lat") != "40" || q.Get("lon") != "-74" {
			t.Errorf("unexpected request %s", r.URL.String())
		}
		_, _ = w.Write([]byte(`{"address":{"country":"United States","country_code":"us"}}`))
	})
	code, err := n.ReverseCountry(context.Background(), towers.Point{Lat: 40, Lon: -74})
	if err != nil || code != "USA" {
		t.Fatalf("ReverseCountry = %q, %v", code, err)
	}
}

func TestReverseCountryOcean(t *testing.T) {
	n := newTestNominatim(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":"Unable to geocode"}`))
	})
	_, err := n.ReverseCountry(context.Background(), towers.Point{Lat: 0, Lon: -30})
	if !errors.Is(err, ErrNoResult) {
		t.Fatalf("err = %v, want ErrNoResult", err)
	}
}

func TestReverseCountryUnknownCode(t *testing.T) {
	n := newTestNominatim(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"address":{"country_code":"zz"}}`))
	})
	_, err := n.ReverseCountry(context.Background(), towers.Point{Lat: 1, Lon: 1})
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("err = %v, want ErrUpstream", err)
	}
}

func TestAlpha3(t *testing.T) {
	cases := map[string]string{"us": "USA", "UZ": "UZB", " gb ": "GBR", "XK": "XKX"}
	for in, want := range cases {
		if got, ok := Alpha3(in); !ok || got != want {
			t.Errorf("Alpha3(%q) = %q,%v want %q", in, got, ok, want)
		}
	}
	if _, ok := Alpha3("ZZ"); ok {
		t.Errorf("Alpha3(ZZ) should be unknown")
	}
}
