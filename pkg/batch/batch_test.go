package batch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/NERVsystems/nominatim/pkg/nominatim"
)

const placeFixture = `{
	"place_id": 130546347,
	"osm_type": "way",
	"osm_id": 32965412,
	"lat": "40.689253199999996",
	"lon": "-74.04454817144321",
	"display_name": "Statue of Liberty, Flagpole Plaza, Manhattan Community Board 1, Manhattan, New York County, City of New York, New York, 10004, United States"
}`

func newTestGeocoder(t *testing.T, handler http.HandlerFunc, opts Options) (*Geocoder, *atomic.Int64) {
	t.Helper()

	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	ident, err := nominatim.UserAgent("batch test")
	if err != nil {
		t.Fatalf("UserAgent: %v", err)
	}
	client := nominatim.New(ident)
	if err := client.SetBaseURL(srv.URL); err != nil {
		t.Fatalf("SetBaseURL: %v", err)
	}

	if opts.RPS == 0 {
		// Keep tests fast; the default 1 rps is for the real service.
		opts.RPS = 1000
		opts.Burst = 1000
	}
	g, err := New(client, opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return g, &hits
}

func TestReverseAllOrderPreserved(t *testing.T) {
	g, _ := newTestGeocoder(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(placeFixture))
	}, Options{Workers: 3})

	reqs := []Request{
		{Latitude: "40.1", Longitude: "-74.1"},
		{Latitude: "40.2", Longitude: "-74.2"},
		{Latitude: "40.3", Longitude: "-74.3"},
		{Latitude: "40.4", Longitude: "-74.4"},
	}

	results := g.ReverseAll(context.Background(), reqs)
	if len(results) != len(reqs) {
		t.Fatalf("got %d results, want %d", len(results), len(reqs))
	}

	for i, res := range results {
		if res.Request != reqs[i] {
			t.Errorf("result %d is for %+v, want %+v", i, res.Request, reqs[i])
		}
		if res.Err != nil {
			t.Errorf("result %d error: %v", i, res.Err)
		}
		if res.Place == nil || res.Place.PlaceID != 130546347 {
			t.Errorf("result %d place = %+v", i, res.Place)
		}
	}
}

func TestReverseAllDeduplicates(t *testing.T) {
	g, hits := newTestGeocoder(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(placeFixture))
	}, Options{Workers: 2})

	same := Request{Latitude: "40.689249", Longitude: "-74.044500"}
	reqs := []Request{same, same, same, same, same}

	results := g.ReverseAll(context.Background(), reqs)
	for i, res := range results {
		if res.Err != nil {
			t.Fatalf("result %d error: %v", i, res.Err)
		}
	}

	if got := hits.Load(); got != 1 {
		t.Errorf("server saw %d requests, want 1 (cache + singleflight)", got)
	}
	if g.CacheLen() != 1 {
		t.Errorf("cache has %d entries, want 1", g.CacheLen())
	}
}

func TestReverseAllPartialFailure(t *testing.T) {
	g, _ := newTestGeocoder(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("lat") == "91.0" {
			http.Error(w, "Unable to geocode", http.StatusBadRequest)
			return
		}
		w.Write([]byte(placeFixture))
	}, Options{})

	reqs := []Request{
		{Latitude: "40.689249", Longitude: "-74.044500"},
		{Latitude: "91.0", Longitude: "0.0"},
	}

	results := g.ReverseAll(context.Background(), reqs)
	if results[0].Err != nil {
		t.Errorf("result 0 error: %v", results[0].Err)
	}
	if results[1].Err == nil {
		t.Error("result 1 should carry the server error")
	}
	if results[1].Place != nil {
		t.Errorf("result 1 place = %+v, want nil", results[1].Place)
	}
}

func TestReverseUsesZoom(t *testing.T) {
	var sawZoom string
	zoom := 10
	g, _ := newTestGeocoder(t, func(w http.ResponseWriter, r *http.Request) {
		sawZoom = r.URL.Query().Get("zoom")
		w.Write([]byte(placeFixture))
	}, Options{Zoom: &zoom})

	if _, err := g.Reverse(context.Background(), Request{Latitude: "40.1", Longitude: "-74.1"}); err != nil {
		t.Fatalf("Reverse: %v", err)
	}
	if sawZoom != "10" {
		t.Errorf("zoom = %q, want %q", sawZoom, "10")
	}
}

func TestReverseCancelled(t *testing.T) {
	g, _ := newTestGeocoder(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(placeFixture))
	}, Options{RPS: 0.001, Burst: 1})

	// First call consumes the burst; the second blocks on the limiter
	// until the context is cancelled.
	if _, err := g.Reverse(context.Background(), Request{Latitude: "40.1", Longitude: "-74.1"}); err != nil {
		t.Fatalf("first Reverse: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := g.Reverse(ctx, Request{Latitude: "40.2", Longitude: "-74.2"}); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}
