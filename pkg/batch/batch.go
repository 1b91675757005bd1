// Package batch provides bulk reverse geocoding on top of the Nominatim
// client. The client itself carries no rate limiting or caching; this
// package is the caller-side component that honors the public instance's
// usage policy and deduplicates repeated coordinates.
package batch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/NERVsystems/nominatim/pkg/monitoring"
	"github.com/NERVsystems/nominatim/pkg/nominatim"
)

const (
	// DefaultWorkers bounds concurrent lookups
	DefaultWorkers = 4

	// DefaultCacheSize is the number of resolved coordinates kept
	DefaultCacheSize = 1024

	// DefaultRPS matches the public Nominatim usage policy
	DefaultRPS = 1.0

	// cacheType labels cache metrics for this package
	cacheType = "geocode"
)

// Options configures a Geocoder. Zero values select the defaults.
type Options struct {
	Workers   int
	CacheSize int
	RPS       float64
	Burst     int
	Zoom      *int
	Logger    *slog.Logger
}

// Request is one coordinate pair to reverse geocode. Latitude and longitude
// are decimal strings as accepted by the Nominatim API.
type Request struct {
	Latitude  string
	Longitude string
}

// Result pairs a request with its outcome. Exactly one of Place and Err is
// set.
type Result struct {
	Request Request
	Place   *nominatim.Place
	Err     error
}

// Geocoder resolves batches of coordinates through a shared client,
// rate-limited and deduplicated. Safe for concurrent use.
type Geocoder struct {
	client  *nominatim.Client
	limiter *rate.Limiter
	cache   *lru.Cache[string, *nominatim.Place]
	flight  singleflight.Group
	logger  *slog.Logger
	workers int
	zoom    *int
}

// New creates a Geocoder around client.
func New(client *nominatim.Client, opts Options) (*Geocoder, error) {
	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	size := opts.CacheSize
	if size <= 0 {
		size = DefaultCacheSize
	}
	rps := opts.RPS
	if rps <= 0 {
		rps = DefaultRPS
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 1
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	cache, err := lru.New[string, *nominatim.Place](size)
	if err != nil {
		return nil, fmt.Errorf("batch: create cache: %w", err)
	}

	return &Geocoder{
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		cache:   cache,
		logger:  logger,
		workers: workers,
		zoom:    opts.Zoom,
	}, nil
}

// ReverseAll resolves every request and returns one result per request, in
// input order. Individual failures are reported per result; the batch keeps
// going. Cancelling ctx aborts outstanding lookups.
func (g *Geocoder) ReverseAll(ctx context.Context, reqs []Request) []Result {
	results := make([]Result, len(reqs))

	grp, ctx := errgroup.WithContext(ctx)
	grp.SetLimit(g.workers)

	for i, req := range reqs {
		grp.Go(func() error {
			results[i] = g.reverseOne(ctx, req)
			return nil
		})
	}

	// Workers never return errors; failures live in the results.
	_ = grp.Wait()
	return results
}

// Reverse resolves a single coordinate pair through the cache and limiter.
func (g *Geocoder) Reverse(ctx context.Context, req Request) (*nominatim.Place, error) {
	res := g.reverseOne(ctx, req)
	return res.Place, res.Err
}

func (g *Geocoder) reverseOne(ctx context.Context, req Request) Result {
	key := req.Latitude + "," + req.Longitude

	if place, ok := g.cache.Get(key); ok {
		monitoring.RecordCacheHit(cacheType)
		return Result{Request: req, Place: place}
	}
	monitoring.RecordCacheMiss(cacheType)

	// Collapse concurrent lookups of the same coordinates into one call.
	v, err, _ := g.flight.Do(key, func() (interface{}, error) {
		if place, ok := g.cache.Get(key); ok {
			return place, nil
		}

		start := time.Now()
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("batch: rate limit wait: %w", err)
		}
		if wait := time.Since(start); wait > 100*time.Millisecond {
			monitoring.ObserveRateLimitWait(monitoring.ServiceName, wait)
		}

		place, err := g.client.Reverse(ctx, req.Latitude, req.Longitude, g.zoom)
		if err != nil {
			return nil, err
		}

		g.cache.Add(key, place)
		return place, nil
	})
	if err != nil {
		g.logger.Debug("reverse geocode failed",
			"lat", req.Latitude,
			"lon", req.Longitude,
			"error", err,
		)
		return Result{Request: req, Err: err}
	}

	return Result{Request: req, Place: v.(*nominatim.Place)}
}

// CacheLen returns the number of resolved coordinates currently cached.
func (g *Geocoder) CacheLen() int {
	return g.cache.Len()
}
