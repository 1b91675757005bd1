// Command nominatim is a small CLI for the Nominatim geocoding API.
//
// Usage:
//
//	nominatim [flags] status
//	nominatim [flags] search <query>
//	nominatim [flags] reverse <lat> <lon>
//	nominatim [flags] lookup <osm_id> [osm_id ...]
//	nominatim [flags] batch <file|->
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/NERVsystems/nominatim/pkg/batch"
	"github.com/NERVsystems/nominatim/pkg/monitoring"
	"github.com/NERVsystems/nominatim/pkg/nominatim"
	"github.com/NERVsystems/nominatim/pkg/tracing"
	ver "github.com/NERVsystems/nominatim/pkg/version"
)

var (
	showVersionFlag bool
	debug           bool

	userAgent string
	referer   string
	baseURL   string
	timeout   time.Duration
	zoom      int

	// Batch flags
	workers   int
	cacheSize int
	rps       float64
	burst     int

	// Monitoring flags
	enableMonitoring bool
	monitoringAddr   string
)

func init() {
	flag.BoolVar(&showVersionFlag, "version", false, "Display version information")
	flag.BoolVar(&debug, "debug", false, "Enable debug logging")

	flag.StringVar(&userAgent, "user-agent", "nominatim-cli/"+ver.BuildVersion, "User-Agent identification string")
	flag.StringVar(&referer, "referer", "", "Referer identification URL (overrides -user-agent)")
	flag.StringVar(&baseURL, "base-url", nominatim.DefaultBaseURL, "Nominatim server base URL")
	flag.DurationVar(&timeout, "timeout", nominatim.DefaultTimeout, "Per-request timeout")
	flag.IntVar(&zoom, "zoom", -1, "Reverse geocoding zoom level (0-18, -1 for server default)")

	// Batch flags
	flag.IntVar(&workers, "workers", batch.DefaultWorkers, "Concurrent workers for batch mode")
	flag.IntVar(&cacheSize, "cache-size", batch.DefaultCacheSize, "Resolved-coordinate cache size for batch mode")
	flag.Float64Var(&rps, "rps", batch.DefaultRPS, "Rate limit in requests per second for batch mode")
	flag.IntVar(&burst, "burst", 1, "Rate limit burst size for batch mode")

	// Monitoring flags
	flag.BoolVar(&enableMonitoring, "enable-monitoring", false, "Enable Prometheus metrics and health endpoints")
	flag.StringVar(&monitoringAddr, "monitoring-addr", ":9090", "Monitoring server address")
}

func main() {
	flag.Parse()

	var logLevel slog.Level
	if debug {
		logLevel = slog.LevelDebug
	} else {
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	if showVersionFlag {
		for k, v := range ver.Info() {
			fmt.Printf("%s: %s\n", k, v)
		}
		return
	}

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(logger, flag.Args()); err != nil {
		logger.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.InitTracing(ctx, ver.BuildVersion)
	if err != nil {
		logger.Error("failed to initialize tracing", "error", err)
		// Continue without tracing
	} else {
		defer func() {
			if err := shutdownTracing(context.Background()); err != nil {
				logger.Error("error shutting down tracing", "error", err)
			}
		}()
	}

	client, err := newClient()
	if err != nil {
		return err
	}
	client.SetLogger(logger)
	client.SetMonitoringHooks(monitoring.Hooks())

	if enableMonitoring {
		hc := monitoring.NewHealthChecker("nominatim-cli", ver.BuildVersion)
		hc.AddProbe("nominatim", func(ctx context.Context) error {
			_, err := client.Status(ctx)
			return err
		})

		srv := monitoring.NewServer(monitoringAddr, hc, logger)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("monitoring server failed", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("monitoring server shutdown failed", "error", err)
			}
		}()
	}

	switch cmd, rest := args[0], args[1:]; cmd {
	case "status":
		status, err := client.Status(ctx)
		if err != nil {
			return err
		}
		return printJSON(status)

	case "search":
		if len(rest) == 0 {
			return errors.New("search requires a query")
		}
		places, err := client.Search(ctx, strings.Join(rest, " "))
		if err != nil {
			return err
		}
		return printJSON(places)

	case "reverse":
		if len(rest) != 2 {
			return errors.New("reverse requires <lat> <lon>")
		}
		place, err := client.Reverse(ctx, rest[0], rest[1], zoomArg())
		if err != nil {
			return err
		}
		return printJSON(place)

	case "lookup":
		if len(rest) == 0 {
			return errors.New("lookup requires at least one OSM identifier")
		}
		places, err := client.Lookup(ctx, rest)
		if err != nil {
			return err
		}
		return printJSON(places)

	case "batch":
		if len(rest) != 1 {
			return errors.New("batch requires an input file, or - for stdin")
		}
		return runBatch(ctx, logger, client, rest[0])

	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func newClient() (*nominatim.Client, error) {
	var (
		ident nominatim.Identification
		err   error
	)
	if referer != "" {
		ident, err = nominatim.Referer(referer)
	} else {
		ident, err = nominatim.UserAgent(userAgent)
	}
	if err != nil {
		return nil, err
	}

	client := nominatim.New(ident)
	client.Timeout = timeout
	if baseURL != nominatim.DefaultBaseURL {
		if err := client.SetBaseURL(baseURL); err != nil {
			return nil, err
		}
	}
	return client, nil
}

func zoomArg() *int {
	if zoom < 0 {
		return nil
	}
	z := zoom
	return &z
}

// runBatch reverse geocodes a file of "lat,lon" lines and emits one JSON
// object per line on stdout.
func runBatch(ctx context.Context, logger *slog.Logger, client *nominatim.Client, path string) error {
	var in io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	reqs, err := readRequests(in)
	if err != nil {
		return err
	}
	if len(reqs) == 0 {
		return errors.New("no coordinates in input")
	}

	geocoder, err := batch.New(client, batch.Options{
		Workers:   workers,
		CacheSize: cacheSize,
		RPS:       rps,
		Burst:     burst,
		Zoom:      zoomArg(),
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	logger.Info("starting batch reverse geocode",
		"coordinates", len(reqs),
		"workers", workers,
		"rps", rps,
	)

	enc := json.NewEncoder(os.Stdout)
	failed := 0
	for _, res := range geocoder.ReverseAll(ctx, reqs) {
		line := map[string]any{
			"lat": res.Request.Latitude,
			"lon": res.Request.Longitude,
		}
		if res.Err != nil {
			failed++
			line["error"] = res.Err.Error()
		} else {
			line["place"] = res.Place
		}
		if err := enc.Encode(line); err != nil {
			return err
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d lookups failed", failed, len(reqs))
	}
	return nil
}

// readRequests parses "lat,lon" lines, skipping blanks and # comments.
func readRequests(in io.Reader) ([]batch.Request, error) {
	var reqs []batch.Request

	scanner := bufio.NewScanner(in)
	for lineNo := 1; scanner.Scan(); lineNo++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		lat, lon, ok := strings.Cut(line, ",")
		if !ok {
			return nil, fmt.Errorf("line %d: expected lat,lon, got %q", lineNo, line)
		}
		reqs = append(reqs, batch.Request{
			Latitude:  strings.TrimSpace(lat),
			Longitude: strings.TrimSpace(lon),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return reqs, nil
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
