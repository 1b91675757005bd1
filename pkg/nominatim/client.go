package nominatim

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/NERVsystems/nominatim/pkg/tracing"
)

const (
	// DefaultBaseURL is the public Nominatim instance.
	DefaultBaseURL = "https://nominatim.openstreetmap.org/"

	// DefaultTimeout bounds each request unless the caller overrides
	// Client.Timeout.
	DefaultTimeout = 10 * time.Second
)

// ErrInvalidBaseURL is returned by SetBaseURL when the given string is not
// an absolute URL.
var ErrInvalidBaseURL = errors.New("invalid base URL")

// Client is the interface for accessing a Nominatim API server. It is safe
// for concurrent use; each operation is a single stateless round trip and
// the only shared state is the immutable configuration.
//
// The client does not rate-limit requests. Callers targeting the public
// instance are responsible for honoring its usage policy (at most one
// request per second) externally; see the batch package.
type Client struct {
	ident   Identification
	baseURL *url.URL
	http    *http.Client
	logger  *slog.Logger
	hooks   *MonitoringHooks

	// Timeout bounds each individual request, overriding any
	// transport-level default. Mutable between calls.
	Timeout time.Duration
}

// New creates a Client that identifies itself with ident, targeting the
// public Nominatim instance with the default timeout.
func New(ident Identification) *Client {
	base, err := url.Parse(DefaultBaseURL)
	if err != nil {
		panic("nominatim: default base URL does not parse: " + err.Error())
	}

	return &Client{
		ident:   ident,
		baseURL: base,
		http: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		logger:  slog.Default(),
		Timeout: DefaultTimeout,
	}
}

// SetBaseURL replaces the base URL against which all endpoint paths are
// resolved. Only well-formedness is validated, not reachability. On error
// the existing base URL is left unchanged.
func (c *Client) SetBaseURL(raw string) error {
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBaseURL, err)
	}
	if !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("%w: %q is not absolute", ErrInvalidBaseURL, raw)
	}
	c.baseURL = u
	return nil
}

// SetLogger sets the logger for the client.
func (c *Client) SetLogger(logger *slog.Logger) {
	c.logger = logger
}

// SetMonitoringHooks sets optional monitoring callbacks for the client.
func (c *Client) SetMonitoringHooks(hooks *MonitoringHooks) {
	c.hooks = hooks
}

// Status checks the status of the Nominatim server.
func (c *Client) Status(ctx context.Context) (*Status, error) {
	var status Status
	if err := c.get(ctx, "status", c.endpoint("status.php", "format=json"), &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Search returns the places matching a free-text query, in the order the
// server returned them.
func (c *Client) Search(ctx context.Context, query string) ([]Place, error) {
	q := fmt.Sprintf("addressdetails=1&extratags=1&q=%s&format=json", url.QueryEscape(query))

	var places []Place
	if err := c.get(ctx, "search", c.endpoint("", q), &places); err != nil {
		return nil, err
	}
	return places, nil
}

// Reverse returns the place at the given latitude and longitude. The
// coordinates are decimal strings; embedded spaces are stripped. A non-nil
// zoom selects the administrative granularity of the result (roughly 0-18
// per Nominatim semantics); it is passed through without range validation
// and the server's response governs the outcome.
func (c *Client) Reverse(ctx context.Context, latitude, longitude string, zoom *int) (*Place, error) {
	lat := strings.ReplaceAll(latitude, " ", "")
	lon := strings.ReplaceAll(longitude, " ", "")

	q := fmt.Sprintf("addressdetails=1&extratags=1&format=json&lat=%s&lon=%s", lat, lon)
	if zoom != nil {
		q += fmt.Sprintf("&zoom=%d", *zoom)
	}

	var place Place
	if err := c.get(ctx, "reverse", c.endpoint("reverse", q), &place); err != nil {
		return nil, err
	}
	return &place, nil
}

// Lookup returns the places for a list of OSM Node, Way or Relation
// identifiers such as "R146656" or "W50637691". Result ordering matches the
// input ordering; identifiers unknown to the server are omitted from the
// result per the remote API's contract.
func (c *Client) Lookup(ctx context.Context, ids []string) ([]Place, error) {
	q := fmt.Sprintf("osm_ids=%s&addressdetails=1&extratags=1&format=json", strings.Join(ids, ","))

	var places []Place
	if err := c.get(ctx, "lookup", c.endpoint("lookup", q), &places); err != nil {
		return nil, err
	}
	return places, nil
}

// endpoint resolves ref against the base URL and attaches the raw query.
func (c *Client) endpoint(ref, query string) string {
	u := *c.baseURL
	if ref != "" {
		u = *c.baseURL.ResolveReference(&url.URL{Path: ref})
	}
	u.RawQuery = query
	return u.String()
}

// get performs a single GET round trip and decodes the JSON body into out.
func (c *Client) get(ctx context.Context, op, rawURL string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	ctx, span := tracing.StartSpan(ctx, "nominatim."+op,
		trace.WithAttributes(
			attribute.String(tracing.AttrServiceName, tracing.ServiceNominatim),
			attribute.String(tracing.AttrServiceOperation, op),
			attribute.String(tracing.AttrServiceURL, rawURL),
		),
	)
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		span.SetStatus(codes.Error, "request construction failed")
		return fmt.Errorf("nominatim: build %s request: %w", op, err)
	}

	// Fresh identification header per call.
	name, value := c.ident.Header()
	req.Header.Set(name, value)

	if c.hooks != nil && c.hooks.OnRequest != nil {
		c.hooks.OnRequest(op)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	duration := time.Since(start)
	if err != nil {
		c.observe(op, duration, false)
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		return fmt.Errorf("nominatim: %s request: %w", op, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Warn("failed to close response body", "error", err)
		}
	}()

	span.SetAttributes(attribute.Int(tracing.AttrHTTPStatusCode, resp.StatusCode))

	if resp.StatusCode != http.StatusOK {
		c.observe(op, duration, false)
		span.SetStatus(codes.Error, "unexpected status")
		return fmt.Errorf("nominatim: %s returned status %d", op, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.observe(op, duration, false)
		span.RecordError(err)
		span.SetStatus(codes.Error, "decode failed")
		return fmt.Errorf("nominatim: decode %s response: %w", op, err)
	}

	c.observe(op, duration, true)
	span.SetStatus(codes.Ok, "")

	c.logger.Debug("nominatim request complete",
		"operation", op,
		"status", resp.StatusCode,
		"duration", duration,
	)
	return nil
}

func (c *Client) observe(op string, duration time.Duration, success bool) {
	if c.hooks != nil && c.hooks.OnResponse != nil {
		c.hooks.OnResponse(op, duration, success)
	}
}
