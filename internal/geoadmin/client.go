// Package geoadmin is a client for the swisstopo services on geo.admin.ch used
// to look up elevations: the WGS84→LV95 reframe service, the point height
// service and the line profile service.
package geoadmin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/pspoerri/gpxelevation/internal/log"
	"github.com/pspoerri/gpxelevation/internal/metrics"
)

// Default service URLs.
const (
	DefaultReframeURL = "https://geodesy.geo.admin.ch/reframe/wgs84tolv95"
	DefaultHeightURL  = "https://api3.geo.admin.ch/rest/services/height"
	DefaultProfileURL = "https://api3.geo.admin.ch/rest/services/profile.json"
)

// SpatialReference is the EPSG code sent as "sr" to the height and profile services.
const SpatialReference = 2056

// Doer sends an HTTP request. *http.Client satisfies it; tests substitute fakes.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Endpoints holds the base URLs of the three services.
type Endpoints struct {
	Reframe string
	Height  string
	Profile string
}

// DefaultEndpoints returns the public geo.admin.ch endpoints.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		Reframe: DefaultReframeURL,
		Height:  DefaultHeightURL,
		Profile: DefaultProfileURL,
	}
}

// Client talks to the geo.admin.ch services. It holds no per-call state and
// may be shared between sequential or concurrent callers when its Doer can.
type Client struct {
	doer      Doer
	endpoints Endpoints
	userAgent string
}

// Option configures a Client.
type Option func(*Client)

// WithEndpoints overrides the service URLs. Empty fields keep their default.
func WithEndpoints(e Endpoints) Option {
	return func(c *Client) {
		if e.Reframe != "" {
			c.endpoints.Reframe = e.Reframe
		}
		if e.Height != "" {
			c.endpoints.Height = e.Height
		}
		if e.Profile != "" {
			c.endpoints.Profile = e.Profile
		}
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// NewClient creates a client sending requests through doer.
// A nil doer uses http.DefaultClient.
func NewClient(doer Doer, opts ...Option) *Client {
	if doer == nil {
		doer = http.DefaultClient
	}
	c := &Client{doer: doer, endpoints: DefaultEndpoints()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewHTTPClient builds the shared *http.Client. A zero timeout means none.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

// Endpoints returns the configured service URLs.
func (c *Client) Endpoints() Endpoints {
	return c.endpoints
}

// getJSON issues GET base?query and decodes the JSON body into v.
// Transport failures, non-2xx statuses and undecodable bodies become *TransportError.
func (c *Client) getJSON(ctx context.Context, endpoint, base string, query url.Values, v any) error {
	u := base
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return &TransportError{Endpoint: endpoint, URL: u, Err: fmt.Errorf("creating request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	start := time.Now()
	resp, err := c.doer.Do(req)
	if err != nil {
		metrics.ObserveRequest(endpoint, 0, time.Since(start))
		return &TransportError{Endpoint: endpoint, URL: u, Err: err}
	}
	defer resp.Body.Close()
	metrics.ObserveRequest(endpoint, resp.StatusCode, time.Since(start))

	log.Debugw("geoadmin request", "endpoint", endpoint, "status", resp.StatusCode,
		"duration", time.Since(start).Round(time.Millisecond))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &TransportError{
			Endpoint:   endpoint,
			URL:        u,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status %s: %s", resp.Status, snippet),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return &TransportError{
			Endpoint:   endpoint,
			URL:        u,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("decoding response: %w", err),
		}
	}
	return nil
}
