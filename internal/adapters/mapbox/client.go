package mapbox

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/samirrijal/carcompanion/internal/core/domain"
	"github.com/samirrijal/carcompanion/internal/core/ports"
	"github.com/samirrijal/carcompanion/internal/pkg/telemetry"
)

const DefaultBaseURL = "https://api.mapbox.com"

// HTTPDoer is the subset of *http.Client used by the client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the Mapbox Search Box and Directions APIs.
// It implements ports.PlaceSearchProvider and ports.DirectionsProvider.
type Client struct {
	baseURL string
	tokens  ports.TokenSource
	http    HTTPDoer
	tracer  trace.Tracer
}

// NewClient creates a client with its own *http.Client.
func NewClient(baseURL string, tokens ports.TokenSource, timeout time.Duration) *Client {
	return NewClientWithHTTPDoer(baseURL, tokens, &http.Client{Timeout: timeout})
}

// NewClientWithHTTPDoer creates a client around a custom transport.
func NewClientWithHTTPDoer(baseURL string, tokens ports.TokenSource, doer HTTPDoer) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		http:    doer,
		tracer:  telemetry.Tracer(telemetry.TracerMapbox),
	}
}

// invalidator is implemented by token sources that cache, such as
// backend.TokenClient. A rejected token is dropped so the next call fetches
// a new one instead of waiting for the cache TTL.
type invalidator interface {
	Invalidate()
}

// StaticToken is a TokenSource for a preconfigured access token.
type StaticToken string

func (t StaticToken) Token(ctx context.Context) (string, error) {
	if t == "" {
		return "", fmt.Errorf("%w: no mapbox token configured", domain.ErrUnauthorized)
	}
	return string(t), nil
}

// get performs an authenticated GET and returns the body of a 2xx response.
func (c *Client) get(ctx context.Context, path string, query map[string]string) ([]byte, int, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: build request: %v", domain.ErrRequestFailed, err)
	}
	q := req.URL.Query()
	for k, v := range query {
		q.Set(k, v)
	}
	q.Set("access_token", token)
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, 0, fmt.Errorf("%w: %v", domain.ErrTimeout, err)
		}
		return nil, 0, fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("%w: read body: %v", domain.ErrRequestFailed, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		if inv, ok := c.tokens.(invalidator); ok {
			inv.Invalidate()
		}
		return nil, resp.StatusCode, fmt.Errorf("%w: mapbox returned %d", domain.ErrUnauthorized, resp.StatusCode)
	case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode >= 500:
		return nil, resp.StatusCode, fmt.Errorf("%w: mapbox returned %d", domain.ErrUnavailable, resp.StatusCode)
	case resp.StatusCode >= 400:
		return body, resp.StatusCode, fmt.Errorf("%w: mapbox returned %d: %s", domain.ErrRequestFailed, resp.StatusCode, truncate(body, 200))
	}
	return body, resp.StatusCode, nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

// lonLat formats a point the way Mapbox expects it.
func lonLat(p domain.GeoPoint) string {
	return fmt.Sprintf("%.6f,%.6f", p.Lon, p.Lat)
}
