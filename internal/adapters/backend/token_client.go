// Package backend is the client of the token-issuing backend that hands
// out the mapping provider's public access token to signed-in users.
package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/samirrijal/carcompanion/internal/core/domain"
	"github.com/samirrijal/carcompanion/internal/pkg/metrics"
	"github.com/samirrijal/carcompanion/internal/pkg/telemetry"
)

// HTTPDoer is the subset of *http.Client used by TokenClient.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// TokenClient fetches the map token with the session's bearer credential
// and caches it for ttl. It implements ports.TokenSource.
type TokenClient struct {
	url     string
	session domain.Session
	ttl     time.Duration
	http    HTTPDoer
	tracer  trace.Tracer
	now     func() time.Time

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

type tokenResponse struct {
	Token string `json:"token"`
	Error string `json:"error"`
}

// NewTokenClient creates a TokenClient. A non-positive ttl disables caching.
func NewTokenClient(url string, session domain.Session, ttl time.Duration, doer HTTPDoer) *TokenClient {
	if doer == nil {
		doer = &http.Client{Timeout: 10 * time.Second}
	}
	return &TokenClient{
		url:     url,
		session: session,
		ttl:     ttl,
		http:    doer,
		tracer:  telemetry.Tracer(telemetry.TracerBackend),
		now:     time.Now,
	}
}

// Token returns the cached token or fetches a new one.
func (c *TokenClient) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Before(c.expiresAt) {
		metrics.CacheHits.WithLabelValues("map_token").Inc()
		return c.token, nil
	}
	metrics.CacheMisses.WithLabelValues("map_token").Inc()

	token, err := c.fetch(ctx)
	if err != nil {
		return "", err
	}
	if c.ttl > 0 {
		c.token = token
		c.expiresAt = c.now().Add(c.ttl)
	}
	return token, nil
}

// Invalidate drops the cached token, e.g. after the provider rejected it.
func (c *TokenClient) Invalidate() {
	c.mu.Lock()
	c.token = ""
	c.expiresAt = time.Time{}
	c.mu.Unlock()
}

func (c *TokenClient) fetch(ctx context.Context) (token string, err error) {
	ctx, span := c.tracer.Start(ctx, "backend.map_token")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()
	defer metrics.ObserveProvider("backend", "map_token", time.Now())

	if c.session.AccessToken == "" {
		return "", fmt.Errorf("%w: no session", domain.ErrUnauthorized)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return "", fmt.Errorf("%w: build request: %v", domain.ErrUnavailable, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.session.AccessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: token request: %v", domain.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", fmt.Errorf("%w: read token response: %v", domain.ErrUnavailable, err)
	}

	var tr tokenResponse
	_ = json.Unmarshal(body, &tr)

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return "", fmt.Errorf("%w: %s", domain.ErrUnauthorized, tr.Error)
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("%w: token endpoint returned %d: %s", domain.ErrUnavailable, resp.StatusCode, tr.Error)
	case tr.Token == "":
		return "", fmt.Errorf("%w: empty token in response", domain.ErrUnavailable)
	}
	return tr.Token, nil
}
