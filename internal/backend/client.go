// Package backend is the single chokepoint for HTTP calls to the TimePay API.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"timepay.uz/crm/internal/ids"
	"timepay.uz/crm/internal/obs"
)

const (
	LoginPath   = "/user/login/"
	RefreshPath = "/user/auth/refresh/"

	defaultTimeout = 30 * time.Second
)

// TokenSource supplies the bearer token for authenticated calls.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// RefreshFunc rotates the stored tokens. It is invoked at most once per burst
// of concurrent 401 responses.
type RefreshFunc func(ctx context.Context) error

// Request describes one call. Body is JSON encoded when non-nil.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
	Header http.Header
}

// Response is a successful (2xx) reply.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
	// Data is the decoded JSON body, map{"raw": text} when the body is not
	// JSON, or nil when the body is empty.
	Data any
}

// Client issues authenticated requests against one backend origin.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
	limiter *rate.Limiter

	refresh RefreshFunc
	flight  singleflight.Group
}

// Option configures Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTransport wraps the default transport, e.g. with otelhttp.
func WithTransport(wrap func(http.RoundTripper) http.RoundTripper) Option {
	return func(c *Client) {
		if wrap == nil {
			return
		}
		rt := c.http.Transport
		if rt == nil {
			rt = http.DefaultTransport
		}
		c.http.Transport = wrap(rt)
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithRateLimit throttles outbound calls with a token bucket.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			return
		}
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithTokenSource sets where bearer tokens come from.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// New builds a client for baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http: &http.Client{
			Timeout: defaultTimeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   10 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConns:        100,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetRefresher installs the refresh hook used on 401 responses.
func (c *Client) SetRefresher(fn RefreshFunc) { c.refresh = fn }

// BaseURL returns the configured origin.
func (c *Client) BaseURL() string { return c.baseURL }

// IsAuthPath reports whether path is a login or token refresh endpoint,
// which never carry a bearer token.
func IsAuthPath(path string) bool {
	return strings.HasPrefix(path, LoginPath) || strings.HasPrefix(path, RefreshPath)
}

// Do performs the request. Non-2xx statuses yield *Error; failures without a
// response wrap ErrTransport.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	resp, err := c.do(ctx, req)
	if err == nil || StatusOf(err) != http.StatusUnauthorized {
		return resp, err
	}
	if c.refresh == nil || IsAuthPath(req.Path) {
		return resp, err
	}
	if rerr := c.refreshOnce(ctx); rerr != nil {
		return nil, err
	}
	return c.do(ctx, req)
}

// JSON is a shorthand returning only the decoded body.
func (c *Client) JSON(ctx context.Context, method, path string, query url.Values, body any) (any, error) {
	resp, err := c.Do(ctx, Request{Method: method, Path: path, Query: query, Body: body})
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (c *Client) refreshOnce(ctx context.Context) error {
	_, err, _ := c.flight.Do("refresh", func() (any, error) {
		err := c.refresh(ctx)
		if err != nil {
			obs.CountRefresh("failed")
		} else {
			obs.CountRefresh("ok")
		}
		return nil, err
	})
	return err
}

func (c *Client) do(ctx context.Context, req Request) (*Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	target := c.baseURL + req.Path
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		payload, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s: %w", method, req.Path, err)
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	requestID := ids.RequestID()
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", requestID)
	if c.tokens != nil && !IsAuthPath(req.Path) {
		token, err := c.tokens.AccessToken(ctx)
		if err != nil {
			return nil, fmt.Errorf("read access token: %w", err)
		}
		if token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+token)
		}
	}
	for k, vals := range req.Header {
		httpReq.Header.Del(k)
		for _, v := range vals {
			httpReq.Header.Add(k, v)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		obs.ObserveBackend(method, req.Path, 0, time.Since(start))
		obs.Warn("backend_transport_error", map[string]any{
			"method": method, "endpoint": req.Path, "request_id": requestID, "error": err.Error(),
		})
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrTransport, err)
	}
	elapsed := time.Since(start)
	obs.ObserveBackend(method, req.Path, resp.StatusCode, elapsed)
	obs.Info("backend_request", map[string]any{
		"method":      method,
		"endpoint":    req.Path,
		"status":      resp.StatusCode,
		"duration_ms": elapsed.Milliseconds(),
		"request_id":  requestID,
	})

	data := decodeBody(raw)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newError(resp.StatusCode, data)
	}
	return &Response{Status: resp.StatusCode, Header: resp.Header, Body: raw, Data: data}, nil
}

func decodeBody(raw []byte) any {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return map[string]any{"raw": string(raw)}
	}
	return v
}
