// jellarr - Declarative Jellyfin Configuration Agent
// Copyright 2026 The jellarr Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/venkyr77/jellarr

package jellyfin

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/venkyr77/jellarr/internal/metrics"
)

// maxResponseBody bounds how much of any response is read.
const maxResponseBody = 16 << 20

// Options configures a Client.
type Options struct {
	// BaseURL of the server, e.g. http://localhost:8096. A trailing slash is trimmed.
	BaseURL string

	// Token is sent as X-Emby-Token and in the MediaBrowser Authorization header.
	Token string

	// Timeout is the per-request transport timeout. Ignored when HTTPClient is set.
	Timeout time.Duration

	// RequestsPerSecond paces authenticated calls. Zero disables pacing.
	RequestsPerSecond float64

	// BreakerTimeout is how long the breaker stays open before letting a
	// trial request through. Default: 30s.
	BreakerTimeout time.Duration

	// Version is reported to the server in the Authorization header.
	Version string

	// HTTPClient overrides the default transport (tests).
	HTTPClient *http.Client
}

// Client talks to the Jellyfin administrative API. It never retries; a
// failed call surfaces as an *APIError for the caller to record.
type Client struct {
	baseURL    string
	token      string
	authHeader string
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker[[]byte]
}

// New creates a Client.
func New(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	breakerTimeout := opts.BreakerTimeout
	if breakerTimeout <= 0 {
		breakerTimeout = 30 * time.Second
	}
	version := opts.Version
	if version == "" {
		version = "dev"
	}

	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		burst := int(opts.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}

	return &Client{
		baseURL: strings.TrimSuffix(opts.BaseURL, "/"),
		token:   opts.Token,
		authHeader: fmt.Sprintf(
			`MediaBrowser Client="jellarr", Device="jellarr", DeviceId="jellarr", Version=%q, Token=%q`,
			version, opts.Token),
		httpClient: httpClient,
		limiter:    limiter,
		breaker:    newBreaker(breakerTimeout),
	}
}

// BaseURL returns the normalized server URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Request performs one authenticated call. body, when non-nil, is sent as
// JSON. out, when non-nil, receives the decoded response; a *Record target
// keeps numbers as json.Number.
func (c *Client) Request(ctx context.Context, method, path string, body, out interface{}) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return &APIError{Method: method, Path: path, Err: err}
		}
	}

	data, err := c.breaker.Execute(func() ([]byte, error) {
		return c.do(ctx, method, path, body, true)
	})
	recordBreakerResult(err)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			return apiErr
		}
		return &APIError{Method: method, Path: path, Err: err}
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := decodeInto(data, out); err != nil {
		return &APIError{Method: method, Path: path, StatusCode: http.StatusOK, Err: err, Body: truncateBody(data)}
	}
	return nil
}

// Probe performs a single GET outside the breaker and the limiter, for
// readiness polling. It returns the status code and body; err is set only
// when no response was received.
func (c *Client) Probe(ctx context.Context, path string, authenticated bool) (int, []byte, error) {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil, authenticated)
	if err != nil {
		return 0, nil, err
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordAPIRequest(http.MethodGet, routeTemplate(path), 0, time.Since(start))
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	metrics.RecordAPIRequest(http.MethodGet, routeTemplate(path), resp.StatusCode, time.Since(start))
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, data, nil
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}, authenticated bool) ([]byte, error) {
	req, err := c.newRequest(ctx, method, path, body, authenticated)
	if err != nil {
		return nil, &APIError{Method: method, Path: path, Err: err}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordAPIRequest(method, routeTemplate(path), 0, time.Since(start))
		return nil, &APIError{Method: method, Path: path, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	data, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	metrics.RecordAPIRequest(method, routeTemplate(path), resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(truncateBody(data)),
		}
	}
	if readErr != nil {
		return nil, &APIError{Method: method, Path: path, StatusCode: resp.StatusCode, Err: readErr}
	}
	return data, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body interface{}, authenticated bool) (*http.Request, error) {
	var reader io.Reader = http.NoBody
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authenticated {
		req.Header.Set("X-Emby-Token", c.token)
		req.Header.Set("Authorization", c.authHeader)
	}
	return req, nil
}

func decodeInto(data []byte, out interface{}) error {
	if rec, ok := out.(*Record); ok {
		r, err := DecodeRecord(data)
		if err != nil {
			return err
		}
		*rec = r
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

var idSegment = regexp.MustCompile(`^[0-9a-fA-F]{32}$|^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// routeTemplate reduces a request path to a bounded metric label.
func routeTemplate(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		switch {
		case i > 0 && segments[i-1] == "Installed":
			segments[i] = "{name}"
		case idSegment.MatchString(seg):
			segments[i] = "{id}"
		}
	}
	return strings.Join(segments, "/")
}
