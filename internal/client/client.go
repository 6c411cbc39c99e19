// Package client provides the HTTP transport used by the configuration form
// to talk to the DailyClean API.
//
// The form never performs network calls directly: it is handed a fetcher
// taking a URL and a request config (method and body), returning the status
// and a JSON accessor. HTTPFetcher is the production implementation.
//
// The fetcher uses hashicorp/go-retryablehttp for automatic retry with
// exponential backoff and jitter on connection errors and 5xx responses.
// When retries are exhausted the last response is passed through so the
// caller sees the real status.
//
// Usage:
//
//	f := client.NewHTTPFetcher(client.Options{}, logger)
//	resp, err := f.Fetch(ctx, "https://dailyclean.example.com/timeranges", client.Request{Method: http.MethodGet})
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// maxBodySize bounds the response body kept in memory.
const maxBodySize = 1 << 20

// Defaults applied by NewHTTPFetcher for zero Options fields.
const (
	DefaultTimeout  = 30 * time.Second
	DefaultRetryMax = 3
)

// ErrEmptyBody is returned by Response.JSON when the server sent no body.
var ErrEmptyBody = errors.New("empty response body")

// Request is the config half of a fetch call.
type Request struct {
	// Method is "GET" or "POST".
	Method string
	// Body is the JSON document sent with POST requests.
	Body string
}

// Response is the result of a fetch call. The body is fully read before
// Fetch returns so that the connection can be reused.
type Response struct {
	Status int
	body   []byte
}

// NewResponse builds a Response, mainly for fake fetchers in tests.
func NewResponse(status int, body []byte) *Response {
	return &Response{Status: status, body: body}
}

// OK reports whether Status is 2xx.
func (r *Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// JSON decodes the response body into v.
func (r *Response) JSON(v any) error {
	if len(r.body) == 0 {
		return ErrEmptyBody
	}
	if err := json.Unmarshal(r.body, v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Options tunes the HTTP fetcher.
type Options struct {
	Timeout      time.Duration
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	// Token, when set, is sent as a Bearer Authorization header.
	Token string
	// UserAgent overrides Go's default User-Agent header.
	UserAgent string
}

// HTTPFetcher performs fetch calls over HTTP.
type HTTPFetcher struct {
	httpClient *http.Client
	token      string
	userAgent  string
	logger     *slog.Logger
}

// NewHTTPFetcher creates a fetcher configured with retryable HTTP settings.
//
// Zero option fields fall back to:
//   - RetryMax: 3 retries
//   - RetryWaitMin: 1 second
//   - RetryWaitMax: 10 seconds
//   - Timeout: 30 seconds per request
func NewHTTPFetcher(opts Options, logger *slog.Logger) *HTTPFetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.RetryMax < 0 {
		opts.RetryMax = 0
	} else if opts.RetryMax == 0 {
		opts.RetryMax = DefaultRetryMax
	}
	if opts.RetryWaitMin <= 0 {
		opts.RetryWaitMin = 1 * time.Second
	}
	if opts.RetryWaitMax <= 0 {
		opts.RetryWaitMax = 10 * time.Second
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = opts.RetryMax
	retryClient.RetryWaitMin = opts.RetryWaitMin
	retryClient.RetryWaitMax = opts.RetryWaitMax
	retryClient.Backoff = retryablehttp.LinearJitterBackoff
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	// Disable retryablehttp's internal logging - we use slog instead
	retryClient.Logger = nil

	retryClient.HTTPClient.Timeout = opts.Timeout
	retryClient.HTTPClient.Transport = &http.Transport{
		MaxIdleConns:        4,
		IdleConnTimeout:     60 * time.Second,
		MaxIdleConnsPerHost: 2,
	}

	return &HTTPFetcher{
		httpClient: retryClient.StandardClient(),
		token:      opts.Token,
		userAgent:  opts.UserAgent,
		logger:     logger,
	}
}

// Fetch sends req to url and returns the status and body.
// A non-nil error means no response was obtained; non-2xx statuses are
// returned as a Response for the caller to judge.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string, req Request) (*Response, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if req.Body != "" {
		body = strings.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if f.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+f.token)
	}
	if f.userAgent != "" {
		httpReq.Header.Set("User-Agent", f.userAgent)
	}

	f.logger.Debug("sending request",
		slog.String("method", method),
		slog.String("url", url),
	)

	start := time.Now()
	resp, err := f.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, url, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	// Drain anything past the limit to allow connection reuse
	_, _ = io.Copy(io.Discard, resp.Body)

	f.logger.Debug("request complete",
		slog.String("method", method),
		slog.String("url", url),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)),
	)

	return &Response{Status: resp.StatusCode, body: data}, nil
}
