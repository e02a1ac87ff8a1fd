package loader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultHTTPTimeout = 30 * time.Second
	defaultMaxBody     = 10 << 20
)

// HTTPOption configures an HTTPFetcher.
type HTTPOption func(*HTTPFetcher)

// WithHTTPClient replaces the client used for requests.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(f *HTTPFetcher) {
		if client != nil {
			f.client = client
		}
	}
}

// WithLimiter throttles requests through limiter. Waiting honours the request
// context.
func WithLimiter(limiter *rate.Limiter) HTTPOption {
	return func(f *HTTPFetcher) {
		f.limiter = limiter
	}
}

// WithRateLimit throttles requests to perSecond with the given burst. A
// non-positive rate disables throttling.
func WithRateLimit(perSecond float64, burst int) HTTPOption {
	return func(f *HTTPFetcher) {
		if perSecond <= 0 {
			f.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		f.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithHeader adds a header to every request.
func WithHeader(key, value string) HTTPOption {
	return func(f *HTTPFetcher) {
		f.header.Add(key, value)
	}
}

// WithMaxBodySize caps how many bytes of a response are decoded.
func WithMaxBodySize(limit int64) HTTPOption {
	return func(f *HTTPFetcher) {
		if limit > 0 {
			f.maxBody = limit
		}
	}
}

// HTTPFetcher reads `<base>/<name>.json`. Transport errors, non-2xx responses
// and malformed JSON are all failures.
type HTTPFetcher struct {
	base    string
	client  *http.Client
	limiter *rate.Limiter
	header  http.Header
	maxBody int64
}

// NewHTTPFetcher constructs a fetcher rooted at base.
func NewHTTPFetcher(base string, opts ...HTTPOption) (*HTTPFetcher, error) {
	parsed, err := url.Parse(strings.TrimSpace(base))
	if err != nil {
		return nil, fmt.Errorf("loader: base url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("loader: base url %q must use http or https", base)
	}
	f := &HTTPFetcher{
		base:    strings.TrimRight(parsed.String(), "/"),
		client:  &http.Client{Timeout: defaultHTTPTimeout},
		header:  http.Header{},
		maxBody: defaultMaxBody,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f, nil
}

// URL returns the address requested for name.
func (f *HTTPFetcher) URL(name string) string {
	return f.base + "/" + url.PathEscape(name) + ".json"
}

// Fetch implements Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, name string) (any, error) {
	if name == "" {
		return nil, ErrNameRequired
	}
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("loader: rate limit: %w", err)
		}
	}

	target := f.URL(name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("loader: build request: %w", err)
	}
	req.Header = f.header.Clone()
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("loader: GET %s: %w", target, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Dataset: name, URL: target, StatusCode: resp.StatusCode}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody))
	if err != nil {
		return nil, fmt.Errorf("loader: read %s: %w", target, err)
	}
	return decode(name, body)
}
