package site

import (
	"io/fs"
	"log/slog"
	"net/http"

	partials "github.com/goliatone/go-partials"
	"github.com/goliatone/go-partials/pkg/activity"
	"github.com/goliatone/go-partials/pkg/loader"
)

// Option configures a Site.
type Option func(*options)

type options struct {
	logger     *slog.Logger
	partialsFS fs.FS
	fragments  []partials.Fragment
	fetcher    loader.Fetcher
	engine     partials.Engine
	hooks      activity.Hooks
	metrics    *loader.Metrics
	httpClient *http.Client
	watchOpts  []loader.WatchOption
}

// WithLogger sets the logger shared by every component.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithPartialsFS discovers fragments in fsys instead of the configured
// partials directory.
func WithPartialsFS(fsys fs.FS) Option {
	return func(o *options) {
		o.partialsFS = fsys
	}
}

// WithFragments registers fragments directly and skips discovery.
func WithFragments(fragments []partials.Fragment) Option {
	return func(o *options) {
		o.fragments = append([]partials.Fragment(nil), fragments...)
	}
}

// WithFetcher replaces the fetcher derived from the data configuration.
func WithFetcher(fetcher loader.Fetcher) Option {
	return func(o *options) {
		o.fetcher = fetcher
	}
}

// WithEngine replaces the default rendering engine.
func WithEngine(engine partials.Engine) Option {
	return func(o *options) {
		o.engine = engine
	}
}

// WithActivityHooks receives unit and dataset lifecycle events when activity
// is enabled in the configuration.
func WithActivityHooks(hooks ...activity.ActivityHook) Option {
	return func(o *options) {
		o.hooks = append(o.hooks, hooks...)
	}
}

// WithMetrics records dataset loads in m instead of the default registry.
func WithMetrics(m *loader.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithHTTPClient sets the client used by the HTTP fetcher.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// WithWatchOptions configures the watcher Mount starts when data.watch is set.
func WithWatchOptions(opts ...loader.WatchOption) Option {
	return func(o *options) {
		o.watchOpts = append(o.watchOpts, opts...)
	}
}
