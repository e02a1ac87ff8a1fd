// Package site bootstraps the view: it owns the shared state store, registers
// every discovered fragment as a unit, and loads the configured datasets when
// the view mounts.
package site

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"sync"

	partials "github.com/goliatone/go-partials"
	"github.com/goliatone/go-partials/pkg/activity"
	"github.com/goliatone/go-partials/pkg/config"
	"github.com/goliatone/go-partials/pkg/discovery"
	"github.com/goliatone/go-partials/pkg/loader"
	"github.com/goliatone/go-partials/pkg/render"
	"github.com/goliatone/go-partials/pkg/state"
	"github.com/goliatone/go-partials/schema/openapi"
)

var (
	// ErrAlreadyMounted indicates Mount was called more than once.
	ErrAlreadyMounted = errors.New("site: already mounted")
	// ErrClosed indicates the site was closed.
	ErrClosed = errors.New("site: closed")
	// ErrUnknownDataset indicates a reload for a name outside the configured
	// dataset set.
	ErrUnknownDataset = errors.New("site: unknown dataset")
)

// Site wires the store, registry, engine and loader for one view.
type Site struct {
	cfg      config.Config
	logger   *slog.Logger
	store    *state.Store
	registry *partials.Registry
	engine   partials.Engine
	loader   *loader.Loader

	watchOpts []loader.WatchOption
	stopWatch context.CancelFunc

	mu       sync.Mutex
	mounted  bool
	closed   bool
	inflight sync.WaitGroup
}

// New validates cfg, discovers and registers every fragment, and prepares the
// dataset loader. Registration failures, including identifier collisions under
// the reject policy, are returned.
func New(cfg config.Config, opts ...Option) (*Site, error) {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	policy, err := partials.ParseCollisionPolicy(cfg.Collision)
	if err != nil {
		return nil, err
	}

	store := state.New(cfg.Static, state.WithDatasets(cfg.Datasets...))
	emitter := activity.NewEmitter(o.hooks, activity.Config{
		Enabled: cfg.Activity.Enabled,
		Channel: cfg.Activity.Channel,
	})

	engine := o.engine
	if engine == nil {
		engine, err = render.New(
			render.WithEngine(cfg.Engine),
			render.WithEvaluatorLogger(render.SlogEvaluatorLogger(o.logger)),
		)
		if err != nil {
			return nil, fmt.Errorf("site: engine: %w", err)
		}
	}

	fragments, err := discover(cfg, o)
	if err != nil {
		return nil, err
	}

	registry := partials.NewRegistry(store,
		partials.WithNamespace(cfg.Namespace),
		partials.WithCollisionPolicy(policy),
		partials.WithLogger(o.logger),
		partials.WithActivityEmitter(emitter),
	)
	if err := registry.RegisterAll(fragments, engine.Register); err != nil {
		return nil, err
	}

	fetcher := o.fetcher
	if fetcher == nil {
		fetcher, err = newFetcher(cfg.Data, o)
		if err != nil {
			return nil, err
		}
	}
	metrics := o.metrics
	if metrics == nil {
		metrics = loader.DefaultMetrics()
	}
	l, err := loader.New(store, fetcher,
		loader.WithLogger(o.logger),
		loader.WithMetrics(metrics),
		loader.WithActivityEmitter(emitter),
	)
	if err != nil {
		return nil, err
	}

	o.logger.Info("site ready",
		"units", registry.Len(),
		"datasets", len(cfg.Datasets),
		"engine", cfg.Engine)

	return &Site{
		cfg:      cfg,
		logger:   o.logger,
		store:    store,
		registry: registry,
		engine:   engine,
		loader:   l,

		watchOpts: o.watchOpts,
	}, nil
}

func discover(cfg config.Config, o options) ([]partials.Fragment, error) {
	if o.fragments != nil {
		return o.fragments, nil
	}
	fsys := o.partialsFS
	if fsys == nil {
		fsys = os.DirFS(cfg.Partials.Dir)
	}
	scan := discovery.Scan
	if cfg.Partials.Recursive {
		scan = discovery.Walk
	}
	fragments, err := scan(fsys, cfg.Partials.Pattern)
	if err != nil {
		return nil, fmt.Errorf("site: discover fragments: %w", err)
	}
	return fragments, nil
}

func newFetcher(data config.DataConfig, o options) (loader.Fetcher, error) {
	if data.BaseURL == "" {
		return loader.NewDirFetcher(data.Dir), nil
	}
	httpOpts := []loader.HTTPOption{loader.WithRateLimit(data.RateLimit, data.Burst)}
	if o.httpClient != nil {
		httpOpts = append(httpOpts, loader.WithHTTPClient(o.httpClient))
	}
	return loader.NewHTTPFetcher(data.BaseURL, httpOpts...)
}

// Mount loads every configured dataset and returns once all loads have
// finished. Only the first call loads; later calls return an empty report.
func (s *Site) Mount(ctx context.Context) loader.Report {
	report, err := s.MountErr(ctx)
	switch {
	case errors.Is(err, ErrAlreadyMounted), errors.Is(err, ErrClosed):
		s.logger.DebugContext(ctx, "mount skipped", "error", err)
	case err != nil:
		s.logger.ErrorContext(ctx, "mount failed", "error", err)
	}
	return report
}

// MountErr is Mount reporting ErrAlreadyMounted, ErrClosed or a failure to
// start the data directory watcher. When data.watch is set the watcher runs
// until Close.
func (s *Site) MountErr(ctx context.Context) (loader.Report, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return loader.Report{}, ErrClosed
	}
	if s.mounted {
		s.mu.Unlock()
		return loader.Report{}, ErrAlreadyMounted
	}
	s.mounted = true
	s.inflight.Add(1)
	s.mu.Unlock()
	defer s.inflight.Done()

	report := s.loader.LoadAll(ctx, s.cfg.Datasets)
	if s.cfg.Data.Watch {
		if err := s.startWatch(ctx); err != nil {
			return report, err
		}
	}
	return report, nil
}

// startWatch runs the data directory watcher in the background. It outlives
// ctx and stops on Close.
func (s *Site) startWatch(ctx context.Context) error {
	if s.cfg.Data.BaseURL != "" {
		return fmt.Errorf("site: watch requires data.dir, datasets are served from %s", s.cfg.Data.BaseURL)
	}
	w, err := loader.NewWatcher(s.cfg.Data.Dir, s.loader, s.watchOpts...)
	if err != nil {
		return fmt.Errorf("site: watch %s: %w", s.cfg.Data.Dir, err)
	}

	watchCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		cancel()
		// Run returns immediately on a cancelled context and releases w.
		_ = w.Run(watchCtx)
		return ErrClosed
	}
	s.stopWatch = cancel
	s.inflight.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.inflight.Done()
		if err := w.Run(watchCtx); err != nil {
			s.logger.Error("dataset watcher stopped", "dir", s.cfg.Data.Dir, "error", err)
		}
	}()
	s.logger.Info("watching datasets", "dir", s.cfg.Data.Dir)
	return nil
}

// Reload refetches every configured dataset in a new load cycle. A dataset
// that fails keeps its previous value.
func (s *Site) Reload(ctx context.Context) (loader.Report, error) {
	if err := s.begin(); err != nil {
		return loader.Report{}, err
	}
	defer s.inflight.Done()
	return s.loader.LoadAll(ctx, s.cfg.Datasets), nil
}

// ReloadDataset refetches a single configured dataset.
func (s *Site) ReloadDataset(ctx context.Context, name string) (loader.Outcome, error) {
	if !slices.Contains(s.cfg.Datasets, name) {
		return loader.Outcome{}, fmt.Errorf("%w: %q", ErrUnknownDataset, name)
	}
	if err := s.begin(); err != nil {
		return loader.Outcome{}, err
	}
	defer s.inflight.Done()
	return s.loader.Load(ctx, name), nil
}

// Watch reloads datasets whose files change under the data directory until
// ctx is done. It is unavailable when datasets are served over HTTP.
func (s *Site) Watch(ctx context.Context, opts ...loader.WatchOption) error {
	if s.cfg.Data.BaseURL != "" {
		return fmt.Errorf("site: watch requires data.dir, datasets are served from %s", s.cfg.Data.BaseURL)
	}
	if s.isClosed() {
		return ErrClosed
	}
	return loader.Watch(ctx, s.cfg.Data.Dir, s.loader, opts...)
}

// Instantiate creates an instance of unit id configured with state.
func (s *Site) Instantiate(id string, local map[string]any) (partials.Instance, error) {
	if s.isClosed() {
		return partials.Instance{}, ErrClosed
	}
	return s.registry.Instantiate(id, local)
}

// Render instantiates unit id with state and renders it.
func (s *Site) Render(id string, local map[string]any) (string, error) {
	instance, err := s.Instantiate(id, local)
	if err != nil {
		return "", err
	}
	return s.engine.Render(instance)
}

// Bindings returns the live store bindings exposed to the root view: one per
// static field and declared dataset.
func (s *Site) Bindings() map[string]*state.Binding {
	return s.store.Bindings()
}

// Units returns the registered unit identifiers.
func (s *Site) Units() []string {
	return s.registry.IDs()
}

// OpenAPI describes the registered units and the current shared context as an
// OpenAPI document.
func (s *Site) OpenAPI(opts ...openapi.Option) (map[string]any, error) {
	ids := s.registry.IDs()
	units := make([]partials.Unit, 0, len(ids))
	for _, id := range ids {
		if unit, ok := s.registry.Lookup(id); ok {
			units = append(units, unit)
		}
	}
	return openapi.Generate(units, s.store.Snapshot(), opts...)
}

// Store returns the shared state store.
func (s *Site) Store() *state.Store {
	return s.store
}

// Config returns the configuration the site was built from.
func (s *Site) Config() config.Config {
	return s.cfg
}

// Close stops the data directory watcher, waits for in-flight loads to finish
// and rejects further use. Loads already running are not cancelled.
func (s *Site) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	stop := s.stopWatch
	s.mu.Unlock()

	if stop != nil {
		stop()
	}

	s.inflight.Wait()
	s.logger.Debug("site closed")
	return nil
}

func (s *Site) begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.inflight.Add(1)
	return nil
}

func (s *Site) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
