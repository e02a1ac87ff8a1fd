package loader

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/goliatone/go-partials/pkg/activity"
	"github.com/goliatone/go-partials/pkg/state"
	"golang.org/x/sync/errgroup"
)

// Fetcher resolves a dataset name to its parsed value.
type Fetcher interface {
	Fetch(ctx context.Context, name string) (any, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, name string) (any, error)

// Fetch implements Fetcher.
func (f FetcherFunc) Fetch(ctx context.Context, name string) (any, error) {
	return f(ctx, name)
}

// Option configures a Loader.
type Option func(*Loader)

// WithLogger sets the logger receiving load diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithMetrics records load counts and durations in m.
func WithMetrics(m *Metrics) Option {
	return func(l *Loader) {
		l.metrics = m
	}
}

// WithActivityEmitter emits dataset.loaded and dataset.failed events.
func WithActivityEmitter(emitter *activity.Emitter) Option {
	return func(l *Loader) {
		l.emitter = emitter
	}
}

// Loader fills a state store from a Fetcher.
type Loader struct {
	store   *state.Store
	fetcher Fetcher
	logger  *slog.Logger
	metrics *Metrics
	emitter *activity.Emitter
}

// New constructs a Loader writing into store.
func New(store *state.Store, fetcher Fetcher, opts ...Option) (*Loader, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if fetcher == nil {
		return nil, ErrFetcherRequired
	}
	l := &Loader{
		store:   store,
		fetcher: fetcher,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l, nil
}

// Store returns the store the loader writes into.
func (l *Loader) Store() *state.Store {
	return l.store
}

// LoadAll fetches every named dataset concurrently within one load cycle and
// returns once all of them have finished. Duplicate names are loaded once.
// Failures are logged and reported, never returned.
func (l *Loader) LoadAll(ctx context.Context, names []string) Report {
	if ctx == nil {
		ctx = context.Background()
	}
	unique := dedupe(names)
	cycle := l.store.BeginCycle()
	report := Report{
		Cycle:    cycle.ID(),
		Outcomes: make([]Outcome, len(unique)),
	}

	var g errgroup.Group
	for i, name := range unique {
		g.Go(func() error {
			report.Outcomes[i] = l.load(ctx, cycle, name)
			return nil
		})
	}
	_ = g.Wait()

	l.logger.DebugContext(ctx, "dataset batch finished",
		"cycle", report.Cycle,
		"loaded", len(report.Succeeded()),
		"failed", len(report.Failed()))
	return report
}

// Load fetches a single dataset in its own load cycle.
func (l *Loader) Load(ctx context.Context, name string) Outcome {
	report := l.LoadAll(ctx, []string{name})
	return report.Outcomes[0]
}

func (l *Loader) load(ctx context.Context, cycle *state.Cycle, name string) (outcome Outcome) {
	start := time.Now()
	outcome.Name = name
	defer func() {
		if r := recover(); r != nil {
			outcome.Err = fmt.Errorf("loader: fetch panicked: %v", r)
		}
		outcome.Duration = time.Since(start)
		l.finish(ctx, cycle.ID(), outcome)
	}()

	if name == "" {
		outcome.Err = ErrNameRequired
		return outcome
	}
	value, err := l.fetcher.Fetch(ctx, name)
	if err != nil {
		outcome.Err = err
		return outcome
	}
	outcome.Err = cycle.Set(name, value)
	return outcome
}

func (l *Loader) finish(ctx context.Context, cycle uint64, outcome Outcome) {
	if outcome.Err != nil {
		l.logger.ErrorContext(ctx, "dataset load failed",
			"dataset", outcome.Name,
			"error", outcome.Err)
	} else {
		l.logger.DebugContext(ctx, "dataset loaded",
			"dataset", outcome.Name,
			"duration", outcome.Duration)
	}
	l.metrics.observe(outcome.Name, outcome.Duration, outcome.Err)

	event := activity.BuildDatasetEvent(activity.DatasetEventInput{
		Name:     outcome.Name,
		Cycle:    cycle,
		Duration: outcome.Duration,
		Err:      outcome.Err,
	})
	if err := l.emitter.Emit(ctx, event); err != nil {
		l.logger.WarnContext(ctx, "activity hook failed", "dataset", outcome.Name, "error", err)
	}
}

func dedupe(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}
