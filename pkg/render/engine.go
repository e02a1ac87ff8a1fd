package render

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	partials "github.com/goliatone/go-partials"
)

// Option configures an Engine.
type Option func(*engineConfig)

type engineConfig struct {
	name      string
	evaluator Evaluator
	cache     ProgramCache
	functions *FunctionRegistry
	logger    EvaluatorLogger
}

// WithEngine selects the evaluator by name (expr, cel or js).
func WithEngine(name string) Option {
	return func(cfg *engineConfig) {
		cfg.name = strings.ToLower(strings.TrimSpace(name))
	}
}

// WithEvaluator installs a custom evaluator reported under name.
func WithEvaluator(name string, evaluator Evaluator) Option {
	return func(cfg *engineConfig) {
		cfg.name = name
		cfg.evaluator = evaluator
	}
}

// WithProgramCache shares compiled programs across engines.
func WithProgramCache(cache ProgramCache) Option {
	return func(cfg *engineConfig) {
		cfg.cache = cache
	}
}

// WithFunctionRegistry replaces the default helper functions.
func WithFunctionRegistry(registry *FunctionRegistry) Option {
	return func(cfg *engineConfig) {
		if registry == nil {
			return
		}
		cfg.functions = registry.Clone()
	}
}

// WithCustomFunction registers fn under name alongside the helpers.
func WithCustomFunction(name string, fn Function) Option {
	return func(cfg *engineConfig) {
		if cfg.functions == nil {
			cfg.functions = DefaultFunctions()
		}
		_ = cfg.functions.Register(name, fn)
	}
}

// WithEvaluatorLogger attaches an evaluator logger.
func WithEvaluatorLogger(logger EvaluatorLogger) Option {
	return func(cfg *engineConfig) {
		if logger == nil {
			cfg.logger = noopEvaluatorLogger{}
			return
		}
		cfg.logger = logger
	}
}

type compiledUnit struct {
	def      partials.UnitDefinition
	segments []segment
}

// Engine compiles unit markup at registration time and renders instances
// against their overlay context.
type Engine struct {
	mu        sync.RWMutex
	name      string
	evaluator Evaluator
	logger    EvaluatorLogger
	units     map[string]*compiledUnit
}

var _ partials.Engine = (*Engine)(nil)

// New constructs an Engine. The expr evaluator is used unless another engine
// is selected.
func New(opts ...Option) (*Engine, error) {
	cfg := engineConfig{name: EngineExpr}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.functions == nil {
		cfg.functions = DefaultFunctions()
	}
	if cfg.logger == nil {
		cfg.logger = noopEvaluatorLogger{}
	}
	if cfg.cache == nil {
		cfg.cache = NewMemoryCache()
	}
	evaluator := cfg.evaluator
	if evaluator == nil {
		var err error
		evaluator, err = NewEvaluator(cfg.name, cfg.cache, cfg.functions)
		if err != nil {
			return nil, err
		}
	}
	return &Engine{
		name:      cfg.name,
		evaluator: evaluator,
		logger:    cfg.logger,
		units:     make(map[string]*compiledUnit),
	}, nil
}

// Name returns the evaluator name.
func (e *Engine) Name() string {
	return e.name
}

// Register parses def.Markup and compiles every placeholder. Registering an
// identifier again replaces the previous definition.
func (e *Engine) Register(def partials.UnitDefinition) error {
	if def.ID == "" {
		return ErrUnitRequired
	}
	segments, err := parseTemplate(def.Markup)
	if err != nil {
		offset := 0
		var perr *parseError
		if errors.As(err, &perr) {
			offset = perr.offset
		}
		return wrapRenderError(def.ID, e.name, "", offset, err)
	}
	for i := range segments {
		if !segments[i].placeholder() {
			continue
		}
		program, err := e.evaluator.Compile(segments[i].expr)
		if err != nil {
			return wrapRenderError(def.ID, e.name, segments[i].expr, segments[i].offset, err)
		}
		segments[i].program = program
	}

	e.mu.Lock()
	e.units[def.ID] = &compiledUnit{def: def, segments: segments}
	e.mu.Unlock()
	return nil
}

// Render evaluates the unit's placeholders against the instance context and
// returns the escaped output.
func (e *Engine) Render(instance partials.Instance) (string, error) {
	e.mu.RLock()
	unit, ok := e.units[instance.UnitID]
	e.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnitNotRegistered, instance.UnitID)
	}

	env := partials.Flatten(instance.Context)
	var out strings.Builder
	for _, seg := range unit.segments {
		if !seg.placeholder() {
			out.WriteString(seg.text)
			continue
		}
		start := time.Now()
		value, err := seg.program.Run(env)
		e.logger.LogEvaluation(EvaluatorLogEvent{
			Unit:     unit.def.ID,
			Engine:   e.name,
			Expr:     seg.expr,
			Duration: time.Since(start),
			Err:      err,
		})
		if err != nil {
			return "", wrapRenderError(unit.def.ID, e.name, seg.expr, seg.offset, err)
		}
		text, err := formatValue(value)
		if err != nil {
			return "", wrapRenderError(unit.def.ID, e.name, seg.expr, seg.offset, err)
		}
		out.WriteString(text)
	}
	return out.String(), nil
}

// Units returns the registered unit identifiers sorted alphabetically.
func (e *Engine) Units() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ids := make([]string, 0, len(e.units))
	for id := range e.units {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Definition returns the definition registered under id.
func (e *Engine) Definition(id string) (partials.UnitDefinition, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	unit, ok := e.units[id]
	if !ok {
		return partials.UnitDefinition{}, false
	}
	return unit.def, true
}
