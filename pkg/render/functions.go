package render

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

// Function represents a callable exposed to placeholder expressions.
type Function func(args ...any) (any, error)

// registryVersions hands out function set versions. A version changes on
// every Register and is kept by Clone, so two registries share a version only
// when they hold the same functions.
var registryVersions atomic.Uint64

// FunctionRegistry stores custom functions keyed by name.
type FunctionRegistry struct {
	mu        sync.RWMutex
	functions map[string]Function
	version   uint64
}

// NewFunctionRegistry constructs an empty registry.
func NewFunctionRegistry() *FunctionRegistry {
	return &FunctionRegistry{
		functions: make(map[string]Function),
		version:   registryVersions.Add(1),
	}
}

// Register stores fn under name guarding against duplicates.
func (r *FunctionRegistry) Register(name string, fn Function) error {
	if fn == nil {
		return fmt.Errorf("render: function %q is nil", name)
	}
	if name == "" {
		return fmt.Errorf("render: function name must not be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.functions == nil {
		r.functions = make(map[string]Function)
	}
	key := strings.ToLower(name)
	if _, exists := r.functions[key]; exists {
		return fmt.Errorf("render: function %q already registered", name)
	}
	r.functions[key] = fn
	r.version = registryVersions.Add(1)
	return nil
}

// Clone returns a shallow copy of the registry.
func (r *FunctionRegistry) Clone() *FunctionRegistry {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	clone := &FunctionRegistry{
		functions: make(map[string]Function, len(r.functions)),
		version:   r.version,
	}
	for name, fn := range r.functions {
		clone.functions[name] = fn
	}
	return clone
}

// Call executes the function registered for name.
func (r *FunctionRegistry) Call(name string, args ...any) (any, error) {
	if r == nil {
		return nil, fmt.Errorf("render: function registry is nil")
	}
	r.mu.RLock()
	fn := r.functions[strings.ToLower(name)]
	r.mu.RUnlock()
	if fn == nil {
		return nil, fmt.Errorf("render: function %q not registered", name)
	}
	return fn(args...)
}

// Fingerprint identifies the function set for program cache keys. Compiled
// programs bind function implementations, so evaluators sharing a cache must
// only reuse programs compiled against the same set.
func (r *FunctionRegistry) Fingerprint() string {
	if r == nil {
		return "nofn"
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return fmt.Sprintf("fn%d", r.version)
}

// Names returns registered function names sorted alphabetically.
func (r *FunctionRegistry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.functions))
	for name := range r.functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var defaultFunctions = newDefaultFunctions()

// DefaultFunctions returns a registry holding the helpers available to every
// unit: upcase, downcase, coalesce and joinwith. Unmodified copies share one
// fingerprint.
func DefaultFunctions() *FunctionRegistry {
	return defaultFunctions.Clone()
}

func newDefaultFunctions() *FunctionRegistry {
	registry := NewFunctionRegistry()
	_ = registry.Register("upcase", func(args ...any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("render: upcase expects 1 argument, got %d", len(args))
		}
		return strings.ToUpper(fmt.Sprint(args[0])), nil
	})
	_ = registry.Register("downcase", func(args ...any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("render: downcase expects 1 argument, got %d", len(args))
		}
		return strings.ToLower(fmt.Sprint(args[0])), nil
	})
	_ = registry.Register("coalesce", func(args ...any) (any, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("render: coalesce expects 2 arguments, got %d", len(args))
		}
		if args[0] == nil || args[0] == "" {
			return args[1], nil
		}
		return args[0], nil
	})
	_ = registry.Register("joinwith", func(args ...any) (any, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("render: joinwith expects 2 arguments, got %d", len(args))
		}
		items, ok := args[0].([]any)
		if !ok {
			return nil, fmt.Errorf("render: joinwith expects a list, got %T", args[0])
		}
		parts := make([]string, len(items))
		for i, item := range items {
			parts[i] = fmt.Sprint(item)
		}
		return strings.Join(parts, fmt.Sprint(args[1])), nil
	})
	return registry
}
