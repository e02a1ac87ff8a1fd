package state

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/goliatone/go-partials/layering"
)

var (
	// ErrNameRequired indicates an empty key was supplied to a write.
	ErrNameRequired = errors.New("state: key name is required")
	// ErrStaticField indicates a load cycle tried to overwrite a static field.
	ErrStaticField = errors.New("state: static fields are read-only")
	// ErrAlreadyWritten indicates a dataset was written twice in one cycle.
	ErrAlreadyWritten = errors.New("state: dataset already written in this cycle")
)

// Change describes one successful write observed by bindings and watchers.
type Change struct {
	Key         string
	Value       any
	Previous    any
	HadPrevious bool
	Cycle       uint64
}

// Store is the single shared mapping from key to loaded value.
type Store struct {
	mu       sync.RWMutex
	values   map[string]any
	static   map[string]struct{}
	declared map[string]struct{}
	datasets []string
	cycles   uint64

	subMu    sync.RWMutex
	nextSub  uint64
	subs     map[string]map[uint64]func(Change)
	watchers map[uint64]func(Change)
}

// Option configures a Store on construction.
type Option func(*Store)

// WithDatasets declares dataset keys up front. Declared keys stay absent until
// loaded but are reported by Datasets and Bindings.
func WithDatasets(names ...string) Option {
	return func(s *Store) {
		for _, name := range names {
			s.declare(name)
		}
	}
}

// New constructs a Store with static fields populated and every dataset key
// absent. The static map is deep copied.
func New(static map[string]any, opts ...Option) *Store {
	s := &Store{
		values:   make(map[string]any, len(static)),
		static:   make(map[string]struct{}, len(static)),
		declared: map[string]struct{}{},
		subs:     map[string]map[uint64]func(Change){},
		watchers: map[uint64]func(Change){},
	}
	for key, value := range static {
		if key == "" {
			continue
		}
		s.values[key] = layering.Clone(value)
		s.static[key] = struct{}{}
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *Store) declare(name string) {
	if name == "" {
		return
	}
	if _, ok := s.static[name]; ok {
		return
	}
	if _, ok := s.declared[name]; ok {
		return
	}
	s.declared[name] = struct{}{}
	s.datasets = append(s.datasets, name)
}

// Lookup returns the value stored under key and whether it is present.
func (s *Store) Lookup(key string) (any, bool) {
	if s == nil {
		return nil, false
	}
	s.mu.RLock()
	value, ok := s.values[key]
	s.mu.RUnlock()
	return value, ok
}

// Get returns the value stored under key, or nil when absent.
func (s *Store) Get(key string) any {
	value, _ := s.Lookup(key)
	return value
}

// Has reports whether key is present.
func (s *Store) Has(key string) bool {
	_, ok := s.Lookup(key)
	return ok
}

// Keys returns the present keys sorted alphabetically.
func (s *Store) Keys() []string {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	keys := make([]string, 0, len(s.values))
	for key := range s.values {
		keys = append(keys, key)
	}
	s.mu.RUnlock()
	sort.Strings(keys)
	return keys
}

// Snapshot returns a deep copy of every present key.
func (s *Store) Snapshot() map[string]any {
	if s == nil {
		return map[string]any{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := layering.CloneMap(s.values)
	if out == nil {
		out = map[string]any{}
	}
	return out
}

// IsStatic reports whether key was supplied as a static field.
func (s *Store) IsStatic(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.static[key]
	return ok
}

// StaticKeys returns the static field names sorted alphabetically.
func (s *Store) StaticKeys() []string {
	s.mu.RLock()
	keys := make([]string, 0, len(s.static))
	for key := range s.static {
		keys = append(keys, key)
	}
	s.mu.RUnlock()
	sort.Strings(keys)
	return keys
}

// Datasets returns dataset names in declaration order, followed by any names
// first written by a cycle.
func (s *Store) Datasets() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.datasets...)
}

// Cycles returns how many load cycles have been started.
func (s *Store) Cycles() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cycles
}

// BeginCycle opens a new load cycle. Each dataset key may be written once per
// cycle.
func (s *Store) BeginCycle() *Cycle {
	s.mu.Lock()
	s.cycles++
	id := s.cycles
	s.mu.Unlock()
	return &Cycle{store: s, id: id, written: map[string]struct{}{}}
}

// Cycle is the write handle for one batch of dataset loads.
type Cycle struct {
	store   *Store
	id      uint64
	mu      sync.Mutex
	written map[string]struct{}
}

// ID returns the monotonically increasing cycle number.
func (c *Cycle) ID() uint64 {
	return c.id
}

// Set assigns value to the dataset key name. Subscribers are notified after
// the store lock is released.
func (c *Cycle) Set(name string, value any) error {
	if name == "" {
		return ErrNameRequired
	}

	c.mu.Lock()
	if _, ok := c.written[name]; ok {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s (cycle %d)", ErrAlreadyWritten, name, c.id)
	}

	s := c.store
	s.mu.Lock()
	if _, ok := s.static[name]; ok {
		s.mu.Unlock()
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrStaticField, name)
	}
	previous, hadPrevious := s.values[name]
	s.values[name] = value
	s.declare(name)
	s.mu.Unlock()

	c.written[name] = struct{}{}
	c.mu.Unlock()

	s.notify(Change{
		Key:         name,
		Value:       value,
		Previous:    previous,
		HadPrevious: hadPrevious,
		Cycle:       c.id,
	})
	return nil
}

// Written returns the keys written by this cycle sorted alphabetically.
func (c *Cycle) Written() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]string, 0, len(c.written))
	for key := range c.written {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
