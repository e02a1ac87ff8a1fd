package state

import "sort"

// Binding is an observable view over a single store key.
type Binding struct {
	store *Store
	key   string
}

// Bind returns a binding for key. The key does not need to be present yet.
func (s *Store) Bind(key string) *Binding {
	return &Binding{store: s, key: key}
}

// Bindings returns one binding per static field and declared dataset.
func (s *Store) Bindings() map[string]*Binding {
	keys := s.StaticKeys()
	keys = append(keys, s.Datasets()...)
	out := make(map[string]*Binding, len(keys))
	for _, key := range keys {
		out[key] = s.Bind(key)
	}
	return out
}

// Key returns the bound key.
func (b *Binding) Key() string {
	return b.key
}

// Get returns the current value, or nil when absent.
func (b *Binding) Get() any {
	return b.store.Get(b.key)
}

// Lookup returns the current value and whether it is present.
func (b *Binding) Lookup() (any, bool) {
	return b.store.Lookup(b.key)
}

// Subscribe registers fn for every write to the bound key. The returned
// function removes the subscription and is safe to call more than once.
func (b *Binding) Subscribe(fn func(Change)) func() {
	if fn == nil {
		return func() {}
	}
	s := b.store
	s.subMu.Lock()
	s.nextSub++
	id := s.nextSub
	if s.subs[b.key] == nil {
		s.subs[b.key] = map[uint64]func(Change){}
	}
	s.subs[b.key][id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs[b.key], id)
		if len(s.subs[b.key]) == 0 {
			delete(s.subs, b.key)
		}
		s.subMu.Unlock()
	}
}

// Watch registers fn for writes to any key.
func (s *Store) Watch(fn func(Change)) func() {
	if fn == nil {
		return func() {}
	}
	s.subMu.Lock()
	s.nextSub++
	id := s.nextSub
	s.watchers[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.watchers, id)
		s.subMu.Unlock()
	}
}

func (s *Store) notify(change Change) {
	s.subMu.RLock()
	ids := make([]uint64, 0, len(s.subs[change.Key])+len(s.watchers))
	fns := make(map[uint64]func(Change), cap(ids))
	for id, fn := range s.subs[change.Key] {
		ids = append(ids, id)
		fns[id] = fn
	}
	for id, fn := range s.watchers {
		ids = append(ids, id)
		fns[id] = fn
	}
	s.subMu.RUnlock()

	// subscription order
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		fns[id](change)
	}
}
