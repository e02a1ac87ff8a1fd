package partials

import (
	"fmt"
	"sort"

	"github.com/goliatone/go-partials/layering"
)

// Overlay resolves keys across layers ordered from strongest to weakest. It
// delegates every access to the layer sources and never snapshots them.
type Overlay struct {
	layers []Layer
}

var _ Context = (*Overlay)(nil)

// NewOverlay validates and sorts the supplied layers so the strongest scope
// (highest priority) is consulted first.
func NewOverlay(layers ...Layer) (*Overlay, error) {
	seen := make(map[string]struct{}, len(layers))
	copied := make([]Layer, len(layers))
	for i, layer := range layers {
		if layer.Scope.Name == "" {
			return nil, ErrScopeNameRequired
		}
		if _, ok := seen[layer.Scope.Name]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateScopeName, layer.Scope.Name)
		}
		seen[layer.Scope.Name] = struct{}{}
		if layer.Source == nil {
			layer.Source = MapSource(nil)
		}
		copied[i] = Layer{Scope: layer.Scope.clone(), Source: layer.Source}
	}

	sort.Slice(copied, func(i, j int) bool {
		if copied[i].Scope.Priority == copied[j].Scope.Priority {
			return copied[i].Scope.Name < copied[j].Scope.Name
		}
		return copied[i].Scope.Priority > copied[j].Scope.Priority
	})

	for i := 1; i < len(copied); i++ {
		if copied[i-1].Scope.Priority <= copied[i].Scope.Priority {
			return nil, fmt.Errorf("%w: %d", ErrPriorityOrder, copied[i].Scope.Priority)
		}
	}

	return &Overlay{layers: copied}, nil
}

// Resolve overlays a copy of local on top of the live shared source. Local
// keys always shadow shared keys; shared keys written after Resolve returns
// are visible through the returned context.
func Resolve(local map[string]any, shared Source) Context {
	if shared == nil {
		shared = MapSource(nil)
	}
	return &Overlay{layers: []Layer{
		{
			Scope:  Scope{Name: ScopeLocal, Label: "Local State", Priority: ScopePriorityLocal},
			Source: MapSource(layering.CloneMap(local)),
		},
		{
			Scope:  Scope{Name: ScopeShared, Label: "Shared Store", Priority: ScopePriorityShared},
			Source: shared,
		},
	}}
}

// Lookup returns the value from the strongest layer holding key.
func (o *Overlay) Lookup(key string) (any, bool) {
	if o == nil {
		return nil, false
	}
	for _, layer := range o.layers {
		if value, ok := layer.Source.Lookup(key); ok {
			return value, true
		}
	}
	return nil, false
}

// Get returns the resolved value for key, or nil when no layer holds it.
func (o *Overlay) Get(key string) any {
	value, _ := o.Lookup(key)
	return value
}

// Has reports whether any layer holds key.
func (o *Overlay) Has(key string) bool {
	_, ok := o.Lookup(key)
	return ok
}

// Keys returns the sorted union of keys across layers.
func (o *Overlay) Keys() []string {
	if o == nil {
		return nil
	}
	seen := map[string]struct{}{}
	for _, layer := range o.layers {
		for _, key := range layer.Source.Keys() {
			seen[key] = struct{}{}
		}
	}
	keys := make([]string, 0, len(seen))
	for key := range seen {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Layers returns the layers from strongest to weakest.
func (o *Overlay) Layers() []Layer {
	if o == nil || len(o.layers) == 0 {
		return nil
	}
	out := make([]Layer, len(o.layers))
	for i, layer := range o.layers {
		out[i] = Layer{Scope: layer.Scope.clone(), Source: layer.Source}
	}
	return out
}

// Len returns the number of layers.
func (o *Overlay) Len() int {
	if o == nil {
		return 0
	}
	return len(o.layers)
}

// Trace reports how each layer contributes to key.
func (o *Overlay) Trace(key string) Trace {
	trace := Trace{Key: key}
	if o == nil {
		return trace
	}
	trace.Layers = make([]Provenance, 0, len(o.layers))
	for _, layer := range o.layers {
		value, ok := layer.Source.Lookup(key)
		trace.Layers = append(trace.Layers, Provenance{
			Scope: layer.Scope.clone(),
			Value: value,
			Found: ok,
		})
	}
	return trace
}
