package partials

import "sort"

// Source is a read-only key/value provider an overlay can layer. The shared
// state store satisfies it. Keys must list every key Lookup can find: the
// rendering engine builds its environment from them.
type Source interface {
	Lookup(key string) (any, bool)
	Keys() []string
}

// MapSource adapts a plain map to Source.
type MapSource map[string]any

// Lookup implements Source.
func (m MapSource) Lookup(key string) (any, bool) {
	value, ok := m[key]
	return value, ok
}

// Keys returns the map keys sorted alphabetically.
func (m MapSource) Keys() []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Context is the read-only view a unit instance renders against. Lookups
// never fail; missing keys resolve to nil.
type Context interface {
	Get(key string) any
	Has(key string) bool
	Lookup(key string) (any, bool)
	Keys() []string
	Trace(key string) Trace
}

// Fragment is a reusable markup template discovered at startup.
type Fragment struct {
	Name   string
	Path   string
	Markup string
}

// PropertySchema describes one configuration option accepted by a unit.
type PropertySchema struct {
	Type    string `json:"type"`
	Default any    `json:"default"`
}

// UnitSchema declares the configuration options a unit accepts.
type UnitSchema struct {
	Properties map[string]PropertySchema `json:"properties"`
}

// DefaultUnitSchema returns the schema every registered unit declares: a
// single `state` mapping defaulting to empty.
func DefaultUnitSchema() UnitSchema {
	return UnitSchema{
		Properties: map[string]PropertySchema{
			"state": {Type: "object", Default: map[string]any{}},
		},
	}
}

// Document renders the schema as a JSON-schema style object.
func (s UnitSchema) Document() map[string]any {
	properties := make(map[string]any, len(s.Properties))
	for name, prop := range s.Properties {
		properties[name] = map[string]any{
			"type":    prop.Type,
			"default": prop.Default,
		}
	}
	return map[string]any{
		"type":       "object",
		"properties": properties,
	}
}

// UnitDefinition is what the rendering engine receives at registration time.
type UnitDefinition struct {
	ID     string
	Markup string
	Schema UnitSchema
	Source Fragment
}

// Unit is a fragment registered under its public identifier.
type Unit struct {
	ID       string
	Fragment Fragment
	Schema   UnitSchema
}

// Definition returns the engine-facing definition of u.
func (u Unit) Definition() UnitDefinition {
	return UnitDefinition{
		ID:     u.ID,
		Markup: u.Fragment.Markup,
		Schema: u.Schema,
		Source: u.Fragment,
	}
}

// Instance is one instantiation of a unit with its resolved context.
type Instance struct {
	ID      string
	UnitID  string
	Markup  string
	State   map[string]any
	Context Context
}

// RegisterFunc hands a unit definition to the rendering engine.
type RegisterFunc func(UnitDefinition) error

// Engine is the rendering engine collaborator. It accepts definitions at
// registration time and renders instances against their context.
type Engine interface {
	Register(def UnitDefinition) error
	Render(instance Instance) (string, error)
}
