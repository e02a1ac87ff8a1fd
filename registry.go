package partials

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/goliatone/go-partials/layering"
	"github.com/goliatone/go-partials/pkg/activity"
)

// Registry turns discovered fragments into renderable units and instantiates
// them against the shared source it was constructed with.
type Registry struct {
	mu         sync.RWMutex
	shared     Source
	cfg        registryConfig
	units      map[string]Unit
	registered bool
}

// NewRegistry constructs a registry whose instances read from shared.
func NewRegistry(shared Source, opts ...RegistryOption) *Registry {
	return &Registry{
		shared: shared,
		cfg:    applyRegistryOptions(opts),
		units:  make(map[string]Unit),
	}
}

// UnitID derives the public identifier for a fragment name.
func (r *Registry) UnitID(name string) string {
	if r.cfg.namespace == "" {
		return name
	}
	return r.cfg.namespace + "-" + name
}

// Policy returns the configured collision policy.
func (r *Registry) Policy() CollisionPolicy {
	return r.cfg.policy
}

// RegisterAll registers every fragment in order and hands each resulting
// definition to register. It runs once per registry; a collision under the
// reject policy or a register failure stops the batch and is returned.
func (r *Registry) RegisterAll(fragments []Fragment, register RegisterFunc) error {
	r.mu.Lock()
	if r.registered {
		r.mu.Unlock()
		return ErrAlreadyRegistered
	}
	r.registered = true
	r.mu.Unlock()

	for _, fragment := range fragments {
		unit, replaced, skip, err := r.admit(fragment)
		if err != nil {
			return err
		}
		if skip {
			continue
		}

		// register and the activity hooks run unlocked so they may call back
		// into the registry.
		if register != nil {
			if err := register(unit.Definition()); err != nil {
				return fmt.Errorf("partials: register unit %q: %w", unit.ID, err)
			}
		}
		r.mu.Lock()
		r.units[unit.ID] = unit
		r.mu.Unlock()
		r.cfg.logger.Debug("registered unit", "unit", unit.ID, "source", fragment.Path)

		if err := r.cfg.emitter.Emit(context.Background(), activity.BuildUnitRegisteredEvent(activity.UnitEventInput{
			UnitID:     unit.ID,
			SourcePath: fragment.Path,
			Replaced:   replaced,
		})); err != nil {
			r.cfg.logger.Warn("activity hook failed", "unit", unit.ID, "error", err)
		}
	}
	return nil
}

// admit applies the collision policy to fragment. It returns the unit to
// register, the source path it replaces under last-wins, and whether the
// fragment is skipped under first-wins.
func (r *Registry) admit(fragment Fragment) (unit Unit, replaced string, skip bool, err error) {
	if fragment.Name == "" {
		return Unit{}, "", false, fmt.Errorf("%w: source %s", ErrFragmentName, describeSource(fragment.Path))
	}
	unit = Unit{
		ID:       r.UnitID(fragment.Name),
		Fragment: fragment,
		Schema:   DefaultUnitSchema(),
	}

	r.mu.RLock()
	existing, ok := r.units[unit.ID]
	r.mu.RUnlock()
	if !ok {
		return unit, "", false, nil
	}

	switch r.cfg.policy {
	case CollisionFirstWins:
		r.cfg.logger.Debug("skipping duplicate unit",
			"unit", unit.ID, "kept", existing.Fragment.Path, "skipped", fragment.Path)
		return Unit{}, "", true, nil
	case CollisionLastWins:
		r.cfg.logger.Warn("replacing duplicate unit",
			"unit", unit.ID, "replaced", existing.Fragment.Path, "source", fragment.Path)
		return unit, existing.Fragment.Path, false, nil
	default:
		return Unit{}, "", false, &RegistrationError{
			ID:       unit.ID,
			Existing: existing.Fragment.Path,
			Incoming: fragment.Path,
			Err:      ErrDuplicateUnit,
		}
	}
}

// Lookup returns the unit registered under id.
func (r *Registry) Lookup(id string) (Unit, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	unit, ok := r.units[id]
	return unit, ok
}

// IDs returns the registered unit identifiers sorted alphabetically.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.units))
	for id := range r.units {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of registered units.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.units)
}

// Instantiate creates an instance of unit id configured with state. A nil
// state is treated as the empty mapping.
func (r *Registry) Instantiate(id string, state map[string]any) (Instance, error) {
	unit, ok := r.Lookup(id)
	if !ok {
		return Instance{}, fmt.Errorf("%w: %q", ErrUnknownUnit, id)
	}
	local := layering.CloneMap(state)
	if local == nil {
		local = map[string]any{}
	}
	return Instance{
		ID:      r.cfg.newID(),
		UnitID:  unit.ID,
		Markup:  unit.Fragment.Markup,
		State:   local,
		Context: Resolve(local, r.shared),
	}, nil
}
