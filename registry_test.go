package partials

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/goliatone/go-partials/pkg/activity"
	"github.com/goliatone/go-partials/pkg/state"
)

type recordingEngine struct {
	defs []UnitDefinition
	err  error
}

func (e *recordingEngine) register(def UnitDefinition) error {
	if e.err != nil {
		return e.err
	}
	e.defs = append(e.defs, def)
	return nil
}

func (e *recordingEngine) ids() []string {
	out := make([]string, 0, len(e.defs))
	for _, def := range e.defs {
		out = append(out, def.ID)
	}
	return out
}

func headerCollision() []Fragment {
	return []Fragment{
		NewFragment("a/header.html", "<header>a</header>"),
		NewFragment("b/header.html", "<header>b</header>"),
		NewFragment("hero.html", "<p>Hi</p>"),
	}
}

func TestRegisterAllDerivesNamespacedIDs(t *testing.T) {
	engine := &recordingEngine{}
	registry := NewRegistry(nil)

	fragments := []Fragment{
		NewFragment("partials/hero.html", "<p>Hi</p>"),
		NewFragment("partials/nav.html", "<nav></nav>"),
	}
	if err := registry.RegisterAll(fragments, engine.register); err != nil {
		t.Fatalf("register: %v", err)
	}

	if want := []string{"site-hero", "site-nav"}; !reflect.DeepEqual(engine.ids(), want) {
		t.Fatalf("expected engine to receive %v in order, got %v", want, engine.ids())
	}
	if want := []string{"site-hero", "site-nav"}; !reflect.DeepEqual(registry.IDs(), want) {
		t.Fatalf("expected ids %v, got %v", want, registry.IDs())
	}
	def := engine.defs[0]
	if def.Markup != "<p>Hi</p>" {
		t.Fatalf("unexpected markup %q", def.Markup)
	}
	prop, ok := def.Schema.Properties["state"]
	if !ok || prop.Type != "object" {
		t.Fatalf("expected state property in schema, got %+v", def.Schema)
	}
	if defaults, ok := prop.Default.(map[string]any); !ok || len(defaults) != 0 {
		t.Fatalf("expected empty state default, got %#v", prop.Default)
	}
}

func TestRegisterAllCustomNamespace(t *testing.T) {
	registry := NewRegistry(nil, WithNamespace("app"))
	if err := registry.RegisterAll([]Fragment{NewFragment("hero.html", "")}, nil); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, ok := registry.Lookup("app-hero"); !ok {
		t.Fatalf("expected app-hero to be registered, got %v", registry.IDs())
	}
}

func TestRegisterAllRejectsCollisionByDefault(t *testing.T) {
	engine := &recordingEngine{}
	registry := NewRegistry(nil)

	err := registry.RegisterAll(headerCollision(), engine.register)
	if !errors.Is(err, ErrDuplicateUnit) {
		t.Fatalf("expected duplicate unit error, got %v", err)
	}
	var regErr *RegistrationError
	if !errors.As(err, &regErr) {
		t.Fatalf("expected RegistrationError, got %T", err)
	}
	if regErr.ID != "site-header" || regErr.Existing != "a/header.html" || regErr.Incoming != "b/header.html" {
		t.Fatalf("unexpected registration error %+v", regErr)
	}
	for _, path := range []string{"a/header.html", "b/header.html"} {
		if !strings.Contains(err.Error(), path) {
			t.Fatalf("expected error to name %s, got %q", path, err.Error())
		}
	}
	if _, ok := registry.Lookup("site-hero"); ok {
		t.Fatalf("expected fragments after the collision to stay unregistered")
	}
}

func TestRegisterAllFirstWins(t *testing.T) {
	engine := &recordingEngine{}
	registry := NewRegistry(nil, WithCollisionPolicy(CollisionFirstWins))

	if err := registry.RegisterAll(headerCollision(), engine.register); err != nil {
		t.Fatalf("register: %v", err)
	}
	unit, _ := registry.Lookup("site-header")
	if unit.Fragment.Path != "a/header.html" {
		t.Fatalf("expected first fragment to win, got %s", unit.Fragment.Path)
	}
	if want := []string{"site-header", "site-hero"}; !reflect.DeepEqual(engine.ids(), want) {
		t.Fatalf("expected engine calls %v, got %v", want, engine.ids())
	}
}

func TestRegisterAllLastWins(t *testing.T) {
	engine := &recordingEngine{}
	capture := &activity.CaptureHook{}
	emitter := activity.NewEmitter(activity.Hooks{capture}, activity.Config{Enabled: true})
	registry := NewRegistry(nil, WithCollisionPolicy(CollisionLastWins), WithActivityEmitter(emitter))

	if err := registry.RegisterAll(headerCollision(), engine.register); err != nil {
		t.Fatalf("register: %v", err)
	}
	unit, _ := registry.Lookup("site-header")
	if unit.Fragment.Path != "b/header.html" {
		t.Fatalf("expected last fragment to win, got %s", unit.Fragment.Path)
	}
	if want := []string{"site-header", "site-header", "site-hero"}; !reflect.DeepEqual(engine.ids(), want) {
		t.Fatalf("expected replacement to be re-registered, got %v", engine.ids())
	}
	if registry.Len() != 2 {
		t.Fatalf("expected 2 units, got %d", registry.Len())
	}
	want := []string{activity.VerbUnitRegistered, activity.VerbUnitReplaced, activity.VerbUnitRegistered}
	if got := capture.Verbs(); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected verbs %v, got %v", want, got)
	}
}

func TestRegisterAllRunsOnce(t *testing.T) {
	registry := NewRegistry(nil)
	if err := registry.RegisterAll(nil, nil); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := registry.RegisterAll(nil, nil); !errors.Is(err, ErrAlreadyRegistered) {
		t.Fatalf("expected already registered error, got %v", err)
	}
}

func TestRegisterAllCallbacksMayReadRegistry(t *testing.T) {
	var registry *Registry
	var seen []int
	hook := activity.HookFunc(func(_ context.Context, _ activity.Event) error {
		seen = append(seen, registry.Len())
		return nil
	})
	registry = NewRegistry(nil, WithActivityEmitter(activity.NewEmitter(activity.Hooks{hook}, activity.Config{Enabled: true})))

	var lookups []bool
	register := func(def UnitDefinition) error {
		_, ok := registry.Lookup(def.ID)
		lookups = append(lookups, ok)
		_ = registry.IDs()
		return nil
	}

	done := make(chan error, 1)
	go func() {
		done <- registry.RegisterAll([]Fragment{
			NewFragment("hero.html", "<p>Hi</p>"),
			NewFragment("nav.html", "<nav></nav>"),
		}, register)
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("register: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("RegisterAll did not return while callbacks read the registry")
	}

	if !reflect.DeepEqual(seen, []int{1, 2}) {
		t.Fatalf("expected hook to observe counts [1 2], got %v", seen)
	}
	if !reflect.DeepEqual(lookups, []bool{false, false}) {
		t.Fatalf("expected units to be stored after register, got %v", lookups)
	}
}

func TestRegisterAllPropagatesEngineFailure(t *testing.T) {
	boom := errors.New("bad markup")
	registry := NewRegistry(nil)

	err := registry.RegisterAll([]Fragment{NewFragment("hero.html", "{{")}, (&recordingEngine{err: boom}).register)
	if !errors.Is(err, boom) {
		t.Fatalf("expected engine error to propagate, got %v", err)
	}
	if registry.Len() != 0 {
		t.Fatalf("expected failed unit to stay unregistered")
	}
}

func TestRegisterAllRejectsEmptyName(t *testing.T) {
	registry := NewRegistry(nil)
	err := registry.RegisterAll([]Fragment{{Path: "partials/", Markup: "x"}}, nil)
	if !errors.Is(err, ErrFragmentName) {
		t.Fatalf("expected fragment name error, got %v", err)
	}
}

func TestInstantiateSeesGlobalKeys(t *testing.T) {
	store := state.New(map[string]any{"message": "Site is Wired"})
	counter := 0
	registry := NewRegistry(store, WithInstanceIDs(func() string {
		counter++
		return fmt.Sprintf("inst-%d", counter)
	}))
	if err := registry.RegisterAll([]Fragment{NewFragment("hero.html", "<p>Hi</p>")}, nil); err != nil {
		t.Fatalf("register: %v", err)
	}

	instance, err := registry.Instantiate("site-hero", map[string]any{"title": "Welcome"})
	if err != nil {
		t.Fatalf("instantiate: %v", err)
	}
	if instance.ID != "inst-1" || instance.UnitID != "site-hero" || instance.Markup != "<p>Hi</p>" {
		t.Fatalf("unexpected instance %+v", instance)
	}
	if instance.Context.Get("message") != "Site is Wired" {
		t.Fatalf("expected global message in context, got %v", instance.Context.Get("message"))
	}
	if instance.Context.Get("title") != "Welcome" {
		t.Fatalf("expected local title in context")
	}

	empty, err := registry.Instantiate("site-hero", nil)
	if err != nil {
		t.Fatalf("instantiate: %v", err)
	}
	if empty.State == nil || len(empty.State) != 0 {
		t.Fatalf("expected nil state to become empty mapping, got %#v", empty.State)
	}
}

func TestInstantiateUnknownUnit(t *testing.T) {
	registry := NewRegistry(nil)
	if _, err := registry.Instantiate("site-missing", nil); !errors.Is(err, ErrUnknownUnit) {
		t.Fatalf("expected unknown unit error, got %v", err)
	}
}

func TestParseCollisionPolicy(t *testing.T) {
	cases := map[string]CollisionPolicy{
		"":           CollisionReject,
		"reject":     CollisionReject,
		"first-wins": CollisionFirstWins,
		"LAST-WINS":  CollisionLastWins,
	}
	for input, want := range cases {
		got, err := ParseCollisionPolicy(input)
		if err != nil {
			t.Fatalf("parse %q: %v", input, err)
		}
		if got != want {
			t.Fatalf("parse %q: expected %s, got %s", input, want, got)
		}
	}
	if _, err := ParseCollisionPolicy("random"); err == nil {
		t.Fatalf("expected unknown policy to fail")
	}
}
