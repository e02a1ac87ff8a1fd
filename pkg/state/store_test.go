package state_test

import (
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/goliatone/go-partials/pkg/state"
)

func TestNewStorePopulatesStaticAndLeavesDatasetsAbsent(t *testing.T) {
	static := map[string]any{"message": "Site is Wired"}
	store := state.New(static, state.WithDatasets("nav", "aside", "footer"))

	static["message"] = "mutated"
	if got := store.Get("message"); got != "Site is Wired" {
		t.Fatalf("expected static field copied on construction, got %v", got)
	}
	for _, name := range []string{"nav", "aside", "footer"} {
		if store.Has(name) {
			t.Fatalf("expected dataset %q absent before load", name)
		}
	}
	if got := store.Datasets(); !reflect.DeepEqual(got, []string{"nav", "aside", "footer"}) {
		t.Fatalf("unexpected declared datasets: %v", got)
	}
	if got := store.Keys(); !reflect.DeepEqual(got, []string{"message"}) {
		t.Fatalf("expected only static keys present, got %v", got)
	}
}

func TestCycleSetIsWriteOncePerCycle(t *testing.T) {
	store := state.New(nil, state.WithDatasets("nav"))

	cycle := store.BeginCycle()
	if err := cycle.Set("nav", []any{1}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := cycle.Set("nav", []any{2}); !errors.Is(err, state.ErrAlreadyWritten) {
		t.Fatalf("expected ErrAlreadyWritten, got %v", err)
	}
	if got := store.Get("nav"); !reflect.DeepEqual(got, []any{1}) {
		t.Fatalf("expected first write retained, got %v", got)
	}

	next := store.BeginCycle()
	if next.ID() <= cycle.ID() {
		t.Fatalf("expected increasing cycle ids, got %d then %d", cycle.ID(), next.ID())
	}
	if err := next.Set("nav", []any{3}); err != nil {
		t.Fatalf("set in next cycle: %v", err)
	}
	if got := store.Get("nav"); !reflect.DeepEqual(got, []any{3}) {
		t.Fatalf("expected reload to replace value, got %v", got)
	}
	if store.Cycles() != 2 {
		t.Fatalf("expected 2 cycles, got %d", store.Cycles())
	}
}

func TestCycleSetRejectsStaticAndEmptyNames(t *testing.T) {
	store := state.New(map[string]any{"message": "hi"})
	cycle := store.BeginCycle()

	if err := cycle.Set("message", "override"); !errors.Is(err, state.ErrStaticField) {
		t.Fatalf("expected ErrStaticField, got %v", err)
	}
	if err := cycle.Set("", 1); !errors.Is(err, state.ErrNameRequired) {
		t.Fatalf("expected ErrNameRequired, got %v", err)
	}
	if store.Get("message") != "hi" {
		t.Fatalf("static field must not change")
	}
	if len(cycle.Written()) != 0 {
		t.Fatalf("expected no keys written, got %v", cycle.Written())
	}
}

func TestCycleSetUndeclaredNameIsTracked(t *testing.T) {
	store := state.New(nil, state.WithDatasets("nav"))
	if err := store.BeginCycle().Set("extra", true); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got := store.Datasets(); !reflect.DeepEqual(got, []string{"nav", "extra"}) {
		t.Fatalf("expected undeclared dataset appended, got %v", got)
	}
}

func TestSnapshotIsDetached(t *testing.T) {
	store := state.New(nil)
	if err := store.BeginCycle().Set("nav", map[string]any{"items": []any{1, 2}}); err != nil {
		t.Fatalf("set: %v", err)
	}
	snapshot := store.Snapshot()
	snapshot["nav"].(map[string]any)["items"].([]any)[0] = 99

	items := store.Get("nav").(map[string]any)["items"].([]any)
	if items[0] != 1 {
		t.Fatalf("expected snapshot mutation not to leak into store, got %v", items)
	}
}

func TestConcurrentCycleWritesAreSafe(t *testing.T) {
	names := []string{"a", "b", "c", "d", "e", "f"}
	store := state.New(nil, state.WithDatasets(names...))
	cycle := store.BeginCycle()

	var wg sync.WaitGroup
	for i, name := range names {
		wg.Add(1)
		go func(name string, value int) {
			defer wg.Done()
			if err := cycle.Set(name, value); err != nil {
				t.Errorf("set %s: %v", name, err)
			}
			_ = store.Keys()
		}(name, i)
	}
	wg.Wait()

	if got := cycle.Written(); !reflect.DeepEqual(got, names) {
		t.Fatalf("expected all names written, got %v", got)
	}
}
