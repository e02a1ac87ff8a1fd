package loader

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/goliatone/go-partials/pkg/activity"
	"github.com/goliatone/go-partials/pkg/state"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type captureHandler struct {
	mu      *sync.Mutex
	records *[]slog.Record
}

func newCaptureLogger() (*slog.Logger, *captureHandler) {
	h := &captureHandler{mu: &sync.Mutex{}, records: &[]slog.Record{}}
	return slog.New(h), h
}

func (h *captureHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *captureHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	*h.records = append(*h.records, r.Clone())
	return nil
}

func (h *captureHandler) WithAttrs([]slog.Attr) slog.Handler { return h }

func (h *captureHandler) WithGroup(string) slog.Handler { return h }

// errors returns the error-level records as attribute maps.
func (h *captureHandler) errors() []map[string]any {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []map[string]any
	for _, r := range *h.records {
		if r.Level < slog.LevelError {
			continue
		}
		attrs := map[string]any{"msg": r.Message}
		r.Attrs(func(a slog.Attr) bool {
			attrs[a.Key] = a.Value.Any()
			return true
		})
		out = append(out, attrs)
	}
	return out
}

func siteServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/data/nav.json", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"items":[1,2,3]}`))
	})
	mux.HandleFunc("/data/aside.json", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"links":["a","b"]}`))
	})
	mux.HandleFunc("/data/footer.json", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestLoadAllPopulatesStoreAndIsolatesFailures(t *testing.T) {
	server := siteServer(t)
	fetcher, err := NewHTTPFetcher(server.URL + "/data/")
	if err != nil {
		t.Fatalf("fetcher: %v", err)
	}
	store := state.New(map[string]any{"message": "Site is Wired"}, state.WithDatasets("nav", "aside", "footer"))
	logger, logs := newCaptureLogger()
	l, err := New(store, fetcher, WithLogger(logger))
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	report := l.LoadAll(context.Background(), []string{"nav", "aside", "footer"})

	nav, ok := store.Get("nav").(map[string]any)
	if !ok {
		t.Fatalf("expected nav to be loaded, got %T", store.Get("nav"))
	}
	if !reflect.DeepEqual(nav["items"], []any{1.0, 2.0, 3.0}) {
		t.Fatalf("expected nav items [1 2 3], got %v", nav["items"])
	}
	if !store.Has("aside") {
		t.Fatalf("expected aside to be unaffected by footer failure")
	}
	if store.Has("footer") {
		t.Fatalf("expected footer to stay absent")
	}

	records := logs.errors()
	if len(records) != 1 {
		t.Fatalf("expected exactly one error record, got %d: %v", len(records), records)
	}
	if records[0]["dataset"] != "footer" {
		t.Fatalf("expected diagnostic to name footer, got %v", records[0])
	}
	var statusErr *StatusError
	if err, _ := records[0]["error"].(error); !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected status error cause, got %v", records[0]["error"])
	}

	if want := []string{"nav", "aside"}; !reflect.DeepEqual(report.Succeeded(), want) {
		t.Fatalf("expected succeeded %v, got %v", want, report.Succeeded())
	}
	if want := []string{"footer"}; !reflect.DeepEqual(report.Failed(), want) {
		t.Fatalf("expected failed %v, got %v", want, report.Failed())
	}
	if report.Err() == nil || report.Cycle != 1 {
		t.Fatalf("unexpected report %+v", report)
	}
}

func TestLoadAllDeduplicatesNames(t *testing.T) {
	var calls atomic.Int32
	fetcher := FetcherFunc(func(context.Context, string) (any, error) {
		calls.Add(1)
		return []any{}, nil
	})
	l, err := New(state.New(nil), fetcher)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	report := l.LoadAll(context.Background(), []string{"nav", "nav", "aside", "nav"})
	if calls.Load() != 2 {
		t.Fatalf("expected 2 fetches, got %d", calls.Load())
	}
	if len(report.Outcomes) != 2 {
		t.Fatalf("expected 2 outcomes, got %+v", report.Outcomes)
	}
}

func TestLoadAllForwardsContext(t *testing.T) {
	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "request")
	fetcher := FetcherFunc(func(ctx context.Context, name string) (any, error) {
		if ctx.Value(key{}) != "request" {
			return nil, errors.New("context not forwarded")
		}
		return name, nil
	})
	l, _ := New(state.New(nil), fetcher)

	report := l.LoadAll(ctx, []string{"nav"})
	if err := report.Err(); err != nil {
		t.Fatalf("unexpected failure: %v", err)
	}
}

func TestLoadAllRecoversPanics(t *testing.T) {
	store := state.New(nil)
	logger, logs := newCaptureLogger()
	fetcher := FetcherFunc(func(_ context.Context, name string) (any, error) {
		if name == "footer" {
			panic("bad fetcher")
		}
		return name, nil
	})
	l, _ := New(store, fetcher, WithLogger(logger))

	report := l.LoadAll(context.Background(), []string{"nav", "footer"})
	if !reflect.DeepEqual(report.Failed(), []string{"footer"}) {
		t.Fatalf("expected footer failure, got %v", report.Failed())
	}
	if store.Get("nav") != "nav" {
		t.Fatalf("expected nav to load")
	}
	if len(logs.errors()) != 1 {
		t.Fatalf("expected one diagnostic, got %v", logs.errors())
	}
}

func TestFailedReloadKeepsPreviousValue(t *testing.T) {
	store := state.New(nil)
	fail := false
	fetcher := FetcherFunc(func(context.Context, string) (any, error) {
		if fail {
			return nil, errors.New("offline")
		}
		return "v1", nil
	})
	l, _ := New(store, fetcher, WithLogger(slog.New(slog.DiscardHandler)))

	l.LoadAll(context.Background(), []string{"nav"})
	fail = true
	outcome := l.Load(context.Background(), "nav")

	if outcome.OK() {
		t.Fatalf("expected reload to fail")
	}
	if store.Get("nav") != "v1" {
		t.Fatalf("expected previous value to survive, got %v", store.Get("nav"))
	}
	if store.Cycles() != 2 {
		t.Fatalf("expected two load cycles, got %d", store.Cycles())
	}
}

func TestLoadAllRejectsStaticOverwrite(t *testing.T) {
	store := state.New(map[string]any{"message": "Site is Wired"})
	fetcher := FetcherFunc(func(context.Context, string) (any, error) { return "nope", nil })
	l, _ := New(store, fetcher, WithLogger(slog.New(slog.DiscardHandler)))

	outcome := l.Load(context.Background(), "message")
	if !errors.Is(outcome.Err, state.ErrStaticField) {
		t.Fatalf("expected static field error, got %v", outcome.Err)
	}
	if store.Get("message") != "Site is Wired" {
		t.Fatalf("expected static field to stay intact")
	}
}

func TestLoadAllRecordsMetricsAndActivity(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	capture := &activity.CaptureHook{}
	emitter := activity.NewEmitter(activity.Hooks{capture}, activity.Config{Enabled: true})
	fetcher := FetcherFunc(func(_ context.Context, name string) (any, error) {
		if name == "footer" {
			return nil, errors.New("rejected")
		}
		return map[string]any{}, nil
	})
	l, _ := New(state.New(nil), fetcher,
		WithMetrics(metrics),
		WithActivityEmitter(emitter),
		WithLogger(slog.New(slog.DiscardHandler)))

	l.LoadAll(context.Background(), []string{"nav", "footer"})

	if got := testutil.ToFloat64(metrics.loads.WithLabelValues("nav", outcomeSuccess)); got != 1 {
		t.Fatalf("expected 1 nav success, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.loads.WithLabelValues("footer", outcomeFailure)); got != 1 {
		t.Fatalf("expected 1 footer failure, got %v", got)
	}
	if got := testutil.CollectAndCount(metrics.duration); got != 2 {
		t.Fatalf("expected 2 duration series, got %d", got)
	}

	verbs := map[string]string{}
	for _, event := range capture.Events() {
		verbs[event.ObjectID] = event.Verb
		if event.Channel != activity.DefaultChannel {
			t.Fatalf("expected default channel, got %q", event.Channel)
		}
	}
	if verbs["nav"] != activity.VerbDatasetLoaded || verbs["footer"] != activity.VerbDatasetFailed {
		t.Fatalf("unexpected verbs %v", verbs)
	}
}

func TestNewRequiresCollaborators(t *testing.T) {
	if _, err := New(nil, FetcherFunc(nil)); !errors.Is(err, ErrStoreRequired) {
		t.Fatalf("expected store required, got %v", err)
	}
	if _, err := New(state.New(nil), nil); !errors.Is(err, ErrFetcherRequired) {
		t.Fatalf("expected fetcher required, got %v", err)
	}
}

func TestReportAccessors(t *testing.T) {
	report := Report{Outcomes: []Outcome{{Name: "nav"}, {Name: "footer", Err: errors.New("x")}}}
	if _, ok := report.Outcome("aside"); ok {
		t.Fatalf("expected missing outcome")
	}
	outcome, ok := report.Outcome("footer")
	if !ok || outcome.OK() {
		t.Fatalf("expected failed footer outcome, got %+v", outcome)
	}
	if (Report{}).Err() != nil {
		t.Fatalf("expected empty report to have no error")
	}
}
