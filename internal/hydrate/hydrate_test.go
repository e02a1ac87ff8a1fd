package hydrate

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

type siteSettings struct {
	Namespace string   `json:"namespace"`
	Datasets  []string `json:"datasets"`
	Data      struct {
		Dir       string  `json:"dir"`
		RateLimit float64 `json:"rate_limit"`
	} `json:"data"`
}

func withData(dir string, rateLimit float64) siteSettings {
	var settings siteSettings
	settings.Data.Dir = dir
	settings.Data.RateLimit = rateLimit
	return settings
}

func lowercaseNamespace(_ Context, payload map[string]any) (map[string]any, error) {
	if ns, ok := payload["namespace"].(string); ok {
		payload["namespace"] = strings.ToLower(ns)
	}
	return payload, nil
}

func splitDatasets(_ Context, payload map[string]any) (map[string]any, error) {
	raw, ok := payload["datasets"].(string)
	if !ok {
		return payload, nil
	}
	var names []any
	for _, part := range strings.Split(raw, ",") {
		names = append(names, strings.TrimSpace(part))
	}
	payload["datasets"] = names
	return payload, nil
}

func requireDatasets(ctx Context, settings *siteSettings) error {
	if len(settings.Datasets) == 0 {
		return errors.New("no datasets in " + ctx.String())
	}
	return nil
}

func TestDecoderHooks(t *testing.T) {
	cases := []struct {
		name      string
		input     map[string]any
		options   []DecoderOption[siteSettings]
		expect    siteSettings
		expectErr string
	}{
		{
			name:  "pre hooks run in order",
			input: map[string]any{"namespace": "SITE", "datasets": "nav, aside,footer"},
			options: []DecoderOption[siteSettings]{
				WithPreHook[siteSettings](lowercaseNamespace),
				WithPreHook[siteSettings](splitDatasets),
			},
			expect: siteSettings{Namespace: "site", Datasets: []string{"nav", "aside", "footer"}},
		},
		{
			name:      "post hook rejects",
			input:     map[string]any{"namespace": "site"},
			options:   []DecoderOption[siteSettings]{WithPostHook[siteSettings](requireDatasets)},
			expectErr: "post-hook for site.yaml#partials failed: no datasets in site.yaml#partials",
		},
		{
			name:      "unknown fields rejected",
			input:     map[string]any{"namespace": "site", "colour": "blue"},
			options:   []DecoderOption[siteSettings]{WithDisallowUnknownFields[siteSettings]()},
			expectErr: `unknown field "colour"`,
		},
		{
			name:   "nested values decode",
			input:  map[string]any{"data": map[string]any{"dir": "data", "rate_limit": 2}},
			expect: withData("data", 2),
		},
		{
			name:   "nil payload decodes empty",
			input:  nil,
			expect: siteSettings{},
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			decoder := NewDecoder[siteSettings](tc.options...)
			result, err := decoder.Decode(Context{Source: "site.yaml", Section: "partials"}, tc.input)

			if tc.expectErr != "" {
				if err == nil {
					t.Fatalf("expected error %q, got nil", tc.expectErr)
				}
				if !strings.Contains(err.Error(), tc.expectErr) {
					t.Fatalf("expected error containing %q, got %v", tc.expectErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected decode error: %v", err)
			}
			if !reflect.DeepEqual(tc.expect, result) {
				t.Fatalf("decoded settings mismatch:\nwant: %#v\n got: %#v", tc.expect, result)
			}
		})
	}
}

func TestDecodeDoesNotMutatePayload(t *testing.T) {
	payload := map[string]any{"namespace": "SITE"}
	decoder := NewDecoder[siteSettings](WithPreHook[siteSettings](lowercaseNamespace))
	if _, err := decoder.Decode(Context{}, payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload["namespace"] != "SITE" {
		t.Fatalf("expected caller payload to stay untouched, got %v", payload["namespace"])
	}
}

func TestContextString(t *testing.T) {
	cases := map[Context]string{
		{}:                                     "<inline>",
		{Source: "site.yaml"}:                  "site.yaml",
		{Section: "data"}:                      "data",
		{Source: "site.yaml", Section: "data"}: "site.yaml#data",
	}
	for ctx, want := range cases {
		if got := ctx.String(); got != want {
			t.Fatalf("expected %q, got %q", want, got)
		}
	}
}
