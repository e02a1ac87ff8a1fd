// Package config loads the site configuration from YAML. Values missing from
// the file fall back to Defaults; the merged result is validated before use.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/goliatone/go-partials/internal/hydrate"
	"github.com/goliatone/go-partials/layering"
	"gopkg.in/yaml.v3"
)

var (
	// ErrInvalid wraps every validation failure.
	ErrInvalid = errors.New("config: invalid configuration")
	// ErrNoDataSource indicates neither data.base_url nor data.dir is set.
	ErrNoDataSource = errors.New("config: data.base_url or data.dir is required")
)

var validate = validator.New()

// Config is the complete site configuration.
type Config struct {
	Namespace string         `json:"namespace" yaml:"namespace" validate:"omitempty,max=64,excludesall=/"`
	Partials  PartialsConfig `json:"partials" yaml:"partials"`
	Data      DataConfig     `json:"data" yaml:"data"`
	Datasets  []string       `json:"datasets" yaml:"datasets" validate:"dive,required,excludesall=/"`
	Static    map[string]any `json:"static" yaml:"static"`
	Collision string         `json:"collision" yaml:"collision" validate:"oneof=reject first-wins last-wins"`
	Engine    string         `json:"engine" yaml:"engine" validate:"oneof=expr cel js"`
	Activity  ActivityConfig `json:"activity" yaml:"activity"`
}

// PartialsConfig locates the markup fragments.
type PartialsConfig struct {
	Dir       string `json:"dir" yaml:"dir" validate:"required"`
	Pattern   string `json:"pattern" yaml:"pattern" validate:"required"`
	Recursive bool   `json:"recursive" yaml:"recursive"`
}

// DataConfig locates the datasets. BaseURL takes precedence over Dir.
type DataConfig struct {
	BaseURL   string  `json:"base_url" yaml:"base_url" validate:"omitempty,url"`
	Dir       string  `json:"dir" yaml:"dir"`
	RateLimit float64 `json:"rate_limit" yaml:"rate_limit" validate:"gte=0"`
	Burst     int     `json:"burst" yaml:"burst" validate:"gte=0"`
	Watch     bool    `json:"watch" yaml:"watch" validate:"excluded_with=BaseURL"`
}

// ActivityConfig controls lifecycle event emission.
type ActivityConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Channel string `json:"channel" yaml:"channel" validate:"omitempty,max=64"`
}

// Defaults returns the configuration used when no file overrides it.
func Defaults() Config {
	return Config{
		Namespace: "site",
		Partials: PartialsConfig{
			Dir:     "partials",
			Pattern: "*.html",
		},
		Data: DataConfig{
			Dir: "data",
		},
		Datasets:  []string{"nav", "aside", "footer"},
		Static:    map[string]any{"message": "Site is Wired"},
		Collision: "reject",
		Engine:    "expr",
		Activity: ActivityConfig{
			Channel: "partials",
		},
	}
}

// Load reads and parses the YAML file at path.
func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	return parse(path, raw)
}

// Parse parses YAML configuration from memory.
func Parse(raw []byte) (Config, error) {
	return parse("", raw)
}

// FromMap hydrates a configuration from an already decoded map.
func FromMap(values map[string]any) (Config, error) {
	return decode(hydrate.Context{Section: "map"}, values)
}

func parse(source string, raw []byte) (Config, error) {
	values := map[string]any{}
	if err := yaml.Unmarshal(raw, &values); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", describe(source), err)
	}
	return decode(hydrate.Context{Source: source}, values)
}

func decode(ctx hydrate.Context, values map[string]any) (Config, error) {
	decoder := hydrate.NewDecoder[Config](
		hydrate.WithPreHook[Config](mergeDefaults),
		hydrate.WithPreHook[Config](normalize),
		hydrate.WithDisallowUnknownFields[Config](),
		hydrate.WithPostHook[Config](validateConfig),
	)
	return decoder.Decode(ctx, values)
}

func mergeDefaults(_ hydrate.Context, payload map[string]any) (map[string]any, error) {
	defaults, err := hydrate.ToMap(Defaults())
	if err != nil {
		return nil, err
	}
	return layering.MergeMaps(payload, defaults), nil
}

func normalize(_ hydrate.Context, payload map[string]any) (map[string]any, error) {
	for _, key := range []string{"collision", "engine"} {
		if value, ok := payload[key].(string); ok {
			payload[key] = strings.ToLower(strings.TrimSpace(value))
		}
	}
	if value, ok := payload["namespace"].(string); ok {
		payload["namespace"] = strings.TrimSpace(value)
	}
	return payload, nil
}

func validateConfig(_ hydrate.Context, cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if cfg.Data.BaseURL == "" && cfg.Data.Dir == "" {
		return ErrNoDataSource
	}
	return nil
}

// Validate checks cfg against the same rules Load applies.
func (c Config) Validate() error {
	return validateConfig(hydrate.Context{}, &c)
}

func describe(source string) string {
	if source == "" {
		return "<inline>"
	}
	return source
}
