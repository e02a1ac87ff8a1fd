package openapi

import "strings"

type generatorConfig struct {
	openAPIVersion string
	info           openapiInfo
	pathPrefix     string
	contentType    string
	sharedName     string
}

type openapiInfo struct {
	Title       string
	Version     string
	Description string
}

func defaultGeneratorConfig() generatorConfig {
	return generatorConfig{
		openAPIVersion: "3.0.3",
		info: openapiInfo{
			Title:   "Partials",
			Version: "1.0.0",
		},
		pathPrefix:  "/units",
		contentType: "text/html",
		sharedName:  "SharedContext",
	}
}

// Option configures the generated document.
type Option func(*generatorConfig)

// WithOpenAPIVersion overrides the OpenAPI version string (default: 3.0.3).
func WithOpenAPIVersion(version string) Option {
	return func(cfg *generatorConfig) {
		if version = strings.TrimSpace(version); version != "" {
			cfg.openAPIVersion = version
		}
	}
}

// WithInfo sets the document info block.
func WithInfo(title, version, description string) Option {
	return func(cfg *generatorConfig) {
		if title = strings.TrimSpace(title); title != "" {
			cfg.info.Title = title
		}
		if version = strings.TrimSpace(version); version != "" {
			cfg.info.Version = version
		}
		cfg.info.Description = strings.TrimSpace(description)
	}
}

// WithPathPrefix sets the prefix under which one render path per unit is
// declared (default: /units).
func WithPathPrefix(prefix string) Option {
	return func(cfg *generatorConfig) {
		prefix = "/" + strings.Trim(strings.TrimSpace(prefix), "/")
		if prefix != "/" {
			cfg.pathPrefix = prefix
		}
	}
}

// WithSharedComponent renames the component describing the shared context.
func WithSharedComponent(name string) Option {
	return func(cfg *generatorConfig) {
		if name = sanitizeComponentName(name); name != "" {
			cfg.sharedName = name
		}
	}
}
