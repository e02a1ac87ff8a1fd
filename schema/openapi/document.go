// Package openapi describes a set of registered units as an OpenAPI
// document: one render path per unit whose request body is the unit's
// configuration schema, plus a component inferred from the shared context.
package openapi

import (
	"errors"
	"fmt"
	"regexp"
	"sort"

	partials "github.com/goliatone/go-partials"
)

// ErrDuplicateUnit indicates two units share an identifier.
var ErrDuplicateUnit = errors.New("openapi: duplicate unit")

// Generate builds the document for units. shared is typically a store
// snapshot; datasets not yet loaded are simply absent from the component.
func Generate(units []partials.Unit, shared map[string]any, opts ...Option) (map[string]any, error) {
	cfg := defaultGeneratorConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	sorted := append([]partials.Unit(nil), units...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	names := newComponentNames(cfg.sharedName)
	schemas := map[string]any{}
	paths := map[string]any{}
	seen := map[string]struct{}{}

	sharedSchema, err := SchemaFor(shared)
	if err != nil {
		return nil, fmt.Errorf("openapi: shared context: %w", err)
	}
	if shared == nil {
		sharedSchema = object(map[string]any{})
	}
	schemas[cfg.sharedName] = sharedSchema

	for _, unit := range sorted {
		if _, dup := seen[unit.ID]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateUnit, unit.ID)
		}
		seen[unit.ID] = struct{}{}

		name := names.unique(unit.ID)
		doc := unit.Schema.Document()
		if source := unit.Fragment.Path; source != "" {
			doc["description"] = "Rendered from " + source
		}
		schemas[name] = doc
		paths[cfg.pathPrefix+"/"+unit.ID] = map[string]any{
			"post": renderOperation(cfg, unit.ID, name),
		}
	}

	document := map[string]any{
		"openapi": cfg.openAPIVersion,
		"info":    buildInfo(cfg.info),
		"paths":   paths,
		"components": map[string]any{
			"schemas": schemas,
		},
	}
	return document, nil
}

func buildInfo(info openapiInfo) map[string]any {
	out := map[string]any{
		"title":   info.Title,
		"version": info.Version,
	}
	if info.Description != "" {
		out["description"] = info.Description
	}
	return out
}

func renderOperation(cfg generatorConfig, unitID, component string) map[string]any {
	return map[string]any{
		"operationId": "render:" + unitID,
		"summary":     "Render " + unitID,
		"requestBody": map[string]any{
			"required": false,
			"content": map[string]any{
				"application/json": map[string]any{
					"schema": map[string]any{"$ref": "#/components/schemas/" + component},
				},
			},
		},
		"responses": map[string]any{
			"200": map[string]any{
				"description": "Rendered markup",
				"content": map[string]any{
					cfg.contentType: map[string]any{
						"schema": map[string]any{"type": "string"},
					},
				},
			},
		},
	}
}

type componentNames struct {
	used map[string]struct{}
}

func newComponentNames(reserved ...string) *componentNames {
	n := &componentNames{used: map[string]struct{}{}}
	for _, name := range reserved {
		n.used[name] = struct{}{}
	}
	return n
}

func (n *componentNames) unique(hint string) string {
	safe := sanitizeComponentName(hint)
	if safe == "" {
		safe = "Unit"
	}
	candidate := safe
	for suffix := 1; ; suffix++ {
		if _, taken := n.used[candidate]; !taken {
			n.used[candidate] = struct{}{}
			return candidate
		}
		candidate = fmt.Sprintf("%s%d", safe, suffix)
	}
}

var componentNameRegexp = regexp.MustCompile(`[^a-zA-Z0-9_]+`)

func sanitizeComponentName(name string) string {
	name = componentNameRegexp.ReplaceAllString(name, "_")
	for len(name) > 0 && name[0] == '_' {
		name = name[1:]
	}
	for len(name) > 0 && name[len(name)-1] == '_' {
		name = name[:len(name)-1]
	}
	if name == "" {
		return ""
	}
	if name[0] >= '0' && name[0] <= '9' {
		name = "_" + name
	}
	return name
}
