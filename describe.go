package partials

import (
	"fmt"
	"sort"
	"strings"
)

// FieldDescriptor describes a path and the inferred type.
type FieldDescriptor struct {
	Path string `json:"path"`
	Type string `json:"type"`
}

// Flatten materialises ctx into a plain map holding the resolved value of
// every enumerable key. The result is a point-in-time copy of the keys, not
// of the values.
func Flatten(ctx Context) map[string]any {
	if ctx == nil {
		return map[string]any{}
	}
	keys := ctx.Keys()
	out := make(map[string]any, len(keys))
	for _, key := range keys {
		if value, ok := ctx.Lookup(key); ok {
			out[key] = value
		}
	}
	return out
}

// DescribeContext derives sorted field descriptors for the resolved values of
// ctx. Nested maps are expanded using dotted paths.
func DescribeContext(ctx Context) []FieldDescriptor {
	descriptors := deriveFieldDescriptors(Flatten(ctx), "")
	if descriptors == nil {
		descriptors = []FieldDescriptor{}
	}
	return descriptors
}

func deriveFieldDescriptors(value any, prefix string) []FieldDescriptor {
	if value == nil {
		if prefix == "" {
			return nil
		}
		return []FieldDescriptor{{Path: prefix, Type: "nil"}}
	}

	switch typed := value.(type) {
	case map[string]any:
		if len(typed) == 0 {
			if prefix == "" {
				return nil
			}
			return []FieldDescriptor{{Path: prefix, Type: "map[string]any"}}
		}
		keys := make([]string, 0, len(typed))
		for key := range typed {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		var fields []FieldDescriptor
		for _, key := range keys {
			fields = append(fields, deriveFieldDescriptors(typed[key], joinPath(prefix, key))...)
		}
		return fields
	case []any:
		elementType := "any"
		if len(typed) > 0 {
			elementType = typeName(typed[0])
		}
		return []FieldDescriptor{{Path: prefix, Type: "[]" + elementType}}
	default:
		if prefix == "" {
			return nil
		}
		return []FieldDescriptor{{Path: prefix, Type: typeName(typed)}}
	}
}

func typeName(value any) string {
	if value == nil {
		return "nil"
	}
	return fmt.Sprintf("%T", value)
}

func joinPath(prefix, segment string) string {
	if prefix == "" {
		return segment
	}
	return strings.Join([]string{prefix, segment}, ".")
}
