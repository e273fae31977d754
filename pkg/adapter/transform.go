package adapter

import (
	"fmt"
	"strings"

	casing "github.com/conduit-lang/serializer/internal/util/strings"
	"github.com/conduit-lang/serializer/pkg/document"
)

// KeyTransform names a casing applied to every key of a rendered document
type KeyTransform string

// Key transforms
const (
	Unaltered  KeyTransform = "unaltered"
	Camel      KeyTransform = "camel"
	CamelLower KeyTransform = "camel_lower"
	Dash       KeyTransform = "dash"
	Underscore KeyTransform = "underscore"
)

// ParseKeyTransform parses a key transform name
func ParseKeyTransform(s string) (KeyTransform, error) {
	switch t := KeyTransform(strings.ToLower(strings.TrimSpace(s))); t {
	case Unaltered, Camel, CamelLower, Dash, Underscore:
		return t, nil
	}
	return "", fmt.Errorf("unknown key transform %q", s)
}

// Apply transforms a single key
func (t KeyTransform) Apply(key string) string {
	switch t {
	case Camel:
		return casing.ToCamelCase(key)
	case CamelLower:
		return casing.ToLowerCamelCase(key)
	case Dash:
		return casing.ToDashCase(key)
	case Underscore:
		return casing.ToSnakeCase(key)
	default:
		return key
	}
}

// transformValue rewrites the keys of every object nested in v. Values other
// than objects, maps and slices are left alone.
func transformValue(v any, t KeyTransform) any {
	if t == Unaltered || t == "" {
		return v
	}

	switch x := v.(type) {
	case *document.Object:
		if x == nil {
			return x
		}
		out := document.New(x.Len())
		x.Range(func(key string, value any) bool {
			out.Set(t.Apply(key), transformValue(value, t))
			return true
		})
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for key, value := range x {
			out[t.Apply(key)] = transformValue(value, t)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, value := range x {
			out[i] = transformValue(value, t)
		}
		return out
	default:
		return v
	}
}
