package adapter

import (
	"fmt"
	"strings"
)

// ResourceTypeInflection controls how JSON:API types are derived from
// descriptor names
type ResourceTypeInflection string

const (
	// PluralTypes renders "post" as "posts"
	PluralTypes ResourceTypeInflection = "plural"
	// SingularTypes renders "posts" as "post"
	SingularTypes ResourceTypeInflection = "singular"
)

// JSONAPIConfig holds options specific to the json_api adapter
type JSONAPIConfig struct {
	// IncludeToplevelObject adds the top-level "jsonapi" member
	IncludeToplevelObject bool
	// Version is reported in the "jsonapi" member
	Version string
	// ToplevelMeta is reported as "jsonapi.meta"
	ToplevelMeta map[string]any
	// PaginationLinks adds self/first/prev/next/last links for Paginated
	// collections
	PaginationLinks bool
	// ResourceType selects plural or singular types
	ResourceType ResourceTypeInflection
	// IncludeDataDefault applies to relationships that do not set include_data
	IncludeDataDefault bool
}

// Config holds options shared by every adapter. A Config is read-only while
// rendering.
type Config struct {
	// KeyTransform overrides each adapter's default key transform
	KeyTransform KeyTransform
	// DefaultIncludes applies to attributes and json renders without an
	// include directive
	DefaultIncludes string
	// MaxDepth bounds relationship nesting in the attributes and json adapters
	MaxDepth int
	// JSONAPI holds json_api options
	JSONAPI JSONAPIConfig
}

// DefaultConfig returns the default adapter configuration
func DefaultConfig() Config {
	return Config{
		DefaultIncludes: "*",
		MaxDepth:        10,
		JSONAPI: JSONAPIConfig{
			Version:            "1.0",
			PaginationLinks:    true,
			ResourceType:       PluralTypes,
			IncludeDataDefault: true,
		},
	}
}

// Validate checks the configuration for unknown values
func (c Config) Validate() error {
	if c.KeyTransform != "" {
		if _, err := ParseKeyTransform(string(c.KeyTransform)); err != nil {
			return err
		}
	}
	if c.MaxDepth < 0 {
		return fmt.Errorf("max depth must not be negative, got %d", c.MaxDepth)
	}
	switch c.JSONAPI.ResourceType {
	case "", PluralTypes, SingularTypes:
	default:
		return fmt.Errorf("unknown json_api resource type inflection %q (want %s or %s)",
			c.JSONAPI.ResourceType, PluralTypes, SingularTypes)
	}
	return nil
}

// ParseResourceTypeInflection parses "plural" or "singular"
func ParseResourceTypeInflection(s string) (ResourceTypeInflection, error) {
	switch ResourceTypeInflection(strings.ToLower(strings.TrimSpace(s))) {
	case PluralTypes:
		return PluralTypes, nil
	case SingularTypes:
		return SingularTypes, nil
	}
	return "", fmt.Errorf("unknown resource type inflection %q", s)
}
