package adapter

import (
	"net/url"
	"sort"
)

// URLContext describes the request a document is rendered for. Pagination
// links are built from it.
type URLContext struct {
	// RequestURL is the URL of the current request
	RequestURL string
	// Query holds the request query parameters kept on every page link
	Query url.Values
}

// Options are per-render adapter options
type Options struct {
	// Fields restricts attributes and relationships per resource type. Keys
	// are JSON:API types or descriptor names; values are attribute or
	// relationship names, raw or key-transformed.
	Fields map[string][]string
	// Root overrides the json adapter root key
	Root string
	// Meta is rendered at the top level by the json and json_api adapters
	Meta any
	// MetaKey names the json adapter meta member; "meta" when empty
	MetaKey string
	// KeyTransform overrides the configured key transform
	KeyTransform KeyTransform
	// Context is required for JSON:API pagination links
	Context *URLContext
	// Links are top-level JSON:API links
	Links map[string]any
}

func (o *Options) metaKey() string {
	if o.MetaKey == "" {
		return "meta"
	}
	return o.MetaKey
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
