// Package adapter renders resource bindings into documents. Three adapters
// are provided: attributes (a plain object), json (a root-wrapped object) and
// json_api (a JSON:API document).
package adapter

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	casing "github.com/conduit-lang/serializer/internal/util/strings"
	"github.com/conduit-lang/serializer/pkg/cache"
	"github.com/conduit-lang/serializer/pkg/document"
	"github.com/conduit-lang/serializer/pkg/include"
	"github.com/conduit-lang/serializer/pkg/resource"
)

// Adapter names
const (
	Attributes = "attributes"
	JSON       = "json"
	JSONAPI    = "json_api"
)

var (
	// ErrUnknownAdapter is returned by New for names it does not know
	ErrUnknownAdapter = errors.New("unknown adapter")

	// ErrMissingContext is returned when pagination links are requested
	// without a URLContext
	ErrMissingContext = errors.New("missing url context")

	// ErrNoRootKey is returned by the json adapter when no root key can be
	// derived, e.g. for an empty collection of unknown items
	ErrNoRootKey = errors.New("no root key")

	// ErrMissingID is returned by the json_api adapter for an included
	// resource without an id, which cannot be identified in included
	ErrMissingID = errors.New("included resource has no id")
)

// Adapter renders the binding graph rooted at root into a document
type Adapter interface {
	// Name returns the adapter name
	Name() string

	// CacheKey identifies the adapter in fragment cache keys
	CacheKey() string

	// Render builds the document. A nil directive selects the adapter's
	// default includes; nil options are treated as empty.
	Render(ctx context.Context, root *resource.Binding, dir *include.Directive, opts *Options) (any, error)
}

// New creates the adapter called name. fragments may be nil.
func New(name string, cfg Config, fragments *cache.Fragments) (Adapter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	canonical, err := ParseName(name)
	if err != nil {
		return nil, err
	}

	b := base{name: canonical, cfg: cfg, fragments: fragments}
	switch canonical {
	case Attributes:
		b.defaultTransform = Unaltered
		return &attributesAdapter{base: b}, nil
	case JSON:
		b.defaultTransform = Unaltered
		return &jsonAdapter{attributesAdapter{base: b}}, nil
	default:
		b.defaultTransform = Dash
		return &jsonAPIAdapter{base: b}, nil
	}
}

// ParseName resolves an adapter name, accepting any casing of the known names
// (e.g. "JsonApi", "json-api", "jsonapi")
func ParseName(name string) (string, error) {
	normalized := casing.ToSnakeCase(strings.TrimSpace(name))
	switch normalized {
	case Attributes, JSON, JSONAPI:
		return normalized, nil
	case "jsonapi":
		return JSONAPI, nil
	}
	return "", fmt.Errorf("%w: %q (known: %s)", ErrUnknownAdapter, name, strings.Join(Names(), ", "))
}

// Names lists the known adapter names
func Names() []string {
	names := []string{Attributes, JSON, JSONAPI}
	sort.Strings(names)
	return names
}

// base holds what every adapter shares
type base struct {
	name             string
	cfg              Config
	fragments        *cache.Fragments
	defaultTransform KeyTransform
}

func (a *base) Name() string { return a.name }

func (a *base) CacheKey() string { return a.name }

// keyTransform picks the per-render transform, then the configured one, then
// the adapter default
func (a *base) keyTransform(opts *Options) KeyTransform {
	if opts.KeyTransform != "" {
		return opts.KeyTransform
	}
	if a.cfg.KeyTransform != "" {
		return a.cfg.KeyTransform
	}
	return a.defaultTransform
}

// maxDepth returns the configured nesting bound; zero means the default
func (a *base) maxDepth() int {
	if a.cfg.MaxDepth <= 0 {
		return DefaultConfig().MaxDepth
	}
	return a.cfg.MaxDepth
}

// attributes renders the attributes of b through the fragment cache
func (a *base) attributes(ctx context.Context, b *resource.Binding, fields []string) (*document.Object, error) {
	return a.fragments.Fetch(ctx, b, a.CacheKey(), fields, renderAttributes)
}

func renderAttributes(_ context.Context, b *resource.Binding, keys []string) (*document.Object, error) {
	return b.Attributes(keys)
}

func orEmpty(opts *Options) *Options {
	if opts == nil {
		return &Options{}
	}
	return opts
}
