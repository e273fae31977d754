// Package serializer is the entry point of the serialization engine. A
// Serializer binds an object to its descriptor, parses the include
// directive and hands the binding graph to the configured adapter.
package serializer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/conduit-lang/serializer/pkg/adapter"
	"github.com/conduit-lang/serializer/pkg/cache"
	"github.com/conduit-lang/serializer/pkg/include"
	"github.com/conduit-lang/serializer/pkg/resource"
)

// Config is the render configuration of a Serializer. It is read-only once
// the Serializer is built.
type Config struct {
	// Adapter is used when Options.Adapter is empty
	Adapter string
	// AllowWildcardIncludes lets "*" and "**" in include options expand to
	// every relationship; otherwise they are literal keys
	AllowWildcardIncludes bool
	// Adapters configures the adapters
	Adapters adapter.Config
}

// DefaultConfig returns the configuration of the default Serializer
func DefaultConfig() Config {
	return Config{
		Adapter:               adapter.Attributes,
		AllowWildcardIncludes: true,
		Adapters:              adapter.DefaultConfig(),
	}
}

// Options are per-call render options
type Options struct {
	// Adapter overrides Config.Adapter
	Adapter string
	// Include selects relationships: a string like "author,comments.author",
	// a []string, a map or a *include.Directive. nil uses the adapter default.
	Include any
	// Fields restricts attributes and relationships per resource type
	Fields map[string][]string
	// Root overrides the json adapter root key
	Root string
	// Meta is rendered at the top level by the json and json_api adapters
	Meta any
	// MetaKey names the json adapter meta member
	MetaKey string
	// Scope is passed to value funcs and conditions through the binding
	Scope any
	// Descriptor is used for the object instead of a registry lookup
	Descriptor *resource.Descriptor
	// EachDescriptor is used for the items of a collection
	EachDescriptor *resource.Descriptor
	// KeyTransform overrides the adapter key transform
	KeyTransform adapter.KeyTransform
	// Context carries the request URL for JSON:API pagination links
	Context *adapter.URLContext
	// Links are top-level JSON:API links
	Links map[string]any
}

// Serializer renders objects with the adapters built from its Config. It is
// safe for concurrent use.
type Serializer struct {
	registry  *resource.Registry
	cfg       Config
	fragments *cache.Fragments
	logger    *zap.Logger
	adapters  map[string]adapter.Adapter
}

// Option configures a Serializer
type Option func(*Serializer)

// WithConfig replaces DefaultConfig()
func WithConfig(cfg Config) Option {
	return func(s *Serializer) {
		s.cfg = cfg
	}
}

// WithFragments enables fragment caching for descriptors with a cache policy
func WithFragments(fragments *cache.Fragments) Option {
	return func(s *Serializer) {
		s.fragments = fragments
	}
}

// WithLogger sets the logger; renders are logged at debug level
func WithLogger(logger *zap.Logger) Option {
	return func(s *Serializer) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a Serializer over registry; resource.DefaultRegistry when nil
func New(registry *resource.Registry, opts ...Option) (*Serializer, error) {
	if registry == nil {
		registry = resource.DefaultRegistry
	}
	s := &Serializer{
		registry: registry,
		cfg:      DefaultConfig(),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.cfg.Adapter == "" {
		s.cfg.Adapter = adapter.Attributes
	}
	if _, err := adapter.ParseName(s.cfg.Adapter); err != nil {
		return nil, err
	}

	s.adapters = make(map[string]adapter.Adapter, len(adapter.Names()))
	for _, name := range adapter.Names() {
		a, err := adapter.New(name, s.cfg.Adapters, s.fragments)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s adapter: %w", name, err)
		}
		s.adapters[name] = a
	}
	return s, nil
}

// MustNew is like New but panics on configuration errors
func MustNew(registry *resource.Registry, opts ...Option) *Serializer {
	s, err := New(registry, opts...)
	if err != nil {
		panic(err)
	}
	return s
}

// Config returns the Serializer configuration
func (s *Serializer) Config() Config { return s.cfg }

// Registry returns the registry descriptors are looked up in
func (s *Serializer) Registry() *resource.Registry { return s.registry }

// Adapter returns the adapter called name, or the configured default when
// name is empty
func (s *Serializer) Adapter(name string) (adapter.Adapter, error) {
	if name == "" {
		name = s.cfg.Adapter
	}
	canonical, err := adapter.ParseName(name)
	if err != nil {
		return nil, err
	}
	return s.adapters[canonical], nil
}

// Serialize renders obj into a document: a *document.Object for single
// resources, a slice for attributes-adapter collections, or the object
// itself when it has no descriptor and the adapter allows native rendering.
func (s *Serializer) Serialize(ctx context.Context, obj any, opts Options) (any, error) {
	start := time.Now()

	a, err := s.Adapter(opts.Adapter)
	if err != nil {
		return nil, err
	}

	dir, err := s.directive(opts.Include)
	if err != nil {
		return nil, err
	}

	b, err := resource.Bind(obj, resource.BindOptions{
		Registry:       s.registry,
		Descriptor:     opts.Descriptor,
		EachDescriptor: opts.EachDescriptor,
		Scope:          opts.Scope,
	})
	if err != nil {
		return nil, err
	}

	out, err := a.Render(ctx, b, dir, &adapter.Options{
		Fields:       opts.Fields,
		Root:         opts.Root,
		Meta:         opts.Meta,
		MetaKey:      opts.MetaKey,
		KeyTransform: opts.KeyTransform,
		Context:      opts.Context,
		Links:        opts.Links,
	})
	if err != nil {
		s.logger.Debug("render failed",
			zap.String("adapter", a.Name()),
			zap.String("resource", b.Name()),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%s adapter: %w", a.Name(), err)
	}

	s.logger.Debug("rendered",
		zap.String("adapter", a.Name()),
		zap.String("resource", b.Name()),
		zap.Bool("collection", b.IsCollection()),
		zap.Duration("duration", time.Since(start)),
	)
	return out, nil
}

// SerializeJSON renders obj and encodes the document
func (s *Serializer) SerializeJSON(ctx context.Context, obj any, opts Options) ([]byte, error) {
	out, err := s.Serialize(ctx, obj, opts)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	return data, nil
}

func (s *Serializer) directive(spec any) (*include.Directive, error) {
	if spec == nil {
		return nil, nil
	}
	var opts []include.Option
	if !s.cfg.AllowWildcardIncludes {
		opts = append(opts, include.WithoutWildcards())
	}
	dir, err := include.Parse(spec, opts...)
	if err != nil {
		return nil, fmt.Errorf("include: %w", err)
	}
	return dir, nil
}

var (
	defaultOnce       sync.Once
	defaultSerializer *Serializer
)

// Default returns the process-wide Serializer built over
// resource.DefaultRegistry and DefaultConfig(). It has no fragment cache.
func Default() *Serializer {
	defaultOnce.Do(func() {
		defaultSerializer = MustNew(resource.DefaultRegistry)
	})
	return defaultSerializer
}

// Serialize renders obj with the default Serializer
func Serialize(ctx context.Context, obj any, opts Options) (any, error) {
	return Default().Serialize(ctx, obj, opts)
}

// SerializeJSON renders and encodes obj with the default Serializer
func SerializeJSON(ctx context.Context, obj any, opts Options) ([]byte, error) {
	return Default().SerializeJSON(ctx, obj, opts)
}
