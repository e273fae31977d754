package cache

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/conduit-lang/serializer/pkg/document"
	"github.com/conduit-lang/serializer/pkg/resource"
)

// RenderFunc renders the attributes of b restricted to the given wire keys
type RenderFunc func(ctx context.Context, b *resource.Binding, keys []string) (*document.Object, error)

// Fragments applies descriptor cache policies to attribute renders. The
// cached subset of a resource's attributes is read through the store and the
// rest is rendered fresh on every call, then the two are merged.
type Fragments struct {
	store    Store
	codec    Codec
	logger   *zap.Logger
	metrics  *Metrics
	disabled bool

	group singleflight.Group
}

// FragmentOption configures Fragments
type FragmentOption func(*Fragments)

// WithLogger sets the logger used for cache decisions
func WithLogger(logger *zap.Logger) FragmentOption {
	return func(f *Fragments) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithCodec replaces the default uncompressed JSON codec
func WithCodec(codec Codec) FragmentOption {
	return func(f *Fragments) {
		if codec != nil {
			f.codec = codec
		}
	}
}

// WithMetrics registers hit and miss counters with registry
func WithMetrics(registry prometheus.Registerer) FragmentOption {
	return func(f *Fragments) {
		f.metrics.MustRegister(registry)
	}
}

// WithDisabled turns fragment caching off while keeping the store configured
func WithDisabled(disabled bool) FragmentOption {
	return func(f *Fragments) {
		f.disabled = disabled
	}
}

// NewFragments creates a fragment cache over store. A nil store disables caching.
func NewFragments(store Store, opts ...FragmentOption) *Fragments {
	f := &Fragments{
		store:   store,
		codec:   NewJSONCodec(false),
		logger:  zap.NewNop(),
		metrics: NewMetrics(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Store returns the underlying store
func (f *Fragments) Store() Store {
	if f == nil {
		return nil
	}
	return f.store
}

// Enabled reports whether b's attributes go through the cache: a store is
// configured, caching is on and the descriptor has a cache policy
func (f *Fragments) Enabled(b *resource.Binding) bool {
	if f == nil || f.disabled || f.store == nil || b == nil {
		return false
	}
	d := b.Descriptor()
	return d != nil && d.CachePolicy() != nil
}

// Split returns the visible attribute keys of b divided into the cached and
// non-cached subsets, each in declaration order
func (f *Fragments) Split(b *resource.Binding, fields []string) (cached, nonCached []string) {
	visible := b.AttributeKeys(fields)
	allCached, _ := b.Descriptor().FragmentSplit()

	cachedSet := make(map[string]bool, len(allCached))
	for _, k := range allCached {
		cachedSet[k] = true
	}

	cached = make([]string, 0, len(visible))
	nonCached = make([]string, 0, len(visible))
	for _, k := range visible {
		if cachedSet[k] {
			cached = append(cached, k)
		} else {
			nonCached = append(nonCached, k)
		}
	}
	return cached, nonCached
}

// Key builds the fragment key of b for the given adapter and cached keys.
// The fieldset digest is added when the cached keys differ from the full
// cached set, and the rule digest unless the policy skips it.
func (f *Fragments) Key(b *resource.Binding, adapterKey string, cachedKeys []string) (string, bool, error) {
	root, ok, err := ResourceKey(b)
	if err != nil || !ok {
		return "", ok, err
	}

	d := b.Descriptor()
	policy := d.CachePolicy()

	var fieldset string
	if full, _ := d.FragmentSplit(); !slices.Equal(full, cachedKeys) {
		fieldset = FieldsetDigest(cachedKeys)
	}
	var rules string
	if policy == nil || !policy.SkipDigest {
		rules = d.Digest()
	}
	return FragmentKey(root, adapterKey, fieldset, rules), true, nil
}

// Fetch renders the attributes of b visible under fields. When caching does
// not apply, render is called once for every visible key. Otherwise the cached
// subset is read through the store and always decoded through the codec, so
// hits and misses produce identical output.
func (f *Fragments) Fetch(ctx context.Context, b *resource.Binding, adapterKey string, fields []string, render RenderFunc) (*document.Object, error) {
	if !f.Enabled(b) {
		return render(ctx, b, b.AttributeKeys(fields))
	}

	cached, nonCached := f.Split(b, fields)
	if len(cached) == 0 {
		return render(ctx, b, nonCached)
	}

	key, ok, err := f.Key(b, adapterKey, cached)
	if err != nil {
		return nil, fmt.Errorf("fragment key for %s: %w", b.Name(), err)
	}
	if !ok {
		f.logger.Debug("no fragment cache key, rendering uncached",
			zap.String("resource", b.Name()),
		)
		return render(ctx, b, b.AttributeKeys(fields))
	}

	data, err := f.load(ctx, key, b.Descriptor().CachePolicy().Expires, func(ctx context.Context) ([]byte, error) {
		fragment, err := render(ctx, b, cached)
		if err != nil {
			return nil, err
		}
		return f.codec.Encode(fragment)
	})
	if err != nil {
		return nil, err
	}

	fragment, err := f.codec.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("fragment %s: %w", key, err)
	}

	if len(nonCached) > 0 {
		fresh, err := render(ctx, b, nonCached)
		if err != nil {
			return nil, err
		}
		fragment = fragment.Merge(fresh)
	}
	fragment.Reorder(b.AttributeKeys(fields))
	return fragment, nil
}

// load reads key through the store; concurrent loads of one key share a
// single computation
func (f *Fragments) load(ctx context.Context, key string, ttl time.Duration, compute ComputeFunc) ([]byte, error) {
	v, err, shared := f.group.Do(key, func() (any, error) {
		data, hit, err := Fetch(ctx, f.store, key, ttl, compute)
		f.metrics.observe(hit, err)
		if err != nil {
			return nil, err
		}
		f.logger.Debug("fragment cache lookup",
			zap.String("key", key),
			zap.Bool("hit", hit),
		)
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		f.logger.Debug("fragment cache lookup shared", zap.String("key", key))
	}
	return v.([]byte), nil
}
