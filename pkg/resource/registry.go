package resource

import (
	"fmt"
	"reflect"
	"sort"
	"sync"

	casing "github.com/conduit-lang/serializer/internal/util/strings"
)

// CollectionDescriptor marks collection objects in lookups
var CollectionDescriptor = &Descriptor{name: "collection", collection: true}

// DefaultRegistry is the process-wide registry used when none is given.
// Populate it during initialization; it is read-only while rendering.
var DefaultRegistry = NewRegistry()

// ConventionFunc is a host-supplied fallback resolving descriptors for objects
// that were not registered explicitly
type ConventionFunc func(obj any) *Descriptor

// Registry maps Go types and resource names to descriptors
type Registry struct {
	mu                sync.RWMutex
	byType            map[reflect.Type]*Descriptor
	byName            map[string]*Descriptor
	defaultDescriptor *Descriptor
	convention        ConventionFunc
	lookupDisabled    bool

	// per concrete type results, including misses
	lookups sync.Map
	minimal sync.Map
}

type lookupResult struct {
	d *Descriptor
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		byType: make(map[reflect.Type]*Descriptor),
		byName: make(map[string]*Descriptor),
	}
}

// Register associates the type of sample (a value, a pointer or a reflect.Type)
// with d. The descriptor is also registered under its name.
func (r *Registry) Register(sample any, d *Descriptor) error {
	if d == nil {
		return fmt.Errorf("%w: cannot register a nil descriptor", ErrInvalidDefinition)
	}
	t, ok := sample.(reflect.Type)
	if !ok {
		t = reflect.TypeOf(sample)
	}
	if t == nil {
		return fmt.Errorf("%w: cannot register descriptor %q for a nil type", ErrInvalidDefinition, d.name)
	}
	t = indirectType(t)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.byType[t] = d
	r.byName[d.name] = d
	r.lookups.Clear()
	return nil
}

// MustRegister is like Register but panics on error
func (r *Registry) MustRegister(sample any, d *Descriptor) {
	if err := r.Register(sample, d); err != nil {
		panic(err)
	}
}

// RegisterName registers d under name for objects implementing Typed
func (r *Registry) RegisterName(name string, d *Descriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byName[name] = d
}

// SetDefault sets the descriptor used when nothing else matches
func (r *Registry) SetDefault(d *Descriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defaultDescriptor = d
}

// SetConvention installs a fallback lookup for unregistered objects
func (r *Registry) SetConvention(fn ConventionFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.convention = fn
}

// SetLookupEnabled turns type, name and convention lookups on or off.
// With lookups off only Serializable objects, explicit descriptors and the
// default descriptor resolve.
func (r *Registry) SetLookupEnabled(enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lookupDisabled = !enabled
}

// Named returns the descriptor registered under name
func (r *Registry) Named(name string) (*Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byName[name]
	return d, ok
}

// Descriptors returns all named descriptors sorted by name
func (r *Registry) Descriptors() []*Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Descriptor, 0, len(r.byName))
	for _, d := range r.byName {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

// LookupFor resolves the descriptor for obj. The chain is: the object's own
// descriptor, the explicit descriptor, collection detection, the type table
// (walking embedded structs), the Typed name, the convention function and
// finally the default descriptor. It never panics; ok is false when nothing matched.
func (r *Registry) LookupFor(obj any, explicit *Descriptor) (*Descriptor, bool) {
	if s, ok := obj.(Serializable); ok && !isNil(obj) {
		if d := s.ResourceDescriptor(); d != nil {
			return d, true
		}
	}
	if explicit != nil {
		return explicit, true
	}
	if obj == nil {
		return r.fallback()
	}
	if _, ok := Enumerate(obj); ok {
		return CollectionDescriptor, true
	}

	r.mu.RLock()
	disabled := r.lookupDisabled
	convention := r.convention
	r.mu.RUnlock()

	if !disabled {
		if d := r.lookupType(reflect.TypeOf(obj)); d != nil {
			return d, true
		}
		if typed, ok := obj.(Typed); ok {
			if d, ok := r.Named(typed.ResourceType()); ok {
				return d, true
			}
		}
		if convention != nil {
			if d := convention(obj); d != nil {
				return d, true
			}
		}
	}
	return r.fallback()
}

func (r *Registry) fallback() (*Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.defaultDescriptor != nil {
		return r.defaultDescriptor, true
	}
	return nil, false
}

func (r *Registry) lookupType(t reflect.Type) *Descriptor {
	if cached, ok := r.lookups.Load(t); ok {
		return cached.(lookupResult).d
	}

	d := r.walkType(indirectType(t), map[reflect.Type]bool{})
	r.lookups.Store(t, lookupResult{d: d})
	return d
}

// walkType looks t up and then its embedded structs, which play the role of a
// parent type
func (r *Registry) walkType(t reflect.Type, seen map[reflect.Type]bool) *Descriptor {
	if seen[t] {
		return nil
	}
	seen[t] = true

	r.mu.RLock()
	d, ok := r.byType[t]
	r.mu.RUnlock()
	if ok {
		return d
	}
	if t.Kind() != reflect.Struct {
		return nil
	}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.Anonymous {
			continue
		}
		if d := r.walkType(indirectType(f.Type), seen); d != nil {
			return d
		}
	}
	return nil
}

// Minimal returns a descriptor with no attributes for obj's type, named after
// the type. It is used when a related object has no descriptor of its own.
func (r *Registry) Minimal(obj any) *Descriptor {
	name := minimalName(obj)
	if cached, ok := r.minimal.Load(name); ok {
		return cached.(*Descriptor)
	}
	d := &Descriptor{name: name, minimal: true}
	d.digest = computeDigest(d)
	actual, _ := r.minimal.LoadOrStore(name, d)
	return actual.(*Descriptor)
}

func minimalName(obj any) string {
	if typed, ok := obj.(Typed); ok && typed.ResourceType() != "" {
		return typed.ResourceType()
	}
	t := reflect.TypeOf(obj)
	if t == nil {
		return "object"
	}
	t = indirectType(t)
	if t.Name() == "" {
		return "object"
	}
	return casing.ToSnakeCase(t.Name())
}

func indirectType(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}
