package resource

import (
	"errors"
	"fmt"

	casing "github.com/conduit-lang/serializer/internal/util/strings"
	"github.com/conduit-lang/serializer/pkg/document"
	"github.com/conduit-lang/serializer/pkg/include"
)

// BindOptions configures Bind
type BindOptions struct {
	// Registry resolves descriptors; DefaultRegistry when nil
	Registry *Registry
	// Descriptor is the explicit descriptor for the object, or for the items of
	// a collection when EachDescriptor is not set
	Descriptor *Descriptor
	// EachDescriptor is the explicit descriptor for collection items
	EachDescriptor *Descriptor
	// Scope is opaque context (e.g. the current actor) available to value funcs
	Scope any
}

// renderContext is shared by every binding created during one render
type renderContext struct {
	registry *Registry
	scope    any
	each     *Descriptor
}

// Binding pairs a descriptor with one object (or a collection of objects) for
// the duration of a single render. It never mutates the object.
type Binding struct {
	ctx        *renderContext
	descriptor *Descriptor
	object     any
	collection bool
	items      []*Binding
	resolved   map[string]*resolvedRelationship
}

type resolvedRelationship struct {
	target  *Binding
	targets []*Binding
}

// Bind creates the root binding of a render. Collections (slices, arrays and
// Enumerable values) become collection bindings whose items are bound
// individually. Objects without a descriptor become native bindings.
func Bind(obj any, opts BindOptions) (*Binding, error) {
	registry := opts.Registry
	if registry == nil {
		registry = DefaultRegistry
	}
	ctx := &renderContext{
		registry: registry,
		scope:    opts.Scope,
		each:     opts.EachDescriptor,
	}

	if _, ok := obj.(Serializable); !ok {
		if items, ok := Enumerate(obj); ok {
			each := opts.EachDescriptor
			if each == nil {
				each = opts.Descriptor
				ctx.each = each
			}
			b := &Binding{ctx: ctx, object: obj, collection: true, descriptor: CollectionDescriptor}
			b.items = make([]*Binding, 0, len(items))
			for _, item := range items {
				b.items = append(b.items, ctx.bindItem(item, each))
			}
			return b, nil
		}
	}

	return ctx.bindItem(obj, opts.Descriptor), nil
}

func (c *renderContext) bindItem(obj any, explicit *Descriptor) *Binding {
	d, ok := c.registry.LookupFor(obj, explicit)
	if !ok || d.collection {
		d = nil
	}
	return &Binding{ctx: c, descriptor: d, object: obj}
}

// Descriptor returns the bound descriptor; nil for native bindings
func (b *Binding) Descriptor() *Descriptor {
	if b.collection {
		return nil
	}
	return b.descriptor
}

// Object returns the bound object
func (b *Binding) Object() any { return b.object }

// Scope returns the render scope
func (b *Binding) Scope() any { return b.ctx.scope }

// Registry returns the registry used by this render
func (b *Binding) Registry() *Registry { return b.ctx.registry }

// IsCollection reports whether the binding wraps a collection
func (b *Binding) IsCollection() bool { return b.collection }

// Items returns the item bindings of a collection binding
func (b *Binding) Items() []*Binding { return b.items }

// IsNative reports whether no descriptor was resolved for the object, in which
// case adapters fall back to the object's own representation
func (b *Binding) IsNative() bool { return !b.collection && b.descriptor == nil }

// Name returns the descriptor name, or a name derived from the object's type
func (b *Binding) Name() string {
	if b.descriptor != nil && !b.collection {
		return b.descriptor.name
	}
	return minimalName(b.object)
}

// Pagination returns the collection's page capabilities, if it has them
func (b *Binding) Pagination() (Paginated, bool) {
	if !b.collection {
		return nil, false
	}
	p, ok := b.object.(Paginated)
	return p, ok
}

// JSONKey returns the root key for the binding: the explicit root or the
// descriptor name, pluralized for collections. It is empty for an empty
// collection whose item descriptor is unknown.
func (b *Binding) JSONKey() string {
	if !b.collection {
		if b.descriptor != nil && b.descriptor.root != "" {
			return b.descriptor.root
		}
		return b.Name()
	}
	if b.ctx.each != nil {
		if b.ctx.each.root != "" {
			return casing.Pluralize(b.ctx.each.root)
		}
		return casing.Pluralize(b.ctx.each.name)
	}
	if len(b.items) > 0 {
		return casing.Pluralize(b.items[0].JSONKey())
	}
	return ""
}

// RawID returns the id value as read from the object
func (b *Binding) RawID() (any, error) {
	if b.collection || isNil(b.object) {
		return nil, nil
	}
	if b.descriptor != nil && b.descriptor.id != nil {
		v, err := b.descriptor.id(b)
		if err != nil {
			return nil, fmt.Errorf("id: %w", err)
		}
		return v, nil
	}
	v, err := ReadValue(b.object, "id")
	if errors.Is(err, ErrMissingAccessor) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("id: %w", err)
	}
	return v, nil
}

// ID returns the id as a string; "" when the object has none
func (b *Binding) ID() (string, error) {
	raw, err := b.RawID()
	if err != nil {
		return "", err
	}
	return FormatID(raw), nil
}

// FormatID converts an id value into its wire string
func FormatID(raw any) string {
	if isNil(raw) {
		return ""
	}
	switch v := raw.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// Identity returns "name:id", used to detect a resource reached twice
func (b *Binding) Identity() (string, error) {
	id, err := b.ID()
	if err != nil {
		return "", err
	}
	return b.Name() + ":" + id, nil
}

// AttributeKeys returns the wire keys that Attributes(fields) would render
func (b *Binding) AttributeKeys(fields []string) []string {
	attrs := b.visibleAttributes(fields)
	keys := make([]string, len(attrs))
	for i, a := range attrs {
		keys[i] = a.Key
	}
	return keys
}

// Attributes reads the declared attributes in declaration order. A nil fields
// renders every attribute; otherwise only attributes whose key or name is
// listed. Values are read on every call.
func (b *Binding) Attributes(fields []string) (*document.Object, error) {
	attrs := b.visibleAttributes(fields)
	out := document.New(len(attrs))
	for _, a := range attrs {
		v, err := b.readAttribute(a)
		if err != nil {
			return nil, fmt.Errorf("attribute %s: %w", a.Name, err)
		}
		out.Set(a.Key, v)
	}
	return out, nil
}

func (b *Binding) visibleAttributes(fields []string) []*Attribute {
	if b.descriptor == nil || b.collection {
		return nil
	}
	var allowed map[string]bool
	if fields != nil {
		allowed = toSet(fields)
	}
	out := make([]*Attribute, 0, len(b.descriptor.attributes))
	for _, a := range b.descriptor.attributes {
		if allowed != nil && !allowed[a.Key] && !allowed[a.Name] {
			continue
		}
		if a.If != nil && !a.If(b) {
			continue
		}
		out = append(out, a)
	}
	return out
}

func (b *Binding) readAttribute(a *Attribute) (any, error) {
	if a.Value != nil {
		return a.Value(b)
	}
	return ReadValue(b.object, a.Name)
}

// Links evaluates the resource links; nil when none are declared
func (b *Binding) Links() (*document.Object, error) {
	if b.descriptor == nil || len(b.descriptor.links) == 0 {
		return nil, nil
	}
	return evalLinks(b, b.descriptor.links)
}

func evalLinks(b *Binding, links []Link) (*document.Object, error) {
	out := document.New(len(links))
	for _, l := range links {
		v, err := l.Value(b)
		if err != nil {
			return nil, fmt.Errorf("link %s: %w", l.Name, err)
		}
		out.Set(l.Name, v)
	}
	return out, nil
}

// Meta evaluates the resource meta; nil when none is declared
func (b *Binding) Meta() (any, error) {
	if b.descriptor == nil || b.descriptor.meta == nil {
		return nil, nil
	}
	v, err := b.descriptor.meta(b)
	if err != nil {
		return nil, fmt.Errorf("meta: %w", err)
	}
	return v, nil
}

// Associations resolves the relationships whose key the directive matches, in
// declaration order. Each association carries the directive narrowed to its key.
func (b *Binding) Associations(dir *include.Directive) ([]*Association, error) {
	if b.descriptor == nil || b.collection || dir.IsEmpty() {
		return nil, nil
	}
	out := make([]*Association, 0, len(b.descriptor.relationships))
	for _, rel := range b.descriptor.relationships {
		if !dir.Has(rel.Key) {
			continue
		}
		if rel.If != nil && !rel.If(b) {
			continue
		}
		a, err := b.resolve(rel)
		if err != nil {
			return nil, err
		}
		a.Directive = dir.Child(rel.Key)
		out = append(out, a)
	}
	return out, nil
}
