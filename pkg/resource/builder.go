package resource

import (
	"errors"
	"fmt"
	"strings"
)

// Builder collects the rules of a descriptor inside Define
type Builder struct {
	d      *Descriptor
	errors []error
}

// AttributeOption configures a declared attribute
type AttributeOption func(*Attribute)

// RelationshipOption configures a declared relationship
type RelationshipOption func(*Relationship)

// WithKey renames the attribute on the wire
func WithKey(key string) AttributeOption {
	return func(a *Attribute) { a.Key = key }
}

// WithValue computes the attribute instead of reading it from the object
func WithValue(fn ValueFunc) AttributeOption {
	return func(a *Attribute) { a.Value = fn }
}

// WithIf renders the attribute only when fn returns true
func WithIf(fn ConditionFunc) AttributeOption {
	return func(a *Attribute) { a.If = fn }
}

// WithUnless renders the attribute only when fn returns false
func WithUnless(fn ConditionFunc) AttributeOption {
	return func(a *Attribute) {
		a.If = func(b *Binding) bool { return !fn(b) }
	}
}

// WithRelationshipKey renames the relationship on the wire
func WithRelationshipKey(key string) RelationshipOption {
	return func(r *Relationship) { r.Key = key }
}

// WithDescriptor serializes related objects with d instead of a registry lookup
func WithDescriptor(d *Descriptor) RelationshipOption {
	return func(r *Relationship) { r.Descriptor = d }
}

// Polymorphic resolves the descriptor from each related object's own type
func Polymorphic() RelationshipOption {
	return func(r *Relationship) { r.Polymorphic = true }
}

// WithVirtualValue emits value for the relationship without resolving it.
// The value takes precedence over the accessor, which is never called.
func WithVirtualValue(value any) RelationshipOption {
	return func(r *Relationship) {
		r.VirtualValue = value
		r.HasVirtualValue = true
	}
}

// WithoutData omits resource identifiers from JSON:API relationship objects
func WithoutData() RelationshipOption {
	return func(r *Relationship) {
		f := false
		r.IncludeData = &f
	}
}

// WithData forces resource identifiers into JSON:API relationship objects
func WithData() RelationshipOption {
	return func(r *Relationship) {
		t := true
		r.IncludeData = &t
	}
}

// WithRelationshipValue computes the related object(s) instead of reading them
func WithRelationshipValue(fn ValueFunc) RelationshipOption {
	return func(r *Relationship) { r.Value = fn }
}

// WithRelationshipLink adds a link to the relationship object
func WithRelationshipLink(name string, fn ValueFunc) RelationshipOption {
	return func(r *Relationship) { r.Links = append(r.Links, Link{Name: name, Value: fn}) }
}

// WithRelationshipMeta adds meta to the relationship object
func WithRelationshipMeta(fn ValueFunc) RelationshipOption {
	return func(r *Relationship) { r.Meta = fn }
}

// WithRelationshipIf renders the relationship only when fn returns true
func WithRelationshipIf(fn ConditionFunc) RelationshipOption {
	return func(r *Relationship) { r.If = fn }
}

// Static returns a ValueFunc that always yields v
func Static(v any) ValueFunc {
	return func(*Binding) (any, error) { return v, nil }
}

// Define builds a descriptor named name. Definition problems are collected and
// returned together; the descriptor is nil when any occurred.
func Define(name string, fn func(*Builder)) (*Descriptor, error) {
	b := &Builder{d: &Descriptor{name: strings.TrimSpace(name)}}
	if b.d.name == "" {
		b.fail(fmt.Errorf("%w: descriptor name is empty", ErrInvalidDefinition))
	}
	if fn != nil {
		fn(b)
	}
	b.validateCache()

	if len(b.errors) > 0 {
		return nil, fmt.Errorf("descriptor %q: %w", name, errors.Join(b.errors...))
	}

	b.d.digest = computeDigest(b.d)
	return b.d, nil
}

// MustDefine is like Define but panics on error
func MustDefine(name string, fn func(*Builder)) *Descriptor {
	d, err := Define(name, fn)
	if err != nil {
		panic(err)
	}
	return d
}

func (b *Builder) fail(err error) {
	b.errors = append(b.errors, err)
}

// Extend copies the rules of parent into the descriptor being defined.
// The copy is a snapshot; later changes to parent are not observed.
func (b *Builder) Extend(parent *Descriptor) {
	if parent == nil {
		b.fail(fmt.Errorf("%w: cannot extend a nil descriptor", ErrInvalidDefinition))
		return
	}
	snapshot := parent.clone()
	if b.d.typeName == "" {
		b.d.typeName = snapshot.typeName
	}
	if b.d.root == "" {
		b.d.root = snapshot.root
	}
	if b.d.id == nil {
		b.d.id = snapshot.id
	}
	if b.d.meta == nil {
		b.d.meta = snapshot.meta
	}
	if b.d.cache == nil {
		b.d.cache = snapshot.cache
	}
	for _, a := range snapshot.attributes {
		b.addAttribute(a)
	}
	for _, r := range snapshot.relationships {
		b.addRelationship(r)
	}
	b.d.links = append(b.d.links, snapshot.links...)
}

// Type sets the explicit wire type
func (b *Builder) Type(typeName string) {
	b.d.typeName = typeName
}

// Root sets the explicit JSON root key
func (b *Builder) Root(root string) {
	b.d.root = root
}

// ID overrides how the resource id is read
func (b *Builder) ID(fn ValueFunc) {
	b.d.id = fn
}

// Attributes declares plain attributes read from the object by name
func (b *Builder) Attributes(names ...string) {
	for _, name := range names {
		b.Attribute(name)
	}
}

// Attribute declares one attribute
func (b *Builder) Attribute(name string, opts ...AttributeOption) {
	name = strings.TrimSpace(name)
	if name == "" {
		b.fail(fmt.Errorf("%w: attribute name is empty", ErrInvalidDefinition))
		return
	}
	if name == "id" {
		if len(opts) > 0 {
			b.fail(ErrReservedAttribute)
		}
		// the id is implicit and always rendered
		return
	}

	a := &Attribute{Name: name, Key: name}
	for _, opt := range opts {
		opt(a)
	}
	if a.Key == "" {
		b.fail(fmt.Errorf("%w: attribute %q has an empty key", ErrInvalidDefinition, name))
		return
	}
	if a.Key == "id" {
		b.fail(fmt.Errorf("%w: attribute %q renamed to id", ErrReservedAttribute, name))
		return
	}
	b.addAttribute(a)
}

func (b *Builder) addAttribute(a *Attribute) {
	if b.keyTaken(a.Key, a.Name) {
		b.fail(fmt.Errorf("%w: %q (attribute %s)", ErrDuplicateKey, a.Key, a.Name))
		return
	}
	for i, existing := range b.d.attributes {
		if existing.Name == a.Name {
			// redeclaring an attribute replaces it in place
			b.d.attributes[i] = a
			return
		}
	}
	b.d.attributes = append(b.d.attributes, a)
}

// BelongsTo declares a to-one relationship
func (b *Builder) BelongsTo(name string, opts ...RelationshipOption) {
	b.relationship(name, BelongsTo, opts)
}

// HasOne declares a to-one relationship
func (b *Builder) HasOne(name string, opts ...RelationshipOption) {
	b.relationship(name, HasOne, opts)
}

// HasMany declares a to-many relationship
func (b *Builder) HasMany(name string, opts ...RelationshipOption) {
	b.relationship(name, HasMany, opts)
}

// Relationship declares a relationship of the given kind
func (b *Builder) Relationship(name string, kind Kind, opts ...RelationshipOption) {
	if kind < BelongsTo || kind > HasMany {
		b.fail(fmt.Errorf("%w: relationship %q has unknown kind %d", ErrInvalidDefinition, name, int(kind)))
		return
	}
	b.relationship(name, kind, opts)
}

func (b *Builder) relationship(name string, kind Kind, opts []RelationshipOption) {
	name = strings.TrimSpace(name)
	if name == "" {
		b.fail(fmt.Errorf("%w: relationship name is empty", ErrInvalidDefinition))
		return
	}
	r := &Relationship{Name: name, Key: name, Kind: kind}
	for _, opt := range opts {
		opt(r)
	}
	if r.Key == "" || r.Key == "id" {
		b.fail(fmt.Errorf("%w: relationship %q has an invalid key %q", ErrInvalidDefinition, name, r.Key))
		return
	}
	b.addRelationship(r)
}

func (b *Builder) addRelationship(r *Relationship) {
	if b.keyTaken(r.Key, r.Name) {
		b.fail(fmt.Errorf("%w: %q (relationship %s)", ErrDuplicateKey, r.Key, r.Name))
		return
	}
	for i, existing := range b.d.relationships {
		if existing.Name == r.Name {
			b.d.relationships[i] = r
			return
		}
	}
	b.d.relationships = append(b.d.relationships, r)
}

func (b *Builder) keyTaken(key, owner string) bool {
	for _, a := range b.d.attributes {
		if a.Key == key && a.Name != owner {
			return true
		}
	}
	for _, r := range b.d.relationships {
		if r.Key == key && r.Name != owner {
			return true
		}
	}
	return false
}

// Link declares a static resource link
func (b *Builder) Link(name string, value any) {
	b.LinkFunc(name, Static(value))
}

// LinkFunc declares a computed resource link
func (b *Builder) LinkFunc(name string, fn ValueFunc) {
	for i, l := range b.d.links {
		if l.Name == name {
			b.d.links[i].Value = fn
			return
		}
	}
	b.d.links = append(b.d.links, Link{Name: name, Value: fn})
}

// Meta declares static resource meta
func (b *Builder) Meta(value any) {
	b.d.meta = Static(value)
}

// MetaFunc declares computed resource meta
func (b *Builder) MetaFunc(fn ValueFunc) {
	b.d.meta = fn
}

// Cache enables fragment caching with the given policy
func (b *Builder) Cache(policy CachePolicy) {
	p := policy
	p.Only = append([]string(nil), policy.Only...)
	p.Except = append([]string(nil), policy.Except...)
	b.d.cache = &p
}

func (b *Builder) validateCache() {
	if b.d.cache == nil {
		return
	}
	for _, name := range append(append([]string(nil), b.d.cache.Only...), b.d.cache.Except...) {
		if _, ok := b.d.Attribute(name); !ok {
			b.fail(fmt.Errorf("%w: cache policy names unknown attribute %q", ErrInvalidDefinition, name))
		}
	}
	if b.d.cache.Expires < 0 {
		b.fail(fmt.Errorf("%w: cache expiry must not be negative", ErrInvalidDefinition))
	}
}
