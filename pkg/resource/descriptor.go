// Package resource holds the declarative description of how a domain type is
// serialized (attributes, relationships, links, meta, cache policy), the registry
// that maps Go types to descriptors, and the per-render bindings that pair a
// descriptor with a concrete object.
package resource

import (
	"fmt"
	"time"
)

// ValueFunc computes a value for a binding. Errors propagate to the caller
// unchanged apart from wrapping.
type ValueFunc func(b *Binding) (any, error)

// ConditionFunc decides whether an attribute or relationship is rendered
type ConditionFunc func(b *Binding) bool

// Kind is the cardinality of a relationship
type Kind int

const (
	// BelongsTo is a to-one relationship held by the owner
	BelongsTo Kind = iota
	// HasOne is a to-one relationship held by the target
	HasOne
	// HasMany is a to-many relationship
	HasMany
)

// String returns the string representation of the relationship kind
func (k Kind) String() string {
	switch k {
	case BelongsTo:
		return "belongs_to"
	case HasOne:
		return "has_one"
	case HasMany:
		return "has_many"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Many reports whether the kind is to-many
func (k Kind) Many() bool {
	return k == HasMany
}

// ParseKind converts "belongs_to", "has_one" or "has_many" into a Kind
func ParseKind(s string) (Kind, error) {
	switch s {
	case "belongs_to":
		return BelongsTo, nil
	case "has_one":
		return HasOne, nil
	case "has_many":
		return HasMany, nil
	default:
		return 0, fmt.Errorf("%w: unknown relationship kind %q", ErrInvalidDefinition, s)
	}
}

// Attribute is a declared attribute
type Attribute struct {
	// Name is the declared name, used to read the value from the object
	Name string
	// Key is the wire key; defaults to Name
	Key string
	// Value overrides how the value is read
	Value ValueFunc
	// If gates rendering of the attribute
	If ConditionFunc
}

// Relationship is a declared association to other resources
type Relationship struct {
	Name        string
	Key         string
	Kind        Kind
	Polymorphic bool
	// Descriptor is used for related objects instead of a registry lookup
	Descriptor *Descriptor
	// Value overrides how the related object(s) are read
	Value ValueFunc
	// VirtualValue is emitted as-is instead of resolving the relationship
	VirtualValue    any
	HasVirtualValue bool
	// IncludeData controls whether JSON:API relationship objects carry data.
	// nil defers to the adapter configuration.
	IncludeData *bool
	Links       []Link
	Meta        ValueFunc
	If          ConditionFunc
}

// Link is a named link whose value is computed per binding
type Link struct {
	Name  string
	Value ValueFunc
}

// CachePolicy configures fragment caching for a descriptor
type CachePolicy struct {
	// Key replaces the digest-derived cache key root
	Key string
	// Only lists the attribute names that are cached; it wins over Except
	Only []string
	// Except lists the attribute names that are never cached
	Except []string
	// Expires is the TTL passed to the cache store; zero uses the store default
	Expires time.Duration
	// SkipDigest leaves the rule digest out of the cache key
	SkipDigest bool
}

// Descriptor is the immutable serialization rule set for one resource type
type Descriptor struct {
	name          string
	typeName      string
	root          string
	id            ValueFunc
	attributes    []*Attribute
	relationships []*Relationship
	links         []Link
	meta          ValueFunc
	cache         *CachePolicy
	digest        string
	minimal       bool
	collection    bool
}

// Name returns the descriptor name (e.g. "post")
func (d *Descriptor) Name() string { return d.name }

// TypeName returns the explicit wire type, or "" when it is derived from the name
func (d *Descriptor) TypeName() string { return d.typeName }

// Root returns the explicit JSON root key, or ""
func (d *Descriptor) Root() string { return d.root }

// Digest returns the rule digest computed at definition time
func (d *Descriptor) Digest() string { return d.digest }

// IsMinimal reports whether the descriptor was synthesized for an unregistered type
func (d *Descriptor) IsMinimal() bool { return d.minimal }

// IsCollection reports whether this is the collection marker descriptor
func (d *Descriptor) IsCollection() bool { return d.collection }

// HasMeta reports whether the descriptor declares resource meta
func (d *Descriptor) HasMeta() bool { return d.meta != nil }

// Attributes returns the declared attributes in declaration order
func (d *Descriptor) Attributes() []Attribute {
	out := make([]Attribute, len(d.attributes))
	for i, a := range d.attributes {
		out[i] = *a
	}
	return out
}

// AttributeKeys returns the wire keys of all declared attributes in order
func (d *Descriptor) AttributeKeys() []string {
	keys := make([]string, len(d.attributes))
	for i, a := range d.attributes {
		keys[i] = a.Key
	}
	return keys
}

// Attribute looks up an attribute by name
func (d *Descriptor) Attribute(name string) (Attribute, bool) {
	for _, a := range d.attributes {
		if a.Name == name {
			return *a, true
		}
	}
	return Attribute{}, false
}

// Relationships returns the declared relationships in declaration order
func (d *Descriptor) Relationships() []Relationship {
	out := make([]Relationship, len(d.relationships))
	for i, r := range d.relationships {
		out[i] = *r
	}
	return out
}

// Relationship looks up a relationship by name
func (d *Descriptor) Relationship(name string) (Relationship, bool) {
	for _, r := range d.relationships {
		if r.Name == name {
			return *r, true
		}
	}
	return Relationship{}, false
}

// Links returns the declared resource links
func (d *Descriptor) Links() []Link {
	out := make([]Link, len(d.links))
	copy(out, d.links)
	return out
}

// CachePolicy returns a copy of the cache policy, or nil when the resource is not cached
func (d *Descriptor) CachePolicy() *CachePolicy {
	if d.cache == nil {
		return nil
	}
	p := *d.cache
	p.Only = append([]string(nil), d.cache.Only...)
	p.Except = append([]string(nil), d.cache.Except...)
	return &p
}

// FragmentSplit partitions the attribute wire keys into the cached and the
// non-cached subsets. Only wins over Except; a policy with neither caches all
// attributes. Without a policy nothing is cached.
func (d *Descriptor) FragmentSplit() (cached, nonCached []string) {
	if d.cache == nil {
		return nil, d.AttributeKeys()
	}

	var selected map[string]bool
	switch {
	case len(d.cache.Only) > 0:
		selected = toSet(d.cache.Only)
	case len(d.cache.Except) > 0:
		excluded := toSet(d.cache.Except)
		selected = make(map[string]bool, len(d.attributes))
		for _, a := range d.attributes {
			if !excluded[a.Name] {
				selected[a.Name] = true
			}
		}
	default:
		return d.AttributeKeys(), []string{}
	}

	cached = make([]string, 0, len(selected))
	nonCached = make([]string, 0, len(d.attributes)-len(selected))
	for _, a := range d.attributes {
		if selected[a.Name] {
			cached = append(cached, a.Key)
		} else {
			nonCached = append(nonCached, a.Key)
		}
	}
	return cached, nonCached
}

func (d *Descriptor) clone() *Descriptor {
	c := *d
	c.attributes = make([]*Attribute, len(d.attributes))
	for i, a := range d.attributes {
		attr := *a
		c.attributes[i] = &attr
	}
	c.relationships = make([]*Relationship, len(d.relationships))
	for i, r := range d.relationships {
		rel := *r
		rel.Links = append([]Link(nil), r.Links...)
		c.relationships[i] = &rel
	}
	c.links = append([]Link(nil), d.links...)
	c.cache = d.CachePolicy()
	return &c
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}
