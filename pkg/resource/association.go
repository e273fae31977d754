package resource

import (
	"fmt"

	"github.com/conduit-lang/serializer/pkg/document"
	"github.com/conduit-lang/serializer/pkg/include"
)

// Association is a resolved relationship edge from one binding
type Association struct {
	Relationship *Relationship
	Name         string
	Key          string
	Kind         Kind
	Polymorphic  bool

	// Virtual is set when the relationship reported VirtualValue instead of
	// resolving related objects
	Virtual      bool
	VirtualValue any

	// Target is the related binding of a to-one relationship; nil means null
	Target *Binding
	// Targets are the related bindings of a to-many relationship
	Targets []*Binding

	// Directive is the include directive below this relationship
	Directive *include.Directive

	owner *Binding
}

// Many reports whether the association is to-many
func (a *Association) Many() bool {
	return a.Kind.Many()
}

// Bindings returns the related bindings regardless of cardinality
func (a *Association) Bindings() []*Binding {
	if a.Many() {
		return a.Targets
	}
	if a.Target != nil {
		return []*Binding{a.Target}
	}
	return nil
}

// Links evaluates the relationship links against the owning binding
func (a *Association) Links() (*document.Object, error) {
	if a.Relationship == nil || len(a.Relationship.Links) == 0 {
		return nil, nil
	}
	return evalLinks(a.owner, a.Relationship.Links)
}

// Meta evaluates the relationship meta against the owning binding
func (a *Association) Meta() (any, error) {
	if a.Relationship == nil || a.Relationship.Meta == nil {
		return nil, nil
	}
	return a.Relationship.Meta(a.owner)
}

// IncludeData reports whether JSON:API relationship objects carry data,
// falling back to def when the relationship does not say
func (a *Association) IncludeData(def bool) bool {
	if a.Relationship == nil || a.Relationship.IncludeData == nil {
		return def
	}
	return *a.Relationship.IncludeData
}

// resolve reads the related object(s) of rel. The virtual value is checked
// first and short-circuits the accessor. Related bindings are memoized per
// relationship so repeated traversals see the same bindings.
func (b *Binding) resolve(rel *Relationship) (*Association, error) {
	a := &Association{
		Relationship: rel,
		Name:         rel.Name,
		Key:          rel.Key,
		Kind:         rel.Kind,
		Polymorphic:  rel.Polymorphic,
		owner:        b,
	}

	if rel.HasVirtualValue {
		a.Virtual = true
		a.VirtualValue = rel.VirtualValue
		return a, nil
	}

	if cached, ok := b.resolved[rel.Name]; ok {
		a.Target = cached.target
		a.Targets = cached.targets
		return a, nil
	}

	var (
		value any
		err   error
	)
	if rel.Value != nil {
		value, err = rel.Value(b)
	} else {
		value, err = ReadValue(b.object, rel.Name)
	}
	if err != nil {
		return nil, fmt.Errorf("relationship %s: %w", rel.Name, err)
	}

	if rel.Kind.Many() {
		a.Targets = []*Binding{}
		if !isNil(value) {
			items, ok := Enumerate(value)
			if !ok {
				return nil, fmt.Errorf("relationship %s: %w (got %T)", rel.Name, ErrNotCollection, value)
			}
			for _, item := range items {
				a.Targets = append(a.Targets, b.ctx.bindRelated(item, rel))
			}
		}
	} else if !isNil(value) {
		a.Target = b.ctx.bindRelated(value, rel)
	}

	if b.resolved == nil {
		b.resolved = make(map[string]*resolvedRelationship)
	}
	b.resolved[rel.Name] = &resolvedRelationship{target: a.Target, targets: a.Targets}
	return a, nil
}

// bindRelated binds a related object. Polymorphic targets use their own
// descriptor and degrade to a minimal one; other targets use the explicit
// descriptor or a lookup and degrade to a native binding.
func (c *renderContext) bindRelated(obj any, rel *Relationship) *Binding {
	var (
		d  *Descriptor
		ok bool
	)
	if rel.Polymorphic {
		d, ok = c.registry.LookupFor(obj, nil)
		if !ok || d.collection {
			d = c.registry.Minimal(obj)
		}
	} else {
		d, ok = c.registry.LookupFor(obj, rel.Descriptor)
		if !ok || d.collection {
			d = nil
		}
	}
	return &Binding{ctx: c, descriptor: d, object: obj}
}
