package adapter

import (
	"context"
	"fmt"

	casing "github.com/conduit-lang/serializer/internal/util/strings"
	"github.com/conduit-lang/serializer/pkg/document"
	"github.com/conduit-lang/serializer/pkg/include"
	"github.com/conduit-lang/serializer/pkg/resource"
)

// jsonAPIAdapter renders JSON:API documents: data, included, links, meta and
// the jsonapi object
type jsonAPIAdapter struct {
	base
}

// jsonAPIRender is the state of one render. seen holds the (type, id) pairs
// already in data or included; traversed holds the (resource, directive)
// pairs whose relationships were already walked.
type jsonAPIRender struct {
	adapter   *jsonAPIAdapter
	opts      *Options
	transform KeyTransform

	seen      map[string]bool
	traversed map[string]bool
	included  []any
}

type pending struct {
	b   *resource.Binding
	dir *include.Directive
}

func (a *jsonAPIAdapter) Render(ctx context.Context, root *resource.Binding, dir *include.Directive, opts *Options) (any, error) {
	opts = orEmpty(opts)
	if dir == nil {
		dir = include.Empty()
	}

	r := &jsonAPIRender{
		adapter:   a,
		opts:      opts,
		transform: a.keyTransform(opts),
		seen:      make(map[string]bool),
		traversed: make(map[string]bool),
	}

	doc := document.New(5)

	primary, err := r.primary(root)
	if err != nil {
		return nil, err
	}

	var queue []pending
	for _, b := range primary {
		identity, err := r.identity(b)
		if err != nil {
			return nil, err
		}
		r.seen[identity] = true
		queue = append(queue, pending{b: b, dir: dir})
	}

	if root.IsCollection() {
		data := make([]any, 0, len(primary))
		for _, b := range primary {
			obj, err := r.resourceObject(ctx, b)
			if err != nil {
				return nil, err
			}
			data = append(data, obj)
		}
		doc.Set("data", data)
	} else if len(primary) == 0 {
		doc.Set("data", nil)
	} else {
		obj, err := r.resourceObject(ctx, primary[0])
		if err != nil {
			return nil, err
		}
		doc.Set("data", obj)
	}

	if err := r.walk(ctx, queue); err != nil {
		return nil, err
	}
	if len(r.included) > 0 {
		doc.Set("included", r.included)
	}

	links, err := r.toplevelLinks(root)
	if err != nil {
		return nil, err
	}
	if links.Len() > 0 {
		doc.Set("links", links)
	}

	if opts.Meta != nil {
		doc.Set("meta", opts.Meta)
	}

	if cfg := a.cfg.JSONAPI; cfg.IncludeToplevelObject {
		jsonapiObject := document.New(2)
		jsonapiObject.Set("version", cfg.Version)
		if len(cfg.ToplevelMeta) > 0 {
			jsonapiObject.Set("meta", cfg.ToplevelMeta)
		}
		doc.Set("jsonapi", jsonapiObject)
	}

	return transformValue(doc, r.transform), nil
}

// primary returns the resources rendered under data. A nil root renders as
// null data; other roots without a descriptor cannot be typed.
func (r *jsonAPIRender) primary(root *resource.Binding) ([]*resource.Binding, error) {
	if root.IsCollection() {
		for _, item := range root.Items() {
			if item.IsNative() {
				return nil, fmt.Errorf("%w: %T in collection", resource.ErrNoDescriptor, item.Object())
			}
		}
		return root.Items(), nil
	}
	if root.IsNative() {
		if root.Object() == nil {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %T", resource.ErrNoDescriptor, root.Object())
	}
	return []*resource.Binding{root}, nil
}

// walk builds included breadth-first. Every resource enters included once,
// and every (resource, directive) pair is expanded once, so cyclic graphs
// terminate even under "**".
func (r *jsonAPIRender) walk(ctx context.Context, queue []pending) error {
	for _, p := range queue {
		key, err := r.traversalKey(p.b, p.dir)
		if err != nil {
			return err
		}
		r.traversed[key] = true
	}

	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]

		assocs, err := next.b.Associations(next.dir)
		if err != nil {
			return err
		}
		for _, assoc := range assocs {
			if assoc.Virtual {
				continue
			}
			for _, target := range assoc.Bindings() {
				if target.IsNative() {
					continue
				}

				identity, err := r.includedIdentity(target, assoc.Name)
				if err != nil {
					return err
				}
				if !r.seen[identity] {
					r.seen[identity] = true
					obj, err := r.resourceObject(ctx, target)
					if err != nil {
						return err
					}
					r.included = append(r.included, obj)
				}

				if assoc.Directive.IsEmpty() {
					continue
				}
				key, err := r.traversalKey(target, assoc.Directive)
				if err != nil {
					return err
				}
				if !r.traversed[key] {
					r.traversed[key] = true
					queue = append(queue, pending{b: target, dir: assoc.Directive})
				}
			}
		}
	}
	return nil
}

func (r *jsonAPIRender) traversalKey(b *resource.Binding, dir *include.Directive) (string, error) {
	identity, err := r.identity(b)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s|%p", identity, dir), nil
}

// identity is the (type, id) pair of a resource
func (r *jsonAPIRender) identity(b *resource.Binding) (string, error) {
	id, err := b.ID()
	if err != nil {
		return "", err
	}
	return r.typeOf(b) + ":" + id, nil
}

// includedIdentity is the identity of a relationship target. Targets
// without an id would all share "type:" and collapse into one entry.
func (r *jsonAPIRender) includedIdentity(b *resource.Binding, relationship string) (string, error) {
	id, err := b.ID()
	if err != nil {
		return "", err
	}
	if id == "" {
		return "", fmt.Errorf("%w: %s in relationship %q", ErrMissingID, r.typeOf(b), relationship)
	}
	return r.typeOf(b) + ":" + id, nil
}

// typeOf returns the JSON:API type: the explicit type name, or the inflected
// descriptor name, key-transformed
func (r *jsonAPIRender) typeOf(b *resource.Binding) string {
	if d := b.Descriptor(); d != nil && d.TypeName() != "" {
		return r.transform.Apply(d.TypeName())
	}
	name := b.Name()
	if r.adapter.cfg.JSONAPI.ResourceType == SingularTypes {
		name = casing.Singularize(name)
	} else {
		name = casing.Pluralize(name)
	}
	return r.transform.Apply(name)
}

func (r *jsonAPIRender) identifier(b *resource.Binding) (*document.Object, error) {
	id, err := b.ID()
	if err != nil {
		return nil, err
	}
	out := document.New(2)
	out.Set("id", id)
	out.Set("type", r.typeOf(b))
	return out, nil
}

func (r *jsonAPIRender) resourceObject(ctx context.Context, b *resource.Binding) (*document.Object, error) {
	out, err := r.identifier(b)
	if err != nil {
		return nil, err
	}
	typ, _ := out.Get("type")
	fields := fieldsetFor(r.opts, b, typ.(string), r.transform)

	attrs, err := r.adapter.attributes(ctx, b, fields.attributeFields(b))
	if err != nil {
		return nil, err
	}
	if attrs.Len() > 0 {
		out.Set("attributes", attrs)
	}

	relationships, err := r.relationships(b, fields)
	if err != nil {
		return nil, err
	}
	if relationships.Len() > 0 {
		out.Set("relationships", relationships)
	}

	links, err := b.Links()
	if err != nil {
		return nil, err
	}
	if links.Len() > 0 {
		out.Set("links", links)
	}

	meta, err := b.Meta()
	if err != nil {
		return nil, err
	}
	if meta != nil {
		out.Set("meta", meta)
	}
	return out, nil
}

// relationships renders every declared relationship allowed by the fieldset,
// whether or not it is included
func (r *jsonAPIRender) relationships(b *resource.Binding, fields *fieldset) (*document.Object, error) {
	assocs, err := b.Associations(include.All())
	if err != nil {
		return nil, err
	}

	out := document.New(len(assocs))
	for _, assoc := range assocs {
		if !fields.allows(assoc.Key, assoc.Name) {
			continue
		}

		rel := document.New(3)
		if assoc.IncludeData(r.adapter.cfg.JSONAPI.IncludeDataDefault) {
			data, err := r.relationshipData(assoc)
			if err != nil {
				return nil, err
			}
			rel.Set("data", data)
		}

		links, err := assoc.Links()
		if err != nil {
			return nil, fmt.Errorf("relationship %s: %w", assoc.Name, err)
		}
		if links.Len() > 0 {
			rel.Set("links", links)
		}

		meta, err := assoc.Meta()
		if err != nil {
			return nil, fmt.Errorf("relationship %s: %w", assoc.Name, err)
		}
		if meta != nil {
			rel.Set("meta", meta)
		}

		out.Set(assoc.Key, rel)
	}
	return out, nil
}

func (r *jsonAPIRender) relationshipData(assoc *resource.Association) (any, error) {
	if assoc.Virtual {
		return assoc.VirtualValue, nil
	}
	if !assoc.Many() {
		if assoc.Target == nil {
			return nil, nil
		}
		return r.identifier(assoc.Target)
	}
	data := make([]any, 0, len(assoc.Targets))
	for _, target := range assoc.Targets {
		id, err := r.identifier(target)
		if err != nil {
			return nil, err
		}
		data = append(data, id)
	}
	return data, nil
}

// toplevelLinks merges the links option with pagination links
func (r *jsonAPIRender) toplevelLinks(root *resource.Binding) (*document.Object, error) {
	links := document.New(len(r.opts.Links) + 5)
	for _, name := range sortedKeys(r.opts.Links) {
		links.Set(name, r.opts.Links[name])
	}

	if !r.adapter.cfg.JSONAPI.PaginationLinks {
		return links, nil
	}
	p, ok := root.Pagination()
	if !ok {
		return links, nil
	}
	pages, err := paginationLinks(r.opts.Context, p)
	if err != nil {
		return nil, err
	}
	return links.Merge(pages), nil
}
