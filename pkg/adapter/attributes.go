package adapter

import (
	"context"

	"github.com/conduit-lang/serializer/pkg/document"
	"github.com/conduit-lang/serializer/pkg/include"
	"github.com/conduit-lang/serializer/pkg/resource"
)

// attributesAdapter renders a flat object: id, attributes, then the
// relationships in scope of the include directive
type attributesAdapter struct {
	base
}

func (a *attributesAdapter) Render(ctx context.Context, root *resource.Binding, dir *include.Directive, opts *Options) (any, error) {
	opts = orEmpty(opts)
	out, err := a.render(ctx, root, dir, opts)
	if err != nil {
		return nil, err
	}
	return transformValue(out, a.keyTransform(opts)), nil
}

// render builds the untransformed document; the json adapter wraps it
func (a *attributesAdapter) render(ctx context.Context, root *resource.Binding, dir *include.Directive, opts *Options) (any, error) {
	if dir == nil {
		var err error
		dir, err = include.Parse(a.cfg.DefaultIncludes)
		if err != nil {
			return nil, err
		}
	}
	w := &attributesWalk{
		adapter:   a,
		opts:      opts,
		ancestors: make(map[string]bool),
	}
	return w.value(ctx, root, dir, 0)
}

// attributesWalk is the state of one render. ancestors holds the identities
// on the path from the root to the resource being rendered.
type attributesWalk struct {
	adapter   *attributesAdapter
	opts      *Options
	ancestors map[string]bool
}

func (w *attributesWalk) value(ctx context.Context, b *resource.Binding, dir *include.Directive, depth int) (any, error) {
	if b == nil {
		return nil, nil
	}
	if b.IsCollection() {
		items := make([]any, 0, len(b.Items()))
		for _, item := range b.Items() {
			v, err := w.value(ctx, item, dir, depth)
			if err != nil {
				return nil, err
			}
			items = append(items, v)
		}
		return items, nil
	}
	if b.IsNative() {
		return b.Object(), nil
	}
	return w.resource(ctx, b, dir, depth)
}

func (w *attributesWalk) resource(ctx context.Context, b *resource.Binding, dir *include.Directive, depth int) (*document.Object, error) {
	fields := fieldsetFor(w.opts, b, "", w.adapter.keyTransform(w.opts))

	attrs, err := w.adapter.attributes(ctx, b, fields.attributeFields(b))
	if err != nil {
		return nil, err
	}

	out := document.New(attrs.Len() + 1)
	rawID, err := b.RawID()
	if err != nil {
		return nil, err
	}
	if rawID != nil && fields.allows("id", "id") {
		out.Set("id", rawID)
	}
	attrs.Range(func(key string, value any) bool {
		out.Set(key, value)
		return true
	})

	identity, err := b.Identity()
	if err != nil {
		return nil, err
	}
	// resources without an id cannot be told apart; depth bounds them
	tracked := rawID != nil
	if (tracked && w.ancestors[identity]) || depth >= w.adapter.maxDepth() {
		return out, nil
	}
	if tracked {
		w.ancestors[identity] = true
		defer delete(w.ancestors, identity)
	}

	assocs, err := b.Associations(dir)
	if err != nil {
		return nil, err
	}
	for _, assoc := range assocs {
		if !fields.allows(assoc.Key, assoc.Name) {
			continue
		}
		v, err := w.association(ctx, assoc, depth)
		if err != nil {
			return nil, err
		}
		out.Set(assoc.Key, v)
	}
	return out, nil
}

func (w *attributesWalk) association(ctx context.Context, assoc *resource.Association, depth int) (any, error) {
	if assoc.Virtual {
		return assoc.VirtualValue, nil
	}

	render := func(target *resource.Binding) (any, error) {
		v, err := w.value(ctx, target, assoc.Directive, depth+1)
		if err != nil || !assoc.Polymorphic || target == nil {
			return v, err
		}
		typ := target.Name()
		wrapped := document.New(2)
		wrapped.Set("type", typ)
		wrapped.Set(typ, v)
		return wrapped, nil
	}

	if !assoc.Many() {
		return render(assoc.Target)
	}
	items := make([]any, 0, len(assoc.Targets))
	for _, target := range assoc.Targets {
		v, err := render(target)
		if err != nil {
			return nil, err
		}
		items = append(items, v)
	}
	return items, nil
}
