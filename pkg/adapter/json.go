package adapter

import (
	"context"
	"fmt"

	"github.com/conduit-lang/serializer/pkg/document"
	"github.com/conduit-lang/serializer/pkg/include"
	"github.com/conduit-lang/serializer/pkg/resource"
)

// jsonAdapter wraps the attributes output under a root key
type jsonAdapter struct {
	attributesAdapter
}

func (a *jsonAdapter) Render(ctx context.Context, root *resource.Binding, dir *include.Directive, opts *Options) (any, error) {
	opts = orEmpty(opts)

	key := opts.Root
	if key == "" {
		key = root.JSONKey()
	}
	if key == "" {
		return nil, fmt.Errorf("%w: pass a root for %s", ErrNoRootKey, describe(root))
	}

	inner, err := a.render(ctx, root, dir, opts)
	if err != nil {
		return nil, err
	}

	doc := document.New(2)
	doc.Set(key, inner)
	if opts.Meta != nil {
		doc.Set(opts.metaKey(), opts.Meta)
	}
	return transformValue(doc, a.keyTransform(opts)), nil
}

func describe(b *resource.Binding) string {
	if b.IsCollection() {
		return fmt.Sprintf("collection %T", b.Object())
	}
	return fmt.Sprintf("%T", b.Object())
}
