package adapter

import (
	casing "github.com/conduit-lang/serializer/internal/util/strings"
	"github.com/conduit-lang/serializer/pkg/resource"
)

// fieldset is the sparse fieldset of one resource. A nil fieldset allows
// everything.
type fieldset struct {
	allowed   map[string]bool
	transform KeyTransform
}

// fieldsetFor looks the fieldset up by type, then by descriptor name and its
// plural. Requesting fields that do not exist is not an error.
func fieldsetFor(opts *Options, b *resource.Binding, typ string, t KeyTransform) *fieldset {
	if len(opts.Fields) == 0 {
		return nil
	}
	candidates := []string{typ, b.Name(), casing.Pluralize(b.Name())}
	for _, c := range candidates {
		if c == "" {
			continue
		}
		if fields, ok := opts.Fields[c]; ok {
			allowed := make(map[string]bool, len(fields))
			for _, f := range fields {
				allowed[f] = true
			}
			return &fieldset{allowed: allowed, transform: t}
		}
	}
	return nil
}

// allows reports whether a member is in the fieldset under its key, its name
// or its transformed key
func (f *fieldset) allows(key, name string) bool {
	if f == nil {
		return true
	}
	return f.allowed[key] || f.allowed[name] || f.allowed[f.transform.Apply(key)]
}

// attributeFields returns the attribute wire keys of b allowed by the
// fieldset; nil when unrestricted
func (f *fieldset) attributeFields(b *resource.Binding) []string {
	if f == nil {
		return nil
	}
	d := b.Descriptor()
	if d == nil {
		return []string{}
	}
	out := make([]string, 0, len(f.allowed))
	for _, a := range d.Attributes() {
		if f.allows(a.Key, a.Name) {
			out = append(out, a.Key)
		}
	}
	return out
}
