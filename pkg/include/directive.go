// Package include parses include specifications ("posts.author,comments", nested
// maps, "*" and "**") into an immutable tree that decides which relationship paths a
// render traverses.
package include

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

const (
	// Wildcard matches any key at one level
	Wildcard = "*"
	// DeepWildcard matches any key at every level below
	DeepWildcard = "**"
)

// ErrInvalidSpec is returned for include specifications of an unsupported shape
var ErrInvalidSpec = errors.New("invalid include specification")

// Directive is one node of an include tree. A nil *Directive matches nothing.
type Directive struct {
	keys         []string
	children     map[string]*Directive
	wildcard     bool
	wildcardDeep bool
}

// Option configures parsing
type Option func(*parser)

type parser struct {
	allowWildcard bool
}

// WithoutWildcards treats "*" and "**" as literal keys
func WithoutWildcards() Option {
	return func(p *parser) { p.allowWildcard = false }
}

// Empty returns a directive that matches nothing
func Empty() *Directive {
	return &Directive{children: map[string]*Directive{}}
}

// All returns a directive matching every relationship one level deep
func All() *Directive {
	return &Directive{children: map[string]*Directive{}, wildcard: true}
}

// Deep returns a directive matching every relationship at every depth
func Deep() *Directive {
	return &Directive{children: map[string]*Directive{}, wildcard: true, wildcardDeep: true}
}

// MustParse is like Parse but panics on error
func MustParse(spec any, opts ...Option) *Directive {
	d, err := Parse(spec, opts...)
	if err != nil {
		panic(err)
	}
	return d
}

// Parse builds a directive from a string ("a.b,c"), a slice of strings or nested
// values, or a map of key to nested specification. Strings never fail to parse:
// empty segments and surrounding whitespace are ignored.
func Parse(spec any, opts ...Option) (*Directive, error) {
	p := &parser{allowWildcard: true}
	for _, opt := range opts {
		opt(p)
	}

	root := Empty()
	if err := p.add(root, spec); err != nil {
		return nil, err
	}
	return root, nil
}

func (p *parser) add(node *Directive, spec any) error {
	switch v := spec.(type) {
	case nil:
		return nil
	case *Directive:
		if v != nil {
			node.mergeFrom(v)
		}
		return nil
	case string:
		for _, path := range strings.Split(v, ",") {
			p.addPath(node, strings.Split(path, "."))
		}
		return nil
	case []string:
		for _, s := range v {
			if err := p.add(node, s); err != nil {
				return err
			}
		}
		return nil
	case []any:
		for _, item := range v {
			if err := p.add(node, item); err != nil {
				return err
			}
		}
		return nil
	case map[string]any:
		for _, key := range sortedKeys(v) {
			child := p.addKey(node, key)
			if child == nil {
				continue
			}
			if err := p.add(child, v[key]); err != nil {
				return err
			}
		}
		return nil
	case map[string][]string:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, key := range keys {
			child := p.addKey(node, key)
			if child == nil {
				continue
			}
			if err := p.add(child, v[key]); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("%w: unsupported type %T", ErrInvalidSpec, spec)
	}
}

func (p *parser) addPath(node *Directive, segments []string) {
	current := node
	for _, segment := range segments {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			// "a..b" or a trailing dot: keep what was parsed so far
			return
		}
		next := p.addKey(current, segment)
		if next == nil {
			return
		}
		current = next
	}
}

// addKey registers key on node and returns the child to descend into.
// Wildcards mark the node itself and return nil, so nothing nests below them.
func (p *parser) addKey(node *Directive, key string) *Directive {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil
	}
	if p.allowWildcard {
		switch key {
		case Wildcard:
			node.wildcard = true
			return nil
		case DeepWildcard:
			node.wildcard = true
			node.wildcardDeep = true
			return nil
		}
	}
	child, ok := node.children[key]
	if !ok {
		child = Empty()
		node.children[key] = child
		node.keys = append(node.keys, key)
	}
	return child
}

func (d *Directive) mergeFrom(other *Directive) {
	d.wildcard = d.wildcard || other.wildcard
	d.wildcardDeep = d.wildcardDeep || other.wildcardDeep
	for _, key := range other.keys {
		child, ok := d.children[key]
		if !ok {
			child = Empty()
			d.children[key] = child
			d.keys = append(d.keys, key)
		}
		child.mergeFrom(other.children[key])
	}
}

// Child returns the directive for the relationship key: the literal child if
// present, the receiver itself under a deep wildcard, an empty directive under a
// plain wildcard, and nil when the key is not matched.
func (d *Directive) Child(key string) *Directive {
	if d == nil {
		return nil
	}
	if child, ok := d.children[key]; ok {
		return child
	}
	if d.wildcardDeep {
		return d
	}
	if d.wildcard {
		return Empty()
	}
	return nil
}

// Has reports whether the relationship key is matched at this level
func (d *Directive) Has(key string) bool {
	if d == nil {
		return false
	}
	if _, ok := d.children[key]; ok {
		return true
	}
	return d.wildcard || d.wildcardDeep
}

// Keys returns the literal keys at this level in the order they were added
func (d *Directive) Keys() []string {
	if d == nil {
		return nil
	}
	keys := make([]string, len(d.keys))
	copy(keys, d.keys)
	return keys
}

// IsWildcard reports whether any key matches at this level
func (d *Directive) IsWildcard() bool {
	return d != nil && d.wildcard
}

// IsDeep reports whether any key matches at every level below
func (d *Directive) IsDeep() bool {
	return d != nil && d.wildcardDeep
}

// IsEmpty reports whether the directive matches nothing
func (d *Directive) IsEmpty() bool {
	return d == nil || (len(d.keys) == 0 && !d.wildcard && !d.wildcardDeep)
}

// Merge returns a new directive matching everything either directive matches
func (d *Directive) Merge(other *Directive) *Directive {
	result := Empty()
	if d != nil {
		result.mergeFrom(d)
	}
	if other != nil {
		result.mergeFrom(other)
	}
	return result
}

// Equal reports whether two directives are structurally equal. Key order is ignored.
func (d *Directive) Equal(other *Directive) bool {
	if d.IsEmpty() && other.IsEmpty() {
		return true
	}
	if d == nil || other == nil {
		return false
	}
	if d.wildcard != other.wildcard || d.wildcardDeep != other.wildcardDeep {
		return false
	}
	if len(d.children) != len(other.children) {
		return false
	}
	for key, child := range d.children {
		otherChild, ok := other.children[key]
		if !ok || !child.Equal(otherChild) {
			return false
		}
	}
	return true
}

// String renders the directive in the comma/dot form accepted by Parse.
// Literal keys come first in insertion order, wildcards last.
func (d *Directive) String() string {
	if d == nil {
		return ""
	}
	return strings.Join(d.paths(""), ",")
}

func (d *Directive) paths(prefix string) []string {
	var out []string
	for _, key := range d.keys {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		child := d.children[key]
		nested := child.paths(path)
		if len(nested) == 0 {
			out = append(out, path)
		} else {
			out = append(out, nested...)
		}
	}
	switch {
	case d.wildcardDeep:
		out = append(out, join(prefix, DeepWildcard))
	case d.wildcard:
		out = append(out, join(prefix, Wildcard))
	}
	return out
}

func join(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
