// Package schema loads resource descriptors from YAML so that free-form
// records decoded from JSON can be rendered without Go type definitions.
package schema

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/conduit-lang/serializer/pkg/resource"
)

// ErrUnknownResource is returned when a schema refers to a resource it does
// not define
var ErrUnknownResource = errors.New("unknown resource")

// Schema is a set of resource definitions
type Schema struct {
	Resources []ResourceSpec `yaml:"resources"`
}

// ResourceSpec defines one descriptor
type ResourceSpec struct {
	Name          string             `yaml:"name"`
	Type          string             `yaml:"type"`
	Root          string             `yaml:"root"`
	Extends       string             `yaml:"extends"`
	Attributes    []AttributeSpec    `yaml:"attributes"`
	Relationships []RelationshipSpec `yaml:"relationships"`
	Links         Links              `yaml:"links"`
	Meta          map[string]any     `yaml:"meta"`
	Cache         *CacheSpec         `yaml:"cache"`
}

// AttributeSpec is an attribute given either as a bare name or as a mapping
// with a name and a wire key
type AttributeSpec struct {
	Name string `yaml:"name"`
	Key  string `yaml:"key"`
}

// UnmarshalYAML accepts "title" as well as {name: title, key: headline}
func (a *AttributeSpec) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		a.Name = node.Value
		return nil
	}

	var tmp struct {
		Name string `yaml:"name"`
		Key  string `yaml:"key"`
	}
	if err := node.Decode(&tmp); err != nil {
		return err
	}
	a.Name = tmp.Name
	a.Key = tmp.Key
	return nil
}

// RelationshipSpec defines a relationship. Resource names the descriptor of
// related records that carry no "type" member of their own.
type RelationshipSpec struct {
	Name         string         `yaml:"name"`
	Key          string         `yaml:"key"`
	Kind         string         `yaml:"kind"`
	Resource     string         `yaml:"resource"`
	Polymorphic  bool           `yaml:"polymorphic"`
	IncludeData  *bool          `yaml:"include_data"`
	VirtualValue yaml.Node      `yaml:"virtual_value"`
	Links        Links          `yaml:"links"`
	Meta         map[string]any `yaml:"meta"`
}

// CacheSpec is a fragment cache policy
type CacheSpec struct {
	Key        string        `yaml:"key"`
	Only       []string      `yaml:"only"`
	Except     []string      `yaml:"except"`
	Expires    time.Duration `yaml:"expires"`
	SkipDigest bool          `yaml:"skip_digest"`
}

// Link is a named link template. "{id}" and "{type}" are replaced with the
// resource id and name.
type Link struct {
	Name     string
	Template string
}

// Links keeps link templates in file order
type Links []Link

// UnmarshalYAML reads a mapping of link name to template
func (l *Links) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: links must be a mapping", node.Line)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		name, value := node.Content[i], node.Content[i+1]
		if value.Kind != yaml.ScalarNode {
			return fmt.Errorf("line %d: link %q must be a string", value.Line, name.Value)
		}
		*l = append(*l, Link{Name: name.Value, Template: value.Value})
	}
	return nil
}

// Load parses a schema, rejecting unknown fields
func Load(r io.Reader) (*Schema, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var s Schema
	decoder := yaml.NewDecoder(bytes.NewReader(raw))
	decoder.KnownFields(true)
	if err := decoder.Decode(&s); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse schema: %w", err)
	}
	return &s, nil
}

// LoadFile parses the schema at path
func LoadFile(path string) (*Schema, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	s, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Registry defines every resource and registers it by name. Records resolve
// through their "type" member.
func (s *Schema) Registry() (*resource.Registry, error) {
	specs := make(map[string]*ResourceSpec, len(s.Resources))
	for i := range s.Resources {
		spec := &s.Resources[i]
		if strings.TrimSpace(spec.Name) == "" {
			return nil, fmt.Errorf("%w: resource %d has no name", resource.ErrInvalidDefinition, i+1)
		}
		if _, dup := specs[spec.Name]; dup {
			return nil, fmt.Errorf("%w: resource %q is defined twice", resource.ErrInvalidDefinition, spec.Name)
		}
		specs[spec.Name] = spec
	}

	b := &registryBuilder{
		specs:    specs,
		built:    make(map[string]*resource.Descriptor, len(specs)),
		building: make(map[string]bool),
	}
	registry := resource.NewRegistry()
	for _, spec := range s.Resources {
		d, err := b.define(spec.Name)
		if err != nil {
			return nil, err
		}
		registry.RegisterName(spec.Name, d)
	}
	return registry, nil
}

// registryBuilder defines parents before the resources extending them
type registryBuilder struct {
	specs    map[string]*ResourceSpec
	built    map[string]*resource.Descriptor
	building map[string]bool
}

func (b *registryBuilder) define(name string) (*resource.Descriptor, error) {
	if d, ok := b.built[name]; ok {
		return d, nil
	}
	spec, ok := b.specs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownResource, name)
	}
	if b.building[name] {
		return nil, fmt.Errorf("%w: %q extends itself", resource.ErrInvalidDefinition, name)
	}
	b.building[name] = true
	defer delete(b.building, name)

	var parent *resource.Descriptor
	if spec.Extends != "" {
		var err error
		if parent, err = b.define(spec.Extends); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
	}

	relOpts := make([][]resource.RelationshipOption, len(spec.Relationships))
	for i, rel := range spec.Relationships {
		if _, err := resource.ParseKind(rel.Kind); err != nil {
			return nil, fmt.Errorf("%s.%s: %w", name, rel.Name, err)
		}
		if rel.Resource != "" {
			if _, ok := b.specs[rel.Resource]; !ok {
				return nil, fmt.Errorf("%s.%s: %w: %q", name, rel.Name, ErrUnknownResource, rel.Resource)
			}
		}
		opts, err := relationshipOptions(rel)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", name, rel.Name, err)
		}
		relOpts[i] = opts
	}

	d, err := resource.Define(name, func(db *resource.Builder) {
		if parent != nil {
			db.Extend(parent)
		}
		b.apply(db, spec, relOpts)
	})
	if err != nil {
		return nil, err
	}
	b.built[name] = d
	return d, nil
}

func (b *registryBuilder) apply(db *resource.Builder, spec *ResourceSpec, relOpts [][]resource.RelationshipOption) {
	if spec.Type != "" {
		db.Type(spec.Type)
	}
	if spec.Root != "" {
		db.Root(spec.Root)
	}

	for _, attr := range spec.Attributes {
		if attr.Key != "" && attr.Key != attr.Name {
			db.Attribute(attr.Name, resource.WithKey(attr.Key))
		} else {
			db.Attribute(attr.Name)
		}
	}

	for i, rel := range spec.Relationships {
		// kinds and options were checked by define
		kind, _ := resource.ParseKind(rel.Kind)
		db.Relationship(rel.Name, kind, relOpts[i]...)
	}

	for _, l := range spec.Links {
		db.LinkFunc(l.Name, expand(l.Template))
	}
	if spec.Meta != nil {
		db.Meta(spec.Meta)
	}

	if c := spec.Cache; c != nil {
		db.Cache(resource.CachePolicy{
			Key:        c.Key,
			Only:       c.Only,
			Except:     c.Except,
			Expires:    c.Expires,
			SkipDigest: c.SkipDigest,
		})
	}
}

func relationshipOptions(rel RelationshipSpec) ([]resource.RelationshipOption, error) {
	var opts []resource.RelationshipOption
	if rel.Key != "" {
		opts = append(opts, resource.WithRelationshipKey(rel.Key))
	}
	if rel.Polymorphic {
		opts = append(opts, resource.Polymorphic())
	}
	if rel.IncludeData != nil {
		if *rel.IncludeData {
			opts = append(opts, resource.WithData())
		} else {
			opts = append(opts, resource.WithoutData())
		}
	}
	if !rel.VirtualValue.IsZero() {
		var v any
		if err := rel.VirtualValue.Decode(&v); err != nil {
			return nil, fmt.Errorf("%w: virtual_value: %v", resource.ErrInvalidDefinition, err)
		}
		opts = append(opts, resource.WithVirtualValue(v))
	}
	if rel.Resource != "" {
		opts = append(opts, resource.WithRelationshipValue(related(rel.Name, rel.Resource)))
	}
	for _, l := range rel.Links {
		opts = append(opts, resource.WithRelationshipLink(l.Name, expand(l.Template)))
	}
	if rel.Meta != nil {
		opts = append(opts, resource.WithRelationshipMeta(resource.Static(rel.Meta)))
	}
	return opts, nil
}

// expand returns a value func filling a link template from the binding
func expand(template string) resource.ValueFunc {
	return func(b *resource.Binding) (any, error) {
		id, err := b.ID()
		if err != nil {
			return nil, err
		}
		return strings.NewReplacer("{id}", id, "{type}", b.Name()).Replace(template), nil
	}
}
