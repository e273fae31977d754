package commands

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/conduit-lang/serializer/internal/cli/ui"
	"github.com/conduit-lang/serializer/pkg/resource"
)

type describeOptions struct {
	schemaPath string
	format     string
}

// descriptorSummary is the json output of describe
type descriptorSummary struct {
	Name          string                `json:"name"`
	Type          string                `json:"type,omitempty"`
	Root          string                `json:"root,omitempty"`
	Digest        string                `json:"digest"`
	Attributes    []attributeSummary    `json:"attributes"`
	Relationships []relationshipSummary `json:"relationships"`
	Links         []string              `json:"links,omitempty"`
	Cache         *cacheSummary         `json:"cache,omitempty"`
}

type attributeSummary struct {
	Name string `json:"name"`
	Key  string `json:"key"`
}

type relationshipSummary struct {
	Name        string `json:"name"`
	Key         string `json:"key"`
	Kind        string `json:"kind"`
	Polymorphic bool   `json:"polymorphic,omitempty"`
	Virtual     bool   `json:"virtual,omitempty"`
}

type cacheSummary struct {
	Key        string   `json:"key,omitempty"`
	Cached     []string `json:"cached"`
	NonCached  []string `json:"non_cached"`
	Expires    string   `json:"expires,omitempty"`
	SkipDigest bool     `json:"skip_digest,omitempty"`
}

func newDescribeCommand(global *globalOptions) *cobra.Command {
	opts := &describeOptions{}

	cmd := &cobra.Command{
		Use:   "describe [resource]",
		Short: "Show the descriptors declared by a schema",
		Long: `Show the descriptors declared by a schema: wire keys, relationships,
fragment cache rules and the rule digest used in cache keys.

With a resource name only that descriptor is shown.`,
		Example: `  # Describe every resource
  conduit-serializer describe --schema schema.yml

  # Describe one resource as JSON
  conduit-serializer describe post --schema schema.yml --format json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDescribe(cmd, global, opts, args)
		},
	}

	cmd.Flags().StringVar(&opts.schemaPath, "schema", "", "Schema file declaring the resources (required)")
	cmd.Flags().StringVar(&opts.format, "format", "table", "Output format: json or table")
	_ = cmd.MarkFlagRequired("schema")

	return cmd
}

func runDescribe(cmd *cobra.Command, global *globalOptions, opts *describeOptions, args []string) error {
	if opts.format != "table" && opts.format != "json" {
		return fmt.Errorf("unknown format %q, expected json or table", opts.format)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := openSession(ctx, global, opts.schemaPath, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer s.Close()

	descriptors := s.registry.Descriptors()
	if len(args) == 1 {
		d, ok := s.registry.Named(args[0])
		if !ok {
			fmt.Fprint(cmd.ErrOrStderr(), ui.UnknownResourceError(args[0], s.resourceNames(), global.noColor))
			return reportedError{fmt.Errorf("unknown resource %q", args[0])}
		}
		descriptors = []*resource.Descriptor{d}
	}

	summaries := make([]descriptorSummary, len(descriptors))
	for i, d := range descriptors {
		summaries[i] = summarize(d)
	}

	out := cmd.OutOrStdout()
	if opts.format == "json" {
		data, err := json.MarshalIndent(summaries, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, string(data))
		return err
	}

	for _, summary := range summaries {
		writeSummary(out, summary, global.noColor)
	}
	return nil
}

func summarize(d *resource.Descriptor) descriptorSummary {
	summary := descriptorSummary{
		Name:          d.Name(),
		Type:          d.TypeName(),
		Root:          d.Root(),
		Digest:        d.Digest(),
		Attributes:    []attributeSummary{},
		Relationships: []relationshipSummary{},
	}
	for _, a := range d.Attributes() {
		summary.Attributes = append(summary.Attributes, attributeSummary{Name: a.Name, Key: a.Key})
	}
	for _, r := range d.Relationships() {
		summary.Relationships = append(summary.Relationships, relationshipSummary{
			Name:        r.Name,
			Key:         r.Key,
			Kind:        r.Kind.String(),
			Polymorphic: r.Polymorphic,
			Virtual:     r.HasVirtualValue,
		})
	}
	for _, l := range d.Links() {
		summary.Links = append(summary.Links, l.Name)
	}

	if policy := d.CachePolicy(); policy != nil {
		cached, nonCached := d.FragmentSplit()
		summary.Cache = &cacheSummary{
			Key:        policy.Key,
			Cached:     nonNil(cached),
			NonCached:  nonNil(nonCached),
			SkipDigest: policy.SkipDigest,
		}
		if policy.Expires > 0 {
			summary.Cache.Expires = policy.Expires.String()
		}
	}
	return summary
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func writeSummary(w io.Writer, s descriptorSummary, noColor bool) {
	ui.Header(w, s.Name, noColor)

	kv := ui.NewKeyValueTable(w, noColor)
	if s.Type != "" {
		kv.AddRow("Type", s.Type)
	}
	if s.Root != "" {
		kv.AddRow("Root", s.Root)
	}
	kv.AddRow("Digest", s.Digest)
	if len(s.Links) > 0 {
		kv.AddRow("Links", strings.Join(s.Links, ", "))
	}
	if c := s.Cache; c != nil {
		key := c.Key
		if key == "" {
			key = "(digest)"
		}
		kv.AddRow("Cache key", key)
		kv.AddRow("Cached", strings.Join(c.Cached, ", "))
		kv.AddRow("Not cached", strings.Join(c.NonCached, ", "))
		if c.Expires != "" {
			kv.AddRow("Expires", c.Expires)
		}
	}
	kv.Render()
	fmt.Fprintln(w)

	if len(s.Attributes) > 0 {
		table := ui.NewTable(w, noColor, "Attribute", "Key")
		for _, a := range s.Attributes {
			table.AddRow(a.Name, a.Key)
		}
		table.Render()
		fmt.Fprintln(w)
	}

	if len(s.Relationships) > 0 {
		table := ui.NewTable(w, noColor, "Relationship", "Key", "Kind", "Flags")
		for _, r := range s.Relationships {
			var flags []string
			if r.Polymorphic {
				flags = append(flags, "polymorphic")
			}
			if r.Virtual {
				flags = append(flags, "virtual")
			}
			table.AddRow(r.Name, r.Key, r.Kind, strings.Join(flags, ","))
		}
		table.Render()
		fmt.Fprintln(w)
	}
}
