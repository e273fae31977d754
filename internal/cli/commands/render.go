package commands

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/conduit-lang/serializer/internal/cli/ui"
	"github.com/conduit-lang/serializer/internal/schema"
	"github.com/conduit-lang/serializer/pkg/adapter"
	"github.com/conduit-lang/serializer/pkg/serializer"
)

type renderOptions struct {
	schemaPath   string
	input        string
	resourceType string
	adapter      string
	include      string
	includeSet   bool
	fields       []string
	root         string
	meta         map[string]string
	metaKey      string
	links        map[string]string
	scope        string
	keyTransform string
	requestURL   string
	pretty       bool
	metrics      bool
}

func newRenderCommand(global *globalOptions) *cobra.Command {
	opts := &renderOptions{}

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render JSON records through the schema",
		Long: `Render JSON records through the resource descriptors of a schema.

The input is a JSON object, an array of objects, or a page of the form
{"data": [...], "page": {"number": 1, "size": 10, "total_pages": 3}}.
Each record is rendered with the descriptor named by its "type" member,
falling back to --type.

The adapter, key transform and JSON:API settings default to the
configuration file; flags override them for one render.`,
		Example: `  # Render a post with its author
  conduit-serializer render --schema schema.yml --type post --include author < post.json

  # JSON:API with sparse fieldsets and pagination links
  conduit-serializer render --schema schema.yml --type post --adapter json_api \
    --fields posts=title,author --request-url 'https://api.example.com/posts' \
    --input page.json --pretty`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// an explicit empty --include renders no relationships
			opts.includeSet = cmd.Flags().Changed("include")
			return runRender(cmd, global, opts)
		},
	}

	cmd.Flags().StringVar(&opts.schemaPath, "schema", "", "Schema file declaring the resources (required)")
	cmd.Flags().StringVarP(&opts.input, "input", "i", "-", "JSON input file, - for stdin")
	cmd.Flags().StringVarP(&opts.resourceType, "type", "t", "", "Resource for records without a \"type\" member")
	cmd.Flags().StringVarP(&opts.adapter, "adapter", "a", "", "Adapter: attributes, json or json_api")
	cmd.Flags().StringVar(&opts.include, "include", "", "Relationships to include, e.g. author,comments.author or **")
	cmd.Flags().StringArrayVar(&opts.fields, "fields", nil, "Sparse fieldset as type=field,field (repeatable)")
	cmd.Flags().StringVar(&opts.root, "root", "", "Root key for the json adapter")
	cmd.Flags().StringToStringVar(&opts.meta, "meta", nil, "Top-level meta as key=value")
	cmd.Flags().StringVar(&opts.metaKey, "meta-key", "", "Meta member name for the json adapter")
	cmd.Flags().StringToStringVar(&opts.links, "link", nil, "Top-level JSON:API link as name=url")
	cmd.Flags().StringVar(&opts.scope, "scope", "", "Scope passed to conditions")
	cmd.Flags().StringVar(&opts.keyTransform, "key-transform", "", "Key transform: camel, camel_lower, dash, underscore or unaltered")
	cmd.Flags().StringVar(&opts.requestURL, "request-url", "", "Request URL used for JSON:API pagination links")
	cmd.Flags().BoolVar(&opts.pretty, "pretty", false, "Indent the output")
	cmd.Flags().BoolVar(&opts.metrics, "metrics", false, "Print fragment cache counters to stderr")
	_ = cmd.MarkFlagRequired("schema")

	_ = cmd.RegisterFlagCompletionFunc("adapter", fixedCompletions(adapter.Names()...))
	_ = cmd.RegisterFlagCompletionFunc("key-transform", fixedCompletions(
		string(adapter.Camel), string(adapter.CamelLower), string(adapter.Dash),
		string(adapter.Underscore), string(adapter.Unaltered),
	))

	return cmd
}

func fixedCompletions(values ...string) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return values, cobra.ShellCompDirectiveNoFileComp
	}
}

func runRender(cmd *cobra.Command, global *globalOptions, opts *renderOptions) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	stderr := cmd.ErrOrStderr()

	s, err := openSession(ctx, global, opts.schemaPath, stderr)
	if err != nil {
		return err
	}
	defer s.Close()

	if opts.resourceType != "" {
		if _, ok := s.registry.Named(opts.resourceType); !ok {
			fmt.Fprint(stderr, ui.UnknownResourceError(opts.resourceType, s.resourceNames(), global.noColor))
			return reportedError{fmt.Errorf("unknown resource %q", opts.resourceType)}
		}
	}
	if opts.adapter != "" {
		if _, err := adapter.ParseName(opts.adapter); err != nil {
			fmt.Fprint(stderr, ui.UnknownAdapterError(opts.adapter, adapter.Names(), global.noColor))
			return reportedError{err}
		}
	}

	renderOpts, err := opts.serializerOptions()
	if err != nil {
		return err
	}

	data, err := readInput(cmd.InOrStdin(), opts.input)
	if err != nil {
		return err
	}
	obj, err := schema.Decode(data, opts.resourceType)
	if err != nil {
		return err
	}

	ser, err := s.serializer()
	if err != nil {
		return err
	}
	out, err := ser.SerializeJSON(ctx, obj, renderOpts)
	if err != nil {
		return err
	}

	if opts.pretty {
		var buf bytes.Buffer
		if err := json.Indent(&buf, out, "", "  "); err != nil {
			return err
		}
		out = buf.Bytes()
	}
	if _, err := fmt.Fprintln(cmd.OutOrStdout(), string(out)); err != nil {
		return err
	}

	if opts.metrics {
		return writeMetrics(stderr, s, global.noColor)
	}
	return nil
}

// serializerOptions converts the flags into render options
func (o *renderOptions) serializerOptions() (serializer.Options, error) {
	opts := serializer.Options{
		Adapter: o.adapter,
		Root:    o.root,
		MetaKey: o.metaKey,
	}
	if o.includeSet {
		opts.Include = o.include
	}
	if o.scope != "" {
		opts.Scope = o.scope
	}

	fields, err := parseFields(o.fields)
	if err != nil {
		return serializer.Options{}, err
	}
	opts.Fields = fields

	if len(o.meta) > 0 {
		meta := make(map[string]any, len(o.meta))
		for k, v := range o.meta {
			meta[k] = v
		}
		opts.Meta = meta
	}
	if len(o.links) > 0 {
		opts.Links = make(map[string]any, len(o.links))
		for k, v := range o.links {
			opts.Links[k] = v
		}
	}

	if o.keyTransform != "" {
		t, err := adapter.ParseKeyTransform(o.keyTransform)
		if err != nil {
			return serializer.Options{}, err
		}
		opts.KeyTransform = t
	}
	if o.requestURL != "" {
		opts.Context = &adapter.URLContext{RequestURL: o.requestURL}
	}
	return opts, nil
}

// parseFields reads "posts=title,body" fieldsets. An empty list, as in
// "posts=", renders no attributes for the type.
func parseFields(specs []string) (map[string][]string, error) {
	if len(specs) == 0 {
		return nil, nil
	}
	fields := make(map[string][]string, len(specs))
	for _, spec := range specs {
		typ, list, ok := strings.Cut(spec, "=")
		typ = strings.TrimSpace(typ)
		if !ok || typ == "" {
			return nil, fmt.Errorf("invalid fieldset %q, expected type=field,field", spec)
		}
		names := []string{}
		for _, name := range strings.Split(list, ",") {
			if name = strings.TrimSpace(name); name != "" {
				names = append(names, name)
			}
		}
		if prev, ok := fields[typ]; ok {
			names = append(prev, names...)
		}
		fields[typ] = names
	}
	return fields, nil
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}

// writeMetrics prints the counters gathered from the session registry
func writeMetrics(w io.Writer, s *session, noColor bool) error {
	families, err := s.metrics.Gather()
	if err != nil {
		return err
	}
	sort.Slice(families, func(i, j int) bool { return families[i].GetName() < families[j].GetName() })

	table := ui.NewKeyValueTable(w, noColor)
	for _, mf := range families {
		var total float64
		for _, m := range mf.GetMetric() {
			total += m.GetCounter().GetValue()
		}
		table.AddRow(mf.GetName(), strconv.FormatFloat(total, 'f', -1, 64))
	}
	table.Render()
	return nil
}
