package adapter

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/serializer/pkg/cache"
	"github.com/conduit-lang/serializer/pkg/include"
	"github.com/conduit-lang/serializer/pkg/resource"
)

type author struct {
	ID    int
	Name  string
	Posts []*post
}

type post struct {
	ID       int
	Title    string
	Body     string
	Author   *author
	Comments []*comment
}

type comment struct {
	ID   string
	Body string
}

// pagedPosts is page 2 of 3, ten posts per page
type pagedPosts struct {
	posts []*post
}

func (p pagedPosts) Items() []any {
	items := make([]any, len(p.posts))
	for i, post := range p.posts {
		items[i] = post
	}
	return items
}

func (p pagedPosts) CurrentPage() int { return 2 }
func (p pagedPosts) TotalPages() int  { return 3 }
func (p pagedPosts) PageSize() int    { return 10 }

func blogRegistry() *resource.Registry {
	r := resource.NewRegistry()
	r.MustRegister(&comment{}, resource.MustDefine("comment", func(b *resource.Builder) {
		b.Attributes("body")
	}))
	r.MustRegister(&author{}, resource.MustDefine("author", func(b *resource.Builder) {
		b.Attributes("name")
		b.HasMany("posts")
	}))
	r.MustRegister(&post{}, resource.MustDefine("post", func(b *resource.Builder) {
		b.Attributes("id", "title", "body")
		b.BelongsTo("author")
		b.HasMany("comments")
	}))
	return r
}

// authorWithPosts returns an author whose two posts link back to it
func authorWithPosts() *author {
	a := &author{ID: 9, Name: "Ann"}
	a.Posts = []*post{
		{ID: 1, Title: "First", Author: a, Comments: []*comment{{ID: "c1", Body: "Nice"}}},
		{ID: 2, Title: "Second", Author: a},
	}
	return a
}

func bind(t *testing.T, r *resource.Registry, obj any) *resource.Binding {
	t.Helper()
	b, err := resource.Bind(obj, resource.BindOptions{Registry: r})
	require.NoError(t, err)
	return b
}

func bindWith(t *testing.T, d *resource.Descriptor, obj any) *resource.Binding {
	t.Helper()
	b, err := resource.Bind(obj, resource.BindOptions{Registry: resource.NewRegistry(), Descriptor: d})
	require.NoError(t, err)
	return b
}

func newAdapter(t *testing.T, name string, cfg Config, fragments *cache.Fragments) Adapter {
	t.Helper()
	a, err := New(name, cfg, fragments)
	require.NoError(t, err)
	return a
}

func renderJSON(t *testing.T, a Adapter, b *resource.Binding, dir *include.Directive, opts *Options) string {
	t.Helper()
	out, err := a.Render(context.Background(), b, dir, opts)
	require.NoError(t, err)
	data, err := json.Marshal(out)
	require.NoError(t, err)
	return string(data)
}

// decode turns a rendered document into plain maps for structural assertions
func decode(t *testing.T, doc string) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(doc), &out))
	return out
}
