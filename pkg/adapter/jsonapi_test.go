package adapter

import (
	"context"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/serializer/pkg/include"
	"github.com/conduit-lang/serializer/pkg/resource"
)

func TestJSONAPI_IncludedRelationship(t *testing.T) {
	a := newAdapter(t, JSONAPI, DefaultConfig(), nil)
	p := &post{ID: 1, Title: "T", Body: "B", Comments: []*comment{{ID: "c1", Body: "Nice"}}}

	got := renderJSON(t, a, bind(t, blogRegistry(), p), include.MustParse("comments"), nil)
	assert.JSONEq(t, `{
		"data": {
			"id": "1",
			"type": "posts",
			"attributes": {"title": "T", "body": "B"},
			"relationships": {
				"author": {"data": null},
				"comments": {"data": [{"id": "c1", "type": "comments"}]}
			}
		},
		"included": [
			{"id": "c1", "type": "comments", "attributes": {"body": "Nice"}}
		]
	}`, got)
}

func TestJSONAPI_MemberOrder(t *testing.T) {
	a := newAdapter(t, JSONAPI, DefaultConfig(), nil)
	p := &post{ID: 1, Title: "T", Body: "B"}

	got := renderJSON(t, a, bind(t, blogRegistry(), p), nil, nil)
	assert.Equal(t,
		`{"data":{"id":"1","type":"posts","attributes":{"title":"T","body":"B"},"relationships":{"author":{"data":null},"comments":{"data":[]}}}}`,
		got)
}

func TestJSONAPI_IncludedIsDeduplicated(t *testing.T) {
	a := newAdapter(t, JSONAPI, DefaultConfig(), nil)
	b := bind(t, blogRegistry(), authorWithPosts())

	doc := decode(t, renderJSON(t, a, b, include.MustParse("posts.author"), nil))

	data := doc["data"].(map[string]any)
	assert.Equal(t, "authors", data["type"])

	included := doc["included"].([]any)
	require.Len(t, included, 2)
	for i, want := range []string{"1", "2"} {
		item := included[i].(map[string]any)
		assert.Equal(t, "posts", item["type"])
		assert.Equal(t, want, item["id"])
		author := item["relationships"].(map[string]any)["author"].(map[string]any)
		assert.Equal(t, map[string]any{"id": "9", "type": "authors"}, author["data"])
	}
}

func TestJSONAPI_IncludedWithoutIDIsAnError(t *testing.T) {
	a := newAdapter(t, JSONAPI, DefaultConfig(), nil)
	p := &post{ID: 1, Title: "T", Comments: []*comment{{Body: "first"}, {Body: "second"}}}

	_, err := a.Render(context.Background(), bind(t, blogRegistry(), p), include.MustParse("comments"), nil)
	assert.ErrorIs(t, err, ErrMissingID)

	// linkage alone does not need included identities
	_, err = a.Render(context.Background(), bind(t, blogRegistry(), p), nil, nil)
	assert.NoError(t, err)
}

func TestJSONAPI_DeepIncludeTerminates(t *testing.T) {
	a := newAdapter(t, JSONAPI, DefaultConfig(), nil)
	au := authorWithPosts()
	b := bind(t, blogRegistry(), au.Posts)

	doc := decode(t, renderJSON(t, a, b, include.Deep(), nil))

	assert.Len(t, doc["data"].([]any), 2)
	included := doc["included"].([]any)
	types := make([]string, 0, len(included))
	for _, item := range included {
		m := item.(map[string]any)
		types = append(types, m["type"].(string)+":"+m["id"].(string))
	}
	assert.Equal(t, []string{"authors:9", "comments:c1"}, types)
}

func TestJSONAPI_Collection(t *testing.T) {
	a := newAdapter(t, JSONAPI, DefaultConfig(), nil)

	got := renderJSON(t, a, bind(t, blogRegistry(), []*post{}), nil, nil)
	assert.Equal(t, `{"data":[]}`, got)
}

func TestJSONAPI_PaginationLinks(t *testing.T) {
	a := newAdapter(t, JSONAPI, DefaultConfig(), nil)
	b := bind(t, blogRegistry(), pagedPosts{posts: []*post{{ID: 11}}})

	opts := &Options{Context: &URLContext{
		RequestURL: "http://example.com/posts?sort=title",
		Query:      url.Values{"filter[published]": {"true"}},
	}}
	doc := decode(t, renderJSON(t, a, b, include.Empty(), opts))

	links := doc["links"].(map[string]any)
	base := "http://example.com/posts?filter%5Bpublished%5D=true&"
	assert.Equal(t, map[string]any{
		"self":  base + "page%5Bnumber%5D=2&page%5Bsize%5D=10&sort=title",
		"first": base + "page%5Bnumber%5D=1&page%5Bsize%5D=10&sort=title",
		"prev":  base + "page%5Bnumber%5D=1&page%5Bsize%5D=10&sort=title",
		"next":  base + "page%5Bnumber%5D=3&page%5Bsize%5D=10&sort=title",
		"last":  base + "page%5Bnumber%5D=3&page%5Bsize%5D=10&sort=title",
	}, links)
}

func TestJSONAPI_PaginationNeedsContext(t *testing.T) {
	b := bind(t, blogRegistry(), pagedPosts{})

	a := newAdapter(t, JSONAPI, DefaultConfig(), nil)
	_, err := a.Render(context.Background(), b, nil, nil)
	assert.ErrorIs(t, err, ErrMissingContext)

	cfg := DefaultConfig()
	cfg.JSONAPI.PaginationLinks = false
	a = newAdapter(t, JSONAPI, cfg, nil)
	assert.Equal(t, `{"data":[]}`, renderJSON(t, a, b, nil, nil))
}

func TestJSONAPI_NativeRoot(t *testing.T) {
	a := newAdapter(t, JSONAPI, DefaultConfig(), nil)

	_, err := a.Render(context.Background(), bind(t, resource.NewRegistry(), map[string]any{"a": 1}), nil, nil)
	assert.ErrorIs(t, err, resource.ErrNoDescriptor)

	got := renderJSON(t, a, bind(t, resource.NewRegistry(), nil), nil, nil)
	assert.Equal(t, `{"data":null}`, got)
}

func TestJSONAPI_Fieldsets(t *testing.T) {
	a := newAdapter(t, JSONAPI, DefaultConfig(), nil)
	p := &post{ID: 1, Title: "T", Body: "B", Comments: []*comment{{ID: "c1", Body: "Nice"}}}

	got := renderJSON(t, a, bind(t, blogRegistry(), p), include.MustParse("comments"), &Options{
		Fields: map[string][]string{
			"posts":    {"title", "comments"},
			"comments": {},
		},
	})
	assert.JSONEq(t, `{
		"data": {
			"id": "1",
			"type": "posts",
			"attributes": {"title": "T"},
			"relationships": {"comments": {"data": [{"id": "c1", "type": "comments"}]}}
		},
		"included": [{"id": "c1", "type": "comments"}]
	}`, got)
}

func TestJSONAPI_KeyTransformAndTypes(t *testing.T) {
	d := resource.MustDefine("blog_post", func(b *resource.Builder) {
		b.Attributes("word_count")
	})
	obj := map[string]any{"id": 5, "word_count": 100}

	a := newAdapter(t, JSONAPI, DefaultConfig(), nil)
	got := renderJSON(t, a, bindWith(t, d, obj), nil, nil)
	assert.Equal(t, `{"data":{"id":"5","type":"blog-posts","attributes":{"word-count":100}}}`, got)

	got = renderJSON(t, a, bindWith(t, d, obj), nil, &Options{KeyTransform: Underscore})
	assert.Equal(t, `{"data":{"id":"5","type":"blog_posts","attributes":{"word_count":100}}}`, got)

	cfg := DefaultConfig()
	cfg.JSONAPI.ResourceType = SingularTypes
	a = newAdapter(t, JSONAPI, cfg, nil)
	got = renderJSON(t, a, bindWith(t, d, obj), nil, nil)
	assert.Equal(t, `{"data":{"id":"5","type":"blog-post","attributes":{"word-count":100}}}`, got)

	typed := resource.MustDefine("blog_post", func(b *resource.Builder) {
		b.Type("article_entry")
	})
	got = renderJSON(t, a, bindWith(t, typed, obj), nil, nil)
	assert.Equal(t, `{"data":{"id":"5","type":"article-entry"}}`, got)
}

func TestJSONAPI_RelationshipOptions(t *testing.T) {
	r := blogRegistry()
	d := resource.MustDefine("post", func(b *resource.Builder) {
		b.Attributes("title")
		b.BelongsTo("author", resource.WithoutData(),
			resource.WithRelationshipLink("related", func(b *resource.Binding) (any, error) {
				return "/posts/1/author", nil
			}))
		b.HasMany("comments", resource.WithVirtualValue([]any{map[string]any{"id": "v1", "type": "comments"}}),
			resource.WithRelationshipMeta(resource.Static(map[string]any{"count": 1})))
		b.Link("self", "/posts/1")
		b.Meta(map[string]any{"draft": true})
	})
	p := &post{ID: 1, Title: "T", Author: &author{ID: 9}}

	b, err := resource.Bind(p, resource.BindOptions{Registry: r, Descriptor: d})
	require.NoError(t, err)

	a := newAdapter(t, JSONAPI, DefaultConfig(), nil)
	got := renderJSON(t, a, b, include.MustParse("author,comments"), nil)
	assert.Equal(t,
		`{"data":{"id":"1","type":"posts","attributes":{"title":"T"},"relationships":{"author":{"links":{"related":"/posts/1/author"}},"comments":{"data":[{"id":"v1","type":"comments"}],"meta":{"count":1}}},"links":{"self":"/posts/1"},"meta":{"draft":true}},"included":[{"id":"9","type":"authors","attributes":{"name":""},"relationships":{"posts":{"data":[]}}}]}`,
		got)
}

func TestJSONAPI_ToplevelMembers(t *testing.T) {
	cfg := DefaultConfig()
	cfg.JSONAPI.IncludeToplevelObject = true
	cfg.JSONAPI.ToplevelMeta = map[string]any{"copyright": "ACME"}
	a := newAdapter(t, JSONAPI, cfg, nil)

	got := renderJSON(t, a, bind(t, blogRegistry(), &comment{ID: "c1", Body: "Nice"}), nil, &Options{
		Links: map[string]any{"self": "/comments/c1"},
		Meta:  map[string]any{"request_id": "r1"},
	})
	assert.Equal(t,
		`{"data":{"id":"c1","type":"comments","attributes":{"body":"Nice"}},"links":{"self":"/comments/c1"},"meta":{"request-id":"r1"},"jsonapi":{"version":"1.0","meta":{"copyright":"ACME"}}}`,
		got)
}
