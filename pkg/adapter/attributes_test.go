package adapter

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/serializer/pkg/cache"
	"github.com/conduit-lang/serializer/pkg/include"
	"github.com/conduit-lang/serializer/pkg/resource"
)

func TestAttributes_PreservesDeclarationOrder(t *testing.T) {
	a := newAdapter(t, Attributes, DefaultConfig(), nil)
	b := bind(t, blogRegistry(), &post{ID: 1, Title: "T", Body: "B"})

	got := renderJSON(t, a, b, include.Empty(), nil)
	assert.Equal(t, `{"id":1,"title":"T","body":"B"}`, got)
}

func TestAttributes_DefaultIncludes(t *testing.T) {
	a := newAdapter(t, Attributes, DefaultConfig(), nil)
	b := bind(t, blogRegistry(), &post{ID: 1, Title: "T", Body: "B"})

	got := renderJSON(t, a, b, nil, nil)
	assert.Equal(t, `{"id":1,"title":"T","body":"B","author":null,"comments":[]}`, got)

	cfg := DefaultConfig()
	cfg.DefaultIncludes = ""
	a = newAdapter(t, Attributes, cfg, nil)
	assert.Equal(t, `{"id":1,"title":"T","body":"B"}`, renderJSON(t, a, b, nil, nil))
}

func TestAttributes_NestedIncludes(t *testing.T) {
	a := newAdapter(t, Attributes, DefaultConfig(), nil)
	au := authorWithPosts()
	b := bind(t, blogRegistry(), au.Posts[0])

	got := renderJSON(t, a, b, include.MustParse("comments,author"), nil)
	assert.Equal(t,
		`{"id":1,"title":"First","body":"","author":{"id":9,"name":"Ann"},"comments":[{"id":"c1","body":"Nice"}]}`,
		got)
}

func TestAttributes_Collection(t *testing.T) {
	a := newAdapter(t, Attributes, DefaultConfig(), nil)
	b := bind(t, blogRegistry(), []*post{{ID: 1, Title: "A"}, {ID: 2, Title: "B"}})

	got := renderJSON(t, a, b, include.Empty(), nil)
	assert.Equal(t, `[{"id":1,"title":"A","body":""},{"id":2,"title":"B","body":""}]`, got)
}

func TestAttributes_CyclesTerminate(t *testing.T) {
	a := newAdapter(t, Attributes, DefaultConfig(), nil)
	b := bind(t, blogRegistry(), authorWithPosts())

	doc := decode(t, renderJSON(t, a, b, include.Deep(), nil))
	posts := doc["posts"].([]any)
	require.Len(t, posts, 2)

	backRef := posts[0].(map[string]any)["author"].(map[string]any)
	assert.Equal(t, "Ann", backRef["name"])
	assert.NotContains(t, backRef, "posts", "a resource already on the path is not expanded again")
}

func TestAttributes_MaxDepth(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxDepth = 1
	a := newAdapter(t, Attributes, cfg, nil)
	b := bind(t, blogRegistry(), authorWithPosts())

	doc := decode(t, renderJSON(t, a, b, include.Deep(), nil))
	first := doc["posts"].([]any)[0].(map[string]any)
	assert.NotContains(t, first, "comments")
}

func TestAttributes_PolymorphicAndVirtual(t *testing.T) {
	r := blogRegistry()
	d := resource.MustDefine("activity", func(b *resource.Builder) {
		b.BelongsTo("subject", resource.Polymorphic())
		b.HasMany("tags", resource.WithVirtualValue([]any{"go"}))
	})
	obj := map[string]any{"id": "a1", "subject": &post{ID: 5, Title: "P"}}
	b, err := resource.Bind(obj, resource.BindOptions{Registry: r, Descriptor: d})
	require.NoError(t, err)

	a := newAdapter(t, Attributes, DefaultConfig(), nil)
	got := renderJSON(t, a, b, nil, nil)
	assert.Equal(t,
		`{"id":"a1","subject":{"type":"post","post":{"id":5,"title":"P","body":""}},"tags":["go"]}`,
		got)
}

func TestAttributes_KeyTransformAndFields(t *testing.T) {
	d := resource.MustDefine("post", func(b *resource.Builder) {
		b.Attributes("title", "word_count")
		b.Attribute("meta_data", resource.WithValue(resource.Static(map[string]any{"reading_time": 3})))
	})
	obj := map[string]any{"id": 1, "title": "T", "word_count": 120}

	a := newAdapter(t, Attributes, DefaultConfig(), nil)
	got := renderJSON(t, a, bindWith(t, d, obj), nil, &Options{KeyTransform: CamelLower})
	assert.Equal(t, `{"id":1,"title":"T","wordCount":120,"metaData":{"readingTime":3}}`, got)

	// fields match raw or transformed keys; id is dropped when not listed
	got = renderJSON(t, a, bindWith(t, d, obj), nil, &Options{
		KeyTransform: CamelLower,
		Fields:       map[string][]string{"post": {"wordCount", "title"}},
	})
	assert.Equal(t, `{"title":"T","wordCount":120}`, got)
}

func TestAttributes_NativeRoot(t *testing.T) {
	a := newAdapter(t, Attributes, DefaultConfig(), nil)
	b := bind(t, resource.NewRegistry(), map[string]any{"free": "form"})

	out, err := a.Render(context.Background(), b, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"free": "form"}, out)
}

func TestAttributes_AccessorErrorsPropagate(t *testing.T) {
	boom := errors.New("boom")
	d := resource.MustDefine("post", func(b *resource.Builder) {
		b.Attribute("title", resource.WithValue(func(*resource.Binding) (any, error) { return nil, boom }))
	})

	a := newAdapter(t, Attributes, DefaultConfig(), nil)
	_, err := a.Render(context.Background(), bindWith(t, d, &post{ID: 1}), nil, nil)
	assert.ErrorIs(t, err, boom)
}

type stampedPost struct {
	ID      int
	Title   string
	Updated time.Time
}

func (p *stampedPost) UpdatedAt() time.Time { return p.Updated }

func TestAttributes_FragmentCache(t *testing.T) {
	store := cache.NewMemoryStore()
	defer store.Close()
	fragments := cache.NewFragments(store)

	var titleReads atomic.Int32
	d := resource.MustDefine("post", func(b *resource.Builder) {
		b.Attribute("title", resource.WithValue(func(b *resource.Binding) (any, error) {
			titleReads.Add(1)
			return b.Object().(*stampedPost).Title, nil
		}))
		b.Attribute("views", resource.WithValue(resource.Static(7)))
		b.Cache(resource.CachePolicy{Only: []string{"title"}})
	})
	p := &stampedPost{ID: 1, Title: "T", Updated: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}

	a := newAdapter(t, Attributes, DefaultConfig(), fragments)
	first := renderJSON(t, a, bindWith(t, d, p), nil, nil)
	second := renderJSON(t, a, bindWith(t, d, p), nil, nil)

	assert.Equal(t, `{"id":1,"title":"T","views":7}`, first)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), titleReads.Load())

	// the json_api adapter keys its fragments separately
	jsonAPI := newAdapter(t, JSONAPI, DefaultConfig(), fragments)
	renderJSON(t, jsonAPI, bindWith(t, d, p), nil, nil)
	assert.Equal(t, int32(2), titleReads.Load())
}
