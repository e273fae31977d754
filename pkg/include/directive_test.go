package include

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_DottedString(t *testing.T) {
	d, err := Parse("posts.author, posts.comments,tags")
	require.NoError(t, err)

	assert.Equal(t, []string{"posts", "tags"}, d.Keys())
	posts := d.Child("posts")
	require.NotNil(t, posts)
	assert.Equal(t, []string{"author", "comments"}, posts.Keys())
	assert.True(t, d.Child("tags").IsEmpty())
	assert.Nil(t, d.Child("missing"))
	assert.Equal(t, "posts.author,posts.comments,tags", d.String())
}

func TestParse_NestedStructures(t *testing.T) {
	d, err := Parse([]any{
		"author",
		map[string]any{"comments": []any{"author", map[string]any{"post": nil}}},
	})
	require.NoError(t, err)

	assert.True(t, d.Has("author"))
	comments := d.Child("comments")
	require.NotNil(t, comments)
	assert.True(t, comments.Has("author"))
	assert.True(t, comments.Has("post"))
}

func TestParse_StringMap(t *testing.T) {
	d, err := Parse(map[string][]string{"posts": {"author", "comments.author"}})
	require.NoError(t, err)
	assert.Equal(t, "posts.author,posts.comments.author", d.String())
}

func TestParse_Idempotent(t *testing.T) {
	specs := []any{
		"posts.author,posts.comments",
		[]string{"a", "b.c"},
		map[string]any{"a": map[string]any{"b": "c"}},
		"**",
		"*",
	}
	for _, spec := range specs {
		first := MustParse(spec)
		second := MustParse(spec)
		assert.True(t, first.Equal(second), "spec %v", spec)
	}
}

func TestParse_MalformedStringsDegrade(t *testing.T) {
	for _, spec := range []string{"", ",,,", "..", "a..b", " . ", "posts.", ".posts"} {
		d, err := Parse(spec)
		require.NoError(t, err, spec)
		assert.NotPanics(t, func() { d.Child("anything") })
	}

	d := MustParse("a..b")
	assert.True(t, d.Has("a"))
	assert.True(t, d.Child("a").IsEmpty())
}

func TestParse_UnsupportedType(t *testing.T) {
	_, err := Parse(42)
	assert.ErrorIs(t, err, ErrInvalidSpec)

	_, err = Parse([]any{"a", 3.5})
	assert.ErrorIs(t, err, ErrInvalidSpec)
}

func TestChild_Wildcard(t *testing.T) {
	d := MustParse("*")

	child := d.Child("anything")
	require.NotNil(t, child)
	assert.True(t, child.IsEmpty(), "plain wildcard does not cascade")
	assert.Nil(t, child.Child("deeper"))
	assert.True(t, d.Has("whatever"))
}

func TestChild_DeepWildcard(t *testing.T) {
	d := MustParse("**")

	child := d.Child("posts")
	require.NotNil(t, child)
	assert.Same(t, d, child)
	assert.Same(t, d, child.Child("author").Child("posts"))
}

func TestChild_LiteralWinsOverWildcard(t *testing.T) {
	d := MustParse("*,posts.comments")

	posts := d.Child("posts")
	assert.True(t, posts.Has("comments"))
	assert.False(t, posts.Has("author"))
	assert.True(t, d.Child("author").IsEmpty())
}

func TestWithoutWildcards(t *testing.T) {
	d := MustParse("*,**", WithoutWildcards())
	assert.False(t, d.IsWildcard())
	assert.True(t, d.Has("*"))
	assert.False(t, d.Has("posts"))
}

func TestMerge(t *testing.T) {
	a := MustParse("posts.author")
	b := MustParse("posts.comments,tags")

	merged := a.Merge(b)
	assert.Equal(t, "posts.author,posts.comments,tags", merged.String())
	// inputs are untouched
	assert.Equal(t, "posts.author", a.String())
}

func TestNilDirective(t *testing.T) {
	var d *Directive
	assert.Nil(t, d.Child("x"))
	assert.False(t, d.Has("x"))
	assert.True(t, d.IsEmpty())
	assert.Equal(t, "", d.String())
	assert.True(t, d.Equal(Empty()))
}

func TestConstructors(t *testing.T) {
	assert.True(t, All().IsWildcard())
	assert.False(t, All().IsDeep())
	assert.True(t, Deep().IsDeep())
	assert.Equal(t, "**", Deep().String())
	assert.Equal(t, "*", All().String())
	assert.True(t, Empty().IsEmpty())
}
