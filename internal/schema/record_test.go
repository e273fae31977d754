package schema

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/serializer/pkg/adapter"
	"github.com/conduit-lang/serializer/pkg/resource"
	"github.com/conduit-lang/serializer/pkg/serializer"
)

func TestDecode(t *testing.T) {
	obj, err := Decode([]byte(`{"id": 12345678901234567890, "title": "T"}`), "post")
	require.NoError(t, err)
	rec, ok := obj.(*Record)
	require.True(t, ok)
	assert.Equal(t, "post", rec.ResourceType())
	assert.Equal(t, json.Number("12345678901234567890"), rec.Fields["id"])

	obj, err = Decode([]byte(`[{"id": 1, "type": "comment"}, {"id": 2}]`), "post")
	require.NoError(t, err)
	items, ok := obj.([]any)
	require.True(t, ok)
	require.Len(t, items, 2)
	assert.Equal(t, "comment", items[0].(*Record).Type)
	assert.Equal(t, "post", items[1].(*Record).Type)
}

func TestDecode_Errors(t *testing.T) {
	_, err := Decode([]byte(`{`), "post")
	assert.Error(t, err)

	_, err = Decode([]byte(`"post"`), "post")
	assert.ErrorContains(t, err, "JSON object or array")

	_, err = Decode([]byte(`[1]`), "post")
	assert.ErrorContains(t, err, "record 0")
}

func TestDecode_Page(t *testing.T) {
	obj, err := Decode([]byte(`{
		"data": [{"id": 1}, {"id": 2}],
		"page": {"number": 2, "size": 2, "total_pages": 5}
	}`), "post")
	require.NoError(t, err)

	page, ok := obj.(*Page)
	require.True(t, ok)
	assert.Len(t, page.Items(), 2)
	assert.Equal(t, 2, page.CurrentPage())
	assert.Equal(t, 5, page.TotalPages())
	assert.Equal(t, 2, page.PageSize())

	var _ resource.Paginated = page
	var _ resource.Enumerable = page
}

func TestRecord_Capabilities(t *testing.T) {
	rec := NewRecord("post", map[string]any{
		"updated_at": "2024-05-01T12:00:00Z",
		"cache_key":  "post-1-v3",
	})
	assert.Equal(t, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), rec.UpdatedAt())
	assert.Equal(t, "post-1-v3", rec.CacheKey())

	v, err := rec.ReadAttribute("missing")
	require.NoError(t, err)
	assert.Nil(t, v)

	bad := NewRecord("post", map[string]any{"updated_at": "yesterday"})
	assert.True(t, bad.UpdatedAt().IsZero())
	assert.Empty(t, bad.CacheKey())

	out, err := json.Marshal(NewRecord("", map[string]any{"a": 1}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(out))
}

func TestRender_Page(t *testing.T) {
	r := loadRegistry(t, "resources:\n  - name: post\n    attributes: [title]\n")
	s := serializer.MustNew(r)

	obj, err := Decode([]byte(`{
		"data": [{"id": 1, "title": "A"}],
		"page": {"number": 1, "size": 1, "total_pages": 2}
	}`), "post")
	require.NoError(t, err)

	got, err := s.SerializeJSON(context.Background(), obj, serializer.Options{
		Adapter: adapter.JSONAPI,
		Context: &adapter.URLContext{RequestURL: "http://example.com/posts"},
	})
	require.NoError(t, err)

	var doc struct {
		Data  []map[string]any  `json:"data"`
		Links map[string]string `json:"links"`
	}
	require.NoError(t, json.Unmarshal(got, &doc))
	require.Len(t, doc.Data, 1)
	assert.Equal(t, "posts", doc.Data[0]["type"])
	assert.Contains(t, doc.Links["next"], "page%5Bnumber%5D=2")
	assert.Contains(t, doc.Links["last"], "page%5Bnumber%5D=2")
}

func TestRender_NativeRecord(t *testing.T) {
	s := serializer.MustNew(resource.NewRegistry())
	obj, err := Decode([]byte(`{"id": 1, "free": "form"}`), "unknown")
	require.NoError(t, err)

	got, err := s.SerializeJSON(context.Background(), obj, serializer.Options{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":1,"free":"form"}`, string(got))
}
