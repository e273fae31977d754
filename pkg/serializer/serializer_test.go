package serializer

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/conduit-lang/serializer/pkg/adapter"
	"github.com/conduit-lang/serializer/pkg/cache"
	"github.com/conduit-lang/serializer/pkg/include"
	"github.com/conduit-lang/serializer/pkg/resource"
)

type user struct {
	ID        int
	Name      string
	Email     string
	Posts     []*article
	UpdatedAt time.Time
}

type article struct {
	ID     int
	Title  string
	Author *user
}

func newRegistry(nameReads *atomic.Int32) *resource.Registry {
	r := resource.NewRegistry()
	r.MustRegister(&user{}, resource.MustDefine("user", func(b *resource.Builder) {
		b.Attribute("name", resource.WithValue(func(b *resource.Binding) (any, error) {
			if nameReads != nil {
				nameReads.Add(1)
			}
			return b.Object().(*user).Name, nil
		}))
		b.Attributes("email")
		b.HasMany("posts")
		b.Cache(resource.CachePolicy{Key: "users", Only: []string{"name"}})
	}))
	r.MustRegister(&article{}, resource.MustDefine("article", func(b *resource.Builder) {
		b.Attributes("title")
		b.BelongsTo("author")
	}))
	return r
}

func sampleUser() *user {
	u := &user{ID: 1, Name: "Ann", Email: "ann@example.com", UpdatedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	u.Posts = []*article{{ID: 10, Title: "Hello", Author: u}}
	return u
}

func TestSerializer_Adapters(t *testing.T) {
	s, err := New(newRegistry(nil))
	require.NoError(t, err)
	ctx := context.Background()

	tests := []struct {
		name string
		opts Options
		want string
	}{
		{
			name: "default adapter",
			opts: Options{Include: ""},
			want: `{"id":1,"name":"Ann","email":"ann@example.com"}`,
		},
		{
			name: "attributes with includes",
			opts: Options{Include: "posts"},
			want: `{"id":1,"name":"Ann","email":"ann@example.com","posts":[{"id":10,"title":"Hello"}]}`,
		},
		{
			name: "json with meta",
			opts: Options{Adapter: "json", Include: []string{}, Meta: map[string]any{"v": 1}},
			want: `{"user":{"id":1,"name":"Ann","email":"ann@example.com"},"meta":{"v":1}}`,
		},
		{
			name: "json_api",
			opts: Options{Adapter: "JsonApi", Include: "posts", Fields: map[string][]string{"users": {"name", "posts"}}},
			want: `{"data":{"id":"1","type":"users","attributes":{"name":"Ann"},"relationships":{"posts":{"data":[{"id":"10","type":"articles"}]}}},"included":[{"id":"10","type":"articles","attributes":{"title":"Hello"},"relationships":{"author":{"data":{"id":"1","type":"users"}}}}]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.SerializeJSON(ctx, sampleUser(), tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestSerializer_UnknownAdapter(t *testing.T) {
	s := MustNew(newRegistry(nil))
	_, err := s.Serialize(context.Background(), sampleUser(), Options{Adapter: "hal"})
	assert.ErrorIs(t, err, adapter.ErrUnknownAdapter)

	cfg := DefaultConfig()
	cfg.Adapter = "xml"
	_, err = New(nil, WithConfig(cfg))
	assert.ErrorIs(t, err, adapter.ErrUnknownAdapter)
}

func TestSerializer_InvalidInclude(t *testing.T) {
	s := MustNew(newRegistry(nil))
	_, err := s.Serialize(context.Background(), sampleUser(), Options{Include: 42})
	assert.ErrorIs(t, err, include.ErrInvalidSpec)
}

func TestSerializer_WildcardsDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AllowWildcardIncludes = false
	s := MustNew(newRegistry(nil), WithConfig(cfg))

	got, err := s.SerializeJSON(context.Background(), sampleUser(), Options{Include: "*"})
	require.NoError(t, err)
	assert.Equal(t, `{"id":1,"name":"Ann","email":"ann@example.com"}`, string(got))
}

func TestSerializer_ExplicitDescriptor(t *testing.T) {
	s := MustNew(newRegistry(nil))
	compact := resource.MustDefine("user_summary", func(b *resource.Builder) {
		b.Attributes("name")
	})

	got, err := s.SerializeJSON(context.Background(), []*user{sampleUser()}, Options{
		Adapter:        adapter.JSON,
		EachDescriptor: compact,
		KeyTransform:   adapter.CamelLower,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"userSummaries":[{"id":1,"name":"Ann"}]}`, string(got))
}

func TestSerializer_ScopeReachesValueFuncs(t *testing.T) {
	d := resource.MustDefine("user", func(b *resource.Builder) {
		b.Attribute("email", resource.WithIf(func(b *resource.Binding) bool {
			return b.Scope() == "admin"
		}))
	})
	s := MustNew(resource.NewRegistry())

	got, err := s.SerializeJSON(context.Background(), sampleUser(), Options{Descriptor: d, Scope: "admin"})
	require.NoError(t, err)
	assert.Equal(t, `{"id":1,"email":"ann@example.com"}`, string(got))

	got, err = s.SerializeJSON(context.Background(), sampleUser(), Options{Descriptor: d, Scope: "guest"})
	require.NoError(t, err)
	assert.Equal(t, `{"id":1}`, string(got))
}

func TestSerializer_FragmentCache(t *testing.T) {
	store := cache.NewMemoryStore()
	defer store.Close()

	var nameReads atomic.Int32
	s := MustNew(newRegistry(&nameReads), WithFragments(cache.NewFragments(store)))

	first, err := s.SerializeJSON(context.Background(), sampleUser(), Options{})
	require.NoError(t, err)
	second, err := s.SerializeJSON(context.Background(), sampleUser(), Options{})
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
	assert.Equal(t, int32(1), nameReads.Load())

	d, ok := s.Registry().Named("user")
	require.True(t, ok)
	exists, err := store.Exists(context.Background(), "users/1-20240501120000000000000/attributes/"+d.Digest())
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestSerializer_LogsRenders(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	s := MustNew(newRegistry(nil), WithLogger(zap.New(core)))

	_, err := s.Serialize(context.Background(), sampleUser(), Options{Adapter: adapter.JSONAPI})
	require.NoError(t, err)

	entries := logs.FilterMessage("rendered").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "json_api", fields["adapter"])
	assert.Equal(t, "user", fields["resource"])

	_, err = s.Serialize(context.Background(), map[string]any{"a": 1}, Options{Adapter: adapter.JSONAPI})
	assert.ErrorIs(t, err, resource.ErrNoDescriptor)
	assert.Equal(t, 1, logs.FilterMessage("render failed").Len())
}

func TestDefault(t *testing.T) {
	assert.Same(t, Default(), Default())
	assert.Equal(t, adapter.Attributes, Default().Config().Adapter)

	got, err := SerializeJSON(context.Background(), map[string]any{"native": true}, Options{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"native":true}`, string(got))
}

func TestSerializer_ConcurrentRenders(t *testing.T) {
	s := MustNew(newRegistry(nil))
	u := sampleUser()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := s.SerializeJSON(context.Background(), u, Options{Adapter: adapter.JSONAPI, Include: "**"})
			assert.NoError(t, err)
			assert.Contains(t, string(got), `"included":[{"id":"10","type":"articles"`)
		}()
	}
	wg.Wait()
}
