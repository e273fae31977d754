package resource

import (
	"errors"
	"time"
)

type author struct {
	ID    int
	Name  string
	Posts []*post
}

type post struct {
	ID        int
	Title     string
	Body      string
	Author    *author
	Comments  []*comment
	UpdatedAt time.Time
}

type comment struct {
	ID   string `json:"id"`
	Text string `json:"body"`
}

// featuredPost embeds post, so it resolves to the post descriptor
type featuredPost struct {
	post
	Badge string
}

type tagged struct {
	Label string
}

func (t tagged) ResourceType() string { return "tag" }

type withMethods struct {
	id int
}

func (w withMethods) ID() int { return w.id }

func (w withMethods) Summary() (string, error) { return "summary", nil }

func (w withMethods) Broken() (string, error) { return "", errBroken }

var errBroken = errors.New("broken accessor")

type reader struct {
	values map[string]any
}

func (r reader) ReadAttribute(name string) (any, error) {
	v, ok := r.values[name]
	if !ok {
		return nil, errors.New("unknown " + name)
	}
	return v, nil
}

type selfDescribing struct {
	ID int
}

var selfDescriptor = MustDefine("self_describing", func(b *Builder) {
	b.Attributes("id")
})

func (selfDescribing) ResourceDescriptor() *Descriptor { return selfDescriptor }

type page struct {
	items []any
}

func (p page) Items() []any      { return p.items }
func (p page) CurrentPage() int { return 2 }
func (p page) TotalPages() int  { return 3 }
func (p page) PageSize() int    { return 10 }

func blogRegistry() (*Registry, map[string]*Descriptor) {
	r := NewRegistry()
	commentD := MustDefine("comment", func(b *Builder) {
		b.Attributes("body")
	})
	authorD := MustDefine("author", func(b *Builder) {
		b.Attributes("name")
		b.HasMany("posts")
	})
	postD := MustDefine("post", func(b *Builder) {
		b.Attributes("id", "title", "body")
		b.BelongsTo("author")
		b.HasMany("comments")
	})
	r.MustRegister(&comment{}, commentD)
	r.MustRegister(author{}, authorD)
	r.MustRegister(&post{}, postD)
	return r, map[string]*Descriptor{"comment": commentD, "author": authorD, "post": postD}
}
