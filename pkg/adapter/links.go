package adapter

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/DataDog/jsonapi"
	"github.com/goccy/go-json"

	"github.com/conduit-lang/serializer/pkg/document"
	"github.com/conduit-lang/serializer/pkg/resource"
)

// BuildPaginationLinks creates JSON:API pagination links for page of
// totalPages. The request query is kept on every link and page[number] and
// page[size] are set on top of it.
func BuildPaginationLinks(ctx *URLContext, page, perPage, totalPages int) *jsonapi.Link {
	if totalPages < 1 {
		totalPages = 1
	}
	if page < 1 {
		page = 1
	}

	links := &jsonapi.Link{
		Self:  buildPageURL(ctx, page, perPage),
		First: buildPageURL(ctx, 1, perPage),
		Last:  buildPageURL(ctx, totalPages, perPage),
	}

	if page > 1 {
		links.Prev = buildPageURL(ctx, page-1, perPage)
	}

	if page < totalPages {
		links.Next = buildPageURL(ctx, page+1, perPage)
	}

	return links
}

func buildPageURL(ctx *URLContext, page, perPage int) string {
	u, err := url.Parse(ctx.RequestURL)
	if err != nil {
		// Fallback to simple concatenation if parse fails
		return fmt.Sprintf("%s?page[number]=%d&page[size]=%d", ctx.RequestURL, page, perPage)
	}

	q := u.Query()
	for key, values := range ctx.Query {
		q[key] = append([]string(nil), values...)
	}
	q.Set("page[number]", strconv.Itoa(page))
	q.Set("page[size]", strconv.Itoa(perPage))
	u.RawQuery = q.Encode()

	return u.String()
}

// paginationLinks renders the pagination links of a Paginated collection.
// The members are the JSON encoding of the jsonapi.Link, so absent prev and
// next links are omitted by its tags.
func paginationLinks(ctx *URLContext, p resource.Paginated) (*document.Object, error) {
	if ctx == nil {
		return nil, fmt.Errorf("%w: pagination links need the request URL", ErrMissingContext)
	}

	data, err := json.Marshal(BuildPaginationLinks(ctx, p.CurrentPage(), p.PageSize(), p.TotalPages()))
	if err != nil {
		return nil, fmt.Errorf("failed to encode pagination links: %w", err)
	}
	out := document.New(5)
	if err := out.UnmarshalJSON(data); err != nil {
		return nil, fmt.Errorf("failed to decode pagination links: %w", err)
	}
	return out, nil
}
