package schema

import (
	"bytes"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/conduit-lang/serializer/pkg/resource"
)

// Record is a free-form object decoded from JSON. It resolves to the
// descriptor named by its type.
type Record struct {
	Type   string
	Fields map[string]any
}

// NewRecord wraps fields; typ defaults to the "type" member of fields
func NewRecord(typ string, fields map[string]any) *Record {
	if t, ok := fields["type"].(string); ok && t != "" {
		typ = t
	}
	return &Record{Type: typ, Fields: fields}
}

// ResourceType returns the record type
func (r *Record) ResourceType() string { return r.Type }

// ReadAttribute returns the named member; missing members read as nil
func (r *Record) ReadAttribute(name string) (any, error) {
	return r.Fields[name], nil
}

// UpdatedAt parses the "updated_at" member as RFC 3339. The zero time means
// the record has no usable timestamp.
func (r *Record) UpdatedAt() time.Time {
	switch v := r.Fields["updated_at"].(type) {
	case string:
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return time.Time{}
		}
		return t
	case time.Time:
		return v
	}
	return time.Time{}
}

// CacheKey returns the "cache_key" member, if any
func (r *Record) CacheKey() string {
	key, _ := r.Fields["cache_key"].(string)
	return key
}

// MarshalJSON renders the record as its fields when it has no descriptor
func (r *Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Fields)
}

// Page is a page of records with the pagination capability
type Page struct {
	Records []*Record
	Number  int
	Size    int
	Pages   int
}

// Items returns the records of the page
func (p *Page) Items() []any {
	items := make([]any, len(p.Records))
	for i, r := range p.Records {
		items[i] = r
	}
	return items
}

// CurrentPage returns the page number
func (p *Page) CurrentPage() int { return p.Number }

// TotalPages returns the number of pages
func (p *Page) TotalPages() int { return p.Pages }

// PageSize returns the number of records per page
func (p *Page) PageSize() int { return p.Size }

type pageDocument struct {
	Data []map[string]any `json:"data"`
	Page *struct {
		Number     int `json:"number"`
		Size       int `json:"size"`
		TotalPages int `json:"total_pages"`
	} `json:"page"`
}

// Decode turns JSON input into something a serializer can render: a
// *Record for an object, a []any of records for an array, or a *Page for
// {"data": [...], "page": {"number", "size", "total_pages"}}. typ applies
// to records without a "type" member. Numbers decode as json.Number so
// large ids keep their digits.
func Decode(data []byte, typ string) (any, error) {
	var probe any
	if err := unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("failed to decode records: %w", err)
	}

	switch v := probe.(type) {
	case []any:
		return records(v, typ)
	case map[string]any:
		if _, paged := v["page"]; paged {
			if _, ok := v["data"].([]any); ok {
				return decodePage(data, typ)
			}
		}
		return NewRecord(typ, v), nil
	default:
		return nil, fmt.Errorf("records must be a JSON object or array, got %T", probe)
	}
}

func unmarshal(data []byte, v any) error {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	return decoder.Decode(v)
}

func records(items []any, typ string) ([]any, error) {
	out := make([]any, len(items))
	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("record %d: expected an object, got %T", i, item)
		}
		out[i] = NewRecord(typ, m)
	}
	return out, nil
}

func decodePage(data []byte, typ string) (*Page, error) {
	var doc pageDocument
	if err := unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode page: %w", err)
	}
	p := &Page{Records: make([]*Record, len(doc.Data))}
	for i, m := range doc.Data {
		p.Records[i] = NewRecord(typ, m)
	}
	if doc.Page != nil {
		p.Number = doc.Page.Number
		p.Size = doc.Page.Size
		p.Pages = doc.Page.TotalPages
	}
	return p, nil
}

// related returns a value func reading the named member and typing the
// records found there as resource
func related(name, typ string) resource.ValueFunc {
	return func(b *resource.Binding) (any, error) {
		v, err := resource.ReadValue(b.Object(), name)
		if err != nil {
			return nil, err
		}
		switch x := v.(type) {
		case map[string]any:
			return NewRecord(typ, x), nil
		case []any:
			out := make([]any, len(x))
			for i, item := range x {
				if m, ok := item.(map[string]any); ok {
					out[i] = NewRecord(typ, m)
				} else {
					out[i] = item
				}
			}
			return out, nil
		default:
			return v, nil
		}
	}
}
