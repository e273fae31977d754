package resource

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	casing "github.com/conduit-lang/serializer/internal/util/strings"
)

// AttributeReader lets an object answer attribute reads itself
type AttributeReader interface {
	ReadAttribute(name string) (any, error)
}

// Serializable objects name their own descriptor
type Serializable interface {
	ResourceDescriptor() *Descriptor
}

// Typed objects report a resource name that the registry resolves by name
type Typed interface {
	ResourceType() string
}

// Timestamped objects report when they last changed
type Timestamped interface {
	UpdatedAt() time.Time
}

// CacheKeyer objects provide their own opaque cache key
type CacheKeyer interface {
	CacheKey() string
}

// Enumerable collections expose their items
type Enumerable interface {
	Items() []any
}

// Paginated collections expose page capabilities used for pagination links
type Paginated interface {
	CurrentPage() int
	TotalPages() int
	PageSize() int
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

type accessorKind int

const (
	accessorNone accessorKind = iota
	accessorField
	accessorMethod
)

type accessor struct {
	kind  accessorKind
	index []int
	name  string
}

type accessorKey struct {
	t    reflect.Type
	name string
}

// accessors caches how a name is read from a struct type
var accessors sync.Map

// ReadValue reads name from obj following the object accessor protocol:
// AttributeReader, map key, exported method, then exported struct field.
func ReadValue(obj any, name string) (any, error) {
	if obj == nil {
		return nil, ErrNilObject
	}
	if r, ok := obj.(AttributeReader); ok {
		return r.ReadAttribute(name)
	}
	switch m := obj.(type) {
	case map[string]any:
		return m[name], nil
	case map[string]string:
		if v, ok := m[name]; ok {
			return v, nil
		}
		return nil, nil
	}

	v := reflect.ValueOf(obj)
	if v.Kind() == reflect.Map && v.Type().Key().Kind() == reflect.String {
		value := v.MapIndex(reflect.ValueOf(name).Convert(v.Type().Key()))
		if !value.IsValid() {
			return nil, nil
		}
		return value.Interface(), nil
	}

	acc := lookupAccessor(v.Type(), name)
	switch acc.kind {
	case accessorMethod:
		return callMethod(v.MethodByName(acc.name), name)
	case accessorField:
		for v.Kind() == reflect.Pointer {
			if v.IsNil() {
				return nil, ErrNilObject
			}
			v = v.Elem()
		}
		field, err := v.FieldByIndexErr(acc.index)
		if err != nil {
			// nil embedded pointer on the path
			return nil, nil
		}
		return field.Interface(), nil
	default:
		return nil, fmt.Errorf("%w: %T has no %q", ErrMissingAccessor, obj, name)
	}
}

func callMethod(method reflect.Value, name string) (any, error) {
	out := method.Call(nil)
	switch len(out) {
	case 1:
		return out[0].Interface(), nil
	case 2:
		if err, _ := out[1].Interface().(error); err != nil {
			return nil, err
		}
		return out[0].Interface(), nil
	default:
		return nil, fmt.Errorf("%w: method for %q returns %d values", ErrMissingAccessor, name, len(out))
	}
}

func lookupAccessor(t reflect.Type, name string) accessor {
	key := accessorKey{t: t, name: name}
	if cached, ok := accessors.Load(key); ok {
		return cached.(accessor)
	}
	acc := resolveAccessor(t, name)
	accessors.Store(key, acc)
	return acc
}

func resolveAccessor(t reflect.Type, name string) accessor {
	st := t
	for st.Kind() == reflect.Pointer {
		st = st.Elem()
	}

	// tagged fields win
	if st.Kind() == reflect.Struct {
		for _, f := range reflect.VisibleFields(st) {
			if !f.IsExported() {
				continue
			}
			if tagName(f, "serializer") == name || tagName(f, "json") == name {
				return accessor{kind: accessorField, index: f.Index}
			}
		}
	}

	// zero-argument methods, including those on the pointer receiver
	for i := 0; i < t.NumMethod(); i++ {
		m := t.Method(i)
		if !casing.EqualFoldIdentifier(m.Name, name) {
			continue
		}
		mt := m.Type
		// mt includes the receiver
		if mt.NumIn() != 1 {
			continue
		}
		if mt.NumOut() == 1 || (mt.NumOut() == 2 && mt.Out(1).Implements(errorType)) {
			return accessor{kind: accessorMethod, name: m.Name}
		}
	}

	if st.Kind() == reflect.Struct {
		for _, f := range reflect.VisibleFields(st) {
			if !f.IsExported() || f.Anonymous {
				continue
			}
			if casing.EqualFoldIdentifier(f.Name, name) {
				return accessor{kind: accessorField, index: f.Index}
			}
		}
	}

	return accessor{kind: accessorNone}
}

func tagName(f reflect.StructField, tag string) string {
	value, ok := f.Tag.Lookup(tag)
	if !ok {
		return ""
	}
	name, _, _ := strings.Cut(value, ",")
	if name == "-" {
		return ""
	}
	return name
}

// ReadTimestamp returns the object's update time, if it has a usable one
func ReadTimestamp(obj any) (time.Time, bool) {
	if ts, ok := obj.(Timestamped); ok {
		t := ts.UpdatedAt()
		return t, !t.IsZero()
	}
	v, err := ReadValue(obj, "updated_at")
	if err != nil {
		return time.Time{}, false
	}
	switch t := v.(type) {
	case time.Time:
		return t, !t.IsZero()
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}
		return *t, !t.IsZero()
	default:
		return time.Time{}, false
	}
}

// isNil reports whether v is nil or a typed nil
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

// Enumerate returns the items of a collection value. Strings, byte slices and
// maps are not collections.
func Enumerate(v any) ([]any, bool) {
	if v == nil {
		return nil, false
	}
	if e, ok := v.(Enumerable); ok {
		return e.Items(), true
	}
	if items, ok := v.([]any); ok {
		return items, true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return nil, false
		}
		items := make([]any, rv.Len())
		for i := range items {
			items[i] = rv.Index(i).Interface()
		}
		return items, true
	}
	return nil, false
}
