package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/conduit-lang/serializer/pkg/resource"
)

// timestampLayout formats updated_at to the second; nanoseconds are appended
// zero-padded so that sub-second updates change the key
const timestampLayout = "20060102150405"

// ResourceKey returns the per-object part of a fragment key:
//
//	{policy key}/{id}-{updated_at}   when the policy names a key
//	{uuid}-{updated_at}              otherwise, a SHA1 UUID of name, Go type and id
//
// Objects without an id or usable updated_at fall back to their CacheKeyer
// key. ok is false when no key can be built.
func ResourceKey(b *resource.Binding) (key string, ok bool, err error) {
	d := b.Descriptor()
	if d == nil {
		return "", false, nil
	}

	id, err := b.ID()
	if err != nil {
		return "", false, err
	}

	if ts, hasTS := resource.ReadTimestamp(b.Object()); hasTS && id != "" {
		var root string
		if policy := d.CachePolicy(); policy != nil && policy.Key != "" {
			root = policy.Key + "/" + id
		} else {
			name := d.Name() + "|" + goTypeName(b.Object()) + "|" + id
			root = uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)).String()
		}
		return root + "-" + FormatTimestamp(ts), true, nil
	}

	if keyer, isKeyer := b.Object().(resource.CacheKeyer); isKeyer {
		if k := keyer.CacheKey(); k != "" {
			return k, true, nil
		}
	}
	return "", false, nil
}

// FormatTimestamp renders t in UTC as YYYYMMDDhhmmss followed by nine digits
// of nanoseconds
func FormatTimestamp(t time.Time) string {
	t = t.UTC()
	return t.Format(timestampLayout) + fmt.Sprintf("%09d", t.Nanosecond())
}

// FieldsetDigest returns a short order-independent digest of a field list
func FieldsetDigest(fields []string) string {
	sorted := append([]string(nil), fields...)
	sort.Strings(sorted)
	hash := sha256.Sum256([]byte(strings.Join(sorted, ",")))
	// 16 bytes is plenty to tell fieldsets apart
	return hex.EncodeToString(hash[:16])
}

// FragmentKey joins the parts of a fragment key with "/", skipping empty parts
func FragmentKey(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, "/")
}

func goTypeName(obj any) string {
	t := reflect.TypeOf(obj)
	if t == nil {
		return "nil"
	}
	return t.String()
}
