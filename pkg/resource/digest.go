package resource

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/zeebo/blake3"
)

// computeDigest hashes the declared rules so that cache keys change whenever
// a descriptor's shape changes between deploys.
func computeDigest(d *Descriptor) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "name=%s;type=%s;root=%s;id=%t;meta=%t\n", d.name, d.typeName, d.root, d.id != nil, d.meta != nil)
	for _, a := range d.attributes {
		fmt.Fprintf(&sb, "attr=%s:%s:%t:%t\n", a.Name, a.Key, a.Value != nil, a.If != nil)
	}
	for _, r := range d.relationships {
		target := ""
		if r.Descriptor != nil {
			target = r.Descriptor.name
		}
		fmt.Fprintf(&sb, "rel=%s:%s:%s:%t:%s:%t\n", r.Name, r.Key, r.Kind, r.Polymorphic, target, r.HasVirtualValue)
	}
	for _, l := range d.links {
		fmt.Fprintf(&sb, "link=%s\n", l.Name)
	}
	if d.cache != nil {
		fmt.Fprintf(&sb, "cache=%s:%s:%s:%s:%t\n", d.cache.Key,
			strings.Join(d.cache.Only, ","), strings.Join(d.cache.Except, ","), d.cache.Expires, d.cache.SkipDigest)
	}

	sum := blake3.Sum256([]byte(sb.String()))
	return hex.EncodeToString(sum[:16])
}
