package dom

import (
	"fmt"
	"hash/fnv"
	"sort"

	"github.com/reflow-dev/reflow/pkg/view"
)

// nodeKey derives the deterministic reconciliation key for a view node: the
// explicit "key" prop when present, otherwise an FNV hash of the tag and the
// stable (non-function, non-pending) props.
func nodeKey(n *view.Node) string {
	if k := n.Key(); k != "" {
		return "k:" + k
	}
	return fmt.Sprintf("h:%x", stableHash(n))
}

// stableHash hashes tag plus stable props in sorted key order.
func stableHash(n *view.Node) uint64 {
	h := fnv.New64a()
	h.Write([]byte(n.Tag))

	keys := make([]string, 0, len(n.Props))
	for k := range n.Props {
		if stableValue(n.Props[k]) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	for _, k := range keys {
		h.Write([]byte{0})
		h.Write([]byte(k))
		h.Write([]byte{'='})
		fmt.Fprintf(h, "%v", n.Props[k])
	}
	return h.Sum64()
}

// stableValue reports whether a prop value participates in key derivation.
// Functions, event handlers and pending values are unstable.
func stableValue(v any) bool {
	switch v.(type) {
	case string, bool, int, int64, uint64, float64:
		return true
	default:
		return false
	}
}
