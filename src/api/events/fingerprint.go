package events

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/OneOfOne/xxhash"
)

// Fingerprint computes a stable content hash over an event's identifying
// fields. Map key order does not matter and scalar types are not
// respected: "1" and 1 hash identically, so upstream re-serialization of
// the same event cannot defeat the duplicate check.
func Fingerprint(blockNumber uint64, payload map[string]interface{}, network, chain string) string {
	h := xxhash.New64()
	writeCanonical(h, map[string]interface{}{
		"block_number": blockNumber,
		"event_data":   payload,
		"network":      network,
		"chain":        chain,
	})
	return strconv.FormatUint(h.Sum64(), 16)
}

func writeCanonical(h *xxhash.XXHash64, v interface{}) {
	switch t := v.(type) {
	case nil:
		h.WriteString("~\x00")
	case map[string]interface{}:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		h.WriteString("{")
		for _, k := range keys {
			h.WriteString(k)
			h.WriteString("=")
			writeCanonical(h, t[k])
		}
		h.WriteString("}")
	case []interface{}:
		h.WriteString("[")
		for _, e := range t {
			writeCanonical(h, e)
		}
		h.WriteString("]")
	default:
		h.WriteString(scalarString(t))
		h.WriteString("\x00")
	}
}

// scalarString renders scalars so that numerically equal values produce
// the same bytes regardless of their Go type.
func scalarString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case uint64:
		return strconv.FormatUint(t, 10)
	case json.Number:
		return t.String()
	default:
		return fmt.Sprintf("%v", t)
	}
}
