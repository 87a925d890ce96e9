package fetch

import (
	"maps"
	"net/http"
	"slices"
	"strings"
)

// MergeHeaders builds the outgoing header map. Allowed passthrough headers go
// in first (multi-values joined with ", "), then allowed tool headers, which
// replace any passthrough header of the same name. Everything else is dropped.
// Keys keep the casing of the source that supplied the value. Names are
// visited in sorted order so inputs differing only in case resolve the same
// way on every call.
func MergeHeaders(tool map[string]string, passthrough http.Header, p *Policy) map[string]string {
	out := make(map[string]string)
	names := make(map[string]string)

	put := func(name, value string) {
		lower := strings.ToLower(name)
		if prev, ok := names[lower]; ok {
			delete(out, prev)
		}
		names[lower] = name
		out[name] = value
	}

	for _, name := range slices.Sorted(maps.Keys(passthrough)) {
		if !p.AllowsPassthroughHeader(name) {
			continue
		}
		put(name, strings.Join(passthrough[name], ", "))
	}
	for _, name := range slices.Sorted(maps.Keys(tool)) {
		if !p.AllowsToolHeader(name) {
			continue
		}
		put(name, tool[name])
	}
	return out
}
