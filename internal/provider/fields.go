package provider

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/uaidecants/storefront/internal/normalize"
)

// lookup walks a dotted path ("company.name", "prices.0.price") through a
// value decoded with json.Decoder.UseNumber.
func lookup(v any, path string) (any, bool) {
	cur := v
	for _, part := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]any:
			next, ok := node[part]
			if !ok {
				return nil, false
			}
			cur = next
		case []any:
			i, err := strconv.Atoi(part)
			if err != nil || i < 0 || i >= len(node) {
				return nil, false
			}
			cur = node[i]
		default:
			return nil, false
		}
	}
	return cur, cur != nil
}

// firstMoney returns the first path whose value parses as money.
func firstMoney(entry any, paths []string) (float64, bool) {
	for _, p := range paths {
		v, ok := lookup(entry, p)
		if !ok {
			continue
		}
		if f, ok := normalize.ParseMoney(v); ok {
			return f, true
		}
	}
	return 0, false
}

// firstString returns the first non-empty string or number found at paths,
// or fallback.
func firstString(entry any, paths []string, fallback string) string {
	for _, p := range paths {
		v, ok := lookup(entry, p)
		if !ok {
			continue
		}
		switch s := v.(type) {
		case string:
			if s = strings.TrimSpace(s); s != "" {
				return s
			}
		case json.Number:
			return s.String()
		}
	}
	return fallback
}

// firstInt returns the first path holding a whole number of days.
func firstInt(entry any, paths []string) *int {
	for _, p := range paths {
		v, ok := lookup(entry, p)
		if !ok {
			continue
		}
		var n int64
		var err error
		switch x := v.(type) {
		case json.Number:
			n, err = x.Int64()
			if err != nil {
				f, ferr := x.Float64()
				if ferr != nil {
					continue
				}
				n, err = int64(f), nil
			}
		case string:
			n, err = strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		default:
			continue
		}
		if err != nil || n < 0 {
			continue
		}
		days := int(n)
		return &days
	}
	return nil
}

// listOf finds the candidate array in a decoded response: the root itself
// when it is an array, otherwise the first key holding one.
func listOf(body any, keys []string) []any {
	if list, ok := body.([]any); ok {
		return list
	}
	for _, k := range keys {
		if v, ok := lookup(body, k); ok {
			if list, ok := v.([]any); ok {
				return list
			}
		}
	}
	return nil
}
