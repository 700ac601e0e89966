package gis

import (
	"encoding/json"
	"strconv"

	"github.com/tbourn/go-search-backend/internal/domain"
)

// MapResult converts a raw provider payload into an ordered SearchResult.
//
// The provider schema is loose, so the walk is lenient: the expected shape is
// {result:{items:[{id,name,address_name},...]}}, but a missing result or
// items node yields an empty result, and missing/null/odd-typed item fields
// become empty strings. Provider order is preserved. The only failure mode is
// syntactically invalid JSON.
func MapResult(raw []byte) (domain.SearchResult, error) {
	var root any
	if err := json.Unmarshal(raw, &root); err != nil {
		return domain.SearchResult{}, err
	}

	out := domain.EmptyResult()
	for _, node := range path(root, "result", "items") {
		item, _ := node.(map[string]any)
		out.Items = append(out.Items, domain.Place{
			ID:      asString(item["id"]),
			Name:    asString(item["name"]),
			Address: asString(item["address_name"]),
		})
	}
	return out, nil
}

// path descends a decoded JSON tree through object keys and returns the
// array at the end, or nil when any step is missing or mistyped.
func path(node any, keys ...string) []any {
	for _, k := range keys {
		obj, ok := node.(map[string]any)
		if !ok {
			return nil
		}
		node = obj[k]
	}
	arr, _ := node.([]any)
	return arr
}

// asString renders a loose JSON scalar as a string: strings pass through,
// numbers and bools are formatted, everything else (null, objects, arrays,
// absent) becomes "".
func asString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}
