package library

import (
	"sort"
)

// Canonical in-memory field types:
//
//	collections  []string
//	tags         []string
//	creators     []Creator
//	relations    map[string][]string
//	anything else string (or the raw payload value when not a string)
//
// normalizeValue maps a wire value onto its canonical form on the way in,
// encodeValue maps it back on the way out.

func normalizeValue(field string, v any) any {
	switch field {
	case "collections":
		return toStringSlice(v)
	case "tags":
		return decodeTags(v)
	case "creators":
		return decodeCreators(v)
	case "relations":
		return decodeRelations(v)
	default:
		return v
	}
}

func encodeValue(field string, v any) any {
	switch field {
	case "collections":
		s, _ := v.([]string)
		out := make([]any, len(s))
		for i, e := range s {
			out[i] = e
		}
		return out
	case "tags":
		s, _ := v.([]string)
		out := make([]any, len(s))
		for i, t := range s {
			out[i] = map[string]any{"tag": t}
		}
		return out
	case "creators":
		cs, _ := v.([]Creator)
		out := make([]any, len(cs))
		for i, c := range cs {
			out[i] = c.toPayload()
		}
		return out
	case "relations":
		m, _ := v.(map[string][]string)
		out := make(map[string]any, len(m))
		for pred, objs := range m {
			if len(objs) == 1 {
				out[pred] = objs[0]
				continue
			}
			vals := make([]any, len(objs))
			for i, o := range objs {
				vals[i] = o
			}
			out[pred] = vals
		}
		return out
	default:
		return v
	}
}

func toStringSlice(v any) []string {
	switch t := v.(type) {
	case []string:
		out := make([]string, len(t))
		copy(out, t)
		return out
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case nil:
		return nil
	default:
		return nil
	}
}

// decodeTags accepts both the object form [{"tag": t}] and a bare string
// list.
func decodeTags(v any) []string {
	switch t := v.(type) {
	case []string:
		out := make([]string, len(t))
		copy(out, t)
		return out
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			switch tag := e.(type) {
			case string:
				out = append(out, tag)
			case map[string]any:
				if s, ok := tag["tag"].(string); ok {
					out = append(out, s)
				}
			}
		}
		return out
	default:
		return nil
	}
}

// decodeRelations accepts predicate values as either a single string or a
// list of strings.
func decodeRelations(v any) map[string][]string {
	switch t := v.(type) {
	case map[string][]string:
		out := make(map[string][]string, len(t))
		for k, objs := range t {
			cp := make([]string, len(objs))
			copy(cp, objs)
			out[k] = cp
		}
		return out
	case map[string]any:
		out := make(map[string][]string, len(t))
		for pred, val := range t {
			switch o := val.(type) {
			case string:
				out[pred] = []string{o}
			case []any:
				out[pred] = toStringSlice(o)
			case []string:
				out[pred] = toStringSlice(o)
			}
		}
		return out
	default:
		return nil
	}
}

func valuesEqual(a, b any) bool {
	switch av := a.(type) {
	case []string:
		bv, ok := b.([]string)
		if !ok || len(av) != len(bv) {
			return false
		}
		as := append([]string(nil), av...)
		bs := append([]string(nil), bv...)
		sort.Strings(as)
		sort.Strings(bs)
		for i := range as {
			if as[i] != bs[i] {
				return false
			}
		}
		return true
	case []Creator:
		bv, ok := b.([]Creator)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if av[i] != bv[i] {
				return false
			}
		}
		return true
	case map[string][]string:
		bv, ok := b.(map[string][]string)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, objs := range av {
			if !valuesEqual(objs, bv[k]) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}

func isEmptyValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case bool:
		return !t
	case []string:
		return len(t) == 0
	case []Creator:
		return len(t) == 0
	case []any:
		return len(t) == 0
	case map[string][]string:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	default:
		return false
	}
}

// addString inserts s into the slice if absent, keeping order.
func addString(list []string, s string) []string {
	for _, e := range list {
		if e == s {
			return list
		}
	}
	return append(list, s)
}

func removeString(list []string, s string) []string {
	out := list[:0]
	for _, e := range list {
		if e != s {
			out = append(out, e)
		}
	}
	return out
}

func containsString(list []string, s string) bool {
	for _, e := range list {
		if e == s {
			return true
		}
	}
	return false
}
