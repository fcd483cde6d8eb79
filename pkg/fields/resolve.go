package fields

import "strings"

// Normalize lowercases key and drops everything that is not an ASCII letter
// or digit, so "Visitor_Name", "visitor-name" and "VisitorName" collide.
func Normalize(key string) string {
	var b strings.Builder
	b.Grow(len(key))
	for _, r := range strings.ToLower(key) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// FindKey returns the key of src that holds the field named by candidates.
//
// Exact matches are tried first, in candidate order. Only when none of the
// candidates is present verbatim are the record's own keys scanned, in the
// record's order, for one that normalizes to any candidate.
func FindKey(src Source, candidates []string) (string, bool) {
	if src == nil {
		return "", false
	}
	for _, k := range candidates {
		if _, ok := src.Lookup(k); ok {
			return k, true
		}
	}

	wanted := make(map[string]struct{}, len(candidates))
	for _, k := range candidates {
		wanted[Normalize(k)] = struct{}{}
	}
	for _, existing := range src.Keys() {
		if _, ok := wanted[Normalize(existing)]; ok {
			return existing, true
		}
	}
	return "", false
}

// PickFirst returns the value of the field named by candidates. An empty
// string is reported as absent.
func PickFirst(src Source, candidates []string) (any, bool) {
	k, ok := FindKey(src, candidates)
	if !ok {
		return nil, false
	}
	v, _ := src.Lookup(k)
	if s, isString := v.(string); isString && s == "" {
		return nil, false
	}
	return v, true
}
