package key

// Match reports whether pattern selects k. Matching is positional and
// prefix-style: every segment of pattern must equal the segment of k at the
// same index, and segments of k past len(pattern) are ignored. A pattern longer
// than k never matches; an empty pattern matches every key.
//
// Structured segments match when they hold the same field names with equal
// values, regardless of field order. A structured segment never matches a
// primitive one, and segments the matcher cannot compare (nested maps, slices,
// structs) never match anything.
func Match(pattern, k Key) bool {
	if len(pattern) > len(k) {
		return false
	}
	for i, seg := range pattern {
		if !segmentEqual(seg, k[i]) {
			return false
		}
	}
	return true
}

// Matcher returns a predicate selecting the keys matched by pattern.
func Matcher(pattern Key) func(Key) bool {
	return func(k Key) bool {
		return Match(pattern, k)
	}
}

// MatchAny reports whether any of patterns selects k.
func MatchAny(patterns []Key, k Key) bool {
	for _, p := range patterns {
		if Match(p, k) {
			return true
		}
	}
	return false
}

func segmentEqual(a, b any) bool {
	fa, aStructured := asFields(a)
	fb, bStructured := asFields(b)
	switch {
	case aStructured && bStructured:
		return fieldsEqual(fa, fb)
	case aStructured || bStructured:
		return false
	}
	return primitiveEqual(a, b)
}

func fieldsEqual(a, b map[string]any) bool {
	if len(a) != len(b) {
		return false
	}
	for name, av := range a {
		bv, ok := b[name]
		if !ok || !primitiveEqual(av, bv) {
			return false
		}
	}
	return true
}

// primitiveEqual compares two primitive values. Anything that is not a
// primitive compares unequal, including to itself.
func primitiveEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if na, ok := toNumber(a); ok {
		nb, ok := toNumber(b)
		return ok && na.equal(nb)
	}
	if sa, ok := toString(a); ok {
		sb, ok := toString(b)
		return ok && sa == sb
	}
	if ba, ok := toBool(a); ok {
		bb, ok := toBool(b)
		return ok && ba == bb
	}
	return false
}
