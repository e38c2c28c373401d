package key

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// ErrMalformedPattern is returned by Validate when a key holds a segment the
// matcher cannot compare.
var ErrMalformedPattern = errors.New("malformed key pattern")

// Key is an ordered sequence of segments identifying one cached result.
// A segment is a primitive (string, bool, number or nil) or a Fields value.
type Key []any

// Fields is a structured key segment. Field order never affects matching.
type Fields map[string]any

// New builds a key from the given segments.
func New(segments ...any) Key {
	return Key(segments)
}

// Append returns a new key with extra segments after k. k is not modified.
func (k Key) Append(segments ...any) Key {
	out := make(Key, 0, len(k)+len(segments))
	out = append(out, k...)
	return append(out, segments...)
}

// Head returns the first segment of the key, or nil for an empty key.
func (k Key) Head() any {
	if len(k) == 0 {
		return nil
	}
	return k[0]
}

// String returns the canonical encoding of the key. Two keys that match each
// other exactly (same length, every segment equal) share the same encoding.
// The encoding identifies cache slots; it is never used for pattern matching.
func (k Key) String() string {
	data, err := json.Marshal(canonical(k))
	if err != nil {
		return fmt.Sprintf("%v", []any(k))
	}
	return string(data)
}

// Equal reports whether k and other have the same length and match segment by segment.
func (k Key) Equal(other Key) bool {
	return len(k) == len(other) && Match(k, other)
}

// Parse decodes a canonical key encoding produced by Key.String.
func Parse(s string) (Key, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var raw []any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("parse key %q: %w", s, err)
	}
	k := make(Key, len(raw))
	for i, seg := range raw {
		if m, ok := seg.(map[string]any); ok {
			fields := make(Fields, len(m))
			for name, v := range m {
				fields[name] = decodeValue(v)
			}
			k[i] = fields
			continue
		}
		k[i] = decodeValue(seg)
	}
	return k, nil
}

// Validate reports ErrMalformedPattern when a segment is neither a primitive nor
// a flat structured segment. Such keys are legal but never match anything.
func Validate(k Key) error {
	for i, seg := range k {
		if fields, ok := asFields(seg); ok {
			for name, v := range fields {
				if !isPrimitive(v) {
					return fmt.Errorf("%w: segment %d field %q has type %T", ErrMalformedPattern, i, name, v)
				}
			}
			continue
		}
		if !isPrimitive(seg) {
			return fmt.Errorf("%w: segment %d has type %T", ErrMalformedPattern, i, seg)
		}
	}
	return nil
}

// canonical converts numeric segments to JSON numbers so that int(9),
// uint8(9) and float64(9) share an encoding while distinct integers never do. Fields are marshalled with sorted field names by encoding/json.
func canonical(k Key) []any {
	out := make([]any, len(k))
	for i, seg := range k {
		if fields, ok := asFields(seg); ok {
			m := make(map[string]any, len(fields))
			for name, v := range fields {
				m[name] = canonicalValue(v)
			}
			out[i] = m
			continue
		}
		out[i] = canonicalValue(seg)
	}
	return out
}

func canonicalValue(v any) any {
	if n, ok := toNumber(v); ok {
		return n.encode()
	}
	if s, ok := toString(v); ok {
		return s
	}
	if b, ok := toBool(v); ok {
		return b
	}
	return v
}

func asFields(seg any) (map[string]any, bool) {
	switch f := seg.(type) {
	case Fields:
		return f, true
	case map[string]any:
		return f, true
	}
	return nil, false
}

func isPrimitive(v any) bool {
	if v == nil {
		return true
	}
	if _, ok := toNumber(v); ok {
		return true
	}
	if _, ok := toString(v); ok {
		return true
	}
	_, ok := toBool(v)
	return ok
}

func toString(v any) (string, bool) {
	if s, ok := v.(string); ok {
		return s, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.String {
		return rv.String(), true
	}
	return "", false
}

func toBool(v any) (bool, bool) {
	if b, ok := v.(bool); ok {
		return b, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Bool {
		return rv.Bool(), true
	}
	return false, false
}

func decodeValue(v any) any {
	if jn, ok := v.(json.Number); ok {
		if n, ok := parseNumber(jn.String()); ok {
			return n.decode()
		}
	}
	return v
}
