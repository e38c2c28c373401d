package key

import (
	"encoding/json"
	"math"
	"reflect"
	"strconv"
)

type numberKind int

const (
	signedNumber numberKind = iota
	unsignedNumber
	floatNumber
)

// number holds a numeric segment without losing integer precision.
type number struct {
	kind numberKind
	i    int64
	u    uint64
	f    float64
}

func toNumber(v any) (number, bool) {
	switch n := v.(type) {
	case int:
		return number{kind: signedNumber, i: int64(n)}, true
	case int8:
		return number{kind: signedNumber, i: int64(n)}, true
	case int16:
		return number{kind: signedNumber, i: int64(n)}, true
	case int32:
		return number{kind: signedNumber, i: int64(n)}, true
	case int64:
		return number{kind: signedNumber, i: n}, true
	case uint:
		return number{kind: unsignedNumber, u: uint64(n)}, true
	case uint8:
		return number{kind: unsignedNumber, u: uint64(n)}, true
	case uint16:
		return number{kind: unsignedNumber, u: uint64(n)}, true
	case uint32:
		return number{kind: unsignedNumber, u: uint64(n)}, true
	case uint64:
		return number{kind: unsignedNumber, u: n}, true
	case float32:
		return number{kind: floatNumber, f: float64(n)}, true
	case float64:
		return number{kind: floatNumber, f: n}, true
	case json.Number:
		return parseNumber(n.String())
	}

	// Named numeric types (type CustomerID int, ...).
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return number{kind: signedNumber, i: rv.Int()}, true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return number{kind: unsignedNumber, u: rv.Uint()}, true
	case reflect.Float32, reflect.Float64:
		return number{kind: floatNumber, f: rv.Float()}, true
	}
	return number{}, false
}

func parseNumber(s string) (number, bool) {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return number{kind: signedNumber, i: i}, true
	}
	if u, err := strconv.ParseUint(s, 10, 64); err == nil {
		return number{kind: unsignedNumber, u: u}, true
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return number{kind: floatNumber, f: f}, true
	}
	return number{}, false
}

// integral narrows the number to an exact integer when it holds one. Floats
// qualify only when integral and within int64 or uint64 range.
func (n number) integral() (number, bool) {
	switch n.kind {
	case signedNumber:
		return n, true
	case unsignedNumber:
		if n.u <= math.MaxInt64 {
			return number{kind: signedNumber, i: int64(n.u)}, true
		}
		return n, true
	}
	f := n.f
	if math.IsInf(f, 0) || math.IsNaN(f) || f != math.Trunc(f) {
		return n, false
	}
	if f >= -(1<<63) && f < 1<<63 {
		return number{kind: signedNumber, i: int64(f)}, true
	}
	if f >= 0 && f < 1<<64 {
		return number{kind: unsignedNumber, u: uint64(f)}, true
	}
	return n, false
}

// equal compares by value. Integers compare exactly; a float equals an
// integer only when it is integral and holds the same value.
func (n number) equal(o number) bool {
	a, aInt := n.integral()
	b, bInt := o.integral()
	if aInt && bInt {
		if a.kind != b.kind {
			return false
		}
		return a.i == b.i && a.u == b.u
	}
	if aInt || bInt {
		return false
	}
	return a.f == b.f
}

// encode returns the canonical JSON number for n. Integral values share one
// encoding whatever their Go type.
func (n number) encode() any {
	if in, ok := n.integral(); ok {
		if in.kind == unsignedNumber {
			return json.Number(strconv.FormatUint(in.u, 10))
		}
		return json.Number(strconv.FormatInt(in.i, 10))
	}
	if math.IsInf(n.f, 0) || math.IsNaN(n.f) {
		// Not representable in JSON; String falls back to %v.
		return n.f
	}
	return json.Number(strconv.FormatFloat(n.f, 'g', -1, 64))
}

// decode converts a parsed JSON number back to the narrowest Go value.
func (n number) decode() any {
	switch n.kind {
	case signedNumber:
		return n.i
	case unsignedNumber:
		return n.u
	}
	return n.f
}
