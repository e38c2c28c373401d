package key

import (
	"errors"
	"testing"
)

type customerID int

type resource string

func TestMatch(t *testing.T) {
	tests := []struct {
		name    string
		pattern Key
		key     Key
		want    bool
	}{
		{
			name:    "exact match",
			pattern: New("customer", "123"),
			key:     New("customer", "123"),
			want:    true,
		},
		{
			name:    "prefix match",
			pattern: New("customer", "123"),
			key:     New("customer", "123", "orders"),
			want:    true,
		},
		{
			name:    "different value",
			pattern: New("customer", "123"),
			key:     New("customer", "456"),
			want:    false,
		},
		{
			name:    "pattern longer than key",
			pattern: New("customer", "123", "orders"),
			key:     New("customer", "123"),
			want:    false,
		},
		{
			name:    "empty pattern matches everything",
			pattern: New(),
			key:     New("customer", "123"),
			want:    true,
		},
		{
			name:    "empty pattern matches empty key",
			pattern: nil,
			key:     nil,
			want:    true,
		},
		{
			name:    "numbers compare numerically",
			pattern: New("order", 9),
			key:     New("order", float64(9)),
			want:    true,
		},
		{
			name:    "integers above 2^53 compare exactly",
			pattern: New("order", int64(9007199254740993)),
			key:     New("order", int64(9007199254740992)),
			want:    false,
		},
		{
			name:    "max uint64 compares exactly",
			pattern: New("order", uint64(18446744073709551615)),
			key:     New("order", uint64(18446744073709551614)),
			want:    false,
		},
		{
			name:    "integral float equals exact integer",
			pattern: New("order", float64(9007199254740992)),
			key:     New("order", int64(9007199254740992)),
			want:    true,
		},
		{
			name:    "float does not equal the integer it rounds to",
			pattern: New("order", float64(9007199254740992)),
			key:     New("order", int64(9007199254740993)),
			want:    false,
		},
		{
			name:    "negative int never equals unsigned",
			pattern: New("order", int64(-1)),
			key:     New("order", uint64(18446744073709551615)),
			want:    false,
		},
		{
			name:    "named numeric type",
			pattern: New("customer", customerID(7)),
			key:     New("customer", int64(7)),
			want:    true,
		},
		{
			name:    "named string type",
			pattern: New(resource("customer")),
			key:     New("customer", "1"),
			want:    true,
		},
		{
			name:    "string and number differ",
			pattern: New("order", "9"),
			key:     New("order", 9),
			want:    false,
		},
		{
			name:    "bool segment",
			pattern: New("basket", true),
			key:     New("basket", true, "items"),
			want:    true,
		},
		{
			name:    "nil segments",
			pattern: New("basket", nil),
			key:     New("basket", nil),
			want:    true,
		},
		{
			name:    "nil against value",
			pattern: New("basket", nil),
			key:     New("basket", ""),
			want:    false,
		},
		{
			name:    "structured segments equal",
			pattern: New("customer", Fields{"id": "123", "expand": "addresses"}),
			key:     New("customer", Fields{"expand": "addresses", "id": "123"}),
			want:    true,
		},
		{
			name:    "plain map counts as structured",
			pattern: New("customer", Fields{"id": "123"}),
			key:     New("customer", map[string]any{"id": "123"}),
			want:    true,
		},
		{
			name:    "structured segments with extra field",
			pattern: New("customer", Fields{"id": "123"}),
			key:     New("customer", Fields{"id": "123", "expand": "addresses"}),
			want:    false,
		},
		{
			name:    "structured segments different value",
			pattern: New("customer", Fields{"id": "123"}),
			key:     New("customer", Fields{"id": "124"}),
			want:    false,
		},
		{
			name:    "structured against primitive",
			pattern: New("customer", Fields{"id": "123"}),
			key:     New("customer", "123"),
			want:    false,
		},
		{
			name:    "primitive against structured",
			pattern: New("customer", "123"),
			key:     New("customer", Fields{"id": "123"}),
			want:    false,
		},
		{
			name:    "nested structured value never matches",
			pattern: New("customer", Fields{"filter": map[string]any{"a": 1}}),
			key:     New("customer", Fields{"filter": map[string]any{"a": 1}}),
			want:    false,
		},
		{
			name:    "slice segment never matches",
			pattern: New("customer", []string{"a"}),
			key:     New("customer", []string{"a"}),
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Match(tt.pattern, tt.key); got != tt.want {
				t.Fatalf("Match(%v, %v) = %v, want %v", tt.pattern, tt.key, got, tt.want)
			}
		})
	}
}

func TestMatchLongerPatternNeverMatches(t *testing.T) {
	keys := []Key{
		nil,
		New("a"),
		New("a", "b"),
		New(Fields{"x": 1}, "b"),
	}
	for _, k := range keys {
		pattern := k.Append("extra")
		if Match(pattern, k) {
			t.Fatalf("pattern %v longer than key %v should not match", pattern, k)
		}
	}
}

func TestMatchFieldOrderIndependent(t *testing.T) {
	// Build the same structured segment in two different insertion orders.
	s1 := Fields{}
	s1["siteId"] = "RefArch"
	s1["locale"] = "en-US"
	s1["currency"] = "USD"

	s2 := Fields{}
	s2["currency"] = "USD"
	s2["siteId"] = "RefArch"
	s2["locale"] = "en-US"

	if !Match(New(s1), New(s2)) {
		t.Fatal("structured segments with the same fields should match regardless of order")
	}
	if !Match(New(s2), New(s1)) {
		t.Fatal("match should be symmetric for equal structured segments")
	}
}

func TestMatchPrefixProperty(t *testing.T) {
	patterns := []Key{
		New(),
		New("customer"),
		New("customer", "123"),
		New("customer", "999"),
		New("customer", Fields{"id": "123"}),
	}
	base := New("customer", "123")
	extended := base.Append("addresses", "9", Fields{"expand": "all"})

	for _, p := range patterns {
		if Match(p, base) != Match(p, extended) {
			t.Fatalf("appending segments changed the result for pattern %v", p)
		}
	}
}

func TestMatcher(t *testing.T) {
	pred := Matcher(New("customer", "123"))
	if !pred(New("customer", "123", "orders")) {
		t.Fatal("predicate should select key under the pattern")
	}
	if pred(New("product", "123")) {
		t.Fatal("predicate should not select unrelated key")
	}
}

func TestMatchAny(t *testing.T) {
	patterns := []Key{New("customer", "1"), New("basket")}
	if !MatchAny(patterns, New("basket", "b1")) {
		t.Fatal("expected basket key to match")
	}
	if MatchAny(patterns, New("customer", "2")) {
		t.Fatal("expected customer 2 not to match")
	}
	if MatchAny(nil, New("customer", "2")) {
		t.Fatal("no patterns should match nothing")
	}
}

func TestValidate(t *testing.T) {
	if err := Validate(New("customer", 1, true, nil, Fields{"id": "1", "n": 2.5})); err != nil {
		t.Fatalf("Validate returned error for well-formed key: %v", err)
	}

	malformed := []Key{
		New("customer", Fields{"nested": Fields{"id": "1"}}),
		New("customer", []int{1, 2}),
		New(struct{ ID string }{ID: "1"}),
	}
	for _, k := range malformed {
		err := Validate(k)
		if !errors.Is(err, ErrMalformedPattern) {
			t.Fatalf("Validate(%v) = %v, want ErrMalformedPattern", k, err)
		}
	}
}
