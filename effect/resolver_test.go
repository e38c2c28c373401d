package effect

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/huykn/mutation-cache/key"
)

func testRegistry() Registry {
	return Registry{
		"updateCustomer": func(params map[string]any, response any) Descriptor {
			return Descriptor{
				Update: []Update{Set(key.New("customer", Param(params, "id")), response)},
			}
		},
		"deleteAddress": func(params map[string]any, response any) Descriptor {
			return Descriptor{
				Remove: Keys(key.New("customer", Param(params, "customerId"), "addresses", Param(params, "addressId"))),
			}
		},
	}
}

func TestResolveUpdate(t *testing.T) {
	r := NewResolver(testRegistry())

	response := map[string]any{"email": "a@b.com"}
	d, err := r.Resolve("updateCustomer", map[string]any{"id": "123"}, response)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	want := Descriptor{
		Update: []Update{{Key: key.New("customer", "123"), Value: map[string]any{"email": "a@b.com"}}},
	}
	if diff := cmp.Diff(want, d); diff != "" {
		t.Fatalf("descriptor mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveRemove(t *testing.T) {
	r := NewResolver(testRegistry())

	d, err := r.Resolve("deleteAddress", map[string]any{"customerId": "123", "addressId": "9"}, map[string]any{})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	want := Descriptor{Remove: []key.Key{key.New("customer", "123", "addresses", "9")}}
	if diff := cmp.Diff(want, d); diff != "" {
		t.Fatalf("descriptor mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveUnknownKind(t *testing.T) {
	r := NewResolver(testRegistry())

	_, err := r.Resolve("unknownAction", map[string]any{}, map[string]any{})
	if !errors.Is(err, ErrUnknownMutationKind) {
		t.Fatalf("expected ErrUnknownMutationKind, got %v", err)
	}
}

func TestResolveIsDeterministic(t *testing.T) {
	r := NewResolver(testRegistry())
	params := map[string]any{"id": "123"}
	response := map[string]any{"email": "a@b.com"}

	first, err := r.Resolve("updateCustomer", params, response)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	second, err := r.Resolve("updateCustomer", params, response)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("same inputs produced different descriptors:\n%s", diff)
	}
}

func TestNewResolverCopiesRegistry(t *testing.T) {
	reg := testRegistry()
	r := NewResolver(reg)

	delete(reg, "updateCustomer")
	reg["late"] = func(map[string]any, any) Descriptor { return Descriptor{} }

	if !r.Known("updateCustomer") {
		t.Fatal("resolver should keep kinds registered at construction")
	}
	if r.Known("late") {
		t.Fatal("resolver should not observe kinds added after construction")
	}
}

func TestNewResolverSkipsNilFuncs(t *testing.T) {
	r := NewResolver(Registry{"broken": nil})
	if r.Known("broken") {
		t.Fatal("nil resolve function should not be registered")
	}
	if _, err := r.Resolve("broken", nil, nil); !errors.Is(err, ErrUnknownMutationKind) {
		t.Fatalf("expected ErrUnknownMutationKind, got %v", err)
	}
}

func TestKinds(t *testing.T) {
	r := NewResolver(testRegistry())
	want := []string{"deleteAddress", "updateCustomer"}
	if diff := cmp.Diff(want, r.Kinds()); diff != "" {
		t.Fatalf("kinds mismatch (-want +got):\n%s", diff)
	}
}

func TestMerge(t *testing.T) {
	a := Descriptor{
		Update:     []Update{Set(key.New("customer", "1"), "v1")},
		Invalidate: Keys(key.New("customer")),
	}
	b := Descriptor{
		Update: []Update{Set(key.New("customer", "1"), "v2")},
		Remove: Keys(key.New("basket", "b1")),
	}

	got := Merge(a, b)
	want := Descriptor{
		Update: []Update{
			{Key: key.New("customer", "1"), Value: "v1"},
			{Key: key.New("customer", "1"), Value: "v2"},
		},
		Invalidate: []key.Key{key.New("customer")},
		Remove:     []key.Key{key.New("basket", "b1")},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("merge mismatch (-want +got):\n%s", diff)
	}
}

func TestMergeEmpty(t *testing.T) {
	if !Merge().IsEmpty() {
		t.Fatal("merge of nothing should be empty")
	}
	if !Merge(Descriptor{}, Descriptor{}).IsEmpty() {
		t.Fatal("merge of empty descriptors should be empty")
	}
}

func TestChain(t *testing.T) {
	update := func(params map[string]any, response any) Descriptor {
		return Descriptor{Update: []Update{Set(key.New("customer", Param(params, "id")), response)}}
	}
	invalidate := func(params map[string]any, _ any) Descriptor {
		return Descriptor{Invalidate: Keys(key.New("customer", Param(params, "id"), "orders"))}
	}

	fn := Chain(update, nil, invalidate)
	got := fn(map[string]any{"id": "7"}, "resp")

	want := Descriptor{
		Update:     []Update{{Key: key.New("customer", "7"), Value: "resp"}},
		Invalidate: []key.Key{key.New("customer", "7", "orders")},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("chain mismatch (-want +got):\n%s", diff)
	}
}

func TestParam(t *testing.T) {
	params := map[string]any{"id": "123", "n": 9, "nil": nil}
	if Param(params, "id") != "123" {
		t.Fatal("expected string param")
	}
	if Param(params, "n") != "9" {
		t.Fatal("expected formatted number")
	}
	if Param(params, "nil") != "" || Param(params, "missing") != "" {
		t.Fatal("expected empty string for nil or missing param")
	}
	if Param(nil, "id") != "" {
		t.Fatal("expected empty string for nil params")
	}
}

func TestField(t *testing.T) {
	if Field(map[string]any{"addressId": "home"}, "addressId") != "home" {
		t.Fatal("expected field value")
	}
	if Field("not a map", "addressId") != "" {
		t.Fatal("expected empty string for non-map response")
	}
}
