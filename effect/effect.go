package effect

import (
	"github.com/huykn/mutation-cache/key"
)

// Update writes Value to the cache slot identified by the exact key Key.
type Update struct {
	Key   key.Key
	Value any
}

// Descriptor lists the cache consequences of one completed mutation.
//
// The three lists are independent and any of them may be empty. Update keys are
// exact keys; Invalidate and Remove keys are prefix patterns.
type Descriptor struct {
	// Update entries overwrite cached values in place. Later entries for the
	// same key win.
	Update []Update

	// Invalidate patterns mark every matching entry stale.
	Invalidate []key.Key

	// Remove patterns evict every matching entry.
	Remove []key.Key
}

// IsEmpty reports whether the descriptor has no effect at all.
func (d Descriptor) IsEmpty() bool {
	return len(d.Update) == 0 && len(d.Invalidate) == 0 && len(d.Remove) == 0
}

// Set builds an Update entry.
func Set(k key.Key, value any) Update {
	return Update{Key: k, Value: value}
}

// Keys collects patterns into a slice, for use in Invalidate and Remove lists.
func Keys(patterns ...key.Key) []key.Key {
	return patterns
}

// Merge concatenates descriptors list by list, keeping the order in which
// they were given.
func Merge(ds ...Descriptor) Descriptor {
	var out Descriptor
	for _, d := range ds {
		out.Update = append(out.Update, d.Update...)
		out.Invalidate = append(out.Invalidate, d.Invalidate...)
		out.Remove = append(out.Remove, d.Remove...)
	}
	return out
}
