// Package composition identifies nodes by the ordered list of facet types
// attached to them. Handles are the pool keys of the recycler.
package composition

import (
	"strings"

	"github.com/cespare/xxhash/v2"
)

const (
	hashSeed       = 17
	hashMultiplier = 37
)

// Handle represents one composition: an ordered list of facet type names.
// Two handles are equal iff their lists are equal element by element.
type Handle struct {
	types []string
	hash  uint64
}

// Of builds a handle from the given type names. The list is copied.
func Of(types ...string) *Handle {
	cp := make([]string, len(types))
	copy(cp, types)
	return &Handle{types: cp, hash: Hash(cp)}
}

// Hash computes the order-sensitive rolling hash of a type list.
func Hash(types []string) uint64 {
	h := uint64(hashSeed)
	for _, t := range types {
		h = h*hashMultiplier + xxhash.Sum64String(t)
	}
	return h
}

func (h *Handle) Hash() uint64 { return h.hash }
func (h *Handle) Len() int     { return len(h.types) }

// Types returns the facet type names. The slice must not be modified.
func (h *Handle) Types() []string { return h.types }

// Equal compares hashes first and falls back to the full list on a match.
func (h *Handle) Equal(o *Handle) bool {
	if h == o {
		return true
	}
	if h == nil || o == nil || h.hash != o.hash {
		return false
	}
	return sameTypes(h.types, o.types)
}

// Matches reports whether h names exactly the given type list.
func (h *Handle) Matches(types []string) bool {
	return h.hash == Hash(types) && sameTypes(h.types, types)
}

func (h *Handle) String() string {
	if h == nil {
		return "<nil>"
	}
	return "[" + strings.Join(h.types, ",") + "]"
}

func sameTypes(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
