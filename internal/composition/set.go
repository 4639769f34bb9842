package composition

// Set interns handles so that equal compositions share one canonical
// instance. It is a lookup cache: equality never depends on pointer identity.
type Set struct {
	buckets map[uint64][]*Handle
	n       int
}

func NewSet() *Set {
	return &Set{buckets: make(map[uint64][]*Handle, 64)}
}

// Intern returns the canonical handle equal to h and whether one was
// already present. When none is present h itself becomes canonical.
func (s *Set) Intern(h *Handle) (*Handle, bool) {
	for _, c := range s.buckets[h.hash] {
		if c.Equal(h) {
			return c, true
		}
	}
	s.buckets[h.hash] = append(s.buckets[h.hash], h)
	s.n++
	return h, false
}

// Lookup finds the canonical handle for a type list without allocating.
func (s *Set) Lookup(types []string) (*Handle, bool) {
	hash := Hash(types)
	for _, c := range s.buckets[hash] {
		if sameTypes(c.types, types) {
			return c, true
		}
	}
	return nil, false
}

// Resolve returns the canonical handle for types, interning a copy of the
// list if it has never been seen.
func (s *Set) Resolve(types []string) *Handle {
	if h, ok := s.Lookup(types); ok {
		return h
	}
	h, _ := s.Intern(Of(types...))
	return h
}

func (s *Set) Len() int { return s.n }
