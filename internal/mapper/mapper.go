// Package mapper is the table of per-facet-type state copy routines. A
// composition is supported iff every facet type in it has a base copy
// routine registered here.
package mapper

import (
	"errors"
	"fmt"

	"github.com/l1jgo/recycler/internal/core/ecs"
)

var ErrInvalidMapper = errors.New("invalid mapper")

// NewFunc constructs a blank facet for freshly built pool instances.
type NewFunc func() ecs.Facet

// CopyFunc copies state from src onto dst while the clone tree is being
// assembled. Work that needs the finished tree goes on q.
type CopyFunc func(src, dst ecs.Facet, q *Queue)

// PostCopyFunc runs after the whole clone tree exists.
type PostCopyFunc func(src, dst ecs.Facet, r Resolver)

// DisposeFunc runs on a facet whose node is being retired.
type DisposeFunc func(f ecs.Facet)

// Resolver translates references into the source tree into the matching
// node or facet of the clone. References that point outside the source
// tree come back unchanged.
type Resolver interface {
	Node(ref ecs.EntityID) ecs.EntityID
	Facet(ref ecs.Facet) ecs.Facet
}

// Mapper is the registration for one facet type.
type Mapper struct {
	Type     string
	New      NewFunc
	Copy     CopyFunc
	PostCopy PostCopyFunc // optional
	Dispose  DisposeFunc  // optional
}

// Registry maps facet type names to their mappers.
type Registry struct {
	mappers map[string]*Mapper
}

func NewRegistry() *Registry {
	return &Registry{mappers: make(map[string]*Mapper, 32)}
}

// Register adds or replaces the mapper for m.Type.
func (r *Registry) Register(m Mapper) error {
	if m.Type == "" {
		return fmt.Errorf("%w: empty facet type", ErrInvalidMapper)
	}
	if m.New == nil || m.Copy == nil {
		return fmt.Errorf("%w: %s needs both New and Copy", ErrInvalidMapper, m.Type)
	}
	r.mappers[m.Type] = &m
	return nil
}

func (r *Registry) Unregister(facetType string) {
	delete(r.mappers, facetType)
}

func (r *Registry) Get(facetType string) (*Mapper, bool) {
	m, ok := r.mappers[facetType]
	return m, ok
}

// Supported returns the first type in the list that has no mapper.
func (r *Registry) Supported(types []string) (string, bool) {
	for _, t := range types {
		if _, ok := r.mappers[t]; !ok {
			return t, false
		}
	}
	return "", true
}

func (r *Registry) Count() int {
	return len(r.mappers)
}

// Typed is the strongly typed form of Mapper, adapted by Register.
type Typed[T ecs.Facet] struct {
	New      func() T
	Copy     func(src, dst T, q *Queue)
	PostCopy func(src, dst T, r Resolver)
	Dispose  func(f T)
}

// Register adds a typed mapper under name.
func Register[T ecs.Facet](r *Registry, name string, m Typed[T]) error {
	if m.New == nil || m.Copy == nil {
		return fmt.Errorf("%w: %s needs both New and Copy", ErrInvalidMapper, name)
	}
	erased := Mapper{
		Type: name,
		New:  func() ecs.Facet { return m.New() },
		Copy: func(src, dst ecs.Facet, q *Queue) {
			m.Copy(src.(T), dst.(T), q)
		},
	}
	if m.PostCopy != nil {
		erased.PostCopy = func(src, dst ecs.Facet, res Resolver) {
			m.PostCopy(src.(T), dst.(T), res)
		}
	}
	if m.Dispose != nil {
		erased.Dispose = func(f ecs.Facet) { m.Dispose(f.(T)) }
	}
	return r.Register(erased)
}
