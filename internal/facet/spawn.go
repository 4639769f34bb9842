package facet

import (
	"fmt"

	"github.com/l1jgo/recycler/internal/core/ecs"
	"github.com/l1jgo/recycler/internal/data"
	"gopkg.in/yaml.v3"
)

// BuildFunc makes a facet from its declared YAML fields. fields may be an
// empty node when the prefab declares none.
type BuildFunc func(fields *yaml.Node) (ecs.Facet, error)

// Builders maps facet type names to their YAML builders.
type Builders map[string]BuildFunc

// binder is implemented by facets that reference other nodes by a
// prefab-relative path and need binding after the tree exists.
type binder interface {
	bind(w *ecs.World, root ecs.EntityID) error
}

// decodeInto returns a builder that decodes fields into a fresh T.
func decodeInto[T ecs.Facet](mk func() T) BuildFunc {
	return func(fields *yaml.Node) (ecs.Facet, error) {
		f := mk()
		if fields != nil && fields.Kind != 0 {
			if err := fields.Decode(f); err != nil {
				return nil, err
			}
		}
		return f, nil
	}
}

// DefaultBuilders covers the stock facet types.
func DefaultBuilders() Builders {
	return Builders{
		TypeTransform: decodeInto(func() *Transform { return &Transform{Scale: 1} }),
		TypeTag:       decodeInto(func() *Tag { return &Tag{} }),
		TypeLink:      decodeInto(func() *Link { return &Link{} }),
		TypeFollow:    decodeInto(func() *Follow { return &Follow{} }),
		TypeCounter:   decodeInto(func() *Counter { return &Counter{} }),
	}
}

// Spawn builds the prefab tree into the world and binds in-tree references.
func Spawn(w *ecs.World, p *data.Prefab, b Builders) (ecs.EntityID, error) {
	var pending []binder
	root, err := spawnNode(w, p, b, &pending)
	if err != nil {
		return 0, err
	}
	for _, f := range pending {
		if err := f.bind(w, root); err != nil {
			w.Destroy(root)
			return 0, fmt.Errorf("spawn %s: %w", p.Name, err)
		}
	}
	return root, nil
}

func spawnNode(w *ecs.World, p *data.Prefab, b Builders, pending *[]binder) (ecs.EntityID, error) {
	id := w.NewNode()
	w.SetName(id, p.Name)
	w.SetActive(id, p.IsActive())
	for i := range p.Facets {
		spec := &p.Facets[i]
		build, ok := b[spec.Type]
		if !ok {
			w.Destroy(id)
			return 0, fmt.Errorf("spawn %s: no builder for facet type %q", p.Name, spec.Type)
		}
		f, err := build(&spec.Fields)
		if err != nil {
			w.Destroy(id)
			return 0, fmt.Errorf("spawn %s: build %s: %w", p.Name, spec.Type, err)
		}
		w.AddFacet(id, f)
		if bf, ok := f.(binder); ok {
			*pending = append(*pending, bf)
		}
	}
	for _, c := range p.Children {
		child, err := spawnNode(w, c, b, pending)
		if err != nil {
			w.Destroy(id)
			return 0, err
		}
		w.SetParent(child, id)
	}
	return id, nil
}

func (l *Link) bind(w *ecs.World, root ecs.EntityID) error {
	if l.Path == "" {
		return nil
	}
	n, ok := w.Find(root, l.Path)
	if !ok {
		return fmt.Errorf("link target %q not found", l.Path)
	}
	l.Target = n
	return nil
}

func (f *Follow) bind(w *ecs.World, root ecs.EntityID) error {
	if f.Path == "" {
		return nil
	}
	n, ok := w.Find(root, f.Path)
	if !ok {
		return fmt.Errorf("follow target %q not found", f.Path)
	}
	for _, g := range w.Facets(n) {
		if t, ok := g.(*Transform); ok {
			f.Target = t
			return nil
		}
	}
	return fmt.Errorf("follow target %q has no transform", f.Path)
}
