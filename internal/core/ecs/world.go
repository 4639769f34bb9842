package ecs

import (
	"reflect"
	"strings"
)

// Facet is a typed unit of data or behavior attached to a node. Facets must
// be pointer types: the world indexes them by identity to answer ownership
// queries.
type Facet interface {
	FacetType() string
}

// Cloner is implemented by facets that know how to deep-copy themselves.
// Facets without it are copied shallowly by Instantiate.
type Cloner interface {
	CloneFacet() Facet
}

// nodeRecord is the structural linkage of one node. It is never a facet and
// never part of a node's composition.
type nodeRecord struct {
	parent   EntityID
	children []EntityID
	facets   []Facet
	active   bool
}

// World is the scene graph the recycler runs against. It owns the entity
// pool, per-node stores and the facet ownership index. Single-goroutine
// access only (tick loop).
type World struct {
	pool     *EntityPool
	registry *Registry
	nodes    *PtrComponentStore[nodeRecord]
	names    *PtrComponentStore[string]
	owners   map[Facet]EntityID
}

func NewWorld() *World {
	w := &World{
		pool:     NewEntityPool(),
		registry: NewRegistry(),
		nodes:    NewPtrComponentStore[nodeRecord](),
		names:    NewPtrComponentStore[string](),
		owners:   make(map[Facet]EntityID, 1024),
	}
	w.registry.Register(w.nodes)
	w.registry.Register(w.names)
	return w
}

func (w *World) Pool() *EntityPool   { return w.pool }
func (w *World) Registry() *Registry { return w.registry }

// Len returns the number of live nodes.
func (w *World) Len() int { return w.nodes.Len() }

// NewNode creates a bare, active, detached node with no facets.
func (w *World) NewNode() EntityID {
	id := w.pool.Create()
	w.nodes.Set(id, &nodeRecord{active: true})
	return id
}

func (w *World) Alive(id EntityID) bool {
	return w.pool.Alive(id)
}

// Children returns the children of id in stable sibling order. The slice is
// owned by the world and must not be modified or retained across mutations.
func (w *World) Children(id EntityID) []EntityID {
	if rec, ok := w.nodes.Get(id); ok {
		return rec.children
	}
	return nil
}

func (w *World) Parent(id EntityID) EntityID {
	if rec, ok := w.nodes.Get(id); ok {
		return rec.parent
	}
	return 0
}

// SetParent detaches id from its current parent and appends it as the last
// child of parent. A zero parent leaves the node detached.
func (w *World) SetParent(id, parent EntityID) {
	rec, ok := w.nodes.Get(id)
	if !ok || id == parent {
		return
	}
	w.detach(id, rec)
	if parent.IsZero() {
		return
	}
	prec, ok := w.nodes.Get(parent)
	if !ok {
		return
	}
	prec.children = append(prec.children, id)
	rec.parent = parent
}

func (w *World) detach(id EntityID, rec *nodeRecord) {
	if rec.parent.IsZero() {
		return
	}
	if prec, ok := w.nodes.Get(rec.parent); ok {
		for i, c := range prec.children {
			if c == id {
				prec.children = append(prec.children[:i], prec.children[i+1:]...)
				break
			}
		}
	}
	rec.parent = 0
}

// Active reports the node's own activation flag.
func (w *World) Active(id EntityID) bool {
	if rec, ok := w.nodes.Get(id); ok {
		return rec.active
	}
	return false
}

func (w *World) SetActive(id EntityID, active bool) {
	if rec, ok := w.nodes.Get(id); ok {
		rec.active = active
	}
}

// Facets returns the node's facets in attachment order. The slice is owned
// by the world.
func (w *World) Facets(id EntityID) []Facet {
	if rec, ok := w.nodes.Get(id); ok {
		return rec.facets
	}
	return nil
}

// AddFacet attaches f as the last facet of id.
func (w *World) AddFacet(id EntityID, f Facet) {
	rec, ok := w.nodes.Get(id)
	if !ok || f == nil {
		return
	}
	rec.facets = append(rec.facets, f)
	w.owners[f] = id
}

// RemoveFacet detaches f from its owner.
func (w *World) RemoveFacet(f Facet) {
	id, ok := w.owners[f]
	if !ok {
		return
	}
	delete(w.owners, f)
	rec, ok := w.nodes.Get(id)
	if !ok {
		return
	}
	for i, g := range rec.facets {
		if g == f {
			rec.facets = append(rec.facets[:i], rec.facets[i+1:]...)
			return
		}
	}
}

// FacetOwner returns the node f is attached to.
func (w *World) FacetOwner(f Facet) (EntityID, bool) {
	id, ok := w.owners[f]
	return id, ok
}

func (w *World) Name(id EntityID) string {
	if n, ok := w.names.Get(id); ok {
		return *n
	}
	return ""
}

func (w *World) SetName(id EntityID, name string) {
	if !w.pool.Alive(id) {
		return
	}
	w.names.Set(id, &name)
}

// Find walks a slash-separated path of child names starting at root.
// An empty path names root itself.
func (w *World) Find(root EntityID, path string) (EntityID, bool) {
	if !w.pool.Alive(root) {
		return 0, false
	}
	cur := root
	for _, part := range strings.Split(path, "/") {
		if part == "" || part == "." {
			continue
		}
		next := EntityID(0)
		for _, c := range w.Children(cur) {
			if w.Name(c) == part {
				next = c
				break
			}
		}
		if next.IsZero() {
			return 0, false
		}
		cur = next
	}
	return cur, true
}

// Destroy permanently removes id and its whole subtree.
func (w *World) Destroy(id EntityID) {
	rec, ok := w.nodes.Get(id)
	if !ok {
		return
	}
	for len(rec.children) > 0 {
		w.Destroy(rec.children[len(rec.children)-1])
	}
	w.detach(id, rec)
	for _, f := range rec.facets {
		delete(w.owners, f)
	}
	w.registry.RemoveAll(id)
	w.pool.Destroy(id)
}

// Instantiate builds an independent deep copy of the subtree rooted at id.
// The copy is detached; references held inside facets are not remapped.
func (w *World) Instantiate(id EntityID) EntityID {
	rec, ok := w.nodes.Get(id)
	if !ok {
		return 0
	}
	cp := w.NewNode()
	w.SetActive(cp, rec.active)
	if n, ok := w.names.Get(id); ok {
		w.SetName(cp, *n)
	}
	for _, f := range rec.facets {
		w.AddFacet(cp, cloneFacet(f))
	}
	for _, c := range rec.children {
		w.SetParent(w.Instantiate(c), cp)
	}
	return cp
}

func cloneFacet(f Facet) Facet {
	if c, ok := f.(Cloner); ok {
		return c.CloneFacet()
	}
	v := reflect.ValueOf(f)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return f
	}
	cp := reflect.New(v.Elem().Type())
	cp.Elem().Set(v.Elem())
	return cp.Interface().(Facet)
}
