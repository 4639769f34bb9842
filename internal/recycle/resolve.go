package recycle

import "github.com/l1jgo/recycler/internal/core/ecs"

// resolver is the reference-resolution context of one request: it maps
// references into the source tree onto the clone by path replay.
type resolver struct {
	host   Host
	source ecs.EntityID
	target ecs.EntityID
	path   []int
}

func (r *resolver) reset(source, target ecs.EntityID) {
	r.source = source
	r.target = target
	r.path = r.path[:0]
}

func (r *resolver) Node(ref ecs.EntityID) ecs.EntityID {
	path, ok := PathFromRoot(r.host, r.source, ref, r.path)
	r.path = path
	if !ok {
		return ref
	}
	n, ok := NodeFromPath(r.host, r.target, path)
	if !ok {
		return ref
	}
	return n
}

func (r *resolver) Facet(ref ecs.Facet) ecs.Facet {
	if ref == nil {
		return nil
	}
	owner, ok := r.host.FacetOwner(ref)
	if !ok {
		return ref
	}
	n := r.Node(owner)
	if n == owner {
		return ref
	}
	idx := -1
	for i, f := range r.host.Facets(owner) {
		if f == ref {
			idx = i
			break
		}
	}
	facets := r.host.Facets(n)
	if idx < 0 || idx >= len(facets) {
		return ref
	}
	return facets[idx]
}
