package recycle

import "github.com/l1jgo/recycler/internal/core/ecs"

// Tree is the read side of the host scene graph used by path utilities.
type Tree interface {
	Children(id ecs.EntityID) []ecs.EntityID
	Parent(id ecs.EntityID) ecs.EntityID
}

// Host is the scene graph the recycler drives. *ecs.World implements it.
type Host interface {
	Tree
	NewNode() ecs.EntityID
	Alive(id ecs.EntityID) bool
	Destroy(id ecs.EntityID)
	SetParent(id, parent ecs.EntityID)
	Active(id ecs.EntityID) bool
	SetActive(id ecs.EntityID, active bool)
	Facets(id ecs.EntityID) []ecs.Facet
	AddFacet(id ecs.EntityID, f ecs.Facet)
	FacetOwner(f ecs.Facet) (ecs.EntityID, bool)
	Instantiate(id ecs.EntityID) ecs.EntityID
}

var _ Host = (*ecs.World)(nil)
