package event

import (
	"github.com/l1jgo/recycler/internal/composition"
	"github.com/l1jgo/recycler/internal/core/ecs"
	"github.com/l1jgo/recycler/internal/pool"
)

// Requested fires after a clone has been fully assembled and activated.
type Requested struct {
	Prototype ecs.EntityID
	Clone     ecs.EntityID
	Fallback  bool // built by plain instantiation instead of from pools
}

// Released fires after a whole tree has been decomposed.
type Released struct {
	Root ecs.EntityID
}

// Pooled fires once per retired node. Kept is false when the node was
// destroyed instead because its pool was full or unsupported.
type Pooled struct {
	Handle *composition.Handle
	Node   ecs.EntityID
	Kept   bool
	Size   pool.Size
}

// Unpooled fires when a spare instance leaves its pool for reuse.
type Unpooled struct {
	Handle *composition.Handle
	Node   ecs.EntityID
	Size   pool.Size
}

// PoolAccessed fires on every pool hit or miss during a request and on
// explicit resizes.
type PoolAccessed struct {
	Handle *composition.Handle
	Hit    bool
}

type PoolCreated struct {
	Handle *composition.Handle
	Size   pool.Size
}

type PoolUpdated struct {
	Handle *composition.Handle
	Size   pool.Size
}

type PoolDeleted struct {
	Handle *composition.Handle
}
