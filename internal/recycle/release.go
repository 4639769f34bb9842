package recycle

import (
	"fmt"

	"github.com/l1jgo/recycler/internal/core/ecs"
	"github.com/l1jgo/recycler/internal/core/event"
	"go.uber.org/zap"
)

// Release retires the tree rooted at root. Children are released before
// their parent; each node is deactivated, detached and queued in the pool of
// its composition, or destroyed when that pool is full or unsupported.
//
// Releasing a node that already sits in a pool returns ErrDoubleRelease and
// leaves every pool untouched.
func (s *Service) Release(root ecs.EntityID) error {
	if !s.host.Alive(root) {
		return fmt.Errorf("release %d: %w", root, ErrNodeNotFound)
	}
	o := s.acquireOp()
	defer s.releaseOp(o)

	if pooled, h := s.resident(o, root); pooled {
		s.log.Error("double release",
			zap.Uint64("node", uint64(root)),
			zap.Stringer("composition", h),
		)
		return fmt.Errorf("release %d into %s: %w", root, h, ErrDoubleRelease)
	}

	s.releaseTree(o, root)
	s.stats.Releases++
	event.Publish(s.bus, event.Released{Root: root})
	return nil
}

func (s *Service) releaseTree(o *op, id ecs.EntityID) {
	// Children are copied to the op's node stack: detaching them mutates the
	// host's child slice.
	start := len(o.nodes)
	o.nodes = append(o.nodes, s.host.Children(id)...)
	end := len(o.nodes)
	for i := start; i < end; i++ {
		s.releaseTree(o, o.nodes[i])
	}
	o.nodes = o.nodes[:start]
	s.releaseNode(o, id)
}

func (s *Service) releaseNode(o *op, id ecs.EntityID) {
	h := s.compositionOf(o, id)
	p, err := s.lookupOrCreate(h)
	if err != nil {
		s.log.Warn("destroying node with unsupported composition",
			zap.Uint64("node", uint64(id)),
			zap.Error(err),
		)
		s.destroy(id)
		event.Publish(s.bus, event.Pooled{Handle: h, Node: id})
		return
	}

	if s.cfg.EnableDisposers {
		for _, f := range s.host.Facets(id) {
			if m, ok := s.mappers.Get(f.FacetType()); ok && m.Dispose != nil {
				m.Dispose(f)
			}
		}
	}

	if p.Full() {
		s.destroy(id)
		event.Publish(s.bus, event.Pooled{Handle: h, Node: id, Size: p.Size()})
		return
	}
	s.host.SetActive(id, false)
	s.host.SetParent(id, 0)
	p.Enqueue(id)
	event.Publish(s.bus, event.Pooled{Handle: h, Node: id, Kept: true, Size: p.Size()})
}
