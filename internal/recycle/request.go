package recycle

import (
	"errors"
	"fmt"

	"github.com/l1jgo/recycler/internal/core/ecs"
	"github.com/l1jgo/recycler/internal/core/event"
	"go.uber.org/zap"
)

// Request returns a new tree equivalent to the prototype rooted at proto,
// built from pooled instances where possible.
//
// The walk is root-first and visits children in sibling order, so the clone
// has the prototype's exact shape. Post copy routines run once the whole
// clone exists; the root is activated last. If any node of the prototype
// has an unsupported composition, the partial clone goes back to the pools
// and the prototype is instantiated by the host instead.
func (s *Service) Request(proto ecs.EntityID) (ecs.EntityID, error) {
	if !s.host.Alive(proto) {
		return 0, fmt.Errorf("request %d: %w", proto, ErrNodeNotFound)
	}
	o := s.acquireOp()
	defer s.releaseOp(o)

	clone, err := s.requestNode(o, proto, 0)
	if err != nil {
		if !errors.Is(err, ErrUnsupportedComposition) {
			return 0, err
		}
		return s.fallback(o, proto, err), nil
	}

	o.resolver.reset(proto, clone)
	o.queue.Run(&o.resolver)
	s.host.SetActive(clone, s.host.Active(proto))

	s.stats.Requests++
	event.Publish(s.bus, event.Requested{Prototype: proto, Clone: clone})
	return clone, nil
}

func (s *Service) requestNode(o *op, proto, parent ecs.EntityID) (ecs.EntityID, error) {
	h := s.compositionOf(o, proto)
	p, err := s.lookupOrCreate(h)
	if err != nil {
		return 0, err
	}

	id, hit := p.Dequeue()
	if hit {
		s.stats.Hits++
		event.Publish(s.bus, event.Unpooled{Handle: h, Node: id, Size: p.Size()})
	} else {
		s.stats.Misses++
		id = s.construct(h)
	}
	event.Publish(s.bus, event.PoolAccessed{Handle: h, Hit: hit})

	if parent.IsZero() {
		o.root = id
	} else {
		s.host.SetParent(id, parent)
	}

	src, dst := s.host.Facets(proto), s.host.Facets(id)
	for i, f := range src {
		m, _ := s.mappers.Get(f.FacetType())
		m.Copy(f, dst[i], &o.queue)
		if m.PostCopy != nil {
			o.queue.Defer(m.PostCopy, f, dst[i])
		}
	}
	if !parent.IsZero() {
		s.host.SetActive(id, s.host.Active(proto))
	}

	for _, child := range s.host.Children(proto) {
		if _, err := s.requestNode(o, child, id); err != nil {
			return 0, err
		}
	}
	return id, nil
}

// fallback undoes a partial clone and builds the prototype the plain way.
func (s *Service) fallback(o *op, proto ecs.EntityID, cause error) ecs.EntityID {
	s.log.Warn("request falls back to instantiation",
		zap.Uint64("prototype", uint64(proto)),
		zap.Error(cause),
	)
	o.queue.Reset()
	if !o.root.IsZero() {
		s.releaseTree(o, o.root)
	}
	clone := s.host.Instantiate(proto)
	s.stats.Requests++
	s.stats.Fallbacks++
	event.Publish(s.bus, event.Requested{Prototype: proto, Clone: clone, Fallback: true})
	return clone
}
