// Package recycle reuses retired node trees. Trees are decomposed leaf-first
// into per-composition pools on release and reassembled root-first from
// those pools on request, with facet state copied through the mapper table.
//
// The service is not safe for concurrent use; it is driven from the tick
// loop only.
package recycle

import (
	"fmt"

	"github.com/l1jgo/recycler/internal/composition"
	"github.com/l1jgo/recycler/internal/config"
	"github.com/l1jgo/recycler/internal/core/ecs"
	"github.com/l1jgo/recycler/internal/core/event"
	"github.com/l1jgo/recycler/internal/mapper"
	"github.com/l1jgo/recycler/internal/pool"
	"go.uber.org/zap"
)

// Stats are running counters since the service was created.
type Stats struct {
	Requests    int
	Fallbacks   int
	Releases    int
	Hits        int
	Misses      int
	Constructed int
	Destroyed   int
}

// Service owns the pool table and drives request/release against a host.
type Service struct {
	host    Host
	mappers *mapper.Registry
	bus     *event.Bus
	cfg     config.PoolConfig
	log     *zap.Logger

	handles *composition.Set
	pools   map[*composition.Handle]*pool.Pool
	order   []*composition.Handle // creation order

	free  []*op
	stats Stats
}

// op holds the scratch buffers of one top-level request or release. Ops are
// recycled through a free list so reentrant calls each get their own.
type op struct {
	types    []string
	nodes    []ecs.EntityID
	queue    mapper.Queue
	resolver resolver
	root     ecs.EntityID
}

func New(host Host, mappers *mapper.Registry, bus *event.Bus, cfg config.PoolConfig, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		host:    host,
		mappers: mappers,
		bus:     bus,
		cfg:     cfg,
		log:     log,
		handles: composition.NewSet(),
		pools:   make(map[*composition.Handle]*pool.Pool, 64),
	}
}

func (s *Service) Host() Host                { return s.host }
func (s *Service) Mappers() *mapper.Registry { return s.mappers }
func (s *Service) Bus() *event.Bus           { return s.bus }
func (s *Service) Stats() Stats              { return s.stats }

// Intern returns the canonical handle for a facet type list.
func (s *Service) Intern(types ...string) *composition.Handle {
	return s.handles.Resolve(types)
}

func (s *Service) acquireOp() *op {
	if n := len(s.free); n > 0 {
		o := s.free[n-1]
		s.free = s.free[:n-1]
		return o
	}
	return &op{resolver: resolver{host: s.host}}
}

func (s *Service) releaseOp(o *op) {
	o.types = o.types[:0]
	o.nodes = o.nodes[:0]
	o.queue.Reset()
	o.root = 0
	s.free = append(s.free, o)
}

// CompositionOf returns the interned handle of a node's facet types.
func (s *Service) CompositionOf(id ecs.EntityID) *composition.Handle {
	o := s.acquireOp()
	defer s.releaseOp(o)
	return s.compositionOf(o, id)
}

func (s *Service) compositionOf(o *op, id ecs.EntityID) *composition.Handle {
	o.types = o.types[:0]
	for _, f := range s.host.Facets(id) {
		o.types = append(o.types, f.FacetType())
	}
	return s.handles.Resolve(o.types)
}

// canonical normalizes a caller-built handle to the interned instance.
func (s *Service) canonical(h *composition.Handle) *composition.Handle {
	c, _ := s.handles.Intern(h)
	return c
}

func (s *Service) supported(h *composition.Handle) error {
	if missing, ok := s.mappers.Supported(h.Types()); !ok {
		return &UnsupportedError{FacetType: missing, Composition: h.String()}
	}
	return nil
}

// Exists reports whether a pool is registered for h.
func (s *Service) Exists(h *composition.Handle) bool {
	_, ok := s.pools[s.canonical(h)]
	return ok
}

// SizeOf returns the pool's current count and capacity.
func (s *Service) SizeOf(h *composition.Handle) (pool.Size, error) {
	p, ok := s.pools[s.canonical(h)]
	if !ok {
		return pool.Size{}, fmt.Errorf("size of %s: %w", h, ErrPoolNotFound)
	}
	return p.Size(), nil
}

// Handles returns the handles of all registered pools in creation order.
func (s *Service) Handles() []*composition.Handle {
	out := make([]*composition.Handle, len(s.order))
	copy(out, s.order)
	return out
}

// Create registers a pool for h and fills it with size.Count fresh inactive
// instances. It fails without registering anything if the composition is
// unsupported.
func (s *Service) Create(h *composition.Handle, size pool.Size) (*composition.Handle, error) {
	if err := size.Validate(); err != nil {
		return nil, fmt.Errorf("create pool %s: %w", h, err)
	}
	h = s.canonical(h)
	if _, ok := s.pools[h]; ok {
		return h, fmt.Errorf("create pool %s: %w", h, ErrPoolExists)
	}
	if err := s.supported(h); err != nil {
		s.log.Warn("pool creation rejected", zap.Stringer("composition", h), zap.Error(err))
		return nil, err
	}
	p := pool.New(h, size.Capacity)
	for range size.Count {
		p.Enqueue(s.construct(h))
	}
	s.pools[h] = p
	s.order = append(s.order, h)
	s.log.Debug("pool created", zap.Stringer("composition", h), zap.Stringer("size", p.Size()))
	event.Publish(s.bus, event.PoolCreated{Handle: h, Size: p.Size()})
	return h, nil
}

// Resize grows or shrinks the pool to size. Excess instances are destroyed
// from the front of the queue. Counts as an access for decay purposes.
func (s *Service) Resize(h *composition.Handle, size pool.Size) error {
	if err := size.Validate(); err != nil {
		return fmt.Errorf("resize pool %s: %w", h, err)
	}
	h = s.canonical(h)
	p, ok := s.pools[h]
	if !ok {
		return fmt.Errorf("resize pool %s: %w", h, ErrPoolNotFound)
	}
	before := p.Size()
	for p.Len() > size.Count {
		id, _ := p.Dequeue()
		s.destroy(id)
	}
	if err := p.SetCapacity(size.Capacity); err != nil {
		return fmt.Errorf("resize pool %s: %w", h, err)
	}
	for p.Len() < size.Count {
		p.Enqueue(s.construct(h))
	}
	event.Publish(s.bus, event.PoolAccessed{Handle: h, Hit: true})
	if p.Size() != before {
		event.Publish(s.bus, event.PoolUpdated{Handle: h, Size: p.Size()})
	}
	return nil
}

// Initialize is the explicit pre-warm entry point: it creates the pool for h
// or resizes the existing one, and returns the canonical handle.
func (s *Service) Initialize(h *composition.Handle, size pool.Size) (*composition.Handle, error) {
	h = s.canonical(h)
	if _, ok := s.pools[h]; ok {
		return h, s.Resize(h, size)
	}
	return s.Create(h, size)
}

// Evict destroys the oldest spare instance without counting as an access.
// It reports whether an instance was removed.
func (s *Service) Evict(h *composition.Handle) (bool, error) {
	h = s.canonical(h)
	p, ok := s.pools[h]
	if !ok {
		return false, fmt.Errorf("evict from %s: %w", h, ErrPoolNotFound)
	}
	id, ok := p.Dequeue()
	if !ok {
		return false, nil
	}
	s.destroy(id)
	event.Publish(s.bus, event.PoolUpdated{Handle: h, Size: p.Size()})
	return true, nil
}

// Delete drains and destroys every pooled instance, then drops the pool.
func (s *Service) Delete(h *composition.Handle) error {
	h = s.canonical(h)
	p, ok := s.pools[h]
	if !ok {
		return fmt.Errorf("delete pool %s: %w", h, ErrPoolNotFound)
	}
	p.Each(s.destroy)
	delete(s.pools, h)
	for i, c := range s.order {
		if c == h {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.log.Debug("pool deleted", zap.Stringer("composition", h))
	event.Publish(s.bus, event.PoolDeleted{Handle: h})
	return nil
}

// Contains reports whether id currently sits in a pool, and which.
func (s *Service) Contains(id ecs.EntityID) (bool, *composition.Handle) {
	o := s.acquireOp()
	defer s.releaseOp(o)
	return s.resident(o, id)
}

// resident checks pool membership. Pooled nodes are always inactive and
// detached, so anything else is rejected without scanning.
func (s *Service) resident(o *op, id ecs.EntityID) (bool, *composition.Handle) {
	if !s.host.Alive(id) || s.host.Active(id) || !s.host.Parent(id).IsZero() {
		return false, nil
	}
	h := s.compositionOf(o, id)
	p, ok := s.pools[h]
	if !ok || !p.Contains(id) {
		return false, nil
	}
	return true, h
}

// lookupOrCreate returns the pool for h, lazily creating an empty one with
// the default capacity.
func (s *Service) lookupOrCreate(h *composition.Handle) (*pool.Pool, error) {
	if p, ok := s.pools[h]; ok {
		return p, nil
	}
	if _, err := s.Create(h, pool.Size{Capacity: s.cfg.DefaultCapacity}); err != nil {
		return nil, err
	}
	return s.pools[h], nil
}

// construct builds a fresh, inactive, detached instance of h. The caller
// has already checked that h is supported.
func (s *Service) construct(h *composition.Handle) ecs.EntityID {
	id := s.host.NewNode()
	s.host.SetActive(id, false)
	for _, t := range h.Types() {
		m, _ := s.mappers.Get(t)
		s.host.AddFacet(id, m.New())
	}
	s.stats.Constructed++
	return id
}

func (s *Service) destroy(id ecs.EntityID) {
	s.host.Destroy(id)
	s.stats.Destroyed++
}
