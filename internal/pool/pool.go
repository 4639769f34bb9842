// Package pool holds retired, detached node instances of one composition.
package pool

import (
	"github.com/l1jgo/recycler/internal/composition"
	"github.com/l1jgo/recycler/internal/core/ecs"
)

// Pool is a FIFO queue of inactive instances sharing one composition.
// Count never exceeds Capacity.
type Pool struct {
	handle   *composition.Handle
	items    []ecs.EntityID
	head     int
	capacity int
}

func New(h *composition.Handle, capacity int) *Pool {
	return &Pool{
		handle:   h,
		items:    make([]ecs.EntityID, 0, min(capacity, 64)),
		capacity: capacity,
	}
}

func (p *Pool) Handle() *composition.Handle { return p.handle }
func (p *Pool) Len() int                    { return len(p.items) - p.head }
func (p *Pool) Capacity() int               { return p.capacity }
func (p *Pool) Full() bool                  { return p.Len() >= p.capacity }
func (p *Pool) Size() Size                  { return Size{Count: p.Len(), Capacity: p.capacity} }

// SetCapacity changes the capacity. It fails if the pool already holds more
// instances than the new capacity allows.
func (p *Pool) SetCapacity(capacity int) error {
	if _, err := NewSize(p.Len(), capacity); err != nil {
		return err
	}
	p.capacity = capacity
	return nil
}

// Enqueue appends id at the back. It returns false when the pool is full.
func (p *Pool) Enqueue(id ecs.EntityID) bool {
	if p.Full() {
		return false
	}
	p.items = append(p.items, id)
	return true
}

// Dequeue removes the oldest instance.
func (p *Pool) Dequeue() (ecs.EntityID, bool) {
	if p.Len() == 0 {
		return 0, false
	}
	id := p.items[p.head]
	p.items[p.head] = 0
	p.head++
	if p.head == len(p.items) {
		p.items = p.items[:0]
		p.head = 0
	} else if p.head > 32 && p.head*2 > len(p.items) {
		n := copy(p.items, p.items[p.head:])
		p.items = p.items[:n]
		p.head = 0
	}
	return id, true
}

// Contains scans the queue for id.
func (p *Pool) Contains(id ecs.EntityID) bool {
	for _, it := range p.items[p.head:] {
		if it == id {
			return true
		}
	}
	return false
}

// Each visits the queued instances front to back.
func (p *Pool) Each(fn func(ecs.EntityID)) {
	for _, it := range p.items[p.head:] {
		fn(it)
	}
}
