package system

import (
	"fmt"
	"time"

	"github.com/l1jgo/recycler/internal/core/ecs"
	"github.com/l1jgo/recycler/internal/core/event"
	coresys "github.com/l1jgo/recycler/internal/core/system"
	"github.com/l1jgo/recycler/internal/recycle"
	"go.uber.org/zap"
)

type pendingRelease struct {
	node      ecs.EntityID
	remaining time.Duration
}

// DeferredReleaseSystem releases trees after a delay. Any release of a
// scheduled node before its timer fires, directly or through an ancestor,
// cancels the entry, so a pooled node handed out again is never retired by a
// stale timer. Phase 2 (Release). Idle while nothing is scheduled.
type DeferredReleaseSystem struct {
	svc   *recycle.Service
	log   *zap.Logger
	queue []pendingRelease
	due   []ecs.EntityID
}

func NewDeferredReleaseSystem(svc *recycle.Service, log *zap.Logger) *DeferredReleaseSystem {
	if log == nil {
		log = zap.NewNop()
	}
	s := &DeferredReleaseSystem{svc: svc, log: log}
	event.Subscribe(svc.Bus(), func(e event.Pooled) { s.forget(e.Node) })
	return s
}

func (s *DeferredReleaseSystem) Phase() coresys.Phase { return coresys.PhaseRelease }

func (s *DeferredReleaseSystem) Enabled() bool { return len(s.queue) > 0 }

// Pending returns the number of scheduled releases.
func (s *DeferredReleaseSystem) Pending() int { return len(s.queue) }

// Schedule releases node once delay has elapsed. A non-positive delay
// releases immediately. Scheduling a node that already sits in a pool fails
// with recycle.ErrDoubleRelease.
func (s *DeferredReleaseSystem) Schedule(node ecs.EntityID, delay time.Duration) error {
	if !s.svc.Host().Alive(node) {
		return fmt.Errorf("schedule release %d: %w", node, recycle.ErrNodeNotFound)
	}
	if pooled, h := s.svc.Contains(node); pooled {
		s.log.Error("double release",
			zap.Uint64("node", uint64(node)),
			zap.Stringer("composition", h),
		)
		return fmt.Errorf("schedule release %d into %s: %w", node, h, recycle.ErrDoubleRelease)
	}
	if delay <= 0 {
		return s.svc.Release(node)
	}
	s.queue = append(s.queue, pendingRelease{node: node, remaining: delay})
	return nil
}

// Cancel drops every scheduled release of node and reports whether any
// existed.
func (s *DeferredReleaseSystem) Cancel(node ecs.EntityID) bool {
	kept := s.queue[:0]
	for _, e := range s.queue {
		if e.node != node {
			kept = append(kept, e)
		}
	}
	found := len(kept) != len(s.queue)
	s.queue = kept
	return found
}

func (s *DeferredReleaseSystem) Update(dt time.Duration) {
	kept := s.queue[:0]
	for _, e := range s.queue {
		e.remaining -= dt
		if e.remaining > 0 {
			kept = append(kept, e)
			continue
		}
		s.due = append(s.due, e.node)
	}
	s.queue = kept

	// Releasing one due node may pool another through forget; those slots
	// are zeroed and skipped.
	for i := 0; i < len(s.due); i++ {
		id := s.due[i]
		if id == 0 || !s.svc.Host().Alive(id) {
			continue
		}
		if err := s.svc.Release(id); err != nil {
			s.log.Error("deferred release failed", zap.Uint64("node", uint64(id)), zap.Error(err))
		}
	}
	s.due = s.due[:0]
}

// forget drops every pending entry for a node that has just been retired.
func (s *DeferredReleaseSystem) forget(node ecs.EntityID) {
	s.Cancel(node)
	for i, id := range s.due {
		if id == node {
			s.due[i] = 0
		}
	}
}
