package system

import (
	"time"

	"github.com/l1jgo/recycler/internal/composition"
	"github.com/l1jgo/recycler/internal/config"
	"github.com/l1jgo/recycler/internal/core/event"
	coresys "github.com/l1jgo/recycler/internal/core/system"
	"github.com/l1jgo/recycler/internal/recycle"
	"go.uber.org/zap"
)

type decayState struct {
	timer     time.Duration
	threshold time.Duration
	emptyFor  time.Duration
	empty     bool // expired with nothing to evict; emptyFor counts from here
}

// DecaySystem trims pools that go unused. Every access raises a pool's
// threshold up to cfg.Max and re-arms its timer; each expiry evicts one spare
// and lowers the threshold by cfg.Rate down to cfg.Min. A pool that expires
// while empty is deleted after cfg.DestroyDelay more.
//
// Tracked pools follow PoolCreated/PoolDeleted events, so the system must be
// constructed before pools are created. Phase 4 (Decay).
type DecaySystem struct {
	svc     *recycle.Service
	cfg     config.DecayConfig
	log     *zap.Logger
	tracked map[*composition.Handle]*decayState
	order   []*composition.Handle
	scratch []*composition.Handle
}

func NewDecaySystem(svc *recycle.Service, cfg config.DecayConfig, log *zap.Logger) *DecaySystem {
	if log == nil {
		log = zap.NewNop()
	}
	s := &DecaySystem{
		svc:     svc,
		cfg:     cfg,
		log:     log,
		tracked: make(map[*composition.Handle]*decayState),
	}
	for _, h := range svc.Handles() {
		s.track(h)
	}
	bus := svc.Bus()
	event.Subscribe(bus, func(e event.PoolCreated) { s.track(e.Handle) })
	event.Subscribe(bus, func(e event.PoolDeleted) { s.untrack(e.Handle) })
	event.Subscribe(bus, func(e event.PoolAccessed) { s.touch(e.Handle) })
	return s
}

func (s *DecaySystem) Phase() coresys.Phase { return coresys.PhaseDecay }

func (s *DecaySystem) Enabled() bool { return len(s.order) > 0 }

// Tracked returns the number of pools under decay.
func (s *DecaySystem) Tracked() int { return len(s.order) }

// Threshold returns the pool's current threshold and remaining timer.
func (s *DecaySystem) Threshold(h *composition.Handle) (threshold, timer time.Duration, ok bool) {
	st, ok := s.tracked[h]
	if !ok {
		return 0, 0, false
	}
	return st.threshold, st.timer, true
}

func (s *DecaySystem) track(h *composition.Handle) {
	if _, ok := s.tracked[h]; ok {
		return
	}
	s.tracked[h] = &decayState{timer: s.cfg.Start, threshold: s.cfg.Start}
	s.order = append(s.order, h)
}

func (s *DecaySystem) untrack(h *composition.Handle) {
	if _, ok := s.tracked[h]; !ok {
		return
	}
	delete(s.tracked, h)
	for i, c := range s.order {
		if c == h {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

func (s *DecaySystem) touch(h *composition.Handle) {
	st, ok := s.tracked[h]
	if !ok {
		return
	}
	st.threshold = min(st.threshold+s.cfg.Growth, s.cfg.Max)
	st.timer = st.threshold
	st.emptyFor = 0
	st.empty = false
}

func (s *DecaySystem) Update(dt time.Duration) {
	// Deleting a pool untracks it through the bus, so iterate a snapshot.
	s.scratch = append(s.scratch[:0], s.order...)
	for _, h := range s.scratch {
		st, ok := s.tracked[h]
		if !ok {
			continue
		}
		if st.timer > 0 {
			st.timer -= dt
			if st.timer > 0 {
				continue
			}
		}
		s.expire(h, st, dt)
	}
}

func (s *DecaySystem) expire(h *composition.Handle, st *decayState, dt time.Duration) {
	evicted, err := s.svc.Evict(h)
	if err != nil {
		s.log.Warn("decay on missing pool", zap.Stringer("composition", h), zap.Error(err))
		s.untrack(h)
		return
	}
	if evicted {
		st.threshold = max(st.threshold-s.cfg.Rate, s.cfg.Min)
		st.timer = st.threshold
		st.emptyFor = 0
		st.empty = false
		s.log.Debug("decay evicted spare",
			zap.Stringer("composition", h),
			zap.Duration("threshold", st.threshold),
		)
		return
	}

	if !st.empty {
		st.empty = true
		return
	}
	st.emptyFor += dt
	if st.emptyFor < s.cfg.DestroyDelay {
		return
	}
	s.log.Debug("decay deleting empty pool", zap.Stringer("composition", h))
	if err := s.svc.Delete(h); err != nil {
		s.log.Warn("decay delete failed", zap.Stringer("composition", h), zap.Error(err))
	}
}
