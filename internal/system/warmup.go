package system

import (
	"fmt"
	"time"

	"github.com/l1jgo/recycler/internal/composition"
	"github.com/l1jgo/recycler/internal/config"
	coresys "github.com/l1jgo/recycler/internal/core/system"
	"github.com/l1jgo/recycler/internal/data"
	"github.com/l1jgo/recycler/internal/pool"
	"github.com/l1jgo/recycler/internal/recycle"
	"go.uber.org/zap"
)

// Policy decides the target size of a goal whose pool already exists.
type Policy int

const (
	PolicySemiDeclarative Policy = iota // max of current and requested
	PolicyDeclarative                   // exactly the requested size
	PolicyAdditive                      // requested on top of current
)

func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "semi_declarative":
		return PolicySemiDeclarative, nil
	case "declarative":
		return PolicyDeclarative, nil
	case "additive":
		return PolicyAdditive, nil
	}
	return 0, fmt.Errorf("unknown warm-up policy %q", s)
}

func (p Policy) String() string {
	switch p {
	case PolicyDeclarative:
		return "declarative"
	case PolicyAdditive:
		return "additive"
	default:
		return "semi_declarative"
	}
}

func (p Policy) resolve(cur, want pool.Size) pool.Size {
	switch p {
	case PolicyDeclarative:
		return want
	case PolicyAdditive:
		return pool.Size{Count: cur.Count + want.Count, Capacity: cur.Capacity + want.Capacity}
	default:
		return pool.Size{Count: max(cur.Count, want.Count), Capacity: max(cur.Capacity, want.Capacity)}
	}
}

// Goal is a declared pool size for one composition.
type Goal struct {
	Handle *composition.Handle
	Size   pool.Size
}

// warmupCursor is the resumable progress of one goal set.
type warmupCursor struct {
	goal     int       // index into goals
	target   pool.Size // resolved size of goals[goal]
	resolved bool      // target is valid for goals[goal]
	sweep    bool      // goals done, shrinking undeclared pools
	leftover []*composition.Handle
	next     int // index into leftover
}

// WarmupSystem drives pools toward declared goals a bounded slice at a time.
// Each tick spends at most the configured budget; the step size is derived
// from the measured cost of the previous step. When the budget runs out the
// cursor is kept and work resumes on the next tick. Every step leaves the
// pool at a valid size, so Reset can abandon work at any point.
// Phase 3 (Warmup). Idle once all goals are reached.
type WarmupSystem struct {
	svc        *recycle.Service
	log        *zap.Logger
	now        func() time.Time
	cfg        config.WarmupConfig
	pol        Policy
	undeclared bool

	goals []Goal
	cur   warmupCursor
	done  bool
	step  int           // units in the next step
	unit  time.Duration // measured cost of one unit, 0 until known
	ticks int
}

func NewWarmupSystem(svc *recycle.Service, cfg config.WarmupConfig, log *zap.Logger) (*WarmupSystem, error) {
	pol, err := ParsePolicy(cfg.Policy)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.MaxStep <= 0 {
		cfg.MaxStep = 1
	}
	return &WarmupSystem{
		svc:        svc,
		log:        log,
		now:        time.Now,
		cfg:        cfg,
		pol:        pol,
		undeclared: cfg.TrackUndeclared,
		done:       true,
		step:       1,
	}, nil
}

// SetClock replaces the time source used to measure steps.
func (s *WarmupSystem) SetClock(now func() time.Time) { s.now = now }

func (s *WarmupSystem) Phase() coresys.Phase { return coresys.PhaseWarmup }

func (s *WarmupSystem) Enabled() bool { return !s.done }

// Done reports whether the current goal set has been reached.
func (s *WarmupSystem) Done() bool { return s.done }

// Policy returns the active resolution policy.
func (s *WarmupSystem) Policy() Policy { return s.pol }

// SetPolicy changes how goals resolve against existing pools. It applies
// from the next goal on.
func (s *WarmupSystem) SetPolicy(p Policy) { s.pol = p }

// SetTrackUndeclared toggles the final sweep over pools no goal names.
func (s *WarmupSystem) SetTrackUndeclared(on bool) { s.undeclared = on }

// SetGoals replaces the goal set and restarts from the first goal.
func (s *WarmupSystem) SetGoals(goals []Goal) {
	s.goals = append(s.goals[:0], goals...)
	s.cur = warmupCursor{}
	s.done = false
	s.ticks = 0
	s.log.Info("warm-up started",
		zap.Int("goals", len(goals)),
		zap.Stringer("policy", s.pol),
		zap.Bool("track_undeclared", s.undeclared),
	)
}

// Reset abandons in-flight work. Pools keep whatever size they reached.
func (s *WarmupSystem) Reset() {
	s.goals = s.goals[:0]
	s.cur = warmupCursor{}
	s.done = true
}

func (s *WarmupSystem) Update(_ time.Duration) {
	start := s.now()
	s.ticks++
	for !s.done {
		left := s.cfg.Budget - s.now().Sub(start)
		if left <= 0 {
			return
		}
		switch {
		case s.cur.goal < len(s.goals):
			s.advanceGoal(left)
		case s.undeclared:
			s.advanceSweep(left)
		default:
			s.finish()
		}
	}
}

func (s *WarmupSystem) finish() {
	s.done = true
	s.log.Info("warm-up complete", zap.Int("goals", len(s.goals)), zap.Int("ticks", s.ticks))
}

// advanceGoal performs one bounded step on the current goal.
func (s *WarmupSystem) advanceGoal(left time.Duration) {
	g := s.goals[s.cur.goal]
	if !s.cur.resolved {
		target, ok := s.resolveGoal(g)
		if !ok {
			s.skip()
			return
		}
		s.cur.target, s.cur.resolved = target, true
	}

	size, err := s.svc.SizeOf(g.Handle)
	if err != nil {
		// Deleted under us, e.g. by decay. Resolve again next step.
		s.cur.resolved = false
		return
	}
	want := s.cur.target
	if size.Count == want.Count {
		if size != want && !s.resize(g.Handle, want) {
			s.skip()
			return
		}
		s.log.Debug("warm-up goal reached", zap.Stringer("composition", g.Handle), zap.Stringer("size", want))
		s.skip()
		return
	}

	n := s.stepSize(left)
	var next int
	if size.Count < want.Count {
		next = min(size.Count+n, want.Count)
	} else {
		next = max(size.Count-n, want.Count)
	}
	var ok bool
	s.measure(abs(next-size.Count), func() {
		ok = s.resize(g.Handle, pool.Size{Count: next, Capacity: max(want.Capacity, next)})
	})
	if !ok {
		s.skip()
	}
}

// skip moves the cursor to the next goal.
func (s *WarmupSystem) skip() {
	s.cur.goal++
	s.cur.resolved = false
}

func (s *WarmupSystem) resolveGoal(g Goal) (pool.Size, bool) {
	if !s.svc.Exists(g.Handle) {
		if _, err := s.svc.Create(g.Handle, pool.Size{Capacity: g.Size.Capacity}); err != nil {
			s.log.Warn("warm-up goal skipped", zap.Stringer("composition", g.Handle), zap.Error(err))
			return pool.Size{}, false
		}
		return g.Size, true
	}
	cur, err := s.svc.SizeOf(g.Handle)
	if err != nil {
		return pool.Size{}, false
	}
	return s.pol.resolve(cur, g.Size), true
}

// advanceSweep shrinks one undeclared pool by a step and deletes it once
// empty.
func (s *WarmupSystem) advanceSweep(left time.Duration) {
	if !s.cur.sweep {
		s.cur.sweep = true
		s.cur.leftover = s.undeclaredPools()
		s.cur.next = 0
	}
	if s.cur.next >= len(s.cur.leftover) {
		s.finish()
		return
	}
	h := s.cur.leftover[s.cur.next]
	size, err := s.svc.SizeOf(h)
	if err != nil {
		s.cur.next++
		return
	}
	if size.Count == 0 {
		if err := s.svc.Delete(h); err != nil {
			s.log.Warn("undeclared pool delete failed", zap.Stringer("composition", h), zap.Error(err))
		} else {
			s.log.Debug("undeclared pool deleted", zap.Stringer("composition", h))
		}
		s.cur.next++
		return
	}
	next := max(size.Count-s.stepSize(left), 0)
	var ok bool
	s.measure(size.Count-next, func() {
		ok = s.resize(h, pool.Size{Count: next, Capacity: size.Capacity})
	})
	if !ok {
		s.cur.next++
	}
}

func (s *WarmupSystem) undeclaredPools() []*composition.Handle {
	declared := make(map[*composition.Handle]struct{}, len(s.goals))
	for _, g := range s.goals {
		declared[s.svc.Intern(g.Handle.Types()...)] = struct{}{}
	}
	var out []*composition.Handle
	for _, h := range s.svc.Handles() {
		if _, ok := declared[h]; !ok {
			out = append(out, h)
		}
	}
	return out
}

func (s *WarmupSystem) resize(h *composition.Handle, size pool.Size) bool {
	if err := s.svc.Resize(h, size); err != nil {
		s.log.Warn("warm-up resize failed", zap.Stringer("composition", h), zap.Error(err))
		return false
	}
	return true
}

// stepSize returns how many units fit in the remaining budget given the
// measured unit cost, bounded by [1, MaxStep]. Until a cost is known the
// step doubles after each step.
func (s *WarmupSystem) stepSize(left time.Duration) int {
	if s.unit <= 0 {
		return s.step
	}
	return max(1, min(int(left/s.unit), s.cfg.MaxStep))
}

// measure runs fn for units instances and updates the unit cost estimate.
func (s *WarmupSystem) measure(units int, fn func()) {
	t0 := s.now()
	fn()
	took := s.now().Sub(t0)
	if units <= 0 {
		return
	}
	if took > 0 {
		s.unit = took / time.Duration(units)
		return
	}
	s.unit = 0
	s.step = min(s.step*2, s.cfg.MaxStep)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// ExpandGoals turns declared goal entries into per-composition goals. A
// prefab goal contributes its count and capacity once per node of the
// prefab tree. Repeated compositions accumulate in first-seen order.
func ExpandGoals(svc *recycle.Service, table *data.GoalTable, prefabs *data.PrefabTable) ([]Goal, error) {
	var out []Goal
	index := make(map[*composition.Handle]int)
	add := func(types []string, count, capacity int) {
		h := svc.Intern(types...)
		if i, ok := index[h]; ok {
			out[i].Size.Count += count
			out[i].Size.Capacity += capacity
			return
		}
		index[h] = len(out)
		out = append(out, Goal{Handle: h, Size: pool.Size{Count: count, Capacity: capacity}})
	}
	for i, g := range table.Goals {
		if len(g.Facets) > 0 {
			add(g.Facets, g.Count, g.Capacity)
			continue
		}
		var p *data.Prefab
		if prefabs != nil {
			p = prefabs.Get(g.Prefab)
		}
		if p == nil {
			return nil, fmt.Errorf("goal %d: unknown prefab %q", i, g.Prefab)
		}
		p.Walk(func(n *data.Prefab) {
			add(n.FacetTypes(), g.Count, g.Capacity)
		})
	}
	return out, nil
}
