package main

import (
	"math/rand/v2"
	"time"

	coresys "github.com/l1jgo/recycler/internal/core/system"
	"github.com/l1jgo/recycler/internal/recycle"
	"github.com/l1jgo/recycler/internal/system"
	"go.uber.org/zap"
)

// demoWorkload requests clones of random prototypes every tick and hands
// them to the deferred release system with a random lifetime. It keeps the
// pools busy when the engine runs standalone. Phase 1 (Update).
type demoWorkload struct {
	svc     *recycle.Service
	release *system.DeferredReleaseSystem
	protos  []prototype
	life    time.Duration
	perTick int
	rng     *rand.Rand
	log     *zap.Logger
}

func newDemoWorkload(a *app, perTick int) *demoWorkload {
	return &demoWorkload{
		svc:     a.svc,
		release: a.release,
		protos:  a.protos,
		life:    a.cfg.Runtime.DemoLife,
		perTick: perTick,
		rng:     rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x5eed)),
		log:     a.log.Named("demo"),
	}
}

func (d *demoWorkload) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (d *demoWorkload) Enabled() bool { return len(d.protos) > 0 && d.life > 0 }

func (d *demoWorkload) Update(_ time.Duration) {
	for range d.rng.IntN(d.perTick + 1) {
		p := d.protos[d.rng.IntN(len(d.protos))]
		clone, err := d.svc.Request(p.id)
		if err != nil {
			d.log.Warn("demo request failed", zap.String("prefab", p.name), zap.Error(err))
			continue
		}
		life := time.Duration(d.rng.Int64N(int64(d.life))) + 1
		if err := d.release.Schedule(clone, life); err != nil {
			d.log.Warn("demo release failed", zap.String("prefab", p.name), zap.Error(err))
		}
	}
}
