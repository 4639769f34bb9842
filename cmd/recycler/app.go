package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/l1jgo/recycler/internal/config"
	"github.com/l1jgo/recycler/internal/core/ecs"
	"github.com/l1jgo/recycler/internal/core/event"
	coresys "github.com/l1jgo/recycler/internal/core/system"
	"github.com/l1jgo/recycler/internal/data"
	"github.com/l1jgo/recycler/internal/facet"
	"github.com/l1jgo/recycler/internal/mapper"
	"github.com/l1jgo/recycler/internal/persist"
	"github.com/l1jgo/recycler/internal/pool"
	"github.com/l1jgo/recycler/internal/recycle"
	"github.com/l1jgo/recycler/internal/scripting"
	"github.com/l1jgo/recycler/internal/system"
	"go.uber.org/zap"
)

// app is the wired process: the host world, the recycling service and the
// tick systems driving it.
type app struct {
	cfg     *config.Config
	log     *zap.Logger
	world   *ecs.World
	bus     *event.Bus
	mappers *mapper.Registry
	lua     *scripting.Engine
	prefabs *data.PrefabTable
	protos  []prototype
	svc     *recycle.Service
	runner  *coresys.Runner
	release *system.DeferredReleaseSystem
	decay   *system.DecaySystem
	warmup  *system.WarmupSystem
	report  *system.ReportSystem
	tracker *persist.ProfileTracker
}

type prototype struct {
	name string
	id   ecs.EntityID
}

// newMappers registers the stock facets and the Lua script facet.
func newMappers(cfg *config.Config, log *zap.Logger) (*mapper.Registry, *scripting.Engine, facet.Builders, error) {
	reg := mapper.NewRegistry()
	if err := facet.RegisterAll(reg); err != nil {
		return nil, nil, nil, err
	}
	engine, err := scripting.NewEngine(cfg.Scripting.Dir, log.Named("lua"))
	if err != nil {
		return nil, nil, nil, err
	}
	if err := engine.Register(reg); err != nil {
		engine.Close()
		return nil, nil, nil, err
	}
	builders := facet.DefaultBuilders()
	builders[scripting.TypeScript] = engine.Builder()
	return reg, engine, builders, nil
}

func newApp(cfg *config.Config, log *zap.Logger) (*app, error) {
	mappers, engine, builders, err := newMappers(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("mappers: %w", err)
	}
	a := &app{
		cfg:     cfg,
		log:     log,
		world:   ecs.NewWorld(),
		bus:     event.NewBus(),
		mappers: mappers,
		lua:     engine,
		runner:  coresys.NewRunner(),
	}

	a.prefabs, err = data.LoadPrefabTable(cfg.Runtime.PrefabFile)
	if err != nil {
		engine.Close()
		return nil, err
	}
	for _, p := range a.prefabs.All() {
		id, err := facet.Spawn(a.world, p, builders)
		if err != nil {
			engine.Close()
			return nil, err
		}
		a.protos = append(a.protos, prototype{name: p.Name, id: id})
	}

	a.svc = recycle.New(a.world, mappers, a.bus, cfg.Pool, log.Named("recycle"))
	a.tracker = persist.NewProfileTracker(a.bus)

	// Decay subscribes to pool creation, so it is built before any pool.
	a.release = system.NewDeferredReleaseSystem(a.svc, log.Named("release"))
	a.runner.Register(a.release)
	if cfg.Decay.Enabled {
		a.decay = system.NewDecaySystem(a.svc, cfg.Decay, log.Named("decay"))
		a.runner.Register(a.decay)
	}
	a.warmup, err = system.NewWarmupSystem(a.svc, cfg.Warmup, log.Named("warmup"))
	if err != nil {
		engine.Close()
		return nil, err
	}
	if cfg.Warmup.Enabled {
		a.runner.Register(a.warmup)
	}
	a.report = system.NewReportSystem(a.svc, log.Named("stats"), cfg.Runtime.StatsEvery)
	a.runner.Register(a.report)
	return a, nil
}

func (a *app) Close() {
	a.lua.Close()
}

// loadGoals reads the goal file and expands it against the prefabs. A
// missing file yields no goals.
func (a *app) loadGoals() ([]system.Goal, *data.GoalTable, error) {
	table, err := data.LoadGoalTable(a.cfg.Warmup.GoalFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &data.GoalTable{}, nil
		}
		return nil, nil, err
	}
	goals, err := system.ExpandGoals(a.svc, table, a.prefabs)
	if err != nil {
		return nil, nil, fmt.Errorf("goals: %w", err)
	}
	return goals, table, nil
}

// applyGoals hands a goal set to the warm-up system. Policy and undeclared
// tracking declared in the goal file override the config.
func (a *app) applyGoals(goals []system.Goal, table *data.GoalTable) error {
	pol, err := system.ParsePolicy(a.cfg.Warmup.Policy)
	if err != nil {
		return err
	}
	if table.Policy != "" {
		if pol, err = system.ParsePolicy(table.Policy); err != nil {
			return err
		}
	}
	a.warmup.SetPolicy(pol)
	a.warmup.SetTrackUndeclared(a.cfg.Warmup.TrackUndeclared || table.TrackUndeclared)
	a.warmup.SetGoals(goals)
	return nil
}

// mergeProfile folds recorded peaks into goals, keeping the larger of the
// declared and recorded size for each composition.
func mergeProfile(svc *recycle.Service, goals []system.Goal, rows []persist.ProfileRow) []system.Goal {
	index := make(map[string]int, len(goals))
	for i, g := range goals {
		index[g.Handle.String()] = i
	}
	for _, r := range rows {
		size := pool.Size{Count: r.PeakCount, Capacity: max(r.Capacity, r.PeakCount)}
		if i, ok := index[r.Composition]; ok {
			goals[i].Size.Count = max(goals[i].Size.Count, size.Count)
			goals[i].Size.Capacity = max(goals[i].Size.Capacity, size.Capacity)
			continue
		}
		index[r.Composition] = len(goals)
		goals = append(goals, system.Goal{Handle: svc.Intern(r.Facets...), Size: size})
	}
	return goals
}
