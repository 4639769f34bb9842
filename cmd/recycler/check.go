package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/l1jgo/recycler/internal/core/ecs"
	"github.com/l1jgo/recycler/internal/core/event"
	"github.com/l1jgo/recycler/internal/data"
	"github.com/l1jgo/recycler/internal/facet"
	"github.com/l1jgo/recycler/internal/recycle"
	"github.com/l1jgo/recycler/internal/system"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate prefabs and warm-up goals against the registered facet mappers",
	RunE: func(*cobra.Command, []string) error {
		return check()
	},
}

var errCheckFailed = errors.New("check failed")

func check() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	mappers, engine, builders, err := newMappers(cfg, zap.NewNop())
	if err != nil {
		return err
	}
	defer engine.Close()

	failed := 0
	printSection("Prefabs")
	prefabs, err := data.LoadPrefabTable(cfg.Runtime.PrefabFile)
	if err != nil {
		return err
	}
	world := ecs.NewWorld()
	for _, p := range prefabs.All() {
		if _, err := facet.Spawn(world, p, builders); err != nil {
			printFail(err.Error())
			failed++
			continue
		}
		nodes, bad := 0, 0
		p.Walk(func(n *data.Prefab) {
			nodes++
			if missing, ok := mappers.Supported(n.FacetTypes()); !ok {
				printFail(fmt.Sprintf("%s/%s: facet type %q has no mapper, requests fall back to instantiation", p.Name, n.Name, missing))
				bad++
			}
		})
		if bad == 0 {
			printOK(fmt.Sprintf("%s (%d nodes)", p.Name, nodes))
		}
		failed += bad
	}
	fmt.Println()

	printSection("Warm-up goals")
	table, err := data.LoadGoalTable(cfg.Warmup.GoalFile)
	switch {
	case errors.Is(err, os.ErrNotExist):
		printOK("no goal file")
	case err != nil:
		printFail(err.Error())
		failed++
	default:
		if _, err := system.ParsePolicy(table.Policy); err != nil {
			printFail(err.Error())
			failed++
		}
		svc := recycle.New(world, mappers, event.NewBus(), cfg.Pool, zap.NewNop())
		goals, err := system.ExpandGoals(svc, table, prefabs)
		if err != nil {
			printFail(err.Error())
			failed++
			break
		}
		for _, g := range goals {
			if missing, ok := mappers.Supported(g.Handle.Types()); !ok {
				printFail(fmt.Sprintf("%s: facet type %q has no mapper", g.Handle, missing))
				failed++
				continue
			}
			printOK(fmt.Sprintf("%s -> %s", g.Handle, g.Size))
		}
	}
	fmt.Println()

	if failed > 0 {
		return fmt.Errorf("%w: %d problem(s)", errCheckFailed, failed)
	}
	return nil
}
