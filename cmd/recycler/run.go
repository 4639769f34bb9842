package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/l1jgo/recycler/internal/metrics"
	"github.com/l1jgo/recycler/internal/persist"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var demoPerTick int

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the tick loop: warm pools, serve metrics, recycle trees",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return run(cmd.Context())
	},
}

func init() {
	runCmd.Flags().IntVar(&demoPerTick, "demo", 0, "request up to N random prefab clones per tick (overrides runtime.demo)")
}

func run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner()
	printSection("World")
	a, err := newApp(cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()
	printStat("Prefabs", a.prefabs.Count())
	printStat("Facet mappers", a.mappers.Count())
	printStat("Nodes", a.world.Len())
	fmt.Println()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Optional profile database
	var profiles *persist.ProfileRepo
	if cfg.Database.Enabled {
		printSection("Database")
		dbCtx, dbCancel := context.WithTimeout(ctx, 30*time.Second)
		db, err := persist.Open(dbCtx, cfg.Database, log.Named("db"))
		dbCancel()
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer db.Close()
		profiles = persist.NewProfileRepo(db)
		printOK("PostgreSQL connected, migrations applied")
		fmt.Println()
	}

	// Metrics endpoint
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metrics.New(reg).Attach(a.bus)
		srv := &http.Server{
			Addr:              cfg.Metrics.BindAddress,
			Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server stopped", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, c := context.WithTimeout(context.Background(), 2*time.Second)
			defer c()
			srv.Shutdown(shutdownCtx)
		}()
	}

	// Warm-up goals, plus recorded peaks from the last run
	printSection("Warm-up")
	goals, table, err := a.loadGoals()
	if err != nil {
		return err
	}
	if profiles != nil {
		rows, err := profiles.Load(ctx)
		if err != nil {
			return err
		}
		goals = mergeProfile(a.svc, goals, rows)
		printStat("Profiled compositions", len(rows))
	}
	printStat("Goals", len(goals))
	if cfg.Warmup.Enabled {
		if err := a.applyGoals(goals, table); err != nil {
			return err
		}
	}
	fmt.Println()

	var reload <-chan struct{}
	if cfg.Warmup.Enabled && cfg.Warmup.Watch {
		reload, err = watchFile(ctx, cfg.Warmup.GoalFile, log)
		if err != nil {
			log.Warn("goal file not watched", zap.String("file", cfg.Warmup.GoalFile), zap.Error(err))
		}
	}

	perTick := demoPerTick
	if perTick == 0 && cfg.Runtime.Demo {
		perTick = 4
	}
	if perTick > 0 {
		a.runner.Register(newDemoWorkload(a, perTick))
	}

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.Runtime.TickRate)
	defer ticker.Stop()

	printSection("Ready")
	if cfg.Metrics.Enabled {
		printReady(fmt.Sprintf("metrics on http://%s/metrics", cfg.Metrics.BindAddress))
	}
	printReady(fmt.Sprintf("tick loop started (tick: %s)", cfg.Runtime.TickRate))
	fmt.Println()

	for {
		select {
		case <-ticker.C:
			a.runner.Tick(cfg.Runtime.TickRate)
		case <-reload:
			goals, table, err := a.loadGoals()
			if err != nil {
				log.Warn("goal reload rejected", zap.Error(err))
				continue
			}
			if err := a.applyGoals(goals, table); err != nil {
				log.Warn("goal reload rejected", zap.Error(err))
			}
		case sig := <-shutdownCh:
			log.Info("shutdown signal received", zap.String("signal", sig.String()))
			a.report.Report()
			if profiles != nil {
				saveCtx, c := context.WithTimeout(context.Background(), 10*time.Second)
				if err := profiles.Save(saveCtx, a.tracker.Snapshot()); err != nil {
					log.Error("save pool profile", zap.Error(err))
				}
				c()
			}
			log.Info("recycler stopped")
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
