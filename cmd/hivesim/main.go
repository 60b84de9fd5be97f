// Command hivesim runs the concurrent bee-colony simulation: one goroutine
// per bee working shared hive state, a queen rebalancing roles, and
// environmental drivers flipping day, weather, and attack signals.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/pflag"

	"github.com/talgya/hivesim/internal/agents"
	"github.com/talgya/hivesim/internal/config"
	"github.com/talgya/hivesim/internal/entropy"
	"github.com/talgya/hivesim/internal/events"
	"github.com/talgya/hivesim/internal/hive"
	"github.com/talgya/hivesim/internal/queen"
	"github.com/talgya/hivesim/internal/stats"
)

func main() {
	var (
		configPath = pflag.String("config", "", "path to YAML config (defaults apply when empty)")
		duration   = pflag.Duration("duration", 0, "override simulation duration")
		seed       = pflag.Int64("seed", 0, "override random seed")
		dbPath     = pflag.String("db", "", "override run-history database path")
		reportPath = pflag.String("report", "", "override JSON report path")
		logLevel   = pflag.String("log-level", "", "override log level (debug, info, warn, error)")
	)
	pflag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "config: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if *duration > 0 {
		cfg.Duration = config.Duration(*duration)
	}
	if *seed != 0 {
		cfg.Seed = *seed
	}
	if *dbPath != "" {
		cfg.Monitor.DBPath = *dbPath
	}
	if *reportPath != "" {
		cfg.Monitor.ReportPath = *reportPath
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}

	setupLogging(cfg.Logging.Level)
	slog.Info("hivesim starting", "seed", cfg.Seed, "duration", cfg.Duration.D())

	rng := entropy.New(cfg.Seed)

	h := hive.New(hive.Config{
		CellCapacity:   cfg.Hive.CellCapacity,
		CarryCapacity:  cfg.Hive.CarryCapacity,
		LarvaeCapacity: cfg.Hive.LarvaeCapacity,
	}, rng.Fork())

	spawner := agents.NewSpawner(h, agents.Defaults{
		Lifespan:       cfg.Bees.Lifespan.D(),
		WorkInterval:   cfg.Bees.WorkInterval.D(),
		NightRest:      cfg.Bees.NightRest.D(),
		PatrolDelay:    cfg.Bees.PatrolDelay.D(),
		AttackResponse: cfg.Bees.AttackResponse.D(),
	})

	q, err := queen.New(h, spawner, rng.Fork(), queen.Config{
		IdealRatios:     cfg.Ratios(),
		Lifespan:        cfg.Queen.Lifespan.D(),
		WorkInterval:    cfg.Queen.WorkInterval.D(),
		NightRest:       cfg.Queen.NightRest.D(),
		MailboxTimeout:  cfg.Queen.MailboxTimeout.D(),
		RebalanceChance: cfg.Queen.RebalanceChance,
		SnapshotChance:  cfg.Queen.SnapshotChance,
	})
	if err != nil {
		slog.Error("queen setup failed", "error", err)
		os.Exit(1)
	}

	// The day signal must be up before the first bee wakes.
	drivers := events.NewManager(h, rng.Fork(), timingsFrom(cfg))
	drivers.Start()

	for _, b := range spawner.SpawnPopulation(cfg.RoleCounts()) {
		q.Track(b)
	}

	var queenWG sync.WaitGroup
	queenWG.Add(1)
	go func() {
		defer queenWG.Done()
		q.Run()
	}()

	collector := stats.NewCollector(h, cfg.Monitor.Interval.D())
	collector.Start()

	// Run until the configured window elapses or the operator interrupts.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-time.After(cfg.Duration.D()):
		slog.Info("simulation window elapsed")
	case sig := <-sigCh:
		slog.Info("interrupted", "signal", sig)
	}

	h.Stop()

	done := make(chan struct{})
	go func() {
		spawner.Wait()
		queenWG.Wait()
		drivers.Wait()
		collector.Wait()
		close(done)
	}()
	select {
	case <-done:
		slog.Info("all goroutines joined")
	case <-time.After(5 * time.Second):
		slog.Warn("shutdown grace period exceeded")
	}

	report := collector.Report()
	report.Print()

	if err := report.SaveJSON(cfg.Monitor.ReportPath); err != nil {
		slog.Error("saving report failed", "error", err)
	} else {
		slog.Info("report saved", "path", cfg.Monitor.ReportPath)
	}

	persistRun(cfg, collector, report)
}

// persistRun writes the sample history and final report to SQLite.
func persistRun(cfg *config.Config, collector *stats.Collector, report stats.Report) {
	if cfg.Monitor.DBPath == "" {
		return
	}
	if dir := filepath.Dir(cfg.Monitor.DBPath); dir != "." {
		os.MkdirAll(dir, 0755)
	}

	store, err := stats.Open(cfg.Monitor.DBPath)
	if err != nil {
		slog.Error("opening run history db failed", "error", err)
		return
	}
	defer store.Close()

	runID := uuid.NewString()
	if err := store.BeginRun(runID, report.GeneratedAt); err != nil {
		slog.Error("recording run failed", "error", err)
		return
	}
	if err := store.SaveSamples(runID, collector.Samples()); err != nil {
		slog.Error("saving samples failed", "error", err)
		return
	}
	if err := store.SaveReport(runID, report); err != nil {
		slog.Error("saving report failed", "error", err)
		return
	}
	slog.Info("run history persisted", "run", runID, "db", cfg.Monitor.DBPath)
}

func timingsFrom(cfg *config.Config) events.Timings {
	return events.Timings{
		WeatherMin:    cfg.Events.WeatherMin.D(),
		WeatherMax:    cfg.Events.WeatherMax.D(),
		RainChance:    cfg.Events.RainChance,
		RainMin:       cfg.Events.RainMin.D(),
		RainMax:       cfg.Events.RainMax.D(),
		AttackGrace:   cfg.Events.AttackGrace.D(),
		AttackMin:     cfg.Events.AttackMin.D(),
		AttackMax:     cfg.Events.AttackMax.D(),
		AttackChance:  cfg.Events.AttackChance,
		DayBoost:      cfg.Events.DayBoost,
		AttackTimeout: cfg.Events.AttackTimeout.D(),
		DayLength:     cfg.Events.DayLength.D(),
		NightLength:   cfg.Events.NightLength.D(),
	}
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)
}
