// Package stats provides the colony monitor: periodic metric sampling, the
// end-of-run performance report, and SQLite history storage. Read-only with
// respect to the colony — it only ever takes snapshots.
package stats

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"github.com/talgya/hivesim/internal/hive"
)

// Sample is one periodic observation of the colony.
type Sample struct {
	Elapsed time.Duration     `json:"elapsed"`
	Metrics hive.Metrics      `json:"metrics"`
	Census  map[hive.Role]int `json:"census"`
}

// Collector samples the hive on a fixed interval and builds the final
// report.
type Collector struct {
	hive     *hive.Hive
	interval time.Duration
	start    time.Time

	mu      sync.Mutex
	samples []Sample

	wg sync.WaitGroup
}

// NewCollector creates a collector. Start begins sampling.
func NewCollector(h *hive.Hive, interval time.Duration) *Collector {
	return &Collector{hive: h, interval: interval, start: time.Now()}
}

// Start launches the sampling goroutine.
func (c *Collector) Start() {
	c.start = time.Now()
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.run()
	}()
	slog.Info("colony monitor started", "interval", c.interval)
}

// Wait blocks until the sampler has observed the stop signal and exited.
func (c *Collector) Wait() {
	c.wg.Wait()
}

func (c *Collector) run() {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		c.SampleNow()
		select {
		case <-ticker.C:
		case <-c.hive.Done():
			// One last observation so the report sees the final state.
			c.SampleNow()
			return
		}
	}
}

// SampleNow takes one observation immediately.
func (c *Collector) SampleNow() {
	s := Sample{
		Elapsed: time.Since(c.start),
		Metrics: c.hive.SnapshotMetrics(),
		Census:  c.hive.RoleCensus(),
	}
	c.mu.Lock()
	c.samples = append(c.samples, s)
	c.mu.Unlock()
}

// Samples returns a copy of the observation history.
func (c *Collector) Samples() []Sample {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Sample, len(c.samples))
	copy(out, c.samples)
	return out
}

// Report holds the end-of-run colony performance summary.
type Report struct {
	GeneratedAt     string  `json:"generated_at"`
	DurationSeconds float64 `json:"duration_seconds"`

	Nectar struct {
		Collected         int     `json:"collected"`
		Stored            int     `json:"stored"`
		PerMinute         float64 `json:"per_minute"`
		StorageEfficiency float64 `json:"storage_efficiency_pct"`
	} `json:"nectar"`

	Defense struct {
		Detected    int     `json:"attacks_detected"`
		Neutralized int     `json:"attacks_neutralized"`
		PerMinute   float64 `json:"per_minute"`
		Efficiency  float64 `json:"efficiency_pct"`
	} `json:"defense"`

	Brood struct {
		LarvaeFed int     `json:"larvae_fed"`
		PerMinute float64 `json:"per_minute"`
	} `json:"brood"`

	RoleChanges  int                      `json:"role_changes"`
	FinalCells   struct {
		Occupied int `json:"occupied"`
		Free     int `json:"free"`
	} `json:"final_cells"`
	AverageRoles map[string]float64       `json:"average_roles"`
	PerBee       map[string]hive.BeeTally `json:"per_bee"`
}

// Report computes the performance summary from the observation history. A
// final sample is taken first so the report always reflects the end state.
func (c *Collector) Report() Report {
	c.SampleNow()
	samples := c.Samples()
	final := samples[len(samples)-1]

	var r Report
	r.GeneratedAt = time.Now().Format(time.RFC3339)
	r.DurationSeconds = final.Elapsed.Seconds()

	minutes := final.Elapsed.Minutes()
	rate := func(n int) float64 {
		if minutes <= 0 {
			return 0
		}
		return float64(n) / minutes
	}

	m := final.Metrics
	r.Nectar.Collected = m.NectarCollected
	r.Nectar.Stored = m.NectarStored
	r.Nectar.PerMinute = rate(m.NectarCollected)
	if m.NectarCollected > 0 {
		r.Nectar.StorageEfficiency = float64(m.NectarStored) / float64(m.NectarCollected) * 100
	}

	r.Defense.Detected = m.AttacksDetected
	r.Defense.Neutralized = m.AttacksNeutralized
	r.Defense.PerMinute = rate(m.AttacksDetected)
	if m.AttacksDetected > 0 {
		r.Defense.Efficiency = float64(m.AttacksNeutralized) / float64(m.AttacksDetected) * 100
	} else {
		r.Defense.Efficiency = 100
	}

	r.Brood.LarvaeFed = m.LarvaeFed
	r.Brood.PerMinute = rate(m.LarvaeFed)

	r.RoleChanges = m.RoleChanges
	r.FinalCells.Occupied = m.CellsOccupied
	r.FinalCells.Free = m.CellsFree

	// Average live count per role across the whole run.
	r.AverageRoles = make(map[string]float64)
	totals := make(map[hive.Role]int)
	for _, s := range samples {
		for role, n := range s.Census {
			totals[role] += n
		}
	}
	for role, sum := range totals {
		r.AverageRoles[role.String()] = float64(sum) / float64(len(samples))
	}

	r.PerBee = c.hive.BeeStats()
	return r
}

// SaveJSON writes the report to a file.
func (r Report) SaveJSON(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// Print renders the report to stdout.
func (r Report) Print() {
	header := color.New(color.FgYellow, color.Bold)
	section := color.New(color.FgCyan, color.Bold)

	header.Println("══════ COLONY PERFORMANCE REPORT ══════")
	fmt.Printf("simulation ran %.1fs\n\n", r.DurationSeconds)

	section.Println("honey production")
	fmt.Printf("  nectar collected:   %s units\n", humanize.Comma(int64(r.Nectar.Collected)))
	fmt.Printf("  nectar stored:      %s units\n", humanize.Comma(int64(r.Nectar.Stored)))
	fmt.Printf("  collection rate:    %.1f/min\n", r.Nectar.PerMinute)
	fmt.Printf("  storage efficiency: %.1f%%\n\n", r.Nectar.StorageEfficiency)

	section.Println("colony defense")
	fmt.Printf("  attacks detected:    %d\n", r.Defense.Detected)
	fmt.Printf("  attacks neutralized: %d\n", r.Defense.Neutralized)
	fmt.Printf("  defense efficiency:  %.1f%%\n\n", r.Defense.Efficiency)

	section.Println("brood")
	fmt.Printf("  larvae fed: %d (%.1f/min)\n\n", r.Brood.LarvaeFed, r.Brood.PerMinute)

	section.Println("adaptability")
	fmt.Printf("  role changes: %d\n\n", r.RoleChanges)

	section.Println("final storage")
	fmt.Printf("  cells occupied: %d, free: %d\n\n", r.FinalCells.Occupied, r.FinalCells.Free)

	section.Println("average live bees per role")
	for role, avg := range r.AverageRoles {
		fmt.Printf("  %-8s %.2f\n", role, avg)
	}
}
