// Bee spawning — creates the initial population and queen-ordered
// replacements with shared defaults, and tracks every started goroutine so
// bootstrap can join them all on shutdown.
package agents

import (
	"log/slog"
	"sync"

	"github.com/talgya/hivesim/internal/hive"
)

// Spawner creates bees for the simulation. Replacements spawned by the queen
// use the same defaults as the initial population.
type Spawner struct {
	hive     *hive.Hive
	defaults Defaults
	wg       sync.WaitGroup
}

// NewSpawner creates a spawner bound to a hive.
func NewSpawner(h *hive.Hive, defaults Defaults) *Spawner {
	return &Spawner{hive: h, defaults: defaults}
}

// Defaults returns the timing parameters given to every spawned bee.
func (s *Spawner) Defaults() Defaults { return s.defaults }

// Spawn creates a bee of the given role and starts its goroutine.
func (s *Spawner) Spawn(role hive.Role) *Bee {
	b := NewBee(s.hive, role, s.defaults)
	s.Start(b)
	return b
}

// Start runs an already-constructed bee under the spawner's supervision.
func (s *Spawner) Start(b *Bee) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		b.Run()
	}()
}

// SpawnPopulation creates the initial colony from a role→count map.
func (s *Spawner) SpawnPopulation(counts map[hive.Role]int) []*Bee {
	var bees []*Bee
	for _, role := range hive.WorkerRoles {
		for i := 0; i < counts[role]; i++ {
			bees = append(bees, s.Spawn(role))
		}
	}
	slog.Info("initial population spawned", "bees", len(bees))
	return bees
}

// Wait blocks until every spawned bee has exited.
func (s *Spawner) Wait() {
	s.wg.Wait()
}
