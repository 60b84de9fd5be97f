// Package queen provides the colony coordinator: a queen-role agent that
// drains the mailbox, replaces dead bees, and nudges the role census back
// toward the configured ideal ratios.
package queen

import (
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/talgya/hivesim/internal/agents"
	"github.com/talgya/hivesim/internal/entropy"
	"github.com/talgya/hivesim/internal/hive"
)

// deviationThreshold is how far a role's census may drift from its ideal
// share (as a fraction of the ideal) before the queen reassigns someone.
const deviationThreshold = 0.1

// Config controls the queen's pacing and decision probabilities.
type Config struct {
	IdealRatios     map[hive.Role]float64 // worker role → fraction, sums to 1
	Lifespan        time.Duration
	WorkInterval    time.Duration
	NightRest       time.Duration
	MailboxTimeout  time.Duration // per-cycle receive wait
	RebalanceChance float64       // probability of running rebalance per cycle
	SnapshotChance  float64       // probability of pulling metrics per cycle
}

// Queen coordinates the colony. She owns the live-bee registry and is the
// only consumer of the hive mailbox.
type Queen struct {
	ID string

	hive    *hive.Hive
	spawner *agents.Spawner
	rng     *entropy.Source
	cfg     Config

	mu       sync.Mutex
	registry map[string]*agents.Bee

	// Optional read-only consumer for periodic metric pulls.
	MetricsSink func(hive.Metrics)
}

// New creates a queen and registers her in the hive census. The ideal ratio
// table must cover only worker roles and sum to 1.
func New(h *hive.Hive, spawner *agents.Spawner, rng *entropy.Source, cfg Config) (*Queen, error) {
	var sum float64
	for role, frac := range cfg.IdealRatios {
		if role == hive.RoleQueen {
			return nil, fmt.Errorf("ideal ratios must not include the queen role")
		}
		if frac < 0 {
			return nil, fmt.Errorf("ideal ratio for %s is negative", role)
		}
		sum += frac
	}
	if math.Abs(sum-1.0) > 1e-6 {
		return nil, fmt.Errorf("ideal ratios sum to %.4f, want 1.0", sum)
	}

	q := &Queen{
		ID:       uuid.NewString()[:8],
		hive:     h,
		spawner:  spawner,
		rng:      rng,
		cfg:      cfg,
		registry: make(map[string]*agents.Bee),
	}
	return q, nil
}

// Track adds a bee to the live registry. Bootstrap calls this for the
// initial population; replacements are tracked as they are spawned.
func (q *Queen) Track(b *agents.Bee) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.registry[b.ID] = b
}

// TrackedCount returns the number of bees in the registry.
func (q *Queen) TrackedCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.registry)
}

// Run is the queen's lifecycle. Like any bee she rests at night and exits
// when her lifespan elapses or the stop signal arrives.
func (q *Queen) Run() {
	deadline := time.Now().Add(q.cfg.Lifespan)
	q.hive.RegisterRole(hive.RoleQueen)
	defer q.hive.DeregisterRole(hive.RoleQueen)

	for time.Now().Before(deadline) && !q.hive.Stopped() {
		if !q.hive.IsDaytime() {
			q.rest(q.cfg.NightRest)
			continue
		}

		if panicked := q.safeCycle(); panicked {
			return
		}

		q.rest(q.cfg.WorkInterval)
	}
}

func (q *Queen) safeCycle() (panicked bool) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("queen cycle panicked", "queen", q.ID, "panic", r)
			panicked = true
		}
	}()
	q.cycle()
	return false
}

// cycle is one coordination work unit: drain at most one message, then with
// small probability rebalance roles or pull a metrics snapshot.
func (q *Queen) cycle() {
	if msg, ok := q.hive.ReceiveAtQueen(q.cfg.MailboxTimeout); ok {
		q.Dispatch(msg)
	}

	if q.rng.Chance(q.cfg.RebalanceChance) {
		q.Rebalance()
	}

	if q.rng.Chance(q.cfg.SnapshotChance) {
		m := q.hive.SnapshotMetrics()
		slog.Debug("queen metrics pull",
			"collected", m.NectarCollected,
			"stored", m.NectarStored,
			"larvae_fed", m.LarvaeFed,
			"cells_occupied", m.CellsOccupied,
		)
		if q.MetricsSink != nil {
			q.MetricsSink(m)
		}
	}
}

// Dispatch handles one mailbox message.
func (q *Queen) Dispatch(msg hive.Message) {
	switch msg.Kind {
	case hive.MsgDeath:
		q.replaceDead(msg)

	case hive.MsgIdle:
		if msg.Role != hive.RoleStorer {
			return
		}
		// Only retask idle storers once production has actually begun;
		// at startup the queue is legitimately empty.
		if q.hive.SnapshotMetrics().NectarCollected == 0 {
			return
		}
		q.mu.Lock()
		b := q.registry[msg.BeeID]
		q.mu.Unlock()
		if b != nil {
			b.ChangeRole(hive.RoleForager)
		}

	case hive.MsgHungry:
		if msg.Role != hive.RoleNurse {
			return
		}
		// Extension point: recorded as a nectar-need signal, no autonomous
		// action beyond the forward.
		q.hive.SendToQueen(hive.Message{Kind: hive.MsgNeedNectar})

	case hive.MsgNeedNectar:
		slog.Debug("colony short on nectar", "queen", q.ID)
	}
}

// replaceDead prunes the registry and spawns a same-role replacement with
// the same defaults as the initial population.
func (q *Queen) replaceDead(msg hive.Message) {
	q.mu.Lock()
	delete(q.registry, msg.BeeID)
	q.mu.Unlock()

	replacement := q.spawner.Spawn(msg.Role)
	q.Track(replacement)
	slog.Debug("bee replaced", "dead", msg.BeeID, "role", msg.Role, "replacement", replacement.ID)
}

// Rebalance compares the live census against the ideal ratios and retags at
// most one bee from the most over-represented role to the most
// under-represented one. Returns true if a bee was reassigned.
func (q *Queen) Rebalance() bool {
	surplus, deficit, ok := q.identifyImbalance()
	if !ok {
		return false
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	for _, b := range q.registry {
		if b.Role() == surplus {
			b.ChangeRole(deficit)
			return true
		}
	}
	return false
}

// identifyImbalance finds the surplus and deficit roles. Deviation per role
// is (actual − ideal) / ideal, with ideal 0 treated as +Inf when any bee
// holds the role. Roles are scanned in fixed order, so ties are
// deterministic. ok is false when no significant imbalance exists.
func (q *Queen) identifyImbalance() (surplus, deficit hive.Role, ok bool) {
	census := q.hive.RoleCensus()
	total := 0
	for _, n := range census {
		total += n
	}
	if total == 0 {
		return 0, 0, false
	}

	maxDev := math.Inf(-1)
	minDev := math.Inf(1)
	for _, role := range hive.WorkerRoles {
		ideal := math.Round(float64(total) * q.cfg.IdealRatios[role])
		actual := float64(census[role])

		var dev float64
		switch {
		case ideal == 0 && actual > 0:
			dev = math.Inf(1)
		case ideal == 0:
			dev = 0
		default:
			dev = (actual - ideal) / ideal
		}

		if dev > maxDev {
			maxDev = dev
			surplus = role
		}
		if dev < minDev {
			minDev = dev
			deficit = role
		}
	}

	if maxDev > deviationThreshold && minDev < -deviationThreshold {
		return surplus, deficit, true
	}
	return 0, 0, false
}

// rest sleeps for d, waking early on the stop signal.
func (q *Queen) rest(d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-q.hive.Done():
	}
}
