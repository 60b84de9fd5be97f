// Package hive provides the shared colony state: the bounded cell pool, the
// nectar queue, larvae accounting, the role census, environment signals, and
// the queen's mailbox.
//
// Locking discipline: each resource class (cells, larvae, queue, census,
// stats, flower quality, mailbox) is guarded by its own mutex, and no
// operation ever holds two of them at once. Cross-resource operations take
// the locks sequentially, so lock-ordering deadlock is ruled out by
// construction. Every mutating operation is non-blocking: exhaustion is an
// ok=false result, never a wait.
package hive

import (
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/talgya/hivesim/internal/entropy"
)

// Config holds the colony's fixed capacities.
type Config struct {
	CellCapacity   int // storage cells for nectar
	CarryCapacity  int // max nectar a forager carries per flower visit
	LarvaeCapacity int // larvae that can be fed this run
}

// NectarLoad is one queued delivery from a forager, waiting for a storer.
type NectarLoad struct {
	Amount int
	BeeID  string
}

// Hive is the shared state container. One Hive is built per simulation run
// and a reference is handed to every bee, the queen, the event drivers, and
// the stats collector.
type Hive struct {
	cfg Config
	rng *entropy.Source

	cellsMu       sync.Mutex
	occupiedCells int

	larvaeMu  sync.Mutex
	larvaeFed int

	queueMu     sync.Mutex
	nectarQueue []NectarLoad

	statsMu  sync.Mutex
	counters Metrics
	beeStats map[string]*BeeTally

	censusMu    sync.Mutex
	census      map[Role]int
	roleChanges int

	qualityMu     sync.Mutex
	flowerQuality float64

	daytime atomic.Bool
	attack  atomic.Bool
	raining atomic.Bool

	mailMu   sync.Mutex
	mailbox  []Message
	mailWake chan struct{}

	stopOnce sync.Once
	stop     chan struct{}
}

// New creates a Hive with the given capacities. The random source feeds
// flower-visit yields; inject a seeded one for reproducible runs.
func New(cfg Config, rng *entropy.Source) *Hive {
	return &Hive{
		cfg:           cfg,
		rng:           rng,
		flowerQuality: 1.0,
		beeStats:      make(map[string]*BeeTally),
		census:        make(map[Role]int),
		mailWake:      make(chan struct{}, 1),
		stop:          make(chan struct{}),
	}
}

// Config returns the colony's capacities.
func (h *Hive) Config() Config { return h.cfg }

// ── Cell pool ─────────────────────────────────────────────────────────

// AcquireCell claims one storage cell. Fails without blocking when the pool
// is full; the occupancy count never exceeds CellCapacity.
func (h *Hive) AcquireCell() bool {
	h.cellsMu.Lock()
	defer h.cellsMu.Unlock()
	if h.occupiedCells >= h.cfg.CellCapacity {
		return false
	}
	h.occupiedCells++
	return true
}

// ReleaseCell frees one storage cell. Fails when none are occupied.
func (h *Hive) ReleaseCell() bool {
	h.cellsMu.Lock()
	defer h.cellsMu.Unlock()
	if h.occupiedCells == 0 {
		return false
	}
	h.occupiedCells--
	return true
}

// OccupiedCells returns the current cell occupancy.
func (h *Hive) OccupiedCells() int {
	h.cellsMu.Lock()
	defer h.cellsMu.Unlock()
	return h.occupiedCells
}

// ── Nectar queue ──────────────────────────────────────────────────────

// EnqueueNectar appends a forager's delivery to the queue and credits the
// collection counters.
func (h *Hive) EnqueueNectar(amount int, beeID string) {
	h.queueMu.Lock()
	h.nectarQueue = append(h.nectarQueue, NectarLoad{Amount: amount, BeeID: beeID})
	h.queueMu.Unlock()

	h.statsMu.Lock()
	h.counters.NectarCollected += amount
	h.tally(beeID).NectarCollected += amount
	h.statsMu.Unlock()
}

// DequeueNectar pops the oldest queued delivery. ok is false when the queue
// is empty.
func (h *Hive) DequeueNectar() (NectarLoad, bool) {
	h.queueMu.Lock()
	defer h.queueMu.Unlock()
	if len(h.nectarQueue) == 0 {
		return NectarLoad{}, false
	}
	load := h.nectarQueue[0]
	h.nectarQueue = h.nectarQueue[1:]
	return load, true
}

// QueueLen returns the number of pending deliveries.
func (h *Hive) QueueLen() int {
	h.queueMu.Lock()
	defer h.queueMu.Unlock()
	return len(h.nectarQueue)
}

// StoreNectar claims a cell for a dequeued load. On success the stored
// counters are credited to the storer.
func (h *Hive) StoreNectar(amount int, beeID string) bool {
	if !h.AcquireCell() {
		return false
	}
	h.statsMu.Lock()
	h.counters.NectarStored += amount
	h.tally(beeID).NectarStored += amount
	h.statsMu.Unlock()
	return true
}

// ── Flowers and larvae ────────────────────────────────────────────────

// VisitFlower simulates one flower visit. Returns 0 at night. The yield is a
// random draw in [1, CarryCapacity] scaled by the current flower quality and
// clamped back to [0, CarryCapacity].
func (h *Hive) VisitFlower(beeID string) int {
	if !h.daytime.Load() {
		return 0
	}

	h.qualityMu.Lock()
	quality := h.flowerQuality
	h.qualityMu.Unlock()

	amount := int(math.Round(h.rng.Between(1, float64(h.cfg.CarryCapacity)) * quality))
	if amount > h.cfg.CarryCapacity {
		amount = h.cfg.CarryCapacity
	}
	if amount < 0 {
		amount = 0
	}

	h.statsMu.Lock()
	h.counters.FlowersVisited++
	h.tally(beeID).FlowersVisited++
	h.statsMu.Unlock()

	return amount
}

// FeedLarva consumes one stored cell to feed one larva. A larva slot is
// reserved first, then a cell is consumed; the reservation rolls back if no
// cell is available. LarvaeFed can never exceed LarvaeCapacity and the
// operation never holds the larvae and cell locks together.
func (h *Hive) FeedLarva(beeID string) bool {
	h.larvaeMu.Lock()
	if h.larvaeFed >= h.cfg.LarvaeCapacity {
		h.larvaeMu.Unlock()
		return false
	}
	h.larvaeFed++
	h.larvaeMu.Unlock()

	if !h.ReleaseCell() {
		h.larvaeMu.Lock()
		h.larvaeFed--
		h.larvaeMu.Unlock()
		return false
	}

	h.statsMu.Lock()
	h.counters.LarvaeFed++
	h.tally(beeID).LarvaeFed++
	h.tally(beeID).NectarConsumed++
	h.statsMu.Unlock()
	return true
}

// LarvaeFed returns how many larvae have been fed so far.
func (h *Hive) LarvaeFed() int {
	h.larvaeMu.Lock()
	defer h.larvaeMu.Unlock()
	return h.larvaeFed
}

// ── Role census ───────────────────────────────────────────────────────

// RegisterRole records a newly started bee in the census.
func (h *Hive) RegisterRole(role Role) {
	h.censusMu.Lock()
	defer h.censusMu.Unlock()
	h.census[role]++
}

// DeregisterRole removes a dead bee from the census, keeping the census sum
// equal to the number of live bees.
func (h *Hive) DeregisterRole(role Role) {
	h.censusMu.Lock()
	defer h.censusMu.Unlock()
	h.census[role]--
	if h.census[role] <= 0 {
		delete(h.census, role)
	}
}

// ChangeRole moves one bee between census buckets and counts the change.
func (h *Hive) ChangeRole(from, to Role) {
	h.censusMu.Lock()
	defer h.censusMu.Unlock()
	h.census[from]--
	if h.census[from] <= 0 {
		delete(h.census, from)
	}
	h.census[to]++
	h.roleChanges++
}

// RoleCensus returns a copy of the live-bee count per role.
func (h *Hive) RoleCensus() map[Role]int {
	h.censusMu.Lock()
	defer h.censusMu.Unlock()
	out := make(map[Role]int, len(h.census))
	for r, n := range h.census {
		out[r] = n
	}
	return out
}

// ── Attacks ───────────────────────────────────────────────────────────

// RaiseAttack signals an active attack on the colony.
func (h *Hive) RaiseAttack() {
	h.attack.Store(true)
	h.statsMu.Lock()
	h.counters.AttacksDetected++
	h.statsMu.Unlock()
}

// Neutralize clears an active attack and credits the guard.
func (h *Hive) Neutralize(beeID string) {
	h.attack.Store(false)
	h.statsMu.Lock()
	h.counters.AttacksNeutralized++
	h.tally(beeID).AttacksNeutralized++
	h.statsMu.Unlock()
}

// ExpireAttack clears an attack the guards failed to answer in time. No
// neutralization is credited.
func (h *Hive) ExpireAttack() {
	h.attack.Store(false)
}

// AttackActive reports whether an attack is in progress.
func (h *Hive) AttackActive() bool { return h.attack.Load() }

// ── Environment signals ───────────────────────────────────────────────

// SetWeather updates the rain flag and the flower quality multiplier.
func (h *Hive) SetWeather(raining bool, quality float64) {
	h.raining.Store(raining)
	h.qualityMu.Lock()
	h.flowerQuality = quality
	h.qualityMu.Unlock()
}

// SetDaytime flips the day/night signal.
func (h *Hive) SetDaytime(day bool) { h.daytime.Store(day) }

// IsDaytime reports whether it is currently day.
func (h *Hive) IsDaytime() bool { return h.daytime.Load() }

// Raining reports whether it is currently raining.
func (h *Hive) Raining() bool { return h.raining.Load() }

// FlowerQuality returns the current quality multiplier.
func (h *Hive) FlowerQuality() float64 {
	h.qualityMu.Lock()
	defer h.qualityMu.Unlock()
	return h.flowerQuality
}

// ── Queen mailbox ─────────────────────────────────────────────────────

// SendToQueen appends a message to the queen's mailbox. The mailbox is
// unbounded, so sending never blocks.
func (h *Hive) SendToQueen(msg Message) {
	h.mailMu.Lock()
	h.mailbox = append(h.mailbox, msg)
	h.mailMu.Unlock()

	select {
	case h.mailWake <- struct{}{}:
	default:
	}
}

// ReceiveAtQueen pops the oldest mailbox message, waiting up to timeout for
// one to arrive. ok is false on expiry or when the simulation stops.
func (h *Hive) ReceiveAtQueen(timeout time.Duration) (Message, bool) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		h.mailMu.Lock()
		if len(h.mailbox) > 0 {
			msg := h.mailbox[0]
			h.mailbox = h.mailbox[1:]
			h.mailMu.Unlock()
			return msg, true
		}
		h.mailMu.Unlock()

		select {
		case <-h.mailWake:
		case <-deadline.C:
			return Message{}, false
		case <-h.stop:
			return Message{}, false
		}
	}
}

// ── Shutdown ──────────────────────────────────────────────────────────

// Stop broadcasts the one-shot stop signal. Safe to call more than once.
func (h *Hive) Stop() {
	h.stopOnce.Do(func() { close(h.stop) })
}

// Stopped reports whether the stop signal has been raised.
func (h *Hive) Stopped() bool {
	select {
	case <-h.stop:
		return true
	default:
		return false
	}
}

// Done returns a channel closed when the simulation stops.
func (h *Hive) Done() <-chan struct{} { return h.stop }

// ── Snapshots ─────────────────────────────────────────────────────────

// SnapshotMetrics returns a copy of the global counters plus current cell
// occupancy.
func (h *Hive) SnapshotMetrics() Metrics {
	h.statsMu.Lock()
	m := h.counters
	h.statsMu.Unlock()

	h.censusMu.Lock()
	m.RoleChanges = h.roleChanges
	h.censusMu.Unlock()

	h.cellsMu.Lock()
	m.CellsOccupied = h.occupiedCells
	h.cellsMu.Unlock()
	m.CellsFree = h.cfg.CellCapacity - m.CellsOccupied
	return m
}

// BeeStats returns a copy of the per-bee contribution counters.
func (h *Hive) BeeStats() map[string]BeeTally {
	h.statsMu.Lock()
	defer h.statsMu.Unlock()
	out := make(map[string]BeeTally, len(h.beeStats))
	for id, t := range h.beeStats {
		out[id] = *t
	}
	return out
}

// tally returns the mutable tally for a bee. Caller must hold statsMu.
func (h *Hive) tally(beeID string) *BeeTally {
	t, ok := h.beeStats[beeID]
	if !ok {
		t = &BeeTally{}
		h.beeStats[beeID] = t
	}
	return t
}
