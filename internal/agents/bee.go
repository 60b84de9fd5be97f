// Package agents provides the bee: a role-tagged goroutine that works the
// shared hive state for its lifespan. Roles are data, not types — the queen
// can retag a live bee and the new behavior takes effect on its next cycle.
package agents

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/talgya/hivesim/internal/hive"
)

// Defaults holds the timing parameters shared by every spawned bee.
type Defaults struct {
	Lifespan       time.Duration // bee dies when this elapses
	WorkInterval   time.Duration // pause between work cycles
	NightRest      time.Duration // low-frequency wait while it is night
	PatrolDelay    time.Duration // guard pacing when no attack is active
	AttackResponse time.Duration // guard latency before neutralizing
}

// Bee is one colony member running on its own goroutine. The queen holds a
// non-owning reference for role changes; everything else is owned by the
// bee's own execution.
type Bee struct {
	ID string

	hive *hive.Hive
	cfg  Defaults

	mu   sync.Mutex
	role hive.Role

	// Behavior streaks, touched only from the bee's own goroutine.
	emptyDequeues int
	failedFeeds   int
}

// NewBee creates a bee and registers its role in the hive census. The bee
// does not run until Run is called.
func NewBee(h *hive.Hive, role hive.Role, cfg Defaults) *Bee {
	b := &Bee{
		ID:   uuid.NewString()[:8],
		hive: h,
		cfg:  cfg,
		role: role,
	}
	h.RegisterRole(role)
	return b
}

// Role returns the bee's current role.
func (b *Bee) Role() hive.Role {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.role
}

// ChangeRole retags the bee and updates the hive census. Called from the
// queen's goroutine; the bee picks up the new role on its next work cycle.
func (b *Bee) ChangeRole(to hive.Role) {
	b.mu.Lock()
	from := b.role
	if from == to {
		b.mu.Unlock()
		return
	}
	b.role = to
	b.mu.Unlock()

	b.hive.ChangeRole(from, to)
	slog.Info("role changed", "bee", b.ID, "from", from, "to", to)
}

// Run is the bee's lifecycle: one work unit per cycle until the lifespan
// elapses, the stop signal is observed, or a cycle panics. Bees other than
// guards rest at night. On death the bee deregisters from the census and,
// unless the whole simulation is stopping, reports to the queen so a
// replacement can be spawned.
func (b *Bee) Run() {
	deadline := time.Now().Add(b.cfg.Lifespan)

	for time.Now().Before(deadline) && !b.hive.Stopped() {
		role := b.Role()

		if !b.hive.IsDaytime() && role != hive.RoleGuard {
			b.rest(b.cfg.NightRest)
			continue
		}

		if panicked := b.safeWork(role); panicked {
			break
		}

		b.rest(b.cfg.WorkInterval)
	}

	b.die()
}

// safeWork runs one work unit, converting a panic into a normal death so a
// faulty bee cannot take the simulation down.
func (b *Bee) safeWork(role hive.Role) (panicked bool) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("bee work cycle panicked", "bee", b.ID, "role", role, "panic", r)
			panicked = true
		}
	}()
	b.work(role)
	return false
}

// rest sleeps for d, waking early if the stop signal arrives.
func (b *Bee) rest(d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-b.hive.Done():
	}
}

// die performs the Alive→Dead transition. The death message is suppressed
// during global shutdown to prevent a replacement storm.
func (b *Bee) die() {
	role := b.Role()
	b.hive.DeregisterRole(role)

	if !b.hive.Stopped() {
		slog.Debug("bee died", "bee", b.ID, "role", role)
		b.hive.SendToQueen(hive.Message{Kind: hive.MsgDeath, Role: role, BeeID: b.ID})
	}
}
