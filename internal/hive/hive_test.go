package hive

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/hivesim/internal/entropy"
)

func newTestHive(cfg Config) *Hive {
	return New(cfg, entropy.New(1))
}

func TestAcquireCell_SequentialBound(t *testing.T) {
	h := newTestHive(Config{CellCapacity: 10, CarryCapacity: 5, LarvaeCapacity: 20})

	// First 10 store attempts succeed, the rest fail without mutation.
	for i := 0; i < 10; i++ {
		assert.True(t, h.StoreNectar(1, "bee"), "store %d should succeed", i)
	}
	assert.False(t, h.StoreNectar(1, "bee"))
	assert.False(t, h.StoreNectar(1, "bee"))
	assert.Equal(t, 10, h.OccupiedCells())
}

func TestStoreNectar_ConcurrentNeverExceedsCapacity(t *testing.T) {
	const capacity = 10
	const callers = 50
	h := newTestHive(Config{CellCapacity: capacity, CarryCapacity: 5, LarvaeCapacity: 20})

	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if h.StoreNectar(1, "racer") {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, capacity, successes)
	assert.Equal(t, capacity, h.OccupiedCells())
}

func TestReleaseCell_EmptyPoolFails(t *testing.T) {
	h := newTestHive(Config{CellCapacity: 5, CarryCapacity: 5, LarvaeCapacity: 20})

	assert.False(t, h.ReleaseCell())
	assert.Equal(t, 0, h.OccupiedCells())

	require.True(t, h.AcquireCell())
	assert.True(t, h.ReleaseCell())
	assert.False(t, h.ReleaseCell())
}

func TestFeedLarva_CapacityBound(t *testing.T) {
	h := newTestHive(Config{CellCapacity: 100, CarryCapacity: 5, LarvaeCapacity: 3})

	// Plenty of nectar available for all five attempts.
	for i := 0; i < 5; i++ {
		require.True(t, h.StoreNectar(2, "storer"))
	}

	results := make([]bool, 5)
	for i := range results {
		results[i] = h.FeedLarva("nurse")
	}

	fed := 0
	for _, ok := range results {
		if ok {
			fed++
		}
	}
	assert.Equal(t, 3, fed)
	assert.Equal(t, 3, h.LarvaeFed())
	// Failed feeds must not consume cells.
	assert.Equal(t, 2, h.OccupiedCells())
}

func TestFeedLarva_NoNectarRollsBackReservation(t *testing.T) {
	h := newTestHive(Config{CellCapacity: 10, CarryCapacity: 5, LarvaeCapacity: 3})

	assert.False(t, h.FeedLarva("nurse"))
	assert.Equal(t, 0, h.LarvaeFed())

	// The failed attempt must not have burned a larva slot.
	for i := 0; i < 3; i++ {
		require.True(t, h.StoreNectar(1, "storer"))
		assert.True(t, h.FeedLarva("nurse"))
	}
	assert.Equal(t, 3, h.LarvaeFed())
}

func TestVisitFlower_NightYieldsNothing(t *testing.T) {
	h := newTestHive(Config{CellCapacity: 10, CarryCapacity: 5, LarvaeCapacity: 20})
	h.SetDaytime(false)
	h.SetWeather(false, 5.0) // quality must not matter at night

	for i := 0; i < 20; i++ {
		assert.Zero(t, h.VisitFlower("forager"))
	}
	assert.Zero(t, h.SnapshotMetrics().FlowersVisited)
}

func TestVisitFlower_DayYieldWithinCarryCapacity(t *testing.T) {
	h := newTestHive(Config{CellCapacity: 10, CarryCapacity: 5, LarvaeCapacity: 20})
	h.SetDaytime(true)
	h.SetWeather(false, 10.0) // extreme quality still clamps to carry capacity

	for i := 0; i < 50; i++ {
		got := h.VisitFlower("forager")
		assert.GreaterOrEqual(t, got, 0)
		assert.LessOrEqual(t, got, 5)
	}
	assert.Equal(t, 50, h.SnapshotMetrics().FlowersVisited)
}

func TestNectarQueue_FIFO(t *testing.T) {
	h := newTestHive(Config{CellCapacity: 10, CarryCapacity: 5, LarvaeCapacity: 20})

	h.EnqueueNectar(1, "a")
	h.EnqueueNectar(2, "b")
	h.EnqueueNectar(3, "c")

	load, ok := h.DequeueNectar()
	require.True(t, ok)
	assert.Equal(t, NectarLoad{Amount: 1, BeeID: "a"}, load)

	load, ok = h.DequeueNectar()
	require.True(t, ok)
	assert.Equal(t, NectarLoad{Amount: 2, BeeID: "b"}, load)

	load, ok = h.DequeueNectar()
	require.True(t, ok)
	assert.Equal(t, NectarLoad{Amount: 3, BeeID: "c"}, load)

	_, ok = h.DequeueNectar()
	assert.False(t, ok)
}

func TestEnqueueNectar_CreditsCollectionCounters(t *testing.T) {
	h := newTestHive(Config{CellCapacity: 10, CarryCapacity: 5, LarvaeCapacity: 20})

	h.EnqueueNectar(3, "a")
	h.EnqueueNectar(4, "a")

	assert.Equal(t, 7, h.SnapshotMetrics().NectarCollected)
	assert.Equal(t, 7, h.BeeStats()["a"].NectarCollected)
}

func TestRoleCensus_RegisterChangeDeregister(t *testing.T) {
	h := newTestHive(Config{CellCapacity: 10, CarryCapacity: 5, LarvaeCapacity: 20})

	h.RegisterRole(RoleForager)
	h.RegisterRole(RoleForager)
	h.RegisterRole(RoleStorer)
	assert.Equal(t, map[Role]int{RoleForager: 2, RoleStorer: 1}, h.RoleCensus())

	h.ChangeRole(RoleForager, RoleNurse)
	assert.Equal(t, map[Role]int{RoleForager: 1, RoleStorer: 1, RoleNurse: 1}, h.RoleCensus())
	assert.Equal(t, 1, h.SnapshotMetrics().RoleChanges)

	h.DeregisterRole(RoleStorer)
	assert.Equal(t, map[Role]int{RoleForager: 1, RoleNurse: 1}, h.RoleCensus())
}

func TestAttackLifecycle(t *testing.T) {
	h := newTestHive(Config{CellCapacity: 10, CarryCapacity: 5, LarvaeCapacity: 20})

	assert.False(t, h.AttackActive())

	h.RaiseAttack()
	assert.True(t, h.AttackActive())

	h.Neutralize("guard")
	assert.False(t, h.AttackActive())

	m := h.SnapshotMetrics()
	assert.Equal(t, 1, m.AttacksDetected)
	assert.Equal(t, 1, m.AttacksNeutralized)
	assert.Equal(t, 1, h.BeeStats()["guard"].AttacksNeutralized)

	// Expiry clears without crediting anyone.
	h.RaiseAttack()
	h.ExpireAttack()
	assert.False(t, h.AttackActive())
	m = h.SnapshotMetrics()
	assert.Equal(t, 2, m.AttacksDetected)
	assert.Equal(t, 1, m.AttacksNeutralized)
}

func TestMailbox_TimeoutExpires(t *testing.T) {
	h := newTestHive(Config{CellCapacity: 10, CarryCapacity: 5, LarvaeCapacity: 20})

	start := time.Now()
	_, ok := h.ReceiveAtQueen(30 * time.Millisecond)
	assert.False(t, ok)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestMailbox_DeliversInOrder(t *testing.T) {
	h := newTestHive(Config{CellCapacity: 10, CarryCapacity: 5, LarvaeCapacity: 20})

	h.SendToQueen(Message{Kind: MsgDeath, BeeID: "a"})
	h.SendToQueen(Message{Kind: MsgIdle, BeeID: "b"})

	msg, ok := h.ReceiveAtQueen(10 * time.Millisecond)
	require.True(t, ok)
	assert.Equal(t, "a", msg.BeeID)

	msg, ok = h.ReceiveAtQueen(10 * time.Millisecond)
	require.True(t, ok)
	assert.Equal(t, "b", msg.BeeID)
}

func TestMailbox_WakesBlockedReceiver(t *testing.T) {
	h := newTestHive(Config{CellCapacity: 10, CarryCapacity: 5, LarvaeCapacity: 20})

	go func() {
		time.Sleep(20 * time.Millisecond)
		h.SendToQueen(Message{Kind: MsgHungry, BeeID: "n"})
	}()

	msg, ok := h.ReceiveAtQueen(500 * time.Millisecond)
	require.True(t, ok)
	assert.Equal(t, MsgHungry, msg.Kind)
}

func TestMailbox_ReceiveAbortsOnStop(t *testing.T) {
	h := newTestHive(Config{CellCapacity: 10, CarryCapacity: 5, LarvaeCapacity: 20})

	go func() {
		time.Sleep(10 * time.Millisecond)
		h.Stop()
	}()

	start := time.Now()
	_, ok := h.ReceiveAtQueen(5 * time.Second)
	assert.False(t, ok)
	assert.Less(t, time.Since(start), time.Second)
}

func TestStop_IsIdempotentAndMonotonic(t *testing.T) {
	h := newTestHive(Config{CellCapacity: 10, CarryCapacity: 5, LarvaeCapacity: 20})

	assert.False(t, h.Stopped())
	h.Stop()
	h.Stop()
	assert.True(t, h.Stopped())

	select {
	case <-h.Done():
	default:
		t.Fatal("Done channel should be closed after Stop")
	}
}

func TestSnapshotMetrics_CellAccounting(t *testing.T) {
	h := newTestHive(Config{CellCapacity: 8, CarryCapacity: 5, LarvaeCapacity: 20})

	require.True(t, h.StoreNectar(2, "s"))
	require.True(t, h.StoreNectar(3, "s"))

	m := h.SnapshotMetrics()
	assert.Equal(t, 2, m.CellsOccupied)
	assert.Equal(t, 6, m.CellsFree)
	assert.Equal(t, 5, m.NectarStored)
}
