// Per-role work units. Each is exactly one unit of work; pacing between
// units is the lifecycle's job.
package agents

import (
	"github.com/talgya/hivesim/internal/hive"
)

// idleReportThreshold is how many consecutive empty dequeues a storer
// tolerates before reporting itself idle to the queen.
const idleReportThreshold = 10

// hungryReportThreshold is how many consecutive failed feeds a nurse
// tolerates before reporting the nectar shortage.
const hungryReportThreshold = 5

// work dispatches one work unit by role tag.
func (b *Bee) work(role hive.Role) {
	switch role {
	case hive.RoleForager:
		b.forage()
	case hive.RoleStorer:
		b.store()
	case hive.RoleNurse:
		b.nurse()
	case hive.RoleGuard:
		b.guard()
	}
}

// forage visits a flower and queues whatever nectar came back.
func (b *Bee) forage() {
	amount := b.hive.VisitFlower(b.ID)
	if amount > 0 {
		b.hive.EnqueueNectar(amount, b.ID)
	}
}

// store moves one queued nectar load into a storage cell. A long streak of
// empty dequeues means the foragers are not keeping up; tell the queen.
func (b *Bee) store() {
	load, ok := b.hive.DequeueNectar()
	if ok {
		b.hive.StoreNectar(load.Amount, b.ID)
		b.emptyDequeues = 0
		return
	}

	b.emptyDequeues++
	if b.emptyDequeues > idleReportThreshold {
		b.hive.SendToQueen(hive.Message{
			Kind:     hive.MsgIdle,
			Role:     b.Role(),
			BeeID:    b.ID,
			Attempts: b.emptyDequeues,
		})
		b.emptyDequeues = 0
	}
}

// nurse feeds one larva from the stored nectar. A long streak of failures
// means the colony is short on food; tell the queen.
func (b *Bee) nurse() {
	if b.hive.FeedLarva(b.ID) {
		b.failedFeeds = 0
		return
	}

	b.failedFeeds++
	if b.failedFeeds > hungryReportThreshold {
		b.hive.SendToQueen(hive.Message{
			Kind:  hive.MsgHungry,
			Role:  b.Role(),
			BeeID: b.ID,
		})
		b.failedFeeds = 0
	}
}

// guard answers an active attack after a fixed response latency, otherwise
// patrols on a shorter delay. Guards work through the night.
func (b *Bee) guard() {
	if b.hive.AttackActive() {
		b.rest(b.cfg.AttackResponse)
		b.hive.Neutralize(b.ID)
		return
	}
	b.rest(b.cfg.PatrolDelay)
}
