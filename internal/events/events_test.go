package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/talgya/hivesim/internal/entropy"
	"github.com/talgya/hivesim/internal/hive"
)

func newTestHive() *hive.Hive {
	return hive.New(hive.Config{CellCapacity: 10, CarryCapacity: 5, LarvaeCapacity: 5}, entropy.New(2))
}

func TestFairQuality_StaysInFavorableBand(t *testing.T) {
	m := NewManager(newTestHive(), entropy.New(11), DefaultTimings())
	m.start = time.Now()

	for i := 0; i < 200; i++ {
		m.start = time.Now().Add(-time.Duration(i) * time.Second)
		q := m.fairQuality()
		assert.GreaterOrEqual(t, q, 0.8)
		assert.LessOrEqual(t, q, 1.2)
	}
}

func TestManager_StartRaisesDaySignal(t *testing.T) {
	h := newTestHive()
	m := NewManager(h, entropy.New(11), DefaultTimings())

	m.Start()
	assert.True(t, h.IsDaytime())

	h.Stop()
	done := make(chan struct{})
	go func() {
		m.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("drivers did not observe the stop signal")
	}
}

func TestDayNight_Alternates(t *testing.T) {
	h := newTestHive()
	tm := DefaultTimings()
	tm.DayLength = 20 * time.Millisecond
	tm.NightLength = 20 * time.Millisecond
	m := NewManager(h, entropy.New(11), tm)

	m.Start()
	defer func() {
		h.Stop()
		m.Wait()
	}()

	assert.True(t, h.IsDaytime())
	time.Sleep(30 * time.Millisecond)
	assert.False(t, h.IsDaytime())
	time.Sleep(20 * time.Millisecond)
	assert.True(t, h.IsDaytime())
}

func TestSleep_AbortsOnStop(t *testing.T) {
	h := newTestHive()
	m := NewManager(h, entropy.New(11), DefaultTimings())

	go func() {
		time.Sleep(10 * time.Millisecond)
		h.Stop()
	}()

	start := time.Now()
	assert.False(t, m.sleep(5*time.Second))
	assert.Less(t, time.Since(start), time.Second)
}
