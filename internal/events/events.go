// Package events provides the environmental drivers: weather, attacks, and
// the day/night cycle. Each runs on its own timer goroutine and talks to the
// colony only through the hive's signal setters.
package events

import (
	"log/slog"
	"sync"
	"time"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/talgya/hivesim/internal/entropy"
	"github.com/talgya/hivesim/internal/hive"
)

// Timings holds the driver schedules. Zero values are not usable; start from
// DefaultTimings.
type Timings struct {
	WeatherMin time.Duration // gap between weather rolls
	WeatherMax time.Duration
	RainChance float64
	RainMin    time.Duration // how long a rain spell lasts
	RainMax    time.Duration

	AttackGrace   time.Duration // quiet period before the first attack roll
	AttackMin     time.Duration // gap between attack rolls
	AttackMax     time.Duration
	AttackChance  float64
	DayBoost      float64       // attack chance multiplier during the day
	AttackTimeout time.Duration // unanswered attacks expire after this

	DayLength   time.Duration
	NightLength time.Duration
}

// DefaultTimings mirrors the classic intense-run schedule.
func DefaultTimings() Timings {
	return Timings{
		WeatherMin:    4 * time.Second,
		WeatherMax:    8 * time.Second,
		RainChance:    0.3,
		RainMin:       2 * time.Second,
		RainMax:       5 * time.Second,
		AttackGrace:   10 * time.Second,
		AttackMin:     5 * time.Second,
		AttackMax:     8 * time.Second,
		AttackChance:  0.5,
		DayBoost:      1.5,
		AttackTimeout: 5 * time.Second,
		DayLength:     8 * time.Second,
		NightLength:   4 * time.Second,
	}
}

// Manager owns the three driver goroutines.
type Manager struct {
	hive  *hive.Hive
	rng   *entropy.Source
	t     Timings
	noise opensimplex.Noise
	start time.Time
	wg    sync.WaitGroup
}

// NewManager creates the driver set. The noise layer behind flower quality
// is seeded from the shared random source, so runs stay reproducible.
func NewManager(h *hive.Hive, rng *entropy.Source, t Timings) *Manager {
	return &Manager{
		hive:  h,
		rng:   rng,
		t:     t,
		noise: opensimplex.NewNormalized(int64(rng.IntBetween(0, 1<<30))),
	}
}

// Start launches the weather, attack, and day/night goroutines. The day
// signal is raised before returning so bees never start in limbo.
func (m *Manager) Start() {
	m.start = time.Now()
	m.hive.SetDaytime(true)

	m.wg.Add(3)
	go func() { defer m.wg.Done(); m.runWeather() }()
	go func() { defer m.wg.Done(); m.runAttacks() }()
	go func() { defer m.wg.Done(); m.runDayNight() }()

	slog.Info("environmental drivers started")
}

// Wait blocks until all drivers have observed the stop signal and exited.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// runWeather rolls for rain on a random cadence. Fair-weather flower quality
// follows a smooth noise curve over elapsed time instead of jumping around.
func (m *Manager) runWeather() {
	for m.sleep(m.rng.DurationBetween(m.t.WeatherMin, m.t.WeatherMax)) {
		if m.rng.Chance(m.t.RainChance) {
			quality := m.rng.Between(0.3, 0.7)
			m.hive.SetWeather(true, quality)
			slog.Info("rain started", "flower_quality", quality)

			if !m.sleep(m.rng.DurationBetween(m.t.RainMin, m.t.RainMax)) {
				return
			}
		}

		quality := m.fairQuality()
		m.hive.SetWeather(false, quality)
		slog.Info("fair weather", "flower_quality", quality)
	}
}

// fairQuality maps the noise curve at the current elapsed time into the
// favorable band [0.8, 1.2].
func (m *Manager) fairQuality() float64 {
	t := time.Since(m.start).Seconds() / 30.0
	return 0.8 + 0.4*m.noise.Eval2(t, 0)
}

// runAttacks raises attacks on a random cadence, more likely during the day,
// and expires any attack the guards fail to answer in time.
func (m *Manager) runAttacks() {
	if !m.sleep(m.t.AttackGrace) {
		return
	}

	for m.sleep(m.rng.DurationBetween(m.t.AttackMin, m.t.AttackMax)) {
		p := m.t.AttackChance
		if m.hive.IsDaytime() {
			p *= m.t.DayBoost
		}
		if !m.rng.Chance(p) {
			continue
		}

		m.hive.RaiseAttack()
		slog.Info("attack on the colony")

		expiry := time.Now().Add(m.t.AttackTimeout)
		for m.hive.AttackActive() && time.Now().Before(expiry) {
			if !m.sleep(100 * time.Millisecond) {
				return
			}
		}

		if m.hive.AttackActive() {
			m.hive.ExpireAttack()
			slog.Warn("attack went unanswered")
		}
	}
}

// runDayNight alternates the day signal.
func (m *Manager) runDayNight() {
	day := true
	for {
		span := m.t.DayLength
		if !day {
			span = m.t.NightLength
		}
		if !m.sleep(span) {
			return
		}

		day = !day
		m.hive.SetDaytime(day)
		if day {
			slog.Info("dawn")
		} else {
			slog.Info("dusk")
		}
	}
}

// sleep waits for d and reports whether the simulation is still running.
func (m *Manager) sleep(d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-m.hive.Done():
		return false
	}
}
