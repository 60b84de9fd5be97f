package stats

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/hivesim/internal/hive"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_SamplesRoundTrip(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.BeginRun("run-1", time.Now().Format(time.RFC3339)))

	samples := []Sample{
		{
			Elapsed: 2 * time.Second,
			Metrics: hive.Metrics{NectarCollected: 12, NectarStored: 7, CellsOccupied: 3},
			Census:  map[hive.Role]int{hive.RoleForager: 4, hive.RoleStorer: 2},
		},
		{
			Elapsed: 4 * time.Second,
			Metrics: hive.Metrics{NectarCollected: 30, NectarStored: 18, CellsOccupied: 6},
			Census:  map[hive.Role]int{hive.RoleForager: 3, hive.RoleStorer: 3},
		},
	}
	require.NoError(t, s.SaveSamples("run-1", samples))

	n, err := s.SampleCount("run-1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestStore_ReportRoundTrip(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.BeginRun("run-2", time.Now().Format(time.RFC3339)))

	var r Report
	r.GeneratedAt = time.Now().Format(time.RFC3339)
	r.Nectar.Collected = 120
	r.Defense.Efficiency = 75.0
	r.AverageRoles = map[string]float64{"forager": 3.5}

	require.NoError(t, s.SaveReport("run-2", r))

	loaded, err := s.LoadReport("run-2")
	require.NoError(t, err)
	assert.Equal(t, 120, loaded.Nectar.Collected)
	assert.InDelta(t, 75.0, loaded.Defense.Efficiency, 1e-9)
	assert.InDelta(t, 3.5, loaded.AverageRoles["forager"], 1e-9)
}

func TestStore_SeparateRunsKeepSeparateHistory(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.BeginRun("a", time.Now().Format(time.RFC3339)))
	require.NoError(t, s.BeginRun("b", time.Now().Format(time.RFC3339)))

	require.NoError(t, s.SaveSamples("a", []Sample{{Elapsed: time.Second}}))

	n, err := s.SampleCount("a")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = s.SampleCount("b")
	require.NoError(t, err)
	assert.Zero(t, n)
}
