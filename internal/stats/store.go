// SQLite-backed run history: metric samples and final reports, keyed by run.
package stats

import (
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/hivesim/internal/hive"
)

// Store persists run history to SQLite.
type Store struct {
	conn *sqlx.DB
}

// Open opens or creates the history database at path. Use ":memory:" for an
// ephemeral store.
func Open(path string) (*Store, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &Store{conn: conn}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at TEXT NOT NULL,
		report_json TEXT
	);

	CREATE TABLE IF NOT EXISTS samples (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		elapsed_ms INTEGER NOT NULL,
		nectar_collected INTEGER NOT NULL,
		nectar_stored INTEGER NOT NULL,
		attacks_detected INTEGER NOT NULL,
		attacks_neutralized INTEGER NOT NULL,
		role_changes INTEGER NOT NULL,
		flowers_visited INTEGER NOT NULL,
		larvae_fed INTEGER NOT NULL,
		cells_occupied INTEGER NOT NULL,
		census_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_samples_run ON samples(run_id);
	`
	_, err := s.conn.Exec(schema)
	return err
}

// BeginRun records the start of a simulation run.
func (s *Store) BeginRun(runID, startedAt string) error {
	_, err := s.conn.Exec(
		"INSERT OR REPLACE INTO runs (id, started_at) VALUES (?, ?)",
		runID, startedAt,
	)
	return err
}

// SaveSamples appends the observation history for a run.
func (s *Store) SaveSamples(runID string, samples []Sample) error {
	tx, err := s.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, smp := range samples {
		censusJSON, err := json.Marshal(censusNames(smp.Census))
		if err != nil {
			return fmt.Errorf("marshal census: %w", err)
		}
		_, err = tx.Exec(`
			INSERT INTO samples (
				run_id, elapsed_ms,
				nectar_collected, nectar_stored,
				attacks_detected, attacks_neutralized,
				role_changes, flowers_visited, larvae_fed,
				cells_occupied, census_json
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, smp.Elapsed.Milliseconds(),
			smp.Metrics.NectarCollected, smp.Metrics.NectarStored,
			smp.Metrics.AttacksDetected, smp.Metrics.AttacksNeutralized,
			smp.Metrics.RoleChanges, smp.Metrics.FlowersVisited, smp.Metrics.LarvaeFed,
			smp.Metrics.CellsOccupied, string(censusJSON),
		)
		if err != nil {
			return fmt.Errorf("insert sample: %w", err)
		}
	}

	return tx.Commit()
}

// SaveReport attaches the final report to a run.
func (s *Store) SaveReport(runID string, r Report) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	_, err = s.conn.Exec("UPDATE runs SET report_json = ? WHERE id = ?", string(data), runID)
	return err
}

// SampleCount returns how many samples are stored for a run.
func (s *Store) SampleCount(runID string) (int, error) {
	var n int
	err := s.conn.Get(&n, "SELECT COUNT(*) FROM samples WHERE run_id = ?", runID)
	return n, err
}

// LoadReport returns the stored report for a run.
func (s *Store) LoadReport(runID string) (Report, error) {
	var data string
	if err := s.conn.Get(&data, "SELECT report_json FROM runs WHERE id = ?", runID); err != nil {
		return Report{}, err
	}
	var r Report
	if err := json.Unmarshal([]byte(data), &r); err != nil {
		return Report{}, fmt.Errorf("unmarshal report: %w", err)
	}
	return r, nil
}

// censusNames converts a role-keyed census to string keys for JSON storage.
func censusNames(census map[hive.Role]int) map[string]int {
	out := make(map[string]int, len(census))
	for role, n := range census {
		out[role.String()] = n
	}
	return out
}
