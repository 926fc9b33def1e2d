// Package metrics keeps per-mode invocation counts in a small local
// SQLite database and optionally surfaces the totals as an
// OpenTelemetry gauge.
package metrics

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Mode labels which wikiscout entry point was invoked.
type Mode string

const (
	ModeQuery  Mode = "query"
	ModeRefine Mode = "refine"
	ModeWebUI  Mode = "webui"
)

// AllModes lists every tracked mode in display order.
var AllModes = []Mode{ModeQuery, ModeRefine, ModeWebUI}

const stateDirName = ".wikiscout"

const (
	createTableStmt = `
		CREATE TABLE IF NOT EXISTS invocation_counts (
			mode  TEXT NOT NULL,
			date  TEXT NOT NULL,
			count INTEGER DEFAULT 0,
			PRIMARY KEY (mode, date)
		);`

	incrementStmt = `
		INSERT INTO invocation_counts (mode, date, count)
		VALUES (?, ?, 1)
		ON CONFLICT(mode, date) DO UPDATE SET count = count + 1;`

	totalByModeQuery = `SELECT COALESCE(SUM(count), 0) FROM invocation_counts WHERE mode = ?`
	allTotalsQuery   = `SELECT mode, COALESCE(SUM(count), 0) FROM invocation_counts GROUP BY mode`
	countByDateQuery = `SELECT COALESCE(count, 0) FROM invocation_counts WHERE mode = ? AND date = ?`
)

// Store wraps the SQLite handle holding invocation counts. Counts are
// keyed by (mode, day); totals sum across days.
type Store struct {
	db *sql.DB
}

// NewStore opens (creating if needed) the stats database under the
// user's ~/.wikiscout directory.
func NewStore() (*Store, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve home directory: %w", err)
	}

	dir := filepath.Join(home, stateDirName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", dir, err)
	}

	return NewStoreWithPath(filepath.Join(dir, "stats.db"))
}

// NewStoreWithPath opens the stats database at an explicit path. Tests
// use this to point the store at a throwaway file.
func NewStoreWithPath(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open stats database: %w", err)
	}

	if _, err := db.Exec(createTableStmt); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create invocation_counts table: %w", err)
	}

	return &Store{db: db}, nil
}

// Increment bumps today's count for mode, inserting the row on first use.
func (s *Store) Increment(mode Mode) error {
	today := time.Now().Format("2006-01-02")
	if _, err := s.db.Exec(incrementStmt, string(mode), today); err != nil {
		return fmt.Errorf("failed to increment %s count: %w", mode, err)
	}
	return nil
}

// GetTotalByMode sums a mode's counts across all recorded days.
func (s *Store) GetTotalByMode(mode Mode) (int64, error) {
	var total int64
	if err := s.db.QueryRow(totalByModeQuery, string(mode)).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to total %s invocations: %w", mode, err)
	}
	return total, nil
}

// GetAllTotals returns the cumulative count for every mode. Modes never
// recorded report zero.
func (s *Store) GetAllTotals() (map[Mode]int64, error) {
	totals := make(map[Mode]int64, len(AllModes))
	for _, mode := range AllModes {
		totals[mode] = 0
	}

	rows, err := s.db.Query(allTotalsQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to read invocation totals: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var mode string
		var total int64
		if err := rows.Scan(&mode, &total); err != nil {
			return nil, fmt.Errorf("failed to scan totals row: %w", err)
		}
		totals[Mode(mode)] = total
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed iterating totals: %w", err)
	}

	return totals, nil
}

// GetCountByDate reads a single (mode, date) cell; a missing row is zero.
func (s *Store) GetCountByDate(mode Mode, date string) (int64, error) {
	var count int64
	err := s.db.QueryRow(countByDateQuery, string(mode), date).Scan(&count)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read %s count for %s: %w", mode, date, err)
	}
	return count, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
