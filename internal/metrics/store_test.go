package metrics

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNewStoreWithPath(t *testing.T) {
	// Create temp directory for test database
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test_stats.db")

	store, err := NewStoreWithPath(dbPath)
	if err != nil {
		t.Fatalf("NewStoreWithPath failed: %v", err)
	}
	defer func() { _ = store.Close() }()

	// Verify database file was created
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created")
	}
}

func TestIncrement(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test_stats.db")

	store, err := NewStoreWithPath(dbPath)
	if err != nil {
		t.Fatalf("NewStoreWithPath failed: %v", err)
	}
	defer func() { _ = store.Close() }()

	// Test increment
	if err := store.Increment(ModeQuery); err != nil {
		t.Fatalf("Increment failed: %v", err)
	}

	// Verify count
	today := time.Now().Format("2006-01-02")
	count, err := store.GetCountByDate(ModeQuery, today)
	if err != nil {
		t.Fatalf("GetCountByDate failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected count 1, got %d", count)
	}

	// Increment again: the (mode, date) row must be updated, not duplicated
	if err := store.Increment(ModeQuery); err != nil {
		t.Fatalf("Second increment failed: %v", err)
	}

	count, err = store.GetCountByDate(ModeQuery, today)
	if err != nil {
		t.Fatalf("GetCountByDate failed: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected count 2, got %d", count)
	}
}

func TestGetTotalByMode(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test_stats.db")

	store, err := NewStoreWithPath(dbPath)
	if err != nil {
		t.Fatalf("NewStoreWithPath failed: %v", err)
	}
	defer func() { _ = store.Close() }()

	// Increment multiple times for query
	for i := 0; i < 5; i++ {
		if err := store.Increment(ModeQuery); err != nil {
			t.Fatalf("Increment failed: %v", err)
		}
	}

	// Increment multiple times for refine
	for i := 0; i < 3; i++ {
		if err := store.Increment(ModeRefine); err != nil {
			t.Fatalf("Increment failed: %v", err)
		}
	}

	// Verify totals
	queryTotal, err := store.GetTotalByMode(ModeQuery)
	if err != nil {
		t.Fatalf("GetTotalByMode failed: %v", err)
	}
	if queryTotal != 5 {
		t.Errorf("Expected query total 5, got %d", queryTotal)
	}

	refineTotal, err := store.GetTotalByMode(ModeRefine)
	if err != nil {
		t.Fatalf("GetTotalByMode failed: %v", err)
	}
	if refineTotal != 3 {
		t.Errorf("Expected refine total 3, got %d", refineTotal)
	}
}

func TestTotalsAggregateAcrossDates(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test_stats.db")

	store, err := NewStoreWithPath(dbPath)
	if err != nil {
		t.Fatalf("NewStoreWithPath failed: %v", err)
	}
	defer func() { _ = store.Close() }()

	if err := store.Increment(ModeQuery); err != nil {
		t.Fatalf("Increment failed: %v", err)
	}

	// Seed a row for an earlier date directly; Increment always writes today.
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer func() { _ = db.Close() }()
	if _, err := db.Exec(
		"INSERT INTO invocation_counts (mode, date, count) VALUES (?, ?, ?)",
		string(ModeQuery), "2025-01-01", 7,
	); err != nil {
		t.Fatalf("failed to seed row: %v", err)
	}

	total, err := store.GetTotalByMode(ModeQuery)
	if err != nil {
		t.Fatalf("GetTotalByMode failed: %v", err)
	}
	if total != 8 {
		t.Errorf("Expected total 8 across dates, got %d", total)
	}
}

func TestGetAllTotals(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test_stats.db")

	store, err := NewStoreWithPath(dbPath)
	if err != nil {
		t.Fatalf("NewStoreWithPath failed: %v", err)
	}
	defer func() { _ = store.Close() }()

	// Increment various modes
	_ = store.Increment(ModeQuery)
	_ = store.Increment(ModeQuery)
	_ = store.Increment(ModeQuery)
	_ = store.Increment(ModeRefine)
	_ = store.Increment(ModeWebUI)

	totals, err := store.GetAllTotals()
	if err != nil {
		t.Fatalf("GetAllTotals failed: %v", err)
	}

	expected := map[Mode]int64{
		ModeQuery:  3,
		ModeRefine: 1,
		ModeWebUI:  1,
	}

	for mode, expectedCount := range expected {
		if totals[mode] != expectedCount {
			t.Errorf("Mode %s: expected %d, got %d", mode, expectedCount, totals[mode])
		}
	}
}

func TestGetAllTotalsIncludesUnusedModes(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test_stats.db")

	store, err := NewStoreWithPath(dbPath)
	if err != nil {
		t.Fatalf("NewStoreWithPath failed: %v", err)
	}
	defer func() { _ = store.Close() }()

	totals, err := store.GetAllTotals()
	if err != nil {
		t.Fatalf("GetAllTotals failed: %v", err)
	}

	for _, mode := range AllModes {
		if count, ok := totals[mode]; !ok || count != 0 {
			t.Errorf("Mode %s: expected zero entry, got %d (present: %v)", mode, count, ok)
		}
	}
}

func TestModeConstants(t *testing.T) {
	// Verify mode constants are as expected
	if ModeQuery != "query" {
		t.Errorf("ModeQuery expected 'query', got '%s'", ModeQuery)
	}
	if ModeRefine != "refine" {
		t.Errorf("ModeRefine expected 'refine', got '%s'", ModeRefine)
	}
	if ModeWebUI != "webui" {
		t.Errorf("ModeWebUI expected 'webui', got '%s'", ModeWebUI)
	}
}
