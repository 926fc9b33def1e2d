package metrics

import (
	"log"
	"sync"
)

// Process-wide store shared by the CLI commands and the web console.
var (
	defaultStore *Store
	openOnce     sync.Once
	openErr      error
)

// Init opens the shared store. Safe to call more than once; only the
// first call does work.
func Init() error {
	if defaultStore != nil {
		return nil
	}
	openOnce.Do(func() {
		defaultStore, openErr = NewStore()
		if openErr != nil {
			log.Printf("metrics: store unavailable: %v", openErr)
		}
	})
	return openErr
}

// RecordInvocation bumps the count for mode. Recording is best-effort:
// a broken store is logged and the caller proceeds unaffected.
func RecordInvocation(mode Mode) {
	if defaultStore == nil {
		if err := Init(); err != nil {
			log.Printf("metrics: skipping %s invocation record: %v", mode, err)
			return
		}
	}
	if err := defaultStore.Increment(mode); err != nil {
		log.Printf("metrics: failed to record %s invocation: %v", mode, err)
	}
}

// GetStats returns cumulative counts for all modes, or nil when the
// store is unavailable.
func GetStats() map[Mode]int64 {
	if defaultStore == nil {
		return nil
	}
	stats, err := defaultStore.GetAllTotals()
	if err != nil {
		log.Printf("metrics: failed to read stats: %v", err)
		return nil
	}
	return stats
}

// GetTotalForMode returns one mode's cumulative count, or 0 when the
// store is unavailable or the read fails.
func GetTotalForMode(mode Mode) int64 {
	if defaultStore == nil {
		return 0
	}
	total, err := defaultStore.GetTotalByMode(mode)
	if err != nil {
		log.Printf("metrics: failed to read %s total: %v", mode, err)
		return 0
	}
	return total
}

// Close releases the shared store at shutdown.
func Close() error {
	if defaultStore == nil {
		return nil
	}
	return defaultStore.Close()
}

// GetStore exposes the shared store for tests.
func GetStore() *Store {
	return defaultStore
}

// SetStoreForTesting swaps in a test store.
func SetStoreForTesting(store *Store) {
	defaultStore = store
}

// ResetForTesting closes and clears the shared store so each test
// starts clean.
func ResetForTesting() {
	if defaultStore != nil {
		_ = defaultStore.Close()
	}
	defaultStore = nil
	openOnce = sync.Once{}
	openErr = nil
}
