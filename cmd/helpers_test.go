package cmd

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wikiscout/wikiscout/internal/metrics"
	"github.com/wikiscout/wikiscout/internal/types"
)

func captureOutput(t testing.TB, fn func()) string {
	t.Helper()
	readPipe, writePipe, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}
	defer func() {
		_ = readPipe.Close()
	}()

	originalStdout := os.Stdout
	os.Stdout = writePipe
	defer func() {
		os.Stdout = originalStdout
	}()

	fn()

	if err := writePipe.Close(); err != nil {
		t.Fatalf("failed to close write pipe: %v", err)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, readPipe); err != nil {
		t.Fatalf("failed to read captured output: %v", err)
	}

	return buf.String()
}

// serviceStub fakes the search service for command tests.
type serviceStub struct {
	mu        sync.Mutex
	results   []types.SearchResult
	fail      bool
	lastQuery url.Values
	server    *httptest.Server
}

func newServiceStub(t *testing.T, results []types.SearchResult) *serviceStub {
	t.Helper()
	s := &serviceStub{results: results}
	s.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		switch r.URL.Path {
		case "/user/query_results", "/user/query_refined":
			s.lastQuery = r.URL.Query()
			w.Header().Set("Content-Type", "application/json")
			if s.fail {
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`{"detail": "boom"}`))
				return
			}
			_ = json.NewEncoder(w).Encode(s.results)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(s.server.Close)
	return s
}

func (s *serviceStub) lastParams() url.Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastQuery
}

func (s *serviceStub) setFail(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = fail
}

// useTestMetricsStore points the metrics package at a throwaway SQLite
// database and returns its path so tests can reopen it after a command
// has closed the global store.
func useTestMetricsStore(t *testing.T) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "stats.db")
	store, err := metrics.NewStoreWithPath(dbPath)
	require.NoError(t, err)
	metrics.SetStoreForTesting(store)
	t.Cleanup(metrics.ResetForTesting)
	return dbPath
}

// modeTotal reopens the stats database at dbPath and returns the
// cumulative count for mode.
func modeTotal(t *testing.T, dbPath string, mode metrics.Mode) int64 {
	t.Helper()
	store, err := metrics.NewStoreWithPath(dbPath)
	require.NoError(t, err)
	defer func() {
		_ = store.Close()
	}()

	total, err := store.GetTotalByMode(mode)
	require.NoError(t, err)
	return total
}
