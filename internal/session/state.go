package session

import (
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/wikiscout/wikiscout/internal/types"
)

const maxHistorySize = 100

// OperationKind identifies which request flow produced an update.
type OperationKind string

const (
	OperationQuery  OperationKind = "query"
	OperationRefine OperationKind = "refine"
)

// Event names sent to the notifier on state changes.
const (
	EventSearchStarted   = "search_started"
	EventSearchCompleted = "search_completed"
	EventSearchFailed    = "search_failed"
)

// Notifier receives state-change events, typically to fan out to
// connected console tabs.
type Notifier interface {
	Notify(event string, data interface{})
}

// OperationInfo records one search or refinement from start to finish.
type OperationInfo struct {
	ID          string        `json:"id"`
	Kind        OperationKind `json:"kind"`
	Label       string        `json:"label"`
	StartTime   time.Time     `json:"start_time"`
	EndTime     time.Time     `json:"end_time,omitempty"`
	ResultCount int           `json:"result_count"`
	Error       string        `json:"error,omitempty"`
}

// Succeeded reports whether the operation finished without an error.
func (o *OperationInfo) Succeeded() bool {
	return o.Error == ""
}

// Snapshot is a copy of the console state, safe to render concurrently.
type Snapshot struct {
	Results       []types.SearchResult   `json:"results"`
	Busy          bool                   `json:"busy"`
	Generation    uint64                 `json:"generation"`
	LastQuery     *types.QueryParameters `json:"last_query,omitempty"`
	LastCompleted *OperationInfo         `json:"last_completed,omitempty"`
	History       []OperationInfo        `json:"history"`
}

// Store owns the console's result set and busy flag. Every started
// operation takes a generation token; only a completion carrying the
// newest token may replace the results, so a slow stale response never
// overwrites a newer one. The busy flag clears whenever the newest
// operation finishes, success or failure.
type Store struct {
	mu            sync.RWMutex
	results       []types.SearchResult
	busy          bool
	generation    uint64
	pending       map[uint64]*OperationInfo
	lastQuery     *types.QueryParameters
	lastCompleted *OperationInfo
	history       []OperationInfo
	notifier      Notifier
	logger        *log.Logger
}

// NewStore creates an empty console state store. The notifier may be nil.
func NewStore(notifier Notifier) *Store {
	return &Store{
		pending:  make(map[uint64]*OperationInfo),
		history:  make([]OperationInfo, 0, maxHistorySize),
		notifier: notifier,
		logger:   log.New(os.Stdout, "[session] ", log.LstdFlags),
	}
}

// SetLogger sets a custom logger for the store.
func (s *Store) SetLogger(logger *log.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// Begin registers the start of an operation and returns its generation
// token. The busy flag stays set until the newest operation finishes.
func (s *Store) Begin(kind OperationKind, label string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.generation++
	gen := s.generation
	s.busy = true

	s.pending[gen] = &OperationInfo{
		ID:        fmt.Sprintf("%s-%d", time.Now().Format("20060102-150405"), gen),
		Kind:      kind,
		Label:     label,
		StartTime: time.Now(),
	}

	if s.notifier != nil {
		s.notifier.Notify(EventSearchStarted, map[string]interface{}{
			"kind":       string(kind),
			"label":      label,
			"generation": gen,
		})
	}

	return gen
}

// Complete records a successful operation. The results replace the stored
// set only when gen is the newest generation; a stale completion is
// discarded. Returns whether the results were applied.
func (s *Store) Complete(gen uint64, results []types.SearchResult) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	op := s.finishLocked(gen)
	if op != nil {
		op.ResultCount = len(results)
	}

	if gen != s.generation {
		s.logger.Printf("discarding stale results (generation %d, newest %d)", gen, s.generation)
		return false
	}

	s.results = make([]types.SearchResult, len(results))
	copy(s.results, results)
	s.busy = false

	if s.notifier != nil {
		s.notifier.Notify(EventSearchCompleted, map[string]interface{}{
			"generation":   gen,
			"result_count": len(results),
		})
	}

	return true
}

// Fail records a failed operation. The stored results are never modified;
// the busy flag clears when gen is the newest generation.
func (s *Store) Fail(gen uint64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	op := s.finishLocked(gen)
	if op != nil && err != nil {
		op.Error = err.Error()
	}

	if gen != s.generation {
		return
	}

	s.busy = false

	if s.notifier != nil {
		data := map[string]interface{}{"generation": gen}
		if err != nil {
			data["error"] = err.Error()
		}
		s.notifier.Notify(EventSearchFailed, data)
	}
}

// finishLocked moves a pending operation into the history ring. Must be
// called with the write lock held.
func (s *Store) finishLocked(gen uint64) *OperationInfo {
	op, ok := s.pending[gen]
	if !ok {
		return nil
	}
	delete(s.pending, gen)

	op.EndTime = time.Now()
	s.history = append([]OperationInfo{*op}, s.history...)
	if len(s.history) > maxHistorySize {
		s.history = s.history[:maxHistorySize]
	}
	s.lastCompleted = op

	return op
}

// Run executes op under a fresh generation and settles the store from its
// outcome. The busy flag is cleared on every path, including panics.
func (s *Store) Run(kind OperationKind, label string, op func() ([]types.SearchResult, error)) ([]types.SearchResult, error) {
	gen := s.Begin(kind, label)

	settled := false
	defer func() {
		if !settled {
			s.Fail(gen, fmt.Errorf("operation aborted"))
		}
	}()

	results, err := op()
	if err != nil {
		s.Fail(gen, err)
		settled = true
		return nil, err
	}

	s.Complete(gen, results)
	settled = true
	return results, nil
}

// SetLastQuery remembers the parameters of the most recent successful
// query so the scheduler can re-run it.
func (s *Store) SetLastQuery(params types.QueryParameters) {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := params
	s.lastQuery = &copied
}

// LastQuery returns the parameters of the most recent successful query,
// or nil when no query has succeeded yet.
func (s *Store) LastQuery() *types.QueryParameters {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.lastQuery == nil {
		return nil
	}
	copied := *s.lastQuery
	return &copied
}

// IsBusy reports whether the newest operation is still in flight.
func (s *Store) IsBusy() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.busy
}

// Results returns a copy of the stored result set.
func (s *Store) Results() []types.SearchResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]types.SearchResult, len(s.results))
	copy(results, s.results)
	return results
}

// History returns a copy of the operation history, newest first.
func (s *Store) History() []OperationInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := make([]OperationInfo, len(s.history))
	copy(history, s.history)
	return history
}

// Snapshot returns a copy of the full console state.
func (s *Store) Snapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := &Snapshot{
		Results:    make([]types.SearchResult, len(s.results)),
		Busy:       s.busy,
		Generation: s.generation,
		History:    make([]OperationInfo, len(s.history)),
	}
	copy(snapshot.Results, s.results)
	copy(snapshot.History, s.history)

	if s.lastQuery != nil {
		copied := *s.lastQuery
		snapshot.LastQuery = &copied
	}
	if s.lastCompleted != nil {
		copied := *s.lastCompleted
		snapshot.LastCompleted = &copied
	}

	return snapshot
}
