package session

import (
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wikiscout/wikiscout/internal/types"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *recordingNotifier) Notify(event string, data interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *recordingNotifier) Events() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.events...)
}

func newQuietStore(notifier Notifier) *Store {
	store := NewStore(notifier)
	store.SetLogger(log.New(io.Discard, "", 0))
	return store
}

func sampleResults(names ...string) []types.SearchResult {
	results := make([]types.SearchResult, len(names))
	for i, name := range names {
		results[i] = types.SearchResult{
			URL:                "https://pt.wikipedia.org/wiki/" + name,
			Name:               name,
			WeightedSimilarity: 0.5,
			TLDR:               "tldr " + name,
			Summary:            "summary " + name,
		}
	}
	return results
}

func TestBeginSetsBusy(t *testing.T) {
	store := newQuietStore(nil)
	require.False(t, store.IsBusy())

	store.Begin(OperationQuery, "azulejos")
	assert.True(t, store.IsBusy())
}

func TestCompleteReplacesResultsAndClearsBusy(t *testing.T) {
	store := newQuietStore(nil)

	gen := store.Begin(OperationQuery, "azulejos")
	applied := store.Complete(gen, sampleResults("Azulejo"))

	assert.True(t, applied)
	assert.False(t, store.IsBusy())
	require.Len(t, store.Results(), 1)
	assert.Equal(t, "Azulejo", store.Results()[0].Name)
}

func TestFailKeepsPreviousResults(t *testing.T) {
	store := newQuietStore(nil)

	gen := store.Begin(OperationQuery, "azulejos")
	store.Complete(gen, sampleResults("Azulejo"))

	before := store.Results()

	gen = store.Begin(OperationRefine, "refine")
	store.Fail(gen, errors.New("connection refused"))

	assert.False(t, store.IsBusy(), "busy must clear on failure")
	assert.Equal(t, before, store.Results(), "failure must not modify results")
}

func TestStaleCompletionIsDiscarded(t *testing.T) {
	store := newQuietStore(nil)

	older := store.Begin(OperationQuery, "first")
	newer := store.Begin(OperationRefine, "second")

	applied := store.Complete(newer, sampleResults("Newer"))
	require.True(t, applied)
	require.False(t, store.IsBusy())

	applied = store.Complete(older, sampleResults("Older"))
	assert.False(t, applied, "an older generation must not win")

	require.Len(t, store.Results(), 1)
	assert.Equal(t, "Newer", store.Results()[0].Name)
	assert.False(t, store.IsBusy())
}

func TestStaleFailureDoesNotClearNewerState(t *testing.T) {
	store := newQuietStore(nil)

	older := store.Begin(OperationQuery, "first")
	newer := store.Begin(OperationQuery, "second")

	store.Complete(newer, sampleResults("Newer"))
	store.Fail(older, errors.New("slow failure"))

	require.Len(t, store.Results(), 1)
	assert.Equal(t, "Newer", store.Results()[0].Name)
	assert.False(t, store.IsBusy())
}

func TestRunSettlesStore(t *testing.T) {
	store := newQuietStore(nil)

	results, err := store.Run(OperationQuery, "azulejos", func() ([]types.SearchResult, error) {
		return sampleResults("Azulejo"), nil
	})
	require.NoError(t, err)
	assert.Len(t, results, 1)
	assert.False(t, store.IsBusy())

	_, err = store.Run(OperationRefine, "refine", func() ([]types.SearchResult, error) {
		return nil, errors.New("boom")
	})
	require.Error(t, err)
	assert.False(t, store.IsBusy())
	assert.Len(t, store.Results(), 1, "failed run must keep previous results")
}

func TestRunClearsBusyOnPanic(t *testing.T) {
	store := newQuietStore(nil)

	require.Panics(t, func() {
		_, _ = store.Run(OperationQuery, "azulejos", func() ([]types.SearchResult, error) {
			panic("handler blew up")
		})
	})

	assert.False(t, store.IsBusy())
}

func TestHistoryIsBoundedAndNewestFirst(t *testing.T) {
	store := newQuietStore(nil)

	for i := 0; i < maxHistorySize+5; i++ {
		gen := store.Begin(OperationQuery, fmt.Sprintf("query %d", i))
		store.Complete(gen, nil)
	}

	history := store.History()
	require.Len(t, history, maxHistorySize)
	assert.Equal(t, fmt.Sprintf("query %d", maxHistorySize+4), history[0].Label)
}

func TestSnapshotIsACopy(t *testing.T) {
	store := newQuietStore(nil)

	gen := store.Begin(OperationQuery, "azulejos")
	store.Complete(gen, sampleResults("Azulejo"))
	store.SetLastQuery(types.QueryParameters{Query: "azulejos", TopK: 10, ScrappingTotalLimit: 50, ReuseIndex: true})

	snapshot := store.Snapshot()
	require.Len(t, snapshot.Results, 1)

	snapshot.Results[0].Name = "mutated"
	snapshot.LastQuery.Query = "mutated"

	assert.Equal(t, "Azulejo", store.Results()[0].Name)
	assert.Equal(t, "azulejos", store.LastQuery().Query)
}

func TestNotifierReceivesLifecycleEvents(t *testing.T) {
	notifier := &recordingNotifier{}
	store := newQuietStore(notifier)

	gen := store.Begin(OperationQuery, "azulejos")
	store.Complete(gen, sampleResults("Azulejo"))

	gen = store.Begin(OperationRefine, "refine")
	store.Fail(gen, errors.New("boom"))

	assert.Equal(t, []string{
		EventSearchStarted,
		EventSearchCompleted,
		EventSearchStarted,
		EventSearchFailed,
	}, notifier.Events())
}

func TestLastQueryOnlySetExplicitly(t *testing.T) {
	store := newQuietStore(nil)
	assert.Nil(t, store.LastQuery())

	params := types.QueryParameters{Query: "fado", TopK: 5, ScrappingTotalLimit: 20, ReuseIndex: true}
	store.SetLastQuery(params)

	got := store.LastQuery()
	require.NotNil(t, got)
	assert.Equal(t, params, *got)
}
