package webui

import (
	"time"

	"github.com/wikiscout/wikiscout/internal/session"
	"github.com/wikiscout/wikiscout/internal/types"
)

// SSE event types originating in the console itself. Search lifecycle
// events (started/completed/failed) come from the session store and pass
// through under their session names.
const (
	EventTypeSchedulerTick = "scheduler_tick"
	EventTypeHeartbeat     = "heartbeat"
)

// SSEEvent represents a Server-Sent Event
type SSEEvent struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// SchedulerState represents the state of the auto-refresh scheduler
type SchedulerState struct {
	Enabled   bool          `json:"enabled"`
	Interval  time.Duration `json:"interval"`
	NextRunAt time.Time     `json:"next_run_at,omitempty"`
	LastRunAt time.Time     `json:"last_run_at,omitempty"`
}

// BackendStatus reports reachability of the search service
type BackendStatus struct {
	Reachable bool      `json:"reachable"`
	BaseURL   string    `json:"base_url"`
	CheckedAt time.Time `json:"checked_at"`
	Error     string    `json:"error,omitempty"`
}

// FormDefaults seeds the dashboard's search and refinement forms
type FormDefaults struct {
	TopK                int
	ScrappingTotalLimit int
	ReuseIndex          bool
}

// DashboardData represents data for the dashboard page
type DashboardData struct {
	ActivePage string
	Results    []types.SearchResult
	Busy       bool
	LastQuery  *types.QueryParameters
	History    []session.OperationInfo
	Scheduler  *SchedulerState
	Backend    *BackendStatus
	Totals     map[string]int64
	Form       FormDefaults
}

// ResultsData represents data for the results partial
type ResultsData struct {
	Results []types.SearchResult
	Busy    bool
}

// StatusData represents data for the status partial
type StatusData struct {
	Busy      bool
	LastQuery *types.QueryParameters
	Backend   *BackendStatus
	Scheduler *SchedulerState
}

// HistoryData represents data for the history partial
type HistoryData struct {
	History []session.OperationInfo
}

// APIStatusResponse represents the status API response
type APIStatusResponse struct {
	Busy      bool                    `json:"busy"`
	Scheduler *SchedulerState         `json:"scheduler"`
	Backend   *BackendStatus          `json:"backend"`
	LastQuery *types.QueryParameters  `json:"last_query,omitempty"`
	History   []session.OperationInfo `json:"history"`
}

// APIResultsResponse represents the results API response
type APIResultsResponse struct {
	Results []types.SearchResult `json:"results"`
	Count   int                  `json:"count"`
}

// APISearchRequest is the JSON body accepted by the search API.
// Zero-valued numeric fields fall back to the configured defaults.
type APISearchRequest struct {
	Query               string `json:"query"`
	TopK                int    `json:"top_k,omitempty"`
	ScrappingTotalLimit int    `json:"scrapping_total_limit,omitempty"`
	ReuseIndex          *bool  `json:"reuse_index,omitempty"`
}

// APIRefineRequest is the JSON body accepted by the refine API. Positive
// and negative are semicolon-delimited feedback strings, split before the
// outbound request is built.
type APIRefineRequest struct {
	TopK     int    `json:"top_k,omitempty"`
	Positive string `json:"positive"`
	Negative string `json:"negative"`
}
