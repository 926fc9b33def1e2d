package webui

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/wikiscout/wikiscout/internal/searchapi"
	"github.com/wikiscout/wikiscout/internal/types"
)

// handleAPIResults handles the results API
func (s *Server) handleAPIResults(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	results := s.store.Results()
	s.writeJSON(w, &APIResultsResponse{
		Results: results,
		Count:   len(results),
	})
}

// handleAPIStatus handles the status API
func (s *Server) handleAPIStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	snapshot := s.store.Snapshot()
	response := &APIStatusResponse{
		Busy:      snapshot.Busy,
		Scheduler: s.scheduler.GetState(),
		Backend:   s.checkBackend(r.Context()),
		LastQuery: snapshot.LastQuery,
		History:   snapshot.History,
	}

	s.writeJSON(w, response)
}

// handleAPISearch runs a search from a JSON body. Unlike the form post,
// the API reports the outcome to its caller; the silent-failure contract
// binds only the rendered results area.
func (s *Server) handleAPISearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req APISearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	params := types.QueryParameters{
		Query:               req.Query,
		TopK:                s.appConfig.TopK,
		ScrappingTotalLimit: s.appConfig.ScrappingTotalLimit,
		ReuseIndex:          s.appConfig.ReuseIndex,
	}
	if req.TopK > 0 {
		params.TopK = req.TopK
	}
	if req.ScrappingTotalLimit > 0 {
		params.ScrappingTotalLimit = req.ScrappingTotalLimit
	}
	if req.ReuseIndex != nil {
		params.ReuseIndex = *req.ReuseIndex
	}

	results, err := s.runQuery(r.Context(), params)
	if err != nil {
		s.logger.Printf("API search failed: %v", err)
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	s.writeJSON(w, &APIResultsResponse{
		Results: results,
		Count:   len(results),
	})
}

// handleAPIRefine runs a refinement from a JSON body.
func (s *Server) handleAPIRefine(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req APIRefineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	params := types.RefinementParameters{
		TopK:     s.appConfig.TopK,
		Positive: searchapi.SplitTerms(req.Positive),
		Negative: searchapi.SplitTerms(req.Negative),
	}
	if req.TopK > 0 {
		params.TopK = req.TopK
	}

	results, err := s.runRefine(r.Context(), params)
	if err != nil {
		s.logger.Printf("API refine failed: %v", err)
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	s.writeJSON(w, &APIResultsResponse{
		Results: results,
		Count:   len(results),
	})
}

// handleSchedulerToggle handles the scheduler toggle API
func (s *Server) handleSchedulerToggle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if s.scheduler.IsEnabled() {
		s.scheduler.Stop()
		s.writeJSON(w, map[string]interface{}{
			"enabled": false,
			"message": "Auto-refresh stopped",
		})
	} else {
		ctx := context.Background()
		if err := s.scheduler.Start(ctx); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		s.writeJSON(w, map[string]interface{}{
			"enabled": true,
			"message": "Auto-refresh started",
		})
	}
}

// handleSchedulerInterval handles the scheduler interval API
func (s *Server) handleSchedulerInterval(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut && r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Interval string `json:"interval"`
	}

	// Try to parse from form or JSON
	intervalStr := r.FormValue("interval")
	if intervalStr == "" {
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
			intervalStr = req.Interval
		}
	}

	if intervalStr == "" {
		http.Error(w, "Interval required", http.StatusBadRequest)
		return
	}

	duration, err := time.ParseDuration(intervalStr)
	if err != nil {
		http.Error(w, "Invalid interval format", http.StatusBadRequest)
		return
	}

	if err := s.scheduler.SetInterval(duration); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	s.writeJSON(w, map[string]interface{}{
		"interval": duration.String(),
		"message":  "Interval updated",
	})
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Printf("Failed to encode JSON: %v", err)
	}
}
