package webui

import (
	"net/http"
	"strconv"

	"github.com/wikiscout/wikiscout/internal/searchapi"
	"github.com/wikiscout/wikiscout/internal/types"
)

// handleDashboard handles the dashboard page
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	data := s.dashboardData(r.Context())

	if err := s.templates.Render(w, "index.html", data); err != nil {
		s.logger.Printf("Failed to render dashboard: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// handleSearch handles the search form post. A failed call leaves the
// rendered results untouched: the handler logs the error and re-renders
// whatever the store already holds, with no error banner.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	params := s.parseSearchForm(r)
	if _, err := s.runQuery(r.Context(), params); err != nil {
		s.logger.Printf("Search failed: %v", err)
	}

	s.respondWithResults(w, r)
}

// handleRefine handles the refinement form post, under the same
// silent-failure contract as handleSearch.
func (s *Server) handleRefine(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	params := s.parseRefineForm(r)
	if _, err := s.runRefine(r.Context(), params); err != nil {
		s.logger.Printf("Refine failed: %v", err)
	}

	s.respondWithResults(w, r)
}

// parseSearchForm reads search parameters from the form, falling back to
// configured defaults. The query text is passed through untouched.
func (s *Server) parseSearchForm(r *http.Request) types.QueryParameters {
	params := types.QueryParameters{
		Query:               r.FormValue("query"),
		TopK:                s.appConfig.TopK,
		ScrappingTotalLimit: s.appConfig.ScrappingTotalLimit,
	}

	if v, err := strconv.Atoi(r.FormValue("top_k")); err == nil && v > 0 {
		params.TopK = v
	}
	if v, err := strconv.Atoi(r.FormValue("scrapping_total_limit")); err == nil && v > 0 {
		params.ScrappingTotalLimit = v
	}

	// An unchecked checkbox is absent from the form data entirely
	params.ReuseIndex = parseFormBool(r.FormValue("reuse_index"))

	return params
}

// parseRefineForm reads refinement parameters from the form. The two
// feedback strings go through SplitTerms; an empty field yields a single
// empty term, which the service treats as a no-op.
func (s *Server) parseRefineForm(r *http.Request) types.RefinementParameters {
	params := types.RefinementParameters{
		TopK:     s.appConfig.TopK,
		Positive: searchapi.SplitTerms(r.FormValue("positive")),
		Negative: searchapi.SplitTerms(r.FormValue("negative")),
	}

	if v, err := strconv.Atoi(r.FormValue("top_k")); err == nil && v > 0 {
		params.TopK = v
	}

	return params
}

// respondWithResults renders the results partial for htmx requests and
// redirects plain form posts back to the dashboard.
func (s *Server) respondWithResults(w http.ResponseWriter, r *http.Request) {
	if !isHTMX(r) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	s.renderResults(w)
}

// renderResults renders the results partial from the current store state.
func (s *Server) renderResults(w http.ResponseWriter) {
	data := &ResultsData{
		Results: s.store.Results(),
		Busy:    s.store.IsBusy(),
	}

	if err := s.templates.Render(w, "results.html", data); err != nil {
		s.logger.Printf("Failed to render results partial: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// handlePartialResults handles the results partial for htmx
func (s *Server) handlePartialResults(w http.ResponseWriter, r *http.Request) {
	s.renderResults(w)
}

// handlePartialStatus handles the status partial for htmx
func (s *Server) handlePartialStatus(w http.ResponseWriter, r *http.Request) {
	snapshot := s.store.Snapshot()
	data := &StatusData{
		Busy:      snapshot.Busy,
		LastQuery: snapshot.LastQuery,
		Backend:   s.checkBackend(r.Context()),
		Scheduler: s.scheduler.GetState(),
	}

	if err := s.templates.Render(w, "status.html", data); err != nil {
		s.logger.Printf("Failed to render status partial: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// handlePartialHistory handles the history partial for htmx
func (s *Server) handlePartialHistory(w http.ResponseWriter, r *http.Request) {
	data := &HistoryData{History: s.store.History()}

	if err := s.templates.Render(w, "history.html", data); err != nil {
		s.logger.Printf("Failed to render history partial: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// isHTMX reports whether the request came from htmx
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// parseFormBool interprets checkbox and form boolean values
func parseFormBool(value string) bool {
	switch value {
	case "true", "on", "1":
		return true
	default:
		return false
	}
}
