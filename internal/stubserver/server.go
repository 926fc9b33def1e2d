package stubserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/wikiscout/wikiscout/internal/types"
)

// Refinement weights for the stub's re-scoring. Gamma is reserved for a
// future interaction term, mirroring the collaborator's signature.
const (
	refineAlpha = 1.0
	refineBeta  = 1.0
	refineGamma = 0.0
)

const (
	defaultTopK        = 10
	defaultScrapeLimit = 100
)

// Config holds stub server settings.
type Config struct {
	Host       string
	Port       int
	CorpusPath string // empty means the embedded corpus
}

// DefaultConfig returns the default stub server configuration. The port
// matches the reference deployment of the real service.
func DefaultConfig() *Config {
	return &Config{
		Host: "127.0.0.1",
		Port: 8000,
	}
}

// scored pairs a corpus article with its current ranking score.
type scored struct {
	article Article
	score   float64
}

// Server is a local stand-in for the remote search service. It serves
// the same two endpoints over a fixture corpus with a deterministic
// token-overlap ranking, so the console and CLI work offline and the
// integration tests exercise the real wire contract.
type Server struct {
	config     *Config
	corpus     *Corpus
	logger     *log.Logger
	httpServer *http.Server

	mu          sync.Mutex
	indexed     []Article // candidate pool, rebuilt when reuse_index is false
	lastResults []scored  // previous result set, input to refinement
}

// NewServer creates a stub server, loading the corpus from the
// configured path or falling back to the embedded one.
func NewServer(config *Config, logger *log.Logger) (*Server, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = log.Default()
	}

	var corpus *Corpus
	var err error
	if config.CorpusPath != "" {
		corpus, err = LoadCorpus(config.CorpusPath)
	} else {
		corpus, err = DefaultCorpus()
	}
	if err != nil {
		return nil, err
	}

	return &Server{
		config: config,
		corpus: corpus,
		logger: logger,
	}, nil
}

// Run starts the stub server and blocks until the context is canceled
// or the listener fails.
func (s *Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.routes(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Printf("Stub search service listening on http://%s (%d articles)", addr, len(s.corpus.Articles))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		s.logger.Println("Shutting down stub server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	}
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleRoot)
	mux.HandleFunc("/docs", s.handleDocs)
	mux.HandleFunc("/user/query_results", s.handleQueryResults)
	mux.HandleFunc("/user/query_refined", s.handleQueryRefined)
	return mux
}

// handleRoot redirects to the docs page, as the real service does.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	http.Redirect(w, r, "/docs", http.StatusTemporaryRedirect)
}

func (s *Server) handleDocs(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, `<!doctype html>
<html>
<head><title>WikiScout stub</title></head>
<body>
<h1>WikiScout stub search service</h1>
<p>Endpoints:</p>
<ul>
<li><code>GET /user/query_results?query=...&amp;top_k=...&amp;scrapping_total_limit=...&amp;reuse_index=...</code></li>
<li><code>GET /user/query_refined?top_k=...&amp;positive=...&amp;negative=...</code></li>
</ul>
</body>
</html>
`)
}

// handleQueryResults serves GET /user/query_results. The candidate pool
// is rebuilt from the first scrapping_total_limit corpus articles when
// reuse_index is false or no pool exists yet, then ranked by token
// overlap against the query.
func (s *Server) handleQueryResults(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	params := r.URL.Query()
	if !params.Has("query") {
		s.writeValidationError(w, "query", "field required", "value_error.missing")
		return
	}
	query := params.Get("query")

	topK, ok := s.intParam(w, params, "top_k", defaultTopK)
	if !ok {
		return
	}
	scrapeLimit, ok := s.intParam(w, params, "scrapping_total_limit", defaultScrapeLimit)
	if !ok {
		return
	}
	reuseIndex := true
	if params.Has("reuse_index") {
		parsed, err := strconv.ParseBool(params.Get("reuse_index"))
		if err != nil {
			s.writeValidationError(w, "reuse_index", "value could not be parsed to a boolean", "type_error.bool")
			return
		}
		reuseIndex = parsed
	}
	if topK < 0 {
		topK = 0
	}

	s.mu.Lock()
	if !reuseIndex || len(s.indexed) == 0 {
		s.indexed = s.buildIndex(scrapeLimit)
	}
	poolSize := len(s.indexed)
	results := rankByOverlap(s.indexed, tokenize(query))
	if len(results) > topK {
		results = results[:topK]
	}
	s.lastResults = results
	s.mu.Unlock()

	s.logger.Printf("query %q -> %d results (top_k=%d, pool=%d)", query, len(results), topK, poolSize)
	s.writeResults(w, results)
}

// handleQueryRefined serves GET /user/query_refined. It re-scores the
// previous result set with the positive and negative terms and keeps
// the refined set as the new previous result.
func (s *Server) handleQueryRefined(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	params := r.URL.Query()
	topK, ok := s.intParam(w, params, "top_k", defaultTopK)
	if !ok {
		return
	}
	if topK < 0 {
		topK = 0
	}
	positive := params["positive"]
	negative := params["negative"]

	s.mu.Lock()
	if len(s.lastResults) == 0 {
		s.mu.Unlock()
		s.writeApplicationError(w, "Application error: No previous search found!")
		return
	}

	refined := make([]scored, 0, len(s.lastResults))
	for _, prev := range s.lastResults {
		docTokens := articleTokens(prev.article)
		score := prev.score +
			refineAlpha*termsOverlap(positive, docTokens) -
			refineBeta*termsOverlap(negative, docTokens)
		if score > 0 {
			refined = append(refined, scored{article: prev.article, score: score})
		}
	}
	sort.SliceStable(refined, func(i, j int) bool {
		return refined[i].score > refined[j].score
	})
	if len(refined) > topK {
		refined = refined[:topK]
	}
	s.lastResults = refined
	s.mu.Unlock()

	s.logger.Printf("refine +%d/-%d terms -> %d results (top_k=%d)", len(positive), len(negative), len(refined), topK)
	s.writeResults(w, refined)
}

// buildIndex returns the candidate pool: the first limit corpus articles.
func (s *Server) buildIndex(limit int) []Article {
	if limit < 0 {
		limit = 0
	}
	if limit > len(s.corpus.Articles) {
		limit = len(s.corpus.Articles)
	}
	return s.corpus.Articles[:limit]
}

// rankByOverlap scores every pool article against the query tokens,
// drops zero scores, and sorts descending. Ties keep corpus order.
func rankByOverlap(pool []Article, queryTokens []string) []scored {
	results := make([]scored, 0, len(pool))
	for _, article := range pool {
		score := overlapScore(queryTokens, articleTokens(article))
		if score > 0 {
			results = append(results, scored{article: article, score: score})
		}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].score > results[j].score
	})
	return results
}

// tokenize lowercases, NFC-normalizes, and splits on anything that is
// not a letter or digit. NFC keeps accented Portuguese titles matching
// regardless of how the query was composed.
func tokenize(s string) []string {
	normalized := norm.NFC.String(strings.ToLower(s))
	return strings.FieldsFunc(normalized, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// articleTokens builds the token set an article is matched against:
// the words of its name plus its keywords.
func articleTokens(article Article) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, tok := range tokenize(article.Name) {
		tokens[tok] = struct{}{}
	}
	for _, keyword := range article.Keywords {
		for _, tok := range tokenize(keyword) {
			tokens[tok] = struct{}{}
		}
	}
	return tokens
}

// overlapScore is the fraction of unique query tokens found in the
// document token set.
func overlapScore(queryTokens []string, docTokens map[string]struct{}) float64 {
	if len(queryTokens) == 0 {
		return 0
	}
	seen := make(map[string]struct{})
	matched := 0
	total := 0
	for _, tok := range queryTokens {
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		total++
		if _, ok := docTokens[tok]; ok {
			matched++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(matched) / float64(total)
}

// termsOverlap averages the overlap score of each non-empty term.
// Empty terms (a blank feedback field arrives as one empty string)
// contribute nothing.
func termsOverlap(terms []string, docTokens map[string]struct{}) float64 {
	scoreSum := 0.0
	counted := 0
	for _, term := range terms {
		tokens := tokenize(term)
		if len(tokens) == 0 {
			continue
		}
		scoreSum += overlapScore(tokens, docTokens)
		counted++
	}
	if counted == 0 {
		return 0
	}
	return scoreSum / float64(counted)
}

// intParam reads an optional integer query parameter, writing a 422
// validation error when the value is present but not an integer.
func (s *Server) intParam(w http.ResponseWriter, params url.Values, name string, fallback int) (int, bool) {
	if !params.Has(name) {
		return fallback, true
	}
	value, err := strconv.Atoi(params.Get(name))
	if err != nil {
		s.writeValidationError(w, name, "value is not a valid integer", "type_error.integer")
		return 0, false
	}
	return value, true
}

func (s *Server) writeResults(w http.ResponseWriter, results []scored) {
	display := make([]types.SearchResult, 0, len(results))
	for _, res := range results {
		display = append(display, types.SearchResult{
			URL:                res.article.URL,
			Name:               res.article.Name,
			WeightedSimilarity: res.score,
			TLDR:               res.article.TLDR,
			Summary:            res.article.Summary,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(display); err != nil {
		s.logger.Printf("Failed to encode results: %v", err)
	}
}

// writeValidationError mimics the collaborator's 422 body for missing
// or mistyped parameters.
func (s *Server) writeValidationError(w http.ResponseWriter, param, msg, errType string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnprocessableEntity)
	body := map[string]interface{}{
		"detail": []map[string]interface{}{
			{
				"loc":  []string{"query", param},
				"msg":  msg,
				"type": errType,
			},
		},
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Printf("Failed to encode validation error: %v", err)
	}
}

// writeApplicationError mimics the collaborator's 500 body.
func (s *Server) writeApplicationError(w http.ResponseWriter, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	if err := json.NewEncoder(w).Encode(map[string]string{"detail": detail}); err != nil {
		s.logger.Printf("Failed to encode application error: %v", err)
	}
}
