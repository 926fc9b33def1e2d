package webui

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	appconfig "github.com/wikiscout/wikiscout/internal/config"
	"github.com/wikiscout/wikiscout/internal/metrics"
	"github.com/wikiscout/wikiscout/internal/searchapi"
	"github.com/wikiscout/wikiscout/internal/session"
	"github.com/wikiscout/wikiscout/internal/types"
)

// ServerConfig holds the web console server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	RefreshInterval time.Duration // 0 disables the auto-refresh scheduler
}

// DefaultServerConfig returns the default server configuration
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Host:            "127.0.0.1",
		Port:            8080,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		IdleTimeout:     120 * time.Second,
		ShutdownTimeout: 30 * time.Second,
	}
}

// Server represents the web console server
type Server struct {
	config       *ServerConfig
	appConfig    *types.Config
	httpServer   *http.Server
	templates    *TemplateManager
	store        *session.Store
	client       *searchapi.Client
	sseManager   *SSEManager
	scheduler    *Scheduler
	logger       *log.Logger
	cancelFunc   context.CancelFunc
	shutdownOnce sync.Once
}

// NewServer creates a new web console server
func NewServer(serverConfig *ServerConfig, logger *log.Logger) (*Server, error) {
	if serverConfig == nil {
		serverConfig = DefaultServerConfig()
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[webui] ", log.LstdFlags)
	}

	// Load application config
	appCfg, err := appconfig.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	// Create SSE manager; it doubles as the session store's notifier so
	// every open tab hears about completed operations
	sseManager := NewSSEManager(&SSEConfig{
		HeartbeatInterval: 30 * time.Second,
		BufferSize:        100,
		MaxClients:        100,
	}, logger)

	// Create session state store
	store := session.NewStore(sseManager)

	// Create scheduler
	scheduler := NewScheduler(store, sseManager, serverConfig.RefreshInterval, logger)

	// Create template manager
	templates, err := NewTemplateManager()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize templates: %w", err)
	}

	// Create search service client
	clientCfg, err := searchapi.NewConfigFromTypes(appCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build client config: %w", err)
	}
	client, err := searchapi.NewClient(clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create search client: %w", err)
	}

	s := &Server{
		config:     serverConfig,
		appConfig:  appCfg,
		templates:  templates,
		store:      store,
		client:     client,
		sseManager: sseManager,
		scheduler:  scheduler,
		logger:     logger,
	}

	return s, nil
}

// Run starts the server and blocks until context is cancelled
func (s *Server) Run(ctx context.Context) error {
	// Create cancellable context
	ctx, cancel := context.WithCancel(ctx)
	s.cancelFunc = cancel
	defer cancel()

	// Set scheduler run function
	s.scheduler.SetRunFunc(func(runCtx context.Context) error {
		return s.refreshLastQuery(runCtx)
	})

	// Start SSE manager
	s.sseManager.Start(ctx)
	defer s.sseManager.Stop()

	// Start the auto-refresh scheduler only when configured
	if s.config.RefreshInterval > 0 {
		if err := s.scheduler.Start(ctx); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
	}

	// Setup HTTP server
	mux := s.setupRoutes()
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.config.Host, s.config.Port),
		Handler:      s.loggingMiddleware(mux),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	// Start HTTP server in goroutine
	errChan := make(chan error, 1)
	go func() {
		s.logger.Printf("Starting web console at http://%s:%d", s.config.Host, s.config.Port)
		if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
			errChan <- err
		}
		close(errChan)
	}()

	// Wait for shutdown signal or error
	select {
	case <-ctx.Done():
		return s.shutdown()
	case err := <-errChan:
		return err
	}
}

// shutdown performs graceful shutdown
func (s *Server) shutdown() error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.logger.Println("Shutting down server...")

		// Stop scheduler
		s.scheduler.Stop()

		// Shutdown HTTP server
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()

		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			shutdownErr = fmt.Errorf("server shutdown error: %w", err)
		}
	})
	return shutdownErr
}

// setupRoutes configures HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// Static files
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		s.logger.Printf("Warning: failed to setup static files: %v", err)
	} else {
		mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))
	}

	// Dashboard and form posts
	mux.HandleFunc("/", s.handleDashboard)
	mux.HandleFunc("/search", s.handleSearch)
	mux.HandleFunc("/refine", s.handleRefine)

	// JSON API
	mux.HandleFunc("/api/results", s.handleAPIResults)
	mux.HandleFunc("/api/status", s.handleAPIStatus)
	mux.HandleFunc("/api/search", s.handleAPISearch)
	mux.HandleFunc("/api/refine", s.handleAPIRefine)
	mux.HandleFunc("/api/scheduler/toggle", s.handleSchedulerToggle)
	mux.HandleFunc("/api/scheduler/interval", s.handleSchedulerInterval)

	// SSE endpoint
	mux.HandleFunc("/api/events", s.handleSSEEvents)

	// HTMX partials
	mux.HandleFunc("/partials/results", s.handlePartialResults)
	mux.HandleFunc("/partials/status", s.handlePartialStatus)
	mux.HandleFunc("/partials/history", s.handlePartialHistory)

	return mux
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Skip logging for static files and the event stream (too noisy)
		skipLog := strings.HasPrefix(r.URL.Path, "/static/") ||
			strings.HasPrefix(r.URL.Path, "/api/events")

		if !skipLog {
			s.logger.Printf("%s %s", r.Method, r.URL.Path)
		}

		next.ServeHTTP(w, r)

		if !skipLog {
			s.logger.Printf("%s %s completed in %v", r.Method, r.URL.Path, time.Since(start))
		}
	})
}

// runQuery executes an initial search through the session store and
// remembers its parameters for the scheduler's refresh.
func (s *Server) runQuery(ctx context.Context, params types.QueryParameters) ([]types.SearchResult, error) {
	results, err := s.store.Run(session.OperationQuery, params.Query, func() ([]types.SearchResult, error) {
		return s.client.Query(ctx, params)
	})
	if err != nil {
		return nil, err
	}

	s.store.SetLastQuery(params)
	return results, nil
}

// runRefine executes a refinement through the session store.
func (s *Server) runRefine(ctx context.Context, params types.RefinementParameters) ([]types.SearchResult, error) {
	return s.store.Run(session.OperationRefine, refineLabel(params), func() ([]types.SearchResult, error) {
		return s.client.Refine(ctx, params)
	})
}

// refreshLastQuery re-runs the most recent successful query. The index is
// always reused here; a background refresh must never trigger a rebuild.
func (s *Server) refreshLastQuery(ctx context.Context) error {
	params := s.store.LastQuery()
	if params == nil {
		s.logger.Println("Refresh skipped: no completed query to re-run")
		return nil
	}

	params.ReuseIndex = true
	_, err := s.runQuery(ctx, *params)
	return err
}

// refineLabel builds a history label from refinement terms.
func refineLabel(params types.RefinementParameters) string {
	parts := make([]string, 0, len(params.Positive)+len(params.Negative))
	for _, term := range params.Positive {
		parts = append(parts, "+"+term)
	}
	for _, term := range params.Negative {
		parts = append(parts, "-"+term)
	}
	return strings.Join(parts, " ")
}

// dashboardData assembles everything the dashboard renders. The three
// sources are independent, so they are gathered concurrently; a failure
// in one never blocks the page.
func (s *Server) dashboardData(ctx context.Context) *DashboardData {
	var (
		snapshot *session.Snapshot
		backend  *BackendStatus
		totals   map[string]int64
	)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		snapshot = s.store.Snapshot()
		return nil
	})
	group.Go(func() error {
		backend = s.checkBackend(groupCtx)
		return nil
	})
	group.Go(func() error {
		totals = s.invocationTotals()
		return nil
	})
	_ = group.Wait()

	return &DashboardData{
		ActivePage: "dashboard",
		Results:    snapshot.Results,
		Busy:       snapshot.Busy,
		LastQuery:  snapshot.LastQuery,
		History:    snapshot.History,
		Scheduler:  s.scheduler.GetState(),
		Backend:    backend,
		Totals:     totals,
		Form: FormDefaults{
			TopK:                s.appConfig.TopK,
			ScrappingTotalLimit: s.appConfig.ScrappingTotalLimit,
			ReuseIndex:          s.appConfig.ReuseIndex,
		},
	}
}

// checkBackend pings the search service with a short deadline.
func (s *Server) checkBackend(ctx context.Context) *BackendStatus {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	status := &BackendStatus{
		BaseURL:   s.client.BaseURL().String(),
		CheckedAt: time.Now(),
	}

	if err := s.client.Ping(ctx); err != nil {
		status.Error = err.Error()
		return status
	}

	status.Reachable = true
	return status
}

// invocationTotals reads usage counters for the dashboard. Missing
// metrics never block the page.
func (s *Server) invocationTotals() map[string]int64 {
	stats := metrics.GetStats()
	if stats == nil {
		return nil
	}

	totals := make(map[string]int64, len(stats))
	for mode, count := range stats {
		totals[string(mode)] = count
	}
	return totals
}

// GetStore returns the session state store
func (s *Server) GetStore() *session.Store {
	return s.store
}

// GetScheduler returns the scheduler
func (s *Server) GetScheduler() *Scheduler {
	return s.scheduler
}
