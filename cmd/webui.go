package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	appconfig "github.com/wikiscout/wikiscout/internal/config"
	"github.com/wikiscout/wikiscout/internal/metrics"
	"github.com/wikiscout/wikiscout/internal/webui"
)

var (
	webuiHost string
	webuiPort int
)

var webuiCmd = &cobra.Command{
	Use:   "webui",
	Short: "Start the local web console",
	Long: `
The webui command starts a local web server that provides:
- A search form and live results table
- Search refinement with positive and negative feedback terms
- Operation history and backend status panels
- Optional periodic re-run of the last query (WIKISCOUT_REFRESH_INTERVAL)

The console uses HTMX and server-sent events for live updates without a
JavaScript framework.

Example:
  wikiscout webui                # Start with defaults (127.0.0.1:8080)
  wikiscout webui --port 9090    # Use custom port
`,
	RunE: runWebUI,
}

func init() {
	webuiCmd.Flags().StringVar(&webuiHost, "host", "", "Host to bind the web server (default from config)")
	webuiCmd.Flags().IntVarP(&webuiPort, "port", "p", 0, "Port to bind the web server (default from config)")
}

func runWebUI(cmd *cobra.Command, args []string) error {
	logger := log.New(os.Stdout, "[webui] ", log.LstdFlags)

	cfg, err := appconfig.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	cleanup, err := setupTelemetry(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer cleanup()

	if err := metrics.Init(); err == nil {
		defer func() { _ = metrics.Close() }()
	}
	metrics.RecordInvocation(metrics.ModeWebUI)

	// Create server config
	serverConfig := &webui.ServerConfig{
		Host:            cfg.WebUIHost,
		Port:            cfg.WebUIPort,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		IdleTimeout:     120 * time.Second,
		ShutdownTimeout: 30 * time.Second,
		RefreshInterval: cfg.RefreshInterval,
	}
	if cmd.Flags().Changed("host") {
		serverConfig.Host = webuiHost
	}
	if cmd.Flags().Changed("port") {
		serverConfig.Port = webuiPort
	}

	// Create server
	server, err := webui.NewServer(serverConfig, logger)
	if err != nil {
		return fmt.Errorf("failed to create webui server: %w", err)
	}

	// Create context with signal handling
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Printf("Received signal: %v", sig)
		cancel()
	}()

	// Run server
	return server.Run(ctx)
}
