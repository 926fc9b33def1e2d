package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wikiscout/wikiscout/internal/stubserver"
)

var (
	stubHost   string
	stubPort   int
	stubCorpus string
)

var stubCmd = &cobra.Command{
	Use:   "stub",
	Short: "Run a local stand-in for the search service",
	Long: `
The stub command runs a local HTTP server implementing the search
service's two endpoints over a small fixture corpus, so the query,
refine, and webui commands work without the real service.

Ranking is a deterministic token-overlap score, not the real service's
semantic similarity; it exists for offline development and testing.

Example:
  wikiscout stub                         # Embedded corpus on 127.0.0.1:8000
  wikiscout stub --corpus articles.yaml  # Serve a custom corpus
`,
	RunE: runStub,
}

func init() {
	stubCmd.Flags().StringVar(&stubHost, "host", "127.0.0.1", "Host to bind the stub server")
	stubCmd.Flags().IntVarP(&stubPort, "port", "p", 8000, "Port to bind the stub server")
	stubCmd.Flags().StringVar(&stubCorpus, "corpus", "", "Path to a YAML corpus file (embedded corpus when empty)")
}

func runStub(cmd *cobra.Command, args []string) error {
	logger := log.New(os.Stdout, "[stub] ", log.LstdFlags)

	server, err := stubserver.NewServer(&stubserver.Config{
		Host:       stubHost,
		Port:       stubPort,
		CorpusPath: stubCorpus,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to create stub server: %w", err)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Printf("Received signal: %v", sig)
		cancel()
	}()

	return server.Run(ctx)
}
