package cmd

import (
	"context"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/wikiscout/wikiscout/internal/metrics"
	"github.com/wikiscout/wikiscout/internal/observability"
	"github.com/wikiscout/wikiscout/internal/types"
)

var rootCmd = &cobra.Command{
	Use:   "wikiscout",
	Short: "WikiScout - semantic search over recent Wikipedia articles",
	Long: `WikiScout is a client for a semantic search service that indexes
recently published Wikipedia articles. It can query the service from the
command line, refine a previous search with positive and negative feedback
terms, and serve a local web console with live updates.`,
	Version: "0.3.0",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Optional .env file; ignore when absent
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			log.Printf("Warning: Error loading .env file: %v", err)
		}
	},
}

func Execute() error {
	return rootCmd.Execute()
}

// normalizeFlagName accepts underscore-separated flag spellings, which
// mirror the service's query parameter names.
func normalizeFlagName(f *pflag.FlagSet, name string) pflag.NormalizedName {
	return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
}

func init() {
	rootCmd.SetGlobalNormalizationFunc(normalizeFlagName)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(refineCmd)
	rootCmd.AddCommand(webuiCmd)
	rootCmd.AddCommand(stubCmd)
	rootCmd.AddCommand(statsCmd)
}

// setupTelemetry initializes tracing and metric export plus the
// invocation gauge, returning a cleanup function. With telemetry
// disabled the providers are no-ops and cleanup is cheap.
func setupTelemetry(cfg *types.Config) (func(), error) {
	shutdown, err := observability.Init(cfg)
	if err != nil {
		return nil, err
	}

	if err := metrics.InitOTelMetrics(); err != nil {
		log.Printf("Warning: failed to register invocation metrics: %v", err)
	}

	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(ctx); err != nil {
			log.Printf("Warning: telemetry shutdown failed: %v", err)
		}
	}
	return cleanup, nil
}
