package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	appconfig "github.com/wikiscout/wikiscout/internal/config"
	"github.com/wikiscout/wikiscout/internal/metrics"
	"github.com/wikiscout/wikiscout/internal/searchapi"
	"github.com/wikiscout/wikiscout/internal/types"
)

var (
	refineTopK       int
	refinePositive   string
	refineNegative   string
	refineOutputJSON bool
)

var refineCmd = &cobra.Command{
	Use:   "refine",
	Short: "Refine the previous search with feedback terms",
	Long: `
Re-rank the service's previous search results using positive and negative
feedback terms. Multiple terms are separated with ";". The service keeps
the previous result set, so a query must have run first.

Examples:
  # Boost wave-related results, suppress biographies
  wikiscout refine -p "wave; interference" -n "biography"

  # Just trim the previous result set
  wikiscout refine -k 5
`,
	RunE: runRefine,
}

func init() {
	refineCmd.Flags().IntVarP(&refineTopK, "top-k", "k", 0, "Number of results to return (default from config)")
	refineCmd.Flags().StringVarP(&refinePositive, "positive", "p", "", "Positive feedback terms, separated by \";\"")
	refineCmd.Flags().StringVarP(&refineNegative, "negative", "n", "", "Negative feedback terms, separated by \";\"")
	refineCmd.Flags().BoolVarP(&refineOutputJSON, "json", "j", false, "Output results in JSON format")
}

func runRefine(cmd *cobra.Command, args []string) error {
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
	metrics.RecordInvocation(metrics.ModeRefine)

	client, err := newSearchClient(cfg)
	if err != nil {
		return err
	}

	params := types.RefinementParameters{
		TopK:     cfg.TopK,
		Positive: searchapi.SplitTerms(refinePositive),
		Negative: searchapi.SplitTerms(refineNegative),
	}
	if cmd.Flags().Changed("top-k") {
		params.TopK = refineTopK
	}

	results, err := client.Refine(cmd.Context(), params)
	if err != nil {
		return fmt.Errorf("refinement failed: %w", err)
	}

	return outputResults(results, refineOutputJSON)
}
