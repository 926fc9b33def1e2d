package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	appconfig "github.com/wikiscout/wikiscout/internal/config"
	"github.com/wikiscout/wikiscout/internal/metrics"
	"github.com/wikiscout/wikiscout/internal/searchapi"
	"github.com/wikiscout/wikiscout/internal/types"
)

var (
	queryText         string
	queryTopK         int
	queryScrapeLimit  int
	queryRebuildIndex bool
	queryOutputJSON   bool
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Search recent Wikipedia articles by semantic similarity",
	Long: `
Search the configured service for recent Wikipedia articles matching a
free-text query. Results are ranked by the service and printed in order.

Examples:
  # Basic search
  wikiscout query -q "quantum mechanics"

  # More results, wider scrape, JSON output
  wikiscout query -q "black holes" -k 20 --scrape-limit 200 -j

  # Force the service to rebuild its article index before searching
  wikiscout query -q "french revolution" --rebuild-index
`,
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().StringVarP(&queryText, "query", "q", "", "Text query to search for (required)")
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "k", 0, "Number of results to return (default from config)")
	queryCmd.Flags().IntVar(&queryScrapeLimit, "scrape-limit", 0, "Total articles the service may scrape (default from config)")
	queryCmd.Flags().BoolVar(&queryRebuildIndex, "rebuild-index", false, "Rebuild the service's article index instead of reusing it")
	queryCmd.Flags().BoolVarP(&queryOutputJSON, "json", "j", false, "Output results in JSON format")

	_ = queryCmd.MarkFlagRequired("query")
}

func runQuery(cmd *cobra.Command, args []string) error {
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
	metrics.RecordInvocation(metrics.ModeQuery)

	client, err := newSearchClient(cfg)
	if err != nil {
		return err
	}

	params := types.QueryParameters{
		Query:               queryText,
		TopK:                cfg.TopK,
		ScrappingTotalLimit: cfg.ScrappingTotalLimit,
		ReuseIndex:          cfg.ReuseIndex,
	}
	if cmd.Flags().Changed("top-k") {
		params.TopK = queryTopK
	}
	if cmd.Flags().Changed("scrape-limit") {
		params.ScrappingTotalLimit = queryScrapeLimit
	}
	if queryRebuildIndex {
		params.ReuseIndex = false
	}

	results, err := client.Query(cmd.Context(), params)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	return outputResults(results, queryOutputJSON)
}

// newSearchClient builds a search service client from the loaded config.
func newSearchClient(cfg *types.Config) (*searchapi.Client, error) {
	clientCfg, err := searchapi.NewConfigFromTypes(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build client config: %w", err)
	}

	client, err := searchapi.NewClient(clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create search client: %w", err)
	}
	return client, nil
}

// outputResults prints results as JSON or a ranked listing.
func outputResults(results []types.SearchResult, asJSON bool) error {
	if asJSON {
		jsonOutput, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON output: %w", err)
		}
		fmt.Println(string(jsonOutput))
		return nil
	}

	printResults(results)
	return nil
}

func printResults(results []types.SearchResult) {
	if len(results) == 0 {
		fmt.Println("No results found.")
		return
	}

	fmt.Printf("Found %d results\n", len(results))
	for i, result := range results {
		fmt.Printf("\n  %d. %s (%.4f)\n", i+1, result.Name, result.WeightedSimilarity)
		fmt.Printf("     %s\n", result.URL)
		if result.TLDR != "" {
			fmt.Printf("     %s\n", result.TLDR)
		}
	}
}
