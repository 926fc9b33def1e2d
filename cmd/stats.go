package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wikiscout/wikiscout/internal/metrics"
)

var statsOutputJSON bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cumulative invocation counts",
	Long: `
Show how often each mode (query, refine, webui) has been invoked on this
machine. Counts are kept in a local SQLite database and accumulate across
days.
`,
	RunE: runStats,
}

func init() {
	statsCmd.Flags().BoolVarP(&statsOutputJSON, "json", "j", false, "Output counts in JSON format")
}

func runStats(cmd *cobra.Command, args []string) error {
	if err := metrics.Init(); err != nil {
		return fmt.Errorf("failed to open stats store: %w", err)
	}
	defer func() { _ = metrics.Close() }()

	stats := metrics.GetStats()
	if stats == nil {
		return fmt.Errorf("failed to read stats store")
	}

	var total int64
	for _, count := range stats {
		total += count
	}

	if statsOutputJSON {
		out := make(map[string]int64, len(stats)+1)
		for mode, count := range stats {
			out[string(mode)] = count
		}
		out["total"] = total

		jsonOutput, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON output: %w", err)
		}
		fmt.Println(string(jsonOutput))
		return nil
	}

	fmt.Println("Invocations:")
	for _, mode := range metrics.AllModes {
		fmt.Printf("  %-7s %d\n", mode, stats[mode])
	}
	fmt.Printf("  %-7s %d\n", "total", total)
	return nil
}
