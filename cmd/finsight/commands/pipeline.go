package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// pipelineCmd represents the pipeline command
var pipelineCmd = &cobra.Command{
	Use:   "pipeline",
	Short: "Pipeline operations",
	Long: `Runs or inspects the market data pipeline.

The pipeline processes every configured symbol through:
fetch -> transform -> forecast/insight -> persist

Example:
  go run ./cmd/finsight pipeline run
  go run ./cmd/finsight pipeline run --force`,
}

var (
	pipelineRunCmd = &cobra.Command{
		Use:   "run",
		Short: "Run the pipeline once",
		Long: `Executes one full pipeline run across all configured symbols.

Flags:
  --date      as-of date (default: now)
  --force     recompute even when the raw series is unchanged
  --symbols   comma-separated ticker override (default: STOCK_SYMBOLS)

Example:
  go run ./cmd/finsight pipeline run
  go run ./cmd/finsight pipeline run --symbols AAPL,MSFT --force`,
		RunE: runPipeline,
	}

	// Flags
	pipelineDate    string
	pipelineForce   bool
	pipelineSymbols string
)

func init() {
	rootCmd.AddCommand(pipelineCmd)
	pipelineCmd.AddCommand(pipelineRunCmd)

	// Flags
	pipelineRunCmd.Flags().StringVar(&pipelineDate, "date", "", "as-of date (YYYY-MM-DD, default: now)")
	pipelineRunCmd.Flags().BoolVar(&pipelineForce, "force", false, "recompute even when the raw series is unchanged")
	pipelineRunCmd.Flags().StringVar(&pipelineSymbols, "symbols", "", "comma-separated ticker override")
}

func runPipeline(cmd *cobra.Command, args []string) error {
	fmt.Println("=== FinSight Pipeline ===")

	// Parse date
	asOf := time.Now().UTC()
	if pipelineDate != "" {
		parsed, err := time.Parse("2006-01-02", pipelineDate)
		if err != nil {
			return fmt.Errorf("invalid date format: %w", err)
		}
		asOf = parsed.UTC()
	}

	fmt.Printf("\n📅 As Of: %s\n", asOf.Format("2006-01-02 15:04:05"))
	fmt.Printf("🔧 Force: %v\n\n", pipelineForce)

	// Symbol override rides through config so validation still applies
	if pipelineSymbols != "" {
		os.Setenv("STOCK_SYMBOLS", pipelineSymbols)
	}

	c, err := initComponents(cmd.Context())
	if err != nil {
		return err
	}
	defer c.close()

	start := time.Now()
	report, err := c.orch.Run(cmd.Context(), asOf, pipelineForce)
	if err != nil {
		return fmt.Errorf("pipeline run: %w", err)
	}

	fmt.Printf("Run %s finished in %s\n\n", report.RunID, time.Since(start).Round(time.Millisecond))
	for _, res := range report.Results {
		line := fmt.Sprintf("  %-6s %-20s %s", res.Symbol, res.Outcome, res.Duration.Round(time.Millisecond))
		if res.SkipReason != "" {
			line += "  (" + res.SkipReason + ")"
		}
		if res.Error != "" {
			line += "  error: " + res.Error
		}
		fmt.Println(line)
	}

	fmt.Println("\nSummary:")
	for outcome, n := range report.Counts() {
		fmt.Printf("  %s: %d\n", outcome, n)
	}

	return nil
}
