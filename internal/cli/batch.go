package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ppiankov/claimcheck/internal/worker"
	"github.com/spf13/cobra"
)

var (
	concurrency  int
	outputDir    string
	batchTimeout time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Verify multiple claims from a file in parallel",
	Long: `Batch verifies claims concurrently:
- Read claims from input file (one per line, # starts a comment)
- Verify claims in parallel with configurable worker count
- Each claim fans out to its own sub-claim branches
- Write one JSON report per claim

Example:
  claimcheck batch claims.txt
  claimcheck batch claims.txt --concurrency 4 --output-dir ./reports
  claimcheck batch claims.txt --context "regional bank" --timeout 30m`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", 2, "number of claims verified at once")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./claimcheck-reports", "output directory for reports")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 30*time.Minute, "total timeout for batch processing")
	batchCmd.Flags().StringVar(&clientContext, "context", "", "client context shared by every claim")
	batchCmd.Flags().StringVar(&requesterID, "requester", "", "id of the salesperson requesting the checks")
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	cfg, logger, err := setup(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  claimcheck Batch Processing\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Input file:   %s\n", file)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", concurrency)
	fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "  Timeout:      %v\n", batchTimeout)
	fmt.Fprintf(os.Stderr, "  LLM:          %s/%s (agent %s/%s)\n", cfg.LLM.Provider, cfg.LLM.Model, cfg.AgentLLM.Provider, cfg.AgentLLM.Model)
	fmt.Fprintf(os.Stderr, "\n")

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	var progress io.Writer = io.Discard
	if cfg.Output.Verbose {
		progress = os.Stderr
	}
	engine, cleanup, err := buildEngine(ctx, cfg, logger, progressPrinter(progress))
	defer cleanup()
	if err != nil {
		return err
	}

	processor := worker.NewBatchProcessor(engine, concurrency)
	fmt.Fprintf(os.Stderr, "⚙️  Verifying claims with %d workers...\n\n", concurrency)
	results, err := processor.ProcessFile(ctx, file, requesterID, clientContext)
	if err != nil {
		return fmt.Errorf("process file: %w", err)
	}

	successCount := 0
	failureCount := 0
	for _, result := range results {
		if result.Report != nil {
			path := filepath.Join(outputDir, reportFilename(result.Index, result.Claim.Text))
			if err := writeReport(result.Report, path); err != nil {
				fmt.Fprintf(os.Stderr, "✗ %s: failed to write JSON: %v\n", result.Claim.Text, err)
			}
		}
		if result.Error != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", result.Claim.Text, result.Error)
			continue
		}

		successCount++
		approved := 0
		for _, v := range result.Report.Verdicts {
			if v.ApprovedForMaterials {
				approved++
			}
		}
		fmt.Fprintf(os.Stderr, "✓ %s (%d sub-claims, %d approved, %d tasks)\n",
			result.Claim.Text, len(result.Report.Verdicts), approved, len(result.Report.Tasks))
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:     %d claims\n", len(results))
	fmt.Fprintf(os.Stderr, "  Success:   %d\n", successCount)
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", failureCount)
	fmt.Fprintf(os.Stderr, "  Output:    %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "\n")

	return nil
}

// reportFilename builds a stable, filesystem-safe report name for a claim
func reportFilename(index int, claim string) string {
	return fmt.Sprintf("%03d-%s.json", index+1, sanitizeFilename(claim))
}

// sanitizeFilename sanitizes a string for use as a filename
func sanitizeFilename(s string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
		" ", "-",
	)
	s = replacer.Replace(strings.TrimSpace(s))
	s = strings.Trim(s, ".-_")
	if s == "" {
		s = "claim"
	}

	// Limit length
	if len(s) > 60 {
		s = strings.TrimRight(s[:60], "-_")
	}
	return s
}
