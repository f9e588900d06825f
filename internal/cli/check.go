package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/ppiankov/claimcheck/internal/model"
	"github.com/ppiankov/claimcheck/internal/workflow"
	"github.com/spf13/cobra"
)

var (
	outJSON       string
	clientContext string
	requesterID   string
	direction     string
	budget        int
	timeout       time.Duration
	showEvidence  bool
)

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check <claim>",
	Short: "Verify a single claim and plan presentation materials",
	Long: `Check verifies one claim:
- Split it into verifiable sub-claims
- Gather evidence for each sub-claim concurrently
- Produce a verdict per sub-claim
- Plan and schedule materials for approved sub-claims
- Hand the generation queue to the content generator

Example:
  claimcheck check "Acme leads the SGD 2 billion payments market"
  claimcheck check "..." --context "regional bank, prefers charts" --budget 90
  claimcheck check "..." --direction "use the client's teal palette" --json report.json`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringVar(&outJSON, "json", "", "write the JSON report to this path")
	checkCmd.Flags().StringVar(&clientContext, "context", "", "client context used when planning materials")
	checkCmd.Flags().StringVar(&requesterID, "requester", "", "id of the salesperson requesting the check")
	checkCmd.Flags().StringVar(&direction, "direction", "", "creative direction attached to every generation task")
	checkCmd.Flags().IntVar(&budget, "budget", 0, "materials time budget in minutes (default from config)")
	checkCmd.Flags().DurationVar(&timeout, "timeout", 10*time.Minute, "overall timeout")
	checkCmd.Flags().BoolVar(&showEvidence, "evidence", false, "print every tool call made for each sub-claim")
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	cfg, logger, err := setup(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	engine, cleanup, err := buildEngine(ctx, cfg, logger, progressPrinter(os.Stderr))
	defer cleanup()
	if err != nil {
		return err
	}

	claim := model.NewClaim(args[0], requesterID, clientContext)
	state := engine.Run(ctx, workflow.Request{
		Claim:             claim,
		CreativeDirection: direction,
		BudgetMinutes:     budget,
	})
	report := state.Report()

	printSummary(os.Stdout, report, showEvidence || cfg.Output.Verbose)

	if outJSON != "" {
		if err := writeReport(report, outJSON); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "✓ Report written: %s\n", outJSON)
	}

	if state.Stage == workflow.StageFailed {
		return fmt.Errorf("verification failed: %s", state.Err)
	}
	return nil
}
