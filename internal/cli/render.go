package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ppiankov/claimcheck/internal/model"
	"github.com/ppiankov/claimcheck/internal/workflow"
)

// progressPrinter prints workflow events to w. Branch workers report
// concurrently, so writes are serialized.
func progressPrinter(w io.Writer) workflow.Observer {
	var mu sync.Mutex
	return func(e workflow.Event) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(w, "⚙️  [%3.0f%%] %-13s %s\n", e.Progress*100, e.Stage, e.Message)
	}
}

// writeReport writes the run report as indented JSON
func writeReport(report *model.RunReport, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create report directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// printSummary renders a human readable summary of a run
func printSummary(w io.Writer, r *model.RunReport, showEvidence bool) {
	fmt.Fprintf(w, "\n═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(w, "  Claim: %s\n", r.Claim.Text)
	fmt.Fprintf(w, "═══════════════════════════════════════════════════════════\n\n")
	fmt.Fprintf(w, "  Stage:     %s\n", r.Stage)
	if r.Error != "" {
		fmt.Fprintf(w, "  Error:     %s\n", r.Error)
	}
	fmt.Fprintf(w, "  Duration:  %s\n\n", r.Duration().Round(1e6))

	for i, v := range r.Verdicts {
		approved := ""
		if v.ApprovedForMaterials {
			approved = " ✓ approved for materials"
		}
		fmt.Fprintf(w, "  %d. [%s] %s%s\n", i+1, v.Label, v.ClaimText, approved)
		if v.Explanation != "" {
			fmt.Fprintf(w, "     %s\n", oneLine(v.Explanation, 160))
		}
		for _, ev := range v.Evidence {
			fmt.Fprintf(w, "     - %s: %s\n", ev.Source, oneLine(ev.Summary, 120))
		}
		if showEvidence {
			for _, item := range r.Evidence[v.SubClaimID] {
				status := "ok"
				switch {
				case item.Failed():
					status = "error: " + item.Error
				case item.Cached:
					status = "cached"
				}
				fmt.Fprintf(w, "     · %s(%q) %s\n", item.Tool, item.Input, status)
			}
		}
	}

	if len(r.Selected)+len(r.Queued) > 0 {
		fmt.Fprintf(w, "\n  Materials (%d of %d minutes):\n", r.TotalMinutes, r.BudgetMinutes)
		for _, m := range r.Selected {
			fmt.Fprintf(w, "    ✓ %-18s %-6s %3d min  %s\n", m.Type, m.Priority, m.EstimatedMinutes, m.Title)
		}
		for _, m := range r.Queued {
			fmt.Fprintf(w, "    … %-18s %-6s %3d min  %s (queued)\n", m.Type, m.Priority, m.EstimatedMinutes, m.Title)
		}
	}

	if r.Handoff != nil {
		fmt.Fprintf(w, "\n  Handoff:   %s (%d tasks, %d generated)\n", r.Handoff.Status, r.Handoff.TaskCount, r.Handoff.GeneratedCount)
		for _, f := range r.Handoff.GeneratedFiles {
			fmt.Fprintf(w, "    - %s\n", f)
		}
		if r.Handoff.Message != "" && r.Handoff.Status != model.HandoffSuccess {
			fmt.Fprintf(w, "    %s\n", r.Handoff.Message)
		}
	}
	fmt.Fprintln(w)
}

func oneLine(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
