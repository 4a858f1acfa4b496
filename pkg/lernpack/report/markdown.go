package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/cognicore/lernpack/pkg/lernpack/quality"
)

// Markdown renders the human-readable form of a report.
func Markdown(r *IngestReport) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Ingest report: %s / %s\n\n", r.Workspace, r.Scenario)
	fmt.Fprintf(&b, "- Run: `%s`\n", r.RunID)
	fmt.Fprintf(&b, "- Level: %s\n", r.Level)
	fmt.Fprintf(&b, "- Source: %s\n", r.Source)
	fmt.Fprintf(&b, "- Generated: %s\n\n", r.GeneratedAt.UTC().Format(time.RFC3339))

	s := r.Summary
	b.WriteString("## Summary\n\n")
	b.WriteString("| Packs | Passed | Prompts | Prompts passed | Pass rate | Failures | Warnings |\n")
	b.WriteString("|---|---|---|---|---|---|---|\n")
	fmt.Fprintf(&b, "| %d | %d | %d | %d | %.1f%% | %d | %d |\n\n",
		s.Packs, s.PacksPassed, s.Prompts, s.PromptsPassed, s.PassRate*100, s.Failures, s.Warnings)

	b.WriteString("## Packs\n\n")
	if len(r.Packs) == 0 {
		b.WriteString("No packs were generated.\n\n")
	}
	for _, p := range r.Packs {
		status := "PASS"
		if !p.Passed {
			status = "FAIL"
		}
		fmt.Fprintf(&b, "### %s %s\n\n", status, p.Title)
		fmt.Fprintf(&b, "`%s`, %d prompts\n\n", p.PackID, p.Prompts)
		writeIssues(&b, "Failures", p.Failures)
		writeIssues(&b, "Warnings", p.Warnings)
	}

	b.WriteString("## Recommended edits\n\n")
	if len(r.RecommendedEdits) == 0 {
		b.WriteString("None.\n")
	}
	for _, e := range r.RecommendedEdits {
		fmt.Fprintf(&b, "- %s\n", e)
	}
	return b.String()
}

func writeIssues(b *strings.Builder, heading string, issues []quality.Issue) {
	if len(issues) == 0 {
		return
	}
	fmt.Fprintf(b, "%s:\n\n", heading)
	for _, is := range issues {
		target := "pack"
		if is.PromptID != "" {
			target = is.PromptID
		}
		fmt.Fprintf(b, "- `%s` %s: %s\n", is.Rule, target, is.Reason)
	}
	b.WriteString("\n")
}
