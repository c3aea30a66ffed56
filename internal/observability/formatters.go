// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/synapse-ai/sourcing-agent/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// truncate shortens s to max characters with an ellipsis.
func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max-3] + "..."
	}
	return s
}

// PrintSearchQuery outputs the query used for profile discovery.
func (p *Printer) PrintSearchQuery(query string) {
	if query == "" {
		return
	}
	p.printBox("SEARCH QUERY", truncate(query, 160))
}

// PrintProfile outputs a human-readable summary of one extracted profile.
func (p *Printer) PrintProfile(profile *types.ExtractedProfile) {
	if profile == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Name:     %s\n", profile.Name))
	if profile.Headline != "" {
		sb.WriteString(fmt.Sprintf("Headline: %s\n", truncate(profile.Headline, 48)))
	}
	sb.WriteString("\n")

	if len(profile.Experience) > 0 {
		sb.WriteString("Experience:\n")
		count := min(len(profile.Experience), maxItemsToShow)
		for i := 0; i < count; i++ {
			entry := profile.Experience[i]
			sb.WriteString(fmt.Sprintf("  • %s", truncate(entry.Title, 40)))
			if entry.Company != "" {
				sb.WriteString(fmt.Sprintf(" @ %s", truncate(entry.Company, 25)))
			}
			sb.WriteString("\n")
		}
		if len(profile.Experience) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(profile.Experience)-maxItemsToShow))
		}
		sb.WriteString("\n")
	}

	if len(profile.Education) > 0 {
		sb.WriteString("Education:\n")
		count := min(len(profile.Education), 3)
		for i := 0; i < count; i++ {
			sb.WriteString(fmt.Sprintf("  • %s\n", truncate(profile.Education[i].School, 48)))
		}
	}

	p.printBox("EXTRACTED PROFILE", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintRunSummary outputs the ranked candidates from one sourcing run.
func (p *Printer) PrintRunSummary(ranked []*types.CandidateEvaluation) {
	if len(ranked) == 0 {
		p.printBox("RANKED CANDIDATES", "No candidates scored")
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Candidates scored: %d\n\n", len(ranked)))

	count := min(len(ranked), maxItemsToShow)
	for i := 0; i < count; i++ {
		eval := ranked[i]
		sb.WriteString(fmt.Sprintf("#%d  %s\n", i+1, truncate(eval.Name, 45)))
		sb.WriteString(fmt.Sprintf("    Fit: %.1f", eval.FitScore.Value))
		if eval.ConfidenceScore.Valid {
			sb.WriteString(fmt.Sprintf(" (confidence: %.1f)", eval.ConfidenceScore.Value))
		}
		sb.WriteString("\n")
		if eval.Reasoning != "" {
			sb.WriteString(fmt.Sprintf("    %s\n", truncate(eval.Reasoning, 48)))
		}
		if i < count-1 {
			sb.WriteString("\n")
		}
	}

	if len(ranked) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("\n... and %d more candidates", len(ranked)-maxItemsToShow))
	}

	p.printBox("RANKED CANDIDATES", sb.String())
}

// PrintFailures outputs candidates that could not be processed.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintFailures(results []types.CandidateResult) {
	var failures []*types.FailedCandidate
	for _, result := range results {
		if result.Failed() {
			failures = append(failures, result.Failure)
		}
	}

	if len(failures) == 0 {
		fmt.Fprintf(p.out, "┌%s┐\n", strings.Repeat("─", boxWidth-2))
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, "✅ NO FAILED CANDIDATES")
		fmt.Fprintf(p.out, "└%s┘\n", strings.Repeat("─", boxWidth-2))
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Failed candidates: %d\n\n", len(failures)))

	for i, failure := range failures {
		sb.WriteString(fmt.Sprintf("⚠ %s\n", truncate(failure.ProfileURL, 48)))
		sb.WriteString(fmt.Sprintf("  [%s] %s\n", failure.Stage, truncate(failure.Reason, 40)))
		if i < len(failures)-1 {
			sb.WriteString("\n")
		}
	}

	p.printBox("FAILED CANDIDATES", sb.String())
}
