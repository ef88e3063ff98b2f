package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/tordrt/richtextmigrate/internal/migrate"
)

// MarkdownFormatter formats a migration report as markdown
type MarkdownFormatter struct {
	writer io.Writer
}

// NewMarkdownFormatter creates a new markdown formatter
func NewMarkdownFormatter(w io.Writer) *MarkdownFormatter {
	return &MarkdownFormatter{writer: w}
}

// Format writes the report in markdown format
func (f *MarkdownFormatter) Format(r *migrate.Report) error {
	_, _ = fmt.Fprintln(f.writer, "# Migration Report")
	_, _ = fmt.Fprintln(f.writer)

	f.FormatSummary(r)

	if failures := r.Issues(migrate.IssueFailed); len(failures) > 0 {
		f.FormatIssues("Failures", failures)
	}
	if warnings := r.Issues(migrate.IssueWarning); len(warnings) > 0 {
		f.FormatIssues("Validation warnings", warnings)
	}
	return nil
}

// FormatSummary writes the run settings and a table of phase counters
// (exported for use by multifile formatter)
func (f *MarkdownFormatter) FormatSummary(r *migrate.Report) {
	_, _ = fmt.Fprintf(f.writer, "- **Mode:** %s\n", modeName(r.DryRun))
	_, _ = fmt.Fprintf(f.writer, "- **Markers:** `%s` → `%s`\n", r.Markers.Legacy, r.Markers.Target)
	_, _ = fmt.Fprintf(f.writer, "- **Scope:** %s\n", scopeName(r.Scope))
	_, _ = fmt.Fprintln(f.writer)

	_, _ = fmt.Fprintln(f.writer, "## Summary")
	_, _ = fmt.Fprintln(f.writer)
	_, _ = fmt.Fprintln(f.writer, "| Phase | Found | Processed | Converted | Warnings | Failed |")
	_, _ = fmt.Fprintln(f.writer, "|---|---|---|---|---|---|")
	for _, phase := range []migrate.PhaseReport{r.Definitions, r.Records} {
		_, _ = fmt.Fprintf(f.writer, "| %s | %d | %d | %d | %d | %d |\n",
			phase.Table,
			phase.Found,
			phase.Processed,
			phase.Converted,
			phase.ValidationWarnings,
			phase.Failed)
	}
	_, _ = fmt.Fprintln(f.writer)
}

// FormatIssues writes a section listing row issues
func (f *MarkdownFormatter) FormatIssues(title string, issues []migrate.RowIssue) {
	_, _ = fmt.Fprintf(f.writer, "## %s\n\n", title)
	for _, issue := range issues {
		if len(issue.Messages) == 1 {
			_, _ = fmt.Fprintf(f.writer, "- **%s:** %s\n", issueName(issue), escapeMarkdown(issue.Messages[0]))
			continue
		}
		_, _ = fmt.Fprintf(f.writer, "- **%s:**\n", issueName(issue))
		for _, msg := range issue.Messages {
			_, _ = fmt.Fprintf(f.writer, "  - %s\n", escapeMarkdown(msg))
		}
	}
	_, _ = fmt.Fprintln(f.writer)
}

// escapeMarkdown keeps element names in messages from being read as HTML
func escapeMarkdown(s string) string {
	return strings.NewReplacer("<", "&lt;", ">", "&gt;", "|", "\\|").Replace(s)
}
