package formatter

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/tordrt/richtextmigrate/internal/field"
	"github.com/tordrt/richtextmigrate/internal/migrate"
)

// TextFormatter formats a migration report as compact text
type TextFormatter struct {
	writer io.Writer
}

// NewTextFormatter creates a new text formatter
func NewTextFormatter(w io.Writer) *TextFormatter {
	return &TextFormatter{writer: w}
}

// Format writes the report in compact text format
func (f *TextFormatter) Format(r *migrate.Report) error {
	f.FormatSummary(r)

	if failures := r.Issues(migrate.IssueFailed); len(failures) > 0 {
		_, _ = fmt.Fprintln(f.writer)
		f.FormatIssues("FAILURES", failures)
	}
	if warnings := r.Issues(migrate.IssueWarning); len(warnings) > 0 {
		_, _ = fmt.Fprintln(f.writer)
		f.FormatIssues("VALIDATION WARNINGS", warnings)
	}
	return nil
}

// FormatSummary writes the run settings and the per phase counters
func (f *TextFormatter) FormatSummary(r *migrate.Report) {
	_, _ = fmt.Fprintf(f.writer, "MIGRATION REPORT (%s)\n", modeName(r.DryRun))
	_, _ = fmt.Fprintf(f.writer, "  markers: %s -> %s\n", r.Markers.Legacy, r.Markers.Target)
	_, _ = fmt.Fprintf(f.writer, "  scope: %s\n", scopeName(r.Scope))

	for _, phase := range []migrate.PhaseReport{r.Definitions, r.Records} {
		_, _ = fmt.Fprintln(f.writer)
		_, _ = fmt.Fprintf(f.writer, "%s\n", strings.ToUpper(phase.Table.String()))
		_, _ = fmt.Fprintf(f.writer, "  found: %d\n", phase.Found)
		_, _ = fmt.Fprintf(f.writer, "  processed: %d\n", phase.Processed)
		_, _ = fmt.Fprintf(f.writer, "  converted: %d\n", phase.Converted)
		_, _ = fmt.Fprintf(f.writer, "  validation warnings: %d\n", phase.ValidationWarnings)
		_, _ = fmt.Fprintf(f.writer, "  failed: %d\n", phase.Failed)
	}
}

// FormatIssues writes a titled list of row issues
func (f *TextFormatter) FormatIssues(title string, issues []migrate.RowIssue) {
	_, _ = fmt.Fprintf(f.writer, "%s\n", title)
	for _, issue := range issues {
		_, _ = fmt.Fprintf(f.writer, "  %s\n", issueName(issue))
		for _, msg := range issue.Messages {
			_, _ = fmt.Fprintf(f.writer, "    - %s\n", msg)
		}
	}
}

func modeName(dryRun bool) string {
	if dryRun {
		return "dry run"
	}
	return "write"
}

func scopeName(scope field.Scope) string {
	if scope.IsEmpty() {
		return "all content types"
	}
	ids := make([]string, len(scope.ContentTypeIDs))
	for i, id := range scope.ContentTypeIDs {
		ids[i] = strconv.FormatInt(id, 10)
	}
	return "content types " + strings.Join(ids, ", ")
}

func issueName(issue migrate.RowIssue) string {
	return fmt.Sprintf("%s %s", strings.TrimSuffix(issue.Table.String(), "s"), issue.Key)
}
