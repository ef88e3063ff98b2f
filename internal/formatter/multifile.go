package formatter

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tordrt/richtextmigrate/internal/migrate"
)

const (
	formatMarkdown = "markdown"
	formatText     = "text"
)

// MultiFileFormatter writes a report to several files in a directory: a
// summary plus one file each for failures and validation warnings
type MultiFileFormatter struct {
	OutputDir    string
	OutputFormat string // "text" or "markdown"
}

// NewMultiFileFormatter creates a new multi-file formatter
func NewMultiFileFormatter(outputDir, format string) *MultiFileFormatter {
	if format == "" {
		format = formatText
	}
	return &MultiFileFormatter{
		OutputDir:    outputDir,
		OutputFormat: format,
	}
}

// Format writes the report to multiple files. Issue files are only written
// when there is something to list.
func (f *MultiFileFormatter) Format(r *migrate.Report) error {
	// Create output directory if it doesn't exist
	if err := os.MkdirAll(f.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := f.writeFile("_summary", func(w io.Writer) { f.writeSummary(w, r) }); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}

	sections := []struct {
		name  string
		title string
		kind  migrate.IssueKind
	}{
		{name: "failures", title: "Failures", kind: migrate.IssueFailed},
		{name: "warnings", title: "Validation warnings", kind: migrate.IssueWarning},
	}
	for _, sec := range sections {
		issues := r.Issues(sec.kind)
		if len(issues) == 0 {
			continue
		}
		err := f.writeFile(sec.name, func(w io.Writer) { f.writeIssues(w, sec.title, issues) })
		if err != nil {
			return fmt.Errorf("failed to write %s: %w", sec.name, err)
		}
	}

	return nil
}

func (f *MultiFileFormatter) writeFile(name string, write func(io.Writer)) error {
	filename := filepath.Join(f.OutputDir, name+f.getFileExtension())

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	write(file)
	return file.Close()
}

func (f *MultiFileFormatter) writeSummary(w io.Writer, r *migrate.Report) {
	failures := len(r.Issues(migrate.IssueFailed))
	warnings := len(r.Issues(migrate.IssueWarning))

	if f.OutputFormat == formatMarkdown {
		_, _ = fmt.Fprintf(w, "# Migration Summary\n\n")
		NewMarkdownFormatter(w).FormatSummary(r)
		_, _ = fmt.Fprintf(w, "Failures are listed in `failures%s` (%d), validation warnings in `warnings%s` (%d)\n",
			f.getFileExtension(), failures, f.getFileExtension(), warnings)
		return
	}

	NewTextFormatter(w).FormatSummary(r)
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintf(w, "failures: failures%s (%d)\n", f.getFileExtension(), failures)
	_, _ = fmt.Fprintf(w, "warnings: warnings%s (%d)\n", f.getFileExtension(), warnings)
}

func (f *MultiFileFormatter) writeIssues(w io.Writer, title string, issues []migrate.RowIssue) {
	if f.OutputFormat == formatMarkdown {
		NewMarkdownFormatter(w).FormatIssues(title, issues)
		return
	}
	NewTextFormatter(w).FormatIssues(strings.ToUpper(title), issues)
}

func (f *MultiFileFormatter) getFileExtension() string {
	if f.OutputFormat == formatMarkdown {
		return ".md"
	}
	return ".txt"
}
