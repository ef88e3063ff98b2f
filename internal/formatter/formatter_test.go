package formatter

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tordrt/richtextmigrate/internal/field"
	"github.com/tordrt/richtextmigrate/internal/migrate"
)

func sampleReport() *migrate.Report {
	return &migrate.Report{
		DryRun:  true,
		Markers: field.DefaultMarkers(),
		Scope:   field.NewScope(2, 1),
		Definitions: migrate.PhaseReport{
			Table:     field.Definitions,
			Found:     10,
			Processed: 10,
		},
		Records: migrate.PhaseReport{
			Table:              field.Records,
			Found:              3,
			Processed:          3,
			ValidationWarnings: 1,
			Failed:             1,
			Issues: []migrate.RowIssue{
				{
					Table:    field.Records,
					Key:      field.Key{ID: 4, Version: 2},
					Kind:     migrate.IssueWarning,
					Messages: []string{"/section/para[1]/link[1]: attribute 'xlink:href' is required", "/section/ezembed[1]: attribute 'xlink:href' is required"},
				},
				{
					Table:    field.Records,
					Key:      field.Key{ID: 5, Version: 1},
					Kind:     migrate.IssueFailed,
					Messages: []string{"malformed legacy markup: <section> is not closed"},
				},
			},
		},
	}
}

func TestTextFormatter(t *testing.T) {
	var buf bytes.Buffer
	if err := NewTextFormatter(&buf).Format(sampleReport()); err != nil {
		t.Fatalf("Format failed: %v", err)
	}
	out := buf.String()

	expected := []string{
		"MIGRATION REPORT (dry run)\n",
		"  markers: ezxmltext -> ezrichtext\n",
		"  scope: content types 1, 2\n",
		"FIELD DEFINITIONS\n  found: 10\n  processed: 10\n  converted: 0\n",
		"FIELD ROWS\n  found: 3\n",
		"FAILURES\n  field row #5 (version 1)\n    - malformed legacy markup",
		"VALIDATION WARNINGS\n  field row #4 (version 2)\n    - /section/para[1]/link[1]",
	}
	for _, exp := range expected {
		if !strings.Contains(out, exp) {
			t.Errorf("expected output to contain %q, got:\n%s", exp, out)
		}
	}
	if strings.Index(out, "FAILURES") > strings.Index(out, "VALIDATION WARNINGS") {
		t.Error("failures should be listed before warnings")
	}
}

func TestTextFormatterWithoutIssues(t *testing.T) {
	rep := &migrate.Report{
		Markers:     field.DefaultMarkers(),
		Definitions: migrate.PhaseReport{Table: field.Definitions},
		Records:     migrate.PhaseReport{Table: field.Records},
	}

	var buf bytes.Buffer
	if err := NewTextFormatter(&buf).Format(rep); err != nil {
		t.Fatalf("Format failed: %v", err)
	}
	out := buf.String()

	if !strings.Contains(out, "MIGRATION REPORT (write)") || !strings.Contains(out, "scope: all content types") {
		t.Errorf("unexpected header:\n%s", out)
	}
	if strings.Contains(out, "FAILURES") || strings.Contains(out, "WARNINGS") {
		t.Errorf("empty issue sections should be omitted:\n%s", out)
	}
}

func TestMarkdownFormatter(t *testing.T) {
	var buf bytes.Buffer
	if err := NewMarkdownFormatter(&buf).Format(sampleReport()); err != nil {
		t.Fatalf("Format failed: %v", err)
	}
	out := buf.String()

	expected := []string{
		"# Migration Report\n",
		"- **Mode:** dry run\n",
		"- **Markers:** `ezxmltext` → `ezrichtext`\n",
		"| field definitions | 10 | 10 | 0 | 0 | 0 |\n",
		"| field rows | 3 | 3 | 0 | 1 | 1 |\n",
		"## Failures\n\n- **field row #5 (version 1):** malformed legacy markup: &lt;section&gt; is not closed\n",
		"## Validation warnings\n\n- **field row #4 (version 2):**\n  - /section/para[1]/link[1]",
	}
	for _, exp := range expected {
		if !strings.Contains(out, exp) {
			t.Errorf("expected output to contain %q, got:\n%s", exp, out)
		}
	}
}

func TestMultiFileFormatter(t *testing.T) {
	tests := []struct {
		format    string
		ext       string
		summary   string
		wantFiles []string
	}{
		{format: "markdown", ext: ".md", summary: "# Migration Summary", wantFiles: []string{"_summary", "failures", "warnings"}},
		{format: "text", ext: ".txt", summary: "MIGRATION REPORT", wantFiles: []string{"_summary", "failures", "warnings"}},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "report")
			if err := NewMultiFileFormatter(dir, tt.format).Format(sampleReport()); err != nil {
				t.Fatalf("Format failed: %v", err)
			}

			for _, name := range tt.wantFiles {
				if _, err := os.Stat(filepath.Join(dir, name+tt.ext)); err != nil {
					t.Errorf("expected file %s%s: %v", name, tt.ext, err)
				}
			}

			summary, err := os.ReadFile(filepath.Join(dir, "_summary"+tt.ext))
			if err != nil {
				t.Fatalf("failed to read summary: %v", err)
			}
			if !strings.HasPrefix(string(summary), tt.summary) {
				t.Errorf("summary should start with %q, got:\n%s", tt.summary, summary)
			}
		})
	}
}

func TestMultiFileFormatterSkipsEmptyIssueFiles(t *testing.T) {
	rep := sampleReport()
	rep.Records.Issues = nil

	dir := t.TempDir()
	if err := NewMultiFileFormatter(dir, "").Format(rep); err != nil {
		t.Fatalf("Format failed: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("failed to read dir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "_summary.txt" {
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("expected only _summary.txt, got %v", names)
	}
}
