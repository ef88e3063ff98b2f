package migrate

import "github.com/tordrt/richtextmigrate/internal/field"

// IssueKind classifies a problem found with one row
type IssueKind int

const (
	// IssueFailed marks a row that could not be converted or stored
	IssueFailed IssueKind = iota
	// IssueWarning marks a row stored despite validation errors
	IssueWarning
)

func (k IssueKind) String() string {
	if k == IssueWarning {
		return "warning"
	}
	return "failed"
}

// RowIssue records what went wrong with one row
type RowIssue struct {
	Table    field.Table
	Key      field.Key
	Kind     IssueKind
	Messages []string
}

// PhaseReport holds the counters of one migration phase
type PhaseReport struct {
	Table field.Table
	// Found is the number of matching rows counted before the phase ran
	Found int64
	// Processed is the number of rows the phase handled
	Processed int64
	// Converted is the number of rows written
	Converted int64
	// ValidationWarnings is the number of rows whose output did not validate
	ValidationWarnings int64
	Failed             int64
	Issues             []RowIssue
}

func (p *PhaseReport) fail(key field.Key, messages ...string) {
	p.Failed++
	p.Issues = append(p.Issues, RowIssue{Table: p.Table, Key: key, Kind: IssueFailed, Messages: messages})
}

func (p *PhaseReport) warn(key field.Key, messages []string) {
	p.ValidationWarnings++
	p.Issues = append(p.Issues, RowIssue{Table: p.Table, Key: key, Kind: IssueWarning, Messages: messages})
}

// Report summarizes a migration run
type Report struct {
	DryRun      bool
	Markers     field.Markers
	Scope       field.Scope
	Definitions PhaseReport
	Records     PhaseReport
}

// Issues returns the issues of both phases of the given kind, definitions
// first
func (r *Report) Issues(kind IssueKind) []RowIssue {
	var out []RowIssue
	for _, phase := range []*PhaseReport{&r.Definitions, &r.Records} {
		for _, issue := range phase.Issues {
			if issue.Kind == kind {
				out = append(out, issue)
			}
		}
	}
	return out
}

// HasFailures reports whether any row failed
func (r *Report) HasFailures() bool {
	return r.Definitions.Failed > 0 || r.Records.Failed > 0
}
