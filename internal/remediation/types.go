package remediation

import "github.com/maraichr/tablescan/internal/scanner"

// Unit is one contiguous code segment submitted for scanning.
type Unit struct {
	ProgramName         string  `json:"pgm_name"`
	IncludeName         string  `json:"inc_name"`
	Type                string  `json:"type"`
	Name                *string `json:"name"`
	ClassImplementation *string `json:"class_implementation"`
	StartLine           *int    `json:"start_line"`
	EndLine             *int    `json:"end_line"`
	Code                string  `json:"code"`
}

// DisplayName is the most specific label available for the unit.
func (u Unit) DisplayName() string {
	if u.Name != nil && *u.Name != "" {
		return *u.Name
	}
	if u.IncludeName != "" {
		return u.IncludeName
	}
	return u.ProgramName
}

// TableReplacement is one usage record attached to a unit in the
// per-unit result shape.
type TableReplacement struct {
	Table              string            `json:"table"`
	TargetType         string            `json:"target_type"`
	TargetName         string            `json:"target_name"`
	StartCharInUnit    int               `json:"start_char_in_unit"`
	EndCharInUnit      int               `json:"end_char_in_unit"`
	StartLine          *int              `json:"start_line"`
	EndLine            *int              `json:"end_line"`
	LineSpan           []*int            `json:"line_span"`
	StartColumn        int               `json:"start_column"`
	EndColumn          int               `json:"end_column"`
	UsedFields         []string          `json:"used_fields"`
	Ambiguous          bool              `json:"ambiguous"`
	SuggestedStatement *string           `json:"suggested_statement"`
	NewTable           *string           `json:"new_table"`
	Snippet            string            `json:"snippet"`
	Pattern            scanner.Family    `json:"pattern"`
	Kind               scanner.IssueKind `json:"kind"`
	Severity           scanner.Severity  `json:"severity"`
}

// UnitResult echoes the submitted unit with its usage records.
type UnitResult struct {
	Unit
	TableReplacements []TableReplacement `json:"table_replacements"`
}

// Issue is one flattened, classified usage.
type Issue struct {
	Program     string            `json:"program"`
	Include     string            `json:"include"`
	UnitType    string            `json:"unit_type"`
	UnitName    string            `json:"unit_name,omitempty"`
	UnitIndex   int               `json:"unit_index"`
	Table       string            `json:"table"`
	Replacement string            `json:"replacement,omitempty"`
	Pattern     scanner.Family    `json:"pattern"`
	Kind        scanner.IssueKind `json:"kind"`
	Severity    scanner.Severity  `json:"severity"`
	StartLine   int               `json:"start_line"`
	StartColumn int               `json:"start_column"`
	EndLine     int               `json:"end_line"`
	EndColumn   int               `json:"end_column"`
	Message     string            `json:"message"`
	Suggestion  string            `json:"suggestion"`
	Snippet     string            `json:"snippet"`
}

// Summary counts the issues of one scan.
type Summary struct {
	Units      int            `json:"units"`
	Issues     int            `json:"issues"`
	BySeverity map[string]int `json:"by_severity"`
	ByKind     map[string]int `json:"by_kind"`
	Tables     []string       `json:"tables"`
}

// HasErrors reports whether any error-severity issue was found.
func (s Summary) HasErrors() bool {
	return s.BySeverity[string(scanner.SeverityError)] > 0
}

// Report is the full outcome of scanning a batch in both result shapes.
type Report struct {
	Units          []UnitResult `json:"units"`
	Issues         []Issue      `json:"issues"`
	Summary        Summary      `json:"summary"`
	MappingVersion string       `json:"mapping_version"`
}
