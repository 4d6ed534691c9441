package remediation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/maraichr/tablescan/internal/scanner"
)

const targetTypeTable = "TABLE"

// absoluteLine converts a unit-relative line to a program line. It returns
// nil when the unit does not say where it starts.
func absoluteLine(unit Unit, rel int) *int {
	if unit.StartLine == nil {
		return nil
	}
	abs := *unit.StartLine + rel - 1
	return &abs
}

// BuildReplacements renders matches found in unit as per-unit usage records.
func BuildReplacements(sc *scanner.Scanner, unit Unit, matches []scanner.RawMatch) []TableReplacement {
	out := make([]TableReplacement, 0, len(matches))
	for _, m := range matches {
		c := m.Classify()
		start := absoluteLine(unit, m.StartLine)
		end := absoluteLine(unit, m.EndLine)

		r := TableReplacement{
			Table:           m.Table,
			TargetType:      targetTypeTable,
			TargetName:      m.Table,
			StartCharInUnit: m.CharStart,
			EndCharInUnit:   m.CharEnd,
			StartLine:       start,
			EndLine:         end,
			LineSpan:        []*int{start, end},
			StartColumn:     m.StartCol,
			EndColumn:       m.EndCol,
			UsedFields:      []string{},
			Ambiguous:       !m.Mapped(),
			Snippet:         sc.Snippet(unit.Code, m),
			Pattern:         m.Family,
			Kind:            c.Kind,
			Severity:        c.Severity,
		}
		if m.Mapped() {
			replacement := m.Replacement
			stmt := fmt.Sprintf("Replace %s with %s", m.Table, replacement)
			r.NewTable = &replacement
			r.SuggestedStatement = &stmt
		}
		out = append(out, r)
	}
	return out
}

// BuildIssues renders matches found in unit as flattened issues. A unit
// without a start line is treated as starting at line 0.
func BuildIssues(sc *scanner.Scanner, index int, unit Unit, matches []scanner.RawMatch) []Issue {
	base := 0
	if unit.StartLine != nil {
		base = *unit.StartLine
	}

	out := make([]Issue, 0, len(matches))
	for _, m := range matches {
		c := m.Classify()
		issue := Issue{
			Program:     unit.ProgramName,
			Include:     unit.IncludeName,
			UnitType:    unit.Type,
			UnitIndex:   index,
			Table:       m.Table,
			Replacement: m.Replacement,
			Pattern:     m.Family,
			Kind:        c.Kind,
			Severity:    c.Severity,
			StartLine:   base + m.StartLine - 1,
			StartColumn: m.StartCol,
			EndLine:     base + m.EndLine - 1,
			EndColumn:   m.EndCol,
			Message:     c.Message,
			Suggestion:  c.Suggestion,
			Snippet:     sc.Snippet(unit.Code, m),
		}
		if unit.Name != nil {
			issue.UnitName = *unit.Name
		}
		out = append(out, issue)
	}
	return out
}

// Summarize counts issues by severity and kind and lists the distinct tables.
func Summarize(units int, issues []Issue) Summary {
	s := Summary{
		Units:  units,
		Issues: len(issues),
		BySeverity: map[string]int{
			string(scanner.SeverityInfo):    0,
			string(scanner.SeverityWarning): 0,
			string(scanner.SeverityError):   0,
		},
		ByKind: map[string]int{
			string(scanner.DirectRead):      0,
			string(scanner.DisallowedWrite): 0,
		},
		Tables: []string{},
	}

	seen := make(map[string]bool)
	for _, is := range issues {
		s.BySeverity[string(is.Severity)]++
		s.ByKind[string(is.Kind)]++
		name := strings.ToUpper(is.Table)
		if !seen[name] {
			seen[name] = true
			s.Tables = append(s.Tables, name)
		}
	}
	sort.Strings(s.Tables)
	return s
}
