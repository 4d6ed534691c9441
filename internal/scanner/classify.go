package scanner

import "fmt"

// Classification is the reportable verdict for one usage.
type Classification struct {
	Kind       IssueKind
	Severity   Severity
	Message    string
	Suggestion string
}

// Classify maps a usage to its issue kind, severity and remediation text.
// SELECT is a warning-level read, every other DML keyword is a disallowed
// write, and CLEAR, ASSIGN and GENERIC usages are informational reads.
func Classify(family Family, keyword, table, replacement string) Classification {
	c := Classification{Kind: DirectRead, Severity: SeverityInfo}
	if family == FamilyDML {
		if keyword == "SELECT" {
			c.Severity = SeverityWarning
		} else {
			c.Kind = DisallowedWrite
			c.Severity = SeverityError
		}
	}

	if replacement != "" {
		c.Message = fmt.Sprintf("%s is used in a %s statement", table, family)
		c.Suggestion = fmt.Sprintf("use %s instead of %s", replacement, table)
	} else {
		c.Message = fmt.Sprintf("%s is a legacy table with no replacement mapping (used in a %s statement)", table, family)
		c.Suggestion = fmt.Sprintf("add a mapping entry for %s or refactor away from the legacy table", table)
	}
	return c
}

// Classify is a convenience wrapper over the package-level Classify.
func (m RawMatch) Classify() Classification {
	return Classify(m.Family, m.Keyword, m.Table, m.Replacement)
}
