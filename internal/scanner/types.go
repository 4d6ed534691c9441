package scanner

import "fmt"

// Family identifies the syntactic context a pattern recognizes.
type Family int

// Families in evaluation order. The order doubles as precedence when the
// finder collapses matches by line.
const (
	FamilyDML Family = iota
	FamilyClear
	FamilyAssign
	FamilyGeneric
)

var familyNames = [...]string{"DML", "CLEAR", "ASSIGN", "GENERIC"}

func (f Family) String() string {
	if f < 0 || int(f) >= len(familyNames) {
		return fmt.Sprintf("Family(%d)", int(f))
	}
	return familyNames[f]
}

func (f Family) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

func (f *Family) UnmarshalText(b []byte) error {
	for i, n := range familyNames {
		if n == string(b) {
			*f = Family(i)
			return nil
		}
	}
	return fmt.Errorf("unknown pattern family %q", b)
}

// IssueKind is the access classification of a usage.
type IssueKind string

const (
	DirectRead      IssueKind = "DirectRead"
	DisallowedWrite IssueKind = "DisallowedWrite"
)

// Severity of a reported usage.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// RawMatch is a single table usage found in one unit's text. Start and End
// are byte offsets into the text; CharStart and CharEnd are the same span in
// Unicode code points. Lines and columns are 1-based and relative to the
// start of the text.
type RawMatch struct {
	Family      Family `json:"family"`
	Keyword     string `json:"keyword,omitempty"`
	Table       string `json:"table"`
	Replacement string `json:"replacement,omitempty"`
	Start       int    `json:"start"`
	End         int    `json:"end"`
	CharStart   int    `json:"char_start"`
	CharEnd     int    `json:"char_end"`
	StartLine   int    `json:"start_line"`
	StartCol    int    `json:"start_col"`
	EndLine     int    `json:"end_line"`
	EndCol      int    `json:"end_col"`
}

// Mapped reports whether the matched table has a known replacement.
func (m RawMatch) Mapped() bool { return m.Replacement != "" }
