package scanner

import (
	"regexp"
	"sort"
	"strings"
)

// pattern is one compiled family matcher together with the indexes of its
// capture groups (-1 when the family has no such group). When full is set,
// its span is the reported usage instead of the whole match.
type pattern struct {
	family Family
	re     *regexp.Regexp
	full   int
	obj    int
	obj2   int
	stmt   int
}

// PatternSet is the ordered list of family matchers built from the known
// table names. The zero value matches nothing.
type PatternSet struct {
	patterns []pattern
}

// Empty reports whether the set has no patterns (empty mapping).
func (ps PatternSet) Empty() bool { return len(ps.patterns) == 0 }

// BuildPatterns compiles the DML, CLEAR, ASSIGN and GENERIC matchers for
// names. Longer names come first in every alternation so a name is never
// shadowed by one of its prefixes.
func BuildPatterns(names []string) PatternSet {
	tbl := alternation(names)
	if tbl == "" {
		return PatternSet{}
	}

	sources := []struct {
		family Family
		expr   string
	}{
		// The statement keyword is followed either directly by the table
		// (UPDATE ztab SET ...) or, lazily across lines, by a FROM / INTO /
		// UPDATE / DELETE FROM clause naming it.
		{FamilyDML, `(?i)(?P<stmt>\bSELECT\b|\bINSERT\b|\bUPDATE\b|\bDELETE\b|\bMODIFY\b)` +
			`(?:\s+|[\s\S]*?\b(?:FROM|INTO|UPDATE|DELETE\s+FROM)\b\s+)` +
			`(?P<obj>` + tbl + `)\b`},
		{FamilyClear, `(?i)\bCLEAR\b\s+(?P<obj>` + tbl + `)\b[\w-]*`},
		// The guard before the usage keeps ASSIGN to whole identifiers,
		// including names that start with '/', and is not part of the span.
		{FamilyAssign, `(?i)(?:^|[^\w/])(?P<full>(?P<obj>` + tbl + `)\b[\w-]*\s*=\s*[\w>-]+` +
			`|[\w>-]+\s*=\s*(?P<obj2>` + tbl + `)\b[\w-]*)`},
		{FamilyGeneric, `(?i)\b(?P<obj>` + tbl + `)\b`},
	}

	ps := PatternSet{patterns: make([]pattern, 0, len(sources))}
	for _, s := range sources {
		re := regexp.MustCompile(s.expr)
		ps.patterns = append(ps.patterns, pattern{
			family: s.family,
			re:     re,
			full:   re.SubexpIndex("full"),
			obj:    re.SubexpIndex("obj"),
			obj2:   re.SubexpIndex("obj2"),
			stmt:   re.SubexpIndex("stmt"),
		})
	}
	return ps
}

// alternation joins quoted names longest first; ties sort alphabetically so
// the compiled expression is deterministic.
func alternation(names []string) string {
	seen := make(map[string]bool, len(names))
	quoted := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" || seen[strings.ToUpper(n)] {
			continue
		}
		seen[strings.ToUpper(n)] = true
		quoted = append(quoted, n)
	}
	sort.Slice(quoted, func(i, j int) bool {
		if len(quoted[i]) != len(quoted[j]) {
			return len(quoted[i]) > len(quoted[j])
		}
		return quoted[i] < quoted[j]
	})
	for i, n := range quoted {
		quoted[i] = regexp.QuoteMeta(n)
	}
	return strings.Join(quoted, "|")
}

// group returns the text of capture group idx in loc, or "" when the group
// does not exist or did not participate in the match.
func group(text string, loc []int, idx int) string {
	if idx < 0 || 2*idx+1 >= len(loc) || loc[2*idx] < 0 {
		return ""
	}
	return text[loc[2*idx]:loc[2*idx+1]]
}

// identifier extracts the table name from whichever side of the pattern fired.
func (p pattern) identifier(text string, loc []int) string {
	if obj := group(text, loc, p.obj); obj != "" {
		return obj
	}
	return group(text, loc, p.obj2)
}

// span returns the byte range of the usage within loc.
func (p pattern) span(loc []int) (int, int) {
	if p.full >= 0 && loc[2*p.full] >= 0 {
		return loc[2*p.full], loc[2*p.full+1]
	}
	return loc[0], loc[1]
}

// keyword returns the upper-cased statement keyword for DML matches.
func (p pattern) keyword(text string, loc []int) string {
	return strings.ToUpper(group(text, loc, p.stmt))
}
