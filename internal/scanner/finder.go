package scanner

import (
	"sort"
	"strings"
)

type dedupKey struct {
	table  string
	line   int
	family Family
}

// Find returns every table usage in text, ordered by start offset. Families
// are evaluated DML, CLEAR, ASSIGN, GENERIC; within one family matches do not
// overlap. Find is a pure function of text and the scanner's mapping.
func (s *Scanner) Find(text string) []RawMatch {
	if text == "" || s.patterns.Empty() {
		return nil
	}

	ix := newLineIndex(text)
	seen := make(map[dedupKey]bool)
	var matches []RawMatch

	for _, p := range s.patterns.patterns {
		for _, loc := range p.re.FindAllStringSubmatchIndex(text, -1) {
			table := p.identifier(text, loc)
			if table == "" {
				continue
			}

			start, end := p.span(loc)
			startLine, startCol := ix.position(start)

			key := dedupKey{table: strings.ToUpper(table), line: startLine, family: -1}
			if s.dedup == DedupByLineAndFamily {
				key.family = p.family
			}
			if seen[key] {
				continue
			}
			seen[key] = true

			endLine, endCol := ix.position(end)
			replacement, _ := s.table.Lookup(table)

			m := RawMatch{
				Family:      p.family,
				Table:       table,
				Replacement: replacement,
				Start:       start,
				End:         end,
				CharStart:   ix.charOffset(start),
				CharEnd:     ix.charOffset(end),
				StartLine:   startLine,
				StartCol:    startCol,
				EndLine:     endLine,
				EndCol:      endCol,
			}
			if p.family == FamilyDML {
				m.Keyword = p.keyword(text, loc)
			}
			matches = append(matches, m)
		}
	}

	// Stable: equal offsets keep family order.
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Start < matches[j].Start
	})
	return matches
}
