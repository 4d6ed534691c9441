package scanner

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/maraichr/tablescan/internal/mapping"
)

// DedupPolicy decides which matches on the same line collapse into one.
type DedupPolicy int

const (
	// DedupByLineAndFamily keys on (table, line, family): distinct syntactic
	// forms on one line are all reported, repeats within a family are not.
	DedupByLineAndFamily DedupPolicy = iota
	// DedupByLine keys on (table, line): the first family to reach a table on
	// a line wins.
	DedupByLine
)

// ParseDedupPolicy accepts "line_family" (default) or "line".
func ParseDedupPolicy(s string) (DedupPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "line_family":
		return DedupByLineAndFamily, nil
	case "line":
		return DedupByLine, nil
	default:
		return 0, fmt.Errorf("unknown dedup policy %q", s)
	}
}

func (p DedupPolicy) String() string {
	if p == DedupByLine {
		return "line"
	}
	return "line_family"
}

// SnippetPolicy decides how much source text accompanies each match.
type SnippetPolicy int

const (
	// SnippetLine returns the full line(s) containing the match.
	SnippetLine SnippetPolicy = iota
	// SnippetWindow returns a fixed character window around the match.
	SnippetWindow
)

// ParseSnippetPolicy accepts "line" (default) or "window".
func ParseSnippetPolicy(s string) (SnippetPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "line":
		return SnippetLine, nil
	case "window":
		return SnippetWindow, nil
	default:
		return 0, fmt.Errorf("unknown snippet policy %q", s)
	}
}

// Scanner finds legacy table usages in source text. It is immutable once
// built and safe for concurrent use.
type Scanner struct {
	table    *mapping.Table
	patterns PatternSet
	dedup    DedupPolicy
	snippet  SnippetPolicy
}

type Option func(*Scanner)

func WithDedup(p DedupPolicy) Option {
	return func(s *Scanner) { s.dedup = p }
}

func WithSnippet(p SnippetPolicy) Option {
	return func(s *Scanner) { s.snippet = p }
}

// New compiles the pattern set for table. A nil or empty table yields a
// scanner that never matches.
func New(table *mapping.Table, opts ...Option) *Scanner {
	if table == nil {
		table, _ = mapping.New(nil)
	}
	s := &Scanner{table: table, patterns: BuildPatterns(table.Names())}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Table returns the mapping the scanner was built from.
func (s *Scanner) Table() *mapping.Table { return s.table }

// Dedup returns the active deduplication policy.
func (s *Scanner) Dedup() DedupPolicy { return s.dedup }

// Snippet extracts the display snippet for m from the text it was found in.
func (s *Scanner) Snippet(text string, m RawMatch) string {
	if m.Start < 0 || m.End > len(text) || m.Start > m.End {
		return ""
	}
	if s.snippet == SnippetWindow {
		return windowSnippet(text, m.Start, m.End)
	}
	return lineSnippet(text, m.Start, m.End)
}

// Holder publishes the current Scanner. Readers always see a complete
// scanner; Store swaps it atomically when the mapping is reloaded.
type Holder struct {
	current atomic.Pointer[Scanner]
}

func NewHolder(s *Scanner) *Holder {
	h := &Holder{}
	h.current.Store(s)
	return h
}

func (h *Holder) Load() *Scanner { return h.current.Load() }

func (h *Holder) Store(s *Scanner) { h.current.Store(s) }
