package scanner

import (
	"sort"
	"strings"
	"unicode/utf8"
)

const snippetWindow = 60

// lineIndex maps byte offsets of one text to 1-based line/column positions.
// Columns and char offsets count code points, not bytes.
type lineIndex struct {
	text       string
	starts     []int // byte offset of the first byte of each line
	charStarts []int // code-point offset of the first character of each line
}

func newLineIndex(text string) lineIndex {
	ix := lineIndex{text: text, starts: []int{0}, charStarts: []int{0}}
	chars := 0
	for i, r := range text {
		chars++
		if r == '\n' {
			ix.starts = append(ix.starts, i+1)
			ix.charStarts = append(ix.charStarts, chars)
		}
	}
	return ix
}

// line returns the 1-based line containing byte offset off.
func (ix lineIndex) line(off int) int {
	return sort.Search(len(ix.starts), func(i int) bool { return ix.starts[i] > off })
}

// position returns the 1-based line and column of byte offset off. An offset
// just past a line break belongs to the next line, column 1.
func (ix lineIndex) position(off int) (line, col int) {
	line = ix.line(off)
	col = utf8.RuneCountInString(ix.text[ix.starts[line-1]:off]) + 1
	return line, col
}

// charOffset converts byte offset off into a code-point offset.
func (ix lineIndex) charOffset(off int) int {
	line := ix.line(off)
	return ix.charStarts[line-1] + utf8.RuneCountInString(ix.text[ix.starts[line-1]:off])
}

var lineBreaks = strings.NewReplacer("\r\n", `\n`, "\n", `\n`, "\r", `\n`)

// escapeLineBreaks turns every literal line break into the two characters
// `\n` so a snippet stays on one display line.
func escapeLineBreaks(s string) string {
	return lineBreaks.Replace(s)
}

// lineSnippet returns the full source line(s) covering [start, end).
func lineSnippet(text string, start, end int) string {
	from := strings.LastIndexByte(text[:start], '\n') + 1
	to := len(text)
	if i := strings.IndexByte(text[end:], '\n'); i >= 0 {
		to = end + i
	}
	return escapeLineBreaks(strings.TrimSuffix(text[from:to], "\r"))
}

// windowSnippet returns up to snippetWindow characters either side of
// [start, end), clipped to the text.
func windowSnippet(text string, start, end int) string {
	from := start
	for n := 0; n < snippetWindow && from > 0; n++ {
		_, size := utf8.DecodeLastRuneInString(text[:from])
		from -= size
	}
	to := end
	for n := 0; n < snippetWindow && to < len(text); n++ {
		_, size := utf8.DecodeRuneInString(text[to:])
		to += size
	}
	return escapeLineBreaks(text[from:to])
}
