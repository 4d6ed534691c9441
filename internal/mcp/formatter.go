package mcp

import (
	"fmt"
	"sort"
	"strings"

	"github.com/maraichr/tablescan/internal/remediation"
)

const defaultMaxTokens = 4000

// Verbosity controls how much detail is included in issue cards.
type Verbosity string

const (
	VerbositySummary  Verbosity = "summary"
	VerbosityStandard Verbosity = "standard"
	VerbosityFull     Verbosity = "full"
)

// ParseVerbosity returns a Verbosity from a string, defaulting to standard.
func ParseVerbosity(s string) Verbosity {
	switch strings.ToLower(s) {
	case "summary":
		return VerbositySummary
	case "full":
		return VerbosityFull
	default:
		return VerbosityStandard
	}
}

// ResponseBuilder constructs token-budgeted Markdown responses for MCP tools.
type ResponseBuilder struct {
	buf           strings.Builder
	tokenEstimate int
	maxTokens     int
	truncated     bool
	itemCount     int
}

// NewResponseBuilder creates a builder with the given token budget.
// If maxTokens <= 0, defaultMaxTokens is used.
func NewResponseBuilder(maxTokens int) *ResponseBuilder {
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &ResponseBuilder{maxTokens: maxTokens}
}

// AddHeader writes a header line to the response. Headers are never dropped.
func (rb *ResponseBuilder) AddHeader(text string) {
	line := text + "\n\n"
	rb.buf.WriteString(line)
	rb.tokenEstimate += len(line) / 4
}

// AddLine writes a single line to the response, returning false if budget exceeded.
func (rb *ResponseBuilder) AddLine(text string) bool {
	return rb.add(text + "\n")
}

// AddSection writes a section with a heading.
func (rb *ResponseBuilder) AddSection(heading string, content string) bool {
	return rb.add(fmt.Sprintf("### %s\n%s\n\n", heading, content))
}

// AddIssueCard renders an issue at the requested verbosity.
// Returns false if the card would exceed the token budget.
func (rb *ResponseBuilder) AddIssueCard(is remediation.Issue, verbosity Verbosity) bool {
	if !rb.add(formatIssueCard(is, verbosity)) {
		return false
	}
	rb.itemCount++
	return true
}

// AddIssueStub renders a one-line stub for an issue already reported in the session.
func (rb *ResponseBuilder) AddIssueStub(is remediation.Issue) bool {
	stub := fmt.Sprintf("- ~%s %s L%d~ already reported\n", is.Kind, is.Table, is.StartLine)
	if !rb.add(stub) {
		return false
	}
	rb.itemCount++
	return true
}

func (rb *ResponseBuilder) add(text string) bool {
	cost := len(text) / 4
	if rb.tokenEstimate+cost > rb.maxTokens {
		rb.truncated = true
		return false
	}
	rb.buf.WriteString(text)
	rb.tokenEstimate += cost
	return true
}

// Finalize appends truncation notice and returns the final response text.
func (rb *ResponseBuilder) Finalize(totalCount, returnedCount int) string {
	if rb.truncated || returnedCount < totalCount {
		rb.buf.WriteString(fmt.Sprintf(
			"\n---\n*Showing %d of %d results (truncated to ~%d tokens). Increase `max_response_tokens` or scan a smaller snippet.*\n",
			returnedCount, totalCount, rb.maxTokens))
	}
	return rb.buf.String()
}

// TokenEstimate returns the current estimated token count.
func (rb *ResponseBuilder) TokenEstimate() int {
	return rb.tokenEstimate
}

// IsTruncated returns whether the response was truncated.
func (rb *ResponseBuilder) IsTruncated() bool {
	return rb.truncated
}

// ItemCount returns the number of items added.
func (rb *ResponseBuilder) ItemCount() int {
	return rb.itemCount
}

// Fingerprint identifies an issue across scans of the same code.
func Fingerprint(is remediation.Issue) string {
	return fmt.Sprintf("%s|%s|%s|%s|%d|%d", is.Program, is.Include, strings.ToUpper(is.Table), is.Kind, is.StartLine, is.StartColumn)
}

// FormatSummary renders the severity and kind counts of a scan on one line each.
func FormatSummary(s remediation.Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Severity: %d error, %d warning, %d info\n",
		s.BySeverity["error"], s.BySeverity["warning"], s.BySeverity["info"])

	kinds := make([]string, 0, len(s.ByKind))
	for k, n := range s.ByKind {
		if n > 0 {
			kinds = append(kinds, fmt.Sprintf("%s %d", k, n))
		}
	}
	sort.Strings(kinds)
	if len(kinds) > 0 {
		fmt.Fprintf(&b, "Kinds: %s\n", strings.Join(kinds, ", "))
	}
	if len(s.Tables) > 0 {
		fmt.Fprintf(&b, "Tables: %s\n", strings.Join(s.Tables, ", "))
	}
	return b.String()
}

// formatIssueCard renders an issue as a Markdown card at the given verbosity.
func formatIssueCard(is remediation.Issue, verbosity Verbosity) string {
	var b strings.Builder

	switch verbosity {
	case VerbositySummary:
		b.WriteString(fmt.Sprintf("- [%s] %s `%s` L%d:%d\n", is.Severity, is.Kind, is.Table, is.StartLine, is.StartColumn))

	case VerbosityFull:
		b.WriteString(fmt.Sprintf("**%s** `%s` [%s]\n", is.Kind, is.Table, is.Severity))
		b.WriteString(fmt.Sprintf("  Location: %s / %s, L%d:%d–L%d:%d\n", is.Program, is.Include, is.StartLine, is.StartColumn, is.EndLine, is.EndColumn))
		if is.UnitName != "" {
			b.WriteString(fmt.Sprintf("  Unit: %s %s\n", is.UnitType, is.UnitName))
		}
		b.WriteString(fmt.Sprintf("  %s\n", is.Message))
		if is.Suggestion != "" {
			b.WriteString(fmt.Sprintf("  Suggestion: %s\n", is.Suggestion))
		}
		if is.Snippet != "" {
			b.WriteString(fmt.Sprintf("  Snippet: `%s`\n", is.Snippet))
		}
		b.WriteString("\n")

	default: // standard
		b.WriteString(fmt.Sprintf("**%s** `%s` [%s] L%d:%d\n", is.Kind, is.Table, is.Severity, is.StartLine, is.StartColumn))
		b.WriteString(fmt.Sprintf("  %s\n", is.Message))
		if is.Replacement != "" {
			b.WriteString(fmt.Sprintf("  Replace with `%s`\n", is.Replacement))
		}
		b.WriteString("\n")
	}

	return b.String()
}
