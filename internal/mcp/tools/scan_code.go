package tools

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/maraichr/tablescan/internal/mcp"
	"github.com/maraichr/tablescan/internal/remediation"
)

// ScanCodeParams are the parameters for the scan_code tool.
type ScanCodeParams struct {
	Code              string `json:"code" jsonschema:"ABAP source to scan"`
	Program           string `json:"program,omitempty" jsonschema:"program name, defaults to SNIPPET"`
	Include           string `json:"include,omitempty" jsonschema:"include name, defaults to the program name"`
	UnitType          string `json:"unit_type,omitempty" jsonschema:"unit type such as FORM or METHOD"`
	StartLine         int    `json:"start_line,omitempty" jsonschema:"absolute line of the first line of code, defaults to 1"`
	Verbosity         string `json:"verbosity,omitempty" jsonschema:"summary, standard or full"`
	SessionID         string `json:"session_id,omitempty" jsonschema:"reuse to collapse issues already reported"`
	MaxResponseTokens int    `json:"max_response_tokens,omitempty"`
}

// ScanCodeHandler implements the scan_code MCP tool.
type ScanCodeHandler struct {
	scans    *remediation.Service
	sessions SessionStore
	logger   *slog.Logger
}

// NewScanCodeHandler creates a new handler. sessions may be nil.
func NewScanCodeHandler(scans *remediation.Service, sessions SessionStore, logger *slog.Logger) *ScanCodeHandler {
	return &ScanCodeHandler{scans: scans, sessions: sessions, logger: logger}
}

// Handle scans one snippet and renders its issues as Markdown.
func (h *ScanCodeHandler) Handle(ctx context.Context, params ScanCodeParams) (string, error) {
	if strings.TrimSpace(params.Code) == "" {
		return "", fmt.Errorf("code is required")
	}
	if params.StartLine < 0 {
		return "", fmt.Errorf("start_line must not be negative")
	}

	unit := remediation.Unit{
		ProgramName: params.Program,
		IncludeName: params.Include,
		Type:        params.UnitType,
		Code:        params.Code,
	}
	if unit.ProgramName == "" {
		unit.ProgramName = "SNIPPET"
	}
	if unit.IncludeName == "" {
		unit.IncludeName = unit.ProgramName
	}
	if unit.Type == "" {
		unit.Type = "SNIPPET"
	}
	start := params.StartLine
	if start == 0 {
		start = 1
	}
	unit.StartLine = &start

	report, err := h.scans.Scan(ctx, []remediation.Unit{unit})
	if err != nil {
		return "", fmt.Errorf("scan: %w", err)
	}

	sess := loadSession(ctx, h.sessions, params.SessionID, h.logger)
	verbosity := mcp.ParseVerbosity(params.Verbosity)

	rb := mcp.NewResponseBuilder(params.MaxResponseTokens)
	rb.AddHeader(fmt.Sprintf("**Scan of %s** (%d issues, mapping `%s`)", unit.IncludeName, len(report.Issues), report.MappingVersion))
	if len(report.Issues) == 0 {
		rb.AddLine("No legacy table usage found.")
	} else {
		rb.AddSection("Summary", mcp.FormatSummary(report.Summary))
	}

	returned, fresh := 0, 0
	for _, is := range report.Issues {
		fp := mcp.Fingerprint(is)
		var ok bool
		if sess != nil && sess.IsSeen(fp) {
			ok = rb.AddIssueStub(is)
		} else {
			ok = rb.AddIssueCard(is, verbosity)
			fresh++
		}
		if !ok {
			break
		}
		returned++
		if sess != nil {
			sess.MarkSeen(fp)
		}
	}

	if sess != nil {
		sess.Scans++
		if fresh > 0 {
			sess.AddRecap(fmt.Sprintf("%s: %d new issues (%s)", unit.IncludeName, fresh, strings.Join(report.Summary.Tables, ", ")))
		}
		saveSession(ctx, h.sessions, sess, h.logger)
		rb.AddLine(fmt.Sprintf("\nSession: `%s`", sess.ID))
	}

	return rb.Finalize(len(report.Issues), returned), nil
}
