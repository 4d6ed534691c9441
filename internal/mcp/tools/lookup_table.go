package tools

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/maraichr/tablescan/internal/graph"
	"github.com/maraichr/tablescan/internal/mcp"
	"github.com/maraichr/tablescan/internal/scanner"
)

// LookupTableParams are the parameters for the lookup_table tool.
type LookupTableParams struct {
	Table     string `json:"table" jsonschema:"legacy table name, case-insensitive"`
	Programs  bool   `json:"programs,omitempty" jsonschema:"also list programs recorded as using the table"`
	SessionID string `json:"session_id,omitempty"`
}

// ProgramFinder answers which programs use a legacy table.
type ProgramFinder interface {
	ProgramsUsing(ctx context.Context, table string) ([]graph.ProgramUsage, error)
}

// LookupTableHandler implements the lookup_table MCP tool.
type LookupTableHandler struct {
	scanners *scanner.Holder
	graph    ProgramFinder
	sessions SessionStore
	logger   *slog.Logger
}

// NewLookupTableHandler creates a new handler. g and sessions may be nil.
func NewLookupTableHandler(scanners *scanner.Holder, g ProgramFinder, sessions SessionStore, logger *slog.Logger) *LookupTableHandler {
	return &LookupTableHandler{scanners: scanners, graph: g, sessions: sessions, logger: logger}
}

// Handle reports the mapping entry of a table and, optionally, its users.
func (h *LookupTableHandler) Handle(ctx context.Context, params LookupTableParams) (string, error) {
	name := strings.ToUpper(strings.TrimSpace(params.Table))
	if name == "" {
		return "", fmt.Errorf("table is required")
	}

	table := h.scanners.Load().Table()
	if !table.Contains(name) {
		return "", fmt.Errorf("table %s is not in the mapping", name)
	}
	replacement, _ := table.Lookup(name)

	rb := mcp.NewResponseBuilder(0)
	rb.AddHeader(fmt.Sprintf("**%s**", name))
	if replacement != "" {
		rb.AddLine(fmt.Sprintf("Replacement: `%s`", replacement))
	} else {
		rb.AddLine("Replacement: none (usages are reported as ambiguous)")
	}
	rb.AddLine(fmt.Sprintf("Mapping version: `%s`", table.Version()))

	total, returned := 0, 0
	if params.Programs {
		if h.graph == nil {
			rb.AddLine("\nProgram usage is unavailable: the usage graph is not configured.")
		} else {
			usages, err := h.graph.ProgramsUsing(ctx, name)
			if err != nil {
				return "", fmt.Errorf("programs using %s: %w", name, err)
			}
			total = len(usages)
			rb.AddLine(fmt.Sprintf("\n**Programs** (%d found)", total))
			for _, u := range usages {
				line := fmt.Sprintf("- %s / %s: %d occurrences, %d writes, worst %s", u.Program, u.Include, u.Occurrences, u.Writes, u.Severity)
				if !rb.AddLine(line) {
					break
				}
				returned++
			}
		}
	}

	if sess := loadSession(ctx, h.sessions, params.SessionID, h.logger); sess != nil {
		sess.TouchTable(name)
		saveSession(ctx, h.sessions, sess, h.logger)
		rb.AddLine(fmt.Sprintf("\nSession: `%s`", sess.ID))
	}

	return rb.Finalize(total, returned), nil
}
