package mcp

import (
	"log/slog"

	"github.com/valkey-io/valkey-go"

	"github.com/maraichr/tablescan/internal/mcp/session"
	"github.com/maraichr/tablescan/internal/remediation"
	"github.com/maraichr/tablescan/internal/scanner"
)

// ServerDeps holds the infrastructure the MCP tools share.
type ServerDeps struct {
	Scans        *remediation.Service
	Scanners     *scanner.Holder
	ValkeyClient valkey.Client // optional; sessions are disabled without it
	Logger       *slog.Logger
}

// Server carries the shared state of the MCP tool handlers.
type Server struct {
	Scans    *remediation.Service
	Scanners *scanner.Holder
	Session  *session.Manager // nil when Valkey is unavailable
	Logger   *slog.Logger
}

// NewServer creates a new MCP server instance.
func NewServer(deps ServerDeps) *Server {
	s := &Server{
		Scans:    deps.Scans,
		Scanners: deps.Scanners,
		Logger:   deps.Logger,
	}
	if deps.ValkeyClient != nil {
		s.Session = session.NewManager(deps.ValkeyClient)
	}
	return s
}
