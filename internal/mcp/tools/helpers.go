package tools

import (
	"context"
	"log/slog"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/maraichr/tablescan/internal/mcp/session"
)

// ToolHandler is the interface that all tool handlers implement.
type ToolHandler[P any] interface {
	Handle(ctx context.Context, params P) (string, error)
}

// WrapHandler adapts a ToolHandler into the SDK's AddTool callback.
// It handles nil params by using a zero value and maps errors to CallToolResult.
func WrapHandler[P any](h ToolHandler[P]) func(context.Context, *sdkmcp.CallToolRequest, *P) (*sdkmcp.CallToolResult, any, error) {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest, params *P) (*sdkmcp.CallToolResult, any, error) {
		if params == nil {
			params = new(P)
		}
		result, err := h.Handle(ctx, *params)
		if err != nil {
			return &sdkmcp.CallToolResult{
				IsError: true,
				Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: err.Error()}},
			}, nil, nil
		}
		return &sdkmcp.CallToolResult{
			Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: result}},
		}, nil, nil
	}
}

// SessionStore loads and saves agent sessions.
type SessionStore interface {
	Load(ctx context.Context, sessionID string) (*session.Session, error)
	Save(ctx context.Context, s *session.Session) error
}

// loadSession returns the agent's session, or nil when sessions are disabled
// or unavailable. Session failures never fail a tool call.
func loadSession(ctx context.Context, store SessionStore, id string, logger *slog.Logger) *session.Session {
	if store == nil {
		return nil
	}
	sess, err := store.Load(ctx, id)
	if err != nil {
		logger.Warn("load session", slog.String("error", err.Error()), slog.String("session_id", id))
		return nil
	}
	return sess
}

func saveSession(ctx context.Context, store SessionStore, sess *session.Session, logger *slog.Logger) {
	if store == nil || sess == nil {
		return
	}
	if err := store.Save(ctx, sess); err != nil {
		logger.Warn("save session", slog.String("error", err.Error()), slog.String("session_id", sess.ID))
	}
}
