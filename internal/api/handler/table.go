package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/maraichr/tablescan/internal/graph"
	"github.com/maraichr/tablescan/pkg/apierr"
)

// ProgramFinder answers which programs use a legacy table.
type ProgramFinder interface {
	ProgramsUsing(ctx context.Context, table string) ([]graph.ProgramUsage, error)
}

type TableHandler struct {
	logger *slog.Logger
	graph  ProgramFinder
}

func NewTableHandler(logger *slog.Logger, g ProgramFinder) *TableHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TableHandler{logger: logger, graph: g}
}

func (h *TableHandler) Programs(w http.ResponseWriter, r *http.Request) {
	if h.graph == nil {
		writeAPIError(w, h.logger, apierr.GraphDisabled())
		return
	}
	table := strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "table")))

	usages, err := h.graph.ProgramsUsing(r.Context(), table)
	if err != nil {
		writeAPIError(w, h.logger, apierr.GraphQueryFailed(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"table":    table,
		"programs": usages,
		"total":    len(usages),
	})
}
