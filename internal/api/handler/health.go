package handler

import (
	"context"
	"net/http"

	"github.com/maraichr/tablescan/internal/scanner"
	"github.com/maraichr/tablescan/pkg/apierr"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	scanners *scanner.Holder
	db       Pinger
}

// NewHealthHandler creates the health handler. db may be nil.
func NewHealthHandler(scanners *scanner.Holder, db Pinger) *HealthHandler {
	return &HealthHandler{scanners: scanners, db: db}
}

func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	if h.scanners == nil || h.scanners.Load() == nil {
		writeAPIError(w, nil, apierr.MappingNotReady())
		return
	}
	if h.db != nil {
		if err := h.db.Ping(r.Context()); err != nil {
			writeAPIError(w, nil, apierr.DatabaseNotReady(err))
			return
		}
	}
	table := h.scanners.Load().Table()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":          "ok",
		"mapping_version": table.Version(),
		"mapping_entries": table.Len(),
	})
}
