package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/maraichr/tablescan/internal/scanner"
	"github.com/maraichr/tablescan/pkg/apierr"
)

type MappingHandler struct {
	scanners *scanner.Holder
}

func NewMappingHandler(scanners *scanner.Holder) *MappingHandler {
	return &MappingHandler{scanners: scanners}
}

type mappingEntry struct {
	Table       string  `json:"table"`
	Replacement *string `json:"replacement"`
}

func toMappingEntry(table, replacement string) mappingEntry {
	e := mappingEntry{Table: table}
	if replacement != "" {
		e.Replacement = &replacement
	}
	return e
}

func (h *MappingHandler) List(w http.ResponseWriter, r *http.Request) {
	table := h.scanners.Load().Table()
	entries := make([]mappingEntry, 0, table.Len())
	for _, e := range table.Entries() {
		entries = append(entries, toMappingEntry(e.Table, e.Replacement))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"mappings": entries,
		"total":    len(entries),
		"version":  table.Version(),
	})
}

func (h *MappingHandler) Get(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "table")
	table := h.scanners.Load().Table()
	if !table.Contains(name) {
		writeAPIError(w, nil, apierr.TableNotMapped(name))
		return
	}
	replacement, _ := table.Lookup(name)
	writeJSON(w, http.StatusOK, toMappingEntry(strings.ToUpper(strings.TrimSpace(name)), replacement))
}
