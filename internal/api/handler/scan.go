package handler

import (
	"log/slog"
	"net/http"

	"github.com/maraichr/tablescan/internal/remediation"
	"github.com/maraichr/tablescan/pkg/apierr"
)

// ScanHandler serves the synchronous scan endpoints.
type ScanHandler struct {
	logger *slog.Logger
	scans  *remediation.Service
	limits Limits
}

func NewScanHandler(logger *slog.Logger, scans *remediation.Service, limits Limits) *ScanHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ScanHandler{logger: logger, scans: scans, limits: limits}
}

// Remediate returns every submitted unit with its table usage records.
func (h *ScanHandler) Remediate(w http.ResponseWriter, r *http.Request) {
	units, apiErr := decodeUnits(w, r, h.limits)
	if apiErr != nil {
		writeAPIError(w, h.logger, apiErr)
		return
	}

	results, err := h.scans.Remediate(r.Context(), units)
	if err != nil {
		writeAPIError(w, h.logger, apierr.ScanFailed(err))
		return
	}
	writeJSON(w, http.StatusOK, results)
}

// Issues returns the classified issues of the submitted units as one list.
func (h *ScanHandler) Issues(w http.ResponseWriter, r *http.Request) {
	units, apiErr := decodeUnits(w, r, h.limits)
	if apiErr != nil {
		writeAPIError(w, h.logger, apiErr)
		return
	}

	report, err := h.scans.Scan(r.Context(), units)
	if err != nil {
		writeAPIError(w, h.logger, apierr.ScanFailed(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"issues":          report.Issues,
		"total":           len(report.Issues),
		"summary":         report.Summary,
		"mapping_version": report.MappingVersion,
	})
}
