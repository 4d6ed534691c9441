package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/maraichr/tablescan/internal/remediation"
	"github.com/maraichr/tablescan/internal/store/postgres"
	"github.com/maraichr/tablescan/pkg/apierr"
)

// ReportStore persists scan reports.
type ReportStore interface {
	SaveReport(ctx context.Context, report *remediation.Report) (postgres.ScanReport, error)
	CreatePendingReport(ctx context.Context, units int) (postgres.ScanReport, error)
	FailScanReport(ctx context.Context, id uuid.UUID, message string) error
	GetScanReport(ctx context.Context, id uuid.UUID) (postgres.ScanReport, error)
	ListScanReports(ctx context.Context, limit, offset int32) ([]postgres.ScanReport, error)
	CountScanReports(ctx context.Context) (int64, error)
}

// ReportArchive reads archived report documents.
type ReportArchive interface {
	OpenReport(ctx context.Context, reportID string) (io.ReadCloser, error)
}

type ReportHandler struct {
	logger  *slog.Logger
	scans   *remediation.Service
	store   ReportStore
	archive ReportArchive
	limits  Limits
}

// NewReportHandler creates the report handler. store and archive may be nil.
func NewReportHandler(logger *slog.Logger, scans *remediation.Service, store ReportStore, archive ReportArchive, limits Limits) *ReportHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportHandler{logger: logger, scans: scans, store: store, archive: archive, limits: limits}
}

// reportView is the wire form of a stored report.
type reportView struct {
	postgres.ScanReport
	Summary json.RawMessage `json:"summary,omitempty"`
	Report  json.RawMessage `json:"report,omitempty"`
}

func newReportView(r postgres.ScanReport, withDocument bool) reportView {
	v := reportView{ScanReport: r}
	if len(r.Summary) > 0 {
		v.Summary = r.Summary
	}
	if withDocument && len(r.Report) > 0 {
		v.Report = r.Report
	}
	return v
}

// Create scans the submitted units and stores the result as a completed report.
func (h *ReportHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeAPIError(w, h.logger, apierr.ReportsDisabled())
		return
	}
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

	saved, err := h.store.SaveReport(r.Context(), report)
	if err != nil {
		writeAPIError(w, h.logger, apierr.ReportCreateFailed(err))
		return
	}

	writeJSON(w, http.StatusCreated, newReportView(saved, false))
}

func (h *ReportHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeAPIError(w, h.logger, apierr.ReportsDisabled())
		return
	}
	limit, offset := pageParams(r)

	reports, err := h.store.ListScanReports(r.Context(), limit, offset)
	if err != nil {
		writeAPIError(w, h.logger, apierr.ReportListFailed(err))
		return
	}

	total, err := h.store.CountScanReports(r.Context())
	if err != nil {
		writeAPIError(w, h.logger, apierr.ReportCountFailed(err))
		return
	}

	views := make([]reportView, len(reports))
	for i, rep := range reports {
		views[i] = newReportView(rep, false)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"reports": views,
		"total":   total,
	})
}

func (h *ReportHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeAPIError(w, h.logger, apierr.ReportsDisabled())
		return
	}
	report, ok := getReportOr404(w, r, h.logger, h.store)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newReportView(report, true))
}

// Archive streams the archived JSON document of a completed report.
func (h *ReportHandler) Archive(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeAPIError(w, h.logger, apierr.ReportsDisabled())
		return
	}
	if h.archive == nil {
		writeAPIError(w, h.logger, apierr.NotImplemented("Report archive"))
		return
	}
	report, ok := getReportOr404(w, r, h.logger, h.store)
	if !ok {
		return
	}
	if report.ArchiveKey == nil {
		writeAPIError(w, h.logger, apierr.ReportNotFound())
		return
	}

	obj, err := h.archive.OpenReport(r.Context(), report.ID.String())
	if err != nil {
		writeAPIError(w, h.logger, apierr.InternalError(err))
		return
	}
	defer obj.Close()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, obj); err != nil {
		h.logger.Warn("stream archived report", slog.String("error", err.Error()), slog.String("report_id", report.ID.String()))
	}
}
