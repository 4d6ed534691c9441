package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/maraichr/tablescan/internal/auth"
	"github.com/maraichr/tablescan/internal/jobs"
	"github.com/maraichr/tablescan/pkg/apierr"
)

// JobEnqueuer publishes scan jobs for the worker.
type JobEnqueuer interface {
	Enqueue(ctx context.Context, job jobs.ScanJob) (string, error)
}

type ScanJobHandler struct {
	logger   *slog.Logger
	store    ReportStore
	producer JobEnqueuer
	limits   Limits
}

func NewScanJobHandler(logger *slog.Logger, store ReportStore, producer JobEnqueuer, limits Limits) *ScanJobHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ScanJobHandler{logger: logger, store: store, producer: producer, limits: limits}
}

// Create records a pending report and queues the units for the worker.
func (h *ScanJobHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeAPIError(w, h.logger, apierr.ReportsDisabled())
		return
	}
	if h.producer == nil {
		writeAPIError(w, h.logger, apierr.JobsDisabled())
		return
	}
	units, apiErr := decodeUnits(w, r, h.limits)
	if apiErr != nil {
		writeAPIError(w, h.logger, apiErr)
		return
	}

	report, err := h.store.CreatePendingReport(r.Context(), len(units))
	if err != nil {
		writeAPIError(w, h.logger, apierr.ReportCreateFailed(err))
		return
	}

	job := jobs.ScanJob{ReportID: report.ID, Units: units, SubmittedAt: time.Now().UTC()}
	if p, ok := auth.PrincipalFrom(r.Context()); ok {
		job.SubmittedBy = p.Sub
	}

	msgID, err := h.producer.Enqueue(r.Context(), job)
	if err != nil {
		if ferr := h.store.FailScanReport(r.Context(), report.ID, "enqueue failed"); ferr != nil {
			h.logger.Error("mark report failed", slog.String("error", ferr.Error()))
		}
		writeAPIError(w, h.logger, apierr.JobEnqueueFailed(err))
		return
	}

	h.logger.Info("scan job queued",
		slog.String("report_id", report.ID.String()),
		slog.String("message_id", msgID),
		slog.Int("units", len(units)))
	writeJSON(w, http.StatusAccepted, newReportView(report, false))
}
