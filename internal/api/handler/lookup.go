package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/maraichr/tablescan/internal/store/postgres"
	"github.com/maraichr/tablescan/pkg/apierr"
)

// getReportOr404 parses the reportID URL parameter and fetches the report,
// writing a 400/404/500 error on failure.
func getReportOr404(w http.ResponseWriter, r *http.Request, logger *slog.Logger, reports ReportStore) (postgres.ScanReport, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "reportID"))
	if err != nil {
		writeAPIError(w, logger, apierr.InvalidReportID())
		return postgres.ScanReport{}, false
	}

	report, err := reports.GetScanReport(r.Context(), id)
	if err != nil {
		if apierr.IsNotFound(err) {
			writeAPIError(w, logger, apierr.ReportNotFound())
		} else {
			writeAPIError(w, logger, apierr.InternalError(err))
		}
		return postgres.ScanReport{}, false
	}
	return report, true
}
