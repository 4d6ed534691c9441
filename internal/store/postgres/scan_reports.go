package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Report statuses.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

const schemaScanReports = `
CREATE TABLE IF NOT EXISTS scan_reports (
    id              UUID PRIMARY KEY,
    status          TEXT NOT NULL,
    mapping_version TEXT NOT NULL DEFAULT '',
    unit_count      INTEGER NOT NULL DEFAULT 0,
    issue_count     INTEGER NOT NULL DEFAULT 0,
    error_count     INTEGER NOT NULL DEFAULT 0,
    summary         JSONB,
    report          JSONB,
    error_message   TEXT,
    archive_key     TEXT,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
    completed_at    TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS scan_reports_created_at_idx ON scan_reports (created_at DESC);
`

// ScanReport is the DB model for the scan_reports table. Summary and Report
// hold raw JSON documents.
type ScanReport struct {
	ID             uuid.UUID  `json:"id"`
	Status         string     `json:"status"`
	MappingVersion string     `json:"mapping_version"`
	UnitCount      int32      `json:"unit_count"`
	IssueCount     int32      `json:"issue_count"`
	ErrorCount     int32      `json:"error_count"`
	Summary        []byte     `json:"-"`
	Report         []byte     `json:"-"`
	ErrorMessage   *string    `json:"error_message"`
	ArchiveKey     *string    `json:"archive_key"`
	CreatedAt      time.Time  `json:"created_at"`
	CompletedAt    *time.Time `json:"completed_at"`
}

// EnsureSchema creates the tables the service needs.
func (q *Queries) EnsureSchema(ctx context.Context) error {
	_, err := q.db.Exec(ctx, schemaScanReports)
	return err
}

// CreateScanReportParams holds the fields for inserting a report.
type CreateScanReportParams struct {
	ID             uuid.UUID
	Status         string
	MappingVersion string
	UnitCount      int32
	IssueCount     int32
	ErrorCount     int32
	Summary        []byte
	Report         []byte
}

const scanReportColumns = `id, status, mapping_version, unit_count, issue_count, error_count,
        summary, report, error_message, archive_key, created_at, completed_at`

func scanReport(row interface{ Scan(...any) error }) (ScanReport, error) {
	var r ScanReport
	err := row.Scan(
		&r.ID, &r.Status, &r.MappingVersion, &r.UnitCount, &r.IssueCount, &r.ErrorCount,
		&r.Summary, &r.Report, &r.ErrorMessage, &r.ArchiveKey, &r.CreatedAt, &r.CompletedAt,
	)
	return r, err
}

// CreateScanReport inserts a report. Completed reports get completed_at set.
func (q *Queries) CreateScanReport(ctx context.Context, arg CreateScanReportParams) (ScanReport, error) {
	row := q.db.QueryRow(ctx,
		`INSERT INTO scan_reports
		   (id, status, mapping_version, unit_count, issue_count, error_count, summary, report, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, CASE WHEN $2::text = 'completed' THEN now() END)
		 RETURNING `+scanReportColumns,
		arg.ID, arg.Status, arg.MappingVersion, arg.UnitCount, arg.IssueCount, arg.ErrorCount,
		arg.Summary, arg.Report)
	return scanReport(row)
}

// CompleteScanReportParams holds the results of a finished scan.
type CompleteScanReportParams struct {
	ID             uuid.UUID
	MappingVersion string
	IssueCount     int32
	ErrorCount     int32
	Summary        []byte
	Report         []byte
}

// CompleteScanReport stores the results of a pending report.
func (q *Queries) CompleteScanReport(ctx context.Context, arg CompleteScanReportParams) error {
	_, err := q.db.Exec(ctx,
		`UPDATE scan_reports
		 SET status = 'completed', mapping_version = $2, issue_count = $3, error_count = $4,
		     summary = $5, report = $6, completed_at = now()
		 WHERE id = $1`,
		arg.ID, arg.MappingVersion, arg.IssueCount, arg.ErrorCount, arg.Summary, arg.Report)
	return err
}

// FailScanReport marks a report as failed.
func (q *Queries) FailScanReport(ctx context.Context, id uuid.UUID, message string) error {
	_, err := q.db.Exec(ctx,
		`UPDATE scan_reports SET status = 'failed', error_message = $2, completed_at = now() WHERE id = $1`,
		id, message)
	return err
}

// SetScanReportArchiveKey records where the report document was archived.
func (q *Queries) SetScanReportArchiveKey(ctx context.Context, id uuid.UUID, key string) error {
	_, err := q.db.Exec(ctx,
		`UPDATE scan_reports SET archive_key = $2 WHERE id = $1`,
		id, key)
	return err
}

// GetScanReport returns one report. Missing rows yield pgx.ErrNoRows.
func (q *Queries) GetScanReport(ctx context.Context, id uuid.UUID) (ScanReport, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+scanReportColumns+` FROM scan_reports WHERE id = $1`, id)
	return scanReport(row)
}

// ListScanReports returns reports newest first without the report document.
func (q *Queries) ListScanReports(ctx context.Context, limit, offset int32) ([]ScanReport, error) {
	rows, err := q.db.Query(ctx,
		`SELECT id, status, mapping_version, unit_count, issue_count, error_count,
		        summary, NULL::jsonb, error_message, archive_key, created_at, completed_at
		 FROM scan_reports
		 ORDER BY created_at DESC
		 LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []ScanReport{}
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

// CountScanReports returns the total number of reports.
func (q *Queries) CountScanReports(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, `SELECT count(*) FROM scan_reports`).Scan(&n)
	return n, err
}
