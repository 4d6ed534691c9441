package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/maraichr/tablescan/internal/graph"
	"github.com/maraichr/tablescan/internal/remediation"
)

// ReportWriter persists the outcome of a queued scan.
type ReportWriter interface {
	CompleteReport(ctx context.Context, id uuid.UUID, report *remediation.Report) error
	FailScanReport(ctx context.Context, id uuid.UUID, message string) error
	SetScanReportArchiveKey(ctx context.Context, id uuid.UUID, key string) error
}

// Archiver stores finished report documents.
type Archiver interface {
	ArchiveReport(ctx context.Context, reportID string, doc []byte) (string, error)
}

// UsageSyncer records which programs use which legacy tables.
type UsageSyncer interface {
	SyncUsages(ctx context.Context, reportID string, usages []graph.Usage) error
}

// Processor runs queued scan jobs. Archive and graph are optional.
type Processor struct {
	scans   *remediation.Service
	reports ReportWriter
	archive Archiver
	graph   UsageSyncer
	logger  *slog.Logger
}

func NewProcessor(scans *remediation.Service, reports ReportWriter, archive Archiver, graph UsageSyncer, logger *slog.Logger) *Processor {
	return &Processor{scans: scans, reports: reports, archive: archive, graph: graph, logger: logger}
}

// Handle scans the job's units and completes its report. A scan failure
// marks the report failed and is not retried; a storage failure is
// returned so the job stays pending until a consumer claims it again.
func (p *Processor) Handle(ctx context.Context, job ScanJob) error {
	start := time.Now()
	reportID := job.ReportID.String()
	log := p.logger.With(slog.String("report_id", reportID))

	report, err := p.scans.Scan(ctx, job.Units)
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		if ferr := p.reports.FailScanReport(ctx, job.ReportID, err.Error()); ferr != nil {
			return fmt.Errorf("mark report failed: %w", ferr)
		}
		log.Error("scan job failed", slog.String("error", err.Error()))
		return nil
	}

	if err := p.reports.CompleteReport(ctx, job.ReportID, report); err != nil {
		return fmt.Errorf("complete report: %w", err)
	}

	if p.archive != nil {
		if err := p.archiveReport(ctx, job.ReportID, report); err != nil {
			log.Warn("archive report failed", slog.String("error", err.Error()))
		}
	}

	if p.graph != nil {
		usages := graph.UsagesFromIssues(report.Issues)
		if err := p.graph.SyncUsages(ctx, reportID, usages); err != nil {
			log.Warn("usage graph sync failed", slog.String("error", err.Error()))
		}
	}

	log.Info("scan job complete",
		slog.Int("units", report.Summary.Units),
		slog.Int("issues", report.Summary.Issues),
		slog.Duration("duration", time.Since(start)))
	return nil
}

func (p *Processor) archiveReport(ctx context.Context, id uuid.UUID, report *remediation.Report) error {
	doc, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	key, err := p.archive.ArchiveReport(ctx, id.String(), doc)
	if err != nil {
		return err
	}
	return p.reports.SetScanReportArchiveKey(ctx, id, key)
}
