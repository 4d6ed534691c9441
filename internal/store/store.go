package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/maraichr/tablescan/internal/remediation"
	"github.com/maraichr/tablescan/internal/store/postgres"
)

type Store struct {
	*postgres.Queries
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{
		Queries: postgres.New(pool),
		pool:    pool,
	}
}

func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) WithTx(ctx context.Context, fn func(*postgres.Queries) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(s.Queries.WithTx(tx)); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// SaveReport stores a finished scan as a completed report.
func (s *Store) SaveReport(ctx context.Context, report *remediation.Report) (postgres.ScanReport, error) {
	summary, doc, err := encodeReport(report)
	if err != nil {
		return postgres.ScanReport{}, err
	}
	return s.CreateScanReport(ctx, postgres.CreateScanReportParams{
		ID:             uuid.New(),
		Status:         postgres.StatusCompleted,
		MappingVersion: report.MappingVersion,
		UnitCount:      int32(report.Summary.Units),
		IssueCount:     int32(report.Summary.Issues),
		ErrorCount:     int32(report.Summary.BySeverity["error"]),
		Summary:        summary,
		Report:         doc,
	})
}

// CreatePendingReport records a queued scan of units units.
func (s *Store) CreatePendingReport(ctx context.Context, units int) (postgres.ScanReport, error) {
	return s.CreateScanReport(ctx, postgres.CreateScanReportParams{
		ID:        uuid.New(),
		Status:    postgres.StatusPending,
		UnitCount: int32(units),
	})
}

// CompleteReport stores the results of a queued scan.
func (s *Store) CompleteReport(ctx context.Context, id uuid.UUID, report *remediation.Report) error {
	summary, doc, err := encodeReport(report)
	if err != nil {
		return err
	}
	return s.CompleteScanReport(ctx, postgres.CompleteScanReportParams{
		ID:             id,
		MappingVersion: report.MappingVersion,
		IssueCount:     int32(report.Summary.Issues),
		ErrorCount:     int32(report.Summary.BySeverity["error"]),
		Summary:        summary,
		Report:         doc,
	})
}

func encodeReport(report *remediation.Report) (summary, doc []byte, err error) {
	summary, err = json.Marshal(report.Summary)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal summary: %w", err)
	}
	doc, err = json.Marshal(report)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal report: %w", err)
	}
	return summary, doc, nil
}
