package remediation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/maraichr/tablescan/internal/scanner"
)

// MatchCache stores the raw matches of previously scanned unit text.
type MatchCache interface {
	Get(ctx context.Context, key string) ([]scanner.RawMatch, bool, error)
	Set(ctx context.Context, key string, matches []scanner.RawMatch) error
}

// Service scans unit batches with the current scanner.
type Service struct {
	holder  *scanner.Holder
	cache   MatchCache
	workers int
	logger  *slog.Logger
}

// NewService creates a scan service. cache may be nil. workers <= 0 uses
// GOMAXPROCS.
func NewService(holder *scanner.Holder, cache MatchCache, workers int, logger *slog.Logger) *Service {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{holder: holder, cache: cache, workers: workers, logger: logger}
}

// Scanner returns the scanner currently published by the holder.
func (s *Service) Scanner() *scanner.Scanner {
	return s.holder.Load()
}

// CacheKey identifies the matches of code under one mapping version and
// dedup policy.
func CacheKey(version string, dedup scanner.DedupPolicy, code string) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00", version, dedup)
	h.Write([]byte(code))
	return "tablescan:matches:" + hex.EncodeToString(h.Sum(nil))
}

// Scan runs every unit through one scanner snapshot. Units are scanned in
// parallel; the report keeps input order.
func (s *Service) Scan(ctx context.Context, units []Unit) (*Report, error) {
	sc := s.holder.Load()
	found := make([][]scanner.RawMatch, len(units))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i := range units {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			found[i] = s.find(gctx, sc, units[i].Code)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("scan units: %w", err)
	}

	report := &Report{
		Units:          make([]UnitResult, len(units)),
		Issues:         []Issue{},
		MappingVersion: sc.Table().Version(),
	}
	for i, unit := range units {
		report.Units[i] = UnitResult{Unit: unit, TableReplacements: BuildReplacements(sc, unit, found[i])}
		report.Issues = append(report.Issues, BuildIssues(sc, i, unit, found[i])...)
	}
	report.Summary = Summarize(len(units), report.Issues)

	s.logger.Debug("scan complete",
		slog.Int("units", len(units)),
		slog.Int("issues", len(report.Issues)),
		slog.String("mapping_version", report.MappingVersion))
	return report, nil
}

// Remediate returns the per-unit result shape.
func (s *Service) Remediate(ctx context.Context, units []Unit) ([]UnitResult, error) {
	report, err := s.Scan(ctx, units)
	if err != nil {
		return nil, err
	}
	return report.Units, nil
}

// Issues returns the flattened issue shape.
func (s *Service) Issues(ctx context.Context, units []Unit) ([]Issue, error) {
	report, err := s.Scan(ctx, units)
	if err != nil {
		return nil, err
	}
	return report.Issues, nil
}

// find consults the cache before scanning. Cache failures are logged and
// never fail the scan.
func (s *Service) find(ctx context.Context, sc *scanner.Scanner, code string) []scanner.RawMatch {
	if s.cache == nil || code == "" {
		return sc.Find(code)
	}

	key := CacheKey(sc.Table().Version(), sc.Dedup(), code)
	if matches, ok, err := s.cache.Get(ctx, key); err != nil {
		s.logger.Warn("match cache get failed", slog.String("error", err.Error()))
	} else if ok {
		return matches
	}

	matches := sc.Find(code)
	if err := s.cache.Set(ctx, key, matches); err != nil {
		s.logger.Warn("match cache set failed", slog.String("error", err.Error()))
	}
	return matches
}
