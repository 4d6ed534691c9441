package remediation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/maraichr/tablescan/internal/config"
	"github.com/maraichr/tablescan/internal/mapping"
	"github.com/maraichr/tablescan/internal/scanner"
)

// ScannerOptions turns the scan policies of cfg into scanner options.
func ScannerOptions(cfg config.ScanConfig) ([]scanner.Option, error) {
	dedup, err := scanner.ParseDedupPolicy(cfg.Dedup)
	if err != nil {
		return nil, err
	}
	snippet, err := scanner.ParseSnippetPolicy(cfg.Snippet)
	if err != nil {
		return nil, err
	}
	return []scanner.Option{scanner.WithDedup(dedup), scanner.WithSnippet(snippet)}, nil
}

// LoadScanner loads the configured mapping and builds the first scanner.
// Errors wrap mapping.ErrConfig when the mapping itself is unusable.
func LoadScanner(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*scanner.Holder, error) {
	opts, err := ScannerOptions(cfg.Scan)
	if err != nil {
		return nil, err
	}

	src, err := mapping.ParseSource(cfg.Mapping.Source)
	if err != nil {
		return nil, err
	}

	var fetcher mapping.Fetcher
	if src.IsObject() {
		f, err := mapping.NewS3Fetcher(ctx, cfg.S3)
		if err != nil {
			return nil, fmt.Errorf("init s3 fetcher: %w", err)
		}
		fetcher = f
	}

	table, err := mapping.Load(ctx, src, fetcher)
	if err != nil {
		return nil, err
	}
	logger.Info("mapping loaded",
		slog.String("source", src.String()),
		slog.Int("tables", table.Len()),
		slog.String("version", table.Version()))

	return scanner.NewHolder(scanner.New(table, opts...)), nil
}

// WatchMapping rebuilds the scanner in holder whenever the mapping file
// changes. It blocks until ctx is cancelled.
func WatchMapping(ctx context.Context, cfg *config.Config, holder *scanner.Holder, logger *slog.Logger) error {
	opts, err := ScannerOptions(cfg.Scan)
	if err != nil {
		return err
	}
	w := mapping.NewWatcher(cfg.Mapping.Source, func(t *mapping.Table) {
		holder.Store(scanner.New(t, opts...))
	}, logger)
	return w.Run(ctx)
}
