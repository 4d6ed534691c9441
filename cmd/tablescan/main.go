// tablescan scans ABAP sources on disk against a table mapping and prints
// the issues as JSON. It exits 1 when any error-severity issue is found.
//
//	tablescan -mapping table_map.json src/*.abap
//	tablescan -mapping table_map.yaml -units units.json
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/maraichr/tablescan/internal/config"
	"github.com/maraichr/tablescan/internal/mapping"
	"github.com/maraichr/tablescan/internal/remediation"
)

const (
	exitOK     = 0
	exitIssues = 1
	exitUsage  = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("tablescan", flag.ContinueOnError)
	fs.SetOutput(stderr)
	mappingPath := fs.String("mapping", os.Getenv("MAPPING_SOURCE"), "table mapping file (.json, .yaml) or s3://bucket/key")
	unitsPath := fs.String("units", "", "JSON array of units to scan instead of files")
	dedup := fs.String("dedup", "line_family", "dedup policy: line_family or line")
	snippet := fs.String("snippet", "line", "snippet policy: line or window")
	workers := fs.Int("workers", 0, "parallel unit scans, 0 = GOMAXPROCS")
	full := fs.Bool("full", false, "print the full report with per-unit records")
	debug := fs.Bool("debug", false, "enable debug logging")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	level := slog.LevelWarn
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	if *mappingPath == "" {
		fmt.Fprintln(stderr, "tablescan: -mapping is required")
		return exitUsage
	}
	if *unitsPath == "" && fs.NArg() == 0 {
		fmt.Fprintln(stderr, "tablescan: no input files")
		return exitUsage
	}

	cfg := &config.Config{
		Scan:    config.ScanConfig{Dedup: *dedup, Snippet: *snippet},
		Mapping: config.MappingConfig{Source: *mappingPath},
		S3: config.S3Config{
			Region:   envOr("S3_REGION", "us-east-1"),
			Endpoint: os.Getenv("S3_ENDPOINT"),
		},
	}
	holder, err := remediation.LoadScanner(ctx, cfg, logger)
	if err != nil {
		if errors.Is(err, mapping.ErrConfig) {
			fmt.Fprintf(stderr, "tablescan: mapping %s: %v\n", *mappingPath, err)
		} else {
			fmt.Fprintf(stderr, "tablescan: %v\n", err)
		}
		return exitUsage
	}

	var units []remediation.Unit
	if *unitsPath != "" {
		units, err = readUnits(*unitsPath)
	} else {
		units, err = fileUnits(fs.Args())
	}
	if err != nil {
		fmt.Fprintf(stderr, "tablescan: %v\n", err)
		return exitUsage
	}

	report, err := remediation.NewService(holder, nil, *workers, logger).Scan(ctx, units)
	if err != nil {
		fmt.Fprintf(stderr, "tablescan: scan: %v\n", err)
		return exitUsage
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	var out any = report
	if !*full {
		out = struct {
			Issues         []remediation.Issue `json:"issues"`
			Total          int                 `json:"total"`
			Summary        remediation.Summary `json:"summary"`
			MappingVersion string              `json:"mapping_version"`
		}{report.Issues, len(report.Issues), report.Summary, report.MappingVersion}
	}
	if err := enc.Encode(out); err != nil {
		fmt.Fprintf(stderr, "tablescan: write output: %v\n", err)
		return exitUsage
	}

	if report.Summary.HasErrors() {
		return exitIssues
	}
	return exitOK
}

// fileUnits turns each source file into one unit named after the file.
func fileUnits(paths []string) ([]remediation.Unit, error) {
	units := make([]remediation.Unit, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", p, err)
		}
		name := strings.ToUpper(strings.TrimSuffix(filepath.Base(p), filepath.Ext(p)))
		start := 1
		units = append(units, remediation.Unit{
			ProgramName: name,
			IncludeName: name,
			Type:        "INCLUDE",
			StartLine:   &start,
			Code:        string(data),
		})
	}
	return units, nil
}

func readUnits(path string) ([]remediation.Unit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var units []remediation.Unit
	if err := json.Unmarshal(data, &units); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if err := remediation.ValidateUnits(units, 0, 0); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return units, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
