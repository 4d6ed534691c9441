package graph

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/maraichr/tablescan/internal/remediation"
	"github.com/maraichr/tablescan/internal/scanner"
)

const batchSize = 500

// Usage aggregates the issues of one (program, include, table) triple.
type Usage struct {
	Program     string
	Include     string
	Table       string
	Replacement string
	Occurrences int
	Writes      int
	Severity    scanner.Severity
}

var severityRank = map[scanner.Severity]int{
	scanner.SeverityInfo:    1,
	scanner.SeverityWarning: 2,
	scanner.SeverityError:   3,
}

// UsagesFromIssues folds issues into one usage per program include and
// table, keeping the worst severity seen.
func UsagesFromIssues(issues []remediation.Issue) []Usage {
	type key struct{ program, include, table string }
	byKey := make(map[key]*Usage)
	var order []key

	for _, is := range issues {
		k := key{is.Program, is.Include, strings.ToUpper(is.Table)}
		u, ok := byKey[k]
		if !ok {
			u = &Usage{Program: k.program, Include: k.include, Table: k.table, Replacement: is.Replacement}
			byKey[k] = u
			order = append(order, k)
		}
		u.Occurrences++
		if is.Kind == scanner.DisallowedWrite {
			u.Writes++
		}
		if severityRank[is.Severity] > severityRank[u.Severity] {
			u.Severity = is.Severity
		}
	}

	out := make([]Usage, 0, len(order))
	for _, k := range order {
		out = append(out, *byKey[k])
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Program != out[j].Program {
			return out[i].Program < out[j].Program
		}
		if out[i].Include != out[j].Include {
			return out[i].Include < out[j].Include
		}
		return out[i].Table < out[j].Table
	})
	return out
}

// SyncUsages upserts the legacy tables, their replacements and the USES
// relationships for one report.
func (c *Client) SyncUsages(ctx context.Context, reportID string, usages []Usage) error {
	session := c.Session(ctx)
	defer session.Close(ctx)

	tables := make(map[string]string)
	for _, u := range usages {
		tables[u.Table] = u.Replacement
	}
	tableParams := make([]map[string]any, 0, len(tables))
	for name, repl := range tables {
		tableParams = append(tableParams, map[string]any{"name": name, "replacement": repl})
	}

	_, err := neo4j.ExecuteWrite(ctx, session, func(tx neo4j.ManagedTransaction) (any, error) {
		_, err := tx.Run(ctx, UpsertReplacement, map[string]any{"tables": tableParams})
		return struct{}{}, err
	})
	if err != nil {
		return fmt.Errorf("sync tables: %w", err)
	}

	for i := 0; i < len(usages); i += batchSize {
		end := min(i+batchSize, len(usages))
		batch := usages[i:end]

		params := make([]map[string]any, len(batch))
		for j, u := range batch {
			params[j] = map[string]any{
				"program":     u.Program,
				"include":     u.Include,
				"table":       u.Table,
				"occurrences": u.Occurrences,
				"writes":      u.Writes,
				"severity":    string(u.Severity),
				"reportId":    reportID,
			}
		}

		_, err := neo4j.ExecuteWrite(ctx, session, func(tx neo4j.ManagedTransaction) (any, error) {
			_, err := tx.Run(ctx, UpsertUsage, map[string]any{"usages": params})
			return struct{}{}, err
		})
		if err != nil {
			return fmt.Errorf("sync usages batch %d: %w", i/batchSize, err)
		}
	}
	return nil
}
