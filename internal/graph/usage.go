package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// ProgramUsage is one program include that uses a legacy table.
type ProgramUsage struct {
	Program     string `json:"program"`
	Include     string `json:"include"`
	Occurrences int64  `json:"occurrences"`
	Writes      int64  `json:"writes"`
	Severity    string `json:"severity"`
	ReportID    string `json:"report_id"`
	Replacement string `json:"replacement,omitempty"`
}

// ProgramsUsing returns the program includes recorded as using table.
func (c *Client) ProgramsUsing(ctx context.Context, table string) ([]ProgramUsage, error) {
	session := c.Session(ctx)
	defer session.Close(ctx)

	result, err := neo4j.ExecuteRead(ctx, session, func(tx neo4j.ManagedTransaction) (any, error) {
		records, err := tx.Run(ctx, ProgramsUsingTable, map[string]any{
			"table": strings.ToUpper(table),
		})
		if err != nil {
			return nil, err
		}

		var out []ProgramUsage
		for records.Next(ctx) {
			rec := records.Record()
			out = append(out, ProgramUsage{
				Program:     stringValue(rec, "program"),
				Include:     stringValue(rec, "include"),
				Occurrences: intValue(rec, "occurrences"),
				Writes:      intValue(rec, "writes"),
				Severity:    stringValue(rec, "severity"),
				ReportID:    stringValue(rec, "reportId"),
				Replacement: stringValue(rec, "replacement"),
			})
		}
		return out, records.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("programs using %s: %w", table, err)
	}

	usages, _ := result.([]ProgramUsage)
	if usages == nil {
		usages = []ProgramUsage{}
	}
	return usages, nil
}

func stringValue(rec *neo4j.Record, key string) string {
	v, _ := rec.Get(key)
	s, _ := v.(string)
	return s
}

func intValue(rec *neo4j.Record, key string) int64 {
	v, _ := rec.Get(key)
	n, _ := v.(int64)
	return n
}
