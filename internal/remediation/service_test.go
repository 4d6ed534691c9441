package remediation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/maraichr/tablescan/internal/mapping"
	"github.com/maraichr/tablescan/internal/scanner"
)

func newTestService(t *testing.T, cache MatchCache) *Service {
	t.Helper()
	tbl, err := mapping.Parse([]byte(`{"ZFOO": "ZFOO_NEW", "ZBAR": "ZBAR_NEW", "ZBAZ": null}`), "json")
	if err != nil {
		t.Fatalf("parse mapping: %v", err)
	}
	return NewService(scanner.NewHolder(scanner.New(tbl)), cache, 2, nil)
}

func intPtr(v int) *int { return &v }

type memCache struct {
	mu   sync.Mutex
	data map[string][]scanner.RawMatch
	hits int
}

func newMemCache() *memCache {
	return &memCache{data: make(map[string][]scanner.RawMatch)}
}

func (c *memCache) Get(_ context.Context, key string) ([]scanner.RawMatch, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.data[key]
	if ok {
		c.hits++
	}
	return m, ok, nil
}

func (c *memCache) Set(_ context.Context, key string, matches []scanner.RawMatch) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = matches
	return nil
}

type failingCache struct{}

func (failingCache) Get(context.Context, string) ([]scanner.RawMatch, bool, error) {
	return nil, false, fmt.Errorf("connection refused")
}

func (failingCache) Set(context.Context, string, []scanner.RawMatch) error {
	return fmt.Errorf("connection refused")
}

func TestRemediate_AbsoluteLines(t *testing.T) {
	svc := newTestService(t, nil)
	units := []Unit{{
		ProgramName: "ZPROG",
		IncludeName: "ZPROG_F01",
		Type:        "FORM",
		StartLine:   intPtr(100),
		Code:        "DATA x TYPE i.\nSELECT * FROM ZFOO WHERE x = 1.",
	}}

	results, err := svc.Remediate(context.Background(), units)
	if err != nil {
		t.Fatalf("Remediate: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 unit result, got %d", len(results))
	}

	recs := results[0].TableReplacements
	if len(recs) != 2 {
		t.Fatalf("expected DML and generic records, got %d", len(recs))
	}

	dml := recs[0]
	if dml.Pattern != scanner.FamilyDML {
		t.Fatalf("first record pattern = %s, want DML", dml.Pattern)
	}
	if dml.StartLine == nil || *dml.StartLine != 101 {
		t.Errorf("start_line = %v, want 101", dml.StartLine)
	}
	if dml.LineSpan[0] == nil || *dml.LineSpan[0] != 101 || *dml.LineSpan[1] != 101 {
		t.Errorf("line_span = %v", dml.LineSpan)
	}
	if dml.StartCharInUnit != 15 || dml.EndCharInUnit != 33 {
		t.Errorf("char span = [%d,%d), want [15,33)", dml.StartCharInUnit, dml.EndCharInUnit)
	}
	if dml.StartColumn != 1 || dml.EndColumn != 19 {
		t.Errorf("columns = %d..%d, want 1..19", dml.StartColumn, dml.EndColumn)
	}
	if dml.TargetType != "TABLE" || dml.TargetName != "ZFOO" {
		t.Errorf("target = %s %s", dml.TargetType, dml.TargetName)
	}
	if dml.Ambiguous {
		t.Error("mapped table should not be ambiguous")
	}
	if dml.NewTable == nil || *dml.NewTable != "ZFOO_NEW" {
		t.Errorf("new_table = %v", dml.NewTable)
	}
	if dml.SuggestedStatement == nil || *dml.SuggestedStatement != "Replace ZFOO with ZFOO_NEW" {
		t.Errorf("suggested_statement = %v", dml.SuggestedStatement)
	}
	if dml.Severity != scanner.SeverityWarning {
		t.Errorf("severity = %s, want warning", dml.Severity)
	}
	if dml.Snippet != "SELECT * FROM ZFOO WHERE x = 1." {
		t.Errorf("snippet = %q", dml.Snippet)
	}
}

func TestRemediate_NoStartLine(t *testing.T) {
	svc := newTestService(t, nil)
	units := []Unit{{ProgramName: "P", IncludeName: "I", Type: "FORM", Code: "CLEAR ZFOO."}}

	results, err := svc.Remediate(context.Background(), units)
	if err != nil {
		t.Fatal(err)
	}
	rec := results[0].TableReplacements[0]
	if rec.StartLine != nil || rec.EndLine != nil {
		t.Errorf("absolute lines should be null without start_line, got %v %v", rec.StartLine, rec.EndLine)
	}

	issues, err := svc.Issues(context.Background(), units)
	if err != nil {
		t.Fatal(err)
	}
	if issues[0].StartLine != 0 {
		t.Errorf("issue start_line = %d, want 0 for a unit without start_line", issues[0].StartLine)
	}
}

func TestRemediate_ZeroStartLine(t *testing.T) {
	svc := newTestService(t, nil)
	units := []Unit{{ProgramName: "P", IncludeName: "I", Type: "FORM", StartLine: intPtr(0), Code: "WRITE 'x'.\nCLEAR ZFOO."}}

	results, err := svc.Remediate(context.Background(), units)
	if err != nil {
		t.Fatal(err)
	}
	rec := results[0].TableReplacements[0]
	if rec.StartLine == nil || *rec.StartLine != 1 || *rec.EndLine != 1 {
		t.Errorf("absolute lines = %v %v, want 1 1", rec.StartLine, rec.EndLine)
	}

	issues, err := svc.Issues(context.Background(), units)
	if err != nil {
		t.Fatal(err)
	}
	if issues[0].StartLine != 1 || issues[0].EndLine != 1 {
		t.Errorf("issue lines = %d..%d, want 1..1", issues[0].StartLine, issues[0].EndLine)
	}
}

func TestRemediate_UnmappedTable(t *testing.T) {
	svc := newTestService(t, nil)
	units := []Unit{{ProgramName: "P", IncludeName: "I", Type: "FORM", Code: "CLEAR ZBAZ."}}

	results, err := svc.Remediate(context.Background(), units)
	if err != nil {
		t.Fatal(err)
	}
	rec := results[0].TableReplacements[0]
	if !rec.Ambiguous {
		t.Error("unmapped table should be ambiguous")
	}
	if rec.NewTable != nil || rec.SuggestedStatement != nil {
		t.Errorf("unmapped table should have null new_table and suggested_statement")
	}
}

func TestRemediate_EmptyCode(t *testing.T) {
	svc := newTestService(t, nil)
	results, err := svc.Remediate(context.Background(), []Unit{{ProgramName: "P", IncludeName: "I", Type: "FORM"}})
	if err != nil {
		t.Fatal(err)
	}
	if results[0].TableReplacements == nil || len(results[0].TableReplacements) != 0 {
		t.Errorf("expected empty, non-nil records, got %#v", results[0].TableReplacements)
	}

	body, _ := json.Marshal(results[0])
	if !strings.Contains(string(body), `"table_replacements":[]`) {
		t.Errorf("records should encode as an empty array: %s", body)
	}
}

func TestRemediate_EchoesUnit(t *testing.T) {
	svc := newTestService(t, nil)
	name := "lcl_impl"
	units := []Unit{{
		ProgramName: "ZPROG",
		IncludeName: "ZPROG_CCIMP",
		Type:        "METHOD",
		Name:        &name,
		StartLine:   intPtr(10),
		EndLine:     intPtr(20),
		Code:        "WRITE ZBAR.",
	}}

	results, err := svc.Remediate(context.Background(), units)
	if err != nil {
		t.Fatal(err)
	}

	var decoded map[string]any
	body, _ := json.Marshal(results[0])
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"pgm_name", "inc_name", "type", "name", "class_implementation", "start_line", "end_line", "code", "table_replacements"} {
		if _, ok := decoded[key]; !ok {
			t.Errorf("missing key %q in %s", key, body)
		}
	}
	if decoded["class_implementation"] != nil {
		t.Errorf("class_implementation should be null, got %v", decoded["class_implementation"])
	}
}

func TestScan_PreservesInputOrder(t *testing.T) {
	svc := newTestService(t, nil)

	var units []Unit
	for i := 0; i < 50; i++ {
		code := "WRITE 'x'."
		if i%3 == 0 {
			code = "WRITE ZFOO."
		}
		units = append(units, Unit{ProgramName: fmt.Sprintf("P%02d", i), IncludeName: "I", Type: "FORM", Code: code})
	}

	report, err := svc.Scan(context.Background(), units)
	if err != nil {
		t.Fatal(err)
	}
	for i, r := range report.Units {
		if r.ProgramName != units[i].ProgramName {
			t.Fatalf("unit %d is %s, want %s", i, r.ProgramName, units[i].ProgramName)
		}
	}

	prev := -1
	for _, is := range report.Issues {
		if is.UnitIndex < prev {
			t.Fatalf("issues out of unit order: %d after %d", is.UnitIndex, prev)
		}
		prev = is.UnitIndex
	}
	if report.Summary.Units != 50 || report.Summary.Issues != 17 {
		t.Errorf("summary = %+v", report.Summary)
	}
}

func TestScan_CancelledContext(t *testing.T) {
	svc := newTestService(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := svc.Scan(ctx, []Unit{{ProgramName: "P", IncludeName: "I", Type: "FORM", Code: "CLEAR ZFOO."}}); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}

func TestScan_UsesCache(t *testing.T) {
	cache := newMemCache()
	svc := newTestService(t, cache)
	units := []Unit{{ProgramName: "P", IncludeName: "I", Type: "FORM", Code: "UPDATE ZFOO SET f = 1."}}

	first, err := svc.Issues(context.Background(), units)
	if err != nil {
		t.Fatal(err)
	}
	second, err := svc.Issues(context.Background(), units)
	if err != nil {
		t.Fatal(err)
	}

	if cache.hits != 1 {
		t.Errorf("cache hits = %d, want 1", cache.hits)
	}
	if len(first) != len(second) || first[0].Severity != second[0].Severity {
		t.Errorf("cached scan differs: %+v vs %+v", first, second)
	}
	if first[0].Kind != scanner.DisallowedWrite {
		t.Errorf("kind = %s, want DisallowedWrite", first[0].Kind)
	}
}

func TestScan_CacheFailureFallsBack(t *testing.T) {
	svc := newTestService(t, failingCache{})
	issues, err := svc.Issues(context.Background(), []Unit{{ProgramName: "P", IncludeName: "I", Type: "FORM", Code: "WRITE ZFOO."}})
	if err != nil {
		t.Fatalf("cache failure should not fail the scan: %v", err)
	}
	if len(issues) != 1 {
		t.Errorf("expected 1 issue, got %d", len(issues))
	}
}

func TestCacheKey(t *testing.T) {
	a := CacheKey("v1", scanner.DedupByLineAndFamily, "CLEAR ZFOO.")
	if a != CacheKey("v1", scanner.DedupByLineAndFamily, "CLEAR ZFOO.") {
		t.Error("cache key should be deterministic")
	}
	if a == CacheKey("v2", scanner.DedupByLineAndFamily, "CLEAR ZFOO.") {
		t.Error("mapping version should change the key")
	}
	if a == CacheKey("v1", scanner.DedupByLine, "CLEAR ZFOO.") {
		t.Error("dedup policy should change the key")
	}
}

func TestSummarize(t *testing.T) {
	issues := []Issue{
		{Table: "zfoo", Kind: scanner.DirectRead, Severity: scanner.SeverityWarning},
		{Table: "ZFOO", Kind: scanner.DisallowedWrite, Severity: scanner.SeverityError},
		{Table: "ZBAR", Kind: scanner.DirectRead, Severity: scanner.SeverityInfo},
	}
	s := Summarize(2, issues)
	if s.Issues != 3 || s.Units != 2 {
		t.Errorf("counts = %d issues %d units", s.Issues, s.Units)
	}
	if s.BySeverity["error"] != 1 || s.BySeverity["warning"] != 1 || s.BySeverity["info"] != 1 {
		t.Errorf("by severity = %v", s.BySeverity)
	}
	if s.ByKind["DirectRead"] != 2 || s.ByKind["DisallowedWrite"] != 1 {
		t.Errorf("by kind = %v", s.ByKind)
	}
	if strings.Join(s.Tables, ",") != "ZBAR,ZFOO" {
		t.Errorf("tables = %v", s.Tables)
	}
	if !s.HasErrors() {
		t.Error("HasErrors should be true")
	}
	if Summarize(0, nil).HasErrors() {
		t.Error("empty summary should have no errors")
	}
}
