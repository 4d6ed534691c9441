package scanner

import (
	"reflect"
	"strings"
	"testing"

	"github.com/maraichr/tablescan/internal/mapping"
)

func newTestScanner(t *testing.T, entries map[string]string, opts ...Option) *Scanner {
	t.Helper()
	tbl, err := mapping.New(entries)
	if err != nil {
		t.Fatalf("mapping.New: %v", err)
	}
	return New(tbl, opts...)
}

func TestFind_SelectScenario(t *testing.T) {
	s := newTestScanner(t, map[string]string{"ZFOO": "ZFOO_NEW"})
	matches := s.Find("SELECT * FROM ZFOO WHERE X = 1")

	dml := filterFamily(matches, FamilyDML)
	if len(dml) != 1 {
		t.Fatalf("expected 1 DML match, got %d: %v", len(dml), describe(matches))
	}
	m := dml[0]
	if m.Keyword != "SELECT" || m.Table != "ZFOO" || m.Replacement != "ZFOO_NEW" {
		t.Errorf("unexpected match %+v", m)
	}

	c := m.Classify()
	if c.Kind != DirectRead || c.Severity != SeverityWarning {
		t.Errorf("got (%s, %s), want (DirectRead, warning)", c.Kind, c.Severity)
	}
	if c.Suggestion != "use ZFOO_NEW instead of ZFOO" {
		t.Errorf("suggestion = %q", c.Suggestion)
	}
}

func TestFind_DeleteScenario(t *testing.T) {
	s := newTestScanner(t, map[string]string{"ZBAR": "ZBAR_NEW"})
	dml := filterFamily(s.Find("DELETE FROM ZBAR"), FamilyDML)
	if len(dml) != 1 {
		t.Fatalf("expected 1 DML match, got %d", len(dml))
	}
	if dml[0].Keyword != "DELETE" {
		t.Errorf("keyword = %q, want DELETE", dml[0].Keyword)
	}
	c := dml[0].Classify()
	if c.Kind != DisallowedWrite || c.Severity != SeverityError {
		t.Errorf("got (%s, %s), want (DisallowedWrite, error)", c.Kind, c.Severity)
	}
}

func TestFind_ClearUnmapped(t *testing.T) {
	s := newTestScanner(t, map[string]string{"ZBAZ": ""})
	clear := filterFamily(s.Find("CLEAR ZBAZ."), FamilyClear)
	if len(clear) != 1 {
		t.Fatalf("expected 1 CLEAR match, got %d", len(clear))
	}
	m := clear[0]
	if m.Table != "ZBAZ" || m.Mapped() {
		t.Errorf("expected unmapped ZBAZ, got %+v", m)
	}
	if !strings.Contains(m.Classify().Suggestion, "add a mapping entry for ZBAZ") {
		t.Errorf("suggestion = %q", m.Classify().Suggestion)
	}
}

func TestFind_LongestMatchPreferred(t *testing.T) {
	s := newTestScanner(t, map[string]string{"ZTAB": "ZTAB_NEW", "ZTAB_EXT": "ZTAB_EXT_NEW"})
	matches := s.Find("SELECT * FROM ZTAB_EXT")
	if len(matches) == 0 {
		t.Fatal("expected matches")
	}
	for _, m := range matches {
		if m.Table != "ZTAB_EXT" {
			t.Errorf("%s match reported %q, want ZTAB_EXT", m.Family, m.Table)
		}
	}
}

func TestFind_NoKnownTable(t *testing.T) {
	s := newTestScanner(t, map[string]string{"ZFOO": "ZFOO_NEW"})
	texts := []string{
		"",
		"WRITE 'hello'.",
		"SELECT * FROM MARA INTO TABLE lt_mara.",
		"DATA zfoo_x TYPE i.",
		"lv_zfoo = 1.",
		"CLEAR xzfoo.",
	}
	for _, text := range texts {
		if got := s.Find(text); len(got) != 0 {
			t.Errorf("Find(%q) = %v, want none", text, describe(got))
		}
	}
}

func TestFind_EmptyMapping(t *testing.T) {
	s := newTestScanner(t, nil)
	if got := s.Find("SELECT * FROM ZFOO"); got != nil {
		t.Errorf("empty mapping should never match, got %v", describe(got))
	}
	if New(nil).Find("CLEAR ZFOO.") != nil {
		t.Error("nil mapping should never match")
	}
}

func TestFind_WriteKeywords(t *testing.T) {
	s := newTestScanner(t, map[string]string{"ZTAB": "ZTAB_V2"})
	tests := []struct {
		text    string
		keyword string
	}{
		{"INSERT INTO ztab VALUES wa.", "INSERT"},
		{"INSERT ztab FROM wa.", "INSERT"},
		{"UPDATE ztab SET f = 1.", "UPDATE"},
		{"MODIFY ztab FROM TABLE lt.", "MODIFY"},
		{"DELETE ztab WHERE f = 1.", "DELETE"},
		{"delete from ztab where f = 1.", "DELETE"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			dml := filterFamily(s.Find(tt.text), FamilyDML)
			if len(dml) != 1 {
				t.Fatalf("expected 1 DML match, got %d", len(dml))
			}
			if dml[0].Keyword != tt.keyword {
				t.Errorf("keyword = %q, want %q", dml[0].Keyword, tt.keyword)
			}
			if dml[0].Table != "ztab" {
				t.Errorf("table = %q, want source spelling ztab", dml[0].Table)
			}
			if dml[0].Replacement != "ZTAB_V2" {
				t.Errorf("replacement = %q", dml[0].Replacement)
			}
			if dml[0].Classify().Kind != DisallowedWrite {
				t.Errorf("kind = %s, want DisallowedWrite", dml[0].Classify().Kind)
			}
		})
	}
}

func TestFind_KeywordMustBeWholeWord(t *testing.T) {
	s := newTestScanner(t, map[string]string{"ZFOO": "ZFOO_NEW"})
	if dml := filterFamily(s.Find("SELECTION * FROM ZFOO"), FamilyDML); len(dml) != 0 {
		t.Errorf("SELECTION must not trigger DML, got %v", describe(dml))
	}
}

func TestFind_MultiLineDML(t *testing.T) {
	s := newTestScanner(t, map[string]string{"ZFOO": "ZFOO_NEW"})
	text := "SELECT *\n  FROM ZFOO\n  WHERE x = 1."
	matches := s.Find(text)

	dml := filterFamily(matches, FamilyDML)
	if len(dml) != 1 {
		t.Fatalf("expected 1 DML match, got %d", len(dml))
	}
	m := dml[0]
	if m.StartLine != 1 || m.StartCol != 1 {
		t.Errorf("start = %d:%d, want 1:1", m.StartLine, m.StartCol)
	}
	if m.EndLine != 2 || m.EndCol != 12 {
		t.Errorf("end = %d:%d, want 2:12", m.EndLine, m.EndCol)
	}
	if text[m.Start:m.End] != "SELECT *\n  FROM ZFOO" {
		t.Errorf("span text = %q", text[m.Start:m.End])
	}

	gen := filterFamily(matches, FamilyGeneric)
	if len(gen) != 1 || gen[0].StartLine != 2 || gen[0].StartCol != 8 {
		t.Errorf("generic match = %v, want line 2 col 8", describe(gen))
	}
}

func TestFind_ClearFieldSuffix(t *testing.T) {
	s := newTestScanner(t, map[string]string{"ZFOO": "ZFOO_NEW"})
	text := "CLEAR zfoo-matnr."
	clear := filterFamily(s.Find(text), FamilyClear)
	if len(clear) != 1 {
		t.Fatalf("expected 1 CLEAR match, got %d", len(clear))
	}
	if got := text[clear[0].Start:clear[0].End]; got != "CLEAR zfoo-matnr" {
		t.Errorf("span = %q", got)
	}
}

func TestFind_AssignBothSides(t *testing.T) {
	s := newTestScanner(t, map[string]string{"ZFOO": "ZFOO_NEW"})
	tests := []string{
		"zfoo-matnr = lv_matnr.",
		"lv_matnr = zfoo-matnr.",
		"lo_obj->attr = ZFOO-field.",
	}
	for _, text := range tests {
		t.Run(text, func(t *testing.T) {
			assign := filterFamily(s.Find(text), FamilyAssign)
			if len(assign) != 1 {
				t.Fatalf("expected 1 ASSIGN match, got %d", len(assign))
			}
			if !strings.EqualFold(assign[0].Table, "ZFOO") {
				t.Errorf("table = %q", assign[0].Table)
			}
		})
	}
}

func TestFind_AssignNamespacedTable(t *testing.T) {
	s := newTestScanner(t, map[string]string{"/NS/TAB": "ZTAB_NEW"})
	for _, text := range []string{"/ns/tab-field = lv_x.", "lv_x = /NS/TAB-field."} {
		t.Run(text, func(t *testing.T) {
			assign := filterFamily(s.Find(text), FamilyAssign)
			if len(assign) != 1 {
				t.Fatalf("expected 1 ASSIGN match, got %v", describe(s.Find(text)))
			}
			if !strings.EqualFold(assign[0].Table, "/NS/TAB") || assign[0].Replacement != "ZTAB_NEW" {
				t.Errorf("match = %+v", assign[0])
			}
		})
	}
}

func TestFind_AssignSpanAndBoundaries(t *testing.T) {
	s := newTestScanner(t, map[string]string{"ZFOO": "ZFOO_NEW"})

	text := "DATA x.\n  zfoo-f = 1."
	assign := filterFamily(s.Find(text), FamilyAssign)
	if len(assign) != 1 {
		t.Fatalf("expected 1 ASSIGN match, got %v", describe(s.Find(text)))
	}
	if got := text[assign[0].Start:assign[0].End]; got != "zfoo-f = 1" {
		t.Errorf("span = %q", got)
	}
	if assign[0].StartLine != 2 || assign[0].StartCol != 3 {
		t.Errorf("position = %d:%d, want 2:3", assign[0].StartLine, assign[0].StartCol)
	}

	if got := filterFamily(s.Find("xzfoo = 1."), FamilyAssign); len(got) != 0 {
		t.Errorf("table inside a longer identifier matched ASSIGN: %v", describe(got))
	}
}

func TestFind_DedupSameLineSameFamily(t *testing.T) {
	s := newTestScanner(t, map[string]string{"ZFOO": "ZFOO_NEW"})
	gen := filterFamily(s.Find("WRITE: ZFOO, zfoo, ZFOO."), FamilyGeneric)
	if len(gen) != 1 {
		t.Fatalf("repeats on one line should collapse, got %d", len(gen))
	}
	if gen[0].StartCol != 8 {
		t.Errorf("first occurrence should win, got col %d", gen[0].StartCol)
	}
}

func TestFind_DedupAcrossLinesKept(t *testing.T) {
	s := newTestScanner(t, map[string]string{"ZFOO": "ZFOO_NEW"})
	gen := filterFamily(s.Find("WRITE ZFOO.\nWRITE ZFOO."), FamilyGeneric)
	if len(gen) != 2 {
		t.Fatalf("expected one match per line, got %d", len(gen))
	}
	if gen[0].StartLine != 1 || gen[1].StartLine != 2 {
		t.Errorf("lines = %d, %d", gen[0].StartLine, gen[1].StartLine)
	}
}

func TestFind_MultiFamilyOnOneLine(t *testing.T) {
	text := "lv_matnr = zfoo-matnr."

	byFamily := newTestScanner(t, map[string]string{"ZFOO": "ZFOO_NEW"})
	got := byFamily.Find(text)
	if len(got) != 2 {
		t.Fatalf("line_family policy: expected ASSIGN and GENERIC, got %v", describe(got))
	}
	if got[0].Family != FamilyAssign || got[1].Family != FamilyGeneric {
		t.Errorf("order = %v", describe(got))
	}

	byLine := newTestScanner(t, map[string]string{"ZFOO": "ZFOO_NEW"}, WithDedup(DedupByLine))
	got = byLine.Find(text)
	if len(got) != 1 || got[0].Family != FamilyAssign {
		t.Fatalf("line policy: expected only ASSIGN, got %v", describe(got))
	}

	got = byLine.Find("SELECT * FROM ZFOO WHERE X = 1")
	if len(got) != 1 || got[0].Family != FamilyDML {
		t.Fatalf("line policy: DML should win over GENERIC, got %v", describe(got))
	}
}

func TestFind_OffsetsValidAndSorted(t *testing.T) {
	s := newTestScanner(t, map[string]string{"ZFOO": "ZFOO_NEW", "ZBAR": "ZBAR_NEW", "ZBAZ": ""})
	text := strings.Join([]string{
		"REPORT zdemo.",
		"DATA ls_foo TYPE zfoo.",
		"SELECT SINGLE * FROM zbar INTO @DATA(ls_bar) WHERE id = 1.",
		"CLEAR zbaz.",
		"ls_foo = zfoo-field.",
		"UPDATE zfoo SET f = 2.",
		"* ZBAR again in a comment",
	}, "\n")

	matches := s.Find(text)
	if len(matches) == 0 {
		t.Fatal("expected matches")
	}
	for i, m := range matches {
		if m.Start < 0 || m.Start > m.End || m.End > len(text) {
			t.Errorf("match %d has invalid span [%d, %d)", i, m.Start, m.End)
		}
		if i > 0 && matches[i-1].Start > m.Start {
			t.Errorf("matches not sorted at %d: %d > %d", i, matches[i-1].Start, m.Start)
		}
	}
}

func TestFind_Idempotent(t *testing.T) {
	s := newTestScanner(t, map[string]string{"ZFOO": "ZFOO_NEW"})
	text := "SELECT * FROM zfoo.\nCLEAR zfoo.\nlv = zfoo-a."
	first := s.Find(text)
	second := s.Find(text)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Find is not idempotent:\n%v\n%v", describe(first), describe(second))
	}
}

func TestFind_EscapesMetacharacters(t *testing.T) {
	s := newTestScanner(t, map[string]string{"Z.TAB": "ZTAB_NEW"})
	if got := s.Find("READ ZXTAB."); len(got) != 0 {
		t.Errorf("'.' must match literally, got %v", describe(got))
	}
	if got := filterFamily(s.Find("READ Z.TAB"), FamilyGeneric); len(got) != 1 {
		t.Errorf("expected literal Z.TAB match, got %v", describe(got))
	}
}

func TestFind_CharOffsetsCountCodePoints(t *testing.T) {
	s := newTestScanner(t, map[string]string{"ZFOO": "ZFOO_NEW"})
	text := "\" Prüfung\nWRITE ZFOO."
	gen := filterFamily(s.Find(text), FamilyGeneric)
	if len(gen) != 1 {
		t.Fatalf("expected 1 match, got %d", len(gen))
	}
	m := gen[0]
	// "\" Prüfung\n" is 10 characters but 11 bytes.
	if m.CharStart != 16 || m.Start != 17 {
		t.Errorf("char start = %d, byte start = %d; want 16, 17", m.CharStart, m.Start)
	}
	if m.CharEnd-m.CharStart != 4 {
		t.Errorf("char span = %d, want 4", m.CharEnd-m.CharStart)
	}
}

func filterFamily(matches []RawMatch, f Family) []RawMatch {
	var out []RawMatch
	for _, m := range matches {
		if m.Family == f {
			out = append(out, m)
		}
	}
	return out
}

func describe(matches []RawMatch) []string {
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.Family.String() + ":" + m.Table
	}
	return out
}
