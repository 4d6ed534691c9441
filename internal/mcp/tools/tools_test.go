package tools

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/maraichr/tablescan/internal/graph"
	"github.com/maraichr/tablescan/internal/mapping"
	"github.com/maraichr/tablescan/internal/mcp/session"
	"github.com/maraichr/tablescan/internal/remediation"
	"github.com/maraichr/tablescan/internal/scanner"
)

var discard = slog.New(slog.DiscardHandler)

func testHolder(t *testing.T) *scanner.Holder {
	t.Helper()
	tbl, err := mapping.Parse([]byte(`{"ZFOO": "ZFOO_NEW", "ZBAZ": null}`), "json")
	if err != nil {
		t.Fatalf("parse mapping: %v", err)
	}
	return scanner.NewHolder(scanner.New(tbl))
}

type memSessions struct {
	data    map[string]*session.Session
	loadErr error
}

func newMemSessions() *memSessions {
	return &memSessions{data: make(map[string]*session.Session)}
}

func (m *memSessions) Load(_ context.Context, id string) (*session.Session, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	if id == "" {
		id = "generated"
	}
	if s, ok := m.data[id]; ok {
		return s, nil
	}
	return &session.Session{ID: id}, nil
}

func (m *memSessions) Save(_ context.Context, s *session.Session) error {
	m.data[s.ID] = s
	return nil
}

func TestScanCode_RendersIssues(t *testing.T) {
	holder := testHolder(t)
	h := NewScanCodeHandler(remediation.NewService(holder, nil, 1, nil), nil, discard)

	out, err := h.Handle(context.Background(), ScanCodeParams{
		Code:      "SELECT * FROM ZFOO INTO TABLE lt.\nDELETE FROM ZBAZ.",
		StartLine: 40,
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	for _, want := range []string{"**Scan of SNIPPET**", "DirectRead", "DisallowedWrite", "`ZFOO`", "`ZBAZ`", "Replace with `ZFOO_NEW`", "L41"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Session:") {
		t.Error("no session line expected without a session store")
	}
}

func TestScanCode_Validation(t *testing.T) {
	h := NewScanCodeHandler(remediation.NewService(testHolder(t), nil, 1, nil), nil, discard)
	if _, err := h.Handle(context.Background(), ScanCodeParams{Code: "   "}); err == nil {
		t.Error("blank code should be rejected")
	}
	if _, err := h.Handle(context.Background(), ScanCodeParams{Code: "WRITE ZFOO.", StartLine: -1}); err == nil {
		t.Error("negative start_line should be rejected")
	}
}

func TestScanCode_NoIssues(t *testing.T) {
	h := NewScanCodeHandler(remediation.NewService(testHolder(t), nil, 1, nil), nil, discard)
	out, err := h.Handle(context.Background(), ScanCodeParams{Code: "WRITE 'hello'."})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "No legacy table usage found.") {
		t.Errorf("out = %s", out)
	}
}

func TestScanCode_SessionCollapsesRepeats(t *testing.T) {
	sessions := newMemSessions()
	h := NewScanCodeHandler(remediation.NewService(testHolder(t), nil, 1, nil), sessions, discard)
	params := ScanCodeParams{Code: "WRITE ZFOO.", SessionID: "s1"}

	first, err := h.Handle(context.Background(), params)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(first, "already reported") {
		t.Error("first scan should not contain stubs")
	}
	if !strings.Contains(first, "Session: `s1`") {
		t.Errorf("missing session line: %s", first)
	}

	second, err := h.Handle(context.Background(), params)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(second, "already reported") {
		t.Errorf("second scan should collapse the repeated issue:\n%s", second)
	}

	sess := sessions.data["s1"]
	if sess.Scans != 2 || sess.SeenCount() != 1 || len(sess.Recap) != 1 {
		t.Errorf("session = %+v", sess)
	}
}

func TestScanCode_SessionFailureIgnored(t *testing.T) {
	sessions := newMemSessions()
	sessions.loadErr = errors.New("valkey down")
	h := NewScanCodeHandler(remediation.NewService(testHolder(t), nil, 1, nil), sessions, discard)

	out, err := h.Handle(context.Background(), ScanCodeParams{Code: "WRITE ZFOO.", SessionID: "s1"})
	if err != nil {
		t.Fatalf("session failure should not fail the tool: %v", err)
	}
	if !strings.Contains(out, "ZFOO") {
		t.Errorf("out = %s", out)
	}
}

type fakeGraph struct{ err error }

func (g fakeGraph) ProgramsUsing(_ context.Context, table string) ([]graph.ProgramUsage, error) {
	if g.err != nil {
		return nil, g.err
	}
	return []graph.ProgramUsage{{Program: "ZPROG", Include: "ZPROG_F01", Occurrences: 3, Writes: 1, Severity: "error"}}, nil
}

func TestLookupTable(t *testing.T) {
	holder := testHolder(t)
	tests := []struct {
		name    string
		g       ProgramFinder
		params  LookupTableParams
		want    []string
		wantErr bool
	}{
		{"mapped", nil, LookupTableParams{Table: "zfoo"}, []string{"**ZFOO**", "Replacement: `ZFOO_NEW`"}, false},
		{"no replacement", nil, LookupTableParams{Table: "ZBAZ"}, []string{"Replacement: none"}, false},
		{"unknown", nil, LookupTableParams{Table: "ZNOPE"}, nil, true},
		{"blank", nil, LookupTableParams{Table: " "}, nil, true},
		{"programs", fakeGraph{}, LookupTableParams{Table: "ZFOO", Programs: true}, []string{"**Programs** (1 found)", "ZPROG / ZPROG_F01: 3 occurrences, 1 writes, worst error"}, false},
		{"programs without graph", nil, LookupTableParams{Table: "ZFOO", Programs: true}, []string{"usage graph is not configured"}, false},
		{"graph failure", fakeGraph{err: errors.New("bolt closed")}, LookupTableParams{Table: "ZFOO", Programs: true}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewLookupTableHandler(holder, tt.g, nil, discard)
			out, err := h.Handle(context.Background(), tt.params)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("missing %q in:\n%s", w, out)
				}
			}
		})
	}
}

func TestLookupTable_TouchesSession(t *testing.T) {
	sessions := newMemSessions()
	h := NewLookupTableHandler(testHolder(t), nil, sessions, discard)
	if _, err := h.Handle(context.Background(), LookupTableParams{Table: "zfoo", SessionID: "s1"}); err != nil {
		t.Fatal(err)
	}
	if got := sessions.data["s1"].RecentTables; len(got) != 1 || got[0] != "ZFOO" {
		t.Errorf("recent tables = %v", got)
	}
}

func TestWrapHandler_Error(t *testing.T) {
	wrapped := WrapHandler[LookupTableParams](NewLookupTableHandler(testHolder(t), nil, nil, discard))
	res, _, err := wrapped(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("wrapped handler should not return a Go error: %v", err)
	}
	if !res.IsError {
		t.Error("missing table should produce an error result")
	}
}
