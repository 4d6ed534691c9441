package tools

import (
	"context"
	"strings"
	"testing"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/maraichr/tablescan/internal/remediation"
)

func connectTestClient(t *testing.T) *sdkmcp.ClientSession {
	t.Helper()
	ctx := context.Background()
	holder := testHolder(t)

	server := sdkmcp.NewServer(&sdkmcp.Implementation{Name: "tablescan", Version: "test"}, nil)
	Register(server,
		NewScanCodeHandler(remediation.NewService(holder, nil, 1, nil), nil, discard),
		NewLookupTableHandler(holder, nil, nil, discard))

	clientTransport, serverTransport := sdkmcp.NewInMemoryTransports()
	if _, err := server.Connect(ctx, serverTransport, nil); err != nil {
		t.Fatalf("server connect: %v", err)
	}
	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "test-client", Version: "test"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { cs.Close() })
	return cs
}

func resultText(t *testing.T, res *sdkmcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) == 0 {
		t.Fatal("empty tool result")
	}
	text, ok := res.Content[0].(*sdkmcp.TextContent)
	if !ok {
		t.Fatalf("content is %T, want text", res.Content[0])
	}
	return text.Text
}

func TestRegister_ListTools(t *testing.T) {
	cs := connectTestClient(t)
	res, err := cs.ListTools(context.Background(), nil)
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}
	names := make(map[string]bool)
	for _, tool := range res.Tools {
		names[tool.Name] = true
	}
	if !names["scan_code"] || !names["lookup_table"] {
		t.Errorf("tools = %v", names)
	}
}

func TestRegister_CallTools(t *testing.T) {
	cs := connectTestClient(t)
	ctx := context.Background()

	res, err := cs.CallTool(ctx, &sdkmcp.CallToolParams{
		Name:      "scan_code",
		Arguments: map[string]any{"code": "MODIFY ZFOO FROM ls.", "verbosity": "summary"},
	})
	if err != nil {
		t.Fatalf("scan_code: %v", err)
	}
	if res.IsError {
		t.Fatalf("scan_code error: %s", resultText(t, res))
	}
	if out := resultText(t, res); !strings.Contains(out, "[error] DisallowedWrite `ZFOO`") {
		t.Errorf("scan_code output:\n%s", out)
	}

	res, err = cs.CallTool(ctx, &sdkmcp.CallToolParams{
		Name:      "lookup_table",
		Arguments: map[string]any{"table": "znope"},
	})
	if err != nil {
		t.Fatalf("lookup_table: %v", err)
	}
	if !res.IsError {
		t.Error("unknown table should be a tool error")
	}
}
