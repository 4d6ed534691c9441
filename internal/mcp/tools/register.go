package tools

import (
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Register adds the tablescan tools to an SDK server.
func Register(s *sdkmcp.Server, scanCode *ScanCodeHandler, lookupTable *LookupTableHandler) {
	sdkmcp.AddTool(s, &sdkmcp.Tool{
		Name:        "scan_code",
		Description: "Scan an ABAP snippet for usages of legacy tables listed in the table mapping. Returns each usage with its kind (DirectRead or DisallowedWrite), severity, position and replacement table. Pass session_id to collapse issues already reported.",
	}, WrapHandler[ScanCodeParams](scanCode))

	sdkmcp.AddTool(s, &sdkmcp.Tool{
		Name:        "lookup_table",
		Description: "Look up a legacy table in the table mapping and return its replacement. Set programs=true to list the programs recorded as using it.",
	}, WrapHandler[LookupTableParams](lookupTable))
}
