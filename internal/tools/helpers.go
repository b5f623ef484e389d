// Package tools implements the MCP tool handlers of the planning
// server.
//
// Each tool is a struct that receives dependencies via its constructor
// (DIP) and exposes Definition() plus a Handle compatible with mcp-go's
// CallToolRequest signature. Mutating tools are thin adapters: they
// decode arguments into a realtime.Command and hand it to the single
// dispatcher; read tools call the builders directly.
package tools

import (
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/epicgrid/epicgrid/internal/tracker"
)

// intArg extracts an integer argument, returning defaultVal if the key
// is missing or not a number (JSON numbers are float64).
func intArg(req mcp.CallToolRequest, key string, defaultVal int64) int64 {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return int64(v)
}

// boolArg extracts a boolean argument.
func boolArg(req mcp.CallToolRequest, key string, defaultVal bool) bool {
	v, ok := req.GetArguments()[key].(bool)
	if !ok {
		return defaultVal
	}
	return v
}

// issueIDArg extracts a required issue ID. Zero or missing is a
// malformed request.
func issueIDArg(req mcp.CallToolRequest, key string) (tracker.IssueID, error) {
	id := intArg(req, key, 0)
	if id <= 0 {
		return 0, fmt.Errorf("'%s' is required and must be a positive issue ID", key)
	}
	return tracker.IssueID(id), nil
}

// optIssueIDArg extracts an optional issue ID; nil when absent.
func optIssueIDArg(req mcp.CallToolRequest, key string) *tracker.IssueID {
	id := intArg(req, key, 0)
	if id <= 0 {
		return nil
	}
	v := tracker.IssueID(id)
	return &v
}

// optStringArg extracts an optional string; nil when absent or empty.
func optStringArg(req mcp.CallToolRequest, key string) *string {
	v, ok := req.GetArguments()[key].(string)
	if !ok || v == "" {
		return nil
	}
	return &v
}

// jsonResult serializes a payload as an indented-JSON tool result.
func jsonResult(payload any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("serializing result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}
