package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/epicgrid/epicgrid/internal/realtime"
	"github.com/epicgrid/epicgrid/internal/tracker"
)

// AssignVersionTool handles the grid_assign_version MCP tool: assigning
// a version to an issue and propagating it through the whole subtree.
type AssignVersionTool struct {
	dispatcher *realtime.Dispatcher
}

// NewAssignVersionTool creates an AssignVersionTool.
func NewAssignVersionTool(d *realtime.Dispatcher) *AssignVersionTool {
	return &AssignVersionTool{dispatcher: d}
}

// Definition returns the MCP tool definition for registration.
func (t *AssignVersionTool) Definition() mcp.Tool {
	return mcp.NewTool("grid_assign_version",
		mcp.WithDescription(
			"Assign a version to an issue and every descendant. The whole subtree adopts "+
				"the version's date window: due date = the version's effective date, start "+
				"date = the effective date of the immediately preceding version on the "+
				"project timeline. The update is atomic — either every issue in the subtree "+
				"changes or none do. Returns the affected issue IDs.",
		),
		mcp.WithNumber("issue_id",
			mcp.Required(),
			mcp.Description("Root issue of the subtree to reassign"),
		),
		mcp.WithNumber("version_id",
			mcp.Required(),
			mcp.Description("Version to assign"),
		),
	)
}

// Handle processes the grid_assign_version tool call.
func (t *AssignVersionTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	issueID, err := issueIDArg(req, "issue_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	versionID := intArg(req, "version_id", 0)
	if versionID <= 0 {
		return mcp.NewToolResultError("'version_id' is required and must be a positive version ID"), nil
	}

	result, err := t.dispatcher.Dispatch(ctx, realtime.AssignVersion{
		IssueID:   issueID,
		VersionID: tracker.VersionID(versionID),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(result)
}
