package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/epicgrid/epicgrid/internal/realtime"
	"github.com/epicgrid/epicgrid/internal/tracker"
)

// MoveIssueTool handles the grid_move_issue MCP tool: a drag-and-drop
// move on the kanban grid, optionally carrying a version assignment
// that propagates through the moved subtree.
type MoveIssueTool struct {
	dispatcher *realtime.Dispatcher
}

// NewMoveIssueTool creates a MoveIssueTool.
func NewMoveIssueTool(d *realtime.Dispatcher) *MoveIssueTool {
	return &MoveIssueTool{dispatcher: d}
}

// Definition returns the MCP tool definition for registration.
func (t *MoveIssueTool) Definition() mcp.Tool {
	return mcp.NewTool("grid_move_issue",
		mcp.WithDescription(
			"Move an issue to a new parent on the planning grid, optionally assigning a "+
				"version at the same time. A version assignment cascades to every descendant "+
				"of the moved issue and recomputes their start/due dates from the version "+
				"timeline. Hierarchy-rule violations are applied anyway and logged, never "+
				"rejected.",
		),
		mcp.WithNumber("issue_id",
			mcp.Required(),
			mcp.Description("ID of the issue to move"),
		),
		mcp.WithNumber("new_parent_id",
			mcp.Description("ID of the new parent issue. Omit to make the issue a root."),
		),
		mcp.WithNumber("version_id",
			mcp.Description("Version to assign to the moved issue and its subtree. Omit to keep versions unchanged."),
		),
	)
}

// Handle processes the grid_move_issue tool call.
func (t *MoveIssueTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	issueID, err := issueIDArg(req, "issue_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	cmd := realtime.MoveIssue{
		IssueID:     issueID,
		NewParentID: optIssueIDArg(req, "new_parent_id"),
	}
	if v := intArg(req, "version_id", 0); v > 0 {
		vid := tracker.VersionID(v)
		cmd.VersionID = &vid
	}

	result, err := t.dispatcher.Dispatch(ctx, cmd)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(result)
}
