package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/epicgrid/epicgrid/internal/tracker"
)

// GetIssueTool handles the grid_get_issue MCP tool. The returned
// updated_on timestamp is the snapshot callers pass back to
// grid_update_issue for conflict detection.
type GetIssueTool struct {
	issues tracker.IssueStore
}

// NewGetIssueTool creates a GetIssueTool.
func NewGetIssueTool(issues tracker.IssueStore) *GetIssueTool {
	return &GetIssueTool{issues: issues}
}

// Definition returns the MCP tool definition for registration.
func (t *GetIssueTool) Definition() mcp.Tool {
	return mcp.NewTool("grid_get_issue",
		mcp.WithDescription(
			"Fetch a single issue with its direct children. The issue's updated_on "+
				"timestamp is the snapshot to pass to grid_update_issue when editing "+
				"optimistically.",
		),
		mcp.WithNumber("issue_id",
			mcp.Required(),
			mcp.Description("ID of the issue to fetch"),
		),
	)
}

// Handle processes the grid_get_issue tool call.
func (t *GetIssueTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	issueID, err := issueIDArg(req, "issue_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	issue, err := t.issues.FindIssue(issueID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	children, err := t.issues.ChildrenOf(issueID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return jsonResult(struct {
		Issue    *tracker.Issue  `json:"issue"`
		Children []tracker.Issue `json:"children"`
	}{Issue: issue, Children: children})
}
