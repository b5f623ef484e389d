package tools

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/epicgrid/epicgrid/internal/realtime"
	"github.com/epicgrid/epicgrid/internal/tracker"
)

// UpdateIssueTool handles the grid_update_issue MCP tool: an optimistic
// field edit reconciled against the authoritative server state. When
// the server has moved on since the caller's snapshot, the result is a
// structured conflict record instead of an applied change.
type UpdateIssueTool struct {
	dispatcher *realtime.Dispatcher
}

// NewUpdateIssueTool creates an UpdateIssueTool.
func NewUpdateIssueTool(d *realtime.Dispatcher) *UpdateIssueTool {
	return &UpdateIssueTool{dispatcher: d}
}

// Definition returns the MCP tool definition for registration.
func (t *UpdateIssueTool) Definition() mcp.Tool {
	return mcp.NewTool("grid_update_issue",
		mcp.WithDescription(
			"Apply an optimistic edit to an issue. Pass the updated_on timestamp from when "+
				"you last read the issue as 'snapshot', plus the attribute values you saw "+
				"as 'expected_*'. If the issue changed since the snapshot the edit is NOT "+
				"applied and a conflict record is returned: kind 'stale_update' when the "+
				"server timestamp is newer, 'concurrent_update' listing the diverging "+
				"fields otherwise. On conflict, re-read the issue and retry.",
		),
		mcp.WithNumber("issue_id",
			mcp.Required(),
			mcp.Description("ID of the issue to edit"),
		),
		mcp.WithString("snapshot",
			mcp.Required(),
			mcp.Description("RFC3339 updated_on timestamp from the last read of this issue"),
		),
		mcp.WithString("subject", mcp.Description("New subject")),
		mcp.WithString("start_date", mcp.Description("New start date (YYYY-MM-DD)")),
		mcp.WithString("due_date", mcp.Description("New due date (YYYY-MM-DD)")),
		mcp.WithString("status", mcp.Description("New status name")),
		mcp.WithBoolean("closed", mcp.Description("Whether the new status is a closed status")),
		mcp.WithString("expected_subject", mcp.Description("Subject as last seen")),
		mcp.WithString("expected_start_date", mcp.Description("Start date as last seen (YYYY-MM-DD)")),
		mcp.WithString("expected_due_date", mcp.Description("Due date as last seen (YYYY-MM-DD)")),
		mcp.WithString("expected_status", mcp.Description("Status as last seen")),
		mcp.WithNumber("expected_fixed_version_id", mcp.Description("Fixed version ID as last seen")),
		mcp.WithNumber("expected_parent_id", mcp.Description("Parent issue ID as last seen")),
	)
}

// Handle processes the grid_update_issue tool call.
func (t *UpdateIssueTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	issueID, err := issueIDArg(req, "issue_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	snapshotRaw := req.GetString("snapshot", "")
	snapshot, err := time.Parse(time.RFC3339Nano, snapshotRaw)
	if err != nil {
		if snapshot, err = time.Parse(time.RFC3339, snapshotRaw); err != nil {
			return mcp.NewToolResultError("'snapshot' must be an RFC3339 timestamp"), nil
		}
	}

	cmd := realtime.UpdateIssue{
		IssueID:  issueID,
		Snapshot: snapshot,
		Expected: realtime.ExpectedState{
			Subject:   optStringArg(req, "expected_subject"),
			StartDate: optStringArg(req, "expected_start_date"),
			DueDate:   optStringArg(req, "expected_due_date"),
			Status:    optStringArg(req, "expected_status"),
		},
		Set: realtime.FieldChanges{
			Subject:   optStringArg(req, "subject"),
			StartDate: optStringArg(req, "start_date"),
			DueDate:   optStringArg(req, "due_date"),
			Status:    optStringArg(req, "status"),
		},
	}
	if v := intArg(req, "expected_fixed_version_id", 0); v > 0 {
		vid := tracker.VersionID(v)
		cmd.Expected.FixedVersionID = &vid
	}
	cmd.Expected.ParentID = optIssueIDArg(req, "expected_parent_id")
	if cmd.Set.Status != nil {
		closed := boolArg(req, "closed", false)
		cmd.Set.Closed = &closed
	}

	result, err := t.dispatcher.Dispatch(ctx, cmd)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(result)
}
