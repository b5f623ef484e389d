package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/epicgrid/epicgrid/internal/gantt"
	"github.com/epicgrid/epicgrid/internal/tracker"
)

// GanttTool handles the grid_gantt MCP tool: the Gantt task/link graph
// for a project.
type GanttTool struct {
	issues   tracker.IssueStore
	versions tracker.VersionStore
	builder  *gantt.Builder
}

// NewGanttTool creates a GanttTool.
func NewGanttTool(issues tracker.IssueStore, versions tracker.VersionStore) *GanttTool {
	return &GanttTool{issues: issues, versions: versions, builder: &gantt.Builder{}}
}

// Definition returns the MCP tool definition for registration.
func (t *GanttTool) Definition() mcp.Tool {
	return mcp.NewTool("grid_gantt",
		mcp.WithDescription(
			"Build the Gantt chart data for a project: one task per issue with derived "+
				"duration (at least 1 day) and status class (closed/overdue), one summary "+
				"row per version parenting its root-level issues, and links for relations "+
				"between charted issues. Tasks are ordered by ancestor-path start dates, so "+
				"the layout respects hierarchy and chronology at once.",
		),
		mcp.WithNumber("project_id",
			mcp.Required(),
			mcp.Description("Project to chart"),
		),
	)
}

// Handle processes the grid_gantt tool call.
func (t *GanttTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID := intArg(req, "project_id", 0)
	if projectID <= 0 {
		return mcp.NewToolResultError("'project_id' is required and must be positive"), nil
	}

	issues, err := t.issues.IssuesForProject(tracker.ProjectID(projectID))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	versions, err := t.versions.VersionsForProject(tracker.ProjectID(projectID))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	ids := make([]tracker.IssueID, len(issues))
	for i, is := range issues {
		ids[i] = is.ID
	}
	relations, err := t.issues.RelationsAmong(ids)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return jsonResult(t.builder.Build(issues, versions, relations))
}
