package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/epicgrid/epicgrid/internal/grid"
	"github.com/epicgrid/epicgrid/internal/tracker"
)

// GridIndexTool handles the grid_index MCP tool: the denormalized
// entity-map + bucket-index structure the kanban frontend renders from
// without further queries.
type GridIndexTool struct {
	issues   tracker.IssueStore
	versions tracker.VersionStore
}

// NewGridIndexTool creates a GridIndexTool.
func NewGridIndexTool(issues tracker.IssueStore, versions tracker.VersionStore) *GridIndexTool {
	return &GridIndexTool{issues: issues, versions: versions}
}

// Definition returns the MCP tool definition for registration.
func (t *GridIndexTool) Definition() mcp.Tool {
	return mcp.NewTool("grid_index",
		mcp.WithDescription(
			"Build the kanban grid index for a project: entity maps partitioned by role "+
				"plus an index of 'epicId:versionId' → ordered feature IDs and "+
				"'epicId:featureId:versionId' → ordered user-story IDs. 'none' stands for "+
				"missing version or parent. Bucket order is a natural sort on subjects; "+
				"rebuilding from the same data always yields the identical structure.",
		),
		mcp.WithNumber("project_id",
			mcp.Required(),
			mcp.Description("Project to index"),
		),
	)
}

// Handle processes the grid_index tool call.
func (t *GridIndexTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
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

	return jsonResult(grid.Build(issues, versions))
}
