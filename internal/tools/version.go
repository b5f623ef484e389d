package tools

import (
	"context"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/epicgrid/epicgrid/internal/tracker"
)

// CreateVersionTool handles the grid_create_version MCP tool.
type CreateVersionTool struct {
	versions tracker.VersionStore
}

// NewCreateVersionTool creates a CreateVersionTool.
func NewCreateVersionTool(versions tracker.VersionStore) *CreateVersionTool {
	return &CreateVersionTool{versions: versions}
}

// Definition returns the MCP tool definition for registration.
func (t *CreateVersionTool) Definition() mcp.Tool {
	return mcp.NewTool("grid_create_version",
		mcp.WithDescription(
			"Create a version (release/iteration) in a project. Versions with an "+
				"effective date form the project timeline that drives start/due date "+
				"derivation; a version without one can hold issues but never drives dates.",
		),
		mcp.WithNumber("project_id",
			mcp.Required(),
			mcp.Description("Project the version belongs to"),
		),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Version name, e.g. 'v1.2' or '2025-Q3'"),
		),
		mcp.WithString("effective_date",
			mcp.Description("Release date (YYYY-MM-DD). Omit for an undated version."),
		),
	)
}

// Handle processes the grid_create_version tool call.
func (t *CreateVersionTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID := intArg(req, "project_id", 0)
	if projectID <= 0 {
		return mcp.NewToolResultError("'project_id' is required and must be positive"), nil
	}

	name := strings.TrimSpace(req.GetString("name", ""))
	if name == "" {
		return mcp.NewToolResultError("'name' is required"), nil
	}

	version := &tracker.Version{
		ProjectID: tracker.ProjectID(projectID),
		Name:      name,
	}
	if raw := req.GetString("effective_date", ""); raw != "" {
		d, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return mcp.NewToolResultError("'effective_date' must be YYYY-MM-DD"), nil
		}
		version.EffectiveDate = &d
	}

	if _, err := t.versions.CreateVersion(version); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(version)
}
