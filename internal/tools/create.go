package tools

import (
	"context"
	"log"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/epicgrid/epicgrid/internal/hierarchy"
	"github.com/epicgrid/epicgrid/internal/jobs"
	"github.com/epicgrid/epicgrid/internal/tracker"
)

// CreateIssueTool handles the grid_create_issue MCP tool. Creating a
// user story also schedules background generation of its companion
// Test issue — fire-and-forget, so a generation failure never fails
// the creation.
type CreateIssueTool struct {
	issues tracker.IssueStore
	rules  *hierarchy.Ruleset
	runner *jobs.Runner
}

// NewCreateIssueTool creates a CreateIssueTool.
func NewCreateIssueTool(issues tracker.IssueStore, rules *hierarchy.Ruleset, runner *jobs.Runner) *CreateIssueTool {
	return &CreateIssueTool{issues: issues, rules: rules, runner: runner}
}

// Definition returns the MCP tool definition for registration.
func (t *CreateIssueTool) Definition() mcp.Tool {
	return mcp.NewTool("grid_create_issue",
		mcp.WithDescription(
			"Create an issue in the planning hierarchy. Roles: epic, feature, user_story, "+
				"task, test, bug. Creating a user_story automatically generates a companion "+
				"Test issue in the background. Parent pairings that violate the hierarchy "+
				"rules (epic→feature→user_story→task/test/bug, bug also directly under a "+
				"feature) are applied anyway and logged as warnings.",
		),
		mcp.WithNumber("project_id",
			mcp.Required(),
			mcp.Description("Project the issue belongs to"),
		),
		mcp.WithString("role",
			mcp.Required(),
			mcp.Description("Hierarchy role of the issue"),
			mcp.Enum("epic", "feature", "user_story", "task", "test", "bug"),
		),
		mcp.WithString("subject",
			mcp.Required(),
			mcp.Description("Issue subject. Grid columns natural-sort by it, so numeric prefixes like '10_' order as numbers."),
		),
		mcp.WithNumber("parent_id",
			mcp.Description("Parent issue ID. Omit for a root issue."),
		),
	)
}

// Handle processes the grid_create_issue tool call.
func (t *CreateIssueTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID := intArg(req, "project_id", 0)
	if projectID <= 0 {
		return mcp.NewToolResultError("'project_id' is required and must be positive"), nil
	}

	role := hierarchy.Role(req.GetString("role", ""))
	if err := hierarchy.ValidateRole(role); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	subject := strings.TrimSpace(req.GetString("subject", ""))
	if subject == "" {
		return mcp.NewToolResultError("'subject' is required"), nil
	}

	parentID := optIssueIDArg(req, "parent_id")
	if parentID != nil {
		parent, err := t.issues.FindIssue(*parentID)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if !hierarchy.ValidParent(role, parent.Role) {
			log.Printf("WARNING: hierarchy violation: creating %s under %s #%d",
				t.rules.DisplayName(role), t.rules.DisplayName(parent.Role), parent.ID)
		}
	}

	issue := &tracker.Issue{
		ProjectID: tracker.ProjectID(projectID),
		Role:      role,
		Subject:   subject,
		ParentID:  parentID,
	}
	if _, err := t.issues.CreateIssue(issue); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if role == hierarchy.RoleUserStory {
		story := *issue
		t.runner.Submit("generate-test-issue", func(ctx context.Context) error {
			return jobs.GenerateTestIssue(ctx, t.issues, &story)
		})
	}

	return jsonResult(issue)
}
