package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/epicgrid/epicgrid/internal/hierarchy"
	"github.com/epicgrid/epicgrid/internal/tracker"
)

// HierarchyTool handles the grid_hierarchy MCP tool: it reports the
// rule table with configured display names and, for a given project,
// every issue whose current parentage violates the rules.
type HierarchyTool struct {
	issues tracker.IssueStore
	rules  *hierarchy.Ruleset
}

// NewHierarchyTool creates a HierarchyTool.
func NewHierarchyTool(issues tracker.IssueStore, rules *hierarchy.Ruleset) *HierarchyTool {
	return &HierarchyTool{issues: issues, rules: rules}
}

// roleRule is one row of the reported rule table.
type roleRule struct {
	Role            hierarchy.Role   `json:"role"`
	DisplayName     string           `json:"display_name"`
	Depth           int              `json:"depth"`
	AllowedParents  []hierarchy.Role `json:"allowed_parents"`
	AllowedChildren []hierarchy.Role `json:"allowed_children"`
}

// violation is one issue with hierarchy-invalid parentage.
type violation struct {
	IssueID    tracker.IssueID `json:"issue_id"`
	Subject    string          `json:"subject"`
	Role       hierarchy.Role  `json:"role"`
	ParentID   tracker.IssueID `json:"parent_id"`
	ParentRole hierarchy.Role  `json:"parent_role"`
}

type hierarchyReport struct {
	Rules      []roleRule  `json:"rules"`
	Violations []violation `json:"violations"`
}

// Definition returns the MCP tool definition for registration.
func (t *HierarchyTool) Definition() mcp.Tool {
	return mcp.NewTool("grid_hierarchy",
		mcp.WithDescription(
			"Report the hierarchy rule table (allowed parents/children and depth per "+
				"role, with configured display names) and list every issue in a project "+
				"whose current parent violates the rules. Violations are informational: "+
				"they are persisted with a logged warning, never rejected.",
		),
		mcp.WithNumber("project_id",
			mcp.Required(),
			mcp.Description("Project to audit"),
		),
	)
}

// Handle processes the grid_hierarchy tool call.
func (t *HierarchyTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID := intArg(req, "project_id", 0)
	if projectID <= 0 {
		return mcp.NewToolResultError("'project_id' is required and must be positive"), nil
	}

	issues, err := t.issues.IssuesForProject(tracker.ProjectID(projectID))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	report := hierarchyReport{Violations: []violation{}}
	for _, role := range hierarchy.Roles {
		report.Rules = append(report.Rules, roleRule{
			Role:            role,
			DisplayName:     t.rules.DisplayName(role),
			Depth:           hierarchy.Depth(role),
			AllowedParents:  hierarchy.AllowedParents(role),
			AllowedChildren: hierarchy.AllowedChildren(role),
		})
	}

	byID := make(map[tracker.IssueID]tracker.Issue, len(issues))
	for _, is := range issues {
		byID[is.ID] = is
	}
	for _, is := range issues {
		if is.ParentID == nil {
			continue
		}
		parent, ok := byID[*is.ParentID]
		if !ok {
			continue // parent outside the project; nothing to judge
		}
		if !hierarchy.ValidParent(is.Role, parent.Role) {
			report.Violations = append(report.Violations, violation{
				IssueID:    is.ID,
				Subject:    is.Subject,
				Role:       is.Role,
				ParentID:   parent.ID,
				ParentRole: parent.Role,
			})
		}
	}

	return jsonResult(report)
}
