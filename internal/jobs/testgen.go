package jobs

import (
	"context"
	"fmt"

	"github.com/epicgrid/epicgrid/internal/hierarchy"
	"github.com/epicgrid/epicgrid/internal/tracker"
)

// GenerateTestIssue creates the companion Test issue for a freshly
// created user story: same project, version and date window, parented
// under the story. Called through Runner.Submit so a failure never
// fails the story creation itself.
func GenerateTestIssue(_ context.Context, issues tracker.IssueStore, story *tracker.Issue) error {
	if story.Role != hierarchy.RoleUserStory {
		return fmt.Errorf("generate test issue: issue %d is a %s, not a user story", story.ID, story.Role)
	}

	storyID := story.ID
	test := &tracker.Issue{
		ProjectID:      story.ProjectID,
		Role:           hierarchy.RoleTest,
		Subject:        "Test: " + story.Subject,
		ParentID:       &storyID,
		FixedVersionID: story.FixedVersionID,
		StartDate:      story.StartDate,
		DueDate:        story.DueDate,
	}
	if _, err := issues.CreateIssue(test); err != nil {
		return fmt.Errorf("generate test issue for story %d: %w", story.ID, err)
	}
	return nil
}
