package versioning

import (
	"context"
	"errors"
	"fmt"

	"github.com/epicgrid/epicgrid/internal/tracker"
)

// MaxTraversalDepth bounds hierarchy walks. Issue parentage is a tree
// by construction, so hitting this bound means the data is corrupt —
// an error worth surfacing, not silently truncating.
const MaxTraversalDepth = 10

// ErrDepthExceeded is returned when a subtree walk runs past
// MaxTraversalDepth levels.
var ErrDepthExceeded = errors.New("hierarchy deeper than traversal bound; possible parent-link corruption")

// Result reports which issues a propagation changed, root first, in
// breadth-first order.
type Result struct {
	RootID           tracker.IssueID   `json:"root_id"`
	VersionID        tracker.VersionID `json:"version_id"`
	AffectedIssueIDs []tracker.IssueID `json:"affected_issue_ids"`
	Window           *Window           `json:"window,omitempty"`
}

// Engine cascades a version assignment from a root issue to its whole
// descendant subtree: every node adopts the new version and the date
// window derived from it. Descendants are found by parent_id
// back-references, not by hierarchy-rule validity — an invalid
// hierarchy still propagates rather than crashing.
type Engine struct {
	issues   tracker.IssueStore
	versions tracker.VersionStore
	locks    *rootLocks
}

// NewEngine creates a propagation engine over the given stores.
func NewEngine(issues tracker.IssueStore, versions tracker.VersionStore) *Engine {
	return &Engine{issues: issues, versions: versions, locks: newRootLocks()}
}

// Propagate assigns versionID to rootID and every descendant, and
// recomputes their dates from the version's window. All writes happen
// in one atomic batch: a failed write leaves every issue untouched.
//
// The subtree root is locked for the duration, so two propagations on
// the same root serialize instead of interleaving.
func (e *Engine) Propagate(ctx context.Context, rootID tracker.IssueID, versionID tracker.VersionID) (*Result, error) {
	if err := e.locks.acquire(ctx, rootID); err != nil {
		return nil, fmt.Errorf("propagate issue %d: %w", rootID, err)
	}
	defer e.locks.release(rootID)

	root, err := e.issues.FindIssue(rootID)
	if err != nil {
		return nil, fmt.Errorf("propagate issue %d: %w", rootID, err)
	}

	version, err := e.versions.FindVersion(versionID)
	if err != nil {
		return nil, fmt.Errorf("propagate issue %d: version %d: %w", rootID, versionID, err)
	}
	if version.ProjectID != root.ProjectID {
		return nil, fmt.Errorf("propagate issue %d: version %d belongs to project %d, issue to project %d",
			rootID, versionID, version.ProjectID, root.ProjectID)
	}

	timeline, err := e.versions.VersionsByEffectiveDate(root.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("propagate issue %d: load version timeline: %w", rootID, err)
	}

	// One window for the whole subtree: descendants do not re-derive
	// dates from their own prior versions.
	window, eligible := DateWindow(timeline, version)

	subtree, err := e.collectSubtree(root)
	if err != nil {
		return nil, fmt.Errorf("propagate issue %d: %w", rootID, err)
	}

	muts := make([]tracker.IssueMutation, len(subtree))
	affected := make([]tracker.IssueID, len(subtree))
	for i, issue := range subtree {
		m := tracker.IssueMutation{
			ID:              issue.ID,
			SetFixedVersion: true,
			FixedVersionID:  &versionID,
		}
		if eligible {
			start, due := window.StartDate, window.DueDate
			m.SetStartDate, m.StartDate = true, &start
			m.SetDueDate, m.DueDate = true, &due
		}
		muts[i] = m
		affected[i] = issue.ID
	}

	if err := e.issues.UpdateIssues(muts); err != nil {
		return nil, fmt.Errorf("propagate issue %d: %w", rootID, err)
	}

	res := &Result{RootID: rootID, VersionID: versionID, AffectedIssueIDs: affected}
	if eligible {
		w := window
		res.Window = &w
	}
	return res, nil
}

// collectSubtree returns root plus every descendant in breadth-first
// order, each exactly once. Depth past MaxTraversalDepth fails with
// ErrDepthExceeded.
func (e *Engine) collectSubtree(root *tracker.Issue) ([]tracker.Issue, error) {
	subtree := []tracker.Issue{*root}
	seen := map[tracker.IssueID]bool{root.ID: true}
	frontier := []tracker.IssueID{root.ID}

	for depth := 0; len(frontier) > 0; depth++ {
		if depth >= MaxTraversalDepth {
			return nil, ErrDepthExceeded
		}
		var next []tracker.IssueID
		for _, id := range frontier {
			children, err := e.issues.ChildrenOf(id)
			if err != nil {
				return nil, fmt.Errorf("children of issue %d: %w", id, err)
			}
			for _, child := range children {
				if seen[child.ID] {
					continue
				}
				seen[child.ID] = true
				subtree = append(subtree, child)
				next = append(next, child.ID)
			}
		}
		frontier = next
	}

	return subtree, nil
}
