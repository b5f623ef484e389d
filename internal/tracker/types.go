// Package tracker holds the domain types shared by every engine in the
// module: issues, versions, relations, and the store interfaces the
// engines consume. The concrete SQLite implementation lives in
// internal/store; engines never depend on it directly.
package tracker

import (
	"errors"
	"time"

	"github.com/epicgrid/epicgrid/internal/hierarchy"
)

// IssueID identifies an issue.
type IssueID int64

// VersionID identifies a version (release/iteration).
type VersionID int64

// ProjectID identifies a project.
type ProjectID int64

// ErrIssueNotFound is returned when an issue ID resolves to nothing.
var ErrIssueNotFound = errors.New("issue not found")

// ErrVersionNotFound is returned when a version ID resolves to nothing.
var ErrVersionNotFound = errors.New("version not found")

// Issue is a single tracker issue. ParentID is a weak reference: the
// hierarchy engines must tolerate parentage that violates the rule
// table, since invalid links are persisted (with a logged warning)
// rather than rejected.
type Issue struct {
	ID             IssueID        `json:"id"`
	ProjectID      ProjectID      `json:"project_id"`
	Role           hierarchy.Role `json:"role"`
	Subject        string         `json:"subject"`
	ParentID       *IssueID       `json:"parent_id,omitempty"`
	FixedVersionID *VersionID     `json:"fixed_version_id,omitempty"`
	StartDate      *time.Time     `json:"start_date,omitempty"`
	DueDate        *time.Time     `json:"due_date,omitempty"`
	Status         string         `json:"status"`
	Closed         bool           `json:"closed"`
	UpdatedOn      time.Time      `json:"updated_on"`
}

// Version is a release/iteration an issue can be scheduled against.
// Versions without an effective date exist but never participate in
// date derivation.
type Version struct {
	ID            VersionID  `json:"id"`
	ProjectID     ProjectID  `json:"project_id"`
	Name          string     `json:"name"`
	EffectiveDate *time.Time `json:"effective_date,omitempty"`
}

// Relation is a typed edge between two issues (blocks, precedes, ...).
type Relation struct {
	ID     int64   `json:"id"`
	FromID IssueID `json:"from_id"`
	ToID   IssueID `json:"to_id"`
	Type   string  `json:"type"`
}

// IssueMutation is one issue's pending field changes. Each Set flag
// gates its value field, so "set version to NULL" and "leave version
// alone" are distinct. UpdatedOn is always bumped by the store.
type IssueMutation struct {
	ID IssueID

	SetSubject bool
	Subject    string

	SetParent bool
	ParentID  *IssueID

	SetFixedVersion bool
	FixedVersionID  *VersionID

	SetStartDate bool
	StartDate    *time.Time

	SetDueDate bool
	DueDate    *time.Time

	SetStatus bool
	Status    string
	Closed    bool
}

// IssueStore is the persistence boundary for issues. UpdateIssues is
// atomic: either every mutation in the batch is applied or none are.
type IssueStore interface {
	FindIssue(id IssueID) (*Issue, error)
	ChildrenOf(id IssueID) ([]Issue, error)
	IssuesForProject(p ProjectID) ([]Issue, error)
	CreateIssue(is *Issue) (IssueID, error)
	UpdateIssues(muts []IssueMutation) error

	// UpdateIssueChecked applies a single mutation inside one
	// transaction, after re-reading the current row and passing it to
	// check. A non-nil check error aborts the write and is returned
	// unchanged, making check-then-apply atomic against concurrent
	// writers.
	UpdateIssueChecked(m IssueMutation, check func(current *Issue) error) (*Issue, error)

	RelationsAmong(ids []IssueID) ([]Relation, error)
}

// VersionStore is the persistence boundary for versions.
// VersionsByEffectiveDate returns only versions with a non-null
// effective date, ascending — the project's date-derivation timeline.
type VersionStore interface {
	FindVersion(id VersionID) (*Version, error)
	VersionsForProject(p ProjectID) ([]Version, error)
	VersionsByEffectiveDate(p ProjectID) ([]Version, error)
	CreateVersion(v *Version) (VersionID, error)
}

// Date normalizes a timestamp to its calendar day in UTC. Issue and
// version dates are day-granular; comparisons go through this so two
// representations of the same day always compare equal.
func Date(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SameDate reports whether two optional day-granular dates are equal.
func SameDate(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return Date(*a).Equal(Date(*b))
}
