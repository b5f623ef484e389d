// Package conflict reconciles optimistic client edits against the
// authoritative issue state. A conflict is a negotiated outcome, not an
// error: it is reported back to the originating client so it can
// re-fetch and retry, and is never retried automatically.
package conflict

import (
	"fmt"
	"time"

	"github.com/epicgrid/epicgrid/internal/tracker"
)

// Kind classifies why an optimistic update was rejected.
type Kind string

const (
	// KindStale means the issue was modified after the client's local
	// snapshot was taken: the edit was computed against superseded data.
	KindStale Kind = "stale_update"

	// KindConcurrent means the snapshot timestamp passed but a watched
	// attribute no longer matches what the client expected — a
	// clock-skew or partial-update race.
	KindConcurrent Kind = "concurrent_update"
)

// FieldDiff records one attribute that diverged between the client's
// expectation and the server's current state.
type FieldDiff struct {
	Field    string `json:"field"`
	Expected any    `json:"expected"`
	Actual   any    `json:"actual"`
}

// Conflict is the record broadcast to the client whose edit lost.
// Ephemeral: broadcast once, never persisted.
type Conflict struct {
	Kind            Kind            `json:"kind"`
	IssueID         tracker.IssueID `json:"issue_id"`
	ServerUpdatedOn time.Time       `json:"server_updated_on"`
	ClientSnapshot  time.Time       `json:"client_snapshot"`
	Diffs           []FieldDiff     `json:"diffs,omitempty"`
}

// DetectedError wraps a Conflict so the check-then-apply transaction in
// the store can abort on it. Callers unwrap it and hand the Conflict to
// the client; it is not a failure of the server.
type DetectedError struct {
	Conflict *Conflict
}

func (e *DetectedError) Error() string {
	return fmt.Sprintf("conflict on issue %d: %s", e.Conflict.IssueID, e.Conflict.Kind)
}

// WatchedFields enumerates the attributes an optimistic update asserts
// about. Each Check flag gates its value; a checked nil pointer asserts
// "I expect this to be unset". An explicit field set keeps the watched
// surface auditable — no reflection over arbitrary attribute names.
type WatchedFields struct {
	CheckSubject bool
	Subject      string

	CheckStartDate bool
	StartDate      *time.Time

	CheckDueDate bool
	DueDate      *time.Time

	CheckStatus bool
	Status      string

	CheckFixedVersion bool
	FixedVersionID    *tracker.VersionID

	CheckParent bool
	ParentID    *tracker.IssueID
}

// Check compares the client's expectations against the current issue.
//
// A server update newer than the client snapshot is a stale_update and
// wins regardless of field values. Otherwise every watched field is
// compared and any mismatch produces a concurrent_update listing
// exactly the diverging fields. Nil means the update may be applied.
func Check(current *tracker.Issue, snapshot time.Time, expected WatchedFields) *Conflict {
	if current.UpdatedOn.After(snapshot) {
		return &Conflict{
			Kind:            KindStale,
			IssueID:         current.ID,
			ServerUpdatedOn: current.UpdatedOn,
			ClientSnapshot:  snapshot,
			Diffs:           diffs(current, expected),
		}
	}

	if d := diffs(current, expected); len(d) > 0 {
		return &Conflict{
			Kind:            KindConcurrent,
			IssueID:         current.ID,
			ServerUpdatedOn: current.UpdatedOn,
			ClientSnapshot:  snapshot,
			Diffs:           d,
		}
	}

	return nil
}

func diffs(current *tracker.Issue, expected WatchedFields) []FieldDiff {
	var out []FieldDiff

	if expected.CheckSubject && expected.Subject != current.Subject {
		out = append(out, FieldDiff{Field: "subject", Expected: expected.Subject, Actual: current.Subject})
	}
	if expected.CheckStartDate && !tracker.SameDate(expected.StartDate, current.StartDate) {
		out = append(out, FieldDiff{Field: "start_date", Expected: dateValue(expected.StartDate), Actual: dateValue(current.StartDate)})
	}
	if expected.CheckDueDate && !tracker.SameDate(expected.DueDate, current.DueDate) {
		out = append(out, FieldDiff{Field: "due_date", Expected: dateValue(expected.DueDate), Actual: dateValue(current.DueDate)})
	}
	if expected.CheckStatus && expected.Status != current.Status {
		out = append(out, FieldDiff{Field: "status", Expected: expected.Status, Actual: current.Status})
	}
	if expected.CheckFixedVersion && !sameVersion(expected.FixedVersionID, current.FixedVersionID) {
		out = append(out, FieldDiff{Field: "fixed_version_id", Expected: idValue(expected.FixedVersionID), Actual: idValue(current.FixedVersionID)})
	}
	if expected.CheckParent && !sameIssue(expected.ParentID, current.ParentID) {
		out = append(out, FieldDiff{Field: "parent_id", Expected: issueValue(expected.ParentID), Actual: issueValue(current.ParentID)})
	}

	return out
}

func sameVersion(a, b *tracker.VersionID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func sameIssue(a, b *tracker.IssueID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func dateValue(t *time.Time) any {
	if t == nil {
		return nil
	}
	return tracker.Date(*t).Format("2006-01-02")
}

func idValue(id *tracker.VersionID) any {
	if id == nil {
		return nil
	}
	return *id
}

func issueValue(id *tracker.IssueID) any {
	if id == nil {
		return nil
	}
	return *id
}
