// Package versioning derives issue schedule dates from a project's
// version timeline and propagates version changes through issue
// subtrees.
package versioning

import (
	"time"

	"github.com/epicgrid/epicgrid/internal/tracker"
)

// Window is a derived {start, due} date pair.
type Window struct {
	StartDate time.Time `json:"start_date"`
	DueDate   time.Time `json:"due_date"`
}

// DateWindow computes the schedule window implied by assigning target.
//
// The due date is the target version's effective date. The start date is
// the effective date of the timeline version immediately preceding it —
// the latest effective date strictly earlier than the target's. With no
// predecessor the window collapses to a zero-length initial release.
//
// timeline must hold the project's versions with non-null effective
// dates in ascending order (tracker.VersionStore.VersionsByEffectiveDate).
// Returns ok=false if target is nil or has no effective date; callers
// must then leave the issue's dates untouched.
func DateWindow(timeline []tracker.Version, target *tracker.Version) (Window, bool) {
	if target == nil || target.EffectiveDate == nil {
		return Window{}, false
	}

	due := tracker.Date(*target.EffectiveDate)
	start := due
	for _, v := range timeline {
		if v.EffectiveDate == nil {
			continue
		}
		d := tracker.Date(*v.EffectiveDate)
		// Strictly earlier: versions sharing the target's effective
		// date are not predecessors.
		if d.Before(due) {
			start = d
		} else {
			break
		}
	}

	return Window{StartDate: start, DueDate: due}, true
}
