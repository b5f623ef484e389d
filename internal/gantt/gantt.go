// Package gantt serializes an issue set into the task/link graph a
// Gantt chart renders: per-issue bars with derived durations and status
// classes, synthetic per-version summary rows, and dependency links.
package gantt

import (
	"fmt"
	"sort"
	"time"

	"github.com/epicgrid/epicgrid/internal/tracker"
)

// CSS classes attached to task bars.
const (
	ClassClosed  = "gantt-closed"
	ClassOverdue = "gantt-overdue"
)

// maxAncestorDepth bounds parent-chain walks when building sort keys.
// Chains longer than this indicate corrupt parent links; the walk stops
// and the issue sorts by whatever prefix was collected.
const maxAncestorDepth = 10

// Task is one row of the chart. Version summary rows carry a
// "version-<id>" ID and parent the issues scheduled against them.
type Task struct {
	ID        string     `json:"id"`
	Text      string     `json:"text"`
	StartDate *time.Time `json:"start_date,omitempty"`
	DueDate   *time.Time `json:"due_date,omitempty"`
	Duration  int        `json:"duration"`
	Parent    string     `json:"parent,omitempty"`
	CSSClass  string     `json:"css_class,omitempty"`
	Summary   bool       `json:"summary,omitempty"`
}

// Link is one dependency edge between two chart rows.
type Link struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
	Type   string `json:"type"`
}

// Chart is the full serialized task/link graph.
type Chart struct {
	Tasks []Task `json:"tasks"`
	Links []Link `json:"links"`
}

// Builder derives Gantt charts from issue sets. Today is injectable so
// overdue classification is testable; the zero value uses real time.
type Builder struct {
	Today func() time.Time
}

func (b *Builder) today() time.Time {
	if b.Today != nil {
		return tracker.Date(b.Today())
	}
	return tracker.Date(time.Now())
}

// Build produces the chart for an issue set. versions supplies names
// and effective dates for the summary rows; relations become links when
// both endpoints are in the issue set.
func (b *Builder) Build(issues []tracker.Issue, versions []tracker.Version, relations []tracker.Relation) *Chart {
	byID := make(map[tracker.IssueID]tracker.Issue, len(issues))
	for _, is := range issues {
		byID[is.ID] = is
	}
	versionsByID := make(map[tracker.VersionID]tracker.Version, len(versions))
	for _, v := range versions {
		versionsByID[v.ID] = v
	}

	ordered := sortByAncestorPath(issues, byID)

	chart := &Chart{}
	summaries := b.versionSummaries(ordered, versionsByID)

	// Summary rows first so the chart renders each version block as a
	// group header above its members.
	for _, s := range summaries {
		chart.Tasks = append(chart.Tasks, s)
	}

	today := b.today()
	for _, is := range ordered {
		task := Task{
			ID:       issueTaskID(is.ID),
			Text:     is.Subject,
			Duration: 1,
		}

		start, due := is.StartDate, is.DueDate
		if due == nil && start != nil {
			due = start // zero-length bar
		}
		if start == nil && due != nil {
			start = due
		}
		if start != nil && due != nil {
			s, d := tracker.Date(*start), tracker.Date(*due)
			task.StartDate, task.DueDate = &s, &d
			task.Duration = durationDays(s, d)
		}

		switch {
		case is.Closed:
			task.CSSClass = ClassClosed
		case task.DueDate != nil && task.DueDate.Before(today):
			task.CSSClass = ClassOverdue
		}

		task.Parent = b.parentFor(is, byID)
		chart.Tasks = append(chart.Tasks, task)
	}

	chart.Links = buildLinks(relations, byID)
	return chart
}

// parentFor picks a task's parent row. An issue whose parent is in the
// set stays under it; a root-level issue carrying a version reparents
// to that version's summary row. When several ancestors carry versions
// the nearest in-set parent wins, so summary attachment happens only at
// the top of each in-set chain.
func (b *Builder) parentFor(is tracker.Issue, byID map[tracker.IssueID]tracker.Issue) string {
	if is.ParentID != nil {
		if _, ok := byID[*is.ParentID]; ok {
			return issueTaskID(*is.ParentID)
		}
	}
	if is.FixedVersionID != nil {
		return versionTaskID(*is.FixedVersionID)
	}
	return ""
}

// versionSummaries builds one synthetic row per fixed version present
// in the issue set. The bar spans from the earliest member start date
// to the version's effective date (falling back to member due dates
// when the version has none).
func (b *Builder) versionSummaries(issues []tracker.Issue, versionsByID map[tracker.VersionID]tracker.Version) []Task {
	type span struct {
		start *time.Time
		due   *time.Time
	}
	spans := map[tracker.VersionID]*span{}
	var order []tracker.VersionID

	for _, is := range issues {
		if is.FixedVersionID == nil {
			continue
		}
		vid := *is.FixedVersionID
		sp, ok := spans[vid]
		if !ok {
			sp = &span{}
			spans[vid] = sp
			order = append(order, vid)
		}
		if is.StartDate != nil {
			d := tracker.Date(*is.StartDate)
			if sp.start == nil || d.Before(*sp.start) {
				sp.start = &d
			}
		}
		if is.DueDate != nil {
			d := tracker.Date(*is.DueDate)
			if sp.due == nil || d.After(*sp.due) {
				sp.due = &d
			}
		}
	}

	tasks := make([]Task, 0, len(order))
	for _, vid := range order {
		sp := spans[vid]
		task := Task{
			ID:       versionTaskID(vid),
			Text:     fmt.Sprintf("version %d", vid),
			Duration: 1,
			Summary:  true,
		}
		if v, ok := versionsByID[vid]; ok {
			task.Text = v.Name
			if v.EffectiveDate != nil {
				d := tracker.Date(*v.EffectiveDate)
				sp.due = &d
			}
		}
		if sp.start == nil {
			sp.start = sp.due
		}
		if sp.due == nil {
			sp.due = sp.start
		}
		if sp.start != nil {
			task.StartDate, task.DueDate = sp.start, sp.due
			task.Duration = durationDays(*sp.start, *sp.due)
		}
		tasks = append(tasks, task)
	}
	return tasks
}

// sortByAncestorPath orders issues by the lexicographic comparison of
// their ancestor paths, each path element being (start date, ID). The
// result respects hierarchy and chronology at once: siblings order by
// start date, children always follow their parent.
func sortByAncestorPath(issues []tracker.Issue, byID map[tracker.IssueID]tracker.Issue) []tracker.Issue {
	type pathElem struct {
		start time.Time
		id    tracker.IssueID
	}

	pathOf := func(is tracker.Issue) []pathElem {
		var reversed []pathElem
		cur := is
		for depth := 0; depth < maxAncestorDepth; depth++ {
			start := time.Time{} // epoch for undated issues
			if cur.StartDate != nil {
				start = tracker.Date(*cur.StartDate)
			}
			reversed = append(reversed, pathElem{start: start, id: cur.ID})
			if cur.ParentID == nil {
				break
			}
			parent, ok := byID[*cur.ParentID]
			if !ok {
				break
			}
			cur = parent
		}
		// Walked child→root; flip to root→child.
		path := make([]pathElem, len(reversed))
		for i, e := range reversed {
			path[len(reversed)-1-i] = e
		}
		return path
	}

	paths := make(map[tracker.IssueID][]pathElem, len(issues))
	ordered := append([]tracker.Issue(nil), issues...)
	for _, is := range ordered {
		paths[is.ID] = pathOf(is)
	}

	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := paths[ordered[i].ID], paths[ordered[j].ID]
		for k := 0; k < len(a) && k < len(b); k++ {
			if !a[k].start.Equal(b[k].start) {
				return a[k].start.Before(b[k].start)
			}
			if a[k].id != b[k].id {
				return a[k].id < b[k].id
			}
		}
		return len(a) < len(b)
	})

	return ordered
}

func buildLinks(relations []tracker.Relation, byID map[tracker.IssueID]tracker.Issue) []Link {
	var links []Link
	for _, rel := range relations {
		if _, ok := byID[rel.FromID]; !ok {
			continue
		}
		if _, ok := byID[rel.ToID]; !ok {
			continue
		}
		links = append(links, Link{
			ID:     fmt.Sprintf("link-%d", rel.ID),
			Source: issueTaskID(rel.FromID),
			Target: issueTaskID(rel.ToID),
			Type:   rel.Type,
		})
	}
	return links
}

func issueTaskID(id tracker.IssueID) string {
	return fmt.Sprintf("issue-%d", id)
}

func versionTaskID(id tracker.VersionID) string {
	return fmt.Sprintf("version-%d", id)
}

// durationDays is the bar length in days, floored at 1 so same-day
// tasks still render.
func durationDays(start, due time.Time) int {
	days := int(due.Sub(start).Hours() / 24)
	if days < 1 {
		return 1
	}
	return days
}
