package realtime

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/epicgrid/epicgrid/internal/conflict"
	"github.com/epicgrid/epicgrid/internal/hierarchy"
	"github.com/epicgrid/epicgrid/internal/tracker"
	"github.com/epicgrid/epicgrid/internal/versioning"
)

// Dispatcher executes Commands against the stores and engines and
// broadcasts the outcome. It is the single mutation handler: MCP tools
// and realtime transports both feed it.
type Dispatcher struct {
	issues      tracker.IssueStore
	engine      *versioning.Engine
	rules       *hierarchy.Ruleset
	broadcaster Broadcaster
}

// NewDispatcher wires a dispatcher.
func NewDispatcher(issues tracker.IssueStore, engine *versioning.Engine, rules *hierarchy.Ruleset, b Broadcaster) *Dispatcher {
	return &Dispatcher{issues: issues, engine: engine, rules: rules, broadcaster: b}
}

// Dispatch runs one command. The returned payload is what the
// transport serializes back to the caller: a versioning.Result, an
// updated issue, or a *conflict.Conflict (which is an outcome, not an
// error).
func (d *Dispatcher) Dispatch(ctx context.Context, cmd Command) (any, error) {
	switch c := cmd.(type) {
	case MoveIssue:
		return d.moveIssue(ctx, c)
	case AssignVersion:
		return d.assignVersion(ctx, c)
	case UpdateIssue:
		return d.updateIssue(c)
	default:
		return nil, fmt.Errorf("realtime: no handler for command %T", cmd)
	}
}

func (d *Dispatcher) moveIssue(ctx context.Context, cmd MoveIssue) (any, error) {
	issue, err := d.issues.FindIssue(cmd.IssueID)
	if err != nil {
		return nil, err
	}

	// Hierarchy check is permissive-but-observable: an invalid pairing
	// is logged and applied anyway, so a user edit is never blocked.
	if cmd.NewParentID != nil {
		parent, err := d.issues.FindIssue(*cmd.NewParentID)
		if err != nil {
			return nil, fmt.Errorf("move issue %d: parent: %w", cmd.IssueID, err)
		}
		if !hierarchy.ValidParent(issue.Role, parent.Role) {
			log.Printf("WARNING: hierarchy violation: %s #%d under %s #%d",
				d.rules.DisplayName(issue.Role), issue.ID,
				d.rules.DisplayName(parent.Role), parent.ID)
		}
	}

	if err := d.issues.UpdateIssues([]tracker.IssueMutation{{
		ID:        cmd.IssueID,
		SetParent: true,
		ParentID:  cmd.NewParentID,
	}}); err != nil {
		return nil, err
	}

	affected := []tracker.IssueID{cmd.IssueID}
	var result any = &versioning.Result{RootID: cmd.IssueID, AffectedIssueIDs: affected}

	if cmd.VersionID != nil {
		res, err := d.engine.Propagate(ctx, cmd.IssueID, *cmd.VersionID)
		if err != nil {
			return nil, err
		}
		affected = res.AffectedIssueIDs
		result = res
	}

	d.broadcaster.Broadcast(ChannelIssues, IssuesChanged{Source: cmd.commandName(), IssueIDs: affected})
	return result, nil
}

func (d *Dispatcher) assignVersion(ctx context.Context, cmd AssignVersion) (any, error) {
	res, err := d.engine.Propagate(ctx, cmd.IssueID, cmd.VersionID)
	if err != nil {
		return nil, err
	}
	d.broadcaster.Broadcast(ChannelIssues, IssuesChanged{Source: cmd.commandName(), IssueIDs: res.AffectedIssueIDs})
	return res, nil
}

func (d *Dispatcher) updateIssue(cmd UpdateIssue) (any, error) {
	expected, err := watchedFields(cmd.Expected)
	if err != nil {
		return nil, fmt.Errorf("update issue %d: %w", cmd.IssueID, err)
	}
	mutation, err := fieldMutation(cmd.IssueID, cmd.Set)
	if err != nil {
		return nil, fmt.Errorf("update issue %d: %w", cmd.IssueID, err)
	}

	updated, err := d.issues.UpdateIssueChecked(mutation, func(current *tracker.Issue) error {
		if c := conflict.Check(current, cmd.Snapshot, expected); c != nil {
			return &conflict.DetectedError{Conflict: c}
		}
		return nil
	})

	var detected *conflict.DetectedError
	if errors.As(err, &detected) {
		d.broadcaster.Broadcast(ChannelConflicts, detected.Conflict)
		return detected.Conflict, nil
	}
	if err != nil {
		return nil, err
	}

	d.broadcaster.Broadcast(ChannelIssues, IssuesChanged{Source: cmd.commandName(), IssueIDs: []tracker.IssueID{cmd.IssueID}})
	return updated, nil
}

func watchedFields(e ExpectedState) (conflict.WatchedFields, error) {
	var w conflict.WatchedFields

	if e.Subject != nil {
		w.CheckSubject, w.Subject = true, *e.Subject
	}
	if e.StartDate != nil {
		d, err := parseDay(*e.StartDate)
		if err != nil {
			return w, fmt.Errorf("expected start_date: %w", err)
		}
		w.CheckStartDate, w.StartDate = true, d
	}
	if e.DueDate != nil {
		d, err := parseDay(*e.DueDate)
		if err != nil {
			return w, fmt.Errorf("expected due_date: %w", err)
		}
		w.CheckDueDate, w.DueDate = true, d
	}
	if e.Status != nil {
		w.CheckStatus, w.Status = true, *e.Status
	}
	if e.FixedVersionID != nil {
		w.CheckFixedVersion, w.FixedVersionID = true, e.FixedVersionID
	}
	if e.ParentID != nil {
		w.CheckParent, w.ParentID = true, e.ParentID
	}
	return w, nil
}

func fieldMutation(id tracker.IssueID, set FieldChanges) (tracker.IssueMutation, error) {
	m := tracker.IssueMutation{ID: id}

	if set.Subject != nil {
		m.SetSubject, m.Subject = true, *set.Subject
	}
	if set.StartDate != nil {
		d, err := parseDay(*set.StartDate)
		if err != nil {
			return m, fmt.Errorf("start_date: %w", err)
		}
		m.SetStartDate, m.StartDate = true, d
	}
	if set.DueDate != nil {
		d, err := parseDay(*set.DueDate)
		if err != nil {
			return m, fmt.Errorf("due_date: %w", err)
		}
		m.SetDueDate, m.DueDate = true, d
	}
	if set.Status != nil {
		m.SetStatus, m.Status = true, *set.Status
		if set.Closed != nil {
			m.Closed = *set.Closed
		}
	}
	return m, nil
}

func parseDay(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q (want YYYY-MM-DD)", s)
	}
	return &t, nil
}
