package realtime

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/epicgrid/epicgrid/internal/tracker"
)

// Command is the sum type of client mutations. Every transport decodes
// into one of these and hands it to Dispatcher.Dispatch — there is
// exactly one handler per mutation semantics, not one per transport.
type Command interface {
	commandName() string
}

// MoveIssue reparents an issue (a drag-and-drop move on the grid) and
// optionally assigns a version, which then propagates through the
// moved issue's subtree.
type MoveIssue struct {
	IssueID     tracker.IssueID    `json:"issue_id"`
	NewParentID *tracker.IssueID   `json:"new_parent_id,omitempty"`
	VersionID   *tracker.VersionID `json:"version_id,omitempty"`
}

func (MoveIssue) commandName() string { return "move_issue" }

// AssignVersion assigns a version to an issue and its whole subtree.
type AssignVersion struct {
	IssueID   tracker.IssueID   `json:"issue_id"`
	VersionID tracker.VersionID `json:"version_id"`
}

func (AssignVersion) commandName() string { return "assign_version" }

// ExpectedState is the client's snapshot of the watched attributes at
// edit time. Omitted fields are not checked. Dates use "2006-01-02".
type ExpectedState struct {
	Subject        *string            `json:"subject,omitempty"`
	StartDate      *string            `json:"start_date,omitempty"`
	DueDate        *string            `json:"due_date,omitempty"`
	Status         *string            `json:"status,omitempty"`
	FixedVersionID *tracker.VersionID `json:"fixed_version_id,omitempty"`
	ParentID       *tracker.IssueID   `json:"parent_id,omitempty"`
}

// FieldChanges is the client's requested new values. Omitted fields are
// left untouched.
type FieldChanges struct {
	Subject   *string `json:"subject,omitempty"`
	StartDate *string `json:"start_date,omitempty"`
	DueDate   *string `json:"due_date,omitempty"`
	Status    *string `json:"status,omitempty"`
	Closed    *bool   `json:"closed,omitempty"`
}

// UpdateIssue is an optimistic field edit: applied only if the server
// state still matches the client's snapshot, otherwise answered with a
// conflict record.
type UpdateIssue struct {
	IssueID  tracker.IssueID `json:"issue_id"`
	Snapshot time.Time       `json:"snapshot"`
	Expected ExpectedState   `json:"expected"`
	Set      FieldChanges    `json:"set"`
}

func (UpdateIssue) commandName() string { return "update_issue" }

// envelope is the wire shape every transport uses: a discriminator plus
// the command body.
type envelope struct {
	Command string          `json:"command"`
	Body    json.RawMessage `json:"body"`
}

// DecodeCommand deserializes one wire frame into a Command.
func DecodeCommand(data []byte) (Command, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("realtime: decode command envelope: %w", err)
	}

	switch env.Command {
	case "move_issue":
		var cmd MoveIssue
		if err := json.Unmarshal(env.Body, &cmd); err != nil {
			return nil, fmt.Errorf("realtime: decode move_issue: %w", err)
		}
		return cmd, nil
	case "assign_version":
		var cmd AssignVersion
		if err := json.Unmarshal(env.Body, &cmd); err != nil {
			return nil, fmt.Errorf("realtime: decode assign_version: %w", err)
		}
		return cmd, nil
	case "update_issue":
		var cmd UpdateIssue
		if err := json.Unmarshal(env.Body, &cmd); err != nil {
			return nil, fmt.Errorf("realtime: decode update_issue: %w", err)
		}
		return cmd, nil
	default:
		return nil, fmt.Errorf("realtime: unknown command %q", env.Command)
	}
}

// IssuesChanged is broadcast on ChannelIssues after any applied
// mutation, listing every issue the mutation touched.
type IssuesChanged struct {
	Source   string            `json:"source"` // command name
	IssueIDs []tracker.IssueID `json:"issue_ids"`
}
