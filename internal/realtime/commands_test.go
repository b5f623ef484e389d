package realtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/epicgrid/epicgrid/internal/tracker"
)

func TestDecodeCommand_MoveIssue(t *testing.T) {
	frame := []byte(`{"command":"move_issue","body":{"issue_id":3,"new_parent_id":2,"version_id":7}}`)

	cmd, err := DecodeCommand(frame)
	require.NoError(t, err)

	move := cmd.(MoveIssue)
	assert.Equal(t, tracker.IssueID(3), move.IssueID)
	require.NotNil(t, move.NewParentID)
	assert.Equal(t, tracker.IssueID(2), *move.NewParentID)
	require.NotNil(t, move.VersionID)
	assert.Equal(t, tracker.VersionID(7), *move.VersionID)
}

func TestDecodeCommand_MoveIssueOmittedFields(t *testing.T) {
	frame := []byte(`{"command":"move_issue","body":{"issue_id":3}}`)

	cmd, err := DecodeCommand(frame)
	require.NoError(t, err)

	move := cmd.(MoveIssue)
	assert.Nil(t, move.NewParentID, "omitted parent means detach, not zero")
	assert.Nil(t, move.VersionID)
}

func TestDecodeCommand_AssignVersion(t *testing.T) {
	frame := []byte(`{"command":"assign_version","body":{"issue_id":1,"version_id":8}}`)

	cmd, err := DecodeCommand(frame)
	require.NoError(t, err)
	assert.Equal(t, AssignVersion{IssueID: 1, VersionID: 8}, cmd)
}

func TestDecodeCommand_UpdateIssue(t *testing.T) {
	frame := []byte(`{"command":"update_issue","body":{
		"issue_id":3,
		"snapshot":"2025-02-01T09:00:00Z",
		"expected":{"subject":"as-user","fixed_version_id":7},
		"set":{"subject":"as-admin","start_date":"2025-02-10","closed":false}
	}}`)

	cmd, err := DecodeCommand(frame)
	require.NoError(t, err)

	up := cmd.(UpdateIssue)
	assert.Equal(t, tracker.IssueID(3), up.IssueID)
	assert.Equal(t, time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC), up.Snapshot.UTC())
	require.NotNil(t, up.Expected.Subject)
	assert.Equal(t, "as-user", *up.Expected.Subject)
	require.NotNil(t, up.Expected.FixedVersionID)
	assert.Equal(t, tracker.VersionID(7), *up.Expected.FixedVersionID)
	assert.Nil(t, up.Expected.Status, "unchecked fields stay nil")
	require.NotNil(t, up.Set.StartDate)
	assert.Equal(t, "2025-02-10", *up.Set.StartDate)
	require.NotNil(t, up.Set.Closed)
	assert.False(t, *up.Set.Closed)
}

func TestDecodeCommand_UnknownCommand(t *testing.T) {
	_, err := DecodeCommand([]byte(`{"command":"drop_tables","body":{}}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "drop_tables")
}

func TestDecodeCommand_MalformedEnvelope(t *testing.T) {
	_, err := DecodeCommand([]byte(`{`))
	require.Error(t, err)
}

func TestDecodeCommand_MalformedBody(t *testing.T) {
	_, err := DecodeCommand([]byte(`{"command":"move_issue","body":{"issue_id":"three"}}`))
	require.Error(t, err)
}
