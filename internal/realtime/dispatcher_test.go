package realtime

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/epicgrid/epicgrid/internal/conflict"
	"github.com/epicgrid/epicgrid/internal/hierarchy"
	"github.com/epicgrid/epicgrid/internal/tracker"
	"github.com/epicgrid/epicgrid/internal/versioning"
)

type memStore struct {
	issues   map[tracker.IssueID]*tracker.Issue
	versions map[tracker.VersionID]*tracker.Version
}

func newMemStore() *memStore {
	return &memStore{
		issues:   map[tracker.IssueID]*tracker.Issue{},
		versions: map[tracker.VersionID]*tracker.Version{},
	}
}

func (s *memStore) add(is tracker.Issue) {
	c := is
	s.issues[is.ID] = &c
}

func (s *memStore) FindIssue(id tracker.IssueID) (*tracker.Issue, error) {
	is, ok := s.issues[id]
	if !ok {
		return nil, fmt.Errorf("issue %d: %w", id, tracker.ErrIssueNotFound)
	}
	c := *is
	return &c, nil
}

func (s *memStore) ChildrenOf(id tracker.IssueID) ([]tracker.Issue, error) {
	var out []tracker.Issue
	for _, is := range s.issues {
		if is.ParentID != nil && *is.ParentID == id {
			out = append(out, *is)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) IssuesForProject(p tracker.ProjectID) ([]tracker.Issue, error) {
	var out []tracker.Issue
	for _, is := range s.issues {
		if is.ProjectID == p {
			out = append(out, *is)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) CreateIssue(is *tracker.Issue) (tracker.IssueID, error) {
	id := tracker.IssueID(len(s.issues) + 1)
	is.ID = id
	s.add(*is)
	return id, nil
}

func (s *memStore) UpdateIssues(muts []tracker.IssueMutation) error {
	for _, m := range muts {
		is, ok := s.issues[m.ID]
		if !ok {
			return fmt.Errorf("issue %d: %w", m.ID, tracker.ErrIssueNotFound)
		}
		apply(is, m)
	}
	return nil
}

func (s *memStore) UpdateIssueChecked(m tracker.IssueMutation, check func(*tracker.Issue) error) (*tracker.Issue, error) {
	is, ok := s.issues[m.ID]
	if !ok {
		return nil, fmt.Errorf("issue %d: %w", m.ID, tracker.ErrIssueNotFound)
	}
	if check != nil {
		if err := check(is); err != nil {
			return nil, err
		}
	}
	apply(is, m)
	c := *is
	return &c, nil
}

func apply(is *tracker.Issue, m tracker.IssueMutation) {
	if m.SetSubject {
		is.Subject = m.Subject
	}
	if m.SetParent {
		is.ParentID = m.ParentID
	}
	if m.SetFixedVersion {
		is.FixedVersionID = m.FixedVersionID
	}
	if m.SetStartDate {
		is.StartDate = m.StartDate
	}
	if m.SetDueDate {
		is.DueDate = m.DueDate
	}
	if m.SetStatus {
		is.Status = m.Status
		is.Closed = m.Closed
	}
	is.UpdatedOn = time.Now().UTC()
}

func (s *memStore) RelationsAmong([]tracker.IssueID) ([]tracker.Relation, error) { return nil, nil }

func (s *memStore) FindVersion(id tracker.VersionID) (*tracker.Version, error) {
	v, ok := s.versions[id]
	if !ok {
		return nil, fmt.Errorf("version %d: %w", id, tracker.ErrVersionNotFound)
	}
	c := *v
	return &c, nil
}

func (s *memStore) VersionsForProject(p tracker.ProjectID) ([]tracker.Version, error) {
	return s.VersionsByEffectiveDate(p)
}

func (s *memStore) VersionsByEffectiveDate(p tracker.ProjectID) ([]tracker.Version, error) {
	var out []tracker.Version
	for _, v := range s.versions {
		if v.ProjectID == p && v.EffectiveDate != nil {
			out = append(out, *v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EffectiveDate.Before(*out[j].EffectiveDate) })
	return out, nil
}

func (s *memStore) CreateVersion(v *tracker.Version) (tracker.VersionID, error) {
	id := tracker.VersionID(len(s.versions) + 1)
	v.ID = id
	c := *v
	s.versions[id] = &c
	return id, nil
}

var _ tracker.IssueStore = (*memStore)(nil)
var _ tracker.VersionStore = (*memStore)(nil)

func iid(id tracker.IssueID) *tracker.IssueID     { return &id }
func vid(id tracker.VersionID) *tracker.VersionID { return &id }
func str(s string) *string                        { return &s }

func date(s string) *time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return &t
}

func newDispatcher(s *memStore) (*Dispatcher, *Hub) {
	hub := NewHub()
	engine := versioning.NewEngine(s, s)
	return NewDispatcher(s, engine, hierarchy.Default(), hub), hub
}

func seed(s *memStore) {
	now := time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)
	s.add(tracker.Issue{ID: 1, ProjectID: 1, Role: hierarchy.RoleEpic, Subject: "auth", UpdatedOn: now})
	s.add(tracker.Issue{ID: 2, ProjectID: 1, Role: hierarchy.RoleFeature, Subject: "login", ParentID: iid(1), UpdatedOn: now})
	s.add(tracker.Issue{ID: 3, ProjectID: 1, Role: hierarchy.RoleUserStory, Subject: "as-user", ParentID: iid(2), Status: "new", UpdatedOn: now})
	s.versions[7] = &tracker.Version{ID: 7, ProjectID: 1, Name: "2025-Q1", EffectiveDate: date("2025-03-31")}
	s.versions[8] = &tracker.Version{ID: 8, ProjectID: 1, Name: "2025-Q2", EffectiveDate: date("2025-06-30")}
}

func TestDispatch_MoveIssueReparents(t *testing.T) {
	s := newMemStore()
	seed(s)
	d, hub := newDispatcher(s)
	events, cancel := hub.Subscribe(ChannelIssues)
	defer cancel()

	_, err := d.Dispatch(context.Background(), MoveIssue{IssueID: 3, NewParentID: iid(2)})
	require.NoError(t, err)
	require.NotNil(t, s.issues[3].ParentID)
	assert.Equal(t, tracker.IssueID(2), *s.issues[3].ParentID)

	require.Len(t, events, 1)
	msg := <-events
	changed := msg.Payload.(IssuesChanged)
	assert.Equal(t, "move_issue", changed.Source)
	assert.Equal(t, []tracker.IssueID{3}, changed.IssueIDs)
}

func TestDispatch_MoveIssueAppliesDespiteHierarchyViolation(t *testing.T) {
	s := newMemStore()
	seed(s)
	d, _ := newDispatcher(s)

	// A user story directly under an epic violates the rule table but
	// must still be applied.
	_, err := d.Dispatch(context.Background(), MoveIssue{IssueID: 3, NewParentID: iid(1)})
	require.NoError(t, err)
	assert.Equal(t, tracker.IssueID(1), *s.issues[3].ParentID)
}

func TestDispatch_MoveIssueDetachesWithNilParent(t *testing.T) {
	s := newMemStore()
	seed(s)
	d, _ := newDispatcher(s)

	_, err := d.Dispatch(context.Background(), MoveIssue{IssueID: 2})
	require.NoError(t, err)
	assert.Nil(t, s.issues[2].ParentID)
}

func TestDispatch_MoveIssueWithVersionPropagates(t *testing.T) {
	s := newMemStore()
	seed(s)
	d, hub := newDispatcher(s)
	events, cancel := hub.Subscribe(ChannelIssues)
	defer cancel()

	res, err := d.Dispatch(context.Background(), MoveIssue{IssueID: 2, NewParentID: iid(1), VersionID: vid(8)})
	require.NoError(t, err)

	result := res.(*versioning.Result)
	assert.Equal(t, []tracker.IssueID{2, 3}, result.AffectedIssueIDs)
	assert.Equal(t, tracker.VersionID(8), *s.issues[3].FixedVersionID, "version reaches the moved issue's subtree")
	assert.True(t, tracker.SameDate(s.issues[3].DueDate, date("2025-06-30")))

	require.Len(t, events, 1)
	changed := (<-events).Payload.(IssuesChanged)
	assert.Equal(t, []tracker.IssueID{2, 3}, changed.IssueIDs)
}

func TestDispatch_MoveIssueUnknownTargets(t *testing.T) {
	s := newMemStore()
	seed(s)
	d, _ := newDispatcher(s)

	_, err := d.Dispatch(context.Background(), MoveIssue{IssueID: 99})
	assert.ErrorIs(t, err, tracker.ErrIssueNotFound)

	_, err = d.Dispatch(context.Background(), MoveIssue{IssueID: 3, NewParentID: iid(99)})
	assert.ErrorIs(t, err, tracker.ErrIssueNotFound)
}

func TestDispatch_AssignVersion(t *testing.T) {
	s := newMemStore()
	seed(s)
	d, hub := newDispatcher(s)
	events, cancel := hub.Subscribe(ChannelIssues)
	defer cancel()

	res, err := d.Dispatch(context.Background(), AssignVersion{IssueID: 1, VersionID: 7})
	require.NoError(t, err)

	result := res.(*versioning.Result)
	assert.Equal(t, []tracker.IssueID{1, 2, 3}, result.AffectedIssueIDs)
	for _, id := range result.AffectedIssueIDs {
		assert.Equal(t, tracker.VersionID(7), *s.issues[id].FixedVersionID)
	}

	require.Len(t, events, 1)
	changed := (<-events).Payload.(IssuesChanged)
	assert.Equal(t, "assign_version", changed.Source)
}

func TestDispatch_UpdateIssueApplied(t *testing.T) {
	s := newMemStore()
	seed(s)
	d, hub := newDispatcher(s)
	events, cancel := hub.Subscribe(ChannelIssues)
	defer cancel()

	snapshot := s.issues[3].UpdatedOn
	res, err := d.Dispatch(context.Background(), UpdateIssue{
		IssueID:  3,
		Snapshot: snapshot,
		Expected: ExpectedState{Subject: str("as-user"), Status: str("new")},
		Set:      FieldChanges{Subject: str("as-admin"), StartDate: str("2025-02-10")},
	})
	require.NoError(t, err)

	updated := res.(*tracker.Issue)
	assert.Equal(t, "as-admin", updated.Subject)
	assert.True(t, tracker.SameDate(updated.StartDate, date("2025-02-10")))
	assert.Equal(t, "as-admin", s.issues[3].Subject)
	require.Len(t, events, 1)
}

func TestDispatch_UpdateIssueStaleConflict(t *testing.T) {
	s := newMemStore()
	seed(s)
	d, hub := newDispatcher(s)
	conflicts, cancel := hub.Subscribe(ChannelConflicts)
	defer cancel()
	issues, cancel2 := hub.Subscribe(ChannelIssues)
	defer cancel2()

	stale := s.issues[3].UpdatedOn.Add(-time.Minute)
	res, err := d.Dispatch(context.Background(), UpdateIssue{
		IssueID:  3,
		Snapshot: stale,
		Set:      FieldChanges{Subject: str("as-admin")},
	})
	require.NoError(t, err, "a conflict is an outcome, not an error")

	c := res.(*conflict.Conflict)
	assert.Equal(t, conflict.KindStale, c.Kind)
	assert.Equal(t, tracker.IssueID(3), c.IssueID)

	assert.Equal(t, "as-user", s.issues[3].Subject, "losing edit must not be applied")
	require.Len(t, conflicts, 1)
	assert.Empty(t, issues, "no change event for a rejected edit")
}

func TestDispatch_UpdateIssueConcurrentConflict(t *testing.T) {
	s := newMemStore()
	seed(s)
	d, _ := newDispatcher(s)

	res, err := d.Dispatch(context.Background(), UpdateIssue{
		IssueID:  3,
		Snapshot: s.issues[3].UpdatedOn,
		Expected: ExpectedState{Subject: str("something else")},
		Set:      FieldChanges{Status: str("closed")},
	})
	require.NoError(t, err)

	c := res.(*conflict.Conflict)
	assert.Equal(t, conflict.KindConcurrent, c.Kind)
	require.Len(t, c.Diffs, 1)
	assert.Equal(t, "subject", c.Diffs[0].Field)
	assert.Equal(t, "new", s.issues[3].Status)
}

func TestDispatch_UpdateIssueMalformedDate(t *testing.T) {
	s := newMemStore()
	seed(s)
	d, _ := newDispatcher(s)

	_, err := d.Dispatch(context.Background(), UpdateIssue{
		IssueID:  3,
		Snapshot: s.issues[3].UpdatedOn,
		Set:      FieldChanges{StartDate: str("02/10/2025")},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "update issue 3")
}

func TestDispatch_UnknownCommand(t *testing.T) {
	s := newMemStore()
	d, _ := newDispatcher(s)

	type rogue struct{ Command }
	_, err := d.Dispatch(context.Background(), rogue{})
	require.Error(t, err)
}
