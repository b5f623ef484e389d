package grid

import (
	"sort"
	"strconv"
	"strings"

	"github.com/epicgrid/epicgrid/internal/hierarchy"
	"github.com/epicgrid/epicgrid/internal/tracker"
)

// NoVersionKey is the bucket-key segment for issues without a fixed
// version. It also appears, always last, in VersionOrder.
const NoVersionKey = "none"

// Entities partitions an issue set by role, keyed by ID. Every ID that
// appears in a bucket of Index.Buckets exists in one of these maps.
type Entities struct {
	Epics       map[tracker.IssueID]tracker.Issue `json:"epics"`
	Features    map[tracker.IssueID]tracker.Issue `json:"features"`
	UserStories map[tracker.IssueID]tracker.Issue `json:"user_stories"`
	Tasks       map[tracker.IssueID]tracker.Issue `json:"tasks"`
	Tests       map[tracker.IssueID]tracker.Issue `json:"tests"`
	Bugs        map[tracker.IssueID]tracker.Issue `json:"bugs"`
}

// Index is the grid lookup structure. Buckets maps
// "epicKey:versionKey" to ordered feature IDs and
// "epicKey:featureKey:versionKey" to ordered user-story IDs, where a
// key segment is a decimal ID or NoVersionKey. Rebuilding from the
// same issue set yields an identical Index regardless of input order.
type Index struct {
	Entities     Entities                     `json:"entities"`
	EpicOrder    []tracker.IssueID            `json:"epic_order"`
	VersionOrder []string                     `json:"version_order"`
	Buckets      map[string][]tracker.IssueID `json:"index"`
}

// Build constructs the grid index for an issue set. versions supplies
// names and effective dates for ordering; issues referencing versions
// missing from it still get buckets, ordered by bare ID.
func Build(issues []tracker.Issue, versions []tracker.Version) *Index {
	idx := &Index{
		Entities: Entities{
			Epics:       map[tracker.IssueID]tracker.Issue{},
			Features:    map[tracker.IssueID]tracker.Issue{},
			UserStories: map[tracker.IssueID]tracker.Issue{},
			Tasks:       map[tracker.IssueID]tracker.Issue{},
			Tests:       map[tracker.IssueID]tracker.Issue{},
			Bugs:        map[tracker.IssueID]tracker.Issue{},
		},
		Buckets: map[string][]tracker.IssueID{},
	}

	byID := make(map[tracker.IssueID]tracker.Issue, len(issues))
	for _, is := range issues {
		byID[is.ID] = is
		switch is.Role {
		case hierarchy.RoleEpic:
			idx.Entities.Epics[is.ID] = is
		case hierarchy.RoleFeature:
			idx.Entities.Features[is.ID] = is
		case hierarchy.RoleUserStory:
			idx.Entities.UserStories[is.ID] = is
		case hierarchy.RoleTask:
			idx.Entities.Tasks[is.ID] = is
		case hierarchy.RoleTest:
			idx.Entities.Tests[is.ID] = is
		case hierarchy.RoleBug:
			idx.Entities.Bugs[is.ID] = is
		}
	}

	versionKeys := map[string]bool{}

	for _, f := range idx.Entities.Features {
		vk := versionKey(f.FixedVersionID)
		versionKeys[vk] = true
		key := issueKey(f.ParentID) + ":" + vk
		idx.Buckets[key] = append(idx.Buckets[key], f.ID)
	}

	for _, us := range idx.Entities.UserStories {
		vk := versionKey(us.FixedVersionID)
		versionKeys[vk] = true
		epicKey := NoVersionKey
		if us.ParentID != nil {
			if feature, ok := byID[*us.ParentID]; ok {
				epicKey = issueKey(feature.ParentID)
			}
		}
		key := epicKey + ":" + issueKey(us.ParentID) + ":" + vk
		idx.Buckets[key] = append(idx.Buckets[key], us.ID)
	}

	// Natural-sort every bucket by subject so rebuild order never
	// depends on input order. Subject ties fall back to ID.
	for key, ids := range idx.Buckets {
		sort.Slice(ids, func(i, j int) bool {
			a, b := byID[ids[i]], byID[ids[j]]
			if c := Compare(a.Subject, b.Subject); c != 0 {
				return c < 0
			}
			return ids[i] < ids[j]
		})
		idx.Buckets[key] = ids
	}

	idx.EpicOrder = epicOrder(idx.Entities.Epics)
	idx.VersionOrder = versionOrder(versionKeys, versions)

	return idx
}

func epicOrder(epics map[tracker.IssueID]tracker.Issue) []tracker.IssueID {
	order := make([]tracker.IssueID, 0, len(epics))
	for id := range epics {
		order = append(order, id)
	}
	sort.Slice(order, func(i, j int) bool {
		a, b := epics[order[i]], epics[order[j]]
		if c := Compare(a.Subject, b.Subject); c != 0 {
			return c < 0
		}
		return order[i] < order[j]
	})
	return order
}

// versionOrder sorts the referenced version keys by effective date where
// present, then natural name order, with NoVersionKey always last.
func versionOrder(keys map[string]bool, versions []tracker.Version) []string {
	byKey := make(map[string]tracker.Version, len(versions))
	for _, v := range versions {
		byKey[strconv.FormatInt(int64(v.ID), 10)] = v
	}

	order := make([]string, 0, len(keys))
	hasNone := false
	for k := range keys {
		if k == NoVersionKey {
			hasNone = true
			continue
		}
		order = append(order, k)
	}

	sort.Slice(order, func(i, j int) bool {
		a, aok := byKey[order[i]]
		b, bok := byKey[order[j]]
		switch {
		case aok && bok:
			ad, bd := a.EffectiveDate, b.EffectiveDate
			if ad != nil && bd != nil && !ad.Equal(*bd) {
				return ad.Before(*bd)
			}
			if (ad != nil) != (bd != nil) {
				return ad != nil // dated versions ahead of undated ones
			}
			if c := Compare(a.Name, b.Name); c != 0 {
				return c < 0
			}
			return a.ID < b.ID
		case aok:
			return true
		case bok:
			return false
		default:
			return strings.Compare(order[i], order[j]) < 0
		}
	})

	if hasNone {
		order = append(order, NoVersionKey)
	}
	return order
}

func versionKey(id *tracker.VersionID) string {
	if id == nil {
		return NoVersionKey
	}
	return strconv.FormatInt(int64(*id), 10)
}

func issueKey(id *tracker.IssueID) string {
	if id == nil {
		return NoVersionKey
	}
	return strconv.FormatInt(int64(*id), 10)
}
