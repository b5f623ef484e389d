package hierarchy

import "testing"

// --- ValidParent ---

func TestValidParent(t *testing.T) {
	tests := []struct {
		name   string
		child  Role
		parent Role
		want   bool
	}{
		{"feature under epic", RoleFeature, RoleEpic, true},
		{"story under feature", RoleUserStory, RoleFeature, true},
		{"task under story", RoleTask, RoleUserStory, true},
		{"test under story", RoleTest, RoleUserStory, true},
		{"bug under story", RoleBug, RoleUserStory, true},
		{"bug directly under feature", RoleBug, RoleFeature, true},
		{"task under feature", RoleTask, RoleFeature, false},
		{"task under epic", RoleTask, RoleEpic, false},
		{"story under epic", RoleUserStory, RoleEpic, false},
		{"epic under anything", RoleEpic, RoleFeature, false},
		{"feature under feature", RoleFeature, RoleFeature, false},
		{"unknown child", Role("milestone"), RoleEpic, false},
		{"unknown parent", RoleTask, Role("milestone"), false},
		{"empty child", Role(""), RoleEpic, false},
		{"empty parent", RoleTask, Role(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidParent(tt.child, tt.parent); got != tt.want {
				t.Errorf("ValidParent(%q, %q) = %v, want %v", tt.child, tt.parent, got, tt.want)
			}
		})
	}
}

// --- ValidLink ---

func TestValidLink_NilParentIsRoot(t *testing.T) {
	for _, role := range Roles {
		if !ValidLink(role, nil) {
			t.Errorf("ValidLink(%q, nil) = false, want true", role)
		}
	}
}

func TestValidLink_UnknownRoleWithNilParent(t *testing.T) {
	if ValidLink(Role("milestone"), nil) {
		t.Error("unknown role should not be a valid root")
	}
}

func TestValidLink_DelegatesToValidParent(t *testing.T) {
	parent := RoleUserStory
	if !ValidLink(RoleTask, &parent) {
		t.Error("ValidLink(task, user_story) = false, want true")
	}
	parent = RoleFeature
	if ValidLink(RoleTask, &parent) {
		t.Error("ValidLink(task, feature) = true, want false")
	}
}

// --- Depth ---

func TestDepth(t *testing.T) {
	tests := []struct {
		role Role
		want int
	}{
		{RoleEpic, 1},
		{RoleFeature, 2},
		{RoleUserStory, 3},
		{RoleTask, 4},
		{RoleTest, 4},
		{RoleBug, 4},
	}
	for _, tt := range tests {
		if got := Depth(tt.role); got != tt.want {
			t.Errorf("Depth(%q) = %d, want %d", tt.role, got, tt.want)
		}
	}
}

func TestDepth_UnknownRoleDefaultsToLeaf(t *testing.T) {
	if got := Depth(Role("milestone")); got != LeafDepth {
		t.Errorf("Depth(unknown) = %d, want %d", got, LeafDepth)
	}
}

// --- Allowed lookups ---

func TestAllowedChildren(t *testing.T) {
	got := AllowedChildren(RoleUserStory)
	want := []Role{RoleTask, RoleTest, RoleBug}
	if len(got) != len(want) {
		t.Fatalf("AllowedChildren(user_story) = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("AllowedChildren(user_story)[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestAllowedChildren_LeafAndUnknownAreEmpty(t *testing.T) {
	if got := AllowedChildren(RoleTask); len(got) != 0 {
		t.Errorf("AllowedChildren(task) = %v, want empty", got)
	}
	if got := AllowedChildren(Role("milestone")); len(got) != 0 {
		t.Errorf("AllowedChildren(unknown) = %v, want empty", got)
	}
}

func TestAllowedParents_BugHasTwo(t *testing.T) {
	got := AllowedParents(RoleBug)
	if len(got) != 2 {
		t.Fatalf("AllowedParents(bug) = %v, want two entries", got)
	}
}

func TestAllowedParents_EpicHasNone(t *testing.T) {
	if got := AllowedParents(RoleEpic); len(got) != 0 {
		t.Errorf("AllowedParents(epic) = %v, want empty", got)
	}
}

func TestAllowedParents_OnlyBugHasMoreThanOne(t *testing.T) {
	for _, role := range Roles {
		if role == RoleBug || role == RoleEpic {
			continue
		}
		if got := AllowedParents(role); len(got) != 1 {
			t.Errorf("AllowedParents(%q) has %d entries, want 1", role, len(got))
		}
	}
}

// --- Mutation safety ---

func TestAllowedLookupsReturnCopies(t *testing.T) {
	got := AllowedChildren(RoleUserStory)
	got[0] = Role("corrupted")
	again := AllowedChildren(RoleUserStory)
	if again[0] != RoleTask {
		t.Error("AllowedChildren returned a reference into the rule table")
	}
}
