// Package hierarchy defines the four-level issue hierarchy
// (Epic → Feature → UserStory → Task/Test/Bug) and the rules that
// govern which parent/child pairings are allowed.
//
// The rule table is static; what varies per installation is only the
// mapping from roles to display names (see Ruleset). This keeps all
// structural decisions in one auditable place instead of scattering
// string comparisons against configurable tracker names.
package hierarchy

import "fmt"

// Role identifies an issue's position in the planning hierarchy.
type Role string

const (
	RoleEpic      Role = "epic"
	RoleFeature   Role = "feature"
	RoleUserStory Role = "user_story"
	RoleTask      Role = "task"
	RoleTest      Role = "test"
	RoleBug       Role = "bug"
)

// validRoles is the set of recognized roles.
var validRoles = map[Role]bool{
	RoleEpic:      true,
	RoleFeature:   true,
	RoleUserStory: true,
	RoleTask:      true,
	RoleTest:      true,
	RoleBug:       true,
}

// ValidateRole returns an error if the role is not recognized.
func ValidateRole(r Role) error {
	if !validRoles[r] {
		return fmt.Errorf("invalid role %q: must be one of: epic, feature, user_story, task, test, bug", r)
	}
	return nil
}

// Roles lists all roles in hierarchy order, top to bottom.
var Roles = []Role{RoleEpic, RoleFeature, RoleUserStory, RoleTask, RoleTest, RoleBug}

// LeafDepth is the depth assigned to leaf-level roles and, deliberately,
// to unknown roles. Treating an unrecognized role as a leaf means a
// misconfigured tracker name degrades to "no children allowed" instead
// of breaking every lookup, at the cost of hiding the misconfiguration.
const LeafDepth = 4

// rule describes one row of the static hierarchy rule table.
type rule struct {
	depth    int
	parents  []Role
	children []Role
}

// rules is the static hierarchy rule table. Bug is the only role with
// two allowed parents: it can hang off a UserStory or directly off a
// Feature (a defect found before stories were broken out).
var rules = map[Role]rule{
	RoleEpic: {
		depth:    1,
		children: []Role{RoleFeature},
	},
	RoleFeature: {
		depth:    2,
		parents:  []Role{RoleEpic},
		children: []Role{RoleUserStory, RoleBug},
	},
	RoleUserStory: {
		depth:    3,
		parents:  []Role{RoleFeature},
		children: []Role{RoleTask, RoleTest, RoleBug},
	},
	RoleTask: {depth: LeafDepth, parents: []Role{RoleUserStory}},
	RoleTest: {depth: LeafDepth, parents: []Role{RoleUserStory}},
	RoleBug:  {depth: LeafDepth, parents: []Role{RoleUserStory, RoleFeature}},
}

// Depth returns the role's level in the hierarchy (Epic=1 … leaves=4).
// Unknown roles report LeafDepth.
func Depth(r Role) int {
	if rl, ok := rules[r]; ok {
		return rl.depth
	}
	return LeafDepth
}

// AllowedParents returns the roles that may parent r. Epic, the root
// role, and unknown roles return an empty list.
func AllowedParents(r Role) []Role {
	rl, ok := rules[r]
	if !ok {
		return nil
	}
	return append([]Role(nil), rl.parents...)
}

// AllowedChildren returns the roles that r may parent. Leaf roles and
// unknown roles return an empty list.
func AllowedChildren(r Role) []Role {
	rl, ok := rules[r]
	if !ok {
		return nil
	}
	return append([]Role(nil), rl.children...)
}

// ValidParent reports whether parent may be the direct parent of child.
// It never errors: unknown or empty roles simply report false.
func ValidParent(child, parent Role) bool {
	rl, ok := rules[child]
	if !ok {
		return false
	}
	for _, p := range rl.parents {
		if p == parent {
			return true
		}
	}
	return false
}

// ValidLink reports whether an issue with role child and the given
// parent role is hierarchy-valid. A nil parent (root issue) is always
// valid for any known role.
func ValidLink(child Role, parent *Role) bool {
	if parent == nil {
		return validRoles[child]
	}
	return ValidParent(child, *parent)
}
