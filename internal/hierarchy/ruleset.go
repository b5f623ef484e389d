package hierarchy

import (
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// Config is the on-disk shape of the role → display-name mapping.
//
//	roles:
//	  epic: "エピック"
//	  feature: "フィーチャ"
//	  user_story: "ユーザストーリー"
type Config struct {
	Roles map[Role]string `yaml:"roles"`
}

// defaultNames is used for any role the config file does not override.
var defaultNames = map[Role]string{
	RoleEpic:      "Epic",
	RoleFeature:   "Feature",
	RoleUserStory: "UserStory",
	RoleTask:      "Task",
	RoleTest:      "Test",
	RoleBug:       "Bug",
}

// Ruleset binds the static rule table to a per-installation display-name
// mapping. It is constructed once at startup and reloaded explicitly —
// there is no hidden package-level cache, so staleness is impossible to
// introduce by accident.
type Ruleset struct {
	mu     sync.RWMutex
	path   string
	names  map[Role]string
	byName map[string]Role
}

// Default returns a Ruleset with the built-in English display names and
// no backing file. Reload is a no-op on it.
func Default() *Ruleset {
	rs := &Ruleset{}
	rs.install(defaultNames)
	return rs
}

// Load reads the role mapping from a YAML file. A missing file is not an
// error: the defaults apply and a later Reload picks the file up once it
// exists.
func Load(path string) (*Ruleset, error) {
	rs := &Ruleset{path: path}
	if err := rs.Reload(); err != nil {
		return nil, err
	}
	return rs, nil
}

// Reload re-reads the backing file and swaps in the new mapping
// atomically. Lookups in flight keep seeing the old mapping.
func (rs *Ruleset) Reload() error {
	if rs.path == "" {
		rs.install(defaultNames)
		return nil
	}

	data, err := os.ReadFile(rs.path)
	if err != nil {
		if os.IsNotExist(err) {
			rs.install(defaultNames)
			return nil
		}
		return fmt.Errorf("hierarchy: read config %s: %w", rs.path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("hierarchy: parse config %s: %w", rs.path, err)
	}

	names := make(map[Role]string, len(defaultNames))
	for role, name := range defaultNames {
		names[role] = name
	}
	for role, name := range cfg.Roles {
		if err := ValidateRole(role); err != nil {
			return fmt.Errorf("hierarchy: config %s: %w", rs.path, err)
		}
		if name == "" {
			return fmt.Errorf("hierarchy: config %s: empty display name for role %q", rs.path, role)
		}
		names[role] = name
	}

	// Display names must be unique: RoleFor would otherwise be ambiguous.
	seen := make(map[string]Role, len(names))
	for role, name := range names {
		if prev, dup := seen[name]; dup {
			return fmt.Errorf("hierarchy: config %s: display name %q used by both %q and %q", rs.path, name, prev, role)
		}
		seen[name] = role
	}

	rs.install(names)
	return nil
}

func (rs *Ruleset) install(names map[Role]string) {
	byName := make(map[string]Role, len(names))
	copied := make(map[Role]string, len(names))
	for role, name := range names {
		copied[role] = name
		byName[name] = role
	}

	rs.mu.Lock()
	rs.names = copied
	rs.byName = byName
	rs.mu.Unlock()
}

// DisplayName returns the configured display name for a role, or the
// role identifier itself for unknown roles.
func (rs *Ruleset) DisplayName(r Role) string {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	if name, ok := rs.names[r]; ok {
		return name
	}
	return string(r)
}

// RoleFor resolves a display name back to its role.
func (rs *Ruleset) RoleFor(displayName string) (Role, bool) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	role, ok := rs.byName[displayName]
	return role, ok
}
