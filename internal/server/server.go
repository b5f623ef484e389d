// Package server wires all components and creates the MCP server
// instance.
//
// This is the composition root: it creates concrete implementations
// (SQLite store, hierarchy ruleset, propagation engine, hub) and
// injects them into the tools that depend on abstractions. No business
// logic lives here — only wiring.
package server

import (
	"context"
	"fmt"
	"log"

	"github.com/mark3labs/mcp-go/server"

	"github.com/epicgrid/epicgrid/internal/hierarchy"
	"github.com/epicgrid/epicgrid/internal/jobs"
	"github.com/epicgrid/epicgrid/internal/realtime"
	"github.com/epicgrid/epicgrid/internal/store"
	"github.com/epicgrid/epicgrid/internal/tools"
	"github.com/epicgrid/epicgrid/internal/versioning"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Options configures server construction.
type Options struct {
	// DBPath is the SQLite database file. Empty uses the default under
	// the user's home directory.
	DBPath string
	// HierarchyConfig is the optional YAML file mapping roles to
	// display names. Changes to it are picked up while running.
	HierarchyConfig string
}

// New creates and configures the MCP server with all tools registered.
//
// The returned cleanup function closes the store and drains pending
// background jobs; it must be called on shutdown (typically via defer)
// and is always non-nil.
func New(ctx context.Context, opts Options) (*server.MCPServer, func(), error) {
	cfg := store.DefaultConfig()
	if opts.DBPath != "" {
		cfg.Path = opts.DBPath
	}
	st, err := store.New(cfg)
	if err != nil {
		return nil, noop, fmt.Errorf("opening store: %w", err)
	}

	var rules *hierarchy.Ruleset
	if opts.HierarchyConfig != "" {
		rules, err = hierarchy.Load(opts.HierarchyConfig)
		if err != nil {
			st.Close()
			return nil, noop, fmt.Errorf("loading hierarchy config: %w", err)
		}
		if err := rules.Watch(ctx); err != nil {
			// Editing the config then requires a restart; not fatal.
			log.Printf("WARNING: hierarchy config watch disabled: %v", err)
		}
	} else {
		rules = hierarchy.Default()
	}

	hub := realtime.NewHub()
	engine := versioning.NewEngine(st, st)
	dispatcher := realtime.NewDispatcher(st, engine, rules, hub)
	runner := jobs.NewRunner()

	s := server.NewMCPServer(
		"epicgrid",
		Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	moveTool := tools.NewMoveIssueTool(dispatcher)
	s.AddTool(moveTool.Definition(), moveTool.Handle)

	assignTool := tools.NewAssignVersionTool(dispatcher)
	s.AddTool(assignTool.Definition(), assignTool.Handle)

	updateTool := tools.NewUpdateIssueTool(dispatcher)
	s.AddTool(updateTool.Definition(), updateTool.Handle)

	createTool := tools.NewCreateIssueTool(st, rules, runner)
	s.AddTool(createTool.Definition(), createTool.Handle)

	getTool := tools.NewGetIssueTool(st)
	s.AddTool(getTool.Definition(), getTool.Handle)

	versionTool := tools.NewCreateVersionTool(st)
	s.AddTool(versionTool.Definition(), versionTool.Handle)

	indexTool := tools.NewGridIndexTool(st, st)
	s.AddTool(indexTool.Definition(), indexTool.Handle)

	ganttTool := tools.NewGanttTool(st, st)
	s.AddTool(ganttTool.Definition(), ganttTool.Handle)

	hierarchyTool := tools.NewHierarchyTool(st, rules)
	s.AddTool(hierarchyTool.Definition(), hierarchyTool.Handle)

	cleanup := func() {
		runner.Wait()
		if err := st.Close(); err != nil {
			log.Printf("WARNING: store close: %v", err)
		}
	}
	return s, cleanup, nil
}

// noop is the cleanup returned when construction fails partway.
func noop() {}

// serverInstructions tells the AI client how to drive the planning
// grid effectively.
func serverInstructions() string {
	return `You have access to epicgrid, a planning server that manages an
Epic → Feature → UserStory → Task/Test/Bug hierarchy over projects and
versions.

## Core concepts

- Issues form a 4-level hierarchy: epics contain features, features
  contain user stories, user stories contain tasks/tests/bugs. Bugs may
  also sit directly under a feature.
- A version is a release with an optional effective (release) date.
  Assigning a version to an issue cascades to every descendant and
  derives their schedule: due date = the version's effective date,
  start date = the previous version's effective date on the project
  timeline.
- The kanban grid (grid_index) is organized as Epic rows × Version
  columns with features and user stories in the cells.

## Editing safely

Always fetch an issue (grid_get_issue) before editing it, and pass its
updated_on back as 'snapshot' to grid_update_issue together with the
attribute values you saw as expected_*. If someone else changed the
issue in the meantime you get a conflict record instead of an applied
edit:
- 'stale_update': the issue changed after your snapshot — re-fetch and
  redo your edit on current data.
- 'concurrent_update': a specific field no longer matches; the record
  lists exactly which. Re-fetch and retry.
Never retry a conflicted edit blindly.

## Moving and scheduling

- grid_move_issue reparents an issue (drag-and-drop on the grid); give
  version_id to drop it into a version column, which reschedules the
  whole subtree.
- grid_assign_version reschedules a subtree without moving it.
- Both return the full list of affected issue IDs. Versions without an
  effective date can be assigned but never change dates.

## Hierarchy rules

Rule violations (e.g. a task directly under an epic) are NOT rejected:
they are saved and logged. Use grid_hierarchy to audit a project for
violations and fix them with grid_move_issue.

## Reading

- grid_index: the grid structure for rendering or bulk reasoning.
- grid_gantt: schedule view with durations, overdue/closed markers and
  version summary rows.`
}
