// Package store implements the SQLite-backed issue and version stores.
//
// It uses modernc.org/sqlite through database/sql with WAL mode and
// idempotent migrations. The storeHooks indirection exists for tests:
// failure injection at the statement level is how the all-or-nothing
// guarantee of UpdateIssues is verified.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/epicgrid/epicgrid/internal/hierarchy"
	"github.com/epicgrid/epicgrid/internal/tracker"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

const (
	dateFormat = "2006-01-02"
	timeFormat = time.RFC3339Nano
)

// Config holds store configuration.
type Config struct {
	// Path is the SQLite database file. The parent directory is
	// created if needed. Empty means an in-memory database.
	Path string
}

// DefaultConfig stores the database under the user's home directory.
func DefaultConfig() Config {
	home, _ := os.UserHomeDir()
	return Config{Path: filepath.Join(home, ".epicgrid", "epicgrid.db")}
}

// Store is the SQLite persistence layer. It implements both
// tracker.IssueStore and tracker.VersionStore.
type Store struct {
	db    *sql.DB
	hooks storeHooks
}

var (
	_ tracker.IssueStore   = (*Store)(nil)
	_ tracker.VersionStore = (*Store)(nil)
)

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

type storeHooks struct {
	exec    func(db execer, query string, args ...any) (sql.Result, error)
	beginTx func(db *sql.DB) (*sql.Tx, error)
	commit  func(tx *sql.Tx) error
}

func (s *Store) execHook(db execer, query string, args ...any) (sql.Result, error) {
	if s.hooks.exec != nil {
		return s.hooks.exec(db, query, args...)
	}
	return db.Exec(query, args...)
}

func (s *Store) beginTxHook() (*sql.Tx, error) {
	if s.hooks.beginTx != nil {
		return s.hooks.beginTx(s.db)
	}
	return s.db.Begin()
}

func (s *Store) commitHook(tx *sql.Tx) error {
	if s.hooks.commit != nil {
		return s.hooks.commit(tx)
	}
	return tx.Commit()
}

// New opens (creating if necessary) the database at cfg.Path and runs
// migrations.
func New(cfg Config) (*Store, error) {
	path := cfg.Path
	if path == "" {
		path = ":memory:"
	} else {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, fmt.Errorf("store: create data dir: %w", err)
		}
	}

	db, err := openDB("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return nil, fmt.Errorf("store: pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("store: migration: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS versions (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			project_id     INTEGER NOT NULL,
			name           TEXT    NOT NULL,
			effective_date TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_versions_project   ON versions(project_id);
		CREATE INDEX IF NOT EXISTS idx_versions_effective ON versions(project_id, effective_date);

		CREATE TABLE IF NOT EXISTS issues (
			id               INTEGER PRIMARY KEY AUTOINCREMENT,
			project_id       INTEGER NOT NULL,
			role             TEXT    NOT NULL,
			subject          TEXT    NOT NULL,
			parent_id        INTEGER REFERENCES issues(id),
			fixed_version_id INTEGER REFERENCES versions(id),
			start_date       TEXT,
			due_date         TEXT,
			status           TEXT    NOT NULL DEFAULT 'new',
			closed           INTEGER NOT NULL DEFAULT 0,
			updated_on       TEXT    NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_issues_project ON issues(project_id);
		CREATE INDEX IF NOT EXISTS idx_issues_parent  ON issues(parent_id);
		CREATE INDEX IF NOT EXISTS idx_issues_version ON issues(fixed_version_id);

		CREATE TABLE IF NOT EXISTS issue_relations (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			from_id       INTEGER NOT NULL REFERENCES issues(id) ON DELETE CASCADE,
			to_id         INTEGER NOT NULL REFERENCES issues(id) ON DELETE CASCADE,
			relation_type TEXT    NOT NULL DEFAULT 'relates'
		);

		CREATE INDEX IF NOT EXISTS idx_relations_from ON issue_relations(from_id);
		CREATE INDEX IF NOT EXISTS idx_relations_to   ON issue_relations(to_id);
	`
	_, err := s.execHook(s.db, schema)
	return err
}

// ─── Issues ──────────────────────────────────────────────────────────────────

const issueColumns = `id, project_id, role, subject, parent_id, fixed_version_id,
	start_date, due_date, status, closed, updated_on`

type rowLike interface {
	Scan(dest ...any) error
}

func scanIssue(row rowLike) (*tracker.Issue, error) {
	var (
		is        tracker.Issue
		role      string
		parentID  sql.NullInt64
		versionID sql.NullInt64
		startDate sql.NullString
		dueDate   sql.NullString
		updatedOn string
	)
	err := row.Scan(&is.ID, &is.ProjectID, &role, &is.Subject, &parentID,
		&versionID, &startDate, &dueDate, &is.Status, &is.Closed, &updatedOn)
	if err != nil {
		return nil, err
	}

	is.Role = hierarchy.Role(role)
	if parentID.Valid {
		id := tracker.IssueID(parentID.Int64)
		is.ParentID = &id
	}
	if versionID.Valid {
		id := tracker.VersionID(versionID.Int64)
		is.FixedVersionID = &id
	}
	if is.StartDate, err = parseDate(startDate); err != nil {
		return nil, fmt.Errorf("issue %d start_date: %w", is.ID, err)
	}
	if is.DueDate, err = parseDate(dueDate); err != nil {
		return nil, fmt.Errorf("issue %d due_date: %w", is.ID, err)
	}
	if is.UpdatedOn, err = time.Parse(timeFormat, updatedOn); err != nil {
		return nil, fmt.Errorf("issue %d updated_on: %w", is.ID, err)
	}
	return &is, nil
}

// FindIssue retrieves an issue by ID.
func (s *Store) FindIssue(id tracker.IssueID) (*tracker.Issue, error) {
	row := s.db.QueryRow(`SELECT `+issueColumns+` FROM issues WHERE id = ?`, id)
	is, err := scanIssue(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("issue %d: %w", id, tracker.ErrIssueNotFound)
	}
	return is, err
}

// ChildrenOf returns the direct children of an issue, ordered by ID.
func (s *Store) ChildrenOf(id tracker.IssueID) ([]tracker.Issue, error) {
	rows, err := s.db.Query(`SELECT `+issueColumns+` FROM issues WHERE parent_id = ? ORDER BY id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectIssues(rows)
}

// IssuesForProject returns every issue in a project, ordered by ID.
func (s *Store) IssuesForProject(p tracker.ProjectID) ([]tracker.Issue, error) {
	rows, err := s.db.Query(`SELECT `+issueColumns+` FROM issues WHERE project_id = ? ORDER BY id`, p)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectIssues(rows)
}

func collectIssues(rows *sql.Rows) ([]tracker.Issue, error) {
	var issues []tracker.Issue
	for rows.Next() {
		is, err := scanIssue(rows)
		if err != nil {
			return nil, err
		}
		issues = append(issues, *is)
	}
	return issues, rows.Err()
}

// CreateIssue inserts a new issue and returns its assigned ID.
func (s *Store) CreateIssue(is *tracker.Issue) (tracker.IssueID, error) {
	if is.Status == "" {
		is.Status = "new"
	}
	now := time.Now().UTC()
	res, err := s.execHook(s.db, `
		INSERT INTO issues (project_id, role, subject, parent_id, fixed_version_id,
			start_date, due_date, status, closed, updated_on)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		is.ProjectID, string(is.Role), is.Subject,
		issueIDArg(is.ParentID), versionIDArg(is.FixedVersionID),
		dateArg(is.StartDate), dateArg(is.DueDate),
		is.Status, is.Closed, now.Format(timeFormat),
	)
	if err != nil {
		return 0, fmt.Errorf("store: create issue: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("store: create issue: %w", err)
	}
	is.ID = tracker.IssueID(id)
	is.UpdatedOn = now
	return is.ID, nil
}

// UpdateIssues applies a batch of mutations in one transaction. Any
// failure rolls the whole batch back: either every issue updates or
// none do.
func (s *Store) UpdateIssues(muts []tracker.IssueMutation) error {
	if len(muts) == 0 {
		return nil
	}

	tx, err := s.beginTxHook()
	if err != nil {
		return fmt.Errorf("store: begin update: %w", err)
	}

	for _, m := range muts {
		if err := s.applyMutation(tx, m); err != nil {
			tx.Rollback()
			return fmt.Errorf("store: update issue %d: %w", m.ID, err)
		}
	}

	if err := s.commitHook(tx); err != nil {
		tx.Rollback()
		return fmt.Errorf("store: commit update: %w", err)
	}
	return nil
}

// UpdateIssueChecked re-reads the issue inside a transaction, passes it
// to check, and applies the mutation only if check returns nil. The
// check error, if any, is returned unchanged with nothing written.
func (s *Store) UpdateIssueChecked(m tracker.IssueMutation, check func(current *tracker.Issue) error) (*tracker.Issue, error) {
	tx, err := s.beginTxHook()
	if err != nil {
		return nil, fmt.Errorf("store: begin checked update: %w", err)
	}

	row := tx.QueryRow(`SELECT `+issueColumns+` FROM issues WHERE id = ?`, m.ID)
	current, err := scanIssue(row)
	if errors.Is(err, sql.ErrNoRows) {
		tx.Rollback()
		return nil, fmt.Errorf("issue %d: %w", m.ID, tracker.ErrIssueNotFound)
	}
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	if check != nil {
		if err := check(current); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	if err := s.applyMutation(tx, m); err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("store: update issue %d: %w", m.ID, err)
	}
	if err := s.commitHook(tx); err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("store: commit checked update: %w", err)
	}

	return s.FindIssue(m.ID)
}

// applyMutation builds and executes the UPDATE for one mutation.
// updated_on is always bumped; it is the conflict-detection timestamp.
func (s *Store) applyMutation(tx *sql.Tx, m tracker.IssueMutation) error {
	sets := []string{"updated_on = ?"}
	args := []any{time.Now().UTC().Format(timeFormat)}

	if m.SetSubject {
		sets = append(sets, "subject = ?")
		args = append(args, m.Subject)
	}
	if m.SetParent {
		sets = append(sets, "parent_id = ?")
		args = append(args, issueIDArg(m.ParentID))
	}
	if m.SetFixedVersion {
		sets = append(sets, "fixed_version_id = ?")
		args = append(args, versionIDArg(m.FixedVersionID))
	}
	if m.SetStartDate {
		sets = append(sets, "start_date = ?")
		args = append(args, dateArg(m.StartDate))
	}
	if m.SetDueDate {
		sets = append(sets, "due_date = ?")
		args = append(args, dateArg(m.DueDate))
	}
	if m.SetStatus {
		sets = append(sets, "status = ?", "closed = ?")
		args = append(args, m.Status, m.Closed)
	}

	args = append(args, m.ID)
	res, err := s.execHook(tx, `UPDATE issues SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return tracker.ErrIssueNotFound
	}
	return nil
}

// RelationsAmong returns the relations whose both endpoints are in ids.
func (s *Store) RelationsAmong(ids []tracker.IssueID) ([]tracker.Relation, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, 0, len(ids)*2)
	for _, id := range ids {
		args = append(args, id)
	}
	for _, id := range ids {
		args = append(args, id)
	}

	rows, err := s.db.Query(`
		SELECT id, from_id, to_id, relation_type FROM issue_relations
		WHERE from_id IN (`+placeholders+`) AND to_id IN (`+placeholders+`)
		ORDER BY id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rels []tracker.Relation
	for rows.Next() {
		var rel tracker.Relation
		if err := rows.Scan(&rel.ID, &rel.FromID, &rel.ToID, &rel.Type); err != nil {
			return nil, err
		}
		rels = append(rels, rel)
	}
	return rels, rows.Err()
}

// CreateRelation inserts a dependency edge between two issues.
func (s *Store) CreateRelation(rel *tracker.Relation) (int64, error) {
	if rel.Type == "" {
		rel.Type = "relates"
	}
	res, err := s.execHook(s.db,
		`INSERT INTO issue_relations (from_id, to_id, relation_type) VALUES (?, ?, ?)`,
		rel.FromID, rel.ToID, rel.Type,
	)
	if err != nil {
		return 0, fmt.Errorf("store: create relation: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("store: create relation: %w", err)
	}
	rel.ID = id
	return id, nil
}

// ─── Versions ────────────────────────────────────────────────────────────────

// FindVersion retrieves a version by ID.
func (s *Store) FindVersion(id tracker.VersionID) (*tracker.Version, error) {
	row := s.db.QueryRow(`SELECT id, project_id, name, effective_date FROM versions WHERE id = ?`, id)
	v, err := scanVersion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("version %d: %w", id, tracker.ErrVersionNotFound)
	}
	return v, err
}

// VersionsForProject returns every version in a project, dated or not,
// ordered by effective date then name.
func (s *Store) VersionsForProject(p tracker.ProjectID) ([]tracker.Version, error) {
	rows, err := s.db.Query(`
		SELECT id, project_id, name, effective_date FROM versions
		WHERE project_id = ?
		ORDER BY effective_date IS NULL, effective_date, name, id`, p)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectVersions(rows)
}

// VersionsByEffectiveDate returns the project's date-derivation
// timeline: only versions with an effective date, ascending.
func (s *Store) VersionsByEffectiveDate(p tracker.ProjectID) ([]tracker.Version, error) {
	rows, err := s.db.Query(`
		SELECT id, project_id, name, effective_date FROM versions
		WHERE project_id = ? AND effective_date IS NOT NULL
		ORDER BY effective_date, id`, p)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectVersions(rows)
}

// CreateVersion inserts a new version and returns its assigned ID.
func (s *Store) CreateVersion(v *tracker.Version) (tracker.VersionID, error) {
	res, err := s.execHook(s.db,
		`INSERT INTO versions (project_id, name, effective_date) VALUES (?, ?, ?)`,
		v.ProjectID, v.Name, dateArg(v.EffectiveDate),
	)
	if err != nil {
		return 0, fmt.Errorf("store: create version: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("store: create version: %w", err)
	}
	v.ID = tracker.VersionID(id)
	return v.ID, nil
}

func scanVersion(row rowLike) (*tracker.Version, error) {
	var (
		v         tracker.Version
		effective sql.NullString
	)
	if err := row.Scan(&v.ID, &v.ProjectID, &v.Name, &effective); err != nil {
		return nil, err
	}
	var err error
	if v.EffectiveDate, err = parseDate(effective); err != nil {
		return nil, fmt.Errorf("version %d effective_date: %w", v.ID, err)
	}
	return &v, nil
}

func collectVersions(rows *sql.Rows) ([]tracker.Version, error) {
	var versions []tracker.Version
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, err
		}
		versions = append(versions, *v)
	}
	return versions, rows.Err()
}

// ─── SQL argument helpers ────────────────────────────────────────────────────

func dateArg(t *time.Time) any {
	if t == nil {
		return nil
	}
	return tracker.Date(*t).Format(dateFormat)
}

func parseDate(v sql.NullString) (*time.Time, error) {
	if !v.Valid || v.String == "" {
		return nil, nil
	}
	t, err := time.Parse(dateFormat, v.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func issueIDArg(id *tracker.IssueID) any {
	if id == nil {
		return nil
	}
	return int64(*id)
}

func versionIDArg(id *tracker.VersionID) any {
	if id == nil {
		return nil
	}
	return int64(*id)
}
