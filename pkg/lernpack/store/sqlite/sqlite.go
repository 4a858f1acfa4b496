package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cognicore/lernpack/pkg/lernpack/internalerr"
	"github.com/cognicore/lernpack/pkg/lernpack/store"
)

type sqliteStore struct {
	db *sql.DB
}

// OpenSQLite opens a SQLite database with WAL mode enabled and creates
// the index tables when missing.
func OpenSQLite(ctx context.Context, path string) (store.Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, err
	}
	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteStore{db: db}, nil
}

func (s *sqliteStore) Close() error {
	return s.db.Close()
}

func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS packs (
	workspace TEXT NOT NULL,
	id TEXT NOT NULL,
	run_id TEXT NOT NULL,
	scenario TEXT NOT NULL,
	level TEXT NOT NULL,
	title TEXT,
	path TEXT,
	prompts INTEGER DEFAULT 0,
	passed INTEGER DEFAULT 0,
	failures TEXT,
	created_at TEXT NOT NULL,
	PRIMARY KEY(workspace, id)
);

CREATE INDEX IF NOT EXISTS packs_workspace ON packs(workspace, scenario);

CREATE TABLE IF NOT EXISTS pack_tokens (
	workspace TEXT NOT NULL,
	pack_id TEXT NOT NULL,
	token TEXT NOT NULL,
	UNIQUE(workspace, pack_id, token),
	FOREIGN KEY(workspace, pack_id) REFERENCES packs(workspace, id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS pack_tokens_token ON pack_tokens(token);

CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	workspace TEXT NOT NULL,
	scenario TEXT NOT NULL,
	level TEXT NOT NULL,
	source TEXT,
	packs INTEGER DEFAULT 0,
	packs_passed INTEGER DEFAULT 0,
	prompts INTEGER DEFAULT 0,
	prompts_passed INTEGER DEFAULT 0,
	report_json TEXT,
	report_md TEXT,
	created_at TEXT NOT NULL
);
`
	_, err := db.ExecContext(ctx, schema)
	return err
}

func (s *sqliteStore) UpsertPack(ctx context.Context, p store.PackRecord) error {
	if p.ID == "" || p.Workspace == "" {
		return fmt.Errorf("%w: pack needs workspace and id", internalerr.ErrInvalidInput)
	}
	failures, err := json.Marshal(uniqueStrings(p.Failures))
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const stmt = `
INSERT INTO packs (workspace, id, run_id, scenario, level, title, path, prompts, passed, failures, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(workspace, id) DO UPDATE SET
	run_id=excluded.run_id,
	scenario=excluded.scenario,
	level=excluded.level,
	title=excluded.title,
	path=excluded.path,
	prompts=excluded.prompts,
	passed=excluded.passed,
	failures=excluded.failures,
	created_at=excluded.created_at;
`
	_, err = tx.ExecContext(ctx, stmt,
		p.Workspace,
		p.ID,
		p.RunID,
		p.Scenario,
		p.Level,
		p.Title,
		p.Path,
		p.Prompts,
		boolInt(p.Passed),
		string(failures),
		formatTime(p.CreatedAt),
	)
	if err != nil {
		return err
	}

	if err := replacePackTokens(ctx, tx, p.Workspace, p.ID, uniqueStrings(p.Tokens)); err != nil {
		return err
	}
	return tx.Commit()
}

func replacePackTokens(ctx context.Context, tx *sql.Tx, workspace, packID string, tokens []string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM pack_tokens WHERE workspace=? AND pack_id=?`, workspace, packID); err != nil {
		return err
	}
	if len(tokens) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO pack_tokens (workspace, pack_id, token) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, tok := range tokens {
		if _, err := stmt.ExecContext(ctx, workspace, packID, tok); err != nil {
			return err
		}
	}
	return nil
}

const packColumns = `id, run_id, workspace, scenario, level, title, path, prompts, passed, failures, created_at`

func (s *sqliteStore) GetPack(ctx context.Context, workspace, id string) (store.PackRecord, bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+packColumns+` FROM packs WHERE workspace = ? AND id = ?`, workspace, id)
	p, err := scanPack(row)
	if errors.Is(err, sql.ErrNoRows) {
		return store.PackRecord{}, false, nil
	}
	if err != nil {
		return store.PackRecord{}, false, err
	}
	if p.Tokens, err = s.packTokens(ctx, workspace, id); err != nil {
		return store.PackRecord{}, false, err
	}
	return p, true, nil
}

func (s *sqliteStore) ListPacks(ctx context.Context, f store.PackFilter) ([]store.PackRecord, error) {
	var (
		where []string
		args  []interface{}
	)
	if f.Workspace != "" {
		where = append(where, "workspace = ?")
		args = append(args, f.Workspace)
	}
	if f.Scenario != "" {
		where = append(where, "scenario = ?")
		args = append(args, f.Scenario)
	}
	if f.PassedOnly {
		where = append(where, "passed = 1")
	}

	query := `SELECT ` + packColumns + ` FROM packs`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id, workspace LIMIT ?"
	args = append(args, limitOrDefault(f.Limit))

	return s.queryPacks(ctx, query, args...)
}

func (s *sqliteStore) PacksByTokens(ctx context.Context, tokens []string, limit int) ([]store.PackRecord, error) {
	unique := uniqueStrings(tokens)
	if len(unique) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(unique)), ",")
	args := make([]interface{}, 0, len(unique)+1)
	for _, tok := range unique {
		args = append(args, tok)
	}
	args = append(args, limitOrDefault(limit))

	query := fmt.Sprintf(`
SELECT `+packColumns+`
FROM packs p
WHERE EXISTS (
	SELECT 1 FROM pack_tokens t
	WHERE t.workspace = p.workspace AND t.pack_id = p.id AND t.token IN (%s)
)
ORDER BY created_at DESC, id, workspace
LIMIT ?;
`, placeholders)

	return s.queryPacks(ctx, query, args...)
}

func (s *sqliteStore) queryPacks(ctx context.Context, query string, args ...interface{}) ([]store.PackRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	var packs []store.PackRecord
	for rows.Next() {
		p, err := scanPack(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		packs = append(packs, p)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for i := range packs {
		if packs[i].Tokens, err = s.packTokens(ctx, packs[i].Workspace, packs[i].ID); err != nil {
			return nil, err
		}
	}
	return packs, nil
}

func (s *sqliteStore) packTokens(ctx context.Context, workspace, id string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT token FROM pack_tokens WHERE workspace = ? AND pack_id = ? ORDER BY rowid`, workspace, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []string
	for rows.Next() {
		var tok string
		if err := rows.Scan(&tok); err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
	}
	return tokens, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanPack(row scanner) (store.PackRecord, error) {
	var (
		p        store.PackRecord
		title    sql.NullString
		path     sql.NullString
		passed   int
		failures sql.NullString
		created  string
	)
	err := row.Scan(&p.ID, &p.RunID, &p.Workspace, &p.Scenario, &p.Level,
		&title, &path, &p.Prompts, &passed, &failures, &created)
	if err != nil {
		return store.PackRecord{}, err
	}
	p.Title = title.String
	p.Path = path.String
	p.Passed = passed == 1
	if failures.Valid && failures.String != "" && failures.String != "[]" {
		if err := json.Unmarshal([]byte(failures.String), &p.Failures); err != nil {
			return store.PackRecord{}, fmt.Errorf("pack %s failures: %w", p.ID, err)
		}
	}
	if p.CreatedAt, err = parseTime(created); err != nil {
		return store.PackRecord{}, err
	}
	return p, nil
}

func (s *sqliteStore) RecordRun(ctx context.Context, r store.RunRecord) error {
	if r.ID == "" {
		return fmt.Errorf("%w: run without id", internalerr.ErrInvalidInput)
	}
	const stmt = `
INSERT INTO runs (id, workspace, scenario, level, source, packs, packs_passed, prompts, prompts_passed, report_json, report_md, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
`
	_, err := s.db.ExecContext(ctx, stmt,
		r.ID,
		r.Workspace,
		r.Scenario,
		r.Level,
		r.Source,
		r.Packs,
		r.PacksPassed,
		r.Prompts,
		r.PromptsPassed,
		r.ReportJSON,
		r.ReportMarkdown,
		formatTime(r.CreatedAt),
	)
	if err != nil && strings.Contains(err.Error(), "UNIQUE") {
		return fmt.Errorf("%w: run %s", internalerr.ErrDuplicate, r.ID)
	}
	return err
}

func (s *sqliteStore) ListRuns(ctx context.Context, workspace string, limit int) ([]store.RunRecord, error) {
	query := `
SELECT id, workspace, scenario, level, source, packs, packs_passed, prompts, prompts_passed, report_json, report_md, created_at
FROM runs`
	var args []interface{}
	if workspace != "" {
		query += " WHERE workspace = ?"
		args = append(args, workspace)
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT ?"
	args = append(args, limitOrDefault(limit))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []store.RunRecord
	for rows.Next() {
		var (
			r              store.RunRecord
			source, rj, rm sql.NullString
			created        string
		)
		if err := rows.Scan(&r.ID, &r.Workspace, &r.Scenario, &r.Level, &source,
			&r.Packs, &r.PacksPassed, &r.Prompts, &r.PromptsPassed, &rj, &rm, &created); err != nil {
			return nil, err
		}
		r.Source = source.String
		r.ReportJSON = rj.String
		r.ReportMarkdown = rm.String
		if r.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// timeLayout is fixed width so created_at sorts as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func limitOrDefault(limit int) int {
	if limit <= 0 {
		return store.DefaultLimit
	}
	return limit
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
