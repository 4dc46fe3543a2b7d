package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/trueinf/geosight-new-sub000/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	// One writer at a time; WAL still allows concurrent readers.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS snapshots (
	id         TEXT PRIMARY KEY,
	query      TEXT NOT NULL,
	target     TEXT NOT NULL DEFAULT '',
	mode       TEXT NOT NULL,
	location   TEXT NOT NULL DEFAULT '',
	result     TEXT NOT NULL,
	analysis   TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_snapshots_target ON snapshots(target);
CREATE INDEX IF NOT EXISTS idx_snapshots_created_at ON snapshots(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveSnapshot(ctx context.Context, snap *model.Snapshot) error {
	result, analysis, err := prepare(snap)
	if err != nil {
		return err
	}

	var analysisCol sql.NullString
	if analysis != nil {
		analysisCol = sql.NullString{String: string(analysis), Valid: true}
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO snapshots (id, query, target, mode, location, result, analysis, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		snap.ID, snap.Query, snap.Target, string(snap.Mode), snap.Location,
		string(result), analysisCol, snap.CreatedAt.UTC(),
	)
	return eris.Wrapf(err, "sqlite: insert snapshot %s", snap.ID)
}

func (s *SQLiteStore) GetSnapshot(ctx context.Context, id string) (*model.Snapshot, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, query, target, mode, location, result, analysis, created_at
		 FROM snapshots WHERE id = ?`, id)

	snap, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get snapshot %s", id)
	}
	return snap, nil
}

func (s *SQLiteStore) ListSnapshots(ctx context.Context, filter SnapshotFilter) ([]model.Snapshot, error) {
	query := `SELECT id, query, target, mode, location, result, analysis, created_at FROM snapshots`
	var args []any
	if filter.Target != "" {
		query += ` WHERE target = ?`
		args = append(args, filter.Target)
	}
	query += ` ORDER BY created_at DESC, id LIMIT ? OFFSET ?`
	args = append(args, filter.limit(), filter.offset())

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list snapshots")
	}
	defer rows.Close() //nolint:errcheck

	out := []model.Snapshot{}
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan snapshot")
		}
		out = append(out, *snap)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate snapshots")
}

func (s *SQLiteStore) DeleteSnapshot(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM snapshots WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete snapshot %s", id)
	}
	return checkRowsAffected(res, id)
}

// checkRowsAffected maps a statement that touched no rows to ErrNotFound.
func checkRowsAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrapf(err, "sqlite: rows affected for %s", id)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// scannable is satisfied by both *sql.Row and *sql.Rows.
type scannable interface {
	Scan(dest ...any) error
}

func scanSnapshot(row scannable) (*model.Snapshot, error) {
	var (
		snap     model.Snapshot
		mode     string
		result   string
		analysis sql.NullString
	)
	if err := row.Scan(&snap.ID, &snap.Query, &snap.Target, &mode, &snap.Location,
		&result, &analysis, &snap.CreatedAt); err != nil {
		return nil, err
	}
	snap.Mode = model.Mode(mode)

	var analysisJSON []byte
	if analysis.Valid {
		analysisJSON = []byte(analysis.String)
	}
	if err := decode(&snap, []byte(result), analysisJSON); err != nil {
		return nil, err
	}
	return &snap, nil
}
