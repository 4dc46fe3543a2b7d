package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/trueinf/geosight-new-sub000/internal/model"
)

// Pool is the subset of *pgxpool.Pool the store uses. pgxmock satisfies it
// in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS snapshots (
	id         TEXT PRIMARY KEY,
	query      TEXT NOT NULL,
	target     TEXT NOT NULL DEFAULT '',
	mode       TEXT NOT NULL,
	location   TEXT NOT NULL DEFAULT '',
	result     JSONB NOT NULL,
	analysis   JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_snapshots_target ON snapshots(target);
CREATE INDEX IF NOT EXISTS idx_snapshots_created_at ON snapshots(created_at DESC);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) SaveSnapshot(ctx context.Context, snap *model.Snapshot) error {
	result, analysis, err := prepare(snap)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO snapshots (id, query, target, mode, location, result, analysis, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		snap.ID, snap.Query, snap.Target, string(snap.Mode), snap.Location,
		result, analysis, snap.CreatedAt,
	)
	return eris.Wrapf(err, "postgres: insert snapshot %s", snap.ID)
}

func (s *PostgresStore) GetSnapshot(ctx context.Context, id string) (*model.Snapshot, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, query, target, mode, location, result, analysis, created_at
		 FROM snapshots WHERE id = $1`, id)

	snap, err := scanPgSnapshot(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get snapshot %s", id)
	}
	return snap, nil
}

func (s *PostgresStore) ListSnapshots(ctx context.Context, filter SnapshotFilter) ([]model.Snapshot, error) {
	query := `SELECT id, query, target, mode, location, result, analysis, created_at FROM snapshots`
	var args []any
	if filter.Target != "" {
		args = append(args, filter.Target)
		query += fmt.Sprintf(` WHERE target = $%d`, len(args))
	}
	args = append(args, filter.limit(), filter.offset())
	query += fmt.Sprintf(` ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list snapshots")
	}
	defer rows.Close()

	out := []model.Snapshot{}
	for rows.Next() {
		snap, err := scanPgSnapshot(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan snapshot")
		}
		out = append(out, *snap)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate snapshots")
}

func (s *PostgresStore) DeleteSnapshot(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM snapshots WHERE id = $1`, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete snapshot %s", id)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanPgSnapshot(row pgx.Row) (*model.Snapshot, error) {
	var (
		snap     model.Snapshot
		mode     string
		result   []byte
		analysis []byte
	)
	if err := row.Scan(&snap.ID, &snap.Query, &snap.Target, &mode, &snap.Location,
		&result, &analysis, &snap.CreatedAt); err != nil {
		return nil, err
	}
	snap.Mode = model.Mode(mode)
	if err := decode(&snap, result, analysis); err != nil {
		return nil, err
	}
	return &snap, nil
}
