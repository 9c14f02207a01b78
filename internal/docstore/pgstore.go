package docstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// dbtx is satisfied by both *pgxpool.Pool and pgx.Tx.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PgStore keeps documents in a single PostgreSQL table (see migrations/).
type PgStore struct {
	pool *pgxpool.Pool
}

// NewPool creates a PostgreSQL connection pool and checks connectivity.
func NewPool(ctx context.Context, connString string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// NewPgStore returns a PostgreSQL-backed Store.
func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

func (s *PgStore) Get(ctx context.Context, path string) (*Document, error) {
	return pgGet(ctx, s.pool, path, false)
}

func pgGet(ctx context.Context, db dbtx, path string, forUpdate bool) (*Document, error) {
	if _, _, err := splitPath(path); err != nil {
		return nil, err
	}
	sql := `SELECT data, version, updated_at FROM documents WHERE path = $1`
	if forUpdate {
		sql += ` FOR UPDATE`
	}
	d := &Document{Path: path}
	var raw []byte
	err := db.QueryRow(ctx, sql, path).Scan(&raw, &d.Version, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &d.Data); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return d, nil
}

func (s *PgStore) Set(ctx context.Context, path string, data any, opts ...SetOption) error {
	return pgSet(ctx, s.pool, path, data, merging(opts))
}

func pgSet(ctx context.Context, db dbtx, path string, data any, merge bool) error {
	parent, coll, err := splitPath(path)
	if err != nil {
		return err
	}
	m, err := toMap(data)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return err
	}
	update := `EXCLUDED.data`
	if merge {
		update = `documents.data || EXCLUDED.data`
	}
	_, err = db.Exec(ctx,
		`INSERT INTO documents (path, parent, collection, data)
		 VALUES ($1, $2, $3, $4::jsonb)
		 ON CONFLICT (path) DO UPDATE
		 SET data = `+update+`,
		     version = nextval('documents_version_seq'),
		     updated_at = NOW()`,
		path, parent, coll, string(raw))
	return err
}

func (s *PgStore) Delete(ctx context.Context, path string) error {
	if _, _, err := splitPath(path); err != nil {
		return err
	}
	_, err := s.pool.Exec(ctx, `DELETE FROM documents WHERE path = $1`, path)
	return err
}

// where renders the WHERE clause for q and returns its arguments.
func where(q Query) (string, []any, error) {
	col := "parent"
	if q.Group {
		col = "collection"
	}
	clauses := []string{col + " = $1"}
	args := []any{q.Collection}
	for _, f := range q.Filters {
		b, err := json.Marshal(map[string]any{f.Field: f.Value})
		if err != nil {
			return "", nil, err
		}
		args = append(args, string(b))
		clauses = append(clauses, fmt.Sprintf("data @> $%d::jsonb", len(args)))
	}
	if q.StartAfter != "" {
		args = append(args, q.StartAfter)
		clauses = append(clauses, fmt.Sprintf("path > $%d", len(args)))
	}
	return strings.Join(clauses, " AND "), args, nil
}

func (s *PgStore) Query(ctx context.Context, q Query) ([]*Document, error) {
	cond, args, err := where(q)
	if err != nil {
		return nil, err
	}
	sql := `SELECT path, data, version, updated_at FROM documents WHERE ` + cond + ` ORDER BY path`
	if q.Limit > 0 {
		args = append(args, q.Limit)
		sql += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []*Document
	for rows.Next() {
		d := &Document{}
		var raw []byte
		if err := rows.Scan(&d.Path, &raw, &d.Version, &d.UpdatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &d.Data); err != nil {
			return nil, fmt.Errorf("decode %s: %w", d.Path, err)
		}
		list = append(list, d)
	}
	return list, rows.Err()
}

func (s *PgStore) Count(ctx context.Context, q Query) (int, error) {
	q.StartAfter = ""
	cond, args, err := where(q)
	if err != nil {
		return 0, err
	}
	var n int
	err = s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM documents WHERE `+cond, args...).Scan(&n)
	return n, err
}

func (s *PgStore) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(ctx, &pgTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *PgStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

type pgTx struct {
	tx pgx.Tx
}

// Get locks the row until the transaction ends.
func (t *pgTx) Get(ctx context.Context, path string) (*Document, error) {
	return pgGet(ctx, t.tx, path, true)
}

func (t *pgTx) Set(ctx context.Context, path string, data any, opts ...SetOption) error {
	return pgSet(ctx, t.tx, path, data, merging(opts))
}

func (t *pgTx) DeleteIfVersion(ctx context.Context, path string, version int64) error {
	tag, err := t.tx.Exec(ctx,
		`DELETE FROM documents WHERE path = $1 AND version = $2`, path, version)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrConflict
	}
	return nil
}
