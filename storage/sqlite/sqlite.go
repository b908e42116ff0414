// Package sqlite is a durable storage.Store backed by an SQLite file.
//
// The pool is limited to one connection, so transactions are serialized by
// database/sql and every Update sees the effects of the previous one.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"xdao.co/custodian/storage"
)

const maxBusyTimeoutMs = 5000

func init() {
	storage.MustRegister(storage.Backend{
		Name:        "sqlite",
		Description: "single-file SQLite database (option: path)",
		Open: func(opts map[string]string) (storage.Store, error) {
			return Open(opts["path"])
		},
	})
}

type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("sqlite: path is required")
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve db path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", "file:"+absPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d", maxBusyTimeoutMs)); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	var mode string
	if err := db.QueryRow("PRAGMA journal_mode=WAL").Scan(&mode); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if err := ensureSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func ensureSchema(db *sql.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS kv (
		k TEXT PRIMARY KEY,
		v BLOB NOT NULL
	)`); err != nil {
		return fmt.Errorf("create kv table: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS entries (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		v BLOB NOT NULL
	)`); err != nil {
		return fmt.Errorf("create entries table: %w", err)
	}
	return nil
}

func (s *Store) Update(ctx context.Context, fn func(storage.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return mapErr(err)
	}
	if err := fn(&tx{ctx: ctx, q: sqlTx}); err != nil {
		_ = sqlTx.Rollback()
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *Store) View(ctx context.Context, fn func(storage.Reader) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return mapErr(err)
	}
	defer sqlTx.Rollback()
	return fn(&tx{ctx: ctx, q: sqlTx})
}

func (s *Store) Entries(ctx context.Context, after uint64, limit int) ([]storage.Entry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `SELECT seq, v FROM entries WHERE seq > ? ORDER BY seq LIMIT ?`, int64(after), limit)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []storage.Entry
	for rows.Next() {
		var (
			seq int64
			v   []byte
		)
		if err := rows.Scan(&seq, &v); err != nil {
			return nil, err
		}
		out = append(out, storage.Entry{Seq: uint64(seq), Value: v})
	}
	return out, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}

func mapErr(err error) error {
	if errors.Is(err, sql.ErrConnDone) || err.Error() == "sql: database is closed" {
		return storage.ErrClosed
	}
	return err
}

type tx struct {
	ctx context.Context
	q   *sql.Tx
}

func (t *tx) Get(key string) ([]byte, error) {
	var v []byte
	err := t.q.QueryRowContext(t.ctx, `SELECT v FROM kv WHERE k = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (t *tx) Put(key string, value []byte) error {
	_, err := t.q.ExecContext(t.ctx,
		`INSERT INTO kv (k, v) VALUES (?, ?) ON CONFLICT(k) DO UPDATE SET v = excluded.v`,
		key, nonNil(value))
	return err
}

func (t *tx) Insert(key string, value []byte) error {
	res, err := t.q.ExecContext(t.ctx,
		`INSERT INTO kv (k, v) VALUES (?, ?) ON CONFLICT(k) DO NOTHING`,
		key, nonNil(value))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrExists
	}
	return nil
}

func (t *tx) Append(value []byte) (uint64, error) {
	res, err := t.q.ExecContext(t.ctx, `INSERT INTO entries (v) VALUES (?)`, nonNil(value))
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// NOT NULL columns reject a nil []byte.
func nonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}
