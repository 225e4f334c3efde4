package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "modernc.org/sqlite"

	"github.com/yourorg/handoff/pkg/types"
)

// SQLiteStore keeps responses in a single database file.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dsn); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	s := &SQLiteStore{db: db, path: dsn}
	if err := s.Init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) Init() error {
	if _, err := s.db.Exec(`PRAGMA journal_mode=WAL;`); err != nil {
		return err
	}
	// Keys are stored as decimal text: uint64 values above MaxInt64 do not fit INTEGER.
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS responses (
		key TEXT PRIMARY KEY,
		body TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);`)
	return err
}

func (s *SQLiteStore) Locate(content string) (string, error) {
	return fmt.Sprintf("%s#%s", s.path, EntryName(Key(content))), nil
}

func (s *SQLiteStore) Load(ctx context.Context, content string) (string, bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT body FROM responses WHERE key=?`, keyText(content))
	var body string
	if err := row.Scan(&body); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return body, true, nil
}

func (s *SQLiteStore) Store(ctx context.Context, content, body string) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `INSERT INTO responses(key,body,created_at,updated_at) VALUES(?,?,?,?)
	ON CONFLICT(key) DO UPDATE SET body=excluded.body,updated_at=excluded.updated_at`,
		keyText(content), body, now, now)
	return err
}

func (s *SQLiteStore) List(ctx context.Context) ([]types.CacheEntry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key,length(body),updated_at FROM responses ORDER BY updated_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []types.CacheEntry
	for rows.Next() {
		var keyS string
		var e types.CacheEntry
		if err := rows.Scan(&keyS, &e.Size, &e.UpdatedAt); err != nil {
			return nil, err
		}
		if e.Key, err = strconv.ParseUint(keyS, 10, 64); err != nil {
			return nil, fmt.Errorf("corrupt key %q: %w", keyS, err)
		}
		e.Location = fmt.Sprintf("%s#%s", s.path, EntryName(e.Key))
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return errors.New("store is nil")
	}
	return s.db.Close()
}

func keyText(content string) string {
	return strconv.FormatUint(Key(content), 10)
}
