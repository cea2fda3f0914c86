package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"financial_review/pkg/core/session"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteStore is a Repository backed by modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens the database at dsn and applies the schema.
func NewSQLite(ctx context.Context, dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	s := &SQLiteStore{db: db}
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS review_sessions (
	id         TEXT PRIMARY KEY,
	ticker     TEXT NOT NULL DEFAULT '',
	version    INTEGER NOT NULL,
	data       TEXT NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_review_sessions_ticker ON review_sessions(ticker);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*session.Session, int64, error) {
	var (
		data    string
		version int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT data, version FROM review_sessions WHERE id = ?`, id,
	).Scan(&data, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, eris.Wrapf(ErrNotFound, "sqlite: get %s", id)
	}
	if err != nil {
		return nil, 0, eris.Wrapf(err, "sqlite: get %s", id)
	}

	out, err := decode(id, []byte(data))
	if err != nil {
		return nil, 0, err
	}
	return out, version, nil
}

func (s *SQLiteStore) Put(ctx context.Context, sess *session.Session) (int64, error) {
	data, err := encode(sess)
	if err != nil {
		return 0, err
	}

	var version int64
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO review_sessions (id, ticker, version, data, updated_at)
		VALUES (?, ?, 1, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			ticker = excluded.ticker,
			version = review_sessions.version + 1,
			data = excluded.data,
			updated_at = excluded.updated_at
		RETURNING version`,
		sess.ID, sess.Ticker, string(data), time.Now().UTC(),
	).Scan(&version)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: put %s", sess.ID)
	}
	return version, nil
}

func (s *SQLiteStore) CompareAndSwap(ctx context.Context, sess *session.Session, expected int64) (int64, error) {
	data, err := encode(sess)
	if err != nil {
		return 0, err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE review_sessions
		SET ticker = ?, version = version + 1, data = ?, updated_at = ?
		WHERE id = ? AND version = ?`,
		sess.Ticker, string(data), time.Now().UTC(), sess.ID, expected,
	)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: swap %s", sess.ID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 1 {
		return expected + 1, nil
	}

	// Nothing matched: either the row is gone or its version moved.
	if _, _, err := s.Get(ctx, sess.ID); err != nil {
		return 0, err
	}
	return 0, eris.Wrapf(ErrConflict, "sqlite: swap %s at version %d", sess.ID, expected)
}
