package store

import (
	"context"
	"errors"
	"os"
	"time"

	"financial_review/pkg/core/session"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
)

// Pool is the subset of pgxpool.Pool the store needs.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore is a Repository holding sessions as JSONB rows.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// NewPostgres connects to dsn, or DATABASE_URL when dsn is empty.
func NewPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	if dsn == "" {
		dsn = os.Getenv("DATABASE_URL")
	}
	if dsn == "" {
		return nil, eris.New("postgres: no database url configured (set store.database_url or DATABASE_URL)")
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool.
func NewPostgresWithPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS review_sessions (
	id         TEXT PRIMARY KEY,
	ticker     TEXT NOT NULL DEFAULT '',
	version    BIGINT NOT NULL,
	data       JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_review_sessions_ticker ON review_sessions(ticker);
`

func (p *PostgresStore) Migrate(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (p *PostgresStore) Close() error {
	if p.closeFn != nil {
		p.closeFn()
	}
	return nil
}

func (p *PostgresStore) Get(ctx context.Context, id string) (*session.Session, int64, error) {
	var (
		data    []byte
		version int64
	)
	err := p.pool.QueryRow(ctx,
		`SELECT data, version FROM review_sessions WHERE id = $1`, id,
	).Scan(&data, &version)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, 0, eris.Wrapf(ErrNotFound, "postgres: get %s", id)
	}
	if err != nil {
		return nil, 0, eris.Wrapf(err, "postgres: get %s", id)
	}

	out, err := decode(id, data)
	if err != nil {
		return nil, 0, err
	}
	return out, version, nil
}

func (p *PostgresStore) Put(ctx context.Context, s *session.Session) (int64, error) {
	data, err := encode(s)
	if err != nil {
		return 0, err
	}

	var version int64
	err = p.pool.QueryRow(ctx, `
		INSERT INTO review_sessions (id, ticker, version, data, updated_at)
		VALUES ($1, $2, 1, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			ticker = EXCLUDED.ticker,
			version = review_sessions.version + 1,
			data = EXCLUDED.data,
			updated_at = EXCLUDED.updated_at
		RETURNING version`,
		s.ID, s.Ticker, data, time.Now().UTC(),
	).Scan(&version)
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: put %s", s.ID)
	}
	return version, nil
}

func (p *PostgresStore) CompareAndSwap(ctx context.Context, s *session.Session, expected int64) (int64, error) {
	data, err := encode(s)
	if err != nil {
		return 0, err
	}

	var version int64
	err = p.pool.QueryRow(ctx, `
		UPDATE review_sessions
		SET ticker = $2, version = version + 1, data = $3, updated_at = $4
		WHERE id = $1 AND version = $5
		RETURNING version`,
		s.ID, s.Ticker, data, time.Now().UTC(), expected,
	).Scan(&version)
	if err == nil {
		return version, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, eris.Wrapf(err, "postgres: swap %s", s.ID)
	}

	var current int64
	err = p.pool.QueryRow(ctx, `SELECT version FROM review_sessions WHERE id = $1`, s.ID).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, eris.Wrapf(ErrNotFound, "postgres: swap %s", s.ID)
	}
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: swap %s", s.ID)
	}
	return 0, eris.Wrapf(ErrConflict, "postgres: swap %s: have version %d, want %d", s.ID, current, expected)
}
