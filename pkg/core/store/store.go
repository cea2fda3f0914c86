// Package store persists review sessions behind a versioned repository.
// Every implementation stores and returns deep copies, so callers never
// share a session with the store or with each other.
package store

import (
	"context"

	"financial_review/pkg/core/session"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

var (
	// ErrNotFound means no session exists for the id.
	ErrNotFound = eris.New("session not found")
	// ErrConflict means the stored version moved since it was read.
	ErrConflict = eris.New("session version conflict")
)

// Repository is a keyed session store with optimistic concurrency.
// Versions start at 1 and increase by one on every write.
type Repository interface {
	// Get returns a copy of the session and its current version.
	Get(ctx context.Context, id string) (*session.Session, int64, error)
	// Put writes s unconditionally, creating it if absent.
	Put(ctx context.Context, s *session.Session) (int64, error)
	// CompareAndSwap writes s only if the stored version equals expected.
	CompareAndSwap(ctx context.Context, s *session.Session, expected int64) (int64, error)
}

// Update runs a read-modify-write loop on one session. fn receives a private
// copy; when the write loses a race the loop rereads and calls fn again, up
// to attempts times. An error from fn aborts without writing.
func Update(ctx context.Context, repo Repository, id string, attempts int, fn func(*session.Session) error) (*session.Session, error) {
	if attempts < 1 {
		attempts = 1
	}

	for i := 0; i < attempts; i++ {
		s, version, err := repo.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := fn(s); err != nil {
			return nil, err
		}

		_, err = repo.CompareAndSwap(ctx, s, version)
		if err == nil {
			return s, nil
		}
		if !eris.Is(err, ErrConflict) {
			return nil, err
		}
		zap.L().Warn("session write conflict, retrying",
			zap.String("session_id", id),
			zap.Int64("version", version),
			zap.Int("attempt", i+1),
		)
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "update cancelled")
		}
	}
	return nil, eris.Wrapf(ErrConflict, "session %s: gave up after %d attempts", id, attempts)
}
