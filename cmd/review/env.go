package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"financial_review/pkg/core/config"
	"financial_review/pkg/core/pipeline"
	"financial_review/pkg/core/store"
)

// env holds the wired service and whatever must be closed after.
type env struct {
	Service *pipeline.Service
	closeFn func() error
}

func (e *env) Close() error {
	if e.closeFn == nil {
		return nil
	}
	return e.closeFn()
}

// warnEphemeral flags commands whose sessions must cross process boundaries
// while the store lives only in memory.
func warnEphemeral(sc config.StoreConfig) {
	if sc.Driver == "memory" {
		zap.L().Warn("review: memory store does not outlive the process",
			zap.String("hint", "set REVIEW_STORE_DRIVER=sqlite"))
	}
}

func initRepository(ctx context.Context, sc config.StoreConfig) (store.Repository, func() error, error) {
	switch sc.Driver {
	case "memory":
		return store.NewMemory(), nil, nil
	case "sqlite":
		st, err := store.NewSQLite(ctx, sc.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return st, st.Close, nil
	case "postgres":
		st, err := store.NewPostgres(ctx, sc.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := st.Migrate(ctx); err != nil {
			st.Close() //nolint:errcheck
			return nil, nil, err
		}
		return st, st.Close, nil
	default:
		return nil, nil, eris.Errorf("unsupported store driver: %s", sc.Driver)
	}
}

func initEnv(ctx context.Context, c *config.Config) (*env, error) {
	repo, closeFn, err := initRepository(ctx, c.Store)
	if err != nil {
		return nil, eris.Wrap(err, "init store")
	}
	svc := pipeline.NewService(repo, pipeline.Config{
		BlockOnErrors: c.Review.BlockOnErrors,
		MaxRetries:    c.Review.MaxRetries,
	})
	return &env{Service: svc, closeFn: closeFn}, nil
}
