package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"financial_review/pkg/core/pipeline"
	"financial_review/pkg/core/report"
)

var (
	batchSource      sourceFlags
	batchConcurrency int
)

var batchCmd = &cobra.Command{
	Use:   "batch <input>...",
	Short: "Extract and approve many inputs concurrently",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		e, err := initEnv(ctx, cfg)
		if err != nil {
			return err
		}
		defer e.Close() //nolint:errcheck

		concurrency := cfg.Batch.Concurrency
		if batchConcurrency > 0 {
			concurrency = batchConcurrency
		}
		results := processBatch(ctx, args, concurrency, func(ctx context.Context, input string) (*pipeline.Review, error) {
			return runOne(ctx, e.Service, &batchSource, input, nil)
		})
		return writeBatch(cmd.OutOrStdout(), results)
	},
}

func init() {
	batchSource.register(batchCmd)
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 0, "inputs processed at once (default batch.concurrency)")
	rootCmd.AddCommand(batchCmd)
}

type reviewFunc func(ctx context.Context, input string) (*pipeline.Review, error)

// batchResult is the outcome for one input, in input order.
type batchResult struct {
	Input  string
	Review *pipeline.Review
	Err    error
}

// processBatch runs fn over inputs with bounded concurrency. Individual
// failures are recorded and do not stop the batch.
func processBatch(ctx context.Context, inputs []string, concurrency int, fn reviewFunc) []batchResult {
	if concurrency < 1 {
		concurrency = 1
	}
	zap.L().Info("processing batch",
		zap.Int("inputs", len(inputs)),
		zap.Int("concurrency", concurrency),
	)

	results := make([]batchResult, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var succeeded, failed atomic.Int64
	for i, input := range inputs {
		g.Go(func() error {
			review, err := fn(gctx, input)
			results[i] = batchResult{Input: input, Review: review, Err: err}
			if err != nil {
				failed.Add(1)
				zap.L().Error("review failed", zap.String("input", input), zap.Error(err))
				return nil
			}
			succeeded.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	zap.L().Info("batch complete",
		zap.Int64("succeeded", succeeded.Load()),
		zap.Int64("failed", failed.Load()),
	)
	return results
}

func writeBatch(w io.Writer, results []batchResult) error {
	var failed int
	for _, r := range results {
		switch {
		case r.Err != nil && r.Review == nil:
			failed++
			fmt.Fprintf(w, "FAIL     %s: %v\n", r.Input, r.Err)
		case r.Err != nil:
			failed++
			fmt.Fprintf(w, "BLOCKED  %s: %s, %d error check(s)\n",
				r.Input, r.Review.Session.ID, r.Review.Verification.ErrorCount())
		default:
			m := r.Review.Calculation.Metrics
			fmt.Fprintf(w, "OK       %s: %s %s revenue %s, EBITDA %s, %d/%d checks passed\n",
				r.Input, r.Review.Session.ID, r.Review.Session.Ticker,
				report.Currency(m.TopLineRevenue), report.Currency(m.EBITDA),
				r.Review.Verification.PassCount(),
				r.Review.Verification.PassCount()+r.Review.Verification.FailCount())
		}
	}
	if failed > 0 {
		return eris.Errorf("%d of %d inputs failed", failed, len(results))
	}
	return nil
}
