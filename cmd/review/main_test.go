package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"financial_review/pkg/core/config"
	"financial_review/pkg/core/extract"
	"financial_review/pkg/core/metric"
	"financial_review/pkg/core/pipeline"
	"financial_review/pkg/core/session"
	"financial_review/pkg/core/units"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func testConfig() *config.Config {
	return &config.Config{
		Store:  config.StoreConfig{Driver: "memory"},
		Log:    config.LogConfig{Level: "error", Format: "json"},
		Review: config.ReviewConfig{PDFUnit: "millions", MaxRetries: 5},
		Batch:  config.BatchConfig{Concurrency: 2},
	}
}

func withConfig(t *testing.T) {
	t.Helper()
	prev, prevFormat := cfg, outputFormat
	cfg, outputFormat = testConfig(), "text"
	t.Cleanup(func() { cfg, outputFormat = prev, prevFormat })
}

func TestLoadEdits(t *testing.T) {
	edits, err := loadEdits(filepath.Join("testdata", "edits.yaml"))
	require.NoError(t, err)
	require.Len(t, edits, 1)
	assert.Equal(t, pipeline.Edit{Key: metric.StockCompensation, Year: session.Current, Value: 250000}, edits[0])

	edits, err = loadEdits("")
	require.NoError(t, err)
	assert.Nil(t, edits)

	path := filepath.Join(t.TempDir(), "edits.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"metric_key":"cash","year":"prior","value":5}]`), 0o644))
	edits, err = loadEdits(path)
	require.NoError(t, err)
	assert.Equal(t, session.Prior, edits[0].Year)
}

func TestSourceFlagsOpen(t *testing.T) {
	f := sourceFlags{Kind: "static"}
	src, err := f.open(filepath.Join("testdata", "acme.yaml"), "millions")
	require.NoError(t, err)
	assert.Equal(t, "static", src.Name())

	dir := t.TempDir()
	pdf := filepath.Join(dir, "result.json")
	require.NoError(t, os.WriteFile(pdf, []byte(`{"company_name":"Acme","unit":"thousands","metrics":{}}`), 0o644))

	f = sourceFlags{Kind: "pdf"}
	src, err = f.open(pdf, "millions")
	require.NoError(t, err)
	p, ok := src.(extract.PDFSource)
	require.True(t, ok)
	assert.Equal(t, units.Forced{Unit: units.Millions}, p.Policy)

	f.PDFUnit = "detected"
	src, err = f.open(pdf, "millions")
	require.NoError(t, err)
	assert.Equal(t, units.Detected{}, src.(extract.PDFSource).Policy)

	f = sourceFlags{Kind: "xbrl"}
	_, err = f.open(pdf, "")
	assert.Error(t, err, "xbrl needs a mapping")

	src, err = f.open(pdf+","+pdf, "")
	require.NoError(t, err)
	assert.Equal(t, "xbrl", src.Name())

	f = sourceFlags{Kind: "html"}
	_, err = f.open(pdf, "")
	assert.Error(t, err)
}

func TestRunOne(t *testing.T) {
	withConfig(t)
	ctx := context.Background()
	e, err := initEnv(ctx, cfg)
	require.NoError(t, err)
	defer e.Close() //nolint:errcheck

	edits, err := loadEdits(filepath.Join("testdata", "edits.yaml"))
	require.NoError(t, err)

	review, err := runOne(ctx, e.Service, &sourceFlags{Kind: "static"}, filepath.Join("testdata", "acme.yaml"), edits)
	require.NoError(t, err)
	assert.True(t, review.Session.IsApproved)
	assert.Equal(t, 3_000_000.0, review.Calculation.Metrics.EBITDA)
	assert.Equal(t, 3_250_000.0, review.Calculation.Metrics.AdjustedEBITDA)
	assert.False(t, review.Verification.Blocking())

	var buf bytes.Buffer
	require.NoError(t, printReview(&buf, review))
	assert.Contains(t, buf.String(), "# Acme Corp (ACME)")
	assert.Contains(t, buf.String(), "| EBITDA | $3.0M | $2.4M | +$600,000 |")

	outputFormat = "json"
	buf.Reset()
	require.NoError(t, printReview(&buf, review))
	assert.Contains(t, buf.String(), `"verification_summary"`)
	assert.Contains(t, buf.String(), `"session_id"`)
}

func TestProcessBatch(t *testing.T) {
	withConfig(t)
	ctx := context.Background()
	e, err := initEnv(ctx, cfg)
	require.NoError(t, err)

	inputs := []string{
		filepath.Join("testdata", "acme.yaml"),
		filepath.Join("testdata", "missing.yaml"),
		filepath.Join("testdata", "acme.yaml"),
	}
	results := processBatch(ctx, inputs, 2, func(ctx context.Context, input string) (*pipeline.Review, error) {
		return runOne(ctx, e.Service, &sourceFlags{Kind: "static"}, input, nil)
	})
	require.Len(t, results, 3)
	assert.NoError(t, results[0].Err)
	assert.Error(t, results[1].Err)
	assert.NoError(t, results[2].Err)
	assert.NotEqual(t, results[0].Review.Session.ID, results[2].Review.Session.ID)

	var buf bytes.Buffer
	err = writeBatch(&buf, results)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 3 inputs failed")
	assert.Contains(t, buf.String(), "OK       testdata/acme.yaml")
	assert.Contains(t, buf.String(), "FAIL     testdata/missing.yaml")
}

func TestProcessBatchBlocked(t *testing.T) {
	withConfig(t)
	cfg.Review.BlockOnErrors = true
	ctx := context.Background()
	e, err := initEnv(ctx, cfg)
	require.NoError(t, err)

	results := processBatch(ctx, []string{filepath.Join("testdata", "acme.yaml")}, 1,
		func(ctx context.Context, input string) (*pipeline.Review, error) {
			return runOne(ctx, e.Service, &sourceFlags{Kind: "static"}, input,
				[]pipeline.Edit{{Key: metric.StockholdersEquity, Year: session.Current, Value: 1}})
		})
	require.Len(t, results, 1)
	assert.True(t, eris.Is(results[0].Err, pipeline.ErrApprovalBlocked))
	require.NotNil(t, results[0].Review)

	var buf bytes.Buffer
	require.Error(t, writeBatch(&buf, results))
	assert.Contains(t, buf.String(), "BLOCKED")
}

func TestInitRepository(t *testing.T) {
	ctx := context.Background()

	repo, closeFn, err := initRepository(ctx, config.StoreConfig{Driver: "sqlite", SQLitePath: filepath.Join(t.TempDir(), "r.db")})
	require.NoError(t, err)
	require.NotNil(t, repo)
	require.NoError(t, closeFn())

	_, _, err = initRepository(ctx, config.StoreConfig{Driver: "redis"})
	assert.Error(t, err)
}

func TestWarnEphemeral(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	restore := zap.ReplaceGlobals(zap.New(core))
	defer restore()

	warnEphemeral(config.StoreConfig{Driver: "sqlite"})
	assert.Equal(t, 0, logs.Len())

	warnEphemeral(config.StoreConfig{Driver: "memory"})
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "review: memory store does not outlive the process", entry.Message)
	assert.Equal(t, "set REVIEW_STORE_DRIVER=sqlite", entry.ContextMap()["hint"])
}
