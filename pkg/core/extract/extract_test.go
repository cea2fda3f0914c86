package extract

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"financial_review/pkg/core/metric"
	"financial_review/pkg/core/session"
	"financial_review/pkg/core/units"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

const pdfPayload = "Here is the extraction you asked for:\n\n```json\n" + `{
  "company_name": "Widget Inc",
  "ticker": "WDGT",
  "fiscal_year_end": "2024-12-31",
  "fiscal_year_end_prior": "2023-12-31",
  "unit": "in thousands",
  "metrics": {
    "revenue": {"value": 5.2, "value_prior": "4,800", "page_number": 65, "source_text": "Net sales"},
    "net_income": {"value": "n/a", "value_prior": 1, "page_number": 66},
    "interest_expense": {"value": "(12)", "value_prior": null, "page_number": 66},
    "ebitda": {"value": 1, "value_prior": 1, "page_number": 1}
  },
  "not_found": ["Goodwill"],
  "llm_notes": ["Scanned document"]
}` + "\n```\n"

func TestPDFSource(t *testing.T) {
	data, err := PDFSource{Payload: []byte(pdfPayload), Model: "reader-v2"}.Normalize(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "pdf", data.Source)
	assert.Equal(t, "Widget Inc", data.CompanyName)
	assert.Equal(t, units.Millions, data.Unit, "pdf default forces millions")
	assert.Equal(t, "reader-v2", data.LLMModel)
	assert.Empty(t, data.CIK)

	require.Len(t, data.Metrics, 2, "unknown keys and unreadable values are skipped")
	ie, rev := data.Metrics[0], data.Metrics[1]

	assert.Equal(t, metric.InterestExpense, ie.Key)
	assert.Equal(t, -12.0, ie.Value)
	assert.Equal(t, 0.0, ie.ValuePrior)
	assert.Equal(t, "Page 67 of PDF", ie.SourceDescription)

	assert.Equal(t, metric.Revenue, rev.Key)
	assert.Equal(t, 5.2, rev.Value)
	assert.Equal(t, 4800.0, rev.ValuePrior)
	assert.Equal(t, "Page 66 of PDF: Net sales", rev.SourceDescription)
	assert.Equal(t, "Net sales", rev.Reasoning)
	assert.Equal(t, "10-K", rev.FormType)
	assert.Equal(t, "2023-12-31", rev.PeriodEndPrior)
	assert.Empty(t, rev.SourceURL)

	require.Len(t, data.NotFound, 1)
	assert.Equal(t, metric.Goodwill, data.NotFound[0].Key)
}

func TestPDFSourceDetectedPolicy(t *testing.T) {
	data, err := PDFSource{Payload: []byte(pdfPayload), Policy: units.Detected{}}.Normalize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, units.Thousands, data.Unit)
}

func TestPDFSourceRepairsPayload(t *testing.T) {
	payload := `{"company_name": "Widget Inc", "metrics": {"revenue": {"value": 10, "page_number": 0},},}`
	data, err := PDFSource{Payload: []byte(payload)}.Normalize(context.Background())
	require.NoError(t, err)
	require.Len(t, data.Metrics, 1)
	assert.Equal(t, 10.0, data.Metrics[0].Value)
}

func TestPDFSourceSkipsNonFiniteAndNonBaseMetrics(t *testing.T) {
	payload := `{"company_name": "Widget Inc", "metrics": {
		"revenue": {"value": "NaN", "value_prior": 4},
		"cost_of_revenue": {"value": 3, "value_prior": "Inf"},
		"sga_expense": {"value": 2, "value_prior": 1},
		"net_income": {"value": 1, "value_prior": 0.5}
	}}`
	data, err := PDFSource{Payload: []byte(payload)}.Normalize(context.Background())
	require.NoError(t, err)
	require.Len(t, data.Metrics, 1)
	assert.Equal(t, metric.NetIncome, data.Metrics[0].Key)

	var n *session.Session
	assert.NotPanics(t, func() { n = session.NormalizeUnits(session.Build(data)) })
	assert.Equal(t, 1_000_000.0, n.Value(metric.NetIncome, session.Current))
	assert.False(t, n.Has(metric.Revenue))

	_, err = json.Marshal(n)
	assert.NoError(t, err)
}

func TestPDFSourceMalformed(t *testing.T) {
	for _, payload := range []string{"", "I could not read the document.", "{}"} {
		_, err := PDFSource{Payload: []byte(payload)}.Normalize(context.Background())
		require.Error(t, err, "payload %q", payload)
		assert.True(t, eris.Is(err, ErrMalformedPayload), "payload %q", payload)
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
		err  bool
	}{
		{`1234.5`, 1234.5, false},
		{`null`, 0, false},
		{``, 0, false},
		{`""`, 0, false},
		{`"1,234"`, 1234, false},
		{`"$(120)"`, -120, false},
		{`"n/a"`, 0, true},
		{`"NaN"`, 0, true},
		{`"Inf"`, 0, true},
		{`"-Infinity"`, 0, true},
	}
	for _, tt := range tests {
		got, err := parseAmount(json.RawMessage(tt.raw))
		if tt.err {
			assert.Error(t, err, tt.raw)
			continue
		}
		require.NoError(t, err, tt.raw)
		assert.Equal(t, tt.want, got, tt.raw)
	}
}

const companyFacts = `{
  "cik": 123456,
  "entityName": "ACME CORP",
  "facts": {
    "us-gaap": {
      "Revenues": {
        "label": "Revenues",
        "units": {
          "USD": [
            {"start": "2023-01-01", "end": "2023-12-31", "val": 900, "accn": "0000123456-24-000010", "fy": 2023, "fp": "FY", "form": "10-K", "filed": "2024-02-01"},
            {"start": "2024-01-01", "end": "2024-12-31", "val": 1000, "accn": "0000123456-25-000010", "fy": 2024, "fp": "FY", "form": "10-K", "filed": "2025-02-01"},
            {"start": "2023-01-01", "end": "2023-12-31", "val": 950, "accn": "0000123456-25-000010", "fy": 2024, "fp": "FY", "form": "10-K", "filed": "2025-02-01"},
            {"start": "2024-10-01", "end": "2024-12-31", "val": 260, "accn": "0000123456-25-000010", "fy": 2024, "fp": "FY", "form": "10-K", "filed": "2025-02-01"},
            {"start": "2024-07-01", "end": "2024-09-30", "val": 250, "accn": "0000123456-24-000040", "fy": 2024, "fp": "Q3", "form": "10-Q", "filed": "2024-11-01"}
          ]
        }
      },
      "Assets": {
        "label": "Assets",
        "units": {
          "USD": [
            {"end": "2024-12-31", "val": 5000, "accn": "0000123456-25-000010", "fy": 2024, "fp": "FY", "form": "10-K", "filed": "2025-02-01"}
          ]
        }
      },
      "RestructuringCharges": {
        "label": "Restructuring Charges",
        "units": {"USD": [{"start": "2024-01-01", "end": "2024-12-31", "val": 15, "accn": "0000123456-25-000010", "fy": 2024, "fp": "FY", "form": "10-K", "filed": "2025-02-01"}]}
      }
    }
  }
}`

const conceptMapping = "```json\n" + `{
  "fiscal_year_end": "2024-12-31",
  "fiscal_year_end_prior": "2023-12-31",
  "mapped": {
    "revenue": {"concept": "Revenues", "confidence": 0.95, "reasoning": "Primary revenue tag", "statement": "Consolidated Statements of Operations"},
    "total_assets": {"concept": "us-gaap:Assets", "confidence": 0.99, "reasoning": "Total assets", "statement": "Consolidated Balance Sheets"},
    "goodwill": {"concept": "Goodwill", "confidence": 0.5, "reasoning": "Guess"},
    "ebitda": {"concept": "Revenues", "confidence": 0.1, "reasoning": "Not a raw key"}
  },
  "unmapped_but_notable": [
    {"concept": "RestructuringCharges", "label": "Restructuring Charges", "value_current": 15, "value_prior": 0, "note": "One-time", "statement": "Notes"}
  ],
  "not_found": {"stock_compensation": "No share-based compensation concept"},
  "notes": ["Uses ASC 606 tags"]
}` + "\n```"

func TestXBRLSource(t *testing.T) {
	src := XBRLSource{Facts: []byte(companyFacts), Mapping: []byte(conceptMapping), Ticker: "ACME"}
	data, err := src.Normalize(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "xbrl", data.Source)
	assert.Equal(t, "ACME CORP", data.CompanyName)
	assert.Equal(t, "123456", data.CIK)
	assert.Equal(t, units.Dollars, data.Unit)
	assert.Equal(t, []string{"Uses ASC 606 tags"}, data.LLMNotes)

	require.Len(t, data.Metrics, 2)
	rev, ta := data.Metrics[0], data.Metrics[1]

	assert.Equal(t, metric.Revenue, rev.Key)
	assert.Equal(t, 1000.0, rev.Value)
	assert.Equal(t, 950.0, rev.ValuePrior, "restated prior year from the latest filing wins")
	assert.Equal(t, "2023-12-31", rev.PeriodEndPrior)
	assert.Equal(t, "us-gaap:Revenues", rev.SourceDescription)
	assert.Equal(t, "https://www.sec.gov/Archives/edgar/data/123456/000012345625000010/", rev.SourceURL)
	assert.Equal(t, "Consolidated Statements of Operations", rev.Statement)

	assert.Equal(t, metric.TotalAssets, ta.Key)
	assert.Equal(t, 5000.0, ta.Value)
	assert.Equal(t, 0.0, ta.ValuePrior)

	require.Len(t, data.NotFound, 2)
	assert.Equal(t, metric.Goodwill, data.NotFound[0].Key)
	assert.Equal(t, "No annual 10-K facts reported for Goodwill", data.NotFound[0].Note)
	assert.Equal(t, metric.StockCompensation, data.NotFound[1].Key)

	require.Len(t, data.Unmapped, 1)
	assert.NotEmpty(t, data.Unmapped[0].SourceURL)
}

func TestXBRLSourceMalformedFacts(t *testing.T) {
	_, err := XBRLSource{Facts: []byte("<html>"), Mapping: []byte(conceptMapping)}.Normalize(context.Background())
	assert.True(t, eris.Is(err, ErrMalformedPayload))
}

func TestSourcesConvergeOnOneShape(t *testing.T) {
	// The same figures arriving through different strategies build identical sessions.
	pdf := `{"company_name": "ACME CORP", "fiscal_year_end": "2024-12-31", "fiscal_year_end_prior": "2023-12-31",
		"metrics": {"revenue": {"value": 1000, "value_prior": 950, "page_number": 0}}}`
	fromPDF, err := PDFSource{Payload: []byte(pdf), Policy: units.Forced{Unit: units.Dollars}}.Normalize(context.Background())
	require.NoError(t, err)

	static := *fromPDF
	fromStatic, err := StaticSource{Data: &static}.Normalize(context.Background())
	require.NoError(t, err)

	a := session.BuildWithID("x", fromPDF)
	b := session.BuildWithID("x", fromStatic)
	b.Source = a.Source
	assert.Equal(t, a, b)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "acme.yaml")
	yml := `company_name: Acme Corp
ticker: ACME
fiscal_year_end: "2024-12-31"
fiscal_year_end_prior: "2023-12-31"
unit: millions
metrics:
  - metric_key: revenue
    value: 5.2
    value_prior: 4.8
    source_description: "Page 12 of PDF"
    form_type: 10-K
not_found:
  - metric_key: goodwill
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))

	data, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", data.CompanyName)
	assert.Equal(t, units.Millions, data.Unit)
	require.Len(t, data.Metrics, 1)
	assert.Equal(t, metric.Revenue, data.Metrics[0].Key)
	assert.Equal(t, 4.8, data.Metrics[0].ValuePrior)
	assert.Equal(t, metric.Goodwill, data.NotFound[0].Key)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0o644))
	_, err = LoadFile(bad)
	assert.True(t, eris.Is(err, ErrMalformedPayload))

	_, err = LoadFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestUnfence(t *testing.T) {
	assert.Equal(t, `{"a":1}`, string(unfence([]byte(`{"a":1}`))))
	assert.Equal(t, "{\"a\":1}\n", string(unfence([]byte("```\n{\"a\":1}\n```"))))
	assert.Equal(t, "{\"b\":2}\n", string(unfence([]byte("```text\nnotes\n```\n\n```json\n{\"b\":2}\n```\n"))))
}
