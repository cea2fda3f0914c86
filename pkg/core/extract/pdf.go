package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"financial_review/pkg/core/metric"
	"financial_review/pkg/core/session"
	"financial_review/pkg/core/units"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// PDFResult is the payload a language model returns after reading a PDF filing.
type PDFResult struct {
	CompanyName        string               `json:"company_name"`
	Ticker             string               `json:"ticker"`
	FiscalYearEnd      string               `json:"fiscal_year_end"`
	FiscalYearEndPrior string               `json:"fiscal_year_end_prior"`
	Unit               string               `json:"unit"` // detected scale, free text
	Metrics            map[string]PDFMetric `json:"metrics"`
	UnmappedNotes      []string             `json:"unmapped_notes"`
	NotFound           []string             `json:"not_found"`
	LLMNotes           []string             `json:"llm_notes"`
	LLMWarnings        []string             `json:"llm_warnings"`
}

// PDFMetric is one metric as read from the document. Values stay raw until
// conversion so one unreadable figure does not reject the whole payload.
type PDFMetric struct {
	Value      json.RawMessage `json:"value"`
	ValuePrior json.RawMessage `json:"value_prior"`
	PageNumber int             `json:"page_number"` // 0-indexed
	SourceText string          `json:"source_text"`
}

// PDFSource adapts a PDF extraction payload.
type PDFSource struct {
	Payload []byte
	// Policy picks the recorded unit. nil means units.PDFDefault.
	Policy units.Policy
	Model  string
}

func (p PDFSource) Name() string { return "pdf" }

func (p PDFSource) Normalize(ctx context.Context) (*session.NormalizedExtractionData, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var res PDFResult
	if err := decodeLenient(p.Payload, &res); err != nil {
		return nil, err
	}
	if res.CompanyName == "" && len(res.Metrics) == 0 {
		return nil, eris.Wrap(ErrMalformedPayload, "extract: pdf payload has no company and no metrics")
	}

	policy := p.Policy
	if policy == nil {
		policy = units.PDFDefault
	}
	unit := policy.Resolve(res.Unit)
	zap.L().Debug("extract: resolved pdf unit",
		zap.String("detected", res.Unit),
		zap.String("policy", policy.Name()),
		zap.String("unit", string(unit)),
	)

	companyName := res.CompanyName
	if companyName == "" {
		companyName = "Unknown"
	}

	data := &session.NormalizedExtractionData{
		CompanyName:        companyName,
		Ticker:             res.Ticker,
		FiscalYearEnd:      res.FiscalYearEnd,
		FiscalYearEndPrior: res.FiscalYearEndPrior,
		Source:             p.Name(),
		Unit:               unit,
		UnmappedNotes:      res.UnmappedNotes,
		LLMModel:           p.Model,
		LLMNotes:           res.LLMNotes,
		LLMWarnings:        res.LLMWarnings,
	}

	names := make([]string, 0, len(res.Metrics))
	for name := range res.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		key, err := metric.Parse(name)
		if err != nil {
			zap.L().Debug("extract: skipping unknown pdf metric", zap.String("metric_key", name))
			continue
		}
		if !key.Required() {
			zap.L().Debug("extract: skipping non-base pdf metric", zap.String("metric_key", name))
			continue
		}
		m := res.Metrics[name]

		value, err := parseAmount(m.Value)
		if err != nil {
			zap.L().Debug("extract: skipping unreadable pdf value", zap.String("metric_key", name), zap.Error(err))
			continue
		}
		prior, err := parseAmount(m.ValuePrior)
		if err != nil {
			zap.L().Debug("extract: skipping unreadable pdf value", zap.String("metric_key", name), zap.Error(err))
			continue
		}

		desc := fmt.Sprintf("Page %d of PDF", m.PageNumber+1)
		if m.SourceText != "" {
			desc += ": " + m.SourceText
		}

		data.Metrics = append(data.Metrics, session.NormalizedMetric{
			Key:               key,
			Value:             value,
			ValuePrior:        prior,
			SourceDescription: desc,
			Reasoning:         m.SourceText,
			FormType:          "10-K",
			PeriodEnd:         res.FiscalYearEnd,
			PeriodEndPrior:    res.FiscalYearEndPrior,
		})
	}

	for _, nf := range res.NotFound {
		data.NotFound = append(data.NotFound, session.MissingMetric{
			Key: metric.Key(strings.ToLower(strings.TrimSpace(nf))),
		})
	}

	return data, nil
}

// parseAmount reads a figure that may be a JSON number, null, or a string
// such as "1,234.5", "$(120)" or "".
func parseAmount(raw json.RawMessage) (float64, error) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return 0, nil
	}

	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(raw, &str); err != nil {
			return 0, eris.Wrap(err, "extract: amount")
		}
		s = strings.TrimSpace(str)
		if s == "" {
			return 0, nil
		}
	}

	s = strings.NewReplacer(",", "", "$", "", " ", "").Replace(s)
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, eris.Wrapf(err, "extract: amount %q", string(raw))
	}
	if !units.Finite(v) {
		return 0, eris.Errorf("extract: amount %q is not a finite number", string(raw))
	}
	if negative {
		v = -v
	}
	return v, nil
}
