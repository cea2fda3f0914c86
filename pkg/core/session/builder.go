package session

import (
	"financial_review/pkg/core/metric"
	"financial_review/pkg/core/units"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// NotFoundNote is attached to missing metrics the upstream step did not explain.
const NotFoundNote = "Not found in source data"

// NonFiniteNote marks a metric dropped because its reported figure was NaN or infinite.
const NonFiniteNote = "Reported value is not a finite number"

// NormalizedMetric is a single extracted metric, normalized from any extraction strategy.
type NormalizedMetric struct {
	Key               metric.Key `json:"metric_key" yaml:"metric_key"`
	Value             float64    `json:"value" yaml:"value"`
	ValuePrior        float64    `json:"value_prior" yaml:"value_prior"`
	SourceDescription string     `json:"source_description" yaml:"source_description"` // "us-gaap:Revenues" or "Page 66 of PDF"
	SourceURL         string     `json:"source_url" yaml:"source_url"`                 // filing URL, empty for uploads
	Reasoning         string     `json:"reasoning" yaml:"reasoning"`
	FormType          string     `json:"form_type" yaml:"form_type"`
	PeriodEnd         string     `json:"period_end" yaml:"period_end"`
	PeriodEndPrior    string     `json:"period_end_prior" yaml:"period_end_prior"`
	Unit              units.Unit `json:"unit,omitempty" yaml:"unit,omitempty"` // empty inherits the data unit
	Statement         string     `json:"statement" yaml:"statement"`
}

// NormalizedUnmapped is a notable reported item that maps to no metric key.
type NormalizedUnmapped struct {
	Concept      string  `json:"concept" yaml:"concept"`
	Label        string  `json:"label" yaml:"label"`
	ValueCurrent float64 `json:"value_current" yaml:"value_current"`
	ValuePrior   float64 `json:"value_prior" yaml:"value_prior"`
	Note         string  `json:"note" yaml:"note"`
	Statement    string  `json:"statement" yaml:"statement"`
	SourceURL    string  `json:"source_url" yaml:"source_url"`
}

// MissingMetric names a required metric the extraction could not locate.
type MissingMetric struct {
	Key  metric.Key `json:"metric_key" yaml:"metric_key"`
	Note string     `json:"note,omitempty" yaml:"note,omitempty"`
}

// NormalizedExtractionData is the only shape the builder accepts. Every
// extraction strategy converges on it.
type NormalizedExtractionData struct {
	CompanyName        string `json:"company_name" yaml:"company_name"`
	Ticker             string `json:"ticker" yaml:"ticker"` // may be empty for uploads
	CIK                string `json:"cik" yaml:"cik"`
	FiscalYearEnd      string `json:"fiscal_year_end" yaml:"fiscal_year_end"`
	FiscalYearEndPrior string `json:"fiscal_year_end_prior" yaml:"fiscal_year_end_prior"`
	Source             string `json:"source" yaml:"source"`

	Unit          units.Unit           `json:"unit" yaml:"unit"`
	Metrics       []NormalizedMetric   `json:"metrics" yaml:"metrics"`
	Unmapped      []NormalizedUnmapped `json:"unmapped,omitempty" yaml:"unmapped,omitempty"`
	UnmappedNotes []string             `json:"unmapped_notes,omitempty" yaml:"unmapped_notes,omitempty"`
	NotFound      []MissingMetric      `json:"not_found,omitempty" yaml:"not_found,omitempty"`

	LLMModel    string   `json:"llm_model,omitempty" yaml:"llm_model,omitempty"`
	LLMNotes    []string `json:"llm_notes,omitempty" yaml:"llm_notes,omitempty"`
	LLMWarnings []string `json:"llm_warnings,omitempty" yaml:"llm_warnings,omitempty"`
}

// Build converts normalized data into a new session with a random id.
func Build(data *NormalizedExtractionData) *Session {
	return BuildWithID(uuid.NewString(), data)
}

// BuildWithID converts normalized data into a session identified by id.
// Keys outside the vocabulary are dropped. A metric tagged with its own unit
// is re-expressed in the data unit so the session never holds mixed scales.
func BuildWithID(id string, data *NormalizedExtractionData) *Session {
	unit := data.Unit.Canonical()
	s := &Session{
		ID:                 id,
		Ticker:             data.Ticker,
		CompanyName:        data.CompanyName,
		CIK:                data.CIK,
		FiscalYearEnd:      data.FiscalYearEnd,
		FiscalYearEndPrior: data.FiscalYearEndPrior,
		Source:             data.Source,
		Unit:               unit,
		RawValues:          make(map[metric.Key]ExtractedValue, len(data.Metrics)),
		UnmappedValues:     []UnmappedValue{},
		UnmappedNotes:      append([]string{}, data.UnmappedNotes...),
		NotFound:           []NotFoundMetric{},
		CalculationSteps:   []CalculationStep{},
		LLMModel:           data.LLMModel,
		LLMNotes:           append([]string{}, data.LLMNotes...),
		LLMWarnings:        append([]string{}, data.LLMWarnings...),
	}

	for _, m := range data.Metrics {
		if !m.Key.Valid() {
			zap.L().Debug("session: dropping unknown metric key",
				zap.String("session_id", id),
				zap.String("metric_key", string(m.Key)),
			)
			continue
		}

		if !units.Finite(m.Value) || !units.Finite(m.ValuePrior) {
			zap.L().Debug("session: dropping non-finite metric value",
				zap.String("session_id", id),
				zap.String("metric_key", string(m.Key)),
			)
			s.NotFound = append(s.NotFound, NotFoundMetric{
				Key:         m.Key,
				DisplayName: m.Key.DisplayName(),
				Note:        NonFiniteNote,
			})
			continue
		}

		value, prior := m.Value, m.ValuePrior
		if m.Unit != "" {
			value = units.Convert(value, m.Unit, unit)
			prior = units.Convert(prior, m.Unit, unit)
		}

		s.RawValues[m.Key] = ExtractedValue{
			Key:           m.Key,
			DisplayName:   m.Key.DisplayName(),
			Value:         value,
			ValuePrior:    prior,
			Citation:      metricCitation(m, m.PeriodEnd, m.Value),
			CitationPrior: metricCitation(m, m.PeriodEndPrior, m.ValuePrior),
			Rationale:     m.Reasoning,
			Editable:      true,
		}
	}

	for _, u := range data.Unmapped {
		if !units.Finite(u.ValueCurrent) || !units.Finite(u.ValuePrior) {
			zap.L().Debug("session: dropping non-finite unmapped value",
				zap.String("session_id", id),
				zap.String("concept", u.Concept),
			)
			continue
		}
		s.UnmappedValues = append(s.UnmappedValues, UnmappedValue{
			Concept:       u.Concept,
			Label:         u.Label,
			ValueCurrent:  u.ValueCurrent,
			ValuePrior:    u.ValuePrior,
			Note:          u.Note,
			Citation:      unmappedCitation(u, data.FiscalYearEnd, u.ValueCurrent),
			CitationPrior: unmappedCitation(u, data.FiscalYearEndPrior, u.ValuePrior),
		})
	}

	for _, nf := range data.NotFound {
		note := nf.Note
		if note == "" {
			note = NotFoundNote
		}
		s.NotFound = append(s.NotFound, NotFoundMetric{
			Key:         nf.Key,
			DisplayName: metric.DisplayName(string(nf.Key)),
			Note:        note,
		})
	}

	return s
}

func metricCitation(m NormalizedMetric, periodEnd string, raw float64) *SourceCitation {
	statement := m.Statement
	if statement == "" {
		statement = string(m.Key.Statement())
	}
	return &SourceCitation{
		Concept:   m.SourceDescription,
		Label:     m.SourceDescription,
		FilingURL: m.SourceURL,
		FormType:  m.FormType,
		PeriodEnd: periodEnd,
		RawValue:  raw,
		Statement: statement,
	}
}

func unmappedCitation(u NormalizedUnmapped, periodEnd string, raw float64) *SourceCitation {
	return &SourceCitation{
		Concept:   u.Concept,
		Label:     u.Label,
		FilingURL: u.SourceURL,
		FormType:  "10-K",
		PeriodEnd: periodEnd,
		RawValue:  raw,
		Statement: u.Statement,
	}
}
