// Package session holds the financial session aggregate: raw values with
// their provenance, the audit trail, and approval state.
package session

import (
	"time"

	"financial_review/pkg/core/metric"
	"financial_review/pkg/core/units"

	"github.com/rotisserie/eris"
)

// ErrNotEditable is returned when an edit targets a locked value.
var ErrNotEditable = eris.New("session: value is not editable")

// ErrNonFinite is returned when a value is NaN or infinite.
var ErrNonFinite = eris.New("session: value is not a finite number")

// ErrInvalidYear is returned when a year is neither current nor prior.
var ErrInvalidYear = eris.New("session: invalid year")

// Year selects one of the two comparison periods.
type Year string

const (
	Current Year = "current"
	Prior   Year = "prior"
)

// Years lists both periods in evaluation order.
var Years = []Year{Current, Prior}

func (y Year) Valid() bool { return y == Current || y == Prior }

// SourceCitation records where a raw value came from. Treated as immutable.
type SourceCitation struct {
	Concept         string  `json:"xbrl_concept"`    // e.g. "us-gaap:Revenues" or "Page 66 of PDF"
	Label           string  `json:"xbrl_label"`      // Human-readable label
	FilingURL       string  `json:"filing_url"`      // Empty for uploaded PDFs
	AccessionNumber string  `json:"accession_number"`
	FilingDate      string  `json:"filing_date"`
	FormType        string  `json:"form_type"` // "10-K", "10-Q"
	PeriodEnd       string  `json:"period_end"`
	RawValue        float64 `json:"raw_value"` // As reported, before unit normalization
	Statement       string  `json:"statement"` // e.g. "Balance Sheet"
}

// ExtractedValue is one named financial fact owned by a session.
type ExtractedValue struct {
	Key           metric.Key      `json:"metric_key"`
	DisplayName   string          `json:"display_name"`
	Value         float64         `json:"value"`
	ValuePrior    float64         `json:"value_prior"`
	Citation      *SourceCitation `json:"citation"`       // nil for manual entries
	CitationPrior *SourceCitation `json:"citation_prior"` // nil for manual entries
	Rationale     string          `json:"llm_reasoning"`
	Editable      bool            `json:"is_editable"`
}

// Get returns the value for year y.
func (v ExtractedValue) Get(y Year) float64 {
	if y == Prior {
		return v.ValuePrior
	}
	return v.Value
}

// UnmappedValue is a reported concept that did not map to the vocabulary
// but was flagged as notable.
type UnmappedValue struct {
	Concept       string          `json:"xbrl_concept"`
	Label         string          `json:"xbrl_label"`
	ValueCurrent  float64         `json:"value_current"`
	ValuePrior    float64         `json:"value_prior"`
	Note          string          `json:"llm_note"`
	Citation      *SourceCitation `json:"citation"`
	CitationPrior *SourceCitation `json:"citation_prior"`
}

// NotFoundMetric is a required metric the extraction could not locate.
type NotFoundMetric struct {
	Key         metric.Key `json:"metric_key"`
	DisplayName string     `json:"display_name"`
	Note        string     `json:"llm_note"`
}

// CalculationStep is one audit-trail entry.
type CalculationStep struct {
	Metric       string             `json:"metric"`
	Year         Year               `json:"year"`
	Formula      string             `json:"formula"`       // "EBITDA = Operating Income + D&A"
	FormulaExcel string             `json:"formula_excel"` // "=B_operating_income+B_depreciation_amortization"
	Inputs       map[string]float64 `json:"inputs"`
	Result       float64            `json:"result"`
}

// Session is the aggregate root passed between extraction, review and calculation.
type Session struct {
	ID                 string `json:"session_id"`
	Ticker             string `json:"ticker"`
	CompanyName        string `json:"company_name"`
	CIK                string `json:"cik"`
	FiscalYearEnd      string `json:"fiscal_year_end"`
	FiscalYearEndPrior string `json:"fiscal_year_end_prior"`
	Source             string `json:"source"` // extraction strategy that produced the data

	// Unit governs every value in RawValues and UnmappedValues at once.
	Unit units.Unit `json:"unit"`
	// NormalizedFrom is the unit the values were rescaled from, if any.
	NormalizedFrom units.Unit `json:"normalized_from,omitempty"`

	RawValues      map[metric.Key]ExtractedValue `json:"raw_values"`
	UnmappedValues []UnmappedValue               `json:"unmapped_values"`
	UnmappedNotes  []string                      `json:"unmapped_notes"`
	NotFound       []NotFoundMetric              `json:"not_found"`

	CalculationSteps []CalculationStep `json:"calculation_steps"`

	IsApproved bool       `json:"is_approved"`
	ApprovedAt *time.Time `json:"approved_at"`

	LLMModel    string   `json:"llm_model"`
	LLMNotes    []string `json:"llm_notes"`
	LLMWarnings []string `json:"llm_warnings"`
}

// Get returns the raw value for k in year y and whether k is present.
func (s *Session) Get(k metric.Key, y Year) (float64, bool) {
	ev, ok := s.RawValues[k]
	if !ok {
		return 0, false
	}
	return ev.Get(y), true
}

// Value returns the raw value for k in year y, 0.0 when absent.
func (s *Session) Value(k metric.Key, y Year) float64 {
	v, _ := s.Get(k, y)
	return v
}

// Has reports whether k was extracted or entered.
func (s *Session) Has(k metric.Key) bool {
	_, ok := s.RawValues[k]
	return ok
}

// Set overwrites the value for k in year y. An absent key becomes a manual
// entry with no citations and 0.0 for the other year.
func (s *Session) Set(k metric.Key, y Year, v float64) error {
	if !k.Valid() {
		return eris.Wrapf(metric.ErrUnknownKey, "session: set %q", k)
	}
	if !y.Valid() {
		return eris.Wrapf(ErrInvalidYear, "session: set %s for %q", k, y)
	}
	if !units.Finite(v) {
		return eris.Wrapf(ErrNonFinite, "session: set %s", k)
	}
	if s.RawValues == nil {
		s.RawValues = make(map[metric.Key]ExtractedValue)
	}

	ev, ok := s.RawValues[k]
	if !ok {
		ev = ExtractedValue{
			Key:         k,
			DisplayName: k.DisplayName(),
			Rationale:   "Manually entered",
			Editable:    true,
		}
	}
	if !ev.Editable {
		return eris.Wrapf(ErrNotEditable, "session: set %s", k)
	}

	if y == Prior {
		ev.ValuePrior = v
	} else {
		ev.Value = v
	}
	s.RawValues[k] = ev
	return nil
}

// SetCalculationSteps replaces the audit trail with a copy of steps.
func (s *Session) SetCalculationSteps(steps []CalculationStep) {
	s.CalculationSteps = cloneSlice(steps)
}

// Approve marks the session approved at t. Re-approval overwrites the timestamp.
func (s *Session) Approve(t time.Time) {
	t = t.UTC()
	s.IsApproved = true
	s.ApprovedAt = &t
}

// Clone returns a deep copy so callers never share mutable state.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s

	c.RawValues = make(map[metric.Key]ExtractedValue, len(s.RawValues))
	for k, ev := range s.RawValues {
		ev.Citation = cloneCitation(ev.Citation)
		ev.CitationPrior = cloneCitation(ev.CitationPrior)
		c.RawValues[k] = ev
	}

	c.UnmappedValues = cloneSlice(s.UnmappedValues)
	for i, u := range c.UnmappedValues {
		u.Citation = cloneCitation(u.Citation)
		u.CitationPrior = cloneCitation(u.CitationPrior)
		c.UnmappedValues[i] = u
	}

	c.UnmappedNotes = cloneSlice(s.UnmappedNotes)
	c.NotFound = cloneSlice(s.NotFound)
	c.LLMNotes = cloneSlice(s.LLMNotes)
	c.LLMWarnings = cloneSlice(s.LLMWarnings)

	c.CalculationSteps = cloneSlice(s.CalculationSteps)
	for i, step := range c.CalculationSteps {
		inputs := make(map[string]float64, len(step.Inputs))
		for k, v := range step.Inputs {
			inputs[k] = v
		}
		step.Inputs = inputs
		c.CalculationSteps[i] = step
	}

	if s.ApprovedAt != nil {
		t := *s.ApprovedAt
		c.ApprovedAt = &t
	}
	return &c
}

// cloneSlice copies src, keeping nil and empty apart so the JSON shape
// survives a copy.
func cloneSlice[T any](src []T) []T {
	if src == nil {
		return nil
	}
	out := make([]T, len(src))
	copy(out, src)
	return out
}

func cloneCitation(c *SourceCitation) *SourceCitation {
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}
