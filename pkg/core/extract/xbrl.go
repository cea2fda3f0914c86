package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"financial_review/pkg/core/metric"
	"financial_review/pkg/core/session"
	"financial_review/pkg/core/units"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// =============================================================================
// SEC companyfacts payload
// =============================================================================

// CompanyFacts is the subset of the SEC companyfacts document we read.
type CompanyFacts struct {
	CIK        json.Number                       `json:"cik"`
	EntityName string                            `json:"entityName"`
	Facts      map[string]map[string]ConceptData `json:"facts"` // taxonomy -> concept -> data
}

// ConceptData holds every reported fact for one concept, keyed by unit ("USD").
type ConceptData struct {
	Label string            `json:"label"`
	Units map[string][]Fact `json:"units"`
}

// Fact is one reported value.
type Fact struct {
	End   string  `json:"end"`
	Start string  `json:"start"`
	Val   float64 `json:"val"`
	Accn  string  `json:"accn"`
	FY    int     `json:"fy"`
	FP    string  `json:"fp"`
	Form  string  `json:"form"`
	Filed string  `json:"filed"`
}

// =============================================================================
// Concept mapping payload
// =============================================================================

// ConceptMapping is a model's choice of concept for one metric.
type ConceptMapping struct {
	Concept    string  `json:"concept"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
	Statement  string  `json:"statement"`
}

// NotableConcept is a reported concept worth surfacing although no metric uses it.
type NotableConcept struct {
	Concept      string  `json:"concept"`
	Label        string  `json:"label"`
	ValueCurrent float64 `json:"value_current"`
	ValuePrior   float64 `json:"value_prior"`
	Note         string  `json:"note"`
	Statement    string  `json:"statement"`
}

// MappingResult is the full concept mapping response.
type MappingResult struct {
	FiscalYearEnd      string                    `json:"fiscal_year_end"`
	FiscalYearEndPrior string                    `json:"fiscal_year_end_prior"`
	Mapped             map[string]ConceptMapping `json:"mapped"`
	UnmappedNotable    []NotableConcept          `json:"unmapped_but_notable"`
	NotFound           map[string]string         `json:"not_found"`
	Notes              []string                  `json:"notes"`
	Warnings           []string                  `json:"warnings"`
}

// XBRLSource adapts structured filing facts plus a concept mapping.
type XBRLSource struct {
	Facts       []byte // companyfacts JSON
	Mapping     []byte // concept mapping JSON, possibly markdown-wrapped
	CompanyName string
	Ticker      string
	CIK         string
	Model       string
}

func (x XBRLSource) Name() string { return "xbrl" }

func (x XBRLSource) Normalize(ctx context.Context) (*session.NormalizedExtractionData, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var facts CompanyFacts
	if err := json.Unmarshal(x.Facts, &facts); err != nil {
		return nil, eris.Wrapf(ErrMalformedPayload, "extract: companyfacts: %v", err)
	}
	var mapping MappingResult
	if err := decodeLenient(x.Mapping, &mapping); err != nil {
		return nil, err
	}
	if len(mapping.Mapped) == 0 && len(mapping.NotFound) == 0 {
		return nil, eris.Wrap(ErrMalformedPayload, "extract: concept mapping is empty")
	}

	cik := x.CIK
	if cik == "" {
		cik = facts.CIK.String()
	}
	name := x.CompanyName
	if name == "" {
		name = facts.EntityName
	}

	data := &session.NormalizedExtractionData{
		CompanyName:        name,
		Ticker:             x.Ticker,
		CIK:                cik,
		FiscalYearEnd:      mapping.FiscalYearEnd,
		FiscalYearEndPrior: mapping.FiscalYearEndPrior,
		Source:             x.Name(),
		Unit:               units.Dollars,
		LLMModel:           x.Model,
		LLMNotes:           mapping.Notes,
		LLMWarnings:        mapping.Warnings,
	}

	for _, k := range sortedKeys(mapping.Mapped) {
		key, err := metric.Parse(k)
		if err != nil {
			zap.L().Debug("extract: skipping unknown mapped metric", zap.String("metric_key", k))
			continue
		}
		cm := mapping.Mapped[k]
		concept := strings.TrimPrefix(cm.Concept, "us-gaap:")

		annual := facts.annual(concept, 2)
		if len(annual) == 0 {
			data.NotFound = append(data.NotFound, session.MissingMetric{
				Key:  key,
				Note: fmt.Sprintf("No annual 10-K facts reported for %s", cm.Concept),
			})
			continue
		}

		nm := session.NormalizedMetric{
			Key:               key,
			Value:             annual[0].Val,
			SourceDescription: "us-gaap:" + concept,
			SourceURL:         filingURL(cik, annual[0].Accn),
			Reasoning:         cm.Reasoning,
			FormType:          annual[0].Form,
			PeriodEnd:         annual[0].End,
			Statement:         cm.Statement,
		}
		if len(annual) > 1 {
			nm.ValuePrior = annual[1].Val
			nm.PeriodEndPrior = annual[1].End
		}
		data.Metrics = append(data.Metrics, nm)
	}

	for _, k := range sortedKeys(mapping.NotFound) {
		data.NotFound = append(data.NotFound, session.MissingMetric{
			Key:  metric.Key(k),
			Note: mapping.NotFound[k],
		})
	}

	for _, item := range mapping.UnmappedNotable {
		u := session.NormalizedUnmapped{
			Concept:      item.Concept,
			Label:        item.Label,
			ValueCurrent: item.ValueCurrent,
			ValuePrior:   item.ValuePrior,
			Note:         item.Note,
			Statement:    item.Statement,
		}
		if annual := facts.annual(strings.TrimPrefix(item.Concept, "us-gaap:"), 1); len(annual) > 0 {
			u.SourceURL = filingURL(cik, annual[0].Accn)
		}
		data.Unmapped = append(data.Unmapped, u)
	}

	return data, nil
}

// annual returns up to n full-year 10-K facts for concept, most recent period
// first, one per period end. The dei taxonomy is the fallback.
func (cf CompanyFacts) annual(concept string, n int) []Fact {
	var all []Fact
	for _, taxonomy := range []string{"us-gaap", "dei"} {
		data, ok := cf.Facts[taxonomy][concept]
		if !ok {
			continue
		}
		for _, unit := range sortedKeys(data.Units) {
			for _, f := range data.Units[unit] {
				if f.Form != "10-K" || f.End == "" || !fullYear(f.Start, f.End) {
					continue
				}
				all = append(all, f)
			}
		}
		if len(all) > 0 {
			break
		}
	}

	// Latest filing wins for a restated period.
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].End != all[j].End {
			return all[i].End > all[j].End
		}
		return all[i].Filed > all[j].Filed
	})

	seen := make(map[string]bool)
	var out []Fact
	for _, f := range all {
		if seen[f.End] {
			continue
		}
		seen[f.End] = true
		out = append(out, f)
		if len(out) == n {
			break
		}
	}
	return out
}

// fullYear reports whether a duration fact spans roughly one year. Instant
// facts (no start) always qualify.
func fullYear(start, end string) bool {
	if start == "" {
		return true
	}
	s, err1 := time.Parse("2006-01-02", start)
	e, err2 := time.Parse("2006-01-02", end)
	if err1 != nil || err2 != nil {
		return true
	}
	days := int(e.Sub(s).Hours() / 24)
	return days >= 350 && days <= 380
}

func filingURL(cik, accession string) string {
	if accession == "" {
		return ""
	}
	n, err := strconv.ParseInt(strings.TrimLeft(cik, "0"), 10, 64)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("https://www.sec.gov/Archives/edgar/data/%d/%s/", n, strings.ReplaceAll(accession, "-", ""))
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
