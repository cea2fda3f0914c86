package calc

import (
	"strings"

	"financial_review/pkg/core/session"
)

// column maps a year to the spreadsheet column its raw values live in.
func column(y session.Year) string {
	if y == session.Prior {
		return "C"
	}
	return "B"
}

// recorder collects calculation steps in evaluation order.
type recorder struct {
	steps []session.CalculationStep
}

// add appends a step. excel is a template where "{c}" is replaced by the
// year's column, e.g. "={c}_ebitda/{c}_revenue".
func (r *recorder) add(name string, y session.Year, formula, excel string, inputs map[string]float64, result float64) {
	r.steps = append(r.steps, session.CalculationStep{
		Metric:       name,
		Year:         y,
		Formula:      formula,
		FormulaExcel: strings.ReplaceAll(excel, "{c}", column(y)),
		Inputs:       inputs,
		Result:       result,
	})
}

// at returns the field for year y out of a current/prior pair.
func at(y session.Year, current, prior *float64) *float64 {
	if y == session.Prior {
		return prior
	}
	return current
}

// Format says how a derived quantity is displayed.
type Format int

const (
	Currency Format = iota
	Percent
	Multiple
	Days
)

// Row is one derived quantity with both periods, for display.
type Row struct {
	Name    string
	Current float64
	Prior   float64
	Format  Format
}

// Delta is current minus prior.
func (r Row) Delta() float64 { return r.Current - r.Prior }

func deltas(rows []Row) map[string]float64 {
	out := make(map[string]float64, len(rows))
	for _, r := range rows {
		out[r.Name+"_delta"] = r.Delta()
	}
	return out
}
