package calc

import "financial_review/pkg/core/session"

// Result bundles one full calculation pass.
type Result struct {
	Metrics Metrics                   `json:"metrics"`
	Ratios  Ratios                    `json:"ratios"`
	Steps   []session.CalculationStep `json:"calculation_steps"`
}

// Run computes metrics, then ratios from the metrics' EBITDA family. Metric
// steps precede ratio steps. s is only read.
func Run(s *session.Session) Result {
	m, metricSteps := CalculateMetrics(s)
	r, ratioSteps := CalculateRatios(s, m.EBITDA, m.EBITDAPrior, m.AdjustedEBITDA, m.AdjustedEBITDAPrior)

	steps := make([]session.CalculationStep, 0, len(metricSteps)+len(ratioSteps))
	steps = append(steps, metricSteps...)
	steps = append(steps, ratioSteps...)
	return Result{Metrics: m, Ratios: r, Steps: steps}
}
