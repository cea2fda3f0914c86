// Package report renders a review as a plain-text summary for the terminal.
package report

import (
	"fmt"
	"io"
	"strings"

	"financial_review/pkg/core/calc"
	"financial_review/pkg/core/metric"
	"financial_review/pkg/core/session"
	"financial_review/pkg/core/validate"
)

// Summary renders the session header, the metric and ratio tables and the
// verification outcome.
func Summary(s *session.Session, res calc.Result, v validate.Result) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s", s.CompanyName)
	if s.Ticker != "" {
		fmt.Fprintf(&b, " (%s)", s.Ticker)
	}
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Session: %s\n", s.ID)
	fmt.Fprintf(&b, "Fiscal years: %s vs %s\n", orDash(s.FiscalYearEnd), orDash(s.FiscalYearEndPrior))
	fmt.Fprintf(&b, "Source: %s", orDash(s.Source))
	if s.NormalizedFrom != "" {
		fmt.Fprintf(&b, " (reported in %s)", s.NormalizedFrom)
	}
	b.WriteString("\n")
	if s.IsApproved && s.ApprovedAt != nil {
		fmt.Fprintf(&b, "Approved: %s\n", s.ApprovedAt.Format("2006-01-02 15:04 MST"))
	}

	b.WriteString("\n## Metrics\n\n")
	table(&b, res.Metrics.Rows())

	b.WriteString("\n## Ratios\n\n")
	table(&b, res.Ratios.Rows())

	reported(&b, s)

	b.WriteString("\n## Verification\n\n")
	fmt.Fprintf(&b, "%d passed, %d failed (%d errors, %d warnings), %d skipped\n\n",
		v.PassCount(), v.FailCount(), v.ErrorCount(), v.WarningCount(), v.SkipCount())
	if failures := v.Failures(); len(failures) > 0 {
		b.WriteString("| Check | Year | Severity | Computed | Reported | Difference |\n")
		b.WriteString("|---|---|---|---|---|---|\n")
		for _, c := range failures {
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s |\n",
				c.Description, c.Year, c.Severity, Currency(c.LHS), Currency(c.RHS), Currency(c.Difference))
		}
	}

	if len(s.NotFound) > 0 {
		b.WriteString("\n## Not found\n\n")
		for _, nf := range s.NotFound {
			fmt.Fprintf(&b, "- %s: %s\n", nf.DisplayName, nf.Note)
		}
	}
	return b.String()
}

// Write renders Summary to w.
func Write(w io.Writer, s *session.Session, res calc.Result, v validate.Result) error {
	_, err := io.WriteString(w, Summary(s, res, v))
	return err
}

func table(b *strings.Builder, rows []calc.Row) {
	b.WriteString("| Metric | Current | Prior | Change |\n")
	b.WriteString("|---|---|---|---|\n")
	for _, r := range rows {
		fmt.Fprintf(b, "| %s | %s | %s | %s |\n",
			metric.DisplayName(r.Name), Value(r.Current, r.Format), Value(r.Prior, r.Format), Delta(r.Delta(), r.Format))
	}
}

// reported lists the raw values present in s, grouped by statement.
func reported(b *strings.Builder, s *session.Session) {
	if len(s.RawValues) == 0 {
		return
	}
	b.WriteString("\n## Reported values\n")
	for _, st := range metric.Statements {
		var rows []session.ExtractedValue
		for _, k := range metric.ByStatement(st) {
			if ev, ok := s.RawValues[k]; ok {
				rows = append(rows, ev)
			}
		}
		if len(rows) == 0 {
			continue
		}
		fmt.Fprintf(b, "\n### %s\n\n", st)
		b.WriteString("| Line item | Current | Prior | Source |\n")
		b.WriteString("|---|---|---|---|\n")
		for _, ev := range rows {
			fmt.Fprintf(b, "| %s | %s | %s | %s |\n",
				ev.DisplayName, Currency(ev.Value), Currency(ev.ValuePrior), citedAs(ev))
		}
	}
}

func citedAs(ev session.ExtractedValue) string {
	if ev.Citation != nil && ev.Citation.Concept != "" {
		return ev.Citation.Concept
	}
	return orDash(ev.Rationale)
}

func orDash(s string) string {
	if s == "" {
		return emptyCol
	}
	return s
}
