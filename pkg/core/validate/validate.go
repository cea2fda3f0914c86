// Package validate runs tolerance-based consistency checks over a session's
// raw values. Checks never fail with an error: they produce structured,
// severity-tagged results for human review.
package validate

import (
	"math"

	"financial_review/pkg/core/session"
)

// Severity says whether a failed check should block approval.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// =============================================================================
// CHECK RESULTS
// =============================================================================

// Check is one rule evaluated for one fiscal year.
type Check struct {
	ID          string       `json:"check_id"`
	Description string       `json:"description"`
	Formula     string       `json:"formula"`
	LHS         float64      `json:"lhs_value"` // computed
	RHS         float64      `json:"rhs_value"` // expected
	Difference  float64      `json:"difference"`
	Tolerance   float64      `json:"tolerance"` // fraction, 0.01 = 1%
	Passed      bool         `json:"passed"`
	Severity    Severity     `json:"severity"`
	Year        session.Year `json:"year"`
	Skipped     bool         `json:"skipped"` // required inputs were missing
}

// Failed reports whether the check ran and did not pass.
func (c Check) Failed() bool { return !c.Passed && !c.Skipped }

// Result is the ordered set of checks from one verification run.
type Result struct {
	Checks []Check `json:"checks"`
}

// PassCount counts checks that ran and passed.
func (r Result) PassCount() int {
	return r.count(func(c Check) bool { return c.Passed && !c.Skipped })
}

// FailCount counts checks that ran and failed.
func (r Result) FailCount() int { return r.count(Check.Failed) }

func (r Result) WarningCount() int {
	return r.count(func(c Check) bool { return c.Failed() && c.Severity == SeverityWarning })
}

func (r Result) ErrorCount() int {
	return r.count(func(c Check) bool { return c.Failed() && c.Severity == SeverityError })
}

func (r Result) SkipCount() int {
	return r.count(func(c Check) bool { return c.Skipped })
}

// Blocking reports whether any error-severity check failed.
func (r Result) Blocking() bool { return r.ErrorCount() > 0 }

// Failures returns the checks that ran and failed, in order.
func (r Result) Failures() []Check {
	var out []Check
	for _, c := range r.Checks {
		if c.Failed() {
			out = append(out, c)
		}
	}
	return out
}

func (r Result) count(pred func(Check) bool) int {
	n := 0
	for _, c := range r.Checks {
		if pred(c) {
			n++
		}
	}
	return n
}

// Summary is the serialized form with derived counts.
type Summary struct {
	Checks       []Check `json:"checks"`
	PassCount    int     `json:"pass_count"`
	FailCount    int     `json:"fail_count"`
	WarningCount int     `json:"warning_count"`
	ErrorCount   int     `json:"error_count"`
	SkipCount    int     `json:"skip_count"`
}

func (r Result) Summary() Summary {
	return Summary{
		Checks:       r.Checks,
		PassCount:    r.PassCount(),
		FailCount:    r.FailCount(),
		WarningCount: r.WarningCount(),
		ErrorCount:   r.ErrorCount(),
		SkipCount:    r.SkipCount(),
	}
}

// =============================================================================
// TOLERANCE
// =============================================================================

// WithinTolerance compares lhs and rhs by relative difference
// |lhs-rhs| / max(|lhs|,|rhs|). Two zeros always agree.
func WithinTolerance(lhs, rhs, tolerance float64) bool {
	maxVal := math.Max(math.Abs(lhs), math.Abs(rhs))
	if maxVal == 0 {
		return true
	}
	return math.Abs(lhs-rhs)/maxVal <= tolerance
}
