package validate

import (
	"math"

	"financial_review/pkg/core/metric"
	"financial_review/pkg/core/session"
)

// term is one signed component of a sum.
type term struct {
	key  metric.Key
	sign float64
}

func plus(k metric.Key) term  { return term{k, 1} }
func minus(k metric.Key) term { return term{k, -1} }

// rule sums lhs and compares it with a single reported total.
type rule struct {
	id          string
	description string
	formula     string
	lhs         []term
	rhs         metric.Key
	tolerance   float64
	severity    Severity
}

// =============================================================================
// REGISTRY
// =============================================================================

var (
	grossProfitRule = rule{
		id:          "gross_profit",
		description: "Gross Profit Check",
		formula:     "Revenue - Cost of Revenue = Gross Profit",
		lhs:         []term{plus(metric.Revenue), minus(metric.CostOfRevenue)},
		rhs:         metric.GrossProfit,
		tolerance:   0.01,
		severity:    SeverityError,
	}

	operatingIncomeRule = rule{
		id:          "operating_income",
		description: "Operating Income Check",
		formula:     "Gross Profit - SGA - R&D - D&A - Other OpEx = Operating Income",
		lhs: []term{
			plus(metric.GrossProfit),
			minus(metric.SGAExpense),
			minus(metric.RDExpense),
			minus(metric.DepreciationAmortization),
			minus(metric.OtherOperatingExpense),
		},
		rhs:       metric.OperatingIncome,
		tolerance: 0.05,
		severity:  SeverityWarning,
	}

	netIncomeRule = rule{
		id:          "net_income",
		description: "Net Income Check",
		formula:     "Income Before Tax - Income Tax = Net Income",
		lhs:         []term{plus(metric.IncomeBeforeTax), minus(metric.IncomeTaxExpense)},
		rhs:         metric.NetIncome,
		tolerance:   0.05,
		severity:    SeverityWarning,
	}

	currentAssetsRule = rule{
		id:          "current_assets",
		description: "Current Assets Check",
		formula:     "Cash + ST Investments + A/R + Inventories + Other CA = Total Current Assets",
		lhs: []term{
			plus(metric.Cash),
			plus(metric.ShortTermInvestments),
			plus(metric.AccountsReceivable),
			plus(metric.Inventories),
			plus(metric.OtherCurrentAssets),
		},
		rhs:       metric.CurrentAssets,
		tolerance: 0.02,
		severity:  SeverityWarning,
	}

	currentLiabilitiesRule = rule{
		id:          "current_liabilities",
		description: "Current Liabilities Check",
		formula:     "A/P + ST Debt + Accrued + Other CL = Total Current Liabilities",
		lhs: []term{
			plus(metric.AccountsPayable),
			plus(metric.ShortTermDebt),
			plus(metric.AccruedLiabilities),
			plus(metric.OtherCurrentLiabilities),
		},
		rhs:       metric.CurrentLiabilities,
		tolerance: 0.02,
		severity:  SeverityWarning,
	}

	cashFlowRule = rule{
		id:          "cash_flow",
		description: "Cash Flow Check",
		formula:     "Cash from Ops + Cash from Investing + Cash from Financing = Net Change in Cash",
		lhs: []term{
			plus(metric.CashFromOperations),
			plus(metric.CashFromInvesting),
			plus(metric.CashFromFinancing),
		},
		rhs:       metric.NetChangeInCash,
		tolerance: 0.01,
		severity:  SeverityError,
	}
)

const (
	accountingEquationTolerance = 0.005
	accountingEquationFormula   = "Total Assets = Total Liabilities + Stockholders' Equity"
)

// Run evaluates every rule for the current year, then the prior year. It
// only reads s.
func Run(s *session.Session) Result {
	checks := make([]Check, 0, 14)
	for _, y := range session.Years {
		checks = append(checks,
			grossProfitRule.eval(s, y),
			operatingIncomeRule.eval(s, y),
			netIncomeRule.eval(s, y),
			currentAssetsRule.eval(s, y),
			accountingEquation(s, y),
			currentLiabilitiesRule.eval(s, y),
			cashFlowRule.eval(s, y),
		)
	}
	return Result{Checks: checks}
}

// eval skips when the total or any component is absent; a partial sum
// would be misleading.
func (r rule) eval(s *session.Session, y session.Year) Check {
	c := Check{
		ID:          r.id,
		Description: r.description,
		Formula:     r.formula,
		Tolerance:   r.tolerance,
		Severity:    r.severity,
		Year:        y,
	}

	rhs, ok := s.Get(r.rhs, y)
	if !ok {
		return skip(c)
	}
	c.RHS = rhs

	var lhs float64
	for _, t := range r.lhs {
		v, ok := s.Get(t.key, y)
		if !ok {
			return skip(c)
		}
		lhs += t.sign * v
	}

	return compare(c, lhs, rhs)
}

// accountingEquation checks Total Assets against the sum of liabilities and
// equity. Any missing side skips the check.
func accountingEquation(s *session.Session, y session.Year) Check {
	c := Check{
		ID:          "accounting_equation",
		Description: "Accounting Equation",
		Formula:     accountingEquationFormula,
		Tolerance:   accountingEquationTolerance,
		Severity:    SeverityError,
		Year:        y,
	}

	assets, okA := s.Get(metric.TotalAssets, y)
	liabilities, okL := s.Get(metric.TotalLiabilities, y)
	equity, okE := s.Get(metric.StockholdersEquity, y)
	if !okA || !okL || !okE {
		return skip(c)
	}
	return compare(c, assets, liabilities+equity)
}

func compare(c Check, lhs, rhs float64) Check {
	c.LHS = lhs
	c.RHS = rhs
	c.Difference = math.Abs(lhs - rhs)
	c.Passed = WithinTolerance(lhs, rhs, c.Tolerance)
	return c
}

// skip marks c as not evaluated. Skipped checks count as passed so they
// never block, but they are excluded from pass and fail counts.
func skip(c Check) Check {
	c.LHS = 0
	c.Difference = 0
	c.Passed = true
	c.Skipped = true
	return c
}
