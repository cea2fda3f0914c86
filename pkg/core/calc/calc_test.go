package calc

import (
	"testing"

	"financial_review/pkg/core/metric"
	"financial_review/pkg/core/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSession(t *testing.T, current, prior map[metric.Key]float64) *session.Session {
	t.Helper()
	s := &session.Session{ID: "test", Unit: "dollars"}
	for k, v := range current {
		require.NoError(t, s.Set(k, session.Current, v))
	}
	for k, v := range prior {
		require.NoError(t, s.Set(k, session.Prior, v))
	}
	return s
}

func TestDivide(t *testing.T) {
	assert.Equal(t, 0.0, Divide(10, 0, 0))
	assert.Equal(t, -1.0, Divide(10, 0, -1))
	assert.Equal(t, 2.5, Divide(10, 4, 0))
	assert.Equal(t, 0.0, safeDiv(0, 0))
}

func TestCalculateMetricsScenario(t *testing.T) {
	s := newSession(t, map[metric.Key]float64{
		metric.Revenue:                  1000000,
		metric.CostOfRevenue:            600000,
		metric.OperatingIncome:          250000,
		metric.DepreciationAmortization: 50000,
	}, nil)

	m, steps := CalculateMetrics(s)

	assert.Equal(t, 400000.0, m.GrossProfit)
	assert.Equal(t, 300000.0, m.EBITDA)
	assert.InDelta(t, 0.30, m.EBITDAMargin, 1e-12)
	assert.InDelta(t, 0.40, m.GrossProfitMargin, 1e-12)
	assert.InDelta(t, 0.25, m.OperatingIncomeMargin, 1e-12)
	assert.Equal(t, m.EBITDA, m.AdjustedEBITDA, "no stock compensation falls back to EBITDA")
	assert.Equal(t, 1000000.0, m.TopLineRevenue)

	// Prior year has no data and must not fail.
	assert.Equal(t, 0.0, m.GrossProfitPrior)
	assert.Equal(t, 0.0, m.EBITDAMarginPrior)

	require.Len(t, steps, 18)
	assert.Equal(t, "gross_profit", steps[0].Metric)
	assert.Equal(t, session.Current, steps[0].Year)
	assert.Equal(t, "Gross Profit = Revenue - Cost of Revenue", steps[0].Formula)
	assert.Equal(t, "=B_revenue-B_cost_of_revenue", steps[0].FormulaExcel)
	assert.Equal(t, session.Prior, steps[1].Year)
	assert.Equal(t, "=C_revenue-C_cost_of_revenue", steps[1].FormulaExcel)

	wantOrder := []string{
		"gross_profit", "gross_profit_margin", "operating_income_margin", "ebitda", "ebitda_margin",
		"adjusted_ebitda", "adjusted_ebitda_margin", "net_income_margin", "tangible_net_worth",
	}
	for i, name := range wantOrder {
		assert.Equal(t, name, steps[2*i].Metric)
		assert.Equal(t, name, steps[2*i+1].Metric)
	}

	adj := steps[10]
	assert.Equal(t, "Adjusted EBITDA = EBITDA (no SBC data available)", adj.Formula)
	assert.Equal(t, "=B_ebitda", adj.FormulaExcel)
}

func TestCalculateMetricsReportedGrossProfit(t *testing.T) {
	s := newSession(t,
		map[metric.Key]float64{metric.Revenue: 1000, metric.CostOfRevenue: 600, metric.GrossProfit: 420},
		map[metric.Key]float64{metric.Revenue: 900, metric.CostOfRevenue: 500},
	)

	m, steps := CalculateMetrics(s)
	assert.Equal(t, 420.0, m.GrossProfit, "reported value is used verbatim")
	assert.Equal(t, 400.0, m.GrossProfitPrior)

	assert.Equal(t, "Gross Profit (reported directly)", steps[0].Formula)
	assert.Equal(t, "=RawValues!B_gross_profit", steps[0].FormulaExcel)
	assert.Equal(t, map[string]float64{"gross_profit_raw": 420}, steps[0].Inputs)
	assert.Equal(t, "Gross Profit = Revenue - Cost of Revenue", steps[1].Formula)
}

func TestCalculateMetricsAdjustedEBITDA(t *testing.T) {
	s := newSession(t,
		map[metric.Key]float64{metric.OperatingIncome: 100, metric.DepreciationAmortization: 20, metric.StockCompensation: 30},
		map[metric.Key]float64{metric.OperatingIncome: 80, metric.DepreciationAmortization: 10},
	)

	m, _ := CalculateMetrics(s)
	assert.Equal(t, 150.0, m.AdjustedEBITDA)
	assert.Equal(t, 90.0, m.AdjustedEBITDAPrior)
	assert.Equal(t, m.EBITDAPrior, m.AdjustedEBITDAPrior)
}

func TestCalculateMetricsTangibleNetWorth(t *testing.T) {
	s := newSession(t, map[metric.Key]float64{
		metric.StockholdersEquity: 1000, metric.IntangibleAssets: 150, metric.Goodwill: 250,
	}, nil)
	m, _ := CalculateMetrics(s)
	assert.Equal(t, 600.0, m.TangibleNetWorth)
}

func TestCalculateRatios(t *testing.T) {
	s := newSession(t, map[metric.Key]float64{
		metric.CurrentAssets:      500,
		metric.CurrentLiabilities: 250,
		metric.Cash:               100,
		metric.TotalDebt:          400,
		metric.StockholdersEquity: 800,
		metric.InterestExpense:    30,
		metric.AccountsReceivable: 120,
		metric.Revenue:            1460,
		metric.NetIncome:          80,
		metric.TotalAssets:        1600,
	}, nil)

	r, steps := CalculateRatios(s, 150, 0, 200, 0)

	assert.Equal(t, 2.0, r.CurrentRatio)
	assert.Equal(t, 0.4, r.CashRatio)
	assert.Equal(t, 0.5, r.DebtToEquity)
	assert.Equal(t, 5.0, r.EBITDAInterestCoverage)
	assert.Equal(t, 2.0, r.NetDebtToEBITDA)
	assert.Equal(t, 1.5, r.NetDebtToAdjEBITDA)
	assert.InDelta(t, 30.0, r.DaysSalesOutstanding, 1e-9)
	assert.Equal(t, 250.0, r.WorkingCapital)
	assert.Equal(t, 0.05, r.ReturnOnAssets)
	assert.Equal(t, 0.1, r.ReturnOnEquity)

	// Prior year is empty: every division falls back to zero.
	assert.Equal(t, 0.0, r.CurrentRatioPrior)
	assert.Equal(t, 0.0, r.NetDebtToEBITDAPrior)

	require.Len(t, steps, 22)
	var netDebt []session.CalculationStep
	for _, st := range steps {
		if st.Metric == "net_debt" {
			netDebt = append(netDebt, st)
		}
	}
	require.Len(t, netDebt, 2)
	assert.Equal(t, 300.0, netDebt[0].Result)
	assert.Equal(t, "=B_total_debt-B_cash", netDebt[0].FormulaExcel)
	assert.Equal(t, "=C_total_debt-C_cash", netDebt[1].FormulaExcel)
}

func TestRunIsDeterministic(t *testing.T) {
	s := newSession(t,
		map[metric.Key]float64{metric.Revenue: 1000000, metric.CostOfRevenue: 600000, metric.OperatingIncome: 250000,
			metric.DepreciationAmortization: 50000, metric.TotalDebt: 200000, metric.Cash: 50000},
		map[metric.Key]float64{metric.Revenue: 900000, metric.OperatingIncome: 200000},
	)
	before := s.Clone()

	a := Run(s)
	b := Run(s)
	assert.Equal(t, a, b)
	assert.Equal(t, before, s.Clone(), "calculation does not modify the session")

	require.Len(t, a.Steps, 40)
	assert.Equal(t, "gross_profit", a.Steps[0].Metric)
	assert.Equal(t, "current_ratio", a.Steps[18].Metric)
	assert.InDelta(t, 0.5, a.Ratios.NetDebtToEBITDA, 1e-12)
}

func TestDeltas(t *testing.T) {
	m := Metrics{EBITDA: 300, EBITDAPrior: 250, GrossProfitMargin: 0.4, GrossProfitMarginPrior: 0.5}
	d := m.Deltas()
	assert.Equal(t, 50.0, d["ebitda_delta"])
	assert.InDelta(t, -0.1, d["gross_profit_margin_delta"], 1e-12)
	assert.Len(t, d, 13)

	r := Ratios{CurrentRatio: 2, CurrentRatioPrior: 1.5}
	assert.Equal(t, 0.5, r.Deltas()["current_ratio_delta"])
	assert.Len(t, r.Deltas(), 10)
}
