package calc

import (
	"financial_review/pkg/core/metric"
	"financial_review/pkg/core/session"
)

// Metrics is the derived metrics bundle. Every quantity carries both periods.
type Metrics struct {
	TangibleNetWorth      float64 `json:"tangible_net_worth"`
	TangibleNetWorthPrior float64 `json:"tangible_net_worth_prior"`

	CashBalance      float64 `json:"cash_balance"`
	CashBalancePrior float64 `json:"cash_balance_prior"`

	TopLineRevenue      float64 `json:"top_line_revenue"`
	TopLineRevenuePrior float64 `json:"top_line_revenue_prior"`

	GrossProfit            float64 `json:"gross_profit"`
	GrossProfitPrior       float64 `json:"gross_profit_prior"`
	GrossProfitMargin      float64 `json:"gross_profit_margin"`
	GrossProfitMarginPrior float64 `json:"gross_profit_margin_prior"`

	OperatingIncome            float64 `json:"operating_income"`
	OperatingIncomePrior       float64 `json:"operating_income_prior"`
	OperatingIncomeMargin      float64 `json:"operating_income_margin"`
	OperatingIncomeMarginPrior float64 `json:"operating_income_margin_prior"`

	EBITDA            float64 `json:"ebitda"`
	EBITDAPrior       float64 `json:"ebitda_prior"`
	EBITDAMargin      float64 `json:"ebitda_margin"`
	EBITDAMarginPrior float64 `json:"ebitda_margin_prior"`

	AdjustedEBITDA            float64 `json:"adjusted_ebitda"`
	AdjustedEBITDAPrior       float64 `json:"adjusted_ebitda_prior"`
	AdjustedEBITDAMargin      float64 `json:"adjusted_ebitda_margin"`
	AdjustedEBITDAMarginPrior float64 `json:"adjusted_ebitda_margin_prior"`

	NetIncome            float64 `json:"net_income"`
	NetIncomePrior       float64 `json:"net_income_prior"`
	NetIncomeMargin      float64 `json:"net_income_margin"`
	NetIncomeMarginPrior float64 `json:"net_income_margin_prior"`
}

// CalculateMetrics derives the metrics bundle from s. Steps are ordered by
// quantity, current year before prior year.
func CalculateMetrics(s *session.Session) (Metrics, []session.CalculationStep) {
	var m Metrics
	r := &recorder{}
	val := s.Value

	// Pass-through values.
	for _, y := range session.Years {
		*at(y, &m.CashBalance, &m.CashBalancePrior) = val(metric.Cash, y)
		*at(y, &m.TopLineRevenue, &m.TopLineRevenuePrior) = val(metric.Revenue, y)
		*at(y, &m.OperatingIncome, &m.OperatingIncomePrior) = val(metric.OperatingIncome, y)
		*at(y, &m.NetIncome, &m.NetIncomePrior) = val(metric.NetIncome, y)
	}

	// ========== GROSS PROFIT ==========
	// Reported value wins when present.
	for _, y := range session.Years {
		reported := val(metric.GrossProfit, y)
		gp := at(y, &m.GrossProfit, &m.GrossProfitPrior)
		if reported != 0 {
			*gp = reported
			r.add("gross_profit", y,
				"Gross Profit (reported directly)",
				"=RawValues!{c}_gross_profit",
				map[string]float64{"gross_profit_raw": reported},
				*gp)
			continue
		}
		rev, cor := val(metric.Revenue, y), val(metric.CostOfRevenue, y)
		*gp = rev - cor
		r.add("gross_profit", y,
			"Gross Profit = Revenue - Cost of Revenue",
			"={c}_revenue-{c}_cost_of_revenue",
			map[string]float64{"revenue": rev, "cost_of_revenue": cor},
			*gp)
	}

	// ========== GROSS MARGIN ==========
	for _, y := range session.Years {
		gp, rev := *at(y, &m.GrossProfit, &m.GrossProfitPrior), val(metric.Revenue, y)
		out := at(y, &m.GrossProfitMargin, &m.GrossProfitMarginPrior)
		*out = safeDiv(gp, rev)
		r.add("gross_profit_margin", y,
			"Gross Margin = Gross Profit / Revenue",
			"={c}_gross_profit/{c}_revenue",
			map[string]float64{"gross_profit": gp, "revenue": rev},
			*out)
	}

	// ========== OPERATING MARGIN ==========
	for _, y := range session.Years {
		oi, rev := val(metric.OperatingIncome, y), val(metric.Revenue, y)
		out := at(y, &m.OperatingIncomeMargin, &m.OperatingIncomeMarginPrior)
		*out = safeDiv(oi, rev)
		r.add("operating_income_margin", y,
			"Operating Margin = Operating Income / Revenue",
			"={c}_operating_income/{c}_revenue",
			map[string]float64{"operating_income": oi, "revenue": rev},
			*out)
	}

	// ========== EBITDA ==========
	for _, y := range session.Years {
		oi, da := val(metric.OperatingIncome, y), val(metric.DepreciationAmortization, y)
		out := at(y, &m.EBITDA, &m.EBITDAPrior)
		*out = oi + da
		r.add("ebitda", y,
			"EBITDA = Operating Income + Depreciation & Amortization",
			"={c}_operating_income+{c}_depreciation_amortization",
			map[string]float64{"operating_income": oi, "depreciation_amortization": da},
			*out)
	}

	// ========== EBITDA MARGIN ==========
	for _, y := range session.Years {
		ebitda, rev := *at(y, &m.EBITDA, &m.EBITDAPrior), val(metric.Revenue, y)
		out := at(y, &m.EBITDAMargin, &m.EBITDAMarginPrior)
		*out = safeDiv(ebitda, rev)
		r.add("ebitda_margin", y,
			"EBITDA Margin = EBITDA / Revenue",
			"={c}_ebitda/{c}_revenue",
			map[string]float64{"ebitda": ebitda, "revenue": rev},
			*out)
	}

	// ========== ADJUSTED EBITDA ==========
	// Falls back to EBITDA when there is no stock-based compensation figure.
	for _, y := range session.Years {
		ebitda, sbc := *at(y, &m.EBITDA, &m.EBITDAPrior), val(metric.StockCompensation, y)
		out := at(y, &m.AdjustedEBITDA, &m.AdjustedEBITDAPrior)
		if sbc != 0 {
			*out = ebitda + sbc
			r.add("adjusted_ebitda", y,
				"Adjusted EBITDA = EBITDA + Stock-Based Compensation",
				"={c}_ebitda+{c}_stock_compensation",
				map[string]float64{"ebitda": ebitda, "stock_compensation": sbc},
				*out)
			continue
		}
		*out = ebitda
		r.add("adjusted_ebitda", y,
			"Adjusted EBITDA = EBITDA (no SBC data available)",
			"={c}_ebitda",
			map[string]float64{"ebitda": ebitda},
			*out)
	}

	// ========== ADJUSTED EBITDA MARGIN ==========
	for _, y := range session.Years {
		adj, rev := *at(y, &m.AdjustedEBITDA, &m.AdjustedEBITDAPrior), val(metric.Revenue, y)
		out := at(y, &m.AdjustedEBITDAMargin, &m.AdjustedEBITDAMarginPrior)
		*out = safeDiv(adj, rev)
		r.add("adjusted_ebitda_margin", y,
			"Adjusted EBITDA Margin = Adjusted EBITDA / Revenue",
			"={c}_adjusted_ebitda/{c}_revenue",
			map[string]float64{"adjusted_ebitda": adj, "revenue": rev},
			*out)
	}

	// ========== NET MARGIN ==========
	for _, y := range session.Years {
		ni, rev := val(metric.NetIncome, y), val(metric.Revenue, y)
		out := at(y, &m.NetIncomeMargin, &m.NetIncomeMarginPrior)
		*out = safeDiv(ni, rev)
		r.add("net_income_margin", y,
			"Net Margin = Net Income / Revenue",
			"={c}_net_income/{c}_revenue",
			map[string]float64{"net_income": ni, "revenue": rev},
			*out)
	}

	// ========== TANGIBLE NET WORTH ==========
	for _, y := range session.Years {
		eq, intang, gw := val(metric.StockholdersEquity, y), val(metric.IntangibleAssets, y), val(metric.Goodwill, y)
		out := at(y, &m.TangibleNetWorth, &m.TangibleNetWorthPrior)
		*out = eq - intang - gw
		r.add("tangible_net_worth", y,
			"Tangible Net Worth = Stockholders' Equity - Intangible Assets - Goodwill",
			"={c}_stockholders_equity-{c}_intangible_assets-{c}_goodwill",
			map[string]float64{"stockholders_equity": eq, "intangible_assets": intang, "goodwill": gw},
			*out)
	}

	return m, r.steps
}

// Rows lists the metrics in display order.
func (m Metrics) Rows() []Row {
	return []Row{
		{"top_line_revenue", m.TopLineRevenue, m.TopLineRevenuePrior, Currency},
		{"gross_profit", m.GrossProfit, m.GrossProfitPrior, Currency},
		{"gross_profit_margin", m.GrossProfitMargin, m.GrossProfitMarginPrior, Percent},
		{"operating_income", m.OperatingIncome, m.OperatingIncomePrior, Currency},
		{"operating_income_margin", m.OperatingIncomeMargin, m.OperatingIncomeMarginPrior, Percent},
		{"ebitda", m.EBITDA, m.EBITDAPrior, Currency},
		{"ebitda_margin", m.EBITDAMargin, m.EBITDAMarginPrior, Percent},
		{"adjusted_ebitda", m.AdjustedEBITDA, m.AdjustedEBITDAPrior, Currency},
		{"adjusted_ebitda_margin", m.AdjustedEBITDAMargin, m.AdjustedEBITDAMarginPrior, Percent},
		{"net_income", m.NetIncome, m.NetIncomePrior, Currency},
		{"net_income_margin", m.NetIncomeMargin, m.NetIncomeMarginPrior, Percent},
		{"cash_balance", m.CashBalance, m.CashBalancePrior, Currency},
		{"tangible_net_worth", m.TangibleNetWorth, m.TangibleNetWorthPrior, Currency},
	}
}

// Deltas returns current minus prior for every metric, keyed "<name>_delta".
func (m Metrics) Deltas() map[string]float64 { return deltas(m.Rows()) }
