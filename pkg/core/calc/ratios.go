package calc

import (
	"financial_review/pkg/core/metric"
	"financial_review/pkg/core/session"
)

// Ratios is the derived ratios bundle.
type Ratios struct {
	// Liquidity
	CurrentRatio      float64 `json:"current_ratio"`
	CurrentRatioPrior float64 `json:"current_ratio_prior"`
	CashRatio         float64 `json:"cash_ratio"`
	CashRatioPrior    float64 `json:"cash_ratio_prior"`

	// Leverage
	DebtToEquity      float64 `json:"debt_to_equity"`
	DebtToEquityPrior float64 `json:"debt_to_equity_prior"`

	// Coverage
	EBITDAInterestCoverage      float64 `json:"ebitda_interest_coverage"`
	EBITDAInterestCoveragePrior float64 `json:"ebitda_interest_coverage_prior"`
	NetDebtToEBITDA             float64 `json:"net_debt_to_ebitda"`
	NetDebtToEBITDAPrior        float64 `json:"net_debt_to_ebitda_prior"`
	NetDebtToAdjEBITDA          float64 `json:"net_debt_to_adj_ebitda"`
	NetDebtToAdjEBITDAPrior     float64 `json:"net_debt_to_adj_ebitda_prior"`

	// Efficiency
	DaysSalesOutstanding      float64 `json:"days_sales_outstanding"`
	DaysSalesOutstandingPrior float64 `json:"days_sales_outstanding_prior"`

	WorkingCapital      float64 `json:"working_capital"`
	WorkingCapitalPrior float64 `json:"working_capital_prior"`

	// Returns
	ReturnOnAssets      float64 `json:"return_on_assets"`
	ReturnOnAssetsPrior float64 `json:"return_on_assets_prior"`
	ReturnOnEquity      float64 `json:"return_on_equity"`
	ReturnOnEquityPrior float64 `json:"return_on_equity_prior"`
}

// ratioDef is a ratio of two inputs, each read for the year being evaluated.
type ratioDef struct {
	name    string
	formula string
	excel   string
	num     string
	den     string
	fields  func(*Ratios) (*float64, *float64)
}

// CalculateRatios derives the ratios bundle from s. The EBITDA family comes
// from CalculateMetrics and is not recomputed here.
func CalculateRatios(s *session.Session, ebitda, ebitdaPrior, adjustedEBITDA, adjustedEBITDAPrior float64) (Ratios, []session.CalculationStep) {
	var out Ratios
	r := &recorder{}

	// inputs holds every named input for one year, raw and derived.
	inputs := map[session.Year]map[string]float64{}
	for _, y := range session.Years {
		in := map[string]float64{}
		for _, k := range []metric.Key{
			metric.CurrentAssets, metric.CurrentLiabilities, metric.Cash, metric.TotalDebt,
			metric.StockholdersEquity, metric.InterestExpense, metric.AccountsReceivable,
			metric.Revenue, metric.NetIncome, metric.TotalAssets,
		} {
			in[string(k)] = s.Value(k, y)
		}
		in["ebitda"] = *at(y, &ebitda, &ebitdaPrior)
		in["adjusted_ebitda"] = *at(y, &adjustedEBITDA, &adjustedEBITDAPrior)
		inputs[y] = in
	}

	quotient := func(d ratioDef) {
		for _, y := range session.Years {
			n, den := inputs[y][d.num], inputs[y][d.den]
			cur, prior := d.fields(&out)
			field := at(y, cur, prior)
			*field = safeDiv(n, den)
			r.add(d.name, y, d.formula, d.excel, map[string]float64{d.num: n, d.den: den}, *field)
		}
	}

	quotient(ratioDef{"current_ratio",
		"Current Ratio = Current Assets / Current Liabilities",
		"={c}_current_assets/{c}_current_liabilities",
		"current_assets", "current_liabilities",
		func(o *Ratios) (*float64, *float64) { return &o.CurrentRatio, &o.CurrentRatioPrior }})

	quotient(ratioDef{"cash_ratio",
		"Cash Ratio = Cash / Current Liabilities",
		"={c}_cash/{c}_current_liabilities",
		"cash", "current_liabilities",
		func(o *Ratios) (*float64, *float64) { return &o.CashRatio, &o.CashRatioPrior }})

	quotient(ratioDef{"debt_to_equity",
		"Debt-to-Equity = Total Debt / Stockholders' Equity",
		"={c}_total_debt/{c}_stockholders_equity",
		"total_debt", "stockholders_equity",
		func(o *Ratios) (*float64, *float64) { return &o.DebtToEquity, &o.DebtToEquityPrior }})

	quotient(ratioDef{"ebitda_interest_coverage",
		"EBITDA Interest Coverage = EBITDA / Interest Expense",
		"={c}_ebitda/{c}_interest_expense",
		"ebitda", "interest_expense",
		func(o *Ratios) (*float64, *float64) { return &o.EBITDAInterestCoverage, &o.EBITDAInterestCoveragePrior }})

	// ========== NET DEBT ==========
	// Recorded as a step only; it feeds the two leverage ratios below.
	for _, y := range session.Years {
		debt, cash := inputs[y]["total_debt"], inputs[y]["cash"]
		inputs[y]["net_debt"] = debt - cash
		r.add("net_debt", y,
			"Net Debt = Total Debt - Cash",
			"={c}_total_debt-{c}_cash",
			map[string]float64{"total_debt": debt, "cash": cash},
			debt-cash)
	}

	quotient(ratioDef{"net_debt_to_ebitda",
		"Net Debt / EBITDA = Net Debt / EBITDA",
		"={c}_net_debt/{c}_ebitda",
		"net_debt", "ebitda",
		func(o *Ratios) (*float64, *float64) { return &o.NetDebtToEBITDA, &o.NetDebtToEBITDAPrior }})

	quotient(ratioDef{"net_debt_to_adj_ebitda",
		"Net Debt / Adj. EBITDA = Net Debt / Adjusted EBITDA",
		"={c}_net_debt/{c}_adjusted_ebitda",
		"net_debt", "adjusted_ebitda",
		func(o *Ratios) (*float64, *float64) { return &o.NetDebtToAdjEBITDA, &o.NetDebtToAdjEBITDAPrior }})

	// ========== DAYS SALES OUTSTANDING ==========
	for _, y := range session.Years {
		ar, rev := inputs[y]["accounts_receivable"], inputs[y]["revenue"]
		field := at(y, &out.DaysSalesOutstanding, &out.DaysSalesOutstandingPrior)
		*field = safeDiv(ar, rev) * 365
		r.add("days_sales_outstanding", y,
			"Days Sales Outstanding = (Accounts Receivable / Revenue) × 365",
			"=({c}_accounts_receivable/{c}_revenue)*365",
			map[string]float64{"accounts_receivable": ar, "revenue": rev},
			*field)
	}

	// ========== WORKING CAPITAL ==========
	for _, y := range session.Years {
		ca, cl := inputs[y]["current_assets"], inputs[y]["current_liabilities"]
		field := at(y, &out.WorkingCapital, &out.WorkingCapitalPrior)
		*field = ca - cl
		r.add("working_capital", y,
			"Working Capital = Current Assets - Current Liabilities",
			"={c}_current_assets-{c}_current_liabilities",
			map[string]float64{"current_assets": ca, "current_liabilities": cl},
			*field)
	}

	quotient(ratioDef{"return_on_assets",
		"Return on Assets = Net Income / Total Assets",
		"={c}_net_income/{c}_total_assets",
		"net_income", "total_assets",
		func(o *Ratios) (*float64, *float64) { return &o.ReturnOnAssets, &o.ReturnOnAssetsPrior }})

	quotient(ratioDef{"return_on_equity",
		"Return on Equity = Net Income / Stockholders' Equity",
		"={c}_net_income/{c}_stockholders_equity",
		"net_income", "stockholders_equity",
		func(o *Ratios) (*float64, *float64) { return &o.ReturnOnEquity, &o.ReturnOnEquityPrior }})

	return out, r.steps
}

// Rows lists the ratios in display order.
func (r Ratios) Rows() []Row {
	return []Row{
		{"current_ratio", r.CurrentRatio, r.CurrentRatioPrior, Multiple},
		{"cash_ratio", r.CashRatio, r.CashRatioPrior, Multiple},
		{"debt_to_equity", r.DebtToEquity, r.DebtToEquityPrior, Multiple},
		{"ebitda_interest_coverage", r.EBITDAInterestCoverage, r.EBITDAInterestCoveragePrior, Multiple},
		{"net_debt_to_ebitda", r.NetDebtToEBITDA, r.NetDebtToEBITDAPrior, Multiple},
		{"net_debt_to_adj_ebitda", r.NetDebtToAdjEBITDA, r.NetDebtToAdjEBITDAPrior, Multiple},
		{"days_sales_outstanding", r.DaysSalesOutstanding, r.DaysSalesOutstandingPrior, Days},
		{"working_capital", r.WorkingCapital, r.WorkingCapitalPrior, Currency},
		{"return_on_assets", r.ReturnOnAssets, r.ReturnOnAssetsPrior, Percent},
		{"return_on_equity", r.ReturnOnEquity, r.ReturnOnEquityPrior, Percent},
	}
}

// Deltas returns current minus prior for every ratio, keyed "<name>_delta".
func (r Ratios) Deltas() map[string]float64 { return deltas(r.Rows()) }
