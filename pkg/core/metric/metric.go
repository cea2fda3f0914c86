// Package metric defines the closed vocabulary of raw financial line items
// that extraction strategies may emit and the calculators may consume.
package metric

import (
	"sort"
	"strings"

	"github.com/rotisserie/eris"
)

// ErrUnknownKey is returned when a string is not part of the vocabulary.
var ErrUnknownKey = eris.New("metric: unknown key")

// Key identifies one raw line item (e.g. "revenue").
type Key string

// Statement groups keys by the financial statement they are reported on.
type Statement string

const (
	IncomeStatement Statement = "Income Statement"
	BalanceSheet    Statement = "Balance Sheet"
	CashFlow        Statement = "Cash Flow Statement"
)

// =============================================================================
// INCOME STATEMENT
// =============================================================================

const (
	Revenue                  Key = "revenue"
	CostOfRevenue            Key = "cost_of_revenue"
	GrossProfit              Key = "gross_profit"
	SGAExpense               Key = "sga_expense"
	RDExpense                Key = "rd_expense"
	DepreciationAmortization Key = "depreciation_amortization"
	OtherOperatingExpense    Key = "other_operating_expense"
	OperatingIncome          Key = "operating_income"
	InterestExpense          Key = "interest_expense"
	InterestIncome           Key = "interest_income"
	IncomeBeforeTax          Key = "income_before_tax"
	IncomeTaxExpense         Key = "income_tax_expense"
	NetIncome                Key = "net_income"
	StockCompensation        Key = "stock_compensation"
)

// =============================================================================
// BALANCE SHEET
// =============================================================================

const (
	Cash                       Key = "cash"
	ShortTermInvestments       Key = "short_term_investments"
	AccountsReceivable         Key = "accounts_receivable"
	Inventories                Key = "inventories"
	OtherCurrentAssets         Key = "other_current_assets"
	CurrentAssets              Key = "current_assets"
	PropertyPlantEquipment     Key = "property_plant_equipment"
	Goodwill                   Key = "goodwill"
	IntangibleAssets           Key = "intangible_assets"
	OtherNoncurrentAssets      Key = "other_noncurrent_assets"
	TotalAssets                Key = "total_assets"
	AccountsPayable            Key = "accounts_payable"
	ShortTermDebt              Key = "short_term_debt"
	AccruedLiabilities         Key = "accrued_liabilities"
	DeferredRevenue            Key = "deferred_revenue"
	OtherCurrentLiabilities    Key = "other_current_liabilities"
	CurrentLiabilities         Key = "current_liabilities"
	LongTermDebt               Key = "long_term_debt"
	TotalDebt                  Key = "total_debt"
	DeferredIncomeTaxes        Key = "deferred_income_taxes"
	OtherNoncurrentLiabilities Key = "other_noncurrent_liabilities"
	TotalLiabilities           Key = "total_liabilities"
	RetainedEarnings           Key = "retained_earnings"
	StockholdersEquity         Key = "stockholders_equity"
)

// =============================================================================
// CASH FLOW STATEMENT
// =============================================================================

const (
	CashFromOperations  Key = "cash_from_operations"
	CapitalExpenditures Key = "capital_expenditures"
	CashFromInvesting   Key = "cash_from_investing"
	DividendsPaid       Key = "dividends_paid"
	ShareRepurchases    Key = "share_repurchases"
	CashFromFinancing   Key = "cash_from_financing"
	NetChangeInCash     Key = "net_change_in_cash"
)

type definition struct {
	display   string
	statement Statement
}

var vocabulary = map[Key]definition{
	Revenue:                  {"Top Line Revenue", IncomeStatement},
	CostOfRevenue:            {"Cost of Revenue", IncomeStatement},
	GrossProfit:              {"Gross Profit", IncomeStatement},
	SGAExpense:               {"Selling, General & Administrative", IncomeStatement},
	RDExpense:                {"Research & Development", IncomeStatement},
	DepreciationAmortization: {"Depreciation & Amortization", IncomeStatement},
	OtherOperatingExpense:    {"Other Operating Expense", IncomeStatement},
	OperatingIncome:          {"Operating Income", IncomeStatement},
	InterestExpense:          {"Interest Expense", IncomeStatement},
	InterestIncome:           {"Interest Income", IncomeStatement},
	IncomeBeforeTax:          {"Income Before Tax", IncomeStatement},
	IncomeTaxExpense:         {"Income Tax Expense", IncomeStatement},
	NetIncome:                {"Net Income", IncomeStatement},
	StockCompensation:        {"Stock-Based Compensation", IncomeStatement},

	Cash:                       {"Cash & Cash Equivalents", BalanceSheet},
	ShortTermInvestments:       {"Short-Term Investments", BalanceSheet},
	AccountsReceivable:         {"Accounts Receivable", BalanceSheet},
	Inventories:                {"Inventories", BalanceSheet},
	OtherCurrentAssets:         {"Other Current Assets", BalanceSheet},
	CurrentAssets:              {"Current Assets", BalanceSheet},
	PropertyPlantEquipment:     {"Property, Plant & Equipment", BalanceSheet},
	Goodwill:                   {"Goodwill", BalanceSheet},
	IntangibleAssets:           {"Intangible Assets", BalanceSheet},
	OtherNoncurrentAssets:      {"Other Non-Current Assets", BalanceSheet},
	TotalAssets:                {"Total Assets", BalanceSheet},
	AccountsPayable:            {"Accounts Payable", BalanceSheet},
	ShortTermDebt:              {"Short-Term Debt", BalanceSheet},
	AccruedLiabilities:         {"Accrued Liabilities", BalanceSheet},
	DeferredRevenue:            {"Deferred Revenue", BalanceSheet},
	OtherCurrentLiabilities:    {"Other Current Liabilities", BalanceSheet},
	CurrentLiabilities:         {"Current Liabilities", BalanceSheet},
	LongTermDebt:               {"Long-Term Debt", BalanceSheet},
	TotalDebt:                  {"Total Debt", BalanceSheet},
	DeferredIncomeTaxes:        {"Deferred Income Taxes", BalanceSheet},
	OtherNoncurrentLiabilities: {"Other Non-Current Liabilities", BalanceSheet},
	TotalLiabilities:           {"Total Liabilities", BalanceSheet},
	RetainedEarnings:           {"Retained Earnings", BalanceSheet},
	StockholdersEquity:         {"Stockholders' Equity", BalanceSheet},

	CashFromOperations:  {"Cash from Operations", CashFlow},
	CapitalExpenditures: {"Capital Expenditures", CashFlow},
	CashFromInvesting:   {"Cash from Investing", CashFlow},
	DividendsPaid:       {"Dividends Paid", CashFlow},
	ShareRepurchases:    {"Share Repurchases", CashFlow},
	CashFromFinancing:   {"Cash from Financing", CashFlow},
	NetChangeInCash:     {"Net Change in Cash", CashFlow},
}

// RequiredBase lists the metrics every extraction strategy is asked to find.
var RequiredBase = []Key{
	Revenue,
	CostOfRevenue,
	GrossProfit,
	OperatingIncome,
	DepreciationAmortization,
	InterestExpense,
	NetIncome,
	TotalAssets,
	TotalLiabilities,
	StockholdersEquity,
	CurrentAssets,
	CurrentLiabilities,
	Cash,
	TotalDebt,
	AccountsReceivable,
	IntangibleAssets,
	Goodwill,
	StockCompensation,
}

var required = func() map[Key]bool {
	m := make(map[Key]bool, len(RequiredBase))
	for _, k := range RequiredBase {
		m[k] = true
	}
	return m
}()

// Required reports whether k is one of the base metrics in RequiredBase.
func (k Key) Required() bool { return required[k] }

// Statements lists the statements in reporting order.
var Statements = []Statement{IncomeStatement, BalanceSheet, CashFlow}

// derivedNames covers calculated metrics and ratios, which are not raw keys.
var derivedNames = map[string]string{
	"tangible_net_worth":       "Tangible Net Worth",
	"top_line_revenue":         "Top Line Revenue",
	"cash_balance":             "Cash Balance",
	"ebitda":                   "EBITDA",
	"adjusted_ebitda":          "Adjusted EBITDA",
	"gross_profit_margin":      "Gross Profit Margin",
	"operating_income_margin":  "Operating Income Margin",
	"ebitda_margin":            "EBITDA Margin",
	"adjusted_ebitda_margin":   "Adjusted EBITDA Margin",
	"net_income_margin":        "Net Income Margin",
	"current_ratio":            "Current Ratio",
	"cash_ratio":               "Cash Ratio",
	"debt_to_equity":           "Debt-to-Equity Ratio",
	"ebitda_interest_coverage": "EBITDA Interest Coverage",
	"net_debt":                 "Net Debt",
	"net_debt_to_ebitda":       "Net Debt / EBITDA",
	"net_debt_to_adj_ebitda":   "Net Debt / Adj. EBITDA",
	"days_sales_outstanding":   "Days Sales Outstanding",
	"working_capital":          "Working Capital",
	"return_on_assets":         "Return on Assets",
	"return_on_equity":         "Return on Equity",
}

// Parse converts a raw string into a Key. Surrounding whitespace and case are ignored.
func Parse(s string) (Key, error) {
	k := Key(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", eris.Wrapf(ErrUnknownKey, "metric: %q", s)
	}
	return k, nil
}

// Valid reports whether k is part of the vocabulary.
func (k Key) Valid() bool {
	_, ok := vocabulary[k]
	return ok
}

// DisplayName returns the human label, or the key itself when unknown.
func (k Key) DisplayName() string {
	if d, ok := vocabulary[k]; ok {
		return d.display
	}
	return string(k)
}

// Statement returns the statement the key is reported on ("" when unknown).
func (k Key) Statement() Statement {
	return vocabulary[k].statement
}

func (k Key) String() string { return string(k) }

// DisplayName resolves any raw key or derived metric name to its label.
func DisplayName(name string) string {
	if d, ok := derivedNames[name]; ok {
		return d
	}
	return Key(name).DisplayName()
}

// All returns every key in the vocabulary, sorted.
func All() []Key {
	keys := make([]Key, 0, len(vocabulary))
	for k := range vocabulary {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// ByStatement returns the sorted keys reported on statement st.
func ByStatement(st Statement) []Key {
	var keys []Key
	for _, k := range All() {
		if vocabulary[k].statement == st {
			keys = append(keys, k)
		}
	}
	return keys
}
