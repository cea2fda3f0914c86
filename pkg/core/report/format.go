package report

import (
	"fmt"

	"financial_review/pkg/core/calc"
	"financial_review/pkg/core/units"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

var (
	usd      = money.GetCurrency(money.USD)
	whole    = money.NewFormatter(0, usd.Decimal, usd.Thousand, usd.Grapheme, usd.Template)
	tenths   = money.NewFormatter(1, usd.Decimal, usd.Thousand, usd.Grapheme, usd.Template)
	million  = decimal.New(1, 6)
	billion  = decimal.New(1, 9)
	emptyCol = "-"
)

// Currency formats dollars compactly: $1.2B, $3.4M, $12,345. Zero and
// non-finite values are "-".
func Currency(v float64) string {
	if v == 0 || !units.Finite(v) {
		return emptyCol
	}
	d := decimal.NewFromFloat(v)
	switch abs := d.Abs(); {
	case abs.GreaterThanOrEqual(billion):
		return tenths.Format(d.Div(billion).Shift(1).Round(0).IntPart()) + "B"
	case abs.GreaterThanOrEqual(million):
		return tenths.Format(d.Div(million).Shift(1).Round(0).IntPart()) + "M"
	default:
		return whole.Format(d.Round(0).IntPart())
	}
}

// Percent formats a fraction as a percentage with two decimals.
func Percent(v float64) string {
	if v == 0 {
		return emptyCol
	}
	return fmt.Sprintf("%.2f%%", v*100)
}

// Multiple formats a ratio, e.g. "2.50x".
func Multiple(v float64) string {
	if v == 0 {
		return emptyCol
	}
	return fmt.Sprintf("%.2fx", v)
}

func Days(v float64) string {
	if v == 0 {
		return emptyCol
	}
	return fmt.Sprintf("%.1f days", v)
}

// Value formats v for a row's display format.
func Value(v float64, f calc.Format) string {
	switch f {
	case calc.Percent:
		return Percent(v)
	case calc.Multiple:
		return Multiple(v)
	case calc.Days:
		return Days(v)
	default:
		return Currency(v)
	}
}

// Delta formats current minus prior with an explicit sign. Percent deltas
// are in percentage points.
func Delta(d float64, f calc.Format) string {
	if d == 0 || !units.Finite(d) {
		return emptyCol
	}
	sign := ""
	if d > 0 {
		sign = "+"
	}
	switch f {
	case calc.Percent:
		return fmt.Sprintf("%s%.2f pts", sign, d*100)
	default:
		return sign + Value(d, f)
	}
}
