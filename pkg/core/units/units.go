// Package units canonicalizes the scale a filing reports its figures in and
// converts values to base currency units.
package units

import (
	"math"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"
)

// Unit is the scale multiplier governing every value in a session.
type Unit string

const (
	Dollars   Unit = "dollars"
	Thousands Unit = "thousands"
	Millions  Unit = "millions"
	Billions  Unit = "billions"
)

var exponents = map[Unit]int32{
	Dollars:   0,
	Thousands: 3,
	Millions:  6,
	Billions:  9,
}

// tokens maps a single word to the unit it names. Scale words outrank
// "dollars", so "in millions of dollars" resolves to millions.
var tokens = map[string]Unit{
	"dollars": Dollars, "dollar": Dollars, "usd": Dollars, "units": Dollars, "ones": Dollars,

	"thousands": Thousands, "thousand": Thousands, "k": Thousands, "000s": Thousands, "000": Thousands,

	"millions": Millions, "million": Millions, "mil": Millions, "mm": Millions, "mn": Millions, "m": Millions,

	"billions": Billions, "billion": Billions, "bil": Billions, "bn": Billions, "b": Billions,
}

// Canonicalize maps free-text unit descriptions ("M", "mil", "(In millions)")
// onto the fixed vocabulary. Unrecognized text resolves to Dollars.
func Canonicalize(text string) Unit {
	text = strings.ToLower(norm.NFKC.String(text))
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	best := Dollars
	for _, w := range words {
		u, ok := tokens[w]
		if !ok {
			continue
		}
		if exponents[u] > exponents[best] {
			best = u
		}
	}
	return best
}

// Valid reports whether u is already canonical.
func (u Unit) Valid() bool {
	_, ok := exponents[u]
	return ok
}

// Canonical returns u itself when valid, otherwise its canonicalized form.
func (u Unit) Canonical() Unit {
	if u.Valid() {
		return u
	}
	return Canonicalize(string(u))
}

// Multiplier returns the exact power of ten for u.
func (u Unit) Multiplier() decimal.Decimal {
	return decimal.New(1, exponents[u.Canonical()])
}

// Finite reports whether v is neither NaN nor an infinity.
func Finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// Scale converts v, expressed in u, to dollars. The product is computed in
// decimal so 5.2 millions becomes exactly 5,200,000. Non-finite values have
// no decimal form and are returned unchanged.
func Scale(v float64, u Unit) float64 {
	if v == 0 || !Finite(v) || u.Canonical() == Dollars {
		return v
	}
	return decimal.NewFromFloat(v).Mul(u.Multiplier()).InexactFloat64()
}

// Convert re-expresses v from one unit in another (e.g. thousands to millions).
func Convert(v float64, from, to Unit) float64 {
	from, to = from.Canonical(), to.Canonical()
	if v == 0 || !Finite(v) || from == to {
		return v
	}
	return decimal.NewFromFloat(v).Mul(from.Multiplier()).Div(to.Multiplier()).InexactFloat64()
}
